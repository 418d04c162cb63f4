package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	DatabaseURL           string
	SQLitePath            string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	AuthSecret            string
	AccessTokenTTLMinutes int
	CatalogTTLSeconds     int
	DraftTTLMinutes       int
	Timezone              string
	AllowSignup           bool
	MetricsEnabled        bool
	LogLevel              string
	AdminEmail            string
	AdminPassword         string
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "*"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		SQLitePath:            os.Getenv("SQLITE_PATH"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               redisDB,
		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: getPositiveInt("ACCESS_TOKEN_TTL_MINUTES", 480),
		CatalogTTLSeconds:     getPositiveInt("CATALOG_TTL_SECONDS", 60),
		DraftTTLMinutes:       getPositiveInt("DRAFT_TTL_MINUTES", 120),
		Timezone:              getEnv("TIMEZONE", "UTC"),
		AllowSignup:           getBool("ALLOW_SIGNUP", true),
		MetricsEnabled:        getBool("METRICS_ENABLED", true),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		AdminEmail:            strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_EMAIL")),
		AdminPassword:         os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

// Location resolves Timezone. Sales history date bounds are interpreted in it.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getPositiveInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(fallback)))
	if err != nil {
		return fallback
	}
	return v
}
