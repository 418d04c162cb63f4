package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"teasales/backend/internal/domain"
	"teasales/backend/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveAccount    = errors.New("account is inactive")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

const minPasswordLength = 6

type UserStore interface {
	CreateUser(ctx context.Context, user domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

type AuthManager struct {
	secret    []byte
	tokenTTL  time.Duration
	userStore UserStore
}

type sellerClaims struct {
	jwtlib.RegisteredClaims
	Role string `json:"role"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, userStore UserStore) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}

	return &AuthManager{
		secret:    []byte(secret),
		tokenTTL:  tokenTTL,
		userStore: userStore,
	}
}

func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	user, err := a.userStore.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.LoginResponse{}, ErrInvalidCredentials
		}
		return domain.LoginResponse{}, err
	}

	if !verifyPassword(user.PasswordHash, req.Password) {
		return domain.LoginResponse{}, ErrInvalidCredentials
	}
	if !user.Active {
		return domain.LoginResponse{}, ErrInactiveAccount
	}

	return a.issue(user)
}

// Signup creates an active seller account and signs it in.
func (a *AuthManager) Signup(ctx context.Context, req domain.SignupRequest) (domain.LoginResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" {
		return domain.LoginResponse{}, fmt.Errorf("%w: name is required", store.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.LoginResponse{}, fmt.Errorf("%w: email is invalid", store.ErrInvalidInput)
	}
	if len(req.Password) < minPasswordLength {
		return domain.LoginResponse{}, fmt.Errorf("%w: password must be at least %d characters", store.ErrInvalidInput, minPasswordLength)
	}

	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		return domain.LoginResponse{}, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := a.userStore.CreateUser(ctx, domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         domain.RoleSeller,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return domain.LoginResponse{}, fmt.Errorf("%w: email is already registered", store.ErrConflict)
		}
		return domain.LoginResponse{}, err
	}

	user, err := a.userStore.GetUserByEmail(ctx, email)
	if err != nil {
		return domain.LoginResponse{}, err
	}
	return a.issue(user)
}

// EnsureAdmin creates an admin account for email unless one already exists.
func (a *AuthManager) EnsureAdmin(ctx context.Context, email string, password string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := a.userStore.GetUserByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}
	if len(password) < minPasswordLength {
		return false, fmt.Errorf("%w: admin password must be at least %d characters", store.ErrInvalidInput, minPasswordLength)
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}
	err = a.userStore.CreateUser(ctx, domain.User{
		Name:         "Admin",
		Email:        email,
		PasswordHash: passwordHash,
		Role:         domain.RoleAdmin,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	})
	if errors.Is(err, store.ErrConflict) {
		return false, nil
	}
	return err == nil, err
}

func (a *AuthManager) Me(ctx context.Context, userID string) (domain.User, error) {
	user, err := a.userStore.GetUserByID(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	return *user, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &sellerClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return domain.Actor{}, ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	return domain.Actor{UserID: sub, Role: claims.Role}, nil
}

func (a *AuthManager) issue(user *domain.User) (domain.LoginResponse, error) {
	expiresAt := time.Now().UTC().Add(a.tokenTTL)
	token, err := a.sign(user.ID, user.Role, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	return domain.LoginResponse{
		AccessToken: token,
		UserID:      user.ID,
		Name:        user.Name,
		Role:        user.Role,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

func (a *AuthManager) sign(userID, role string, expiresAt time.Time) (string, error) {
	claims := sellerClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "teasales",
		},
		Role: role,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
