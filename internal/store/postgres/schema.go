package postgres

import (
	"context"
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS app_users (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL DEFAULT 'seller',
	active        BOOLEAN NOT NULL DEFAULT true,
	created_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS products (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	price      NUMERIC(14,2) NOT NULL CHECK (price >= 0),
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS customers (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS sales (
	id            TEXT PRIMARY KEY,
	customer_id   TEXT NOT NULL,
	customer_name TEXT NOT NULL,
	total_amount  NUMERIC(14,2) NOT NULL,
	paid_amount   NUMERIC(14,2) NOT NULL,
	balance_added NUMERIC(14,2) NOT NULL,
	created_by    TEXT NOT NULL,
	occurred_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS sale_items (
	sale_id    TEXT NOT NULL REFERENCES sales(id) ON DELETE CASCADE,
	position   INTEGER NOT NULL,
	product_id TEXT NOT NULL,
	name       TEXT NOT NULL,
	unit_price NUMERIC(14,2) NOT NULL,
	quantity   INTEGER NOT NULL,
	line_total NUMERIC(14,2) NOT NULL,
	PRIMARY KEY (sale_id, position)
);

CREATE INDEX IF NOT EXISTS idx_sales_occurred_at ON sales(occurred_at DESC);
`

// migrate creates missing tables. It is idempotent and runs on every start.
func migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
