package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/footwear-qc/internal/core/domain"
)

const schemaLockID = int64(2026100701)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the inspections table. The api and the worker both run
// it on startup, so the DDL is serialized with an advisory lock.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS inspections (
	id TEXT PRIMARY KEY,
	order_number TEXT NOT NULL,
	order_quantity TEXT NOT NULL DEFAULT '',
	style TEXT NOT NULL DEFAULT '',
	factory TEXT NOT NULL DEFAULT '',
	client TEXT NOT NULL DEFAULT '',
	inspector TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	images JSONB NOT NULL DEFAULT '[]'::jsonb,
	image_results JSONB NOT NULL DEFAULT '[]'::jsonb,
	ai_defects JSONB NOT NULL DEFAULT '{"critical":[],"major":[],"minor":[]}'::jsonb,
	review_defects JSONB NOT NULL DEFAULT '{"critical":[],"major":[],"minor":[]}'::jsonb,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_inspections_status ON inspections(status);
CREATE INDEX IF NOT EXISTS idx_inspections_order_number ON inspections(order_number);
CREATE INDEX IF NOT EXISTS idx_inspections_created_at ON inspections(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// wrapDBError maps driver failures onto domain kinds: lost connections and
// timeouts are temporary, unique violations are conflicts.
func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return domain.WrapError(domain.ErrConflict, op, err)
		case "40001", "40P01", "57P01", "53300":
			return domain.WrapError(domain.ErrTemporary, op, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || errors.Is(err, driver.ErrBadConn) || pgconn.Timeout(err) {
		return domain.WrapError(domain.ErrTemporary, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
