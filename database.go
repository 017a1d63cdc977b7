package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Connector hands out one database connection per tool call. There is no
// pooling: idle connections are not retained, so every call dials the
// database and releases the connection when it returns.
type Connector struct {
	db  *sql.DB
	log *slog.Logger
}

func NewConnector(dsn string, log *slog.Logger) (*Connector, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxIdleConns(0)
	db.SetConnMaxLifetime(0)

	return &Connector{db: db, log: log}, nil
}

// Ping verifies connectivity and credentials with a SELECT 1 round trip.
func (c *Connector) Ping(ctx context.Context) error {
	var one int
	if err := c.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("failed to reach database: %w", err)
	}
	return nil
}

func (c *Connector) Close() error {
	return c.db.Close()
}

// withTx runs fn inside a transaction on a dedicated connection. The
// transaction commits when fn succeeds and rolls back otherwise; the
// connection is released on every exit path.
func (c *Connector) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			c.log.Error("rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
