package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type contextKey string

// TxKey is the context key for the transaction opened by WithTx.
const TxKey contextKey = "tx"

// GetTx retrieves the transaction stored in ctx.
// Returns nil and false if not present.
func GetTx(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(TxKey).(pgx.Tx)
	return tx, ok
}

// SetTx stores a transaction in ctx.
func SetTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, TxKey, tx)
}

// WithTx runs fn inside one transaction. Repository calls made with the
// context passed to fn join it. The transaction commits when fn returns nil
// and rolls back otherwise. Nested calls reuse the outer transaction.
func (db *DB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := GetTx(ctx); ok {
		return fn(ctx)
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// no-op after a successful commit
		_ = tx.Rollback(context.Background())
	}()

	if err := fn(SetTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
