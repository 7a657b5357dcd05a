package postgres

import (
	"context"
	"database/sql"
)

type txKeyType struct{}

var txKey = txKeyType{}

// WithTx stores the transaction on the context so repositories picked
// up inside a unit of work run on it instead of the pool.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey, tx)
}

type execer interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func GetExecutor(ctx context.Context, db *sql.DB) execer {
	if tx, ok := ctx.Value(txKey).(*sql.Tx); ok {
		return tx
	}
	return db
}
