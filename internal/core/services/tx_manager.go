package services

import (
	"context"
	"database/sql"

	"github.com/RohanSantra/Connecto-sub000/internal/plugins/postgres"
)

// TxRunner lets services declare a unit of work that must commit or
// roll back as one. Tests substitute a pass-through fake.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type TxManager struct {
	db *sql.DB
}

func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{db: db}
}

func (tm *TxManager) WithTx(
	ctx context.Context,
	fn func(ctx context.Context) error,
) error {
	tx, err := tm.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(postgres.WithTx(ctx, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
