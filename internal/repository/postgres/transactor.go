package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Transactor implements domain.Transactor on a pgx pool
type Transactor struct {
	pool *pgxpool.Pool
}

// NewTransactor creates a new Transactor
func NewTransactor(pool *pgxpool.Pool) *Transactor {
	return &Transactor{pool: pool}
}

// WithinTx runs fn inside one database transaction. The pgx.Tx is handed to fn as tx;
// it is committed only if fn returns nil.
func (t *Transactor) WithinTx(ctx context.Context, fn func(tx any) error) error {
	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
