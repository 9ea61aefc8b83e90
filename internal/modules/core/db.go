package core

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"
)

type TransactionOption func(*sql.TxOptions)

func WithIsolationLevel(level sql.IsolationLevel) TransactionOption {
	return func(opts *sql.TxOptions) {
		opts.Isolation = level
	}
}

// Tx runs txFn inside a transaction, committing on success and rolling back
// on error or panic.
func Tx(
	ctx context.Context,
	db *sql.DB,
	txFn func(context.Context, *sql.Tx) error,
	opts ...TransactionOption,
) (err error) {
	options := sql.TxOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	tx, err := db.BeginTx(ctx, &options)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			err = fmt.Errorf("transaction panicked with: %v", r)
		}
	}()

	if err = txFn(ctx, tx); err != nil {
		return rollback(tx, err)
	}

	if err = tx.Commit(); err != nil {
		return rollback(tx, err)
	}

	return nil
}

func rollback(tx *sql.Tx, cause error) error {
	if rollbackErr := tx.Rollback(); rollbackErr != nil {
		return fmt.Errorf("%s: %w", rollbackErr.Error(), cause)
	}

	return cause
}
