package util

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type TransactionCallback func(*sqlx.Tx) error

// Transaction runs cb in a transaction, rolling back if cb errors.
// It is only used to keep a single logical record (eg. a Match and its
// entries) consistent, never to group independent records.
func Transaction(ctx context.Context, db *sqlx.DB, cb TransactionCallback) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	if err := cb(tx); err != nil {
		if err2 := tx.Rollback(); err2 != nil {
			return fmt.Errorf("rollback error: %s\noriginal error: %w", err2, err)
		}

		return err
	}

	return tx.Commit()
}
