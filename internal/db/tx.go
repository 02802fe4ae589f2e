// Package db holds small database/sql helpers shared by the store.
package db

import (
	"context"
	"database/sql"
	"time"
)

// WithTxContext executes fn within a transaction.
// It handles Begin, Rollback on error, and Commit on success.
func WithTxContext(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// NullStringValue returns the string value or empty string if not valid.
func NullStringValue(n sql.NullString) string {
	if !n.Valid {
		return ""
	}
	return n.String
}

// NullUnixTime converts a nullable unix timestamp to a time.Time.
// Returns the zero time if the value is not valid.
func NullUnixTime(n sql.NullInt64) time.Time {
	if !n.Valid {
		return time.Time{}
	}
	return time.Unix(n.Int64, 0)
}

// UnixOrNil returns the unix timestamp of t, or nil if t is the zero time.
// Useful as an Exec argument for nullable timestamp columns.
func UnixOrNil(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Unix()
}
