package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
)

func isNotFound(err error) bool {
	return err == sql.ErrNoRows
}

// getContext runs a single-row query and retries once when pgbouncer
// evicted the unnamed prepared statement between prepare and bind.
func getContext(ctx context.Context, db *sqlx.DB, dest any, query string, args ...any) error {
	err := db.GetContext(ctx, dest, query, args...)
	if err == nil {
		return nil
	}
	if isBindParameterMismatch(err) || isUnnamedPreparedStatementMissing(err) {
		return db.GetContext(ctx, dest, query, args...)
	}
	return err
}

// isBindParameterMismatch reports the 08P01 protocol violation pgbouncer
// produces when a bind message hits a stale statement.
func isBindParameterMismatch(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "bind message supplies") || strings.Contains(msg, "08P01")
}

func isUnnamedPreparedStatementMissing(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "unnamed prepared statement does not exist") || strings.Contains(msg, "26000")
}
