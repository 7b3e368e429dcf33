package postgres

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"baseresource/pkg/platform/sentinel"
)

// SQLSTATE codes the store classifies.
const (
	codeUniqueViolation  = "23505"
	codeNotNullViolation = "23502"
	codeCheckViolation   = "23514"
	codeStringTooLong    = "22001"
)

// classify wraps err with the sentinel describing it. Both lib/pq and pgx
// driver errors are recognised so either driver can back the store.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}

	var code string
	var pqErr *pq.Error
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pqErr):
		code = string(pqErr.Code)
	case errors.As(err, &pgErr):
		code = pgErr.Code
	}

	switch code {
	case codeUniqueViolation:
		return fmt.Errorf("%s: %w: %w", op, sentinel.ErrConflict, err)
	case codeNotNullViolation, codeCheckViolation, codeStringTooLong:
		return fmt.Errorf("%s: %w: %w", op, sentinel.ErrInvalidInput, err)
	}

	var connErr *pgconn.ConnectError
	if errors.Is(err, driver.ErrBadConn) || errors.As(err, &connErr) {
		return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
