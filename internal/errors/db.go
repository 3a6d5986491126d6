package errors

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// MapDBError translates driver errors into AppError codes so services can
// branch without importing pgx. Errors the mapping does not recognise pass
// through unchanged.
func MapDBError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(err, ErrCodeTimeout, "database operation timed out")
	case errors.Is(err, context.Canceled):
		return Wrap(err, ErrCodeCanceled, "database operation canceled")
	case errors.Is(err, pgx.ErrNoRows):
		return Wrap(err, ErrCodeNotFound, "resource not found")
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return Wrap(pgErr, ErrCodeConflict, "value already exists")
	case pgerrcode.ForeignKeyViolation:
		return Wrap(pgErr, ErrCodeValidation, "referenced row does not exist")
	case pgerrcode.CheckViolation, pgerrcode.NotNullViolation:
		return Wrap(pgErr, ErrCodeValidation, "value violates a database constraint")
	}
	return Wrap(pgErr, ErrCodeInternal, "database error")
}
