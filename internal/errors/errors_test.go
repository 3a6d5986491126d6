package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorWrapping(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := Wrap(cause, ErrCodeInternal, "processing failed")

	require.Error(t, err)
	assert.Equal(t, "processing failed: boom", err.Error())
	assert.ErrorIs(t, err, cause)

	assert.Nil(t, Wrap(nil, ErrCodeInternal, "ignored"))
}

func TestCodePredicates(t *testing.T) {
	assert.True(t, IsNotFound(NotFoundf("subject %d has no document", 7)))
	assert.True(t, IsConflict(Conflict("duplicate")))
	assert.True(t, IsValidation(Validation("bad input")))

	wrapped := fmt.Errorf("outer: %w", NotFound("gone"))
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsConflict(wrapped))
}

func TestMapDBError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want ErrorCode
	}{
		{name: "no rows", in: pgx.ErrNoRows, want: ErrCodeNotFound},
		{name: "unique violation", in: &pgconn.PgError{Code: pgerrcode.UniqueViolation}, want: ErrCodeConflict},
		{name: "foreign key violation", in: &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}, want: ErrCodeValidation},
		{name: "not null violation", in: &pgconn.PgError{Code: pgerrcode.NotNullViolation}, want: ErrCodeValidation},
		{name: "other pg error", in: &pgconn.PgError{Code: pgerrcode.SerializationFailure}, want: ErrCodeInternal},
		{name: "deadline", in: context.DeadlineExceeded, want: ErrCodeTimeout},
		{name: "canceled", in: context.Canceled, want: ErrCodeCanceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := MapDBError(tt.in)
			var appErr *AppError
			require.ErrorAs(t, mapped, &appErr)
			assert.Equal(t, tt.want, appErr.Code)
		})
	}

	assert.NoError(t, MapDBError(nil))

	plain := fmt.Errorf("not a database error")
	assert.Equal(t, plain, MapDBError(plain))
}
