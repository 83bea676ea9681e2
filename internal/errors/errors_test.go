package errors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	assert.Equal(t, "job not found", NotFound("job not found").Error())

	wrapped := Wrap(errors.New("dial tcp refused"), ErrCodeUnavailable, "queue unreachable")
	assert.Equal(t, "queue unreachable: dial tcp refused", wrapped.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(cause, ErrCodeInternal, "something broke")

	assert.ErrorIs(t, err, cause)
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "ignored"))
	assert.Nil(t, Wrapf(nil, ErrCodeInternal, "ignored %d", 1))
}

func TestCodePredicates(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{name: "not found matches", err: NotFound("x"), check: IsNotFound, want: true},
		{name: "not found formatted", err: NotFoundf("job %s", "j1"), check: IsNotFound, want: true},
		{name: "validation matches", err: Validation("x"), check: IsValidation, want: true},
		{name: "validation formatted", err: Validationf("field %s", "hash"), check: IsValidation, want: true},
		{name: "unavailable matches", err: Unavailable("x"), check: IsUnavailable, want: true},
		{name: "internal is not validation", err: Internal("x"), check: IsValidation, want: false},
		{name: "plain error matches nothing", err: errors.New("x"), check: IsNotFound, want: false},
		{name: "nil matches nothing", err: nil, check: IsUnavailable, want: false},
		{
			name:  "wrapped app error still matches",
			err:   fmt.Errorf("outer: %w", NotFound("inner")),
			check: IsNotFound,
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.check(tt.err))
		})
	}
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeValidation, GetCode(Validation("bad input")))
	assert.Equal(t, ErrCodeNotFound, GetCode(fmt.Errorf("wrap: %w", NotFound("gone"))))
	assert.Equal(t, ErrorCode(""), GetCode(errors.New("plain")))
}

func TestMapDBError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{name: "no rows is not found", err: sql.ErrNoRows, want: ErrCodeNotFound},
		{name: "deadline is timeout", err: context.DeadlineExceeded, want: ErrCodeTimeout},
		{name: "cancellation is canceled", err: context.Canceled, want: ErrCodeCanceled},
		{
			name: "check violation is validation",
			err:  &pgconn.PgError{Code: pgerrcode.CheckViolation, ColumnName: "progress"},
			want: ErrCodeValidation,
		},
		{
			name: "unique violation is validation",
			err:  &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "verification_jobs_pkey"},
			want: ErrCodeValidation,
		},
		{
			name: "connection failure is unavailable",
			err:  &pgconn.PgError{Code: pgerrcode.ConnectionFailure},
			want: ErrCodeUnavailable,
		},
		{
			name: "other pg error is internal",
			err:  &pgconn.PgError{Code: pgerrcode.SerializationFailure},
			want: ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetCode(MapDBError(tt.err)))
		})
	}
}

func TestMapDBError_Passthrough(t *testing.T) {
	assert.NoError(t, MapDBError(nil))

	plain := errors.New("not a db error")
	assert.Equal(t, plain, MapDBError(plain))
}
