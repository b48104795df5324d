package repository

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestMapWriteError(t *testing.T) {
	tests := []struct {
		code string
		want error
	}{
		{pgUniqueViolation, ErrDuplicate},
		{pgForeignKeyViolation, ErrReferenced},
		{pgCheckViolation, ErrConstraint},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := mapWriteError(&pgconn.PgError{Code: tt.code, ConstraintName: "some_key"})
			require.ErrorIs(t, err, tt.want)
			require.Contains(t, err.Error(), "some_key")
		})
	}

	other := errors.New("boom")
	require.Equal(t, other, mapWriteError(other))
	require.NoError(t, mapWriteError(nil))
}
