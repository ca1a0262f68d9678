package leave

import (
	"errors"
	"fmt"
	"testing"

	leaveerrors "leave-expiry/internal/leave/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestMapRepositoryError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "nil", err: nil, want: nil},
		{name: "not found", err: gorm.ErrRecordNotFound, want: leaveerrors.ErrLeaveNotFound},
		{name: "duplicate id", err: &pgconn.PgError{Code: "23505", ConstraintName: "leaves_pkey"}, want: leaveerrors.ErrLeaveAlreadyExists},
		{name: "serialization failure", err: fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001"}), want: leaveerrors.ErrStatusConflict},
		{name: "deadlock", err: &pgconn.PgError{Code: "40P01"}, want: leaveerrors.ErrStatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapRepositoryError(tt.err)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}

	t.Run("other errors pass through", func(t *testing.T) {
		raw := errors.New("connection reset")
		assert.Same(t, raw, mapRepositoryError(raw))
	})
}
