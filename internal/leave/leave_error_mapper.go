package leave

import (
	"errors"

	leaveerrors "leave-expiry/internal/leave/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

func mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return leaveerrors.ErrLeaveNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return leaveerrors.ErrLeaveAlreadyExists
		case pgSerializationFailure, pgDeadlockDetected:
			return leaveerrors.ErrStatusConflict
		}
	}
	return err
}
