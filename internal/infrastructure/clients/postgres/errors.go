package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"syscall"

	"github.com/lib/pq"

	apperrors "github.com/tmvsalud/medtour/pkg/errors"
)

const (
	uniqueViolation     pq.ErrorCode = "23505"
	foreignKeyViolation pq.ErrorCode = "23503"
	serializationFailed pq.ErrorCode = "40001"
)

// MapError converts a driver error into an AppError. Transient connectivity
// failures become StorageUnavailable and are not retried here.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == uniqueViolation:
			return apperrors.NewConflictError(op + ": record already exists")
		case pqErr.Code == foreignKeyViolation:
			return apperrors.NewNotFoundError(op + ": referenced record does not exist")
		case pqErr.Code == serializationFailed:
			return apperrors.NewConflictError(op + ": concurrent update, try again")
		case pqErr.Code.Class() == "08" || pqErr.Code.Class() == "57":
			return apperrors.NewStorageUnavailableError(op, err)
		}
		return apperrors.NewInternalError(op, err)
	}

	if IsUnavailable(err) {
		return apperrors.NewStorageUnavailableError(op, err)
	}
	return apperrors.NewInternalError(op, err)
}

// IsUnavailable reports timeouts, refused connections and broken connections
func IsUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
