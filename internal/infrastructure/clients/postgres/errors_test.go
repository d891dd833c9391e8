package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/tmvsalud/medtour/pkg/errors"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperrors.ErrorType
	}{
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), apperrors.ErrorTypeStorageUnavailable},
		{"bad conn", driver.ErrBadConn, apperrors.ErrorTypeStorageUnavailable},
		{"refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), apperrors.ErrorTypeStorageUnavailable},
		{"admin shutdown", &pq.Error{Code: "57P01"}, apperrors.ErrorTypeStorageUnavailable},
		{"unique", &pq.Error{Code: "23505"}, apperrors.ErrorTypeConflict},
		{"foreign key", &pq.Error{Code: "23503"}, apperrors.ErrorTypeNotFound},
		{"syntax", &pq.Error{Code: "42601"}, apperrors.ErrorTypeInternal},
		{"other", errors.New("boom"), apperrors.ErrorTypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperrors.TypeOf(MapError("op", tt.err)))
		})
	}

	assert.NoError(t, MapError("op", nil))

	existing := apperrors.NewNotFoundError("quote not found")
	assert.Same(t, existing, MapError("op", existing))
}
