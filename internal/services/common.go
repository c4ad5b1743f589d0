package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbm "carnival/internal/models/db_models"
	"carnival/pkg/utils"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID        uuid.UUID
	Role      dbm.UserRole
	SuperUser bool
}

func (a Actor) IsAdmin() bool {
	return a.SuperUser || a.Role == dbm.RoleAdmin
}

// withTimeout bounds a store call by the configured query timeout.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func parseID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s must be a valid id", utils.ErrValidation, field)
	}
	return id, nil
}

func parseOptionalID(raw, field string) (*uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	id, err := parseID(raw, field)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// storeErr maps gorm errors onto service sentinels. what names the entity
// for not-found and conflict messages.
func storeErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %s", utils.ErrNotFound, what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %s", utils.ErrConflict, what)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s: query timed out", utils.ErrDatabaseError, what)
	default:
		return fmt.Errorf("%w: %s: %v", utils.ErrDatabaseError, what, err)
	}
}

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{utils.ErrValidation}, args...)...)
}

func notFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{utils.ErrNotFound}, args...)...)
}
