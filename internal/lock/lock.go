package lock

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrAlreadyLocked is returned when another matching run holds the period
var ErrAlreadyLocked = errors.New("period is locked by another matching run")

// PeriodLock serialises matching runs per period. At most one holder per
// period at a time; a second Acquire returns ErrAlreadyLocked instead of
// blocking.
type PeriodLock interface {
	// Acquire takes the lock for a period. The returned release function
	// must be called once the run is done; releasing a lock that already
	// expired or changed hands is a no-op.
	Acquire(ctx context.Context, periodID uuid.UUID) (release func(context.Context) error, err error)
}
