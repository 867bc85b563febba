package lock

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryPeriodLock implements PeriodLock for a single process
type MemoryPeriodLock struct {
	mu     sync.Mutex
	locked map[uuid.UUID]struct{}
}

// NewMemoryPeriodLock creates an empty MemoryPeriodLock
func NewMemoryPeriodLock() *MemoryPeriodLock {
	return &MemoryPeriodLock{
		locked: make(map[uuid.UUID]struct{}),
	}
}

// Acquire takes the lock for a period
func (l *MemoryPeriodLock) Acquire(_ context.Context, periodID uuid.UUID) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.locked[periodID]; ok {
		return nil, ErrAlreadyLocked
	}
	l.locked[periodID] = struct{}{}

	var once sync.Once
	release := func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.locked, periodID)
		})
		return nil
	}
	return release, nil
}

// Ensure MemoryPeriodLock implements PeriodLock
var _ PeriodLock = (*MemoryPeriodLock)(nil)
