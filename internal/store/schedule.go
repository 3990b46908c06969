package store

import (
	"context"

	"storehours/internal/domain"
)

// Snapshot is one coherent read of the store's schedule: the weekly
// recurring rows plus every date override, replaced together so readers
// never mix data from two fetches.
type Snapshot struct {
	Hours     []domain.StoreHours
	Overrides []domain.StoreOverride
}

type ScheduleRepository interface {
	// Replace swaps the persisted snapshot for snap atomically.
	Replace(ctx context.Context, snap Snapshot) error
	// Get returns the current snapshot, or ErrNoSchedule when none has
	// ever been persisted. Overrides are always non-nil in a returned
	// snapshot so callers can distinguish "empty" from "missing".
	Get(ctx context.Context) (Snapshot, error)
}
