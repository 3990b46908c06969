package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/maypok86/otter/v2"

	"storehours/internal/domain"
	"storehours/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// Upstream is the published schedule source.
type Upstream interface {
	Hours(ctx context.Context) ([]domain.StoreHours, error)
	Overrides(ctx context.Context) ([]domain.StoreOverride, error)
}

const snapshotKey = "schedule"

// Service answers open/closed, next-opening, and slot queries from the
// persisted schedule snapshot, and refreshes that snapshot from the
// upstream hours API. Reads go through a short-lived in-memory cache so
// request handling does not hit Postgres on every call.
type Service struct {
	repo      store.ScheduleRepository
	upstream  Upstream
	cache     *otter.Cache[string, store.Snapshot]
	validate  *validator.Validate
	storeZone *time.Location
	log       *slog.Logger
}

func NewService(repo store.ScheduleRepository, upstream Upstream, storeZone *time.Location, cacheTTL time.Duration, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	cache := otter.Must(&otter.Options[string, store.Snapshot]{
		MaximumSize:      8,
		ExpiryCalculator: otter.ExpiryWriting[string, store.Snapshot](cacheTTL),
	})
	return &Service{
		repo:      repo,
		upstream:  upstream,
		cache:     cache,
		validate:  validator.New(),
		storeZone: storeZone,
		log:       log.With(slog.String("component", "service.schedule")),
	}
}

// Refresh pulls the current schedule from upstream, validates it, and
// replaces the persisted snapshot. Malformed rows reject the whole
// fetch; a half-validated schedule is never stored.
func (s *Service) Refresh(ctx context.Context) error {
	hours, err := s.upstream.Hours(ctx)
	if err != nil {
		return fmt.Errorf("fetch hours: %w", err)
	}
	overrides, err := s.upstream.Overrides(ctx)
	if err != nil {
		return fmt.Errorf("fetch overrides: %w", err)
	}

	for i, h := range hours {
		if err := s.validate.Struct(h); err != nil {
			return validationError(fmt.Sprintf("hours row %d (%s): %v", i, h.ID, err))
		}
		if err := checkTimes(h.StartTime, h.EndTime); err != nil {
			return validationError(fmt.Sprintf("hours row %d (%s): %v", i, h.ID, err))
		}
	}
	for i, ov := range overrides {
		if err := s.validate.Struct(ov); err != nil {
			return validationError(fmt.Sprintf("override row %d (%s): %v", i, ov.ID, err))
		}
		if err := checkTimes(ov.StartTime, ov.EndTime); err != nil {
			return validationError(fmt.Sprintf("override row %d (%s): %v", i, ov.ID, err))
		}
	}

	if err := s.repo.Replace(ctx, store.Snapshot{Hours: hours, Overrides: overrides}); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}
	s.cache.Invalidate(snapshotKey)

	s.log.Info("schedule refreshed",
		slog.Int("hours_rows", len(hours)),
		slog.Int("override_rows", len(overrides)),
	)
	return nil
}

func checkTimes(startTime, endTime string) error {
	if _, err := domain.ParseClock(startTime); err != nil {
		return err
	}
	if _, err := domain.ParseClock(endTime); err != nil {
		return err
	}
	return nil
}

func (s *Service) snapshot(ctx context.Context) (store.Snapshot, error) {
	if snap, ok := s.cache.GetIfPresent(snapshotKey); ok {
		return snap, nil
	}
	snap, err := s.repo.Get(ctx)
	if err != nil {
		return store.Snapshot{}, err
	}
	s.cache.Set(snapshotKey, snap)
	return snap, nil
}

// Status is the open flag and the next opening computed from the same
// snapshot and the same instant, so the pair never disagrees.
type Status struct {
	Open        bool
	NextOpening *time.Time
}

// Status reports whether the store is open at now and when it opens
// next. With no snapshot available it fails closed: not open, no known
// opening.
func (s *Service) Status(ctx context.Context, now time.Time) (Status, error) {
	snap, err := s.snapshot(ctx)
	if errors.Is(err, store.ErrNoSchedule) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, err
	}

	open, err := domain.IsOpenAt(now, snap.Hours, snap.Overrides, s.storeZone)
	if err != nil {
		return Status{}, err
	}
	st := Status{Open: open}

	next, found, err := domain.NextOpening(now, snap.Hours, snap.Overrides, s.storeZone)
	if err != nil {
		return Status{}, err
	}
	if found {
		st.NextOpening = &next
	}
	return st, nil
}

// Slots lists bookable start instants for the calendar day date falls
// on in the selected zone, sorted ascending. With no snapshot it
// returns an empty list.
func (s *Service) Slots(ctx context.Context, date time.Time, sel domain.ZoneSelection, display *time.Location, intervalMinutes int) ([]time.Time, error) {
	if intervalMinutes < 1 {
		return nil, validationError("interval must be at least 1 minute")
	}

	snap, err := s.snapshot(ctx)
	if errors.Is(err, store.ErrNoSchedule) {
		return []time.Time{}, nil
	}
	if err != nil {
		return nil, err
	}

	zones := domain.Zones{Store: s.storeZone, Display: display}
	slots, err := domain.Slots(date, snap.Hours, snap.Overrides, zones, sel, intervalMinutes)
	if err != nil {
		return nil, err
	}

	// Disjoint same-day intervals come out in row order; present them
	// chronologically.
	sort.Slice(slots, func(i, j int) bool { return slots[i].Before(slots[j]) })
	if slots == nil {
		slots = []time.Time{}
	}
	return slots, nil
}

// Greeting returns the home-screen salutation for now in the selected
// zone.
func (s *Service) Greeting(now time.Time, sel domain.ZoneSelection, display *time.Location) string {
	zones := domain.Zones{Store: s.storeZone, Display: display}
	return domain.Greeting(now, zones.In(sel))
}
