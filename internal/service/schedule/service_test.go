package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"storehours/internal/domain"
	"storehours/internal/store"
)

type fakeRepo struct {
	replaceFn func(ctx context.Context, snap store.Snapshot) error
	getFn     func(ctx context.Context) (store.Snapshot, error)
}

func (f *fakeRepo) Replace(ctx context.Context, snap store.Snapshot) error {
	if f.replaceFn == nil {
		panic("Replace not configured")
	}
	return f.replaceFn(ctx, snap)
}

func (f *fakeRepo) Get(ctx context.Context) (store.Snapshot, error) {
	if f.getFn == nil {
		panic("Get not configured")
	}
	return f.getFn(ctx)
}

type fakeUpstream struct {
	hoursFn     func(ctx context.Context) ([]domain.StoreHours, error)
	overridesFn func(ctx context.Context) ([]domain.StoreOverride, error)
}

func (f *fakeUpstream) Hours(ctx context.Context) ([]domain.StoreHours, error) {
	if f.hoursFn == nil {
		panic("Hours not configured")
	}
	return f.hoursFn(ctx)
}

func (f *fakeUpstream) Overrides(ctx context.Context) ([]domain.StoreOverride, error) {
	if f.overridesFn == nil {
		panic("Overrides not configured")
	}
	return f.overridesFn(ctx)
}

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation error: %v", err)
	}
	return loc
}

func mondaySnapshot() store.Snapshot {
	return store.Snapshot{
		Hours: []domain.StoreHours{
			{ID: "h1", DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00", IsOpen: true},
		},
		Overrides: []domain.StoreOverride{},
	}
}

func TestServiceStatus_FailsClosedWithoutSnapshot(t *testing.T) {
	svc := NewService(&fakeRepo{
		getFn: func(ctx context.Context) (store.Snapshot, error) {
			return store.Snapshot{}, store.ErrNoSchedule
		},
	}, &fakeUpstream{}, newYork(t), time.Minute, nil)

	st, err := svc.Status(context.Background(), time.Date(2026, 1, 5, 10, 0, 0, 0, newYork(t)))
	if err != nil {
		t.Fatalf("Status error: %v", err)
	}
	if st.Open {
		t.Fatalf("expected closed without a snapshot")
	}
	if st.NextOpening != nil {
		t.Fatalf("expected no next opening, got %v", st.NextOpening)
	}
}

func TestServiceStatus_OpenAndNextFromOneSnapshot(t *testing.T) {
	ny := newYork(t)
	svc := NewService(&fakeRepo{
		getFn: func(ctx context.Context) (store.Snapshot, error) {
			return mondaySnapshot(), nil
		},
	}, &fakeUpstream{}, ny, time.Minute, nil)

	st, err := svc.Status(context.Background(), time.Date(2026, 1, 5, 8, 0, 0, 0, ny))
	if err != nil {
		t.Fatalf("Status error: %v", err)
	}
	if st.Open {
		t.Fatalf("expected closed before opening")
	}
	if st.NextOpening == nil {
		t.Fatalf("expected a next opening")
	}
	if want := time.Date(2026, 1, 5, 9, 0, 0, 0, ny); !st.NextOpening.Equal(want) {
		t.Fatalf("next opening = %v, want %v", st.NextOpening, want)
	}

	st, err = svc.Status(context.Background(), time.Date(2026, 1, 5, 10, 0, 0, 0, ny))
	if err != nil {
		t.Fatalf("Status error: %v", err)
	}
	if !st.Open {
		t.Fatalf("expected open during hours")
	}
}

func TestServiceStatus_CachesSnapshot(t *testing.T) {
	ny := newYork(t)
	gets := 0
	svc := NewService(&fakeRepo{
		getFn: func(ctx context.Context) (store.Snapshot, error) {
			gets++
			return mondaySnapshot(), nil
		},
	}, &fakeUpstream{}, ny, time.Minute, nil)

	now := time.Date(2026, 1, 5, 10, 0, 0, 0, ny)
	for i := 0; i < 3; i++ {
		if _, err := svc.Status(context.Background(), now); err != nil {
			t.Fatalf("Status error: %v", err)
		}
	}
	if gets != 1 {
		t.Fatalf("repo reads = %d, want 1", gets)
	}
}

func TestServiceSlots_SortedAcrossIntervals(t *testing.T) {
	ny := newYork(t)
	snap := store.Snapshot{
		Hours: []domain.StoreHours{
			{ID: "h1", DayOfWeek: 1, StartTime: "13:00", EndTime: "17:00", IsOpen: true},
			{ID: "h2", DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00", IsOpen: true},
		},
		Overrides: []domain.StoreOverride{},
	}
	svc := NewService(&fakeRepo{
		getFn: func(ctx context.Context) (store.Snapshot, error) { return snap, nil },
	}, &fakeUpstream{}, ny, time.Minute, nil)

	slots, err := svc.Slots(context.Background(), time.Date(2026, 1, 5, 12, 0, 0, 0, ny), domain.StoreZone, nil, 60)
	if err != nil {
		t.Fatalf("Slots error: %v", err)
	}
	if len(slots) != 7 {
		t.Fatalf("len(slots) = %d, want 7", len(slots))
	}
	for i := 1; i < len(slots); i++ {
		if !slots[i-1].Before(slots[i]) {
			t.Fatalf("slots not ascending: %v then %v", slots[i-1], slots[i])
		}
	}
	if want := time.Date(2026, 1, 5, 9, 0, 0, 0, ny); !slots[0].Equal(want) {
		t.Fatalf("slots[0] = %v, want %v", slots[0], want)
	}
}

func TestServiceSlots_EmptyWithoutSnapshot(t *testing.T) {
	ny := newYork(t)
	svc := NewService(&fakeRepo{
		getFn: func(ctx context.Context) (store.Snapshot, error) {
			return store.Snapshot{}, store.ErrNoSchedule
		},
	}, &fakeUpstream{}, ny, time.Minute, nil)

	slots, err := svc.Slots(context.Background(), time.Date(2026, 1, 5, 12, 0, 0, 0, ny), domain.StoreZone, nil, 15)
	if err != nil {
		t.Fatalf("Slots error: %v", err)
	}
	if slots == nil || len(slots) != 0 {
		t.Fatalf("slots = %v, want empty non-nil", slots)
	}
}

func TestServiceSlots_RejectsBadInterval(t *testing.T) {
	svc := NewService(&fakeRepo{}, &fakeUpstream{}, newYork(t), time.Minute, nil)

	_, err := svc.Slots(context.Background(), time.Now(), domain.StoreZone, nil, 0)
	if err == nil {
		t.Fatalf("expected error")
	}
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
}

func TestServiceRefresh_PersistsValidatedSnapshot(t *testing.T) {
	var persisted *store.Snapshot
	svc := NewService(&fakeRepo{
		replaceFn: func(ctx context.Context, snap store.Snapshot) error {
			persisted = &snap
			return nil
		},
	}, &fakeUpstream{
		hoursFn: func(ctx context.Context) ([]domain.StoreHours, error) {
			return []domain.StoreHours{
				{ID: "h1", DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00", IsOpen: true},
			}, nil
		},
		overridesFn: func(ctx context.Context) ([]domain.StoreOverride, error) {
			return []domain.StoreOverride{
				{ID: "o1", Month: 12, Day: 25, StartTime: "00:00", EndTime: "00:00", IsOpen: false},
			}, nil
		},
	}, newYork(t), time.Minute, nil)

	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	if persisted == nil {
		t.Fatalf("expected snapshot to be persisted")
	}
	if len(persisted.Hours) != 1 || len(persisted.Overrides) != 1 {
		t.Fatalf("persisted sizes = (%d, %d), want (1, 1)", len(persisted.Hours), len(persisted.Overrides))
	}
}

func TestServiceRefresh_RejectsMalformedRows(t *testing.T) {
	tests := []struct {
		name  string
		hours []domain.StoreHours
	}{
		{
			name: "day of week out of range",
			hours: []domain.StoreHours{
				{ID: "h1", DayOfWeek: 9, StartTime: "09:00", EndTime: "17:00", IsOpen: true},
			},
		},
		{
			name: "malformed start time",
			hours: []domain.StoreHours{
				{ID: "h1", DayOfWeek: 1, StartTime: "9am", EndTime: "17:00", IsOpen: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			replaced := false
			svc := NewService(&fakeRepo{
				replaceFn: func(ctx context.Context, snap store.Snapshot) error {
					replaced = true
					return nil
				},
			}, &fakeUpstream{
				hoursFn: func(ctx context.Context) ([]domain.StoreHours, error) {
					return tt.hours, nil
				},
				overridesFn: func(ctx context.Context) ([]domain.StoreOverride, error) {
					return []domain.StoreOverride{}, nil
				},
			}, newYork(t), time.Minute, nil)

			err := svc.Refresh(context.Background())
			if err == nil {
				t.Fatalf("expected error")
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("error type = %T, want *ValidationError", err)
			}
			if replaced {
				t.Fatalf("snapshot must not be persisted on validation failure")
			}
		})
	}
}

func TestServiceRefresh_InvalidatesCache(t *testing.T) {
	ny := newYork(t)
	gets := 0
	svc := NewService(&fakeRepo{
		getFn: func(ctx context.Context) (store.Snapshot, error) {
			gets++
			return mondaySnapshot(), nil
		},
		replaceFn: func(ctx context.Context, snap store.Snapshot) error { return nil },
	}, &fakeUpstream{
		hoursFn: func(ctx context.Context) ([]domain.StoreHours, error) {
			return []domain.StoreHours{
				{ID: "h1", DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00", IsOpen: true},
			}, nil
		},
		overridesFn: func(ctx context.Context) ([]domain.StoreOverride, error) {
			return []domain.StoreOverride{}, nil
		},
	}, ny, time.Minute, nil)

	now := time.Date(2026, 1, 5, 10, 0, 0, 0, ny)
	if _, err := svc.Status(context.Background(), now); err != nil {
		t.Fatalf("Status error: %v", err)
	}
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	if _, err := svc.Status(context.Background(), now); err != nil {
		t.Fatalf("Status error: %v", err)
	}
	if gets != 2 {
		t.Fatalf("repo reads = %d, want 2 after cache invalidation", gets)
	}
}

func TestServiceGreeting_UsesSelection(t *testing.T) {
	ny := newYork(t)
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("LoadLocation error: %v", err)
	}
	svc := NewService(&fakeRepo{}, &fakeUpstream{}, ny, time.Minute, nil)

	now := time.Date(2026, 1, 5, 8, 0, 0, 0, ny)
	if got := svc.Greeting(now, domain.StoreZone, tokyo); got != "Good Morning" {
		t.Fatalf("store-zone greeting = %q, want %q", got, "Good Morning")
	}
	if got := svc.Greeting(now, domain.DisplayZone, tokyo); got != "Night Owl" {
		t.Fatalf("display-zone greeting = %q, want %q", got, "Night Owl")
	}
}
