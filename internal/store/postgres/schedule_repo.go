package postgres

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"

	"storehours/internal/domain"
	"storehours/internal/store"
)

// ScheduleRepo persists the upstream schedule as a whole-table snapshot.
// Rows are never edited in place; each refresh replaces everything.
type ScheduleRepo struct {
	db *bun.DB
}

func NewScheduleRepo(db *bun.DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

func (r *ScheduleRepo) Replace(ctx context.Context, snap store.Snapshot) error {
	return r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*domain.StoreHours)(nil)).Where("TRUE").Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*domain.StoreOverride)(nil)).Where("TRUE").Exec(ctx); err != nil {
			return err
		}

		if len(snap.Hours) > 0 {
			hours := snap.Hours
			if _, err := tx.NewInsert().Model(&hours).Exec(ctx); err != nil {
				return err
			}
		}
		if len(snap.Overrides) > 0 {
			overrides := snap.Overrides
			if _, err := tx.NewInsert().Model(&overrides).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ScheduleRepo) Get(ctx context.Context) (store.Snapshot, error) {
	var hours []domain.StoreHours
	err := r.db.NewSelect().
		Model(&hours).
		OrderExpr("day_of_week ASC, start_time ASC").
		Scan(ctx)
	if err != nil {
		return store.Snapshot{}, err
	}

	// A store with zero weekly rows has no usable snapshot; readers
	// treat that the same as never having fetched (fail closed).
	if len(hours) == 0 {
		return store.Snapshot{}, store.ErrNoSchedule
	}

	var overrides []domain.StoreOverride
	err = r.db.NewSelect().
		Model(&overrides).
		OrderExpr("month ASC, day ASC").
		Scan(ctx)
	if err != nil {
		return store.Snapshot{}, err
	}
	if overrides == nil {
		overrides = []domain.StoreOverride{}
	}

	return store.Snapshot{Hours: hours, Overrides: overrides}, nil
}
