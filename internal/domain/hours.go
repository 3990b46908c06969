package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// StoreHours is one recurring opening interval for a weekday. A weekday
// may have zero, one, or several disjoint rows. Times are civil "HH:MM"
// strings authored in the store's operating zone; an EndTime earlier
// than StartTime means the interval runs past local midnight.
type StoreHours struct {
	bun.BaseModel `bun:"table:store_hours"`

	ID        string    `bun:"id,pk" json:"id"`
	DayOfWeek int       `bun:"day_of_week,notnull" json:"day_of_week" validate:"min=0,max=6"`
	StartTime string    `bun:"start_time,notnull" json:"start_time" validate:"required"`
	EndTime   string    `bun:"end_time,notnull" json:"end_time" validate:"required"`
	IsOpen    bool      `bun:"is_open,notnull" json:"is_open"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"-"`
}

func (h *StoreHours) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok {
		if h.ID == "" {
			h.ID = uuid.NewString()
		}
		if h.CreatedAt.IsZero() {
			h.CreatedAt = time.Now().UTC()
		}
	}
	return nil
}

// StoreOverride is a date-specific exception, matched by month/day in
// the store zone and therefore recurring every year. A closed override
// closes the store for the whole day; an open override's interval fully
// replaces the weekly rows for that date.
type StoreOverride struct {
	bun.BaseModel `bun:"table:store_overrides"`

	ID        string    `bun:"id,pk" json:"id"`
	Month     int       `bun:"month,notnull" json:"month" validate:"min=1,max=12"`
	Day       int       `bun:"day,notnull" json:"day" validate:"min=1,max=31"`
	StartTime string    `bun:"start_time,notnull" json:"start_time" validate:"required"`
	EndTime   string    `bun:"end_time,notnull" json:"end_time" validate:"required"`
	IsOpen    bool      `bun:"is_open,notnull" json:"is_open"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"-"`
}

func (o *StoreOverride) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok {
		if o.ID == "" {
			o.ID = uuid.NewString()
		}
		if o.CreatedAt.IsZero() {
			o.CreatedAt = time.Now().UTC()
		}
	}
	return nil
}
