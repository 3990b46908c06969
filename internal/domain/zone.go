package domain

import "time"

// ZoneSelection names which of the two reference frames a caller wants
// results expressed in. It replaces the boolean "is store timezone"
// toggle the mobile client persisted globally.
type ZoneSelection int

const (
	// StoreZone is the fixed zone hours and overrides are authored in.
	StoreZone ZoneSelection = iota
	// DisplayZone is the caller-selected output zone.
	DisplayZone
)

// Zones carries the store's operating zone and the caller's display
// zone together so both frames are explicit at every call site.
type Zones struct {
	Store   *time.Location
	Display *time.Location
}

// In returns the location for a selection. A DisplayZone selection with
// no display location falls back to the store zone.
func (z Zones) In(sel ZoneSelection) *time.Location {
	if sel == DisplayZone && z.Display != nil {
		return z.Display
	}
	return z.Store
}

// AtClock anchors a wall-clock reading on day's calendar date as
// observed in loc, producing an absolute instant. day only contributes
// its civil year/month/day fields; callers project it into the zone
// whose calendar they mean before calling.
func AtClock(day time.Time, c Clock, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, 0, 0, loc)
}

// Rezone reinterprets t's civil fields as observed in from as the same
// wall-clock reading in to. This is not an absolute-time-preserving
// conversion: the result keeps the numbers on the clock face and swaps
// the zone label, shifting the underlying instant by the zones' offset
// difference. Readings that are skipped or repeated at a DST transition
// in to resolve the way time.Date resolves them.
func Rezone(t time.Time, from, to *time.Location) time.Time {
	ft := t.In(from)
	return time.Date(ft.Year(), ft.Month(), ft.Day(), ft.Hour(), ft.Minute(), ft.Second(), ft.Nanosecond(), to)
}
