package domain

import (
	"sort"
	"time"
)

type RuleKind int

const (
	// RuleWeekly applies the weekday's recurring rows (possibly none).
	RuleWeekly RuleKind = iota
	// RuleOverrideOpen replaces the weekly rows with the override's
	// single interval.
	RuleOverrideOpen
	// RuleOverrideClosed closes the store for the whole day.
	RuleOverrideClosed
)

// Interval is one operating span in civil store-zone time.
type Interval struct {
	Start Clock
	End   Clock
}

// Overnight reports whether the interval crosses local midnight.
func (iv Interval) Overnight() bool {
	return iv.End.Before(iv.Start)
}

// Bounds anchors the interval on day's calendar date in loc. Overnight
// intervals get their end pushed to the following calendar day.
func (iv Interval) Bounds(day time.Time, loc *time.Location) (start, end time.Time) {
	start = AtClock(day, iv.Start, loc)
	end = AtClock(day, iv.End, loc)
	if iv.Overnight() {
		end = end.AddDate(0, 0, 1)
	}
	return start, end
}

// DayRule is the schedule resolved for one calendar day.
type DayRule struct {
	Kind      RuleKind
	Intervals []Interval
}

// ResolveDay picks the rule governing the calendar day carried by day's
// civil fields. Callers project day into the zone whose calendar they
// mean before calling; open/closed evaluation uses the store zone while
// slot generation uses the caller's display zone.
//
// An override matching day's month and day wins outright: closed means
// closed regardless of weekly rows, open means the override interval is
// the whole schedule for that date. With no override, every open weekly
// row for the weekday applies.
func ResolveDay(day time.Time, hours []StoreHours, overrides []StoreOverride) (DayRule, error) {
	month, dom := int(day.Month()), day.Day()

	for _, ov := range overrides {
		if ov.Month != month || ov.Day != dom {
			continue
		}
		if !ov.IsOpen {
			return DayRule{Kind: RuleOverrideClosed}, nil
		}
		iv, err := parseInterval(ov.StartTime, ov.EndTime)
		if err != nil {
			return DayRule{}, err
		}
		return DayRule{Kind: RuleOverrideOpen, Intervals: []Interval{iv}}, nil
	}

	weekday := int(day.Weekday())
	var intervals []Interval
	for _, h := range hours {
		if h.DayOfWeek != weekday || !h.IsOpen {
			continue
		}
		iv, err := parseInterval(h.StartTime, h.EndTime)
		if err != nil {
			return DayRule{}, err
		}
		intervals = append(intervals, iv)
	}
	return DayRule{Kind: RuleWeekly, Intervals: intervals}, nil
}

func parseInterval(startTime, endTime string) (Interval, error) {
	start, err := ParseClock(startTime)
	if err != nil {
		return Interval{}, err
	}
	end, err := ParseClock(endTime)
	if err != nil {
		return Interval{}, err
	}
	return Interval{Start: start, End: end}, nil
}

// IsOpenAt reports whether the store is open at now. The closing bound
// is inclusive: a customer arriving exactly at closing time still sees
// the store open. Absent hours or overrides input means closed; the
// evaluator never claims open without confirmed data.
//
// An overnight interval keeps the store open past midnight, so the
// previous day's rule is consulted too: at 01:00 with 22:00-02:00 hours
// on the prior day the store is open.
func IsOpenAt(now time.Time, hours []StoreHours, overrides []StoreOverride, storeZone *time.Location) (bool, error) {
	if hours == nil || overrides == nil {
		return false, nil
	}

	local := now.In(storeZone)

	rule, err := ResolveDay(local, hours, overrides)
	if err != nil {
		return false, err
	}
	for _, iv := range rule.Intervals {
		start, end := iv.Bounds(local, storeZone)
		if !now.Before(start) && !now.After(end) {
			return true, nil
		}
	}

	yesterday := local.AddDate(0, 0, -1)
	rule, err = ResolveDay(yesterday, hours, overrides)
	if err != nil {
		return false, err
	}
	for _, iv := range rule.Intervals {
		if !iv.Overnight() {
			continue
		}
		start, end := iv.Bounds(yesterday, storeZone)
		if !now.Before(start) && !now.After(end) {
			return true, nil
		}
	}
	return false, nil
}

// NextOpening finds the soonest opening instant strictly after now,
// looking at today and the following six days. It returns false when no
// opening exists in that window; a store with hours only on today's
// weekday whose opening has already passed therefore reports none, since
// the scan stops one day short of the next occurrence.
//
// Overrides are consulted only for today: an open override whose start
// is still ahead answers immediately, but overrides on the following six
// days are ignored and those days fall back to their weekly rows. That
// asymmetry matches the shipped behavior and is kept deliberately.
func NextOpening(now time.Time, hours []StoreHours, overrides []StoreOverride, storeZone *time.Location) (time.Time, bool, error) {
	if hours == nil || overrides == nil {
		return time.Time{}, false, nil
	}

	local := now.In(storeZone)

	month, dom := int(local.Month()), local.Day()
	for _, ov := range overrides {
		if ov.Month != month || ov.Day != dom || !ov.IsOpen {
			continue
		}
		start, err := ParseClock(ov.StartTime)
		if err != nil {
			return time.Time{}, false, err
		}
		if opening := AtClock(local, start, storeZone); opening.After(now) {
			return opening, true, nil
		}
	}

	for i := 0; i < 7; i++ {
		day := local.AddDate(0, 0, i)
		weekday := int(day.Weekday())

		var starts []Clock
		for _, h := range hours {
			if h.DayOfWeek != weekday || !h.IsOpen {
				continue
			}
			start, err := ParseClock(h.StartTime)
			if err != nil {
				return time.Time{}, false, err
			}
			starts = append(starts, start)
		}
		sort.Slice(starts, func(a, b int) bool { return starts[a].Before(starts[b]) })

		for _, start := range starts {
			opening := AtClock(day, start, storeZone)
			if i == 0 && !opening.After(now) {
				continue
			}
			return opening, true, nil
		}
	}

	return time.Time{}, false, nil
}

// Slots enumerates bookable start instants on the calendar day that date
// falls on from the caller's perspective: date is projected into the
// selected zone first, so a date near a zone's midnight boundary
// resolves to the day the caller sees. Hours are authored in the store
// zone, so each interval is anchored there regardless of the selection.
//
// The walk is end-exclusive, unlike the open/closed check: the last
// bookable start must leave room for the interval before closing.
//
// When the display zone differs from the store zone, each emitted
// instant carries the store-zone wall-clock reading relabeled into the
// display zone rather than a true conversion of the instant. That
// matches the numbers the existing client shows and is kept pending
// product clarification.
//
// The result is not sorted across multiple disjoint intervals; callers
// sort before display. Absent hours or overrides input, or a step below
// one minute, yields no slots.
func Slots(date time.Time, hours []StoreHours, overrides []StoreOverride, zones Zones, sel ZoneSelection, intervalMinutes int) ([]time.Time, error) {
	if hours == nil || overrides == nil || intervalMinutes < 1 {
		return nil, nil
	}

	display := zones.In(sel)
	day := date.In(display)

	rule, err := ResolveDay(day, hours, overrides)
	if err != nil {
		return nil, err
	}

	sameZone := display.String() == zones.Store.String()
	step := time.Duration(intervalMinutes) * time.Minute

	var slots []time.Time
	for _, iv := range rule.Intervals {
		start, end := iv.Bounds(day, zones.Store)
		for t := start; t.Before(end); t = t.Add(step) {
			if sameZone {
				slots = append(slots, t)
			} else {
				slots = append(slots, Rezone(t, zones.Store, display))
			}
		}
	}
	return slots, nil
}
