package domain

import (
	"errors"
	"fmt"
)

var ErrInvalidClock = errors.New("invalid clock time")

// Clock is a civil wall-clock time of day with minute precision. It has
// no date and no zone; anchoring it to an instant requires both.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses a strict 24-hour "HH:MM" string. Anything else,
// including single-digit hours or out-of-range fields, is an error:
// schedule rows with malformed times must fail loudly rather than be
// coerced into a wrong-but-plausible time.
func ParseClock(s string) (Clock, error) {
	if len(s) != 5 || s[2] != ':' {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	for _, i := range [4]int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
		}
	}
	hour := int(s[0]-'0')*10 + int(s[1]-'0')
	minute := int(s[3]-'0')*10 + int(s[4]-'0')
	if hour > 23 || minute > 59 {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return Clock{Hour: hour, Minute: minute}, nil
}

// MinuteOfDay orders clocks within a single day.
func (c Clock) MinuteOfDay() int {
	return c.Hour*60 + c.Minute
}

func (c Clock) Before(o Clock) bool {
	return c.MinuteOfDay() < o.MinuteOfDay()
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}
