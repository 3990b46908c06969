package domain

import "time"

// Greeting buckets the hour of day in loc into the salutation the
// booking client shows on its home screen.
func Greeting(now time.Time, loc *time.Location) string {
	switch hour := now.In(loc).Hour(); {
	case hour >= 5 && hour < 10:
		return "Good Morning"
	case hour >= 10 && hour < 12:
		return "Late Morning Vibes"
	case hour >= 12 && hour < 17:
		return "Good Afternoon"
	case hour >= 17 && hour < 21:
		return "Good Evening"
	default:
		return "Night Owl"
	}
}
