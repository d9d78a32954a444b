package schedule

// Suppressed reports whether now falls inside the quiet window [start, end).
// The window is half-open so a reminder lands the minute the window closes.
// start > end means the window crosses midnight (e.g. 22:00-07:00).
// start == end means DND is off.
func Suppressed(now, start, end TimeOfDay) bool {
	switch {
	case start == end:
		return false
	case start.Before(end):
		return !now.Before(start) && now.Before(end)
	default:
		return !now.Before(start) || now.Before(end)
	}
}
