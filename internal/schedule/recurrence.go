package schedule

import "time"

// NextDue computes the next UTC instant at which a weekly schedule fires:
// the earliest local time strictly after nowUTC whose weekday is in days and
// whose wall-clock time equals dueLocal. An empty day set means weekdays.
//
// The conversion goes through loc so daylight-saving transitions move the
// UTC instant while the local wall-clock time stays fixed. Calling NextDue
// again with nowUTC equal to a previous result yields the following
// occurrence, never the same one.
func NextDue(days []Weekday, dueLocal TimeOfDay, loc *time.Location, nowUTC time.Time) time.Time {
	set := make(map[Weekday]bool, len(days))
	for _, d := range normalizeDays(days) {
		set[d] = true
	}
	if len(set) == 0 {
		for _, d := range Weekdays() {
			set[d] = true
		}
	}

	nowLocal := nowUTC.In(loc)

	// Today counts only while the due time is still ahead of us.
	if set[FromTime(nowLocal.Weekday())] {
		todayDue := atTime(nowLocal, dueLocal, loc)
		if nowLocal.Before(todayDue) {
			return todayDue.UTC()
		}
	}

	for add := 1; add <= 7; add++ {
		candidate := nowLocal.AddDate(0, 0, add)
		if set[FromTime(candidate.Weekday())] {
			return atTime(candidate, dueLocal, loc).UTC()
		}
	}

	// Unreachable with a non-empty set; keep the scheduler moving anyway.
	return nowUTC.Add(24 * time.Hour)
}

// atTime pins a wall-clock time onto the calendar date of ref within loc.
func atTime(ref time.Time, t TimeOfDay, loc *time.Location) time.Time {
	return time.Date(ref.Year(), ref.Month(), ref.Day(), t.Hour, t.Minute, 0, 0, loc)
}

// DayBounds returns the UTC half-open interval [start, end) covering the
// given local calendar date in loc. Used to answer "was there a check-in on
// local day X" without leaving UTC storage.
func DayBounds(year int, month time.Month, day int, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, month, day, 0, 0, 0, 0, loc)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}
