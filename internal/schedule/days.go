package schedule

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Weekday numbers days with Monday = 0 through Sunday = 6, matching how
// schedules are stored. time.Weekday puts Sunday first, so convert at the
// boundary with FromTime/ToTime.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// Weekdays is Monday through Friday, the fallback for empty or unparseable
// day specs.
func Weekdays() []Weekday {
	return []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}
}

// EveryDay is the full week.
func EveryDay() []Weekday {
	return []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}
}

// FromTime converts a time.Weekday (Sunday=0) to a schedule Weekday (Monday=0).
func FromTime(d time.Weekday) Weekday {
	return Weekday((int(d) + 6) % 7)
}

// ToTime converts back to time.Weekday.
func (d Weekday) ToTime() time.Weekday {
	return time.Weekday((int(d) + 1) % 7)
}

func (d Weekday) String() string {
	names := [...]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
	if d < Monday || d > Sunday {
		return "???"
	}
	return names[d]
}

// FormatDays renders a day set as "Mon,Wed,Fri" for user-facing output.
func FormatDays(days []Weekday) string {
	parts := make([]string, 0, len(days))
	for _, d := range normalizeDays(days) {
		parts = append(parts, d.String())
	}
	return strings.Join(parts, ",")
}

var dayAliases = map[string]Weekday{
	"mon": Monday, "monday": Monday,
	"tue": Tuesday, "tues": Tuesday, "tuesday": Tuesday,
	"wed": Wednesday, "weds": Wednesday, "wednesday": Wednesday,
	"thu": Thursday, "thur": Thursday, "thurs": Thursday, "thursday": Thursday,
	"fri": Friday, "friday": Friday,
	"sat": Saturday, "saturday": Saturday,
	"sun": Sunday, "sunday": Sunday,
}

var daySplit = regexp.MustCompile(`[,\s]+`)

// ParseDays parses a user-supplied day spec into a sorted, deduplicated day
// set. Accepted forms: day names and 3-letter aliases, comma lists, inclusive
// ranges with wrap-around ("fri-mon"), the keywords "daily"/"weekdays"/
// "weekends", and numeric days in either 0-6 (Mon=0) or 1-7 (Mon=1) form.
// It never fails: unrecognized or empty input degrades to Mon-Fri.
func ParseDays(spec string) []Weekday {
	s := strings.ToLower(strings.TrimSpace(spec))
	if s == "" {
		return Weekdays()
	}
	// Normalize typographic dashes that chat clients like to substitute.
	s = strings.NewReplacer("–", "-", "—", "-").Replace(s)

	switch s {
	case "daily", "everyday", "all":
		return EveryDay()
	case "weekdays", "mon-fri", "m-f":
		return Weekdays()
	case "weekends", "sat-sun":
		return []Weekday{Saturday, Sunday}
	}

	var days []Weekday
	for _, part := range daySplit.Split(s, -1) {
		if part == "" {
			continue
		}
		if strings.Contains(part, "-") {
			days = append(days, parseDayRange(part)...)
			continue
		}
		if d, ok := dayAliases[part]; ok {
			days = append(days, d)
			continue
		}
		if d, ok := parseNumericDay(part); ok {
			days = append(days, d)
		}
	}

	days = normalizeDays(days)
	if len(days) == 0 {
		return Weekdays()
	}
	return days
}

// parseDayRange expands an inclusive range such as "tue-thu" or "fri-mon".
// Wrap-around ranges walk forward through the week end.
func parseDayRange(part string) []Weekday {
	bounds := strings.SplitN(part, "-", 2)
	start, okA := dayAliases[strings.TrimSpace(bounds[0])]
	end, okB := dayAliases[strings.TrimSpace(bounds[1])]
	if !okA || !okB {
		start, okA = parseRangeBound(strings.TrimSpace(bounds[0]))
		end, okB = parseRangeBound(strings.TrimSpace(bounds[1]))
		if !okA || !okB {
			return nil
		}
	}

	var days []Weekday
	cur := start
	for i := 0; i < 7; i++ {
		days = append(days, cur)
		if cur == end {
			break
		}
		cur = (cur + 1) % 7
	}
	return days
}

// parseRangeBound reads a numeric range endpoint. Range endpoints use the
// 1-7 convention (1=Mon) where it applies, so "1-5" means Mon-Fri; a bare 0
// is still accepted as Monday.
func parseRangeBound(s string) (Weekday, bool) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	if n >= 1 && n <= 7 {
		n--
	}
	if n < 0 || n > 6 {
		return 0, false
	}
	return Weekday(n), true
}

// parseNumericDay accepts both numbering conventions: 0-6 with Mon=0, and
// 1-7 with Mon=1. The 0-6 reading wins where they overlap.
func parseNumericDay(s string) (Weekday, bool) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	switch {
	case n >= 0 && n <= 6:
		return Weekday(n), true
	case n == 7:
		return Sunday, true
	default:
		return 0, false
	}
}

func normalizeDays(days []Weekday) []Weekday {
	seen := make(map[Weekday]bool, len(days))
	var out []Weekday
	for _, d := range days {
		if d < Monday || d > Sunday || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
