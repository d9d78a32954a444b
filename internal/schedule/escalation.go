package schedule

import (
	"strings"
	"time"
)

// Profile names a reminder escalation policy. Values are canonical; loose
// user input is resolved once, at the edit boundary, via NormalizeProfile.
type Profile string

const (
	// ProfileCatchup never nags during the day; missed occurrences are
	// reconciled by the next-day digest instead.
	ProfileCatchup    Profile = "catchup"
	ProfileNagGentle  Profile = "nag_gentle"
	ProfileNagNormal  Profile = "nag_normal"
	ProfileNagAggress Profile = "nag_aggressive"
	ProfileNagDaily   Profile = "nag_daily"
)

// MaxNagSends caps consecutive unconfirmed deliveries; after the cap the
// scheduler disables reminders for the entity instead of escalating further.
const MaxNagSends = 5

// MinNagInterval is the global floor on escalation intervals. It wins over
// table entries below it (anti-spam; the nag_normal tail is 15 on purpose
// in the table but clamps to 30 here).
const MinNagInterval = 30 * time.Minute

// escalationTables holds per-profile retry intervals in minutes, indexed by
// min(level, 4).
var escalationTables = map[Profile][5]int{
	ProfileCatchup:    {1440, 1440, 1440, 1440, 1440},
	ProfileNagGentle:  {720, 360, 360, 360, 360},
	ProfileNagNormal:  {240, 120, 60, 30, 15},
	ProfileNagAggress: {60, 30, 15, 10, 5},
	ProfileNagDaily:   {1440, 1440, 1440, 1440, 1440},
}

var profileAliases = map[string]Profile{
	"catchup":        ProfileCatchup,
	"quiet":          ProfileCatchup,
	"gentle":         ProfileNagGentle,
	"nag_gentle":     ProfileNagGentle,
	"normal":         ProfileNagNormal,
	"nag_normal":     ProfileNagNormal,
	"aggressive":     ProfileNagAggress,
	"nag_aggressive": ProfileNagAggress,
	"daily":          ProfileNagDaily,
	"nag_daily":      ProfileNagDaily,
}

// NormalizeProfile resolves a loose profile name to a canonical Profile.
// Unknown names fall back to catchup, the profile that never nags; a typo
// must not turn into unsolicited escalation.
func NormalizeProfile(name string) Profile {
	if p, ok := profileAliases[normalizeKey(name)]; ok {
		return p
	}
	return ProfileCatchup
}

// Nags reports whether the profile escalates during the day. catchup and
// nag_daily both sit out the escalation path.
func (p Profile) Nags() bool {
	return p != ProfileCatchup && p != ProfileNagDaily
}

// NextInterval returns the wait before the next reminder for the given
// escalation level. Levels beyond the table clamp to the last entry and the
// result never drops below MinNagInterval.
func NextInterval(profile Profile, level int) time.Duration {
	table, ok := escalationTables[profile]
	if !ok {
		table = escalationTables[ProfileCatchup]
	}
	idx := level
	if idx < 0 {
		idx = 0
	}
	if idx > len(table)-1 {
		idx = len(table) - 1
	}
	interval := time.Duration(table[idx]) * time.Minute
	if interval < MinNagInterval {
		interval = MinNagInterval
	}
	return interval
}

func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}
