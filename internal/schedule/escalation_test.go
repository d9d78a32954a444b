package schedule

import (
	"testing"
	"time"
)

func TestNextIntervalTables(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		profile Profile
		level   int
		want    time.Duration
	}{
		{name: "gentle first", profile: ProfileNagGentle, level: 0, want: 720 * time.Minute},
		{name: "gentle tail", profile: ProfileNagGentle, level: 4, want: 360 * time.Minute},
		{name: "normal level0", profile: ProfileNagNormal, level: 0, want: 240 * time.Minute},
		{name: "normal level1", profile: ProfileNagNormal, level: 1, want: 120 * time.Minute},
		{name: "normal level2", profile: ProfileNagNormal, level: 2, want: 60 * time.Minute},
		{name: "normal level3", profile: ProfileNagNormal, level: 3, want: 30 * time.Minute},
		{name: "normal level4 floor wins over table", profile: ProfileNagNormal, level: 4, want: 30 * time.Minute},
		{name: "normal clamps past table", profile: ProfileNagNormal, level: 9, want: 30 * time.Minute},
		{name: "aggressive floor", profile: ProfileNagAggress, level: 4, want: 30 * time.Minute},
		{name: "aggressive level0", profile: ProfileNagAggress, level: 0, want: 60 * time.Minute},
		{name: "catchup is daily", profile: ProfileCatchup, level: 2, want: 1440 * time.Minute},
		{name: "nag_daily is daily", profile: ProfileNagDaily, level: 0, want: 1440 * time.Minute},
		{name: "unknown profile acts as catchup", profile: Profile("bogus_profile"), level: 2, want: 1440 * time.Minute},
		{name: "negative level clamps to first", profile: ProfileNagNormal, level: -3, want: 240 * time.Minute},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := NextInterval(tt.profile, tt.level); got != tt.want {
				t.Fatalf("NextInterval(%s, %d) = %v, want %v", tt.profile, tt.level, got, tt.want)
			}
		})
	}
}

func TestNormalizeProfile(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want Profile
	}{
		{in: "catchup", want: ProfileCatchup},
		{in: "quiet", want: ProfileCatchup},
		{in: "gentle", want: ProfileNagGentle},
		{in: "NAG_GENTLE", want: ProfileNagGentle},
		{in: "nag-aggressive", want: ProfileNagAggress},
		{in: " normal ", want: ProfileNagNormal},
		{in: "daily", want: ProfileNagDaily},
		{in: "whatever", want: ProfileCatchup},
		{in: "", want: ProfileCatchup},
	}
	for _, tt := range tests {
		if got := NormalizeProfile(tt.in); got != tt.want {
			t.Fatalf("NormalizeProfile(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestProfileNags(t *testing.T) {
	t.Parallel()
	if ProfileCatchup.Nags() || ProfileNagDaily.Nags() {
		t.Fatal("catchup/nag_daily must not escalate")
	}
	if !ProfileNagGentle.Nags() || !ProfileNagNormal.Nags() || !ProfileNagAggress.Nags() {
		t.Fatal("nag_* profiles must escalate")
	}
}
