package schedule

import (
	"reflect"
	"testing"
)

func TestParseDaysVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		spec string
		want []Weekday
	}{
		{name: "names", spec: "mon,wed,fri", want: []Weekday{Monday, Wednesday, Friday}},
		{name: "full names", spec: "monday, thursday", want: []Weekday{Monday, Thursday}},
		{name: "range", spec: "tue-thu", want: []Weekday{Tuesday, Wednesday, Thursday}},
		{name: "wraparound range", spec: "fri-mon", want: []Weekday{Monday, Friday, Saturday, Sunday}},
		{name: "daily", spec: "daily", want: EveryDay()},
		{name: "weekdays", spec: "weekdays", want: Weekdays()},
		{name: "weekends", spec: "weekends", want: []Weekday{Saturday, Sunday}},
		{name: "mon-fri keyword", spec: "mon-fri", want: Weekdays()},
		{name: "numeric range 1-based", spec: "1-5", want: Weekdays()},
		{name: "numeric singles 0-based", spec: "0,2,4", want: []Weekday{Monday, Wednesday, Friday}},
		{name: "numeric seven is sunday", spec: "7", want: []Weekday{Sunday}},
		{name: "dedup and sort", spec: "fri,mon,fri", want: []Weekday{Monday, Friday}},
		{name: "mixed junk kept parseable parts", spec: "mon,bogus,fri", want: []Weekday{Monday, Friday}},
		{name: "empty falls back", spec: "", want: Weekdays()},
		{name: "junk falls back", spec: "nope nope", want: Weekdays()},
		{name: "whitespace separated", spec: "sat sun", want: []Weekday{Saturday, Sunday}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDays(tt.spec)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ParseDays(%q) = %v, want %v", tt.spec, got, tt.want)
			}
		})
	}
}

func TestWeekdayTimeConversion(t *testing.T) {
	t.Parallel()
	for d := Monday; d <= Sunday; d++ {
		if got := FromTime(d.ToTime()); got != d {
			t.Fatalf("FromTime(ToTime(%v)) = %v", d, got)
		}
	}
}

func TestFormatDays(t *testing.T) {
	t.Parallel()
	if got := FormatDays([]Weekday{Friday, Monday}); got != "Mon,Fri" {
		t.Fatalf("FormatDays = %q", got)
	}
}
