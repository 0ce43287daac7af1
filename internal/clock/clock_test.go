package clock

import (
	"testing"
	"time"
)

func TestLocationFallsBackToUTC(t *testing.T) {
	if loc := Location("Not/AZone"); loc != time.UTC {
		t.Errorf("invalid tz resolved to %v, want UTC", loc)
	}
	if loc := Location(""); loc != time.UTC {
		t.Errorf("empty tz resolved to %v, want UTC", loc)
	}
	if loc := Location("Europe/Sofia"); loc.String() != "Europe/Sofia" {
		t.Errorf("valid tz resolved to %v", loc)
	}
}

func TestAtCrossesDateBoundary(t *testing.T) {
	// 2026-03-07 02:00 UTC is still 2026-03-06 evening in New York.
	instant := time.Date(2026, 3, 7, 2, 0, 0, 0, time.UTC)

	ny := At(instant, "America/New_York")
	if ny.Date != "2026-03-06" {
		t.Errorf("NY date = %s, want 2026-03-06", ny.Date)
	}
	if ny.Hour != 21 {
		t.Errorf("NY hour = %d, want 21", ny.Hour)
	}
	if ny.IsWeekend {
		t.Error("Friday evening flagged as weekend")
	}

	utc := At(instant, "UTC")
	if utc.Date != "2026-03-07" {
		t.Errorf("UTC date = %s, want 2026-03-07", utc.Date)
	}
	if !utc.IsWeekend {
		t.Error("Saturday not flagged as weekend")
	}
}

func TestPhaseForHour(t *testing.T) {
	cases := []struct {
		hour int
		want Phase
	}{
		{0, PhaseNight},
		{4, PhaseNight},
		{5, PhaseMorning},
		{10, PhaseMorning},
		{11, PhaseMidday},
		{13, PhaseMidday},
		{14, PhaseAfternoon},
		{17, PhaseAfternoon},
		{18, PhaseEvening},
		{21, PhaseEvening},
		{22, PhaseNight},
		{23, PhaseNight},
	}

	for _, tc := range cases {
		if got := PhaseForHour(tc.hour); got != tc.want {
			t.Errorf("PhaseForHour(%d) = %s, want %s", tc.hour, got, tc.want)
		}
	}
}

func TestWeekKey(t *testing.T) {
	// 2026-01-01 is a Thursday in ISO week 1.
	key, err := WeekKey("2026-01-01")
	if err != nil {
		t.Fatal(err)
	}
	if key != "2026-W01" {
		t.Errorf("week key = %s, want 2026-W01", key)
	}

	// Sunday belongs to the same ISO week as the preceding Monday.
	keySun, err := WeekKey("2026-03-08")
	if err != nil {
		t.Fatal(err)
	}
	keyMon, err := WeekKey("2026-03-02")
	if err != nil {
		t.Fatal(err)
	}
	if keySun != keyMon {
		t.Errorf("Sunday week %s != Monday week %s", keySun, keyMon)
	}

	if _, err := WeekKey("not-a-date"); err == nil {
		t.Error("malformed date accepted")
	}
}

func TestWeekDates(t *testing.T) {
	days, err := WeekDates("2026-03-08") // a Sunday
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 7 {
		t.Fatalf("got %d days", len(days))
	}
	if days[0] != "2026-03-02" {
		t.Errorf("week starts %s, want 2026-03-02", days[0])
	}
	if days[6] != "2026-03-08" {
		t.Errorf("week ends %s, want 2026-03-08", days[6])
	}
}

func TestWeekSpan(t *testing.T) {
	// ISO week 1 of 2026 starts in December 2025.
	days, err := WeekSpan("2026-W01")
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 7 {
		t.Fatalf("got %d days", len(days))
	}
	if days[0] != "2025-12-29" {
		t.Errorf("week starts %s, want 2025-12-29", days[0])
	}
	if days[6] != "2026-01-04" {
		t.Errorf("week ends %s, want 2026-01-04", days[6])
	}

	// Round trip: every day of a span maps back to the span's key.
	days, err = WeekSpan("2026-W11")
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range days {
		key, err := WeekKey(d)
		if err != nil {
			t.Fatal(err)
		}
		if key != "2026-W11" {
			t.Errorf("WeekKey(%s) = %s, want 2026-W11", d, key)
		}
	}

	if _, err := WeekSpan("garbage"); err == nil {
		t.Error("malformed week key accepted")
	}
	if _, err := WeekSpan("2026-W60"); err == nil {
		t.Error("out-of-range week accepted")
	}
}

func TestPreviousDate(t *testing.T) {
	prev, err := PreviousDate("2026-03-01")
	if err != nil {
		t.Fatal(err)
	}
	if prev != "2026-02-28" {
		t.Errorf("previous = %s, want 2026-02-28", prev)
	}
}
