package clock

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// Phase is the coarse slice of a user's local day, derived purely from the
// wall-clock hour.
type Phase string

const (
	PhaseMorning   Phase = "morning"
	PhaseMidday    Phase = "midday"
	PhaseAfternoon Phase = "afternoon"
	PhaseEvening   Phase = "evening"
	PhaseNight     Phase = "night"

	// PhaseClosed is terminal: it is reported once the day's close
	// timestamp is set, regardless of the hour.
	PhaseClosed Phase = "closed"
)

// LocalTime is a snapshot of "now" in a user's timezone.
type LocalTime struct {
	Date      string
	Hour      int
	Minute    int
	Weekday   time.Weekday
	IsWeekend bool
}

// Location resolves an IANA timezone name. Invalid or empty names fall back
// to UTC rather than erroring; a bad stored timezone must never break the
// day cycle.
func Location(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

// At projects the given instant into the user's timezone.
func At(t time.Time, tz string) LocalTime {
	local := t.In(Location(tz))
	wd := local.Weekday()
	return LocalTime{
		Date:      local.Format(DateLayout),
		Hour:      local.Hour(),
		Minute:    local.Minute(),
		Weekday:   wd,
		IsWeekend: wd == time.Saturday || wd == time.Sunday,
	}
}

// Now is At for the current instant.
func Now(tz string) LocalTime {
	return At(time.Now(), tz)
}

// PhaseForHour maps a local hour to the day phase.
func PhaseForHour(hour int) Phase {
	switch {
	case hour >= 5 && hour < 11:
		return PhaseMorning
	case hour >= 11 && hour < 14:
		return PhaseMidday
	case hour >= 14 && hour < 18:
		return PhaseAfternoon
	case hour >= 18 && hour < 22:
		return PhaseEvening
	default:
		return PhaseNight
	}
}

// WeekKey returns the ISO week period key (e.g. "2026-W09") for a local date
// string.
func WeekKey(date string) (string, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", fmt.Errorf("failed to parse date %q: %w", date, err)
	}
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week), nil
}

// WeekDates lists the seven local date strings of the ISO week containing
// date, Monday first.
func WeekDates(date string) ([]string, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("failed to parse date %q: %w", date, err)
	}
	// Walk back to Monday.
	offset := (int(t.Weekday()) + 6) % 7
	monday := t.AddDate(0, 0, -offset)

	days := make([]string, 7)
	for i := 0; i < 7; i++ {
		days[i] = monday.AddDate(0, 0, i).Format(DateLayout)
	}
	return days, nil
}

// WeekSpan lists the seven local date strings of the ISO week named by a
// period key (e.g. "2026-W09"), Monday first. The inverse of WeekKey, so a
// week instance's scan window always comes from its own key rather than
// from whatever week "now" happens to fall in.
func WeekSpan(key string) ([]string, error) {
	var year, week int
	if _, err := fmt.Sscanf(key, "%d-W%d", &year, &week); err != nil {
		return nil, fmt.Errorf("failed to parse week key %q: %w", key, err)
	}
	if week < 1 || week > 53 {
		return nil, fmt.Errorf("week key %q out of range", key)
	}

	// January 4th always falls inside ISO week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	monday := jan4.AddDate(0, 0, -offset+(week-1)*7)

	days := make([]string, 7)
	for i := 0; i < 7; i++ {
		days[i] = monday.AddDate(0, 0, i).Format(DateLayout)
	}
	return days, nil
}

// PreviousDate returns the calendar day before a local date string.
func PreviousDate(date string) (string, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", fmt.Errorf("failed to parse date %q: %w", date, err)
	}
	return t.AddDate(0, 0, -1).Format(DateLayout), nil
}
