package scheduling

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format accepted for slot lookups.
const DateLayout = "2006-01-02"

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Clock is a wall-clock time of day in minutes after midnight.
type Clock int

// ParseClock parses a strict "HH:MM" string in the range 00:00-23:59.
func ParseClock(raw string) (Clock, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil || len(strings.TrimSpace(raw)) != 5 {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", raw)
	}
	return Clock(t.Hour()*60 + t.Minute()), nil
}

// String renders the clock as HH:MM.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// On anchors the clock on the calendar day of date, in date's location.
func (c Clock) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, int(c)/60, int(c)%60, 0, 0, date.Location())
}

// NormalizeWeekday lowercases a weekday name and reports whether it is known.
func NormalizeWeekday(raw string) (string, bool) {
	name := strings.ToLower(strings.TrimSpace(raw))
	_, ok := weekdayNames[name]
	return name, ok
}

// WeekdayName returns the lowercase weekday name of t.
func WeekdayName(t time.Time) string {
	return strings.ToLower(t.Weekday().String())
}

// DayBounds returns [start of day, start of next day) for date in loc.
func DayBounds(date time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// ParseDateIn parses a YYYY-MM-DD date as midnight in loc.
func ParseDateIn(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(DateLayout, strings.TrimSpace(raw), loc)
}
