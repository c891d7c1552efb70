package analytics

import (
	"errors"
	"fmt"
	"time"
)

const secondsPerDay = 24 * 60 * 60

// DateLayout is the calendar-day format accepted for range boundaries.
const DateLayout = "2006-01-02"

var (
	ErrInvalidRange  = errors.New("invalid date range")
	ErrUnknownPreset = errors.New("unknown range preset")
)

// Presets maps preset names to their length in days. "all" approximates the
// whole deployment history.
var Presets = map[string]int{
	"7d":  7,
	"30d": 30,
	"90d": 90,
	"all": 3650,
}

// DefaultPreset is used when a range request names neither dates nor a preset.
const DefaultPreset = "30d"

// DayRange is an inclusive range of UTC calendar days.
type DayRange struct {
	Start time.Time
	End   time.Time
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NewDayRange truncates start and end to their UTC days.
func NewDayRange(start, end time.Time) (DayRange, error) {
	r := DayRange{Start: startOfDay(start), End: startOfDay(end)}
	if r.End.Before(r.Start) {
		return DayRange{}, fmt.Errorf("%w: end %s before start %s", ErrInvalidRange, r.End.Format(DateLayout), r.Start.Format(DateLayout))
	}
	return r, nil
}

// ParseDayRange parses two YYYY-MM-DD dates.
func ParseDayRange(start, end string) (DayRange, error) {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return DayRange{}, fmt.Errorf("%w: start: %v", ErrInvalidRange, err)
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return DayRange{}, fmt.Errorf("%w: end: %v", ErrInvalidRange, err)
	}
	return NewDayRange(s, e)
}

// Preset returns the range ending on the day of now and starting the given number of days earlier.
func Preset(name string, now time.Time) (DayRange, error) {
	days, ok := Presets[name]
	if !ok {
		return DayRange{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	end := startOfDay(now)
	return DayRange{Start: end.AddDate(0, 0, -days), End: end}, nil
}

// Bounds returns the unix seconds of the first day's start (inclusive) and of
// the day after the last day (exclusive).
func (r DayRange) Bounds() (start, endExclusive int64) {
	return startOfDay(r.Start).Unix(), startOfDay(r.End).Unix() + secondsPerDay
}

// Contains reports whether the day starting at ts falls inside the range.
func (r DayRange) Contains(ts int64) bool {
	start, end := r.Bounds()
	return ts >= start && ts < end
}

// Days is the number of calendar days covered.
func (r DayRange) Days() int {
	start, end := r.Bounds()
	return int((end - start) / secondsPerDay)
}
