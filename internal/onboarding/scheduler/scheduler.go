// Package scheduler turns relative day offsets into absolute, business-day
// adjusted meeting and send timestamps.
//
// The same function backs the wizard preview and the server-side
// recomputation at send time, so both always agree.
package scheduler

import (
	"fmt"
	"time"
)

// SendHour is the local hour every computed timestamp is pinned to.
const SendHour = 9

// Compute returns one timestamp per delay, in input order. Each delay is a
// calendar-day offset from the calendar day of start; the result is moved to
// the following Monday when it falls on a weekend and pinned to SendHour in
// start's location.
func Compute(start time.Time, delays []int) ([]time.Time, error) {
	out := make([]time.Time, 0, len(delays))
	for i, d := range delays {
		if d < 0 {
			return nil, fmt.Errorf("delay at index %d is negative: %d", i, d)
		}
		out = append(out, At(start, d))
	}
	return out, nil
}

// At computes a single timestamp. delay must be non-negative.
func At(start time.Time, delay int) time.Time {
	y, m, d := start.Date()
	candidate := time.Date(y, m, d+delay, SendHour, 0, 0, 0, start.Location())
	return time.Date(candidate.Year(), candidate.Month(), candidate.Day()+weekendShift(candidate.Weekday()),
		SendHour, 0, 0, 0, start.Location())
}

// Saturday+2 and Sunday+1 both land on Monday, so one pass is enough.
func weekendShift(wd time.Weekday) int {
	switch wd {
	case time.Saturday:
		return 2
	case time.Sunday:
		return 1
	}
	return 0
}

// ParseStart parses a YYYY-MM-DD start date in loc.
func ParseStart(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation("2006-01-02", value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start date %q: %w", value, err)
	}
	return t, nil
}

// Entry is one computed slot of a preview.
type Entry struct {
	Index     int       `json:"index"`
	DelayDays int       `json:"delayDays"`
	At        time.Time `json:"at"`
	Shifted   bool      `json:"shifted"`
}

// Preview computes the schedule and flags entries moved off a weekend.
func Preview(start time.Time, delays []int) ([]Entry, error) {
	times, err := Compute(start, delays)
	if err != nil {
		return nil, err
	}
	y, m, d := start.Date()
	entries := make([]Entry, len(times))
	for i, t := range times {
		raw := time.Date(y, m, d+delays[i], SendHour, 0, 0, 0, start.Location())
		entries[i] = Entry{
			Index:     i,
			DelayDays: delays[i],
			At:        t,
			Shifted:   !raw.Equal(t),
		}
	}
	return entries, nil
}
