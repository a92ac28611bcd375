package duty

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

// ParseClock parses local "HH:MM" into minutes since midnight
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 || len(mm) != 2 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}

// MinuteOfDay minutes since local midnight of t
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// ShiftWindow [Start, End) in minutes since midnight; End < Start wraps past
// midnight and End == Start covers the whole day
type ShiftWindow struct {
	Start int
	End   int
}

// NewShiftWindow parses both ends
func NewShiftWindow(start, end string) (ShiftWindow, error) {
	s, err := ParseClock(start)
	if err != nil {
		return ShiftWindow{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return ShiftWindow{}, err
	}
	return ShiftWindow{Start: s, End: e}, nil
}

// Overnight reports whether the window crosses midnight
func (w ShiftWindow) Overnight() bool {
	return w.End < w.Start
}

// Contains reports whether minute falls inside the window.
// Overnight windows shift End by a day, and shift minute by a day when it
// lies before Start.
func (w ShiftWindow) Contains(minute int) bool {
	if w.Start == w.End {
		return minute >= 0 && minute < minutesPerDay
	}
	end := w.End
	if end < w.Start {
		end += minutesPerDay
	}
	adj := minute
	if adj < w.Start && end > minutesPerDay {
		adj += minutesPerDay
	}
	return adj >= w.Start && adj < end
}
