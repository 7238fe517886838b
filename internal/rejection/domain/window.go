package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	WindowWeek = "week"
	WindowDay  = "day"
)

// Window is a half-open [Start, End) range of invoice creation times.
type Window struct {
	Kind  string    `json:"kind"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewWindow computes the current window in loc. A week runs from Monday
// 00:00 to the next Monday 00:00; a day from 00:00 to the next 00:00.
func NewWindow(kind string, now time.Time, loc *time.Location) (Window, error) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	switch strings.ToLower(strings.TrimSpace(kind)) {
	case WindowWeek, "":
		offset := (int(midnight.Weekday()) + 6) % 7
		start := midnight.AddDate(0, 0, -offset)
		return Window{Kind: WindowWeek, Start: start, End: start.AddDate(0, 0, 7)}, nil
	case WindowDay:
		return Window{Kind: WindowDay, Start: midnight, End: midnight.AddDate(0, 0, 1)}, nil
	default:
		return Window{}, fmt.Errorf("%w: %q", ErrInvalidWindow, kind)
	}
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}
