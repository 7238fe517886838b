package guard

import (
	"errors"
	"time"

	"github.com/smallbiznis/invoicenotify/internal/config"
)

var (
	ErrJobNotDue   = errors.New("scheduler_job_not_due")
	ErrQuietHours  = errors.New("scheduler_quiet_hours")
	ErrInvalidTick = errors.New("scheduler_invalid_interval")
)

// EnsureJobDue passes once every has elapsed since last. A zero last time
// is always due.
func EnsureJobDue(last time.Time, every time.Duration, now time.Time) error {
	if every <= 0 {
		return ErrInvalidTick
	}
	if last.IsZero() {
		return nil
	}
	if now.Before(last.Add(every)) {
		return ErrJobNotDue
	}
	return nil
}

// EnsureOutsideQuietHours rejects dispatch while now, already in the
// notification timezone, falls inside the quiet window.
func EnsureOutsideQuietHours(q config.QuietHours, now time.Time) error {
	if q.Quiet(now) {
		return ErrQuietHours
	}
	return nil
}
