package guard

import (
	"testing"
	"time"

	"github.com/smallbiznis/invoicenotify/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestEnsureJobDue(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

	assert.NoError(t, EnsureJobDue(time.Time{}, time.Hour, now))
	assert.ErrorIs(t, EnsureJobDue(now.Add(-30*time.Minute), time.Hour, now), ErrJobNotDue)
	assert.NoError(t, EnsureJobDue(now.Add(-time.Hour), time.Hour, now))
	assert.ErrorIs(t, EnsureJobDue(now, 0, now), ErrInvalidTick)
}

func TestEnsureOutsideQuietHoursWrapsMidnight(t *testing.T) {
	quiet := config.QuietHours{Start: 22, End: 6}

	assert.ErrorIs(t, EnsureOutsideQuietHours(quiet, time.Date(2026, 10, 14, 23, 0, 0, 0, time.UTC)), ErrQuietHours)
	assert.ErrorIs(t, EnsureOutsideQuietHours(quiet, time.Date(2026, 10, 14, 5, 59, 0, 0, time.UTC)), ErrQuietHours)
	assert.NoError(t, EnsureOutsideQuietHours(quiet, time.Date(2026, 10, 14, 6, 0, 0, 0, time.UTC)))
	assert.NoError(t, EnsureOutsideQuietHours(config.QuietHours{}, time.Date(2026, 10, 14, 3, 0, 0, 0, time.UTC)))
}
