package marketdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/tradedesk/internal/domain"
)

func TestParseUnit(t *testing.T) {
	u, err := ParseUnit("Minute")
	require.NoError(t, err)
	assert.Equal(t, UnitMinute, u)

	u, err = ParseUnit(" DAILY ")
	require.NoError(t, err)
	assert.Equal(t, UnitDaily, u)

	_, err = ParseUnit("fortnight")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestResolveRollsLargeMinuteSizesIntoHours(t *testing.T) {
	assert.Equal(t, Timeframe{Amount: 30, Unit: UnitMinute}, Resolve(UnitMinute, 30))
	assert.Equal(t, Timeframe{Amount: 1, Unit: UnitHour}, Resolve(UnitMinute, 90))
	assert.Equal(t, Timeframe{Amount: 2, Unit: UnitHour}, Resolve(UnitMinute, 120))
	assert.Equal(t, Timeframe{Amount: 2, Unit: UnitHour}, Resolve(UnitHour, 2))
	assert.Equal(t, Timeframe{Amount: 1, Unit: UnitDaily}, Resolve(UnitDaily, 1))
}

func TestDefaultBarsBack(t *testing.T) {
	assert.Equal(t, 120, DefaultBarsBack(UnitMinute, 1))
	assert.Equal(t, 84, DefaultBarsBack(UnitMinute, 5))
	assert.Equal(t, 52, DefaultBarsBack(UnitMinute, 15))
	assert.Equal(t, 120, DefaultBarsBack(UnitHour, 1))
	assert.Equal(t, 30, DefaultBarsBack(UnitDaily, 1))
	assert.Equal(t, 26, DefaultBarsBack(UnitWeekly, 1))
	assert.Equal(t, 12, DefaultBarsBack(UnitMonthly, 1))
}

func TestInRegularHours(t *testing.T) {
	at := func(day, hour, minute int) time.Time {
		// March 2026: the 2nd is a Monday, the 7th a Saturday.
		return time.Date(2026, 3, day, hour, minute, 0, 0, eastern)
	}

	assert.False(t, InRegularHours(at(2, 9, 29)))
	assert.True(t, InRegularHours(at(2, 9, 30)))
	assert.True(t, InRegularHours(at(2, 12, 0)))
	assert.True(t, InRegularHours(at(2, 15, 59)))
	assert.True(t, InRegularHours(at(2, 16, 0)))
	assert.False(t, InRegularHours(at(2, 16, 1)))
	assert.False(t, InRegularHours(at(2, 4, 0)))

	// Saturday noon is never in session.
	assert.False(t, InRegularHours(at(7, 12, 0)))
}

func TestWindowStartSkipsWeekends(t *testing.T) {
	// Monday 2026-03-02 at 10:00 Eastern.
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, eastern)

	start := WindowStart(now, UnitDaily, 1, 1)
	assert.True(t, start.Before(now))

	// 11 business days back (1 + 10 margin) from a Monday lands more than
	// two calendar weeks earlier.
	assert.True(t, now.Sub(start) > 14*24*time.Hour)
	assert.True(t, businessDay(start))
}

func TestWindowStartHourWalksSessionHours(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, eastern)

	start := WindowStart(now, UnitHour, 1, 1)
	// 11 session hours back from Monday 10:00: Friday contributes the
	// 10:00-16:00 marks, the rest lands on Thursday afternoon.
	assert.Equal(t, time.Thursday, start.Weekday())
	assert.Equal(t, 13, start.Hour())
}

func TestWindowStartMinuteDelegatesToHours(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, eastern)

	// 90 one-minute bars round up to 2 hours.
	assert.Equal(t,
		WindowStart(now, UnitHour, 1, 2),
		WindowStart(now, UnitMinute, 1, 90))
}
