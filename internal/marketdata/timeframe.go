package marketdata

import (
	"fmt"
	"strings"
	"time"

	"github.com/quantfold/tradedesk/internal/domain"
)

// Unit is the requested bar granularity.
type Unit string

const (
	UnitMinute  Unit = "minute"
	UnitHour    Unit = "hour"
	UnitDaily   Unit = "daily"
	UnitWeekly  Unit = "weekly"
	UnitMonthly Unit = "monthly"
)

// ParseUnit parses a bar unit, case-insensitively.
func ParseUnit(s string) (Unit, error) {
	switch u := Unit(strings.ToLower(strings.TrimSpace(s))); u {
	case UnitMinute, UnitHour, UnitDaily, UnitWeekly, UnitMonthly:
		return u, nil
	}
	return "", fmt.Errorf("marketdata: unknown bar unit %q: %w", s, domain.ErrValidation)
}

// Intraday reports whether bars of this unit carry a time-of-day component
// and are therefore subject to session filtering.
func (u Unit) Intraday() bool {
	return u == UnitMinute || u == UnitHour
}

// Timeframe is the upstream granularity a request resolves to.
type Timeframe struct {
	Amount int
	Unit   Unit
}

// Resolve maps a (unit, bar size) pair onto an upstream timeframe. Minute
// sizes past 59 roll over into whole hours, since the upstream caps minute
// timeframes at 59.
func Resolve(unit Unit, barSize int) Timeframe {
	if unit == UnitMinute && barSize > 59 {
		return Timeframe{Amount: barSize / 60, Unit: UnitHour}
	}
	return Timeframe{Amount: barSize, Unit: unit}
}

// DefaultBarsBack is the window used when the caller asks for zero bars:
// roughly two hours of fine minute bars up to a year of monthly bars.
func DefaultBarsBack(unit Unit, barSize int) int {
	switch unit {
	case UnitMinute:
		switch {
		case barSize < 5:
			return 120 / barSize // 2 hours
		case barSize < 15:
			return 60 * 7 / barSize // 1 session day
		default:
			return 60 * 13 / barSize // 2 session days
		}
	case UnitHour:
		return 5 * 24 / barSize // 1 week
	case UnitDaily:
		return 30 / barSize
	case UnitWeekly:
		return 26 / barSize
	case UnitMonthly:
		return 12 / barSize
	}
	return 1
}

// businessTime reports whether t counts toward a business-hour walk: a
// weekday moment inside the regular session.
func businessTime(t time.Time) bool {
	return InRegularHours(t)
}

func businessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// subtractBusinessHours walks t back n whole hours, counting only hours that
// land inside the regular session.
func subtractBusinessHours(t time.Time, n int) time.Time {
	for n > 0 {
		t = t.Add(-time.Hour)
		if businessTime(t) {
			n--
		}
	}
	return t
}

// subtractBusinessDays walks t back n days, counting only weekdays.
func subtractBusinessDays(t time.Time, n int) time.Time {
	for n > 0 {
		t = t.AddDate(0, 0, -1)
		if businessDay(t) {
			n--
		}
	}
	return t
}

// WindowStart computes how far back to ask the upstream for barsBack bars of
// the given unit and size, walking the business calendar rather than the wall
// clock. Ten extra bars of margin absorb holidays and half sessions. Minute
// windows are delegated to the hour walker on the rounded-up hour count.
func WindowStart(now time.Time, unit Unit, barSize, barsBack int) time.Time {
	switch unit {
	case UnitMinute:
		hours := barsBack*barSize/60 + 1
		return WindowStart(now, UnitHour, 1, hours)
	case UnitHour:
		return subtractBusinessHours(now, barSize*(barsBack+10))
	case UnitDaily:
		return subtractBusinessDays(now, barSize*(barsBack+10))
	case UnitWeekly:
		return subtractBusinessDays(now, 5*barSize*(barsBack+10))
	case UnitMonthly:
		// Approximately 21 business days per month.
		return subtractBusinessDays(now, 21*barSize*(barsBack+10))
	}
	return now
}
