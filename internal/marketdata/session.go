package marketdata

import "time"

// eastern is the exchange timezone. All bar timestamps are rebased into it
// before filtering and formatting.
var eastern = mustLocation("America/New_York")

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic("marketdata: load location " + name + ": " + err.Error())
	}
	return loc
}

// InRegularHours reports whether t falls inside the regular trading session:
// weekdays 09:30 through 16:00 Eastern, both endpoints included. t must
// already be in the exchange timezone.
func InRegularHours(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	h, m := t.Hour(), t.Minute()
	switch {
	case h == 9 && m >= 30:
		return true
	case h > 9 && h < 16:
		return true
	case h == 16 && m == 0:
		return true
	}
	return false
}

// filterRegularHours keeps only bars whose timestamps land in the regular
// session.
func filterRegularHours(bars []Bar) []Bar {
	out := bars[:0:0]
	for _, b := range bars {
		if InRegularHours(b.Time) {
			out = append(out, b)
		}
	}
	return out
}
