package tvscreener

import (
	"fmt"
	"slices"

	"github.com/quantfold/tradedesk/internal/domain"
)

// scannerColumns is the selection shared by the built-in scanners.
var scannerColumns = []string{
	"name", "description", "close", "change", "volume",
	"relative_volume_10d_calc", "market_cap_basic",
}

// liquidityFloor keeps illiquid names out of the built-in scanners.
var liquidityFloor = []Filter{
	Greater("close", 2),
	Greater("volume", 100_000),
}

// builtinScanners are pre-canned queries for common screening lists. Each call
// builds a fresh query so callers can tweak limits without aliasing.
var builtinScanners = map[string]func() *Query{
	"day_gainers": func() *Query {
		return NewQuery().
			Select(scannerColumns...).
			Where(liquidityFloor...).
			Where(Greater("change", 0)).
			OrderBy("change", false)
	},
	"day_losers": func() *Query {
		return NewQuery().
			Select(scannerColumns...).
			Where(liquidityFloor...).
			Where(Less("change", 0)).
			OrderBy("change", true)
	},
	"day_most_active": func() *Query {
		return NewQuery().
			Select(scannerColumns...).
			Where(liquidityFloor...).
			OrderBy("volume", false)
	},
	"premarket_gainers": func() *Query {
		return NewQuery().
			Select(append(slices.Clone(scannerColumns), "premarket_change", "premarket_volume")...).
			Where(liquidityFloor...).
			Where(Greater("premarket_change", 0)).
			OrderBy("premarket_change", false)
	},
	"premarket_losers": func() *Query {
		return NewQuery().
			Select(append(slices.Clone(scannerColumns), "premarket_change", "premarket_volume")...).
			Where(liquidityFloor...).
			Where(Less("premarket_change", 0)).
			OrderBy("premarket_change", true)
	},
	"premarket_most_active": func() *Query {
		return NewQuery().
			Select(append(slices.Clone(scannerColumns), "premarket_change", "premarket_volume")...).
			Where(liquidityFloor...).
			OrderBy("premarket_volume", false)
	},
	"postmarket_gainers": func() *Query {
		return NewQuery().
			Select(append(slices.Clone(scannerColumns), "postmarket_change", "postmarket_volume")...).
			Where(liquidityFloor...).
			Where(Greater("postmarket_change", 0)).
			OrderBy("postmarket_change", false)
	},
	"postmarket_losers": func() *Query {
		return NewQuery().
			Select(append(slices.Clone(scannerColumns), "postmarket_change", "postmarket_volume")...).
			Where(liquidityFloor...).
			Where(Less("postmarket_change", 0)).
			OrderBy("postmarket_change", true)
	},
}

// ScannerNames lists the built-in scanner names in sorted order.
func ScannerNames() []string {
	names := make([]string, 0, len(builtinScanners))
	for name := range builtinScanners {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ScannerQuery returns a fresh query for the named built-in scanner.
func ScannerQuery(name string) (*Query, error) {
	build, ok := builtinScanners[name]
	if !ok {
		return nil, fmt.Errorf("tvscreener: unknown scanner %q (available: %v): %w",
			name, ScannerNames(), domain.ErrValidation)
	}
	return build(), nil
}
