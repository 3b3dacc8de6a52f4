// Package indicator computes technical indicators over bar series. Indicators
// are requested as compact specs like "sma_20", "macd_12_26_9", "bbands_20_2",
// or "vwap"; each spec expands to one or more named output columns aligned
// with the input bars.
package indicator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/quantfold/tradedesk/internal/domain"
)

// Kind identifies an indicator family.
type Kind string

const (
	KindSMA    Kind = "sma"
	KindEMA    Kind = "ema"
	KindRSI    Kind = "rsi"
	KindMACD   Kind = "macd"
	KindBBands Kind = "bbands"
	KindVWAP   Kind = "vwap"
)

// Spec is a parsed indicator request.
type Spec struct {
	Kind Kind

	// Period is the lookback window for sma/ema/rsi/bbands.
	Period int

	// Fast, Slow, Signal are the macd periods.
	Fast   int
	Slow   int
	Signal int

	// StdDevs is the bbands band width in standard deviations.
	StdDevs int
}

// Parse parses a single indicator spec string.
func Parse(s string) (Spec, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, "_")

	intPart := func(i int) (int, error) {
		if i >= len(parts) {
			return 0, fmt.Errorf("indicator: %q: missing parameter %d: %w", s, i, domain.ErrValidation)
		}
		n, err := strconv.Atoi(parts[i])
		if err != nil || n < 1 {
			return 0, fmt.Errorf("indicator: %q: bad parameter %q: %w", s, parts[i], domain.ErrValidation)
		}
		return n, nil
	}

	switch Kind(parts[0]) {
	case KindSMA, KindEMA, KindRSI:
		if len(parts) != 2 {
			return Spec{}, fmt.Errorf("indicator: %q: want one period parameter: %w", s, domain.ErrValidation)
		}
		p, err := intPart(1)
		if err != nil {
			return Spec{}, err
		}
		return Spec{Kind: Kind(parts[0]), Period: p}, nil

	case KindMACD:
		if len(parts) != 4 {
			return Spec{}, fmt.Errorf("indicator: %q: want fast_slow_signal parameters: %w", s, domain.ErrValidation)
		}
		fast, err := intPart(1)
		if err != nil {
			return Spec{}, err
		}
		slow, err := intPart(2)
		if err != nil {
			return Spec{}, err
		}
		sig, err := intPart(3)
		if err != nil {
			return Spec{}, err
		}
		return Spec{Kind: KindMACD, Fast: fast, Slow: slow, Signal: sig}, nil

	case KindBBands:
		if len(parts) != 3 {
			return Spec{}, fmt.Errorf("indicator: %q: want period_stddevs parameters: %w", s, domain.ErrValidation)
		}
		period, err := intPart(1)
		if err != nil {
			return Spec{}, err
		}
		std, err := intPart(2)
		if err != nil {
			return Spec{}, err
		}
		return Spec{Kind: KindBBands, Period: period, StdDevs: std}, nil

	case KindVWAP:
		if len(parts) != 1 {
			return Spec{}, fmt.Errorf("indicator: %q: vwap takes no parameters: %w", s, domain.ErrValidation)
		}
		return Spec{Kind: KindVWAP}, nil
	}

	return Spec{}, fmt.Errorf("indicator: unknown indicator %q: %w", s, domain.ErrValidation)
}

// ParseList parses a comma-separated list of indicator specs. Empty input
// yields an empty list.
func ParseList(s string) ([]Spec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var specs []Spec
	for _, part := range strings.Split(s, ",") {
		spec, err := Parse(part)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// Warmup returns the minimum number of leading bars the indicator needs
// before its output is meaningful.
func (s Spec) Warmup() int {
	switch s.Kind {
	case KindSMA, KindEMA, KindRSI, KindBBands:
		return s.Period
	case KindMACD:
		return max(s.Fast, s.Slow, s.Signal)
	case KindVWAP:
		return 1
	}
	return 1
}

// MaxWarmup returns the largest warmup across the given specs, or zero for an
// empty list.
func MaxWarmup(specs []Spec) int {
	var m int
	for _, s := range specs {
		if w := s.Warmup(); w > m {
			m = w
		}
	}
	return m
}

// Columns returns the output column names the spec produces, in order.
func (s Spec) Columns() []string {
	switch s.Kind {
	case KindSMA:
		return []string{fmt.Sprintf("sma_%d", s.Period)}
	case KindEMA:
		return []string{fmt.Sprintf("ema_%d", s.Period)}
	case KindRSI:
		return []string{fmt.Sprintf("rsi_%d", s.Period)}
	case KindMACD:
		suffix := fmt.Sprintf("%d_%d_%d", s.Fast, s.Slow, s.Signal)
		return []string{
			"macd_" + suffix,
			"macd_signal_" + suffix,
			"macd_histogram_" + suffix,
		}
	case KindBBands:
		suffix := fmt.Sprintf("%d_%d", s.Period, s.StdDevs)
		return []string{
			"bb_upper_" + suffix,
			"bb_middle_" + suffix,
			"bb_lower_" + suffix,
		}
	case KindVWAP:
		return []string{"vwap"}
	}
	return nil
}
