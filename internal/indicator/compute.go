package indicator

import (
	"math"
	"time"
)

// Series is the bar input indicators compute over. All slices share one
// length and index; Times are the bar open timestamps.
type Series struct {
	Times  []time.Time
	High   []float64
	Low    []float64
	Close  []float64
	Volume []float64
}

// Column is a named indicator output aligned with the input series. Positions
// inside the warmup window hold NaN.
type Column struct {
	Name   string
	Values []float64
}

// Compute evaluates the spec over the series and returns its output columns.
func Compute(spec Spec, s Series) []Column {
	names := spec.Columns()

	switch spec.Kind {
	case KindSMA:
		return []Column{{Name: names[0], Values: sma(s.Close, spec.Period)}}
	case KindEMA:
		return []Column{{Name: names[0], Values: ema(s.Close, spec.Period)}}
	case KindRSI:
		return []Column{{Name: names[0], Values: rsi(s.Close, spec.Period)}}
	case KindMACD:
		line, signal, histogram := macd(s.Close, spec.Fast, spec.Slow, spec.Signal)
		return []Column{
			{Name: names[0], Values: line},
			{Name: names[1], Values: signal},
			{Name: names[2], Values: histogram},
		}
	case KindBBands:
		upper, middle, lower := bbands(s.Close, spec.Period, spec.StdDevs)
		return []Column{
			{Name: names[0], Values: upper},
			{Name: names[1], Values: middle},
			{Name: names[2], Values: lower},
		}
	case KindVWAP:
		return []Column{{Name: names[0], Values: vwap(s)}}
	}
	return nil
}

// ComputeAll evaluates every spec over the series, concatenating the output
// columns in spec order.
func ComputeAll(specs []Spec, s Series) []Column {
	var out []Column
	for _, spec := range specs {
		out = append(out, Compute(spec, s)...)
	}
	return out
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// sma is the simple moving average over a trailing window.
func sma(close []float64, period int) []float64 {
	out := nanSlice(len(close))
	if period > len(close) {
		return out
	}

	var sum float64
	for i, v := range close {
		sum += v
		if i >= period {
			sum -= close[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// ema is the exponential moving average, seeded with the simple average of
// the first period values.
func ema(close []float64, period int) []float64 {
	out := nanSlice(len(close))
	if period > len(close) {
		return out
	}

	var seed float64
	for _, v := range close[:period] {
		seed += v
	}
	seed /= float64(period)
	out[period-1] = seed

	alpha := 2.0 / (float64(period) + 1.0)
	prev := seed
	for i := period; i < len(close); i++ {
		prev = alpha*close[i] + (1-alpha)*prev
		out[i] = prev
	}
	return out
}

// rsi is the relative strength index with Wilder smoothing. The first value
// lands at index period, after period price changes have been observed.
func rsi(close []float64, period int) []float64 {
	out := nanSlice(len(close))
	if period >= len(close) {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		delta := close[i] - close[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(close); i++ {
		delta := close[i] - close[i-1]
		var gain, loss float64
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// macd returns the macd line (fast EMA minus slow EMA), its signal EMA, and
// the histogram (line minus signal).
func macd(close []float64, fast, slow, signal int) (line, signalLine, histogram []float64) {
	n := len(close)
	line = nanSlice(n)
	signalLine = nanSlice(n)
	histogram = nanSlice(n)

	emaFast := ema(close, fast)
	emaSlow := ema(close, slow)
	for i := range close {
		if !math.IsNaN(emaFast[i]) && !math.IsNaN(emaSlow[i]) {
			line[i] = emaFast[i] - emaSlow[i]
		}
	}

	// The signal EMA runs over the valid portion of the macd line only.
	start := max(fast, slow) - 1
	if start >= n {
		return line, signalLine, histogram
	}
	sig := ema(line[start:], signal)
	for i, v := range sig {
		signalLine[start+i] = v
		if !math.IsNaN(v) {
			histogram[start+i] = line[start+i] - v
		}
	}
	return line, signalLine, histogram
}

// bbands returns the Bollinger upper, middle, and lower bands. The middle band
// is a simple moving average; the outer bands sit stdDevs population standard
// deviations away.
func bbands(close []float64, period, stdDevs int) (upper, middle, lower []float64) {
	n := len(close)
	upper = nanSlice(n)
	lower = nanSlice(n)
	middle = sma(close, period)

	for i := period - 1; i < n; i++ {
		mean := middle[i]
		var sq float64
		for _, v := range close[i-period+1 : i+1] {
			d := v - mean
			sq += d * d
		}
		sd := math.Sqrt(sq / float64(period))
		upper[i] = mean + float64(stdDevs)*sd
		lower[i] = mean - float64(stdDevs)*sd
	}
	return upper, middle, lower
}

// vwap is the volume-weighted average price over the typical price, anchored
// daily: the cumulative sums reset at each calendar-date change.
func vwap(s Series) []float64 {
	out := nanSlice(len(s.Close))

	var cumPV, cumVol float64
	var day time.Time
	for i := range s.Close {
		d := s.Times[i].Truncate(24 * time.Hour)
		if i == 0 || !d.Equal(day) {
			day = d
			cumPV, cumVol = 0, 0
		}

		typical := (s.High[i] + s.Low[i] + s.Close[i]) / 3
		cumPV += typical * s.Volume[i]
		cumVol += s.Volume[i]
		if cumVol > 0 {
			out[i] = cumPV / cumVol
		}
	}
	return out
}
