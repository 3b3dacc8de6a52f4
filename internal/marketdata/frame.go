package marketdata

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/quantfold/tradedesk/internal/indicator"
)

// timeLayout is the bar timestamp format used in responses. Timestamps are
// exchange-local wall times with no zone suffix.
const timeLayout = "2006-01-02 15:04:05"

// Bar is one OHLCV bar. Time is the bar open in the exchange timezone.
type Bar struct {
	Time   time.Time `json:"datetime"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// MarshalJSON renders the bar with its timestamp in the response layout.
func (b Bar) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Datetime string  `json:"datetime"`
		Open     float64 `json:"open"`
		High     float64 `json:"high"`
		Low      float64 `json:"low"`
		Close    float64 `json:"close"`
		Volume   int64   `json:"volume"`
	}{
		Datetime: b.Time.Format(timeLayout),
		Open:     b.Open,
		High:     b.High,
		Low:      b.Low,
		Close:    b.Close,
		Volume:   b.Volume,
	})
}

// Frame is a bar series plus any computed indicator columns, all aligned by
// index.
type Frame struct {
	Bars       []Bar
	Indicators []indicator.Column
}

// Last returns the final bar of the frame and whether one exists.
func (f *Frame) Last() (Bar, bool) {
	if len(f.Bars) == 0 {
		return Bar{}, false
	}
	return f.Bars[len(f.Bars)-1], true
}

// Series converts the frame's bars into indicator input.
func (f *Frame) Series() indicator.Series {
	n := len(f.Bars)
	s := indicator.Series{
		Times:  make([]time.Time, n),
		High:   make([]float64, n),
		Low:    make([]float64, n),
		Close:  make([]float64, n),
		Volume: make([]float64, n),
	}
	for i, b := range f.Bars {
		s.Times[i] = b.Time
		s.High[i] = b.High
		s.Low[i] = b.Low
		s.Close[i] = b.Close
		s.Volume[i] = float64(b.Volume)
	}
	return s
}

// truncate keeps only the trailing n rows of the frame, bars and indicator
// columns alike. Frames shorter than n are left untouched.
func (f *Frame) truncate(n int) {
	drop := len(f.Bars) - n
	if drop <= 0 {
		return
	}
	f.Bars = f.Bars[drop:]
	for i := range f.Indicators {
		f.Indicators[i].Values = f.Indicators[i].Values[drop:]
	}
}

// formatFloat renders a float rounded to three decimals, with trailing zeros
// trimmed the way a CSV writer would print it. NaN renders empty.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
}

// CSV renders the frame as delimited text: a header of
// datetime,open,high,low,close,volume plus one column per indicator, then one
// row per bar.
func (f *Frame) CSV() []byte {
	var buf bytes.Buffer

	buf.WriteString("datetime,open,high,low,close,volume")
	for _, col := range f.Indicators {
		buf.WriteByte(',')
		buf.WriteString(col.Name)
	}
	buf.WriteByte('\n')

	for i, b := range f.Bars {
		buf.WriteString(b.Time.Format(timeLayout))
		buf.WriteByte(',')
		buf.WriteString(formatFloat(b.Open))
		buf.WriteByte(',')
		buf.WriteString(formatFloat(b.High))
		buf.WriteByte(',')
		buf.WriteString(formatFloat(b.Low))
		buf.WriteByte(',')
		buf.WriteString(formatFloat(b.Close))
		buf.WriteByte(',')
		buf.WriteString(strconv.FormatInt(b.Volume, 10))
		for _, col := range f.Indicators {
			buf.WriteByte(',')
			buf.WriteString(formatFloat(col.Values[i]))
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
