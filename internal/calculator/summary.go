// Package calculator derives technical figures from cached price bars.
package calculator

import (
	"errors"
	"math"
	"time"

	"MarketScout/internal/model"
)

var errNotEnoughBars = errors.New("not enough bars")

// Summary describes a price history at a glance. Figures that need more bars
// than available are NaN.
type Summary struct {
	From, To  time.Time
	Bars      int
	Close     float64
	ChangePct float64 // first to last close
	SMA50     float64
	SMA200    float64
	RSI14     float64
	// Year range covers the 365 days up to To.
	YearHigh, YearLow float64
	YearPosition      float64 // 0 at YearLow, 1 at YearHigh
}

// Summarize computes a Summary of bars, which must be in time order.
func Summarize(bars []model.OHLCV) (Summary, error) {
	if len(bars) == 0 {
		return Summary{}, errNotEnoughBars
	}
	first, last := bars[0], bars[len(bars)-1]
	closes := Closes(bars)

	s := Summary{
		From:      first.Time,
		To:        last.Time,
		Bars:      len(bars),
		Close:     last.Close,
		ChangePct: math.NaN(),
	}
	if first.Close != 0 {
		s.ChangePct = model.Round((last.Close/first.Close-1)*100, 2)
	}
	s.SMA50 = orNaN(SMA(closes, 50))
	s.SMA200 = orNaN(SMA(closes, 200))
	s.RSI14 = orNaN(RSI(closes, 14))
	s.YearHigh, s.YearLow = RangeSince(bars, last.Time.AddDate(-1, 0, 0))
	s.YearPosition = Position(last.Close, s.YearHigh, s.YearLow)
	return s, nil
}

// Closes extracts close prices.
func Closes(bars []model.OHLCV) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// SMA is the simple moving average of the last n values.
func SMA(values []float64, n int) (float64, error) {
	if n <= 0 || len(values) < n {
		return 0, errNotEnoughBars
	}
	sum := 0.0
	for _, v := range values[len(values)-n:] {
		sum += v
	}
	return sum / float64(n), nil
}

// RSI is Wilder's relative strength index over n periods. It needs n+1 values.
func RSI(values []float64, n int) (float64, error) {
	if n <= 0 || len(values) < n+1 {
		return 0, errNotEnoughBars
	}
	var gain, loss float64
	for i := 1; i < len(values); i++ {
		up, down := 0.0, 0.0
		if d := values[i] - values[i-1]; d > 0 {
			up = d
		} else {
			down = -d
		}
		if i <= n {
			gain += up / float64(n)
			loss += down / float64(n)
			continue
		}
		gain = (gain*float64(n-1) + up) / float64(n)
		loss = (loss*float64(n-1) + down) / float64(n)
	}
	if loss == 0 {
		return 100, nil
	}
	return 100 - 100/(1+gain/loss), nil
}

// RangeSince returns the highest high and lowest low of bars at or after since.
func RangeSince(bars []model.OHLCV, since time.Time) (high, low float64) {
	high, low = math.Inf(-1), math.Inf(1)
	for _, b := range bars {
		if b.Time.Before(since) {
			continue
		}
		high, low = math.Max(high, b.High), math.Min(low, b.Low)
	}
	if math.IsInf(high, 0) {
		return math.NaN(), math.NaN()
	}
	return high, low
}

// Position places price within [low, high], clamped to 0..1. A flat range is 0.5.
func Position(price, high, low float64) float64 {
	switch {
	case math.IsNaN(high) || math.IsNaN(low) || high < low:
		return math.NaN()
	case high == low:
		return 0.5
	}
	return math.Max(0, math.Min(1, (price-low)/(high-low)))
}

func orNaN(v float64, err error) float64 {
	if err != nil {
		return math.NaN()
	}
	return v
}
