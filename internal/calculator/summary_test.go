package calculator

import (
	"math"
	"testing"
	"time"

	"MarketScout/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dailyBars(closes ...float64) []model.OHLCV {
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, len(closes))
	for i, c := range closes {
		bars[i] = model.OHLCV{Time: start.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 100}
	}
	return bars
}

func TestSMA(t *testing.T) {
	v, err := SMA([]float64{1, 2, 3, 4, 5}, 3)
	require.NoError(t, err)
	assert.Equal(t, 4.0, v)

	_, err = SMA([]float64{1, 2}, 3)
	assert.Error(t, err)
	_, err = SMA([]float64{1, 2}, 0)
	assert.Error(t, err)
}

func TestRSI(t *testing.T) {
	up := make([]float64, 20)
	for i := range up {
		up[i] = float64(i)
	}
	v, err := RSI(up, 14)
	require.NoError(t, err)
	assert.Equal(t, 100.0, v)

	zigzag := []float64{10, 11, 10, 11, 10, 11, 10, 11, 10, 11, 10, 11, 10, 11, 10}
	v, err = RSI(zigzag, 14)
	require.NoError(t, err)
	assert.InDelta(t, 50, v, 1e-9)

	_, err = RSI(zigzag[:14], 14)
	assert.Error(t, err)
}

func TestRangeSinceAndPosition(t *testing.T) {
	bars := dailyBars(50, 10, 20, 30)
	high, low := RangeSince(bars, bars[1].Time)
	assert.Equal(t, 31.0, high)
	assert.Equal(t, 9.0, low)

	assert.InDelta(t, 21.0/22.0, Position(30, high, low), 1e-9)
	assert.Equal(t, 1.0, Position(100, high, low))
	assert.Equal(t, 0.5, Position(5, 5, 5))

	high, _ = RangeSince(bars, bars[3].Time.AddDate(0, 0, 1))
	assert.True(t, math.IsNaN(high))
}

func TestSummarize(t *testing.T) {
	_, err := Summarize(nil)
	assert.Error(t, err)

	s, err := Summarize(dailyBars(100, 105, 110))
	require.NoError(t, err)
	assert.Equal(t, 3, s.Bars)
	assert.Equal(t, 110.0, s.Close)
	assert.Equal(t, 10.0, s.ChangePct)
	assert.True(t, math.IsNaN(s.SMA50))
	assert.True(t, math.IsNaN(s.RSI14))
	assert.Equal(t, 111.0, s.YearHigh)
	assert.Equal(t, 99.0, s.YearLow)
}
