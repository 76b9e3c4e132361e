package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceColumns is the column layout of every cached price table.
var PriceColumns = []string{"Open", "High", "Low", "Close", "Volume"}

// Bars converts a cached price table into bars. Rows whose date or values
// cannot be read are skipped.
func Bars(t *Table) []OHLCV {
	if t.Empty() {
		return nil
	}
	pos := make([]int, len(PriceColumns))
	for k, c := range PriceColumns {
		if pos[k] = t.ColumnIndex(c); pos[k] < 0 {
			return nil
		}
	}
	bars := make([]OHLCV, 0, t.Len())
	for i, label := range t.Index {
		ts, err := ParseDate(label)
		if err != nil {
			continue
		}
		var v [5]float64
		ok := true
		for k, j := range pos {
			if v[k], ok = t.At(i, j).Float(); !ok {
				break
			}
		}
		if !ok {
			continue
		}
		bars = append(bars, OHLCV{Time: ts, Open: v[0], High: v[1], Low: v[2], Close: v[3], Volume: v[4]})
	}
	return bars
}

// Interval is a price bar width as understood by the provider.
type Interval string

var intervals = map[Interval]bool{
	"1m": true, "2m": true, "5m": true, "15m": true, "30m": true, "60m": true, "90m": true,
	"1h": true, "1d": true, "5d": true, "1wk": true, "1mo": true, "3mo": true,
}

// ParseInterval validates s.
func ParseInterval(s string) (Interval, error) {
	iv := Interval(strings.TrimSpace(s))
	if !intervals[iv] {
		return "", fmt.Errorf("%w: %q", ErrInvalidInterval, s)
	}
	return iv, nil
}

// Frequency is the reporting period of fundamental statements.
type Frequency string

const (
	Quarterly Frequency = "quarterly"
	Yearly    Frequency = "yearly"
)

// ParseFrequency validates s.
func ParseFrequency(s string) (Frequency, error) {
	switch f := Frequency(s); f {
	case Quarterly, Yearly:
		return f, nil
	default:
		return "", fmt.Errorf("%w: got %q", ErrInvalidFrequency, s)
	}
}

// StatementKind names one of the three financial statements.
type StatementKind string

const (
	Cashflow StatementKind = "cashflow"
	Balance  StatementKind = "balance"
	Income   StatementKind = "income"
)

// QuoteInfo is the flat key/value summary a provider returns for a symbol.
type QuoteInfo map[string]any

// Float returns the numeric field key.
func (q QuoteInfo) Float(key string) (float64, error) {
	v, ok := q[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("%w: %s", ErrMissingField, key)
	}
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		var err error
		if f, err = n.Float64(); err != nil {
			return 0, fmt.Errorf("%w: %s is %q", ErrMissingField, key, n)
		}
	default:
		return 0, fmt.Errorf("%w: %s is %T", ErrMissingField, key, v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %s is not finite", ErrMissingField, key)
	}
	return f, nil
}

// String returns the text field key.
func (q QuoteInfo) String(key string) (string, error) {
	s, ok := q[key].(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingField, key)
	}
	return s, nil
}
