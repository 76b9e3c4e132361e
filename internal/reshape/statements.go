// Package reshape merges the cashflow, balance sheet and income statements
// reported by the provider into one table with chronologically ordered
// period columns.
package reshape

import (
	"fmt"
	"strconv"

	"MarketScout/internal/model"
)

// Statements merges the three statements, each oriented metric rows by
// period columns. Only periods present in all three statements survive.
// Period labels are normalized to "2024Q1" for quarterly and "2024" for
// yearly data and the result columns are sorted ascending.
func Statements(cashflow, balance, income *model.Table, freq model.Frequency) (*model.Table, error) {
	if _, err := model.ParseFrequency(string(freq)); err != nil {
		return nil, err
	}
	merged, err := concatInner(cashflow, balance, income)
	if err != nil {
		return nil, err
	}

	byPeriod := merged.Transpose()
	keys := make([]periodKey, len(byPeriod.Index))
	labels := make([]string, len(byPeriod.Index))
	for i, raw := range byPeriod.Index {
		k, err := normalize(raw, freq)
		if err != nil {
			return nil, err
		}
		keys[i], labels[i] = k, k.String()
	}
	kind := model.IndexYear
	if freq == model.Quarterly {
		kind = model.IndexPeriod
	}
	if err := byPeriod.Reindex(labels, kind); err != nil {
		return nil, err
	}

	order := make(map[string]periodKey, len(keys))
	for _, k := range keys {
		order[k.String()] = k
	}
	byPeriod.SortIndex(func(a, b string) bool { return order[a].before(order[b]) })

	out := byPeriod.Transpose()
	out.IndexName = merged.IndexName
	return out, nil
}

// concatInner stacks the rows of every table, keeping the columns shared by
// all of them in the order of the first table.
func concatInner(tables ...*model.Table) (*model.Table, error) {
	for i, t := range tables {
		if t == nil {
			return nil, fmt.Errorf("statement %d is missing", i)
		}
	}

	shared := make([]string, 0, len(tables[0].Columns))
	seen := make(map[string]bool)
	for _, col := range tables[0].Columns {
		if seen[col] {
			continue
		}
		seen[col] = true
		inAll := true
		for _, t := range tables[1:] {
			if t.ColumnIndex(col) < 0 {
				inAll = false
				break
			}
		}
		if inAll {
			shared = append(shared, col)
		}
	}

	out := model.NewTable(tables[0].IndexName, shared...)
	for _, t := range tables {
		sel, err := t.SelectColumns(shared)
		if err != nil {
			return nil, err
		}
		for i, label := range sel.Index {
			if err := out.AppendRow(label, sel.RowValues(i)...); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

type periodKey struct {
	year    int
	quarter int
}

func (k periodKey) String() string {
	if k.quarter == 0 {
		return strconv.Itoa(k.year)
	}
	return fmt.Sprintf("%dQ%d", k.year, k.quarter)
}

func (k periodKey) before(o periodKey) bool {
	if k.year != o.year {
		return k.year < o.year
	}
	return k.quarter < o.quarter
}

func normalize(label string, freq model.Frequency) (periodKey, error) {
	d, err := model.ParseDate(label)
	if err != nil {
		return periodKey{}, fmt.Errorf("period label: %w", err)
	}
	if freq == model.Quarterly {
		return periodKey{year: d.Year(), quarter: (int(d.Month())-1)/3 + 1}, nil
	}
	return periodKey{year: d.Year()}, nil
}
