package model

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

type valueKind uint8

const (
	kindNull valueKind = iota
	kindNumber
	kindText
)

// Value is a single table cell: a number, a piece of text, or null.
type Value struct {
	kind valueKind
	num  float64
	text string
}

// Null is the missing-value cell.
var Null = Value{}

// Number wraps f. NaN and infinities become Null.
func Number(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null
	}
	return Value{kind: kindNumber, num: f}
}

// Text wraps s.
func Text(s string) Value {
	return Value{kind: kindText, text: s}
}

// ParseValue converts a persisted cell back to a Value.
func ParseValue(s string) Value {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return Null
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Number(f)
	}
	return Text(s)
}

func (v Value) IsNull() bool   { return v.kind == kindNull }
func (v Value) IsNumber() bool { return v.kind == kindNumber }
func (v Value) IsText() bool   { return v.kind == kindText }

// Float returns the numeric content of v.
func (v Value) Float() (float64, bool) {
	if v.kind != kindNumber {
		return 0, false
	}
	return v.num, true
}

func (v Value) String() string {
	switch v.kind {
	case kindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case kindText:
		return v.text
	default:
		return ""
	}
}

// IndexKind describes how the index labels of a Table should be read.
type IndexKind string

const (
	IndexLabel  IndexKind = "label"
	IndexDate   IndexKind = "date"
	IndexPeriod IndexKind = "period"
	IndexYear   IndexKind = "year"
)

var (
	periodPattern = regexp.MustCompile(`^\d{4}Q[1-4]$`)
	yearPattern   = regexp.MustCompile(`^\d{4}$`)
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05-07:00",
	time.RFC3339,
}

// ParseDate parses the date formats found in cached tables and provider payloads.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// DetectIndexKind inspects every label and returns the narrowest kind they all share.
func DetectIndexKind(labels []string) IndexKind {
	if len(labels) == 0 {
		return IndexLabel
	}
	matchAll := func(ok func(string) bool) bool {
		for _, l := range labels {
			if !ok(l) {
				return false
			}
		}
		return true
	}
	switch {
	case matchAll(yearPattern.MatchString):
		return IndexYear
	case matchAll(periodPattern.MatchString):
		return IndexPeriod
	case matchAll(func(s string) bool { _, err := ParseDate(s); return err == nil }):
		return IndexDate
	default:
		return IndexLabel
	}
}

// Table is a two-dimensional dataset: labelled rows by named columns.
// Index labels may repeat; label lookups resolve to the first match.
type Table struct {
	IndexName string
	IndexKind IndexKind
	Index     []string
	Columns   []string
	cells     [][]Value
}

// NewTable returns an empty table with the given columns.
func NewTable(indexName string, columns ...string) *Table {
	return &Table{
		IndexName: indexName,
		IndexKind: IndexLabel,
		Columns:   append([]string(nil), columns...),
	}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Index)
}

// Empty reports whether the table has no rows or no columns.
func (t *Table) Empty() bool {
	return t == nil || len(t.Index) == 0 || len(t.Columns) == 0
}

// AppendRow adds a row. values must match the column count.
func (t *Table) AppendRow(label string, values ...Value) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("row %q has %d values, table has %d columns", label, len(values), len(t.Columns))
	}
	t.Index = append(t.Index, label)
	t.cells = append(t.cells, append([]Value(nil), values...))
	return nil
}

// Set writes v at (label, column), adding the row or column when missing.
func (t *Table) Set(label, column string, v Value) {
	j := t.ColumnIndex(column)
	if j < 0 {
		t.Columns = append(t.Columns, column)
		for i := range t.cells {
			t.cells[i] = append(t.cells[i], Null)
		}
		j = len(t.Columns) - 1
	}
	i := t.RowIndex(label)
	if i < 0 {
		t.Index = append(t.Index, label)
		t.cells = append(t.cells, make([]Value, len(t.Columns)))
		i = len(t.Index) - 1
	}
	t.cells[i][j] = v
}

// Get returns the cell at (label, column), or Null.
func (t *Table) Get(label, column string) Value {
	i, j := t.RowIndex(label), t.ColumnIndex(column)
	if i < 0 || j < 0 {
		return Null
	}
	return t.cells[i][j]
}

// At returns the cell at row i, column j.
func (t *Table) At(i, j int) Value {
	return t.cells[i][j]
}

func (t *Table) RowIndex(label string) int {
	if t == nil {
		return -1
	}
	for i, l := range t.Index {
		if l == label {
			return i
		}
	}
	return -1
}

func (t *Table) ColumnIndex(column string) int {
	if t == nil {
		return -1
	}
	for j, c := range t.Columns {
		if c == column {
			return j
		}
	}
	return -1
}

// RowValues returns a copy of row i.
func (t *Table) RowValues(i int) []Value {
	return append([]Value(nil), t.cells[i]...)
}

// Column returns a copy of the named column, or nil.
func (t *Table) Column(column string) []Value {
	j := t.ColumnIndex(column)
	if j < 0 {
		return nil
	}
	out := make([]Value, len(t.cells))
	for i := range t.cells {
		out[i] = t.cells[i][j]
	}
	return out
}

// Row returns the first row with the given label as a Row.
func (t *Table) Row(label string) *Row {
	i := t.RowIndex(label)
	if i < 0 {
		return nil
	}
	return &Row{
		Name:    label,
		Columns: append([]string(nil), t.Columns...),
		Values:  t.RowValues(i),
	}
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	c := &Table{
		IndexName: t.IndexName,
		IndexKind: t.IndexKind,
		Index:     append([]string(nil), t.Index...),
		Columns:   append([]string(nil), t.Columns...),
		cells:     make([][]Value, len(t.cells)),
	}
	for i, row := range t.cells {
		c.cells[i] = append([]Value(nil), row...)
	}
	return c
}

// Transpose swaps rows and columns. The new index is unnamed.
func (t *Table) Transpose() *Table {
	out := &Table{
		Index:   append([]string(nil), t.Columns...),
		Columns: append([]string(nil), t.Index...),
		cells:   make([][]Value, len(t.Columns)),
	}
	for j := range t.Columns {
		row := make([]Value, len(t.Index))
		for i := range t.Index {
			row[i] = t.cells[i][j]
		}
		out.cells[j] = row
	}
	out.IndexKind = DetectIndexKind(out.Index)
	return out
}

// SelectColumns returns a copy restricted to columns, in that order.
func (t *Table) SelectColumns(columns []string) (*Table, error) {
	pos := make([]int, len(columns))
	for k, c := range columns {
		j := t.ColumnIndex(c)
		if j < 0 {
			return nil, fmt.Errorf("column %q not found", c)
		}
		pos[k] = j
	}
	out := &Table{
		IndexName: t.IndexName,
		IndexKind: t.IndexKind,
		Index:     append([]string(nil), t.Index...),
		Columns:   append([]string(nil), columns...),
		cells:     make([][]Value, len(t.cells)),
	}
	for i, row := range t.cells {
		sel := make([]Value, len(pos))
		for k, j := range pos {
			sel[k] = row[j]
		}
		out.cells[i] = sel
	}
	return out, nil
}

// RenameColumns replaces every column name positionally.
func (t *Table) RenameColumns(names []string) error {
	if len(names) != len(t.Columns) {
		return fmt.Errorf("rename: %d names for %d columns", len(names), len(t.Columns))
	}
	t.Columns = append([]string(nil), names...)
	return nil
}

// Reindex replaces the index labels positionally.
func (t *Table) Reindex(labels []string, kind IndexKind) error {
	if len(labels) != len(t.Index) {
		return fmt.Errorf("reindex: %d labels for %d rows", len(labels), len(t.Index))
	}
	t.Index = append([]string(nil), labels...)
	t.IndexKind = kind
	return nil
}

// SortIndex stably reorders rows so that less(Index[i], Index[j]) holds.
func (t *Table) SortIndex(less func(a, b string) bool) {
	t.permute(func(a, b int) bool { return less(t.Index[a], t.Index[b]) })
}

// SortByColumn stably orders rows ascending by column. Numbers sort before
// text and nulls go last.
func (t *Table) SortByColumn(column string) {
	j := t.ColumnIndex(column)
	if j < 0 {
		return
	}
	t.permute(func(a, b int) bool { return lessValue(t.cells[a][j], t.cells[b][j]) })
}

func (t *Table) permute(less func(a, b int) bool) {
	perm := make([]int, len(t.Index))
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(x, y int) bool { return less(perm[x], perm[y]) })

	index := make([]string, len(perm))
	cells := make([][]Value, len(perm))
	for k, i := range perm {
		index[k] = t.Index[i]
		cells[k] = t.cells[i]
	}
	t.Index, t.cells = index, cells
}

func lessValue(a, b Value) bool {
	if a.kind != b.kind {
		rank := func(v Value) int {
			switch v.kind {
			case kindNumber:
				return 0
			case kindText:
				return 1
			default:
				return 2
			}
		}
		return rank(a) < rank(b)
	}
	switch a.kind {
	case kindNumber:
		return a.num < b.num
	case kindText:
		return a.text < b.text
	default:
		return false
	}
}

// Row is a single named record with a fixed column schema.
type Row struct {
	Name    string
	Columns []string
	Values  []Value
}

// NewRow returns a row with no values yet.
func NewRow(name string, columns ...string) *Row {
	return &Row{Name: name, Columns: append([]string(nil), columns...)}
}

// Empty reports whether no value was ever set.
func (r *Row) Empty() bool {
	return r == nil || len(r.Values) == 0
}

// Set writes v in column. Unknown columns are ignored.
func (r *Row) Set(column string, v Value) {
	if r.Values == nil {
		r.Values = make([]Value, len(r.Columns))
	}
	for j, c := range r.Columns {
		if c == column {
			r.Values[j] = v
			return
		}
	}
}

// Get returns the value in column, or Null.
func (r *Row) Get(column string) Value {
	if r.Empty() {
		return Null
	}
	for j, c := range r.Columns {
		if c == column {
			return r.Values[j]
		}
	}
	return Null
}

// Table turns r into a table with at most one row.
func (r *Row) Table(indexName string) *Table {
	t := NewTable(indexName, r.Columns...)
	if !r.Empty() {
		_ = t.AppendRow(r.Name, r.Values...)
	}
	return t
}
