package models

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Row maps a normalized column name to its raw cell text.
type Row map[string]string

// Table is a fully loaded, schema-less transaction table. Column names are
// expected to be lower-cased and trimmed by the ingest layer.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"-"`
}

func NewTable(columns []string, rows []Row) *Table {
	return &Table{Columns: columns, Rows: rows}
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

func (t *Table) HasColumn(name string) bool {
	return slices.Contains(t.Columns, name)
}

// Clone returns a deep copy so a request can own its table outright.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{
		Columns: slices.Clone(t.Columns),
		Rows:    make([]Row, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = cloneRow(r)
	}
	return out
}

// Filter returns a new table holding copies of the rows that satisfy keep.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := &Table{Columns: slices.Clone(t.Columns)}
	for _, r := range t.Rows {
		if keep(r) {
			out.Rows = append(out.Rows, cloneRow(r))
		}
	}
	return out
}

// AddColumn appends a column whose value is computed per row. It is a no-op
// when the column already exists.
func (t *Table) AddColumn(name string, value func(Row) string) bool {
	if t.HasColumn(name) {
		return false
	}
	t.Columns = append(t.Columns, name)
	for _, r := range t.Rows {
		r[name] = value(r)
	}
	return true
}

// Distinct returns the non-empty values of col in first-appearance order.
func (t *Table) Distinct(col string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range t.Rows {
		v := r[col]
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func cloneRow(r Row) Row {
	c := make(Row, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Number coerces a cell to float64. Anything unparseable, NaN or infinite
// becomes 0.
func Number(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Numeric reports whether a cell holds a finite number.
func Numeric(raw string) bool {
	s := strings.TrimSpace(raw)
	if s == "" {
		return false
	}
	v, err := strconv.ParseFloat(s, 64)
	return err == nil && !math.IsNaN(v) && !math.IsInf(v, 0)
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006/01/02",
	"2006/1/2",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"1/2/06",
	"01-02-06",
	"1/2/06 15:04",
	"01-02-06 15:04",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04",
	"02 Jan 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"02-Jan-2006",
	"2-Jan-06",
	"2006-01",
	"Jan 2006",
	"January 2006",
	"2006.01.02",
}

// Date coerces a cell to a UTC timestamp. Month-first is assumed for
// ambiguous slash dates.
func Date(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// MonthStart truncates t to the first instant of its calendar month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
