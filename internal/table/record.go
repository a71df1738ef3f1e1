// Package table holds the in-memory tabular record that every cleaning and
// event-building step consumes and produces.
//
// Rows are kept in logged order. Positional operations (the row before a
// feedback row, the row after a block marker) depend on that order, so no
// operation in this package reorders rows unless it says so.
package table

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrMissingColumn is returned when a transformation needs a column the
// record does not carry.
var ErrMissingColumn = errors.New("missing column")

// Record is an ordered set of named columns over rows of cells.
type Record struct {
	cols  []string
	index map[string]int
	rows  [][]Value
}

// New returns an empty record with the given columns.
func New(cols ...string) *Record {
	r := &Record{index: make(map[string]int, len(cols))}
	for _, c := range cols {
		if _, ok := r.index[c]; ok {
			continue
		}
		r.index[c] = len(r.cols)
		r.cols = append(r.cols, c)
	}
	return r
}

// Columns returns a copy of the column names in order.
func (r *Record) Columns() []string {
	out := make([]string, len(r.cols))
	copy(out, r.cols)
	return out
}

// Len returns the number of rows.
func (r *Record) Len() int { return len(r.rows) }

// Has reports whether col exists.
func (r *Record) Has(col string) bool {
	_, ok := r.index[col]
	return ok
}

// Require returns ErrMissingColumn naming every absent column.
func (r *Record) Require(cols ...string) error {
	var missing []string
	for _, c := range cols {
		if !r.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

// Get returns the cell at row i of col, or a missing cell if col is absent.
func (r *Record) Get(i int, col string) Value {
	j, ok := r.index[col]
	if !ok {
		return Null()
	}
	return r.rows[i][j]
}

// Set writes a cell, creating the column (filled with missing) if needed.
func (r *Record) Set(i int, col string, v Value) {
	j, ok := r.index[col]
	if !ok {
		r.AddColumn(col, Null())
		j = r.index[col]
	}
	r.rows[i][j] = v
}

// AddColumn appends col filled with fill. An existing column is overwritten
// in place.
func (r *Record) AddColumn(col string, fill Value) {
	if j, ok := r.index[col]; ok {
		for _, row := range r.rows {
			row[j] = fill
		}
		return
	}
	r.index[col] = len(r.cols)
	r.cols = append(r.cols, col)
	for i := range r.rows {
		r.rows[i] = append(r.rows[i], fill)
	}
}

// InsertColumn places col at position pos with the given values, replacing
// any existing column of the same name.
func (r *Record) InsertColumn(pos int, col string, vals []Value) error {
	if len(vals) != len(r.rows) {
		return fmt.Errorf("column %q has %d values for %d rows", col, len(vals), len(r.rows))
	}
	r.DropColumns(col)
	if pos < 0 {
		pos = 0
	}
	if pos > len(r.cols) {
		pos = len(r.cols)
	}
	r.cols = append(r.cols[:pos], append([]string{col}, r.cols[pos:]...)...)
	for i, row := range r.rows {
		row = append(row, Value{})
		copy(row[pos+1:], row[pos:])
		row[pos] = vals[i]
		r.rows[i] = row
	}
	r.reindex()
	return nil
}

// Column returns a copy of col's cells; an absent column reads as all missing.
func (r *Record) Column(col string) []Value {
	out := make([]Value, len(r.rows))
	j, ok := r.index[col]
	if !ok {
		return out
	}
	for i, row := range r.rows {
		out[i] = row[j]
	}
	return out
}

// SetColumn replaces (or appends) col with vals.
func (r *Record) SetColumn(col string, vals []Value) error {
	if len(vals) != len(r.rows) {
		return fmt.Errorf("column %q has %d values for %d rows", col, len(vals), len(r.rows))
	}
	if !r.Has(col) {
		r.AddColumn(col, Null())
	}
	j := r.index[col]
	for i, row := range r.rows {
		row[j] = vals[i]
	}
	return nil
}

// DropColumns removes the named columns; absent names are ignored.
func (r *Record) DropColumns(cols ...string) {
	drop := make(map[int]bool)
	for _, c := range cols {
		if j, ok := r.index[c]; ok {
			drop[j] = true
		}
	}
	if len(drop) == 0 {
		return
	}
	keep := make([]int, 0, len(r.cols)-len(drop))
	for j := range r.cols {
		if !drop[j] {
			keep = append(keep, j)
		}
	}
	r.project(keep)
}

// Rename renames a column. Renaming onto an existing name replaces it.
func (r *Record) Rename(from, to string) {
	j, ok := r.index[from]
	if !ok || from == to {
		return
	}
	if r.Has(to) {
		r.DropColumns(to)
		j = r.index[from]
	}
	r.cols[j] = to
	r.reindex()
}

// AppendRow appends a row; vals must follow the column order.
func (r *Record) AppendRow(vals []Value) error {
	if len(vals) != len(r.cols) {
		return fmt.Errorf("row has %d values for %d columns", len(vals), len(r.cols))
	}
	row := make([]Value, len(vals))
	copy(row, vals)
	r.rows = append(r.rows, row)
	return nil
}

// Row returns a copy of row i.
func (r *Record) Row(i int) []Value {
	out := make([]Value, len(r.cols))
	copy(out, r.rows[i])
	return out
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	out := New(r.cols...)
	out.rows = make([][]Value, len(r.rows))
	for i, row := range r.rows {
		out.rows[i] = append([]Value(nil), row...)
	}
	return out
}

// Filter returns a new record holding the rows for which keep is true, in
// their original order.
func (r *Record) Filter(keep func(i int) bool) *Record {
	out := New(r.cols...)
	for i, row := range r.rows {
		if keep(i) {
			out.rows = append(out.rows, append([]Value(nil), row...))
		}
	}
	return out
}

// Where returns the row positions for which match is true.
func (r *Record) Where(match func(i int) bool) []int {
	var idx []int
	for i := range r.rows {
		if match(i) {
			idx = append(idx, i)
		}
	}
	return idx
}

// Splice replaces row i with the given rows, keeping every other row in place.
func (r *Record) Splice(i int, rows ...[]Value) error {
	for _, row := range rows {
		if len(row) != len(r.cols) {
			return fmt.Errorf("row has %d values for %d columns", len(row), len(r.cols))
		}
	}
	tail := append([][]Value(nil), r.rows[i+1:]...)
	r.rows = append(r.rows[:i], rows...)
	r.rows = append(r.rows, tail...)
	return nil
}

// Index returns the position of col, or -1.
func (r *Record) Index(col string) int {
	if j, ok := r.index[col]; ok {
		return j
	}
	return -1
}

// SortColumns orders columns by name.
func (r *Record) SortColumns() {
	keep := make([]int, len(r.cols))
	for j := range keep {
		keep[j] = j
	}
	sort.SliceStable(keep, func(a, b int) bool { return r.cols[keep[a]] < r.cols[keep[b]] })
	r.project(keep)
}

// MoveToFront places the named columns first, in the given order. Absent
// names are skipped.
func (r *Record) MoveToFront(cols ...string) {
	keep := make([]int, 0, len(r.cols))
	front := make(map[int]bool)
	for _, c := range cols {
		if j, ok := r.index[c]; ok && !front[j] {
			front[j] = true
			keep = append(keep, j)
		}
	}
	for j := range r.cols {
		if !front[j] {
			keep = append(keep, j)
		}
	}
	r.project(keep)
}

// SortByNumber stably orders rows by the numeric value of col, missing last.
func (r *Record) SortByNumber(col string) {
	j, ok := r.index[col]
	if !ok {
		return
	}
	sort.SliceStable(r.rows, func(a, b int) bool {
		fa, oka := r.rows[a][j].Float()
		fb, okb := r.rows[b][j].Float()
		switch {
		case !oka:
			return false
		case !okb:
			return true
		}
		return fa < fb
	})
}

// Replace maps every cell through fn.
func (r *Record) Replace(fn func(Value) Value) {
	for _, row := range r.rows {
		for j := range row {
			row[j] = fn(row[j])
		}
	}
}

// DropNullRows removes rows whose cells are all missing.
func (r *Record) DropNullRows() {
	kept := r.rows[:0]
	for _, row := range r.rows {
		for _, v := range row {
			if !v.IsMissing() {
				kept = append(kept, row)
				break
			}
		}
	}
	r.rows = kept
}

// DropNullColumns removes columns whose cells are all missing.
func (r *Record) DropNullColumns() {
	keep := make([]int, 0, len(r.cols))
	for j := range r.cols {
		for _, row := range r.rows {
			if !row[j].IsMissing() {
				keep = append(keep, j)
				break
			}
		}
	}
	if len(keep) != len(r.cols) {
		r.project(keep)
	}
}

func (r *Record) project(keep []int) {
	cols := make([]string, len(keep))
	for k, j := range keep {
		cols[k] = r.cols[j]
	}
	for i, row := range r.rows {
		next := make([]Value, len(keep))
		for k, j := range keep {
			next[k] = row[j]
		}
		r.rows[i] = next
	}
	r.cols = cols
	r.reindex()
}

func (r *Record) reindex() {
	r.index = make(map[string]int, len(r.cols))
	for j, c := range r.cols {
		r.index[c] = j
	}
}
