package table

import "fmt"

// Table is an in-memory record set: ordered column names and rows of values
// aligned with them.
type Table struct {
	Columns []string
	Rows    [][]Value
}

// New creates an empty table with the given columns.
func New(columns ...string) Table {
	return Table{Columns: append([]string(nil), columns...)}
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// Empty reports whether the table has no rows.
func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

// Shape returns (rows, columns).
func (t Table) Shape() (int, int) {
	return len(t.Rows), len(t.Columns)
}

// Index returns the position of a column or -1.
func (t Table) Index(column string) int {
	for i, c := range t.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

func (t Table) Has(column string) bool {
	return t.Index(column) >= 0
}

// Append adds a row, it must have one value per column.
func (t *Table) Append(row ...Value) error {
	if len(row) != len(t.Columns) {
		return fmt.Errorf("row has %d values, table has %d columns", len(row), len(t.Columns))
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// Column returns a copy of every value in a column.
func (t Table) Column(column string) ([]Value, bool) {
	idx := t.Index(column)
	if idx < 0 {
		return nil, false
	}
	out := make([]Value, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, true
}

// MapColumn replaces every value of a column with fn(value) in place.
func (t Table) MapColumn(column string, fn func(Value) Value) bool {
	idx := t.Index(column)
	if idx < 0 {
		return false
	}
	for _, row := range t.Rows {
		row[idx] = fn(row[idx])
	}
	return true
}

// Record returns row `i` as a Record.
func (t Table) Record(i int) Record {
	return Record{columns: t.Columns, values: t.Rows[i]}
}

// Clone returns a deep copy of the table, rows included.
func (t Table) Clone() Table {
	out := Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]Value, len(t.Rows)),
	}
	for i, row := range t.Rows {
		out.Rows[i] = append([]Value(nil), row...)
	}
	return out
}

// Record is one row of a table viewed as an ordered mapping from column to value.
type Record struct {
	columns []string
	values  []Value
}

func (r Record) Columns() []string {
	return r.columns
}

// Get returns the value under `column`, Missing and false if the column does not exist.
func (r Record) Get(column string) (Value, bool) {
	for i, c := range r.columns {
		if c == column {
			return r.values[i], true
		}
	}
	return Missing(), false
}
