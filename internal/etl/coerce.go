package etl

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"rosteretl/internal/table"

	"cloud.google.com/go/civil"
	"github.com/antzucaro/matchr"
)

// dateLayouts are tried in order when parsing textual dates.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
}

// ParseDate converts a value into a Date, anything that cannot be read as a
// date becomes Missing. The time of day is discarded.
func ParseDate(v table.Value) table.Value {
	if _, ok := v.CivilDate(); ok {
		return v
	}
	s, ok := v.Str()
	if !ok {
		return table.Missing()
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return table.Date(civil.DateOf(t))
		}
	}
	return table.Missing()
}

// SafeFloat converts a value into a Float: numbers are cast, text is trimmed
// and parsed, and everything else becomes Missing instead of an error.
func SafeFloat(v table.Value) table.Value {
	if n, ok := v.Number(); ok {
		return table.Float(n)
	}
	if b, ok := v.Boolean(); ok {
		if b {
			return table.Float(1)
		}
		return table.Float(0)
	}
	s, ok := v.Str()
	if !ok {
		return table.Missing()
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return table.Missing()
	}
	return table.Float(f)
}

// CoerceInt converts a value into an Int, fractional or unparseable values
// become Missing, never 0.
func CoerceInt(v table.Value) table.Value {
	if _, ok := v.Integer(); ok {
		return v
	}
	if f, ok := v.Number(); ok {
		return integral(f)
	}
	s, ok := v.Str()
	if !ok {
		return table.Missing()
	}
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return table.Int(i)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return table.Missing()
	}
	return integral(f)
}

func integral(f float64) table.Value {
	if math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return table.Missing()
	}
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold
	if f >= 1<<63 || f < -(1<<63) {
		return table.Missing()
	}
	return table.Int(int64(f))
}

// copyColumn sets column `dst` of t to the values of column `src`, adding it
// at the end when it does not exist yet.
func copyColumn(t *table.Table, src int, dst string) {
	di := t.Index(dst)
	if di < 0 {
		t.Columns = append(t.Columns, dst)
		for i, row := range t.Rows {
			t.Rows[i] = append(row, row[src])
		}
		return
	}
	for _, row := range t.Rows {
		row[di] = row[src]
	}
}

// MissingColumnError is returned when a configured column is absent from a table.
type MissingColumnError struct {
	Table  string
	Column string
	// Suggestion is the most similar existing column, if any is close enough.
	Suggestion string
}

func (e *MissingColumnError) Error() string {
	msg := fmt.Sprintf("column %q not found in %s table", e.Column, e.Table)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

const suggestionThreshold = 0.85

func missingColumn(tableName, column string, t table.Table) *MissingColumnError {
	err := &MissingColumnError{Table: tableName, Column: column}
	best := 0.0
	for _, candidate := range t.Columns {
		similarity := matchr.JaroWinkler(column, candidate, false)
		if similarity > best {
			best = similarity
			err.Suggestion = candidate
		}
	}
	if best < suggestionThreshold {
		err.Suggestion = ""
	}
	return err
}

// Coercer converts the configured columns of the work table into their types.
type Coercer struct {
	Renames        map[string]string
	DateColumns    []string
	NumericColumns []string
	IntegerColumns []string
}

// Apply returns a copy of `t` with renames applied and every configured
// column converted. Applying it twice yields the same table.
//
// A rename copies the source column under the target name and keeps the
// source, an existing target column is overwritten.
func (c Coercer) Apply(t table.Table) (table.Table, error) {
	out := t.Clone()

	from := make([]string, 0, len(c.Renames))
	for k := range c.Renames {
		from = append(from, k)
	}
	sort.Strings(from)
	for _, src := range from {
		dst := c.Renames[src]
		idx := out.Index(src)
		if idx < 0 {
			if out.Has(dst) {
				// upstream already sends the corrected name
				continue
			}
			return table.Table{}, missingColumn("work", src, out)
		}
		if src == dst {
			continue
		}
		copyColumn(&out, idx, dst)
	}

	conversions := []struct {
		columns []string
		fn      func(table.Value) table.Value
	}{
		{c.DateColumns, ParseDate},
		{c.NumericColumns, SafeFloat},
		{c.IntegerColumns, CoerceInt},
	}
	for _, conv := range conversions {
		for _, col := range conv.columns {
			if !out.MapColumn(col, conv.fn) {
				return table.Table{}, missingColumn("work", col, out)
			}
		}
	}
	return out, nil
}
