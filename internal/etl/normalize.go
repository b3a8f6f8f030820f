package etl

import (
	"fmt"
	"regexp"
	"strings"

	"rosteretl/internal/table"
)

const byteOrderMark = "\ufeff"

var disallowedColumnChars = regexp.MustCompile(`[^A-Za-z0-9_]`)

// NormalizeColumnName turns a raw column name into a safe identifier made of
// ASCII letters, digits and underscores. ok is false when nothing is left, in
// which case the column should be dropped.
//
// ex. " \ufeffDirect Manager " -> "Direct_Manager"
func NormalizeColumnName(raw string) (name string, ok bool) {
	name = strings.ReplaceAll(raw, byteOrderMark, "")
	// Fields both trims and splits on every run of unicode whitespace.
	name = strings.Join(strings.Fields(name), "_")
	name = disallowedColumnChars.ReplaceAllString(name, "")
	return name, name != ""
}

// DuplicateColumnError is returned when two raw columns normalize to the same name.
type DuplicateColumnError struct {
	Name  string
	First string
	Other string
}

func (e *DuplicateColumnError) Error() string {
	return fmt.Sprintf("columns %q and %q both normalize to %q", e.First, e.Other, e.Name)
}

// NormalizeColumns renames every column of `t` with NormalizeColumnName and drops
// the columns whose name normalizes to nothing. The input table is left untouched.
func NormalizeColumns(t table.Table) (table.Table, error) {
	var keep []int
	var columns []string
	rawByName := map[string]string{}

	for i, raw := range t.Columns {
		name, ok := NormalizeColumnName(raw)
		if !ok {
			continue
		}
		if first, dup := rawByName[name]; dup {
			return table.Table{}, &DuplicateColumnError{Name: name, First: first, Other: raw}
		}
		rawByName[name] = raw
		keep = append(keep, i)
		columns = append(columns, name)
	}

	out := table.Table{Columns: columns, Rows: make([][]table.Value, len(t.Rows))}
	for r, row := range t.Rows {
		projected := make([]table.Value, len(keep))
		for c, idx := range keep {
			projected[c] = row[idx]
		}
		out.Rows[r] = projected
	}
	return out, nil
}
