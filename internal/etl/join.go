package etl

import (
	"math"

	"rosteretl/internal/table"

	"cloud.google.com/go/civil"
)

const (
	leftSuffix  = "_x"
	rightSuffix = "_y"
)

type keyFamily int

const (
	familyInteger keyFamily = iota + 1
	familyFloat
	familyString
	familyBool
	familyDate
)

type joinKey struct {
	family keyFamily
	i      int64
	n      float64
	s      string
	b      bool
	d      civil.Date
}

// keyOf returns the comparable key of a value, ok is false for Missing which
// never matches anything.
func keyOf(v table.Value) (joinKey, bool) {
	if i, ok := v.Integer(); ok {
		return joinKey{family: familyInteger, i: i}, true
	}
	if n, ok := v.Number(); ok {
		// integral floats share the integer keyspace so Float 2 joins Int 2
		if n == math.Trunc(n) && n >= -(1<<63) && n < 1<<63 {
			return joinKey{family: familyInteger, i: int64(n)}, true
		}
		return joinKey{family: familyFloat, n: n}, true
	}
	if s, ok := v.Str(); ok {
		return joinKey{family: familyString, s: s}, true
	}
	if b, ok := v.Boolean(); ok {
		return joinKey{family: familyBool, b: b}, true
	}
	if d, ok := v.CivilDate(); ok {
		return joinKey{family: familyDate, d: d}, true
	}
	return joinKey{}, false
}

// InnerJoin joins `left` and `right` on equality of the `key` column.
//
// Only rows whose key appears on both sides are kept, in left row order then
// right row order. The output has the left columns followed by the right
// columns minus the key; a non-key column present on both sides is suffixed
// with _x (left) and _y (right).
func InnerJoin(left, right table.Table, key string) (table.Table, error) {
	leftKey := left.Index(key)
	if leftKey < 0 {
		return table.Table{}, missingColumn("roster", key, left)
	}
	rightKey := right.Index(key)
	if rightKey < 0 {
		return table.Table{}, missingColumn("work", key, right)
	}

	overlap := map[string]bool{}
	for _, col := range right.Columns {
		if col != key && left.Has(col) {
			overlap[col] = true
		}
	}

	var columns []string
	for _, col := range left.Columns {
		if overlap[col] {
			col += leftSuffix
		}
		columns = append(columns, col)
	}
	var rightCols []int
	for i, col := range right.Columns {
		if i == rightKey {
			continue
		}
		if overlap[col] {
			col += rightSuffix
		}
		columns = append(columns, col)
		rightCols = append(rightCols, i)
	}

	byKey := map[joinKey][]int{}
	for i, row := range right.Rows {
		k, ok := keyOf(row[rightKey])
		if !ok {
			continue
		}
		byKey[k] = append(byKey[k], i)
	}

	out := table.Table{Columns: columns}
	for _, lrow := range left.Rows {
		k, ok := keyOf(lrow[leftKey])
		if !ok {
			continue
		}
		for _, ri := range byKey[k] {
			rrow := right.Rows[ri]
			joined := make([]table.Value, 0, len(columns))
			joined = append(joined, lrow...)
			for _, c := range rightCols {
				joined = append(joined, rrow[c])
			}
			out.Rows = append(out.Rows, joined)
		}
	}
	return out, nil
}
