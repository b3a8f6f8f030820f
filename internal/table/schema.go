package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
)

// FieldType is a declared column type, named after the warehouse types.
type FieldType string

const (
	TypeString FieldType = "STRING"
	TypeFloat  FieldType = "FLOAT64"
	TypeInt    FieldType = "INT64"
	TypeDate   FieldType = "DATE"
	TypeBool   FieldType = "BOOL"
)

// ParseFieldType accepts the canonical names and their common aliases
// (FLOAT, INTEGER, BOOLEAN, ...), case insensitively.
func ParseFieldType(s string) (FieldType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "STRING", "TEXT":
		return TypeString, nil
	case "FLOAT64", "FLOAT", "REAL", "NUMERIC":
		return TypeFloat, nil
	case "INT64", "INTEGER", "INT":
		return TypeInt, nil
	case "DATE":
		return TypeDate, nil
	case "BOOL", "BOOLEAN":
		return TypeBool, nil
	}
	return "", fmt.Errorf("unknown field type %q", s)
}

type Field struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
}

// Schema is an explicit column -> type mapping.
type Schema []Field

// Lookup finds the field declared for `name`.
func (s Schema) Lookup(name string) (Field, bool) {
	for _, f := range s {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Normalize canonicalizes every type alias and rejects unknown types or
// duplicate names.
func (s Schema) Normalize() (Schema, error) {
	out := make(Schema, len(s))
	seen := map[string]struct{}{}
	for i, f := range s {
		if f.Name == "" {
			return nil, fmt.Errorf("schema field %d has no name", i)
		}
		if _, dup := seen[f.Name]; dup {
			return nil, fmt.Errorf("schema declares %q twice", f.Name)
		}
		seen[f.Name] = struct{}{}

		typ, err := ParseFieldType(string(f.Type))
		if err != nil {
			return nil, fmt.Errorf("schema field %q: %w", f.Name, err)
		}
		out[i] = Field{Name: f.Name, Type: typ}
	}
	return out, nil
}

// SchemaError is returned when a table does not fit a declared schema.
type SchemaError struct {
	// Unmapped lists the table columns the schema does not declare.
	Unmapped []string
	// Invalid lists values that could not be converted to their declared type.
	Invalid []string
}

func (e *SchemaError) Error() string {
	var parts []string
	if len(e.Unmapped) > 0 {
		parts = append(parts, fmt.Sprintf("columns not declared in schema: %s", strings.Join(e.Unmapped, ", ")))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, fmt.Sprintf("values not matching their declared type: %s", strings.Join(e.Invalid, "; ")))
	}
	return "schema mismatch: " + strings.Join(parts, "; ")
}

// Check verifies that every column of `t` is declared in the schema.
func (s Schema) Check(t Table) error {
	var unmapped []string
	for _, col := range t.Columns {
		if _, ok := s.Lookup(col); !ok {
			unmapped = append(unmapped, col)
		}
	}
	if len(unmapped) > 0 {
		return &SchemaError{Unmapped: unmapped}
	}
	return nil
}

const maxInvalidReported = 10

// Conform checks `t` against the schema and converts every value into its
// declared type. It returns the fields in table column order and the
// converted rows, nothing is returned unless the whole table conforms.
func (s Schema) Conform(t Table) ([]Field, [][]Value, error) {
	err := s.Check(t)
	if err != nil {
		return nil, nil, err
	}

	fields := make([]Field, len(t.Columns))
	for i, col := range t.Columns {
		fields[i], _ = s.Lookup(col)
	}

	var invalid []string
	rows := make([][]Value, len(t.Rows))
	for r, row := range t.Rows {
		converted := make([]Value, len(row))
		for c, v := range row {
			cv, err := Convert(v, fields[c].Type)
			if err != nil {
				if len(invalid) < maxInvalidReported {
					invalid = append(invalid, fmt.Sprintf("row %d column %s: %v", r, fields[c].Name, err))
				}
				continue
			}
			converted[c] = cv
		}
		rows[r] = converted
	}
	if len(invalid) > 0 {
		return nil, nil, &SchemaError{Invalid: invalid}
	}
	return fields, rows, nil
}

// InferSchema derives a schema from the values present in each column.
// A column holding only ints is INT64, only numbers FLOAT64, only bools BOOL,
// only dates DATE, anything else (including an all-missing column) STRING.
func InferSchema(t Table) Schema {
	out := make(Schema, len(t.Columns))
	for c, col := range t.Columns {
		kinds := map[Kind]bool{}
		for _, row := range t.Rows {
			if !row[c].IsMissing() {
				kinds[row[c].Kind()] = true
			}
		}

		typ := TypeString
		switch {
		case len(kinds) == 1 && kinds[KindInt]:
			typ = TypeInt
		case len(kinds) == 1 && kinds[KindFloat],
			len(kinds) == 2 && kinds[KindFloat] && kinds[KindInt]:
			typ = TypeFloat
		case len(kinds) == 1 && kinds[KindBool]:
			typ = TypeBool
		case len(kinds) == 1 && kinds[KindDate]:
			typ = TypeDate
		}
		out[c] = Field{Name: col, Type: typ}
	}
	return out
}

// Convert converts a value into the declared type, Missing always stays Missing.
func Convert(v Value, typ FieldType) (Value, error) {
	if v.IsMissing() {
		return v, nil
	}

	switch typ {
	case TypeString:
		return String(v.Text()), nil

	case TypeFloat:
		switch v.kind {
		case KindFloat:
			return v, nil
		case KindInt:
			return Float(float64(v.i)), nil
		case KindString:
			f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
			if err != nil {
				return Missing(), fmt.Errorf("%s is not a float", v)
			}
			return Float(f), nil
		}

	case TypeInt:
		switch v.kind {
		case KindInt:
			return v, nil
		case KindFloat:
			if v.f == math.Trunc(v.f) && v.f >= -(1<<63) && v.f < 1<<63 {
				return Int(int64(v.f)), nil
			}
		case KindString:
			i, err := strconv.ParseInt(strings.TrimSpace(v.s), 10, 64)
			if err == nil {
				return Int(i), nil
			}
		case KindBool:
			if v.b {
				return Int(1), nil
			}
			return Int(0), nil
		}
		return Missing(), fmt.Errorf("%s is not an integer", v)

	case TypeDate:
		switch v.kind {
		case KindDate:
			return v, nil
		case KindString:
			d, err := civil.ParseDate(strings.TrimSpace(v.s))
			if err == nil {
				return Date(d), nil
			}
		}
		return Missing(), fmt.Errorf("%s is not a date", v)

	case TypeBool:
		switch v.kind {
		case KindBool:
			return v, nil
		case KindString:
			b, err := strconv.ParseBool(strings.TrimSpace(v.s))
			if err == nil {
				return Bool(b), nil
			}
		}
		return Missing(), fmt.Errorf("%s is not a bool", v)

	default:
		return Missing(), fmt.Errorf("unknown field type %q", typ)
	}

	return Missing(), fmt.Errorf("cannot convert %s to %s", v.kind, typ)
}
