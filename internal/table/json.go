package table

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

var ErrNotArrayOfObjects = errors.New("expected a JSON array of objects")

// FromJSON builds a table out of a JSON array of objects.
//
// Columns are the union of every object's keys in the order they are first
// seen, objects lacking a key get Missing in that column.
func FromJSON(data []byte) (Table, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return Table{}, fmt.Errorf("decode json: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return Table{}, ErrNotArrayOfObjects
	}

	var columns []string
	index := map[string]int{}
	var objects []map[int]Value

	for dec.More() {
		obj, err := decodeObject(dec, &columns, index)
		if err != nil {
			return Table{}, fmt.Errorf("decode object %d: %w", len(objects), err)
		}
		objects = append(objects, obj)
	}
	if _, err := dec.Token(); err != nil {
		return Table{}, fmt.Errorf("decode json: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Table{}, fmt.Errorf("decode json: trailing data after array")
	}

	out := Table{Columns: columns, Rows: make([][]Value, len(objects))}
	for i, obj := range objects {
		row := make([]Value, len(columns))
		for col, v := range obj {
			row[col] = v
		}
		out.Rows[i] = row
	}
	return out, nil
}

func decodeObject(dec *json.Decoder, columns *[]string, index map[string]int) (map[int]Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, ErrNotArrayOfObjects
	}

	obj := map[int]Value{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", keyTok)
		}

		var raw json.RawMessage
		err = dec.Decode(&raw)
		if err != nil {
			return nil, fmt.Errorf("decode %q: %w", key, err)
		}
		value, err := decodeScalar(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %q: %w", key, err)
		}

		col, seen := index[key]
		if !seen {
			col = len(*columns)
			index[key] = col
			*columns = append(*columns, key)
		}
		obj[col] = value
	}
	_, err = dec.Token()
	return obj, err
}

func decodeScalar(raw json.RawMessage) (Value, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Missing(), nil
	}

	switch raw[0] {
	case 'n':
		return Missing(), nil
	case 't', 'f':
		var b bool
		err := json.Unmarshal(raw, &b)
		return Bool(b), err
	case '"':
		var s string
		err := json.Unmarshal(raw, &s)
		return String(s), err
	case '[', '{':
		var compact bytes.Buffer
		err := json.Compact(&compact, raw)
		return String(compact.String()), err
	}

	literal := string(raw)
	if i, err := strconv.ParseInt(literal, 10, 64); err == nil {
		return Int(i), nil
	}
	f, err := strconv.ParseFloat(literal, 64)
	if err != nil {
		return Missing(), fmt.Errorf("invalid number %s", literal)
	}
	return Float(f), nil
}

// ToJSON renders the table back into an array of objects, used for
// debugging output. Missing renders as null.
func (t Table) ToJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i := range t.Rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j, col := range t.Columns {
			if j > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(col)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			val, err := json.Marshal(JSONValue(t.Rows[i][j]))
			if err != nil {
				return nil, err
			}
			buf.Write(val)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// JSONValue converts a value into something encoding/json can marshal.
// Infinite floats are rendered as strings since JSON has no literal for them.
func JSONValue(v Value) any {
	switch v.kind {
	case KindString:
		return v.s
	case KindFloat:
		if math.IsInf(v.f, 1) {
			return "Infinity"
		}
		if math.IsInf(v.f, -1) {
			return "-Infinity"
		}
		return v.f
	case KindInt:
		return v.i
	case KindBool:
		return v.b
	case KindDate:
		return v.d.String()
	}
	return nil
}
