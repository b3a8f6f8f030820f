package table

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestFromJSON(t *testing.T) {
	body := []byte(`[
		{"userid": 1, "Name": "alice", "Score": 1.5, "Active": true},
		{"Name": "bob", "userid": "2", "Extra": {"a": [1, 2]}},
		{"userid": null}
	]`)

	res, err := FromJSON(body)
	require.NoError(t, err)

	expected := Table{
		Columns: []string{"userid", "Name", "Score", "Active", "Extra"},
		Rows: [][]Value{
			{Int(1), String("alice"), Float(1.5), Bool(true), Missing()},
			{String("2"), String("bob"), Missing(), Missing(), String(`{"a":[1,2]}`)},
			{Missing(), Missing(), Missing(), Missing(), Missing()},
		},
	}
	diff := cmp.Diff(expected, res)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestFromJSONNumbers(t *testing.T) {
	res, err := FromJSON([]byte(`[{"a": 12}, {"a": 12.0}, {"a": 1e3}, {"a": -4}]`))
	require.NoError(t, err)

	col, ok := res.Column("a")
	require.True(t, ok)
	require.Equal(t, []Value{Int(12), Float(12), Float(1000), Int(-4)}, col)
}

func TestFromJSONEmpty(t *testing.T) {
	res, err := FromJSON([]byte(`[]`))
	require.NoError(t, err)
	require.True(t, res.Empty())
	require.Len(t, res.Columns, 0)
}

func TestFromJSONRejectsNonArrays(t *testing.T) {
	testCases := []string{
		`{"roster": []}`,
		`[1, 2, 3]`,
		`"text"`,
		`[{"a": 1}] trailing`,
		`[{"a": 1}`,
	}

	for _, body := range testCases {
		_, err := FromJSON([]byte(body))
		require.Error(t, err, body)
	}

	_, err := FromJSON([]byte(`[1]`))
	require.True(t, errors.Is(err, ErrNotArrayOfObjects))
}

func TestToJSON(t *testing.T) {
	tbl := New("userid", "score")
	require.NoError(t, tbl.Append(Int(1), Missing()))
	require.NoError(t, tbl.Append(String("2"), Float(2.5)))

	out, err := tbl.ToJSON()
	require.NoError(t, err)
	require.JSONEq(t, `[{"userid":1,"score":null},{"userid":"2","score":2.5}]`, string(out))
}
