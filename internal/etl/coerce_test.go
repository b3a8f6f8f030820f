package etl

import (
	"math"
	"testing"

	"rosteretl/internal/table"

	"cloud.google.com/go/civil"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestSafeFloat(t *testing.T) {
	testCases := []struct {
		in       table.Value
		expected table.Value
	}{
		{table.String("12.5"), table.Float(12.5)},
		{table.String(" 3 "), table.Float(3)},
		{table.Int(12), table.Float(12)},
		{table.Float(0.25), table.Float(0.25)},
		{table.String("abc"), table.Missing()},
		{table.String(""), table.Missing()},
		{table.String("NaN"), table.Missing()},
		{table.Missing(), table.Missing()},
		{table.Bool(true), table.Float(1)},
		{table.Bool(false), table.Float(0)},
		{table.Date(civil.Date{Year: 2024, Month: 1, Day: 1}), table.Missing()},
	}

	for _, tc := range testCases {
		res := SafeFloat(tc.in)
		require.True(t, tc.expected.Equal(res), "SafeFloat(%s) = %s, expected %s", tc.in, res, tc.expected)

		// converting the output again changes nothing
		again := SafeFloat(res)
		require.True(t, res.Equal(again), "SafeFloat is not idempotent on %s", tc.in)
	}

	inf := SafeFloat(table.String("inf"))
	f, ok := inf.Number()
	require.True(t, ok)
	require.True(t, math.IsInf(f, 1))
}

func TestCoerceInt(t *testing.T) {
	testCases := []struct {
		in       table.Value
		expected table.Value
	}{
		{table.String("7"), table.Int(7)},
		{table.String(" 7 "), table.Int(7)},
		{table.String("7.0"), table.Int(7)},
		{table.Float(7), table.Int(7)},
		{table.Int(0), table.Int(0)},
		{table.String("n/a"), table.Missing()},
		{table.String("7.5"), table.Missing()},
		{table.Float(7.5), table.Missing()},
		{table.Bool(true), table.Missing()},
		{table.Missing(), table.Missing()},
		{table.String("9223372036854775807"), table.Int(math.MaxInt64)},
		{table.String("-9223372036854775808"), table.Int(math.MinInt64)},
		{table.String("9223372036854775808"), table.Missing()},
		{table.Float(1 << 63), table.Missing()},
		{table.Float(-(1 << 63)), table.Int(math.MinInt64)},
		{table.Float(1e300), table.Missing()},
	}

	for _, tc := range testCases {
		res := CoerceInt(tc.in)
		require.True(t, tc.expected.Equal(res), "CoerceInt(%s) = %s, expected %s", tc.in, res, tc.expected)
		require.True(t, res.Equal(CoerceInt(res)))
	}

	// missing and zero stay distinct
	require.False(t, CoerceInt(table.String("n/a")).Equal(table.Int(0)))
}

func TestParseDate(t *testing.T) {
	expected := table.Date(civil.Date{Year: 2024, Month: 3, Day: 8})
	for _, in := range []string{
		"2024-03-08",
		"2024-03-08T17:30:00Z",
		"2024-03-08T17:30:00.123+02:00",
		"2024-03-08 17:30:00",
		"03/08/2024",
		"3/8/2024",
		"2024/03/08",
	} {
		res := ParseDate(table.String(in))
		require.True(t, expected.Equal(res), "ParseDate(%q) = %s", in, res)
		require.True(t, res.Equal(ParseDate(res)))
	}

	require.True(t, ParseDate(table.String("next friday")).IsMissing())
	require.True(t, ParseDate(table.Int(20240308)).IsMissing())
	require.True(t, ParseDate(table.Missing()).IsMissing())
}

func TestCoercerApply(t *testing.T) {
	work := table.Table{
		Columns: []string{"userid", "Fundraising", "Bortherhood", "Capacity", "week_end_date"},
		Rows: [][]table.Value{
			{table.Int(1), table.String("12.5"), table.String("2"), table.String("7"), table.String("2024-03-08")},
			{table.Int(2), table.String("abc"), table.Int(3), table.String("n/a"), table.String("soon")},
		},
	}
	c := Coercer{
		Renames:        map[string]string{"Bortherhood": "Brotherhood"},
		DateColumns:    []string{"week_end_date"},
		NumericColumns: []string{"Fundraising", "Brotherhood"},
		IntegerColumns: []string{"Capacity"},
	}

	res, err := c.Apply(work)
	require.NoError(t, err)

	// the misspelled source is kept untouched next to the converted copy
	expected := table.Table{
		Columns: []string{"userid", "Fundraising", "Bortherhood", "Capacity", "week_end_date", "Brotherhood"},
		Rows: [][]table.Value{
			{table.Int(1), table.Float(12.5), table.String("2"), table.Int(7), table.Date(civil.Date{Year: 2024, Month: 3, Day: 8}), table.Float(2)},
			{table.Int(2), table.Missing(), table.Int(3), table.Missing(), table.Missing(), table.Float(3)},
		},
	}
	diff := cmp.Diff(expected, res)
	if diff != "" {
		t.Fatal(diff)
	}

	// the input is not modified
	require.Len(t, work.Columns, 5)
	require.Len(t, work.Rows[0], 5)
	require.True(t, table.String("12.5").Equal(work.Rows[0][1]))

	again, err := c.Apply(res)
	require.NoError(t, err)
	diff = cmp.Diff(res, again)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestCoercerMissingColumn(t *testing.T) {
	work := table.New("userid", "Fundraising", "Brotherhood")
	c := Coercer{NumericColumns: []string{"Bortherhood"}}

	_, err := c.Apply(work)
	var missing *MissingColumnError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, "Bortherhood", missing.Column)
	require.Equal(t, "Brotherhood", missing.Suggestion)
	require.Contains(t, err.Error(), `did you mean "Brotherhood"`)

	_, err = Coercer{DateColumns: []string{"zzz"}}.Apply(work)
	require.ErrorAs(t, err, &missing)
	require.Empty(t, missing.Suggestion)
}

func TestCoercerRenameOverwritesTarget(t *testing.T) {
	work := table.Table{
		Columns: []string{"Bortherhood", "Brotherhood"},
		Rows: [][]table.Value{
			{table.String("4"), table.String("stale")},
		},
	}
	c := Coercer{
		Renames:        map[string]string{"Bortherhood": "Brotherhood"},
		NumericColumns: []string{"Brotherhood"},
	}
	res, err := c.Apply(work)
	require.NoError(t, err)
	require.Equal(t, []string{"Bortherhood", "Brotherhood"}, res.Columns)
	require.True(t, table.String("4").Equal(res.Rows[0][0]))
	require.True(t, table.Float(4).Equal(res.Rows[0][1]))

	// a table that already carries only the corrected name is accepted
	fixed := table.New("Brotherhood")
	_, err = c.Apply(fixed)
	require.NoError(t, err)
}
