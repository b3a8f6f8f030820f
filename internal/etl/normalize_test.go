package etl

import (
	"testing"

	"rosteretl/internal/table"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestNormalizeColumnName(t *testing.T) {
	testCases := []struct {
		raw      string
		expected string
		ok       bool
	}{
		{raw: " \ufeffDirect Manager ", expected: "Direct_Manager", ok: true},
		{raw: "Pledge  Class", expected: "Pledge_Class", ok: true},
		{raw: "Academic\tYear", expected: "Academic_Year", ok: true},
		{raw: "Expected Grad.", expected: "Expected_Grad", ok: true},
		{raw: "userid", expected: "userid", ok: true},
		{raw: "week-end (date)", expected: "weekend_date", ok: true},
		{raw: "\ufeff\ufeffName", expected: "Name", ok: true},
		{raw: "   ", expected: "", ok: false},
		{raw: "?!#", expected: "", ok: false},
		{raw: "", expected: "", ok: false},
	}

	for _, tc := range testCases {
		name, ok := NormalizeColumnName(tc.raw)
		require.Equal(t, tc.expected, name, "raw: %q", tc.raw)
		require.Equal(t, tc.ok, ok, "raw: %q", tc.raw)
	}
}

func TestNormalizeColumns(t *testing.T) {
	input := table.Table{
		Columns: []string{"\ufeffuserid", " Direct Manager ", "???", "Major"},
		Rows: [][]table.Value{
			{table.Int(1), table.String("dana"), table.String("junk"), table.String("CS")},
			{table.Int(2), table.Missing(), table.String("junk"), table.String("EE")},
		},
	}

	res, err := NormalizeColumns(input)
	require.NoError(t, err)

	expected := table.Table{
		Columns: []string{"userid", "Direct_Manager", "Major"},
		Rows: [][]table.Value{
			{table.Int(1), table.String("dana"), table.String("CS")},
			{table.Int(2), table.Missing(), table.String("EE")},
		},
	}
	diff := cmp.Diff(expected, res)
	if diff != "" {
		t.Fatal(diff)
	}

	// the input is left untouched
	require.Equal(t, "\ufeffuserid", input.Columns[0])
	require.Len(t, input.Rows[0], 4)
}

func TestNormalizeColumnsDuplicate(t *testing.T) {
	input := table.New("Direct Manager", "Direct_Manager")

	_, err := NormalizeColumns(input)
	var dupErr *DuplicateColumnError
	require.ErrorAs(t, err, &dupErr)
	require.Equal(t, "Direct_Manager", dupErr.Name)
	require.Equal(t, "Direct Manager", dupErr.First)
	require.Equal(t, "Direct_Manager", dupErr.Other)
}

func TestNormalizeColumnsIdempotent(t *testing.T) {
	input := table.New(" Pledge Class", "Major ", "\ufeffuserid")
	once, err := NormalizeColumns(input)
	require.NoError(t, err)
	twice, err := NormalizeColumns(once)
	require.NoError(t, err)
	require.Equal(t, once.Columns, twice.Columns)
}
