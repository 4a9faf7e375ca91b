package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exampleTable() *RawTable {
	return NewRawTableFromStrings("example", []string{"A", "B", "C"}, [][]string{
		{"1", "2", "5"},
		{"2", "4", "3"},
		{"3", "6", "1"},
		{"4", "8", "x"},
	})
}

func TestRunExample(t *testing.T) {
	res, err := Run(context.Background(), exampleTable(), DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "example", res.Name)
	assert.Equal(t, SanitizeStats{InputRows: 4, DroppedRows: 1}, res.Stats)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "dropped 1/4 rows")

	want := map[Measure][]FilteredPair{
		Linear:    {{"A", "B", 1}, {"A", "C", -1}, {"B", "C", -1}},
		Rank:      {{"A", "B", 1}, {"A", "C", -1}, {"B", "C", -1}},
		Nonlinear: {{"A", "B", 1}, {"A", "C", 1}, {"B", "C", 1}},
	}
	for m, pairs := range want {
		assert.Equal(t, pairs, res.FilteredPairs(m), m)
		require.NotNil(t, res.Matrix(m))
	}
}

func TestRunConstantColumnNeverFiltered(t *testing.T) {
	raw := NewRawTableFromStrings("const", []string{"A", "D"}, [][]string{
		{"1", "5"}, {"2", "5"}, {"3", "5"}, {"4", "5"},
	})
	res, err := Run(context.Background(), raw, Config{Threshold: 1e-6})
	require.NoError(t, err)
	for _, m := range AllMeasures {
		assert.Empty(t, res.FilteredPairs(m), m)
	}
}

func TestRunMaxRows(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Limits.MaxRows = 3
	res, err := Run(context.Background(), exampleTable(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Table.Rows())
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "processed only 3/4 rows due to MaxRows", res.Warnings[0])
}

func TestRunInvalidThresholdFailsFirst(t *testing.T) {
	_, err := Run(context.Background(), nil, Config{Threshold: 1.5})
	var te *InvalidThresholdError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 1.5, te.Value)
}

func TestRunEmptyResult(t *testing.T) {
	raw := NewRawTableFromStrings("bad", []string{"A"}, [][]string{{"x"}, {"1"}})
	_, err := Run(context.Background(), raw, DefaultConfig())
	var ee *EmptyResultError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, 1, ee.Rows)
}

func TestRunRepeatedMeasures(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Measures = []Measure{Rank, Linear, Linear, Rank}
	res, err := Run(context.Background(), exampleTable(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []Measure{Linear, Rank}, res.Measures)
	assert.Len(t, res.Matrices, 2)
	assert.Len(t, res.Pairs, 2)
}
