package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alignBase = time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

func hour(n int) time.Time { return alignBase.Add(time.Duration(n) * time.Hour) }

func TestAlign(t *testing.T) {
	t.Run("duplicate timestamps collapse to their mean", func(t *testing.T) {
		series := map[string][]Reading{
			"A": {
				{Time: hour(0), Depth: 3.0},
				{Time: hour(0), Depth: 5.0},
				{Time: hour(1), Depth: 2.0},
			},
		}
		aligned, err := Aligner{}.Align(series)
		require.NoError(t, err)

		require.Equal(t, 2, aligned.Len())
		assert.InDelta(t, 4.0, aligned.Columns["A"][0], 1e-9)
		assert.InDelta(t, 2.0, aligned.Columns["A"][1], 1e-9)
	})

	t.Run("union axis spans all coverage without gaps", func(t *testing.T) {
		series := map[string][]Reading{
			"B": {
				{Time: hour(1), Depth: 1.0},
				{Time: hour(2), Depth: 2.0},
				{Time: hour(3), Depth: 3.0},
			},
			"A": {
				{Time: hour(0), Depth: 10.0},
				// hour 1 missing
				{Time: hour(2), Depth: 12.0},
			},
		}
		aligned, err := Aligner{Policy: AxisUnion}.Align(series)
		require.NoError(t, err)

		require.Equal(t, 4, aligned.Len())
		for i := 1; i < len(aligned.Times); i++ {
			assert.Equal(t, time.Hour, aligned.Times[i].Sub(aligned.Times[i-1]))
		}
		assert.Equal(t, []string{"A", "B"}, aligned.StationIDs)

		colA := aligned.Columns["A"]
		assert.InDelta(t, 10.0, colA[0], 1e-9)
		assert.True(t, math.IsNaN(colA[1]))
		assert.InDelta(t, 12.0, colA[2], 1e-9)
		assert.True(t, math.IsNaN(colA[3]))

		colB := aligned.Columns["B"]
		assert.True(t, math.IsNaN(colB[0]))
		assert.InDelta(t, 1.0, colB[1], 1e-9)
		assert.InDelta(t, 3.0, colB[3], 1e-9)
	})

	t.Run("intersection axis keeps only shared hours", func(t *testing.T) {
		series := map[string][]Reading{
			"A": {{Time: hour(0), Depth: 1}, {Time: hour(2), Depth: 2}},
			"B": {{Time: hour(1), Depth: 3}, {Time: hour(3), Depth: 4}},
		}
		aligned, err := Aligner{Policy: AxisIntersection}.Align(series)
		require.NoError(t, err)

		require.Equal(t, 2, aligned.Len())
		assert.Equal(t, hour(1), aligned.Times[0])
		assert.Equal(t, hour(2), aligned.Times[1])
	})

	t.Run("silent station gets an all-NaN column", func(t *testing.T) {
		series := map[string][]Reading{
			"A": {{Time: hour(0), Depth: 1}, {Time: hour(1), Depth: 2}},
			"B": {},
		}
		aligned, err := Aligner{}.Align(series)
		require.NoError(t, err)

		require.Equal(t, []string{"A", "B"}, aligned.StationIDs)
		for _, v := range aligned.Columns["B"] {
			assert.True(t, math.IsNaN(v))
		}
	})

	t.Run("zero stations", func(t *testing.T) {
		_, err := Aligner{}.Align(map[string][]Reading{})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrEmptyInput)
	})

	t.Run("all stations empty", func(t *testing.T) {
		_, err := Aligner{}.Align(map[string][]Reading{"A": {}, "B": {}})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrEmptyInput)
	})

	t.Run("disjoint coverage under intersection", func(t *testing.T) {
		series := map[string][]Reading{
			"A": {{Time: hour(0), Depth: 1}, {Time: hour(1), Depth: 2}},
			"B": {{Time: hour(5), Depth: 3}, {Time: hour(6), Depth: 4}},
		}
		_, err := Aligner{Policy: AxisIntersection}.Align(series)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrEmptyInput)
		assert.Contains(t, err.Error(), "overlap")
	})

	t.Run("result does not alias the input", func(t *testing.T) {
		series := map[string][]Reading{
			"A": {{Time: hour(0), Depth: 1}},
		}
		first, err := Aligner{}.Align(series)
		require.NoError(t, err)
		second, err := Aligner{}.Align(series)
		require.NoError(t, err)

		first.Columns["A"][0] = 99
		assert.InDelta(t, 1.0, second.Columns["A"][0], 1e-9)
	})
}
