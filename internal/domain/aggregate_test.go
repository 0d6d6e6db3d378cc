package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate(t *testing.T) {
	t.Run("single fuelbed", func(t *testing.T) {
		c, err := Aggregate([]ObservationSet{{{FuelbedID: 24, Count: 1}}}, 0)
		require.NoError(t, err)

		want := Composition{
			Fuelbeds:  Fuelbeds{"24": {Percent: 100.0, GridCells: 1}},
			GridCells: 1,
			Units:     AreaUnits,
		}
		assert.Empty(t, cmp.Diff(want, c))
	})

	t.Run("mixed fuelbeds", func(t *testing.T) {
		set := ObservationSet{
			{FuelbedID: 900, Count: 6},
			{FuelbedID: 41, Count: 1},
			{FuelbedID: 60, Count: 3},
		}
		c, err := Aggregate([]ObservationSet{set}, 2700)
		require.NoError(t, err)

		want := Composition{
			Fuelbeds: Fuelbeds{
				"900": {Percent: 60.0, GridCells: 6},
				"41":  {Percent: 10.0, GridCells: 1},
				"60":  {Percent: 30.0, GridCells: 3},
			},
			GridCells: 10,
			Area:      2700,
			Units:     AreaUnits,
		}
		assert.Empty(t, cmp.Diff(want, c))
	})

	t.Run("duplicate ids add up", func(t *testing.T) {
		set := ObservationSet{{FuelbedID: 41, Count: 1}, {FuelbedID: 41, Count: 3}}
		c, err := Aggregate([]ObservationSet{set}, 0)
		require.NoError(t, err)
		assert.Equal(t, Fuelbed{Percent: 100, GridCells: 4}, c.Fuelbeds["41"])
		assert.Equal(t, 4, c.GridCells)
	})

	t.Run("zero counts are skipped", func(t *testing.T) {
		set := ObservationSet{{FuelbedID: 41, Count: 2}, {FuelbedID: 52, Count: 0}}
		c, err := Aggregate([]ObservationSet{set}, 0)
		require.NoError(t, err)
		assert.NotContains(t, c.Fuelbeds, "52")
	})

	t.Run("no cells", func(t *testing.T) {
		_, err := Aggregate(nil, 0)
		require.ErrorIs(t, err, ErrNoData)

		_, err = Aggregate([]ObservationSet{{{FuelbedID: 41, Count: 0}}}, 100)
		require.ErrorIs(t, err, ErrNoData)
	})

	t.Run("negative count", func(t *testing.T) {
		_, err := Aggregate([]ObservationSet{{{FuelbedID: 41, Count: -1}}}, 0)
		require.ErrorIs(t, err, ErrInvalidObservation)
	})
}

func TestAggregate_Additivity(t *testing.T) {
	a := ObservationSet{{FuelbedID: 41, Count: 5}, {FuelbedID: 900, Count: 2}, {FuelbedID: 13, Count: 1}}
	b := ObservationSet{{FuelbedID: 13, Count: 4}, {FuelbedID: 52, Count: 7}}

	split, err := Aggregate([]ObservationSet{a, b}, 0)
	require.NoError(t, err)
	reversed, err := Aggregate([]ObservationSet{b, a}, 0)
	require.NoError(t, err)
	merged, err := Aggregate([]ObservationSet{MergeObservationSets(a, b)}, 0)
	require.NoError(t, err)

	approx := cmpopts.EquateApprox(0, 1e-12)
	assert.Empty(t, cmp.Diff(merged, split, approx))
	assert.Empty(t, cmp.Diff(merged, reversed, approx))
	assert.Equal(t, 19, merged.GridCells)
}

func TestMergeObservationSets(t *testing.T) {
	got := MergeObservationSets(
		ObservationSet{{FuelbedID: 41, Count: 1}, {FuelbedID: 13, Count: 2}},
		ObservationSet{{FuelbedID: 13, Count: 3}, {FuelbedID: 7, Count: 1}},
	)
	want := ObservationSet{{FuelbedID: 41, Count: 1}, {FuelbedID: 13, Count: 5}, {FuelbedID: 7, Count: 1}}
	assert.Equal(t, want, got)
}
