package listing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(listings []Listing) []int64 {
	out := make([]int64, len(listings))
	for i, l := range listings {
		out[i] = l.ID
	}
	return out
}

func TestSort(t *testing.T) {
	fixture := func() []Listing {
		return []Listing{
			{ID: 1, Score: 40, Price: Ptr(1500.0), Distance: Ptr(3.0), DateAvailable: "August 1, 2025", Bedrooms: Ptr(2)},
			{ID: 2, Score: 80, Price: nil, Distance: Ptr(1.0), DateAvailable: "Not Listed", Bedrooms: Ptr(3)},
			{ID: 3, Score: 60, Price: Ptr(900.0), Distance: nil, DateAvailable: "2025-07-15"},
		}
	}

	tests := []struct {
		key  string
		want []int64
	}{
		{"", []int64{2, 3, 1}},
		{SortScore, []int64{2, 3, 1}},
		{SortPrice, []int64{3, 1, 2}},
		{SortDistance, []int64{2, 1, 3}},
		{SortDateAvailable, []int64{3, 1, 2}},
		{SortBedrooms, []int64{2, 1, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			listings := fixture()
			require.NoError(t, Sort(listings, tt.key))
			assert.Equal(t, tt.want, ids(listings))
		})
	}
}

func TestSortCostAlias(t *testing.T) {
	listings := []Listing{
		{ID: 1, CostPerOccupant: Ptr(700.0)},
		{ID: 2, CostPerOccupant: Ptr(500.0)},
	}
	require.NoError(t, Sort(listings, "cost_per_roommate"))
	assert.Equal(t, []int64{2, 1}, ids(listings))
}

func TestSortUnknownKey(t *testing.T) {
	err := Sort([]Listing{{ID: 1}}, "color")
	assert.ErrorIs(t, err, ErrUnknownSortKey)
}

func TestSortKeys(t *testing.T) {
	keys := SortKeys()
	assert.Contains(t, keys, SortScore)
	assert.Contains(t, keys, SortCostPerArea)
	assert.IsIncreasing(t, keys)
}
