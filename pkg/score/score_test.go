package score

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/elonfeng/rentradar/pkg/listing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		value   float64
		lo, hi  float64
		reverse bool
		want    float64
	}{
		{"min", 10, 10, 20, false, 0},
		{"max", 20, 10, 20, false, 100},
		{"middle", 15, 10, 20, false, 50},
		{"reverse min", 10, 10, 20, true, 100},
		{"reverse max", 20, 10, 20, true, 0},
		{"degenerate", 7, 3, 3, false, 50},
		{"degenerate reverse", -4, 3, 3, true, 50},
		{"extrapolates above", 30, 10, 20, false, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Normalize(tt.value, tt.lo, tt.hi, tt.reverse), 1e-9)
		})
	}
}

func TestNormalizeStaysInBounds(t *testing.T) {
	lo, hi := 850.0, 2400.0
	for v := lo; v <= hi; v += 77.5 {
		for _, rev := range []bool{false, true} {
			got := Normalize(v, lo, hi, rev)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 100.0)
		}
	}
}

func TestRange(t *testing.T) {
	var r Range
	lo, hi := r.Bounds()
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 1.0, hi)
	assert.Equal(t, 0.0, r.Mean())

	for _, v := range []float64{4, 1, 7} {
		r.Add(v)
	}
	lo, hi = r.Bounds()
	assert.Equal(t, 1.0, lo)
	assert.Equal(t, 7.0, hi)
	assert.Equal(t, 4.0, r.Mean())
	assert.Equal(t, 3, r.Count)
	assert.InDelta(t, 50, r.Normalize(4, false), 1e-9)
}

func TestCostPerOccupant(t *testing.T) {
	p := listing.Ptr(1200.0)
	u := listing.Ptr(150.0)

	tests := []struct {
		name      string
		price     *float64
		occupants *int
		utility   *float64
		want      float64
		wantOK    bool
	}{
		{"alone with zero", p, listing.Ptr(0), u, 1350, true},
		{"alone with nil", p, nil, u, 1350, true},
		{"negative occupants", p, listing.Ptr(-1), nil, 1200, true},
		{"split", p, listing.Ptr(3), u, 450, true},
		{"no utility", p, listing.Ptr(2), nil, 600, true},
		{"missing price", nil, listing.Ptr(2), u, 0, false},
		{"missing price alone", nil, nil, nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CostPerOccupant(tt.price, tt.occupants, tt.utility)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestCostPerArea(t *testing.T) {
	got, ok := CostPerArea(listing.Ptr(1000.0), listing.Ptr(750))
	require.True(t, ok)
	assert.Equal(t, 1.33, got)

	_, ok = CostPerArea(listing.Ptr(1000.0), nil)
	assert.False(t, ok)
	_, ok = CostPerArea(listing.Ptr(1000.0), listing.Ptr(0))
	assert.False(t, ok)
	_, ok = CostPerArea(nil, listing.Ptr(750))
	assert.False(t, ok)
}

func TestWeights(t *testing.T) {
	w := DefaultWeights()
	assert.InDelta(t, 1.0, w.Sum(), 1e-9)
	assert.InDelta(t, 0.0, w.RatingWeight(), 1e-9)
	assert.NoError(t, w.Validate())

	w.Distance = 0
	assert.InDelta(t, 0.1, w.RatingWeight(), 1e-9)

	w.Sqft = -0.1
	assert.Error(t, w.Validate())

	w = DefaultWeights()
	w.Rent = math.NaN()
	assert.Error(t, w.Validate())

	w = Weights{Rent: 2, Sqft: 2}
	assert.NoError(t, w.Validate())
	assert.Equal(t, 0.0, w.RatingWeight())
}

// complete returns a listing with every scored attribute present.
func complete(id int64, price float64, area int) listing.Listing {
	return listing.Listing{
		ID:        id,
		Address:   "addr",
		Price:     listing.Ptr(price),
		Area:      listing.Ptr(area),
		Bedrooms:  listing.Ptr(2),
		Bathrooms: listing.Ptr(1.0),
		Distance:  listing.Ptr(3.0),
		Rating:    listing.Ptr(6),
		Occupants: listing.Ptr(1),
	}
}

func TestAssignEmpty(t *testing.T) {
	e := NewEngine(DefaultWeights(), Options{})

	rep := e.Assign(nil)
	assert.Equal(t, 0, rep.Total)
	assert.Equal(t, 1.0, rep.Ranges.Rent.Max)

	rep = e.Assign([]listing.Listing{})
	assert.Equal(t, 0, rep.Total)
}

func TestAssignSingleListingUsesRating(t *testing.T) {
	e := NewEngine(DefaultWeights(), Options{})
	listings := []listing.Listing{{
		ID:         1,
		Price:      listing.Ptr(1000.0),
		Rating:     listing.Ptr(7),
		Components: &listing.Components{Rent: 9},
	}}

	e.Assign(listings)

	assert.Equal(t, 70.0, listings[0].Score)
	assert.Nil(t, listings[0].Components)
	require.NotNil(t, listings[0].CostPerOccupant)
	assert.Equal(t, 1000.0, *listings[0].CostPerOccupant)
	assert.Nil(t, listings[0].CostPerArea)
}

func TestAssignSingleListingWithoutRating(t *testing.T) {
	e := NewEngine(DefaultWeights(), Options{})
	listings := []listing.Listing{{ID: 1, Rating: listing.Ptr(11), Score: 33}}

	e.Assign(listings)
	assert.Equal(t, 0.0, listings[0].Score)
}

func TestAssignCheaperScoresHigher(t *testing.T) {
	e := NewEngine(DefaultWeights(), Options{})
	listings := []listing.Listing{
		complete(1, 1000, 900),
		complete(2, 2000, 900),
	}

	rep := e.Assign(listings)

	assert.GreaterOrEqual(t, listings[0].Score, listings[1].Score)
	// rent is the only spread; the rest sit at the neutral midpoint.
	assert.Equal(t, 65.0, listings[0].Score)
	assert.Equal(t, 35.0, listings[1].Score)
	require.NotNil(t, listings[0].Components)
	assert.Equal(t, 30.0, listings[0].Components.Rent)
	assert.Equal(t, 0.0, listings[1].Components.Rent)
	assert.Equal(t, 10.0, listings[0].Components.Sqft)
	assert.Equal(t, 2, rep.Scorable)
	assert.Equal(t, 1000.0, rep.Ranges.Rent.Min)
	assert.Equal(t, 2000.0, rep.Ranges.Rent.Max)
}

func TestAssignMissingAreaIsExcluded(t *testing.T) {
	e := NewEngine(DefaultWeights(), Options{})
	missing := complete(3, 1500, 0)
	missing.Area = nil
	listings := []listing.Listing{
		complete(1, 1000, 600),
		complete(2, 1200, 1200),
		missing,
	}

	rep := e.Assign(listings)

	assert.Equal(t, 2, rep.Scorable)
	assert.Equal(t, 1, rep.Unscorable)
	assert.Equal(t, 600.0, rep.Ranges.Sqft.Min)
	assert.Equal(t, 1200.0, rep.Ranges.Sqft.Max)
	// the listing missing area contributes the subset mean of 900.
	assert.Equal(t, 900.0, rep.Means.Sqft)

	got := listings[2]
	assert.Equal(t, 0.0, got.Score)
	assert.Nil(t, got.Components)
	assert.Nil(t, got.CostPerArea)
	require.NotNil(t, got.CostPerOccupant)
	assert.Equal(t, 1500.0, *got.CostPerOccupant)

	data, err := json.Marshal(got)
	require.NoError(t, err)
	var wire map[string]any
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.Equal(t, listing.NotAvailable, wire["cost_per_sqft"])
	assert.NotContains(t, wire, "components")
}

func TestAssignNothingScorable(t *testing.T) {
	e := NewEngine(DefaultWeights(), Options{})
	a := complete(1, 1000, 600)
	a.Rating = nil
	b := complete(2, 1100, 700)
	b.Distance = nil

	listings := []listing.Listing{a, b}
	rep := e.Assign(listings)

	assert.Equal(t, 0, rep.Scorable)
	assert.Equal(t, 2, rep.Unscorable)
	assert.Equal(t, 0.0, rep.Ranges.Sqft.Min)
	assert.Equal(t, 1.0, rep.Ranges.Sqft.Max)
	// b has no distance and the empty subset mean is 0.
	assert.Equal(t, 1.5, rep.Means.Distance)
	assert.Equal(t, 650.0, rep.Means.Sqft)
	for _, l := range listings {
		assert.Equal(t, 0.0, l.Score)
		assert.NotNil(t, l.CostPerArea)
	}
}

func TestAssignIsIdempotent(t *testing.T) {
	e := NewEngine(DefaultWeights(), Options{RatingAxis: true})
	listings := []listing.Listing{
		complete(1, 1000, 600),
		complete(2, 1450, 1100),
		complete(3, 1730, 880),
	}
	listings[1].Rating = listing.Ptr(9)
	listings[2].Distance = listing.Ptr(12.5)

	e.Assign(listings)
	first := make([]listing.Listing, len(listings))
	copy(first, listings)
	firstScores := []float64{first[0].Score, first[1].Score, first[2].Score}

	e.Assign(listings)
	assert.Equal(t, firstScores, []float64{listings[0].Score, listings[1].Score, listings[2].Score})
	assert.Equal(t, first, listings)
}

func TestAssignZeroWeightContributesNothing(t *testing.T) {
	w := DefaultWeights()
	w.Sqft = 0
	e := NewEngine(w, Options{})
	listings := []listing.Listing{
		complete(1, 1000, 400),
		complete(2, 1000, 1400),
		complete(3, 1000, 900),
	}

	e.Assign(listings)

	for _, l := range listings {
		require.NotNil(t, l.Components)
		assert.Equal(t, 0.0, l.Components.Sqft)
	}
	assert.Equal(t, listings[0].Score, listings[1].Score)
}

func TestAssignRatingAxis(t *testing.T) {
	w := Weights{Rent: 0.3, Sqft: 0.2, Bedrooms: 0.1, Bathrooms: 0.1, Distance: 0.1}
	e := NewEngine(w, Options{RatingAxis: true})
	a := complete(1, 1000, 600)
	a.Rating = listing.Ptr(10)
	b := complete(2, 1000, 600)
	b.Rating = listing.Ptr(1)

	listings := []listing.Listing{a, b}
	e.Assign(listings)

	require.NotNil(t, listings[0].Components.Rating)
	assert.Equal(t, 20.0, *listings[0].Components.Rating)
	assert.Equal(t, 0.0, *listings[1].Components.Rating)
	assert.Equal(t, 60.0, listings[0].Score)
	assert.Equal(t, 40.0, listings[1].Score)
}

func TestAssignClearsStaleComponents(t *testing.T) {
	e := NewEngine(DefaultWeights(), Options{})
	stale := complete(2, 1500, 900)
	stale.Bathrooms = nil
	stale.Components = &listing.Components{Rent: 12}
	stale.Score = 44

	listings := []listing.Listing{complete(1, 1000, 600), stale}
	e.Assign(listings)

	assert.Nil(t, listings[1].Components)
	assert.Equal(t, 0.0, listings[1].Score)
}
