package listing

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// ErrUnknownSortKey is returned by Sort for an unsupported key.
var ErrUnknownSortKey = errors.New("unknown sort key")

// Sort keys accepted by Sort.
const (
	SortScore           = "score"
	SortPrice           = "price"
	SortDistance        = "distance"
	SortCostPerArea     = "cost_per_sqft"
	SortCostPerOccupant = "cost_per_occupant"
	SortDateAvailable   = "date_available"
	SortArea            = "square_footage"
	SortBedrooms        = "bedrooms"
	SortBathrooms       = "bathrooms"
	SortRating          = "overall_rating"
)

var dateLayouts = []string{"January 2, 2006", "2006-01-02"}

type sortSpec struct {
	value func(*Listing) (float64, bool)
	desc  bool
}

var sortSpecs = map[string]sortSpec{
	SortScore:           {value: func(l *Listing) (float64, bool) { return l.Score, true }, desc: true},
	SortPrice:           {value: func(l *Listing) (float64, bool) { return deref(l.Price) }},
	SortDistance:        {value: func(l *Listing) (float64, bool) { return deref(l.Distance) }},
	SortCostPerArea:     {value: func(l *Listing) (float64, bool) { return deref(l.CostPerArea) }},
	SortCostPerOccupant: {value: func(l *Listing) (float64, bool) { return deref(l.CostPerOccupant) }},
	SortDateAvailable:   {value: dateValue},
	SortArea:            {value: func(l *Listing) (float64, bool) { return derefInt(l.Area) }, desc: true},
	SortBedrooms:        {value: func(l *Listing) (float64, bool) { return derefInt(l.Bedrooms) }, desc: true},
	SortBathrooms:       {value: func(l *Listing) (float64, bool) { return deref(l.Bathrooms) }, desc: true},
	SortRating:          {value: func(l *Listing) (float64, bool) { return derefInt(l.Rating) }, desc: true},
}

// Sort orders listings in place by key. Score and size-like keys sort
// descending, costs, distance and dates ascending. Listings missing the
// value always sort last. An empty key sorts by score.
func Sort(listings []Listing, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		key = SortScore
	}
	if key == "cost_per_roommate" {
		key = SortCostPerOccupant
	}
	spec, ok := sortSpecs[key]
	if !ok {
		return ErrUnknownSortKey
	}

	sort.SliceStable(listings, func(i, j int) bool {
		a, aok := spec.value(&listings[i])
		b, bok := spec.value(&listings[j])
		switch {
		case !aok || !bok:
			return aok && !bok
		case spec.desc:
			return a > b
		default:
			return a < b
		}
	})
	return nil
}

// SortKeys lists the accepted sort keys.
func SortKeys() []string {
	keys := make([]string, 0, len(sortSpecs))
	for k := range sortSpecs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func dateValue(l *Listing) (float64, bool) {
	s := strings.TrimSpace(l.DateAvailable)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return float64(t.Unix()), true
		}
	}
	return 0, false
}

func deref(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

func derefInt(p *int) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return float64(*p), true
}
