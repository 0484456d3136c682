package score

import (
	"fmt"
	"math"
)

// Weights sets the relative importance of each scored attribute.
// The engine applies each weight independently; the sum need not be 1.
type Weights struct {
	Rent      float64 `yaml:"rent" json:"rent"`
	Sqft      float64 `yaml:"sqft" json:"sqft"`
	Bedrooms  float64 `yaml:"bedrooms" json:"bedrooms"`
	Bathrooms float64 `yaml:"bathrooms" json:"bathrooms"`
	Distance  float64 `yaml:"distance" json:"distance"`
}

// DefaultWeights returns the stock weighting.
func DefaultWeights() Weights {
	return Weights{
		Rent:      0.3,
		Sqft:      0.2,
		Bedrooms:  0.2,
		Bathrooms: 0.2,
		Distance:  0.1,
	}
}

// Sum returns the total of all five weights.
func (w Weights) Sum() float64 {
	return w.Rent + w.Sqft + w.Bedrooms + w.Bathrooms + w.Distance
}

// RatingWeight is the mass left over for the subjective rating axis.
func (w Weights) RatingWeight() float64 {
	return math.Max(0, 1-w.Sum())
}

// Validate rejects negative or non-finite weights.
func (w Weights) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"rent", w.Rent},
		{"sqft", w.Sqft},
		{"bedrooms", w.Bedrooms},
		{"bathrooms", w.Bathrooms},
		{"distance", w.Distance},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("weight %s is not a finite number", f.name)
		}
		if f.v < 0 {
			return fmt.Errorf("weight %s must be non-negative, got %g", f.name, f.v)
		}
	}
	return nil
}
