package score

import "math"

// Neutral is the score given when a population carries no spread.
const Neutral = 50.0

// Normalize maps value onto 0-100 using the min-max range. With reverse set
// a smaller value scores higher. Values outside the range extrapolate.
func Normalize(value, lo, hi float64, reverse bool) float64 {
	if lo == hi {
		return Neutral
	}
	raw := 100 * (value - lo) / (hi - lo)
	if reverse {
		return 100 - raw
	}
	return raw
}

// Range tracks the bounds and mean of one attribute over a population.
type Range struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
	sum   float64
}

// Add folds v into the range.
func (r *Range) Add(v float64) {
	if r.Count == 0 {
		r.Min, r.Max = v, v
	} else {
		r.Min = math.Min(r.Min, v)
		r.Max = math.Max(r.Max, v)
	}
	r.Count++
	r.sum += v
}

// Bounds returns min and max, or 0 and 1 for an empty population.
func (r *Range) Bounds() (float64, float64) {
	if r.Count == 0 {
		return 0, 1
	}
	return r.Min, r.Max
}

// Mean returns the average value, or 0 for an empty population.
func (r *Range) Mean() float64 {
	if r.Count == 0 {
		return 0
	}
	return r.sum / float64(r.Count)
}

// Normalize scores v against this range.
func (r *Range) Normalize(v float64, reverse bool) float64 {
	lo, hi := r.Bounds()
	return Normalize(v, lo, hi, reverse)
}
