package score

import "math"

// CostPerArea returns price per square foot rounded to cents. Both inputs
// must be present and positive.
func CostPerArea(price *float64, area *int) (float64, bool) {
	if price == nil || area == nil || *price <= 0 || *area <= 0 {
		return 0, false
	}
	return round2(*price / float64(*area)), true
}

// CostPerOccupant splits rent plus utilities across occupants. No occupant
// count, or zero, means living alone and the whole cost is returned. Only a
// missing price makes it unknown.
func CostPerOccupant(price *float64, occupants *int, utility *float64) (float64, bool) {
	if price == nil {
		return 0, false
	}
	total := *price
	if utility != nil {
		total += *utility
	}
	if occupants == nil || *occupants <= 0 {
		return total, true
	}
	return total / float64(*occupants), true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
