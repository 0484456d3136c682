// Package score computes derived costs and composite desirability scores for
// a listing collection.
package score

import (
	"github.com/elonfeng/rentradar/pkg/listing"
)

// Options toggles optional scoring behavior.
type Options struct {
	// RatingAxis adds the subjective rating as a sixth component weighted by
	// Weights.RatingWeight.
	RatingAxis bool `yaml:"rating_axis" json:"rating_axis"`
}

// Engine scores listing collections against a fixed set of weights.
// It holds no other state and is safe for concurrent use.
type Engine struct {
	weights Weights
	opts    Options
}

// NewEngine creates a scoring engine.
func NewEngine(w Weights, opts Options) *Engine {
	return &Engine{weights: w, opts: opts}
}

// Weights returns the weights the engine applies.
func (e *Engine) Weights() Weights {
	return e.weights
}

// Options returns the engine options.
func (e *Engine) Options() Options {
	return e.opts
}

// Ranges holds per-attribute statistics.
type Ranges struct {
	Rent      Range `json:"rent"`
	Sqft      Range `json:"sqft"`
	Bedrooms  Range `json:"bedrooms"`
	Bathrooms Range `json:"bathrooms"`
	Distance  Range `json:"distance"`
}

// Means holds per-attribute averages over the whole collection.
type Means struct {
	Rent      float64 `json:"rent"`
	Sqft      float64 `json:"sqft"`
	Bedrooms  float64 `json:"bedrooms"`
	Bathrooms float64 `json:"bathrooms"`
	Distance  float64 `json:"distance"`
}

// Report summarizes one scoring pass.
type Report struct {
	Total      int     `json:"total"`
	Scorable   int     `json:"scorable"`
	Unscorable int     `json:"unscorable"`
	Ranges     Ranges  `json:"ranges"`
	Means      Means   `json:"means"`
	Weights    Weights `json:"weights"`
}

// facts is the numeric view of a listing used by one pass.
type facts struct {
	price, area, beds, baths, dist float64
	hasPrice, hasArea, hasBeds     bool
	hasBaths, hasDist              bool
	rating                         float64
	hasRating                      bool
}

func factsOf(l *listing.Listing) facts {
	var f facts
	if l.Price != nil {
		f.price, f.hasPrice = *l.Price, true
	}
	if l.Area != nil && *l.Area > 0 {
		f.area, f.hasArea = float64(*l.Area), true
	}
	if l.Bedrooms != nil && *l.Bedrooms >= 0 {
		f.beds, f.hasBeds = float64(*l.Bedrooms), true
	}
	if l.Bathrooms != nil && *l.Bathrooms >= 0 {
		f.baths, f.hasBaths = *l.Bathrooms, true
	}
	if l.Distance != nil && *l.Distance >= 0 {
		f.dist, f.hasDist = *l.Distance, true
	}
	if l.Rating != nil && *l.Rating >= 1 && *l.Rating <= 10 {
		f.rating, f.hasRating = float64(*l.Rating), true
	}
	return f
}

func (f facts) scorable() bool {
	return f.hasPrice && f.hasArea && f.hasBeds && f.hasBaths && f.hasDist && f.hasRating
}

// Assign recomputes derived costs, components and scores for every listing
// in place and returns a summary. A listing missing any scored attribute
// gets score 0 and no components. A single listing is scored from its
// rating alone since there is nothing to compare it with.
func (e *Engine) Assign(listings []listing.Listing) Report {
	rep := Report{Total: len(listings), Weights: e.weights}
	if len(listings) == 0 {
		rep.Ranges.finalize()
		return rep
	}

	all := make([]facts, len(listings))
	ok := make([]bool, len(listings))
	for i := range listings {
		all[i] = factsOf(&listings[i])
		ok[i] = all[i].scorable()
		if !ok[i] {
			rep.Unscorable++
			continue
		}
		rep.Scorable++
		f := all[i]
		rep.Ranges.Rent.Add(f.price)
		rep.Ranges.Sqft.Add(f.area)
		rep.Ranges.Bedrooms.Add(f.beds)
		rep.Ranges.Bathrooms.Add(f.baths)
		rep.Ranges.Distance.Add(f.dist)
	}
	rep.Means = means(all, &rep.Ranges)

	for i := range listings {
		l := &listings[i]
		e.deriveCosts(l)

		if len(listings) == 1 {
			l.Components = nil
			l.Score = 0
			if all[i].hasRating {
				l.Score = round2(all[i].rating / 10 * 100)
			}
			continue
		}

		if !ok[i] {
			l.Components = nil
			l.Score = 0
			continue
		}

		c := e.components(all[i], &rep.Ranges)
		l.Score = round2(c.Sum())
		roundComponents(&c)
		l.Components = &c
	}

	rep.Ranges.finalize()
	return rep
}

func (e *Engine) deriveCosts(l *listing.Listing) {
	l.CostPerArea = nil
	if v, ok := CostPerArea(l.Price, l.Area); ok {
		l.CostPerArea = &v
	}
	l.CostPerOccupant = nil
	if v, ok := CostPerOccupant(l.Price, l.Occupants, l.UtilityEstimate); ok {
		v = round2(v)
		l.CostPerOccupant = &v
	}
}

// components returns unrounded weighted scores; the composite is rounded
// once from their sum.
func (e *Engine) components(f facts, r *Ranges) listing.Components {
	w := e.weights
	raw := listing.Components{
		Rent:      r.Rent.Normalize(f.price, true) * w.Rent,
		Sqft:      r.Sqft.Normalize(f.area, false) * w.Sqft,
		Bedrooms:  r.Bedrooms.Normalize(f.beds, false) * w.Bedrooms,
		Bathrooms: r.Bathrooms.Normalize(f.baths, false) * w.Bathrooms,
		Distance:  r.Distance.Normalize(f.dist, true) * w.Distance,
	}
	if e.opts.RatingAxis {
		v := (f.rating - 1) / 9 * 100 * w.RatingWeight()
		raw.Rating = &v
	}
	return raw
}

func roundComponents(c *listing.Components) {
	c.Rent = round2(c.Rent)
	c.Sqft = round2(c.Sqft)
	c.Bedrooms = round2(c.Bedrooms)
	c.Bathrooms = round2(c.Bathrooms)
	c.Distance = round2(c.Distance)
	if c.Rating != nil {
		v := round2(*c.Rating)
		c.Rating = &v
	}
}

// means averages each attribute over the whole collection. A listing missing
// a value contributes the mean of the scorable subset instead.
func means(all []facts, r *Ranges) Means {
	var m Means
	if len(all) == 0 {
		return m
	}
	fill := func(v float64, has bool, fallback float64) float64 {
		if has {
			return v
		}
		return fallback
	}
	for _, f := range all {
		m.Rent += fill(f.price, f.hasPrice, r.Rent.Mean())
		m.Sqft += fill(f.area, f.hasArea, r.Sqft.Mean())
		m.Bedrooms += fill(f.beds, f.hasBeds, r.Bedrooms.Mean())
		m.Bathrooms += fill(f.baths, f.hasBaths, r.Bathrooms.Mean())
		m.Distance += fill(f.dist, f.hasDist, r.Distance.Mean())
	}
	n := float64(len(all))
	return Means{
		Rent:      round2(m.Rent / n),
		Sqft:      round2(m.Sqft / n),
		Bedrooms:  round2(m.Bedrooms / n),
		Bathrooms: round2(m.Bathrooms / n),
		Distance:  round2(m.Distance / n),
	}
}

func (r *Ranges) finalize() {
	for _, rg := range []*Range{&r.Rent, &r.Sqft, &r.Bedrooms, &r.Bathrooms, &r.Distance} {
		rg.Min, rg.Max = rg.Bounds()
	}
}
