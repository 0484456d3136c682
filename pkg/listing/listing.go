// Package listing defines the rental listing record and its wire format.
package listing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elonfeng/rentradar/pkg/coerce"
)

// NotAvailable is the display placeholder written for a derived cost that
// cannot be computed.
const NotAvailable = "N/A"

// DefaultGroup is the group label given to new listings.
const DefaultGroup = "none"

// Components holds the weighted per-attribute scores behind a composite score.
type Components struct {
	Rent      float64  `json:"rent_score"`
	Sqft      float64  `json:"sqft_score"`
	Bedrooms  float64  `json:"bedrooms_score"`
	Bathrooms float64  `json:"bathrooms_score"`
	Distance  float64  `json:"distance_score"`
	Rating    *float64 `json:"rating_score,omitempty"`
}

// Sum returns the total of all components.
func (c Components) Sum() float64 {
	s := c.Rent + c.Sqft + c.Bedrooms + c.Bathrooms + c.Distance
	if c.Rating != nil {
		s += *c.Rating
	}
	return s
}

// Listing is one rental candidate. A nil pointer field is unknown.
type Listing struct {
	ID      int64
	URL     string
	Address string

	Price         *float64
	Area          *int
	Bedrooms      *int
	Bathrooms     *float64
	Distance      *float64
	DateAvailable string
	Images        []string

	Occupants       *int
	Rating          *int
	UtilityEstimate *float64
	Comments        string
	Contacted       bool
	Applied         bool
	Group           string

	// Derived on every scoring pass.
	CostPerArea     *float64
	CostPerOccupant *float64
	Components      *Components
	Score           float64
}

// Key returns the normalized address used for deduplication.
func (l *Listing) Key() string {
	return NormalizeAddress(l.Address)
}

// NormalizeAddress trims and case-folds an address.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

type wireListing struct {
	ID              any             `json:"id"`
	URL             string          `json:"url"`
	Address         string          `json:"address"`
	Price           any             `json:"price"`
	Area            any             `json:"square_footage"`
	Bedrooms        any             `json:"bedrooms"`
	Bathrooms       any             `json:"bathrooms"`
	Distance        any             `json:"distance"`
	DateAvailable   string          `json:"date_available"`
	Images          any             `json:"image"`
	Occupants       any             `json:"roommates"`
	Rating          any             `json:"overall_rating"`
	UtilityEstimate any             `json:"utility_estimate"`
	Comments        string          `json:"comments"`
	Contacted       bool            `json:"contacted"`
	Applied         bool            `json:"applied"`
	Group           string          `json:"group"`
	CostPerArea     any             `json:"cost_per_sqft"`
	CostPerOccupant any             `json:"cost_per_occupant"`
	Components      json.RawMessage `json:"components,omitempty"`
	Score           any             `json:"score"`
}

// MarshalJSON writes missing raw facts as null and missing derived costs as "N/A".
func (l Listing) MarshalJSON() ([]byte, error) {
	w := wireListing{
		ID:              l.ID,
		URL:             l.URL,
		Address:         l.Address,
		Price:           orNull(l.Price),
		Area:            orNull(l.Area),
		Bedrooms:        orNull(l.Bedrooms),
		Bathrooms:       orNull(l.Bathrooms),
		Distance:        orNull(l.Distance),
		DateAvailable:   l.DateAvailable,
		Images:          l.Images,
		Occupants:       orNull(l.Occupants),
		Rating:          orNull(l.Rating),
		UtilityEstimate: orNull(l.UtilityEstimate),
		Comments:        l.Comments,
		Contacted:       l.Contacted,
		Applied:         l.Applied,
		Group:           l.Group,
		CostPerArea:     orPlaceholder(l.CostPerArea),
		CostPerOccupant: orPlaceholder(l.CostPerOccupant),
		Score:           l.Score,
	}
	if w.Images == nil {
		w.Images = []string{}
	}
	if l.Components != nil {
		raw, err := json.Marshal(l.Components)
		if err != nil {
			return nil, fmt.Errorf("marshal components: %w", err)
		}
		w.Components = raw
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads loosely typed field values. Currency strings, distance
// strings, "N/A" and the -1 unknown marker are all accepted.
func (l *Listing) UnmarshalJSON(data []byte) error {
	var w wireListing
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&w); err != nil {
		return fmt.Errorf("decode listing: %w", err)
	}

	out := Listing{
		URL:             w.URL,
		Address:         w.Address,
		Price:           floatPtr(coerce.Currency(w.Price)),
		Area:            intPtr(coerce.Count(w.Area)),
		Bedrooms:        intPtr(coerce.Count(w.Bedrooms)),
		Bathrooms:       nonNegative(floatPtr(coerce.Number(w.Bathrooms))),
		Distance:        nonNegative(floatPtr(coerce.Distance(w.Distance))),
		DateAvailable:   w.DateAvailable,
		Images:          NormalizeImages(w.Images),
		Occupants:       intPtr(coerce.Count(w.Occupants)),
		Rating:          intPtr(coerce.Count(w.Rating)),
		UtilityEstimate: floatPtr(coerce.Currency(w.UtilityEstimate)),
		Comments:        w.Comments,
		Contacted:       w.Contacted,
		Applied:         w.Applied,
		Group:           w.Group,
		CostPerArea:     floatPtr(coerce.Number(w.CostPerArea)),
		CostPerOccupant: floatPtr(coerce.Number(w.CostPerOccupant)),
	}
	if id, ok := coerce.Number(w.ID); ok {
		out.ID = int64(id)
	}
	if s, ok := coerce.Number(w.Score); ok {
		out.Score = s
	}
	if out.Group == "" {
		out.Group = DefaultGroup
	}
	if len(w.Components) > 0 && string(w.Components) != "null" {
		var c Components
		if err := json.Unmarshal(w.Components, &c); err != nil {
			return fmt.Errorf("decode components: %w", err)
		}
		out.Components = &c
	}

	*l = out
	return nil
}

// NormalizeImages accepts a list of data URIs or a single legacy value and
// drops anything that is not a usable data URI. A bare base64 string is
// assumed to be JPEG.
func NormalizeImages(v any) []string {
	var raw []string
	switch t := v.(type) {
	case string:
		if t == "" {
			return []string{}
		}
		if !strings.HasPrefix(t, "data:") {
			t = "data:image/jpeg;base64," + t
		}
		raw = []string{t}
	case []string:
		raw = t
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	}

	images := make([]string, 0, len(raw))
	for _, img := range raw {
		if ValidImage(img) {
			images = append(images, img)
		}
	}
	return images
}

// ValidImage reports whether s looks like an embedded image data URI.
func ValidImage(s string) bool {
	return strings.HasPrefix(s, "data:") && len(s) > 50
}

func orNull[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func orPlaceholder(p *float64) any {
	if p == nil {
		return NotAvailable
	}
	return *p
}

func floatPtr(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}

func intPtr(v int, ok bool) *int {
	if !ok {
		return nil
	}
	return &v
}

func nonNegative(p *float64) *float64 {
	if p == nil || *p < 0 {
		return nil
	}
	return p
}
