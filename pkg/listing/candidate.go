package listing

// Candidate is the raw record produced by listing acquisition, before the
// user facts and an ID are attached.
type Candidate struct {
	URL           string   `json:"url"`
	Address       string   `json:"address"`
	Price         *float64 `json:"price"`
	Area          *int     `json:"square_footage"`
	Bedrooms      *int     `json:"bedrooms"`
	Bathrooms     *float64 `json:"bathrooms"`
	Distance      *float64 `json:"distance"`
	DateAvailable string   `json:"date_available"`
	ImageURL      string   `json:"image_url,omitempty"`
	Images        []string `json:"image"`
}

// UserFacts are the fields a user supplies when adding a listing.
type UserFacts struct {
	Occupants *int
	Rating    *int
	Contacted bool
	Applied   bool
	Group     string
}

// FromCandidate builds a new unscored listing from an acquired candidate.
func FromCandidate(c *Candidate, id int64, facts UserFacts) Listing {
	l := Listing{
		ID:            id,
		URL:           c.URL,
		Address:       c.Address,
		Price:         c.Price,
		Area:          c.Area,
		Bedrooms:      c.Bedrooms,
		Bathrooms:     c.Bathrooms,
		Distance:      c.Distance,
		DateAvailable: c.DateAvailable,
		Images:        NormalizeImages(c.Images),
		Occupants:     facts.Occupants,
		Rating:        facts.Rating,
		Contacted:     facts.Contacted,
		Applied:       facts.Applied,
		Group:         facts.Group,
	}
	if l.Area != nil && *l.Area <= 0 {
		l.Area = nil
	}
	if l.Group == "" {
		l.Group = DefaultGroup
	}
	return l
}
