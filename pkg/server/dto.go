package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/elonfeng/rentradar/internal/catalog"
	"github.com/elonfeng/rentradar/pkg/coerce"
	"github.com/elonfeng/rentradar/pkg/score"
)

var errBadRequest = errors.New("bad request")

// userFacts are the optional fields accepted when adding a listing.
type userFacts struct {
	Roommates       *int     `json:"roommates" validate:"omitempty,gte=0"`
	OverallRating   *int     `json:"overall_rating" validate:"omitempty,min=1,max=10"`
	UtilityEstimate *float64 `json:"utility_estimate" validate:"omitempty,gte=0"`
	Contacted       bool     `json:"contacted"`
	Applied         bool     `json:"applied"`
	Group           string   `json:"group" validate:"max=64"`
	Comments        string   `json:"comments"`
}

func (f userFacts) request(url string) catalog.AddRequest {
	return catalog.AddRequest{
		URL:             url,
		Occupants:       f.Roommates,
		Rating:          f.OverallRating,
		UtilityEstimate: f.UtilityEstimate,
		Contacted:       f.Contacted,
		Applied:         f.Applied,
		Group:           f.Group,
		Comments:        f.Comments,
	}
}

type addListingRequest struct {
	URL string `json:"url" validate:"required,url"`
	userFacts
}

// addHTMLRequest takes the saved page as html or, from older clients,
// raw_html.
type addHTMLRequest struct {
	HTML    string `json:"html"`
	RawHTML string `json:"raw_html"`
	URL     string `json:"url"`
	userFacts
}

func (r addHTMLRequest) page() (string, error) {
	if r.HTML != "" {
		return r.HTML, nil
	}
	if r.RawHTML != "" {
		return r.RawHTML, nil
	}
	return "", fmt.Errorf("%w: html is required", errBadRequest)
}

type idRequest struct {
	ID int64 `json:"id" validate:"required"`
}

type contactedRequest struct {
	ID        int64 `json:"id" validate:"required"`
	Contacted *bool `json:"contacted" validate:"required"`
}

type appliedRequest struct {
	ID      int64 `json:"id" validate:"required"`
	Applied *bool `json:"applied" validate:"required"`
}

type groupRequest struct {
	ID    int64  `json:"id" validate:"required"`
	Group string `json:"group" validate:"max=64"`
}

type commentRequest struct {
	ID       int64  `json:"id" validate:"required"`
	Comments string `json:"comments"`
}

// settingsRequest also reads the flat form the settings page posts:
// address plus one <name>_weight field per attribute.
type settingsRequest struct {
	Origin  string         `json:"originAddress"`
	Weights *score.Weights `json:"weights"`

	Address         string   `json:"address"`
	RentWeight      *float64 `json:"rent_weight"`
	SqftWeight      *float64 `json:"sqft_weight"`
	BedroomsWeight  *float64 `json:"bedrooms_weight"`
	BathroomsWeight *float64 `json:"bathrooms_weight"`
	DistanceWeight  *float64 `json:"distance_weight"`
}

func (r settingsRequest) origin() string {
	if r.Origin != "" {
		return r.Origin
	}
	return strings.TrimSpace(r.Address)
}

// weights merges the flat fields over current. Nil means no weight change.
func (r settingsRequest) weights(current score.Weights) *score.Weights {
	if r.Weights != nil {
		return r.Weights
	}
	flat := []struct {
		v   *float64
		dst *float64
	}{
		{r.RentWeight, &current.Rent},
		{r.SqftWeight, &current.Sqft},
		{r.BedroomsWeight, &current.Bedrooms},
		{r.BathroomsWeight, &current.Bathrooms},
		{r.DistanceWeight, &current.Distance},
	}
	changed := false
	for _, f := range flat {
		if f.v != nil {
			*f.dst = *f.v
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return &current
}

type spielRequest struct {
	Content string `json:"content"`
}

// editRequest accepts loosely typed values, the same way stored listings
// are read.
type editRequest struct {
	ID              int64   `json:"id" validate:"required"`
	Address         *string `json:"address"`
	Price           any     `json:"price"`
	SquareFootage   any     `json:"square_footage"`
	Bedrooms        any     `json:"bedrooms"`
	Bathrooms       any     `json:"bathrooms"`
	Distance        any     `json:"distance"`
	DateAvailable   *string `json:"date_available"`
	OverallRating   any     `json:"overall_rating"`
	Roommates       any     `json:"roommates"`
	UtilityEstimate any     `json:"utility_estimate"`
	Image           *string `json:"image"`
	NewImage        *string `json:"new_image_base64"`
}

func (e editRequest) patch() (catalog.Patch, error) {
	p := catalog.Patch{
		Address:       e.Address,
		Price:         e.Price,
		DateAvailable: e.DateAvailable,
		Image:         e.Image,
	}
	if p.Image == nil {
		p.Image = e.NewImage
	}
	var err error
	if p.Area, err = optCount("square_footage", e.SquareFootage); err != nil {
		return p, err
	}
	if p.Bedrooms, err = optCount("bedrooms", e.Bedrooms); err != nil {
		return p, err
	}
	if p.Bathrooms, err = optNumber("bathrooms", e.Bathrooms, coerce.Number); err != nil {
		return p, err
	}
	if p.Distance, err = optNumber("distance", e.Distance, coerce.Distance); err != nil {
		return p, err
	}
	if p.Rating, err = optCount("overall_rating", e.OverallRating); err != nil {
		return p, err
	}
	if p.Occupants, err = optCount("roommates", e.Roommates); err != nil {
		return p, err
	}
	if p.UtilityEstimate, err = optNumber("utility_estimate", e.UtilityEstimate, coerce.Currency); err != nil {
		return p, err
	}
	return p, nil
}

func optCount(field string, v any) (*int, error) {
	if v == nil {
		return nil, nil
	}
	n, ok := coerce.Count(v)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a whole number", errBadRequest, field)
	}
	return &n, nil
}

func optNumber(field string, v any, read func(any) (float64, bool)) (*float64, error) {
	if v == nil {
		return nil, nil
	}
	f, ok := read(v)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a number", errBadRequest, field)
	}
	return &f, nil
}

// decode reads a JSON body into dst and validates it.
func (s *Server) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty request body", errBadRequest)
		}
		return fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
	}
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", errBadRequest, err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, validationMessage(fe))
		}
		return fmt.Errorf("%w: %s", errBadRequest, strings.Join(msgs, "; "))
	}
	return nil
}

func validationMessage(err validator.FieldError) string {
	field := jsonName(err.Field())
	switch err.Tag() {
	case "required":
		return field + " is required"
	case "url":
		return field + " must be a valid URL"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, err.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, err.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, err.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, err.Param())
	default:
		return field + " is invalid"
	}
}

var jsonNames = map[string]string{
	"URL":             "url",
	"HTML":            "html",
	"ID":              "id",
	"Roommates":       "roommates",
	"OverallRating":   "overall_rating",
	"UtilityEstimate": "utility_estimate",
	"Contacted":       "contacted",
	"Applied":         "applied",
	"Group":           "group",
}

func jsonName(field string) string {
	if n, ok := jsonNames[field]; ok {
		return n
	}
	return strings.ToLower(field)
}
