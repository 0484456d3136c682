package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/elonfeng/rentradar/pkg/coerce"
	"github.com/elonfeng/rentradar/pkg/listing"
)

// AddRequest carries the user-supplied facts for a new listing.
type AddRequest struct {
	URL             string
	Occupants       *int
	Rating          *int
	UtilityEstimate *float64
	Contacted       bool
	Applied         bool
	Group           string
	Comments        string
}

func (r AddRequest) validate() error {
	if r.Occupants != nil && *r.Occupants < 0 {
		return fmt.Errorf("%w: roommates must be non-negative", ErrInvalid)
	}
	if r.Rating != nil && (*r.Rating < 1 || *r.Rating > 10) {
		return fmt.Errorf("%w: overall_rating must be between 1 and 10", ErrInvalid)
	}
	if r.UtilityEstimate != nil && *r.UtilityEstimate < 0 {
		return fmt.Errorf("%w: utility_estimate must be non-negative", ErrInvalid)
	}
	return nil
}

func (r AddRequest) facts() listing.UserFacts {
	return listing.UserFacts{
		Occupants: r.Occupants,
		Rating:    r.Rating,
		Contacted: r.Contacted,
		Applied:   r.Applied,
		Group:     strings.TrimSpace(r.Group),
	}
}

// AddFromURL acquires the page at req.URL and adds it.
func (c *Catalog) AddFromURL(ctx context.Context, req AddRequest) (listing.Listing, error) {
	if strings.TrimSpace(req.URL) == "" {
		return listing.Listing{}, fmt.Errorf("%w: url is required", ErrInvalid)
	}
	if err := req.validate(); err != nil {
		return listing.Listing{}, err
	}
	if c.acquirer == nil {
		return listing.Listing{}, errors.New("listing acquisition is not configured")
	}

	// Acquisition is slow; it runs outside the lock.
	cand, err := c.acquirer.Acquire(ctx, req.URL, c.Settings().Origin)
	if err != nil {
		return listing.Listing{}, fmt.Errorf("acquire %s: %w", req.URL, err)
	}
	return c.addCandidate(ctx, cand, req)
}

// AddFromHTML adds a listing from a page the user saved themselves.
func (c *Catalog) AddFromHTML(ctx context.Context, page string, req AddRequest) (listing.Listing, error) {
	if strings.TrimSpace(page) == "" {
		return listing.Listing{}, fmt.Errorf("%w: html is required", ErrInvalid)
	}
	if err := req.validate(); err != nil {
		return listing.Listing{}, err
	}
	if c.acquirer == nil {
		return listing.Listing{}, errors.New("listing acquisition is not configured")
	}

	cand, err := c.acquirer.AcquireHTML(ctx, page, req.URL, c.Settings().Origin)
	if err != nil {
		return listing.Listing{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return c.addCandidate(ctx, cand, req)
}

func (c *Catalog) addCandidate(ctx context.Context, cand *listing.Candidate, req AddRequest) (listing.Listing, error) {
	if cand.URL == "" {
		cand.URL = req.URL
	}
	l := listing.FromCandidate(cand, 0, req.facts())
	l.UtilityEstimate = req.UtilityEstimate
	l.Comments = req.Comments
	return c.Add(ctx, l)
}

// Add stores a new listing. Its ID is assigned here and any derived fields
// it carries are recomputed.
func (c *Catalog) Add(ctx context.Context, l listing.Listing) (listing.Listing, error) {
	l.Address = strings.TrimSpace(l.Address)
	if l.Address == "" {
		return listing.Listing{}, fmt.Errorf("%w: address is required", ErrInvalid)
	}
	if l.Group == "" {
		l.Group = listing.DefaultGroup
	}
	l.Images = listing.NormalizeImages(l.Images)

	c.mu.Lock()
	defer c.mu.Unlock()

	var id int64
	listings, _, err := c.mutate(ctx, func(ls []listing.Listing) ([]listing.Listing, error) {
		if findDuplicate(ls, l.Address, 0) {
			return nil, fmt.Errorf("%s: %w", l.Address, ErrDuplicate)
		}
		id = c.nextID(ls)
		l.ID = id
		return append(ls, l), nil
	})
	if err != nil {
		return listing.Listing{}, err
	}

	added := listings[indexOf(listings, id)]
	c.log.Info("[catalog] added %d %s (score %.2f)", added.ID, added.Address, added.Score)
	return added, nil
}

// Patch is a partial edit. Nil fields are left unchanged.
type Patch struct {
	Address *string
	// Price accepts anything coerce.Currency reads, e.g. "$1,250/mo".
	Price           any
	Area            *int
	Bedrooms        *int
	Bathrooms       *float64
	Distance        *float64
	DateAvailable   *string
	Rating          *int
	Occupants       *int
	UtilityEstimate *float64
	// Image is a data URI appended to the listing's images.
	Image *string
}

// Edit applies p to the listing with the given ID.
func (c *Catalog) Edit(ctx context.Context, id int64, p Patch) (listing.Listing, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	listings, _, err := c.mutate(ctx, func(ls []listing.Listing) ([]listing.Listing, error) {
		i := indexOf(ls, id)
		if i < 0 {
			return nil, fmt.Errorf("listing %d: %w", id, ErrNotFound)
		}
		if p.Address != nil {
			addr := strings.TrimSpace(*p.Address)
			if addr == "" {
				return nil, fmt.Errorf("%w: address is required", ErrInvalid)
			}
			if findDuplicate(ls, addr, id) {
				return nil, fmt.Errorf("%s: %w", addr, ErrDuplicate)
			}
			ls[i].Address = addr
		}
		if err := p.apply(&ls[i]); err != nil {
			return nil, err
		}
		return ls, nil
	})
	if err != nil {
		return listing.Listing{}, err
	}

	edited := listings[indexOf(listings, id)]
	c.log.Info("[catalog] edited %d (score %.2f)", id, edited.Score)
	return edited, nil
}

func (p Patch) apply(l *listing.Listing) error {
	if p.Price != nil {
		f, ok := coerce.Currency(p.Price)
		if !ok || f < 0 {
			return fmt.Errorf("%w: price %v is not an amount", ErrInvalid, p.Price)
		}
		l.Price = &f
	}
	if p.Area != nil {
		if *p.Area <= 0 {
			l.Area = nil
		} else {
			l.Area = listing.Ptr(*p.Area)
		}
	}
	if p.Bedrooms != nil {
		if *p.Bedrooms < 0 {
			return fmt.Errorf("%w: bedrooms must be non-negative", ErrInvalid)
		}
		l.Bedrooms = listing.Ptr(*p.Bedrooms)
	}
	if p.Bathrooms != nil {
		if *p.Bathrooms < 0 {
			return fmt.Errorf("%w: bathrooms must be non-negative", ErrInvalid)
		}
		l.Bathrooms = listing.Ptr(*p.Bathrooms)
	}
	if p.Distance != nil {
		if *p.Distance < 0 {
			return fmt.Errorf("%w: distance must be non-negative", ErrInvalid)
		}
		l.Distance = listing.Ptr(*p.Distance)
	}
	if p.DateAvailable != nil {
		l.DateAvailable = strings.TrimSpace(*p.DateAvailable)
	}
	if p.Rating != nil {
		if *p.Rating < 1 || *p.Rating > 10 {
			return fmt.Errorf("%w: overall_rating must be between 1 and 10", ErrInvalid)
		}
		l.Rating = listing.Ptr(*p.Rating)
	}
	if p.Occupants != nil {
		if *p.Occupants < 0 {
			return fmt.Errorf("%w: roommates must be non-negative", ErrInvalid)
		}
		l.Occupants = listing.Ptr(*p.Occupants)
	}
	if p.UtilityEstimate != nil {
		if *p.UtilityEstimate < 0 {
			return fmt.Errorf("%w: utility_estimate must be non-negative", ErrInvalid)
		}
		l.UtilityEstimate = listing.Ptr(*p.UtilityEstimate)
	}
	if p.Image != nil {
		if !listing.ValidImage(*p.Image) {
			return fmt.Errorf("%w: image must be a data URI", ErrInvalid)
		}
		l.Images = append(l.Images, *p.Image)
	}
	return nil
}

// Delete removes a listing.
func (c *Catalog) Delete(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, _, err := c.mutate(ctx, func(ls []listing.Listing) ([]listing.Listing, error) {
		i := indexOf(ls, id)
		if i < 0 {
			return nil, fmt.Errorf("listing %d: %w", id, ErrNotFound)
		}
		return append(ls[:i], ls[i+1:]...), nil
	})
	if err != nil {
		return err
	}
	c.log.Info("[catalog] deleted %d", id)
	return nil
}

// SetContacted records whether the landlord was contacted.
func (c *Catalog) SetContacted(ctx context.Context, id int64, contacted bool) (listing.Listing, error) {
	return c.update(ctx, id, func(l *listing.Listing) { l.Contacted = contacted })
}

// SetApplied records whether an application was sent.
func (c *Catalog) SetApplied(ctx context.Context, id int64, applied bool) (listing.Listing, error) {
	return c.update(ctx, id, func(l *listing.Listing) { l.Applied = applied })
}

// SetGroup moves a listing into a group. An empty group resets it.
func (c *Catalog) SetGroup(ctx context.Context, id int64, group string) (listing.Listing, error) {
	group = strings.TrimSpace(group)
	if group == "" {
		group = listing.DefaultGroup
	}
	return c.update(ctx, id, func(l *listing.Listing) { l.Group = group })
}

// SetComment replaces a listing's comments.
func (c *Catalog) SetComment(ctx context.Context, id int64, comment string) (listing.Listing, error) {
	return c.update(ctx, id, func(l *listing.Listing) { l.Comments = comment })
}

func (c *Catalog) update(ctx context.Context, id int64, fn func(*listing.Listing)) (listing.Listing, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	listings, _, err := c.mutate(ctx, func(ls []listing.Listing) ([]listing.Listing, error) {
		i := indexOf(ls, id)
		if i < 0 {
			return nil, fmt.Errorf("listing %d: %w", id, ErrNotFound)
		}
		fn(&ls[i])
		return ls, nil
	})
	if err != nil {
		return listing.Listing{}, err
	}
	return listings[indexOf(listings, id)], nil
}
