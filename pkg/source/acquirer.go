package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/elonfeng/rentradar/internal/logging"
	"github.com/elonfeng/rentradar/pkg/listing"
)

// ImageLoader turns an image URL into an embeddable data URI.
type ImageLoader interface {
	DataURI(ctx context.Context, url string) (string, error)
}

// DistanceLookup measures the commute from origin to destination in miles.
type DistanceLookup interface {
	Miles(ctx context.Context, origin, destination string) (float64, error)
}

// Acquirer turns a listing URL or saved page into an enriched candidate.
type Acquirer struct {
	fetcher  Fetcher
	parser   *Parser
	images   ImageLoader
	distance DistanceLookup
	retry    Retry
	log      *logging.Logger
}

// NewAcquirer wires the acquisition pipeline. images and distance may be nil
// to skip those enrichments.
func NewAcquirer(f Fetcher, images ImageLoader, distance DistanceLookup, retry Retry, log *logging.Logger) *Acquirer {
	if retry.Log == nil {
		retry.Log = log
	}
	return &Acquirer{
		fetcher:  f,
		parser:   NewParser(),
		images:   images,
		distance: distance,
		retry:    retry,
		log:      log,
	}
}

// Acquire fetches url and builds a candidate from it.
func (a *Acquirer) Acquire(ctx context.Context, url, origin string) (*listing.Candidate, error) {
	if a.fetcher == nil {
		return nil, errors.New("no page fetcher configured")
	}

	var page string
	err := a.retry.Do(ctx, "fetch "+url, func(ctx context.Context) error {
		var err error
		page, err = a.fetcher.Fetch(ctx, url)
		return err
	})
	if err != nil {
		return nil, err
	}
	return a.AcquireHTML(ctx, page, url, origin)
}

// AcquireHTML builds a candidate from an already saved page.
func (a *Acquirer) AcquireHTML(ctx context.Context, page, url, origin string) (*listing.Candidate, error) {
	c, err := a.parser.Parse(page, url)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}

	if c.ImageURL != "" && a.images != nil {
		uri, err := a.images.DataURI(ctx, c.ImageURL)
		if err != nil {
			a.log.Warn("[acquire] image for %s: %v", c.Address, err)
		} else {
			c.Images = append(c.Images, uri)
		}
	}

	if origin != "" && a.distance != nil {
		miles, err := a.distance.Miles(ctx, origin, c.Address)
		switch {
		case errors.Is(err, ErrNoAPIKey):
			a.log.Debug("[acquire] distance skipped: %v", err)
		case err != nil:
			a.log.Warn("[acquire] distance for %s: %v", c.Address, err)
		default:
			c.Distance = &miles
		}
	}

	a.log.Info("[acquire] parsed %s", c.Address)
	return c, nil
}
