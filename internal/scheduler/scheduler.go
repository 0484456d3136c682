// Package scheduler periodically pulls new listings from saved-search feeds
// and alerts when the best-scoring listing changes.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/elonfeng/rentradar/internal/catalog"
	"github.com/elonfeng/rentradar/internal/logging"
	"github.com/elonfeng/rentradar/pkg/alert"
	"github.com/elonfeng/rentradar/pkg/listing"
	"github.com/elonfeng/rentradar/pkg/source"
)

// Catalog is the part of the listing service the scheduler drives.
type Catalog interface {
	KnownURLs(ctx context.Context) (map[string]bool, error)
	AddFromURL(ctx context.Context, req catalog.AddRequest) (listing.Listing, error)
	List(ctx context.Context, sortBy string) ([]listing.Listing, error)
}

// Discoverer finds candidate listing URLs.
type Discoverer interface {
	Discover(ctx context.Context) ([]source.Discovered, error)
}

// Options sets the collection cadence and the facts given to collected
// listings.
type Options struct {
	Interval  time.Duration
	Occupants int
	Rating    int
}

// Scheduler runs periodic collection and top-listing alerts.
type Scheduler struct {
	catalog    Catalog
	discoverer Discoverer
	alerts     *alert.Manager
	opts       Options
	log        *logging.Logger

	topID  int64
	primed bool
}

// New creates a new scheduler.
func New(c Catalog, d Discoverer, alerts *alert.Manager, opts Options, log *logging.Logger) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Minute
	}
	return &Scheduler{
		catalog:    c,
		discoverer: d,
		alerts:     alerts,
		opts:       opts,
		log:        log,
	}
}

// Run collects immediately and then on every tick. Blocks until ctx is
// cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	s.log.Info("[scheduler] initial collection...")
	s.Tick(ctx)
	s.log.Info("[scheduler] running (collect every %s)", s.opts.Interval)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("[scheduler] stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one discovery and alert round and returns how many listings
// were added.
func (s *Scheduler) Tick(ctx context.Context) int {
	added := s.collect(ctx)
	s.alertOnNewTop(ctx)
	return added
}

func (s *Scheduler) collect(ctx context.Context) int {
	found, err := s.discoverer.Discover(ctx)
	if err != nil {
		s.log.Warn("[scheduler] discover: %v", err)
	}
	if len(found) == 0 {
		return 0
	}

	known, err := s.catalog.KnownURLs(ctx)
	if err != nil {
		s.log.Error("[scheduler] known urls: %v", err)
		return 0
	}

	added := 0
	for _, d := range found {
		if known[d.URL] {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		l, err := s.catalog.AddFromURL(ctx, s.request(d.URL))
		known[d.URL] = true
		switch {
		case errors.Is(err, catalog.ErrDuplicate):
			s.log.Debug("[scheduler] %s already listed", d.URL)
		case err != nil:
			s.log.Warn("[scheduler] add %s: %v", d.URL, err)
		default:
			added++
			s.log.Info("[scheduler] added %s from %s (score %.2f)", l.Address, d.Feed, l.Score)
		}
	}
	s.log.Info("[scheduler] %d discovered, %d added", len(found), added)
	return added
}

func (s *Scheduler) request(url string) catalog.AddRequest {
	req := catalog.AddRequest{URL: url}
	if s.opts.Occupants > 0 {
		req.Occupants = listing.Ptr(s.opts.Occupants)
	}
	if s.opts.Rating >= 1 && s.opts.Rating <= 10 {
		req.Rating = listing.Ptr(s.opts.Rating)
	}
	return req
}

// alertOnNewTop broadcasts when the best scored listing differs from the
// one seen on the previous round. The first round only records it.
func (s *Scheduler) alertOnNewTop(ctx context.Context) {
	listings, err := s.catalog.List(ctx, listing.SortScore)
	if err != nil {
		s.log.Error("[scheduler] list: %v", err)
		return
	}

	var (
		top    *listing.Listing
		others []listing.Listing
	)
	for i := range listings {
		if listings[i].Components == nil {
			continue
		}
		if top == nil {
			top = &listings[i]
			continue
		}
		others = append(others, listings[i])
	}
	if top == nil {
		return
	}

	changed := s.primed && top.ID != s.topID
	s.topID, s.primed = top.ID, true
	if !changed || !s.alerts.HasNotifiers() {
		return
	}

	if err := s.alerts.Broadcast(ctx, alert.NewTopListing(*top, others)); err != nil {
		s.log.Warn("[scheduler] alert: %v", err)
		return
	}
	s.log.Info("[scheduler] alerted: %s (score %.2f)", top.Address, top.Score)
}
