// Package catalog is the rental listing service: every change to the stored
// collection goes through it and is followed by a full scoring pass.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/elonfeng/rentradar/internal/logging"
	"github.com/elonfeng/rentradar/internal/store"
	"github.com/elonfeng/rentradar/pkg/listing"
	"github.com/elonfeng/rentradar/pkg/score"
)

var (
	ErrNotFound  = errors.New("listing not found")
	ErrDuplicate = errors.New("listing already exists")
	ErrInvalid   = errors.New("invalid input")
)

const idLayout = "20060102150405"

// Acquirer turns a URL or a saved page into a listing candidate.
type Acquirer interface {
	Acquire(ctx context.Context, url, origin string) (*listing.Candidate, error)
	AcquireHTML(ctx context.Context, page, url, origin string) (*listing.Candidate, error)
}

// Options configures a Catalog.
type Options struct {
	Origin    string
	SpielPath string
	Weights   score.Weights
	Scoring   score.Options
}

// Settings is the user-adjustable scoring state.
type Settings struct {
	Origin     string        `json:"origin"`
	Weights    score.Weights `json:"weights"`
	RatingAxis bool          `json:"rating_axis"`
}

// Catalog serializes all reads and writes of the listing collection.
type Catalog struct {
	mu        sync.Mutex
	store     store.Store
	acquirer  Acquirer
	engine    *score.Engine
	origin    string
	spielPath string
	log       *logging.Logger
	now       func() time.Time
}

// New creates a Catalog. acquirer may be nil when only manual entry is used.
func New(s store.Store, acquirer Acquirer, opts Options, log *logging.Logger) (*Catalog, error) {
	if err := opts.Weights.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return &Catalog{
		store:     s,
		acquirer:  acquirer,
		engine:    score.NewEngine(opts.Weights, opts.Scoring),
		origin:    opts.Origin,
		spielPath: opts.SpielPath,
		log:       log,
		now:       time.Now,
	}, nil
}

// List returns every listing ordered by sortBy.
func (c *Catalog) List(ctx context.Context, sortBy string) ([]listing.Listing, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	listings, err := c.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load listings: %w", err)
	}
	if err := listing.Sort(listings, sortBy); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return listings, nil
}

// Get returns one listing.
func (c *Catalog) Get(ctx context.Context, id int64) (listing.Listing, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	listings, err := c.store.Load(ctx)
	if err != nil {
		return listing.Listing{}, fmt.Errorf("load listings: %w", err)
	}
	i := indexOf(listings, id)
	if i < 0 {
		return listing.Listing{}, fmt.Errorf("listing %d: %w", id, ErrNotFound)
	}
	return listings[i], nil
}

// KnownURLs returns the source URLs already in the collection.
func (c *Catalog) KnownURLs(ctx context.Context) (map[string]bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	listings, err := c.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load listings: %w", err)
	}
	urls := make(map[string]bool, len(listings))
	for _, l := range listings {
		if l.URL != "" {
			urls[l.URL] = true
		}
	}
	return urls, nil
}

// Rescore runs a scoring pass over the stored collection and saves it.
func (c *Catalog) Rescore(ctx context.Context) (score.Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, report, err := c.mutate(ctx, func(ls []listing.Listing) ([]listing.Listing, error) {
		return ls, nil
	})
	return report, err
}

// Stats scores a copy of the collection without saving it.
func (c *Catalog) Stats(ctx context.Context) (score.Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	listings, err := c.store.Load(ctx)
	if err != nil {
		return score.Report{}, fmt.Errorf("load listings: %w", err)
	}
	return c.engine.Assign(listings), nil
}

// Top returns the best scored listing, or nil when nothing has a score.
func (c *Catalog) Top(ctx context.Context) (*listing.Listing, error) {
	listings, err := c.List(ctx, listing.SortScore)
	if err != nil {
		return nil, err
	}
	for i := range listings {
		if listings[i].Components != nil {
			return &listings[i], nil
		}
	}
	// A lone listing is scored from its rating and carries no components.
	if len(listings) > 0 && listings[0].Score > 0 {
		return &listings[0], nil
	}
	return nil, nil
}

// Settings returns the current origin and weights.
func (c *Catalog) Settings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Settings{
		Origin:     c.origin,
		Weights:    c.engine.Weights(),
		RatingAxis: c.engine.Options().RatingAxis,
	}
}

// UpdateSettings changes the origin and/or weights and rescores everything.
// A new origin applies to listings acquired afterwards.
func (c *Catalog) UpdateSettings(ctx context.Context, origin string, weights *score.Weights) (score.Report, error) {
	if origin == "" && weights == nil {
		return score.Report{}, fmt.Errorf("%w: nothing to update", ErrInvalid)
	}
	if weights != nil {
		if err := weights.Validate(); err != nil {
			return score.Report{}, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if origin != "" {
		c.origin = origin
		c.log.Info("[catalog] origin set to %s", origin)
	}
	if weights != nil {
		c.engine = score.NewEngine(*weights, c.engine.Options())
		c.log.Info("[catalog] weights updated (rating weight %.2f)", weights.RatingWeight())
	}

	_, report, err := c.mutate(ctx, func(ls []listing.Listing) ([]listing.Listing, error) {
		return ls, nil
	})
	return report, err
}

// SaveSpiel stores the application text.
func (c *Catalog) SaveSpiel(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if dir := filepath.Dir(c.spielPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create spiel dir: %w", err)
		}
	}
	if err := os.WriteFile(c.spielPath, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write spiel: %w", err)
	}
	return nil
}

// Spiel returns the saved application text, empty when none was saved.
func (c *Catalog) Spiel() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.spielPath)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read spiel: %w", err)
	}
	return string(data), nil
}

// mutate loads the collection, applies fn, scores and saves. The caller
// holds c.mu.
func (c *Catalog) mutate(ctx context.Context, fn func([]listing.Listing) ([]listing.Listing, error)) ([]listing.Listing, score.Report, error) {
	listings, err := c.store.Load(ctx)
	if err != nil {
		return nil, score.Report{}, fmt.Errorf("load listings: %w", err)
	}
	listings, err = fn(listings)
	if err != nil {
		return nil, score.Report{}, err
	}

	report := c.engine.Assign(listings)
	if err := c.store.Save(ctx, listings); err != nil {
		return nil, score.Report{}, fmt.Errorf("save listings: %w", err)
	}
	c.log.Debug("[catalog] saved %d listings (%d scorable)", report.Total, report.Scorable)
	return listings, report, nil
}

// nextID derives an ID from the current time, bumped past any ID in use.
func (c *Catalog) nextID(listings []listing.Listing) int64 {
	id, _ := strconv.ParseInt(c.now().Format(idLayout), 10, 64)
	used := make(map[int64]bool, len(listings))
	for _, l := range listings {
		used[l.ID] = true
	}
	for used[id] {
		id++
	}
	return id
}

func indexOf(listings []listing.Listing, id int64) int {
	for i := range listings {
		if listings[i].ID == id {
			return i
		}
	}
	return -1
}

func findDuplicate(listings []listing.Listing, address string, skipID int64) bool {
	key := listing.NormalizeAddress(address)
	for i := range listings {
		if listings[i].ID != skipID && listings[i].Key() == key {
			return true
		}
	}
	return false
}
