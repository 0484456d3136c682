package source

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/elonfeng/rentradar/internal/logging"
)

// Feed is a named RSS/Atom saved-search feed. Include and Exclude filter
// entries by title.
type Feed struct {
	Name    string
	URL     string
	Include []string
	Exclude []string
}

// Discovered is a listing URL announced by a feed.
type Discovered struct {
	Feed      string
	URL       string
	Title     string
	Published time.Time
}

// FeedDiscoverer finds new listing URLs in saved-search feeds.
type FeedDiscoverer struct {
	client    *http.Client
	parser    *gofeed.Parser
	feeds     []Feed
	userAgent string
	log       *logging.Logger
}

// NewFeedDiscoverer creates a discoverer over the given feeds.
func NewFeedDiscoverer(feeds []Feed, userAgent string, log *logging.Logger) *FeedDiscoverer {
	return &FeedDiscoverer{
		client:    &http.Client{Timeout: 30 * time.Second},
		parser:    gofeed.NewParser(),
		feeds:     feeds,
		userAgent: userAgent,
		log:       log,
	}
}

// Discover returns the unique listing URLs across all feeds. A failing feed
// is logged and skipped.
func (f *FeedDiscoverer) Discover(ctx context.Context) ([]Discovered, error) {
	seen := make(map[string]bool)
	var out []Discovered

	for _, feed := range f.feeds {
		items, err := f.discoverFeed(ctx, feed)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			f.log.Warn("[feeds] %s: %v", feed.Name, err)
			continue
		}
		for _, item := range items {
			if seen[item.URL] {
				continue
			}
			seen[item.URL] = true
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *FeedDiscoverer) discoverFeed(ctx context.Context, feed Feed) ([]Discovered, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create feed request %s: %w", feed.Name, err)
	}
	ua := f.userAgent
	if ua == "" {
		ua = "rentradar/1.0"
	}
	req.Header.Set("User-Agent", ua)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", feed.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed %s status %d", feed.Name, resp.StatusCode)
	}

	parsed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feed.Name, err)
	}

	filter := NewFilter(feed.Include, feed.Exclude)
	var items []Discovered
	for _, entry := range parsed.Items {
		if !filter.Matches(entry.Title) {
			continue
		}
		link := strings.TrimSpace(entry.Link)
		if link == "" && len(entry.Links) > 0 {
			link = strings.TrimSpace(entry.Links[0])
		}
		if link == "" {
			continue
		}

		published := time.Now().UTC()
		if entry.PublishedParsed != nil {
			published = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			published = entry.UpdatedParsed.UTC()
		}

		items = append(items, Discovered{
			Feed:      feed.Name,
			URL:       link,
			Title:     entry.Title,
			Published: published,
		})
	}
	return items, nil
}
