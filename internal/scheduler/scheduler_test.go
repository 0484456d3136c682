package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/rentradar/internal/catalog"
	"github.com/elonfeng/rentradar/internal/logging"
	"github.com/elonfeng/rentradar/pkg/alert"
	"github.com/elonfeng/rentradar/pkg/listing"
	"github.com/elonfeng/rentradar/pkg/source"
)

type fakeCatalog struct {
	listings []listing.Listing
	scores   map[string]float64
	requests []catalog.AddRequest
	failURL  string
}

func (f *fakeCatalog) KnownURLs(context.Context) (map[string]bool, error) {
	known := map[string]bool{}
	for _, l := range f.listings {
		known[l.URL] = true
	}
	return known, nil
}

func (f *fakeCatalog) AddFromURL(_ context.Context, req catalog.AddRequest) (listing.Listing, error) {
	f.requests = append(f.requests, req)
	if req.URL == f.failURL {
		return listing.Listing{}, errors.New("captcha challenge detected")
	}
	l := listing.Listing{
		ID:         int64(len(f.listings) + 1),
		URL:        req.URL,
		Address:    "addr " + req.URL,
		Score:      f.scores[req.URL],
		Components: &listing.Components{},
	}
	f.listings = append(f.listings, l)
	return l, nil
}

func (f *fakeCatalog) List(context.Context, string) ([]listing.Listing, error) {
	out := append([]listing.Listing(nil), f.listings...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

type fakeDiscoverer struct{ urls []string }

func (f *fakeDiscoverer) Discover(context.Context) ([]source.Discovered, error) {
	var out []source.Discovered
	for _, u := range f.urls {
		out = append(out, source.Discovered{Feed: "saved", URL: u})
	}
	return out, nil
}

type recordingNotifier struct{ sent []*alert.Notification }

func (r *recordingNotifier) Name() string { return "recording" }
func (r *recordingNotifier) Send(_ context.Context, n *alert.Notification) error {
	r.sent = append(r.sent, n)
	return nil
}

func TestTickAddsUnseenAndAlertsOnNewTop(t *testing.T) {
	cat := &fakeCatalog{
		listings: []listing.Listing{{ID: 100, URL: "u0", Address: "old", Score: 50, Components: &listing.Components{}}},
		scores:   map[string]float64{"u1": 40, "u2": 90, "u3": 10},
		failURL:  "bad",
	}
	disc := &fakeDiscoverer{urls: []string{"u0", "u1"}}
	rec := &recordingNotifier{}
	s := New(cat, disc, alert.NewManager([]alert.Notifier{rec}),
		Options{Occupants: 3, Rating: 6}, logging.Discard())

	ctx := context.Background()
	assert.Equal(t, 1, s.Tick(ctx))
	require.Len(t, cat.requests, 1)
	assert.Equal(t, "u1", cat.requests[0].URL)
	assert.Equal(t, 3, *cat.requests[0].Occupants)
	assert.Equal(t, 6, *cat.requests[0].Rating)
	assert.Empty(t, rec.sent, "first round only records the top listing")

	disc.urls = []string{"u1", "bad", "u3"}
	assert.Equal(t, 1, s.Tick(ctx))
	assert.Empty(t, rec.sent)

	disc.urls = []string{"u2"}
	assert.Equal(t, 1, s.Tick(ctx))
	require.Len(t, rec.sent, 1)
	assert.Equal(t, "New top rental: addr u2", rec.sent[0].Title)
	assert.Equal(t, 90.0, rec.sent[0].Score)
	assert.Len(t, rec.sent[0].Listings, 3)
}

func TestRequestIgnoresOutOfRangeDefaults(t *testing.T) {
	s := New(&fakeCatalog{}, &fakeDiscoverer{}, nil, Options{Rating: 11}, logging.Discard())
	req := s.request("u")
	assert.Nil(t, req.Occupants)
	assert.Nil(t, req.Rating)
	assert.Equal(t, 30*time.Minute, s.opts.Interval)
}

func TestRunStopsOnCancel(t *testing.T) {
	cat := &fakeCatalog{scores: map[string]float64{}}
	disc := &fakeDiscoverer{urls: []string{"a"}}
	s := New(cat, disc, nil, Options{Interval: time.Millisecond}, logging.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := s.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, cat.listings, 1, fmt.Sprintf("requests: %v", cat.requests))
}
