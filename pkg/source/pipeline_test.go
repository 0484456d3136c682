package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/rentradar/internal/logging"
)

type stubFetcher struct {
	pages map[string]string
	errs  []error
	calls int
}

func (s *stubFetcher) Fetch(_ context.Context, url string) (string, error) {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return "", err
		}
	}
	page, ok := s.pages[url]
	if !ok {
		return "", fmt.Errorf("no page for %s", url)
	}
	return page, nil
}

type stubImages struct{ err error }

func (s stubImages) DataURI(context.Context, string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "data:image/jpeg;base64,AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", nil
}

type stubDistance struct {
	miles float64
	err   error
}

func (s stubDistance) Miles(context.Context, string, string) (float64, error) {
	return s.miles, s.err
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	r := Retry{Attempts: 3, BaseDelay: time.Millisecond, Log: logging.Discard()}
	err := r.Do(context.Background(), "op", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryGivesUp(t *testing.T) {
	calls := 0
	r := Retry{Attempts: 2, BaseDelay: time.Millisecond}
	err := r.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return errors.New("down")
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func TestRetrySkipsCaptcha(t *testing.T) {
	calls := 0
	r := Retry{Attempts: 5, BaseDelay: time.Millisecond}
	err := r.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return fmt.Errorf("fetch: %w", ErrCaptcha)
	})
	assert.ErrorIs(t, err, ErrCaptcha)
	assert.Equal(t, 1, calls)
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := Retry{Attempts: 3, BaseDelay: time.Hour}
	calls := 0
	err := r.Do(ctx, "op", func(context.Context) error {
		calls++
		cancel()
		return errors.New("down")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestAcquireEnriches(t *testing.T) {
	url := "https://example.com/homedetails/1"
	f := &stubFetcher{
		pages: map[string]string{url: jsonLDPage},
		errs:  []error{errors.New("reset by peer")},
	}
	a := NewAcquirer(f, stubImages{}, stubDistance{miles: 3.4},
		Retry{Attempts: 2, BaseDelay: time.Millisecond}, logging.Discard())

	c, err := a.Acquire(context.Background(), url, "CSU")
	require.NoError(t, err)
	assert.Equal(t, 2, f.calls)
	assert.Equal(t, "12 Oak St, Fort Collins, CO, 80524", c.Address)
	require.Len(t, c.Images, 1)
	require.NotNil(t, c.Distance)
	assert.Equal(t, 3.4, *c.Distance)
}

func TestAcquireToleratesEnrichmentFailures(t *testing.T) {
	a := NewAcquirer(nil, stubImages{err: errors.New("404")}, stubDistance{err: ErrNoAPIKey},
		Retry{}, logging.Discard())

	c, err := a.AcquireHTML(context.Background(), jsonLDPage, "u", "CSU")
	require.NoError(t, err)
	assert.Empty(t, c.Images)
	assert.Nil(t, c.Distance)
}

func TestAcquireWithoutOriginSkipsDistance(t *testing.T) {
	a := NewAcquirer(nil, nil, stubDistance{miles: 9}, Retry{}, logging.Discard())
	c, err := a.AcquireHTML(context.Background(), markupPage, "u", "")
	require.NoError(t, err)
	assert.Nil(t, c.Distance)
}

func TestAcquireErrors(t *testing.T) {
	a := NewAcquirer(nil, nil, nil, Retry{}, logging.Discard())
	_, err := a.Acquire(context.Background(), "u", "")
	assert.Error(t, err)

	_, err = a.AcquireHTML(context.Background(), "<p>nothing</p>", "u", "")
	assert.ErrorIs(t, err, ErrNoAddress)

	f := &stubFetcher{errs: []error{ErrCaptcha}}
	a = NewAcquirer(f, nil, nil, Retry{Attempts: 3, BaseDelay: time.Millisecond}, logging.Discard())
	_, err = a.Acquire(context.Background(), "u", "")
	assert.ErrorIs(t, err, ErrCaptcha)
	assert.Equal(t, 1, f.calls)
}

const rssFixture = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Saved search</title>
<item><title>12 Oak St</title><link>https://example.com/homedetails/1</link>
<pubDate>Tue, 01 Jul 2025 09:30:00 GMT</pubDate></item>
<item><title>9 Elm Ave</title><link>https://example.com/homedetails/2</link></item>
<item><title>no link</title></item>
</channel></rss>`

func TestFeedDiscover(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			http.Error(w, "nope", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rssFixture))
	}))
	defer srv.Close()

	d := NewFeedDiscoverer([]Feed{
		{Name: "a", URL: srv.URL + "/a"},
		{Name: "broken", URL: srv.URL + "/broken"},
		{Name: "b", URL: srv.URL + "/b"},
	}, "", logging.Discard())

	found, err := d.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "https://example.com/homedetails/1", found[0].URL)
	assert.Equal(t, "a", found[0].Feed)
	assert.Equal(t, 2025, found[0].Published.Year())
	assert.Equal(t, "9 Elm Ave", found[1].Title)
}

func TestFeedDiscoverFiltersTitles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rssFixture))
	}))
	defer srv.Close()

	d := NewFeedDiscoverer([]Feed{{Name: "a", URL: srv.URL, Exclude: []string{"ELM"}}}, "", logging.Discard())
	found, err := d.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "12 Oak St", found[0].Title)
}

func TestFilter(t *testing.T) {
	f := NewFilter([]string{"2 bed", " townhouse "}, []string{"studio"})
	assert.True(t, f.Matches("Sunny 2 Bed near campus"))
	assert.True(t, f.Matches("TOWNHOUSE with garage"))
	assert.False(t, f.Matches("2 bed studio loft"))
	assert.False(t, f.Matches("1 bed condo"))

	var none *Filter
	assert.True(t, none.Matches("anything"))
	assert.True(t, NewFilter(nil, nil).Matches("anything"))
}
