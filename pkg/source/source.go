// Package source acquires rental listings: it fetches listing pages, parses
// them into candidates and enriches them with an image and a commute distance.
package source

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrCaptcha means the site served a bot check instead of the listing.
	ErrCaptcha = errors.New("captcha challenge detected")
	// ErrNoAddress means the page did not yield a street address.
	ErrNoAddress = errors.New("no address found in listing page")
)

// Fetcher retrieves the rendered HTML of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// FetchOptions configures both fetcher implementations.
type FetchOptions struct {
	Headless  bool
	ChromeBin string
	Timeout   time.Duration
	UserAgent string
	Headers   map[string]string
	// MinDelay and MaxDelay bound the random pauses taken around navigation.
	MinDelay time.Duration
	MaxDelay time.Duration
}

func (o FetchOptions) timeout() time.Duration {
	if o.Timeout <= 0 {
		return 60 * time.Second
	}
	return o.Timeout
}

var captchaMarkers = []string{
	"verify you're not a robot",
	"verify you are a human",
	"please verify you are a human",
	`name="h_captcha_response"`,
	"px-captcha",
}

// looksLikeCaptcha reports whether html is a bot-check page.
func looksLikeCaptcha(html string) bool {
	lower := strings.ToLower(html)
	for _, m := range captchaMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
