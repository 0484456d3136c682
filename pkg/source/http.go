package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

const maxPageBytes = 20 << 20

// HTTPFetcher downloads pages without rendering them. It works for sites
// that embed listing data in the initial HTML.
type HTTPFetcher struct {
	client *http.Client
	opts   FetchOptions
}

// NewHTTPFetcher creates a plain HTTP fetcher.
func NewHTTPFetcher(opts FetchOptions) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{Timeout: opts.timeout()},
		opts:   opts,
	}
}

func (h *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request %s: %w", url, err)
	}
	for k, v := range h.opts.Headers {
		req.Header.Set(k, v)
	}
	// net/http only decodes gzip transparently when it set the header itself.
	req.Header.Del("Accept-Encoding")
	if h.opts.UserAgent != "" {
		req.Header.Set("User-Agent", h.opts.UserAgent)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}
	html := string(body)

	if looksLikeCaptcha(html) {
		return "", fmt.Errorf("fetch %s: %w", url, ErrCaptcha)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	return html, nil
}
