package source

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/elonfeng/rentradar/pkg/listing"
)

const maxImageBytes = 10 << 20

// ImageFetcher downloads listing photos and embeds them as data URIs.
type ImageFetcher struct {
	client  *http.Client
	headers map[string]string
}

// NewImageFetcher creates an ImageFetcher sending the given headers.
func NewImageFetcher(headers map[string]string) *ImageFetcher {
	return &ImageFetcher{
		client:  &http.Client{Timeout: 10 * time.Second},
		headers: headers,
	}
}

// DataURI fetches url and returns it as data:<mime>;base64,<payload>.
func (f *ImageFetcher) DataURI(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create image request: %w", err)
	}
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}
	req.Header.Del("Accept-Encoding")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch image %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch image %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return "", fmt.Errorf("read image %s: %w", url, err)
	}

	mime := strings.TrimSpace(strings.Split(resp.Header.Get("Content-Type"), ";")[0])
	if mime == "" {
		mime = "application/octet-stream"
	}
	uri := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(body)
	if !listing.ValidImage(uri) {
		return "", fmt.Errorf("image %s too small to be valid", url)
	}
	return uri, nil
}
