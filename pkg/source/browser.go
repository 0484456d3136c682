package source

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/elonfeng/rentradar/internal/logging"
)

// BrowserFetcher renders pages in headless Chrome.
type BrowserFetcher struct {
	opts FetchOptions
	log  *logging.Logger
}

// NewBrowserFetcher creates a Chrome-backed fetcher. Chrome is started per
// fetch so an idle server holds no browser process.
func NewBrowserFetcher(opts FetchOptions, log *logging.Logger) *BrowserFetcher {
	if opts.MinDelay == 0 && opts.MaxDelay == 0 {
		opts.MinDelay, opts.MaxDelay = 2*time.Second, 5*time.Second
	}
	return &BrowserFetcher{opts: opts, log: log}
}

func (b *BrowserFetcher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1366, 900),
	)
	if b.opts.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(b.opts.UserAgent))
	}
	if bin := findChromeBinary(b.opts.ChromeBin); bin != "" {
		opts = append(opts, chromedp.ExecPath(bin))
	}
	return opts
}

// Fetch navigates to url and returns the rendered document.
func (b *BrowserFetcher) Fetch(ctx context.Context, url string) (string, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, b.allocatorOptions()...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...any) {}))
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.opts.timeout())
	defer cancelTimeout()

	headers := make(network.Headers, len(b.opts.Headers))
	for k, v := range b.opts.Headers {
		headers[k] = v
	}

	b.log.Debug("[browser] navigating to %s", url)
	var html string
	err := chromedp.Run(tabCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(headers),
		chromedp.Sleep(b.delay()),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(b.delay()),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", url, err)
	}
	if looksLikeCaptcha(html) {
		return "", fmt.Errorf("render %s: %w", url, ErrCaptcha)
	}
	return html, nil
}

// delay returns a random pause between MinDelay and MaxDelay.
func (b *BrowserFetcher) delay() time.Duration {
	lo, hi := b.opts.MinDelay, b.opts.MaxDelay
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo)
}

// findChromeBinary locates Chrome/Chromium, preferring an explicit path.
func findChromeBinary(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	for _, name := range []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	for _, p := range []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
