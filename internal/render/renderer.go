// Package render wraps a headless browser behind a single operation:
// navigate to a URL, let client-side scripts populate the page, and return
// the final serialized HTML. The listing site renders its product grid in
// the browser, so a plain HTTP GET would come back empty.
package render

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"

	"github.com/mfurukawa/dellwatch/internal/config"
)

// Browser owns one headless Chrome instance for the lifetime of a crawl run.
// Pages within a run are fetched strictly one at a time, so no page pool is
// needed; each Render call opens and closes its own tab.
type Browser struct {
	browser *rod.Browser
	timeout time.Duration
}

// New launches a headless browser per the crawl configuration.
func New(cfg *config.CrawlConfig) (*Browser, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(true)
	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	log.Info().Str("control_url", controlURL).Msg("browser launched")

	return &Browser{browser: browser, timeout: cfg.FetchTimeout}, nil
}

// Render navigates to pageURL, waits for the page to finish loading and for
// the DOM to settle, and returns the final HTML. Timeouts and navigation
// errors all surface as one wrapped fetch error; the caller treats any
// non-nil error as a failed page fetch.
func (b *Browser) Render(ctx context.Context, pageURL string) (html string, err error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	page, err := b.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fmt.Errorf("fetch %s: open page: %w", pageURL, err)
	}
	defer func() {
		// Close with the original page reference so cleanup succeeds even
		// after the fetch context has expired.
		if closeErr := page.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close page")
		}
	}()

	// rod panics through Must* helpers; this path uses the error-returning
	// API exclusively so a slow page becomes a fetch error, not a crash.
	p := page.Context(ctx)
	if err := p.Navigate(pageURL); err != nil {
		return "", fmt.Errorf("fetch %s: navigate: %w", pageURL, err)
	}
	if err := p.WaitLoad(); err != nil {
		return "", fmt.Errorf("fetch %s: wait load: %w", pageURL, err)
	}
	// The product grid is script-rendered after load; wait for DOM churn to
	// die down before serializing.
	if err := p.WaitDOMStable(300*time.Millisecond, 0); err != nil {
		return "", fmt.Errorf("fetch %s: wait dom stable: %w", pageURL, err)
	}

	html, err = p.HTML()
	if err != nil {
		return "", fmt.Errorf("fetch %s: serialize html: %w", pageURL, err)
	}
	return html, nil
}

// Close shuts the browser process down. Call on run teardown to avoid
// leaking Chrome processes.
func (b *Browser) Close() {
	if err := b.browser.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close browser")
	}
}
