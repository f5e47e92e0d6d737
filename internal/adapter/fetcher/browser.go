package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quiz-pilot/internal/config"

	"github.com/chromedp/chromedp"
)

// ErrBrowserDisabled is returned when rendering is switched off in config.
var ErrBrowserDisabled = errors.New("headless browser is disabled")

const settleDelay = 300 * time.Millisecond

// Browser starts headless Chrome sessions, locally or on a remote
// DevTools endpoint.
type Browser struct {
	cfg       config.BrowserConfig
	userAgent string
}

func NewBrowser(cfg config.BrowserConfig, userAgent string) *Browser {
	return &Browser{cfg: cfg, userAgent: userAgent}
}

func (b *Browser) Enabled() bool {
	return b != nil && b.cfg.Enabled
}

// NewSession returns a browser tab context bounded by the configured timeout.
// The returned cancel func closes the tab and the browser process.
func (b *Browser) NewSession(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if !b.Enabled() {
		return nil, nil, ErrBrowserDisabled
	}

	timeout := b.cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancelTimeout := context.WithTimeout(ctx, timeout)

	var allocCtx context.Context
	var cancelAlloc context.CancelFunc
	if b.cfg.RemoteURL != "" {
		allocCtx, cancelAlloc = chromedp.NewRemoteAllocator(ctx, b.cfg.RemoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.DisableGPU,
			chromedp.NoSandbox,
		)
		if b.userAgent != "" {
			opts = append(opts, chromedp.UserAgent(b.userAgent))
		}
		allocCtx, cancelAlloc = chromedp.NewExecAllocator(ctx, opts...)
	}

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	return tabCtx, func() {
		cancelTab()
		cancelAlloc()
		cancelTimeout()
	}, nil
}

// Renderer returns page HTML after client-side scripts have run.
type Renderer struct {
	browser *Browser
}

func NewRenderer(browser *Browser) *Renderer {
	return &Renderer{browser: browser}
}

// Render waits for body, lets scripts settle briefly, then returns the
// document's outer HTML.
func (r *Renderer) Render(ctx context.Context, pageURL string) (string, error) {
	tabCtx, cancel, err := r.browser.NewSession(ctx)
	if err != nil {
		return "", err
	}
	defer cancel()

	var outerHTML string
	err = chromedp.Run(tabCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(settleDelay),
		chromedp.OuterHTML("html", &outerHTML, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", pageURL, err)
	}
	return outerHTML, nil
}
