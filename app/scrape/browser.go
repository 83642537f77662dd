package scrape

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Browser owns a headless Chrome session used for rendered extraction.
// The session is acquired once per job via Start and released exactly
// once via Stop; Render opens an isolated tab per page.
type Browser struct {
	execPath      string
	userAgent     string
	renderTimeout time.Duration

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

func NewBrowser(execPath, userAgent string, renderTimeout time.Duration) *Browser {
	return &Browser{
		execPath:      execPath,
		userAgent:     userAgent,
		renderTimeout: renderTimeout,
	}
}

// Start launches the browser process. A failure leaves the session
// unusable and subsequent Render calls return ErrRenderUnavailable.
func (b *Browser) Start(ctx context.Context) error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.UserAgent(b.userAgent),
	)
	if b.execPath != "" {
		opts = append(opts, chromedp.ExecPath(b.execPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Run with no actions forces the browser process to launch now, so
	// a missing or broken Chrome binary fails the job start instead of
	// the first page.
	startCtx, cancel := context.WithTimeout(browserCtx, b.renderTimeout)
	defer cancel()
	if err := chromedp.Run(startCtx); err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("%w: %v", ErrRenderUnavailable, err)
	}

	select {
	case <-ctx.Done():
		browserCancel()
		allocCancel()
		return fmt.Errorf("%w: %v", ErrRenderUnavailable, ctx.Err())
	default:
	}

	b.allocCancel = allocCancel
	b.browserCtx = browserCtx
	b.browserCancel = browserCancel
	return nil
}

// Stop releases the browser process. Safe to call when Start failed or
// was never called.
func (b *Browser) Stop() {
	if b.browserCancel != nil {
		b.browserCancel()
		b.browserCancel = nil
	}
	if b.allocCancel != nil {
		b.allocCancel()
		b.allocCancel = nil
	}
	b.browserCtx = nil
}

// Render loads the URL in a fresh tab, waits for the document to become
// ready and returns the rendered markup. The per-page deadline aborts a
// hung load with ErrRenderTimeout.
func (b *Browser) Render(ctx context.Context, pageURL string) (string, error) {
	if b.browserCtx == nil {
		return "", ErrRenderUnavailable
	}

	tabCtx, cancelTab := chromedp.NewContext(b.browserCtx)
	defer cancelTab()

	runCtx, cancel := context.WithTimeout(tabCtx, b.renderTimeout)
	defer cancel()

	// Abort the tab if the caller's job deadline fires first.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html string
	err := chromedp.Run(runCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(renderHeaders()),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%s: %w", pageURL, ErrRenderTimeout)
		}
		return "", fmt.Errorf("failed to render %s: %w", pageURL, err)
	}

	if strings.TrimSpace(html) == "" {
		return "", fmt.Errorf("empty document rendered for %s", pageURL)
	}

	return html, nil
}

// renderHeaders carries the same Accept headers the static extractor
// sends. The User-Agent is already set at the allocator level.
func renderHeaders() network.Headers {
	return network.Headers{
		"Accept":          headerAccept,
		"Accept-Language": headerAcceptLanguage,
	}
}
