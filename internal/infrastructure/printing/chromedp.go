package printing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const (
	defaultRenderTimeout = 30 * time.Second
	mmPerInch            = 25.4
)

// ChromedpConfig configures the headless browser renderer. A non-empty
// RemoteURL connects to an already running Chrome instead of launching one.
type ChromedpConfig struct {
	DefaultTimeout time.Duration
	RemoteURL      string
	// NoSandbox is required when Chrome runs as root, as in most containers.
	NoSandbox bool
	Scale     float64
	Logger    *zap.Logger
}

// ChromedpRenderer renders HTML to PDF over the Chrome DevTools Protocol.
// Each Render call opens its own tab; the allocator is shared.
type ChromedpRenderer struct {
	timeout time.Duration
	scale   float64
	logger  *zap.Logger

	allocCtx context.Context
	cancel   context.CancelFunc
}

// NewChromedpRenderer creates the renderer and its browser allocator.
func NewChromedpRenderer(config *ChromedpConfig) (*ChromedpRenderer, error) {
	if config == nil {
		config = &ChromedpConfig{}
	}

	r := &ChromedpRenderer{
		timeout: config.DefaultTimeout,
		scale:   config.Scale,
		logger:  config.Logger,
	}
	if r.timeout <= 0 {
		r.timeout = defaultRenderTimeout
	}
	if r.scale <= 0 {
		r.scale = 1.0
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}

	if config.RemoteURL != "" {
		r.allocCtx, r.cancel = chromedp.NewRemoteAllocator(context.Background(), config.RemoteURL)
	} else {
		r.allocCtx, r.cancel = chromedp.NewExecAllocator(context.Background(), browserFlags(config.NoSandbox)...)
	}
	return r, nil
}

func browserFlags(noSandbox bool) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-extensions", true),
		// /dev/shm is tiny inside containers.
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if noSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	return opts
}

// Render converts the request's HTML into a PDF document.
func (r *ChromedpRenderer) Render(ctx context.Context, req *RenderRequest) (*RenderResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = r.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tab, closeTab := chromedp.NewContext(r.allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			r.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	defer closeTab()

	start := time.Now()
	var pdf []byte
	err := chromedp.Run(tab,
		chromedp.Navigate("about:blank"),
		setDocumentContent(wrapDocument(req)),
		printToPDF(req, r.scale, &pdf),
	)
	if err != nil {
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return nil, NewRenderError(ErrCodeRenderTimeout,
				fmt.Sprintf("PDF rendering timed out after %v", timeout), err)
		case errors.Is(ctx.Err(), context.Canceled):
			return nil, NewRenderError(ErrCodeRenderTimeout, "PDF rendering was cancelled", err)
		}
		r.logger.Error("chromedp rendering failed", zap.Error(err))
		return nil, NewRenderError(ErrCodeRenderFailed, "chromedp execution failed: "+err.Error(), err)
	}
	if len(pdf) == 0 {
		return nil, NewRenderError(ErrCodeRenderFailed, "generated PDF is empty", nil)
	}

	elapsed := time.Since(start)
	r.logger.Info("PDF rendered",
		zap.Int("bytes", len(pdf)),
		zap.Duration("duration", elapsed))

	return &RenderResult{PDFData: pdf, RenderDuration: elapsed}, nil
}

func setDocumentContent(html string) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		frameTree, err := page.GetFrameTree().Do(ctx)
		if err != nil {
			return err
		}
		return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
	}
}

func printToPDF(req *RenderRequest, scale float64, out *[]byte) chromedp.ActionFunc {
	width, height := req.PaperSize.Dimensions()
	return func(ctx context.Context) error {
		data, _, err := page.PrintToPDF().
			WithPrintBackground(true).
			WithPaperWidth(width / mmPerInch).
			WithPaperHeight(height / mmPerInch).
			WithMarginTop(req.Margins.Top / mmPerInch).
			WithMarginRight(req.Margins.Right / mmPerInch).
			WithMarginBottom(req.Margins.Bottom / mmPerInch).
			WithMarginLeft(req.Margins.Left / mmPerInch).
			WithScale(scale).
			WithLandscape(req.Orientation == OrientationLandscape).
			Do(ctx)
		if err != nil {
			return err
		}
		*out = data
		return nil
	}
}

// wrapDocument completes bare HTML fragments; full documents pass through
// untouched.
func wrapDocument(req *RenderRequest) string {
	lower := strings.ToLower(req.HTML)
	if strings.Contains(lower, "<!doctype") || strings.Contains(lower, "<html") {
		return req.HTML
	}

	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><head><meta charset="UTF-8">`)
	b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1.0">`)
	if req.Title != "" {
		b.WriteString("<title>")
		b.WriteString(req.Title)
		b.WriteString("</title>")
	}
	b.WriteString("</head><body>")
	b.WriteString(req.HTML)
	b.WriteString("</body></html>")
	return b.String()
}

// Close shuts down the browser allocator.
func (r *ChromedpRenderer) Close() error {
	if r.cancel != nil {
		r.cancel()
	}
	return nil
}

var _ PDFRenderer = (*ChromedpRenderer)(nil)
