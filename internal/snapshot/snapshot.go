// Package snapshot captures full-page screenshots of a running dashboard with
// a headless Chrome driven by chromedp.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

const (
	DefaultTimeout      = 30 * time.Second
	DefaultWidth        = 1280
	DefaultHeight       = 900
	DefaultWaitSelector = "body"
)

// ErrInvalidOptions is wrapped by every Options validation failure.
var ErrInvalidOptions = errors.New("invalid snapshot options")

// Options describes one capture.
type Options struct {
	URL          string
	Out          string
	WaitSelector string
	Timeout      time.Duration
	Width        int
	Height       int
	// ExecPath overrides the Chrome binary chromedp looks up.
	ExecPath string
}

// WithDefaults fills unset fields.
func (o Options) WithDefaults() Options {
	if o.WaitSelector == "" {
		o.WaitSelector = DefaultWaitSelector
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	return o
}

// Validate checks that the URL is absolute http(s) and the output is a .png
// file.
func (o Options) Validate() error {
	u, err := url.Parse(o.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: url %q must be an absolute http(s) address", ErrInvalidOptions, o.URL)
	}
	if o.Out == "" {
		return fmt.Errorf("%w: output path is required", ErrInvalidOptions)
	}
	if !strings.EqualFold(filepath.Ext(o.Out), ".png") {
		return fmt.Errorf("%w: output %q must be a .png file", ErrInvalidOptions, o.Out)
	}
	if o.Width < 0 || o.Height < 0 {
		return fmt.Errorf("%w: viewport %dx%d", ErrInvalidOptions, o.Width, o.Height)
	}
	return nil
}

// Capture loads opts.URL, waits for opts.WaitSelector to be visible and
// returns a full-page PNG.
func Capture(ctx context.Context, opts Options, logger *slog.Logger) ([]byte, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.WithDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(opts.Width, opts.Height),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()
	runCtx, cancelRun := context.WithTimeout(browserCtx, opts.Timeout)
	defer cancelRun()

	var png []byte
	err := chromedp.Run(runCtx,
		timedAction(logger, "navigate", chromedp.Navigate(opts.URL)),
		timedAction(logger, "wait", chromedp.WaitVisible(opts.WaitSelector, chromedp.ByQuery)),
		timedAction(logger, "screenshot", chromedp.FullScreenshot(&png, 100)),
	)
	if err != nil {
		return nil, fmt.Errorf("capture %s: %w", opts.URL, err)
	}
	return png, nil
}

// CaptureFile captures opts.URL and writes the PNG to opts.Out.
func CaptureFile(ctx context.Context, opts Options, logger *slog.Logger) error {
	png, err := Capture(ctx, opts, logger)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(opts.Out); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(opts.Out, png, 0644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func timedAction(logger *slog.Logger, name string, act chromedp.Action) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		start := time.Now()
		err := act.Do(ctx)
		logger.DebugContext(ctx, "snapshot step",
			slog.String("step", name),
			slog.Duration("duration", time.Since(start)),
			slog.Bool("ok", err == nil))
		return err
	})
}
