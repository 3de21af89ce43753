package fetch

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
)

// Default capture parameters for schedule pages. Schedule tables are
// tall and narrow; a portrait viewport keeps the OCR input readable.
const (
	defaultCaptureWidth   = 1080
	defaultCaptureHeight  = 1920
	defaultCaptureTimeout = 30 * time.Second
)

// WebSource screenshots a schedule web page with headless Chromium and
// feeds the image to OCR. It covers sources that publish the schedule
// as a rendered page rather than through an API.
type WebSource struct {
	// URL is the schedule page to capture.
	URL string
	// WaitSelector, if set, is a CSS selector that must be visible
	// before the screenshot is taken.
	WaitSelector string
	// Width and Height are viewport dimensions; zero means defaults.
	Width  int
	Height int
	// Timeout bounds the whole capture; zero means a sane default.
	Timeout time.Duration

	OCR OCR
}

func (s WebSource) Text(ctx context.Context) (string, error) {
	png, err := s.capture(ctx)
	if err != nil {
		return "", err
	}
	return s.OCR.ExtractText(ctx, png)
}

func (s WebSource) capture(parentCtx context.Context) ([]byte, error) {
	width := s.Width
	if width <= 0 {
		width = defaultCaptureWidth
	}
	height := s.Height
	if height <= 0 {
		height = defaultCaptureHeight
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultCaptureTimeout
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, timeout)
	defer timeoutCancel()

	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(width), int64(height)),
		chromedp.Navigate(s.URL),
	}
	if s.WaitSelector != "" {
		tasks = append(tasks, chromedp.WaitVisible(s.WaitSelector, chromedp.ByQuery))
	}
	// Small extra delay to allow final paints before the screenshot.
	var png []byte
	tasks = append(tasks,
		chromedp.Sleep(500*time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	)

	if err := chromedp.Run(ctx, tasks); err != nil {
		return nil, &Error{Op: "capture schedule page", Err: err}
	}
	return png, nil
}
