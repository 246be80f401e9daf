package browser

import (
	"fmt"
	"io"

	"github.com/playwright-community/playwright-go"

	"github.com/einkcast/einkcast/pkg/config"
)

// Page is the surface of the live browser page the controller drives.
type Page interface {
	// Goto performs a full load of url and waits for network idle. It
	// returns the HTTP status of the main document, or 0 when the engine
	// reports no response.
	Goto(url string, timeoutMs float64) (int, error)

	// Evaluate runs a JavaScript expression against the loaded page and
	// returns its result.
	Evaluate(expression string) (interface{}, error)

	// SetViewportSize resizes the page viewport.
	SetViewportSize(width, height int) error

	// Screenshot captures the given region of the rendered viewport as PNG.
	Screenshot(clip Clip) ([]byte, error)

	Close() error
}

// Launcher opens and releases the single browser/page pair.
type Launcher interface {
	// Launch starts the browser if needed and opens one page with the given
	// viewport. initScript is installed so it runs before any document in
	// the page loads content.
	Launch(viewport config.Viewport, initScript string) (Page, error)

	// Stop releases the browser and the automation engine.
	Stop() error
}

// launchArgs are the fixed tuning flags for headless rendering.
var launchArgs = []string{
	"--disable-dev-shm-usage",
	"--no-sandbox",
	"--disable-gpu",
	"--hide-scrollbars",
	"--force-device-scale-factor=1",
}

// PlaywrightLauncher launches a headless Chromium via Playwright.
type PlaywrightLauncher struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
}

// NewPlaywrightLauncher installs the browser bundle if needed and starts the
// Playwright driver.
func NewPlaywrightLauncher() (*PlaywrightLauncher, error) {
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if err := playwright.Install(opts); err != nil {
		return nil, &ResourceError{Err: fmt.Errorf("failed to install playwright: %w", err)}
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, &ResourceError{Err: fmt.Errorf("failed to start playwright: %w", err)}
	}

	return &PlaywrightLauncher{pw: pw}, nil
}

// Launch opens the browser, context and page.
func (l *PlaywrightLauncher) Launch(viewport config.Viewport, initScript string) (Page, error) {
	headless := true
	browser, err := l.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &headless,
		Args:     launchArgs,
	})
	if err != nil {
		return nil, &ResourceError{Err: fmt.Errorf("failed to launch browser: %w", err)}
	}

	context, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  viewport.Width,
			Height: viewport.Height,
		},
	})
	if err != nil {
		browser.Close()
		return nil, &ResourceError{Err: fmt.Errorf("failed to create context: %w", err)}
	}

	if err := context.AddInitScript(playwright.Script{Content: &initScript}); err != nil {
		context.Close()
		browser.Close()
		return nil, &ResourceError{Err: fmt.Errorf("failed to install init script: %w", err)}
	}

	page, err := context.NewPage()
	if err != nil {
		context.Close()
		browser.Close()
		return nil, &ResourceError{Err: fmt.Errorf("failed to create page: %w", err)}
	}
	page.SetDefaultTimeout(navTimeoutMs)

	l.browser = browser
	l.context = context
	return &playwrightPage{page: page}, nil
}

// Stop releases the browser resources and the driver. Errors from individual
// closes are collected so shutdown always completes.
func (l *PlaywrightLauncher) Stop() error {
	var errs []error
	if l.context != nil {
		if err := l.context.Close(); err != nil {
			errs = append(errs, err)
		}
		l.context = nil
	}
	if l.browser != nil {
		if err := l.browser.Close(); err != nil {
			errs = append(errs, err)
		}
		l.browser = nil
	}
	if l.pw != nil {
		if err := l.pw.Stop(); err != nil {
			errs = append(errs, err)
		}
		l.pw = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors releasing browser: %v", errs)
	}
	return nil
}

// playwrightPage adapts a playwright.Page to the Page interface.
type playwrightPage struct {
	page playwright.Page
}

func (p *playwrightPage) Goto(url string, timeoutMs float64) (int, error) {
	waitUntil := playwright.WaitUntilState("networkidle")
	resp, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: &waitUntil,
		Timeout:   &timeoutMs,
	})
	if err != nil {
		return 0, fmt.Errorf("navigation failed: %w", err)
	}
	if resp == nil {
		return 0, nil
	}
	return resp.Status(), nil
}

func (p *playwrightPage) Evaluate(expression string) (interface{}, error) {
	return p.page.Evaluate(expression)
}

func (p *playwrightPage) SetViewportSize(width, height int) error {
	return p.page.SetViewportSize(width, height)
}

func (p *playwrightPage) Screenshot(clip Clip) ([]byte, error) {
	screenshotType := playwright.ScreenshotType("png")
	return p.page.Screenshot(playwright.PageScreenshotOptions{
		Type: &screenshotType,
		Clip: &playwright.Rect{
			X:      clip.X,
			Y:      clip.Y,
			Width:  clip.Width,
			Height: clip.Height,
		},
	})
}

func (p *playwrightPage) Close() error {
	return p.page.Close()
}
