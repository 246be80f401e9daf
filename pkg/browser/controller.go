package browser

import (
	"fmt"
	"time"

	"github.com/einkcast/einkcast/pkg/logging"
)

// navKind classifies how much navigation work a queued unit performed, which
// determines the default settle delay.
type navKind int

const (
	navFullLoad navKind = iota
	navSettingsOnly
	navNoop
)

// Controller maintains exactly one live browser/page pair across the process
// lifetime and exposes navigation and capture as two phases of one atomic
// unit per call. All access funnels through the operation queue, so no two
// navigate/capture sequences ever run concurrently against the shared page.
type Controller struct {
	launcher Launcher
	scripts  ScriptSet
	baseURL  string
	logger   logging.Logger

	queue *OpQueue

	// page and state are only touched from inside queued operations.
	page  Page
	state SessionState

	// sleep and now are swapped out in tests.
	sleep func(time.Duration)
	now   func() time.Time
}

// NewController creates the controller. The browser is launched lazily on
// the first operation.
func NewController(launcher Launcher, scripts ScriptSet, baseURL string, logger logging.Logger) *Controller {
	return &Controller{
		launcher: launcher,
		scripts:  scripts,
		baseURL:  baseURL,
		logger:   logging.Component(logger, "browser"),
		queue:    NewOpQueue(),
		sleep:    time.Sleep,
		now:      time.Now,
	}
}

// NavigateAndCapture performs navigation followed immediately by capture as
// one queued unit, with no other operation interleaved between the phases.
// It returns the raw PNG frame of the dashboard content.
func (c *Controller) NavigateAndCapture(p CaptureParams) ([]byte, error) {
	var frame []byte
	var err error
	c.queue.Do(func() {
		frame, err = c.run(p)
	})
	return frame, err
}

// Shutdown releases the page and browser handles. It runs as a queued unit
// so in-flight operations complete first, and it tolerates release errors
// since shutdown must always complete.
func (c *Controller) Shutdown() {
	c.queue.Do(func() {
		if c.page != nil {
			if err := c.page.Close(); err != nil {
				c.logger.Warn().Err(err).Msg("error closing page during shutdown")
			}
			c.page = nil
		}
		if err := c.launcher.Stop(); err != nil {
			c.logger.Warn().Err(err).Msg("error releasing browser during shutdown")
		}
	})
}

// run executes one navigate+capture unit. It must only be called from the
// operation queue.
func (c *Controller) run(p CaptureParams) ([]byte, error) {
	if err := c.ensurePage(p); err != nil {
		return nil, err
	}

	if err := c.page.SetViewportSize(p.Viewport.Width, p.Viewport.Height); err != nil {
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}

	kind, err := c.navigate(p)
	if err != nil {
		c.state.LastPath = ""
		return nil, err
	}

	if c.applySettings(p) && kind == navNoop {
		kind = navSettingsOnly
	}

	if wait := settleWait(p.ExtraWaitMs, kind); wait > 0 {
		c.sleep(wait)
	}

	frame, err := c.capture(p)
	if err != nil {
		// Force the full-load path next time rather than risking another
		// capture against possibly-corrupted page state.
		c.state.LastPath = ""
		return nil, &CaptureError{Err: err}
	}

	c.state.LastPath = p.Path
	return frame, nil
}

func (c *Controller) ensurePage(p CaptureParams) error {
	if c.page != nil {
		return nil
	}
	page, err := c.launcher.Launch(p.Viewport, c.scripts.AuthSeed)
	if err != nil {
		return err
	}
	c.page = page
	return nil
}

// navigate runs the three-case navigation state machine keyed on the cached
// last path.
func (c *Controller) navigate(p CaptureParams) (navKind, error) {
	switch {
	case c.state.LastPath == "":
		// First load. The auth seed is installed as an init script so it
		// runs before any content loads.
		return navFullLoad, c.fullLoad(p)

	case c.state.LastPath != p.Path:
		// Page transition. Client-side routing between dashboard views is
		// unreliable, so re-inject auth and perform a full reload.
		if _, err := c.page.Evaluate(c.scripts.AuthSeed); err != nil {
			return navFullLoad, fmt.Errorf("failed to re-inject auth: %w", err)
		}
		return navFullLoad, c.fullLoad(p)

	default:
		// Same path: skip the reload entirely.
		return navNoop, nil
	}
}

func (c *Controller) fullLoad(p CaptureParams) error {
	url := c.baseURL + p.Path
	status, err := c.page.Goto(url, navTimeoutMs)
	if err != nil {
		return err
	}
	if status >= 400 {
		return &CannotOpenPageError{Status: status, URL: url}
	}

	// A full reload resets page-level zoom to the default.
	c.state.LastZoom = 1

	c.dismissUpdateToast()
	c.awaitReady()
	return nil
}

// dismissUpdateToast clicks away a transient "update available" notification
// if one is showing. Best effort: failures are ignored.
func (c *Controller) dismissUpdateToast() {
	result, err := c.page.Evaluate(c.scripts.DismissUpdateToast)
	if err != nil {
		return
	}
	if dismissed, ok := result.(bool); ok && dismissed {
		c.logger.Debug().Msg("dismissed update notification")
	}
}

// awaitReady polls the page-exposed readiness signal with a bounded timeout.
// Timing out is not fatal: the pipeline proceeds with whatever is rendered.
func (c *Controller) awaitReady() {
	deadline := c.now().Add(readyTimeout)
	for c.now().Before(deadline) {
		result, err := c.page.Evaluate(c.scripts.Ready)
		if err == nil {
			if ready, ok := result.(bool); ok && ready {
				return
			}
		}
		c.sleep(readyPollInterval)
	}
	c.logger.Warn().Msg("readiness poll timed out, capturing current page state")
}

// applySettings re-applies zoom, locale and theme when they differ from the
// cached session state, updating the cache immediately after each change. It
// reports whether anything was applied.
func (c *Controller) applySettings(p CaptureParams) bool {
	changed := false

	if p.Zoom != c.state.LastZoom {
		if _, err := c.page.Evaluate(c.scripts.SetZoom(p.Zoom)); err != nil {
			c.logger.Warn().Err(err).Float64("zoom", p.Zoom).Msg("failed to apply zoom")
		} else {
			c.state.LastZoom = p.Zoom
			changed = true
		}
	}

	if p.Lang != "" && p.Lang != c.state.LastLang {
		if _, err := c.page.Evaluate(c.scripts.SetLang(p.Lang)); err != nil {
			c.logger.Warn().Err(err).Str("lang", p.Lang).Msg("failed to switch locale")
		} else {
			c.state.LastLang = p.Lang
			changed = true
		}
	}

	if (p.Theme != "" && p.Theme != c.state.LastTheme) || p.Dark != c.state.LastDark {
		if _, err := c.page.Evaluate(c.scripts.SetTheme(p.Theme, p.Dark)); err != nil {
			c.logger.Warn().Err(err).Str("theme", p.Theme).Msg("failed to switch theme")
		} else {
			c.state.LastTheme = p.Theme
			c.state.LastDark = p.Dark
			changed = true
		}
	}

	return changed
}

// capture clips the rendered viewport to exclude the fixed top header band.
func (c *Controller) capture(p CaptureParams) ([]byte, error) {
	clip := Clip{
		X:      0,
		Y:      headerHeightPx,
		Width:  float64(p.Viewport.Width),
		Height: float64(p.Viewport.Height - headerHeightPx),
	}
	return c.page.Screenshot(clip)
}

// settleWait picks the post-navigation delay: the caller's override when
// given, otherwise a default sized to how much navigation work occurred.
func settleWait(extraMs *int, kind navKind) time.Duration {
	if extraMs != nil {
		return time.Duration(*extraMs) * time.Millisecond
	}
	switch kind {
	case navFullLoad:
		return defaultFullLoadWait
	case navSettingsOnly:
		return defaultSettingsWait
	default:
		return 0
	}
}
