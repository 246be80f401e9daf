package browser

import (
	"fmt"
	"time"

	"github.com/einkcast/einkcast/pkg/config"
)

// CaptureParams describes one atomic navigate+capture unit.
type CaptureParams struct {
	// Path is the target view within the remote dashboard.
	Path string

	// Viewport is applied to the page before navigating.
	Viewport config.Viewport

	// Zoom is the page zoom factor.
	Zoom float64

	// Lang switches the dashboard locale when it differs from the cached
	// session state.
	Lang string

	// Theme and Dark switch the dashboard theme when they differ from the
	// cached session state.
	Theme string
	Dark  bool

	// ExtraWaitMs overrides the post-navigation settle delay. When nil the
	// controller picks a default based on how much navigation work was done.
	ExtraWaitMs *int
}

// SessionState is the best-effort cache of what the single live page
// currently shows. Every field is a hint, never authoritative: any
// navigation error resets LastPath to empty to force a full reload on the
// next attempt.
type SessionState struct {
	// LastPath is the logical path most recently confirmed loaded. Empty
	// means the page has not navigated yet.
	LastPath string

	LastLang  string
	LastTheme string
	LastDark  bool
	LastZoom  float64
}

// Clip is the viewport region handed to a screenshot.
type Clip struct {
	X, Y, Width, Height float64
}

// Timing and layout constants for the navigation state machine.
const (
	// navTimeoutMs bounds one full page load.
	navTimeoutMs = 30000.0

	// readyTimeout bounds the readiness poll; timing out is logged but not
	// fatal, the capture proceeds with whatever is rendered.
	readyTimeout      = 15 * time.Second
	readyPollInterval = 100 * time.Millisecond

	// headerHeightPx is the fixed top header band excluded from captures so
	// only dashboard content is captured.
	headerHeightPx = 56

	// Default settle delays applied when the caller did not specify one.
	defaultFullLoadWait = 5 * time.Second
	defaultSettingsWait = 1500 * time.Millisecond
)

// CannotOpenPageError reports a non-success response from the remote
// dashboard. It is not retried internally.
type CannotOpenPageError struct {
	Status int
	URL    string
}

func (e *CannotOpenPageError) Error() string {
	return fmt.Sprintf("cannot open page %s: status %d", e.URL, e.Status)
}

// CaptureError reports that the browser failed to render or clip the
// viewport after a successful navigation.
type CaptureError struct {
	Err error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture failed: %v", e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// ResourceError reports that the browser process could not be launched.
// Recovery is expected from an external process supervisor restarting the
// service, not from internal retries.
type ResourceError struct {
	Err error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("browser resource unavailable: %v", e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }
