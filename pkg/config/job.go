package config

import (
	"fmt"
	"strings"
)

// Format specifies the output image format for a capture job.
type Format string

const (
	// FormatPNG produces a PNG, palette-quantized when e-ink colors are set.
	FormatPNG Format = "png"

	// FormatBMP produces an indexed or true-color bitmap via the in-tree encoder.
	FormatBMP Format = "bmp"

	// FormatJPEG produces a JPEG re-encode of the captured raster.
	FormatJPEG Format = "jpeg"

	// FormatWebP produces a WebP re-encode of the captured raster.
	FormatWebP Format = "webp"
)

// Viewport represents the browser viewport dimensions for a job.
type Viewport struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// CaptureJob describes one named, independently scheduled screenshot target.
// Jobs are validated once at startup and never mutated afterwards.
type CaptureJob struct {
	// Name is the unique key of the job and determines the output file name.
	Name string `yaml:"name"`

	// Path is the target view within the remote dashboard, e.g. "/overview/0".
	Path string `yaml:"path"`

	Viewport Viewport `yaml:"viewport"`

	// IntervalSeconds is the time between firings, at least 1.
	IntervalSeconds int `yaml:"interval_seconds"`

	// Format selects the output encoding. Defaults to png.
	Format Format `yaml:"format"`

	// EinkColors reduces the output to a fixed palette of 2, 4, 16 or 256
	// grayscale levels. Zero means no reduction.
	EinkColors int `yaml:"eink_colors"`

	// Invert negates the black/white result. Only meaningful with 2 colors.
	Invert bool `yaml:"invert"`

	// Zoom is the page zoom factor. Defaults to 1.
	Zoom float64 `yaml:"zoom"`

	// RotateDegrees rotates the output clockwise by 90, 180 or 270 degrees.
	RotateDegrees int `yaml:"rotate_degrees"`

	// Lang switches the dashboard locale before capturing, if set.
	Lang string `yaml:"lang"`

	// Theme switches the dashboard theme before capturing, if set.
	Theme string `yaml:"theme"`

	// Dark enables the theme's dark mode.
	Dark bool `yaml:"dark"`

	// ExtraWaitMs overrides the post-navigation settle delay. When nil the
	// controller picks a default based on how much navigation work was done.
	ExtraWaitMs *int `yaml:"extra_wait_ms"`
}

func (j *CaptureJob) applyDefaults() {
	if j.Format == "" {
		j.Format = FormatPNG
	}
	if j.Zoom == 0 {
		j.Zoom = 1
	}
}

// Validate checks a single job's shape and bounds.
func (j CaptureJob) Validate() error {
	if strings.TrimSpace(j.Name) == "" {
		return NewValidationError("jobs.name", "is required")
	}
	if strings.TrimSpace(j.Path) == "" {
		return NewValidationError(fmt.Sprintf("jobs.%s.path", j.Name), "is required")
	}
	if j.Viewport.Width < 100 || j.Viewport.Width > 7680 {
		return NewValidationError(fmt.Sprintf("jobs.%s.viewport.width", j.Name), "must be between 100 and 7680, got %d", j.Viewport.Width)
	}
	if j.Viewport.Height < 100 || j.Viewport.Height > 4320 {
		return NewValidationError(fmt.Sprintf("jobs.%s.viewport.height", j.Name), "must be between 100 and 4320, got %d", j.Viewport.Height)
	}
	if j.IntervalSeconds < 1 {
		return NewValidationError(fmt.Sprintf("jobs.%s.interval_seconds", j.Name), "must be at least 1, got %d", j.IntervalSeconds)
	}
	if j.ExtraWaitMs != nil && (*j.ExtraWaitMs < 0 || *j.ExtraWaitMs > 30000) {
		return NewValidationError(fmt.Sprintf("jobs.%s.extra_wait_ms", j.Name), "must be between 0 and 30000, got %d", *j.ExtraWaitMs)
	}
	if j.Zoom < 0.1 || j.Zoom > 5.0 {
		return NewValidationError(fmt.Sprintf("jobs.%s.zoom", j.Name), "must be between 0.1 and 5.0, got %g", j.Zoom)
	}
	switch j.Format {
	case FormatPNG, FormatBMP, FormatJPEG, FormatWebP:
	default:
		return NewValidationError(fmt.Sprintf("jobs.%s.format", j.Name), "unsupported format %q", j.Format)
	}
	switch j.EinkColors {
	case 0, 2, 4, 16, 256:
	default:
		return NewValidationError(fmt.Sprintf("jobs.%s.eink_colors", j.Name), "must be one of 2, 4, 16, 256, got %d", j.EinkColors)
	}
	switch j.RotateDegrees {
	case 0, 90, 180, 270:
	default:
		return NewValidationError(fmt.Sprintf("jobs.%s.rotate_degrees", j.Name), "must be one of 90, 180, 270, got %d", j.RotateDegrees)
	}
	return nil
}
