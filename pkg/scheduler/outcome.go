package scheduler

import (
	"context"
	"time"
)

// Outcome is the structured record of one job firing, usable by any
// surrounding logging or observability layer.
type Outcome struct {
	Job     string    `json:"job"`
	Success bool      `json:"success"`
	Path    string    `json:"path,omitempty"`
	URL     string    `json:"url,omitempty"`
	Error   string    `json:"error,omitempty"`
	Skipped bool      `json:"skipped,omitempty"`
	Reason  string    `json:"reason,omitempty"`
	At      time.Time `json:"at"`
}

// Sink receives the outcome record of every firing. Implementations must be
// safe for concurrent use.
type Sink interface {
	Record(ctx context.Context, outcome Outcome)
}
