package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/einkcast/einkcast/pkg/browser"
	"github.com/einkcast/einkcast/pkg/config"
	"github.com/einkcast/einkcast/pkg/logging"
	"github.com/einkcast/einkcast/pkg/render"
)

// defaultStagger offsets each job's first firing by its index in the
// configured list so jobs do not race to claim the shared browser at start.
const defaultStagger = 2 * time.Second

// FrameSource produces raw capture frames. Satisfied by browser.Controller.
type FrameSource interface {
	NavigateAndCapture(p browser.CaptureParams) ([]byte, error)
	Shutdown()
}

// Store persists final images. Satisfied by storage.FileStore.
type Store interface {
	Save(name string, data []byte, ext string) (string, error)
	URLFor(name, ext string) string
}

// ProcessFunc turns a raw frame into encoded output bytes.
type ProcessFunc func(frame []byte, opts render.Options) (*render.Output, error)

// Scheduler owns a fixed set of capture jobs, each on its own repeating
// timer, and drives each firing through the capture pipeline independently
// of the others' success or failure.
type Scheduler struct {
	source  FrameSource
	process ProcessFunc
	store   Store
	sinks   []Sink
	logger  logging.Logger

	stagger time.Duration
	now     func() time.Time

	jobs     []config.CaptureJob
	offHours *config.OffHoursWindow

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a scheduler over the given pipeline collaborators. Sinks
// receive every firing's outcome record.
func New(source FrameSource, process ProcessFunc, store Store, logger logging.Logger, sinks ...Sink) *Scheduler {
	return &Scheduler{
		source:  source,
		process: process,
		store:   store,
		sinks:   sinks,
		logger:  logging.Component(logger, "scheduler"),
		stagger: defaultStagger,
		now:     time.Now,
	}
}

// Configure validates and installs the job list and optional off-hours
// window. It rejects the whole configuration on any duplicate job name or
// out-of-bounds field, before any timer starts.
func (s *Scheduler) Configure(jobs []config.CaptureJob, offHours *config.OffHoursWindow) error {
	if len(jobs) == 0 {
		return config.NewValidationError("jobs", "at least one job is required")
	}

	seen := make(map[string]bool, len(jobs))
	for _, job := range jobs {
		if err := job.Validate(); err != nil {
			return err
		}
		if seen[job.Name] {
			return config.NewValidationError("jobs", "duplicate job name %q", job.Name)
		}
		seen[job.Name] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("cannot reconfigure a running scheduler")
	}
	s.jobs = jobs
	s.offHours = offHours
	return nil
}

// Start schedules every job's recurring timer. Each job's first firing is
// offset by the stagger delay multiplied by its index; subsequent firings
// are governed purely by the job's own interval.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already started")
	}
	if len(s.jobs) == 0 {
		return fmt.Errorf("scheduler not configured")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.running = true

	for i, job := range s.jobs {
		s.wg.Add(1)
		go s.runJob(ctx, time.Duration(i)*s.stagger, job)
	}

	s.logger.Info().Int("jobs", len(s.jobs)).Msg("scheduler started")
	return nil
}

// Stop cancels every timer and releases the browser resource. In-flight
// captures run to completion before Stop returns.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	s.source.Shutdown()
	s.logger.Info().Msg("scheduler stopped")
}

func (s *Scheduler) runJob(ctx context.Context, stagger time.Duration, job config.CaptureJob) {
	defer s.wg.Done()

	select {
	case <-time.After(stagger):
	case <-ctx.Done():
		return
	}
	s.fire(ctx, job)

	ticker := time.NewTicker(time.Duration(job.IntervalSeconds) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fire(ctx, job)
		}
	}
}

// fire executes one firing and fans the outcome out to the sinks. Errors
// never propagate: they are contained within this firing.
func (s *Scheduler) fire(ctx context.Context, job config.CaptureJob) {
	if ctx.Err() != nil {
		return
	}

	outcome := s.runOnce(job)

	switch {
	case outcome.Skipped:
		s.logger.Debug().Str("job", job.Name).Str("reason", outcome.Reason).Msg("capture skipped")
	case outcome.Success:
		s.logger.Info().Str("job", job.Name).Str("path", outcome.Path).Msg("capture complete")
	default:
		s.logger.Error().Str("job", job.Name).Str("error", outcome.Error).Msg("capture failed")
	}

	// Sink delivery must outlive shutdown: a firing already in flight when
	// Stop is called still records its final outcome.
	sinkCtx := context.WithoutCancel(ctx)
	for _, sink := range s.sinks {
		sink.Record(sinkCtx, outcome)
	}
}

// runOnce is the unit of work executed on every firing: off-hours check,
// atomic navigate+capture, post-processing, persistence.
func (s *Scheduler) runOnce(job config.CaptureJob) Outcome {
	at := s.now()

	if s.offHours != nil && s.offHours.Contains(at) {
		return Outcome{
			Job:     job.Name,
			Skipped: true,
			Reason:  fmt.Sprintf("inside off-hours window %s", s.offHours),
			At:      at,
		}
	}

	frame, err := s.source.NavigateAndCapture(browser.CaptureParams{
		Path:        job.Path,
		Viewport:    job.Viewport,
		Zoom:        job.Zoom,
		Lang:        job.Lang,
		Theme:       job.Theme,
		Dark:        job.Dark,
		ExtraWaitMs: job.ExtraWaitMs,
	})
	if err != nil {
		return Outcome{Job: job.Name, Error: err.Error(), At: at}
	}

	out, err := s.process(frame, render.Options{
		Format:        job.Format,
		EinkColors:    job.EinkColors,
		Invert:        job.Invert,
		RotateDegrees: job.RotateDegrees,
	})
	if err != nil {
		return Outcome{Job: job.Name, Error: err.Error(), At: at}
	}

	path, err := s.store.Save(job.Name, out.Data, out.Extension)
	if err != nil {
		return Outcome{Job: job.Name, Error: err.Error(), At: at}
	}

	return Outcome{
		Job:     job.Name,
		Success: true,
		Path:    path,
		URL:     s.store.URLFor(job.Name, out.Extension),
		At:      at,
	}
}
