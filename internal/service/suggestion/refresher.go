package suggestion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"live-interview-service/internal/observability/logging"
	"live-interview-service/internal/observability/metrics"
)

// Triggers of a refresh.
const (
	TriggerCadence = "cadence"
	TriggerGrowth  = "growth"
)

// DefaultInterval is the refresh cadence.
const DefaultInterval = 60 * time.Second

// Options wires a Refresher to its session.
type Options struct {
	SessionID string
	Client    Client
	List      *List
	Interval  time.Duration

	// Active reports whether the session is still Recording. It is checked
	// when a refresh fires and again before a result is appended.
	Active func() bool
	// Snapshot builds the request from the job context and current transcript.
	Snapshot func() Request

	OnAppend func(trigger string, added []string)
	OnError  func(err error)
}

// Refresher fires suggestion requests on a fixed cadence and on transcript
// growth. Requests run concurrently without queuing; results append in
// completion order.
type Refresher struct {
	opts     Options
	growth   chan struct{}
	inflight sync.WaitGroup
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewRefresher creates a refresher.
func NewRefresher(opts Options) *Refresher {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Active == nil {
		opts.Active = func() bool { return true }
	}
	return &Refresher{
		opts:    opts,
		growth:  make(chan struct{}, 1),
		metrics: metrics.DefaultMetrics,
		logger:  logging.WithSession("suggestion", opts.SessionID),
	}
}

// NotifyGrowth signals that the transcript grew. It never blocks; signals
// arriving while one is pending are coalesced.
func (r *Refresher) NotifyGrowth() {
	select {
	case r.growth <- struct{}{}:
	default:
	}
}

// Run fires refreshes until ctx is done. Requests inherit ctx, so they are
// cancelled with it.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.fire(ctx, TriggerCadence)
		case <-r.growth:
			r.fire(ctx, TriggerGrowth)
		}
	}
}

// Wait blocks until in-flight requests return. Call it only after Run has
// returned.
func (r *Refresher) Wait() {
	r.inflight.Wait()
}

func (r *Refresher) fire(ctx context.Context, trigger string) {
	// ctx and Active can both be done when the timer and Stop race.
	if ctx.Err() != nil || !r.opts.Active() {
		return
	}
	req := r.opts.Snapshot()

	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		r.request(ctx, trigger, req)
	}()
}

func (r *Refresher) request(ctx context.Context, trigger string, req Request) {
	start := time.Now()
	questions, err := r.opts.Client.Suggest(ctx, req)
	latency := time.Since(start).Seconds()

	if ctx.Err() != nil {
		r.logger.Debug().Str("trigger", trigger).Msg("Suggestion request cancelled")
		return
	}
	if err != nil {
		if !errors.Is(err, ErrSuggestionRequestFailed) {
			err = fmt.Errorf("%w: %v", ErrSuggestionRequestFailed, err)
		}
		r.metrics.RecordSuggestionRequest(trigger, err, latency, 0)
		r.logger.Warn().Err(err).Str("trigger", trigger).Msg("Suggestion request failed")
		if r.opts.OnError != nil {
			r.opts.OnError(err)
		}
		return
	}
	if !r.opts.Active() {
		r.logger.Debug().Str("trigger", trigger).Msg("Session no longer recording, dropping suggestions")
		return
	}

	added := r.opts.List.Append(questions...)
	r.metrics.RecordSuggestionRequest(trigger, nil, latency, added)
	r.logger.Debug().
		Str("trigger", trigger).
		Int("added", added).
		Int("total", r.opts.List.Len()).
		Msg("Suggestions appended")

	if added > 0 && r.opts.OnAppend != nil {
		r.opts.OnAppend(trigger, questions)
	}
}
