// Package syncer sends unsynced coding time to the aggregator and advances
// the synced baseline once the aggregator has accepted it
package syncer

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/quartz"

	"github.com/ayoisaiah/codetime/internal/apperr"
	"github.com/ayoisaiah/codetime/internal/delta"
	"github.com/ayoisaiah/codetime/internal/logging"
	"github.com/ayoisaiah/codetime/internal/metrics"
	"github.com/ayoisaiah/codetime/internal/models"
)

var (
	// ErrSyncInProgress is returned when a sync is requested while another
	// one is still running.
	ErrSyncInProgress error = &apperr.Error{
		Message: "a sync is already in progress",
	}

	errReadCounters = &apperr.Error{
		Message: "unable to read counters",
	}

	errTransmit = &apperr.Error{
		Message: "sync failed",
	}

	errAdvanceBaseline = &apperr.Error{
		Message: "sync succeeded but the baseline could not be saved",
	}
)

// Store is the part of the counter store used by the syncer.
type Store interface {
	Snapshots() (current, synced *models.Snapshot, err error)
	AdvanceBaseline(snap *models.Snapshot, at time.Time) error
}

// Transport delivers a payload to the aggregator.
type Transport interface {
	Push(ctx context.Context, payload models.Payload) (*models.SyncResponse, error)
}

// Result describes the outcome of a single sync.
type Result struct {
	SyncedAt time.Time
	Response *models.SyncResponse
	Days     int
	OK       bool
	// Skipped is set when there was no username to sync for.
	Skipped bool
}

// Syncer runs the build, transmit and advance steps of a sync. At most one
// sync runs at a time.
type Syncer struct {
	store     Store
	transport Transport
	clock     quartz.Clock
	log       *slog.Logger
	source    string
	mu        sync.Mutex
	state     atomic.Int32
}

// Option customises a Syncer.
type Option func(*Syncer)

// WithClock sets the clock used for timestamps.
func WithClock(c quartz.Clock) Option {
	return func(s *Syncer) {
		s.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Syncer) {
		s.log = l
	}
}

// WithSource sets the source tag of payload entries.
func WithSource(source string) Option {
	return func(s *Syncer) {
		s.source = source
	}
}

// New returns a Syncer that reads from st and sends through tr.
func New(st Store, tr Transport, opts ...Option) *Syncer {
	s := &Syncer{
		store:     st,
		transport: tr,
		clock:     quartz.NewReal(),
		log:       logging.Discard(),
		source:    delta.DefaultSource,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// State returns the current step of the running sync, or Idle.
func (s *Syncer) State() State {
	return State(s.state.Load())
}

func (s *Syncer) setState(st State) {
	s.state.Store(int32(st))
}

// Sync sends everything accrued since the last successful sync. The baseline
// only moves when the aggregator answers with a 2xx status, and it moves to
// the exact snapshot the payload was built from.
func (s *Syncer) Sync(ctx context.Context, username string) (Result, error) {
	if username == "" {
		metrics.SyncAttempts.WithLabelValues(metrics.ResultSkipped).Inc()
		s.log.Debug("skipping sync: no username set")

		return Result{OK: true, Skipped: true}, nil
	}

	if !s.mu.TryLock() {
		metrics.SyncAttempts.WithLabelValues(metrics.ResultBusy).Inc()
		return Result{}, ErrSyncInProgress
	}

	defer s.mu.Unlock()
	defer s.setState(Idle)

	s.setState(BuildingPayload)

	current, synced, err := s.store.Snapshots()
	if err != nil {
		metrics.SyncAttempts.WithLabelValues(metrics.ResultFailure).Inc()
		return Result{}, errReadCounters.Wrap(err)
	}

	payload, used := delta.Build(username, s.source, current, synced)

	if len(payload.Data) == 0 {
		metrics.SyncAttempts.WithLabelValues(metrics.ResultEmpty).Inc()
		s.log.Debug("nothing to sync")

		return Result{OK: true}, nil
	}

	s.setState(Transmitting)

	start := s.clock.Now()

	resp, err := s.transport.Push(ctx, payload)

	metrics.SyncDuration.Observe(s.clock.Since(start).Seconds())

	if err != nil {
		metrics.SyncAttempts.WithLabelValues(metrics.ResultFailure).Inc()
		s.log.Warn(
			"sync failed",
			slog.Int("days", len(payload.Data)),
			slog.Any("error", err),
		)

		return Result{Days: len(payload.Data)}, errTransmit.Wrap(err)
	}

	s.setState(AdvancingBaseline)

	now := s.clock.Now()

	err = s.store.AdvanceBaseline(used, now)
	if err != nil {
		metrics.SyncAttempts.WithLabelValues(metrics.ResultFailure).Inc()
		s.log.Error("unable to advance baseline", slog.Any("error", err))

		return Result{Days: len(payload.Data), Response: resp}, errAdvanceBaseline.Wrap(err)
	}

	metrics.SyncAttempts.WithLabelValues(metrics.ResultSuccess).Inc()
	metrics.SyncPayloadDays.Observe(float64(len(payload.Data)))

	s.log.Info(
		"sync complete",
		slog.String("username", username),
		slog.Int("days", len(payload.Data)),
	)

	return Result{
		OK:       true,
		Days:     len(payload.Data),
		Response: resp,
		SyncedAt: now,
	}, nil
}
