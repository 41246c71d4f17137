// Package tracker runs the heartbeat that accrues coding time and schedules
// syncs. A single goroutine owns the engine state and is the only writer of
// counters.
package tracker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/quartz"

	"github.com/ayoisaiah/codetime/internal/config"
	"github.com/ayoisaiah/codetime/internal/logging"
	"github.com/ayoisaiah/codetime/internal/metrics"
	"github.com/ayoisaiah/codetime/internal/models"
	"github.com/ayoisaiah/codetime/internal/timeutil"
	"github.com/ayoisaiah/codetime/store"
	"github.com/ayoisaiah/codetime/syncer"
)

// Syncer sends pending time to the aggregator.
type Syncer interface {
	Sync(ctx context.Context, username string) (syncer.Result, error)
}

// Notifier raises a desktop notification.
type Notifier func(title, message string) error

// engineState is owned by the Run goroutine.
type engineState struct {
	lastTickAt time.Time
	lastSyncAt time.Time
	lastDayKey string
	language   string
	username   string
	enabled    bool
	focused    bool
	syncing    bool
}

// syncOutcome is sent back to the Run goroutine when a sync finishes.
type syncOutcome struct {
	reply  chan<- Reply
	err    error
	result syncer.Result
}

// Tracker accrues time on every tick and syncs on a longer interval.
type Tracker struct {
	db           store.DB
	syncer       Syncer
	clock        quartz.Clock
	log          *slog.Logger
	notify       Notifier
	events       chan Event
	syncDone     chan syncOutcome
	status       atomic.Pointer[models.Status]
	statusPath   string
	workspace    string
	username     string
	state        engineState
	wg           sync.WaitGroup
	tickInterval time.Duration
	syncInterval time.Duration
	running      atomic.Bool
	done         chan struct{}
}

// Option customises a Tracker.
type Option func(*Tracker)

// WithClock sets the clock that drives the tickers.
func WithClock(c quartz.Clock) Option {
	return func(t *Tracker) {
		t.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) {
		t.log = l
	}
}

// WithStatusFile publishes the status summary to path after every update.
func WithStatusFile(path string) Option {
	return func(t *Tracker) {
		t.statusPath = path
	}
}

// WithNotifier is called when a manually requested sync fails.
func WithNotifier(n Notifier) Option {
	return func(t *Tracker) {
		t.notify = n
	}
}

// New creates a tracker backed by db.
func New(cfg *config.Config, db store.DB, s Syncer, opts ...Option) *Tracker {
	t := &Tracker{
		db:           db,
		syncer:       s,
		clock:        quartz.NewReal(),
		log:          logging.Discard(),
		notify:       func(string, string) error { return nil },
		events:       make(chan Event),
		syncDone:     make(chan syncOutcome),
		done:         make(chan struct{}),
		workspace:    cfg.Workspace(),
		username:     cfg.User.Username,
		tickInterval: cfg.Tracker.TickInterval,
		syncInterval: cfg.Sync.Interval,
	}

	for _, opt := range opts {
		opt(t)
	}

	t.status.Store(&models.Status{})

	return t
}

// rehydrate restores the persisted parts of the engine state. Everything
// else starts from now.
func (t *Tracker) rehydrate(now time.Time) error {
	enabled, err := t.db.Enabled()
	if err != nil {
		return errRehydrate.Wrap(err)
	}

	lastSync, err := t.db.LastSync()
	if err != nil {
		return errRehydrate.Wrap(err)
	}

	username, err := t.db.Username()
	if err != nil {
		return errRehydrate.Wrap(err)
	}

	// A username from the config takes precedence and is remembered
	if t.username != "" && t.username != username {
		if err := t.db.SetUsername(t.username); err != nil {
			return errRehydrate.Wrap(err)
		}

		username = t.username
	}

	t.state = engineState{
		enabled:    enabled,
		focused:    true,
		username:   username,
		lastSyncAt: lastSync,
		lastTickAt: now,
		lastDayKey: timeutil.DayKey(now),
	}

	return nil
}

// Run processes ticks, sync intervals and events until ctx is cancelled. A
// sync that is still running when ctx ends is awaited before Run returns.
func (t *Tracker) Run(ctx context.Context) error {
	if err := t.rehydrate(t.clock.Now()); err != nil {
		return err
	}

	t.running.Store(true)

	defer close(t.done)
	defer t.running.Store(false)

	defer t.wg.Wait()

	tick := t.clock.NewTicker(t.tickInterval, "tracker", "tick")
	defer tick.Stop()

	syncTick := t.clock.NewTicker(t.syncInterval, "tracker", "sync")
	defer syncTick.Stop()

	t.log.InfoContext(
		ctx,
		"tracker started",
		slog.String("workspace", t.workspace),
		slog.Bool("enabled", t.state.enabled),
		slog.Duration("tick_interval", t.tickInterval),
		slog.Duration("sync_interval", t.syncInterval),
	)

	t.publish(t.clock.Now())

	if t.state.username != "" {
		t.startSync(ctx, nil, false)
	}

	for {
		select {
		case <-ctx.Done():
			t.log.InfoContext(ctx, "tracker stopped")
			return nil
		case <-tick.C:
			t.tick()
		case <-syncTick.C:
			t.startSync(ctx, nil, false)
		case ev := <-t.events:
			t.handle(ctx, ev)
		case out := <-t.syncDone:
			t.finishSync(out)
		}
	}
}

// tick accrues the whole seconds elapsed since the previous tick. The tick
// time is recorded even when the write fails so the lost interval is not
// counted twice.
func (t *Tracker) tick() {
	now := t.clock.Now()

	elapsed := timeutil.WholeSeconds(t.state.lastTickAt, now)
	t.state.lastTickAt = now

	metrics.Ticks.Inc()

	day := timeutil.DayKey(now)
	if day != t.state.lastDayKey {
		t.log.Debug(
			"day changed",
			slog.String("from", t.state.lastDayKey),
			slog.String("to", day),
		)

		t.state.lastDayKey = day
	}

	if t.state.enabled && elapsed > 0 {
		t.accrue(day, elapsed)
	}

	t.publish(now)
}

func (t *Tracker) accrue(day string, elapsed int64) {
	a := &models.Accrual{
		Day:       day,
		Seconds:   elapsed,
		Focused:   t.state.focused,
		Language:  t.state.language,
		Workspace: t.workspace,
	}

	err := t.db.Accrue(a)
	if err != nil {
		metrics.AccrualErrors.Inc()
		t.log.Error(
			"unable to save accrued time",
			slog.String("day", day),
			slog.Int64("seconds", elapsed),
			slog.Any("error", err),
		)

		return
	}

	metrics.AccruedSeconds.WithLabelValues("total").Add(float64(elapsed))

	if a.Focused {
		metrics.AccruedSeconds.WithLabelValues("focused").Add(float64(elapsed))
	}
}

// startSync runs a sync on its own goroutine so ticks continue during
// network I/O.
func (t *Tracker) startSync(ctx context.Context, reply chan<- Reply, manual bool) {
	if t.state.syncing {
		if reply != nil {
			reply <- Reply{Status: t.Status(), Err: syncer.ErrSyncInProgress}
		}

		return
	}

	t.state.syncing = true
	username := t.state.username

	t.publish(t.clock.Now())

	t.wg.Add(1)

	go func() {
		defer t.wg.Done()

		res, err := t.syncer.Sync(ctx, username)
		if err != nil && manual {
			nErr := t.notify("codetime", "Sync failed: "+err.Error())
			if nErr != nil {
				t.log.Warn("unable to show notification", slog.Any("error", nErr))
			}
		}

		out := syncOutcome{result: res, err: err, reply: reply}

		select {
		case t.syncDone <- out:
		case <-ctx.Done():
			if reply != nil {
				reply <- Reply{Sync: &res, Err: err}
			}
		}
	}()
}

func (t *Tracker) finishSync(out syncOutcome) {
	t.state.syncing = false

	if out.err == nil && !out.result.SyncedAt.IsZero() {
		t.state.lastSyncAt = out.result.SyncedAt
	}

	t.publish(t.clock.Now())

	if out.reply != nil {
		res := out.result
		out.reply <- Reply{Status: t.Status(), Sync: &res, Err: out.err}
	}
}

// Status returns the most recently published status.
func (t *Tracker) Status() models.Status {
	return *t.status.Load()
}
