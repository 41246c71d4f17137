package tracker

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ayoisaiah/codetime/internal/models"
	"github.com/ayoisaiah/codetime/internal/timeutil"
	"github.com/ayoisaiah/codetime/syncer"
)

// EventKind identifies an input to the engine.
type EventKind int

const (
	FocusChanged EventKind = iota
	LanguageChanged
	SyncRequested
	Toggle
	SetEnabled
	ResetToday
	ResetProject
	SetUsername
)

// Event is an input to the engine. Reply, when set, must be buffered and
// receives exactly one Reply once the event has been applied.
type Event struct {
	Reply    chan<- Reply
	Language string
	Username string
	Kind     EventKind
	Focused  bool
	Enabled  bool
	Manual   bool
}

// Reply reports the outcome of an event.
type Reply struct {
	Err    error
	Sync   *syncer.Result
	Status models.Status
}

func (t *Tracker) handle(ctx context.Context, ev Event) {
	if ev.Kind == SyncRequested {
		t.startSync(ctx, ev.Reply, ev.Manual)
		return
	}

	now := t.clock.Now()

	err := t.apply(ctx, ev, now)
	if err != nil {
		t.log.Error(
			"unable to apply event",
			slog.Int("kind", int(ev.Kind)),
			slog.Any("error", err),
		)
	}

	t.publish(now)

	if ev.Reply != nil {
		ev.Reply <- Reply{Status: t.Status(), Err: err}
	}
}

func (t *Tracker) apply(ctx context.Context, ev Event, now time.Time) error {
	switch ev.Kind {
	case FocusChanged:
		t.state.focused = ev.Focused
		// the idle gap before a focus change is not counted
		t.state.lastTickAt = now
	case LanguageChanged:
		t.state.language = strings.TrimSpace(ev.Language)
	case Toggle:
		return t.setEnabled(!t.state.enabled, now)
	case SetEnabled:
		return t.setEnabled(ev.Enabled, now)
	case ResetToday:
		t.state.lastTickAt = now
		return t.db.ResetDay(timeutil.DayKey(now))
	case ResetProject:
		t.state.lastTickAt = now
		return t.db.ResetProject(t.workspace)
	case SetUsername:
		username := strings.TrimSpace(ev.Username)
		if username == "" {
			return errEmptyUsername
		}

		if err := t.db.SetUsername(username); err != nil {
			return err
		}

		t.state.username = username

		t.startSync(ctx, nil, false)
	default:
		return errUnknownEvent.Fmt(ev.Kind)
	}

	return nil
}

func (t *Tracker) setEnabled(enabled bool, now time.Time) error {
	t.state.lastTickAt = now

	if err := t.db.SetEnabled(enabled); err != nil {
		return err
	}

	t.state.enabled = enabled

	t.log.Info("tracking toggled", slog.Bool("enabled", enabled))

	return nil
}

// Send delivers ev to the engine and waits for its reply.
func (t *Tracker) Send(ctx context.Context, ev Event) (Reply, error) {
	if !t.running.Load() {
		return Reply{}, errTrackerStopped
	}

	reply := make(chan Reply, 1)
	ev.Reply = reply

	select {
	case t.events <- ev:
	case <-t.done:
		return Reply{}, errTrackerStopped
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}

	select {
	case r := <-reply:
		return r, r.Err
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

func (t *Tracker) sendStatus(ctx context.Context, ev Event) (models.Status, error) {
	r, err := t.Send(ctx, ev)
	return r.Status, err
}

// SetFocused records a change of editor focus.
func (t *Tracker) SetFocused(ctx context.Context, focused bool) (models.Status, error) {
	return t.sendStatus(ctx, Event{Kind: FocusChanged, Focused: focused})
}

// SetLanguage records the language of the active editor. An empty language
// means unknown.
func (t *Tracker) SetLanguage(ctx context.Context, language string) (models.Status, error) {
	return t.sendStatus(ctx, Event{Kind: LanguageChanged, Language: language})
}

// Toggle flips tracking on or off.
func (t *Tracker) Toggle(ctx context.Context) (models.Status, error) {
	return t.sendStatus(ctx, Event{Kind: Toggle})
}

// SetEnabled turns tracking on or off.
func (t *Tracker) SetEnabled(ctx context.Context, enabled bool) (models.Status, error) {
	return t.sendStatus(ctx, Event{Kind: SetEnabled, Enabled: enabled})
}

// ResetToday zeroes today's counters.
func (t *Tracker) ResetToday(ctx context.Context) (models.Status, error) {
	return t.sendStatus(ctx, Event{Kind: ResetToday})
}

// ResetProject zeroes the counter of the current workspace.
func (t *Tracker) ResetProject(ctx context.Context) (models.Status, error) {
	return t.sendStatus(ctx, Event{Kind: ResetProject})
}

// SetUsername signs in as username.
func (t *Tracker) SetUsername(ctx context.Context, username string) (models.Status, error) {
	return t.sendStatus(ctx, Event{Kind: SetUsername, Username: username})
}

// Sync runs a manual sync and waits for it to finish.
func (t *Tracker) Sync(ctx context.Context) (syncer.Result, models.Status, error) {
	r, err := t.Send(ctx, Event{Kind: SyncRequested, Manual: true})
	if r.Sync == nil {
		return syncer.Result{}, r.Status, err
	}

	return *r.Sync, r.Status, err
}
