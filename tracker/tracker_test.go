package tracker_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ayoisaiah/codetime/internal/config"
	"github.com/ayoisaiah/codetime/internal/models"
	"github.com/ayoisaiah/codetime/internal/timeutil"
	"github.com/ayoisaiah/codetime/store"
	"github.com/ayoisaiah/codetime/syncer"
	"github.com/ayoisaiah/codetime/tracker"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const workspace = "/src/app"

type fakeSyncer struct {
	err   error
	calls []string
	mu    sync.Mutex
}

func (f *fakeSyncer) Sync(_ context.Context, username string) (syncer.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, username)

	if username == "" {
		return syncer.Result{OK: true, Skipped: true}, nil
	}

	if f.err != nil {
		return syncer.Result{}, f.err
	}

	return syncer.Result{OK: true, Days: 1}, nil
}

func (f *fakeSyncer) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.calls...)
}

// flakyDB fails counter writes while fail is set.
type flakyDB struct {
	store.DB
	fail atomic.Bool
}

func (f *flakyDB) Accrue(a *models.Accrual) error {
	if f.fail.Load() {
		return errors.New("disk full")
	}

	return f.DB.Accrue(a)
}

type harness struct {
	ctx    context.Context
	tr     *tracker.Tracker
	db     store.DB
	clock  *quartz.Mock
	syncer *fakeSyncer
	dbPath string
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Tracker.TickInterval = 30 * time.Second
	cfg.Tracker.Workspace = workspace
	cfg.Sync.Interval = time.Minute

	return cfg
}

func newStore(t *testing.T) (*store.Client, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "codetime.db")

	c, err := store.NewClient(path)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = c.Close()
	})

	return c, path
}

func start(
	t *testing.T,
	cfg *config.Config,
	db store.DB,
	opts ...tracker.Option,
) *harness {
	t.Helper()

	return startAt(t, time.Date(2024, 1, 1, 9, 0, 0, 0, time.Local), cfg, db, opts...)
}

func startAt(
	t *testing.T,
	at time.Time,
	cfg *config.Config,
	db store.DB,
	opts ...tracker.Option,
) *harness {
	t.Helper()

	ctx, cancelTest := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancelTest)

	clock := quartz.NewMock(t)
	clock.Set(at).MustWait(ctx)

	fs := &fakeSyncer{}

	opts = append(opts, tracker.WithClock(clock))
	tr := tracker.New(cfg, db, fs, opts...)

	trap := clock.Trap().NewTicker()
	defer trap.Close()

	runCtx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)

	go func() {
		errCh <- tr.Run(runCtx)
	}()

	// tick and sync tickers
	trap.MustWait(ctx).MustRelease(ctx)
	trap.MustWait(ctx).MustRelease(ctx)

	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-errCh)
	})

	return &harness{ctx: ctx, tr: tr, db: db, clock: clock, syncer: fs}
}

// advance moves the clock and waits until the tracker has handled the tick.
func (h *harness) advance(t *testing.T, d time.Duration) {
	t.Helper()

	h.clock.Advance(d).MustWait(h.ctx)

	require.Eventually(t, func() bool {
		return h.tr.Status().LastTick.Equal(h.clock.Now())
	}, 5*time.Second, 5*time.Millisecond)
}

func (h *harness) today(t *testing.T) *models.DayTotals {
	t.Helper()

	d, err := h.db.Day(timeutil.DayKey(h.clock.Now()))
	require.NoError(t, err)

	return d
}

func (h *harness) project(t *testing.T) int64 {
	t.Helper()

	v, err := h.db.ProjectSeconds(workspace)
	require.NoError(t, err)

	return v
}

func TestTickFocusedWithLanguage(t *testing.T) {
	db, _ := newStore(t)
	h := start(t, testConfig(), db)

	_, err := h.tr.SetLanguage(h.ctx, "python")
	require.NoError(t, err)

	h.advance(t, 30*time.Second)

	d := h.today(t)
	assert.Equal(t, int64(30), d.Total)
	assert.Equal(t, int64(30), d.Focused)
	assert.Equal(t, map[string]int64{"python": 30}, d.Languages)
	assert.Equal(t, int64(30), h.project(t))

	s := h.tr.Status()
	assert.Equal(t, int64(30), s.TodayFocused)
	assert.Equal(t, "⏱ 00:00:30 ⚠", s.Text)
}

func TestTickUnfocused(t *testing.T) {
	db, _ := newStore(t)
	h := start(t, testConfig(), db)

	_, err := h.tr.SetLanguage(h.ctx, "go")
	require.NoError(t, err)

	_, err = h.tr.SetFocused(h.ctx, false)
	require.NoError(t, err)

	h.advance(t, 30*time.Second)

	d := h.today(t)
	assert.Equal(t, int64(30), d.Total)
	assert.Zero(t, d.Focused)
	assert.Empty(t, d.Languages)
	assert.Zero(t, h.project(t))
}

func TestTickWithoutLanguage(t *testing.T) {
	db, _ := newStore(t)
	h := start(t, testConfig(), db)

	h.advance(t, 30*time.Second)

	d := h.today(t)
	assert.Equal(t, int64(30), d.Focused)
	assert.Empty(t, d.Languages)
}

func TestFocusChangeDropsIdleGap(t *testing.T) {
	db, _ := newStore(t)
	h := start(t, testConfig(), db)

	h.clock.Advance(20 * time.Second).MustWait(h.ctx)

	_, err := h.tr.SetFocused(h.ctx, false)
	require.NoError(t, err)

	h.advance(t, 10*time.Second)

	assert.Equal(t, int64(10), h.today(t).Total)
}

func TestTickAcrossMidnight(t *testing.T) {
	db, _ := newStore(t)
	h := startAt(t, time.Date(2024, 1, 1, 23, 59, 50, 0, time.Local), testConfig(), db)

	h.advance(t, 30*time.Second)

	// the whole interval belongs to the day the tick lands on
	assert.Equal(t, "2024-01-02", timeutil.DayKey(h.clock.Now()))
	assert.Equal(t, int64(30), h.today(t).Total)

	prev, err := db.Day("2024-01-01")
	require.NoError(t, err)
	assert.Zero(t, prev.Total)
}

func TestAccrualIsMonotonic(t *testing.T) {
	db, _ := newStore(t)
	h := start(t, testConfig(), db)

	var prev int64

	for i := 1; i <= 4; i++ {
		h.advance(t, 30*time.Second)

		total := h.today(t).Total
		assert.GreaterOrEqual(t, total, prev)
		assert.Equal(t, int64(30*i), total)

		prev = total
	}
}

func TestDisabledDoesNotAccrue(t *testing.T) {
	db, _ := newStore(t)
	h := start(t, testConfig(), db)

	s, err := h.tr.SetEnabled(h.ctx, false)
	require.NoError(t, err)
	assert.False(t, s.Enabled)
	assert.True(t, strings.HasPrefix(s.Text, "⏸"))

	h.advance(t, 30*time.Second)
	assert.Zero(t, h.today(t).Total)

	_, err = h.tr.Toggle(h.ctx)
	require.NoError(t, err)

	enabled, err := db.Enabled()
	require.NoError(t, err)
	assert.True(t, enabled)

	h.advance(t, 30*time.Second)
	assert.Equal(t, int64(30), h.today(t).Total)
}

func TestFailedWriteStillAdvancesTick(t *testing.T) {
	client, _ := newStore(t)
	db := &flakyDB{DB: client}
	h := start(t, testConfig(), db)

	db.fail.Store(true)
	h.advance(t, 30*time.Second)

	db.fail.Store(false)
	h.advance(t, 30*time.Second)

	assert.Equal(t, int64(30), h.today(t).Total)
}

func TestResetToday(t *testing.T) {
	db, _ := newStore(t)
	h := start(t, testConfig(), db)

	_, err := h.tr.SetLanguage(h.ctx, "go")
	require.NoError(t, err)

	h.advance(t, 30*time.Second)

	s, err := h.tr.ResetToday(h.ctx)
	require.NoError(t, err)
	assert.Zero(t, s.TodayTotal)

	d := h.today(t)
	assert.Zero(t, d.Total)
	assert.Zero(t, d.Focused)
	assert.Empty(t, d.Languages)

	// the project counter is separate
	assert.Equal(t, int64(30), h.project(t))

	_, err = h.tr.ResetProject(h.ctx)
	require.NoError(t, err)
	assert.Zero(t, h.project(t))
}

func TestRehydrate(t *testing.T) {
	db, _ := newStore(t)

	at := time.Date(2023, 12, 31, 18, 0, 0, 0, time.UTC)

	require.NoError(t, db.SetEnabled(false))
	require.NoError(t, db.SetUsername("bob"))
	require.NoError(t, db.AdvanceBaseline(models.NewSnapshot(), at))
	require.NoError(t, db.Accrue(&models.Accrual{
		Day: "2024-01-01", Workspace: workspace, Seconds: 90, Focused: true,
	}))

	h := start(t, testConfig(), db)

	s := h.tr.Status()
	assert.False(t, s.Enabled)
	assert.Equal(t, "bob", s.Username)
	assert.True(t, at.Equal(s.LastSync))
	assert.Equal(t, int64(90), s.ProjectSeconds)
	assert.Equal(t, "⏸ 00:01:30 ☁", s.Text)

	// signed in users sync on start
	require.Eventually(t, func() bool {
		return len(h.syncer.Calls()) == 1
	}, 5*time.Second, 5*time.Millisecond)
}

func TestConfigUsernameIsStored(t *testing.T) {
	db, _ := newStore(t)

	cfg := testConfig()
	cfg.User.Username = "carol"

	h := start(t, cfg, db)

	username, err := db.Username()
	require.NoError(t, err)
	assert.Equal(t, "carol", username)
	assert.Equal(t, "carol", h.tr.Status().Username)
}

func TestSyncOnInterval(t *testing.T) {
	db, _ := newStore(t)

	cfg := testConfig()
	cfg.User.Username = "alice"

	h := start(t, cfg, db)

	require.Eventually(t, func() bool {
		return len(h.syncer.Calls()) == 1 && !h.tr.Status().Syncing
	}, 5*time.Second, 5*time.Millisecond)

	h.advance(t, 30*time.Second)
	h.clock.Advance(30 * time.Second).MustWait(h.ctx)

	require.Eventually(t, func() bool {
		return len(h.syncer.Calls()) == 2
	}, 5*time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"alice", "alice"}, h.syncer.Calls())
}

func TestManualSyncWithoutUsername(t *testing.T) {
	db, _ := newStore(t)
	h := start(t, testConfig(), db)

	res, _, err := h.tr.Sync(h.ctx)
	require.NoError(t, err)

	assert.True(t, res.OK)
	assert.True(t, res.Skipped)
}

func TestManualSyncFailureNotifies(t *testing.T) {
	db, _ := newStore(t)

	var notices atomic.Int32

	notify := func(_, _ string) error {
		notices.Add(1)
		return nil
	}

	h := start(t, testConfig(), db, tracker.WithNotifier(notify))

	_, err := h.tr.SetUsername(h.ctx, "alice")
	require.NoError(t, err)

	// signing in triggers a background sync
	require.Eventually(t, func() bool {
		return len(h.syncer.Calls()) == 1 && !h.tr.Status().Syncing
	}, 5*time.Second, 5*time.Millisecond)

	errDown := errors.New("aggregator down")

	h.syncer.mu.Lock()
	h.syncer.err = errDown
	h.syncer.mu.Unlock()

	res, _, err := h.tr.Sync(h.ctx)
	require.ErrorIs(t, err, errDown)
	assert.False(t, res.OK)
	assert.Equal(t, int32(1), notices.Load())
}

func TestIntervalSyncFailureOnlyLogs(t *testing.T) {
	db, _ := newStore(t)

	var notices atomic.Int32

	notify := func(_, _ string) error {
		notices.Add(1)
		return nil
	}

	h := start(t, testConfig(), db, tracker.WithNotifier(notify))

	h.syncer.mu.Lock()
	h.syncer.err = errors.New("aggregator down")
	h.syncer.mu.Unlock()

	_, err := h.tr.SetUsername(h.ctx, "alice")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(h.syncer.Calls()) == 1 && !h.tr.Status().Syncing
	}, 5*time.Second, 5*time.Millisecond)

	h.advance(t, 30*time.Second)
	h.clock.Advance(30 * time.Second).MustWait(h.ctx)

	require.Eventually(t, func() bool {
		return len(h.syncer.Calls()) == 2 && !h.tr.Status().Syncing
	}, 5*time.Second, 5*time.Millisecond)

	assert.Zero(t, notices.Load())
}

func TestSetUsernameRejectsEmpty(t *testing.T) {
	db, _ := newStore(t)
	h := start(t, testConfig(), db)

	_, err := h.tr.SetUsername(h.ctx, "  ")
	assert.Error(t, err)
	assert.Empty(t, h.syncer.Calls())
}

func TestStatusFile(t *testing.T) {
	db, dbPath := newStore(t)
	statusPath := filepath.Join(t.TempDir(), "status.json")

	h := start(t, testConfig(), db, tracker.WithStatusFile(statusPath))

	h.advance(t, 30*time.Second)

	s, err := tracker.ReadStatus(dbPath, statusPath)
	require.NoError(t, err)
	require.NotNil(t, s)

	assert.Equal(t, "⏱ 00:00:30 ⚠", s.Text)
	assert.Equal(t, int64(30), s.TodayTotal)
}

func TestReadStatusNotRunning(t *testing.T) {
	dir := t.TempDir()

	s, err := tracker.ReadStatus(
		filepath.Join(dir, "codetime.db"),
		filepath.Join(dir, "status.json"),
	)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestSendBeforeRun(t *testing.T) {
	db, _ := newStore(t)
	tr := tracker.New(testConfig(), db, &fakeSyncer{})

	_, err := tr.Toggle(context.Background())
	assert.Error(t, err)
}

func TestStatusText(t *testing.T) {
	s := &models.Status{Enabled: true, Username: "alice", ProjectSeconds: 3725}
	assert.Equal(t, "⏱ 01:02:05 ☁", tracker.StatusText(s))

	s.Enabled = false
	s.Username = ""
	assert.Equal(t, "⏸ 01:02:05 ⚠", tracker.StatusText(s))
}
