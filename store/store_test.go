package store_test

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayoisaiah/codetime/internal/models"
	"github.com/ayoisaiah/codetime/store"
)

func newClient(t *testing.T) (*store.Client, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "data", "codetime.db")

	c, err := store.NewClient(path)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = c.Close()
	})

	return c, path
}

func TestAccrue(t *testing.T) {
	c, _ := newClient(t)

	require.NoError(t, c.Accrue(&models.Accrual{
		Day: "2024-01-01", Language: "go", Workspace: "/src/app", Seconds: 5, Focused: true,
	}))
	require.NoError(t, c.Accrue(&models.Accrual{
		Day: "2024-01-01", Language: "go", Workspace: "/src/app", Seconds: 3, Focused: false,
	}))
	require.NoError(t, c.Accrue(&models.Accrual{
		Day: "2024-01-01", Workspace: "/src/app", Seconds: 2, Focused: true,
	}))
	require.NoError(t, c.Accrue(&models.Accrual{
		Day: "2024-01-01", Language: "go", Seconds: 0, Focused: true,
	}))

	d, err := c.Day("2024-01-01")
	require.NoError(t, err)

	assert.Equal(t, int64(10), d.Total)
	assert.Equal(t, int64(7), d.Focused)
	assert.Equal(t, map[string]int64{"go": 5}, d.Languages)

	project, err := c.ProjectSeconds("/src/app")
	require.NoError(t, err)
	assert.Equal(t, int64(7), project)
}

func TestAccrueWithoutWorkspace(t *testing.T) {
	c, _ := newClient(t)

	require.NoError(t, c.Accrue(&models.Accrual{
		Day: "2024-01-01", Language: "go", Seconds: 30, Focused: true,
	}))

	d, err := c.Day("2024-01-01")
	require.NoError(t, err)

	assert.Equal(t, int64(30), d.Total)
	assert.Equal(t, int64(30), d.Focused)
	assert.Equal(t, map[string]int64{"go": 30}, d.Languages)

	projects, err := c.Projects()
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestSnapshotsAndBaseline(t *testing.T) {
	c, _ := newClient(t)

	require.NoError(t, c.Accrue(&models.Accrual{
		Day: "2024-01-01", Language: "go", Seconds: 120, Focused: true,
	}))

	current, synced, err := c.Snapshots()
	require.NoError(t, err)

	assert.Equal(t, int64(120), current.Total["2024-01-01"])
	assert.Equal(t, int64(120), current.Language("2024-01-01", "go"))
	assert.Empty(t, synced.Total)

	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, c.AdvanceBaseline(current, at))

	// Counters written after the snapshot are not part of the baseline
	require.NoError(t, c.Accrue(&models.Accrual{
		Day: "2024-01-01", Language: "go", Seconds: 5, Focused: true,
	}))

	current2, synced2, err := c.Snapshots()
	require.NoError(t, err)

	assert.Equal(t, current, synced2)
	assert.Equal(t, int64(125), current2.Total["2024-01-01"])

	lastSync, err := c.LastSync()
	require.NoError(t, err)
	assert.True(t, at.Equal(lastSync))
}

func TestAdvanceBaselineReplaces(t *testing.T) {
	c, _ := newClient(t)

	first := models.NewSnapshot()
	first.Total["2024-01-01"] = 10
	first.Languages["2024-01-01"] = map[string]int64{"go": 10}

	require.NoError(t, c.AdvanceBaseline(first, time.Now()))

	second := models.NewSnapshot()
	second.Total["2024-01-02"] = 4

	require.NoError(t, c.AdvanceBaseline(second, time.Now()))

	_, synced, err := c.Snapshots()
	require.NoError(t, err)
	assert.Equal(t, second, synced)
}

func TestResetDay(t *testing.T) {
	c, _ := newClient(t)

	require.NoError(t, c.Accrue(&models.Accrual{
		Day: "2024-01-01", Language: "go", Workspace: "w", Seconds: 50, Focused: true,
	}))
	require.NoError(t, c.ResetDay("2024-01-01"))

	d, err := c.Day("2024-01-01")
	require.NoError(t, err)
	assert.Zero(t, d.Total)
	assert.Zero(t, d.Focused)
	assert.Empty(t, d.Languages)

	// Resetting the day leaves workspace counters alone
	project, err := c.ProjectSeconds("w")
	require.NoError(t, err)
	assert.Equal(t, int64(50), project)

	require.NoError(t, c.ResetProject("w"))

	project, err = c.ProjectSeconds("w")
	require.NoError(t, err)
	assert.Zero(t, project)
}

func TestDayRange(t *testing.T) {
	c, _ := newClient(t)

	for _, day := range []string{"2024-01-03", "2024-01-01", "2024-01-05", "2024-01-02"} {
		require.NoError(t, c.Accrue(&models.Accrual{Day: day, Seconds: 1}))
	}

	days, err := c.DayRange("2024-01-02", "2024-01-04")
	require.NoError(t, err)

	got := make([]string, 0, len(days))
	for _, d := range days {
		got = append(got, d.Day)
	}

	assert.Equal(t, []string{"2024-01-02", "2024-01-03"}, got)
}

func TestMetaDefaults(t *testing.T) {
	c, _ := newClient(t)

	enabled, err := c.Enabled()
	require.NoError(t, err)
	assert.True(t, enabled)

	require.NoError(t, c.SetEnabled(false))

	enabled, err = c.Enabled()
	require.NoError(t, err)
	assert.False(t, enabled)

	username, err := c.Username()
	require.NoError(t, err)
	assert.Empty(t, username)

	require.NoError(t, c.SetUsername("alice"))

	username, err = c.Username()
	require.NoError(t, err)
	assert.Equal(t, "alice", username)

	lastSync, err := c.LastSync()
	require.NoError(t, err)
	assert.True(t, lastSync.IsZero())
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codetime.db")

	c, err := store.NewClient(path)
	require.NoError(t, err)
	require.NoError(t, c.Accrue(&models.Accrual{Day: "2024-01-01", Seconds: 9}))
	require.NoError(t, c.Close())

	c, err = store.NewClient(path)
	require.NoError(t, err)

	defer c.Close()

	d, err := c.Day("2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, int64(9), d.Total)
}

func TestLocked(t *testing.T) {
	_, path := newClient(t)

	assert.True(t, store.Locked(path))
	assert.False(t, store.Locked(filepath.Join(t.TempDir(), "missing.db")))

	_, err := store.NewClient(path)
	assert.ErrorIs(t, err, store.ErrAlreadyRunning)
}

func TestImportLegacy(t *testing.T) {
	c, _ := newClient(t)

	dump := `{
		"ctc.enabled": false,
		"ctc.userId": "bob",
		"ctc.lastSync": 1704103200000,
		"ctc.dailyTotals": {"2024-01-01": 300},
		"ctc.dailyTotalSeconds": {"2024-01-01": 400},
		"ctc.languageTotals": {"2024-01-01": {"go": 200, "sql": 100}},
		"ctc.syncedDailyTotals": {"2024-01-01": 100},
		"ctc.syncedDailyTotalSeconds": {"2024-01-01": 150},
		"ctc.syncedLanguageTotals": {"2024-01-01": {"go": 100}}
	}`

	require.NoError(t, c.ImportLegacy(strings.NewReader(dump)))
	// Importing the same dump again does not double the counters
	require.NoError(t, c.ImportLegacy(strings.NewReader(dump)))

	current, synced, err := c.Snapshots()
	require.NoError(t, err)

	assert.Equal(t, int64(400), current.Total["2024-01-01"])
	assert.Equal(t, int64(300), current.Focused["2024-01-01"])
	assert.Equal(t, int64(100), current.Language("2024-01-01", "sql"))
	assert.Equal(t, int64(150), synced.Total["2024-01-01"])
	assert.Equal(t, int64(100), synced.Language("2024-01-01", "go"))

	enabled, err := c.Enabled()
	require.NoError(t, err)
	assert.False(t, enabled)

	username, err := c.Username()
	require.NoError(t, err)
	assert.Equal(t, "bob", username)

	lastSync, err := c.LastSync()
	require.NoError(t, err)
	assert.Equal(t, int64(1704103200000), lastSync.UnixMilli())

	assert.Error(t, c.ImportLegacy(strings.NewReader("not json")))
}
