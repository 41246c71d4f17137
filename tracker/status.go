package tracker

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/ayoisaiah/codetime/internal/models"
	"github.com/ayoisaiah/codetime/internal/timeutil"
	"github.com/ayoisaiah/codetime/store"
)

const (
	iconTracking = "⏱"
	iconPaused   = "⏸"
	iconSignedIn = "☁"
	iconNoUser   = "⚠"
)

// StatusText renders the one-line summary shown by `codetime status`.
func StatusText(s *models.Status) string {
	icon := iconTracking
	if !s.Enabled {
		icon = iconPaused
	}

	cloud := iconSignedIn
	if s.Username == "" {
		cloud = iconNoUser
	}

	return fmt.Sprintf("%s %s %s", icon, timeutil.FormatHMS(s.ProjectSeconds), cloud)
}

// publish recomputes the status summary and writes it to the status file.
func (t *Tracker) publish(now time.Time) {
	s := &models.Status{
		UpdatedAt:    now,
		LastTick:     t.state.lastTickAt,
		LastSync:     t.state.lastSyncAt,
		LastSyncText: timeutil.FormatLastSync(t.state.lastSyncAt, now),
		Username:     t.state.username,
		Workspace:    t.workspace,
		Language:     t.state.language,
		Enabled:      t.state.enabled,
		Focused:      t.state.focused,
		Syncing:      t.state.syncing,
		Languages:    map[string]int64{},
	}

	today, err := t.db.Day(timeutil.DayKey(now))
	if err != nil {
		t.log.Warn("unable to read today's totals", slog.Any("error", err))
	} else {
		s.TodayFocused = today.Focused
		s.TodayTotal = today.Total
		s.Languages = today.Languages
	}

	s.ProjectSeconds, err = t.db.ProjectSeconds(t.workspace)
	if err != nil {
		t.log.Warn("unable to read project time", slog.Any("error", err))
	}

	s.Text = StatusText(s)

	t.status.Store(s)

	if t.statusPath == "" {
		return
	}

	if err := writeStatusFile(t.statusPath, s); err != nil {
		t.log.Warn("unable to write status file", slog.Any("error", err))
	}
}

// writeStatusFile replaces the file at path so readers never observe a
// partial write.
func writeStatusFile(path string, s *models.Status) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}

	var fileMode fs.FileMode = 0o600

	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")

	if err := os.WriteFile(tmp, b, fileMode); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}

// ReadStatus returns the status published by a running tracker. It returns
// nil when no tracker holds the database at dbPath.
func ReadStatus(dbPath, statusPath string) (*models.Status, error) {
	if !store.Locked(dbPath) {
		return nil, nil
	}

	b, err := os.ReadFile(statusPath)
	if err != nil {
		// a missing file is not an error
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, err
	}

	var s models.Status

	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}

	return &s, nil
}
