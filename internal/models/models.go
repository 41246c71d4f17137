// Package models defines the data shared between the store, the tracker and
// the sync pipeline.
package models

import (
	"maps"
	"time"
)

// Snapshot holds the running totals that decide what has not been synced yet.
// Days are YYYY-MM-DD keys.
type Snapshot struct {
	// Total is seconds accrued per day regardless of focus.
	Total map[string]int64 `json:"total"`
	// Focused is seconds accrued per day while the editor had focus.
	Focused map[string]int64 `json:"focused"`
	// Languages is focused seconds per day broken down by language.
	Languages map[string]map[string]int64 `json:"languages"`
}

// NewSnapshot returns an empty snapshot with initialised maps.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Total:     make(map[string]int64),
		Focused:   make(map[string]int64),
		Languages: make(map[string]map[string]int64),
	}
}

// Clone returns a deep copy of the snapshot. A nil snapshot clones to an
// empty one.
func (s *Snapshot) Clone() *Snapshot {
	c := NewSnapshot()

	if s == nil {
		return c
	}

	maps.Copy(c.Total, s.Total)
	maps.Copy(c.Focused, s.Focused)

	for day, langs := range s.Languages {
		c.Languages[day] = maps.Clone(langs)
		if c.Languages[day] == nil {
			c.Languages[day] = make(map[string]int64)
		}
	}

	return c
}

// Language returns the focused seconds for a language on a day.
func (s *Snapshot) Language(day, lang string) int64 {
	if s == nil || s.Languages[day] == nil {
		return 0
	}

	return s.Languages[day][lang]
}

// Accrual is the unit of work written by a single heartbeat.
type Accrual struct {
	Day       string
	Language  string
	Workspace string
	Seconds   int64
	Focused   bool
}

// DayTotals is one row of per-day totals read back from the store.
type DayTotals struct {
	Languages map[string]int64 `json:"languages"`
	Day       string           `json:"day"`
	Total     int64            `json:"total_seconds"`
	Focused   int64            `json:"focused_seconds"`
}

// DayDelta is one day entry of a sync payload.
type DayDelta struct {
	LanguageBreakdown map[string]int64 `json:"languageBreakdown"`
	Day               string           `json:"day"`
	Source            string           `json:"source"`
	FocusedSeconds    int64            `json:"focusedSeconds"`
	TotalSeconds      int64            `json:"totalSeconds"`
}

// Payload is the body posted to the remote aggregator.
type Payload struct {
	Username string     `json:"username"`
	Data     []DayDelta `json:"data"`
}

// Processed summarises what the aggregator wrote.
type Processed struct {
	Errors         []string `json:"errors"`
	DailyTotals    int      `json:"dailyTotals"`
	LanguageTotals int      `json:"languageTotals"`
}

// SyncResponse is the body returned by the remote aggregator.
type SyncResponse struct {
	Username  string    `json:"username,omitempty"`
	UUID      string    `json:"uuid,omitempty"`
	Error     string    `json:"error,omitempty"`
	Processed Processed `json:"processed"`
	Success   bool      `json:"success"`
}

// Status is the human-readable summary republished after every heartbeat.
type Status struct {
	UpdatedAt      time.Time        `json:"updated_at"`
	LastTick       time.Time        `json:"last_tick"`
	LastSync       time.Time        `json:"last_sync"`
	Languages      map[string]int64 `json:"languages"`
	Username       string           `json:"username"`
	Workspace      string           `json:"workspace"`
	Language       string           `json:"language"`
	Text           string           `json:"text"`
	LastSyncText   string           `json:"last_sync_text"`
	TodayFocused   int64            `json:"today_focused"`
	TodayTotal     int64            `json:"today_total"`
	ProjectSeconds int64            `json:"project_seconds"`
	Enabled        bool             `json:"enabled"`
	Focused        bool             `json:"focused"`
	Syncing        bool             `json:"syncing"`
}
