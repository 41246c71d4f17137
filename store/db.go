package store

import (
	"io"
	"time"

	"github.com/ayoisaiah/codetime/internal/models"
)

// DB is the durable counter store interface.
type DB interface {
	// Enabled reports whether tracking is enabled. Defaults to true.
	Enabled() (bool, error)
	// SetEnabled persists the tracking flag
	SetEnabled(enabled bool) error
	// Username returns the stored username or an empty string
	Username() (string, error)
	// SetUsername persists the username used for syncing
	SetUsername(username string) error
	// LastSync returns the time of the last successful sync (zero if never)
	LastSync() (time.Time, error)
	// Accrue adds the seconds of a single heartbeat to the running totals in
	// one transaction
	Accrue(a *models.Accrual) error
	// Snapshots reads the current totals and the synced baseline in a single
	// read transaction. Both are independent copies.
	Snapshots() (current, synced *models.Snapshot, err error)
	// AdvanceBaseline replaces the synced baseline with snap and records the
	// sync time in one transaction
	AdvanceBaseline(snap *models.Snapshot, at time.Time) error
	// Day returns the totals recorded for a single day
	Day(day string) (*models.DayTotals, error)
	// DayRange returns the totals for every recorded day between start and
	// end (inclusive), in ascending order
	DayRange(start, end string) ([]models.DayTotals, error)
	// ProjectSeconds returns the counter of a workspace
	ProjectSeconds(workspace string) (int64, error)
	// Projects returns the counter of every workspace
	Projects() (map[string]int64, error)
	// ResetDay zeroes the totals of a day without removing it
	ResetDay(day string) error
	// ResetProject zeroes the counter of a workspace
	ResetProject(workspace string) error
	// ImportLegacy merges a JSON dump of editor global state into the store
	ImportLegacy(r io.Reader) error
	// Close ends the database connection
	Close() error
}
