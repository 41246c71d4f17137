// Package store persists accrued coding time and the synced baseline in a
// bbolt database
package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/ayoisaiah/codetime/internal/apperr"
	"github.com/ayoisaiah/codetime/internal/models"
	"github.com/ayoisaiah/codetime/internal/osutil"
)

const (
	metaBucket            = "meta"
	totalBucket           = "total"
	focusedBucket         = "focused"
	languagesBucket       = "languages"
	syncedTotalBucket     = "synced_total"
	syncedFocusedBucket   = "synced_focused"
	syncedLanguagesBucket = "synced_languages"
	projectsBucket        = "projects"
)

const (
	keyEnabled       = "enabled"
	keyUsername      = "username"
	keyLastSync      = "last_sync"
	keySchemaVersion = "schema_version"
)

var buckets = []string{
	metaBucket,
	totalBucket,
	focusedBucket,
	languagesBucket,
	syncedTotalBucket,
	syncedFocusedBucket,
	syncedLanguagesBucket,
	projectsBucket,
}

var errAlreadyRunning = &apperr.Error{
	Message: "is codetime already running? Only one instance can be active at a time",
}

// ErrAlreadyRunning is returned when another process holds the database.
var ErrAlreadyRunning error = errAlreadyRunning

// Client is a BoltDB database client.
type Client struct {
	*bolt.DB
}

// counterSet names the three buckets that make up one snapshot.
type counterSet struct {
	total     string
	focused   string
	languages string
}

var (
	currentSet = counterSet{totalBucket, focusedBucket, languagesBucket}
	syncedSet  = counterSet{syncedTotalBucket, syncedFocusedBucket, syncedLanguagesBucket}
)

func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))

	return b
}

func btoi(b []byte) int64 {
	if len(b) != 8 {
		return 0
	}

	return int64(binary.BigEndian.Uint64(b))
}

// add increments the counter stored at key by delta.
func add(b *bolt.Bucket, key string, delta int64) error {
	return b.Put([]byte(key), itob(btoi(b.Get([]byte(key)))+delta))
}

func (c *Client) Enabled() (bool, error) {
	enabled := true

	err := c.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(metaBucket)).Get([]byte(keyEnabled))
		if v != nil {
			enabled = string(v) == "1"
		}

		return nil
	})

	return enabled, err
}

func (c *Client) SetEnabled(enabled bool) error {
	v := []byte("0")
	if enabled {
		v = []byte("1")
	}

	return c.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(metaBucket)).Put([]byte(keyEnabled), v)
	})
}

func (c *Client) Username() (string, error) {
	var username string

	err := c.View(func(tx *bolt.Tx) error {
		username = string(tx.Bucket([]byte(metaBucket)).Get([]byte(keyUsername)))
		return nil
	})

	return username, err
}

func (c *Client) SetUsername(username string) error {
	return c.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(metaBucket)).Put([]byte(keyUsername), []byte(username))
	})
}

func (c *Client) LastSync() (time.Time, error) {
	var lastSync time.Time

	err := c.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(metaBucket)).Get([]byte(keyLastSync))
		if len(v) == 0 {
			return nil
		}

		return lastSync.UnmarshalText(v)
	})

	return lastSync, err
}

func (c *Client) Accrue(a *models.Accrual) error {
	if a.Seconds <= 0 {
		return nil
	}

	return c.Update(func(tx *bolt.Tx) error {
		err := add(tx.Bucket([]byte(totalBucket)), a.Day, a.Seconds)
		if err != nil {
			return err
		}

		if !a.Focused {
			return nil
		}

		err = add(tx.Bucket([]byte(focusedBucket)), a.Day, a.Seconds)
		if err != nil {
			return err
		}

		if a.Workspace != "" {
			err = add(tx.Bucket([]byte(projectsBucket)), a.Workspace, a.Seconds)
			if err != nil {
				return err
			}
		}

		if a.Language == "" {
			return nil
		}

		langs, err := tx.Bucket([]byte(languagesBucket)).
			CreateBucketIfNotExists([]byte(a.Day))
		if err != nil {
			return err
		}

		return add(langs, a.Language, a.Seconds)
	})
}

// readSnapshot loads the three buckets of set into a new snapshot.
func readSnapshot(tx *bolt.Tx, set counterSet) (*models.Snapshot, error) {
	snap := models.NewSnapshot()

	err := tx.Bucket([]byte(set.total)).ForEach(func(k, v []byte) error {
		snap.Total[string(k)] = btoi(v)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = tx.Bucket([]byte(set.focused)).ForEach(func(k, v []byte) error {
		snap.Focused[string(k)] = btoi(v)
		return nil
	})
	if err != nil {
		return nil, err
	}

	langs := tx.Bucket([]byte(set.languages))

	err = langs.ForEachBucket(func(day []byte) error {
		m := make(map[string]int64)

		err := langs.Bucket(day).ForEach(func(k, v []byte) error {
			m[string(k)] = btoi(v)
			return nil
		})

		snap.Languages[string(day)] = m

		return err
	})
	if err != nil {
		return nil, err
	}

	return snap, nil
}

// writeSnapshot replaces the contents of the buckets of set with snap.
func writeSnapshot(tx *bolt.Tx, set counterSet, snap *models.Snapshot) error {
	for _, name := range []string{set.total, set.focused, set.languages} {
		if err := tx.DeleteBucket([]byte(name)); err != nil {
			return err
		}

		if _, err := tx.CreateBucket([]byte(name)); err != nil {
			return err
		}
	}

	total := tx.Bucket([]byte(set.total))

	for day, v := range snap.Total {
		if err := total.Put([]byte(day), itob(v)); err != nil {
			return err
		}
	}

	focused := tx.Bucket([]byte(set.focused))

	for day, v := range snap.Focused {
		if err := focused.Put([]byte(day), itob(v)); err != nil {
			return err
		}
	}

	langs := tx.Bucket([]byte(set.languages))

	for day, m := range snap.Languages {
		b, err := langs.CreateBucket([]byte(day))
		if err != nil {
			return err
		}

		for lang, v := range m {
			if err := b.Put([]byte(lang), itob(v)); err != nil {
				return err
			}
		}
	}

	return nil
}

func (c *Client) Snapshots() (current, synced *models.Snapshot, err error) {
	err = c.View(func(tx *bolt.Tx) error {
		current, err = readSnapshot(tx, currentSet)
		if err != nil {
			return err
		}

		synced, err = readSnapshot(tx, syncedSet)

		return err
	})
	if err != nil {
		return nil, nil, err
	}

	return current, synced, nil
}

func (c *Client) AdvanceBaseline(snap *models.Snapshot, at time.Time) error {
	lastSync, err := at.MarshalText()
	if err != nil {
		return err
	}

	return c.Update(func(tx *bolt.Tx) error {
		if err := writeSnapshot(tx, syncedSet, snap); err != nil {
			return err
		}

		return tx.Bucket([]byte(metaBucket)).Put([]byte(keyLastSync), lastSync)
	})
}

// readDay reads the current totals of a single day.
func readDay(tx *bolt.Tx, day string) models.DayTotals {
	d := models.DayTotals{
		Day:       day,
		Total:     btoi(tx.Bucket([]byte(totalBucket)).Get([]byte(day))),
		Focused:   btoi(tx.Bucket([]byte(focusedBucket)).Get([]byte(day))),
		Languages: make(map[string]int64),
	}

	langs := tx.Bucket([]byte(languagesBucket)).Bucket([]byte(day))
	if langs != nil {
		_ = langs.ForEach(func(k, v []byte) error {
			d.Languages[string(k)] = btoi(v)
			return nil
		})
	}

	return d
}

func (c *Client) Day(day string) (*models.DayTotals, error) {
	var d models.DayTotals

	err := c.View(func(tx *bolt.Tx) error {
		d = readDay(tx, day)
		return nil
	})

	return &d, err
}

func (c *Client) DayRange(start, end string) ([]models.DayTotals, error) {
	var days []models.DayTotals

	err := c.View(func(tx *bolt.Tx) error {
		seen := make(map[string]bool)

		var keys []string

		for _, name := range []string{totalBucket, focusedBucket} {
			cur := tx.Bucket([]byte(name)).Cursor()

			for k, _ := cur.Seek([]byte(start)); k != nil && string(k) <= end; k, _ = cur.Next() {
				if !seen[string(k)] {
					seen[string(k)] = true
					keys = append(keys, string(k))
				}
			}
		}

		slices.Sort(keys)

		for _, day := range keys {
			days = append(days, readDay(tx, day))
		}

		return nil
	})

	return days, err
}

func (c *Client) ProjectSeconds(workspace string) (int64, error) {
	var v int64

	err := c.View(func(tx *bolt.Tx) error {
		v = btoi(tx.Bucket([]byte(projectsBucket)).Get([]byte(workspace)))
		return nil
	})

	return v, err
}

func (c *Client) Projects() (map[string]int64, error) {
	projects := make(map[string]int64)

	err := c.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(projectsBucket)).ForEach(func(k, v []byte) error {
			projects[string(k)] = btoi(v)
			return nil
		})
	})

	return projects, err
}

func (c *Client) ResetDay(day string) error {
	return c.Update(func(tx *bolt.Tx) error {
		err := tx.Bucket([]byte(totalBucket)).Put([]byte(day), itob(0))
		if err != nil {
			return err
		}

		err = tx.Bucket([]byte(focusedBucket)).Put([]byte(day), itob(0))
		if err != nil {
			return err
		}

		langs := tx.Bucket([]byte(languagesBucket))

		if langs.Bucket([]byte(day)) != nil {
			if err := langs.DeleteBucket([]byte(day)); err != nil {
				return err
			}
		}

		_, err = langs.CreateBucket([]byte(day))

		return err
	})
}

func (c *Client) ResetProject(workspace string) error {
	return c.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(projectsBucket)).Put([]byte(workspace), itob(0))
	})
}

// openDB creates or opens a database and locks it.
func openDB(pathToDB string) (*bolt.DB, error) {
	db, err := bolt.Open(
		pathToDB,
		osutil.FilePermission,
		&bolt.Options{Timeout: 1 * time.Second},
	)
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, errAlreadyRunning
		}

		return nil, err
	}

	return db, nil
}

// Locked reports whether another process currently holds the database at
// pathToDB. A missing database is not locked.
func Locked(pathToDB string) bool {
	db, err := bolt.Open(pathToDB, osutil.FilePermission, &bolt.Options{
		Timeout:  100 * time.Millisecond,
		ReadOnly: true,
	})
	if err == nil {
		_ = db.Close()
		return false
	}

	return errors.Is(err, bolt.ErrTimeout)
}

// NewClient returns a wrapper to a BoltDB connection.
func NewClient(dbPath string) (*Client, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), osutil.DirPermission); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}

	c := &Client{db}

	// Create the necessary buckets for storing data if they do not exist
	// already
	err = db.Update(c.migrate)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return c, nil
}
