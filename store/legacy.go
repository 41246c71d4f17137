package store

import (
	"io"
	"time"

	"github.com/goccy/go-json"
	bolt "go.etcd.io/bbolt"

	"github.com/ayoisaiah/codetime/internal/apperr"
	"github.com/ayoisaiah/codetime/internal/models"
)

var errDecodeLegacy = &apperr.Error{
	Message: "unable to decode legacy state",
}

// legacyState mirrors the global state keys written by the editor extension.
// dailyTotals holds focused seconds while dailyTotalSeconds holds all time.
type legacyState struct {
	Enabled         *bool                       `json:"ctc.enabled"`
	Focused         map[string]int64            `json:"ctc.dailyTotals"`
	Total           map[string]int64            `json:"ctc.dailyTotalSeconds"`
	Languages       map[string]map[string]int64 `json:"ctc.languageTotals"`
	SyncedFocused   map[string]int64            `json:"ctc.syncedDailyTotals"`
	SyncedTotal     map[string]int64            `json:"ctc.syncedDailyTotalSeconds"`
	SyncedLanguages map[string]map[string]int64 `json:"ctc.syncedLanguageTotals"`
	UserID          string                      `json:"ctc.userId"`
	LastSync        int64                       `json:"ctc.lastSync"`
}

// mergeMax stores max(existing, v) for every key in m so importing the same
// dump twice is a no-op.
func mergeMax(b *bolt.Bucket, m map[string]int64) error {
	for k, v := range m {
		if v <= btoi(b.Get([]byte(k))) {
			continue
		}

		if err := b.Put([]byte(k), itob(v)); err != nil {
			return err
		}
	}

	return nil
}

func mergeLanguages(b *bolt.Bucket, m map[string]map[string]int64) error {
	for day, langs := range m {
		dayBucket, err := b.CreateBucketIfNotExists([]byte(day))
		if err != nil {
			return err
		}

		if err := mergeMax(dayBucket, langs); err != nil {
			return err
		}
	}

	return nil
}

func (s *legacyState) merge(tx *bolt.Tx, set counterSet, snap *models.Snapshot) error {
	err := mergeMax(tx.Bucket([]byte(set.total)), snap.Total)
	if err != nil {
		return err
	}

	err = mergeMax(tx.Bucket([]byte(set.focused)), snap.Focused)
	if err != nil {
		return err
	}

	return mergeLanguages(tx.Bucket([]byte(set.languages)), snap.Languages)
}

func (c *Client) ImportLegacy(r io.Reader) error {
	var s legacyState

	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return errDecodeLegacy.Wrap(err)
	}

	current := &models.Snapshot{
		Total:     s.Total,
		Focused:   s.Focused,
		Languages: s.Languages,
	}

	synced := &models.Snapshot{
		Total:     s.SyncedTotal,
		Focused:   s.SyncedFocused,
		Languages: s.SyncedLanguages,
	}

	return c.Update(func(tx *bolt.Tx) error {
		if err := s.merge(tx, currentSet, current); err != nil {
			return err
		}

		if err := s.merge(tx, syncedSet, synced); err != nil {
			return err
		}

		meta := tx.Bucket([]byte(metaBucket))

		if s.Enabled != nil && meta.Get([]byte(keyEnabled)) == nil {
			v := []byte("0")
			if *s.Enabled {
				v = []byte("1")
			}

			if err := meta.Put([]byte(keyEnabled), v); err != nil {
				return err
			}
		}

		if s.UserID != "" && len(meta.Get([]byte(keyUsername))) == 0 {
			err := meta.Put([]byte(keyUsername), []byte(s.UserID))
			if err != nil {
				return err
			}
		}

		if s.LastSync > 0 && len(meta.Get([]byte(keyLastSync))) == 0 {
			v, err := time.UnixMilli(s.LastSync).MarshalText()
			if err != nil {
				return err
			}

			return meta.Put([]byte(keyLastSync), v)
		}

		return nil
	})
}
