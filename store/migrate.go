package store

import (
	"go.etcd.io/bbolt"

	"github.com/ayoisaiah/codetime/internal/apperr"
)

// schemaVersion is the layout version written by this build.
const schemaVersion = 1

var errNewerSchema = &apperr.Error{
	Message: "database schema version %d is newer than supported version %d",
}

// migrations[i] upgrades a database from version i to version i+1.
var migrations = []func(tx *bbolt.Tx) error{
	createBuckets,
}

func createBuckets(tx *bbolt.Tx) error {
	for _, name := range buckets {
		_, err := tx.CreateBucketIfNotExists([]byte(name))
		if err != nil {
			return err
		}
	}

	return nil
}

func (c *Client) migrate(tx *bbolt.Tx) error {
	// The meta bucket must exist before the version can be read
	meta, err := tx.CreateBucketIfNotExists([]byte(metaBucket))
	if err != nil {
		return err
	}

	version := btoi(meta.Get([]byte(keySchemaVersion)))
	if version > schemaVersion {
		return errNewerSchema.Fmt(version, schemaVersion)
	}

	for v := version; v < schemaVersion; v++ {
		if err := migrations[v](tx); err != nil {
			return err
		}
	}

	// Buckets are recreated on every open so a partially written database
	// still has the full layout
	if err := createBuckets(tx); err != nil {
		return err
	}

	return meta.Put([]byte(keySchemaVersion), itob(schemaVersion))
}
