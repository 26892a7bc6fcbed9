package boltrepo

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/jrsteele09/weeb-client/internal/errors"
	"github.com/jrsteele09/weeb-client/token"
)

var _ token.Repo = (*Repo)(nil)

const bucketSession = "Session"

// Repo persists durable session entries in a Bolt database file.
type Repo struct {
	db *bbolt.DB
}

// Open opens (or creates) the Bolt database at filePath and ensures the session bucket exists.
func Open(filePath string) (*Repo, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	// 0600: the file holds a refresh credential. The timeout stops a second process from
	// blocking forever on the file lock.
	db, err := bbolt.Open(filePath, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, createErr := tx.CreateBucketIfNotExists([]byte(bucketSession)); createErr != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketSession, createErr)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repo{db: db}, nil
}

// Close the database, ignore any errors
func (r *Repo) Close() {
	_ = r.db.Close()
}

func (r *Repo) Load(key string) ([]byte, error) {
	var out []byte
	err := r.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketSession))
		if bucket == nil {
			return fmt.Errorf("%s bucket not found", bucketSession)
		}

		data := bucket.Get([]byte(key))
		if data == nil {
			return errors.ErrNotFound
		}

		// Bolt memory is only valid inside the transaction
		out = append([]byte(nil), data...)
		return nil
	})
	return out, err
}

func (r *Repo) Save(key string, value []byte) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketSession))
		if bucket == nil {
			return fmt.Errorf("%s bucket not found", bucketSession)
		}
		if err := bucket.Put([]byte(key), value); err != nil {
			return fmt.Errorf("failed to store data in bucket: %w", err)
		}
		return nil
	})
}

func (r *Repo) Delete(key string) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketSession))
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(key))
	})
}
