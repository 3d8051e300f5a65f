// Package snapshot is the local crash-recovery blob store. It is advisory
// only: the durable record store is always the source of truth on resume.
package snapshot

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"
)

// LiveSessionKey is the single fixed key the live-session backup lives under.
const LiveSessionKey = "live_session_backup"

var ErrNoSnapshot = errors.New("no snapshot stored")

// Store writes, reads, and clears opaque blobs keyed by name.
type Store interface {
	Save(key string, blob []byte) error
	Load(key string) ([]byte, error)
	Clear(key string) error
}

const bucketName = "snapshots"

// BoltStore is a bbolt-backed Store.
type BoltStore struct {
	db *bbolt.DB
}

// Open opens (or creates) the snapshot database at path.
func Open(path string) (*BoltStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("snapshot path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure snapshot bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *BoltStore) Save(key string, blob []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(key), blob)
	})
}

func (s *BoltStore) Load(key string) ([]byte, error) {
	var blob []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(bucketName)).Get([]byte(key))
		if v == nil {
			return ErrNoSnapshot
		}
		blob = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return blob, nil
}

func (s *BoltStore) Clear(key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(key))
	})
}
