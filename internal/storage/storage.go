// Package storage persists training column schemas for the book predictor.
// It uses BoltDB as the underlying storage engine to keep every imported
// schema version alongside a pointer to the active one, so a deployment
// can switch or roll back schemas without touching files on disk.
//
// The package provides thread-safe operations; BoltDB serializes writers
// and readers see consistent snapshots.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"book-predictor/internal/common"

	"go.etcd.io/bbolt"
)

const (
	schemasBucket = "schemas" // Bucket holding schema artifacts keyed by version
	metaBucket    = "meta"    // Bucket holding the active pointer and activation history

	activeKey  = "active"
	historyKey = "history"
)

// Store provides persistent storage for schema artifacts using BoltDB.
type Store struct {
	db *bbolt.DB // BoltDB database instance
}

// New creates a new storage instance in dataPath, creating the directory
// and buckets as needed.
func New(dataPath string) (*Store, error) {
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	dbPath := filepath.Join(dataPath, common.DefaultRegistryDBName)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(schemasBucket)); err != nil {
			return fmt.Errorf("create schemas bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(metaBucket)); err != nil {
			return fmt.Errorf("create meta bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection gracefully.
func (s *Store) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}
