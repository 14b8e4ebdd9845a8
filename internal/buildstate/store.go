// Package buildstate persists per-source content hashes between builds using
// bbolt, so the compiler can skip grammars whose inputs have not changed.
// Writes are transactional; a crash mid-build cannot corrupt previously
// committed hashes.
package buildstate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	bolt "go.etcd.io/bbolt"
)

// bucketSources maps absolute source paths to SHA-256 hex digests.
var bucketSources = []byte("sources")

// Store records source file hashes in a bbolt database.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) a bbolt database at the given path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SourceHash returns the recorded digest for a source path, or "" when the
// path has never been recorded.
func (s *Store) SourceHash(path string) (string, error) {
	var hash string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSources)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(path)); v != nil {
			hash = string(v)
		}
		return nil
	})
	return hash, err
}

// RecordSources stores digests for a batch of source paths in a single
// transaction.
func (s *Store) RecordSources(hashes map[string]string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketSources)
		if err != nil {
			return err
		}
		for path, hash := range hashes {
			if err := b.Put([]byte(path), []byte(hash)); err != nil {
				return err
			}
		}
		return nil
	})
}

// HashFile computes the SHA-256 hex digest of a file.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
