// Package storage provides the key-value cache backing short-lived response
// caches (handle lookups, prices).
package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned by Get for missing or expired keys.
var ErrNotFound = errors.New("key not found")

// Store is a key-value store with optional per-entry expiry.
type Store interface {
	// Get returns the value for key or ErrNotFound.
	Get(key []byte) ([]byte, error)
	// Put stores value under key. A positive ttl expires the entry after
	// that long; zero keeps it until deleted.
	Put(key, value []byte, ttl time.Duration) error
	Delete(key []byte) error
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(prefix []byte) error
	Close() error
}
