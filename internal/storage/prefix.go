package storage

import "time"

// PrefixStore namespaces every key of an inner Store under a fixed prefix,
// so several caches can share one database.
type PrefixStore struct {
	inner  Store
	prefix []byte
}

// NewPrefixStore wraps inner with the given prefix.
func NewPrefixStore(inner Store, prefix []byte) *PrefixStore {
	p := make([]byte, len(prefix))
	copy(p, prefix)
	return &PrefixStore{inner: inner, prefix: p}
}

func (p *PrefixStore) prefixed(key []byte) []byte {
	out := make([]byte, len(p.prefix)+len(key))
	copy(out, p.prefix)
	copy(out[len(p.prefix):], key)
	return out
}

// Get retrieves a value by key.
func (p *PrefixStore) Get(key []byte) ([]byte, error) {
	return p.inner.Get(p.prefixed(key))
}

// Put stores a key-value pair.
func (p *PrefixStore) Put(key, value []byte, ttl time.Duration) error {
	return p.inner.Put(p.prefixed(key), value, ttl)
}

// Delete removes a key.
func (p *PrefixStore) Delete(key []byte) error {
	return p.inner.Delete(p.prefixed(key))
}

// DeletePrefix removes keys with the given prefix inside this namespace.
func (p *PrefixStore) DeletePrefix(prefix []byte) error {
	return p.inner.DeletePrefix(p.prefixed(prefix))
}

// Clear removes every key in this namespace.
func (p *PrefixStore) Clear() error {
	return p.inner.DeletePrefix(p.prefix)
}

// Close is a no-op; the inner store manages its own lifecycle.
func (p *PrefixStore) Close() error {
	return nil
}
