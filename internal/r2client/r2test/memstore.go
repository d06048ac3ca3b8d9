// Package r2test provides an in-memory r2client.ObjectStore for tests.
package r2test

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"sync"

	"github.com/garyellow/regionstat/internal/r2client"
)

type object struct {
	data []byte
	etag string
}

// MemStore keeps objects in memory with content-derived ETags, matching
// the conditional-write semantics of R2.
type MemStore struct {
	mu      sync.Mutex
	objects map[string]object
}

var _ r2client.ObjectStore = (*MemStore)(nil)

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{objects: make(map[string]object)}
}

func (m *MemStore) put(key string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	sum := md5.Sum(append([]byte(key), data...))
	etag := hex.EncodeToString(sum[:])
	m.objects[key] = object{data: data, etag: etag}
	return etag, nil
}

// Upload implements r2client.ObjectStore.
func (m *MemStore) Upload(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.put(key, body)
}

// Download implements r2client.ObjectStore.
func (m *MemStore) Download(_ context.Context, key string) (io.ReadCloser, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, "", r2client.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.etag, nil
}

// HeadObject implements r2client.ObjectStore.
func (m *MemStore) HeadObject(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok {
		return "", r2client.ErrNotFound
	}
	return obj.etag, nil
}

// PutObjectIfNotExists implements r2client.ObjectStore.
func (m *MemStore) PutObjectIfNotExists(_ context.Context, key string, body io.Reader, _ string) (bool, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; ok {
		return false, "", nil
	}
	etag, err := m.put(key, body)
	return err == nil, etag, err
}

// PutObjectIfMatch implements r2client.ObjectStore.
func (m *MemStore) PutObjectIfMatch(_ context.Context, key string, body io.Reader, etag, _ string) (bool, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok || obj.etag != etag {
		return false, "", nil
	}
	next, err := m.put(key, body)
	return err == nil, next, err
}

// DeleteObject implements r2client.ObjectStore.
func (m *MemStore) DeleteObject(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// Bytes returns a copy of an object's content.
func (m *MemStore) Bytes(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, false
	}
	return bytes.Clone(obj.data), true
}
