package r2client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// LockInfo is the JSON body of a lock object.
type LockInfo struct {
	Owner     string    `json:"owner"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DistributedLock is a lease held by writing a lock object. Only one owner
// can create it; an expired lease may be taken over with a conditional write.
type DistributedLock struct {
	store   ObjectStore
	key     string
	ttl     time.Duration
	ownerID string
	etag    string
	now     func() time.Time
}

// NewDistributedLock creates a lock handle with a fresh owner id.
func NewDistributedLock(store ObjectStore, key string, ttl time.Duration) *DistributedLock {
	return &DistributedLock{
		store:   store,
		key:     key,
		ttl:     ttl,
		ownerID: uuid.New().String(),
		now:     time.Now,
	}
}

// OwnerID identifies this holder.
func (l *DistributedLock) OwnerID() string { return l.ownerID }

func (l *DistributedLock) body() ([]byte, error) {
	return json.Marshal(LockInfo{Owner: l.ownerID, ExpiresAt: l.now().Add(l.ttl)})
}

// Acquire takes the lock if it is free or its lease has expired.
// It reports false without error when another live owner holds it.
func (l *DistributedLock) Acquire(ctx context.Context) (bool, error) {
	data, err := l.body()
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}

	created, etag, err := l.store.PutObjectIfNotExists(ctx, l.key, bytes.NewReader(data), "application/json")
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	if created {
		l.etag = etag
		return true, nil
	}

	info, current, err := l.read(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	if info != nil && l.now().Before(info.ExpiresAt) {
		return false, nil
	}

	if current == "" {
		// deleted between our write and read; try a clean create once more
		created, etag, err = l.store.PutObjectIfNotExists(ctx, l.key, bytes.NewReader(data), "application/json")
	} else {
		created, etag, err = l.store.PutObjectIfMatch(ctx, l.key, bytes.NewReader(data), current, "application/json")
	}
	if err != nil {
		return false, fmt.Errorf("acquire lock: take over: %w", err)
	}
	if created {
		l.etag = etag
	}
	return created, nil
}

// Renew extends the lease while we still own it.
func (l *DistributedLock) Renew(ctx context.Context) (bool, error) {
	if l.etag == "" {
		return false, nil
	}
	data, err := l.body()
	if err != nil {
		return false, fmt.Errorf("renew lock: %w", err)
	}
	ok, etag, err := l.store.PutObjectIfMatch(ctx, l.key, bytes.NewReader(data), l.etag, "application/json")
	if err != nil {
		return false, fmt.Errorf("renew lock: %w", err)
	}
	if !ok {
		l.etag = ""
		return false, nil
	}
	l.etag = etag
	return true, nil
}

// Release deletes the lock object if we still own it.
func (l *DistributedLock) Release(ctx context.Context) error {
	info, _, err := l.read(ctx)
	if err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	l.etag = ""
	if info != nil && info.Owner != l.ownerID {
		return nil
	}
	return l.store.DeleteObject(ctx, l.key)
}

// read returns the current lock body and ETag. A missing object yields a nil
// info and empty ETag; an unreadable body yields a nil info and its ETag.
func (l *DistributedLock) read(ctx context.Context) (*LockInfo, string, error) {
	body, etag, err := l.store.Download(ctx, l.key)
	if errors.Is(err, ErrNotFound) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = body.Close() }()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, "", fmt.Errorf("read lock: %w", err)
	}
	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, etag, nil
	}
	return &info, etag, nil
}
