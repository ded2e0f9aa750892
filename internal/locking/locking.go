// Package locking serializes mutations of a financial resource across every process
// instance. Locks live in an external store, are keyed by merchant, resource type and
// resource id, and expire after a TTL so a crashed holder cannot wedge a resource.
package locking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

var (
	// ErrContention is returned by Acquire when another live handle holds the key.
	ErrContention = errors.New("locking: resource is locked")
	// ErrStoreUnavailable wraps any failure to reach the lock store.
	ErrStoreUnavailable = errors.New("locking: lock store unavailable")
	// ErrNotOwner means the lock expired and was possibly taken over before release.
	ErrNotOwner = errors.New("locking: lock no longer owned by handle")
	// ErrReleased is returned when a handle is released a second time.
	ErrReleased   = errors.New("locking: handle already released")
	ErrInvalidKey = errors.New("locking: invalid lock key")
)

// Store is the coordination backend. TryAcquire must be atomic: for a given key at most
// one token may be stored at a time, and an expired entry counts as absent.
type Store interface {
	TryAcquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	// Release deletes key only if it still holds token. It reports whether a delete happened.
	Release(ctx context.Context, key, token string) (bool, error)
	IsHeld(ctx context.Context, key string) (bool, error)
}

type Key struct {
	MerchantID   string
	ResourceType string
	ResourceID   string
}

func (k Key) Validate() error {
	if k.MerchantID == "" || k.ResourceType == "" || k.ResourceID == "" {
		return fmt.Errorf("%w: merchant, resource type and resource id are required", ErrInvalidKey)
	}
	for _, part := range []string{k.MerchantID, k.ResourceType, k.ResourceID} {
		if strings.Contains(part, ":") {
			return fmt.Errorf("%w: %q contains ':'", ErrInvalidKey, part)
		}
	}
	return nil
}

// String is the storage key. Parts may not contain ':' so distinct keys never collide.
func (k Key) String() string {
	return "lock:" + k.MerchantID + ":" + k.ResourceType + ":" + k.ResourceID
}

// Handle proves ownership of a Key until ExpiresAt. It belongs to the request that
// acquired it and is released at most once.
type Handle struct {
	Key        Key
	Token      string
	AcquiredAt time.Time
	ExpiresAt  time.Time

	released atomic.Bool
}

func (h *Handle) Released() bool {
	return h.released.Load()
}

func (h *Handle) Expired(now time.Time) bool {
	return !now.Before(h.ExpiresAt)
}
