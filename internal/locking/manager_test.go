package locking

import (
	"context"
	"errors"
	"payrouter/pkg/logger"
	"sync/atomic"
	"testing"
	"time"
)

type mockStore struct {
	tryAcquireFunc func(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	releaseFunc    func(ctx context.Context, key, token string) (bool, error)
	isHeldFunc     func(ctx context.Context, key string) (bool, error)
}

func (m *mockStore) TryAcquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	if m.tryAcquireFunc != nil {
		return m.tryAcquireFunc(ctx, key, token, ttl)
	}
	return true, nil
}

func (m *mockStore) Release(ctx context.Context, key, token string) (bool, error) {
	if m.releaseFunc != nil {
		return m.releaseFunc(ctx, key, token)
	}
	return true, nil
}

func (m *mockStore) IsHeld(ctx context.Context, key string) (bool, error) {
	if m.isHeldFunc != nil {
		return m.isHeldFunc(ctx, key)
	}
	return false, nil
}

var testKey = Key{MerchantID: "merchant_1", ResourceType: "payment_link", ResourceID: "pay_1"}

func newTestManager(s Store, now time.Time) *Manager {
	return NewManager(s, logger.Discard(), Options{
		TTL:            10 * time.Second,
		ReleaseTimeout: time.Second,
		Now:            func() time.Time { return now },
	})
}

// ──────────────────────────── Acquire ────────────────────────────

func TestManager_Acquire(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	var gotKey, gotToken string
	var gotTTL time.Duration
	s := &mockStore{
		tryAcquireFunc: func(_ context.Context, key, token string, ttl time.Duration) (bool, error) {
			gotKey, gotToken, gotTTL = key, token, ttl
			return true, nil
		},
	}

	h, err := newTestManager(s, now).Acquire(context.Background(), testKey, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotKey != "lock:merchant_1:payment_link:pay_1" {
		t.Errorf("unexpected store key %q", gotKey)
	}
	if gotToken == "" || gotToken != h.Token {
		t.Errorf("handle token %q does not match stored token %q", h.Token, gotToken)
	}
	if gotTTL != 10*time.Second {
		t.Errorf("expected default ttl, got %s", gotTTL)
	}
	if !h.ExpiresAt.Equal(now.Add(10 * time.Second)) {
		t.Errorf("unexpected expiry %s", h.ExpiresAt)
	}
}

func TestManager_AcquireFailures(t *testing.T) {
	tests := []struct {
		name    string
		store   *mockStore
		key     Key
		wantErr error
	}{
		{
			name: "contention",
			store: &mockStore{tryAcquireFunc: func(context.Context, string, string, time.Duration) (bool, error) {
				return false, nil
			}},
			key:     testKey,
			wantErr: ErrContention,
		},
		{
			name: "store unavailable",
			store: &mockStore{tryAcquireFunc: func(context.Context, string, string, time.Duration) (bool, error) {
				return false, errors.New("dial tcp 10.0.0.7:6379: connection refused")
			}},
			key:     testKey,
			wantErr: ErrStoreUnavailable,
		},
		{
			name:    "missing resource id",
			store:   &mockStore{},
			key:     Key{MerchantID: "merchant_1", ResourceType: "payment_link"},
			wantErr: ErrInvalidKey,
		},
		{
			name:    "separator in part",
			store:   &mockStore{},
			key:     Key{MerchantID: "m:1", ResourceType: "payment_link", ResourceID: "pay_1"},
			wantErr: ErrInvalidKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := newTestManager(tt.store, time.Now()).Acquire(context.Background(), tt.key, time.Second)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if h != nil {
				t.Errorf("expected no handle on failure")
			}
		})
	}
}

// ──────────────────────────── Release ────────────────────────────

func TestManager_AcquireCancelledContextIsNotStoreFailure(t *testing.T) {
	s := &mockStore{tryAcquireFunc: func(ctx context.Context, _, _ string, _ time.Duration) (bool, error) {
		return false, ctx.Err()
	}}
	m := newTestManager(s, time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Acquire(ctx, testKey, 0)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("cancellation reported as store outage: %v", err)
	}
}

func TestManager_ReleaseExactlyOnce(t *testing.T) {
	var calls atomic.Int32
	s := &mockStore{releaseFunc: func(context.Context, string, string) (bool, error) {
		calls.Add(1)
		return true, nil
	}}
	m := newTestManager(s, time.Now())

	h, err := m.Acquire(context.Background(), testKey, 0)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := m.Release(context.Background(), h); err != nil {
		t.Fatalf("first release: %v", err)
	}
	if err := m.Release(context.Background(), h); !errors.Is(err, ErrReleased) {
		t.Fatalf("expected ErrReleased, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 store release, got %d", calls.Load())
	}
	if !h.Released() {
		t.Errorf("handle should report released")
	}
}

func TestManager_ReleaseSurvivesCancelledContext(t *testing.T) {
	var releaseCtxErr error
	s := &mockStore{releaseFunc: func(ctx context.Context, _, _ string) (bool, error) {
		releaseCtxErr = ctx.Err()
		return true, nil
	}}
	m := newTestManager(s, time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	h, err := m.Acquire(ctx, testKey, 0)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	cancel()

	if err := m.Release(ctx, h); err != nil {
		t.Fatalf("release: %v", err)
	}
	if releaseCtxErr != nil {
		t.Errorf("release ran on a cancelled context: %v", releaseCtxErr)
	}
}

func TestManager_ReleaseNotOwner(t *testing.T) {
	s := &mockStore{releaseFunc: func(context.Context, string, string) (bool, error) {
		return false, nil
	}}
	m := newTestManager(s, time.Now())
	h, _ := m.Acquire(context.Background(), testKey, 0)

	if err := m.Release(context.Background(), h); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
}

// ──────────────────────────── WithLock ────────────────────────────

func TestManager_WithLockReleasesOnEveryExit(t *testing.T) {
	businessErr := errors.New("invalid state")

	tests := []struct {
		name string
		fn   func(ctx context.Context) error
		want error
		pan  bool
	}{
		{name: "success", fn: func(context.Context) error { return nil }},
		{name: "business error", fn: func(context.Context) error { return businessErr }, want: businessErr},
		{name: "panic", fn: func(context.Context) error { panic("boom") }, pan: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			released := false
			s := &mockStore{releaseFunc: func(context.Context, string, string) (bool, error) {
				released = true
				return true, nil
			}}
			m := newTestManager(s, time.Now())

			var err error
			func() {
				defer func() {
					if r := recover(); r != nil && !tt.pan {
						t.Fatalf("unexpected panic: %v", r)
					}
				}()
				err = m.WithLock(context.Background(), testKey, 0, tt.fn)
			}()

			if !tt.pan && !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if !released {
				t.Errorf("lock was not released")
			}
		})
	}
}

func TestManager_WithLockSkipsBodyOnContention(t *testing.T) {
	s := &mockStore{tryAcquireFunc: func(context.Context, string, string, time.Duration) (bool, error) {
		return false, nil
	}}
	ran := false

	err := newTestManager(s, time.Now()).WithLock(context.Background(), testKey, 0, func(context.Context) error {
		ran = true
		return nil
	})

	if !errors.Is(err, ErrContention) {
		t.Fatalf("expected ErrContention, got %v", err)
	}
	if ran {
		t.Errorf("body ran without the lock")
	}
}

func TestManager_ReleaseFailureDoesNotOverrideResult(t *testing.T) {
	s := &mockStore{releaseFunc: func(context.Context, string, string) (bool, error) {
		return false, errors.New("connection reset")
	}}

	err := newTestManager(s, time.Now()).WithLock(context.Background(), testKey, 0, func(context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("release failure leaked into result: %v", err)
	}
}
