package locking

import (
	"context"
	"errors"
	"fmt"
	"payrouter/pkg/logger"
	"time"

	"github.com/google/uuid"
)

const (
	defaultTTL            = 30 * time.Second
	defaultReleaseTimeout = 5 * time.Second
)

type Options struct {
	// TTL applies when Acquire is called with a zero ttl.
	TTL            time.Duration
	ReleaseTimeout time.Duration
	Now            func() time.Time
}

type Manager struct {
	store          Store
	log            *logger.Logger
	ttl            time.Duration
	releaseTimeout time.Duration
	now            func() time.Time
}

func NewManager(store Store, log *logger.Logger, opts Options) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.ReleaseTimeout <= 0 {
		opts.ReleaseTimeout = defaultReleaseTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		store:          store,
		log:            log,
		ttl:            opts.TTL,
		releaseTimeout: opts.ReleaseTimeout,
		now:            opts.Now,
	}
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Acquire tries once to take key. It never waits: a held key yields ErrContention and a
// store failure yields ErrStoreUnavailable. A cancelled ctx is returned as is.
func (m *Manager) Acquire(ctx context.Context, key Key, ttl time.Duration) (*Handle, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = m.ttl
	}

	token := uuid.NewString()
	now := m.now()
	ok, err := m.store.TryAcquire(ctx, key.String(), token, ttl)
	if ctxErr := ctx.Err(); ctxErr != nil && err != nil {
		// the caller gave up; the store is not at fault
		return nil, fmt.Errorf("acquire %s: %w", key, ctxErr)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: acquire %s: %w", ErrStoreUnavailable, key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrContention, key)
	}

	m.log.Debug("Lock acquired", "key", key.String(), "ttl", ttl)
	return &Handle{
		Key:        key,
		Token:      token,
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}, nil
}

// Release gives up h. It runs on a context detached from ctx's cancellation so a
// disconnected caller still frees the lock, bounded by the release timeout.
func (m *Manager) Release(ctx context.Context, h *Handle) error {
	if h == nil {
		return nil
	}
	if h.released.Swap(true) {
		return ErrReleased
	}

	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.releaseTimeout)
	defer cancel()

	deleted, err := m.store.Release(releaseCtx, h.Key.String(), h.Token)
	if err != nil {
		return fmt.Errorf("%w: release %s: %w", ErrStoreUnavailable, h.Key, err)
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrNotOwner, h.Key)
	}

	m.log.Debug("Lock released", "key", h.Key.String(), "held_for", m.now().Sub(h.AcquiredAt))
	return nil
}

// WithLock runs fn while holding key and releases on every exit path, including a panic
// in fn. Release failures are logged and never replace fn's result; the TTL reclaims the key.
func (m *Manager) WithLock(ctx context.Context, key Key, ttl time.Duration, fn func(ctx context.Context) error) error {
	h, err := m.Acquire(ctx, key, ttl)
	if err != nil {
		return err
	}
	defer m.ReleaseLogged(ctx, h)

	return fn(ctx)
}

// ReleaseLogged releases h and logs instead of returning a failure.
func (m *Manager) ReleaseLogged(ctx context.Context, h *Handle) {
	if err := m.Release(ctx, h); err != nil && !errors.Is(err, ErrReleased) {
		m.log.Warn("Failed to release lock", "key", h.Key.String(), "error", err)
	}
}

// IsHeld reports whether any live handle currently owns key.
func (m *Manager) IsHeld(ctx context.Context, key Key) (bool, error) {
	held, err := m.store.IsHeld(ctx, key.String())
	if err != nil {
		return false, fmt.Errorf("%w: is held %s: %w", ErrStoreUnavailable, key, err)
	}
	return held, nil
}
