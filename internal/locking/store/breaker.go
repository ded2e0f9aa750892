package store

import (
	"context"
	"errors"
	"payrouter/internal/locking"
	"payrouter/pkg/logger"
	"time"

	"github.com/sony/gobreaker/v2"
)

type BreakerSettings struct {
	Name        string
	MaxFailures int
	OpenTimeout time.Duration
}

// Breaker stops calling a failing lock store for OpenTimeout after MaxFailures
// consecutive errors. While open every call fails immediately, which the manager
// reports as an unavailable store.
type Breaker struct {
	next locking.Store
	cb   *gobreaker.CircuitBreaker[bool]
}

func NewBreaker(next locking.Store, log *logger.Logger, st BreakerSettings) *Breaker {
	maxFailures := uint32(max(st.MaxFailures, 1))
	return &Breaker{
		next: next,
		cb: gobreaker.NewCircuitBreaker[bool](gobreaker.Settings{
			Name:        st.Name,
			MaxRequests: 1,
			Timeout:     st.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("Lock store breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			},
			IsSuccessful: func(err error) bool {
				// a caller giving up says nothing about the store's health
				return err == nil || errors.Is(err, context.Canceled)
			},
		}),
	}
}

func (b *Breaker) TryAcquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	return b.cb.Execute(func() (bool, error) {
		return b.next.TryAcquire(ctx, key, token, ttl)
	})
}

func (b *Breaker) Release(ctx context.Context, key, token string) (bool, error) {
	return b.cb.Execute(func() (bool, error) {
		return b.next.Release(ctx, key, token)
	})
}

func (b *Breaker) IsHeld(ctx context.Context, key string) (bool, error) {
	return b.cb.Execute(func() (bool, error) {
		return b.next.IsHeld(ctx, key)
	})
}

func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}
