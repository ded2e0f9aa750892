package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"payrouter/internal/auth"
	"payrouter/internal/locking"
)

var ErrInvalidOperation = errors.New("pipeline: invalid operation")

// Closure is the business logic of one operation. It runs only after authentication and,
// for locked operations, only while the lock is held.
type Closure[P, R any] interface {
	Execute(ctx context.Context, st *State, ac auth.Context, payload P) (R, error)
}

type ClosureFunc[P, R any] func(ctx context.Context, st *State, ac auth.Context, payload P) (R, error)

func (f ClosureFunc[P, R]) Execute(ctx context.Context, st *State, ac auth.Context, payload P) (R, error) {
	return f(ctx, st, ac, payload)
}

// Operation declares everything the pipeline needs to run one route: its flow, how the
// caller is authenticated, the permission it needs and its lock intent.
type Operation[P, R any] struct {
	Flow Flow
	Auth auth.Strategy
	// SelectAuth picks the strategy per request. Used instead of Auth when set.
	SelectAuth func(Request) auth.Strategy
	Permission auth.Permission
	Lock       locking.Action
	// AllowPathDerivedAuth whitelists auth.ContextDerived for this operation.
	AllowPathDerivedAuth bool
	SuccessStatus        int
	Decode               func(Request) (P, error)
	Closure              Closure[P, R]
}

func (op Operation[P, R]) Validate() error {
	if op.Flow == FlowUnknown {
		return fmt.Errorf("%w: flow is required", ErrInvalidOperation)
	}
	if op.Closure == nil {
		return fmt.Errorf("%w: %s has no closure", ErrInvalidOperation, op.Flow)
	}
	if op.Auth == nil && op.SelectAuth == nil {
		return fmt.Errorf("%w: %s has no auth strategy", ErrInvalidOperation, op.Flow)
	}
	if op.Auth != nil && op.SelectAuth != nil {
		return fmt.Errorf("%w: %s declares both Auth and SelectAuth", ErrInvalidOperation, op.Flow)
	}
	if _, derived := op.Auth.(auth.ContextDerived); derived && !op.AllowPathDerivedAuth {
		return fmt.Errorf("%w: %s uses path derived auth without allowing it", ErrInvalidOperation, op.Flow)
	}
	if err := op.Lock.Validate(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidOperation, op.Flow, err)
	}
	if op.SuccessStatus != 0 && (op.SuccessStatus < 200 || op.SuccessStatus > 299) {
		return fmt.Errorf("%w: %s success status %d", ErrInvalidOperation, op.Flow, op.SuccessStatus)
	}
	return nil
}

func (op Operation[P, R]) strategy(req Request) (auth.Strategy, error) {
	s := op.Auth
	if op.SelectAuth != nil {
		s = op.SelectAuth(req)
	}
	if s == nil {
		return nil, fmt.Errorf("%w: %s selected no auth strategy", ErrInvalidOperation, op.Flow)
	}
	if _, derived := s.(auth.ContextDerived); derived && !op.AllowPathDerivedAuth {
		return nil, fmt.Errorf("%w: %s selected path derived auth", ErrInvalidOperation, op.Flow)
	}
	return s, nil
}

func (op Operation[P, R]) successStatus() int {
	if op.SuccessStatus == 0 {
		return http.StatusOK
	}
	return op.SuccessStatus
}
