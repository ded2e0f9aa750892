// Package pipeline runs every merchant-facing operation through the same sequence:
// authenticate, lock, execute the closure, release, map to an envelope, emit an event.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"payrouter/internal/auth"
	"payrouter/internal/locking"
	apperrors "payrouter/pkg/errors"
	httpx "payrouter/pkg/http"

	"github.com/julienschmidt/httprouter"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	errClosurePanic  = errors.New("pipeline: closure panicked")
	errPipelinePanic = errors.New("pipeline: panicked outside the closure")
)

// Execute runs op for req. It always returns an envelope and always emits one event.
func Execute[P, R any](ctx context.Context, st *State, op Operation[P, R], req Request) (env httpx.Envelope) {
	start := st.now()
	ctx, span := st.tracer().Start(ctx, "pipeline."+op.Flow.String(),
		trace.WithAttributes(
			attribute.String("pipeline.flow", op.Flow.String()),
			attribute.String("pipeline.lock", op.Lock.String()),
		),
	)

	ev := Event{
		Flow:      op.Flow,
		FlowName:  op.Flow.String(),
		RequestID: req.RequestID,
		Timestamp: start,
	}
	var cause error

	defer func() {
		if rec := recover(); rec != nil {
			st.Log.Error("Pipeline panicked",
				"flow", op.Flow.String(),
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			cause = fmt.Errorf("%w: %v", errPipelinePanic, rec)
			ev.Outcome = apperrors.ClassInternal
			env = httpx.Failure(apperrors.Internal("An unexpected error occurred", cause))
		}
		ev.Duration = st.now().Sub(start)
		ev.DurationMS = ev.Duration.Milliseconds()
		ev.Status = env.Status
		if env.Error != nil {
			ev.ErrorCode = env.Error.Code
		}
		if cause != nil {
			ev.Detail = cause.Error()
			span.RecordError(cause)
			span.SetStatus(codes.Error, ev.ErrorCode)
		}
		span.SetAttributes(
			attribute.String("pipeline.outcome", string(ev.Outcome)),
			attribute.Int("http.status_code", ev.Status),
		)
		span.End()
		if st.Events != nil {
			st.Events.Emit(context.WithoutCancel(ctx), ev)
		}
	}()

	fail := func(err error) httpx.Envelope {
		appErr := classify(err)
		cause = err
		ev.Outcome = appErr.Class
		return httpx.Failure(appErr)
	}

	if err := req.Err(); err != nil {
		return fail(bodyError(err))
	}

	strategy, err := op.strategy(req)
	if err != nil {
		return fail(apperrors.Internal("An unexpected error occurred", err))
	}

	ac, err := auth.Resolve(ctx, strategy, req.Credentials())
	if err != nil {
		return fail(err)
	}
	ev.MerchantID = ac.MerchantID
	span.SetAttributes(attribute.String("merchant.id", ac.MerchantID))

	if !ac.Allows(op.Permission) {
		return fail(&auth.Error{Kind: auth.KindInsufficientScope, Scheme: string(ac.Class)})
	}

	var payload P
	if op.Decode != nil {
		payload, err = op.Decode(req)
		if err != nil {
			return fail(err)
		}
	}

	if op.Lock.Required() {
		key, err := op.Lock.Key(ac.MerchantID, req.PathParams)
		if err != nil {
			return fail(err)
		}
		h, err := st.Locks.Acquire(ctx, key, 0)
		if err != nil {
			return fail(err)
		}
		ev.Locked = true
		// runs before the event is emitted and survives a cancelled ctx
		defer st.Locks.ReleaseLogged(ctx, h)
	}

	// A closure that returned success has committed; a later cancellation does not undo it.
	result, err := invoke(ctx, st, op, ac, payload)
	if err != nil {
		return fail(err)
	}

	ev.Outcome = apperrors.ClassSuccess
	return httpx.Success(op.successStatus(), result)
}

func invoke[P, R any](ctx context.Context, st *State, op Operation[P, R], ac auth.Context, payload P) (result R, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			st.Log.Error("Closure panicked",
				"flow", op.Flow.String(),
				"merchant_id", ac.MerchantID,
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("%w: %v", errClosurePanic, rec)
		}
	}()
	return op.Closure.Execute(ctx, st, ac, payload)
}

// classify maps any failure onto the merchant-facing taxonomy.
func classify(err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var authErr *auth.Error
	switch {
	case errors.As(err, &authErr):
		return authErr.AppError()
	case errors.Is(err, locking.ErrContention):
		return apperrors.ResourceConflict("Resource is being modified by another request").WithCause(err)
	case errors.Is(err, locking.ErrStoreUnavailable):
		return apperrors.Unavailable("Lock service").WithCause(err)
	case errors.Is(err, locking.ErrInvalidKey):
		return apperrors.InvalidInput("Resource identifier is invalid").WithCause(err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return apperrors.Timeout("Request did not complete in time").WithCause(err)
	default:
		return apperrors.Internal("An unexpected error occurred", err)
	}
}

func bodyError(err error) *apperrors.AppError {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperrors.Business(apperrors.CodeInvalidInput, "Request body is too large", http.StatusRequestEntityTooLarge).WithCause(err)
	}
	return apperrors.InvalidInput("Request body could not be read").WithCause(err)
}

// Handle adapts op to an httprouter handle. It panics if op is invalid, so a broken route
// table fails at startup.
func Handle[P, R any](st *State, op Operation[P, R]) httprouter.Handle {
	if err := op.Validate(); err != nil {
		panic(err)
	}
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		Execute(r.Context(), st, op, NewRequest(r, ps)).Write(w)
	}
}
