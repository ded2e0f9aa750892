package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"payrouter/internal/auth"
	"payrouter/internal/locking"
	"payrouter/internal/paymentlinks/service"
	"payrouter/internal/pipeline"
	"payrouter/pkg/config"
	apperrors "payrouter/pkg/errors"
	httpx "payrouter/pkg/http"
	"payrouter/pkg/model"

	"github.com/julienschmidt/httprouter"
)

const (
	ResourcePaymentLink = "payment_link"

	ParamPaymentID     = "payment_id"
	ParamPaymentLinkID = "payment_link_id"
	ParamMerchantID    = "merchant_id"
)

// Authenticators are the credential validators the payment link routes combine into
// their auth strategies. JWT is optional.
type Authenticators struct {
	APIKey      auth.Validator
	Publishable auth.Validator
	JWT         auth.Validator
	Secrets     auth.SecretStore
}

type PaymentLinkHandler struct {
	state   *pipeline.State
	service service.PaymentLinkService
	authn   Authenticators
}

func NewPaymentLinkHandler(state *pipeline.State, service service.PaymentLinkService, authn Authenticators) *PaymentLinkHandler {
	return &PaymentLinkHandler{
		state:   state,
		service: service,
		authn:   authn,
	}
}

func (h *PaymentLinkHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/payments/:payment_id/payment_link", pipeline.Handle(h.state, h.createOperation()))
	router.GET("/payment_links", pipeline.Handle(h.state, h.listOperation()))
	router.GET("/payment_links/:payment_link_id", pipeline.Handle(h.state, h.retrieveOperation()))
	router.POST("/merchants/:merchant_id/payments/:payment_id/payment_link/initiate", pipeline.Handle(h.state, h.initiateOperation()))
	router.POST("/payments/:payment_id/payment_link/complete", pipeline.Handle(h.state, h.completeOperation()))
}

// merchantAuth accepts a secret API key and, when configured, a merchant JWT.
func (h *PaymentLinkHandler) merchantAuth() auth.Strategy {
	if h.authn.JWT == nil {
		return auth.SingleScheme{Validator: h.authn.APIKey}
	}
	return auth.OrderedFallback{Validators: []auth.Validator{h.authn.APIKey, h.authn.JWT}}
}

func (h *PaymentLinkHandler) createOperation() pipeline.Operation[service.CreateRequest, *model.PaymentLink] {
	return pipeline.Operation[service.CreateRequest, *model.PaymentLink]{
		Flow:          pipeline.FlowPaymentLinkCreate,
		Auth:          h.merchantAuth(),
		Permission:    auth.PermPaymentLinkWrite,
		Lock:          locking.Lock(ResourcePaymentLink, ParamPaymentID),
		SuccessStatus: http.StatusCreated,
		Decode: func(r pipeline.Request) (service.CreateRequest, error) {
			req := service.CreateRequest{PaymentID: r.Param(ParamPaymentID)}
			if len(r.Body) == 0 {
				return req, apperrors.InvalidInput("Request body is required")
			}
			if err := json.Unmarshal(r.Body, &req.Body); err != nil {
				return req, apperrors.InvalidInput("Invalid request body").WithCause(err)
			}
			return req, nil
		},
		Closure: pipeline.ClosureFunc[service.CreateRequest, *model.PaymentLink](
			func(ctx context.Context, _ *pipeline.State, ac auth.Context, req service.CreateRequest) (*model.PaymentLink, error) {
				return h.service.Create(ctx, ac, req)
			}),
	}
}

func (h *PaymentLinkHandler) retrieveOperation() pipeline.Operation[string, *model.PaymentLink] {
	return pipeline.Operation[string, *model.PaymentLink]{
		Flow: pipeline.FlowPaymentLinkRetrieve,
		SelectAuth: func(r pipeline.Request) auth.Strategy {
			if r.Credentials().ClientSecret != "" {
				return auth.ClientSecretCorrelation{Keys: h.authn.Publishable, Secrets: h.authn.Secrets, Now: h.state.Now}
			}
			return auth.SingleScheme{Validator: h.authn.APIKey}
		},
		Permission: auth.PermPaymentLinkRead,
		Lock:       locking.NotApplicable(),
		Decode:     pathParam(ParamPaymentLinkID),
		Closure: pipeline.ClosureFunc[string, *model.PaymentLink](
			func(ctx context.Context, _ *pipeline.State, ac auth.Context, id string) (*model.PaymentLink, error) {
				return h.service.Retrieve(ctx, ac, id)
			}),
	}
}

// initiateOperation is called server to server by the payment page; the merchant in the
// path is the trust boundary.
func (h *PaymentLinkHandler) initiateOperation() pipeline.Operation[string, *model.PaymentLink] {
	return pipeline.Operation[string, *model.PaymentLink]{
		Flow: pipeline.FlowPaymentLinkInitiate,
		Auth: auth.ContextDerived{
			PathParam: ParamMerchantID,
			Grants:    []auth.Permission{auth.PermPaymentLinkWrite},
		},
		AllowPathDerivedAuth: true,
		Permission:           auth.PermPaymentLinkWrite,
		Lock:                 locking.Lock(ResourcePaymentLink, ParamPaymentID),
		Decode:               pathParam(ParamPaymentID),
		Closure: pipeline.ClosureFunc[string, *model.PaymentLink](
			func(ctx context.Context, _ *pipeline.State, ac auth.Context, paymentID string) (*model.PaymentLink, error) {
				return h.service.Initiate(ctx, ac, paymentID)
			}),
	}
}

func (h *PaymentLinkHandler) completeOperation() pipeline.Operation[string, *model.PaymentLink] {
	return pipeline.Operation[string, *model.PaymentLink]{
		Flow:       pipeline.FlowPaymentLinkComplete,
		Auth:       auth.SingleScheme{Validator: h.authn.APIKey},
		Permission: auth.PermPaymentLinkWrite,
		Lock:       locking.Lock(ResourcePaymentLink, ParamPaymentID),
		Decode:     pathParam(ParamPaymentID),
		Closure: pipeline.ClosureFunc[string, *model.PaymentLink](
			func(ctx context.Context, _ *pipeline.State, ac auth.Context, paymentID string) (*model.PaymentLink, error) {
				return h.service.Complete(ctx, ac, paymentID)
			}),
	}
}

func (h *PaymentLinkHandler) listOperation() pipeline.Operation[model.PaymentLinkListConstraints, *model.PaymentLinkList] {
	return pipeline.Operation[model.PaymentLinkListConstraints, *model.PaymentLinkList]{
		Flow:       pipeline.FlowPaymentLinkList,
		Auth:       h.merchantAuth(),
		Permission: auth.PermPaymentLinkRead,
		Lock:       locking.NotApplicable(),
		Decode:     decodeListConstraints,
		Closure: pipeline.ClosureFunc[model.PaymentLinkListConstraints, *model.PaymentLinkList](
			func(ctx context.Context, _ *pipeline.State, ac auth.Context, c model.PaymentLinkListConstraints) (*model.PaymentLinkList, error) {
				return h.service.List(ctx, ac, c)
			}),
	}
}

func pathParam(name string) func(pipeline.Request) (string, error) {
	return func(r pipeline.Request) (string, error) {
		v := r.Param(name)
		if v == "" {
			return "", apperrors.InvalidInput(name + " is required")
		}
		return v, nil
	}
}

func decodeListConstraints(r pipeline.Request) (model.PaymentLinkListConstraints, error) {
	var (
		c   model.PaymentLinkListConstraints
		err error
	)
	if c.Limit, err = httpx.QueryInt(r.Query, "limit", config.DefaultPaginationLimit); err != nil {
		return c, err
	}
	times := []struct {
		key string
		dst **time.Time
	}{
		{"created", &c.Created},
		{"created.lt", &c.CreatedLT},
		{"created.gt", &c.CreatedGT},
		{"created.lte", &c.CreatedLTE},
		{"created.gte", &c.CreatedGTE},
	}
	for _, t := range times {
		if *t.dst, err = httpx.QueryTime(r.Query, t.key); err != nil {
			return c, err
		}
	}
	c.Status = model.PaymentLinkStatus(r.Query.Get("status"))
	return c, nil
}
