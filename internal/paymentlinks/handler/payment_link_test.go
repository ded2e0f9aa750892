package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"payrouter/internal/auth"
	keyrepo "payrouter/internal/auth/repository"
	"payrouter/internal/locking"
	"payrouter/internal/locking/store"
	"payrouter/internal/paymentlinks/repository"
	"payrouter/internal/paymentlinks/service"
	"payrouter/internal/paymentlinks/validator"
	"payrouter/internal/pipeline"
	apperrors "payrouter/pkg/errors"
	"payrouter/pkg/logger"
	"payrouter/pkg/model"

	"github.com/julienschmidt/httprouter"
)

const jwtSecret = "test-secret-test-secret-test-secret!"

// ────────────────────────────────────────────────
// Fixture
// ────────────────────────────────────────────────

type recordingSink struct {
	mu     sync.Mutex
	events []pipeline.Event
}

func (r *recordingSink) Emit(_ context.Context, ev pipeline.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// gatedService can hold the next Initiate inside the closure, and so inside the lock,
// until the test lets it proceed.
type gatedService struct {
	service.PaymentLinkService
	mu      sync.Mutex
	entered chan struct{}
	proceed chan struct{}
}

func (g *gatedService) arm() (entered, proceed chan struct{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entered, g.proceed = make(chan struct{}), make(chan struct{})
	return g.entered, g.proceed
}

func (g *gatedService) Initiate(ctx context.Context, ac auth.Context, paymentID string) (*model.PaymentLink, error) {
	g.mu.Lock()
	entered, proceed := g.entered, g.proceed
	g.entered, g.proceed = nil, nil
	g.mu.Unlock()

	if entered != nil {
		close(entered)
		<-proceed
	}
	return g.PaymentLinkService.Initiate(ctx, ac, paymentID)
}

type fixture struct {
	router         *httprouter.Router
	state          *pipeline.State
	sink           *recordingSink
	secretKey      string
	publishableKey string
	jwt            *auth.JWTValidator
	gate           *gatedService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.Discard()
	now := time.Now()

	rawKey, secretRecord, err := auth.NewSecretKey("merchant_1", nil, now)
	if err != nil {
		t.Fatalf("mint key: %v", err)
	}
	publishable := auth.NewPublishableKey("merchant_1", now)
	keys := keyrepo.NewMemoryAPIKeyRepository(secretRecord, publishable)

	links := repository.NewMemoryPaymentLinkRepository()
	svc := service.NewPaymentLinkService(links, validator.NewPaymentLinkValidator(log), log, service.Options{
		DefaultTTL: 15 * time.Minute,
		BaseURL:    "https://pay.example.com/link",
	})
	gate := &gatedService{PaymentLinkService: svc}

	sink := &recordingSink{}
	locks := locking.NewManager(store.NewMemoryStore(), log, locking.Options{TTL: time.Minute})
	state := pipeline.NewState(nil, log, locks, sink)

	jwtValidator := auth.NewJWTValidator(jwtSecret, "payrouter")
	h := NewPaymentLinkHandler(state, gate, Authenticators{
		APIKey:      auth.NewAPIKeyValidator(keys),
		Publishable: auth.NewPublishableKeyValidator(keys),
		JWT:         jwtValidator,
		Secrets:     links,
	})
	router := httprouter.New()
	h.RegisterRoutes(router)

	return &fixture{
		router:         router,
		state:          state,
		sink:           sink,
		secretKey:      rawKey,
		publishableKey: publishable.KeyID,
		jwt:            jwtValidator,
		gate:           gate,
	}
}

type envelope struct {
	Data  json.RawMessage          `json:"data"`
	Error *apperrors.ErrorResponse `json:"error"`
}

func (f *fixture) do(t *testing.T, method, path, body string, headers map[string]string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, err, rec.Body.String())
		}
	}
	return rec.Code, env
}

func (f *fixture) apiKey() map[string]string {
	return map[string]string{auth.HeaderAPIKey: f.secretKey}
}

func (f *fixture) createLink(t *testing.T, paymentID string) *model.PaymentLink {
	t.Helper()
	code, env := f.do(t, http.MethodPost, "/payments/"+paymentID+"/payment_link", `{"amount":2500,"currency":"EUR"}`, f.apiKey())
	if code != http.StatusCreated {
		t.Fatalf("create: %d %+v", code, env.Error)
	}
	var link model.PaymentLink
	if err := json.Unmarshal(env.Data, &link); err != nil {
		t.Fatalf("decode link: %v", err)
	}
	return &link
}

func decodeLink(t *testing.T, env envelope) *model.PaymentLink {
	t.Helper()
	var link model.PaymentLink
	if err := json.Unmarshal(env.Data, &link); err != nil {
		t.Fatalf("decode link: %v", err)
	}
	return &link
}

// ────────────────────────────────────────────────
// End to end
// ────────────────────────────────────────────────

func TestConcurrentInitiate_OneWinnerThenRetrieve(t *testing.T) {
	f := newFixture(t)
	link := f.createLink(t, "pay_1")

	entered, proceed := f.gate.arm()

	type result struct {
		code int
		env  envelope
	}
	first := make(chan result, 1)
	go func() {
		code, env := f.do(t, http.MethodPost, "/merchants/merchant_1/payments/pay_1/payment_link/initiate", "", nil)
		first <- result{code, env}
	}()

	<-entered
	code, env := f.do(t, http.MethodPost, "/merchants/merchant_1/payments/pay_1/payment_link/initiate", "", nil)
	close(proceed)
	winner := <-first

	if winner.code != http.StatusOK || decodeLink(t, winner.env).Status != model.PaymentLinkInitiated {
		t.Fatalf("first initiate should win: %d %+v", winner.code, winner.env.Error)
	}
	if code != http.StatusConflict || env.Error.Code != apperrors.CodeResourceLocked || !env.Error.Retryable {
		t.Fatalf("second initiate should conflict: %d %+v", code, env.Error)
	}

	code, env = f.do(t, http.MethodGet, "/payment_links/"+link.ID, "", f.apiKey())
	if code != http.StatusOK || decodeLink(t, env).Status != model.PaymentLinkInitiated {
		t.Fatalf("retrieve after initiate: %d %+v", code, env.Error)
	}

	held, _ := f.state.Locks.IsHeld(context.Background(), locking.Key{MerchantID: "merchant_1", ResourceType: ResourcePaymentLink, ResourceID: "pay_1"})
	if held {
		t.Fatal("lock leaked after initiate")
	}
}

func TestRetrieve_ClientSecretCorrelation(t *testing.T) {
	f := newFixture(t)
	r1 := f.createLink(t, "pay_1")
	r2 := f.createLink(t, "pay_2")
	pk := map[string]string{auth.HeaderAPIKey: f.publishableKey}

	code, env := f.do(t, http.MethodGet, "/payment_links/"+r1.ID+"?client_secret="+r1.ClientSecret, "", pk)
	if code != http.StatusOK || decodeLink(t, env).ID != r1.ID {
		t.Fatalf("retrieve with own secret: %d %+v", code, env.Error)
	}

	code, env = f.do(t, http.MethodGet, "/payment_links/"+r2.ID+"?client_secret="+r1.ClientSecret, "", pk)
	if code != http.StatusForbidden || env.Error.Code != apperrors.CodeInsufficientScope {
		t.Fatalf("secret for R must not open R': %d %+v", code, env.Error)
	}

	code, env = f.do(t, http.MethodGet, "/payment_links/"+r1.ID+"?client_secret="+r1.ID+"_secret_deadbeef", "", pk)
	if code != http.StatusUnauthorized || env.Error.Code != apperrors.CodeSignatureMismatch {
		t.Fatalf("wrong secret: %d %+v", code, env.Error)
	}
}

func TestList_JWTFallbackAndOrdering(t *testing.T) {
	f := newFixture(t)
	for _, p := range []string{"pay_a", "pay_b", "pay_c"} {
		f.createLink(t, p)
	}

	token, err := f.jwt.IssueToken("merchant_1", nil, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	code, env := f.do(t, http.MethodGet, "/payment_links?limit=2", "", map[string]string{"Authorization": "Bearer " + token})
	if code != http.StatusOK {
		t.Fatalf("list: %d %+v", code, env.Error)
	}
	var list model.PaymentLinkList
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatal(err)
	}
	if list.Count != 2 || list.TotalCount != 3 {
		t.Fatalf("unexpected counts: %+v", list)
	}
	if list.Data[0].CreatedAt.Before(list.Data[1].CreatedAt) {
		t.Errorf("list not ordered newest first")
	}

	code, env = f.do(t, http.MethodGet, "/payment_links?limit=500", "", f.apiKey())
	if code != http.StatusUnprocessableEntity || env.Error.Code != apperrors.CodeValidation {
		t.Fatalf("limit above max: %d %+v", code, env.Error)
	}
	code, _ = f.do(t, http.MethodGet, "/payment_links?created.gt=yesterday", "", f.apiKey())
	if code != http.StatusBadRequest {
		t.Fatalf("bad time constraint: %d", code)
	}
}

func TestOrderedFallback_SurfacesLastFailure(t *testing.T) {
	f := newFixture(t)

	// the api key is malformed and no token is sent: the JWT failure is reported
	code, env := f.do(t, http.MethodGet, "/payment_links", "", map[string]string{auth.HeaderAPIKey: "garbage"})
	if code != http.StatusUnauthorized || env.Error.Code != apperrors.CodeMissingCredential {
		t.Fatalf("expected JWT missing credential, got %d %+v", code, env.Error)
	}

	code, env = f.do(t, http.MethodGet, "/payment_links", "", map[string]string{"Authorization": "Bearer not.a.jwt"})
	if code != http.StatusUnauthorized || env.Error.Code != apperrors.CodeMalformedCredential {
		t.Fatalf("expected malformed token, got %d %+v", code, env.Error)
	}
}

func TestCompleteFlow(t *testing.T) {
	f := newFixture(t)
	link := f.createLink(t, "pay_1")

	code, env := f.do(t, http.MethodPost, "/payments/pay_1/payment_link/complete", "", f.apiKey())
	if code != http.StatusConflict || env.Error.Code != "PAYMENT_LINK_INVALID_STATE" || env.Error.Retryable {
		t.Fatalf("complete before initiate: %d %+v", code, env.Error)
	}

	if code, env = f.do(t, http.MethodPost, "/merchants/merchant_1/payments/pay_1/payment_link/initiate", "", nil); code != http.StatusOK {
		t.Fatalf("initiate: %d %+v", code, env.Error)
	}
	if code, env = f.do(t, http.MethodPost, "/payments/pay_1/payment_link/complete", "", f.apiKey()); code != http.StatusOK {
		t.Fatalf("complete: %d %+v", code, env.Error)
	}

	_, first := f.do(t, http.MethodGet, "/payment_links/"+link.ID, "", f.apiKey())
	_, second := f.do(t, http.MethodGet, "/payment_links/"+link.ID, "", f.apiKey())
	if string(first.Data) != string(second.Data) || decodeLink(t, first).Status != model.PaymentLinkCompleted {
		t.Fatalf("retrieve of completed link is not stable")
	}
}

func TestCreate_RequiresCredentialAndBody(t *testing.T) {
	f := newFixture(t)

	code, env := f.do(t, http.MethodPost, "/payments/pay_1/payment_link", `{"amount":1,"currency":"USD"}`, nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d %+v", code, env.Error)
	}
	code, _ = f.do(t, http.MethodPost, "/payments/pay_1/payment_link", `{"amount":`, f.apiKey())
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for broken json, got %d", code)
	}
	code, _ = f.do(t, http.MethodPost, "/payments/pay_1/payment_link", `{"amount":1,"currency":"XXXX"}`, f.apiKey())
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for bad currency, got %d", code)
	}
	f.createLink(t, "pay_1")
	code, env = f.do(t, http.MethodPost, "/payments/pay_1/payment_link", `{"amount":1,"currency":"USD"}`, f.apiKey())
	if code != http.StatusConflict || env.Error.Code != "PAYMENT_LINK_EXISTS" {
		t.Fatalf("expected duplicate, got %d %+v", code, env.Error)
	}
}

func TestEveryRequestEmitsOneEvent(t *testing.T) {
	f := newFixture(t)
	f.createLink(t, "pay_1")
	f.do(t, http.MethodGet, "/payment_links", "", nil)
	f.do(t, http.MethodPost, "/merchants/merchant_1/payments/pay_1/payment_link/initiate", "", nil)

	f.sink.mu.Lock()
	defer f.sink.mu.Unlock()
	if len(f.sink.events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(f.sink.events))
	}
	wantFlows := []pipeline.Flow{pipeline.FlowPaymentLinkCreate, pipeline.FlowPaymentLinkList, pipeline.FlowPaymentLinkInitiate}
	wantOutcomes := []apperrors.Class{apperrors.ClassSuccess, apperrors.ClassAuthentication, apperrors.ClassSuccess}
	for i, ev := range f.sink.events {
		if ev.Flow != wantFlows[i] || ev.Outcome != wantOutcomes[i] {
			t.Errorf("event %d: %s/%s", i, ev.FlowName, ev.Outcome)
		}
	}
}

func TestHealthHandler(t *testing.T) {
	log := logger.Discard()
	locks := locking.NewManager(store.NewMemoryStore(), log, locking.Options{})
	router := httprouter.New()
	NewHealthHandler(nil, locks, log).RegisterRoutes(router)

	for _, path := range []string{"/health", "/ready"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: %d", path, rec.Code)
		}
	}
}
