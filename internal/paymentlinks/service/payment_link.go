package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"payrouter/internal/auth"
	linkerrors "payrouter/internal/paymentlinks/errors"
	"payrouter/internal/paymentlinks/repository"
	"payrouter/internal/paymentlinks/validator"
	mongotx "payrouter/pkg/db/mongo"
	apperrors "payrouter/pkg/errors"
	"payrouter/pkg/logger"
	"payrouter/pkg/model"
	"payrouter/pkg/sanitizer"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type CreateRequest struct {
	PaymentID string
	Body      model.PaymentLinkCreate
}

// PaymentLinkService holds the business logic run by the pipeline for each payment link
// operation. The caller is already authenticated and, for mutations, holds the lock.
type PaymentLinkService interface {
	Create(ctx context.Context, ac auth.Context, req CreateRequest) (*model.PaymentLink, error)
	Retrieve(ctx context.Context, ac auth.Context, id string) (*model.PaymentLink, error)
	Initiate(ctx context.Context, ac auth.Context, paymentID string) (*model.PaymentLink, error)
	Complete(ctx context.Context, ac auth.Context, paymentID string) (*model.PaymentLink, error)
	List(ctx context.Context, ac auth.Context, c model.PaymentLinkListConstraints) (*model.PaymentLinkList, error)
}

type Options struct {
	DefaultTTL time.Duration
	BaseURL    string
	Now        func() time.Time
}

type paymentLinkService struct {
	repo      repository.PaymentLinkRepository
	validator *validator.PaymentLinkValidator
	log       *logger.Logger
	opts      Options
}

func NewPaymentLinkService(
	repo repository.PaymentLinkRepository,
	validator *validator.PaymentLinkValidator,
	log *logger.Logger,
	opts Options,
) PaymentLinkService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.BaseURL = sanitizer.NormalizeBaseURL(opts.BaseURL)
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = 15 * time.Minute
	}
	return &paymentLinkService{
		repo:      repo,
		validator: validator,
		log:       log,
		opts:      opts,
	}
}

func (s *paymentLinkService) now() time.Time {
	return s.opts.Now().UTC().Truncate(time.Millisecond)
}

func (s *paymentLinkService) Create(ctx context.Context, ac auth.Context, req CreateRequest) (*model.PaymentLink, error) {
	if req.PaymentID == "" {
		return nil, apperrors.InvalidInput("Payment ID cannot be empty")
	}
	if err := ac.Require(auth.PermPaymentLinkWrite, ""); err != nil {
		return nil, err
	}
	req.Body.Currency = sanitizer.NormalizeCurrency(req.Body.Currency)
	req.Body.Description = sanitizer.NormalizeDescription(req.Body.Description)
	if err := s.validator.ValidateCreate(&req.Body); err != nil {
		s.log.Warn("Payment link validation failed", "payment_id", req.PaymentID, "error", err)
		return nil, validationError(err)
	}

	id := "plink_" + uuid.New().String()
	secret, err := auth.MintClientSecret(id)
	if err != nil {
		return nil, apperrors.Internal("Failed to create payment link", err)
	}

	ttl := s.opts.DefaultTTL
	if req.Body.ExpiresIn > 0 {
		ttl = time.Duration(req.Body.ExpiresIn) * time.Second
	}

	now := s.now()
	link := &model.PaymentLink{
		ID:           id,
		MerchantID:   ac.MerchantID,
		PaymentID:    req.PaymentID,
		Amount:       req.Body.Amount,
		Currency:     req.Body.Currency,
		Description:  req.Body.Description,
		LinkToPay:    s.linkToPay(ac.MerchantID, req.PaymentID),
		ClientSecret: secret,
		Status:       model.PaymentLinkCreated,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, link); err != nil {
		if errors.Is(err, linkerrors.ErrDuplicate) {
			return nil, linkerrors.Exists(req.PaymentID)
		}
		return nil, s.storeError("create", err)
	}

	s.log.Info("Payment link created",
		"id", link.ID,
		"merchant_id", link.MerchantID,
		"payment_id", link.PaymentID,
		"expires_at", link.ExpiresAt,
	)
	return link, nil
}

func (s *paymentLinkService) linkToPay(merchantID, paymentID string) string {
	return s.opts.BaseURL + "/" + url.PathEscape(merchantID) + "/" + url.PathEscape(paymentID)
}

// Retrieve never writes: a link past its expiry is reported as expired.
func (s *paymentLinkService) Retrieve(ctx context.Context, ac auth.Context, id string) (*model.PaymentLink, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Payment link ID cannot be empty")
	}
	if err := ac.Require(auth.PermPaymentLinkRead, id); err != nil {
		return nil, err
	}

	link, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(id, err)
	}
	if link.MerchantID != ac.MerchantID {
		return nil, apperrors.NotFoundWithID("Payment link", id)
	}
	return link.View(s.now()), nil
}

func (s *paymentLinkService) Initiate(ctx context.Context, ac auth.Context, paymentID string) (*model.PaymentLink, error) {
	link, err := s.findForPayment(ctx, ac, paymentID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	switch {
	case link.ExpiredAt(now):
		if _, err := s.transition(ctx, link, model.PaymentLinkExpired, now); err != nil {
			return nil, err
		}
		s.log.Info("Payment link expired on initiate", "id", link.ID, "merchant_id", link.MerchantID)
		return nil, linkerrors.Expired(link.ID)
	case link.Status != model.PaymentLinkCreated:
		return nil, linkerrors.InvalidState("initiated", link.Status)
	}

	updated, err := s.transition(ctx, link, model.PaymentLinkInitiated, now)
	if err != nil {
		return nil, err
	}
	s.log.Info("Payment link initiated", "id", updated.ID, "merchant_id", updated.MerchantID, "payment_id", paymentID)
	return updated.View(now), nil
}

func (s *paymentLinkService) Complete(ctx context.Context, ac auth.Context, paymentID string) (*model.PaymentLink, error) {
	link, err := s.findForPayment(ctx, ac, paymentID)
	if err != nil {
		return nil, err
	}
	if link.Status != model.PaymentLinkInitiated {
		return nil, linkerrors.InvalidState("completed", link.View(s.now()).Status)
	}

	now := s.now()
	updated, err := s.transition(ctx, link, model.PaymentLinkCompleted, now)
	if err != nil {
		return nil, err
	}
	s.log.Info("Payment link completed", "id", updated.ID, "merchant_id", updated.MerchantID, "payment_id", paymentID)
	return updated.View(now), nil
}

func (s *paymentLinkService) findForPayment(ctx context.Context, ac auth.Context, paymentID string) (*model.PaymentLink, error) {
	if paymentID == "" {
		return nil, apperrors.InvalidInput("Payment ID cannot be empty")
	}
	if !ac.Allows(auth.PermPaymentLinkWrite) {
		return nil, &auth.Error{Kind: auth.KindInsufficientScope, Scheme: string(ac.Class)}
	}

	link, err := s.repo.FindByPaymentID(ctx, ac.MerchantID, paymentID)
	if err != nil {
		return nil, s.lookupError(paymentID, err)
	}
	if err := ac.Authorize(link.ID); err != nil {
		return nil, err
	}
	return link, nil
}

func (s *paymentLinkService) transition(ctx context.Context, link *model.PaymentLink, to model.PaymentLinkStatus, at time.Time) (*model.PaymentLink, error) {
	updated, err := s.repo.Transition(ctx, link.ID, link.Status, to, at)
	if err != nil {
		if errors.Is(err, linkerrors.ErrStateConflict) {
			// only possible when the lock TTL elapsed mid-request
			s.log.Warn("Payment link changed during transition", "id", link.ID, "from", link.Status, "to", to)
			return nil, linkerrors.InvalidState(string(to), link.Status)
		}
		return nil, s.lookupError(link.ID, err)
	}
	return updated, nil
}

func (s *paymentLinkService) List(ctx context.Context, ac auth.Context, c model.PaymentLinkListConstraints) (*model.PaymentLinkList, error) {
	if err := ac.Require(auth.PermPaymentLinkRead, ""); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateList(&c); err != nil {
		return nil, validationError(err)
	}

	now := s.now()
	var (
		links []*model.PaymentLink
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		total, err = s.repo.Count(gctx, ac.MerchantID, c, now)
		if err != nil {
			return fmt.Errorf("count: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		links, err = s.repo.List(gctx, ac.MerchantID, c, now)
		if err != nil {
			return fmt.Errorf("find: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, s.storeError("list", err)
	}

	data := make([]*model.PaymentLink, 0, len(links))
	for _, link := range links {
		data = append(data, link.View(now))
	}
	return &model.PaymentLinkList{Data: data, Count: len(data), TotalCount: total}, nil
}

func (s *paymentLinkService) lookupError(id string, err error) error {
	if errors.Is(err, linkerrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Payment link", id)
	}
	return s.storeError("lookup", err)
}

func (s *paymentLinkService) storeError(op string, err error) error {
	if apperrors.IsAppError(err) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	s.log.Error("Payment link store failed", "operation", op, "error", err)
	if mongotx.IsUnavailable(err) {
		return apperrors.Unavailable("Payment link store").WithCause(err)
	}
	return apperrors.Internal("Failed to "+op+" payment link", err)
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation("Invalid payment link request", verrs.Details()).WithCause(err)
	}
	return apperrors.Validation("Invalid payment link request", map[string]any{"error": err.Error()})
}
