package repository

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"payrouter/internal/auth"
	linkerrors "payrouter/internal/paymentlinks/errors"
	"payrouter/pkg/model"

	"github.com/google/uuid"
)

type memoryPaymentLinkRepository struct {
	mu     sync.RWMutex
	links  map[string]*model.PaymentLink
	events []*model.PaymentLinkEvent
}

// NewMemoryPaymentLinkRepository keeps links in process memory. It follows the same
// ordering and expiry rules as the Mongo repository.
func NewMemoryPaymentLinkRepository() PaymentLinkRepository {
	return &memoryPaymentLinkRepository{links: make(map[string]*model.PaymentLink)}
}

func (r *memoryPaymentLinkRepository) EnsureIndexes(context.Context) error {
	return nil
}

func (r *memoryPaymentLinkRepository) Create(ctx context.Context, link *model.PaymentLink) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.links {
		if existing.MerchantID == link.MerchantID && existing.PaymentID == link.PaymentID {
			return linkerrors.ErrDuplicate
		}
	}
	stored := *link
	r.links[link.ID] = &stored
	r.record(&stored, "", link.Status, link.CreatedAt)
	return nil
}

func (r *memoryPaymentLinkRepository) FindByID(ctx context.Context, id string) (*model.PaymentLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	link, ok := r.links[id]
	if !ok {
		return nil, linkerrors.ErrNotFound
	}
	cp := *link
	return &cp, nil
}

func (r *memoryPaymentLinkRepository) FindByPaymentID(ctx context.Context, merchantID, paymentID string) (*model.PaymentLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, link := range r.links {
		if link.MerchantID == merchantID && link.PaymentID == paymentID {
			cp := *link
			return &cp, nil
		}
	}
	return nil, linkerrors.ErrNotFound
}

func (r *memoryPaymentLinkRepository) Transition(ctx context.Context, id string, from, to model.PaymentLinkStatus, at time.Time) (*model.PaymentLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.links[id]
	if !ok {
		return nil, linkerrors.ErrNotFound
	}
	if link.Status != from {
		return nil, linkerrors.ErrStateConflict
	}
	link.Status = to
	link.UpdatedAt = at
	r.record(link, from, to, at)

	cp := *link
	return &cp, nil
}

func (r *memoryPaymentLinkRepository) record(link *model.PaymentLink, from, to model.PaymentLinkStatus, at time.Time) {
	r.events = append(r.events, &model.PaymentLinkEvent{
		ID:            uuid.NewString(),
		PaymentLinkID: link.ID,
		MerchantID:    link.MerchantID,
		From:          from,
		To:            to,
		At:            at,
	})
}

func (r *memoryPaymentLinkRepository) List(ctx context.Context, merchantID string, c model.PaymentLinkListConstraints, now time.Time) ([]*model.PaymentLink, error) {
	matched, err := r.matching(ctx, merchantID, c, now)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(matched, func(a, b *model.PaymentLink) int {
		if d := b.CreatedAt.Compare(a.CreatedAt); d != 0 {
			return d
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if c.Limit > 0 && len(matched) > c.Limit {
		matched = matched[:c.Limit]
	}
	return matched, nil
}

func (r *memoryPaymentLinkRepository) Count(ctx context.Context, merchantID string, c model.PaymentLinkListConstraints, now time.Time) (int64, error) {
	matched, err := r.matching(ctx, merchantID, c, now)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

func (r *memoryPaymentLinkRepository) matching(ctx context.Context, merchantID string, c model.PaymentLinkListConstraints, now time.Time) ([]*model.PaymentLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*model.PaymentLink
	for _, link := range r.links {
		if link.MerchantID == merchantID && matches(link, c, now) {
			cp := *link
			matched = append(matched, &cp)
		}
	}
	return matched, nil
}

func matches(link *model.PaymentLink, c model.PaymentLinkListConstraints, now time.Time) bool {
	created := link.CreatedAt
	switch {
	case c.Created != nil && !created.Equal(*c.Created):
		return false
	case c.CreatedLT != nil && !created.Before(*c.CreatedLT):
		return false
	case c.CreatedGT != nil && !created.After(*c.CreatedGT):
		return false
	case c.CreatedLTE != nil && created.After(*c.CreatedLTE):
		return false
	case c.CreatedGTE != nil && created.Before(*c.CreatedGTE):
		return false
	}
	if c.Status == "" {
		return true
	}
	return link.View(now).Status == c.Status
}

func (r *memoryPaymentLinkRepository) Events(ctx context.Context, id string) ([]*model.PaymentLinkEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var events []*model.PaymentLinkEvent
	for _, ev := range r.events {
		if ev.PaymentLinkID == id {
			cp := *ev
			events = append(events, &cp)
		}
	}
	return events, nil
}

func (r *memoryPaymentLinkRepository) ClientSecret(ctx context.Context, resourceID string) (auth.ClientSecretRecord, error) {
	link, err := r.FindByID(ctx, resourceID)
	if errors.Is(err, linkerrors.ErrNotFound) {
		return auth.ClientSecretRecord{}, auth.ErrSecretNotFound
	}
	if err != nil {
		return auth.ClientSecretRecord{}, err
	}
	return auth.ClientSecretRecord{
		MerchantID: link.MerchantID,
		Secret:     link.ClientSecret,
		ExpiresAt:  link.ExpiresAt,
	}, nil
}
