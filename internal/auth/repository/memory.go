package repository

import (
	"context"
	"payrouter/internal/auth"
	"payrouter/pkg/model"
	"sort"
	"sync"
	"time"
)

type memoryAPIKeyRepository struct {
	mu   sync.RWMutex
	keys map[string]model.APIKey
}

// NewMemoryAPIKeyRepository keeps keys in process. Used for local runs and tests.
func NewMemoryAPIKeyRepository(keys ...*model.APIKey) APIKeyRepository {
	r := &memoryAPIKeyRepository{keys: make(map[string]model.APIKey)}
	for _, k := range keys {
		r.keys[k.KeyID] = *k
	}
	return r
}

func (r *memoryAPIKeyRepository) FindKey(_ context.Context, keyID string) (*model.APIKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	k, ok := r.keys[keyID]
	if !ok {
		return nil, auth.ErrKeyNotFound
	}
	return &k, nil
}

func (r *memoryAPIKeyRepository) Create(_ context.Context, key *model.APIKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.keys[key.KeyID] = *key
	return nil
}

func (r *memoryAPIKeyRepository) Revoke(_ context.Context, keyID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k, ok := r.keys[keyID]
	if !ok || k.RevokedAt != nil {
		return auth.ErrKeyNotFound
	}
	k.RevokedAt = &at
	r.keys[keyID] = k
	return nil
}

func (r *memoryAPIKeyRepository) ListByMerchant(_ context.Context, merchantID string) ([]*model.APIKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*model.APIKey
	for _, k := range r.keys {
		if k.MerchantID == merchantID {
			k := k
			out = append(out, &k)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].KeyID < out[j].KeyID
	})
	return out, nil
}
