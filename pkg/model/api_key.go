package model

import "time"

const (
	APIKeyKindSecret      = "secret"
	APIKeyKindPublishable = "publishable"
)

// APIKey is a merchant credential. Secret keys store only a bcrypt hash of the secret
// part; publishable keys are looked up by their full value.
type APIKey struct {
	KeyID       string     `bson:"_id" json:"key_id" validate:"required"`
	MerchantID  string     `bson:"merchant_id" json:"merchant_id" validate:"required"`
	Kind        string     `bson:"kind" json:"kind" validate:"required,oneof=secret publishable"`
	Hash        string     `bson:"hash,omitempty" json:"-"`
	Permissions []string   `bson:"permissions,omitempty" json:"permissions,omitempty"`
	ExpiresAt   *time.Time `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
	RevokedAt   *time.Time `bson:"revoked_at,omitempty" json:"revoked_at,omitempty"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
}

func (k *APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && !now.Before(*k.ExpiresAt)
}
