package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"payrouter/pkg/model"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	secretKeyPrefix      = "sk_"
	publishableKeyPrefix = "pk_"
	clientSecretMarker   = "_secret_"
)

// KeyStore is the external API key store.
type KeyStore interface {
	// FindKey returns ErrKeyNotFound for unknown ids; any other error means the store failed.
	FindKey(ctx context.Context, keyID string) (*model.APIKey, error)
}

type ClientSecretRecord struct {
	MerchantID string
	Secret     string
	ExpiresAt  time.Time
}

// SecretStore yields the client secret minted for a resource.
type SecretStore interface {
	// ClientSecret returns ErrSecretNotFound for unknown resources.
	ClientSecret(ctx context.Context, resourceID string) (ClientSecretRecord, error)
}

// NewSecretKey mints a secret API key. The plaintext is returned once and only its
// hash is kept in the record.
func NewSecretKey(merchantID string, permissions []string, now time.Time) (string, *model.APIKey, error) {
	keyID := strings.ReplaceAll(uuid.NewString(), "-", "")
	secret, err := randomHex(24)
	if err != nil {
		return "", nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("auth: hash api key: %w", err)
	}
	return secretKeyPrefix + keyID + "_" + secret, &model.APIKey{
		KeyID:       keyID,
		MerchantID:  merchantID,
		Kind:        model.APIKeyKindSecret,
		Hash:        string(hash),
		Permissions: permissions,
		CreatedAt:   now,
	}, nil
}

func NewPublishableKey(merchantID string, now time.Time) *model.APIKey {
	return &model.APIKey{
		KeyID:       publishableKeyPrefix + strings.ReplaceAll(uuid.NewString(), "-", ""),
		MerchantID:  merchantID,
		Kind:        model.APIKeyKindPublishable,
		Permissions: []string{string(PermPaymentLinkRead)},
		CreatedAt:   now,
	}
}

// MintClientSecret binds a fresh secret to resourceID. The id is recoverable from the
// secret with ParseClientSecret.
func MintClientSecret(resourceID string) (string, error) {
	suffix, err := randomHex(16)
	if err != nil {
		return "", err
	}
	return resourceID + clientSecretMarker + suffix, nil
}

func ParseClientSecret(secret string) (string, bool) {
	i := strings.LastIndex(secret, clientSecretMarker)
	if i <= 0 || i+len(clientSecretMarker) == len(secret) {
		return "", false
	}
	return secret[:i], true
}

func splitSecretKey(raw string) (keyID, secret string, ok bool) {
	rest, found := strings.CutPrefix(raw, secretKeyPrefix)
	if !found {
		return "", "", false
	}
	keyID, secret, ok = strings.Cut(rest, "_")
	if !ok || keyID == "" || secret == "" {
		return "", "", false
	}
	return keyID, secret, true
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("auth: read random: %w", err)
	}
	return hex.EncodeToString(b), nil
}
