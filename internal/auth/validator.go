package auth

import (
	"context"
	"errors"
	"fmt"
	"payrouter/pkg/model"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	SchemeAPIKey         = "api_key"
	SchemePublishableKey = "publishable_key"
	SchemeJWT            = "jwt"
	SchemePathDerived    = "path_derived"
	SchemeClientSecret   = "client_secret"
)

// Validator checks one kind of credential against its store.
type Validator interface {
	Scheme() string
	Validate(ctx context.Context, creds Credentials) (Context, error)
}

type APIKeyValidator struct {
	keys KeyStore
	now  func() time.Time
}

func NewAPIKeyValidator(keys KeyStore) *APIKeyValidator {
	return &APIKeyValidator{keys: keys, now: time.Now}
}

func (v *APIKeyValidator) Scheme() string { return SchemeAPIKey }

func (v *APIKeyValidator) Validate(ctx context.Context, creds Credentials) (Context, error) {
	if creds.APIKey == "" {
		return Context{}, fail(KindMissing, SchemeAPIKey, nil)
	}
	keyID, secret, ok := splitSecretKey(creds.APIKey)
	if !ok {
		return Context{}, fail(KindMalformed, SchemeAPIKey, nil)
	}

	key, err := lookupKey(ctx, v.keys, SchemeAPIKey, keyID)
	if err != nil {
		return Context{}, err
	}
	if key.Kind != model.APIKeyKindSecret {
		return Context{}, fail(KindUnknownKey, SchemeAPIKey, errors.New("not a secret key"))
	}
	if key.Expired(v.now()) {
		return Context{}, fail(KindExpired, SchemeAPIKey, nil)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(key.Hash), []byte(secret)); err != nil {
		return Context{}, fail(KindSignatureMismatch, SchemeAPIKey, err)
	}

	return Context{
		MerchantID:  key.MerchantID,
		Permissions: parsePermissions(key.Permissions),
		Class:       ClassSecretKey,
		KeyID:       key.KeyID,
	}, nil
}

type PublishableKeyValidator struct {
	keys KeyStore
	now  func() time.Time
}

func NewPublishableKeyValidator(keys KeyStore) *PublishableKeyValidator {
	return &PublishableKeyValidator{keys: keys, now: time.Now}
}

func (v *PublishableKeyValidator) Scheme() string { return SchemePublishableKey }

func (v *PublishableKeyValidator) Validate(ctx context.Context, creds Credentials) (Context, error) {
	if creds.APIKey == "" {
		return Context{}, fail(KindMissing, SchemePublishableKey, nil)
	}
	if !strings.HasPrefix(creds.APIKey, publishableKeyPrefix) || len(creds.APIKey) == len(publishableKeyPrefix) {
		return Context{}, fail(KindMalformed, SchemePublishableKey, nil)
	}

	key, err := lookupKey(ctx, v.keys, SchemePublishableKey, creds.APIKey)
	if err != nil {
		return Context{}, err
	}
	if key.Kind != model.APIKeyKindPublishable {
		return Context{}, fail(KindUnknownKey, SchemePublishableKey, errors.New("not a publishable key"))
	}
	if key.Expired(v.now()) {
		return Context{}, fail(KindExpired, SchemePublishableKey, nil)
	}

	return Context{
		MerchantID:  key.MerchantID,
		Permissions: []Permission{PermPaymentLinkRead},
		Class:       ClassClientSecret,
		KeyID:       key.KeyID,
	}, nil
}

func lookupKey(ctx context.Context, keys KeyStore, scheme, keyID string) (*model.APIKey, error) {
	key, err := keys.FindKey(ctx, keyID)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, fail(KindUnknownKey, scheme, nil)
	}
	if err != nil {
		return nil, fail(KindStoreUnavailable, scheme, err)
	}
	if key.RevokedAt != nil {
		return nil, fail(KindUnknownKey, scheme, errors.New("key revoked"))
	}
	return key, nil
}

type Claims struct {
	MerchantID  string   `json:"merchant_id"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

type JWTValidator struct {
	secret []byte
	issuer string
}

func NewJWTValidator(secret, issuer string) *JWTValidator {
	return &JWTValidator{secret: []byte(secret), issuer: issuer}
}

func (v *JWTValidator) Scheme() string { return SchemeJWT }

func (v *JWTValidator) Validate(_ context.Context, creds Credentials) (Context, error) {
	if creds.BearerToken == "" {
		return Context{}, fail(KindMissing, SchemeJWT, nil)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(creds.BearerToken, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return Context{}, fail(KindExpired, SchemeJWT, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return Context{}, fail(KindSignatureMismatch, SchemeJWT, err)
	default:
		return Context{}, fail(KindMalformed, SchemeJWT, err)
	}

	if claims.MerchantID == "" {
		return Context{}, fail(KindMalformed, SchemeJWT, errors.New("merchant_id claim missing"))
	}

	return Context{
		MerchantID:  claims.MerchantID,
		Permissions: parsePermissions(claims.Permissions),
		Class:       ClassJWT,
		KeyID:       claims.Subject,
	}, nil
}

// IssueToken signs a merchant token. Used by tooling and tests.
func (v *JWTValidator) IssueToken(merchantID string, permissions []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		MerchantID:  merchantID,
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   merchantID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
