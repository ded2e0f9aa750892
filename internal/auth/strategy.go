package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"regexp"
	"time"
)

// Strategy is a closed set: SingleScheme, OrderedFallback, ContextDerived and
// ClientSecretCorrelation. Operations declare one statically.
type Strategy interface {
	strategy()
	Name() string
}

// SingleScheme tries exactly one validator; its failure is final.
type SingleScheme struct {
	Validator Validator
}

// OrderedFallback tries each validator in order. The first success wins; when all fail
// the last validator's failure is returned.
type OrderedFallback struct {
	Validators []Validator
}

// ContextDerived takes the merchant from a path parameter without checking any
// credential. Only operations that explicitly allow it may use it.
type ContextDerived struct {
	PathParam string
	Grants    []Permission
}

// ClientSecretCorrelation checks a publishable key plus the client secret minted for one
// resource. The resulting Context is scoped to that resource.
type ClientSecretCorrelation struct {
	Keys    Validator
	Secrets SecretStore
	Now     func() time.Time
}

func (SingleScheme) strategy()            {}
func (OrderedFallback) strategy()         {}
func (ContextDerived) strategy()          {}
func (ClientSecretCorrelation) strategy() {}

func (s SingleScheme) Name() string {
	if s.Validator == nil {
		return "single"
	}
	return s.Validator.Scheme()
}

func (s OrderedFallback) Name() string {
	name := ""
	for i, v := range s.Validators {
		if i > 0 {
			name += "|"
		}
		name += v.Scheme()
	}
	return name
}

func (ContextDerived) Name() string          { return SchemePathDerived }
func (ClientSecretCorrelation) Name() string { return SchemeClientSecret }

var errNoValidators = errors.New("no validators configured")

var merchantIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Resolve runs strategy against creds.
func Resolve(ctx context.Context, strategy Strategy, creds Credentials) (Context, error) {
	switch s := strategy.(type) {
	case SingleScheme:
		if s.Validator == nil {
			return Context{}, fail(KindMissing, "single", errNoValidators)
		}
		return s.Validator.Validate(ctx, creds)

	case OrderedFallback:
		if len(s.Validators) == 0 {
			return Context{}, fail(KindMissing, "fallback", errNoValidators)
		}
		var lastErr error
		for _, v := range s.Validators {
			ac, err := v.Validate(ctx, creds)
			if err == nil {
				return ac, nil
			}
			lastErr = err
		}
		return Context{}, lastErr

	case ContextDerived:
		merchantID := creds.PathParams[s.PathParam]
		if merchantID == "" {
			return Context{}, fail(KindMissing, SchemePathDerived, nil)
		}
		if !merchantIDPattern.MatchString(merchantID) {
			return Context{}, fail(KindMalformed, SchemePathDerived, nil)
		}
		return Context{
			MerchantID:  merchantID,
			Permissions: append([]Permission{}, s.Grants...),
			Class:       ClassPathDerived,
		}, nil

	case ClientSecretCorrelation:
		return resolveClientSecret(ctx, s, creds)

	default:
		return Context{}, fail(KindMalformed, "unknown", errors.New("unsupported strategy"))
	}
}

func resolveClientSecret(ctx context.Context, s ClientSecretCorrelation, creds Credentials) (Context, error) {
	key, err := s.Keys.Validate(ctx, creds)
	if err != nil {
		return Context{}, err
	}

	if creds.ClientSecret == "" {
		return Context{}, fail(KindMissing, SchemeClientSecret, nil)
	}
	resourceID, ok := ParseClientSecret(creds.ClientSecret)
	if !ok {
		return Context{}, fail(KindMalformed, SchemeClientSecret, nil)
	}

	rec, err := s.Secrets.ClientSecret(ctx, resourceID)
	if errors.Is(err, ErrSecretNotFound) {
		return Context{}, fail(KindUnknownKey, SchemeClientSecret, nil)
	}
	if err != nil {
		return Context{}, fail(KindStoreUnavailable, SchemeClientSecret, err)
	}
	// a secret from another merchant is reported like an unknown one
	if rec.MerchantID != key.MerchantID {
		return Context{}, fail(KindUnknownKey, SchemeClientSecret, errors.New("merchant mismatch"))
	}
	if subtle.ConstantTimeCompare([]byte(rec.Secret), []byte(creds.ClientSecret)) != 1 {
		return Context{}, fail(KindSignatureMismatch, SchemeClientSecret, nil)
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	if !rec.ExpiresAt.IsZero() && !now().Before(rec.ExpiresAt) {
		return Context{}, fail(KindExpired, SchemeClientSecret, nil)
	}

	return Context{
		MerchantID:    key.MerchantID,
		Permissions:   []Permission{PermPaymentLinkRead},
		Class:         ClassClientSecret,
		ResourceScope: resourceID,
		KeyID:         key.KeyID,
	}, nil
}
