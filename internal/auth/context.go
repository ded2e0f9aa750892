// Package auth turns raw request credentials into a trusted Context. Each operation
// declares a Strategy; Resolve is the only way to obtain a Context.
package auth

import "slices"

type Class string

const (
	ClassSecretKey    Class = "secret_key"
	ClassJWT          Class = "jwt"
	ClassClientSecret Class = "publishable_key_client_secret"
	ClassPathDerived  Class = "path_derived"
)

type Permission string

const (
	PermPaymentLinkRead  Permission = "payment_link:read"
	PermPaymentLinkWrite Permission = "payment_link:write"
)

// Context is the resolved identity of one request. It is built once by Resolve and
// never mutated or shared across requests.
type Context struct {
	MerchantID string
	// Permissions is nil for unrestricted credentials.
	Permissions []Permission
	Class       Class
	// ResourceScope, when set, is the only resource this context may touch.
	ResourceScope string
	KeyID         string
}

func (c Context) Allows(p Permission) bool {
	if p == "" || c.Permissions == nil {
		return true
	}
	return slices.Contains(c.Permissions, p)
}

// Authorize fails with InsufficientScope when the context is bound to a different resource.
func (c Context) Authorize(resourceID string) error {
	if c.ResourceScope != "" && c.ResourceScope != resourceID {
		return &Error{Kind: KindInsufficientScope, Scheme: string(c.Class)}
	}
	return nil
}

// Require checks both the permission and the resource scope.
func (c Context) Require(p Permission, resourceID string) error {
	if !c.Allows(p) {
		return &Error{Kind: KindInsufficientScope, Scheme: string(c.Class)}
	}
	return c.Authorize(resourceID)
}

func parsePermissions(raw []string) []Permission {
	if raw == nil {
		return nil
	}
	perms := make([]Permission, 0, len(raw))
	for _, p := range raw {
		perms = append(perms, Permission(p))
	}
	return perms
}
