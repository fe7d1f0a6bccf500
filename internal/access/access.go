// Package access evaluates collection access rules against the identity of
// the current request.
package access

import (
	"context"
	"strings"

	"github.com/shapr-cms/shapr/internal/schema"
)

// Identity is the caller a rule is evaluated against.
type Identity interface {
	// Authenticated reports whether the caller presented valid credentials.
	Authenticated() bool
	// Name returns the principal name, or "" when anonymous.
	Name() string
	// Roles returns the granted role names.
	Roles() []string
}

// Anonymous is the identity of a request with no valid credentials.
type Anonymous struct{}

func (Anonymous) Authenticated() bool { return false }
func (Anonymous) Name() string        { return "" }
func (Anonymous) Roles() []string     { return nil }

// User is an authenticated identity with a set of roles.
type User struct {
	ID        string
	Username  string
	UserRoles []string
}

func (User) Authenticated() bool { return true }
func (u User) Name() string      { return u.Username }
func (u User) Roles() []string   { return u.UserRoles }

type contextKey struct{}

// WithIdentity stores the identity on the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored on the context, or Anonymous when
// none is present.
func FromContext(ctx context.Context) Identity {
	if id, ok := ctx.Value(contextKey{}).(Identity); ok {
		return id
	}
	return Anonymous{}
}

// Check reports whether the identity satisfies the rule.
//
// Role rules match each required role in three forms against the identity's
// granted roles: the raw name, the name with a "ROLE_" prefix added, and the
// name with a "ROLE_" prefix stripped. A required role of "*" grants access
// to any caller, anonymous included. Matching is case sensitive.
func Check(rule schema.AccessRule, id Identity) bool {
	switch rule.Kind {
	case schema.AccessPublic:
		return true
	case schema.AccessAuthenticated:
		return id.Authenticated()
	case schema.AccessDeny:
		return false
	case schema.AccessRoles:
		// "*" means no authentication is required.
		for _, required := range rule.Roles {
			if required == "*" {
				return true
			}
		}
		if !id.Authenticated() {
			return false
		}
		granted := make(map[string]struct{}, len(id.Roles()))
		for _, r := range id.Roles() {
			granted[r] = struct{}{}
		}
		for _, required := range rule.Roles {
			if hasRole(granted, required) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func hasRole(granted map[string]struct{}, required string) bool {
	if _, ok := granted[required]; ok {
		return true
	}
	if _, ok := granted["ROLE_"+required]; ok {
		return true
	}
	if stripped := strings.TrimPrefix(required, "ROLE_"); stripped != required {
		if _, ok := granted[stripped]; ok {
			return true
		}
	}
	return false
}
