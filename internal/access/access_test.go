package access

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shapr-cms/shapr/internal/schema"
)

func TestCheckPublic(t *testing.T) {
	assert.True(t, Check(schema.Public(), Anonymous{}))
	assert.True(t, Check(schema.Public(), User{Username: "alice"}))
}

func TestCheckAuthenticated(t *testing.T) {
	assert.False(t, Check(schema.Authenticated(), Anonymous{}))
	assert.True(t, Check(schema.Authenticated(), User{Username: "alice"}))
}

func TestCheckDeny(t *testing.T) {
	assert.False(t, Check(schema.Deny(), Anonymous{}))
	assert.False(t, Check(schema.Deny(), User{Username: "alice", UserRoles: []string{"admin"}}))
}

func TestCheckRoles(t *testing.T) {
	rule := schema.Roles("editor", "admin")

	assert.False(t, Check(rule, Anonymous{}))
	assert.False(t, Check(rule, User{Username: "bob", UserRoles: []string{"viewer"}}))
	assert.True(t, Check(rule, User{Username: "bob", UserRoles: []string{"editor"}}))
	assert.True(t, Check(rule, User{Username: "bob", UserRoles: []string{"viewer", "admin"}}))
}

func TestCheckRolesPrefixForms(t *testing.T) {
	// A required role matches granted roles with or without a ROLE_ prefix.
	assert.True(t, Check(schema.Roles("admin"), User{UserRoles: []string{"ROLE_admin"}}))
	assert.True(t, Check(schema.Roles("ROLE_admin"), User{UserRoles: []string{"admin"}}))
	assert.True(t, Check(schema.Roles("ROLE_admin"), User{UserRoles: []string{"ROLE_admin"}}))

	// Matching is case sensitive.
	assert.False(t, Check(schema.Roles("admin"), User{UserRoles: []string{"Admin"}}))
}

func TestCheckRolesWildcard(t *testing.T) {
	// "*" grants access without authentication.
	rule := schema.Roles("*")

	assert.True(t, Check(rule, User{Username: "anyone", UserRoles: []string{"whatever"}}))
	assert.True(t, Check(rule, User{Username: "anyone"}))
	assert.True(t, Check(rule, Anonymous{}))

	assert.True(t, Check(schema.Roles("admin", "*"), Anonymous{}))
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	assert.False(t, FromContext(ctx).Authenticated())

	user := User{ID: "u1", Username: "alice", UserRoles: []string{"editor"}}
	ctx = WithIdentity(ctx, user)

	got := FromContext(ctx)
	assert.True(t, got.Authenticated())
	assert.Equal(t, "alice", got.Name())
	assert.Equal(t, []string{"editor"}, got.Roles())
}

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	token, err := svc.GenerateToken("alice", []string{"editor", "admin"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims["sub"])

	id := IdentityFromClaims(claims)
	assert.True(t, id.Authenticated())
	assert.Equal(t, []string{"editor", "admin"}, id.Roles())
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenService("secret-a", time.Hour).GenerateToken("alice", nil)
	require.NoError(t, err)

	_, err = NewTokenService("secret-b", time.Hour).ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc := NewTokenService("test-secret", -time.Minute)

	token, err := svc.GenerateToken("alice", nil)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	var seen Identity
	handler := Middleware(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))

	// No token: anonymous.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.False(t, seen.Authenticated())

	// Garbage token: still anonymous, not an error.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.False(t, seen.Authenticated())

	// Valid token: resolved user.
	token, err := svc.GenerateToken("alice", []string{"editor"})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.True(t, seen.Authenticated())
	assert.Equal(t, "alice", seen.Name())
}
