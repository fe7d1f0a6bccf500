package access

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService issues and validates HS256 JWTs.
type TokenService struct {
	secretKey string
	tokenTTL  time.Duration
}

// NewTokenService creates a TokenService with the given secret key and token TTL.
func NewTokenService(secretKey string, tokenTTL time.Duration) *TokenService {
	return &TokenService{
		secretKey: secretKey,
		tokenTTL:  tokenTTL,
	}
}

// GenerateToken issues a token carrying the subject and roles.
func (s *TokenService) GenerateToken(subject string, roles []string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   subject,
		"roles": roles,
		"exp":   now.Add(s.tokenTTL).Unix(),
		"iat":   now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secretKey))
}

// ValidateToken parses and verifies a token and returns its claims.
func (s *TokenService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Verify exact signing method to prevent algorithm confusion attacks
		if token.Method.Alg() != "HS256" {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secretKey), nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}

// IdentityFromClaims builds a User identity from validated claims.
func IdentityFromClaims(claims jwt.MapClaims) Identity {
	user := User{}
	if sub, ok := claims["sub"].(string); ok {
		user.Username = sub
		user.ID = sub
	}
	if raw, ok := claims["roles"].([]interface{}); ok {
		for _, r := range raw {
			if role, ok := r.(string); ok {
				user.UserRoles = append(user.UserRoles, role)
			}
		}
	}
	return user
}

// Middleware resolves a bearer token into an identity on the request context.
// A missing or invalid token yields an anonymous identity rather than an
// error; access rules decide later whether anonymous callers may proceed.
func Middleware(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id Identity = Anonymous{}

			header := r.Header.Get("Authorization")
			if strings.HasPrefix(header, "Bearer ") {
				raw := strings.TrimPrefix(header, "Bearer ")
				if claims, err := tokens.ValidateToken(raw); err == nil {
					id = IdentityFromClaims(claims)
				}
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
