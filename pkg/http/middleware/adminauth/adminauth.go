package adminauth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/corray333/backend-labs/checkout/pkg/http/response"
	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer    = "checkout-svc"
	adminRole = "admin"
)

// ErrNoSecret is returned when tokens are requested without a signing secret.
var ErrNoSecret = errors.New("admin jwt secret is not configured")

// Claims are carried by admin bearer tokens.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 admin token for subject valid for ttl.
func IssueToken(secret, subject string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrNoSecret
	}

	now := time.Now()
	claims := Claims{
		Role: adminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign admin token: %w", err)
	}

	return signed, nil
}

// NewAdminAuthMiddleware rejects requests without a valid admin bearer token. With no
// secret configured every request is refused.
func NewAdminAuthMiddleware(secret string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				response.Error(w, http.StatusServiceUnavailable, "admin access is not configured")

				return
			}

			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				unauthorized(w, "missing bearer token")

				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(strings.TrimPrefix(auth, "Bearer "), claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			},
				jwt.WithLeeway(30*time.Second),
				jwt.WithIssuer(issuer),
				jwt.WithExpirationRequired(),
			)
			if err != nil || !token.Valid {
				unauthorized(w, "invalid token")

				return
			}

			if claims.Role != adminRole {
				response.Error(w, http.StatusForbidden, "admin role required")

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	response.Error(w, http.StatusUnauthorized, desc)
}
