// Package auth issues and verifies the bearer tokens paired devices use for sync.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "ledgersync"

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

type Claims struct {
	Device string `json:"device"`
	jwt.RegisteredClaims
}

type ctxKey struct{}

// NewToken signs a token for device valid for ttl.
func NewToken(secret []byte, device string, ttl time.Duration) (string, error) {
	now := time.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Device: device,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   device,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}

	return signed, nil
}

// Parse verifies tokenString and returns its claims.
func Parse(secret []byte, tokenString string) (*Claims, error) {
	var claims Claims

	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return &claims, nil
}

// Middleware rejects requests without a valid bearer token. An empty secret disables the check.
func Middleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(secret) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenString == "" {
				http.Error(w, ErrMissingToken.Error(), http.StatusUnauthorized)
				return
			}

			claims, err := Parse(secret, tokenString)
			if err != nil {
				http.Error(w, ErrInvalidToken.Error(), http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, claims.Device)))
		})
	}
}

// Device returns the device name of an authenticated request.
func Device(ctx context.Context) (string, bool) {
	device, ok := ctx.Value(ctxKey{}).(string)
	return device, ok
}
