package v1

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type ctxKey string

const ctxKeyUser ctxKey = "actingUser"

func parseBearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < len("Bearer ") || !strings.EqualFold(h[:len("Bearer ")], "Bearer ") {
		return "", false
	}
	return strings.TrimSpace(h[len("Bearer "):]), true
}

// actingUser resolves the user every /v1 request acts for. With a secret the
// user is the sub claim of an HS256 bearer token; without one it is the
// user_id query parameter.
func actingUser(secret, issuer string) func(http.Handler) http.Handler {
	secret = strings.TrimSpace(secret)
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	parser := jwt.NewParser(opts...)
	keyFunc := func(*jwt.Token) (any, error) { return []byte(secret), nil }

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var raw string
			if secret == "" {
				raw = r.URL.Query().Get("user_id")
				if raw == "" {
					writeErr(w, http.StatusBadRequest, "user_id is required", "validation_error")
					return
				}
			} else {
				tok, ok := parseBearerToken(r)
				if !ok {
					writeErr(w, http.StatusUnauthorized, "missing bearer token", "unauthorized")
					return
				}
				var claims jwt.RegisteredClaims
				if _, err := parser.ParseWithClaims(tok, &claims, keyFunc); err != nil {
					writeErr(w, http.StatusUnauthorized, "invalid token", "unauthorized")
					return
				}
				raw = claims.Subject
			}
			userID, err := uuid.Parse(raw)
			if err != nil || userID == uuid.Nil {
				if secret != "" {
					writeErr(w, http.StatusUnauthorized, "invalid subject", "unauthorized")
					return
				}
				writeErr(w, http.StatusBadRequest, "invalid user_id", "validation_error")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyUser, userID)))
		})
	}
}

func userFrom(r *http.Request) uuid.UUID {
	id, _ := r.Context().Value(ctxKeyUser).(uuid.UUID)
	return id
}
