package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/utafrali/TradeCatalog/pkg/httputil"
	"github.com/utafrali/TradeCatalog/pkg/logger"
)

type contextKeyType string

const (
	userIDKey contextKeyType = "user_id"
	roleKey   contextKeyType = "role"
)

// Headers set by a trusted gateway when bearer tokens are not verified here.
const (
	UserIDHeader = "X-User-ID"
	RoleHeader   = "X-User-Role"
)

var errMissingSubject = errors.New("token carries no user id")

// Claims is the caller identity extracted from a request.
type Claims struct {
	UserID string
	Role   string
}

// TokenValidator validates a raw bearer token and returns its claims.
type TokenValidator func(token string) (*Claims, error)

// HMACTokenValidator verifies HS256/384/512 tokens signed with secret. The
// user id is read from the user_id claim, falling back to sub.
func HMACTokenValidator(secret []byte) TokenValidator {
	return func(raw string) (*Claims, error) {
		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return secret, nil
		})
		if err != nil {
			return nil, fmt.Errorf("parse token: %w", err)
		}

		userID, _ := claims["user_id"].(string)
		if userID == "" {
			userID, _ = claims.GetSubject()
		}
		if userID == "" {
			return nil, errMissingSubject
		}
		role, _ := claims["role"].(string)

		return &Claims{UserID: userID, Role: role}, nil
	}
}

// Identity resolves the caller and stores user id and role in the context.
//
// With a validator, only the Authorization bearer token is trusted: a missing
// header yields an anonymous caller and a bad token is rejected with 401.
// Without one, the X-User-ID and X-User-Role headers are used as-is.
func Identity(validate TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var userID, role string

			if validate != nil {
				if authHeader := r.Header.Get("Authorization"); authHeader != "" {
					parts := strings.SplitN(authHeader, " ", 2)
					if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
						writeAuthError(w, r, "invalid authorization header format")
						return
					}
					claims, err := validate(strings.TrimSpace(parts[1]))
					if err != nil {
						writeAuthError(w, r, "invalid or expired token")
						return
					}
					userID, role = claims.UserID, claims.Role
				}
			} else {
				userID = strings.TrimSpace(r.Header.Get(UserIDHeader))
				role = strings.TrimSpace(r.Header.Get(RoleHeader))
			}

			if userID == "" && role == "" {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), userID, role)))
		})
	}
}

// WithIdentity returns a context carrying the given caller identity.
func WithIdentity(ctx context.Context, userID, role string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, roleKey, role)
}

// UserIDFromContext extracts the user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

// RoleFromContext extracts the user role from the request context.
func RoleFromContext(ctx context.Context) string {
	if role, ok := ctx.Value(roleKey).(string); ok {
		return role
	}
	return ""
}

func writeAuthError(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="catalog"`)
	httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
		Error: &httputil.ErrorResponse{
			Code:      "UNAUTHORIZED",
			Message:   message,
			RequestID: logger.CorrelationIDFromContext(r.Context()),
		},
	})
}
