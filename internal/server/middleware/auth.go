package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/foliodev/folio/internal/service"
)

type contextKeyAuth string

const (
	// AuthPrincipalKey is the context key for the authenticated principal.
	AuthPrincipalKey contextKeyAuth = "auth_principal"
)

// Principal represents the identity making the request. Anonymous requests
// carry no Principal at all.
type Principal struct {
	Subject string
}

// OptionalAuthenticate attaches a Principal when the request carries a valid
// Bearer token and lets anonymous requests through. A Bearer token that fails
// validation is rejected with 401 rather than silently downgraded.
func OptionalAuthenticate(authSvc *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			p, err := authSvc.ValidateJWT(r.Context(), token)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			ctx := context.WithValue(r.Context(), AuthPrincipalKey, &Principal{Subject: p.Subject})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authenticate is OptionalAuthenticate followed by a check that a principal
// was actually established.
func Authenticate(authSvc *service.AuthService) func(http.Handler) http.Handler {
	optional := OptionalAuthenticate(authSvc)
	return func(next http.Handler) http.Handler {
		return optional(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetPrincipal(r.Context()) == nil {
				writeAuthError(w, http.StatusUnauthorized,
					"Authentication required. Provide a Bearer identity token.")
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

// RequireAdmin enforces an admin binding for the principal in the context.
// It must be used after Authenticate in the middleware chain.
func RequireAdmin(authSvc *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := GetPrincipal(r.Context())
			if principal == nil {
				writeAuthError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			if err := authSvc.RequireAdmin(r.Context(), principal.Subject); err != nil {
				if errors.Is(err, service.ErrNotAdmin) {
					writeAuthError(w, http.StatusForbidden, "Admin access required")
					return
				}
				writeAuthError(w, http.StatusInternalServerError, "Admin check failed")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetPrincipal extracts the authenticated principal from the context.
// Returns nil if no principal is present (i.e., anonymous request).
func GetPrincipal(ctx context.Context) *Principal {
	if p, ok := ctx.Value(AuthPrincipalKey).(*Principal); ok {
		return p
	}
	return nil
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return token, token != ""
}

type authError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// writeAuthError mirrors handler.writeError without importing the handler
// package.
func writeAuthError(w http.ResponseWriter, status int, message string) {
	var body authError
	body.Error.Code = status
	body.Error.Message = message
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
