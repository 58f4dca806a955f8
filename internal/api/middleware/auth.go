package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/inkwell-blog/server/internal/api/problem"
	"github.com/inkwell-blog/server/internal/auth"
)

type contextKeyAuth string

const claimsKey contextKeyAuth = "claims"

// Authenticate verifies the bearer credential and stores the claims in the
// request context. Missing, expired, and malformed credentials produce
// distinct problem types so the client can tell "log in" from "log in again"
// from "broken request".
func Authenticate(manager *auth.TokenManager, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
			if err != nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthenticated, "Missing credentials", err, env)
				return
			}

			claims, err := manager.Verify(token, time.Now())
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrTokenExpired):
					problem.Write(w, r, http.StatusUnauthorized, problem.TypeTokenExpired, "Session expired", err, env)
				default:
					problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthenticated, "Invalid token", err, env)
				}
				return
			}

			ctx := ContextWithClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission admits the request only when the authenticated subject's
// live role assignment grants the permission. Runs after Authenticate.
func RequirePermission(authorizer *auth.Authorizer, permission, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFrom(r)
			if err := authorizer.Authorize(r.Context(), claims, permission); err != nil {
				WriteAuthorizeProblem(w, r, err, env)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WriteAuthorizeProblem maps Authorizer deny reasons onto the HTTP surface.
// Shared with handlers that run self-or-role checks inline.
func WriteAuthorizeProblem(w http.ResponseWriter, r *http.Request, err error, env string) {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthenticated, "Unauthenticated", err, env)
	case errors.Is(err, auth.ErrSubjectNotFound):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Subject not found", err, env)
	case errors.Is(err, auth.ErrPermissionDenied):
		problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Permission denied", err, env)
	default:
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, env)
	}
}

func ContextWithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFrom returns the verified claims stored by Authenticate, or nil.
func ClaimsFrom(r *http.Request) *auth.Claims {
	if r == nil {
		return nil
	}
	if claims, ok := r.Context().Value(claimsKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}
