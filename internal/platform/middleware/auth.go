package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"sged/internal/identity"
	"sged/internal/jwtauth"
	id "sged/pkg/domain"
	dErrors "sged/pkg/domain-errors"
	"sged/pkg/platform/httputil"
	"sged/pkg/requestcontext"
)

// TokenValidator verifies a bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwtauth.Claims, error)
}

// RequireAuth validates the bearer token, resolves the caller through the
// identity provider and stores both the user ID and the resolved identity in
// the request context. Handlers downstream can assume an active caller.
func RequireAuth(validator TokenValidator, provider identity.Provider, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"request_id", requestID,
					"error", err,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			userID, err := id.ParseUserID(claims.UserID)
			if err != nil {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject"))
				return
			}

			ident, err := provider.Resolve(ctx, userID)
			if err != nil {
				// Token may outlive the account; treat as unauthenticated.
				logger.WarnContext(ctx, "unauthorized access - unknown or inactive account",
					"request_id", requestID,
					"user_id", userID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "account not found or inactive"))
				return
			}

			ctx = requestcontext.WithUserID(ctx, userID)
			ctx = identity.WithContext(ctx, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireCapability gates a route on one capability of the resolved caller.
func RequireCapability(check func(identity.Capabilities) bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ident, ok := identity.FromContext(ctx)
			if !ok {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
				return
			}
			if !check(ident.Capabilities) {
				logger.WarnContext(ctx, "forbidden access",
					"request_id", requestcontext.RequestID(ctx),
					"user_id", ident.ID,
					"role", ident.Role,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "caller lacks required capability"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
