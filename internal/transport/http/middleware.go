package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"varsityhub/internal/access"
	"varsityhub/internal/directory"
	"varsityhub/internal/session"
	"varsityhub/pkg/platform/middleware/metadata"
)

// Context keys for the authenticated principal and its gate capabilities.
type contextKeyPrincipal struct{}
type contextKeyCapabilities struct{}

// PrincipalFrom retrieves the authenticated principal from the context.
func PrincipalFrom(ctx context.Context) (directory.Principal, bool) {
	p, ok := ctx.Value(contextKeyPrincipal{}).(directory.Principal)
	return p, ok
}

// CapabilitiesFrom retrieves the gate capability descriptor from the context.
// Request-scoped only; never cache it across requests.
func CapabilitiesFrom(ctx context.Context) (access.Capabilities, bool) {
	c, ok := ctx.Value(contextKeyCapabilities{}).(access.Capabilities)
	return c, ok
}

// denyBody is the JSON error payload for 401/403 responses.
type denyBody struct {
	Error               string `json:"error"`
	ComplianceViolation string `json:"complianceViolation"`
	RedirectTo          string `json:"redirectTo,omitempty"`
}

func writeDeny(w http.ResponseWriter, status int, body denyBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// RequireSession authenticates the bearer session token, checks the
// revocation list, and loads the principal's capability flags. Requests
// without a valid session get 401 before any gate runs.
func RequireSession(sessions *session.Service, trl session.RevocationList, dir directory.Store, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				writeDeny(w, http.StatusUnauthorized, denyBody{
					Error:               "Authentication required",
					ComplianceViolation: "authentication_failure",
				})
				return
			}

			claims, err := sessions.Validate(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid session token", "error", err)
				writeDeny(w, http.StatusUnauthorized, denyBody{
					Error:               "Invalid or expired session",
					ComplianceViolation: "authentication_failure",
				})
				return
			}

			if trl != nil {
				revoked, err := trl.IsRevoked(ctx, claims.ID)
				if err != nil {
					logger.ErrorContext(ctx, "failed to check token revocation", "error", err)
					http.Error(w, "session validation failed", http.StatusInternalServerError)
					return
				}
				if revoked {
					logger.WarnContext(ctx, "unauthorized access - session revoked", "jti", claims.ID)
					writeDeny(w, http.StatusUnauthorized, denyBody{
						Error:               "Session has been revoked",
						ComplianceViolation: "authentication_failure",
					})
					return
				}
			}

			principal, err := dir.GetPrincipal(ctx, claims.PrincipalID)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - unknown principal",
					"principal_id", claims.PrincipalID, "error", err)
				writeDeny(w, http.StatusUnauthorized, denyBody{
					Error:               "User not found",
					ComplianceViolation: "authentication_failure",
				})
				return
			}

			ctx = context.WithValue(ctx, contextKeyPrincipal{}, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requireGate builds a middleware from a gate request factory. The gated
// handler runs only after an allowed decision; the capability descriptor
// rides the request context.
func requireGate(gate *access.Gate, build func(p directory.Principal) access.Request) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principal, ok := PrincipalFrom(ctx)
			if !ok {
				writeDeny(w, http.StatusUnauthorized, denyBody{
					Error:               "Authentication required",
					ComplianceViolation: "authentication_failure",
				})
				return
			}

			req := build(principal)
			req.NetworkOrigin = metadata.GetClientIP(ctx)
			req.ClientAgent = metadata.SummarizeUserAgent(metadata.GetUserAgent(ctx))

			decision := gate.Evaluate(ctx, req)
			if !decision.Allowed {
				writeDeny(w, http.StatusForbidden, denyBody{
					Error:               decision.Reason,
					ComplianceViolation: string(decision.Violation),
					RedirectTo:          decision.RedirectTo,
				})
				return
			}

			ctx = context.WithValue(ctx, contextKeyCapabilities{}, decision.Capabilities)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireHealthAccess gates a route on the health data policy.
func RequireHealthAccess(gate *access.Gate) func(http.Handler) http.Handler {
	return requireGate(gate, func(p directory.Principal) access.Request {
		return access.Request{Principal: p, Classification: access.ClassificationHealthData}
	})
}

// RequireStudentAccess gates a route on the student data policy.
func RequireStudentAccess(gate *access.Gate) func(http.Handler) http.Handler {
	return requireGate(gate, func(p directory.Principal) access.Request {
		return access.Request{Principal: p, Classification: access.ClassificationStudentData}
	})
}

// RequireRole gates a route on an explicit role allow-list.
func RequireRole(gate *access.Gate, roles ...directory.ComplianceRole) func(http.Handler) http.Handler {
	return requireGate(gate, func(p directory.Principal) access.Request {
		return access.Request{
			Principal:      p,
			Classification: access.ClassificationAdministrativeData,
			AllowedRoles:   roles,
		}
	})
}

// RequireFullCompliance chains the student and health gates. Middleware
// ordering gives the short-circuit: a student-data denial stops the chain
// before the health gate runs, so the request is not double-audited.
func RequireFullCompliance(gate *access.Gate, next http.Handler) http.Handler {
	return RequireStudentAccess(gate)(RequireHealthAccess(gate)(next))
}

// Timeout bounds a request so a stalled downstream cannot hold connections open.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
