package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dom/institutional-site/internal/api/respond"
	"github.com/dom/institutional-site/internal/auth"
	"github.com/dom/institutional-site/internal/domain"
	"github.com/dom/institutional-site/internal/logs"
)

type contextKey string

const (
	ClaimsKey contextKey = "claims"
)

// TokenVerifier checks a bearer token and returns its claims.
type TokenVerifier interface {
	VerifyToken(token string) (*auth.Claims, error)
}

// Gate authorizes requests from their bearer token. It keeps no state
// between requests and has no revocation list.
type Gate struct {
	verifier TokenVerifier
	metrics  *Metrics
}

// NewGate builds a gate. metrics may be nil.
func NewGate(verifier TokenVerifier, metrics *Metrics) *Gate {
	return &Gate{verifier: verifier, metrics: metrics}
}

// RequireAuth admits any valid session.
func (g *Gate) RequireAuth(next http.Handler) http.Handler {
	return g.require(nil, next)
}

// RequireAdmin admits ADMIN sessions only.
func (g *Gate) RequireAdmin(next http.Handler) http.Handler {
	return g.require([]domain.UserRole{domain.UserRoleAdmin}, next)
}

// RequireAdminOrEmployee admits ADMIN and EMPLOYEE sessions.
func (g *Gate) RequireAdminOrEmployee(next http.Handler) http.Handler {
	return g.require([]domain.UserRole{domain.UserRoleAdmin, domain.UserRoleEmployee}, next)
}

func (g *Gate) require(roles []domain.UserRole, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := LoggerFrom(r.Context())

		token, ok := bearerToken(r)
		if !ok {
			g.metrics.authOutcome(AuthMissing)
			respond.Error(w, http.StatusUnauthorized, "authentication required")
			return
		}

		claims, err := g.verifier.VerifyToken(token)
		if err != nil {
			if errors.Is(err, auth.ErrMissingSecret) {
				g.metrics.authOutcome(AuthMisconfigured)
				logs.Configuration(log).WithError(err).Error("cannot verify session token")
				respond.Error(w, http.StatusInternalServerError, "internal server error")
				return
			}
			g.metrics.authOutcome(AuthInvalid)
			log.WithError(err).Debug("rejected session token")
			respond.Error(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		if len(roles) > 0 && !hasRole(roles, claims.Role) {
			g.metrics.authOutcome(AuthForbidden)
			respond.Error(w, http.StatusForbidden, "insufficient permissions")
			return
		}

		g.metrics.authOutcome(AuthAllowed)
		ctx := context.WithValue(r.Context(), ClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func hasRole(allowed []domain.UserRole, role domain.UserRole) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// GetClaims returns the claims stored by the gate.
func GetClaims(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*auth.Claims)
	return claims, ok
}

// GetUserID returns the authenticated user's id.
func GetUserID(ctx context.Context) (int64, bool) {
	claims, ok := GetClaims(ctx)
	if !ok {
		return 0, false
	}
	return claims.UserID, true
}
