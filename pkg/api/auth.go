package api

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/coursehub/gatekeeper/pkg/apiresponses"
	"github.com/coursehub/gatekeeper/pkg/audit"
	"github.com/coursehub/gatekeeper/pkg/config"
	"github.com/coursehub/gatekeeper/pkg/metrics"
)

// Context keys for the identity attached to an authenticated request.
const (
	ContextIdentityKey = "identity"
	ContextIsAdminKey  = "is_admin"
)

// IdentityClaim is the decoded, trusted payload of a verified credential.
// It is immutable once decoded and lives only in the request context.
type IdentityClaim struct {
	UserID string `json:"userID"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
	Sex    string `json:"sex,omitempty"`
}

var errNoSecret = errors.New("credential signing secret is not configured")

// AuthHandler verifies the signed credential cookie and attaches the decoded
// identity to the request context.
type AuthHandler struct {
	cookieName string
	secret     []byte
	log        *zap.SugaredLogger
	audit      *audit.Manager
}

// NewAuth constructs the authenticator from configuration. audit may be nil.
func NewAuth(log *zap.SugaredLogger, cfg config.Config, auditMgr *audit.Manager) *AuthHandler {
	return &AuthHandler{
		cookieName: cfg.Auth.CookieName,
		secret:     []byte(cfg.Auth.Secret),
		log:        log,
		audit:      auditMgr,
	}
}

// decodeCredential verifies the raw token and extracts the identity claim.
// Verification requires a configured secret; a missing secret is a fatal
// configuration error, never a reason to skip verification.
func (a *AuthHandler) decodeCredential(raw string) (*IdentityClaim, error) {
	if len(a.secret) == 0 {
		return nil, errNoSecret
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}

	identity := &IdentityClaim{}
	if v, ok := claims["userID"].(string); ok {
		identity.UserID = v
	}
	if v, ok := claims["email"].(string); ok {
		identity.Email = v
	}
	if v, ok := claims["name"].(string); ok {
		identity.Name = v
	}
	if v, ok := claims["sex"].(string); ok {
		identity.Sex = v
	}
	return identity, nil
}

// Middleware returns the required-authentication middleware: no credential
// is 401, a failing credential is 403, and only a verified credential lets
// the request proceed with its identity attached.
func (a *AuthHandler) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(a.cookieName)
		if err != nil || raw == "" {
			metrics.AuthOutcomes.WithLabelValues("missing").Inc()
			if a.audit != nil {
				a.audit.AuthRejected(c.Request.Context(), audit.EventAuthMissing,
					c.Request.Method, c.Request.URL.Path, c.ClientIP())
			}
			apiresponses.RespondUnauthenticated(c, "authentication required")
			return
		}

		identity, err := a.decodeCredential(raw)
		if err != nil {
			a.rejectCredential(c, err)
			return
		}

		metrics.AuthOutcomes.WithLabelValues("ok").Inc()
		c.Set(ContextIdentityKey, identity)
		c.Next()
	}
}

// OptionalMiddleware returns the optional-authentication variant: both a
// missing and an invalid credential mean "no identity" and the request
// proceeds. A missing signing secret still fails hard; optional routes do
// not get to skip verification either.
func (a *AuthHandler) OptionalMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(a.cookieName)
		if err != nil || raw == "" {
			c.Next()
			return
		}

		identity, err := a.decodeCredential(raw)
		if errors.Is(err, errNoSecret) {
			a.rejectCredential(c, err)
			return
		}
		if err != nil {
			a.log.Debugw("ignoring invalid credential on optional-auth route",
				"path", c.Request.URL.Path, "ip", c.ClientIP())
			c.Next()
			return
		}

		c.Set(ContextIdentityKey, identity)
		c.Next()
	}
}

// rejectCredential translates a decode failure into its terminal response.
func (a *AuthHandler) rejectCredential(c *gin.Context, err error) {
	if errors.Is(err, errNoSecret) {
		metrics.AuthOutcomes.WithLabelValues("misconfigured").Inc()
		if a.audit != nil {
			a.audit.AuthRejected(c.Request.Context(), audit.EventAuthMisconfigured,
				c.Request.Method, c.Request.URL.Path, c.ClientIP())
		}
		apiresponses.RespondMisconfigured(c, "verify credential", err, a.log)
		return
	}

	metrics.AuthOutcomes.WithLabelValues("invalid").Inc()
	a.log.Warnw("rejected invalid credential",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"ip", c.ClientIP(),
		"error", err.Error(),
	)
	if a.audit != nil {
		a.audit.AuthRejected(c.Request.Context(), audit.EventAuthInvalid,
			c.Request.Method, c.Request.URL.Path, c.ClientIP())
	}
	apiresponses.RespondInvalidCredential(c)
}

// IdentityFromContext returns the identity attached by the authenticator.
func IdentityFromContext(c *gin.Context) (*IdentityClaim, bool) {
	v, exists := c.Get(ContextIdentityKey)
	if !exists {
		return nil, false
	}
	identity, ok := v.(*IdentityClaim)
	return identity, ok
}
