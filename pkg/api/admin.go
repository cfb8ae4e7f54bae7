package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/coursehub/gatekeeper/pkg/apiresponses"
	"github.com/coursehub/gatekeeper/pkg/audit"
	"github.com/coursehub/gatekeeper/pkg/metrics"
	"github.com/coursehub/gatekeeper/pkg/whitelist"
)

// AdminGuard gates admin-scoped routes on whitelist membership. It must run
// after the required-authentication middleware.
type AdminGuard struct {
	checker whitelist.Checker
	log     *zap.SugaredLogger
	audit   *audit.Manager
}

// NewAdminGuard constructs the guard. audit may be nil.
func NewAdminGuard(checker whitelist.Checker, log *zap.SugaredLogger, auditMgr *audit.Manager) *AdminGuard {
	return &AdminGuard{checker: checker, log: log, audit: auditMgr}
}

// Middleware checks the authenticated identity against the whitelist.
// A lookup error is a denial: the guard fails closed.
func (g *AdminGuard) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFromContext(c)
		if !ok || identity.Email == "" {
			apiresponses.RespondUnauthenticated(c, "authentication required")
			return
		}

		isAdmin, err := g.checker.IsAdmin(c.Request.Context(), identity.Email)
		if err != nil {
			metrics.AdminChecks.WithLabelValues("error").Inc()
			g.log.Warnw("admin whitelist lookup failed, denying",
				"email", identity.Email,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"ip", c.ClientIP(),
				"error", err.Error(),
			)
			g.denied(c, identity.Email, "lookup error")
			return
		}
		if !isAdmin {
			metrics.AdminChecks.WithLabelValues("denied").Inc()
			g.log.Warnw("denied non-whitelisted user on admin route",
				"email", identity.Email,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"ip", c.ClientIP(),
			)
			g.denied(c, identity.Email, "not whitelisted")
			return
		}

		metrics.AdminChecks.WithLabelValues("allowed").Inc()
		c.Set(ContextIsAdminKey, true)
		c.Next()
	}
}

func (g *AdminGuard) denied(c *gin.Context, email, reason string) {
	if g.audit != nil {
		g.audit.AccessDenied(c.Request.Context(), email,
			c.Request.Method, c.Request.URL.Path, c.ClientIP(), reason)
	}
	apiresponses.RespondForbidden(c, "admin access required")
}

// IsAdmin reports whether the admin guard approved this request.
func IsAdmin(c *gin.Context) bool {
	return c.GetBool(ContextIsAdminKey)
}
