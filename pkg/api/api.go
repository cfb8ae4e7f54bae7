package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/coursehub/gatekeeper/pkg/audit"
	"github.com/coursehub/gatekeeper/pkg/config"
	"github.com/coursehub/gatekeeper/pkg/metrics"
	"github.com/coursehub/gatekeeper/pkg/ratelimit"
	"github.com/coursehub/gatekeeper/pkg/sanitize"
	"github.com/coursehub/gatekeeper/pkg/version"
)

// APIController is one registerable route group behind the security pipeline.
type APIController interface {
	BasePath() string
	Register(rg *gin.RouterGroup) error
	Handlers() []gin.HandlerFunc
}

// Server owns the gin engine and the per-route-class security chains:
// rate limiter, payload detector and cleaner, authenticator and admin guard.
type Server struct {
	gin    *gin.Engine
	config config.Config
	log    *zap.SugaredLogger

	auth  *AuthHandler
	admin *AdminGuard

	general *ratelimit.Limiter
	authLim *ratelimit.Limiter
	strict  *ratelimit.Limiter
}

// NewServer assembles the engine and the pipeline. The api route group gets
// the general limiter, the suspicious-payload detector and the cleaner;
// controllers layer authentication and authorization on top via Handlers().
func NewServer(log *zap.Logger, cfg config.Config, debug bool,
	auth *AuthHandler, admin *AdminGuard, auditMgr *audit.Manager,
) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		ginzap.Ginzap(log, time.RFC3339, true),
		ginzap.RecoveryWithZap(log, true),
	)
	if len(cfg.Server.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
			log.Sugar().Warnw("invalid trustedProxies configuration", "error", err)
		}
	}

	engine.NoRoute(ServeSPA("/", cfg.Frontend.DistDir))

	if debug {
		origins := cfg.Frontend.DevOrigins
		if len(origins) == 0 {
			origins = []string{"http://localhost:5173"}
		}
		engine.Use(
			cors.New(cors.Config{
				AllowOrigins:     origins,
				AllowMethods:     []string{"GET", "PUT", "PATCH", "POST", "DELETE", "OPTIONS"},
				AllowHeaders:     []string{"Origin", "Content-Type"},
				AllowCredentials: true,
				MaxAge:           12 * time.Hour,
			}),
		)
	}

	sugar := log.Sugar()
	var auditor ratelimit.Auditor
	if auditMgr != nil {
		auditor = auditMgr
	}
	s := &Server{
		gin:     engine,
		config:  cfg,
		log:     sugar,
		auth:    auth,
		admin:   admin,
		general: ratelimit.New(policyConfig(ratelimit.DefaultGeneralConfig(), cfg.RateLimits.General, sugar), auditor),
		authLim: ratelimit.New(policyConfig(ratelimit.DefaultAuthConfig(), cfg.RateLimits.Auth, sugar), auditor),
		strict:  ratelimit.New(policyConfig(ratelimit.DefaultStrictConfig(), cfg.RateLimits.Strict, sugar), auditor),
	}
	sugar.Warnw("rate limits are accounted per instance; effective limits multiply when horizontally scaled")

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version.Version})
	})
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	engine.GET("api/config", s.getConfig)

	return s
}

// policyConfig overlays a configured policy on its default. A malformed
// window keeps the default rather than failing startup.
func policyConfig(def ratelimit.Config, p config.LimitPolicy, log *zap.SugaredLogger) ratelimit.Config {
	if p.Window != "" {
		if w, err := p.ParseWindow(); err == nil {
			def.Window = w
		} else {
			log.Warnw("keeping default rate limit window", "policy", def.Name, "error", err)
		}
	}
	if p.Max > 0 {
		def.Max = p.Max
	}
	return def
}

// RegisterAll mounts controllers under /api behind the shared pipeline
// stages: general rate limiting, suspicious-payload rejection and payload
// cleaning run before every controller handler.
func (s *Server) RegisterAll(sanitizer *sanitize.Middleware, controllers []APIController) error {
	r := s.gin.Group("api",
		s.general.Middleware(),
		sanitizer.RejectSuspicious(),
		sanitizer.CleanRequest(),
	)
	for _, c := range controllers {
		if err := c.Register(r.Group(c.BasePath(), c.Handlers()...)); err != nil {
			return err
		}
	}
	return nil
}

// RequireAuth is the required-authentication stage for controller chains.
func (s *Server) RequireAuth() gin.HandlerFunc {
	return s.auth.Middleware()
}

// OptionalAuth is the personalize-but-never-reject authentication stage.
func (s *Server) OptionalAuth() gin.HandlerFunc {
	return s.auth.OptionalMiddleware()
}

// RequireAdmin is the admin-scoped chain: the strict limiter for sensitive
// actions, then required auth, then the whitelist check.
func (s *Server) RequireAdmin() []gin.HandlerFunc {
	return []gin.HandlerFunc{s.strict.Middleware(), s.auth.Middleware(), s.admin.Middleware()}
}

// AuthLimit is the stricter limiter for authentication endpoints.
func (s *Server) AuthLimit() gin.HandlerFunc {
	return s.authLim.Middleware()
}

// StrictLimit is the limiter for sensitive actions.
func (s *Server) StrictLimit() gin.HandlerFunc {
	return s.strict.Middleware()
}

// Listen serves until the process exits, with TLS when configured.
func (s *Server) Listen() {
	if s.config.Server.TLSCertFile != "" && s.config.Server.TLSKeyFile != "" {
		_ = s.gin.RunTLS(s.config.Server.ListenAddress, s.config.Server.TLSCertFile, s.config.Server.TLSKeyFile)
		return
	}
	_ = s.gin.Run(s.config.Server.ListenAddress)
}

// Close stops the limiter sweep goroutines.
func (s *Server) Close() {
	s.general.Stop()
	s.authLim.Stop()
	s.strict.Stop()
}

// FrontendConfig is the public runtime configuration the SPA bootstraps from.
type FrontendConfig struct {
	CookieName   string `json:"cookieName"`
	BrandingName string `json:"brandingName,omitempty"`
}

func (s *Server) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, FrontendConfig{
		CookieName:   s.config.Auth.CookieName,
		BrandingName: s.config.Frontend.BrandingName,
	})
}

// Instrumented wraps a handler to record per-endpoint request count,
// latency and error status codes.
func Instrumented(endpoint string, handler gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		metrics.APIEndpointRequests.WithLabelValues(endpoint).Inc()
		handler(c)
		metrics.APIEndpointDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		status := c.Writer.Status()
		if status >= 400 {
			metrics.APIEndpointErrors.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
		}
	}
}
