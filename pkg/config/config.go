package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// EnvConfigPath overrides the config file location when set.
const EnvConfigPath = "GATEKEEPER_CONFIG"

// EnvTokenSecret supplies the credential signing secret. The secret is never
// read from the config file.
const EnvTokenSecret = "AUTH_TOKEN_SECRET"

// EnvWhitelistDatabaseURL supplies the whitelist Postgres URL, overriding
// the config file value.
const EnvWhitelistDatabaseURL = "WHITELIST_DATABASE_URL"

type Server struct {
	ListenAddress  string   `yaml:"listenAddress"`
	TLSCertFile    string   `yaml:"tlsCertFile"`
	TLSKeyFile     string   `yaml:"tlsKeyFile"`
	TrustedProxies []string `yaml:"trustedProxies"` // IPs/CIDRs trusted for X-Forwarded-For
}

type Frontend struct {
	// DistDir is the built SPA bundle served at the root path.
	DistDir string `yaml:"distDir"`
	// BrandingName optionally overrides the product name shown in the UI.
	BrandingName string `yaml:"brandingName"`
	// DevOrigins are allowed CORS origins in debug mode (Vite dev server).
	DevOrigins []string `yaml:"devOrigins"`
}

type Auth struct {
	// CookieName is the cookie carrying the signed credential.
	CookieName string `yaml:"cookieName"`
	// CookieDomain scopes the credential cookie. Deployment dependent.
	CookieDomain string `yaml:"cookieDomain"`
	// CookieSameSite is "lax", "strict" or "none".
	CookieSameSite string `yaml:"cookieSameSite"`
	// CookieSecure marks the cookie HTTPS-only.
	CookieSecure bool `yaml:"cookieSecure"`

	// Secret is populated from the environment, never from the file.
	Secret string `yaml:"-"`
}

// LimitPolicy describes one rate limiter instance. Window is a Go duration
// string ("15m", "1m").
type LimitPolicy struct {
	Window string `yaml:"window"`
	Max    int    `yaml:"max"`
}

// ParseWindow returns the parsed window duration.
func (p LimitPolicy) ParseWindow() (time.Duration, error) {
	d, err := time.ParseDuration(p.Window)
	if err != nil {
		return 0, fmt.Errorf("parsing rate limit window %q: %w", p.Window, err)
	}
	return d, nil
}

type RateLimits struct {
	General LimitPolicy `yaml:"general"`
	Auth    LimitPolicy `yaml:"auth"`
	Strict  LimitPolicy `yaml:"strict"`
}

type Whitelist struct {
	// DatabaseURL is the Postgres connection string for the admin whitelist.
	// Empty means the static checker from staticAdmins is used.
	DatabaseURL  string   `yaml:"databaseURL"`
	StaticAdmins []string `yaml:"staticAdmins"`
}

type Kafka struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type Audit struct {
	Kafka Kafka `yaml:"kafka"`
}

type Config struct {
	Server     Server     `yaml:"server"`
	Frontend   Frontend   `yaml:"frontend"`
	Auth       Auth       `yaml:"auth"`
	RateLimits RateLimits `yaml:"rateLimits"`
	Whitelist  Whitelist  `yaml:"whitelist"`
	Audit      Audit      `yaml:"audit"`
}

// Load reads the gateway configuration from a file path. If configPath is
// empty, "./config.yaml" is used; the GATEKEEPER_CONFIG environment variable
// overrides both. Environment-supplied secrets are layered on top.
func Load(configPath ...string) (Config, error) {
	path := "./config.yaml"
	if len(configPath) > 0 && configPath[0] != "" {
		path = configPath[0]
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		path = env
	}

	var config Config

	content, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("opening gateway config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(content, &config); err != nil {
		return config, fmt.Errorf("unmarshaling YAML %s: %w", path, err)
	}

	config.Auth.Secret = os.Getenv(EnvTokenSecret)
	if env := os.Getenv(EnvWhitelistDatabaseURL); env != "" {
		config.Whitelist.DatabaseURL = env
	}

	config.Defaults()
	return config, nil
}

// Defaults fills unset fields with deployment-independent defaults.
func (c *Config) Defaults() {
	if c.Server.ListenAddress == "" {
		c.Server.ListenAddress = ":8080"
	}
	if c.Frontend.DistDir == "" {
		c.Frontend.DistDir = "./frontend/dist/"
	}
	if c.Auth.CookieName == "" {
		c.Auth.CookieName = "auth_token"
	}
	if c.Auth.CookieSameSite == "" {
		c.Auth.CookieSameSite = "lax"
	}
	if c.RateLimits.General.Window == "" {
		c.RateLimits.General = LimitPolicy{Window: "15m", Max: 100}
	}
	if c.RateLimits.Auth.Window == "" {
		c.RateLimits.Auth = LimitPolicy{Window: "15m", Max: 5}
	}
	if c.RateLimits.Strict.Window == "" {
		c.RateLimits.Strict = LimitPolicy{Window: "1m", Max: 3}
	}
	if c.Audit.Kafka.Topic == "" {
		c.Audit.Kafka.Topic = "gatekeeper-audit"
	}
}
