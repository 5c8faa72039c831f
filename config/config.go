package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	// Upstream SnoopTrade REST API
	Upstream UpstreamConfig `yaml:"upstream"`

	// HTTP server configuration
	HTTP HTTPConfig `yaml:"http"`

	// Browser session configuration
	Session SessionConfig `yaml:"session"`

	// Dashboard presentation defaults
	Dashboard DashboardConfig `yaml:"dashboard"`

	// Federated login configuration
	Google GoogleConfig `yaml:"google"`
}

// UpstreamConfig holds the remote API configuration
type UpstreamConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	RetryMax       int    `yaml:"retry_max"` // GET requests only
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Addr                  string `yaml:"addr"`
	CORSAllowedOrigins    string `yaml:"cors_allowed_origins"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
	Production            bool   `yaml:"production"`
}

// SessionConfig holds session storage configuration
type SessionConfig struct {
	Backend      string `yaml:"backend"` // memory, redis or postgres
	RedisURL     string `yaml:"redis_url"`
	DatabaseURL  string `yaml:"database_url"`
	CookieName   string `yaml:"cookie_name"`
	Secret       string `yaml:"secret"`
	TTLHours     int    `yaml:"ttl_hours"`
	CleanupCron  string `yaml:"cleanup_cron"`
	SecureCookie bool   `yaml:"secure_cookie"`
}

// DashboardConfig holds dashboard defaults
type DashboardConfig struct {
	Companies     []string `yaml:"companies"`
	DefaultWindow string   `yaml:"default_window"`
	PageSize      int      `yaml:"page_size"`
	PieColors     string   `yaml:"pie_colors"` // palette or hue
}

// GoogleConfig holds Google sign-in configuration
type GoogleConfig struct {
	ClientID string `yaml:"client_id"`
}

// Session backends
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Pie chart color modes
const (
	PieColorsPalette = "palette"
	PieColorsHue     = "hue"
)

// PageSizes are the table page sizes offered to the user
var PageSizes = []int{5, 10, 25, 50}

// knownWindows mirrors the periods the upstream accepts
var knownWindows = []string{"1w", "1m", "3m", "6m", "1y"}

const defaultBaseURL = "http://cmpe272teamsnooptrade.us-west-2.elasticbeanstalk.com"

// Load loads configuration from an optional YAML file (SNOOPTRADE_CONFIG)
// and then applies environment variable overrides
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("SNOOPTRADE_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Upstream: UpstreamConfig{
			BaseURL:        defaultBaseURL,
			TimeoutSeconds: 30,
			RetryMax:       2,
		},
		HTTP: HTTPConfig{
			Addr:                  ":8080",
			CORSAllowedOrigins:    "*",
			RequestTimeoutSeconds: 60,
		},
		Session: SessionConfig{
			Backend:     BackendMemory,
			CookieName:  "snooptrade_session",
			TTLHours:    24,
			CleanupCron: "@every 10m",
		},
		Dashboard: DashboardConfig{
			Companies:     []string{"AAPL", "NVDA", "META"},
			DefaultWindow: "6m",
			PageSize:      10,
			PieColors:     PieColorsPalette,
		},
	}
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Upstream.BaseURL = strings.TrimRight(getEnvString("SNOOPTRADE_API_URL", c.Upstream.BaseURL), "/")
	c.Upstream.TimeoutSeconds = getEnvInt("UPSTREAM_TIMEOUT_SECONDS", c.Upstream.TimeoutSeconds)
	c.Upstream.RetryMax = getEnvIntAllowZero("UPSTREAM_RETRY_MAX", c.Upstream.RetryMax)

	c.HTTP.Addr = getEnvString("HTTP_ADDR", c.HTTP.Addr)
	c.HTTP.CORSAllowedOrigins = getEnvString("CORS_ALLOWED_ORIGINS", c.HTTP.CORSAllowedOrigins)
	c.HTTP.RequestTimeoutSeconds = getEnvInt("HTTP_REQUEST_TIMEOUT_SECONDS", c.HTTP.RequestTimeoutSeconds)
	c.HTTP.Production = getEnvBool("PRODUCTION", c.HTTP.Production)

	c.Session.Backend = strings.ToLower(getEnvString("SESSION_BACKEND", c.Session.Backend))
	c.Session.RedisURL = getEnvString("REDIS_URL", c.Session.RedisURL)
	c.Session.DatabaseURL = getEnvString("DATABASE_URL", c.Session.DatabaseURL)
	c.Session.CookieName = getEnvString("SESSION_COOKIE_NAME", c.Session.CookieName)
	c.Session.Secret = getEnvString("SESSION_SECRET", c.Session.Secret)
	c.Session.TTLHours = getEnvInt("SESSION_TTL_HOURS", c.Session.TTLHours)
	c.Session.CleanupCron = getEnvString("SESSION_CLEANUP_CRON", c.Session.CleanupCron)
	c.Session.SecureCookie = getEnvBool("SESSION_SECURE_COOKIE", c.Session.SecureCookie)

	if v := os.Getenv("DASHBOARD_COMPANIES"); v != "" {
		c.Dashboard.Companies = splitList(v)
	}
	c.Dashboard.DefaultWindow = getEnvString("DASHBOARD_DEFAULT_WINDOW", c.Dashboard.DefaultWindow)
	c.Dashboard.PageSize = getEnvInt("DASHBOARD_PAGE_SIZE", c.Dashboard.PageSize)
	c.Dashboard.PieColors = getEnvString("DASHBOARD_PIE_COLORS", c.Dashboard.PieColors)

	c.Google.ClientID = getEnvString("GOOGLE_CLIENT_ID", c.Google.ClientID)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("SNOOPTRADE_API_URL must not be empty")
	}
	if c.Upstream.TimeoutSeconds <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT_SECONDS must be positive, got %d", c.Upstream.TimeoutSeconds)
	}
	if c.Upstream.RetryMax < 0 {
		return fmt.Errorf("UPSTREAM_RETRY_MAX must not be negative, got %d", c.Upstream.RetryMax)
	}
	if c.HTTP.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("HTTP_REQUEST_TIMEOUT_SECONDS must be positive, got %d", c.HTTP.RequestTimeoutSeconds)
	}

	switch c.Session.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Session.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when SESSION_BACKEND=redis")
		}
	case BackendPostgres:
		if c.Session.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when SESSION_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q (memory, redis or postgres)", c.Session.Backend)
	}
	if c.Session.TTLHours <= 0 {
		return fmt.Errorf("SESSION_TTL_HOURS must be positive, got %d", c.Session.TTLHours)
	}
	if c.Session.CookieName == "" {
		return fmt.Errorf("SESSION_COOKIE_NAME must not be empty")
	}

	if len(c.Dashboard.Companies) == 0 {
		return fmt.Errorf("DASHBOARD_COMPANIES must list at least one symbol")
	}
	if !contains(knownWindows, c.Dashboard.DefaultWindow) {
		return fmt.Errorf("DASHBOARD_DEFAULT_WINDOW must be one of %v, got %q", knownWindows, c.Dashboard.DefaultWindow)
	}
	if !IsPageSize(c.Dashboard.PageSize) {
		return fmt.Errorf("DASHBOARD_PAGE_SIZE must be one of %v, got %d", PageSizes, c.Dashboard.PageSize)
	}
	if c.Dashboard.PieColors != PieColorsPalette && c.Dashboard.PieColors != PieColorsHue {
		return fmt.Errorf("DASHBOARD_PIE_COLORS must be %q or %q, got %q", PieColorsPalette, PieColorsHue, c.Dashboard.PieColors)
	}

	return nil
}

// IsPageSize reports whether n is one of the offered table page sizes
func IsPageSize(n int) bool {
	for _, s := range PageSizes {
		if s == n {
			return true
		}
	}
	return false
}

// HasGoogle returns true if federated login is configured
func (c *Config) HasGoogle() bool {
	return c.Google.ClientID != ""
}

// HasSecret returns true if a session secret was provided
func (c *Config) HasSecret() bool {
	return c.Session.Secret != ""
}

func getEnvString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvIntAllowZero(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// NewTestConfig creates a Config with default values for testing
func NewTestConfig() *Config {
	cfg := defaults()
	cfg.Upstream.BaseURL = "http://localhost:0"
	cfg.Upstream.TimeoutSeconds = 5
	cfg.Upstream.RetryMax = 0
	cfg.Session.Secret = "test-session-secret"
	return cfg
}
