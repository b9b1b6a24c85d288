package blog

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Body formats. Bodies are emitted as HTML in both cases; markdown bodies
// are converted first.
const (
	BodyHTML     = "html"
	BodyMarkdown = "markdown"
)

const defaultQueryTimeout = 5 * time.Second

// SiteConfig holds all configuration for the blog server.
type SiteConfig struct {
	Name string // Site name shown in page titles (default "Blog")
	Addr string // Listen address (default "127.0.0.1:3000")

	DatabaseURL    string        // Required: postgres URL or SQLite path
	DatabaseDriver string        // "postgres" or "sqlite" (inferred from DatabaseURL)
	MaxOpenConns   int           // Pool size (default 5)
	QueryTimeout   time.Duration // Per query deadline (default 5s)

	StaticDir  string // Directory served under /static (default "static")
	BodyFormat string // "html" or "markdown" (default "html")

	LogLevel  string  // logrus level (default "info")
	LogFormat string  // "text" or "json" (default "text")
	RateLimit float64 // Requests per second per client IP, 0 disables

	PprofEnabled    bool          // Mount /debug/pprof
	GopsEnabled     bool          // Start the gops diagnostics agent
	ShutdownTimeout time.Duration // Grace period on shutdown (default 10s)
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	if c.Addr == "" {
		c.Addr = "127.0.0.1:3000"
	}
	if c.DatabaseDriver == "" {
		c.DatabaseDriver = driverFor(c.DatabaseURL)
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 5
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = defaultQueryTimeout
	}
	if c.StaticDir == "" {
		c.StaticDir = "static"
	}
	if c.BodyFormat == "" {
		c.BodyFormat = BodyHTML
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}

func (c SiteConfig) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("blog: DATABASE_URL is required")
	}
	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("blog: unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	switch c.BodyFormat {
	case BodyHTML, BodyMarkdown:
	default:
		return fmt.Errorf("blog: unsupported BODY_FORMAT %q", c.BodyFormat)
	}
	return nil
}

func driverFor(url string) string {
	lower := strings.ToLower(url)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") ||
		strings.Contains(lower, "host=") || strings.Contains(lower, "dbname=") {
		return DriverPostgres
	}
	return DriverSQLite
}

// LoadConfig reads the configuration from the environment, optionally
// layered over a config file. With an empty path a .env file in the working
// directory is used when present.
func LoadConfig(path string) (SiteConfig, error) {
	v := viper.New()
	v.SetDefault("site_name", "Blog")
	v.SetDefault("addr", "127.0.0.1:3000")
	v.SetDefault("max_open_conns", 5)
	v.SetDefault("query_timeout", defaultQueryTimeout)
	v.SetDefault("static_dir", "static")
	v.SetDefault("body_format", BodyHTML)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return SiteConfig{}, fmt.Errorf("blog: read config %s: %w", path, err)
		}
	} else {
		v.SetConfigFile(".env")
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return SiteConfig{}, fmt.Errorf("blog: read .env: %w", err)
		}
	}

	cfg := SiteConfig{
		Name:            v.GetString("site_name"),
		Addr:            v.GetString("addr"),
		DatabaseURL:     v.GetString("database_url"),
		DatabaseDriver:  v.GetString("database_driver"),
		MaxOpenConns:    v.GetInt("max_open_conns"),
		QueryTimeout:    v.GetDuration("query_timeout"),
		StaticDir:       v.GetString("static_dir"),
		BodyFormat:      strings.ToLower(v.GetString("body_format")),
		LogLevel:        v.GetString("log_level"),
		LogFormat:       v.GetString("log_format"),
		RateLimit:       v.GetFloat64("rate_limit"),
		PprofEnabled:    v.GetBool("pprof_enabled"),
		GopsEnabled:     v.GetBool("gops_enabled"),
		ShutdownTimeout: v.GetDuration("shutdown_timeout"),
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return SiteConfig{}, err
	}
	return cfg, nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithLogger replaces the default logrus logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(a *App) {
		a.log = l
	}
}

// WithStaticDir sets the directory served under /static.
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithViews replaces the built-in page components. Nil fields keep the
// built-in ones.
func WithViews(v ViewFuncs) Option {
	return func(a *App) {
		a.Views = v
	}
}
