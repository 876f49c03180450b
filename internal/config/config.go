package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/bloomfi/internal/common"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// EnvPrefix is prepended to every environment override (BLOOMFI_DATABASE_PATH, ...).
const EnvPrefix = "BLOOMFI"

// Config is the fully resolved application configuration.
type Config struct {
	Logging  Logging
	Database Database
	Server   Server
	Auth     Auth
	Ledger   Ledger
}

// Logging controls the slog handler.
type Logging struct {
	Level  string
	Format string
}

// Database selects and locates the backing store.
type Database struct {
	Driver string
	Path   string
	DSN    string
}

// Server configures the HTTP listener.
type Server struct {
	Addr         string
	CertDir      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// TLS serves HTTPS with a self-signed localhost certificate kept in CertDir.
	TLS bool
}

// Auth holds token signing and CSRF cookie settings.
type Auth struct {
	JWTSecret        string
	TokenTTL         time.Duration
	CSRFCookieSecure bool
}

// Ledger tunes the transfer engine's optimistic retry loop.
type Ledger struct {
	MaxAttempts int
	RetryDelay  time.Duration
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", filepath.Join("~", ".local", "share", "bloomfi", "bloomfi.db"))
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.tls", false)
	v.SetDefault("server.cert_dir", filepath.Join("~", ".local", "share", "bloomfi", "certs"))
	v.SetDefault("auth.token_ttl", 30*time.Minute)
	v.SetDefault("auth.csrf_cookie_secure", true)
	v.SetDefault("ledger.max_attempts", 3)
	v.SetDefault("ledger.retry_delay", 10*time.Millisecond)
}

// BindEnv wires BLOOMFI_* environment variables into v.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load resolves a Config from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Logging: Logging{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Database: Database{
			Driver: strings.ToLower(v.GetString("database.driver")),
			Path:   ExpandPath(v.GetString("database.path")),
			DSN:    v.GetString("database.dsn"),
		},
		Server: Server{
			Addr:         v.GetString("server.addr"),
			ReadTimeout:  v.GetDuration("server.read_timeout"),
			WriteTimeout: v.GetDuration("server.write_timeout"),
			TLS:          v.GetBool("server.tls"),
			CertDir:      ExpandPath(v.GetString("server.cert_dir")),
		},
		Auth: Auth{
			JWTSecret:        v.GetString("auth.jwt_secret"),
			TokenTTL:         v.GetDuration("auth.token_ttl"),
			CSRFCookieSecure: v.GetBool("auth.csrf_cookie_secure"),
		},
		Ledger: Ledger{
			MaxAttempts: v.GetInt("ledger.max_attempts"),
			RetryDelay:  v.GetDuration("ledger.retry_delay"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that every command depends on.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("%w: database.path", common.ErrMissingConfig)
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("%w: database.dsn is required for the postgres driver", common.ErrMissingConfig)
		}
	default:
		return fmt.Errorf("%w: unknown database.driver %q", common.ErrInvalidConfig, c.Database.Driver)
	}

	if c.Ledger.MaxAttempts < 1 {
		return fmt.Errorf("%w: ledger.max_attempts must be at least 1", common.ErrInvalidConfig)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("%w: auth.token_ttl must be positive", common.ErrInvalidConfig)
	}
	return nil
}

// RequireSecret reports whether a JWT secret is configured. Only commands that
// sign or verify tokens call it.
func (c *Config) RequireSecret() error {
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("%w: auth.jwt_secret must be at least 16 bytes", common.ErrMissingConfig)
	}
	return nil
}
