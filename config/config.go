package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Postgres holds the discrete connection settings used when DATABASE_URL is
// not set.
type Postgres struct {
	User     string `env:"user"`
	Password string `env:"password"`
	Host     string `env:"host"`
	Port     string `env:"port" envDefault:"5432"`
	DBName   string `env:"dbname"`
	SSLMode  string `env:"sslmode" envDefault:"require"`
}

type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"file"`
	DataDir     string `env:"DATA_DIR" envDefault:"./data"`
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"./data/vault.db"`
	Postgres    Postgres

	AdminPassword string        `env:"ADMIN_PASSWORD" envDefault:"risk"`
	SessionSecret string        `env:"SESSION_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"12h"`

	ContactEmail   string `env:"CONTACT_EMAIL" envDefault:"contact@safalll.com"`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`
	AllowedOrigin  string `env:"ALLOWED_ORIGIN" envDefault:"*"`
}

// Load reads an optional .env file and then parses the process environment.
// It reports whether a .env file was found so the caller can log it once the
// logger is configured.
func Load() (Config, bool, error) {
	loaded := godotenv.Load() == nil

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, loaded, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return Config{}, loaded, err
	}
	return cfg, loaded, nil
}

func (c *Config) normalize() error {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	switch c.StoreDriver {
	case DriverFile, DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}

	if c.AdminPassword == "" {
		return fmt.Errorf("ADMIN_PASSWORD must not be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}

	// Without a configured secret every restart invalidates admin sessions,
	// which matches the session-local admin mode.
	if strings.TrimSpace(c.SessionSecret) == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return fmt.Errorf("generate session secret: %w", err)
		}
		c.SessionSecret = hex.EncodeToString(b)
	}
	return nil
}

// PostgresDSN returns DATABASE_URL or builds one from the discrete settings.
func (c Config) PostgresDSN() string {
	if dsn := strings.TrimSpace(c.DatabaseURL); dsn != "" {
		return dsn
	}
	p := c.Postgres
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(strings.TrimSpace(p.User), strings.TrimSpace(p.Password)),
		Host:     net.JoinHostPort(strings.TrimSpace(p.Host), strings.TrimSpace(p.Port)),
		Path:     "/" + strings.TrimSpace(p.DBName),
		RawQuery: url.Values{"sslmode": {p.SSLMode}}.Encode(),
	}
	return u.String()
}
