// Package config loads trackreport settings from defaults, an optional YAML file, .env and the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultEnvFile = ".env"

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Server    ServerConfig    `mapstructure:"server"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Export    ExportConfig    `mapstructure:"export"`
	Client    ClientConfig    `mapstructure:"client"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	Timezone string `mapstructure:"timezone"`
}

// Location resolves the configured timezone, UTC when unset.
func (a AppConfig) Location() (*time.Location, error) {
	if a.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(a.Timezone)
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

type PostgresConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	DBName         string        `mapstructure:"db_name"`
	SSLMode        string        `mapstructure:"ssl_mode"`
	QueryTimeout   time.Duration `mapstructure:"query_timeout"`
	MigrateTimeout time.Duration `mapstructure:"migrate_timeout"`
	MaxConns       int32         `mapstructure:"max_conns"`
	MinConns       int32         `mapstructure:"min_conns"`
}

// DSN renders a libpq-style URL usable by both pgx and lib/pq.
func (p PostgresConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:     "/" + p.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(p.SSLMode),
	}
	return u.String()
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	JWTIssuer string        `mapstructure:"jwt_issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// ExportJob is one scheduled export.
type ExportJob struct {
	ProjectID string `mapstructure:"project_id"`
	OrgID     string `mapstructure:"org_id"`
	Type      string `mapstructure:"type"`
	Format    string `mapstructure:"format"`
	Days      int    `mapstructure:"days"`
}

type ExportConfig struct {
	OutputDir string      `mapstructure:"output_dir"`
	Schedule  string      `mapstructure:"schedule"`
	Jobs      []ExportJob `mapstructure:"jobs"`
}

type ClientConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Load reads configuration. file may be empty; the .env file is optional and never
// overrides variables already set in the environment.
func Load(file string) (*Config, error) {
	if envMap, err := godotenv.Read(defaultEnvFile); err == nil {
		for k, val := range envMap {
			if _, exists := os.LookupEnv(k); !exists {
				_ = os.Setenv(k, val)
			}
		}
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindEnvs(v)

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.timezone", "UTC")

	v.SetDefault("logging.level", "info")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.request_timeout", 30*time.Second)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "postgres")
	v.SetDefault("postgres.db_name", "trackreport")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.query_timeout", 5*time.Second)
	v.SetDefault("postgres.migrate_timeout", 30*time.Second)
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_issuer", "trackreport")
	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("ratelimit.rps", 5.0)
	v.SetDefault("ratelimit.burst", 10)

	v.SetDefault("export.output_dir", "reports")
	v.SetDefault("export.schedule", "")

	v.SetDefault("client.base_url", "http://localhost:8080")
	v.SetDefault("client.token", "")
	v.SetDefault("client.timeout", 30*time.Second)
}

func bindEnvs(v *viper.Viper) {
	keys := []string{
		"app.env",
		"app.timezone",
		"logging.level",
		"server.host",
		"server.port",
		"server.shutdown_timeout",
		"server.request_timeout",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.db_name",
		"postgres.ssl_mode",
		"postgres.query_timeout",
		"postgres.migrate_timeout",
		"postgres.max_conns",
		"postgres.min_conns",
		"auth.jwt_secret",
		"auth.jwt_issuer",
		"auth.token_ttl",
		"ratelimit.rps",
		"ratelimit.burst",
		"export.output_dir",
		"export.schedule",
		"client.base_url",
		"client.token",
		"client.timeout",
	}

	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}

// Validate checks the settings every command relies on. Server-only requirements are
// checked by ValidateServer.
func (c *Config) Validate() error {
	if _, err := c.App.Location(); err != nil {
		return fmt.Errorf("app.timezone: %w", err)
	}
	if c.Server.Port <= 0 {
		return errors.New("server.port is required")
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return errors.New("ratelimit.rps and ratelimit.burst must be positive")
	}
	if c.Export.OutputDir == "" {
		return errors.New("export.output_dir is required")
	}
	for i, job := range c.Export.Jobs {
		if job.ProjectID == "" || job.OrgID == "" {
			return fmt.Errorf("export.jobs[%d]: project_id and org_id are required", i)
		}
		if job.Days <= 0 {
			return fmt.Errorf("export.jobs[%d]: days must be positive", i)
		}
	}
	return nil
}

// ValidateServer checks what serve and migrate need on top of Validate.
func (c *Config) ValidateServer() error {
	if c.Postgres.User == "" || c.Postgres.DBName == "" || c.Postgres.Host == "" {
		return errors.New("postgres host, user and db_name are required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if len(c.Export.Jobs) > 0 && c.Export.Schedule == "" {
		return errors.New("export.schedule is required when export.jobs are configured")
	}
	return nil
}

func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// IsDev reports whether human-readable console logging is wanted.
func (c *Config) IsDev() bool {
	return c.App.Env == "" || c.App.Env == "dev" || c.App.Env == "development"
}
