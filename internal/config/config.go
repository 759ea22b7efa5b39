// Package config loads client, storage and reference-backend settings from
// defaults, an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/me/jejakliqo/internal/apiclient"
	"github.com/me/jejakliqo/internal/auth"
	"github.com/me/jejakliqo/internal/logging"
	"github.com/me/jejakliqo/internal/storage"
)

// EnvPrefix prefixes environment overrides, e.g. JEJAKLIQO_API_BASE_URL.
const EnvPrefix = "JEJAKLIQO"

// ErrInvalid is wrapped by Validate errors.
var ErrInvalid = errors.New("invalid configuration")

// APIConfig configures the backend connection.
type APIConfig struct {
	BaseURL       string        `mapstructure:"base_url" yaml:"base_url"`
	AssetURL      string        `mapstructure:"asset_url" yaml:"asset_url"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	UploadTimeout time.Duration `mapstructure:"upload_timeout" yaml:"upload_timeout"`
	RedirectDelay time.Duration `mapstructure:"redirect_delay" yaml:"redirect_delay"`
}

// AuthConfig configures the login retry policy.
type AuthConfig struct {
	MaxRetries            int           `mapstructure:"max_retries" yaml:"max_retries"`
	FirstTimeout          time.Duration `mapstructure:"first_timeout" yaml:"first_timeout"`
	RetryTimeout          time.Duration `mapstructure:"retry_timeout" yaml:"retry_timeout"`
	RetryDelay            time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
	MaintenanceSignatures []string      `mapstructure:"maintenance_signatures" yaml:"maintenance_signatures"`
}

// RedisConfig configures the redis storage backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Prefix   string `mapstructure:"prefix" yaml:"prefix"`
}

// StorageConfig selects where the session is persisted.
type StorageConfig struct {
	Backend string      `mapstructure:"backend" yaml:"backend"`
	Path    string      `mapstructure:"path" yaml:"path"`
	Redis   RedisConfig `mapstructure:"redis" yaml:"redis"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DevServerConfig configures the reference backend.
type DevServerConfig struct {
	Addr      string        `mapstructure:"addr" yaml:"addr"`
	JWTSecret string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
	Latency   time.Duration `mapstructure:"latency" yaml:"latency"`
}

// Config is the complete configuration.
type Config struct {
	API       APIConfig       `mapstructure:"api" yaml:"api"`
	Auth      AuthConfig      `mapstructure:"auth" yaml:"auth"`
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	DevServer DevServerConfig `mapstructure:"devserver" yaml:"devserver"`
}

// Default returns the built-in configuration.
func Default() Config {
	lo := auth.DefaultLoginOptions()
	return Config{
		API: APIConfig{
			BaseURL:       "http://localhost:8000/api",
			Timeout:       apiclient.DefaultTimeout,
			UploadTimeout: apiclient.DefaultUploadTimeout,
			RedirectDelay: apiclient.DefaultRedirectDelay,
		},
		Auth: AuthConfig{
			MaxRetries:            lo.MaxRetries,
			FirstTimeout:          lo.FirstTimeout,
			RetryTimeout:          lo.RetryTimeout,
			RetryDelay:            lo.RetryDelay,
			MaintenanceSignatures: lo.MaintenanceSignatures,
		},
		Storage: StorageConfig{
			Backend: storage.BackendFile,
			Redis: RedisConfig{
				Addr:   "127.0.0.1:6379",
				Prefix: storage.DefaultRedisPrefix,
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: logging.FormatText,
		},
		DevServer: DevServerConfig{
			Addr:      ":8000",
			JWTSecret: "jejakliqo-dev-secret",
			TokenTTL:  3 * time.Hour,
		},
	}
}

// DefaultPath returns ~/.jejakliqo/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".jejakliqo", "config.yaml")
	}
	return filepath.Join(home, ".jejakliqo", "config.yaml")
}

// Load reads the configuration. An empty path uses DefaultPath and tolerates
// its absence; an explicit path must exist. Environment variables override
// the file, and VITE_API_URL is accepted as the base URL.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())
	if err := v.BindEnv("api.base_url", EnvPrefix+"_API_BASE_URL", "VITE_API_URL"); err != nil {
		return nil, err
	}

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("load config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.asset_url", d.API.AssetURL)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.upload_timeout", d.API.UploadTimeout)
	v.SetDefault("api.redirect_delay", d.API.RedirectDelay)

	v.SetDefault("auth.max_retries", d.Auth.MaxRetries)
	v.SetDefault("auth.first_timeout", d.Auth.FirstTimeout)
	v.SetDefault("auth.retry_timeout", d.Auth.RetryTimeout)
	v.SetDefault("auth.retry_delay", d.Auth.RetryDelay)
	v.SetDefault("auth.maintenance_signatures", d.Auth.MaintenanceSignatures)

	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.redis.addr", d.Storage.Redis.Addr)
	v.SetDefault("storage.redis.password", d.Storage.Redis.Password)
	v.SetDefault("storage.redis.db", d.Storage.Redis.DB)
	v.SetDefault("storage.redis.prefix", d.Storage.Redis.Prefix)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("devserver.addr", d.DevServer.Addr)
	v.SetDefault("devserver.jwt_secret", d.DevServer.JWTSecret)
	v.SetDefault("devserver.token_ttl", d.DevServer.TokenTTL)
	v.SetDefault("devserver.latency", d.DevServer.Latency)
}

// Validate checks the values Load cannot type-check.
func (c Config) Validate() error {
	var errs []error
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("api.base_url %q must be an absolute http(s) URL", c.API.BaseURL))
	}
	switch c.Storage.Backend {
	case storage.BackendMemory, storage.BackendFile, storage.BackendSQLite, storage.BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q is not one of memory, file, sqlite, redis", c.Storage.Backend))
	}
	if c.Auth.MaxRetries < 0 {
		errs = append(errs, errors.New("auth.max_retries must not be negative"))
	}
	if _, err := logging.ParseLevelStrict(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if !logging.ValidFormat(c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format %q is not text or json", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// ClientConfig returns the apiclient settings.
func (c Config) ClientConfig() apiclient.Config {
	return apiclient.Config{
		BaseURL:       c.API.BaseURL,
		AssetBaseURL:  c.API.AssetURL,
		Timeout:       c.API.Timeout,
		UploadTimeout: c.API.UploadTimeout,
		RedirectDelay: c.API.RedirectDelay,
	}
}

// LoginOptions returns the login retry policy.
func (c Config) LoginOptions() auth.LoginOptions {
	return auth.LoginOptions{
		MaxRetries:            c.Auth.MaxRetries,
		FirstTimeout:          c.Auth.FirstTimeout,
		RetryTimeout:          c.Auth.RetryTimeout,
		RetryDelay:            c.Auth.RetryDelay,
		MaintenanceSignatures: c.Auth.MaintenanceSignatures,
	}
}

// StorageOptions returns the session store settings.
func (c Config) StorageOptions() storage.Options {
	return storage.Options{
		Backend:       c.Storage.Backend,
		Path:          c.Storage.Path,
		RedisAddr:     c.Storage.Redis.Addr,
		RedisPassword: c.Storage.Redis.Password,
		RedisDB:       c.Storage.Redis.DB,
		RedisPrefix:   c.Storage.Redis.Prefix,
	}
}
