package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/me/jejakliqo/internal/storage"
)

// isolate points HOME at an empty directory and clears variables that would
// leak into Load.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, k := range []string{"VITE_API_URL", "JEJAKLIQO_API_BASE_URL", "JEJAKLIQO_STORAGE_BACKEND", "JEJAKLIQO_LOG_LEVEL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	d := Default()
	if cfg.API.BaseURL != d.API.BaseURL || cfg.API.Timeout != 15*time.Second || cfg.API.UploadTimeout != 30*time.Second {
		t.Errorf("api = %+v", cfg.API)
	}
	if cfg.Auth.MaxRetries != 2 || cfg.Auth.FirstTimeout != 15*time.Second || cfg.Auth.RetryTimeout != 10*time.Second {
		t.Errorf("auth = %+v", cfg.Auth)
	}
	if len(cfg.Auth.MaintenanceSignatures) != 1 {
		t.Errorf("signatures = %v", cfg.Auth.MaintenanceSignatures)
	}
	if cfg.Storage.Backend != storage.BackendFile {
		t.Errorf("backend = %q", cfg.Storage.Backend)
	}
}

func TestLoad_File(t *testing.T) {
	isolate(t)
	p := writeFile(t, `
api:
  base_url: https://api.jejakliqo.id/api
  timeout: 20s
auth:
  max_retries: 4
  maintenance_signatures:
    - "Attempt to read property"
    - "SQLSTATE[HY000] [2002]"
storage:
  backend: sqlite
  path: /tmp/session.db
log:
  level: debug
  format: json
`)

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != "https://api.jejakliqo.id/api" || cfg.API.Timeout != 20*time.Second {
		t.Errorf("api = %+v", cfg.API)
	}
	if cfg.API.UploadTimeout != 30*time.Second {
		t.Errorf("upload timeout lost its default: %v", cfg.API.UploadTimeout)
	}
	if cfg.Auth.MaxRetries != 4 || len(cfg.Auth.MaintenanceSignatures) != 2 {
		t.Errorf("auth = %+v", cfg.Auth)
	}
	so := cfg.StorageOptions()
	if so.Backend != storage.BackendSQLite || so.Path != "/tmp/session.db" {
		t.Errorf("storage options = %+v", so)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("log = %+v", cfg.Log)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	isolate(t)
	p := writeFile(t, "api:\n  base_url: https://file.example/api\n")
	t.Setenv("JEJAKLIQO_API_BASE_URL", "https://env.example/api")
	t.Setenv("JEJAKLIQO_API_TIMEOUT", "5s")
	t.Setenv("JEJAKLIQO_STORAGE_REDIS_DB", "3")

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != "https://env.example/api" {
		t.Errorf("base url = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 5*time.Second {
		t.Errorf("timeout = %v", cfg.API.Timeout)
	}
	if cfg.Storage.Redis.DB != 3 {
		t.Errorf("redis db = %d", cfg.Storage.Redis.DB)
	}
}

func TestLoad_ViteAPIURL(t *testing.T) {
	isolate(t)
	t.Setenv("VITE_API_URL", "https://vite.example/api")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != "https://vite.example/api" {
		t.Errorf("base url = %q", cfg.API.BaseURL)
	}
	if got := cfg.ClientConfig().BaseURL; got != "https://vite.example/api" {
		t.Errorf("client base url = %q", got)
	}
}

func TestLoad_DefaultPathFile(t *testing.T) {
	isolate(t)
	home := os.Getenv("HOME")
	if err := os.MkdirAll(filepath.Join(home, ".jejakliqo"), 0o700); err != nil {
		t.Fatal(err)
	}
	body := []byte("storage:\n  backend: memory\n")
	if err := os.WriteFile(filepath.Join(home, ".jejakliqo", "config.yaml"), body, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Backend != storage.BackendMemory {
		t.Errorf("backend = %q", cfg.Storage.Backend)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoad_Invalid(t *testing.T) {
	isolate(t)
	p := writeFile(t, "storage:\n  backend: etcd\n")
	_, err := Load(p)
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"relative base url", func(c *Config) { c.API.BaseURL = "/api" }, false},
		{"ftp base url", func(c *Config) { c.API.BaseURL = "ftp://x/api" }, false},
		{"negative retries", func(c *Config) { c.Auth.MaxRetries = -1 }, false},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, false},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, false},
		{"redis backend", func(c *Config) { c.Storage.Backend = storage.BackendRedis }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestConversions(t *testing.T) {
	cfg := Default()
	cfg.API.AssetURL = "https://cdn.example"
	cfg.Auth.RetryDelay = 3 * time.Second

	cc := cfg.ClientConfig()
	if cc.AssetBaseURL != "https://cdn.example" || cc.RedirectDelay != 2*time.Second {
		t.Errorf("client config = %+v", cc)
	}
	lo := cfg.LoginOptions()
	if lo.RetryDelay != 3*time.Second || lo.MaxRetries != 2 {
		t.Errorf("login options = %+v", lo)
	}
}
