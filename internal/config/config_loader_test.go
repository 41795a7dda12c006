package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) string {
	return func(key string) string { return m[key] }
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestNewConfigIsValid(t *testing.T) {
	cfg := NewConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
	if cfg.Winnipeg.APIKeyFile != "txt/api.txt" {
		t.Errorf("unexpected default key file %q", cfg.Winnipeg.APIKeyFile)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("unexpected default timeout %v", cfg.Timeout)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		path := writeTempFile(t, "config.yaml", `
port: 8080
env: production
provider: oba
timeout: 5s
oba:
  base_url: https://api.pugetsound.onebusaway.org
  api_key: test-key
  timezone: America/Los_Angeles
gtfs:
  refresh_interval: 24h
`)
		cfg := NewConfig()
		if err := LoadConfigFromFile(path, cfg); err != nil {
			t.Fatalf("LoadConfigFromFile failed: %v", err)
		}
		if err := cfg.Validate(); err != nil {
			t.Fatalf("Validate failed: %v", err)
		}

		if cfg.Port != 8080 || cfg.Env != "production" || cfg.Provider != ProviderOBA {
			t.Errorf("unexpected top-level settings %+v", cfg)
		}
		if cfg.Timeout != 5*time.Second {
			t.Errorf("expected 5s timeout, got %v", cfg.Timeout)
		}
		if cfg.OBA.APIKey != "test-key" || cfg.OBA.Timezone != "America/Los_Angeles" {
			t.Errorf("unexpected oba settings %+v", cfg.OBA)
		}
		if cfg.GTFS.RefreshInterval != 24*time.Hour {
			t.Errorf("expected 24h refresh, got %v", cfg.GTFS.RefreshInterval)
		}
		if cfg.GTFS.CacheDir != "cache" {
			t.Errorf("expected default cache dir, got %q", cfg.GTFS.CacheDir)
		}
		// not in the file, so the default survives
		if cfg.Winnipeg.BaseURL != "https://api.winnipegtransit.com/v4" {
			t.Errorf("expected default base URL, got %q", cfg.Winnipeg.BaseURL)
		}
	})

	t.Run("InvalidYAML", func(t *testing.T) {
		path := writeTempFile(t, "config.yaml", "port: [8080")
		if err := LoadConfigFromFile(path, NewConfig()); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})

	t.Run("MissingFile", func(t *testing.T) {
		err := LoadConfigFromFile(filepath.Join(t.TempDir(), "nope.yaml"), NewConfig())
		if err == nil || !strings.Contains(err.Error(), "failed to read config file") {
			t.Errorf("expected read error, got %v", err)
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"unknown provider", func(c *Config) { c.Provider = "tfl" }, "Provider"},
		{"unknown env", func(c *Config) { c.Env = "qa" }, "Env"},
		{"port out of range", func(c *Config) { c.Port = 70000 }, "Port"},
		{"bad base url", func(c *Config) { c.Winnipeg.BaseURL = "not a url" }, "BaseURL"},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, "Timeout"},
		{"bad timezone", func(c *Config) { c.OBA.Timezone = "Mars/Olympus" }, "Timezone"},
		{"oba without base url", func(c *Config) { c.Provider = ProviderOBA }, "oba.base_url"},
		{"gtfs without bundle", func(c *Config) { c.Provider = ProviderGTFS }, "gtfs.bundle"},
		{"gtfs with bundle", func(c *Config) {
			c.Provider = ProviderGTFS
			c.GTFS.Bundle = "data/gtfs.zip"
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := NewConfig()
	err := ApplyEnv(cfg, envMap(map[string]string{
		"TRANSIT_ENV":          "staging",
		"TRANSIT_PROVIDER":     "gtfs",
		"TRANSIT_PORT":         "9000",
		"TRANSIT_TIMEOUT":      "3s",
		"TRANSIT_BASE_URL":     "http://localhost:8081/v4",
		"TRANSIT_API_KEY_FILE": "/etc/transit/key",
		"OBA_BASE_URL":         "https://oba.example.com",
		"OBA_API_KEY":          "oba-key",
		"GTFS_BUNDLE":          "https://example.com/gtfs.zip",
	}))
	if err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}

	if cfg.Env != "staging" || cfg.Provider != "gtfs" || cfg.Port != 9000 || cfg.Timeout != 3*time.Second {
		t.Errorf("unexpected top-level settings %+v", cfg)
	}
	if cfg.Winnipeg.BaseURL != "http://localhost:8081/v4" || cfg.Winnipeg.APIKeyFile != "/etc/transit/key" {
		t.Errorf("unexpected winnipeg settings %+v", cfg.Winnipeg)
	}
	if cfg.OBA.BaseURL != "https://oba.example.com" || cfg.OBA.APIKey != "oba-key" {
		t.Errorf("unexpected oba settings %+v", cfg.OBA)
	}
	if cfg.GTFS.Bundle != "https://example.com/gtfs.zip" {
		t.Errorf("unexpected bundle %q", cfg.GTFS.Bundle)
	}

	t.Run("InvalidPort", func(t *testing.T) {
		if err := ApplyEnv(NewConfig(), envMap(map[string]string{"TRANSIT_PORT": "eighty"})); err == nil {
			t.Error("expected error for non-numeric port")
		}
	})

	t.Run("InvalidTimeout", func(t *testing.T) {
		if err := ApplyEnv(NewConfig(), envMap(map[string]string{"TRANSIT_TIMEOUT": "10"})); err == nil {
			t.Error("expected error for duration without unit")
		}
	})
}

func TestValidateConfigFlags(t *testing.T) {
	tests := []struct {
		name        string
		serve       bool
		search      string
		schedule    string
		args        []string
		expectError bool
	}{
		{name: "interactive", expectError: false},
		{name: "search only", search: "Main", expectError: false},
		{name: "schedule only", schedule: "10758", expectError: false},
		{name: "serve only", serve: true, expectError: false},
		{name: "search and schedule", search: "Main", schedule: "10758", expectError: true},
		{name: "serve with search", serve: true, search: "Main", expectError: true},
		{name: "stray argument", args: []string{"extra"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfigFlags(tt.serve, tt.search, tt.schedule, tt.args)
			if (err != nil) != tt.expectError {
				t.Errorf("expected error: %v, got: %v", tt.expectError, err)
			}
		})
	}
}

func TestLoadAPIKey(t *testing.T) {
	t.Run("trims file content", func(t *testing.T) {
		path := writeTempFile(t, "api.txt", "  abc123\n")
		key, err := LoadAPIKey(path, envMap(nil))
		if err != nil {
			t.Fatalf("LoadAPIKey failed: %v", err)
		}
		if key != "abc123" {
			t.Errorf("expected trimmed key, got %q", key)
		}
	})

	t.Run("environment wins", func(t *testing.T) {
		path := writeTempFile(t, "api.txt", "from-file")
		key, err := LoadAPIKey(path, envMap(map[string]string{"TRANSIT_API_KEY": "from-env"}))
		if err != nil || key != "from-env" {
			t.Errorf("expected from-env, got %q (%v)", key, err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		key, err := LoadAPIKey(filepath.Join(t.TempDir(), "api.txt"), envMap(nil))
		if !errors.Is(err, ErrAPIKeyFileMissing) {
			t.Fatalf("expected ErrAPIKeyFileMissing, got %v", err)
		}
		if key != "" {
			t.Errorf("expected empty key, got %q", key)
		}
	})

	t.Run("path is a directory", func(t *testing.T) {
		_, err := LoadAPIKey(t.TempDir(), envMap(nil))
		if err == nil || errors.Is(err, ErrAPIKeyFileMissing) {
			t.Errorf("expected a read error, got %v", err)
		}
	})
}
