package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
	"transittracker.app/internal/report"
	"transittracker.app/internal/utils"
)

// ErrAPIKeyFileMissing is returned by LoadAPIKey when the key file does not exist.
var ErrAPIKeyFileMissing = errors.New("API key file not found")

// ValidateConfigFlags checks the command line for conflicting choices:
// -serve runs the web board and cannot be combined with a console action,
// -search and -schedule are mutually exclusive, and stray positional
// arguments are rejected.
func ValidateConfigFlags(serve bool, search, schedule string, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %s", strings.Join(args, " "))
	}
	if search != "" && schedule != "" {
		return fmt.Errorf("only one of -search or -schedule can be specified")
	}
	if serve && (search != "" || schedule != "") {
		return fmt.Errorf("-serve cannot be combined with -search or -schedule")
	}
	return nil
}

// LoadConfigFromFile overlays the YAML file at filePath onto cfg.
// Settings missing from the file keep their current values.
func LoadConfigFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:  utils.MakeMap("file_path", filePath),
			Level: sentry.LevelError,
		})
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:  utils.MakeMap("file_path", filePath),
			Level: sentry.LevelError,
		})
		return fmt.Errorf("failed to unmarshal YAML: %w", err)
	}
	return nil
}

// ApplyEnv overrides cfg with TRANSIT_* environment variables. getenv is
// os.Getenv outside tests. Malformed numbers and durations are errors.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv("TRANSIT_ENV"); v != "" {
		cfg.Env = v
	}
	if v := getenv("TRANSIT_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := getenv("TRANSIT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid TRANSIT_PORT %q: %w", v, err)
		}
		cfg.Port = port
	}
	if v := getenv("TRANSIT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TRANSIT_TIMEOUT %q: %w", v, err)
		}
		cfg.Timeout = d
	}
	if v := getenv("TRANSIT_BASE_URL"); v != "" {
		cfg.Winnipeg.BaseURL = v
	}
	if v := getenv("TRANSIT_API_KEY_FILE"); v != "" {
		cfg.Winnipeg.APIKeyFile = v
	}
	if v := getenv("OBA_BASE_URL"); v != "" {
		cfg.OBA.BaseURL = v
	}
	if v := getenv("OBA_API_KEY"); v != "" {
		cfg.OBA.APIKey = v
	}
	if v := getenv("GTFS_BUNDLE"); v != "" {
		cfg.GTFS.Bundle = v
	}
	return nil
}

// Validate checks field constraints and the settings the chosen provider needs.
func (cfg *Config) Validate() error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	switch cfg.Provider {
	case ProviderOBA:
		if cfg.OBA.BaseURL == "" {
			return fmt.Errorf("invalid configuration: provider %q needs oba.base_url", cfg.Provider)
		}
	case ProviderGTFS:
		if cfg.GTFS.Bundle == "" {
			return fmt.Errorf("invalid configuration: provider %q needs gtfs.bundle", cfg.Provider)
		}
	}
	return nil
}

// LoadAPIKey resolves the Winnipeg API key. TRANSIT_API_KEY wins over the
// key file. A missing file returns ErrAPIKeyFileMissing with an empty key so
// the caller can warn and continue; the API then rejects the requests.
func LoadAPIKey(path string, getenv func(string) string) (string, error) {
	if v := strings.TrimSpace(getenv("TRANSIT_API_KEY")); v != "" {
		return v, nil
	}
	if path == "" {
		path = DefaultAPIKeyFile
	}
	// #nosec G304 -- path comes from operator configuration
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrAPIKeyFileMissing, path)
		}
		return "", fmt.Errorf("failed to read API key file %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}
