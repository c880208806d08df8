package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// DotEnvFile is loaded from the config directory before interpolation.
const DotEnvFile = ".env"

// Load reads and parses configuration from a file, or from config.yaml when
// configPath is a directory.
func Load(configPath string) (*Config, error) {
	absPath, err := ResolvePath(configPath)
	if err != nil {
		return nil, err
	}
	configDir := filepath.Dir(absPath)

	// Variables already in the environment win over .env entries.
	if err := loadDotEnv(configDir); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", absPath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(interpolateEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", absPath, err)
	}
	cfg.Path = absPath

	applyConfigDefaults(&cfg)

	if err := verifyConfigHashes(configDir, LockedFiles(absPath)); err != nil {
		return nil, err
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// ResolvePath returns the absolute config file path for configPath.
func ResolvePath(configPath string) (string, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}

	if info.IsDir() {
		absPath = filepath.Join(absPath, "config.yaml")
		if _, err := os.Stat(absPath); err != nil {
			return "", fmt.Errorf("directory provided but config.yaml not found: %s", absPath)
		}
	}
	return absPath, nil
}

// LockedFiles lists the basenames covered by .checksums for a config file:
// the file itself and, when present, the .env beside it.
func LockedFiles(absPath string) []string {
	files := []string{filepath.Base(absPath)}
	if _, err := os.Stat(filepath.Join(filepath.Dir(absPath), DotEnvFile)); err == nil {
		files = append(files, DotEnvFile)
	}
	return files
}

func loadDotEnv(dir string) error {
	path := filepath.Join(dir, DotEnvFile)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// verifyConfigHashes checks files against .checksums in dir. A missing
// manifest skips verification.
func verifyConfigHashes(dir string, files []string) error {
	checksums, err := LoadChecksums(dir)
	if err != nil {
		if errors.Is(err, ErrNoChecksums) {
			return nil
		}
		return err
	}

	for _, name := range files {
		expectedHash, ok := checksums.Hashes[name]
		if !ok {
			return fmt.Errorf("config file %s has no hash in checksums at %s\n"+
				"Run: paykit config lock --config %s", name, dir, dir)
		}

		if err := VerifyFileHash(filepath.Join(dir, name), expectedHash); err != nil {
			return fmt.Errorf("config verification failed for %s: %w\n"+
				"This indicates tampering or unauthorized modification.\n"+
				"If you edited this file intentionally, run: paykit config lock --config %s", name, err, dir)
		}
	}

	return nil
}

func applyConfigDefaults(cfg *Config) {
	defaults := Defaults()

	if cfg.Service.Name == "" {
		cfg.Service.Name = defaults.Service.Name
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = defaults.Service.LogLevel
	}
	if cfg.Service.LogFormat == "" {
		cfg.Service.LogFormat = defaults.Service.LogFormat
	}

	if cfg.API.Timeouts.Connect == 0 {
		cfg.API.Timeouts.Connect = defaults.API.Timeouts.Connect
	}
	if cfg.API.Timeouts.Read == 0 {
		cfg.API.Timeouts.Read = defaults.API.Timeouts.Read
	}
	if cfg.API.Timeouts.Write == 0 {
		cfg.API.Timeouts.Write = defaults.API.Timeouts.Write
	}

	if cfg.Webhook != nil {
		wd := DefaultWebhookConfig()
		if cfg.Webhook.Listen == "" {
			cfg.Webhook.Listen = wd.Listen
		}
		if cfg.Webhook.Path == "" {
			cfg.Webhook.Path = wd.Path
		}
		if cfg.Webhook.SignatureHeader == "" {
			cfg.Webhook.SignatureHeader = wd.SignatureHeader
		}
		if cfg.Webhook.MaxBodySize == "" {
			cfg.Webhook.MaxBodySize = wd.MaxBodySize
		}
	}
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Undefined variables are left as-is (not expanded).
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]

		if value, exists := os.LookupEnv(varName); exists {
			return value
		}

		// If not found, leave the placeholder (will fail validation if required)
		return match
	})
}

// validate performs basic validation on the configuration.
func validate(cfg *Config) error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Service.LogLevel] {
		return fmt.Errorf("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}
	if cfg.Service.LogFormat != "json" && cfg.Service.LogFormat != "text" {
		return fmt.Errorf("service.log_format must be json or text (got %q)", cfg.Service.LogFormat)
	}

	if cfg.API.BaseURL != "" {
		u, err := url.Parse(cfg.API.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("api.base_url must be an absolute http(s) URL (got %q)", cfg.API.BaseURL)
		}
	}
	if err := checkUnresolved("api.api_key", cfg.API.APIKey); err != nil {
		return err
	}
	t := cfg.API.Timeouts
	if t.Connect < 0 || t.Read < 0 || t.Write < 0 {
		return fmt.Errorf("api.timeouts must not be negative")
	}

	if wh := cfg.Webhook; wh != nil {
		if wh.Secret == "" {
			return fmt.Errorf("webhook.secret is required")
		}
		if err := checkUnresolved("webhook.secret", wh.Secret); err != nil {
			return err
		}
		if wh.Path[0] != '/' {
			return fmt.Errorf("webhook.path must start with / (got %q)", wh.Path)
		}
		if wh.Tolerance < 0 {
			return fmt.Errorf("webhook.tolerance must not be negative")
		}
	}

	return nil
}

// checkUnresolved rejects a value still carrying a ${VAR} placeholder.
func checkUnresolved(field, value string) error {
	if matches := envVarPattern.FindStringSubmatch(value); len(matches) > 1 {
		return fmt.Errorf("%s: environment variable ${%s} is not set", field, matches[1])
	}
	return nil
}
