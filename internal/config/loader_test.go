package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr string
		checkFn func(t *testing.T, cfg *Config)
	}{
		{
			name: "empty config gets defaults",
			yaml: "{}\n",
			checkFn: func(t *testing.T, cfg *Config) {
				if cfg.Service.Name != "paykit" || cfg.Service.LogLevel != "info" || cfg.Service.LogFormat != "json" {
					t.Errorf("service defaults not applied: %+v", cfg.Service)
				}
				if cfg.API.Timeouts.Connect != 30*time.Second || cfg.API.Timeouts.Read != 30*time.Second || cfg.API.Timeouts.Write != 30*time.Second {
					t.Errorf("timeout defaults not applied: %+v", cfg.API.Timeouts)
				}
				if cfg.Webhook != nil {
					t.Error("webhook should stay nil when not configured")
				}
			},
		},
		{
			name: "full config with env interpolation",
			yaml: `
service:
  name: billing
  log_level: debug
  log_format: text
api:
  base_url: https://api.example-pay.com
  api_key: ${PAYKIT_TEST_API_KEY}
  timeouts:
    connect: 5s
    read: 10s
    write: 15s
webhook:
  listen: 0.0.0.0:9000
  secret: ${PAYKIT_TEST_SECRET}
  tolerance: 5m
`,
			env: map[string]string{"PAYKIT_TEST_API_KEY": "sk_live_1", "PAYKIT_TEST_SECRET": "whsec_1"},
			checkFn: func(t *testing.T, cfg *Config) {
				if cfg.API.APIKey != "sk_live_1" {
					t.Errorf("api_key = %q", cfg.API.APIKey)
				}
				if cfg.API.Timeouts.Read != 10*time.Second {
					t.Errorf("read timeout = %v", cfg.API.Timeouts.Read)
				}
				wh := cfg.Webhook
				if wh == nil {
					t.Fatal("webhook not parsed")
				}
				if wh.Secret != "whsec_1" || wh.Listen != "0.0.0.0:9000" || wh.Tolerance != 5*time.Minute {
					t.Errorf("webhook = %+v", wh)
				}
				if wh.Path != "/webhook" || wh.SignatureHeader != "Webhook-Signature" || wh.MaxBodySize != "1MB" {
					t.Errorf("webhook defaults not applied: %+v", wh)
				}
			},
		},
		{
			name:    "unresolved api key",
			yaml:    "api:\n  api_key: ${PAYKIT_TEST_UNSET_KEY}\n",
			wantErr: "PAYKIT_TEST_UNSET_KEY",
		},
		{
			name:    "unresolved webhook secret",
			yaml:    "webhook:\n  secret: ${PAYKIT_TEST_UNSET_SECRET}\n",
			wantErr: "PAYKIT_TEST_UNSET_SECRET",
		},
		{
			name:    "webhook without secret",
			yaml:    "webhook:\n  listen: 127.0.0.1:8081\n",
			wantErr: "webhook.secret is required",
		},
		{
			name:    "relative webhook path",
			yaml:    "webhook:\n  secret: s\n  path: hooks\n",
			wantErr: "webhook.path",
		},
		{
			name:    "bad log level",
			yaml:    "service:\n  log_level: loud\n",
			wantErr: "service.log_level",
		},
		{
			name:    "bad log format",
			yaml:    "service:\n  log_format: xml\n",
			wantErr: "service.log_format",
		},
		{
			name:    "relative base url",
			yaml:    "api:\n  base_url: api.example-pay.com\n",
			wantErr: "api.base_url",
		},
		{
			name:    "negative tolerance",
			yaml:    "webhook:\n  secret: s\n  tolerance: -1s\n",
			wantErr: "webhook.tolerance",
		},
		{
			name:    "invalid yaml",
			yaml:    "service: [unclosed\n",
			wantErr: "failed to parse config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := writeConfig(t, t.TempDir(), tt.yaml)

			cfg, err := Load(path)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Load() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() failed: %v", err)
			}
			if cfg.Path != path {
				t.Errorf("Path = %q, want %q", cfg.Path, path)
			}
			if tt.checkFn != nil {
				tt.checkFn(t, cfg)
			}
		})
	}
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "service:\n  name: fromdir\n")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load(dir) failed: %v", err)
	}
	if cfg.Service.Name != "fromdir" {
		t.Errorf("name = %q", cfg.Service.Name)
	}

	if _, err := Load(t.TempDir()); err == nil {
		t.Error("expected error for directory without config.yaml")
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadDotEnv(t *testing.T) {
	const key = "PAYKIT_TEST_DOTENV_SECRET"
	t.Cleanup(func() { os.Unsetenv(key) })

	dir := t.TempDir()
	writeConfig(t, dir, "webhook:\n  secret: ${"+key+"}\n")
	if err := os.WriteFile(filepath.Join(dir, DotEnvFile), []byte(key+"=whsec_from_dotenv\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Webhook.Secret != "whsec_from_dotenv" {
		t.Errorf("secret = %q", cfg.Webhook.Secret)
	}
}

func TestLoadDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	const key = "PAYKIT_TEST_DOTENV_PRECEDENCE"
	t.Setenv(key, "from_env")

	dir := t.TempDir()
	writeConfig(t, dir, "webhook:\n  secret: ${"+key+"}\n")
	if err := os.WriteFile(filepath.Join(dir, DotEnvFile), []byte(key+"=from_file\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Webhook.Secret != "from_env" {
		t.Errorf("secret = %q, want from_env", cfg.Webhook.Secret)
	}
}

func TestLoadVerifiesChecksums(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "service:\n  name: locked\n")

	if _, err := GenerateChecksums(dir, LockedFiles(path), false); err != nil {
		t.Fatalf("GenerateChecksums() failed: %v", err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("Load() of locked config failed: %v", err)
	}

	writeConfig(t, dir, "service:\n  name: tampered\n")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "config verification failed") {
		t.Fatalf("Load() error = %v, want verification failure", err)
	}
}

func TestLoadRequiresHashForNewDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "service:\n  name: locked\n")
	if _, err := GenerateChecksums(dir, LockedFiles(path), false); err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() { os.Unsetenv("PAYKIT_TEST_LATE") })
	if err := os.WriteFile(filepath.Join(dir, DotEnvFile), []byte("PAYKIT_TEST_LATE=1\n"), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "has no hash") {
		t.Fatalf("Load() error = %v, want missing hash", err)
	}
}

func TestInterpolateEnv(t *testing.T) {
	t.Setenv("PAYKIT_TEST_SET", "value")

	got := interpolateEnv("a=${PAYKIT_TEST_SET} b=${PAYKIT_TEST_NOT_SET_ANYWHERE} c=$PAYKIT_TEST_SET")
	want := "a=value b=${PAYKIT_TEST_NOT_SET_ANYWHERE} c=$PAYKIT_TEST_SET"
	if got != want {
		t.Errorf("interpolateEnv() = %q, want %q", got, want)
	}
}
