package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
logging:
  level: debug
rate_limit:
  interval_ms: 500
  exclude_updates: [" Command ", "contact"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run mode = %q, want %q", cfg.Telegram.RunMode, RunModeLongpoll)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("logging level = %q", cfg.Logging.Level)
	}
	want := []string{UpdateCommand, UpdateContact}
	for i, v := range want {
		if cfg.RateLimit.ExcludeUpdates[i] != v {
			t.Fatalf("exclude_updates[%d] = %q, want %q", i, cfg.RateLimit.ExcludeUpdates[i], v)
		}
	}
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "from-yaml"
  admin_id: 1
`)
	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("TELEGRAM_ADMIN_ID", "77")
	t.Setenv("LOG_FORMAT", "kv")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "from-env" {
		t.Fatalf("token = %q, want from-env", cfg.Telegram.Token)
	}
	if cfg.Telegram.AdminID != 77 {
		t.Fatalf("admin id = %d, want 77", cfg.Telegram.AdminID)
	}
	if cfg.Logging.Format != "kv" {
		t.Fatalf("format = %q, want kv", cfg.Logging.Format)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "missing token",
			cfg:     Config{},
			wantErr: "token is required",
		},
		{
			name:    "polling alias",
			cfg:     Config{Telegram: TelegramConfig{Token: "t", RunMode: "Polling"}},
			wantErr: "",
		},
		{
			name:    "webhook without url",
			cfg:     Config{Telegram: TelegramConfig{Token: "t", RunMode: "webhook"}},
			wantErr: "webhook.url",
		},
		{
			name: "webhook complete",
			cfg: Config{
				Telegram: TelegramConfig{Token: "t", RunMode: "webhook"},
				Webhook:  WebhookConfig{URL: "https://example.org/hook", Listen: "0.0.0.0", Port: 8443},
			},
			wantErr: "",
		},
		{
			name:    "unknown mode",
			cfg:     Config{Telegram: TelegramConfig{Token: "t", RunMode: "push"}},
			wantErr: "invalid telegram.run_mode",
		},
		{
			name:    "negative rate limit",
			cfg:     Config{Telegram: TelegramConfig{Token: "t"}, RateLimit: RateLimitConfig{IntervalMS: -1}},
			wantErr: "interval_ms",
		},
		{
			name:    "unknown exclusion",
			cfg:     Config{Telegram: TelegramConfig{Token: "t"}, RateLimit: RateLimitConfig{ExcludeUpdates: []string{"callback"}}},
			wantErr: "exclude_updates",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.cfg
			err := Normalize(&cfg)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error = %v, want substring %q", err, tc.wantErr)
			}
		})
	}
}

func TestNormalizeReportsEveryProblem(t *testing.T) {
	cfg := Config{
		Telegram:  TelegramConfig{RunMode: "webhook"},
		RateLimit: RateLimitConfig{IntervalMS: -5, ExcludeUpdates: []string{"", "Contact", "inline"}},
	}
	err := Normalize(&cfg)
	if err == nil {
		t.Fatal("expected errors")
	}
	for _, want := range []string{"token", "webhook.url", "webhook.listen", "webhook.port", "interval_ms", "inline"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("missing %q in %v", want, err)
		}
	}
	if len(cfg.RateLimit.ExcludeUpdates) != 1 || cfg.RateLimit.ExcludeUpdates[0] != UpdateContact {
		t.Fatalf("exclusions = %v", cfg.RateLimit.ExcludeUpdates)
	}
}

func TestNormalizeNil(t *testing.T) {
	if err := Normalize(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}
