package config

import (
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var configEnvVars = []string{
	"TELEGRAM_TOKEN",
	"MINIFLUX_BASE_URL",
	"MINIFLUX_USERNAME",
	"MINIFLUX_PASSWORD",
	"MINIFLUX_API_KEY",
	"RSS_BRIDGE_URL",
	"ADMIN",
	"ACCEPT_CHANNELS_WITHOUT_USERNAME",
	"DATABASE_PATH",
	"LOG_LEVEL",
}

func TestLoad(t *testing.T) {
	baseEnv := map[string]string{
		"TELEGRAM_TOKEN":    "tok",
		"MINIFLUX_BASE_URL": "https://reader.example.com",
		"MINIFLUX_USERNAME": "admin",
		"MINIFLUX_PASSWORD": "secret",
		"RSS_BRIDGE_URL":    "https://bridge.example.com/rss/{channel}",
		"ADMIN":             "the_admin",
	}

	tests := []struct {
		name    string
		env     map[string]string
		drop    []string
		want    *Config
		wantErr bool
	}{
		{
			name: "minimal config with defaults",
			env:  baseEnv,
			want: &Config{
				TelegramToken:    "tok",
				MinifluxBaseURL:  "https://reader.example.com",
				MinifluxUsername: "admin",
				MinifluxPassword: "secret",
				BridgeURL:        "https://bridge.example.com/rss/{channel}",
				Admin:            "the_admin",
				DatabasePath:     "./data/bot.db",
				LogLevel:         "info",
			},
		},
		{
			name: "api key instead of password",
			env: map[string]string{
				"TELEGRAM_TOKEN":    "tok",
				"MINIFLUX_BASE_URL": "https://reader.example.com",
				"MINIFLUX_API_KEY":  "key-1",
				"RSS_BRIDGE_URL":    "https://bridge.example.com/rss",
				"ADMIN":             "the_admin",
			},
			want: &Config{
				TelegramToken:   "tok",
				MinifluxBaseURL: "https://reader.example.com",
				MinifluxAPIKey:  "key-1",
				BridgeURL:       "https://bridge.example.com/rss",
				Admin:           "the_admin",
				DatabasePath:    "./data/bot.db",
				LogLevel:        "info",
			},
		},
		{
			name: "all overrides",
			env: merge(baseEnv, map[string]string{
				"ACCEPT_CHANNELS_WITHOUT_USERNAME": "true",
				"DATABASE_PATH":                    "/tmp/bot.db",
				"LOG_LEVEL":                        "debug",
			}),
			want: &Config{
				TelegramToken:         "tok",
				MinifluxBaseURL:       "https://reader.example.com",
				MinifluxUsername:      "admin",
				MinifluxPassword:      "secret",
				BridgeURL:             "https://bridge.example.com/rss/{channel}",
				Admin:                 "the_admin",
				AcceptWithoutUsername: true,
				DatabasePath:          "/tmp/bot.db",
				LogLevel:              "debug",
			},
		},
		{
			name:    "missing token",
			env:     baseEnv,
			drop:    []string{"TELEGRAM_TOKEN"},
			wantErr: true,
		},
		{
			name:    "missing base url",
			env:     baseEnv,
			drop:    []string{"MINIFLUX_BASE_URL"},
			wantErr: true,
		},
		{
			name:    "missing credentials entirely",
			env:     baseEnv,
			drop:    []string{"MINIFLUX_USERNAME", "MINIFLUX_PASSWORD"},
			wantErr: true,
		},
		{
			name:    "username without password",
			env:     baseEnv,
			drop:    []string{"MINIFLUX_PASSWORD"},
			wantErr: true,
		},
		{
			name:    "missing admin",
			env:     baseEnv,
			drop:    []string{"ADMIN"},
			wantErr: true,
		},
		{
			name:    "missing bridge url",
			env:     baseEnv,
			drop:    []string{"RSS_BRIDGE_URL"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range configEnvVars {
				// t.Setenv registers the restore; unset so envconfig
				// sees the variable as absent, not empty.
				t.Setenv(key, "")
				os.Unsetenv(key)
			}
			dropped := map[string]bool{}
			for _, key := range tt.drop {
				dropped[key] = true
			}
			for k, v := range tt.env {
				if !dropped[k] {
					t.Setenv(k, v)
				}
			}

			got, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Load() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIsAdmin(t *testing.T) {
	cfg := &Config{Admin: "the_admin"}

	tests := []struct {
		name     string
		username string
		want     bool
	}{
		{"matching username", "the_admin", true},
		{"other username", "impostor", false},
		{"empty username", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.IsAdmin(tt.username); got != tt.want {
				t.Errorf("IsAdmin(%q) = %v, want %v", tt.username, got, tt.want)
			}
		})
	}
}

func TestIsAdminEmptyConfig(t *testing.T) {
	cfg := &Config{}
	if cfg.IsAdmin("") {
		t.Error("empty admin must never match the empty username")
	}
}

func merge(a, b map[string]string) map[string]string {
	out := map[string]string{}
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
