package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv isolates a test from variables exported by the developer's shell.
func clearEnv(t *testing.T) {
	t.Helper()
	for key := range defaults {
		t.Setenv(key, "")
	}
	for _, key := range []string{"ZENTOKEN", "ALLOWED_HOSTS", "CONFIG_FILE", "TLS_CERT_PATH", "TLS_KEY_PATH", "LOG_FILE", "DB_PASSWORD"} {
		t.Setenv(key, "")
	}
	t.Chdir(t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, want %q", cfg.Server.Port, "8080")
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("Database.Port = %d, want %d", cfg.Database.Port, 5432)
	}
	if cfg.Database.DBName != "finmirror" {
		t.Errorf("Database.DBName = %q, want finmirror", cfg.Database.DBName)
	}
	if cfg.Sync.Interval != 15*time.Second {
		t.Errorf("Sync.Interval = %s, want 15s", cfg.Sync.Interval)
	}
	if cfg.Remote.Timeout != 20*time.Second {
		t.Errorf("Remote.Timeout = %s, want 20s", cfg.Remote.Timeout)
	}
	if cfg.Sync.Enabled {
		t.Error("Sync.Enabled should default to false")
	}
	if cfg.Telemetry.ServiceName != "finmirror" {
		t.Errorf("Telemetry.ServiceName = %q", cfg.Telemetry.ServiceName)
	}
	if cfg.Server.AllowedHosts != nil {
		t.Errorf("AllowedHosts = %v, want nil", cfg.Server.AllowedHosts)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("ALLOWED_HOSTS", " example.com, ,api.example.com ")
	t.Setenv("SYNC_ENABLED", "yes")
	t.Setenv("ZENTOKEN", "secret")
	t.Setenv("SYNC_INTERVAL", "1m")
	t.Setenv("LOG_FORMAT", "TEXT")
	t.Setenv("REMOTE_BASE_URL", "http://localhost:9999/v8/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != "9000" {
		t.Errorf("Server.Port = %q, want 9000", cfg.Server.Port)
	}
	if len(cfg.Server.AllowedHosts) != 2 || cfg.Server.AllowedHosts[1] != "api.example.com" {
		t.Errorf("AllowedHosts = %v", cfg.Server.AllowedHosts)
	}
	if !cfg.Sync.Enabled || cfg.Remote.Token != "secret" {
		t.Errorf("Sync = %+v, token = %q", cfg.Sync, cfg.Remote.Token)
	}
	if cfg.Sync.Interval != time.Minute {
		t.Errorf("Sync.Interval = %s, want 1m", cfg.Sync.Interval)
	}
	if cfg.Log.Format != "text" {
		t.Errorf("Log.Format = %q, want text", cfg.Log.Format)
	}
	if cfg.Remote.BaseURL != "http://localhost:9999/v8" {
		t.Errorf("Remote.BaseURL = %q", cfg.Remote.BaseURL)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "Invalid DB Port",
			env:     map[string]string{"DB_PORT": "not-a-number"},
			wantErr: "DB_PORT",
		},
		{
			name:    "Invalid Duration",
			env:     map[string]string{"REMOTE_TIMEOUT": "soon"},
			wantErr: "REMOTE_TIMEOUT",
		},
		{
			name:    "Sync Interval Too Short",
			env:     map[string]string{"SYNC_INTERVAL": "500ms"},
			wantErr: "SYNC_INTERVAL",
		},
		{
			name:    "Sync Without Token",
			env:     map[string]string{"SYNC_ENABLED": "true"},
			wantErr: "ZENTOKEN",
		},
		{
			name:    "Bad Boolean",
			env:     map[string]string{"OTEL_ENABLED": "maybe"},
			wantErr: "OTEL_ENABLED",
		},
		{
			name:    "Bad Log Format",
			env:     map[string]string{"LOG_FORMAT": "xml"},
			wantErr: "LOG_FORMAT",
		},
		{
			name:    "TLS Without Cert",
			env:     map[string]string{"TLS_ENABLED": "true", "TLS_KEY_PATH": "/tmp/key.pem"},
			wantErr: "TLS_CERT_PATH",
		},
		{
			name:    "TLS Without Key",
			env:     map[string]string{"TLS_ENABLED": "true", "TLS_CERT_PATH": "/tmp/cert.pem"},
			wantErr: "TLS_KEY_PATH",
		},
		{
			name:    "Zero Workers",
			env:     map[string]string{"SYNC_WORKERS": "0"},
			wantErr: "SYNC_WORKERS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatal("Load() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "finmirror.yaml")
	content := "db_name: ledger\nsync_interval: 45s\nport: \"7000\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Database.DBName != "ledger" {
		t.Errorf("DBName = %q, want ledger", cfg.Database.DBName)
	}
	if cfg.Sync.Interval != 45*time.Second {
		t.Errorf("Sync.Interval = %s, want 45s", cfg.Sync.Interval)
	}
	if cfg.Server.Port != "7100" {
		t.Errorf("environment should win over file, Port = %q", cfg.Server.Port)
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	if _, err := Load(); err == nil {
		t.Error("Load() expected error for missing CONFIG_FILE, got nil")
	}
}

func TestDatabaseConfig_Strings(t *testing.T) {
	db := DatabaseConfig{
		Host:     "db",
		Port:     5433,
		User:     "fin",
		Password: "p@ss word",
		DBName:   "finmirror",
		SSLMode:  "require",
	}

	want := "host=db port=5433 user=fin password=p@ss word dbname=finmirror sslmode=require"
	if got := db.ConnectionString(); got != want {
		t.Errorf("ConnectionString() = %q, want %q", got, want)
	}

	wantURL := "postgres://fin:p%40ss%20word@db:5433/finmirror?sslmode=require"
	if got := db.URL(); got != wantURL {
		t.Errorf("URL() = %q, want %q", got, wantURL)
	}
}
