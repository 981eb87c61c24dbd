package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

const minimalConfig = `
client:
  user_id: user-1
  endpoints:
    - http://localhost:8080
store:
  path: /tmp/health.db
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Sync.CooldownMinutes != 10 {
		t.Errorf("CooldownMinutes = %d, want 10", cfg.Sync.CooldownMinutes)
	}
	if cfg.Sync.WindowDays != 7 {
		t.Errorf("WindowDays = %d, want 7", cfg.Sync.WindowDays)
	}
	if cfg.Sync.AutoIntervalMin != 10 {
		t.Errorf("AutoIntervalMin = %d, want cooldown default 10", cfg.Sync.AutoIntervalMin)
	}
	if cfg.Insights.CacheTTLMinutes != 30 {
		t.Errorf("CacheTTLMinutes = %d, want 30", cfg.Insights.CacheTTLMinutes)
	}
}

func TestLoadExplicitValues(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
client:
  user_id: user-2
  endpoints:
    - https://primary.example.com
    - https://fallback.example.com
  api_key: k-123
sync:
  cooldown_minutes: 5
  window_days: 14
  auto_interval_minutes: 15
insights:
  cache_ttl_minutes: 60
store:
  path: /var/lib/glucosync/health.db
server:
  host: 0.0.0.0
  port: 9000
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(cfg.Client.Endpoints) != 2 {
		t.Errorf("Endpoints = %v, want 2 candidates", cfg.Client.Endpoints)
	}
	if cfg.Client.APIKey != "k-123" {
		t.Errorf("APIKey = %q", cfg.Client.APIKey)
	}
	if cfg.Sync.WindowDays != 14 || cfg.Sync.CooldownMinutes != 5 || cfg.Sync.AutoIntervalMin != 15 {
		t.Errorf("Sync = %+v", cfg.Sync)
	}
	if cfg.Insights.CacheTTLMinutes != 60 {
		t.Errorf("CacheTTLMinutes = %d, want 60", cfg.Insights.CacheTTLMinutes)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Server.Port)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GLUCOSYNC_USER_ID", "env-user")
	t.Setenv("GLUCOSYNC_ENDPOINTS", "https://a.example.com, https://b.example.com")
	t.Setenv("GLUCOSYNC_SYNC_WINDOW_DAYS", "21")

	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Client.UserID != "env-user" {
		t.Errorf("UserID = %q, want env-user", cfg.Client.UserID)
	}
	if len(cfg.Client.Endpoints) != 2 || cfg.Client.Endpoints[0] != "https://a.example.com" {
		t.Errorf("Endpoints = %v", cfg.Client.Endpoints)
	}
	if cfg.Sync.WindowDays != 21 {
		t.Errorf("WindowDays = %d, want 21", cfg.Sync.WindowDays)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing user id",
			content: `
client:
  endpoints: [http://localhost:8080]
store:
  path: /tmp/health.db
`,
			wantErr: "user_id",
		},
		{
			name: "missing endpoints",
			content: `
client:
  user_id: user-1
store:
  path: /tmp/health.db
`,
			wantErr: "endpoints",
		},
		{
			name: "missing store path",
			content: `
client:
  user_id: user-1
  endpoints: [http://localhost:8080]
`,
			wantErr: "store.path",
		},
		{
			name: "interval below cooldown",
			content: minimalConfig + `
sync:
  cooldown_minutes: 10
  auto_interval_minutes: 5
`,
			wantErr: "auto_interval_minutes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Load succeeded, want validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load of missing file succeeded")
	}
}
