package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Detection.StabilityFrames != 5 {
		t.Errorf("stability_frames = %d, want 5", cfg.Detection.StabilityFrames)
	}
	if cfg.Notifications.MinIntervalSeconds != 5 {
		t.Errorf("min_interval_seconds = %d, want 5", cfg.Notifications.MinIntervalSeconds)
	}
	if cfg.Notifications.MaxHistory != 1000 {
		t.Errorf("max_history = %d, want 1000", cfg.Notifications.MaxHistory)
	}
	if !cfg.Notifications.Sound.Enabled {
		t.Error("sound alerts should be enabled by default")
	}
	if cfg.Notifications.Email.Enabled || cfg.Notifications.Push.Enabled {
		t.Error("email and push should be disabled by default")
	}
}

func TestLoad_OverlaysFileOnDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[detection]
stability_frames = 3
min_confidence = 0.6

[notifications]
min_interval_seconds = 10

[notifications.push]
enabled = true
service_url = "https://push.example.com/alerts"

[server]
bind = ":9090"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Detection.StabilityFrames != 3 {
		t.Errorf("stability_frames = %d, want 3", cfg.Detection.StabilityFrames)
	}
	if cfg.Notifications.MinIntervalSeconds != 10 {
		t.Errorf("min_interval_seconds = %d, want 10", cfg.Notifications.MinIntervalSeconds)
	}
	if !cfg.Notifications.Push.Enabled {
		t.Error("push should be enabled by the file")
	}
	if cfg.Notifications.Push.ServiceURL != "https://push.example.com/alerts" {
		t.Errorf("push service_url = %q", cfg.Notifications.Push.ServiceURL)
	}
	if cfg.Server.Bind != ":9090" {
		t.Errorf("server bind = %q, want :9090", cfg.Server.Bind)
	}

	// Untouched settings keep their defaults.
	if cfg.Detection.MaxHands != 2 {
		t.Errorf("max_hands = %d, want default 2", cfg.Detection.MaxHands)
	}
	if cfg.Database.Path != "gestureguard.db" {
		t.Errorf("database path = %q, want default", cfg.Database.Path)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	os.WriteFile(path, []byte("not [valid toml"), 0o644)

	if _, err := Load(path); err == nil {
		t.Fatal("Load() with malformed TOML returned nil error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(c *Config) {}, ""},
		{
			"zero stability frames",
			func(c *Config) { c.Detection.StabilityFrames = 0 },
			"stability_frames",
		},
		{
			"confidence above one",
			func(c *Config) { c.Detection.MinConfidence = 1.5 },
			"min_confidence",
		},
		{
			"negative interval",
			func(c *Config) { c.Notifications.MinIntervalSeconds = -1 },
			"min_interval_seconds",
		},
		{
			"zero history",
			func(c *Config) { c.Notifications.MaxHistory = 0 },
			"max_history",
		},
		{
			"volume out of range",
			func(c *Config) { c.Notifications.Sound.Volume = 120 },
			"volume",
		},
		{
			"email enabled without server",
			func(c *Config) { c.Notifications.Email.Enabled = true },
			"smtp_server",
		},
		{
			"push enabled without url",
			func(c *Config) { c.Notifications.Push.Enabled = true },
			"service_url",
		},
		{
			"empty database path",
			func(c *Config) { c.Database.Path = "" },
			"database.path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() returned nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
