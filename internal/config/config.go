// Package config loads and validates GestureGuard configuration from a
// TOML file, applying defaults for anything left unset.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Detection contains camera and stability tuning.
type Detection struct {
	CameraID        int     `toml:"camera_id"`
	Width           int     `toml:"width"`
	Height          int     `toml:"height"`
	StabilityFrames int     `toml:"stability_frames"`
	MinConfidence   float64 `toml:"min_confidence"`
	MaxHands        int     `toml:"max_hands"`
	MotionThreshold float64 `toml:"motion_threshold"`
}

// Sound contains configuration for the sound alert sink.
type Sound struct {
	Enabled bool `toml:"enabled"`
	Volume  int  `toml:"volume"`
}

// Email contains SMTP configuration for the email sink.
type Email struct {
	Enabled    bool     `toml:"enabled"`
	SMTPServer string   `toml:"smtp_server"`
	SMTPPort   int      `toml:"smtp_port"`
	Username   string   `toml:"username"`
	Password   string   `toml:"password"`
	Recipients []string `toml:"recipients"`
}

// Push contains configuration for the HTTP push sink.
type Push struct {
	Enabled        bool   `toml:"enabled"`
	ServiceURL     string `toml:"service_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Notifications contains the dispatch pipeline settings and sink toggles.
type Notifications struct {
	MinIntervalSeconds int   `toml:"min_interval_seconds"`
	MaxHistory         int   `toml:"max_history"`
	QueueSize          int   `toml:"queue_size"`
	Sound              Sound `toml:"sound"`
	Email              Email `toml:"email"`
	Push               Push  `toml:"push"`
}

// Database contains sqlite storage settings.
type Database struct {
	Path string `toml:"path"`
}

// Server contains the HTTP API settings.
type Server struct {
	Bind string `toml:"bind"`
}

// Tray contains the desktop tray settings.
type Tray struct {
	Enabled bool `toml:"enabled"`
}

// Config is the root configuration document.
type Config struct {
	Detection     Detection     `toml:"detection"`
	Notifications Notifications `toml:"notifications"`
	Database      Database      `toml:"database"`
	Server        Server        `toml:"server"`
	Tray          Tray          `toml:"tray"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		Detection: Detection{
			CameraID:        0,
			Width:           640,
			Height:          480,
			StabilityFrames: 5,
			MinConfidence:   0.8,
			MaxHands:        2,
			MotionThreshold: 1.0,
		},
		Notifications: Notifications{
			MinIntervalSeconds: 5,
			MaxHistory:         1000,
			QueueSize:          256,
			Sound:              Sound{Enabled: true, Volume: 50},
			Email:              Email{SMTPPort: 587},
			Push:               Push{TimeoutSeconds: 5},
		},
		Database: Database{Path: "gestureguard.db"},
		Server:   Server{Bind: ":8080"},
		Tray:     Tray{Enabled: false},
	}
}

// Load reads the configuration file at path, overlaying it on the
// defaults. A missing file yields the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c Config) Validate() error {
	if c.Detection.StabilityFrames < 1 {
		return fmt.Errorf("detection.stability_frames must be at least 1, got %d", c.Detection.StabilityFrames)
	}
	if c.Detection.MinConfidence < 0 || c.Detection.MinConfidence > 1 {
		return fmt.Errorf("detection.min_confidence must be in [0,1], got %f", c.Detection.MinConfidence)
	}
	if c.Detection.MaxHands < 1 {
		return fmt.Errorf("detection.max_hands must be at least 1, got %d", c.Detection.MaxHands)
	}
	if c.Notifications.MinIntervalSeconds < 0 {
		return fmt.Errorf("notifications.min_interval_seconds must not be negative, got %d", c.Notifications.MinIntervalSeconds)
	}
	if c.Notifications.MaxHistory < 1 {
		return fmt.Errorf("notifications.max_history must be at least 1, got %d", c.Notifications.MaxHistory)
	}
	if c.Notifications.Sound.Volume < 0 || c.Notifications.Sound.Volume > 100 {
		return fmt.Errorf("notifications.sound.volume must be in [0,100], got %d", c.Notifications.Sound.Volume)
	}
	if c.Notifications.Email.Enabled && c.Notifications.Email.SMTPServer == "" {
		return fmt.Errorf("notifications.email.smtp_server is required when email is enabled")
	}
	if c.Notifications.Push.Enabled && c.Notifications.Push.ServiceURL == "" {
		return fmt.Errorf("notifications.push.service_url is required when push is enabled")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Server.Bind == "" {
		return fmt.Errorf("server.bind must not be empty")
	}
	return nil
}
