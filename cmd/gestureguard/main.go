package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/gestureguard/gestureguard/internal/app"
	"github.com/gestureguard/gestureguard/internal/config"
	"github.com/gestureguard/gestureguard/internal/detector"
	"github.com/gestureguard/gestureguard/internal/notify"
	"github.com/gestureguard/gestureguard/internal/server"
	"github.com/gestureguard/gestureguard/internal/store"
	"github.com/gestureguard/gestureguard/internal/tray"
)

func main() {
	fmt.Println("GestureGuard - Gesture Monitoring")

	configPath := flag.String("config", "", "path to config file (default ~/.gestureguard/config.toml)")
	flag.Parse()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("Failed to get home directory: %v", err)
	}

	dataDir := filepath.Join(homeDir, ".gestureguard")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	path := *configPath
	if path == "" {
		path = filepath.Join(dataDir, "config.toml")
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	dbPath := cfg.Database.Path
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(dataDir, dbPath)
	}
	st, err := store.New(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	dispatcher := buildDispatcher(cfg.Notifications)
	dispatcher.Start()
	defer dispatcher.Stop()

	application := app.New(app.Config{
		Store:           st,
		Dispatcher:      dispatcher,
		CameraID:        cfg.Detection.CameraID,
		FrameWidth:      cfg.Detection.Width,
		FrameHeight:     cfg.Detection.Height,
		MotionThresh:    cfg.Detection.MotionThreshold,
		StabilityFrames: cfg.Detection.StabilityFrames,
		Detector: detector.Config{
			MaxHands:        cfg.Detection.MaxHands,
			MinConfidence:   cfg.Detection.MinConfidence,
			MinTrackingConf: detector.DefaultConfig().MinTrackingConf,
		},
	})

	if err := application.Start(); err != nil {
		log.Printf("Detection pipeline not started: %v", err)
	}
	defer application.Stop()

	srv := server.New(server.Config{
		Store:      st,
		Dispatcher: dispatcher,
		Tracker:    application.Tracker(),
		Detection:  application,
		StaticDir:  findWebDir(dataDir),
	})

	if cfg.Tray.Enabled {
		runWithTray(application, dispatcher, srv, cfg.Server.Bind)
		return
	}

	fmt.Printf("Starting server on %s\n", cfg.Server.Bind)
	if err := srv.ListenAndServe(cfg.Server.Bind); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// buildDispatcher assembles the notification pipeline from config.
func buildDispatcher(nc config.Notifications) *notify.Dispatcher {
	dcfg := notify.Config{
		MinInterval:  time.Duration(nc.MinIntervalSeconds) * time.Second,
		MaxHistory:   nc.MaxHistory,
		QueueSize:    nc.QueueSize,
		SoundEnabled: nc.Sound.Enabled,
		EmailEnabled: nc.Email.Enabled,
		PushEnabled:  nc.Push.Enabled,
	}

	if nc.Sound.Enabled {
		dcfg.Sound = notify.NewSoundSink(nc.Sound.Volume)
	}
	if nc.Email.Enabled {
		dcfg.Email = notify.NewEmailSink(notify.EmailConfig{
			Server:     nc.Email.SMTPServer,
			Port:       nc.Email.SMTPPort,
			Username:   nc.Email.Username,
			Password:   nc.Email.Password,
			Recipients: nc.Email.Recipients,
		})
	}
	if nc.Push.Enabled {
		dcfg.Push = notify.NewPushSink(nc.Push.ServiceURL, time.Duration(nc.Push.TimeoutSeconds)*time.Second)
	}

	return notify.NewDispatcher(dcfg)
}

// runWithTray serves HTTP in the background and blocks on the tray loop.
func runWithTray(application *app.App, dispatcher *notify.Dispatcher, srv *server.Server, addr string) {
	t := tray.New()

	t.OnToggle(func(enabled bool) {
		application.SetEnabled(enabled)
	})
	t.OnDashboard(func() {
		if err := openBrowser(dashboardURL(addr)); err != nil {
			log.Printf("Failed to open dashboard: %v", err)
		}
	})
	t.OnQuit(func() {
		application.Stop()
	})

	dispatcher.AddCallback(func(n notify.Notification) {
		t.SetLastAlert(n.Message)
	})

	go func() {
		fmt.Printf("Starting server on %s\n", addr)
		if err := srv.ListenAndServe(addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	t.Run()
}

// dashboardURL turns a listen address into a browsable URL. A bare
// ":8080" style address maps to localhost.
func dashboardURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

// openBrowser opens the URL with the platform's default browser.
func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}

// findWebDir searches for the dashboard directory in common locations.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeWebDir := filepath.Join(dataDir, "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
