// Package app wires the capture, detection, stability, notification, and
// persistence layers into the GestureGuard monitoring pipeline.
package app

import (
	"log"
	"sync"
	"time"

	"github.com/gestureguard/gestureguard/internal/capture"
	"github.com/gestureguard/gestureguard/internal/detector"
	"github.com/gestureguard/gestureguard/internal/gesture"
	"github.com/gestureguard/gestureguard/internal/notify"
	"github.com/gestureguard/gestureguard/internal/store"
)

// Pipeline timing constants.
const (
	// IdleFPS is the frame rate when no motion is detected.
	IdleFPS = 5
	// ActiveFPS is the frame rate during active detection.
	ActiveFPS = 15
	// IdleTimeoutMs is the time in milliseconds to wait before switching back to idle mode.
	IdleTimeoutMs = 2000
)

// Config holds configuration options for the application.
type Config struct {
	Store           *store.Store
	Dispatcher      *notify.Dispatcher
	CameraID        int
	FrameWidth      int
	FrameHeight     int
	MotionThresh    float64
	StabilityFrames int
	Detector        detector.Config
}

// App orchestrates the detection pipeline from camera frames to
// persisted events and dispatched notifications.
type App struct {
	config     Config
	camera     capture.Camera
	motion     *capture.MotionDetector
	source     detector.Source
	classifier detector.Classifier
	tracker    *gesture.Tracker
	dispatcher *notify.Dispatcher
	enabled    bool
	mu         sync.RWMutex
	stopCh     chan struct{}
	sessionID  string
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	motionThreshold := config.MotionThresh
	if motionThreshold <= 0 {
		motionThreshold = 1.0 // Default threshold: 1% pixel change
	}

	a := &App{
		config:     config,
		camera:     capture.NewCamera(config.CameraID, config.FrameWidth, config.FrameHeight),
		motion:     capture.NewMotionDetector(motionThreshold),
		classifier: detector.NewRuleClassifier(),
		tracker:    gesture.NewTracker(config.StabilityFrames),
		dispatcher: config.Dispatcher,
		enabled:    true,
		stopCh:     nil,
	}

	// Try MediaPipe first, fall back to mock frames
	if mp, err := detector.NewMediaPipeSource(config.Detector); err == nil {
		a.source = mp
		log.Println("Using MediaPipe hand detection")
	} else {
		log.Printf("MediaPipe not available (%v), using mock source", err)
		a.source = detector.NewMockSource()
	}

	return a
}

// SetEnabled enables or disables gesture detection. Disabling resets the
// tracking windows so stale frames cannot produce a transition on resume.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.enabled == enabled {
		return
	}
	a.enabled = enabled
	if !enabled {
		a.tracker.ResetAll()
	}
}

// IsEnabled returns whether gesture detection is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetSource sets the hand detection source to use.
func (a *App) SetSource(s detector.Source) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.source = s
}

// SetCamera replaces the camera implementation. Intended for tests.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// Start opens the camera, records a session, and launches the pipeline.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	a.camera.SetFPS(IdleFPS)

	if a.config.Store != nil {
		session, err := a.config.Store.Sessions().Start()
		if err != nil {
			log.Printf("Failed to start session: %v", err)
		} else {
			a.sessionID = session.ID
		}
	}

	a.stopCh = make(chan struct{})
	go a.runPipeline()

	if a.dispatcher != nil {
		a.dispatcher.NotifySystemStatus("started", "detection pipeline running")
	}

	log.Println("Detection pipeline started")
	return nil
}

// Stop halts the detection pipeline, ends the session, and releases
// camera and detector resources.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		close(a.stopCh)
		a.stopCh = nil
	}

	if a.sessionID != "" && a.config.Store != nil {
		if err := a.config.Store.Sessions().End(a.sessionID); err != nil {
			log.Printf("Error ending session: %v", err)
		}
		a.sessionID = ""
	}

	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}
	a.motion.Close()

	if a.source != nil {
		if err := a.source.Close(); err != nil {
			log.Printf("Error closing detection source: %v", err)
		}
	}

	a.tracker.ResetAll()

	if a.dispatcher != nil {
		a.dispatcher.NotifySystemStatus("stopped", "detection pipeline halted")
	}

	log.Println("Detection pipeline stopped")
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.camera
}

// MotionDetector returns the motion detector instance.
func (a *App) MotionDetector() *capture.MotionDetector {
	return a.motion
}

// Tracker returns the gesture stability tracker.
func (a *App) Tracker() *gesture.Tracker {
	return a.tracker
}

// Source returns the hand detection source.
func (a *App) Source() detector.Source {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.source
}

// SessionID returns the active session identifier, if any.
func (a *App) SessionID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sessionID
}

// recordEvent persists a stable gesture event, logging failures rather
// than interrupting the pipeline.
func (a *App) recordEvent(e *gesture.Event) {
	if a.config.Store == nil {
		return
	}
	if err := a.config.Store.Events().Record(a.SessionID(), e); err != nil {
		log.Printf("Failed to record event: %v", err)
	}
}

// idleTimeout is the duration of no motion before returning to idle FPS.
func idleTimeout() time.Duration {
	return time.Duration(IdleTimeoutMs) * time.Millisecond
}
