// Package server provides the HTTP API for the GestureGuard system:
// read-only snapshots of notification history, stats, and gesture
// stability, plus detection control.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gestureguard/gestureguard/internal/gesture"
	"github.com/gestureguard/gestureguard/internal/notify"
	"github.com/gestureguard/gestureguard/internal/store"
)

// DetectionController toggles and reports the detection pipeline state.
type DetectionController interface {
	SetEnabled(enabled bool)
	IsEnabled() bool
}

// Config holds the server configuration.
type Config struct {
	Store      *store.Store
	Dispatcher *notify.Dispatcher
	Tracker    *gesture.Tracker
	Detection  DetectionController
	StaticDir  string
}

// Server represents the HTTP server for the GestureGuard application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Dispatcher != nil {
		s.mux.HandleFunc("/api/notifications", s.handleNotifications)
		s.mux.HandleFunc("/api/notifications/stats", s.handleNotificationStats)
		s.mux.Handle("/api/notifications/stream", NewStreamHandler(s.config.Dispatcher))
	}

	if s.config.Tracker != nil {
		s.mux.HandleFunc("/api/stability", s.handleStability)
	}

	if s.config.Store != nil {
		s.mux.HandleFunc("/api/events", s.handleEvents)
	}

	if s.config.Detection != nil {
		s.mux.HandleFunc("/api/detection", s.handleDetection)
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

// writeJSON encodes v as the response body.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// limitParam parses a ?limit= query parameter, falling back to def.
func limitParam(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return def
	}
	return limit
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

// handleNotifications serves the bounded notification history and its
// explicit clear operation.
func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		history := s.config.Dispatcher.History(limitParam(r, 50))
		writeJSON(w, map[string]any{"notifications": history})
	case http.MethodDelete:
		s.config.Dispatcher.ClearHistory()
		writeJSON(w, map[string]any{"cleared": true})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleNotificationStats handles GET requests to /api/notifications/stats.
func (s *Server) handleNotificationStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, s.config.Dispatcher.Stats())
}

// handleStability reports the current stability of one hand slot.
func (s *Server) handleStability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	slot := 0
	if raw := r.URL.Query().Get("slot"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "Invalid slot", http.StatusBadRequest)
			return
		}
		slot = parsed
	}

	label, ratio := s.config.Tracker.Stability(slot)
	stable, since := s.config.Tracker.Current(slot)

	response := map[string]any{
		"slot":      slot,
		"label":     label,
		"stability": ratio,
		"stable":    stable,
	}
	if !since.IsZero() {
		response["stable_since"] = since
	}
	writeJSON(w, response)
}

// handleEvents serves recently persisted gesture events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	events, err := s.config.Store.Events().ListRecent(limitParam(r, 50))
	if err != nil {
		http.Error(w, "Failed to load events", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{"events": events})
}

// handleDetection reports and toggles the detection pipeline.
func (s *Server) handleDetection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, map[string]any{"enabled": s.config.Detection.IsEnabled()})
	case http.MethodPost:
		var body struct {
			Enabled bool `json:"enabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		s.config.Detection.SetEnabled(body.Enabled)
		writeJSON(w, map[string]any{"enabled": body.Enabled})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
