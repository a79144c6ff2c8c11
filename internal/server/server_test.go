package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gestureguard/gestureguard/internal/gesture"
	"github.com/gestureguard/gestureguard/internal/notify"
)

type fakeDetection struct {
	enabled atomic.Bool
}

func (f *fakeDetection) SetEnabled(enabled bool) { f.enabled.Store(enabled) }
func (f *fakeDetection) IsEnabled() bool         { return f.enabled.Load() }

func newTestDispatcher(t *testing.T) *notify.Dispatcher {
	t.Helper()
	d := notify.NewDispatcher(notify.Config{MinInterval: 0})
	d.Start()
	t.Cleanup(d.Stop)
	return d
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

func TestServerHealth(t *testing.T) {
	// Health should report ok with an uptime string.
	srv := New(Config{})
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	decodeBody(t, rec.Result(), &body)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
	if body["uptime"] == "" {
		t.Error("expected non-empty uptime")
	}
}

func TestServerHealthRejectsPost(t *testing.T) {
	srv := New(Config{})
	req := httptest.NewRequest(http.MethodPost, "/api/health", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestServerNotificationsHistory(t *testing.T) {
	// GET returns the dispatcher history, DELETE clears it.
	d := newTestDispatcher(t)
	srv := New(Config{Dispatcher: d})

	d.NotifySystemStatus("started", "camera opened")
	waitFor(t, func() bool { return len(d.History(0)) == 1 })

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/notifications", nil))
	var body struct {
		Notifications []notify.Notification `json:"notifications"`
	}
	decodeBody(t, rec.Result(), &body)
	if len(body.Notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(body.Notifications))
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/notifications", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d", rec.Code)
	}
	if got := len(d.History(0)); got != 0 {
		t.Errorf("expected empty history after delete, got %d entries", got)
	}
}

func TestServerNotificationsLimit(t *testing.T) {
	d := newTestDispatcher(t)
	srv := New(Config{Dispatcher: d})

	for i := 0; i < 5; i++ {
		d.NotifySystemStatus("tick", "")
	}
	waitFor(t, func() bool { return len(d.History(0)) == 5 })

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/notifications?limit=2", nil))
	var body struct {
		Notifications []notify.Notification `json:"notifications"`
	}
	decodeBody(t, rec.Result(), &body)
	if len(body.Notifications) != 2 {
		t.Errorf("expected 2 notifications with limit=2, got %d", len(body.Notifications))
	}
}

func TestServerNotificationStats(t *testing.T) {
	d := newTestDispatcher(t)
	srv := New(Config{Dispatcher: d})

	d.NotifySystemStatus("started", "")
	waitFor(t, func() bool { return d.Stats().Total == 1 })

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/notifications/stats", nil))
	var stats notify.Stats
	decodeBody(t, rec.Result(), &stats)
	if stats.Total != 1 {
		t.Errorf("expected total 1, got %d", stats.Total)
	}
	if stats.ByType[string(notify.TypeSystemStatus)] != 1 {
		t.Errorf("expected one system_status entry, got %v", stats.ByType)
	}
}

func TestServerStability(t *testing.T) {
	tr := gesture.NewTracker(3)
	srv := New(Config{Tracker: tr})

	for i := 0; i < 3; i++ {
		if _, err := tr.Observe(0, "Fist", 0.9); err != nil {
			t.Fatalf("observe: %v", err)
		}
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stability?slot=0", nil))
	var body struct {
		Slot      int     `json:"slot"`
		Label     string  `json:"label"`
		Stability float64 `json:"stability"`
		Stable    string  `json:"stable"`
	}
	decodeBody(t, rec.Result(), &body)
	if body.Label != "Fist" || body.Stability != 1.0 {
		t.Errorf("expected Fist at 1.0, got %q at %v", body.Label, body.Stability)
	}
	if body.Stable != "Fist" {
		t.Errorf("expected stable label Fist, got %q", body.Stable)
	}
}

func TestServerStabilityInvalidSlot(t *testing.T) {
	srv := New(Config{Tracker: gesture.NewTracker(3)})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stability?slot=abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestServerDetectionToggle(t *testing.T) {
	det := &fakeDetection{}
	det.SetEnabled(true)
	srv := New(Config{Detection: det})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/detection", nil))
	var body map[string]bool
	decodeBody(t, rec.Result(), &body)
	if !body["enabled"] {
		t.Fatal("expected detection enabled")
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/detection", strings.NewReader(`{"enabled":false}`))
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if det.IsEnabled() {
		t.Error("expected detection disabled after POST")
	}
}

func TestServerDetectionBadBody(t *testing.T) {
	srv := New(Config{Detection: &fakeDetection{}})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/detection", strings.NewReader("not json"))
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStreamHandlerBroadcast(t *testing.T) {
	// A connected websocket client receives dispatched notifications.
	d := newTestDispatcher(t)
	srv := New(Config{Dispatcher: d})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/notifications/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing websocket: %v", err)
	}
	defer conn.Close()

	d.NotifySystemStatus("started", "camera opened")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var n notify.Notification
	if err := conn.ReadJSON(&n); err != nil {
		t.Fatalf("reading notification: %v", err)
	}
	if n.Type != notify.TypeSystemStatus {
		t.Errorf("expected system_status, got %q", n.Type)
	}
}

func TestStreamHandlerConcurrentDispatchPaths(t *testing.T) {
	// Queued notifications broadcast from the dispatch worker while
	// high-priority ones broadcast inline from the producer goroutine.
	// Both paths must be able to run at once without corrupting the
	// connection or losing messages.
	d := newTestDispatcher(t)
	srv := New(Config{Dispatcher: d})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/notifications/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing websocket: %v", err)
	}
	defer conn.Close()

	const perPath = 20
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < perPath; i++ {
			d.Notify(notify.TypeSystemStatus, "tick", nil, notify.PriorityNormal, false)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < perPath; i++ {
			d.Notify(notify.TypeSystemError, "boom", nil, notify.PriorityHigh, false)
		}
	}()
	wg.Wait()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for i := 0; i < 2*perPath; i++ {
		var n notify.Notification
		if err := conn.ReadJSON(&n); err != nil {
			t.Fatalf("reading notification %d: %v", i, err)
		}
	}
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
