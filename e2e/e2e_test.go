package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gestureguard/gestureguard/internal/app"
	"github.com/gestureguard/gestureguard/internal/detector"
	"github.com/gestureguard/gestureguard/internal/gesture"
	"github.com/gestureguard/gestureguard/internal/notify"
	"github.com/gestureguard/gestureguard/internal/server"
	"github.com/gestureguard/gestureguard/internal/store"
)

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "data.db")

	s, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	dispatcher := notify.NewDispatcher(notify.Config{MinInterval: 0})
	dispatcher.Start()
	defer dispatcher.Stop()

	application := app.New(app.Config{
		Store:           s,
		Dispatcher:      dispatcher,
		MotionThresh:    0.05,
		StabilityFrames: 5,
	})
	application.SetSource(detector.NewMockSource())

	srv := server.New(server.Config{
		Store:      s,
		Dispatcher: dispatcher,
		Tracker:    application.Tracker(),
		Detection:  application,
	})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	classifier := detector.NewRuleClassifier()

	t.Run("StableGestureRecorded", func(t *testing.T) {
		// Five unanimous frames make the gesture stable; the resulting
		// transition is persisted and shows up through the API.
		obs := detector.FistObservation()
		cls := classifier.Classify(obs)
		if cls.Label != detector.LabelFist {
			t.Fatalf("fixture sanity: expected Fist, got %q", cls.Label)
		}

		var tr *gesture.Transition
		for i := 0; i < 5; i++ {
			tr, err = application.Tracker().Observe(0, cls.Label, cls.Confidence)
			if err != nil {
				t.Fatalf("Observe() error = %v", err)
			}
		}
		if tr == nil {
			t.Fatal("expected a transition after five unanimous frames")
		}

		event, err := gesture.BuildEvent(tr, obs, cls)
		if err != nil {
			t.Fatalf("BuildEvent() error = %v", err)
		}
		if err := s.Events().Record("", event); err != nil {
			t.Fatalf("Record() error = %v", err)
		}

		resp, err := client.Get(ts.URL + "/api/events")
		if err != nil {
			t.Fatalf("get events error = %v", err)
		}
		defer resp.Body.Close()

		var body struct {
			Events []struct {
				Label string `json:"label"`
			} `json:"events"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decoding events: %v", err)
		}
		if len(body.Events) != 1 || body.Events[0].Label != detector.LabelFist {
			t.Errorf("unexpected events: %+v", body.Events)
		}
	})

	t.Run("StabilityEndpoint", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/stability?slot=0")
		if err != nil {
			t.Fatalf("get stability error = %v", err)
		}
		defer resp.Body.Close()

		var body struct {
			Label     string  `json:"label"`
			Stability float64 `json:"stability"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decoding stability: %v", err)
		}
		if body.Label != detector.LabelFist || body.Stability != 1.0 {
			t.Errorf("expected stable Fist, got %q at %v", body.Label, body.Stability)
		}
	})

	t.Run("NotificationFlow", func(t *testing.T) {
		dispatcher.NotifyGestureDetected(detector.LabelFist, 0.9, 0)

		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if dispatcher.Stats().Total > 0 {
				break
			}
			time.Sleep(5 * time.Millisecond)
		}

		resp, err := client.Get(ts.URL + "/api/notifications")
		if err != nil {
			t.Fatalf("get notifications error = %v", err)
		}
		defer resp.Body.Close()

		var body struct {
			Notifications []notify.Notification `json:"notifications"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decoding notifications: %v", err)
		}
		if len(body.Notifications) != 1 {
			t.Fatalf("expected 1 notification, got %d", len(body.Notifications))
		}
		if body.Notifications[0].Type != notify.TypeGestureDetected {
			t.Errorf("unexpected type %q", body.Notifications[0].Type)
		}
	})

	t.Run("DetectionToggle", func(t *testing.T) {
		resp, err := client.Post(
			ts.URL+"/api/detection",
			"application/json",
			strings.NewReader(`{"enabled":false}`),
		)
		if err != nil {
			t.Fatalf("post detection error = %v", err)
		}
		resp.Body.Close()

		if application.IsEnabled() {
			t.Error("expected detection disabled via API")
		}

		// Disabling cleared the tracking windows.
		if label, _ := application.Tracker().Stability(0); label != "" {
			t.Errorf("expected empty window after disable, got %q", label)
		}
	})

	t.Run("APIStillWorks", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/health")
		if err != nil {
			t.Fatalf("health check error = %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("health check failed after app operations")
		}
	})
}
