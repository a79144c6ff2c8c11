package app

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gestureguard/gestureguard/internal/detector"
	"github.com/gestureguard/gestureguard/internal/notify"
	"github.com/gestureguard/gestureguard/internal/store"
)

// notificationRecorder collects dispatched notifications for assertions.
type notificationRecorder struct {
	mu   sync.Mutex
	seen []notify.Notification
}

func (r *notificationRecorder) record(n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, n)
}

func (r *notificationRecorder) labels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	labels := make([]string, 0, len(r.seen))
	for _, n := range r.seen {
		if n.Type != notify.TypeGestureDetected {
			continue
		}
		if label, ok := n.Data["gesture"].(string); ok {
			labels = append(labels, label)
		}
	}
	return labels
}

func newTestApp(t *testing.T) (*App, *store.Store, *notificationRecorder) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	d := notify.NewDispatcher(notify.Config{MinInterval: 0})
	d.Start()
	t.Cleanup(d.Stop)

	rec := &notificationRecorder{}
	d.AddCallback(rec.record)

	app := New(Config{
		Store:           s,
		Dispatcher:      d,
		CameraID:        0,
		MotionThresh:    0.05,
		StabilityFrames: 3,
	})
	app.SetSource(detector.NewMockSource())

	return app, s, rec
}

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

func TestApp_StableGestureFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	// Three identical Fist frames, then three Peace frames, should yield
	// exactly two notifications in order and two persisted events.
	app, s, rec := newTestApp(t)

	session, err := s.Sessions().Start()
	if err != nil {
		t.Fatalf("starting session: %v", err)
	}
	app.sessionID = session.ID

	for i := 0; i < 3; i++ {
		app.processObservations([]detector.Observation{detector.FistObservation()})
	}
	for i := 0; i < 3; i++ {
		app.processObservations([]detector.Observation{detector.PeaceObservation()})
	}

	waitFor(t, func() bool { return len(rec.labels()) == 2 })
	labels := rec.labels()
	if labels[0] != detector.LabelFist || labels[1] != detector.LabelPeace {
		t.Errorf("expected [Fist Peace], got %v", labels)
	}

	events, err := s.Events().ListRecent(10)
	if err != nil {
		t.Fatalf("listing events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 persisted events, got %d", len(events))
	}
	// Newest first.
	if events[0].Label != detector.LabelPeace || events[1].Label != detector.LabelFist {
		t.Errorf("unexpected event order: %s, %s", events[0].Label, events[1].Label)
	}
	if events[0].Previous != detector.LabelFist {
		t.Errorf("expected Peace event to carry previous Fist, got %q", events[0].Previous)
	}
}

func TestApp_UnstableGestureNeverFires(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	// Interleaved labels never fill a window with one label, so no
	// notification is dispatched.
	app, _, rec := newTestApp(t)

	frames := []detector.Observation{
		detector.FistObservation(),
		detector.PeaceObservation(),
		detector.FistObservation(),
		detector.PeaceObservation(),
		detector.FistObservation(),
		detector.PeaceObservation(),
	}
	for _, obs := range frames {
		app.processObservations([]detector.Observation{obs})
	}

	time.Sleep(50 * time.Millisecond)
	if labels := rec.labels(); len(labels) != 0 {
		t.Errorf("expected no notifications, got %v", labels)
	}
}

func TestApp_EmptyFramesForceRestabilization(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	// A hand leaving the frame resets stability: the same gesture seen
	// again afterwards fires a second notification.
	app, _, rec := newTestApp(t)

	for i := 0; i < 3; i++ {
		app.processObservations([]detector.Observation{detector.FistObservation()})
	}
	for i := 0; i < 3; i++ {
		app.processObservations(nil)
	}
	for i := 0; i < 3; i++ {
		app.processObservations([]detector.Observation{detector.FistObservation()})
	}

	waitFor(t, func() bool { return len(rec.labels()) == 2 })
	labels := rec.labels()
	if labels[0] != detector.LabelFist || labels[1] != detector.LabelFist {
		t.Errorf("expected [Fist Fist], got %v", labels)
	}
}

func TestApp_DisableResetsTracking(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	// Disabling detection clears the window; frames seen before the
	// pause do not count toward stability after resume.
	app, _, rec := newTestApp(t)

	app.processObservations([]detector.Observation{detector.FistObservation()})
	app.processObservations([]detector.Observation{detector.FistObservation()})

	app.SetEnabled(false)
	app.SetEnabled(true)

	app.processObservations([]detector.Observation{detector.FistObservation()})
	time.Sleep(50 * time.Millisecond)
	if labels := rec.labels(); len(labels) != 0 {
		t.Errorf("expected no notification after reset, got %v", labels)
	}

	app.processObservations([]detector.Observation{detector.FistObservation()})
	app.processObservations([]detector.Observation{detector.FistObservation()})
	waitFor(t, func() bool { return len(rec.labels()) == 1 })
}

func TestApp_NoHandTransitionStaysSilent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	// A stable No Hand state is tracked but produces no notification and
	// no persisted event.
	app, s, rec := newTestApp(t)

	for i := 0; i < 3; i++ {
		app.processObservations([]detector.Observation{detector.OKObservation()})
	}
	waitFor(t, func() bool { return len(rec.labels()) == 1 })

	for i := 0; i < 3; i++ {
		app.processObservations(nil)
	}
	time.Sleep(50 * time.Millisecond)

	if label, _ := app.Tracker().Current(0); label != detector.LabelNoHand {
		t.Errorf("expected stable No Hand state, got %q", label)
	}
	if labels := rec.labels(); len(labels) != 1 {
		t.Errorf("expected 1 notification, got %v", labels)
	}

	events, err := s.Events().ListRecent(10)
	if err != nil {
		t.Fatalf("listing events: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("expected 1 event, got %d", len(events))
	}
}
