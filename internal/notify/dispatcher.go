package notify

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Dispatcher defaults.
const (
	DefaultMinInterval = 5 * time.Second
	DefaultMaxHistory  = 1000
	DefaultQueueSize   = 256
	DefaultSinkTimeout = 5 * time.Second
)

// Config holds dispatcher configuration and the optional delivery sinks.
type Config struct {
	// MinInterval is the per-type admission interval. Values <= 0 disable
	// rate limiting entirely.
	MinInterval time.Duration

	// MaxHistory bounds the retained history; <= 0 selects the default.
	MaxHistory int

	// QueueSize bounds the pending queue; <= 0 selects the default.
	QueueSize int

	// SinkTimeout bounds each individual sink call; <= 0 selects the default.
	SinkTimeout time.Duration

	SoundEnabled bool
	EmailEnabled bool
	PushEnabled  bool

	Sound Sink
	Email Sink
	Push  Sink
}

// Dispatcher decouples notification producers from slow or unreliable
// sinks. Notify is an O(1) admission check plus enqueue and never blocks
// on sink latency; a single background worker drains the queue in FIFO
// order. High and critical priority notifications are instead dispatched
// inline on the producer's goroutine for expedited delivery, bounded by
// the per-sink timeout.
type Dispatcher struct {
	cfg   Config
	queue chan Notification

	stopCh  chan struct{}
	done    chan struct{}
	startMu sync.Mutex
	started bool

	// rateMu guards admission state. Never held across a sink call.
	rateMu       sync.Mutex
	lastAccepted map[Type]time.Time
	dropped      int

	cbMu      sync.RWMutex
	callbacks map[int]Callback
	nextCB    int

	histMu  sync.Mutex
	history []Notification

	now func() time.Time
}

// NewDispatcher creates a Dispatcher. The dispatch worker does not run
// until Start is called.
func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = DefaultMaxHistory
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = DefaultSinkTimeout
	}

	return &Dispatcher{
		cfg:          cfg,
		queue:        make(chan Notification, cfg.QueueSize),
		lastAccepted: make(map[Type]time.Time),
		callbacks:    make(map[int]Callback),
		now:          time.Now,
	}
}

// Start launches the background dispatch worker. Calling Start on a
// running dispatcher is a no-op.
func (d *Dispatcher) Start() {
	d.startMu.Lock()
	defer d.startMu.Unlock()

	if d.started {
		return
	}

	d.stopCh = make(chan struct{})
	d.done = make(chan struct{})
	d.started = true
	go d.run()
}

// Stop signals the worker to exit and waits for it. The worker finishes
// the notification it is processing; anything still queued is dropped,
// not persisted.
func (d *Dispatcher) Stop() {
	d.startMu.Lock()
	defer d.startMu.Unlock()

	if !d.started {
		return
	}

	close(d.stopCh)
	<-d.done
	d.started = false
}

// Notify admission-checks, constructs, and routes a notification.
// Rate-limited notifications are dropped silently: this is load shedding,
// not a failure, and is visible only through Stats. High and critical
// priority notifications bypass the queue and dispatch inline.
func (d *Dispatcher) Notify(typ Type, message string, data map[string]any, priority Priority, soundAlert bool) {
	now := d.now()

	d.rateMu.Lock()
	if d.cfg.MinInterval > 0 {
		if last, ok := d.lastAccepted[typ]; ok && now.Sub(last) < d.cfg.MinInterval {
			d.dropped++
			d.rateMu.Unlock()
			return
		}
	}
	d.lastAccepted[typ] = now
	d.rateMu.Unlock()

	if data == nil {
		data = map[string]any{}
	}

	n := Notification{
		Type:       typ,
		Message:    message,
		Data:       data,
		Priority:   priority,
		Timestamp:  now,
		SoundAlert: soundAlert,
	}

	if priority.expedited() {
		// Expedited single delivery on the caller's goroutine, bounded
		// by the sink timeout. Not additionally queued.
		d.process(n)
		return
	}

	select {
	case d.queue <- n:
	default:
		d.rateMu.Lock()
		d.dropped++
		d.rateMu.Unlock()
		log.Printf("notify: queue full, dropping %s notification", typ)
	}
}

// NotifyGestureDetected reports an accepted stable gesture. Detections
// above 0.9 confidence are escalated to high priority.
func (d *Dispatcher) NotifyGestureDetected(label string, confidence float64, handID int) {
	priority := PriorityNormal
	if confidence > 0.9 {
		priority = PriorityHigh
	}

	d.Notify(
		TypeGestureDetected,
		fmt.Sprintf("Gesture %q detected with %.2f confidence", label, confidence),
		map[string]any{
			"gesture":    label,
			"confidence": confidence,
			"hand_id":    handID,
		},
		priority,
		true,
	)
}

// NotifySystemStatus reports a lifecycle or health change.
func (d *Dispatcher) NotifySystemStatus(status, details string) {
	d.Notify(
		TypeSystemStatus,
		fmt.Sprintf("System status: %s", status),
		map[string]any{"status": status, "details": details},
		PriorityNormal,
		false,
	)
}

// NotifyError reports a contained runtime failure.
func (d *Dispatcher) NotifyError(message string, details map[string]any) {
	d.Notify(
		TypeSystemError,
		fmt.Sprintf("System error: %s", message),
		details,
		PriorityHigh,
		true,
	)
}

// AddCallback registers a callback and returns a handle for removal.
// Safe to call while dispatch is running.
func (d *Dispatcher) AddCallback(cb Callback) int {
	d.cbMu.Lock()
	defer d.cbMu.Unlock()

	id := d.nextCB
	d.nextCB++
	d.callbacks[id] = cb
	return id
}

// RemoveCallback unregisters the callback with the given handle.
func (d *Dispatcher) RemoveCallback(id int) {
	d.cbMu.Lock()
	defer d.cbMu.Unlock()
	delete(d.callbacks, id)
}

// History returns up to limit of the most recent dispatched notifications
// in arrival order. A limit <= 0 returns the full history.
func (d *Dispatcher) History(limit int) []Notification {
	d.histMu.Lock()
	defer d.histMu.Unlock()

	start := 0
	if limit > 0 && len(d.history) > limit {
		start = len(d.history) - limit
	}

	out := make([]Notification, len(d.history)-start)
	copy(out, d.history[start:])
	return out
}

// ClearHistory discards all retained notifications.
func (d *Dispatcher) ClearHistory() {
	d.histMu.Lock()
	defer d.histMu.Unlock()
	d.history = d.history[:0]
}

// Stats summarizes the current history by type and priority.
func (d *Dispatcher) Stats() Stats {
	d.histMu.Lock()
	stats := Stats{
		Total:      len(d.history),
		ByType:     make(map[string]int),
		ByPriority: make(map[string]int),
	}
	for _, n := range d.history {
		stats.ByType[string(n.Type)]++
		stats.ByPriority[string(n.Priority)]++
	}
	d.histMu.Unlock()

	d.rateMu.Lock()
	stats.Dropped = d.dropped
	d.rateMu.Unlock()

	return stats
}

// run is the dispatch loop: a single consumer draining the queue in FIFO
// order, suspended on the channel rather than polling. On stop it exits
// without draining the remaining queue.
func (d *Dispatcher) run() {
	defer close(d.done)

	for {
		select {
		case <-d.stopCh:
			return
		case n := <-d.queue:
			d.process(n)
		}
	}
}

// process archives one notification and attempts every delivery channel.
// Each callback and each sink is individually fault-isolated: a failure
// is logged and the remaining channels still run.
func (d *Dispatcher) process(n Notification) {
	d.histMu.Lock()
	d.history = append(d.history, n)
	if len(d.history) > d.cfg.MaxHistory {
		copy(d.history, d.history[1:])
		d.history = d.history[:d.cfg.MaxHistory]
	}
	d.histMu.Unlock()

	d.cbMu.RLock()
	callbacks := make([]Callback, 0, len(d.callbacks))
	for _, cb := range d.callbacks {
		callbacks = append(callbacks, cb)
	}
	d.cbMu.RUnlock()

	for _, cb := range callbacks {
		d.invokeCallback(cb, n)
	}

	if n.SoundAlert && d.cfg.SoundEnabled && d.cfg.Sound != nil {
		d.sendToSink(d.cfg.Sound, n)
	}
	if d.cfg.EmailEnabled && n.Priority.expedited() && d.cfg.Email != nil {
		d.sendToSink(d.cfg.Email, n)
	}
	if d.cfg.PushEnabled && d.cfg.Push != nil {
		d.sendToSink(d.cfg.Push, n)
	}
}

// invokeCallback runs one callback, containing any panic so the rest of
// the dispatch still happens.
func (d *Dispatcher) invokeCallback(cb Callback, n Notification) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("notify: callback panic: %v", r)
		}
	}()
	cb(n)
}

// sendToSink delivers one notification to one sink with a bounded timeout.
// Sink failures are terminal for this attempt and are not retried.
func (d *Dispatcher) sendToSink(s Sink, n Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.SinkTimeout)
	defer cancel()

	if err := s.Send(ctx, n); err != nil {
		log.Printf("notify: %s sink: %v", s.Name(), err)
	}
}
