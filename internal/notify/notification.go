// Package notify provides the asynchronous, rate-limited notification
// pipeline that fans detection alerts out to callbacks and delivery sinks.
package notify

import (
	"context"
	"time"
)

// Type identifies the kind of notification for rate limiting and stats.
type Type string

const (
	// TypeGestureDetected is emitted when a stable gesture is accepted.
	TypeGestureDetected Type = "gesture_detected"
	// TypeSystemStatus is emitted for lifecycle and health changes.
	TypeSystemStatus Type = "system_status"
	// TypeSystemError is emitted for contained runtime failures.
	TypeSystemError Type = "system_error"
)

// Priority controls delivery: high and critical notifications are
// dispatched inline ahead of the queue and are eligible for email.
type Priority string

const (
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// expedited reports whether a priority takes the inline dispatch path.
func (p Priority) expedited() bool {
	return p == PriorityHigh || p == PriorityCritical
}

// Notification is an immutable record of a noteworthy event destined for
// one or more delivery sinks. Never mutated after construction.
type Notification struct {
	Type       Type           `json:"type"`
	Message    string         `json:"message"`
	Data       map[string]any `json:"data"`
	Priority   Priority       `json:"priority"`
	Timestamp  time.Time      `json:"timestamp"`
	SoundAlert bool           `json:"sound_alert"`
}

// Callback receives every notification that completes dispatch. Callbacks
// run on the dispatch goroutine and are individually fault-isolated.
type Callback func(Notification)

// Sink is an external delivery channel for notifications. Send must
// return rather than panic on failure and should honor the context
// deadline so one slow channel cannot stall the dispatch loop.
type Sink interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}

// Stats summarizes the current notification history plus rate-limit and
// overflow drops since startup.
type Stats struct {
	Total      int            `json:"total"`
	ByType     map[string]int `json:"by_type"`
	ByPriority map[string]int `json:"by_priority"`
	Dropped    int            `json:"dropped"`
}
