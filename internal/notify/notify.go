package notify

import (
	"log"
	"sync"
	"time"
)

// Level classifies a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

// Notification is a transient message shown to the employee.
type Notification struct {
	Level     Level  `json:"level"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// Notifier receives user-facing notifications. Implementations must be safe
// for concurrent use and must not block the caller for long.
type Notifier interface {
	Notify(level Level, message string)
}

// New builds a Notification stamped with the current time.
func New(level Level, message string) Notification {
	return Notification{Level: level, Message: message, Timestamp: time.Now().UnixMilli()}
}

// Discard drops every notification.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(Level, string) {}

// LogNotifier writes notifications to the standard logger.
type LogNotifier struct {
	Prefix string
}

// Notify implements Notifier.
func (n LogNotifier) Notify(level Level, message string) {
	prefix := n.Prefix
	if prefix == "" {
		prefix = "[notify]"
	}
	log.Printf("%s %s: %s", prefix, level, message)
}

// Multi fans a notification out to every non-nil notifier.
func Multi(notifiers ...Notifier) Notifier {
	filtered := make(multi, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			filtered = append(filtered, n)
		}
	}
	return filtered
}

type multi []Notifier

func (m multi) Notify(level Level, message string) {
	for _, n := range m {
		n.Notify(level, message)
	}
}

// Func adapts a function to Notifier.
type Func func(level Level, message string)

// Notify implements Notifier.
func (f Func) Notify(level Level, message string) {
	f(level, message)
}

// Recorder keeps every notification in memory. Tests and the interactive
// shell read it back.
type Recorder struct {
	mu    sync.RWMutex
	items []Notification
}

// Notify implements Notifier.
func (r *Recorder) Notify(level Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, New(level, message))
}

// All returns a copy of the recorded notifications in arrival order.
func (r *Recorder) All() []Notification {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

// Messages returns the texts recorded at level.
func (r *Recorder) Messages(level Level) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for _, item := range r.items {
		if item.Level == level {
			out = append(out, item.Message)
		}
	}
	return out
}

// Drain returns and clears the recorded notifications.
func (r *Recorder) Drain() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := r.items
	r.items = nil
	return out
}
