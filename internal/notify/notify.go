// Package notify carries user-visible notifications (toasts) away from the
// component that raised them.
package notify

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Level is the severity of a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Message is one notification.
type Message struct {
	Level Level
	Text  string
}

// Notifier shows notifications to the user.
type Notifier interface {
	Notify(level Level, text string)
}

// Nop drops every notification.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(Level, string) {}

// Logger forwards notifications to a zap logger.
type Logger struct {
	L *zap.Logger
}

// Notify implements Notifier.
func (n Logger) Notify(level Level, text string) {
	if n.L == nil {
		return
	}
	switch level {
	case LevelError:
		n.L.Error(text)
	case LevelWarning:
		n.L.Warn(text)
	default:
		n.L.Info(text)
	}
}

// Recorder keeps notifications in memory; the console TUI renders from it.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// Notify implements Notifier.
func (r *Recorder) Notify(level Level, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Level: level, Text: text})
}

// Messages returns a copy of the recorded notifications.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Last returns the most recent notification.
func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return Message{}, false
	}
	return r.messages[len(r.messages)-1], true
}

// Or returns n, or Nop when n is nil.
func Or(n Notifier) Notifier {
	if n == nil {
		return Nop{}
	}
	return n
}

// Surfaced reports whether err was already shown to the user by the layer
// that produced it.
func Surfaced(err error) bool {
	var s interface{ Surfaced() bool }
	return errors.As(err, &s) && s.Surfaced()
}
