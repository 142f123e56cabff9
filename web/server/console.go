package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/df07/go-pathtracer/pkg/core"
)

// ConsoleMessage represents a console message with timestamp
type ConsoleMessage struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"` // "info", "warning", "error"
}

// WebLogger implements core.Logger by sending messages to a console channel
// in addition to the server log
type WebLogger struct {
	next        core.Logger
	consoleChan chan<- ConsoleMessage
}

// NewWebLogger creates a logger for a single render. next may be nil.
func NewWebLogger(next core.Logger, consoleChan chan<- ConsoleMessage) core.Logger {
	if next == nil {
		next = core.NopLogger{}
	}
	return &WebLogger{
		next:        next,
		consoleChan: consoleChan,
	}
}

// Printf implements core.Logger interface
func (wl *WebLogger) Printf(format string, args ...interface{}) {
	wl.next.Printf(format, args...)

	if wl.consoleChan == nil {
		return
	}
	message := fmt.Sprintf(format, args...)

	// Never block the render on a slow client
	select {
	case wl.consoleChan <- ConsoleMessage{
		Message:   message,
		Timestamp: time.Now(),
		Level:     messageLevel(message),
	}:
	default:
	}
}

func messageLevel(message string) string {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "error"), strings.Contains(lower, "failed"):
		return "error"
	case strings.Contains(lower, "warning"):
		return "warning"
	default:
		return "info"
	}
}
