package notify

import (
	"fmt"
	"io"
	"sync"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notifier shows short messages to the person operating the console.
type Notifier interface {
	Notify(level Level, message string)
}

// Writer prints one line per notification.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
}

func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

func (w *Writer) Notify(level Level, message string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, "%s %s\n", symbol(level), message)
}

func symbol(level Level) string {
	switch level {
	case LevelSuccess:
		return "[ok]"
	case LevelError:
		return "[!!]"
	default:
		return "[..]"
	}
}

type Message struct {
	Level Level
	Text  string
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) Notify(level Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Level: level, Text: message})
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return Message{}, false
	}
	return r.messages[len(r.messages)-1], true
}

type discard struct{}

func (discard) Notify(Level, string) {}

var Discard Notifier = discard{}
