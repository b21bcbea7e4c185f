// Package notify delivers short, transient notifications to the user.
package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Notifier shows a transient message to the user.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Terminal prints notifications as styled single lines.
type Terminal struct {
	mu      sync.Mutex
	w       io.Writer
	success lipgloss.Style
	failure lipgloss.Style
}

// NewTerminal returns a Terminal writing to w. Colours are dropped when w is not a TTY.
func NewTerminal(w io.Writer) *Terminal {
	r := lipgloss.NewRenderer(w)
	return &Terminal{
		w:       w,
		success: r.NewStyle().Foreground(lipgloss.Color("#47c98f")).Bold(true),
		failure: r.NewStyle().Foreground(lipgloss.Color("#e5484d")).Bold(true),
	}
}

func (t *Terminal) Success(msg string) {
	if t == nil {
		return
	}
	t.print(t.success.Render("✓"), msg)
}

func (t *Terminal) Error(msg string) {
	if t == nil {
		return
	}
	t.print(t.failure.Render("✗"), msg)
}

func (t *Terminal) print(mark, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = fmt.Fprintf(t.w, "%s %s\n", mark, msg)
}

// Level of a recorded notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Message is a recorded notification.
type Message struct {
	Level Level
	Text  string
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) Success(msg string) { r.add(LevelSuccess, msg) }
func (r *Recorder) Error(msg string)   { r.add(LevelError, msg) }

func (r *Recorder) add(l Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Level: l, Text: msg})
}

// Messages returns a copy of what was recorded so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Last returns the most recent notification, if any.
func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return Message{}, false
	}
	return r.messages[len(r.messages)-1], true
}

// Discard drops every notification.
type Discard struct{}

func (Discard) Success(string) {}
func (Discard) Error(string)   {}
