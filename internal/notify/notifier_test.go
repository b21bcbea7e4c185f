package notify

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTerminal(t *testing.T) {
	var buf bytes.Buffer
	n := NewTerminal(&buf)

	n.Success("Token added successfully")
	n.Error("rate limited")

	out := buf.String()
	assert.Contains(t, out, "✓ Token added successfully\n")
	assert.Contains(t, out, "✗ rate limited\n")
}

func TestTerminal_NilIsSafe(t *testing.T) {
	var n *Terminal
	assert.NotPanics(t, func() {
		n.Success("ignored")
		n.Error("ignored")
	})
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	_, ok := r.Last()
	assert.False(t, ok)

	r.Success("saved")
	r.Error("failed")

	last, ok := r.Last()
	assert.True(t, ok)
	assert.Equal(t, Message{Level: LevelError, Text: "failed"}, last)
	assert.Equal(t, []Message{
		{Level: LevelSuccess, Text: "saved"},
		{Level: LevelError, Text: "failed"},
	}, r.Messages())
}
