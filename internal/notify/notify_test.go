package notify

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Notify(LevelSuccess, "saved")
	w.Notify(LevelError, "failed")

	assert.Equal(t, "[ok] saved\n[!!] failed\n", buf.String())
}

func TestRecorder(t *testing.T) {
	var r Recorder
	_, ok := r.Last()
	assert.False(t, ok)

	r.Notify(LevelInfo, "one")
	r.Notify(LevelError, "two")

	last, ok := r.Last()
	assert.True(t, ok)
	assert.Equal(t, Message{Level: LevelError, Text: "two"}, last)
	assert.Len(t, r.Messages(), 2)
}
