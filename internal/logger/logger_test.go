package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false, true)
	l.Debug("hidden")
	l.Warn("shown", "n", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "BCVM")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	l = New(&buf, true, true)
	l.Debug("exec", "op", "LOAD_CONST")
	assert.Contains(t, buf.String(), "op=LOAD_CONST")
}
