package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultLoggerLevels(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewLogger(&out, &errOut, "shadergif", false)

	l.Debugf("hidden %d", 1)
	l.Infof("rendering %d frames", 15)
	l.Warnf("frame %d failed", 3)
	l.Errorf("assembly failed")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "[shadergif] INFO: rendering 15 frames")
	assert.Contains(t, errOut.String(), "[shadergif] WARN: frame 3 failed")
	assert.Contains(t, errOut.String(), "[shadergif] ERROR: assembly failed")

	l.SetDebug(true)
	assert.True(t, l.DebugEnabled())
	l.Debugf("visible")
	assert.Contains(t, out.String(), "DEBUG: visible")
}

func TestNoPrefix(t *testing.T) {
	var out bytes.Buffer
	NewLogger(&out, &out, "", false).Infof("x")
	assert.Contains(t, out.String(), " INFO: x")
	assert.NotContains(t, out.String(), "[")
}

func TestOrNop(t *testing.T) {
	l := OrNop(nil)
	assert.NotNil(t, l)
	assert.False(t, l.DebugEnabled())
	l.Infof("discarded")

	d := NewNopLogger()
	assert.Equal(t, d, OrNop(d))
}
