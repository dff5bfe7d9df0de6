package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Output: &buf, Level: LevelInfo})

	l.With(Component("workspace")).Info("points applied", StudentID("s1"), Points(23))
	l.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry LogEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "INFO", entry.Level)
	assert.Equal(t, "points applied", entry.Message)
	assert.Equal(t, "workspace", entry.Fields["component"])
	assert.Equal(t, "s1", entry.Fields["student_id"])
	assert.Equal(t, float64(23), entry.Fields["points"])
}

func TestLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Output: &buf, Level: LevelDebug, Format: FormatText})

	l.Warningf("badger: %s\n", "value log gc")
	out := buf.String()
	assert.Contains(t, out, "WARN badger: value log gc")
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestParse(t *testing.T) {
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelInfo, ParseLevel("bogus"))
	assert.Equal(t, FormatText, ParseFormat("TEXT"))
	assert.Equal(t, FormatJSON, ParseFormat(""))
}

func TestLogger_WithLevelAndNop(t *testing.T) {
	var buf bytes.Buffer
	base := New(Options{Output: &buf, Level: LevelDebug, Format: FormatText})
	quiet := base.WithLevel(LevelWarn).With(Component("badger"))

	quiet.Infof("compaction started")
	quiet.Errorf("value log: %v", "corrupt")
	base.Debug("still here")

	out := buf.String()
	assert.NotContains(t, out, "compaction started")
	assert.Contains(t, out, "ERROR value log: corrupt component=badger")
	assert.Contains(t, out, "DEBUG still here")
	assert.False(t, Nop().Enabled(LevelError))
}
