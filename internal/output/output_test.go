package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_Status_PrintsIconAndMessage(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf, ModeHuman)

	w.Status("🔍", "Scanning skill roots...")

	output := buf.String()
	assert.Contains(t, output, "🔍")
	assert.Contains(t, output, "Scanning skill roots...")
}

func TestWriter_Success_PrintsCheckmark(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf, ModeHuman)

	w.Success("Index complete!")

	output := buf.String()
	assert.Contains(t, output, "✅")
	assert.Contains(t, output, "Index complete!")
}

func TestWriter_Error_PrintsErrorIcon(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf, ModeHuman)

	w.Error("Store is locked by another process")

	output := buf.String()
	assert.Contains(t, output, "❌")
	assert.Contains(t, output, "Store is locked by another process")
}

func TestWriter_Statusf_FormatsMessage(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf, ModeHuman)

	w.Statusf("📂", "Found %d skills in %s", 42, "/home/dev/.skills")

	output := buf.String()
	assert.Contains(t, output, "📂")
	assert.Contains(t, output, "Found 42 skills in /home/dev/.skills")
}

func TestWriter_RobotMode_SuppressesStatusLines(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf, ModeRobot)

	w.Status("🔍", "working")
	w.Success("done")
	w.Warning("careful")
	w.Error("broken")
	w.Plain("text")
	w.Block("indented")
	w.Newline()

	assert.Empty(t, buf.String(), "robot consumers must only see the envelope")
	assert.True(t, w.Robot())
}

func TestWriter_JSON_EmitsEnvelope(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf, ModeRobot)

	require.NoError(t, w.JSON(map[string]any{"status": "ok", "total": 3}))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "ok", decoded["status"])
	assert.EqualValues(t, 3, decoded["total"])
}

func TestWriter_JSON_DoesNotEscapeHTML(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf, ModeRobot)

	require.NoError(t, w.JSON(map[string]string{"body": "a < b && c > d"}))
	assert.Contains(t, buf.String(), "a < b && c > d")
}

func TestWriter_Block_IndentsEveryLine(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf, ModeHuman)

	w.Block("first\nsecond")

	assert.Contains(t, buf.String(), "  first\n")
	assert.Contains(t, buf.String(), "  second\n")
}

func TestIsTTY_FalseForBuffer(t *testing.T) {
	assert.False(t, IsTTY(&bytes.Buffer{}))
	assert.False(t, IsTTY(nil))
}
