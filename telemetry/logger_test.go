package telemetry

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredLoggerDefaultsToTextFormat(t *testing.T) {
	os.Unsetenv("TRIAGE_LOG_FORMAT")
	os.Unsetenv("KUBERNETES_SERVICE_HOST")

	var buf bytes.Buffer
	l := NewStructuredLogger("triage-test")
	l.SetOutput(&buf)

	l.Info("hello", map[string]interface{}{"foo": "bar"})

	out := buf.String()
	assert.Contains(t, out, "[INFO]")
	assert.Contains(t, out, "triage-test")
	assert.Contains(t, out, "foo=bar")
}

func TestStructuredLoggerJSONFormatRedactsFields(t *testing.T) {
	os.Setenv("TRIAGE_LOG_FORMAT", "json")
	defer os.Unsetenv("TRIAGE_LOG_FORMAT")

	var buf bytes.Buffer
	l := NewStructuredLogger("triage-test")
	l.SetOutput(&buf)

	l.Info("login", map[string]interface{}{"password": "hunter2", "user": "alice"})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "[REDACTED]", entry["password"])
	assert.Equal(t, "alice", entry["user"])
	assert.Equal(t, "login", entry["message"])
}

func TestStructuredLoggerDebugSuppressedBelowDebugLevel(t *testing.T) {
	os.Setenv("TRIAGE_LOG_LEVEL", "INFO")
	defer os.Unsetenv("TRIAGE_LOG_LEVEL")

	var buf bytes.Buffer
	l := NewStructuredLogger("triage-test")
	l.SetOutput(&buf)

	l.Debug("should not appear", nil)

	assert.Empty(t, buf.String())
}

func TestStructuredLoggerDebugLevelEnablesDebugOutput(t *testing.T) {
	os.Setenv("TRIAGE_LOG_LEVEL", "DEBUG")
	defer os.Unsetenv("TRIAGE_LOG_LEVEL")

	var buf bytes.Buffer
	l := NewStructuredLogger("triage-test")
	l.SetOutput(&buf)

	l.Debug("visible", nil)

	assert.True(t, strings.Contains(buf.String(), "[DEBUG]"))
}

func TestStructuredLoggerErrorIsRateLimited(t *testing.T) {
	var buf bytes.Buffer
	l := NewStructuredLogger("triage-test")
	l.SetOutput(&buf)

	l.Error("first", nil)
	firstLen := buf.Len()
	l.Error("second", nil)

	assert.Equal(t, firstLen, buf.Len(), "a second Error call within the rate-limit window must be dropped")
}
