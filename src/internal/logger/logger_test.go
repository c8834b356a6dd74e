package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizePayloadMasksCredentials(t *testing.T) {
	payload := map[string]any{
		"accountId": "1",
		"password":  "pranav123",
		"nested": map[string]any{
			"Token": "abc.def.ghi",
		},
	}

	got, ok := SanitizePayload(payload).(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "1", got["accountId"])
	assert.Equal(t, "******", got["password"])
	assert.Equal(t, "******", got["nested"].(map[string]any)["Token"])
}

func TestErrorWritesStructuredEntry(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stderr) })

	Error("gateway call failed", errors.New("boom"), Fields{"path": "/transfers", "token": "secret"})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "gateway call failed", entry["msg"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "/transfers", entry["path"])
	assert.Equal(t, "******", entry["token"])
}

func TestInitializeRejectsUnknownLevel(t *testing.T) {
	assert.Error(t, Initialize("loud", "json"))
	assert.NoError(t, Initialize("info", "json"))
}
