package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "travelcrm.log")
	log, err := New(path, "debug")
	require.NoError(t, err)

	log.With("component", "test").Info("subscription started", "collection", "queries")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"subscription started"`)
	assert.Contains(t, string(data), `"collection":"queries"`)
	assert.Contains(t, string(data), `"component":"test"`)
	assert.Contains(t, string(data), `"timestamp"`)
}

func TestNew_RejectsBadLevel(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "x.log"), "loud")
	assert.Error(t, err)

	_, err = New("", "info")
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Error("ignored", "k", "v")
	assert.NotNil(t, log.With("a", 1))
}
