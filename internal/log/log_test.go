package log

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWritesJSON(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "logs", "scrollkit.log")
	Setup(path, true)
	require.True(t, Initialized())

	slog.Debug("Hello from the test", "answer", 42)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"Hello from the test"`)
	assert.Contains(t, string(data), `"answer":42`)
}

func TestRecoverPanicRunsCleanup(t *testing.T) {
	t.Parallel()

	cleaned := false
	func() {
		defer RecoverPanic("test", func() { cleaned = true })
		panic("boom")
	}()
	assert.True(t, cleaned)
}
