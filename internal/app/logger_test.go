package app

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/specialistvlad/jobgrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Parallel()

	t.Run("json format", func(t *testing.T) {
		buf := &testutil.SafeBuffer{}
		newLogger("info", "json", buf).Info("hello", "job", "build")

		var line map[string]any
		require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &line))
		assert.Equal(t, "hello", line["msg"])
		assert.Equal(t, "build", line["job"])
	})

	t.Run("level filters", func(t *testing.T) {
		buf := &testutil.SafeBuffer{}
		logger := newLogger("warn", "text", buf)
		logger.Info("hidden")
		logger.Warn("shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "msg=shown")
	})

	t.Run("unknown level is info", func(t *testing.T) {
		buf := &testutil.SafeBuffer{}
		logger := newLogger("loud", "text", buf)
		logger.Debug("hidden")
		logger.Info("shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "msg=shown")
	})
}
