package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dizzycode.xyz/multi-strategy-server/internal/infrastructure/config"
)

func TestNew(t *testing.T) {
	for _, env := range []string{"development", "production"} {
		log, err := New(&config.Config{Environment: env, LogLevel: "debug"})
		require.NoError(t, err)
		assert.NotPanics(t, func() { log.Info("factory test", "environment", env) })
	}
}
