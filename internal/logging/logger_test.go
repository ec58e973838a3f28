package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/docuchat/internal/config"
)

func TestNew(t *testing.T) {
	t.Run("creates json logger", func(t *testing.T) {
		logger, err := New(config.LoggingConfig{Level: "info", Format: "json"})
		require.NoError(t, err)
		assert.NotNil(t, logger)
	})

	t.Run("creates console logger", func(t *testing.T) {
		logger, err := New(config.LoggingConfig{Level: "debug", Format: "console"})
		require.NoError(t, err)
		assert.NotNil(t, logger)
	})

	t.Run("rejects invalid level", func(t *testing.T) {
		_, err := New(config.LoggingConfig{Level: "verbose", Format: "json"})
		assert.Error(t, err)
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := New(config.LoggingConfig{Level: "info", Format: "xml"})
		assert.Error(t, err)
	})
}
