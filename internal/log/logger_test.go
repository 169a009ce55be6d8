package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWriterLevels(t *testing.T) {
	var dev bytes.Buffer
	devLogger := NewWriter(&dev, "development", "console")
	devLogger.Debug().Msg("verbose")
	assert.Contains(t, dev.String(), "verbose")

	var prod bytes.Buffer
	logger := NewWriter(&prod, "production", "console")
	logger.Debug().Msg("verbose")
	assert.Empty(t, prod.String())

	logger.Info().Msg("started")
	assert.Contains(t, prod.String(), "started")
	assert.Contains(t, prod.String(), "app=console")
}
