package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForReturnsUsableLogger(t *testing.T) {
	Configure(0, false)
	logger := For("corpus")
	assert.NotNil(t, logger)
}

func TestConfigureRaisesVerbosityWhenDebugSet(t *testing.T) {
	assert.NotPanics(t, func() { Configure(0, true) })
}
