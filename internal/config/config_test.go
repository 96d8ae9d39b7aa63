package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaultsAndPositionalArg(t *testing.T) {
	cfg, err := Parse([]string{"/usr/bin/lua-instrumented"})
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/lua-instrumented", cfg.InterpreterPath)
	assert.Equal(t, 1, cfg.Jobs)
	assert.Equal(t, 5, cfg.ConsecutiveMutations)
}

func TestParseRejectsMissingInterpreterPath(t *testing.T) {
	_, err := Parse([]string{"--jobs=2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "F0201")
}

func TestParseRejectsOverwriteAndResumeTogether(t *testing.T) {
	_, err := Parse([]string{"--overwrite", "--resume", "/bin/lua"})
	require.Error(t, err)
}

func TestParseRejectsStatisticsIntervalWithoutPositiveValue(t *testing.T) {
	_, err := Parse([]string{"--exportStatistics", "--statisticsExportInterval=0s", "/bin/lua"})
	require.Error(t, err)
}

func TestParseOverridesFlags(t *testing.T) {
	cfg, err := Parse([]string{"--jobs=4", "--swarmTesting", "--debug", "/bin/lua"})
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Jobs)
	assert.True(t, cfg.SwarmTesting)
	assert.True(t, cfg.Debug)
	assert.Equal(t, time.Minute, cfg.StatisticsExportInterval)
}
