package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultEnvironmentExposesCoreBuiltins(t *testing.T) {
	e := NewDefault()

	for _, name := range []string{"string", "table", "math", "print", "pairs", "pcall"} {
		_, ok := e.Lookup(name)
		assert.True(t, ok, "expected builtin %q", name)
	}
}

func TestStringGroupHasSubMethod(t *testing.T) {
	e := NewDefault()
	g, ok := e.Group("string")
	require.True(t, ok)
	subSig, ok := g.Methods["sub"]
	require.True(t, ok)
	assert.Len(t, subSig.Parameters, 3)
}
