package fuzzerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrorCarriesInstructionContext(t *testing.T) {
	err := ValidationError(3, "duplicate definition of v2")
	assert.Equal(t, CodeInvalidProgram, err.Code)
	assert.Equal(t, 3, err.Context["instruction"])
}

func TestHandshakeErrorUnwraps(t *testing.T) {
	cause := errors.New("broken pipe")
	err := HandshakeError(CodeHandshakeFailed, 4242, cause)
	assert.Equal(t, 4242, err.Context["pid"])
	assert.ErrorIs(t, err, cause)
}

func TestReporterFormatIncludesCode(t *testing.T) {
	r := NewReporter(func(i int) string { return "LoadNumber 1 -> v0" })
	err := ValidationError(1, "use of undefined variable v5")
	out := r.Format(err)
	assert.Contains(t, out, CodeInvalidProgram)
	assert.Contains(t, out, "LoadNumber 1 -> v0")
}
