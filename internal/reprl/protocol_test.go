package reprl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeExecHeaderLayout(t *testing.T) {
	header := encodeExecHeader(0x1234)
	require.Len(t, header, 12)
	assert.Equal(t, execTag[:], header[0:4])
	assert.Equal(t, byte(0x34), header[4])
	assert.Equal(t, byte(0x12), header[5])
	for _, b := range header[6:12] {
		assert.Equal(t, byte(0), b)
	}
}

func TestEncodeDecodeStatusRoundTrip(t *testing.T) {
	word := encodeStatus(7, 11)
	exitCode, signal := decodeStatus(word)
	assert.Equal(t, 7, exitCode)
	assert.Equal(t, 11, signal)
}

func TestDecodeStatusMasksToSingleBytes(t *testing.T) {
	exitCode, signal := decodeStatus(0xffffffff)
	assert.Equal(t, 0xff, exitCode)
	assert.Equal(t, 0xff, signal)
}

func TestVerifyHandshakeAcceptsExactTag(t *testing.T) {
	err := verifyHandshake([]byte{'H', 'E', 'L', 'O'})
	assert.NoError(t, err)
}

func TestVerifyHandshakeRejectsWrongBytes(t *testing.T) {
	err := verifyHandshake([]byte{'X', 'X', 'X', 'X'})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "F0100")
}

func TestVerifyHandshakeRejectsShortReply(t *testing.T) {
	err := verifyHandshake([]byte{'H', 'E'})
	require.Error(t, err)
}
