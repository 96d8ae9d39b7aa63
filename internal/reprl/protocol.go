package reprl

import (
	"encoding/binary"
	"fmt"

	"luafuzz/internal/fuzzerr"
)

// Fixed fd numbers the child process is renumbered onto before exec,
// per §4.11: the child reads parent commands on ctrlReadFD, writes its
// status replies on ctrlWriteFD, and reads script bytes on dataReadFD.
const (
	ctrlReadFD  = 100 // child reads parent commands here
	ctrlWriteFD = 101 // child writes status/handshake reply here
	dataReadFD  = 102 // child reads script bytes here
	dataWriteFD = 103 // reserved for future child->parent payloads
)

var helloTag = [4]byte{'H', 'E', 'L', 'O'}
var execTag = [4]byte{'c', 'e', 'x', 'e'}

// encodeExecHeader builds the 12-byte "cexe" + little-endian script
// size header sent before the script bytes themselves.
func encodeExecHeader(scriptLen int) []byte {
	buf := make([]byte, 12)
	copy(buf[0:4], execTag[:])
	binary.LittleEndian.PutUint64(buf[4:12], uint64(scriptLen))
	return buf
}

// decodeStatus unpacks the 4-byte status word the child writes after
// each execution, laid out as (exitCode<<8) | signal: the low byte is
// the terminating signal (0 when the child exited normally) and the
// next byte the exit code.
func decodeStatus(word uint32) (exitCode int, signal int) {
	return int((word >> 8) & 0xff), int(word & 0xff)
}

func encodeStatus(exitCode, signal int) uint32 {
	return uint32(exitCode&0xff)<<8 | uint32(signal&0xff)
}

// verifyHandshake checks the echoed bytes equal the sent "HELO" tag.
func verifyHandshake(echoed []byte) error {
	if len(echoed) != 4 || [4]byte{echoed[0], echoed[1], echoed[2], echoed[3]} != helloTag {
		return fuzzerr.HandshakeError(fuzzerr.CodeHandshakeFailed, 0,
			fmt.Errorf("unexpected handshake reply %q", echoed))
	}
	return nil
}
