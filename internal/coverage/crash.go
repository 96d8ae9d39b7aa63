package coverage

import (
	"encoding/binary"
	"sort"

	"golang.org/x/crypto/blake2b"

	"luafuzz/internal/reprl"
)

// CrashSignature is a 256-bit fingerprint of a crash's new-edge set,
// used as the crash-dedup key so the same underlying bug reported by
// many differently-shaped programs is recorded once.
type CrashSignature [blake2b.Size256]byte

// SignatureOf hashes the sorted edge-index set a crashing execution
// reported, so signature equality is independent of edge discovery
// order.
func SignatureOf(edges []uint32) CrashSignature {
	sorted := append([]uint32(nil), edges...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	buf := make([]byte, 4*len(sorted))
	for i, e := range sorted {
		binary.LittleEndian.PutUint32(buf[i*4:], e)
	}
	return blake2b.Sum256(buf)
}

// Crash is one classified crashing execution.
type Crash struct {
	Signature     CrashSignature
	Deterministic bool
	ExitCode      int
	Signal        int
}

// Classifier re-executes a script once more (the caller-supplied
// Reexecutor runs it at double the original REPRL timeout, per §4.11)
// to tell a deterministic crash from a flaky one, then computes its
// dedup signature from the edges the first execution hit.
type Classifier struct {
	seen map[CrashSignature]struct{}
}

func NewClassifier() *Classifier {
	return &Classifier{seen: make(map[CrashSignature]struct{})}
}

// Classify takes the first crashing result and a reexecution function
// that reruns the same script with the timeout doubled.
func (c *Classifier) Classify(first reprl.ExecResult, reexec Reexecutor) (Crash, bool) {
	signature := SignatureOf(first.NewEdges)
	second, err := reexec()
	deterministic := err == nil && second.Crashed

	_, dup := c.seen[signature]
	c.seen[signature] = struct{}{}

	return Crash{
		Signature:     signature,
		Deterministic: deterministic,
		ExitCode:      first.ExitCode,
		Signal:        first.Signal,
	}, !dup
}
