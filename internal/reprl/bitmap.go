package reprl

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"

	"luafuzz/internal/fuzzerr"
)

// bitmapRegionSize is the fixed shared-memory region size per §4.11:
// a 4-byte num_edges header followed by one bit per edge.
const bitmapRegionSize = 0x100000

// EdgeSet is a growable set of previously-discovered edge indices,
// owned by the coverage evaluator and consulted (never mutated) by
// CoverageMap.NewEdges.
type EdgeSet struct {
	bits map[uint32]struct{}
}

func NewEdgeSet() *EdgeSet {
	return &EdgeSet{bits: make(map[uint32]struct{})}
}

func (s *EdgeSet) Has(edge uint32) bool {
	_, ok := s.bits[edge]
	return ok
}

func (s *EdgeSet) Add(edge uint32) {
	s.bits[edge] = struct{}{}
}

func (s *EdgeSet) Len() int { return len(s.bits) }

// CoverageMap wraps the memfd-backed shared memory region the paired
// interpreter child writes edge-guard hits into.
type CoverageMap struct {
	file memfile
	data []byte
}

// memfile is the subset of an *os.File operations CoverageMap needs,
// kept narrow so tests can substitute a plain temp file in place of a
// real memfd_create descriptor.
type memfile interface {
	Fd() uintptr
	Close() error
}

// newCoverageMap creates an anonymous memfd-backed mapping of
// bitmapRegionSize bytes, inherited by the REPRL child as an extra fd.
func newCoverageMap() (*CoverageMap, error) {
	fd, err := unix.MemfdCreate("luafuzz-coverage", 0)
	if err != nil {
		return nil, fuzzerr.Wrap(fuzzerr.CodeCoverageMapFailed, err)
	}
	if err := unix.Ftruncate(fd, bitmapRegionSize); err != nil {
		unix.Close(fd)
		return nil, fuzzerr.Wrap(fuzzerr.CodeCoverageMapFailed, err)
	}
	data, err := unix.Mmap(fd, 0, bitmapRegionSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fuzzerr.Wrap(fuzzerr.CodeCoverageMapFailed, err)
	}
	return &CoverageMap{file: &fdHandle{fd: fd}, data: data}, nil
}

// newCoverageMapFromBuffer builds a CoverageMap over an in-process
// buffer instead of a memfd mapping, so edge-diffing logic can be
// exercised without a real subprocess or kernel memfd support.
func newCoverageMapFromBuffer(data []byte) *CoverageMap {
	return &CoverageMap{file: &noopFile{}, data: data}
}

type noopFile struct{}

func (noopFile) Fd() uintptr { return 0 }
func (noopFile) Close() error { return nil }

type fdHandle struct{ fd int }

func (h *fdHandle) Fd() uintptr { return uintptr(h.fd) }
func (h *fdHandle) Close() error {
	return unix.Close(h.fd)
}

// Fd returns the descriptor to inherit into the REPRL child.
func (c *CoverageMap) Fd() uintptr { return c.file.Fd() }

// Close unmaps and releases the region.
func (c *CoverageMap) Close() error {
	if err := unix.Munmap(c.data); err != nil {
		c.file.Close()
		return err
	}
	return c.file.Close()
}

// SetNumEdges writes the header the instrumented interpreter reads to
// learn how many guard bits follow.
func (c *CoverageMap) SetNumEdges(n uint32) {
	binary.LittleEndian.PutUint32(c.data[0:4], n)
}

// NumEdges reads the header back.
func (c *CoverageMap) NumEdges() uint32 {
	return binary.LittleEndian.Uint32(c.data[0:4])
}

// NewEdges returns the set of edge indices whose guard bit is set in
// the live bitmap but absent from found (the evaluator's
// previously-discovered mask), without mutating either.
func (c *CoverageMap) NewEdges(found *EdgeSet) []uint32 {
	var fresh []uint32
	n := c.NumEdges()
	for i := uint32(0); i < n; i++ {
		byteIdx := 4 + i/8
		if int(byteIdx) >= len(c.data) {
			break
		}
		if c.data[byteIdx]&(1<<(i%8)) == 0 {
			continue
		}
		if !found.Has(i) {
			fresh = append(fresh, i)
		}
	}
	return fresh
}

// Reset clears every guard bit (but keeps the num_edges header),
// mirroring the reset the child performs after each execution so the
// parent's own re-reads start from a known-zero state between runs it
// drives itself (e.g. replay/minimization).
func (c *CoverageMap) Reset() {
	for i := range c.data[4:] {
		c.data[4+i] = 0
	}
}

func (c *CoverageMap) String() string {
	return fmt.Sprintf("CoverageMap{edges=%d}", c.NumEdges())
}
