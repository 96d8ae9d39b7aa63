package reprl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoverageMapNewEdgesSkipsPreviouslyFound(t *testing.T) {
	data := make([]byte, bitmapRegionSize)
	c := newCoverageMapFromBuffer(data)
	c.SetNumEdges(16)
	data[4] = 0b0000_0110 // edges 1 and 2 hit

	found := NewEdgeSet()
	found.Add(1)

	fresh := c.NewEdges(found)
	assert.Equal(t, []uint32{2}, fresh)
}

func TestCoverageMapResetClearsBitsKeepsHeader(t *testing.T) {
	data := make([]byte, bitmapRegionSize)
	c := newCoverageMapFromBuffer(data)
	c.SetNumEdges(8)
	data[4] = 0xff

	c.Reset()

	assert.Equal(t, uint32(8), c.NumEdges())
	assert.Equal(t, byte(0), data[4])
}

func TestCoverageMapNewEdgesEmptyWhenNoEdgesSet(t *testing.T) {
	data := make([]byte, bitmapRegionSize)
	c := newCoverageMapFromBuffer(data)
	c.SetNumEdges(0)

	fresh := c.NewEdges(NewEdgeSet())
	assert.Empty(t, fresh)
}
