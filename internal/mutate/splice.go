package mutate

import (
	"math/rand"

	"luafuzz/internal/builder"
	"luafuzz/internal/ir"
)

// SpliceMutator grafts a slice of another corpus program in at one
// point during replay, delegating the graft itself to whatever
// builder.Splicer the caller wires in (internal/splice.Splicer), per
// §4.9 and §4.7.
type SpliceMutator struct {
	Rand    *rand.Rand
	Rate    float64
	Splicer builder.Splicer
}

func (m *SpliceMutator) Name() string { return "SpliceMutator" }

func (m *SpliceMutator) Mutate(b *builder.Builder, parent *ir.Program) bool {
	code := parent.Code()
	b.ReserveVariableSpace(code)
	spliced := false
	for _, instr := range code {
		b.Emit(instr)
		if !spliced && m.Splicer != nil && m.Rand.Float64() < m.Rate {
			if m.Splicer.SpliceOnce(b) {
				spliced = true
			}
		}
	}
	if !spliced && m.Splicer != nil {
		spliced = m.Splicer.SpliceOnce(b)
	}
	return spliced
}
