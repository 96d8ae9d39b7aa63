package mutate

import (
	"math/rand"

	"luafuzz/internal/builder"
	"luafuzz/internal/ir"
)

// InputMutator replaces one input of a single instruction, encountered
// during replay, with another visible variable of a statically
// compatible type, per §4.9. It only considers ordinary (non-block,
// non-structural) instructions so block nesting stays intact.
type InputMutator struct {
	Rand *rand.Rand
	Rate float64
}

func (m *InputMutator) Name() string { return "InputMutator" }

func (m *InputMutator) Mutate(b *builder.Builder, parent *ir.Program) bool {
	code := parent.Code()
	b.ReserveVariableSpace(code)
	mutated := false
	for _, instr := range code {
		if !mutated && !isStructural(instr) && len(instr.Inputs()) > 0 && m.Rand.Float64() < m.Rate {
			if altered, ok := m.alter(b, instr); ok {
				instr = altered
				mutated = true
			}
		}
		b.Emit(instr)
	}
	return mutated
}

func (m *InputMutator) alter(b *builder.Builder, instr ir.Instruction) (ir.Instruction, bool) {
	inputs := instr.Inputs()
	idx := m.Rand.Intn(len(inputs))
	original := inputs[idx]
	want := b.TypeOf(original)
	for attempt := 0; attempt < 10; attempt++ {
		alt, ok := b.RandomVariableForUseAs(want)
		if ok && alt.ID() != original.ID() {
			return replaceInput(instr, idx, alt), true
		}
	}
	return instr, false
}
