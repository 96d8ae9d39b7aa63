package mutate

import (
	"math/rand"

	"luafuzz/internal/builder"
	"luafuzz/internal/ir"
)

// JITStressMutator wraps a remapped copy of the program body in a
// fixed-iteration loop before the original body runs once more
// unwrapped, forcing a JIT-compiling target to tier up and compile the
// body ahead of the "real" execution that follows, per §4.9.
type JITStressMutator struct {
	Rand       *rand.Rand
	Iterations int64
}

func (m *JITStressMutator) Name() string { return "JITStressMutator" }

func (m *JITStressMutator) Mutate(b *builder.Builder, parent *ir.Program) bool {
	code := parent.Code()
	if len(code) == 0 {
		return false
	}
	iterations := m.Iterations
	if iterations <= 0 {
		iterations = 100
	}

	b.ReserveVariableSpace(code)

	remap := map[uint32]ir.Variable{}
	b.Emit(ir.NewInstruction(ir.BeginRepeatLoop{Iterations: iterations}, nil, nil, nil, nil))
	for _, instr := range code {
		inputs := remapVars(instr.Inputs(), remap)
		outputs := allocateRemapped(b, instr.Outputs(), remap)
		inner := allocateRemapped(b, instr.InnerOutputs(), remap)
		b.Emit(ir.NewInstruction(instr.Op, inputs, outputs, inner, instr.Index))
	}
	b.Emit(ir.NewInstruction(ir.EndRepeatLoop{}, nil, nil, nil, nil))

	for _, instr := range code {
		b.Emit(instr)
	}
	return true
}
