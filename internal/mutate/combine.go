package mutate

import (
	"math/rand"

	"luafuzz/internal/builder"
	"luafuzz/internal/ir"
)

// Source supplies another program to combine with; internal/corpus
// satisfies it via RandomProgramForSplicing.
type Source interface {
	RandomProgramForSplicing() *ir.Program
}

// CombineMutator appends an entire second program after parent,
// remapping the second program's variables onto freshly allocated
// host ids so the two instruction streams never collide, per §4.9's
// concatenation/combination mutator.
type CombineMutator struct {
	Rand   *rand.Rand
	Source Source
}

func (m *CombineMutator) Name() string { return "CombineMutator" }

func (m *CombineMutator) Mutate(b *builder.Builder, parent *ir.Program) bool {
	other := m.Source.RandomProgramForSplicing()
	if other == nil {
		return false
	}

	parentCode := parent.Code()
	b.ReserveVariableSpace(parentCode)
	for _, instr := range parentCode {
		b.Emit(instr)
	}

	remap := map[uint32]ir.Variable{}
	for _, instr := range other.Code() {
		inputs := remapVars(instr.Inputs(), remap)
		outputs := allocateRemapped(b, instr.Outputs(), remap)
		inner := allocateRemapped(b, instr.InnerOutputs(), remap)
		b.Emit(ir.NewInstruction(instr.Op, inputs, outputs, inner, instr.Index))
	}
	return true
}

func remapVars(vars []ir.Variable, remap map[uint32]ir.Variable) []ir.Variable {
	out := make([]ir.Variable, len(vars))
	for i, v := range vars {
		if hv, ok := remap[v.ID()]; ok {
			out[i] = hv
		} else {
			out[i] = v
		}
	}
	return out
}

func allocateRemapped(b *builder.Builder, vars []ir.Variable, remap map[uint32]ir.Variable) []ir.Variable {
	out := make([]ir.Variable, len(vars))
	for i, v := range vars {
		var fresh ir.Variable
		if v.IsGlobal() {
			fresh = b.NewGlobalVar()
		} else {
			fresh = b.NewVar()
		}
		remap[v.ID()] = fresh
		out[i] = fresh
	}
	return out
}
