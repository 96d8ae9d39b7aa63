package mutate

import (
	"math/rand"

	"luafuzz/internal/builder"
	"luafuzz/internal/ir"
)

var (
	unaryOps   = []string{"-", "not", "#", "~"}
	binaryOps  = []string{"+", "-", "*", "/", "%", "^", "..", "and", "or"}
	compareOps = []string{"==", "~=", "<", "<=", ">", ">="}
)

func pickOtherThan(rng *rand.Rand, options []string, current string) string {
	for attempt := 0; attempt < 10; attempt++ {
		choice := options[rng.Intn(len(options))]
		if choice != current {
			return choice
		}
	}
	return current
}

// OperationMutator replaces the operator of one IsMutable instruction
// encountered during replay with a different one of the same kind
// (e.g. "+" becomes "-"), per §4.9.
type OperationMutator struct {
	Rand *rand.Rand
	Rate float64
}

func (m *OperationMutator) Name() string { return "OperationMutator" }

func (m *OperationMutator) Mutate(b *builder.Builder, parent *ir.Program) bool {
	code := parent.Code()
	b.ReserveVariableSpace(code)
	mutated := false
	for _, instr := range code {
		if !mutated && instr.HasAttr(ir.IsMutable) && m.Rand.Float64() < m.Rate {
			if altered, ok := m.alter(instr); ok {
				instr = altered
				mutated = true
			}
		}
		b.Emit(instr)
	}
	return mutated
}

func (m *OperationMutator) alter(instr ir.Instruction) (ir.Instruction, bool) {
	switch op := instr.Op.(type) {
	case ir.Unary:
		op.Op = pickOtherThan(m.Rand, unaryOps, op.Op)
		return rebuildOp(instr, op), true
	case ir.Binary:
		op.Op = pickOtherThan(m.Rand, binaryOps, op.Op)
		return rebuildOp(instr, op), true
	case ir.Compare:
		op.Op = pickOtherThan(m.Rand, compareOps, op.Op)
		return rebuildOp(instr, op), true
	case ir.Update:
		op.Op = pickOtherThan(m.Rand, binaryOps, op.Op)
		return rebuildOp(instr, op), true
	case ir.CallMethod:
		op.MethodName = randomMethodName(m.Rand, op.MethodName)
		return rebuildOp(instr, op), true
	case ir.BeginRepeatLoop:
		op.Iterations = jitterIterations(m.Rand, op.Iterations)
		return rebuildOp(instr, op), true
	}
	return instr, false
}

var commonMethodNames = []string{"insert", "remove", "concat", "sort", "format", "find", "gsub", "sub", "abs", "floor", "ceil"}

func randomMethodName(rng *rand.Rand, current string) string {
	return pickOtherThan(rng, commonMethodNames, current)
}

func jitterIterations(rng *rand.Rand, current int64) int64 {
	delta := int64(rng.Intn(21)) - 10 // [-10, 10]
	next := current + delta
	if next < 0 {
		next = 0
	}
	return next
}
