package mutate

import (
	"math/rand"

	"luafuzz/internal/builder"
	"luafuzz/internal/ir"
)

// CodeGenMutator inserts a fresh chunk of generated code (via the same
// budget-driven builder loop used to construct programs from scratch)
// at one point during replay, per §4.9.
type CodeGenMutator struct {
	Rand   *rand.Rand
	Rate   float64
	Budget int
}

func (m *CodeGenMutator) Name() string { return "CodeGenMutator" }

func (m *CodeGenMutator) Mutate(b *builder.Builder, parent *ir.Program) bool {
	code := parent.Code()
	b.ReserveVariableSpace(code)
	budget := m.Budget
	if budget <= 0 {
		budget = 10
	}
	inserted := false
	for _, instr := range code {
		b.Emit(instr)
		if !inserted && !isStructural(instr) && m.Rand.Float64() < m.Rate {
			b.Build(budget)
			inserted = true
		}
	}
	if !inserted {
		b.Build(budget)
		inserted = true
	}
	return inserted
}
