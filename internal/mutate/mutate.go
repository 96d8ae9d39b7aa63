// Package mutate implements the mutator catalog described in §4.9:
// each Mutator replays a parent program's instructions through a
// builder, altering the stream at one chosen point, and reports
// whether it actually changed anything (an all-fallthrough replay
// with no opportunity taken is not interesting and should be
// discarded by the caller).
package mutate

import (
	"luafuzz/internal/builder"
	"luafuzz/internal/ir"
)

// Mutator produces a mutated variant of parent by replaying it (with
// alterations) through b. b should be freshly Reset and have had
// b.ReserveVariableSpace(parent.Code()) applied by the caller before
// Mutate runs, since every mutator replays parent's instructions with
// their original variable ids intact.
type Mutator interface {
	Name() string
	Mutate(b *builder.Builder, parent *ir.Program) bool
}

// rebuildOp returns a copy of instr with its operation replaced by op,
// keeping the same input/output/inner-output variables and literal
// index.
func rebuildOp(instr ir.Instruction, op ir.Operation) ir.Instruction {
	return ir.NewInstruction(op, instr.Inputs(), instr.Outputs(), instr.InnerOutputs(), instr.Index)
}

// replaceInput returns a copy of instr with inputs[idx] replaced by v.
func replaceInput(instr ir.Instruction, idx int, v ir.Variable) ir.Instruction {
	inputs := append([]ir.Variable(nil), instr.Inputs()...)
	inputs[idx] = v
	return ir.NewInstruction(instr.Op, inputs, instr.Outputs(), instr.InnerOutputs(), instr.Index)
}

// isStructural reports whether instr takes part in block nesting;
// InputMutator skips these since rewriting a block-boundary's input
// (a loop/if condition's defining context) is handled by
// OperationMutator and CodeGenMutator instead, and swapping it here
// risks orphaning the context it opens.
func isStructural(instr ir.Instruction) bool {
	return instr.HasAttr(ir.IsBlockStart) || instr.HasAttr(ir.IsBlockEnd)
}
