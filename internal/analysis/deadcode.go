package analysis

import "luafuzz/internal/ir"

// DeadCodeAnalyzer flags instructions unreachable because a prior Jump
// (Return, LoopBreak, Goto) in the same block already transferred
// control away. Depth resets to zero whenever a block boundary is
// crossed, since the jump's dead region ends at its enclosing block.
type DeadCodeAnalyzer struct {
	depth int
}

func NewDeadCodeAnalyzer() *DeadCodeAnalyzer { return &DeadCodeAnalyzer{} }

// Step reports whether instr is dead, then advances past it.
func (d *DeadCodeAnalyzer) Step(instr ir.Instruction) bool {
	dead := d.depth > 0

	desc := instr.Op.Descriptor()
	if desc.Attrs.Has(ir.IsBlockStart) || desc.Attrs.Has(ir.IsBlockEnd) {
		d.depth = 0
	}
	if desc.Attrs.Has(ir.IsJump) {
		d.depth++
	}
	return dead
}
