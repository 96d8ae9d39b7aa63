package builder

import "luafuzz/internal/ir"

// ifFrame tracks whether the currently open if/else group has seen its
// BeginElse yet, so EndIf can synthesize an empty "else never ran"
// branch when there was none, letting the type merge correctly widen
// v's possible type to include the pre-if value on that path.
type ifFrame struct{ sawElse bool }

// stepTypeGroups drives the flow-sensitive type analyzer's branch
// stack for every control-flow instruction that opens, continues or
// closes a conditional or subroutine region. It runs before the
// analyzer's per-instruction Step so the instruction's own effects
// (e.g. Reassign inside a branch) land in the right branch state.
func (b *Builder) stepTypeGroups(instr ir.Instruction) {
	switch instr.Op.(type) {
	case ir.BeginIf:
		b.ifFrames = append(b.ifFrames, &ifFrame{})
		b.types.StartGroup(false)
		b.types.EnterBranch()

	case ir.BeginElse:
		f := b.ifFrames[len(b.ifFrames)-1]
		f.sawElse = true
		b.types.LeaveBranch()
		b.types.EnterBranch()

	case ir.EndIf:
		f := b.ifFrames[len(b.ifFrames)-1]
		b.ifFrames = b.ifFrames[:len(b.ifFrames)-1]
		b.types.LeaveBranch()
		if !f.sawElse {
			b.types.EnterBranch()
			b.types.LeaveBranch()
		}
		b.types.EndGroup()

	case ir.BeginFunction:
		b.types.StartGroup(true)
		b.types.EnterBranch() // not-called
		b.types.LeaveBranch()
		b.types.EnterBranch() // called

	case ir.EndFunction:
		b.types.LeaveBranch()
		b.types.EndGroup()

	case ir.BeginWhileLoopHeader:
		b.types.StartGroup(false)
		b.types.EnterBranch() // zero iterations
		b.types.LeaveBranch()
		b.types.EnterBranch() // body ran at least once

	case ir.EndWhileLoop:
		b.types.LeaveBranch()
		b.types.EndGroup()

	case ir.BeginForLoopInitializer:
		b.types.StartGroup(false)
		b.types.EnterBranch()
		b.types.LeaveBranch()
		b.types.EnterBranch()

	case ir.EndForLoop:
		b.types.LeaveBranch()
		b.types.EndGroup()

	case ir.BeginForInLoop:
		b.types.StartGroup(false)
		b.types.EnterBranch()
		b.types.LeaveBranch()
		b.types.EnterBranch()

	case ir.EndForInLoop:
		b.types.LeaveBranch()
		b.types.EndGroup()

	case ir.BeginRepeatLoop:
		// Lua's repeat...until always runs its body at least once.
		b.types.StartGroup(false)
		b.types.EnterBranch()

	case ir.EndRepeatLoop:
		b.types.LeaveBranch()
		b.types.EndGroup()
	}
}
