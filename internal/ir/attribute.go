package ir

// Attribute is a bitset of per-operation flags consulted by the
// builder, splicer, mutators and dead-code analyzer.
type Attribute uint16

const (
	// IsPure marks an instruction with no observable side effect beyond
	// producing its outputs; pure expressions may be inlined by the
	// lifter at every use site.
	IsPure Attribute = 1 << iota
	// IsMutable marks an instruction whose operation parameters
	// (operator, method name, ...) may be randomly altered in place by
	// the OperationMutator.
	IsMutable
	// IsVariadic marks an instruction with a variable-length input
	// suffix starting at Instruction.FirstVariadicInput.
	IsVariadic
	// IsCall marks call-like instructions (CallFunction, CallMethod).
	IsCall
	// IsJump marks instructions (Return, LoopBreak, Goto) after which
	// subsequent code in the same block is dead.
	IsJump
	// IsBlockStart marks an instruction that opens a nested block.
	IsBlockStart
	// IsBlockEnd marks an instruction that closes a nested block.
	IsBlockEnd
	// PropagatesSurroundingContext marks a block-opening instruction
	// whose inner context additionally includes whatever context was
	// already open when it started (e.g. an if-block opened inside a
	// loop is still "in a loop").
	PropagatesSurroundingContext
	// IsInternal marks bookkeeping instructions excluded from the
	// corpus-facing view of a program (never surfaced by splicing).
	IsInternal
)

// Has reports whether all bits in want are set in a.
func (a Attribute) Has(want Attribute) bool { return a&want == want }
