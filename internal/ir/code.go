package ir

import "fmt"

// Code is an ordered instruction sequence. It has no identity of its
// own beyond the slice of instructions; Program wraps a validated Code
// with an id and ancestry.
type Code []Instruction

// ValidationError reports why a Code failed StaticValidate, with the
// offending instruction's index for diagnostics.
type ValidationError struct {
	Index   int
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("ir: instruction %d: %s", e.Index, e.Message)
}

// pureEndCompatibleStarts maps a block-closing-only opcode to the
// opcode name(s) that may legally open the group it closes.
var pureEndCompatibleStarts = map[string]string{
	"EndIf":          "BeginIf",
	"EndWhileLoop":   "BeginWhileLoopHeader",
	"EndForLoop":     "BeginForLoopInitializer",
	"EndForInLoop":   "BeginForInLoop",
	"EndRepeatLoop":  "BeginRepeatLoop",
	"EndFunction":    "BeginFunction",
	"EndTable":       "BeginTable",
	"EndTableMethod": "BeginTableMethod",
}

type groupFrame struct {
	startOp    string
	startIndex int
}

// StaticValidate checks the invariants listed in §4.3 / §8: exactly-one
// definition before use, balanced and properly nested block groups,
// required context satisfied at every instruction, and variable ids
// within the configured maximum. It performs a single forward scan.
func (c Code) StaticValidate() error {
	var groupStack []groupFrame
	contextStack := []Context{ContextScript}
	var varFrames [][]uint32
	visible := map[uint32]bool{}
	globallyVisible := map[uint32]bool{}
	defined := map[uint32]bool{}

	varFrames = append(varFrames, nil)

	currentContext := func() Context { return contextStack[len(contextStack)-1] }

	for idx, instr := range c {
		for _, v := range instr.Inputs() {
			if v.IsGlobal() {
				if !globallyVisible[v.ID()] {
					return &ValidationError{idx, fmt.Sprintf("use of undefined global %s", v)}
				}
				continue
			}
			if !visible[v.ID()] {
				return &ValidationError{idx, fmt.Sprintf("use of out-of-scope or undefined variable %s", v)}
			}
		}

		required := instr.RequiredContext()
		if !currentContext().Contains(required) {
			return &ValidationError{idx, fmt.Sprintf("required context %s not satisfied by %s", required, currentContext())}
		}

		desc := instr.Op.Descriptor()
		isStart := desc.Attrs.Has(IsBlockStart)
		isEnd := desc.Attrs.Has(IsBlockEnd)

		if isEnd {
			if len(groupStack) == 0 {
				return &ValidationError{idx, "unbalanced block: end with no matching start"}
			}
			if !isStart {
				top := groupStack[len(groupStack)-1]
				want := pureEndCompatibleStarts[instr.Op.Name()]
				if want != "" && top.startOp != want {
					return &ValidationError{idx, fmt.Sprintf("mismatched block end %s for start %s", instr.Op.Name(), top.startOp)}
				}
				groupStack = groupStack[:len(groupStack)-1]
			}
			// Pop the variable scope frame and drop its locals.
			top := varFrames[len(varFrames)-1]
			for _, id := range top {
				delete(visible, id)
			}
			varFrames = varFrames[:len(varFrames)-1]
			contextStack = contextStack[:len(contextStack)-1]
		}

		if isStart {
			if !isEnd {
				groupStack = append(groupStack, groupFrame{startOp: instr.Op.Name(), startIndex: idx})
			}
			opened := desc.OpensContext
			newCtx := opened
			if desc.Attrs.Has(PropagatesSurroundingContext) {
				newCtx |= currentContext()
			}
			contextStack = append(contextStack, newCtx)
			varFrames = append(varFrames, nil)
		}

		for _, v := range instr.AllOutputs() {
			if v.ID() > MaxVariableNumber {
				return &ValidationError{idx, fmt.Sprintf("variable number %d exceeds maximum", v.ID())}
			}
			if defined[v.ID()] {
				return &ValidationError{idx, fmt.Sprintf("duplicate definition of %s", v)}
			}
			defined[v.ID()] = true
			if v.IsGlobal() {
				globallyVisible[v.ID()] = true
			} else {
				visible[v.ID()] = true
				frameIdx := len(varFrames) - 1
				varFrames[frameIdx] = append(varFrames[frameIdx], v.ID())
			}
		}

		if instr.HasAttr(IsJump) {
			// Dead-code handling is a separate analyzer pass (§4.4);
			// StaticValidate only requires that jumps not themselves
			// reference out-of-scope state, already checked above.
			_ = idx
		}
	}

	if len(groupStack) != 0 {
		return &ValidationError{len(c) - 1, "unbalanced block: unterminated start at end of program"}
	}
	return nil
}
