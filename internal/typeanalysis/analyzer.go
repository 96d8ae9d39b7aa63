// Package typeanalysis implements the flow-sensitive type analyzer:
// it walks a program's instructions in order, maintaining a stack of
// branch states so that if/else, loop and subroutine regions merge
// their member branches' types on exit instead of simply overwriting
// the enclosing state.
package typeanalysis

import (
	"luafuzz/internal/env"
	"luafuzz/internal/ir"
	"luafuzz/internal/typesys"
)

// Analyzer drives the flow-sensitive pass described in §4.5: a state
// stack of levels, each a list of sibling branch states.
type Analyzer struct {
	environment *env.Environment
	active      []*branchState
	groups      []*group
}

func New(environment *env.Environment) *Analyzer {
	a := &Analyzer{environment: environment}
	a.active = append(a.active, newBranchState(false))
	return a
}

func (a *Analyzer) current() *branchState { return a.active[len(a.active)-1] }

// TypeOf resolves a variable's current type by walking the active
// branch chain from innermost to outermost until an entry is found.
func (a *Analyzer) TypeOf(id uint32) typesys.Type {
	for i := len(a.active) - 1; i >= 0; i-- {
		if t, ok := a.active[i].lookup(id); ok {
			return t
		}
	}
	return typesys.Anything()
}

// SetType records id's type in the current branch's overlay.
func (a *Analyzer) SetType(id uint32, t typesys.Type) {
	a.current().set(id, t)
}

// HasReturned reports whether the innermost subroutine branch has
// already executed a Return on every path taken so far.
func (a *Analyzer) HasReturned() bool { return a.current().hasReturned }

// StartGroup opens a new sibling-branch level, e.g. for an if/else
// pair or a subroutine's not-called/called pair.
func (a *Analyzer) StartGroup(isSubroutine bool) {
	a.groups = append(a.groups, &group{isSubroutine: isSubroutine})
}

// EnterBranch pushes a fresh branch state for one member of the
// currently open group.
func (a *Analyzer) EnterBranch() {
	g := a.groups[len(a.groups)-1]
	a.active = append(a.active, newBranchState(g.isSubroutine))
}

// LeaveBranch pops the current branch and records it as a completed
// member of the open group.
func (a *Analyzer) LeaveBranch() {
	g := a.groups[len(a.groups)-1]
	b := a.active[len(a.active)-1]
	a.active = a.active[:len(a.active)-1]
	g.branches = append(g.branches, b)
}

// EndGroup merges the completed group's branches into the (now
// re-exposed) parent branch state, per §4.5: a variable updated in
// every branch gets the union of its branch types; a variable updated
// in only some branches gets that union widened by its prior parent
// type (the path where it was never touched keeps its old value, so
// the merged possibility set must include it).
func (a *Analyzer) EndGroup() {
	g := a.groups[len(a.groups)-1]
	a.groups = a.groups[:len(a.groups)-1]
	parent := a.current()

	allReturned := len(g.branches) > 0
	seen := map[uint32]bool{}
	for _, b := range g.branches {
		for id := range b.types {
			seen[id] = true
		}
		if !b.hasReturned {
			allReturned = false
		}
	}

	for id := range seen {
		merged := typesys.Nothing()
		touchedByAll := true
		for _, b := range g.branches {
			if t, ok := b.lookup(id); ok {
				merged = typesys.Union(merged, t)
			} else {
				touchedByAll = false
			}
		}
		if !touchedByAll {
			merged = typesys.Union(merged, a.lookupAbove(parent, id))
		}
		parent.set(id, merged)
	}

	if g.isSubroutine {
		rt := typesys.Nothing()
		any := false
		for _, b := range g.branches {
			if b.everReturned {
				rt = typesys.Union(rt, b.returnType)
				any = true
			}
		}
		if any {
			parent.returnType = typesys.Union(parent.returnType, rt)
		}
	}

	if allReturned {
		parent.hasReturned = true
	}
}

// lookupAbove resolves id starting one level above `from` in the
// active chain (from is always a.current() at call time, so this
// searches the enclosing scopes rather than from itself).
func (a *Analyzer) lookupAbove(from *branchState, id uint32) typesys.Type {
	for i := len(a.active) - 1; i >= 0; i-- {
		if a.active[i] == from {
			for j := i; j >= 0; j-- {
				if t, ok := a.active[j].lookup(id); ok {
					return t
				}
			}
			break
		}
	}
	return typesys.Anything()
}

// RecordReturn folds a Return instruction's value type into the
// current subroutine branch's return accumulator.
func (a *Analyzer) RecordReturn(t typesys.Type) {
	b := a.current()
	if b.everReturned {
		b.returnType = typesys.Union(b.returnType, t)
	} else {
		b.returnType = t
		b.everReturned = true
	}
	b.hasReturned = true
}

// Step applies an instruction's type semantics to the current branch.
// Control-flow bookkeeping (StartGroup/EnterBranch/EndGroup) is the
// caller's responsibility, driven by the builder as it walks or emits
// instructions, since only the builder knows which instructions open
// the next branch of an already-open group versus a brand new group.
func (a *Analyzer) Step(instr ir.Instruction) {
	switch op := instr.Op.(type) {
	case ir.LoadNumber:
		a.SetType(instr.Outputs()[0].ID(), typesys.Primitive(typesys.Number))
	case ir.LoadString:
		a.SetType(instr.Outputs()[0].ID(), typesys.Primitive(typesys.String))
	case ir.LoadBoolean:
		a.SetType(instr.Outputs()[0].ID(), typesys.Primitive(typesys.Boolean))
	case ir.LoadNil:
		a.SetType(instr.Outputs()[0].ID(), typesys.Primitive(typesys.Nil))
	case ir.LoadBuiltin:
		t := typesys.Anything()
		if b, ok := a.environment.Lookup(op.Name_); ok {
			t = b.Type
		}
		a.SetType(instr.Outputs()[0].ID(), t)
	case ir.Unary:
		a.stepUnary(op, instr)
	case ir.Binary:
		a.stepBinary(op, instr)
	case ir.Compare:
		a.SetType(instr.Outputs()[0].ID(), typesys.Primitive(typesys.Boolean))
	case ir.Reassign:
		a.SetType(instr.Inputs()[0].ID(), a.TypeOf(instr.Inputs()[1].ID()))
	case ir.Update:
		a.stepBinaryLike(instr)
	case ir.Return:
		if len(instr.Inputs()) == 1 {
			a.RecordReturn(a.TypeOf(instr.Inputs()[0].ID()))
		} else {
			a.RecordReturn(typesys.Primitive(typesys.Undefined))
		}
	case ir.CallFunction:
		a.stepCall(instr)
	case ir.CallMethod:
		a.stepCall(instr)
	default:
		for _, v := range instr.AllOutputs() {
			a.SetType(v.ID(), typesys.Anything())
		}
	}
}

func (a *Analyzer) stepUnary(op ir.Unary, instr ir.Instruction) {
	out := instr.Outputs()[0]
	switch op.Op {
	case "not":
		a.SetType(out.ID(), typesys.Primitive(typesys.Boolean))
	case "#":
		a.SetType(out.ID(), typesys.Primitive(typesys.Number))
	default:
		a.SetType(out.ID(), typesys.Primitive(typesys.Number))
	}
}

func (a *Analyzer) stepBinary(op ir.Binary, instr ir.Instruction) {
	out := instr.Outputs()[0]
	switch op.Op {
	case "..":
		a.SetType(out.ID(), typesys.Primitive(typesys.String))
	case "and", "or":
		lhs := a.TypeOf(instr.Inputs()[0].ID())
		rhs := a.TypeOf(instr.Inputs()[1].ID())
		if lhs.Is(typesys.Primitive(typesys.Boolean)) || rhs.Is(typesys.Primitive(typesys.Boolean)) {
			a.SetType(out.ID(), typesys.Primitive(typesys.Boolean))
		} else {
			a.SetType(out.ID(), typesys.Union(lhs, rhs))
		}
	default:
		a.SetType(out.ID(), typesys.Primitive(typesys.Number))
	}
}

func (a *Analyzer) stepBinaryLike(instr ir.Instruction) {
	target := instr.Inputs()[0]
	a.SetType(target.ID(), typesys.Primitive(typesys.Number))
}

func (a *Analyzer) stepCall(instr ir.Instruction) {
	outs := instr.Outputs()
	for _, v := range outs {
		a.SetType(v.ID(), typesys.Anything())
	}
}
