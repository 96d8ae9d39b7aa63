package typeanalysis

import "luafuzz/internal/typesys"

// branchState holds the type overlay for one branch of a conditional
// group (or, for the outermost level, the single straight-line state):
// only variables defined or modified *within this branch* have an
// entry here; lookups fall through to the enclosing branch when a
// variable is absent, per the invariant that a child's entry implies
// a (possibly sentinel nothing()) parent entry.
type branchState struct {
	types        map[uint32]typesys.Type
	isSubroutine bool
	returnType   typesys.Type
	everReturned bool
	hasReturned  bool
}

func newBranchState(isSubroutine bool) *branchState {
	return &branchState{
		types:      map[uint32]typesys.Type{},
		returnType: typesys.Nothing(),
	}
}

func (b *branchState) set(id uint32, t typesys.Type) { b.types[id] = t }

func (b *branchState) lookup(id uint32) (typesys.Type, bool) {
	t, ok := b.types[id]
	return t, ok
}

// group is one set of sibling branches opened together (an if/else,
// a for-in body, a subroutine's "not called" / "called" pair, ...).
type group struct {
	branches     []*branchState
	isSubroutine bool
}
