package analysis

import "luafuzz/internal/ir"

// Scope is one lexical level: the locals introduced inside it and the
// labels visible for Goto targeting.
type Scope struct {
	locals []uint32
	labels []string
}

// ScopeAnalyzer tracks nested lexical scopes and Lua's implicit-global
// promotion: locality is decided when a variable is allocated, so an
// output that is a global variable (ir.Variable.IsGlobal) is recorded
// as promoted as soon as the instruction defining it is stepped, and
// every other output becomes a local of the innermost open scope (see
// DESIGN.md for the resolved ambiguity).
type ScopeAnalyzer struct {
	scopes        []*Scope
	subroutineTOS []int // index into scopes of each currently-open BeginFunction frame
	promoted      map[uint32]bool
}

func NewScopeAnalyzer() *ScopeAnalyzer {
	return &ScopeAnalyzer{
		scopes:   []*Scope{{}},
		promoted: map[uint32]bool{},
	}
}

func (s *ScopeAnalyzer) top() *Scope { return s.scopes[len(s.scopes)-1] }

// Step advances the analyzer past instr. BeginFunction/EndFunction are
// recognised from instr.Op itself: an EndFunction discards every scope
// opened since its matching BeginFunction, not just the innermost one.
func (s *ScopeAnalyzer) Step(instr ir.Instruction) {
	desc := instr.Op.Descriptor()
	_, isBeginFunction := instr.Op.(ir.BeginFunction)
	_, isEndFunction := instr.Op.(ir.EndFunction)

	if isEndFunction {
		frameIdx := s.subroutineTOS[len(s.subroutineTOS)-1]
		s.subroutineTOS = s.subroutineTOS[:len(s.subroutineTOS)-1]
		s.scopes = s.scopes[:frameIdx]
	} else if desc.Attrs.Has(ir.IsBlockEnd) {
		s.scopes = s.scopes[:len(s.scopes)-1]
	}

	if isBeginFunction {
		s.subroutineTOS = append(s.subroutineTOS, len(s.scopes))
		s.scopes = append(s.scopes, &Scope{})
	} else if desc.Attrs.Has(ir.IsBlockStart) {
		s.scopes = append(s.scopes, &Scope{})
	}

	for _, v := range instr.AllOutputs() {
		if v.IsGlobal() {
			s.promoted[v.ID()] = true
			continue
		}
		s.top().locals = append(s.top().locals, v.ID())
	}

	if _, ok := instr.Op.(ir.Label); ok {
		// Labels are identified by the instruction position, not a
		// name in the IR; callers that need named labels track the
		// mapping themselves. Recorded here only for visibility scope.
		s.top().labels = append(s.top().labels, "")
	}
}

// IsPromoted reports whether id was ever written through a global
// variable reference, i.e. it escaped to module scope per Lua's
// implicit-global rule.
func (s *ScopeAnalyzer) IsPromoted(id uint32) bool { return s.promoted[id] }

// VisibleLocals returns every local currently in scope, innermost
// scope last.
func (s *ScopeAnalyzer) VisibleLocals() []uint32 {
	var out []uint32
	for _, sc := range s.scopes {
		out = append(out, sc.locals...)
	}
	return out
}
