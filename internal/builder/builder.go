// Package builder implements the program builder: variable allocation,
// scope and hiding management, random variable selection by type, and
// the budget-driven recursive code-generation loop described in the
// design's program-builder component.
package builder

import (
	"math/rand"

	"luafuzz/internal/analysis"
	"luafuzz/internal/env"
	"luafuzz/internal/ir"
	"luafuzz/internal/typeanalysis"
	"luafuzz/internal/typesys"
)

// visibleVar is one entry in the builder's scope stack: a live
// variable plus whether randomVariable() is currently allowed to pick
// it (hidden variables remain usable by explicit reference).
type visibleVar struct {
	v      ir.Variable
	hidden bool
}

type scope struct {
	vars []visibleVar
}

// Builder accumulates an in-progress Instruction sequence and all the
// bookkeeping the generators and splicer need to extend it validly:
// context, scope/visibility, and a running flow-sensitive type state.
type Builder struct {
	Environment *env.Environment
	Rand        *rand.Rand

	code      []ir.Instruction
	nextVarID uint32

	scopes  []*scope
	context *analysis.ContextAnalyzer
	types   *typeanalysis.Analyzer

	generators []CodeGenerator
	splicer    Splicer
	budgetStack []int

	lastOutputs []ir.Variable
	ifFrames    []*ifFrame

	// userFunctions and funcSignatures track functions the builder has
	// opened with BeginFunction, whose own output variable is global
	// (so it survives past EndFunction's frame pop) but invisible to
	// the ordinary scope-based RandomVariable selection once its body
	// closes. callFunctionGenerator consults these directly to call a
	// previously-defined function from outside its own body.
	userFunctions  []ir.Variable
	funcSignatures map[uint32]*funcSignature
}

func New(environment *env.Environment, rng *rand.Rand) *Builder {
	b := &Builder{
		Environment:    environment,
		Rand:           rng,
		context:        analysis.NewContextAnalyzer(),
		types:          typeanalysis.New(environment),
		funcSignatures: make(map[uint32]*funcSignature),
	}
	b.scopes = append(b.scopes, &scope{})
	b.generators = DefaultGenerators()
	return b
}

// SetGenerators replaces the active generator set, letting swarm
// testing restrict each fuzzing session to a random subset of
// DefaultGenerators() rather than always exercising every one.
func (b *Builder) SetGenerators(generators []CodeGenerator) {
	b.generators = generators
}

// Reset clears the builder back to an empty program, ready to build
// again, matching the teacher's convention of a reusable driver object
// rather than allocating a fresh one per program.
func (b *Builder) Reset() {
	b.code = nil
	b.nextVarID = 0
	b.scopes = []*scope{{}}
	b.context = analysis.NewContextAnalyzer()
	b.types = typeanalysis.New(b.Environment)
	b.lastOutputs = nil
	b.ifFrames = nil
	b.budgetStack = nil
	b.userFunctions = nil
	b.funcSignatures = make(map[uint32]*funcSignature)
}

func (b *Builder) Context() ir.Context { return b.context.Current() }

func (b *Builder) TypeOf(v ir.Variable) typesys.Type { return b.types.TypeOf(v.ID()) }

// Code returns the instructions emitted so far.
func (b *Builder) Code() ir.Code { return append(ir.Code(nil), b.code...) }

// NewVar allocates a fresh block-scoped variable id.
func (b *Builder) NewVar() ir.Variable {
	v := ir.NewVariable(b.nextVarID)
	b.nextVarID++
	return v
}

// NewGlobalVar allocates a fresh module-global variable id.
func (b *Builder) NewGlobalVar() ir.Variable {
	v := ir.NewGlobalVariable(b.nextVarID)
	b.nextVarID++
	return v
}

// ReserveVariableSpace bumps the next-allocated variable id past every
// id used in code, so code can be replayed through Emit verbatim (its
// own ids unchanged) while later NewVar/NewGlobalVar calls still hand
// out ids that don't collide with it. Mutators that adopt a parent
// program's instructions unchanged call this once before replaying.
func (b *Builder) ReserveVariableSpace(code ir.Code) {
	for _, instr := range code {
		for _, v := range instr.Inouts {
			if v.ID() >= b.nextVarID {
				b.nextVarID = v.ID() + 1
			}
		}
	}
}

// Emit appends instr, advancing the context tracker, introducing its
// outputs into the innermost scope (pushing/popping a scope frame
// first if instr opens or closes a block) and updating the type state.
func (b *Builder) Emit(instr ir.Instruction) {
	desc := instr.Op.Descriptor()
	isStart := desc.Attrs.Has(ir.IsBlockStart)
	isEnd := desc.Attrs.Has(ir.IsBlockEnd)

	if isEnd {
		b.scopes = b.scopes[:len(b.scopes)-1]
	}

	b.context.Step(instr)
	b.stepTypeGroups(instr)
	b.types.Step(instr)
	b.code = append(b.code, instr)

	if isStart {
		b.scopes = append(b.scopes, &scope{})
	}

	outs := instr.AllOutputs()
	top := b.scopes[len(b.scopes)-1]
	for _, v := range outs {
		top.vars = append(top.vars, visibleVar{v: v})
	}
	b.lastOutputs = outs
}

// Hide marks v invisible to randomVariable while still permitting
// explicit reference, used to keep a function's own parameters from
// being picked up as call targets for trivial self-recursion, or to
// keep a generator's temporaries from leaking into later selections.
func (b *Builder) Hide(v ir.Variable) {
	b.setHidden(v, true)
}

func (b *Builder) Unhide(v ir.Variable) {
	b.setHidden(v, false)
}

func (b *Builder) setHidden(v ir.Variable, hidden bool) {
	for _, s := range b.scopes {
		for i := range s.vars {
			if s.vars[i].v.ID() == v.ID() {
				s.vars[i].hidden = hidden
				return
			}
		}
	}
}

// visible returns every non-hidden variable currently in scope.
func (b *Builder) visible() []ir.Variable {
	var out []ir.Variable
	for _, s := range b.scopes {
		for _, vv := range s.vars {
			if !vv.hidden {
				out = append(out, vv.v)
			}
		}
	}
	return out
}

// RandomVariable picks a visible, non-hidden variable: with p≈0.15 it
// prefers one of the most recent instruction's own outputs; otherwise
// with p≈0.75 it prefers variables from the innermost scope; otherwise
// it falls back to uniform choice over every visible variable.
func (b *Builder) RandomVariable() (ir.Variable, bool) {
	visible := b.visible()
	if len(visible) == 0 {
		return ir.Variable{}, false
	}

	if len(b.lastOutputs) > 0 && b.Rand.Float64() < 0.15 {
		candidates := intersectVisible(b.lastOutputs, visible)
		if len(candidates) > 0 {
			return candidates[b.Rand.Intn(len(candidates))], true
		}
	}

	if b.Rand.Float64() < 0.75 {
		for i := len(b.scopes) - 1; i >= 0; i-- {
			var inner []ir.Variable
			for _, vv := range b.scopes[i].vars {
				if !vv.hidden {
					inner = append(inner, vv.v)
				}
			}
			if len(inner) > 0 {
				return inner[b.Rand.Intn(len(inner))], true
			}
		}
	}

	return visible[b.Rand.Intn(len(visible))], true
}

// RandomVariableForUseAs picks a visible variable statically known to
// satisfy want, i.e. `variable.Type.Is(want)`.
func (b *Builder) RandomVariableForUseAs(want typesys.Type) (ir.Variable, bool) {
	var matches []ir.Variable
	for _, v := range b.visible() {
		if b.TypeOf(v).Is(want) {
			matches = append(matches, v)
		}
	}
	if len(matches) == 0 {
		return ir.Variable{}, false
	}
	return matches[b.Rand.Intn(len(matches))], true
}

func intersectVisible(outputs, visible []ir.Variable) []ir.Variable {
	allowed := map[uint32]bool{}
	for _, v := range visible {
		allowed[v.ID()] = true
	}
	var out []ir.Variable
	for _, v := range outputs {
		if allowed[v.ID()] {
			out = append(out, v)
		}
	}
	return out
}

// Finalize validates the accumulated code and wraps it into an
// immutable Program.
func (b *Builder) Finalize(parent *ir.Program) (*ir.Program, error) {
	return ir.NewProgram(b.Code(), parent)
}
