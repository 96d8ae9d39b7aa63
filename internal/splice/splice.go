// Package splice implements the five-pass splicer described in §4.7:
// it grafts a slice of a donor program into the program currently
// under construction by the builder, respecting context, data-flow
// and block integrity.
package splice

import (
	"math/rand"

	"luafuzz/internal/builder"
	"luafuzz/internal/env"
	"luafuzz/internal/ir"
	"luafuzz/internal/typeanalysis"
	"luafuzz/internal/typesys"
)

const (
	pOuter = 0.10
	pInner = 0.75
	pMutatingInclude = 0.5
)

// Source supplies donor programs to splice from; internal/corpus
// satisfies this via RandomProgramForSplicing.
type Source interface {
	RandomProgramForSplicing() *ir.Program
}

// Splicer implements builder.Splicer.
type Splicer struct {
	source      Source
	environment *env.Environment
	rand        *rand.Rand
}

func New(source Source, environment *env.Environment, rng *rand.Rand) *Splicer {
	return &Splicer{source: source, environment: environment, rand: rng}
}

var _ builder.Splicer = (*Splicer)(nil)

// SpliceOnce grafts a slice of a randomly chosen donor program into b.
// It reports false if no donor was available or no feasible root
// could be found.
func (s *Splicer) SpliceOnce(b *builder.Builder) bool {
	donor := s.source.RandomProgramForSplicing()
	if donor == nil {
		return false
	}
	return s.spliceFrom(b, donor, -1)
}

// spliceFrom runs the five passes against donor. explicitRoot, when
// >= 0, pins pass 3's root selection to that donor instruction index
// instead of sampling uniformly among non-trivial candidates.
func (s *Splicer) spliceFrom(b *builder.Builder, donor *ir.Program, explicitRoot int) bool {
	code := donor.Code()
	units := computeUnits(code)
	donorTypes := inferDonorTypes(code, s.environment)

	remap := map[uint32]ir.Variable{}
	candidate := make([]bool, len(units))
	available := map[uint32]bool{}

	hostCtx := b.Context()

	// Pass 2: feasibility & remap.
	for i, u := range units {
		ok := hostCtx.Contains(u.requiredContext)
		for _, req := range u.requiredVars {
			if !available[req] {
				ok = false
				break
			}
		}
		candidate[i] = ok

		for _, out := range u.providedVars {
			available[out] = true
			prob := pInner
			if ok {
				prob = pOuter
			}
			if s.rand.Float64() < prob {
				if hv, found := b.RandomVariableForUseAs(donorTypes[out]); found {
					remap[out] = hv
				}
			}
		}
	}

	// Pass 3: root selection.
	root := explicitRoot
	if root < 0 {
		var candidates []int
		for i, u := range units {
			if candidate[i] && !u.isTrivial() {
				candidates = append(candidates, i)
			}
		}
		if len(candidates) == 0 {
			return false
		}
		root = candidates[s.rand.Intn(len(candidates))]
	} else {
		found := false
		for i, u := range units {
			if u.start <= explicitRoot && explicitRoot <= u.end {
				root = i
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	// Pass 4: slice computation (backward walk from root).
	included := make([]bool, len(units))
	included[root] = true
	needed := map[uint32]bool{}
	for _, v := range units[root].requiredVars {
		needed[v] = true
	}

	for i := root - 1; i >= 0; i-- {
		u := units[i]
		include := false
		for _, out := range u.providedVars {
			if needed[out] {
				include = true
				break
			}
		}
		if !include && mayMutateSharedState(code, u) && s.rand.Float64() < pMutatingInclude {
			include = true
		}
		if include {
			included[i] = true
			for _, v := range u.requiredVars {
				needed[v] = true
			}
		}
	}

	// Pass 5: emission (forward walk, included units only).
	emitted := false
	for i, u := range units {
		if !included[i] {
			continue
		}
		for idx := u.start; idx <= u.end; idx++ {
			emitRewritten(b, code[idx], remap)
			emitted = true
		}
	}
	return emitted
}

// emitRewritten rewrites instr's variable references through remap
// (falling back to a fresh host variable for any output not already
// remapped) and emits the result.
func emitRewritten(b *builder.Builder, instr ir.Instruction, remap map[uint32]ir.Variable) {
	inputs := rewrite(instr.Inputs(), remap)
	outputs := allocateOutputs(b, instr.Outputs(), remap)
	inner := allocateOutputs(b, instr.InnerOutputs(), remap)
	b.Emit(ir.NewInstruction(instr.Op, inputs, outputs, inner, instr.Index))
}

func rewrite(vars []ir.Variable, remap map[uint32]ir.Variable) []ir.Variable {
	out := make([]ir.Variable, len(vars))
	for i, v := range vars {
		if hv, ok := remap[v.ID()]; ok {
			out[i] = hv
		} else {
			out[i] = v
		}
	}
	return out
}

func allocateOutputs(b *builder.Builder, vars []ir.Variable, remap map[uint32]ir.Variable) []ir.Variable {
	out := make([]ir.Variable, len(vars))
	for i, v := range vars {
		if hv, ok := remap[v.ID()]; ok {
			out[i] = hv
			continue
		}
		var fresh ir.Variable
		if v.IsGlobal() {
			fresh = b.NewGlobalVar()
		} else {
			fresh = b.NewVar()
		}
		remap[v.ID()] = fresh
		out[i] = fresh
	}
	return out
}

// mayMutateSharedState approximates §4.7's "instructions that may
// mutate a required variable": property/element stores and method
// calls can alter state reachable through a variable other code
// depends on, even though they declare no output of their own.
func mayMutateSharedState(code ir.Code, u unit) bool {
	for idx := u.start; idx <= u.end; idx++ {
		switch code[idx].Op.(type) {
		case ir.SetProperty, ir.SetElement, ir.UpdateProperty, ir.UpdateElement,
			ir.DeleteProperty, ir.DeleteElement, ir.CallMethod, ir.CallFunction:
			return true
		}
	}
	return false
}

// inferDonorTypes runs a best-effort linear type pass over code (no
// branch-merge bookkeeping; the splicer only needs an approximate
// static type per variable to drive remap compatibility, not an exact
// flow-sensitive result).
func inferDonorTypes(code ir.Code, environment *env.Environment) map[uint32]typesys.Type {
	a := typeanalysis.New(environment)
	types := map[uint32]typesys.Type{}
	for _, instr := range code {
		a.Step(instr)
		for _, v := range instr.AllOutputs() {
			types[v.ID()] = a.TypeOf(v.ID())
		}
	}
	return types
}
