// Package coverage turns the raw edge-index slices internal/reprl
// reports per execution into stable ProgramAspects, maintains the
// fuzzer's running "found edges" mask, and computes the edge-signature
// used to deduplicate crashes, per §4.11 and its expansion.
package coverage

import (
	"sort"

	"luafuzz/internal/reprl"
)

// minIntersectionAttempts and maxIntersectionAttempts bound how many
// times computeAspectIntersection re-executes a candidate program to
// separate stable coverage gains from flaky ones.
const (
	minIntersectionAttempts = 5
	maxIntersectionAttempts = 50
)

// ProgramAspects is the set of edge indices newly hit by one execution,
// the fingerprint used to decide corpus-worthiness.
type ProgramAspects struct {
	Edges []uint32
}

// Empty reports whether no new edge was hit.
func (a ProgramAspects) Empty() bool { return len(a.Edges) == 0 }

// intersect returns the edges present in both aspect sets.
func intersect(a, b []uint32) []uint32 {
	present := make(map[uint32]struct{}, len(a))
	for _, e := range a {
		present[e] = struct{}{}
	}
	var out []uint32
	for _, e := range b {
		if _, ok := present[e]; ok {
			out = append(out, e)
		}
	}
	return out
}

// Reexecutor re-runs a candidate program's already-lifted script
// through the runner to gather one more edge sample for intersection.
type Reexecutor func() (reprl.ExecResult, error)

// ComputeAspectIntersection re-executes a program that produced
// candidate on its first run, intersecting new-edge sets across
// attempts until either the intersection still holds every edge of
// candidate after at least minIntersectionAttempts attempts, or
// maxIntersectionAttempts is reached. An intersection that goes empty,
// or a re-execution error, marks the program flaky and it is discarded.
func ComputeAspectIntersection(candidate ProgramAspects, reexec Reexecutor) (ProgramAspects, bool) {
	current := candidate.Edges
	for attempt := 1; attempt < maxIntersectionAttempts; attempt++ {
		result, err := reexec()
		if err != nil {
			return ProgramAspects{}, false
		}
		current = intersect(current, result.NewEdges)
		if len(current) == 0 {
			return ProgramAspects{}, false
		}
		if attempt >= minIntersectionAttempts && len(current) == len(candidate.Edges) {
			break
		}
	}
	sorted := append([]uint32(nil), current...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return ProgramAspects{Edges: sorted}, true
}

// Evaluator owns the fuzzer's persistent mask of previously discovered
// edges and classifies each execution's result against it.
type Evaluator struct {
	found *reprl.EdgeSet
}

func NewEvaluator() *Evaluator {
	return &Evaluator{found: reprl.NewEdgeSet()}
}

// Evaluate reports the aspects a fresh execution contributes beyond
// what's already in the mask, without committing them.
func (e *Evaluator) Evaluate(result reprl.ExecResult) ProgramAspects {
	return ProgramAspects{Edges: result.NewEdges}
}

// Commit records aspects as permanently found, once intersection has
// confirmed they're stable.
func (e *Evaluator) Commit(aspects ProgramAspects) {
	for _, edge := range aspects.Edges {
		e.found.Add(edge)
	}
}

// FoundEdges exposes the running mask, e.g. for internal/reprl's
// per-execution diff.
func (e *Evaluator) FoundEdges() *reprl.EdgeSet { return e.found }

// TotalEdgesFound reports the mask's size, used for statistics export.
func (e *Evaluator) TotalEdgesFound() int { return e.found.Len() }
