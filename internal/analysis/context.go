// Package analysis holds the flow-insensitive forward passes that
// feed the builder and splicer: context tracking, scope/global
// promotion, def-use indexing and dead-code detection. Each analyzer
// consumes one instruction at a time and is finalized once the
// program (or the builder's in-progress code) has been fully scanned.
package analysis

import "luafuzz/internal/ir"

// ContextAnalyzer reproduces the context half of ir.Code.StaticValidate
// as a standalone, queryable pass: the builder needs to know the
// context active *before* appending a candidate instruction, something
// the validator (which only judges a finished Code) does not expose.
type ContextAnalyzer struct {
	stack []ir.Context
}

func NewContextAnalyzer() *ContextAnalyzer {
	return &ContextAnalyzer{stack: []ir.Context{ir.ContextScript}}
}

// Current returns the context active at the current point in the scan.
func (c *ContextAnalyzer) Current() ir.Context {
	return c.stack[len(c.stack)-1]
}

// Step advances the analyzer past instr.
func (c *ContextAnalyzer) Step(instr ir.Instruction) {
	desc := instr.Op.Descriptor()
	isStart := desc.Attrs.Has(ir.IsBlockStart)
	isEnd := desc.Attrs.Has(ir.IsBlockEnd)

	if isEnd {
		c.stack = c.stack[:len(c.stack)-1]
	}
	if isStart {
		opened := desc.OpensContext
		if desc.Attrs.Has(ir.PropagatesSurroundingContext) {
			opened |= c.Current()
		}
		c.stack = append(c.stack, opened)
	}
}

// Satisfies reports whether instr's required context holds at the
// analyzer's current position, without advancing.
func (c *ContextAnalyzer) Satisfies(instr ir.Instruction) bool {
	return c.Current().Contains(instr.RequiredContext())
}
