package builder

import "luafuzz/internal/ir"

// CodeGenerator produces zero or more instructions against a Builder.
// Value generators can run with no visible variables (they bootstrap
// the prefix); ordinary generators assume at least one is visible.
type CodeGenerator interface {
	Name() string
	RequiredContext() ir.Context
	IsValueGenerator() bool
	IsRecursive() bool
	Generate(b *Builder) bool
}

// Weight lets swarm-testing randomize the relative frequency of each
// generator at startup without touching the registry itself.
type Weight struct {
	Generator CodeGenerator
	Value     float64
}
