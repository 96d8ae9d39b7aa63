package builder

// Mode selects whether Build draws from generators, splicing, or both
// when filling a budget. Splicing is wired in by internal/splice via
// SetSplicer; a builder with no splicer configured always generates.
type Mode int

const (
	ModeGenerating Mode = iota
	ModeSplicing
	ModeBoth
)

// Splicer lets internal/splice plug into the builder's budget loop
// without an import cycle: the builder only knows it can ask for a
// graft, not how one is computed.
type Splicer interface {
	// SpliceOnce grafts a slice of some donor program into b and
	// reports whether it emitted anything.
	SpliceOnce(b *Builder) bool
}

// SetSplicer installs the splicer used when a budget frame's mode
// permits it.
func (b *Builder) SetSplicer(s Splicer) { b.splicer = s }

// Build pushes a budget frame of n steps in ModeBoth and runs it to
// completion or abortion (≥10 consecutive no-ops), per §4.6.
func (b *Builder) Build(n int) {
	b.budgetStack = append(b.budgetStack, n)
	b.runBudget(n, ModeBoth)
	b.budgetStack = b.budgetStack[:len(b.budgetStack)-1]
}

// BuildRecursive is called by a recursive generator (e.g. if/else,
// loop bodies) to fill a nested block. The child budget is
// U[0.05,0.50] of the enclosing frame's *initial* budget, divided by
// blockCount (the number of sibling blocks the calling generator's
// group opens: 2 for if/else, 1 for a loop or function body) and never
// less than 1 step. Recursion is refused when parentInitialBudget is
// below 5 or blockCount is below 1.
func (b *Builder) BuildRecursive(parentInitialBudget, blockCount int) {
	if parentInitialBudget < 5 || blockCount < 1 {
		return
	}
	frac := 0.05 + b.Rand.Float64()*0.45
	child := int(float64(parentInitialBudget) * frac / float64(blockCount))
	if child < 1 {
		child = 1
	}
	b.budgetStack = append(b.budgetStack, child)
	b.runBudget(child, ModeBoth)
	b.budgetStack = b.budgetStack[:len(b.budgetStack)-1]
}

func (b *Builder) currentFrameBudget() int {
	if len(b.budgetStack) == 0 {
		return 10
	}
	return b.budgetStack[len(b.budgetStack)-1]
}

func (b *Builder) runBudget(n int, mode Mode) {
	noopStreak := 0
	for i := 0; i < n && noopStreak < 10; i++ {
		if mode != ModeGenerating && b.splicer != nil && b.Rand.Float64() < 0.3 {
			if b.splicer.SpliceOnce(b) {
				noopStreak = 0
				continue
			}
			noopStreak++
			continue
		}
		if mode == ModeSplicing {
			noopStreak++
			continue
		}
		g := b.pickGenerator()
		if g == nil {
			noopStreak++
			continue
		}
		if g.Generate(b) {
			noopStreak = 0
		} else {
			noopStreak++
		}
	}
}

func (b *Builder) pickGenerator() CodeGenerator {
	var eligible []CodeGenerator
	ctx := b.Context()
	for _, g := range b.generators {
		if ctx.Contains(g.RequiredContext()) {
			eligible = append(eligible, g)
		}
	}
	if len(eligible) == 0 {
		return nil
	}
	return eligible[b.Rand.Intn(len(eligible))]
}

// BuildPrefix runs value generators until at least ~5 variables are
// visible, bootstrapping inputs for the generators that follow.
func (b *Builder) BuildPrefix() {
	var valueGens []CodeGenerator
	for _, g := range b.generators {
		if g.IsValueGenerator() {
			valueGens = append(valueGens, g)
		}
	}
	if len(valueGens) == 0 {
		return
	}
	for len(b.visible()) < 5 {
		g := valueGens[b.Rand.Intn(len(valueGens))]
		g.Generate(b)
	}
}
