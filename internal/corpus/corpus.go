// Package corpus holds the bounded, weighted-sampling store of
// coverage-increasing programs described in §4.10: each entry carries
// its own remaining mutation budget, and capacity is kept inside a
// [minSize, maxSize] window by evicting exhausted-budget entries
// first.
package corpus

import (
	"math/rand"

	"luafuzz/internal/ir"
)

type entry struct {
	program        *ir.Program
	remainingBudget int
	insertionOrder int
}

// Corpus is not safe for concurrent use; per §5 all fuzzer state lives
// on a single cooperative executor and is never touched off it.
type Corpus struct {
	entries map[string]*entry
	order   []string // insertion order, oldest first

	minSize, maxSize int
	defaultBudget    int
	nextOrder        int

	rand *rand.Rand
}

func New(rng *rand.Rand, minSize, maxSize, defaultBudget int) *Corpus {
	return &Corpus{
		entries:       map[string]*entry{},
		minSize:       minSize,
		maxSize:       maxSize,
		defaultBudget: defaultBudget,
		rand:          rng,
	}
}

func (c *Corpus) Len() int { return len(c.order) }

// Add inserts p with a fresh mutation budget, evicting if necessary to
// respect maxSize.
func (c *Corpus) Add(p *ir.Program) {
	id := p.ID().String()
	if _, exists := c.entries[id]; exists {
		return
	}
	c.entries[id] = &entry{program: p, remainingBudget: c.defaultBudget, insertionOrder: c.nextOrder}
	c.nextOrder++
	c.order = append(c.order, id)

	if len(c.order) > c.maxSize {
		c.evictOne()
	}
}

func (c *Corpus) evictOne() {
	if len(c.order) <= c.minSize {
		return
	}
	// Prefer an exhausted-budget entry, oldest first.
	victim := -1
	for i, id := range c.order {
		if c.entries[id].remainingBudget <= 0 {
			victim = i
			break
		}
	}
	if victim < 0 {
		victim = 0 // otherwise evict the oldest entry overall
	}
	id := c.order[victim]
	delete(c.entries, id)
	c.order = append(c.order[:victim], c.order[victim+1:]...)
}

// weightedPick samples order with weight proportional to
// (recency rank + 1) * (remainingBudget + 1), biasing toward newer,
// less-exhausted entries without excluding older ones entirely.
func (c *Corpus) weightedPick() *entry {
	if len(c.order) == 0 {
		return nil
	}
	total := 0
	weights := make([]int, len(c.order))
	for i, id := range c.order {
		e := c.entries[id]
		w := (i + 1) * (e.remainingBudget + 1)
		weights[i] = w
		total += w
	}
	if total == 0 {
		return c.entries[c.order[c.rand.Intn(len(c.order))]]
	}
	target := c.rand.Intn(total)
	for i, w := range weights {
		if target < w {
			return c.entries[c.order[i]]
		}
		target -= w
	}
	return c.entries[c.order[len(c.order)-1]]
}

// RandomProgramForSplicing samples a donor program, irrespective of
// its remaining mutation budget (splicing a program doesn't consume
// its own budget, only the host's).
func (c *Corpus) RandomProgramForSplicing() *ir.Program {
	e := c.weightedPick()
	if e == nil {
		return nil
	}
	return e.program
}

// RandomProgramForMutating samples a program to mutate and decrements
// its remaining budget, returning nil once nothing has budget left.
func (c *Corpus) RandomProgramForMutating() *ir.Program {
	for attempts := 0; attempts < len(c.order); attempts++ {
		e := c.weightedPick()
		if e == nil {
			return nil
		}
		if e.remainingBudget <= 0 {
			continue
		}
		e.remainingBudget--
		return e.program
	}
	return nil
}
