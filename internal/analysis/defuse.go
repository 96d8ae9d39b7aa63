package analysis

import "luafuzz/internal/ir"

// DefUse records, per variable, the instruction index that defined it
// and every index that used it. Queries are only meaningful after
// Finalize (or after the full program has been scanned), matching the
// teacher's pattern of building an index during a single forward pass
// and freezing it for repeated lookups by the splicer and mutators.
type DefUse struct {
	def  map[uint32]int
	uses map[uint32][]int
	done bool
}

func NewDefUse() *DefUse {
	return &DefUse{def: map[uint32]int{}, uses: map[uint32][]int{}}
}

func (d *DefUse) Step(index int, instr ir.Instruction) {
	for _, v := range instr.Inputs() {
		d.uses[v.ID()] = append(d.uses[v.ID()], index)
	}
	for _, v := range instr.AllOutputs() {
		d.def[v.ID()] = index
	}
}

func (d *DefUse) Finalize() { d.done = true }

func (d *DefUse) DefIndex(id uint32) (int, bool) {
	idx, ok := d.def[id]
	return idx, ok
}

func (d *DefUse) Uses(id uint32) []int {
	return d.uses[id]
}

func (d *DefUse) IsUnused(id uint32) bool {
	return len(d.uses[id]) == 0
}
