package splice

import "luafuzz/internal/ir"

// unit is one splice-able piece of a donor program: either a single
// ordinary instruction, or an entire block group (from its pure start
// to its matching pure end, inclusive of every chain-link segment)
// treated atomically, per §4.7's "blocks are thereafter treated as a
// single instruction."
type unit struct {
	start, end int // inclusive instruction-index span within the donor code

	requiredContext ir.Context
	requiredVars    []uint32 // donor variable ids read but not defined within the unit
	providedVars    []uint32 // donor variable ids defined anywhere within the unit
}

// computeUnits performs pass 1 (block summary): it partitions code
// into units and computes each unit's external requirements.
func computeUnits(code ir.Code) []unit {
	var units []unit
	i := 0
	for i < len(code) {
		desc := code[i].Op.Descriptor()
		isStart := desc.Attrs.Has(ir.IsBlockStart)
		isEnd := desc.Attrs.Has(ir.IsBlockEnd)

		end := i
		if isStart && !isEnd {
			end = findGroupEnd(code, i)
		}

		units = append(units, summarize(code, i, end))
		i = end + 1
	}
	return units
}

// findGroupEnd scans forward from a pure block-start at i, tracking
// nesting depth, and returns the index of its matching pure block-end.
func findGroupEnd(code ir.Code, i int) int {
	depth := 1
	for j := i + 1; j < len(code); j++ {
		d := code[j].Op.Descriptor()
		isStart := d.Attrs.Has(ir.IsBlockStart)
		isEnd := d.Attrs.Has(ir.IsBlockEnd)
		switch {
		case isStart && !isEnd:
			depth++
		case isEnd && !isStart:
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return len(code) - 1
}

func summarize(code ir.Code, start, end int) unit {
	defined := map[uint32]bool{}
	var required, provided []uint32
	requiredSeen := map[uint32]bool{}

	for idx := start; idx <= end; idx++ {
		instr := code[idx]
		for _, v := range instr.Inputs() {
			if !defined[v.ID()] && !requiredSeen[v.ID()] {
				required = append(required, v.ID())
				requiredSeen[v.ID()] = true
			}
		}
		for _, v := range instr.AllOutputs() {
			defined[v.ID()] = true
			provided = append(provided, v.ID())
		}
	}

	return unit{
		start:           start,
		end:             end,
		requiredContext: code[start].RequiredContext(),
		requiredVars:    required,
		providedVars:    provided,
	}
}

func (u unit) isTrivial() bool {
	return u.start == u.end && len(u.requiredVars) == 0
}
