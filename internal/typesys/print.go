package typesys

import "strings"

// String renders a Type the way the lifter's comments and disassembly
// text format expect: ".number|.string", ".anything", ".nothing".
func (t Type) String() string {
	if t.IsNothing() {
		return ".nothing"
	}
	if t.IsAnything() {
		return ".anything"
	}
	var parts []string
	for _, bt := range baseTypeNames {
		if t.Possible&bt.bit != 0 {
			parts = append(parts, "."+bt.name)
		}
	}
	if len(parts) == 0 {
		return ".nothing"
	}
	return strings.Join(parts, "|")
}
