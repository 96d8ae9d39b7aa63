package fuzzerr

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
)

// Reporter formats FuzzErrors for the CLI with the same
// bold-header/dim-gutter styling the rest of the ecosystem's tools use.
type Reporter struct {
	// Disassembly, when set, is consulted to print the source line for
	// a FuzzError whose context carries an "instruction" index.
	Disassembly func(index int) string
}

func NewReporter(disassembly func(index int) string) *Reporter {
	return &Reporter{Disassembly: disassembly}
}

func (r *Reporter) Format(err *FuzzError) string {
	var b strings.Builder

	bold := color.New(color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()
	errColor := color.New(color.FgRed, color.Bold).SprintFunc()

	b.WriteString(fmt.Sprintf("%s[%s]: %s\n", errColor("error"), err.Code, err.Message))

	if idx, ok := err.Context["instruction"]; ok {
		b.WriteString(fmt.Sprintf("  %s instruction %v\n", dim("-->"), idx))
		if r.Disassembly != nil {
			if n, ok := idx.(int); ok {
				b.WriteString(fmt.Sprintf("  %s %s\n", dim("│"), bold(r.Disassembly(n))))
			}
		}
	}

	for _, key := range sortedKeys(err.Context) {
		if key == "instruction" {
			continue
		}
		b.WriteString(fmt.Sprintf("  %s %s: %v\n", dim("│"), dim(key), err.Context[key]))
	}

	if err.Cause != nil {
		noteColor := color.New(color.FgBlue).SprintFunc()
		b.WriteString(fmt.Sprintf("  %s %s %v\n", dim("│"), noteColor("caused by:"), err.Cause))
	}

	b.WriteString(fmt.Sprintf("  %s %s\n", dim("│"), dim(Describe(err.Code))))
	return b.String()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
