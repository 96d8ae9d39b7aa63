package serialize

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"luafuzz/internal/ir"
)

// disasmLexer tokenizes the human-readable disassembly text format, in
// the same MustStateful style grammar/lexer.go uses for Kanso source.
var disasmLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Comment", `//[^\n]*`, nil},
		{"String", `"(\\.|[^"])*"`, nil},
		{"Number", `[0-9]+(\.[0-9]+)?`, nil},
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},
		{"Punctuation", `[=(),]`, nil},
		{"Newline", `[\r\n]+`, nil},
		{"Whitespace", `[ \t]+`, nil},
	},
})

// Line is one parsed disassembly line: an optional result variable,
// the operation mnemonic, and its comma-separated argument tokens
// (variable references and quoted/numeric literals, printed verbatim).
//
// Result only captures a single identifier, so ParseListing round-trips
// single-output instructions faithfully; Disassemble's multi-output
// lines (LoadPair, BeginForInLoop's inner outputs, ...) print a
// comma-joined list that this grammar won't parse back. Acceptable
// since this format is a read/display aid, never the canonical
// encoding (see binary.go/decode.go for that).
type Line struct {
	Result *string  `(@Ident "=")?`
	Op     string   `@Ident`
	Args   []string `"(" (@(String|Number|Ident) ("," @(String|Number|Ident))*)? ")"`
}

// Listing is a full disassembled instruction sequence.
type Listing struct {
	Lines []*Line `(@@ Newline?)*`
}

var disasmParser = buildDisasmParser()

func buildDisasmParser() *participle.Parser[Listing] {
	p, err := participle.Build[Listing](
		participle.Lexer(disasmLexer),
		participle.Elide("Whitespace", "Comment"),
	)
	if err != nil {
		panic(fmt.Errorf("serialize: failed to build disassembly parser: %w", err))
	}
	return p
}

// ParseListing parses the textual disassembly format Disassemble
// emits, for tooling that reads it back (e.g. a corpus-inspection REPL
// diffing two listings). It does not reconstruct an ir.Code — the
// binary format in binary.go/decode.go is the only round-trip-faithful
// encoding; this is a read/display aid.
func ParseListing(text string) (*Listing, error) {
	return disasmParser.ParseString("", text)
}

// Disassemble renders code as human-readable text, one instruction per
// line, for corpus inspection and crash-report footers.
func Disassemble(code ir.Code) string {
	var b strings.Builder
	for _, instr := range code {
		writeDisasmLine(&b, instr)
	}
	return b.String()
}

func writeDisasmLine(b *strings.Builder, instr ir.Instruction) {
	outputs := instr.AllOutputs()
	if len(outputs) > 0 {
		names := make([]string, len(outputs))
		for i, v := range outputs {
			names[i] = v.String()
		}
		fmt.Fprintf(b, "%s = ", strings.Join(names, ", "))
	}
	args := make([]string, 0, len(instr.Inputs())+1)
	args = append(args, payloadArgs(instr.Op)...)
	for _, v := range instr.Inputs() {
		args = append(args, v.String())
	}
	fmt.Fprintf(b, "%s(%s)\n", instr.Op.Name(), strings.Join(args, ", "))
}

// payloadArgs renders an operation's own parameters (operator,
// property name, etc.) as leading disassembly arguments, ahead of its
// variable inputs.
func payloadArgs(op ir.Operation) []string {
	switch o := op.(type) {
	case ir.LoadNumber:
		return []string{fmt.Sprintf("%g", o.Value)}
	case ir.LoadString:
		return []string{fmt.Sprintf("%q", o.Value)}
	case ir.LoadBoolean:
		return []string{fmt.Sprintf("%t", o.Value)}
	case ir.LoadBuiltin:
		return []string{o.Name_}
	case ir.Unary:
		return []string{fmt.Sprintf("%q", o.Op)}
	case ir.Binary:
		return []string{fmt.Sprintf("%q", o.Op)}
	case ir.Compare:
		return []string{fmt.Sprintf("%q", o.Op)}
	case ir.Update:
		return []string{fmt.Sprintf("%q", o.Op)}
	case ir.TableAddProperty:
		return []string{o.Name_}
	case ir.GetProperty:
		return []string{o.Name_}
	case ir.SetProperty:
		return []string{o.Name_}
	case ir.DeleteProperty:
		return []string{o.Name_}
	case ir.UpdateProperty:
		return []string{o.Name_, fmt.Sprintf("%q", o.Op)}
	case ir.UpdateElement:
		return []string{fmt.Sprintf("%q", o.Op)}
	case ir.CallMethod:
		return []string{o.MethodName}
	case ir.BeginRepeatLoop:
		return []string{fmt.Sprintf("%d", o.Iterations)}
	default:
		return nil
	}
}
