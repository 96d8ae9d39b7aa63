// Package env models the Lua execution environment the generated
// programs run against: global builtins, interesting constants used to
// seed value generators, and the group/method signatures of the Lua
// standard library tables (string, table, math, os, io) that the type
// analyzer and builder need in order to reason about CallMethod targets.
package env

import "luafuzz/internal/typesys"

// Builtin describes a global function or table available to every
// generated program (print, pairs, require, the string/table/math/os/io
// library tables themselves, ...).
type Builtin struct {
	Name string
	Type typesys.Type
}

// Group is a named bundle of methods shared by every value tagged with
// that group, e.g. all values produced as "the string library table"
// share the group "string" and therefore the same method set.
type Group struct {
	Name    string
	Methods map[string]typesys.Signature
}

// Environment is the frozen description of the Lua runtime a fuzzing
// session targets. It is built once at startup and never mutated.
type Environment struct {
	Builtins          []Builtin
	Groups            map[string]*Group
	IntInteresting    []int64
	FloatInteresting  []float64
	StringInteresting []string
}

func sig(returns []typesys.Type, params ...typesys.Parameter) typesys.Signature {
	return typesys.Signature{Parameters: params, Returns: returns}
}

func plain(t typesys.Type) typesys.Parameter {
	return typesys.Parameter{Kind: typesys.ParamPlain, Type: t}
}

func optional(t typesys.Type) typesys.Parameter {
	return typesys.Parameter{Kind: typesys.ParamOptional, Type: t}
}

func rest(t typesys.Type) typesys.Parameter {
	return typesys.Parameter{Kind: typesys.ParamRest, Type: t}
}

// NewDefault builds the environment model for the stock Lua 5.4
// standard library surface the fuzzer targets. Additional builtins
// (e.g. fuzzing harness globals) can be layered on by callers via
// Environment.Builtins append, since Environment is a plain value.
func NewDefault() *Environment {
	number := typesys.Primitive(typesys.Number)
	str := typesys.Primitive(typesys.String)
	boolean := typesys.Primitive(typesys.Boolean)
	anyT := typesys.Anything()
	table := typesys.Primitive(typesys.Table)

	stringGroup := &Group{
		Name: "string",
		Methods: map[string]typesys.Signature{
			"len":     sig([]typesys.Type{number}, plain(str)),
			"sub":     sig([]typesys.Type{str}, plain(str), plain(number), optional(number)),
			"upper":   sig([]typesys.Type{str}, plain(str)),
			"lower":   sig([]typesys.Type{str}, plain(str)),
			"rep":     sig([]typesys.Type{str}, plain(str), plain(number), optional(str)),
			"reverse": sig([]typesys.Type{str}, plain(str)),
			"byte":    sig([]typesys.Type{number}, plain(str), optional(number), optional(number)),
			"char":    sig([]typesys.Type{str}, rest(number)),
			"format":  sig([]typesys.Type{str}, plain(str), rest(anyT)),
			"find":    sig([]typesys.Type{number, number}, plain(str), plain(str), optional(number), optional(boolean)),
			"gsub":    sig([]typesys.Type{str, number}, plain(str), plain(str), plain(str), optional(number)),
			"match":   sig([]typesys.Type{anyT}, plain(str), plain(str), optional(number)),
		},
	}

	tableGroup := &Group{
		Name: "table",
		Methods: map[string]typesys.Signature{
			"insert": sig(nil, plain(table), plain(anyT), optional(number)),
			"remove": sig([]typesys.Type{anyT}, plain(table), optional(number)),
			"concat": sig([]typesys.Type{str}, plain(table), optional(str), optional(number), optional(number)),
			"sort":   sig(nil, plain(table), optional(typesys.WithSignature(sig([]typesys.Type{boolean}, plain(anyT), plain(anyT))))),
			"unpack": sig([]typesys.Type{anyT}, plain(table), optional(number), optional(number)),
			"pack":   sig([]typesys.Type{table}, rest(anyT)),
		},
	}

	mathGroup := &Group{
		Name: "math",
		Methods: map[string]typesys.Signature{
			"abs":     sig([]typesys.Type{number}, plain(number)),
			"ceil":    sig([]typesys.Type{number}, plain(number)),
			"floor":   sig([]typesys.Type{number}, plain(number)),
			"max":     sig([]typesys.Type{number}, plain(number), rest(number)),
			"min":     sig([]typesys.Type{number}, plain(number), rest(number)),
			"random":  sig([]typesys.Type{number}, optional(number), optional(number)),
			"sqrt":    sig([]typesys.Type{number}, plain(number)),
			"fmod":    sig([]typesys.Type{number}, plain(number), plain(number)),
			"huge":    sig([]typesys.Type{number}),
			"tointeger": sig([]typesys.Type{anyT}, plain(anyT)),
			"type":     sig([]typesys.Type{anyT}, plain(anyT)),
		},
	}

	osGroup := &Group{
		Name: "os",
		Methods: map[string]typesys.Signature{
			"time":  sig([]typesys.Type{number}, optional(table)),
			"clock": sig([]typesys.Type{number}),
			"date":  sig([]typesys.Type{str}, optional(str), optional(number)),
		},
	}

	ioGroup := &Group{
		Name: "io",
		Methods: map[string]typesys.Signature{
			"write": sig(nil, rest(anyT)),
			"read":  sig([]typesys.Type{anyT}, rest(str)),
		},
	}

	groups := map[string]*Group{
		stringGroup.Name: stringGroup,
		tableGroup.Name:  tableGroup,
		mathGroup.Name:   mathGroup,
		osGroup.Name:     osGroup,
		ioGroup.Name:     ioGroup,
	}

	builtins := []Builtin{
		{Name: "string", Type: table.WithGroup("string")},
		{Name: "table", Type: table.WithGroup("table")},
		{Name: "math", Type: table.WithGroup("math")},
		{Name: "os", Type: table.WithGroup("os")},
		{Name: "io", Type: table.WithGroup("io")},
		{Name: "print", Type: typesys.WithSignature(sig(nil, rest(anyT)))},
		{Name: "type", Type: typesys.WithSignature(sig([]typesys.Type{str}, plain(anyT)))},
		{Name: "tostring", Type: typesys.WithSignature(sig([]typesys.Type{str}, plain(anyT)))},
		{Name: "tonumber", Type: typesys.WithSignature(sig([]typesys.Type{number}, plain(anyT), optional(number)))},
		{Name: "pairs", Type: typesys.WithSignature(sig([]typesys.Type{anyT, table, anyT}, plain(table)))},
		{Name: "ipairs", Type: typesys.WithSignature(sig([]typesys.Type{anyT, table, number}, plain(table)))},
		{Name: "pcall", Type: typesys.WithSignature(sig([]typesys.Type{boolean, anyT}, plain(anyT), rest(anyT)))},
		{Name: "error", Type: typesys.WithSignature(sig(nil, plain(anyT), optional(number)))},
		{Name: "setmetatable", Type: typesys.WithSignature(sig([]typesys.Type{table}, plain(table), plain(table)))},
		{Name: "rawget", Type: typesys.WithSignature(sig([]typesys.Type{anyT}, plain(table), plain(anyT)))},
		{Name: "rawset", Type: typesys.WithSignature(sig([]typesys.Type{table}, plain(table), plain(anyT), plain(anyT)))},
		{Name: "select", Type: typesys.WithSignature(sig([]typesys.Type{anyT}, plain(anyT), rest(anyT)))},
		{Name: "assert", Type: typesys.WithSignature(sig([]typesys.Type{anyT}, plain(anyT), rest(anyT)))},
	}

	return &Environment{
		Builtins: builtins,
		Groups:   groups,
		IntInteresting: []int64{
			0, 1, -1, 2, 10, 0x7fffffff, -0x80000000, 0x7fffffffffffffff, -0x8000000000000000,
		},
		FloatInteresting: []float64{
			0.0, -0.0, 1.0, -1.0, 0.5,
		},
		StringInteresting: []string{
			"", "a", "\x00", "nil", "true", "false", "%s", "%d",
		},
	}
}

// Lookup returns the Builtin with the given name, if any.
func (e *Environment) Lookup(name string) (Builtin, bool) {
	for _, b := range e.Builtins {
		if b.Name == name {
			return b, true
		}
	}
	return Builtin{}, false
}

// Group returns the named method group, if any.
func (e *Environment) Group(name string) (*Group, bool) {
	g, ok := e.Groups[name]
	return g, ok
}
