// Package typesys implements the type lattice used by the type analyzer,
// the builder's variable selection, and the splicer's remap feasibility
// checks. A Type is a pair of base-type bitsets (definite, possible) plus
// an optional extension describing groups, properties, methods and call
// signatures.
package typesys

// BaseType is a bitset over the primitive Lua value categories.
type BaseType uint32

const (
	Undefined BaseType = 1 << iota
	Nil
	Boolean
	Number
	String
	Table
	Function
	Thread
	Userdata
)

// allBaseTypes is the union of every bit defined above; it is the
// "possible" set of the universal type.
const allBaseTypes = Undefined | Nil | Boolean | Number | String | Table | Function | Thread | Userdata

// baseTypeNames lists base types in a stable order for printing.
var baseTypeNames = []struct {
	bit  BaseType
	name string
}{
	{Undefined, "undefined"},
	{Nil, "nil"},
	{Boolean, "boolean"},
	{Number, "number"},
	{String, "string"},
	{Table, "table"},
	{Function, "function"},
	{Thread, "thread"},
	{Userdata, "userdata"},
}

func isSubsetBits(x, y BaseType) bool {
	return x&^y == 0
}
