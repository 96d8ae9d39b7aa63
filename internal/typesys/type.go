package typesys

// Extension carries the part of a Type that cannot be expressed as a
// base-type bitset: the group a table/object belongs to, its known
// array element types, its known properties/methods, and (for callables)
// a Signature. Extensions are treated as immutable; callers that want to
// modify one go through the adding/removing constructors below, which
// return a fresh Type rather than mutating in place.
type Extension struct {
	Group      string
	ArrayType  map[int]Type
	Properties map[string]Type
	Methods    map[string]Signature
	Additional map[string]Type
	Signature  *Signature
}

func (e *Extension) clone() *Extension {
	if e == nil {
		return nil
	}
	n := &Extension{Group: e.Group}
	if e.ArrayType != nil {
		n.ArrayType = make(map[int]Type, len(e.ArrayType))
		for k, v := range e.ArrayType {
			n.ArrayType[k] = v
		}
	}
	if e.Properties != nil {
		n.Properties = make(map[string]Type, len(e.Properties))
		for k, v := range e.Properties {
			n.Properties[k] = v
		}
	}
	if e.Methods != nil {
		n.Methods = make(map[string]Signature, len(e.Methods))
		for k, v := range e.Methods {
			n.Methods[k] = v
		}
	}
	if e.Additional != nil {
		n.Additional = make(map[string]Type, len(e.Additional))
		for k, v := range e.Additional {
			n.Additional[k] = v
		}
	}
	if e.Signature != nil {
		sig := *e.Signature
		n.Signature = &sig
	}
	return n
}

func (e *Extension) isEmpty() bool {
	return e == nil || (e.Group == "" && len(e.ArrayType) == 0 && len(e.Properties) == 0 &&
		len(e.Methods) == 0 && len(e.Additional) == 0 && e.Signature == nil)
}

// Type is the value-type representation threaded through the analyzers
// and the builder. Definite is what a value is guaranteed to be;
// Possible is everything it might be. The lattice invariant Definite ⊆
// Possible must hold for every Type constructed through this package.
type Type struct {
	Definite BaseType
	Possible BaseType
	Ext      *Extension
}

// New builds a Type, clamping Definite into Possible to preserve the
// lattice invariant rather than panicking on misuse.
func New(definite, possible BaseType) Type {
	return Type{Definite: definite & possible, Possible: possible}
}

// Primitive returns the precise (non-union) type for a single base kind.
func Primitive(b BaseType) Type {
	return Type{Definite: b, Possible: b}
}

// Nothing is the empty type: no value satisfies it.
func Nothing() Type { return Type{} }

// Anything is the universal type: every value satisfies it, and nothing
// is guaranteed about it.
func Anything() Type { return Type{Definite: 0, Possible: allBaseTypes} }

func (t Type) IsNothing() bool  { return t.Possible == 0 && t.Ext.isEmpty() }
func (t Type) IsAnything() bool { return t.Definite == 0 && t.Possible == allBaseTypes && t.Ext.isEmpty() }

// Equal is structural equality, not subsumption in both directions.
func (t Type) Equal(o Type) bool {
	if t.Definite != o.Definite || t.Possible != o.Possible {
		return false
	}
	return extensionsEqual(t.Ext, o.Ext)
}

func extensionsEqual(a, b *Extension) bool {
	if a.isEmpty() && b.isEmpty() {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Group != b.Group {
		return false
	}
	if len(a.Properties) != len(b.Properties) || len(a.Methods) != len(b.Methods) ||
		len(a.ArrayType) != len(b.ArrayType) || len(a.Additional) != len(b.Additional) {
		return false
	}
	for k, v := range a.Properties {
		o, ok := b.Properties[k]
		if !ok || !v.Equal(o) {
			return false
		}
	}
	for k, v := range a.Methods {
		o, ok := b.Methods[k]
		if !ok || !v.Equal(o) {
			return false
		}
	}
	if (a.Signature == nil) != (b.Signature == nil) {
		return false
	}
	if a.Signature != nil && !a.Signature.Equal(*b.Signature) {
		return false
	}
	return true
}

// Is reports whether the receiver is statically known to satisfy other:
// every value the receiver could hold must also be a valid `other`.
func (t Type) Is(other Type) bool {
	return other.Subsumes(t)
}

// Union widens: the result may be anything either operand could be, but
// is only guaranteed to be what both operands are guaranteed to be. This
// is the operation used to merge conditional branches (§4.5).
func Union(a, b Type) Type {
	if a.IsNothing() {
		return b
	}
	if b.IsNothing() {
		return a
	}
	if a.IsAnything() || b.IsAnything() {
		return Anything()
	}
	result := Type{
		Definite: a.Definite & b.Definite,
		Possible: a.Possible | b.Possible,
	}
	result.Ext = unionExtensions(a.Ext, b.Ext)
	return result
}

func unionExtensions(a, b *Extension) *Extension {
	if a.isEmpty() || b.isEmpty() {
		return nil
	}
	out := &Extension{}
	if a.Group != "" && a.Group == b.Group {
		out.Group = a.Group
	}
	out.Properties = intersectTypeMaps(a.Properties, b.Properties)
	out.Methods = intersectSigMaps(a.Methods, b.Methods)
	if a.Signature != nil && b.Signature != nil && a.Signature.Equal(*b.Signature) {
		sig := *a.Signature
		out.Signature = &sig
	}
	if out.isEmpty() {
		return nil
	}
	return out
}

func intersectTypeMaps(a, b map[string]Type) map[string]Type {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	out := map[string]Type{}
	for k, v := range a {
		if o, ok := b[k]; ok && v.Equal(o) {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func intersectSigMaps(a, b map[string]Signature) map[string]Signature {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	out := map[string]Signature{}
	for k, v := range a {
		if o, ok := b[k]; ok && v.Equal(o) {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Intersection narrows: the result is only possible if both operands
// allow it. It returns Nothing when the two operands' definite sets are
// not comparable (neither is a bitwise subset of the other) since no
// value can then simultaneously honor both guarantees.
func Intersection(a, b Type) Type {
	if a.IsAnything() {
		return b
	}
	if b.IsAnything() {
		return a
	}
	if a.IsNothing() || b.IsNothing() {
		return Nothing()
	}
	if !isSubsetBits(a.Definite, b.Definite) && !isSubsetBits(b.Definite, a.Definite) {
		return Nothing()
	}
	possible := a.Possible & b.Possible
	if possible == 0 {
		return Nothing()
	}
	definite := (a.Definite | b.Definite) & possible
	ext, ok := intersectExtensions(a.Ext, b.Ext)
	if !ok {
		return Nothing()
	}
	return Type{Definite: definite, Possible: possible, Ext: ext}
}

func intersectExtensions(a, b *Extension) (*Extension, bool) {
	if a.isEmpty() {
		return b, true
	}
	if b.isEmpty() {
		return a, true
	}
	if a.Group != "" && b.Group != "" && a.Group != b.Group {
		return nil, false
	}
	if a.Signature != nil && b.Signature != nil {
		if !a.Signature.Subsumes(*b.Signature) && !b.Signature.Subsumes(*a.Signature) {
			return nil, false
		}
	}
	out := &Extension{}
	if a.Group != "" {
		out.Group = a.Group
	} else {
		out.Group = b.Group
	}
	out.Properties = unionTypeMaps(a.Properties, b.Properties)
	out.Methods = unionSigMaps(a.Methods, b.Methods)
	out.Additional = unionTypeMaps(a.Additional, b.Additional)
	if a.Signature != nil {
		out.Signature = a.Signature
	} else {
		out.Signature = b.Signature
	}
	return out, true
}

func unionTypeMaps(a, b map[string]Type) map[string]Type {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(map[string]Type, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func unionSigMaps(a, b map[string]Signature) map[string]Signature {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(map[string]Signature, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Merging forms a value that is simultaneously both a and b, e.g. a
// table literal that is both "has property x" and "belongs to group Y".
// It is forbidden between two operands that are themselves unions
// (Definite != Possible) or that carry incompatible signatures, since
// there would then be no single concrete value satisfying both.
func Merging(a, b Type) (Type, bool) {
	if a.Definite != a.Possible || b.Definite != b.Possible {
		return Type{}, false
	}
	if a.Ext != nil && b.Ext != nil && a.Ext.Signature != nil && b.Ext.Signature != nil {
		if !a.Ext.Signature.Equal(*b.Ext.Signature) {
			return Type{}, false
		}
	}
	possible := a.Possible | b.Possible
	out := Type{Definite: possible, Possible: possible}
	out.Ext = unionTypeMapsExtension(a.Ext, b.Ext)
	return out, true
}

func unionTypeMapsExtension(a, b *Extension) *Extension {
	if a.isEmpty() && b.isEmpty() {
		return nil
	}
	out := &Extension{}
	if a != nil && a.Group != "" {
		out.Group = a.Group
	} else if b != nil {
		out.Group = b.Group
	}
	var ap, bp map[string]Type
	var am, bm map[string]Signature
	var aa, ba map[string]Type
	var asig, bsig *Signature
	if a != nil {
		ap, am, aa, asig = a.Properties, a.Methods, a.Additional, a.Signature
	}
	if b != nil {
		bp, bm, ba, bsig = b.Properties, b.Methods, b.Additional, b.Signature
	}
	out.Properties = unionTypeMaps(ap, bp)
	out.Methods = unionSigMaps(am, bm)
	out.Additional = unionTypeMaps(aa, ba)
	if asig != nil {
		out.Signature = asig
	} else {
		out.Signature = bsig
	}
	if out.isEmpty() {
		return nil
	}
	return out
}

// Subsumes reports whether every value satisfying o also satisfies the
// receiver (the receiver is at least as general as o).
func (a Type) Subsumes(o Type) bool {
	if a.IsAnything() {
		return true
	}
	if a.Equal(o) {
		return true
	}
	if o.IsNothing() {
		return true
	}
	if a.IsNothing() {
		return false
	}
	if !isSubsetBits(o.Possible, a.Possible) {
		return false
	}
	if a.Ext.isEmpty() {
		return true
	}
	if o.Ext.isEmpty() {
		return false
	}
	if a.Ext.Group != "" && o.Ext.Group != "" && a.Ext.Group != o.Ext.Group {
		return false
	}
	for name, pt := range a.Ext.Properties {
		op, ok := o.Ext.Properties[name]
		if !ok || !op.Is(pt) {
			return false
		}
	}
	for name, sig := range a.Ext.Methods {
		osig, ok := o.Ext.Methods[name]
		if !ok || !osig.Subsumes(sig) {
			return false
		}
	}
	if a.Ext.Signature != nil {
		if o.Ext.Signature == nil || !a.Ext.Signature.Subsumes(*o.Ext.Signature) {
			return false
		}
	}
	return true
}

// AddingProperty returns a new type identical to t but known to carry a
// property of the given type; used by flow inference on property
// assignment and by table literal construction.
func (t Type) AddingProperty(name string, propType Type) Type {
	out := t
	out.Ext = t.Ext.clone()
	if out.Ext == nil {
		out.Ext = &Extension{}
	}
	if out.Ext.Properties == nil {
		out.Ext.Properties = map[string]Type{}
	}
	out.Ext.Properties[name] = propType
	if out.Ext.Additional == nil {
		out.Ext.Additional = map[string]Type{}
	}
	out.Ext.Additional[name] = propType
	return out
}

// RemovingProperty returns a new type identical to t but without any
// knowledge of the named property, used on property deletion.
func (t Type) RemovingProperty(name string) Type {
	out := t
	out.Ext = t.Ext.clone()
	if out.Ext == nil {
		return out
	}
	delete(out.Ext.Properties, name)
	delete(out.Ext.Additional, name)
	return out
}

// AddingMethod returns a new type known to additionally expose a method
// with the given signature.
func (t Type) AddingMethod(name string, sig Signature) Type {
	out := t
	out.Ext = t.Ext.clone()
	if out.Ext == nil {
		out.Ext = &Extension{}
	}
	if out.Ext.Methods == nil {
		out.Ext.Methods = map[string]Signature{}
	}
	out.Ext.Methods[name] = sig
	return out
}

// AddingIndex returns a new type known to carry a given element type at
// a fixed array index, used by table-literal array construction.
func (t Type) AddingIndex(idx int, elemType Type) Type {
	out := t
	out.Ext = t.Ext.clone()
	if out.Ext == nil {
		out.Ext = &Extension{}
	}
	if out.Ext.ArrayType == nil {
		out.Ext.ArrayType = map[int]Type{}
	}
	out.Ext.ArrayType[idx] = elemType
	return out
}

// TypeOfProperty reports the known type of a property, if any.
func (t Type) TypeOfProperty(name string) (Type, bool) {
	if t.Ext == nil {
		return Type{}, false
	}
	pt, ok := t.Ext.Properties[name]
	return pt, ok
}

// WithGroup returns a new type tagged with the given group name.
func (t Type) WithGroup(group string) Type {
	out := t
	out.Ext = t.Ext.clone()
	if out.Ext == nil {
		out.Ext = &Extension{}
	}
	out.Ext.Group = group
	return out
}

// WithSignature returns a new Function type carrying the given call
// signature.
func WithSignature(sig Signature) Type {
	out := Primitive(Function)
	out.Ext = &Extension{Signature: &sig}
	return out
}
