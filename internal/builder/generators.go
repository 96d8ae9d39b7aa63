package builder

import (
	"sort"

	"luafuzz/internal/ir"
	"luafuzz/internal/typesys"
)

// DefaultGenerators returns the built-in generator set: the value
// generators that bootstrap a program's prefix (constants and
// builtins), and the ordinary and recursive generators that extend an
// already-populated scope with expressions, control flow, tables,
// functions and calls. Swarm testing (internal/fuzzer's
// swarmGenerators) keeps every value generator of this set and a
// random subset of the others.
func DefaultGenerators() []CodeGenerator {
	return []CodeGenerator{
		numberGenerator{},
		stringGenerator{},
		booleanGenerator{},
		unaryGenerator{},
		binaryGenerator{},
		compareGenerator{},
		reassignGenerator{},
		ifElseGenerator{},
		builtinGenerator{},
		tableGenerator{},
		getPropertyGenerator{},
		setPropertyGenerator{},
		getElementGenerator{},
		setElementGenerator{},
		whileLoopGenerator{},
		numericForLoopGenerator{},
		forInLoopGenerator{},
		repeatLoopGenerator{},
		loopBreakGenerator{},
		functionGenerator{},
		returnGenerator{},
		callFunctionGenerator{},
		callMethodGenerator{},
	}
}

type numberGenerator struct{}

func (numberGenerator) Name() string              { return "NumberGenerator" }
func (numberGenerator) RequiredContext() ir.Context { return 0 }
func (numberGenerator) IsValueGenerator() bool     { return true }
func (numberGenerator) IsRecursive() bool          { return false }
func (g numberGenerator) Generate(b *Builder) bool {
	consts := b.Environment.IntInteresting
	var value float64
	if len(consts) > 0 {
		value = float64(consts[b.Rand.Intn(len(consts))])
	} else {
		value = float64(b.Rand.Intn(1000))
	}
	out := b.NewVar()
	b.Emit(ir.NewInstruction(ir.LoadNumber{Value: value}, nil, []ir.Variable{out}, nil, nil))
	return true
}

type stringGenerator struct{}

func (stringGenerator) Name() string              { return "StringGenerator" }
func (stringGenerator) RequiredContext() ir.Context { return 0 }
func (stringGenerator) IsValueGenerator() bool     { return true }
func (stringGenerator) IsRecursive() bool          { return false }
func (g stringGenerator) Generate(b *Builder) bool {
	consts := b.Environment.StringInteresting
	value := ""
	if len(consts) > 0 {
		value = consts[b.Rand.Intn(len(consts))]
	}
	out := b.NewVar()
	b.Emit(ir.NewInstruction(ir.LoadString{Value: value}, nil, []ir.Variable{out}, nil, nil))
	return true
}

type booleanGenerator struct{}

func (booleanGenerator) Name() string              { return "BooleanGenerator" }
func (booleanGenerator) RequiredContext() ir.Context { return 0 }
func (booleanGenerator) IsValueGenerator() bool     { return true }
func (booleanGenerator) IsRecursive() bool          { return false }
func (g booleanGenerator) Generate(b *Builder) bool {
	out := b.NewVar()
	b.Emit(ir.NewInstruction(ir.LoadBoolean{Value: b.Rand.Intn(2) == 0}, nil, []ir.Variable{out}, nil, nil))
	return true
}

var unaryOps = []string{"-", "not", "#"}

type unaryGenerator struct{}

func (unaryGenerator) Name() string              { return "UnaryGenerator" }
func (unaryGenerator) RequiredContext() ir.Context { return 0 }
func (unaryGenerator) IsValueGenerator() bool     { return false }
func (unaryGenerator) IsRecursive() bool          { return false }
func (g unaryGenerator) Generate(b *Builder) bool {
	in, ok := b.RandomVariable()
	if !ok {
		return false
	}
	out := b.NewVar()
	op := unaryOps[b.Rand.Intn(len(unaryOps))]
	b.Emit(ir.NewInstruction(ir.Unary{Op: op}, []ir.Variable{in}, []ir.Variable{out}, nil, nil))
	return true
}

var binaryOps = []string{"+", "-", "*", "/", "%", "..", "and", "or"}

type binaryGenerator struct{}

func (binaryGenerator) Name() string              { return "BinaryGenerator" }
func (binaryGenerator) RequiredContext() ir.Context { return 0 }
func (binaryGenerator) IsValueGenerator() bool     { return false }
func (binaryGenerator) IsRecursive() bool          { return false }
func (g binaryGenerator) Generate(b *Builder) bool {
	lhs, ok := b.RandomVariable()
	if !ok {
		return false
	}
	rhs, ok := b.RandomVariable()
	if !ok {
		return false
	}
	out := b.NewVar()
	op := binaryOps[b.Rand.Intn(len(binaryOps))]
	b.Emit(ir.NewInstruction(ir.Binary{Op: op}, []ir.Variable{lhs, rhs}, []ir.Variable{out}, nil, nil))
	return true
}

var compareOps = []string{"==", "~=", "<", "<=", ">", ">="}

type compareGenerator struct{}

func (compareGenerator) Name() string              { return "CompareGenerator" }
func (compareGenerator) RequiredContext() ir.Context { return 0 }
func (compareGenerator) IsValueGenerator() bool     { return false }
func (compareGenerator) IsRecursive() bool          { return false }
func (g compareGenerator) Generate(b *Builder) bool {
	lhs, ok := b.RandomVariable()
	if !ok {
		return false
	}
	rhs, ok := b.RandomVariable()
	if !ok {
		return false
	}
	out := b.NewVar()
	op := compareOps[b.Rand.Intn(len(compareOps))]
	b.Emit(ir.NewInstruction(ir.Compare{Op: op}, []ir.Variable{lhs, rhs}, []ir.Variable{out}, nil, nil))
	return true
}

type reassignGenerator struct{}

func (reassignGenerator) Name() string              { return "ReassignGenerator" }
func (reassignGenerator) RequiredContext() ir.Context { return 0 }
func (reassignGenerator) IsValueGenerator() bool     { return false }
func (reassignGenerator) IsRecursive() bool          { return false }
func (g reassignGenerator) Generate(b *Builder) bool {
	target, ok := b.RandomVariable()
	if !ok {
		return false
	}
	value, ok := b.RandomVariable()
	if !ok {
		return false
	}
	b.Emit(ir.NewInstruction(ir.Reassign{}, []ir.Variable{target, value}, nil, nil, nil))
	return true
}

// ifElseGenerator emits a BeginIf/BeginElse/EndIf region, recursively
// filling both branches with a fraction of the remaining budget.
type ifElseGenerator struct{}

func (ifElseGenerator) Name() string              { return "IfElseGenerator" }
func (ifElseGenerator) RequiredContext() ir.Context { return 0 }
func (ifElseGenerator) IsValueGenerator() bool     { return false }
func (ifElseGenerator) IsRecursive() bool          { return true }
func (g ifElseGenerator) Generate(b *Builder) bool {
	cond, ok := b.RandomVariable()
	if !ok {
		return false
	}
	budget := b.currentFrameBudget()
	b.Emit(ir.NewInstruction(ir.BeginIf{}, []ir.Variable{cond}, nil, nil, nil))
	b.BuildRecursive(budget, 2)
	b.Emit(ir.NewInstruction(ir.BeginElse{}, nil, nil, nil, nil))
	b.BuildRecursive(budget, 2)
	b.Emit(ir.NewInstruction(ir.EndIf{}, nil, nil, nil, nil))
	return true
}

// builtinGenerator loads one of the environment's global builtins
// (print, the string/table/math/os/io library tables, ...) by name. Its
// output carries the builtin's real typesys.Type, including the group
// or call signature the other env-aware generators key off of.
type builtinGenerator struct{}

func (builtinGenerator) Name() string               { return "BuiltinGenerator" }
func (builtinGenerator) RequiredContext() ir.Context { return 0 }
func (builtinGenerator) IsValueGenerator() bool     { return true }
func (builtinGenerator) IsRecursive() bool          { return false }
func (g builtinGenerator) Generate(b *Builder) bool {
	if len(b.Environment.Builtins) == 0 {
		return false
	}
	bi := b.Environment.Builtins[b.Rand.Intn(len(b.Environment.Builtins))]
	out := b.NewVar()
	b.Emit(ir.NewInstruction(ir.LoadBuiltin{Name_: bi.Name}, nil, []ir.Variable{out}, nil, nil))
	return true
}

var tablePropertyNames = []string{"x", "y", "name", "value", "kind", "next", "len"}

// tableGenerator builds a small table literal and seeds it with a few
// properties or array elements. The literal's own variable is scoped
// to its own construction (it is pushed into the table's block frame,
// the same way BeginFunction's output is scoped to its own body), so
// it is only referenced here, not kept around for later instructions.
type tableGenerator struct{}

func (tableGenerator) Name() string               { return "TableGenerator" }
func (tableGenerator) RequiredContext() ir.Context { return 0 }
func (tableGenerator) IsValueGenerator() bool     { return false }
func (tableGenerator) IsRecursive() bool          { return false }
func (g tableGenerator) Generate(b *Builder) bool {
	out := b.NewVar()
	b.Emit(ir.NewInstruction(ir.BeginTable{}, nil, []ir.Variable{out}, nil, nil))
	n := 1 + b.Rand.Intn(3)
	for i := 0; i < n; i++ {
		value, ok := b.RandomVariable()
		if !ok {
			break
		}
		if b.Rand.Intn(2) == 0 {
			name := tablePropertyNames[b.Rand.Intn(len(tablePropertyNames))]
			b.Emit(ir.NewInstruction(ir.TableAddProperty{Name_: name}, []ir.Variable{out, value}, nil, nil, nil))
		} else {
			b.Emit(ir.NewInstruction(ir.TableAddElement{}, []ir.Variable{out, value}, nil, nil, nil))
		}
	}
	b.Emit(ir.NewInstruction(ir.EndTable{}, nil, nil, nil, nil))
	return true
}

var accessPropertyNames = []string{"x", "y", "name", "value", "kind", "next", "len"}

// getPropertyGenerator and its siblings below don't restrict the
// receiver's static type: indexing a number or a function is invalid
// Lua but still a legal instruction here, and exercising it is exactly
// how a structural fuzzer surfaces type-confusion crashes.
type getPropertyGenerator struct{}

func (getPropertyGenerator) Name() string               { return "GetPropertyGenerator" }
func (getPropertyGenerator) RequiredContext() ir.Context { return 0 }
func (getPropertyGenerator) IsValueGenerator() bool     { return false }
func (getPropertyGenerator) IsRecursive() bool          { return false }
func (g getPropertyGenerator) Generate(b *Builder) bool {
	obj, ok := b.RandomVariable()
	if !ok {
		return false
	}
	out := b.NewVar()
	name := accessPropertyNames[b.Rand.Intn(len(accessPropertyNames))]
	b.Emit(ir.NewInstruction(ir.GetProperty{Name_: name}, []ir.Variable{obj}, []ir.Variable{out}, nil, nil))
	return true
}

type setPropertyGenerator struct{}

func (setPropertyGenerator) Name() string               { return "SetPropertyGenerator" }
func (setPropertyGenerator) RequiredContext() ir.Context { return 0 }
func (setPropertyGenerator) IsValueGenerator() bool     { return false }
func (setPropertyGenerator) IsRecursive() bool          { return false }
func (g setPropertyGenerator) Generate(b *Builder) bool {
	obj, ok := b.RandomVariable()
	if !ok {
		return false
	}
	value, ok := b.RandomVariable()
	if !ok {
		return false
	}
	name := accessPropertyNames[b.Rand.Intn(len(accessPropertyNames))]
	b.Emit(ir.NewInstruction(ir.SetProperty{Name_: name}, []ir.Variable{obj, value}, nil, nil, nil))
	return true
}

type getElementGenerator struct{}

func (getElementGenerator) Name() string               { return "GetElementGenerator" }
func (getElementGenerator) RequiredContext() ir.Context { return 0 }
func (getElementGenerator) IsValueGenerator() bool     { return false }
func (getElementGenerator) IsRecursive() bool          { return false }
func (g getElementGenerator) Generate(b *Builder) bool {
	obj, ok := b.RandomVariable()
	if !ok {
		return false
	}
	key, ok := b.RandomVariable()
	if !ok {
		return false
	}
	out := b.NewVar()
	b.Emit(ir.NewInstruction(ir.GetElement{}, []ir.Variable{obj, key}, []ir.Variable{out}, nil, nil))
	return true
}

type setElementGenerator struct{}

func (setElementGenerator) Name() string               { return "SetElementGenerator" }
func (setElementGenerator) RequiredContext() ir.Context { return 0 }
func (setElementGenerator) IsValueGenerator() bool     { return false }
func (setElementGenerator) IsRecursive() bool          { return false }
func (g setElementGenerator) Generate(b *Builder) bool {
	obj, ok := b.RandomVariable()
	if !ok {
		return false
	}
	key, ok := b.RandomVariable()
	if !ok {
		return false
	}
	value, ok := b.RandomVariable()
	if !ok {
		return false
	}
	b.Emit(ir.NewInstruction(ir.SetElement{}, []ir.Variable{obj, key, value}, nil, nil, nil))
	return true
}

// whileLoopGenerator emits a header/body pair. The condition is
// evaluated once per textual occurrence (BeginWhileLoopBody's own
// input), matching the "while true do if not (cond) then break end"
// desugaring internal/lift produces.
type whileLoopGenerator struct{}

func (whileLoopGenerator) Name() string               { return "WhileLoopGenerator" }
func (whileLoopGenerator) RequiredContext() ir.Context { return 0 }
func (whileLoopGenerator) IsValueGenerator() bool     { return false }
func (whileLoopGenerator) IsRecursive() bool          { return true }
func (g whileLoopGenerator) Generate(b *Builder) bool {
	cond, ok := b.RandomVariable()
	if !ok {
		return false
	}
	budget := b.currentFrameBudget()
	headerOut := b.NewVar()
	b.Emit(ir.NewInstruction(ir.BeginWhileLoopHeader{}, nil, []ir.Variable{headerOut}, nil, nil))
	b.Emit(ir.NewInstruction(ir.BeginWhileLoopBody{}, []ir.Variable{cond}, nil, nil, nil))
	b.BuildRecursive(budget, 1)
	b.Emit(ir.NewInstruction(ir.EndWhileLoop{}, nil, nil, nil, nil))
	return true
}

// numericForLoopGenerator emits a C-style for loop lowered to
// initializer/condition/afterthought/body regions. The loop counter is
// allocated as a global variable: BeginForLoopCondition,
// BeginForLoopAfterthought and BeginForLoopBody each close the
// previous region's scope frame and open a new one in the same step
// (ir.Code.StaticValidate deletes the closed frame's locals before the
// instruction's own outputs land in the new one), so an ordinary local
// counter would go out of scope the moment the loop's second region
// opens. Only a global survives that chain of pops.
type numericForLoopGenerator struct{}

func (numericForLoopGenerator) Name() string               { return "NumericForLoopGenerator" }
func (numericForLoopGenerator) RequiredContext() ir.Context { return 0 }
func (numericForLoopGenerator) IsValueGenerator() bool     { return false }
func (numericForLoopGenerator) IsRecursive() bool          { return true }
func (g numericForLoopGenerator) Generate(b *Builder) bool {
	limit, ok := b.RandomVariable()
	if !ok {
		return false
	}
	budget := b.currentFrameBudget()

	counter := b.NewGlobalVar()
	b.Emit(ir.NewInstruction(ir.BeginForLoopInitializer{}, nil, nil, []ir.Variable{counter}, nil))

	condValue := b.NewVar()
	b.Emit(ir.NewInstruction(ir.Compare{Op: "<"}, []ir.Variable{counter, limit}, []ir.Variable{condValue}, nil, nil))
	condOut := b.NewVar()
	b.Emit(ir.NewInstruction(ir.BeginForLoopCondition{}, []ir.Variable{condValue}, []ir.Variable{condOut}, nil, nil))

	b.Emit(ir.NewInstruction(ir.BeginForLoopAfterthought{}, []ir.Variable{counter}, nil, nil, nil))
	one := b.NewVar()
	b.Emit(ir.NewInstruction(ir.LoadNumber{Value: 1}, nil, []ir.Variable{one}, nil, nil))
	next := b.NewVar()
	b.Emit(ir.NewInstruction(ir.Binary{Op: "+"}, []ir.Variable{counter, one}, []ir.Variable{next}, nil, nil))
	b.Emit(ir.NewInstruction(ir.Reassign{}, []ir.Variable{counter, next}, nil, nil, nil))

	b.Emit(ir.NewInstruction(ir.BeginForLoopBody{}, []ir.Variable{counter}, nil, nil, nil))
	b.BuildRecursive(budget, 1)
	b.Emit(ir.NewInstruction(ir.EndForLoop{}, nil, nil, nil, nil))
	return true
}

// forInLoopGenerator iterates a visible variable as if it were a
// table; like the property/element generators it doesn't require the
// iterable to actually be one, since feeding pairs() a non-table value
// is a legitimate crash-finding shape.
type forInLoopGenerator struct{}

func (forInLoopGenerator) Name() string               { return "ForInLoopGenerator" }
func (forInLoopGenerator) RequiredContext() ir.Context { return 0 }
func (forInLoopGenerator) IsValueGenerator() bool     { return false }
func (forInLoopGenerator) IsRecursive() bool          { return true }
func (g forInLoopGenerator) Generate(b *Builder) bool {
	iterable, ok := b.RandomVariable()
	if !ok {
		return false
	}
	budget := b.currentFrameBudget()
	key := b.NewVar()
	value := b.NewVar()
	b.Emit(ir.NewInstruction(ir.BeginForInLoop{}, []ir.Variable{iterable}, nil, []ir.Variable{key, value}, nil))
	b.BuildRecursive(budget, 1)
	b.Emit(ir.NewInstruction(ir.EndForInLoop{}, nil, nil, nil, nil))
	return true
}

// repeatLoopGenerator emits a fixed-iteration BeginRepeatLoop region
// (internal/lift renders it as a numeric `for` loop), the same
// operation internal/mutate's JITStressMutator wraps programs in.
type repeatLoopGenerator struct{}

func (repeatLoopGenerator) Name() string               { return "RepeatLoopGenerator" }
func (repeatLoopGenerator) RequiredContext() ir.Context { return 0 }
func (repeatLoopGenerator) IsValueGenerator() bool     { return false }
func (repeatLoopGenerator) IsRecursive() bool          { return true }
func (g repeatLoopGenerator) Generate(b *Builder) bool {
	budget := b.currentFrameBudget()
	iterations := int64(1 + b.Rand.Intn(8))
	exposeCounter := b.Rand.Intn(2) == 0
	var inner []ir.Variable
	if exposeCounter {
		inner = []ir.Variable{b.NewVar()}
	}
	b.Emit(ir.NewInstruction(ir.BeginRepeatLoop{Iterations: iterations, ExposeCounter: exposeCounter}, nil, nil, inner, nil))
	b.BuildRecursive(budget, 1)
	b.Emit(ir.NewInstruction(ir.EndRepeatLoop{}, nil, nil, nil, nil))
	return true
}

// loopBreakGenerator only runs inside a loop body; RequiredContext is
// what keeps pickGenerator from offering it elsewhere.
type loopBreakGenerator struct{}

func (loopBreakGenerator) Name() string               { return "LoopBreakGenerator" }
func (loopBreakGenerator) RequiredContext() ir.Context { return ir.ContextLoop }
func (loopBreakGenerator) IsValueGenerator() bool     { return false }
func (loopBreakGenerator) IsRecursive() bool          { return false }
func (g loopBreakGenerator) Generate(b *Builder) bool {
	b.Emit(ir.NewInstruction(ir.LoopBreak{}, nil, nil, nil, nil))
	return true
}

// returnGenerator only runs inside a function body.
type returnGenerator struct{}

func (returnGenerator) Name() string               { return "ReturnGenerator" }
func (returnGenerator) RequiredContext() ir.Context { return ir.ContextSubroutine }
func (returnGenerator) IsValueGenerator() bool     { return false }
func (returnGenerator) IsRecursive() bool          { return false }
func (g returnGenerator) Generate(b *Builder) bool {
	if v, ok := b.RandomVariable(); ok && b.Rand.Intn(2) == 0 {
		b.Emit(ir.NewInstruction(ir.Return{HasValue: true}, []ir.Variable{v}, nil, nil, nil))
		return true
	}
	b.Emit(ir.NewInstruction(ir.Return{HasValue: false}, nil, nil, nil, nil))
	return true
}

// sampleableParamTypes are the base kinds the parameter/return
// synthesizer buckets visible variables into; Function and Nil are
// deliberately excluded since they're rarely populated enough to clear
// the threshold below and would just push every signature to Anything.
var sampleableParamTypes = []typesys.BaseType{
	typesys.Number, typesys.String, typesys.Boolean, typesys.Table,
}

// sampleParamType counts currently visible variables by base type,
// keeps only the buckets with at least 3 members, and samples a type
// from those; with p≈0.20 (or when no bucket clears the threshold) it
// falls back to Anything.
func (b *Builder) sampleParamType() typesys.Type {
	counts := map[typesys.BaseType]int{}
	for _, v := range b.visible() {
		t := b.TypeOf(v)
		for _, bt := range sampleableParamTypes {
			if t.Is(typesys.Primitive(bt)) {
				counts[bt]++
			}
		}
	}
	var populated []typesys.BaseType
	for _, bt := range sampleableParamTypes {
		if counts[bt] >= 3 {
			populated = append(populated, bt)
		}
	}
	if len(populated) > 0 && b.Rand.Float64() >= 0.20 {
		return typesys.Primitive(populated[b.Rand.Intn(len(populated))])
	}
	return typesys.Anything()
}

// funcSignature is the parameter/return shape functionGenerator
// synthesized for one user-defined function, keyed by its (global)
// function-value variable id. Nothing in the IR lets a BeginFunction
// declare per-parameter types directly (the type analyzer assigns them
// Anything, same as any other unhandled opcode's outputs), so this is
// carried out-of-band purely to bias call-site argument selection.
type funcSignature struct {
	params []typesys.Type
	hasRet bool
	ret    typesys.Type
}

// functionGenerator opens a function with a synthesized arity and
// parameter/return types (per sampleParamType), fills its body with a
// nested budget, and closes with a Return matching the synthesized
// return type when one was chosen. The function's own output variable
// is global so callFunctionGenerator can call it again later, after
// EndFunction has popped its body scope.
type functionGenerator struct{}

func (functionGenerator) Name() string               { return "FunctionGenerator" }
func (functionGenerator) RequiredContext() ir.Context { return 0 }
func (functionGenerator) IsValueGenerator() bool     { return false }
func (functionGenerator) IsRecursive() bool          { return true }
func (g functionGenerator) Generate(b *Builder) bool {
	budget := b.currentFrameBudget()

	numParams := b.Rand.Intn(4)
	paramTypes := make([]typesys.Type, numParams)
	for i := range paramTypes {
		paramTypes[i] = b.sampleParamType()
	}
	hasRet := b.Rand.Intn(2) == 0
	var retType typesys.Type
	if hasRet {
		retType = b.sampleParamType()
	}

	fnVar := b.NewGlobalVar()
	params := make([]ir.Variable, numParams)
	for i := range params {
		params[i] = b.NewVar()
	}
	b.Emit(ir.NewInstruction(ir.BeginFunction{NumParameters: numParams}, nil, []ir.Variable{fnVar}, params, nil))
	b.BuildRecursive(budget, 1)

	if hasRet {
		v, ok := b.RandomVariableForUseAs(retType)
		if !ok {
			v, ok = b.RandomVariable()
		}
		if ok {
			b.Emit(ir.NewInstruction(ir.Return{HasValue: true}, []ir.Variable{v}, nil, nil, nil))
		} else {
			b.Emit(ir.NewInstruction(ir.Return{HasValue: false}, nil, nil, nil, nil))
		}
	}
	b.Emit(ir.NewInstruction(ir.EndFunction{}, nil, nil, nil, nil))

	b.funcSignatures[fnVar.ID()] = &funcSignature{params: paramTypes, hasRet: hasRet, ret: retType}
	b.userFunctions = append(b.userFunctions, fnVar)
	return true
}

// argumentsFor picks call arguments for target: if target is a
// function this builder itself defined, it samples one argument per
// synthesized parameter type (falling back to any visible variable);
// otherwise it falls back to a small random argument list, since a
// builtin's signature is only loosely enforced here.
func (b *Builder) argumentsFor(target ir.Variable) []ir.Variable {
	if sig, ok := b.funcSignatures[target.ID()]; ok {
		args := make([]ir.Variable, 0, len(sig.params))
		for _, pt := range sig.params {
			v, ok := b.RandomVariableForUseAs(pt)
			if !ok {
				v, ok = b.RandomVariable()
			}
			if ok {
				args = append(args, v)
			}
		}
		return args
	}
	n := b.Rand.Intn(4)
	args := make([]ir.Variable, 0, n)
	for i := 0; i < n; i++ {
		v, ok := b.RandomVariable()
		if !ok {
			break
		}
		args = append(args, v)
	}
	return args
}

// argumentsForSignature picks one argument per plain/optional
// parameter of sig, stopping at the first rest parameter (rest
// arguments are left empty rather than guessed at).
func (b *Builder) argumentsForSignature(sig typesys.Signature) []ir.Variable {
	args := make([]ir.Variable, 0, len(sig.Parameters))
	for _, p := range sig.Parameters {
		if p.Kind == typesys.ParamRest {
			break
		}
		v, ok := b.RandomVariableForUseAs(p.Type)
		if !ok {
			v, ok = b.RandomVariable()
		}
		if !ok {
			continue
		}
		args = append(args, v)
	}
	return args
}

// callFunctionGenerator prefers a builtin whose type statically
// carries a call signature, then falls back to a function this
// builder previously defined with functionGenerator.
type callFunctionGenerator struct{}

func (callFunctionGenerator) Name() string               { return "CallFunctionGenerator" }
func (callFunctionGenerator) RequiredContext() ir.Context { return 0 }
func (callFunctionGenerator) IsValueGenerator() bool     { return false }
func (callFunctionGenerator) IsRecursive() bool          { return false }
func (g callFunctionGenerator) Generate(b *Builder) bool {
	target, ok := b.RandomVariableForUseAs(typesys.Primitive(typesys.Function))
	if !ok {
		if len(b.userFunctions) == 0 {
			return false
		}
		target = b.userFunctions[b.Rand.Intn(len(b.userFunctions))]
	}
	args := b.argumentsFor(target)
	out := b.NewVar()
	inputs := append([]ir.Variable{target}, args...)
	b.Emit(ir.NewInstruction(ir.CallFunction{NumArguments: len(args)}, inputs, []ir.Variable{out}, nil, nil))
	return true
}

// callMethodGenerator only fires against a receiver statically tagged
// with a group (currently only the env.NewDefault library tables,
// loaded via builtinGenerator), since that's the only source of
// reliable per-method signatures in this environment model.
type callMethodGenerator struct{}

func (callMethodGenerator) Name() string               { return "CallMethodGenerator" }
func (callMethodGenerator) RequiredContext() ir.Context { return 0 }
func (callMethodGenerator) IsValueGenerator() bool     { return false }
func (callMethodGenerator) IsRecursive() bool          { return false }
func (g callMethodGenerator) Generate(b *Builder) bool {
	receiver, ok := b.RandomVariable()
	if !ok {
		return false
	}
	t := b.TypeOf(receiver)
	if t.Ext == nil || t.Ext.Group == "" {
		return false
	}
	group, ok := b.Environment.Group(t.Ext.Group)
	if !ok || len(group.Methods) == 0 {
		return false
	}
	names := make([]string, 0, len(group.Methods))
	for name := range group.Methods {
		names = append(names, name)
	}
	sort.Strings(names)
	name := names[b.Rand.Intn(len(names))]
	args := b.argumentsForSignature(group.Methods[name])
	out := b.NewVar()
	inputs := append([]ir.Variable{receiver}, args...)
	b.Emit(ir.NewInstruction(ir.CallMethod{MethodName: name, NumArguments: len(args)}, inputs, []ir.Variable{out}, nil, nil))
	return true
}
