package lift

import (
	"fmt"
	"strconv"
	"strings"

	"luafuzz/internal/ir"
)

// step lifts the single instruction at code[i].
func (l *Lifter) step(code ir.Code, i int) {
	instr := code[i]
	switch op := instr.Op.(type) {

	case ir.LoadNumber:
		l.setResult(instr.Outputs()[0], formatNumber(op.Value), true)
	case ir.LoadString:
		l.setResult(instr.Outputs()[0], strconv.Quote(op.Value), true)
	case ir.LoadBoolean:
		l.setResult(instr.Outputs()[0], strconv.FormatBool(op.Value), true)
	case ir.LoadNil:
		l.setResult(instr.Outputs()[0], "nil", true)
	case ir.LoadBuiltin:
		l.setResult(instr.Outputs()[0], op.Name_, true)
	case ir.LoadPair:
		outs := instr.Outputs()
		l.setResult(outs[0], formatLiteral(op.Key), true)
		l.setResult(outs[1], formatLiteral(op.Value), true)

	case ir.Unary:
		x := l.expr(instr.Inputs()[0])
		sym := op.Op
		if sym == "not" {
			l.setResult(instr.Outputs()[0], fmt.Sprintf("not %s", x), true)
		} else {
			l.setResult(instr.Outputs()[0], fmt.Sprintf("(%s%s)", sym, x), true)
		}
	case ir.Binary:
		a, b := l.expr(instr.Inputs()[0]), l.expr(instr.Inputs()[1])
		l.setResult(instr.Outputs()[0], fmt.Sprintf("(%s %s %s)", a, op.Op, b), true)
	case ir.Compare:
		a, b := l.expr(instr.Inputs()[0]), l.expr(instr.Inputs()[1])
		l.setResult(instr.Outputs()[0], fmt.Sprintf("(%s %s %s)", a, op.Op, b), true)
	case ir.Update:
		target := instr.Inputs()[0]
		rhs := l.expr(instr.Inputs()[1])
		name := l.exprTarget(target)
		l.writeLine("%s = %s %s %s", name, name, op.Op, rhs)
	case ir.Reassign:
		target := instr.Inputs()[0]
		value := l.expr(instr.Inputs()[1])
		l.writeLine("%s = %s", l.exprTarget(target), value)

	case ir.BeginTable:
		name := l.localName(instr.Outputs()[0].ID())
		l.writeLine("local %s = {}", name)
		l.tableFrames = append(l.tableFrames, &tableFrame{name: name})
	case ir.EndTable:
		l.tableFrames = l.tableFrames[:len(l.tableFrames)-1]
	case ir.TableAddProperty:
		tbl := l.currentTable()
		value := l.expr(instr.Inputs()[1])
		l.writeLine("%s.%s = %s", tbl, op.Name_, value)
	case ir.TableAddElement:
		tbl := l.currentTable()
		value := l.expr(instr.Inputs()[1])
		l.writeLine("table.insert(%s, %s)", tbl, value)
	case ir.BeginTableMethod:
		tbl := l.currentTable()
		params := l.paramNames(instr.InnerOutputs())
		l.writeLine("function %s.%s(%s)", tbl, op.Name_, params)
		l.indent++
	case ir.EndTableMethod:
		l.indent--
		l.writeLine("end")

	case ir.CreateArray:
		parts := make([]string, len(instr.Inputs()))
		for idx, v := range instr.Inputs() {
			parts[idx] = l.expr(v)
		}
		l.setResult(instr.Outputs()[0], "{"+strings.Join(parts, ", ")+"}", true)

	case ir.GetProperty:
		obj := l.expr(instr.Inputs()[0])
		l.setResult(instr.Outputs()[0], fmt.Sprintf("%s.%s", obj, op.Name_), true)
	case ir.SetProperty:
		obj := l.expr(instr.Inputs()[0])
		value := l.expr(instr.Inputs()[1])
		l.writeLine("%s.%s = %s", obj, op.Name_, value)
	case ir.UpdateProperty:
		obj := l.expr(instr.Inputs()[0])
		value := l.expr(instr.Inputs()[1])
		l.writeLine("%s.%s = %s.%s %s %s", obj, op.Name_, obj, op.Name_, op.Op, value)
	case ir.DeleteProperty:
		obj := l.expr(instr.Inputs()[0])
		l.writeLine("%s.%s = nil", obj, op.Name_)
	case ir.GetElement:
		obj := l.expr(instr.Inputs()[0])
		key := l.expr(instr.Inputs()[1])
		l.setResult(instr.Outputs()[0], fmt.Sprintf("%s[%s]", obj, key), true)
	case ir.SetElement:
		obj := l.expr(instr.Inputs()[0])
		key := l.expr(instr.Inputs()[1])
		value := l.expr(instr.Inputs()[2])
		l.writeLine("%s[%s] = %s", obj, key, value)
	case ir.UpdateElement:
		obj := l.expr(instr.Inputs()[0])
		key := l.expr(instr.Inputs()[1])
		value := l.expr(instr.Inputs()[2])
		l.writeLine("%s[%s] = %s[%s] %s %s", obj, key, obj, key, op.Op, value)
	case ir.DeleteElement:
		obj := l.expr(instr.Inputs()[0])
		key := l.expr(instr.Inputs()[1])
		l.writeLine("%s[%s] = nil", obj, key)

	case ir.BeginIf:
		cond := l.expr(instr.Inputs()[0])
		l.writeLine("if %s then", cond)
		l.indent++
	case ir.BeginElse:
		l.indent--
		l.writeLine("else")
		l.indent++
	case ir.EndIf:
		l.indent--
		l.writeLine("end")

	case ir.BeginWhileLoopHeader:
		l.writeLine("while true do")
		l.indent++
	case ir.BeginWhileLoopBody:
		cond := l.expr(instr.Inputs()[0])
		l.writeLine("if not (%s) then break end", cond)
	case ir.EndWhileLoop:
		l.indent--
		l.writeLine("end")

	case ir.BeginForLoopInitializer:
		l.writeLine("do")
		l.indent++
		l.forFrames = append(l.forFrames, &forLoopFrame{})
	case ir.BeginForLoopCondition:
		l.flushPending()
		l.writeLine("while true do")
		l.indent++
		cond := l.expr(instr.Inputs()[0])
		l.writeLine("if not (%s) then break end", cond)
	case ir.BeginForLoopAfterthought:
		l.flushPending()
		frame := l.forFrames[len(l.forFrames)-1]
		frame.afterthought = &strings.Builder{}
		l.sink = frame.afterthought
	case ir.BeginForLoopBody:
		l.sink = nil
	case ir.EndForLoop:
		l.flushPending()
		frame := l.forFrames[len(l.forFrames)-1]
		l.forFrames = l.forFrames[:len(l.forFrames)-1]
		if frame.afterthought != nil {
			l.out.WriteString(frame.afterthought.String())
		}
		l.indent--
		l.writeLine("end")
		l.indent--
		l.writeLine("end")

	case ir.BeginForInLoop:
		iterable := l.expr(instr.Inputs()[0])
		params := l.paramNames(instr.InnerOutputs())
		l.writeLine("for %s in pairs(%s) do", params, iterable)
		l.indent++
	case ir.EndForInLoop:
		l.indent--
		l.writeLine("end")

	case ir.BeginRepeatLoop:
		counter := "_"
		if op.ExposeCounter {
			counter = l.localName(instr.InnerOutputs()[0].ID())
		}
		l.writeLine("for %s = 1, %d do", counter, op.Iterations)
		l.indent++
	case ir.EndRepeatLoop:
		l.indent--
		l.writeLine("end")

	case ir.LoopBreak:
		l.flushPending()
		l.writeLine("break")
	case ir.Label:
		// internal bookkeeping marker; no textual goto label is needed
		// unless a Goto later targets it (not modelled positionally here).
	case ir.Goto:
		l.flushPending()
		l.writeLine("goto continue")

	case ir.BeginFunction:
		name := l.localName(instr.Outputs()[0].ID())
		params := l.paramNames(instr.InnerOutputs())
		l.writeLine("local function %s(%s)", name, params)
		l.indent++
	case ir.EndFunction:
		l.indent--
		l.writeLine("end")
	case ir.Return:
		l.flushPending()
		if op.HasValue {
			l.writeLine("return %s", l.expr(instr.Inputs()[0]))
		} else {
			l.writeLine("return")
		}

	case ir.CallFunction:
		l.emitCall(instr, l.expr(instr.Inputs()[0]), "")
	case ir.CallMethod:
		obj := l.expr(instr.Inputs()[0])
		l.emitCall(instr, obj, op.MethodName)

	case ir.Nop:
		// no-op marker, nothing to lift.

	default:
		l.writeLine("-- unhandled operation %s", instr.Op.Name())
	}
}

func (l *Lifter) emitCall(instr ir.Instruction, receiver, method string) {
	args := make([]string, 0, len(instr.Inputs())-1)
	for _, v := range instr.Inputs()[1:] {
		args = append(args, l.expr(v))
	}
	var callText string
	if method != "" {
		callText = fmt.Sprintf("%s:%s(%s)", receiver, method, strings.Join(args, ", "))
	} else {
		callText = fmt.Sprintf("%s(%s)", receiver, strings.Join(args, ", "))
	}
	if outs := instr.Outputs(); len(outs) > 0 {
		l.setResult(outs[0], callText, false)
	} else {
		l.flushPending()
		l.writeLine("%s", callText)
	}
}

// exprTarget returns the assignable Lua name for an in-place mutation
// target (Reassign/Update write through it rather than reading it as a
// value), flushing anything pending against it first so ordering stays
// correct.
func (l *Lifter) exprTarget(v ir.Variable) string {
	if v.IsGlobal() {
		return l.globalName(v.ID())
	}
	delete(l.pending, v.ID())
	return l.localName(v.ID())
}

func (l *Lifter) currentTable() string {
	return l.tableFrames[len(l.tableFrames)-1].name
}

func (l *Lifter) paramNames(vars []ir.Variable) string {
	names := make([]string, len(vars))
	for i, v := range vars {
		names[i] = l.localName(v.ID())
	}
	return strings.Join(names, ", ")
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatLiteral(v any) string {
	switch t := v.(type) {
	case string:
		return strconv.Quote(t)
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return formatNumber(t)
	case int:
		return strconv.Itoa(t)
	case nil:
		return "nil"
	default:
		return fmt.Sprintf("%v", t)
	}
}
