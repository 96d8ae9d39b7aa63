package serialize

import (
	"fmt"
	"io"

	"luafuzz/internal/fuzzerr"
	"luafuzz/internal/ir"
)

func tagForOp(op ir.Operation) (opTag, error) {
	switch op.(type) {
	case ir.LoadNumber:
		return tagLoadNumber, nil
	case ir.LoadString:
		return tagLoadString, nil
	case ir.LoadBoolean:
		return tagLoadBoolean, nil
	case ir.LoadNil:
		return tagLoadNil, nil
	case ir.LoadBuiltin:
		return tagLoadBuiltin, nil
	case ir.LoadPair:
		return tagLoadPair, nil
	case ir.Unary:
		return tagUnary, nil
	case ir.Binary:
		return tagBinary, nil
	case ir.Compare:
		return tagCompare, nil
	case ir.Update:
		return tagUpdate, nil
	case ir.Reassign:
		return tagReassign, nil
	case ir.BeginTable:
		return tagBeginTable, nil
	case ir.EndTable:
		return tagEndTable, nil
	case ir.TableAddProperty:
		return tagTableAddProperty, nil
	case ir.TableAddElement:
		return tagTableAddElement, nil
	case ir.BeginTableMethod:
		return tagBeginTableMethod, nil
	case ir.EndTableMethod:
		return tagEndTableMethod, nil
	case ir.CreateArray:
		return tagCreateArray, nil
	case ir.GetProperty:
		return tagGetProperty, nil
	case ir.SetProperty:
		return tagSetProperty, nil
	case ir.UpdateProperty:
		return tagUpdateProperty, nil
	case ir.DeleteProperty:
		return tagDeleteProperty, nil
	case ir.GetElement:
		return tagGetElement, nil
	case ir.SetElement:
		return tagSetElement, nil
	case ir.UpdateElement:
		return tagUpdateElement, nil
	case ir.DeleteElement:
		return tagDeleteElement, nil
	case ir.BeginIf:
		return tagBeginIf, nil
	case ir.BeginElse:
		return tagBeginElse, nil
	case ir.EndIf:
		return tagEndIf, nil
	case ir.BeginWhileLoopHeader:
		return tagBeginWhileLoopHeader, nil
	case ir.BeginWhileLoopBody:
		return tagBeginWhileLoopBody, nil
	case ir.EndWhileLoop:
		return tagEndWhileLoop, nil
	case ir.BeginForLoopInitializer:
		return tagBeginForLoopInitializer, nil
	case ir.BeginForLoopCondition:
		return tagBeginForLoopCondition, nil
	case ir.BeginForLoopAfterthought:
		return tagBeginForLoopAfterthought, nil
	case ir.BeginForLoopBody:
		return tagBeginForLoopBody, nil
	case ir.EndForLoop:
		return tagEndForLoop, nil
	case ir.BeginForInLoop:
		return tagBeginForInLoop, nil
	case ir.EndForInLoop:
		return tagEndForInLoop, nil
	case ir.BeginRepeatLoop:
		return tagBeginRepeatLoop, nil
	case ir.EndRepeatLoop:
		return tagEndRepeatLoop, nil
	case ir.LoopBreak:
		return tagLoopBreak, nil
	case ir.Label:
		return tagLabel, nil
	case ir.Goto:
		return tagGoto, nil
	case ir.BeginFunction:
		return tagBeginFunction, nil
	case ir.EndFunction:
		return tagEndFunction, nil
	case ir.Return:
		return tagReturn, nil
	case ir.CallFunction:
		return tagCallFunction, nil
	case ir.CallMethod:
		return tagCallMethod, nil
	case ir.Nop:
		return tagNop, nil
	default:
		return 0, fuzzerr.New(fuzzerr.CodeInvalidProgram, fmt.Sprintf("no wire tag for operation %s", op.Name()))
	}
}

// encodePayload writes the operation-specific parameters (property
// name, operator, method name, parameter descriptor, etc.) beyond the
// generic inouts/arity framing every instruction already carries.
func encodePayload(w io.Writer, op ir.Operation) error {
	switch o := op.(type) {
	case ir.LoadNumber:
		return writeFloat64(w, o.Value)
	case ir.LoadString:
		return writeString(w, o.Value)
	case ir.LoadBoolean:
		return writeBool(w, o.Value)
	case ir.LoadBuiltin:
		return writeString(w, o.Name_)
	case ir.LoadPair:
		return writeLiteralPair(w, o.Key, o.Value)
	case ir.Unary:
		return writeString(w, o.Op)
	case ir.Binary:
		return writeString(w, o.Op)
	case ir.Compare:
		return writeString(w, o.Op)
	case ir.Update:
		return writeString(w, o.Op)
	case ir.TableAddProperty:
		return writeString(w, o.Name_)
	case ir.BeginTableMethod:
		if err := writeString(w, o.Name_); err != nil {
			return err
		}
		return writeUint32(w, uint32(o.NumParameters))
	case ir.CreateArray:
		return writeUint32(w, uint32(o.NumInputs_))
	case ir.GetProperty:
		return writeString(w, o.Name_)
	case ir.SetProperty:
		return writeString(w, o.Name_)
	case ir.UpdateProperty:
		if err := writeString(w, o.Name_); err != nil {
			return err
		}
		return writeString(w, o.Op)
	case ir.DeleteProperty:
		return writeString(w, o.Name_)
	case ir.UpdateElement:
		return writeString(w, o.Op)
	case ir.BeginRepeatLoop:
		if err := writeInt64(w, o.Iterations); err != nil {
			return err
		}
		return writeBool(w, o.ExposeCounter)
	case ir.BeginFunction:
		return writeUint32(w, uint32(o.NumParameters))
	case ir.Return:
		return writeBool(w, o.HasValue)
	case ir.CallFunction:
		return writeUint32(w, uint32(o.NumArguments))
	case ir.CallMethod:
		if err := writeString(w, o.MethodName); err != nil {
			return err
		}
		return writeUint32(w, uint32(o.NumArguments))
	default:
		// LoadNil, BeginTable, EndTable, TableAddElement, EndTableMethod,
		// GetElement, SetElement, DeleteElement, BeginIf, BeginElse, EndIf,
		// BeginWhileLoopHeader/Body, EndWhileLoop, BeginForLoop*, EndForLoop,
		// BeginForInLoop, EndForInLoop, EndRepeatLoop, LoopBreak, Label,
		// Goto, EndFunction, Nop carry no payload beyond inouts/arity.
		return nil
	}
}

func decodePayload(r io.Reader, tag opTag) (ir.Operation, error) {
	switch tag {
	case tagLoadNumber:
		v, err := readFloat64(r)
		return ir.LoadNumber{Value: v}, err
	case tagLoadString:
		v, err := readString(r)
		return ir.LoadString{Value: v}, err
	case tagLoadBoolean:
		v, err := readBool(r)
		return ir.LoadBoolean{Value: v}, err
	case tagLoadNil:
		return ir.LoadNil{}, nil
	case tagLoadBuiltin:
		v, err := readString(r)
		return ir.LoadBuiltin{Name_: v}, err
	case tagLoadPair:
		k, v, err := readLiteralPair(r)
		return ir.LoadPair{Key: k, Value: v}, err
	case tagUnary:
		v, err := readString(r)
		return ir.Unary{Op: v}, err
	case tagBinary:
		v, err := readString(r)
		return ir.Binary{Op: v}, err
	case tagCompare:
		v, err := readString(r)
		return ir.Compare{Op: v}, err
	case tagUpdate:
		v, err := readString(r)
		return ir.Update{Op: v}, err
	case tagReassign:
		return ir.Reassign{}, nil
	case tagBeginTable:
		return ir.BeginTable{}, nil
	case tagEndTable:
		return ir.EndTable{}, nil
	case tagTableAddProperty:
		v, err := readString(r)
		return ir.TableAddProperty{Name_: v}, err
	case tagTableAddElement:
		return ir.TableAddElement{}, nil
	case tagBeginTableMethod:
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		n, err := readUint32(r)
		return ir.BeginTableMethod{Name_: name, NumParameters: int(n)}, err
	case tagEndTableMethod:
		return ir.EndTableMethod{}, nil
	case tagCreateArray:
		n, err := readUint32(r)
		return ir.CreateArray{NumInputs_: int(n)}, err
	case tagGetProperty:
		v, err := readString(r)
		return ir.GetProperty{Name_: v}, err
	case tagSetProperty:
		v, err := readString(r)
		return ir.SetProperty{Name_: v}, err
	case tagUpdateProperty:
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		op, err := readString(r)
		return ir.UpdateProperty{Name_: name, Op: op}, err
	case tagDeleteProperty:
		v, err := readString(r)
		return ir.DeleteProperty{Name_: v}, err
	case tagGetElement:
		return ir.GetElement{}, nil
	case tagSetElement:
		return ir.SetElement{}, nil
	case tagUpdateElement:
		v, err := readString(r)
		return ir.UpdateElement{Op: v}, err
	case tagDeleteElement:
		return ir.DeleteElement{}, nil
	case tagBeginIf:
		return ir.BeginIf{}, nil
	case tagBeginElse:
		return ir.BeginElse{}, nil
	case tagEndIf:
		return ir.EndIf{}, nil
	case tagBeginWhileLoopHeader:
		return ir.BeginWhileLoopHeader{}, nil
	case tagBeginWhileLoopBody:
		return ir.BeginWhileLoopBody{}, nil
	case tagEndWhileLoop:
		return ir.EndWhileLoop{}, nil
	case tagBeginForLoopInitializer:
		return ir.BeginForLoopInitializer{}, nil
	case tagBeginForLoopCondition:
		return ir.BeginForLoopCondition{}, nil
	case tagBeginForLoopAfterthought:
		return ir.BeginForLoopAfterthought{}, nil
	case tagBeginForLoopBody:
		return ir.BeginForLoopBody{}, nil
	case tagEndForLoop:
		return ir.EndForLoop{}, nil
	case tagBeginForInLoop:
		return ir.BeginForInLoop{}, nil
	case tagEndForInLoop:
		return ir.EndForInLoop{}, nil
	case tagBeginRepeatLoop:
		iterations, err := readInt64(r)
		if err != nil {
			return nil, err
		}
		expose, err := readBool(r)
		return ir.BeginRepeatLoop{Iterations: iterations, ExposeCounter: expose}, err
	case tagEndRepeatLoop:
		return ir.EndRepeatLoop{}, nil
	case tagLoopBreak:
		return ir.LoopBreak{}, nil
	case tagLabel:
		return ir.Label{}, nil
	case tagGoto:
		return ir.Goto{}, nil
	case tagBeginFunction:
		n, err := readUint32(r)
		return ir.BeginFunction{NumParameters: int(n)}, err
	case tagEndFunction:
		return ir.EndFunction{}, nil
	case tagReturn:
		v, err := readBool(r)
		return ir.Return{HasValue: v}, err
	case tagCallFunction:
		n, err := readUint32(r)
		return ir.CallFunction{NumArguments: int(n)}, err
	case tagCallMethod:
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		n, err := readUint32(r)
		return ir.CallMethod{MethodName: name, NumArguments: int(n)}, err
	case tagNop:
		return ir.Nop{}, nil
	default:
		return nil, fuzzerr.New(fuzzerr.CodeInvalidProgram, fmt.Sprintf("unknown operation tag %d", tag))
	}
}
