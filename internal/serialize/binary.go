// Package serialize implements the binary tagged-instruction-stream
// encoding for ir.Code (§6's "serialized program format") plus a
// participle-based human-readable disassembly grammar for corpus
// inspection tooling.
package serialize

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"luafuzz/internal/fuzzerr"
	"luafuzz/internal/ir"
)

// opTag identifies an operation's concrete Go type in the wire format.
// Values are stable once assigned; reordering would break previously
// serialized corpus files.
type opTag uint8

const (
	tagLoadNumber opTag = iota + 1
	tagLoadString
	tagLoadBoolean
	tagLoadNil
	tagLoadBuiltin
	tagLoadPair
	tagUnary
	tagBinary
	tagCompare
	tagUpdate
	tagReassign
	tagBeginTable
	tagEndTable
	tagTableAddProperty
	tagTableAddElement
	tagBeginTableMethod
	tagEndTableMethod
	tagCreateArray
	tagGetProperty
	tagSetProperty
	tagUpdateProperty
	tagDeleteProperty
	tagGetElement
	tagSetElement
	tagUpdateElement
	tagDeleteElement
	tagBeginIf
	tagBeginElse
	tagEndIf
	tagBeginWhileLoopHeader
	tagBeginWhileLoopBody
	tagEndWhileLoop
	tagBeginForLoopInitializer
	tagBeginForLoopCondition
	tagBeginForLoopAfterthought
	tagBeginForLoopBody
	tagEndForLoop
	tagBeginForInLoop
	tagEndForInLoop
	tagBeginRepeatLoop
	tagEndRepeatLoop
	tagLoopBreak
	tagLabel
	tagGoto
	tagBeginFunction
	tagEndFunction
	tagReturn
	tagCallFunction
	tagCallMethod
	tagNop
)

// Encode writes code to w in the tagged-instruction-stream format: a
// uint32 instruction count, followed by each instruction's operation
// tag, arities, inouts, optional literal index, and operation-specific
// payload.
//
// No operation-cache dedup (§6's "optional operation cache") is
// implemented: corpus files here are small enough (single Lua
// programs, not whole-binary traces) that the savings wouldn't be
// worth the added decode-side state tracking.
func Encode(w io.Writer, code ir.Code) error {
	if err := writeUint32(w, uint32(len(code))); err != nil {
		return err
	}
	for _, instr := range code {
		if err := encodeInstruction(w, instr); err != nil {
			return err
		}
	}
	return nil
}

// ToBytes is a convenience wrapper around Encode for callers that want
// the whole stream in memory (e.g. corpus file writes).
func ToBytes(code ir.Code) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, code); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeInstruction(w io.Writer, instr ir.Instruction) error {
	tag, err := tagForOp(instr.Op)
	if err != nil {
		return err
	}
	if err := writeUint8(w, uint8(tag)); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(instr.NumInputs)); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(instr.NumOutputs)); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(instr.NumInnerOutputs)); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(len(instr.Inouts))); err != nil {
		return err
	}
	for _, v := range instr.Inouts {
		if err := encodeVariable(w, v); err != nil {
			return err
		}
	}
	if instr.Index != nil {
		if err := writeUint8(w, 1); err != nil {
			return err
		}
		if err := writeInt64(w, *instr.Index); err != nil {
			return err
		}
	} else {
		if err := writeUint8(w, 0); err != nil {
			return err
		}
	}
	return encodePayload(w, instr.Op)
}

func encodeVariable(w io.Writer, v ir.Variable) error {
	flags := uint8(0)
	if v.IsGlobal() {
		flags = 1
	}
	if v.ID() > ir.MaxVariableNumber {
		return fuzzerr.New(fuzzerr.CodeVariableOverflow, fmt.Sprintf("variable id %d exceeds MaxVariableNumber", v.ID()))
	}
	if err := writeUint8(w, flags); err != nil {
		return err
	}
	return writeUint32(w, v.ID())
}

func writeUint8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeInt64(w io.Writer, v int64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	_, err := w.Write(buf[:])
	return err
}

func writeString(w io.Writer, s string) error {
	if err := writeUint32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func writeBool(w io.Writer, b bool) error {
	if b {
		return writeUint8(w, 1)
	}
	return writeUint8(w, 0)
}
