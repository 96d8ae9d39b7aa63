package serialize

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"luafuzz/internal/fuzzerr"
	"luafuzz/internal/ir"
)

// Decode reads a tagged-instruction-stream produced by Encode back
// into ir.Code. It does not itself call ir.NewProgram/StaticValidate —
// callers that need a validated Program should pass the result through
// the builder, same as any other freshly constructed instruction
// sequence.
func Decode(r io.Reader) (ir.Code, error) {
	count, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	code := make(ir.Code, 0, count)
	for i := uint32(0); i < count; i++ {
		instr, err := decodeInstruction(r)
		if err != nil {
			return nil, fuzzerr.Wrap(fuzzerr.CodeInvalidProgram, err).With("instruction", int(i))
		}
		code = append(code, instr)
	}
	return code, nil
}

// FromBytes is Decode over an in-memory buffer.
func FromBytes(data []byte) (ir.Code, error) {
	return Decode(bytes.NewReader(data))
}

func decodeInstruction(r io.Reader) (ir.Instruction, error) {
	tagByte, err := readUint8(r)
	if err != nil {
		return ir.Instruction{}, err
	}
	tag := opTag(tagByte)

	numInputs, err := readUint32(r)
	if err != nil {
		return ir.Instruction{}, err
	}
	numOutputs, err := readUint32(r)
	if err != nil {
		return ir.Instruction{}, err
	}
	numInnerOutputs, err := readUint32(r)
	if err != nil {
		return ir.Instruction{}, err
	}
	total, err := readUint32(r)
	if err != nil {
		return ir.Instruction{}, err
	}
	inouts := make([]ir.Variable, total)
	for i := range inouts {
		v, err := decodeVariable(r)
		if err != nil {
			return ir.Instruction{}, err
		}
		inouts[i] = v
	}

	hasIndex, err := readUint8(r)
	if err != nil {
		return ir.Instruction{}, err
	}
	var index *int64
	if hasIndex == 1 {
		v, err := readInt64(r)
		if err != nil {
			return ir.Instruction{}, err
		}
		index = &v
	}

	op, err := decodePayload(r, tag)
	if err != nil {
		return ir.Instruction{}, err
	}

	inputs := inouts[:numInputs]
	outputs := inouts[numInputs : numInputs+numOutputs]
	innerOutputs := inouts[numInputs+numOutputs : numInputs+numOutputs+numInnerOutputs]
	return ir.NewInstruction(op, inputs, outputs, innerOutputs, index), nil
}

func decodeVariable(r io.Reader) (ir.Variable, error) {
	flags, err := readUint8(r)
	if err != nil {
		return ir.Variable{}, err
	}
	id, err := readUint32(r)
	if err != nil {
		return ir.Variable{}, err
	}
	if flags&1 != 0 {
		return ir.NewGlobalVariable(id), nil
	}
	return ir.NewVariable(id), nil
}

func readUint8(r io.Reader) (uint8, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func readInt64(r io.Reader) (int64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(buf[:])), nil
}

func readFloat64(r io.Reader) (float64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(buf[:])), nil
}

func writeFloat64(w io.Writer, v float64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	_, err := w.Write(buf[:])
	return err
}

func readBool(r io.Reader) (bool, error) {
	v, err := readUint8(r)
	return v == 1, err
}

func readString(r io.Reader) (string, error) {
	n, err := readUint32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// literalKind tags what concrete type a LoadPair's any-typed Key/Value
// holds, since the wire format has no reflection to fall back on.
type literalKind uint8

const (
	literalNil literalKind = iota
	literalString
	literalBool
	literalFloat64
	literalInt
)

func writeLiteralPair(w io.Writer, key, value any) error {
	if err := writeLiteral(w, key); err != nil {
		return err
	}
	return writeLiteral(w, value)
}

func writeLiteral(w io.Writer, v any) error {
	switch x := v.(type) {
	case nil:
		return writeUint8(w, uint8(literalNil))
	case string:
		if err := writeUint8(w, uint8(literalString)); err != nil {
			return err
		}
		return writeString(w, x)
	case bool:
		if err := writeUint8(w, uint8(literalBool)); err != nil {
			return err
		}
		return writeBool(w, x)
	case float64:
		if err := writeUint8(w, uint8(literalFloat64)); err != nil {
			return err
		}
		return writeFloat64(w, x)
	case int:
		if err := writeUint8(w, uint8(literalInt)); err != nil {
			return err
		}
		return writeInt64(w, int64(x))
	default:
		return fuzzerr.New(fuzzerr.CodeInvalidProgram, "unsupported LoadPair literal type")
	}
}

func readLiteralPair(r io.Reader) (key, value any, err error) {
	key, err = readLiteral(r)
	if err != nil {
		return nil, nil, err
	}
	value, err = readLiteral(r)
	return key, value, err
}

func readLiteral(r io.Reader) (any, error) {
	kindByte, err := readUint8(r)
	if err != nil {
		return nil, err
	}
	switch literalKind(kindByte) {
	case literalNil:
		return nil, nil
	case literalString:
		return readString(r)
	case literalBool:
		return readBool(r)
	case literalFloat64:
		return readFloat64(r)
	case literalInt:
		v, err := readInt64(r)
		return int(v), err
	default:
		return nil, fuzzerr.New(fuzzerr.CodeInvalidProgram, "unknown LoadPair literal kind")
	}
}
