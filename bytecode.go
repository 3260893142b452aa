package saurus

import (
	"bytes"
	"encoding/binary"
	"io"
)

// imageMagic is the three-byte tag every image starts with, preceded
// by the ESC byte the host CLI uses to tell source from bytecode
// (spec.md §6): reading starts right after that leading 0x1b.
var imageMagic = [3]byte{'s', 'u', 'c'}

const imageVersion uint8 = 1

// LoadImage decodes a compiled image and returns its entry prototype
// wrapped in a variadic closure (arity -1, per §4.1's "wrap the top
// prototype in a variadic closure"). The header is magic + major/minor
// version bytes + a reserved 16-bit flags field; the body is a single
// recursively-encoded Prototype, laid out exactly as spec.md §6 documents:
// instructions, then constants, then upvalues, then nested prototypes,
// then the name, then line info.
func LoadImage(s *Thread, data []byte) (*Function, error) {
	r := bytes.NewReader(stripEscByte(data))

	var magic [3]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil || magic != imageMagic {
		return nil, ImageError{Reason: "bad magic"}
	}
	var major, minor uint8
	if err := binary.Read(r, binary.LittleEndian, &major); err != nil {
		return nil, ImageError{Reason: "truncated header"}
	}
	if err := binary.Read(r, binary.LittleEndian, &minor); err != nil {
		return nil, ImageError{Reason: "truncated header"}
	}
	if major != imageVersion {
		return nil, ImageError{Reason: "unsupported version"}
	}
	var flags uint16
	if err := binary.Read(r, binary.LittleEndian, &flags); err != nil {
		return nil, ImageError{Reason: "truncated header"}
	}

	proto, err := readPrototype(s, r)
	if err != nil {
		return nil, err
	}
	return newFunction(s, proto, -1, nil), nil
}

func readPrototype(s *Thread, r *bytes.Reader) (*Prototype, error) {
	proto := newPrototype(s, "")

	var numIns uint32
	if err := binary.Read(r, binary.LittleEndian, &numIns); err != nil {
		return nil, ImageError{Reason: "bad instruction count"}
	}
	proto.Instructions = make([]Instruction, numIns)
	for i := range proto.Instructions {
		var op, a uint8
		var b int16
		if err := binary.Read(r, binary.LittleEndian, &op); err != nil {
			return nil, ImageError{Reason: "truncated instruction"}
		}
		if err := binary.Read(r, binary.LittleEndian, &a); err != nil {
			return nil, ImageError{Reason: "truncated instruction"}
		}
		if err := binary.Read(r, binary.LittleEndian, &b); err != nil {
			return nil, ImageError{Reason: "truncated instruction"}
		}
		proto.Instructions[i] = Instruction{Op: Opcode(op), A: a, B: b}
	}

	var numConst uint32
	if err := binary.Read(r, binary.LittleEndian, &numConst); err != nil {
		return nil, ImageError{Reason: "bad constant count"}
	}
	proto.Constants = make([]Value, numConst)
	for i := range proto.Constants {
		val, err := readConstant(s, r)
		if err != nil {
			return nil, err
		}
		proto.Constants[i] = val
	}

	var numUp uint32
	if err := binary.Read(r, binary.LittleEndian, &numUp); err != nil {
		return nil, ImageError{Reason: "bad upvalue count"}
	}
	proto.Upvalues = make([]UpvalueDesc, numUp)
	for i := range proto.Upvalues {
		var level, slot uint16
		if err := binary.Read(r, binary.LittleEndian, &level); err != nil {
			return nil, ImageError{Reason: "truncated upvalue"}
		}
		if err := binary.Read(r, binary.LittleEndian, &slot); err != nil {
			return nil, ImageError{Reason: "truncated upvalue"}
		}
		proto.Upvalues[i] = UpvalueDesc{Level: level, Slot: slot}
	}

	var numNested uint32
	if err := binary.Read(r, binary.LittleEndian, &numNested); err != nil {
		return nil, ImageError{Reason: "bad nested count"}
	}
	proto.Nested = make([]*Prototype, numNested)
	for i := range proto.Nested {
		nested, err := readPrototype(s, r)
		if err != nil {
			return nil, err
		}
		proto.Nested[i] = nested
	}

	name, err := readString(r)
	if err != nil {
		return nil, ImageError{Reason: "bad prototype name"}
	}
	proto.Name = name

	var numLines uint32
	if err := binary.Read(r, binary.LittleEndian, &numLines); err != nil {
		return nil, ImageError{Reason: "bad line count"}
	}
	proto.Lines = make([]int, numLines)
	for i := range proto.Lines {
		var line uint32
		if err := binary.Read(r, binary.LittleEndian, &line); err != nil {
			return nil, ImageError{Reason: "truncated line info"}
		}
		proto.Lines[i] = int(line)
	}

	return proto, nil
}

const (
	constTagNil uint8 = iota
	constTagFalse
	constTagTrue
	constTagNumber
	constTagString
)

func readConstant(s *Thread, r *bytes.Reader) (Value, error) {
	var tag uint8
	if err := binary.Read(r, binary.LittleEndian, &tag); err != nil {
		return Value{}, ImageError{Reason: "truncated constant"}
	}
	switch tag {
	case constTagNil:
		return Nil(), nil
	case constTagFalse:
		return Bool(false), nil
	case constTagTrue:
		return Bool(true), nil
	case constTagNumber:
		var n float64
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return Value{}, ImageError{Reason: "truncated number constant"}
		}
		return Number(n), nil
	case constTagString:
		str, err := readString(r)
		if err != nil {
			return Value{}, ImageError{Reason: "truncated string constant"}
		}
		return s.StringValue(str), nil
	default:
		return Value{}, ImageError{Reason: "unknown constant tag"}
	}
}

func readString(r *bytes.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// IsImage reports whether data looks like a compiled image (leading
// ESC byte then the "suc" magic), the same test the CLI uses to
// decide between running bytecode and refusing a source file it
// can't compile (spec.md §6).
func IsImage(data []byte) bool {
	return len(data) >= 4 && data[0] == 0x1b &&
		data[1] == imageMagic[0] && data[2] == imageMagic[1] && data[3] == imageMagic[2]
}

// stripEscByte drops the leading 0x1b the CLI uses for image
// detection before handing the rest to LoadImage.
func stripEscByte(data []byte) []byte {
	if len(data) > 0 && data[0] == 0x1b {
		return data[1:]
	}
	return data
}
