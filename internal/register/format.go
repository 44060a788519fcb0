// Package register implements the register codec (spec.md §C5): encoding and
// decoding of typed values to and from the []uint16 words that travel over
// the wire, plus their canonical decimal and hexadecimal presentation.
package register

import "fmt"

// Endian selects the byte order used to pack a numeric format's registers.
type Endian uint8

const (
	BigEndian Endian = iota
	LittleEndian
)

// Alignment pads or trims an Ascii value's byte representation to its
// configured Width.
type Alignment uint8

const (
	AlignLeft Alignment = iota
	AlignRight
)

// Kind names one of the wire formats a register range can carry.
type Kind uint8

const (
	Ascii Kind = iota
	U8
	U16
	U32
	U64
	U128
	I8
	I16
	I32
	I64
	I128
	F32
	F64
)

// Format fully describes how to encode/decode one value. Endian is
// meaningful for every numeric Kind; Width and Align are meaningful only for
// Ascii, mirroring the source's Format::Ascii((Alignment, Width)) variant
// carrying data the numeric variants don't need.
type Format struct {
	Kind   Kind
	Endian Endian
	Width  int
	Align  Alignment
}

// NewAscii builds an Ascii format of the given register width and alignment.
func NewAscii(width int, align Alignment) Format {
	return Format{Kind: Ascii, Width: width, Align: align}
}

// NewNumeric builds a numeric format of kind under the given byte order.
func NewNumeric(kind Kind, endian Endian) Format {
	return Format{Kind: kind, Endian: endian}
}

// RegisterWidth returns the format's width in 16-bit Modbus registers.
func (f Format) RegisterWidth() int {
	switch f.Kind {
	case Ascii:
		return f.Width
	case U8, U16, I8, I16:
		return 1
	case U32, I32, F32:
		return 2
	case U64, I64, F64:
		return 4
	case U128, I128:
		return 8
	default:
		return 0
	}
}

// ByteLength returns the format's width in bytes.
func (f Format) ByteLength() int {
	return f.RegisterWidth() * 2
}

// ParseKind maps a kind's name (as written in configuration or on a CLI
// flag) back to its Kind constant, the inverse of Kind.String.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "ascii":
		return Ascii, nil
	case "u8":
		return U8, nil
	case "u16":
		return U16, nil
	case "u32":
		return U32, nil
	case "u64":
		return U64, nil
	case "u128":
		return U128, nil
	case "i8":
		return I8, nil
	case "i16":
		return I16, nil
	case "i32":
		return I32, nil
	case "i64":
		return I64, nil
	case "i128":
		return I128, nil
	case "f32":
		return F32, nil
	case "f64":
		return F64, nil
	default:
		return 0, fmt.Errorf("register: unknown kind %q", name)
	}
}

func (k Kind) String() string {
	switch k {
	case Ascii:
		return "ascii"
	case U8:
		return "u8"
	case U16:
		return "u16"
	case U32:
		return "u32"
	case U64:
		return "u64"
	case U128:
		return "u128"
	case I8:
		return "i8"
	case I16:
		return "i16"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case I128:
		return "i128"
	case F32:
		return "f32"
	case F64:
		return "f64"
	default:
		return "unknown"
	}
}
