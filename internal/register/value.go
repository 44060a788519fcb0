package register

import (
	"fmt"
	"math"
	"math/big"
)

// Value is a decoded register value together with the Format it was decoded
// under, so it can re-encode itself and render its canonical presentation
// without the caller repeating the format (original_source register/src/value.rs).
type Value struct {
	format Format

	u64  uint64
	i64  int64
	u128 *big.Int
	i128 *big.Int
	f32  float32
	f64  float64
	str  string
}

// Format returns the format this value was produced under.
func (v Value) Format() Format { return v.format }

// AsDecimalString renders the value in plain decimal (or literal text for
// Ascii), matching Value::as_str in the source.
func (v Value) AsDecimalString() string {
	switch v.format.Kind {
	case U8, U16:
		return fmt.Sprintf("%d", v.u64)
	case U32:
		return fmt.Sprintf("%d", v.u64)
	case U64:
		return fmt.Sprintf("%d", v.u64)
	case U128:
		return v.u128.String()
	case I8, I16, I32, I64:
		return fmt.Sprintf("%d", v.i64)
	case I128:
		return v.i128.String()
	case F32:
		return trimFloat(float64(v.f32))
	case F64:
		return trimFloat(v.f64)
	case Ascii:
		return v.str
	default:
		return ""
	}
}

func trimFloat(f float64) string {
	return fmt.Sprintf("%g", f)
}

// AsHexString renders the value as "0x" followed by its zero-padded,
// uppercase big-endian hex digits — for numeric kinds, width bytes of hex;
// for Ascii, the raw bytes hex-encoded one octet at a time (Value::as_hex_str
// in the source).
func (v Value) AsHexString() string {
	width := valueByteWidth(v.format.Kind)
	switch v.format.Kind {
	case U8, U16, U32, U64:
		return fmt.Sprintf("0x%0*X", width*2, v.u64)
	case U128:
		return fmt.Sprintf("0x%0*X", width*2, v.u128)
	case I8, I16, I32, I64:
		return fmt.Sprintf("0x%0*X", width*2, uint64(v.i64)&mask(width))
	case I128:
		return fmt.Sprintf("0x%0*X", width*2, twosComplement(v.i128, width))
	case F32:
		return fmt.Sprintf("0x%0*X", width*2, math.Float32bits(v.f32))
	case F64:
		return fmt.Sprintf("0x%0*X", width*2, math.Float64bits(v.f64))
	case Ascii:
		out := "0x"
		for _, b := range []byte(v.str) {
			out += fmt.Sprintf("%02X", b)
		}
		return out
	default:
		return ""
	}
}

// valueBits returns the actual numeric width of kind in bits, independent of
// the register-packed wire width (U8/I8/U16/I16 all occupy one 16-bit
// register, but represent 8- or 16-bit values).
func valueBits(kind Kind) int {
	return valueByteWidth(kind) * 8
}

func valueByteWidth(kind Kind) int {
	switch kind {
	case U8, I8:
		return 1
	case U16, I16:
		return 2
	case U32, I32, F32:
		return 4
	case U64, I64, F64:
		return 8
	case U128, I128:
		return 16
	default:
		return 0
	}
}

func mask(byteWidth int) uint64 {
	if byteWidth >= 8 {
		return ^uint64(0)
	}
	return (uint64(1) << (byteWidth * 8)) - 1
}

func twosComplement(v *big.Int, byteWidth int) *big.Int {
	if v.Sign() >= 0 {
		return v
	}
	mod := new(big.Int).Lsh(big.NewInt(1), uint(byteWidth*8))
	return new(big.Int).Add(mod, v)
}
