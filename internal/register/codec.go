package register

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Decode interprets regs as one value of format, swapping byte order per
// format.Endian. It returns an error if regs is the wrong length or, for
// Ascii, is not valid UTF-8 — the source has no lossy fallback and neither
// does this port (the Open Question on non-UTF-8 register windows is
// resolved as a hard failure). Ascii's padding bytes are returned as part of
// the string, matching the source's plain String::from_utf8 with no
// trimming.
func Decode(format Format, regs []uint16) (Value, error) {
	want := format.RegisterWidth()
	if len(regs) != want {
		return Value{}, fmt.Errorf("register: decode %s: want %d registers, got %d", format.Kind, want, len(regs))
	}

	raw := toBytes(regs, format.Endian)

	switch format.Kind {
	case Ascii:
		if !utf8.Valid(raw) {
			return Value{}, fmt.Errorf("register: decode ascii: invalid utf-8 in register window")
		}
		return Value{format: format, str: string(raw)}, nil
	case U8:
		return Value{format: format, u64: uint64(raw[len(raw)-1])}, nil
	case U16:
		return Value{format: format, u64: uint64(binary.BigEndian.Uint16(raw))}, nil
	case U32:
		return Value{format: format, u64: uint64(binary.BigEndian.Uint32(raw))}, nil
	case U64:
		return Value{format: format, u64: binary.BigEndian.Uint64(raw)}, nil
	case U128:
		return Value{format: format, u128: new(big.Int).SetBytes(raw)}, nil
	case I8:
		return Value{format: format, i64: int64(int8(raw[len(raw)-1]))}, nil
	case I16:
		return Value{format: format, i64: int64(int16(binary.BigEndian.Uint16(raw)))}, nil
	case I32:
		return Value{format: format, i64: int64(int32(binary.BigEndian.Uint32(raw)))}, nil
	case I64:
		return Value{format: format, i64: int64(binary.BigEndian.Uint64(raw))}, nil
	case I128:
		u := new(big.Int).SetBytes(raw)
		return Value{format: format, i128: signExtendBig(u, format.ByteLength())}, nil
	case F32:
		return Value{format: format, f32: math.Float32frombits(binary.BigEndian.Uint32(raw))}, nil
	case F64:
		return Value{format: format, f64: math.Float64frombits(binary.BigEndian.Uint64(raw))}, nil
	default:
		return Value{}, fmt.Errorf("register: decode: unknown format kind %v", format.Kind)
	}
}

// Encode parses text under format and returns its wire registers. Integers
// accept decimal (signed may be negative); unsigned kinds additionally
// accept "0x" hex and signed kinds additionally accept "-0x" hex for
// negatives or bare "0x" reinterpreted as the kind's two's-complement bit
// pattern; floats additionally accept "0x" IEEE-754 bits hex — mirroring
// original_source/register/src/lib.rs's encode.
func Encode(format Format, text string) ([]uint16, error) {
	raw := make([]byte, format.ByteLength())

	switch format.Kind {
	case Ascii:
		pad(raw, []byte(text), format.Align)
	case U8, U16, U32, U64:
		var u uint64
		var err error
		if hex, ok := strings.CutPrefix(text, "0x"); ok {
			u, err = strconv.ParseUint(hex, 16, valueBits(format.Kind))
		} else {
			u, err = strconv.ParseUint(text, 10, valueBits(format.Kind))
		}
		if err != nil {
			return nil, fmt.Errorf("register: encode %s: %w", format.Kind, err)
		}
		putUint(raw, u)
	case U128:
		var u *big.Int
		var ok bool
		if hex, isHex := strings.CutPrefix(text, "0x"); isHex {
			u, ok = new(big.Int).SetString(hex, 16)
		} else {
			u, ok = new(big.Int).SetString(text, 10)
		}
		if !ok || u.Sign() < 0 {
			return nil, fmt.Errorf("register: encode u128: invalid unsigned value %q", text)
		}
		u.FillBytes(raw)
	case I8, I16, I32, I64:
		bits := valueBits(format.Kind)
		var i int64
		switch {
		case strings.HasPrefix(text, "-0x"):
			u, err := strconv.ParseUint(text[3:], 16, bits)
			if err != nil {
				return nil, fmt.Errorf("register: encode %s: %w", format.Kind, err)
			}
			i = -int64(u)
		case strings.HasPrefix(text, "0x"):
			u, err := strconv.ParseUint(text[2:], 16, bits)
			if err != nil {
				return nil, fmt.Errorf("register: encode %s: %w", format.Kind, err)
			}
			i = signExtend(u, bits)
		default:
			v, err := strconv.ParseInt(text, 10, bits)
			if err != nil {
				return nil, fmt.Errorf("register: encode %s: %w", format.Kind, err)
			}
			i = v
		}
		putUint(raw, uint64(i)&mask(bits/8))
	case I128:
		var i *big.Int
		switch {
		case strings.HasPrefix(text, "-0x"):
			u, ok := new(big.Int).SetString(text[3:], 16)
			if !ok {
				return nil, fmt.Errorf("register: encode i128: invalid hex %q", text)
			}
			i = new(big.Int).Neg(u)
		case strings.HasPrefix(text, "0x"):
			u, ok := new(big.Int).SetString(text[2:], 16)
			if !ok {
				return nil, fmt.Errorf("register: encode i128: invalid hex %q", text)
			}
			i = signExtendBig(u, format.ByteLength())
		default:
			v, ok := new(big.Int).SetString(text, 10)
			if !ok {
				return nil, fmt.Errorf("register: encode i128: invalid decimal %q", text)
			}
			i = v
		}
		twosComplement(i, format.ByteLength()).FillBytes(raw)
	case F32:
		var f float32
		if hex, ok := strings.CutPrefix(text, "0x"); ok {
			bits, err := strconv.ParseUint(hex, 16, 32)
			if err != nil {
				return nil, fmt.Errorf("register: encode f32: %w", err)
			}
			f = math.Float32frombits(uint32(bits))
		} else {
			v, err := strconv.ParseFloat(text, 32)
			if err != nil {
				return nil, fmt.Errorf("register: encode f32: %w", err)
			}
			f = float32(v)
		}
		binary.BigEndian.PutUint32(raw, math.Float32bits(f))
	case F64:
		var f float64
		if hex, ok := strings.CutPrefix(text, "0x"); ok {
			bits, err := strconv.ParseUint(hex, 16, 64)
			if err != nil {
				return nil, fmt.Errorf("register: encode f64: %w", err)
			}
			f = math.Float64frombits(bits)
		} else {
			v, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("register: encode f64: %w", err)
			}
			f = v
		}
		binary.BigEndian.PutUint64(raw, math.Float64bits(f))
	default:
		return nil, fmt.Errorf("register: encode: unknown format kind %v", format.Kind)
	}

	return fromBytes(raw, format.Endian), nil
}

// signExtend reinterprets the low bits-width bits of u as a two's-complement
// signed value, the bare-"0x" case for signed integer kinds.
func signExtend(u uint64, bits int) int64 {
	shift := 64 - bits
	return int64(u<<shift) >> shift
}

// signExtendBig is signExtend's big.Int counterpart for I128, shared by
// Decode (reinterpreting raw wire bytes) and Encode (reinterpreting a bare
// "0x" literal).
func signExtendBig(u *big.Int, byteWidth int) *big.Int {
	signBit := new(big.Int).Lsh(big.NewInt(1), uint(byteWidth*8-1))
	if u.Cmp(signBit) >= 0 {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(byteWidth*8))
		return new(big.Int).Sub(u, mod)
	}
	return new(big.Int).Set(u)
}

func putUint(dst []byte, u uint64) {
	full := make([]byte, 8)
	binary.BigEndian.PutUint64(full, u)
	copy(dst, full[8-len(dst):])
}

// toBytes concatenates regs big-endian; for LittleEndian it reverses register
// order and swaps the two bytes within each register, which reverses the
// whole byte sequence — generalized from tdemin-opmodbus's Float32CDAB swap
// into a per-Format Endian switch.
func toBytes(regs []uint16, endian Endian) []byte {
	out := make([]byte, len(regs)*2)
	order := make([]int, len(regs))
	for i := range order {
		order[i] = i
	}
	var byteOrder binary.ByteOrder = binary.BigEndian
	if endian == LittleEndian {
		byteOrder = binary.LittleEndian
		for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
			order[i], order[j] = order[j], order[i]
		}
	}
	for i, regIdx := range order {
		byteOrder.PutUint16(out[i*2:i*2+2], regs[regIdx])
	}
	return out
}

func fromBytes(raw []byte, endian Endian) []uint16 {
	var byteOrder binary.ByteOrder = binary.BigEndian
	if endian == LittleEndian {
		byteOrder = binary.LittleEndian
	}
	n := len(raw) / 2
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = byteOrder.Uint16(raw[i*2 : i*2+2])
	}
	if endian == LittleEndian {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// pad copies src into dst and fills the remainder with 0x00, left- or
// right-aligning src within dst's width per align — the zero-byte padding
// convention of original_source/register/src/lib.rs's encode.
func pad(dst []byte, src []byte, align Alignment) {
	n := copy(dst, src)
	for i := n; i < len(dst); i++ {
		dst[i] = 0x00
	}
	if align == AlignRight && n < len(dst) {
		copy(dst[len(dst)-n:], dst[:n])
		for i := 0; i < len(dst)-n; i++ {
			dst[i] = 0x00
		}
	}
}
