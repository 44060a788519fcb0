// Package mbproto defines the Modbus wire vocabulary shared by the client
// engine and the server dispatcher: function codes, the exception taxonomy,
// and the typed error that carries an exception code back to a caller.
package mbproto

// FunctionCode identifies a Modbus PDU's operation.
type FunctionCode uint8

const (
	ReadCoils                  FunctionCode = 0x01
	ReadDiscreteInputs         FunctionCode = 0x02
	ReadHoldingRegisters       FunctionCode = 0x03
	ReadInputRegisters         FunctionCode = 0x04
	WriteSingleCoil            FunctionCode = 0x05
	WriteSingleRegister        FunctionCode = 0x06
	WriteMultipleCoils         FunctionCode = 0x0F
	WriteMultipleRegisters     FunctionCode = 0x10
	ReadWriteMultipleRegisters FunctionCode = 0x17
)

func (f FunctionCode) String() string {
	switch f {
	case ReadCoils:
		return "ReadCoils"
	case ReadDiscreteInputs:
		return "ReadDiscreteInputs"
	case ReadHoldingRegisters:
		return "ReadHoldingRegisters"
	case ReadInputRegisters:
		return "ReadInputRegisters"
	case WriteSingleCoil:
		return "WriteSingleCoil"
	case WriteSingleRegister:
		return "WriteSingleRegister"
	case WriteMultipleCoils:
		return "WriteMultipleCoils"
	case WriteMultipleRegisters:
		return "WriteMultipleRegisters"
	case ReadWriteMultipleRegisters:
		return "ReadWriteMultipleRegisters"
	default:
		return "Unknown"
	}
}

// IsCoilTable reports whether f addresses the coil/discrete-input address
// space (as opposed to the holding/input register space).
func (f FunctionCode) IsCoilTable() bool {
	switch f {
	case ReadCoils, ReadDiscreteInputs, WriteSingleCoil, WriteMultipleCoils:
		return true
	default:
		return false
	}
}

// ExceptionCode is a Modbus exception response code (spec.md §4.4).
type ExceptionCode uint8

const (
	IllegalFunction  ExceptionCode = 0x01
	IllegalDataAddr  ExceptionCode = 0x02
	IllegalDataValue ExceptionCode = 0x03
	ServerDeviceFail ExceptionCode = 0x04
)

func (c ExceptionCode) String() string {
	switch c {
	case IllegalFunction:
		return "illegal function"
	case IllegalDataAddr:
		return "illegal data address"
	case IllegalDataValue:
		return "illegal data value"
	case ServerDeviceFail:
		return "server device failure"
	default:
		return "unknown exception"
	}
}

// Error is a Modbus exception carrying the code a server dispatcher must
// echo back in the exception response PDU (function|0x80, code).
type Error struct {
	msg  string
	Code ExceptionCode
}

func (e *Error) Error() string { return e.msg }

// NewIllegalFunction reports an unsupported or unrecognized function code.
func NewIllegalFunction(msg string) *Error { return &Error{msg: msg, Code: IllegalFunction} }

// NewIllegalDataAddress reports an address or range outside what the
// dispatched Memory key covers (spec.md §4.4, permission or range lookup
// failure cases).
func NewIllegalDataAddress(msg string) *Error { return &Error{msg: msg, Code: IllegalDataAddr} }

// NewIllegalDataValue reports a malformed request (bad quantity, byte count
// mismatch, truncated PDU).
func NewIllegalDataValue(msg string) *Error { return &Error{msg: msg, Code: IllegalDataValue} }

// NewServerDeviceFailure reports an internal failure unrelated to the
// request's validity (spec.md §4.4's catch-all).
func NewServerDeviceFailure(msg string) *Error { return &Error{msg: msg, Code: ServerDeviceFail} }

// ExceptionPDU builds the two-byte exception response for function.
func ExceptionPDU(function FunctionCode, code ExceptionCode) []byte {
	return []byte{byte(function) | 0x80, byte(code)}
}
