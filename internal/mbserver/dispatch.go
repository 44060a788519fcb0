// Package mbserver implements the server request dispatcher (spec.md
// §4.4): mapping wire requests onto the typed memory model while enforcing
// permission semantics and reporting protocol exceptions.
package mbserver

import (
	"fmt"

	"modbus-core/internal/mbmem"
	"modbus-core/internal/mbproto"
	"modbus-core/internal/mbrange"
	"modbus-core/internal/sinks"
)

// Dispatcher maps Modbus PDUs onto one endpoint's Memory, generalizing the
// teacher's Server.handlePDU from its fixed register arrays to the typed,
// permission-checked mbmem.Memory.
type Dispatcher struct {
	Endpoint string
	Memory   *mbmem.Memory
	Log      sinks.LogFunc
}

// Dispatch decodes one PDU addressed to slave and returns the response PDU
// — a success response or a two-byte exception response, per spec.md §4.4.
// Every branch logs exactly one line describing the outcome.
func (d *Dispatcher) Dispatch(slave uint8, pdu []byte) []byte {
	if len(pdu) == 0 {
		sinks.Logf(d.Log, "mbserver %s slave %d: empty pdu", d.Endpoint, slave)
		return mbproto.ExceptionPDU(0, mbproto.IllegalFunction)
	}

	function := mbproto.FunctionCode(pdu[0])
	body := pdu[1:]

	switch function {
	case mbproto.ReadCoils:
		return d.dispatchReadBits(slave, function, body)
	case mbproto.ReadDiscreteInputs:
		return d.dispatchReadBits(slave, function, body)
	case mbproto.ReadHoldingRegisters:
		return d.dispatchReadRegisters(slave, function, body)
	case mbproto.ReadInputRegisters:
		return d.dispatchReadRegisters(slave, function, body)
	case mbproto.WriteSingleCoil:
		return d.dispatchWriteSingleCoil(slave, body)
	case mbproto.WriteSingleRegister:
		return d.dispatchWriteSingleRegister(slave, body)
	case mbproto.WriteMultipleCoils:
		return d.dispatchWriteMultipleCoils(slave, body)
	case mbproto.WriteMultipleRegisters:
		return d.dispatchWriteMultipleRegisters(slave, body)
	case mbproto.ReadWriteMultipleRegisters:
		return d.dispatchReadWriteMultipleRegisters(slave, body)
	default:
		sinks.Logf(d.Log, "mbserver %s slave %d: illegal function 0x%02X", d.Endpoint, slave, byte(function))
		return mbproto.ExceptionPDU(function, mbproto.IllegalFunction)
	}
}

func (d *Dispatcher) key(slave uint8, table mbmem.CellType) mbmem.Key {
	return mbmem.Key{Endpoint: d.Endpoint, Slave: slave, Table: table}
}

func (d *Dispatcher) dispatchReadBits(slave uint8, fn mbproto.FunctionCode, body []byte) []byte {
	req, derr := mbproto.DecodeReadRequest(body)
	if derr != nil {
		return d.fail(slave, fn, derr.Code, derr.Error())
	}
	r := mbrange.New(uint32(req.Start), uint32(req.Quantity))
	values, ok := d.Memory.Read(d.key(slave, mbmem.Coil), mbmem.Coil, r)
	if !ok {
		return d.fail(slave, fn, mbproto.IllegalFunction, fmt.Sprintf("read %s %s not fully readable", fn, r))
	}
	sinks.Logf(d.Log, "mbserver %s slave %d: %s %s ok", d.Endpoint, slave, fn, r)
	return append([]byte{byte(fn)}, mbproto.EncodeBits(mbproto.RegistersToBits(values))...)
}

func (d *Dispatcher) dispatchReadRegisters(slave uint8, fn mbproto.FunctionCode, body []byte) []byte {
	req, derr := mbproto.DecodeReadRequest(body)
	if derr != nil {
		return d.fail(slave, fn, derr.Code, derr.Error())
	}
	r := mbrange.New(uint32(req.Start), uint32(req.Quantity))
	values, ok := d.Memory.Read(d.key(slave, mbmem.Register), mbmem.Register, r)
	if !ok {
		return d.fail(slave, fn, mbproto.IllegalFunction, fmt.Sprintf("read %s %s not fully readable", fn, r))
	}
	sinks.Logf(d.Log, "mbserver %s slave %d: %s %s ok", d.Endpoint, slave, fn, r)
	return append([]byte{byte(fn)}, mbproto.EncodeRegisters(values)...)
}

func (d *Dispatcher) dispatchWriteSingleCoil(slave uint8, body []byte) []byte {
	req, derr := mbproto.DecodeWriteSingleRequest(body)
	if derr != nil {
		return d.fail(slave, mbproto.WriteSingleCoil, derr.Code, derr.Error())
	}
	r := mbrange.New(uint32(req.Address), 1)
	value := req.Value == 0xFF00
	if !d.Memory.Write(d.key(slave, mbmem.Coil), mbmem.Coil, r, mbproto.BitsToRegisters([]bool{value})) {
		return d.fail(slave, mbproto.WriteSingleCoil, mbproto.IllegalFunction, fmt.Sprintf("write coil %s failed", r))
	}
	sinks.Logf(d.Log, "mbserver %s slave %d: WriteSingleCoil %s = %v ok", d.Endpoint, slave, r, value)
	return append([]byte{byte(mbproto.WriteSingleCoil)}, body...)
}

func (d *Dispatcher) dispatchWriteSingleRegister(slave uint8, body []byte) []byte {
	req, derr := mbproto.DecodeWriteSingleRequest(body)
	if derr != nil {
		return d.fail(slave, mbproto.WriteSingleRegister, derr.Code, derr.Error())
	}
	r := mbrange.New(uint32(req.Address), 1)
	if !d.Memory.Write(d.key(slave, mbmem.Register), mbmem.Register, r, []uint16{req.Value}) {
		return d.fail(slave, mbproto.WriteSingleRegister, mbproto.IllegalFunction, fmt.Sprintf("write register %s failed", r))
	}
	sinks.Logf(d.Log, "mbserver %s slave %d: WriteSingleRegister %s = %d ok", d.Endpoint, slave, r, req.Value)
	return append([]byte{byte(mbproto.WriteSingleRegister)}, body...)
}

func (d *Dispatcher) dispatchWriteMultipleCoils(slave uint8, body []byte) []byte {
	req, derr := mbproto.DecodeWriteMultipleRequest(body)
	if derr != nil {
		return d.fail(slave, mbproto.WriteMultipleCoils, derr.Code, derr.Error())
	}
	r := mbrange.New(uint32(req.Start), uint32(req.Quantity))
	bits := mbproto.DecodeBits(req.Bytes, int(req.Quantity))
	if !d.Memory.Write(d.key(slave, mbmem.Coil), mbmem.Coil, r, mbproto.BitsToRegisters(bits)) {
		return d.fail(slave, mbproto.WriteMultipleCoils, mbproto.IllegalFunction, fmt.Sprintf("write coils %s failed", r))
	}
	sinks.Logf(d.Log, "mbserver %s slave %d: WriteMultipleCoils %s ok", d.Endpoint, slave, r)
	return []byte{byte(mbproto.WriteMultipleCoils), body[0], body[1], body[2], body[3]}
}

func (d *Dispatcher) dispatchWriteMultipleRegisters(slave uint8, body []byte) []byte {
	req, derr := mbproto.DecodeWriteMultipleRequest(body)
	if derr != nil {
		return d.fail(slave, mbproto.WriteMultipleRegisters, derr.Code, derr.Error())
	}
	r := mbrange.New(uint32(req.Start), uint32(req.Quantity))
	values := bytesToRegs(req.Bytes)
	if !d.Memory.Write(d.key(slave, mbmem.Register), mbmem.Register, r, values) {
		return d.fail(slave, mbproto.WriteMultipleRegisters, mbproto.IllegalFunction, fmt.Sprintf("write registers %s failed", r))
	}
	sinks.Logf(d.Log, "mbserver %s slave %d: WriteMultipleRegisters %s ok", d.Endpoint, slave, r)
	return []byte{byte(mbproto.WriteMultipleRegisters), body[0], body[1], body[2], body[3]}
}

func (d *Dispatcher) dispatchReadWriteMultipleRegisters(slave uint8, body []byte) []byte {
	req, derr := mbproto.DecodeReadWriteMultipleRequest(body)
	if derr != nil {
		return d.fail(slave, mbproto.ReadWriteMultipleRegisters, derr.Code, derr.Error())
	}
	readRange := mbrange.New(uint32(req.ReadStart), uint32(req.ReadQuantity))
	writeRange := mbrange.New(uint32(req.WriteStart), uint32(req.WriteQuantity))
	key := d.key(slave, mbmem.Register)

	values, ok := d.Memory.ReadThenWrite(key, mbmem.Register, readRange, writeRange, req.WriteValues)
	if !ok {
		return d.fail(slave, mbproto.ReadWriteMultipleRegisters, mbproto.IllegalDataAddr,
			fmt.Sprintf("read/write registers read=%s write=%s failed", readRange, writeRange))
	}
	sinks.Logf(d.Log, "mbserver %s slave %d: ReadWriteMultipleRegisters read=%s write=%s ok", d.Endpoint, slave, readRange, writeRange)
	return append([]byte{byte(mbproto.ReadWriteMultipleRegisters)}, mbproto.EncodeRegisters(values)...)
}

func (d *Dispatcher) fail(slave uint8, fn mbproto.FunctionCode, code mbproto.ExceptionCode, reason string) []byte {
	sinks.Logf(d.Log, "mbserver %s slave %d: %s failed: %s", d.Endpoint, slave, fn, reason)
	return mbproto.ExceptionPDU(fn, code)
}

func bytesToRegs(b []byte) []uint16 {
	out := make([]uint16, len(b)/2)
	for i := range out {
		out[i] = uint16(b[i*2])<<8 | uint16(b[i*2+1])
	}
	return out
}
