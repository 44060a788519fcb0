package mbserver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"modbus-core/internal/mbmem"
	"modbus-core/internal/mbproto"
	"modbus-core/internal/mbrange"
)

func newTestDispatcher() *Dispatcher {
	mem := mbmem.New()
	key := mbmem.Key{Endpoint: "ep0", Slave: 1, Table: mbmem.Register}
	mem.AddRanges(key, mbmem.CombinedKind(mbmem.Register), []mbrange.Range{mbrange.New(0, 10)})
	coilKey := mbmem.Key{Endpoint: "ep0", Slave: 1, Table: mbmem.Coil}
	mem.AddRanges(coilKey, mbmem.CombinedKind(mbmem.Coil), []mbrange.Range{mbrange.New(0, 16)})
	return &Dispatcher{Endpoint: "ep0", Memory: mem}
}

func readRequestPDU(fn mbproto.FunctionCode, start, qty uint16) []byte {
	return []byte{byte(fn), byte(start >> 8), byte(start), byte(qty >> 8), byte(qty)}
}

func TestDispatchReadHoldingRegistersAllZero(t *testing.T) {
	d := newTestDispatcher()
	resp := d.Dispatch(1, readRequestPDU(mbproto.ReadHoldingRegisters, 0, 4))
	require.Equal(t, []byte{byte(mbproto.ReadHoldingRegisters), 8, 0, 0, 0, 0, 0, 0, 0, 0}, resp)
}

func TestDispatchReadOutOfRangeReturnsException(t *testing.T) {
	d := newTestDispatcher()
	resp := d.Dispatch(1, readRequestPDU(mbproto.ReadHoldingRegisters, 5, 20))
	require.Equal(t, []byte{byte(mbproto.ReadHoldingRegisters) | 0x80, byte(mbproto.IllegalFunction)}, resp)
}

func TestDispatchUnsupportedFunctionIsIllegalFunction(t *testing.T) {
	d := newTestDispatcher()
	resp := d.Dispatch(1, []byte{0x2B})
	require.Equal(t, []byte{0x2B | 0x80, byte(mbproto.IllegalFunction)}, resp)
}

func TestDispatchWriteSingleRegisterThenRead(t *testing.T) {
	d := newTestDispatcher()
	writeResp := d.Dispatch(1, []byte{byte(mbproto.WriteSingleRegister), 0, 2, 0x12, 0x34})
	require.Equal(t, []byte{byte(mbproto.WriteSingleRegister), 0, 2, 0x12, 0x34}, writeResp)

	readResp := d.Dispatch(1, readRequestPDU(mbproto.ReadHoldingRegisters, 2, 1))
	require.Equal(t, []byte{byte(mbproto.ReadHoldingRegisters), 2, 0x12, 0x34}, readResp)
}

func TestDispatchWriteSingleCoil(t *testing.T) {
	d := newTestDispatcher()
	writeResp := d.Dispatch(1, []byte{byte(mbproto.WriteSingleCoil), 0, 3, 0xFF, 0x00})
	require.Equal(t, []byte{byte(mbproto.WriteSingleCoil), 0, 3, 0xFF, 0x00}, writeResp)

	readResp := d.Dispatch(1, readRequestPDU(mbproto.ReadCoils, 0, 8))
	require.Equal(t, []byte{byte(mbproto.ReadCoils), 1, 0b00001000}, readResp)
}

func TestDispatchWriteMultipleRegisters(t *testing.T) {
	d := newTestDispatcher()
	req := []byte{byte(mbproto.WriteMultipleRegisters), 0, 0, 0, 2, 4, 0, 1, 0, 2}
	resp := d.Dispatch(1, req)
	require.Equal(t, []byte{byte(mbproto.WriteMultipleRegisters), 0, 0, 0, 2}, resp)

	readResp := d.Dispatch(1, readRequestPDU(mbproto.ReadHoldingRegisters, 0, 2))
	require.Equal(t, []byte{byte(mbproto.ReadHoldingRegisters), 4, 0, 1, 0, 2}, readResp)
}

func TestDispatchReadWriteMultipleRegisters(t *testing.T) {
	d := newTestDispatcher()
	d.Dispatch(1, []byte{byte(mbproto.WriteMultipleRegisters), 0, 0, 0, 2, 4, 0, 10, 0, 20})

	req := []byte{
		byte(mbproto.ReadWriteMultipleRegisters),
		0, 0, 0, 2, // read start=0 qty=2
		0, 2, 0, 1, // write start=2 qty=1
		2, 0, 99,
	}
	resp := d.Dispatch(1, req)
	require.Equal(t, []byte{byte(mbproto.ReadWriteMultipleRegisters), 4, 0, 10, 0, 20}, resp)

	readResp := d.Dispatch(1, readRequestPDU(mbproto.ReadHoldingRegisters, 2, 1))
	require.Equal(t, []byte{byte(mbproto.ReadHoldingRegisters), 2, 0, 99}, readResp)
}

func TestDispatchReadWriteMultipleRegistersFailureReportsIllegalDataAddr(t *testing.T) {
	d := newTestDispatcher()
	req := []byte{
		byte(mbproto.ReadWriteMultipleRegisters),
		0, 0, 0, 20, // read range beyond memory extent
		0, 0, 0, 1,
		2, 0, 1,
	}
	resp := d.Dispatch(1, req)
	require.Equal(t, []byte{byte(mbproto.ReadWriteMultipleRegisters) | 0x80, byte(mbproto.IllegalDataAddr)}, resp)
}

func TestDispatchEmptyPDU(t *testing.T) {
	d := newTestDispatcher()
	resp := d.Dispatch(1, nil)
	require.Equal(t, []byte{0x80, byte(mbproto.IllegalFunction)}, resp)
}

func TestCRC16KnownVector(t *testing.T) {
	// 0x01 0x03 0x00 0x00 0x00 0x0A -> CRC 0xCDC5 (sent low byte first, C5 CD), a
	// commonly cited Modbus RTU CRC test vector for this request frame.
	got := crc16([]byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x0A})
	require.Equal(t, uint16(0xCDC5), got)
}
