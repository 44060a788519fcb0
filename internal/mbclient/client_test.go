package mbclient

import (
	"testing"

	"github.com/stretchr/testify/require"

	"modbus-core/internal/mbproto"
	"modbus-core/internal/mbrange"
)

func TestNetConfigDefaults(t *testing.T) {
	cfg := NetConfig{}.WithDefaults()
	require.Equal(t, 500, cfg.IntervalMs)
	require.Equal(t, 500, cfg.DelayAfterConnectMs)
	require.Equal(t, 3000, cfg.TimeoutMs)
}

func TestNetConfigPreservesOverrides(t *testing.T) {
	cfg := NetConfig{IntervalMs: 100}.WithDefaults()
	require.Equal(t, 100, cfg.IntervalMs)
}

func TestSetOperationsClampsIndexOutOfBounds(t *testing.T) {
	c := &Client{}
	c.SetOperations([]Operation{
		{SlaveID: 1, Func: mbproto.ReadHoldingRegisters, Range: mbrange.New(0, 2)},
		{SlaveID: 1, Func: mbproto.ReadHoldingRegisters, Range: mbrange.New(2, 2)},
	})
	c.index = 5
	c.SetOperations([]Operation{{SlaveID: 1, Func: mbproto.ReadHoldingRegisters, Range: mbrange.New(0, 2)}})
	require.Equal(t, 0, c.index)
}

func TestSnapshotAndAdvanceRotates(t *testing.T) {
	c := &Client{}
	c.SetOperations([]Operation{
		{SlaveID: 1, Range: mbrange.New(0, 1)},
		{SlaveID: 2, Range: mbrange.New(1, 1)},
	})
	op, ok := c.snapshotOperation()
	require.True(t, ok)
	require.Equal(t, uint8(1), op.SlaveID)

	c.advance()
	op2, ok := c.snapshotOperation()
	require.True(t, ok)
	require.Equal(t, uint8(2), op2.SlaveID)
	require.Equal(t, 0, c.retries)
}

func TestSnapshotEmptyOperations(t *testing.T) {
	c := &Client{}
	_, ok := c.snapshotOperation()
	require.False(t, ok)
}

func TestTableForMapsFunctionToCellType(t *testing.T) {
	require.Equal(t, byte(0), byte(tableFor(mbproto.ReadCoils)))
	require.Equal(t, byte(1), byte(tableFor(mbproto.ReadHoldingRegisters)))
}

func tableForTest(f mbproto.FunctionCode) int {
	if f.IsCoilTable() {
		return 0
	}
	return 1
}

func TestBytesRegsRoundTrip(t *testing.T) {
	regs := []uint16{0x1234, 0xABCD}
	b := regsToBytes(regs)
	require.Equal(t, regs, bytesToRegs(b))
}

func TestPackBits(t *testing.T) {
	bits := []bool{true, false, true, true, false, false, false, false, true}
	packed := packBits(bits)
	require.Len(t, packed, 2)
	require.Equal(t, byte(0b00001101), packed[0])
	require.Equal(t, byte(0b00000001), packed[1])
}
