package mbmem

import (
	"testing"

	"github.com/stretchr/testify/require"

	"modbus-core/internal/mbrange"
)

func testKey() Key {
	return Key{Endpoint: "ep0", Slave: 1, Table: Register}
}

func TestMemoryReadWriteCombined(t *testing.T) {
	m := New()
	key := testKey()
	m.AddRanges(key, CombinedKind(Register), []mbrange.Range{mbrange.New(0, 10)})

	require.True(t, m.Writable(key, Register, mbrange.New(2, 3)))
	require.True(t, m.Write(key, Register, mbrange.New(2, 3), []uint16{1, 2, 3}))

	vals, ok := m.Read(key, Register, mbrange.New(0, 10))
	require.True(t, ok)
	require.Equal(t, []uint16{0, 0, 1, 2, 3, 0, 0, 0, 0, 0}, vals)
}

func TestMemoryAddRangesCoalescesAdjacent(t *testing.T) {
	m := New()
	key := testKey()
	m.AddRanges(key, CombinedKind(Register), []mbrange.Range{mbrange.New(0, 5)})
	m.AddRanges(key, CombinedKind(Register), []mbrange.Range{mbrange.New(5, 5)})

	require.Len(t, m.maps[key], 1)
	require.True(t, m.Readable(key, Register, mbrange.New(0, 10)))
}

func TestMemoryAddRangesKeepsDisjointSeparate(t *testing.T) {
	m := New()
	key := testKey()
	m.AddRanges(key, CombinedKind(Register), []mbrange.Range{mbrange.New(0, 5)})
	m.AddRanges(key, CombinedKind(Register), []mbrange.Range{mbrange.New(10, 5)})

	require.Len(t, m.maps[key], 2)
	require.False(t, m.Readable(key, Register, mbrange.New(0, 15)))
	require.True(t, m.Readable(key, Register, mbrange.New(0, 5)))
	require.True(t, m.Readable(key, Register, mbrange.New(10, 5)))
}

func TestMemoryAddRangesMergesOverlap(t *testing.T) {
	m := New()
	key := testKey()
	m.AddRanges(key, CombinedKind(Register), []mbrange.Range{mbrange.New(0, 10)})
	m.AddRanges(key, CombinedKind(Register), []mbrange.Range{mbrange.New(5, 10)})

	require.Len(t, m.maps[key], 1)
	require.True(t, m.Readable(key, Register, mbrange.New(0, 15)))
}

func TestMemoryWriteOnlyNotReadable(t *testing.T) {
	m := New()
	key := testKey()
	m.AddRanges(key, WriteKind(Register), []mbrange.Range{mbrange.New(0, 4)})

	require.True(t, m.Writable(key, Register, mbrange.New(0, 4)))
	require.False(t, m.Readable(key, Register, mbrange.New(0, 4)))
	_, ok := m.Read(key, Register, mbrange.New(0, 4))
	require.False(t, ok)
}

func TestMemoryReadOnlyNotWritable(t *testing.T) {
	m := New()
	key := testKey()
	m.AddRanges(key, ReadKind(Register), []mbrange.Range{mbrange.New(0, 4)})

	require.False(t, m.Writable(key, Register, mbrange.New(0, 4)))
	require.False(t, m.Write(key, Register, mbrange.New(0, 4), []uint16{1, 2, 3, 4}))
}

func TestMemoryWriteRejectsPartialRangeNoSideEffects(t *testing.T) {
	m := New()
	key := testKey()
	m.AddRanges(key, CombinedKind(Register), []mbrange.Range{mbrange.New(0, 4)})
	m.AddRanges(key, ReadKind(Register), []mbrange.Range{mbrange.New(10, 4)})

	// spans a writable range and a disjoint read-only range: must fail
	// entirely and leave the writable half untouched (no partial write).
	ok := m.Write(key, Register, mbrange.New(0, 14), make([]uint16, 14))
	require.False(t, ok)

	vals, rok := m.Read(key, Register, mbrange.New(0, 4))
	require.True(t, rok)
	require.Equal(t, []uint16{0, 0, 0, 0}, vals)
}

func TestMemorySeparatedReadWriteIndependent(t *testing.T) {
	m := New()
	key := testKey()
	m.AddRanges(key, SeparatedKind(Register), []mbrange.Range{mbrange.New(0, 2)})

	require.True(t, m.Write(key, Register, mbrange.New(0, 2), []uint16{7, 8}))
	// read-side of a Separated cell is independent of the write-side word
	// just set; it stays at its default until something drives it directly.
	vals, ok := m.Read(key, Register, mbrange.New(0, 2))
	require.True(t, ok)
	require.Equal(t, []uint16{0, 0}, vals)
}

func TestMemoryUnknownKeyNotReadableOrWritable(t *testing.T) {
	m := New()
	key := testKey()
	require.False(t, m.Readable(key, Register, mbrange.New(0, 1)))
	require.False(t, m.Writable(key, Register, mbrange.New(0, 1)))
}

func TestMemoryReadThenWriteAtomicity(t *testing.T) {
	m := New()
	key := testKey()
	m.AddRanges(key, CombinedKind(Register), []mbrange.Range{mbrange.New(0, 4)})
	m.Write(key, Register, mbrange.New(0, 4), []uint16{10, 20, 30, 40})

	old, ok := m.ReadThenWrite(key, Register, mbrange.New(0, 2), mbrange.New(2, 2), []uint16{99, 100})
	require.True(t, ok)
	require.Equal(t, []uint16{10, 20}, old)

	vals, _ := m.Read(key, Register, mbrange.New(0, 4))
	require.Equal(t, []uint16{10, 20, 99, 100}, vals)
}

func TestMemoryReadThenWriteFailsWithoutSideEffects(t *testing.T) {
	m := New()
	key := testKey()
	m.AddRanges(key, CombinedKind(Register), []mbrange.Range{mbrange.New(0, 4)})
	m.AddRanges(key, ReadKind(Register), []mbrange.Range{mbrange.New(10, 2)})
	m.Write(key, Register, mbrange.New(0, 4), []uint16{1, 2, 3, 4})

	_, ok := m.ReadThenWrite(key, Register, mbrange.New(0, 4), mbrange.New(10, 2), []uint16{7, 8})
	require.False(t, ok)

	vals, _ := m.Read(key, Register, mbrange.New(0, 4))
	require.Equal(t, []uint16{1, 2, 3, 4}, vals)
}

func TestMemoryCoilVsRegisterTablesIndependent(t *testing.T) {
	m := New()
	coilKey := Key{Endpoint: "ep0", Slave: 1, Table: Coil}
	regKey := Key{Endpoint: "ep0", Slave: 1, Table: Register}

	m.AddRanges(coilKey, CombinedKind(Coil), []mbrange.Range{mbrange.New(0, 8)})
	require.True(t, m.Readable(coilKey, Coil, mbrange.New(0, 8)))
	require.False(t, m.Readable(regKey, Register, mbrange.New(0, 8)))
}
