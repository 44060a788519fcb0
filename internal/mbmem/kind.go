package mbmem

// CellType distinguishes the two Modbus data spaces a slot can live in.
// Discrete inputs are unified under Coil (1-bit, carried in a 16-bit word);
// input registers are unified under Register.
type CellType uint8

const (
	Coil CellType = iota
	Register
)

func (t CellType) String() string {
	if t == Coil {
		return "coil"
	}
	return "register"
}

// AccessKind is the access flavor of a slot, fixed for the lifetime of the
// slot once its containing range is created (spec.md §3).
type AccessKind uint8

const (
	// AccessRead: readable, never writable.
	AccessRead AccessKind = iota
	// AccessWrite: writable, never readable.
	AccessWrite
	// AccessCombined: a single word shared by read and write.
	AccessCombined
	// AccessSeparated: independent read-side and write-side words.
	AccessSeparated
)

// Kind is the (access, cell type) pair used when creating or extending a
// range of slots.
type Kind struct {
	Access AccessKind
	Type   CellType
}

// ReadKind, WriteKind, CombinedKind and SeparatedKind are convenience
// constructors mirroring the source's Kind::Read(T)/Write(T)/Combined(T)/
// Separated(T) constructors.
func ReadKind(t CellType) Kind      { return Kind{Access: AccessRead, Type: t} }
func WriteKind(t CellType) Kind     { return Kind{Access: AccessWrite, Type: t} }
func CombinedKind(t CellType) Kind  { return Kind{Access: AccessCombined, Type: t} }
func SeparatedKind(t CellType) Kind { return Kind{Access: AccessSeparated, Type: t} }

// cell is a single slot's storage. Only the fields relevant to access are
// meaningful: AccessRead/AccessWrite/AccessCombined use a, AccessSeparated
// uses a as the read-side word and b as the write-side word.
type cell struct {
	kind Kind
	a    uint16
	b    uint16
}

func defaultCell(kind Kind) cell {
	return cell{kind: kind}
}

// writableAs reports whether this cell can be written under type t.
func (c cell) writableAs(t CellType) bool {
	if c.kind.Type != t {
		return false
	}
	switch c.kind.Access {
	case AccessWrite, AccessCombined, AccessSeparated:
		return true
	default:
		return false
	}
}

// readableAs reports whether this cell can be read under type t.
func (c cell) readableAs(t CellType) bool {
	if c.kind.Type != t {
		return false
	}
	switch c.kind.Access {
	case AccessRead, AccessCombined, AccessSeparated:
		return true
	default:
		return false
	}
}

// applyWrite sets the write-visible word(s) of the cell, ignoring
// AccessRead cells (spec.md §4.1: "Read silently ignored").
func (c *cell) applyWrite(value uint16) {
	switch c.kind.Access {
	case AccessWrite, AccessCombined:
		c.a = value
	case AccessSeparated:
		c.b = value
	case AccessRead:
		// no-op
	}
}

// readValue returns the read-visible word and whether this cell can
// contribute one at all (false for AccessWrite).
func (c cell) readValue() (uint16, bool) {
	switch c.kind.Access {
	case AccessRead, AccessCombined:
		return c.a, true
	case AccessSeparated:
		return c.a, true
	default:
		return 0, false
	}
}
