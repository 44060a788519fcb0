// Package mbmem implements the typed register-memory engine: per-endpoint,
// per-key maps of address ranges carrying access-qualified cells, with range
// coalescing and permission-checked read/write (spec.md §3-§4.2).
package mbmem

import (
	"sort"
	"sync"

	"modbus-core/internal/mbrange"
)

// Key identifies one ordered map of slices. Endpoint lets several physical
// endpoints share one process without key collision (spec.md §9); Slave is
// the Modbus slave id; Table picks which of the two address spaces (Coil or
// Register) the range lives in, generalizing the source's {slave_id, fn_code}
// pair since access kind alone already distinguishes coil-like from
// register-like behaviour within one Table.
type Key struct {
	Endpoint string
	Slave    uint8
	Table    CellType
}

// entry pairs a range with the slice backing it, kept in a slice sorted by
// Range for predecessor/successor lookups (spec.md §4.2's BTreeMap cursor
// walk, reimplemented over a sorted slice since the stdlib has no ordered
// map with cursor semantics).
type entry struct {
	rng   mbrange.Range
	slice *Slice
}

// Memory is the ordered map of non-overlapping slices per key described in
// spec.md §3. It is safe for concurrent use: Memory's own methods each
// acquire the lock only for their own duration, so they must not be called
// while the caller holds Lock/RLock. ReadThenWrite is the method that keeps
// a read-then-write pair atomic.
type Memory struct {
	mu   sync.RWMutex
	maps map[Key][]entry
}

// New constructs an empty Memory.
func New() *Memory {
	return &Memory{maps: make(map[Key][]entry)}
}

// Lock, Unlock, RLock and RUnlock expose the reader-writer lock itself. The
// other Memory methods take this lock internally and block if called while
// it is held; the server dispatcher's ReadWriteMultipleRegisters uses
// ReadThenWrite instead.
func (m *Memory) Lock()    { m.mu.Lock() }
func (m *Memory) Unlock()  { m.mu.Unlock() }
func (m *Memory) RLock()   { m.mu.RLock() }
func (m *Memory) RUnlock() { m.mu.RUnlock() }

// AddRanges inserts ranges under key, extending or merging with any slice
// that already intersects a new range, re-keying the merged entry by the
// union range (spec.md §4.2).
func (m *Memory) AddRanges(key Key, kind Kind, ranges []mbrange.Range) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.maps[key]
	for _, r := range ranges {
		entries = addOneRange(entries, kind, r)
	}
	m.maps[key] = entries
}

// addOneRange finds the unique existing entry intersecting r (there is at
// most one by the no-intersecting-no-adjacent invariant), extends it to
// cover the union, or inserts a fresh slice when none intersects.
func addOneRange(entries []entry, kind Kind, r mbrange.Range) []entry {
	idx := -1
	for i, e := range entries {
		if e.rng.Intersects(r) || e.rng.Adjacent(r) {
			idx = i
			break
		}
	}
	if idx < 0 {
		ins := sort.Search(len(entries), func(i int) bool { return r.Less(entries[i].rng) })
		entries = append(entries, entry{})
		copy(entries[ins+1:], entries[ins:])
		entries[ins] = entry{rng: r, slice: FromRange(kind, r)}
		return entries
	}

	e := entries[idx]
	union := e.rng.Union(r)
	if union.Start < e.rng.Start {
		e.slice.Extend(kind, mbrange.Range{Start: union.Start, End: e.rng.Start})
	}
	if union.End > e.rng.End {
		e.slice.Extend(kind, mbrange.Range{Start: e.rng.End, End: union.End})
	}
	e.rng = e.slice.Range()
	entries[idx] = e

	// re-sort; a merge can only ever move this entry earlier (its start
	// may have shrunk), never past a neighbour, since the pre-merge
	// invariant guarantees no other entry intersects or is adjacent to it.
	sort.Slice(entries, func(i, j int) bool { return entries[i].rng.Less(entries[j].rng) })
	return entries
}

// walk visits the entries overlapping r in increasing start order, calling
// fn with the clipped sub-range and its backing slice. It stops and returns
// false as soon as fn returns false, or when r is not fully covered.
func walk(entries []entry, r mbrange.Range, fn func(sub mbrange.Range, s *Slice) bool) bool {
	remaining := r
	for _, e := range entries {
		if remaining.Length() == 0 {
			break
		}
		if e.rng.Start > remaining.Start {
			break
		}
		if e.rng.End <= remaining.Start {
			continue
		}
		start := remaining.Start
		if e.rng.Start > start {
			start = e.rng.Start
		}
		end := remaining.End
		if e.rng.End < end {
			end = e.rng.End
		}
		if start >= end {
			continue
		}
		sub := mbrange.Range{Start: start, End: end}
		if !fn(sub, e.slice) {
			return false
		}
		remaining = mbrange.Range{Start: end, End: remaining.End}
	}
	return remaining.Length() == 0
}

// Writable reports whether every address in r is writable under type t.
func (m *Memory) Writable(key Key, t CellType, r mbrange.Range) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writableLocked(key, t, r)
}

func (m *Memory) writableLocked(key Key, t CellType, r mbrange.Range) bool {
	entries, ok := m.maps[key]
	if !ok {
		return false
	}
	return walk(entries, r, func(sub mbrange.Range, s *Slice) bool {
		return s.Writable(t, sub)
	})
}

// Readable reports whether every address in r is readable under type t.
func (m *Memory) Readable(key Key, t CellType, r mbrange.Range) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.readableLocked(key, t, r)
}

func (m *Memory) readableLocked(key Key, t CellType, r mbrange.Range) bool {
	entries, ok := m.maps[key]
	if !ok {
		return false
	}
	return walk(entries, r, func(sub mbrange.Range, s *Slice) bool {
		return s.Readable(t, sub)
	})
}

// Write applies values to r under key, two-phase: it first requires the
// whole range to be Writable, then applies — preserving the no-partial-write
// invariant (spec.md §4.2, testable property 1).
func (m *Memory) Write(key Key, t CellType, r mbrange.Range, values []uint16) bool {
	if uint32(len(values)) != r.Length() {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.writableLocked(key, t, r) {
		return false
	}
	entries := m.maps[key]
	idx := 0
	ok := walk(entries, r, func(sub mbrange.Range, s *Slice) bool {
		n := sub.Length()
		applied := s.Write(sub, values[idx:idx+int(n)])
		idx += int(n)
		return applied
	})
	return ok
}

// ReadThenWrite performs the two-phase ReadWriteMultipleRegisters operation
// (spec.md §4.4) holding the writer lock across both the read and the
// write, so no concurrent reader can observe a torn state between them —
// stronger than the upstream reference, which only serializes the write
// half (spec.md §9 Open Question 3).
func (m *Memory) ReadThenWrite(key Key, t CellType, readRange, writeRange mbrange.Range, writeValues []uint16) (readValues []uint16, ok bool) {
	if uint32(len(writeValues)) != writeRange.Length() {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.readableLocked(key, t, readRange) || !m.writableLocked(key, t, writeRange) {
		return nil, false
	}

	entries := m.maps[key]
	out := make([]uint16, 0, readRange.Length())
	readOK := walk(entries, readRange, func(sub mbrange.Range, s *Slice) bool {
		v, rok := s.Read(sub)
		if !rok {
			return false
		}
		out = append(out, v...)
		return true
	})
	if !readOK {
		return nil, false
	}

	idx := 0
	writeOK := walk(entries, writeRange, func(sub mbrange.Range, s *Slice) bool {
		n := sub.Length()
		applied := s.Write(sub, writeValues[idx:idx+int(n)])
		idx += int(n)
		return applied
	})
	if !writeOK {
		return nil, false
	}
	return out, true
}

// Read gathers the read-side values across r under key, in address order,
// failing (ok=false) if coverage breaks anywhere.
func (m *Memory) Read(key Key, t CellType, r mbrange.Range) (values []uint16, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.readableLocked(key, t, r) {
		return nil, false
	}
	entries := m.maps[key]
	out := make([]uint16, 0, r.Length())
	complete := walk(entries, r, func(sub mbrange.Range, s *Slice) bool {
		v, rok := s.Read(sub)
		if !rok {
			return false
		}
		out = append(out, v...)
		return true
	})
	if !complete {
		return nil, false
	}
	return out, true
}
