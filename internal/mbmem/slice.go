package mbmem

import "modbus-core/internal/mbrange"

// Slice is the contiguous storage backing one Range under one key
// (spec.md §4.1). It supports permission-aware read/write and one-sided
// extension.
type Slice struct {
	rng    mbrange.Range
	buffer []cell
}

// FromRange builds a fresh slice of rng.Length() default cells of kind.
func FromRange(kind Kind, rng mbrange.Range) *Slice {
	buf := make([]cell, rng.Length())
	for i := range buf {
		buf[i] = defaultCell(kind)
	}
	return &Slice{rng: rng, buffer: buf}
}

// Range returns the range currently backed by this slice.
func (s *Slice) Range() mbrange.Range { return s.rng }

// Extend appends or prepends rng to the slice, filling the new slots with
// defaults of kind. It succeeds only if rng touches one of the slice's
// current ends; extending into a gap is rejected.
func (s *Slice) Extend(kind Kind, rng mbrange.Range) bool {
	switch {
	case rng.End == s.rng.Start:
		prefix := make([]cell, rng.Length())
		for i := range prefix {
			prefix[i] = defaultCell(kind)
		}
		s.buffer = append(prefix, s.buffer...)
		s.rng = mbrange.Range{Start: rng.Start, End: s.rng.End}
		return true
	case rng.Start == s.rng.End:
		suffix := make([]cell, rng.Length())
		for i := range suffix {
			suffix[i] = defaultCell(kind)
		}
		s.buffer = append(s.buffer, suffix...)
		s.rng = mbrange.Range{Start: s.rng.Start, End: rng.End}
		return true
	default:
		return false
	}
}

func (s *Slice) window(r mbrange.Range) ([]cell, bool) {
	if !s.rng.Contains(r) {
		return nil, false
	}
	offset := r.Start - s.rng.Start
	return s.buffer[offset : offset+r.Length()], true
}

// Writable reports whether every cell in r is writable under type t.
func (s *Slice) Writable(t CellType, r mbrange.Range) bool {
	win, ok := s.window(r)
	if !ok {
		return false
	}
	for _, c := range win {
		if !c.writableAs(t) {
			return false
		}
	}
	return true
}

// Readable reports whether every cell in r is readable under type t.
func (s *Slice) Readable(t CellType, r mbrange.Range) bool {
	win, ok := s.window(r)
	if !ok {
		return false
	}
	for _, c := range win {
		if !c.readableAs(t) {
			return false
		}
	}
	return true
}

// Write applies values to r. Read-only cells are silently skipped; the call
// succeeds as long as r is contained and len(values) matches r's length —
// callers that require every slot to actually accept the write must consult
// Writable first (that two-phase discipline lives in Memory, spec.md §4.2).
func (s *Slice) Write(r mbrange.Range, values []uint16) bool {
	if uint32(len(values)) != r.Length() {
		return false
	}
	win, ok := s.window(r)
	if !ok {
		return false
	}
	for i := range win {
		win[i].applyWrite(values[i])
	}
	return true
}

// Read returns the read-side values across r, or ok=false if r is not
// contained or any cell in r is write-only.
func (s *Slice) Read(r mbrange.Range) (values []uint16, ok bool) {
	win, ok := s.window(r)
	if !ok {
		return nil, false
	}
	out := make([]uint16, 0, len(win))
	for _, c := range win {
		v, readable := c.readValue()
		if !readable {
			return nil, false
		}
		out = append(out, v)
	}
	return out, true
}
