package rangemap

import (
	"sort"

	"golang.org/x/exp/constraints"
)

type Entry[K constraints.Unsigned, V any] struct {
	Range Range[K]
	Value V
}

// Map is a sorted, non-overlapping set of ranges, each carrying a value.
type Map[K constraints.Unsigned, V any] struct {
	entries []Entry[K, V]
}

func New[K constraints.Unsigned, V any]() *Map[K, V] {
	return &Map[K, V]{}
}

func (m *Map[K, V]) Len() int {
	return len(m.entries)
}

func (m *Map[K, V]) Empty() bool {
	return len(m.entries) == 0
}

// Entries returns the backing entries in key order. Callers must not modify it.
func (m *Map[K, V]) Entries() []Entry[K, V] {
	return m.entries
}

func (m *Map[K, V]) Clear() {
	m.entries = nil
}

// lowerBound returns the index of the first entry ending after k.
func (m *Map[K, V]) lowerBound(k K) int {
	return sort.Search(len(m.entries), func(i int) bool {
		return k < m.entries[i].Range.End
	})
}

// findSpanFor returns the index of the entry containing k, or -1.
func (m *Map[K, V]) findSpanFor(k K) int {
	i := m.lowerBound(k)
	if i < len(m.entries) && m.entries[i].Range.Begin <= k {
		return i
	}
	return -1
}

// Get returns the value stored at k.
func (m *Map[K, V]) Get(k K) (V, bool) {
	if i := m.findSpanFor(k); i >= 0 {
		return m.entries[i].Value, true
	}
	var zero V
	return zero, false
}

// Find returns the entry containing k.
func (m *Map[K, V]) Find(k K) (Entry[K, V], bool) {
	if i := m.findSpanFor(k); i >= 0 {
		return m.entries[i], true
	}
	return Entry[K, V]{}, false
}

// span returns the index range [lo, hi) of entries intersecting r.
func (m *Map[K, V]) span(r Range[K]) (int, int) {
	lo := m.lowerBound(r.Begin)
	hi := lo
	for hi < len(m.entries) && m.entries[hi].Range.Begin < r.End {
		hi++
	}
	return lo, hi
}

func (m *Map[K, V]) replace(lo, hi int, with []Entry[K, V]) {
	tail := len(m.entries) - hi
	size := lo + len(with) + tail
	if size <= cap(m.entries) && len(with) <= hi-lo {
		copy(m.entries[lo:], with)
		copy(m.entries[lo+len(with):], m.entries[hi:])
		var zero Entry[K, V]
		for i := size; i < len(m.entries); i++ {
			m.entries[i] = zero
		}
		m.entries = m.entries[:size]
		return
	}
	out := make([]Entry[K, V], 0, size)
	out = append(out, m.entries[:lo]...)
	out = append(out, with...)
	out = append(out, m.entries[hi:]...)
	m.entries = out
}

// Overwrite stores v over all of r, splitting whatever it overlaps.
func (m *Map[K, V]) Overwrite(r Range[K], v V) {
	if r.Empty() {
		return
	}
	lo, hi := m.span(r)
	with := make([]Entry[K, V], 0, 3)
	if lo < hi && m.entries[lo].Range.Begin < r.Begin {
		e := m.entries[lo]
		with = append(with, Entry[K, V]{Range: Range[K]{e.Range.Begin, r.Begin}, Value: e.Value})
	}
	with = append(with, Entry[K, V]{Range: r, Value: v})
	if lo < hi && m.entries[hi-1].Range.End > r.End {
		e := m.entries[hi-1]
		with = append(with, Entry[K, V]{Range: Range[K]{r.End, e.Range.End}, Value: e.Value})
	}
	m.replace(lo, hi, with)
}

// Erase removes r from the map, trimming entries that straddle its edges.
func (m *Map[K, V]) Erase(r Range[K]) {
	if r.Empty() {
		return
	}
	lo, hi := m.span(r)
	if lo == hi {
		return
	}
	with := make([]Entry[K, V], 0, 2)
	if e := m.entries[lo]; e.Range.Begin < r.Begin {
		with = append(with, Entry[K, V]{Range: Range[K]{e.Range.Begin, r.Begin}, Value: e.Value})
	}
	if e := m.entries[hi-1]; e.Range.End > r.End {
		with = append(with, Entry[K, V]{Range: Range[K]{r.End, e.Range.End}, Value: e.Value})
	}
	m.replace(lo, hi, with)
}

// UpdateFunc receives the value of one piece of the updated range and whether
// the piece was present. It returns the new value and whether to keep it.
type UpdateFunc[V any] func(v V, present bool) (V, bool)

// Update splits the map at the edges of r and applies fn to every piece of r,
// covered or not. Pieces for which fn reports false are removed or stay empty.
func (m *Map[K, V]) Update(r Range[K], fn UpdateFunc[V]) {
	if r.Empty() {
		return
	}
	lo, hi := m.span(r)
	with := make([]Entry[K, V], 0, 2*(hi-lo)+3)
	var zero V
	pos := r.Begin
	emit := func(rng Range[K], v V, present bool) {
		if nv, keep := fn(v, present); keep {
			with = append(with, Entry[K, V]{Range: rng, Value: nv})
		}
	}
	for i := lo; i < hi; i++ {
		e := m.entries[i]
		if e.Range.Begin < r.Begin {
			with = append(with, Entry[K, V]{Range: Range[K]{e.Range.Begin, r.Begin}, Value: e.Value})
		} else if e.Range.Begin > pos {
			emit(Range[K]{pos, e.Range.Begin}, zero, false)
		}
		piece := e.Range.Intersect(r)
		emit(piece, e.Value, true)
		if e.Range.End > r.End {
			with = append(with, Entry[K, V]{Range: Range[K]{r.End, e.Range.End}, Value: e.Value})
		}
		pos = piece.End
	}
	if pos < r.End {
		emit(Range[K]{pos, r.End}, zero, false)
	}
	m.replace(lo, hi, with)
}

// Infill stores v only in the parts of r no entry covers yet.
func (m *Map[K, V]) Infill(r Range[K], v V) {
	m.Update(r, func(old V, present bool) (V, bool) {
		if present {
			return old, true
		}
		return v, true
	})
}

// UpdateExisting applies fn to the covered parts of r and leaves gaps alone.
func (m *Map[K, V]) UpdateExisting(r Range[K], fn func(v V) V) {
	m.Update(r, func(old V, present bool) (V, bool) {
		if !present {
			return old, false
		}
		return fn(old), true
	})
}

// ForEachInRange calls fn with every stored piece overlapping r, clipped to r.
func (m *Map[K, V]) ForEachInRange(r Range[K], fn func(Range[K], V)) {
	if r.Empty() {
		return
	}
	for i := m.lowerBound(r.Begin); i < len(m.entries) && m.entries[i].Range.Begin < r.End; i++ {
		fn(m.entries[i].Range.Intersect(r), m.entries[i].Value)
	}
}

// AnyInRange calls visit for every stored piece overlapping r, clipped to r,
// and returns the OR of the results. Every piece is visited.
func (m *Map[K, V]) AnyInRange(r Range[K], visit func(Range[K], V) bool) bool {
	found := false
	m.ForEachInRange(r, func(rng Range[K], v V) {
		if visit(rng, v) {
			found = true
		}
	})
	return found
}

// Clone returns a copy of m. Values are copied, not deep cloned.
func (m *Map[K, V]) Clone() *Map[K, V] {
	out := &Map[K, V]{entries: make([]Entry[K, V], len(m.entries))}
	copy(out.entries, m.entries)
	return out
}

// Transform applies fn to every stored value in key order and drops the
// entries for which fn reports false.
func (m *Map[K, V]) Transform(fn func(v V) (V, bool)) {
	out := m.entries[:0]
	for _, e := range m.entries {
		if nv, keep := fn(e.Value); keep {
			out = append(out, Entry[K, V]{Range: e.Range, Value: nv})
		}
	}
	var zero Entry[K, V]
	for i := len(out); i < len(m.entries); i++ {
		m.entries[i] = zero
	}
	m.entries = out
}

// Coalesce merges touching entries whose values are equal under eq.
func (m *Map[K, V]) Coalesce(eq func(a, b V) bool) {
	if len(m.entries) < 2 {
		return
	}
	out := m.entries[:1]
	for _, e := range m.entries[1:] {
		last := &out[len(out)-1]
		if last.Range.End == e.Range.Begin && eq(last.Value, e.Value) {
			last.Range.End = e.Range.End
			continue
		}
		out = append(out, e)
	}
	var zero Entry[K, V]
	for i := len(out); i < len(m.entries); i++ {
		m.entries[i] = zero
	}
	m.entries = out
}

// SpliceFunc merges a source value into the destination piece it lands on.
type SpliceFunc[D, S any] func(dst D, present bool, src S) (D, bool)

// Splice folds every entry of src into dst through fn.
func Splice[K constraints.Unsigned, D, S any](dst *Map[K, D], src *Map[K, S], fn SpliceFunc[D, S]) {
	for _, e := range src.entries {
		v := e.Value
		dst.Update(e.Range, func(old D, present bool) (D, bool) {
			return fn(old, present, v)
		})
	}
}
