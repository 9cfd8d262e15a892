package rangemap

import "golang.org/x/exp/constraints"

// ParallelIterator walks two maps over the union of their boundaries. At each
// step the current range has a single, possibly absent, value in each map.
type ParallelIterator[K constraints.Unsigned, A, B any] struct {
	a    *Map[K, A]
	b    *Map[K, B]
	idxA int
	idxB int
	rng  Range[K]

	valA A
	okA  bool
	valB B
	okB  bool
}

func NewParallelIterator[K constraints.Unsigned, A, B any](a *Map[K, A], b *Map[K, B], start K) *ParallelIterator[K, A, B] {
	it := &ParallelIterator[K, A, B]{a: a, b: b}
	it.Seek(start)
	return it
}

// Seek moves the iterator to k.
func (it *ParallelIterator[K, A, B]) Seek(k K) {
	it.idxA = it.a.lowerBound(k)
	it.idxB = it.b.lowerBound(k)
	it.settle(k)
}

// Next moves to the range starting where the current one ends.
func (it *ParallelIterator[K, A, B]) Next() {
	k := it.rng.End
	for it.idxA < len(it.a.entries) && it.a.entries[it.idxA].Range.End <= k {
		it.idxA++
	}
	for it.idxB < len(it.b.entries) && it.b.entries[it.idxB].Range.End <= k {
		it.idxB++
	}
	it.settle(k)
}

func (it *ParallelIterator[K, A, B]) settle(k K) {
	var zeroA A
	var zeroB B
	endA, endB := maxKey[K](), maxKey[K]()
	it.valA, it.okA = zeroA, false
	it.valB, it.okB = zeroB, false

	if it.idxA < len(it.a.entries) {
		e := it.a.entries[it.idxA]
		if e.Range.Begin <= k {
			it.valA, it.okA = e.Value, true
			endA = e.Range.End
		} else {
			endA = e.Range.Begin
		}
	}
	if it.idxB < len(it.b.entries) {
		e := it.b.entries[it.idxB]
		if e.Range.Begin <= k {
			it.valB, it.okB = e.Value, true
			endB = e.Range.End
		} else {
			endB = e.Range.Begin
		}
	}
	it.rng = Range[K]{Begin: k, End: min(endA, endB)}
}

func (it *ParallelIterator[K, A, B]) Range() Range[K] {
	return it.rng
}

func (it *ParallelIterator[K, A, B]) A() (A, bool) {
	return it.valA, it.okA
}

func (it *ParallelIterator[K, A, B]) B() (B, bool) {
	return it.valB, it.okB
}

// Done reports whether both maps are exhausted from the current position on.
func (it *ParallelIterator[K, A, B]) Done() bool {
	return it.idxA >= len(it.a.entries) && it.idxB >= len(it.b.entries)
}
