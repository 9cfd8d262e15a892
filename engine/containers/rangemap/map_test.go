package rangemap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type span = Range[uint64]

func dump(m *Map[uint64, string]) []Entry[uint64, string] {
	out := make([]Entry[uint64, string], len(m.Entries()))
	copy(out, m.Entries())
	return out
}

func e(b, en uint64, v string) Entry[uint64, string] {
	return Entry[uint64, string]{Range: span{b, en}, Value: v}
}

func TestOverwriteSplits(t *testing.T) {
	m := New[uint64, string]()
	m.Overwrite(span{0, 10}, "a")
	m.Overwrite(span{3, 5}, "b")
	assert.Equal(t, []Entry[uint64, string]{e(0, 3, "a"), e(3, 5, "b"), e(5, 10, "a")}, dump(m))

	m.Overwrite(span{2, 7}, "c")
	assert.Equal(t, []Entry[uint64, string]{e(0, 2, "a"), e(2, 7, "c"), e(7, 10, "a")}, dump(m))

	v, ok := m.Get(6)
	assert.True(t, ok)
	assert.Equal(t, "c", v)
	_, ok = m.Get(10)
	assert.False(t, ok)
}

func TestInfillOnlyFillsGaps(t *testing.T) {
	m := New[uint64, string]()
	m.Overwrite(span{2, 4}, "a")
	m.Overwrite(span{6, 8}, "b")
	m.Infill(span{0, 10}, "z")
	assert.Equal(t, []Entry[uint64, string]{
		e(0, 2, "z"), e(2, 4, "a"), e(4, 6, "z"), e(6, 8, "b"), e(8, 10, "z"),
	}, dump(m))
}

func TestErase(t *testing.T) {
	m := New[uint64, string]()
	m.Overwrite(span{0, 10}, "a")
	m.Erase(span{2, 4})
	m.Erase(span{8, 20})
	assert.Equal(t, []Entry[uint64, string]{e(0, 2, "a"), e(4, 8, "a")}, dump(m))
	m.Erase(span{0, 100})
	assert.True(t, m.Empty())
}

func TestUpdateDropsPieces(t *testing.T) {
	m := New[uint64, string]()
	m.Overwrite(span{0, 4}, "a")
	m.Update(span{2, 6}, func(v string, present bool) (string, bool) {
		if present {
			return "", false
		}
		return "new", true
	})
	assert.Equal(t, []Entry[uint64, string]{e(0, 2, "a"), e(4, 6, "new")}, dump(m))
}

func TestTransformMapsAndDrops(t *testing.T) {
	m := New[uint64, string]()
	m.Overwrite(span{0, 2}, "a")
	m.Overwrite(span{2, 4}, "drop")
	m.Overwrite(span{6, 8}, "b")
	m.Transform(func(v string) (string, bool) {
		return v + v, v != "drop"
	})
	assert.Equal(t, []Entry[uint64, string]{e(0, 2, "aa"), e(6, 8, "bb")}, dump(m))
}

func TestAnyInRangeVisitsEveryPiece(t *testing.T) {
	m := New[uint64, string]()
	m.Overwrite(span{0, 2}, "bad")
	m.Overwrite(span{2, 4}, "ok")
	m.Overwrite(span{4, 6}, "bad")

	var visited []span
	hit := m.AnyInRange(span{1, 5}, func(r span, v string) bool {
		visited = append(visited, r)
		return v == "bad"
	})
	assert.True(t, hit)
	assert.Equal(t, []span{{1, 2}, {2, 4}, {4, 5}}, visited)

	assert.False(t, m.AnyInRange(span{2, 4}, func(_ span, v string) bool { return v == "bad" }))
	assert.False(t, m.AnyInRange(span{10, 12}, func(span, string) bool { return true }))
}

func TestCoalesceAndClone(t *testing.T) {
	m := New[uint64, string]()
	m.Overwrite(span{0, 2}, "a")
	m.Overwrite(span{2, 4}, "a")
	m.Overwrite(span{5, 6}, "a")
	c := m.Clone()
	m.Coalesce(func(a, b string) bool { return a == b })
	assert.Equal(t, []Entry[uint64, string]{e(0, 4, "a"), e(5, 6, "a")}, dump(m))
	assert.Equal(t, 3, c.Len())
}

func TestSpliceUnion(t *testing.T) {
	dst := New[uint64, int]()
	dst.Overwrite(span{0, 4}, 1)
	src := New[uint64, int]()
	src.Overwrite(span{2, 6}, 2)
	Splice(dst, src, func(_ int, _ bool, s int) (int, bool) { return s, true })

	v, _ := dst.Get(1)
	assert.Equal(t, 1, v)
	v, _ = dst.Get(3)
	assert.Equal(t, 2, v)
	v, _ = dst.Get(5)
	assert.Equal(t, 2, v)
}

func TestParallelIterator(t *testing.T) {
	a := New[uint64, string]()
	a.Overwrite(span{0, 4}, "a0")
	a.Overwrite(span{8, 10}, "a1")
	b := New[uint64, int]()
	b.Overwrite(span{2, 9}, 7)

	type step struct {
		r   span
		va  string
		okA bool
		vb  int
		okB bool
	}
	var steps []step
	it := NewParallelIterator(a, b, 0)
	for it.Range().Begin < 10 {
		va, okA := it.A()
		vb, okB := it.B()
		steps = append(steps, step{it.Range(), va, okA, vb, okB})
		it.Next()
	}
	require.Len(t, steps, 5)
	assert.Equal(t, step{span{0, 2}, "a0", true, 0, false}, steps[0])
	assert.Equal(t, step{span{2, 4}, "a0", true, 7, true}, steps[1])
	assert.Equal(t, step{span{4, 8}, "", false, 7, true}, steps[2])
	assert.Equal(t, step{span{8, 9}, "a1", true, 7, true}, steps[3])
	assert.Equal(t, step{span{9, 10}, "a1", true, 0, false}, steps[4])
	assert.True(t, it.Done())

	it.Seek(3)
	assert.Equal(t, span{3, 4}, it.Range())
}
