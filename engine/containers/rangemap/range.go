// Package rangemap stores values over half-open integer ranges. Entries are
// kept sorted and never overlap.
package rangemap

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

// Range is the half-open interval [Begin, End).
type Range[K constraints.Unsigned] struct {
	Begin K
	End   K
}

func MakeRange[K constraints.Unsigned](begin, end K) Range[K] {
	return Range[K]{Begin: begin, End: end}
}

func (r Range[K]) Empty() bool {
	return r.Begin >= r.End
}

func (r Range[K]) Len() K {
	if r.Empty() {
		return 0
	}
	return r.End - r.Begin
}

func (r Range[K]) Includes(k K) bool {
	return r.Begin <= k && k < r.End
}

func (r Range[K]) Intersects(o Range[K]) bool {
	return r.Begin < o.End && o.Begin < r.End
}

// Intersect returns the overlap of r and o, empty if they are disjoint.
func (r Range[K]) Intersect(o Range[K]) Range[K] {
	out := Range[K]{Begin: max(r.Begin, o.Begin), End: min(r.End, o.End)}
	if out.Empty() {
		return Range[K]{}
	}
	return out
}

func (r Range[K]) String() string {
	return fmt.Sprintf("[%d, %d)", r.Begin, r.End)
}

// maxKey is the largest representable key, used as the open end of the key space.
func maxKey[K constraints.Unsigned]() K {
	return ^K(0)
}
