// Package imagelayout tracks image subresource layouts, per command buffer
// while recording and per image between submissions.
package imagelayout

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vksync/engine/containers/rangemap"
	"github.com/spaghettifunk/vksync/engine/validation/report"
	"github.com/spaghettifunk/vksync/engine/validation/subresource"
	"github.com/spaghettifunk/vksync/engine/vulkan"
)

type LayoutRange = rangemap.Range[uint64]

// InitialLayoutState records what first used a subresource in a recording.
type InitialLayoutState struct {
	ImageView  report.Handle
	AspectMask vk.ImageAspectFlags
}

type LayoutEntry struct {
	Initial vk.ImageLayout
	Current vk.ImageLayout
	State   *InitialLayoutState
}

func NewLayoutEntry() LayoutEntry {
	return LayoutEntry{Initial: vulkan.InvalidLayout, Current: vulkan.InvalidLayout}
}

func (e LayoutEntry) HasInitial() bool { return e.Initial != vulkan.InvalidLayout }
func (e LayoutEntry) HasCurrent() bool { return e.Current != vulkan.InvalidLayout }

// Layout is Current when set, else Initial.
func (e LayoutEntry) Layout() vk.ImageLayout {
	if e.HasCurrent() {
		return e.Current
	}
	return e.Initial
}

// SubresourceLayoutMap holds the layouts one command buffer expects and
// establishes for one image.
type SubresourceLayoutMap struct {
	image   report.Handle
	encoder *subresource.Encoder
	layouts *rangemap.Map[uint64, LayoutEntry]
}

func NewSubresourceLayoutMap(image report.Handle, encoder *subresource.Encoder) *SubresourceLayoutMap {
	return &SubresourceLayoutMap{
		image:   image,
		encoder: encoder,
		layouts: rangemap.New[uint64, LayoutEntry](),
	}
}

func (m *SubresourceLayoutMap) Image() report.Handle { return m.image }

func (m *SubresourceLayoutMap) Encoder() *subresource.Encoder { return m.encoder }

// LayoutMap exposes the underlying range map for read-only walks.
func (m *SubresourceLayoutMap) LayoutMap() *rangemap.Map[uint64, LayoutEntry] { return m.layouts }

func (m *SubresourceLayoutMap) Decode(index uint64) subresource.Subresource {
	return m.encoder.Decode(index)
}

// SetSubresourceRangeLayout records a transition to layout. The first touch
// of a subresource also seeds its initial layout with expectedInitial, or with
// layout when expectedInitial is InvalidLayout. Returns true if anything changed.
func (m *SubresourceLayoutMap) SetSubresourceRangeLayout(rng vk.ImageSubresourceRange, layout, expectedInitial vk.ImageLayout) bool {
	if expectedInitial == vulkan.InvalidLayout {
		expectedInitial = layout
	}
	updated := false
	for _, r := range m.encoder.RangeGen(rng) {
		m.layouts.Update(r, func(e LayoutEntry, present bool) (LayoutEntry, bool) {
			if !present {
				e = NewLayoutEntry()
			}
			if e.Current != layout {
				e.Current = layout
				updated = true
			}
			if !e.HasInitial() {
				e.Initial = expectedInitial
				updated = true
			}
			return e, true
		})
	}
	return updated
}

// SetSubresourceRangeInitialLayout records that the range is expected in
// layout, for subresources not touched yet in this recording.
func (m *SubresourceLayoutMap) SetSubresourceRangeInitialLayout(rng vk.ImageSubresourceRange, layout vk.ImageLayout, state *InitialLayoutState) bool {
	updated := false
	for _, r := range m.encoder.RangeGen(rng) {
		m.layouts.Update(r, func(e LayoutEntry, present bool) (LayoutEntry, bool) {
			if !present {
				e = NewLayoutEntry()
			}
			if !e.HasInitial() {
				e.Initial = layout
				e.State = state
				updated = true
			}
			return e, true
		})
	}
	return updated
}

// SubresourceLayouts returns the entry for a single subresource.
func (m *SubresourceLayoutMap) SubresourceLayouts(s subresource.Subresource) (LayoutEntry, bool) {
	if m.encoder.AspectMask()&s.AspectMask == 0 || s.MipLevel >= m.encoder.MipLevels() || s.ArrayLayer >= m.encoder.ArrayLayers() {
		return LayoutEntry{}, false
	}
	return m.layouts.Get(m.encoder.Encode(s))
}

// AnyInRange visits every recorded entry overlapping rng and ORs the results.
func (m *SubresourceLayoutMap) AnyInRange(rng vk.ImageSubresourceRange, visit func(LayoutRange, LayoutEntry) bool) bool {
	skip := false
	for _, r := range m.encoder.RangeGen(rng) {
		if m.layouts.AnyInRange(r, visit) {
			skip = true
		}
	}
	return skip
}

// UpdateFrom folds the layouts of a later recording (an executed secondary)
// into m: initial layouts only where m has none, current layouts wherever
// other has one.
func (m *SubresourceLayoutMap) UpdateFrom(other *SubresourceLayoutMap) bool {
	updated := false
	rangemap.Splice(m.layouts, other.layouts, func(dst LayoutEntry, present bool, src LayoutEntry) (LayoutEntry, bool) {
		if !present {
			dst = NewLayoutEntry()
		}
		if !dst.HasInitial() && src.HasInitial() {
			dst.Initial = src.Initial
			dst.State = src.State
			updated = true
		}
		if src.HasCurrent() && dst.Current != src.Current {
			dst.Current = src.Current
			updated = true
		}
		return dst, true
	})
	return updated
}

func (m *SubresourceLayoutMap) Clone() *SubresourceLayoutMap {
	return &SubresourceLayoutMap{
		image:   m.image,
		encoder: m.encoder,
		layouts: m.layouts.Clone(),
	}
}

func (m *SubresourceLayoutMap) Empty() bool {
	return m.layouts.Empty()
}
