package imagelayout

import (
	"sync"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/vksync/engine/containers/rangemap"
	"github.com/spaghettifunk/vksync/engine/validation/report"
	"github.com/spaghettifunk/vksync/engine/validation/subresource"
	"github.com/spaghettifunk/vksync/engine/vulkan"
)

type LayoutMap = rangemap.Map[uint64, vk.ImageLayout]

// GlobalImageLayoutRangeMap is the layout every subresource of one image is
// in once all submitted work completes. It is shared by every command buffer
// and only written when a submission is committed.
type GlobalImageLayoutRangeMap struct {
	mu      sync.RWMutex
	encoder *subresource.Encoder
	layouts *LayoutMap
}

func NewGlobalImageLayoutRangeMap(encoder *subresource.Encoder) *GlobalImageLayoutRangeMap {
	return &GlobalImageLayoutRangeMap{
		encoder: encoder,
		layouts: rangemap.New[uint64, vk.ImageLayout](),
	}
}

func (g *GlobalImageLayoutRangeMap) Encoder() *subresource.Encoder { return g.encoder }

// Read runs fn with the read lock held.
func (g *GlobalImageLayoutRangeMap) Read(fn func(*LayoutMap)) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	fn(g.layouts)
}

// Write runs fn with the write lock held.
func (g *GlobalImageLayoutRangeMap) Write(fn func(*LayoutMap)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(g.layouts)
}

// SetSubresourceRangeLayout sets the global layout of rng, as image creation
// and presentation do outside any command buffer.
func (g *GlobalImageLayoutRangeMap) SetSubresourceRangeLayout(rng vk.ImageSubresourceRange, layout vk.ImageLayout) {
	g.Write(func(m *LayoutMap) {
		for _, r := range g.encoder.RangeGen(rng) {
			m.Overwrite(r, layout)
		}
	})
}

// Layout returns the layout of a single subresource.
func (g *GlobalImageLayoutRangeMap) Layout(s subresource.Subresource) (vk.ImageLayout, bool) {
	var (
		l  vk.ImageLayout
		ok bool
	)
	g.Read(func(m *LayoutMap) {
		l, ok = m.Get(g.encoder.Encode(s))
	})
	return l, ok
}

// Overlay collects the layouts established by command buffers validated
// earlier in the same submission batch, before they are committed.
type Overlay struct {
	ID   uuid.UUID
	maps map[report.Handle]*LayoutMap
}

func NewOverlay() *Overlay {
	return &Overlay{
		ID:   uuid.New(),
		maps: make(map[report.Handle]*LayoutMap),
	}
}

func (o *Overlay) Get(image report.Handle) (*LayoutMap, bool) {
	m, ok := o.maps[image]
	return m, ok
}

func (o *Overlay) GetOrCreate(image report.Handle) *LayoutMap {
	m, ok := o.maps[image]
	if !ok {
		m = rangemap.New[uint64, vk.ImageLayout]()
		o.maps[image] = m
	}
	return m
}

func (o *Overlay) Len() int {
	return len(o.maps)
}

// Mismatch is one subresource whose expected initial layout differs from
// the layout earlier work leaves it in.
type Mismatch struct {
	Index       uint64
	Subresource subresource.Subresource
	Expected    vk.ImageLayout
	Actual      vk.ImageLayout
}

var emptyLayoutMap = rangemap.New[uint64, vk.ImageLayout]()

// FindInitialLayoutMismatches walks the local map of one command buffer
// against the overlay (first) and the global map, and calls onMismatch for every
// subresource whose initial layout disagrees. Subresources with an UNDEFINED
// initial layout or without any known prior layout are not checked.
func FindInitialLayoutMismatches(local *SubresourceLayoutMap, overlay *LayoutMap, global *GlobalImageLayoutRangeMap, onMismatch func(Mismatch)) {
	if local.Empty() {
		return
	}
	if overlay == nil {
		overlay = emptyLayoutMap
	}
	encoder := local.Encoder()
	global.Read(func(gm *LayoutMap) {
		if overlay.Empty() && gm.Empty() {
			return
		}
		it := rangemap.NewParallelIterator(overlay, gm, 0)
		for _, entry := range local.LayoutMap().Entries() {
			initial := entry.Value.Initial
			if initial == vulkan.InvalidLayout || initial == vk.ImageLayoutUndefined {
				continue
			}
			it.Seek(entry.Range.Begin)
			for {
				prior := vulkan.InvalidLayout
				if l, ok := it.A(); ok {
					prior = l
				} else if l, ok := it.B(); ok {
					prior = l
				}
				inter := entry.Range.Intersect(it.Range())
				if prior != vulkan.InvalidLayout && prior != initial {
					for i := inter.Begin; i < inter.End; i++ {
						sub := encoder.Decode(i)
						if ImageLayoutMatches(sub.AspectMask, prior, initial) {
							continue
						}
						onMismatch(Mismatch{
							Index:       i,
							Subresource: sub,
							Expected:    initial,
							Actual:      prior,
						})
					}
				}
				if it.Range().End >= entry.Range.End {
					break
				}
				it.Next()
			}
		}
	})
}

// SpliceCurrentLayouts copies the current layouts of local into dst.
func SpliceCurrentLayouts(dst *LayoutMap, local *SubresourceLayoutMap) {
	rangemap.Splice(dst, local.LayoutMap(), func(old vk.ImageLayout, present bool, src LayoutEntry) (vk.ImageLayout, bool) {
		if src.HasCurrent() {
			return src.Current, true
		}
		return old, present
	})
}

// Commit writes the current layouts of local into the image's global map.
func Commit(global *GlobalImageLayoutRangeMap, local *SubresourceLayoutMap) {
	global.Write(func(gm *LayoutMap) {
		SpliceCurrentLayouts(gm, local)
	})
}
