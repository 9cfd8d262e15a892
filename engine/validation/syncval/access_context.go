package syncval

import (
	vk "github.com/goki/vulkan"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/vksync/engine/containers/rangemap"
	"github.com/spaghettifunk/vksync/engine/validation/report"
	"github.com/spaghettifunk/vksync/engine/validation/state"
	"github.com/spaghettifunk/vksync/engine/vulkan"
)

type accessMap = rangemap.Map[uint64, AccessState]

// ResourceAccessRange addresses part of a buffer or image. Buffers are
// keyed by byte offset, images by encoded subresource index.
type ResourceAccessRange struct {
	Resource report.TypedHandle
	Ranges   []rangemap.Range[uint64]
}

func (r ResourceAccessRange) Empty() bool {
	for _, rng := range r.Ranges {
		if !rng.Empty() {
			return false
		}
	}
	return true
}

func BufferRange(b *state.Buffer, offset, size uint64) ResourceAccessRange {
	if b == nil {
		return ResourceAccessRange{}
	}
	end := b.CreateInfo.Size
	if size != vulkan.WholeSize && offset+size < end {
		end = offset + size
	}
	if offset > end {
		offset = end
	}
	return ResourceAccessRange{
		Resource: b.Handle(),
		Ranges:   []rangemap.Range[uint64]{rangemap.MakeRange(offset, end)},
	}
}

func ImageRange(img *state.Image, rng vk.ImageSubresourceRange) ResourceAccessRange {
	if img == nil {
		return ResourceAccessRange{}
	}
	return ResourceAccessRange{
		Resource: img.Handle(),
		Ranges:   img.Encoder.RangeGen(img.NormalizeSubresourceRange(rng)),
	}
}

func ImageLayersRange(img *state.Image, layers vk.ImageSubresourceLayers) ResourceAccessRange {
	if img == nil {
		return ResourceAccessRange{}
	}
	return ResourceAccessRange{
		Resource: img.Handle(),
		Ranges:   img.Encoder.RangeGen(img.Encoder.NormalizeLayers(layers)),
	}
}

func ImageViewRange(view *state.ImageView) ResourceAccessRange {
	if view == nil || view.Image == nil {
		return ResourceAccessRange{}
	}
	return ImageRange(view.Image, view.Range)
}

// AccessContext holds the access state of every resource touched in one
// recording or on the device timeline.
type AccessContext struct {
	resources map[report.TypedHandle]*accessMap
}

func NewAccessContext() *AccessContext {
	return &AccessContext{resources: make(map[report.TypedHandle]*accessMap)}
}

func (c *AccessContext) Clone() *AccessContext {
	out := NewAccessContext()
	for h, m := range c.resources {
		out.resources[h] = m.Clone()
	}
	return out
}

func (c *AccessContext) Reset() {
	maps.Clear(c.resources)
}

// Resources lists the tracked resources in handle order.
func (c *AccessContext) Resources() []report.TypedHandle {
	keys := maps.Keys(c.resources)
	slices.SortFunc(keys, func(a, b report.TypedHandle) int {
		switch {
		case a.Handle < b.Handle:
			return -1
		case a.Handle > b.Handle:
			return 1
		}
		return int(a.Type) - int(b.Type)
	})
	return keys
}

func (c *AccessContext) accessMap(h report.TypedHandle) *accessMap {
	m, ok := c.resources[h]
	if !ok {
		m = rangemap.New[uint64, AccessState]()
		c.resources[h] = m
	}
	return m
}

// ForEachAccess visits the stored states of res.
func (c *AccessContext) ForEachAccess(res report.TypedHandle, fn func(rangemap.Range[uint64], AccessState)) {
	if m, ok := c.resources[res]; ok {
		for _, e := range m.Entries() {
			fn(e.Range, e.Value)
		}
	}
}

// DetectHazard returns the first hazard of usage over res.
func (c *AccessContext) DetectHazard(res ResourceAccessRange, usage SyncStageAccessIndex, rasterFloor ResourceUsageTag) HazardResult {
	m, ok := c.resources[res.Resource]
	if !ok {
		return HazardResult{}
	}
	var found HazardResult
	for _, rng := range res.Ranges {
		m.ForEachInRange(rng, func(_ rangemap.Range[uint64], a AccessState) {
			if !found.IsHazard() {
				found = a.DetectHazard(usage, rasterFloor)
			}
		})
		if found.IsHazard() {
			break
		}
	}
	return found
}

func (c *AccessContext) DetectBarrierHazard(res ResourceAccessRange, b SyncBarrier, scope barrierScope) HazardResult {
	m, ok := c.resources[res.Resource]
	if !ok {
		return HazardResult{}
	}
	var found HazardResult
	for _, rng := range res.Ranges {
		m.ForEachInRange(rng, func(_ rangemap.Range[uint64], a AccessState) {
			if !found.IsHazard() {
				found = a.DetectBarrierHazard(b.SrcExecScope, b.SrcAccessScope, scope)
			}
		})
		if found.IsHazard() {
			break
		}
	}
	return found
}

// UpdateAccess records usage over res, filling untouched memory.
func (c *AccessContext) UpdateAccess(res ResourceAccessRange, usage SyncStageAccessIndex, tag ResourceUsageTag, queue QueueID) {
	if res.Empty() {
		return
	}
	m := c.accessMap(res.Resource)
	for _, rng := range res.Ranges {
		m.Update(rng, func(a AccessState, _ bool) (AccessState, bool) {
			a.Update(usage, tag, queue)
			return a, true
		})
	}
}

// ApplyBarrier stages a barrier for res, or for every resource when res
// is nil. A layout transition also covers memory no access touched yet.
func (c *AccessContext) ApplyBarrier(res *ResourceAccessRange, b SyncBarrier, scope barrierScope, layoutTransition bool) {
	apply := func(a AccessState, present bool) (AccessState, bool) {
		if !present && !layoutTransition {
			return a, false
		}
		a.ApplyBarrier(scope, b, layoutTransition)
		return a, true
	}
	if res == nil {
		for _, m := range c.resources {
			m.Transform(func(a AccessState) (AccessState, bool) {
				return apply(a, true)
			})
		}
		return
	}
	if res.Empty() {
		return
	}
	m := c.accessMap(res.Resource)
	for _, rng := range res.Ranges {
		m.Update(rng, apply)
	}
}

// ApplyPendingBarriers commits the staged barriers of the command tagged tag.
func (c *AccessContext) ApplyPendingBarriers(tag ResourceUsageTag) {
	for _, m := range c.resources {
		m.Transform(func(a AccessState) (AccessState, bool) {
			if a.hasPending() {
				a.ApplyPendingBarriers(tag)
			}
			return a, true
		})
		m.Coalesce(equalAccessStates)
	}
}

// MinTag returns the oldest tag any stored access refers to.
func (c *AccessContext) MinTag() (ResourceUsageTag, bool) {
	floor, found := kMaxTag, false
	for _, m := range c.resources {
		for _, e := range m.Entries() {
			if tag, ok := e.Value.minTag(); ok {
				floor, found = min(floor, tag), true
			}
		}
	}
	return floor, found
}

// Rebase moves every stored tag down by delta.
func (c *AccessContext) Rebase(delta ResourceUsageTag) {
	if delta == 0 {
		return
	}
	for _, m := range c.resources {
		m.Transform(func(a AccessState) (AccessState, bool) {
			a.rebase(delta)
			return a, true
		})
	}
}

// Retire drops the completed accesses of queue up to tag.
func (c *AccessContext) Retire(queue QueueID, tag ResourceUsageTag) {
	for h, m := range c.resources {
		m.Transform(func(a AccessState) (AccessState, bool) {
			a.Retire(queue, tag)
			return a, !a.Empty()
		})
		if m.Empty() {
			delete(c.resources, h)
			continue
		}
		m.Coalesce(equalAccessStates)
	}
}
