package corechecks

import (
	"fmt"
	"strings"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vksync/engine/core"
	"github.com/spaghettifunk/vksync/engine/validation/report"
	"github.com/spaghettifunk/vksync/engine/validation/state"
	"github.com/spaghettifunk/vksync/engine/vulkan"
)

const (
	kMaxViewports = state.MaxViewports

	kNotTrashed       = ^uint32(0) - 1
	kTrashedByPrimary = ^uint32(0)

	kVUIDInheritedViewportScissor = "VUID-vkCmdDraw-commandBuffer-02701"
)

// ViewportScissorInheritanceTracker replays the viewport and scissor state
// of one vkCmdExecuteCommands call: the primary's state first, then every
// secondary in order. Secondaries that inherit viewport/scissor state are
// checked against what the previous ones left defined.
type ViewportScissorInheritanceTracker struct {
	checks  *CoreChecks
	primary *state.CommandBuffer
	loc     report.Location

	viewportMask uint32
	scissorMask  uint32

	viewportTrashedBy  [kMaxViewports]uint32
	scissorTrashedBy   [kMaxViewports]uint32
	viewportsToInherit [kMaxViewports]vk.Viewport

	// Viewports of static pipeline state that trashed a slot, valid where
	// staticViewportMask is set.
	staticViewports    [kMaxViewports]vk.Viewport
	staticViewportMask uint32

	viewportCountToInherit uint32
	scissorCountToInherit  uint32
	viewportCountTrashedBy uint32
	scissorCountTrashedBy  uint32
}

func NewViewportScissorInheritanceTracker(c *CoreChecks, loc report.Location) *ViewportScissorInheritanceTracker {
	return &ViewportScissorInheritanceTracker{checks: c, loc: loc}
}

func trashedBy(mask, bit uint32, by uint32) uint32 {
	if mask&bit != 0 {
		return by
	}
	return kNotTrashed
}

func (t *ViewportScissorInheritanceTracker) VisitPrimary(primary *state.CommandBuffer) bool {
	core.Assert(t.primary == nil, "viewport tracker visited two primaries")
	t.primary = primary
	vs := &primary.ViewportScissor

	t.viewportMask = vs.ViewportMask | vs.ViewportWithCountMask
	t.scissorMask = vs.ScissorMask | vs.ScissorWithCountMask
	for n := 0; n < kMaxViewports; n++ {
		bit := uint32(1) << n
		t.viewportTrashedBy[n] = trashedBy(vs.TrashedViewportMask, bit, kTrashedByPrimary)
		t.scissorTrashedBy[n] = trashedBy(vs.TrashedScissorMask, bit, kTrashedByPrimary)
		if t.viewportMask&bit != 0 {
			t.viewportsToInherit[n] = vs.DynamicViewports[n]
		}
	}
	t.staticViewportMask = 0

	t.viewportCountToInherit = vs.ViewportWithCountCount
	t.scissorCountToInherit = vs.ScissorWithCountCount
	t.viewportCountTrashedBy = kNotTrashed
	if vs.TrashedViewportCount {
		t.viewportCountTrashedBy = kTrashedByPrimary
	}
	t.scissorCountTrashedBy = kNotTrashed
	if vs.TrashedScissorCount {
		t.scissorCountTrashedBy = kTrashedByPrimary
	}
	return false
}

func (t *ViewportScissorInheritanceTracker) VisitSecondary(index uint32, secondary *state.CommandBuffer) bool {
	skip := false
	vs := &secondary.ViewportScissor
	if len(vs.InheritedViewportDepths) == 0 {
		skip = t.visitSecondaryNoInheritance(index, secondary)
	} else {
		skip = t.visitSecondaryInheritance(index, secondary)
	}

	// A secondary that inherits may still define the counts statically
	// through a bound pipeline, so count trashing is applied last.
	if vs.TrashedViewportCount {
		t.viewportCountTrashedBy = index
	}
	if vs.TrashedScissorCount {
		t.scissorCountTrashedBy = index
	}
	return skip
}

func (t *ViewportScissorInheritanceTracker) visitSecondaryNoInheritance(index uint32, secondary *state.CommandBuffer) bool {
	vs := &secondary.ViewportScissor
	definedViewports := vs.ViewportMask | vs.ViewportWithCountMask
	definedScissors := vs.ScissorMask | vs.ScissorWithCountMask
	t.viewportMask |= definedViewports
	t.scissorMask |= definedScissors

	for n := 0; n < kMaxViewports; n++ {
		bit := uint32(1) << n
		if definedViewports&bit != 0 {
			t.viewportsToInherit[n] = vs.DynamicViewports[n]
			t.viewportTrashedBy[n] = kNotTrashed
			t.staticViewportMask &^= bit
		}
		if definedScissors&bit != 0 {
			t.scissorTrashedBy[n] = kNotTrashed
		}
		// Trashing is applied after definition.
		if vs.TrashedViewportMask&bit != 0 {
			t.viewportTrashedBy[n] = index
			if vs.StaticViewportMask&bit != 0 {
				t.staticViewports[n] = vs.StaticViewports[n]
				t.staticViewportMask |= bit
			} else {
				t.staticViewportMask &^= bit
			}
		}
		if vs.TrashedScissorMask&bit != 0 {
			t.scissorTrashedBy[n] = index
		}
	}
	if vs.ViewportWithCountCount != 0 {
		t.viewportCountToInherit = vs.ViewportWithCountCount
		t.viewportCountTrashedBy = kNotTrashed
	}
	if vs.ScissorWithCountCount != 0 {
		t.scissorCountToInherit = vs.ScissorWithCountCount
		t.scissorCountTrashedBy = kNotTrashed
	}
	return false
}

type inheritCheck struct {
	defined   bool
	trashedBy uint32
	state     vk.DynamicState
	index     uint32
	staticUse uint32
	inherited *vk.Viewport
	expected  *vk.Viewport
}

func (t *ViewportScissorInheritanceTracker) depthMismatch(index uint32, secondary *state.CommandBuffer, chk inheritCheck, vp *vk.Viewport) bool {
	withCount := ""
	if chk.index >= chk.staticUse {
		withCount = "(with count) "
	}
	return t.checks.LogError(report.Objects(t.primary.Handle(), secondary.Handle()), kVUIDInheritedViewportScissor, t.loc,
		"Draw commands in pCommandBuffers[%d] (%s) consume inherited viewport %d %sbut this state was not inherited as its depth range [%f, %f] does not match pViewportDepths[%d] = [%f, %f]",
		index, t.checks.fmtHandle(secondary.Handle()), chk.index, withCount, vp.MinDepth, vp.MaxDepth,
		chk.index, chk.expected.MinDepth, chk.expected.MaxDepth)
}

func sameDepth(a, b *vk.Viewport) bool {
	return a.MinDepth == b.MinDepth && a.MaxDepth == b.MaxDepth
}

func (t *ViewportScissorInheritanceTracker) checkMissingInherit(index uint32, secondary *state.CommandBuffer, chk inheritCheck) bool {
	if chk.defined && chk.trashedBy == kNotTrashed {
		if chk.state != vk.DynamicStateViewport {
			return false
		}
		if sameDepth(chk.inherited, chk.expected) {
			return false
		}
		return t.depthMismatch(index, secondary, chk, chk.inherited)
	}

	// Static pipeline state of an earlier secondary defines the viewport,
	// only its depth range can disagree.
	if chk.state == vk.DynamicStateViewport && chk.trashedBy != kTrashedByPrimary && chk.trashedBy != kNotTrashed &&
		t.staticViewportMask&(uint32(1)<<chk.index) != 0 {
		static := &t.staticViewports[chk.index]
		if sameDepth(static, chk.expected) {
			return false
		}
		return t.depthMismatch(index, secondary, chk, static)
	}

	var (
		stateName   string
		formatIndex bool
	)
	switch chk.state {
	case vk.DynamicStateScissor:
		stateName, formatIndex = "scissor", true
	case vk.DynamicStateViewport:
		stateName, formatIndex = "viewport", true
	case vulkan.DynamicStateViewportWithCount:
		stateName = "dynamic viewport count"
	case vulkan.DynamicStateScissorWithCount:
		stateName = "dynamic scissor count"
	default:
		core.Assert(false, "unexpected dynamic state %d", chk.state)
		stateName = "<unknown state>"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Draw commands in pCommandBuffers[%d] (%s) consume inherited %s ", index, t.checks.fmtHandle(secondary.Handle()), stateName)
	if formatIndex {
		if chk.index >= chk.staticUse {
			sb.WriteString("(with count) ")
		}
		fmt.Fprintf(&sb, "%d ", chk.index)
	}
	sb.WriteString("but this state ")
	switch {
	case !chk.defined:
		sb.WriteString("was never defined.")
	case chk.trashedBy == kTrashedByPrimary:
		sb.WriteString("was left undefined after vkCmdExecuteCommands or vkCmdBindPipeline (with non-dynamic state) in the calling primary command buffer.")
	default:
		fmt.Fprintf(&sb, "was left undefined after vkCmdBindPipeline (with non-dynamic state) in pCommandBuffers[%d].", chk.trashedBy)
	}
	return t.checks.LogError(report.Objects(t.primary.Handle(), secondary.Handle()), kVUIDInheritedViewportScissor, t.loc, "%s", sb.String())
}

func (t *ViewportScissorInheritanceTracker) visitSecondaryInheritance(index uint32, secondary *state.CommandBuffer) bool {
	skip := false
	vs := &secondary.ViewportScissor
	depths := vs.InheritedViewportDepths
	var checkViewportCount, checkScissorCount uint32

	if vs.UsedDynamicViewportCount {
		if t.viewportCountToInherit == 0 || t.viewportCountTrashedBy != kNotTrashed {
			skip = t.checkMissingInherit(index, secondary, inheritCheck{
				defined:   t.viewportCountToInherit != 0,
				trashedBy: t.viewportCountTrashedBy,
				state:     vulkan.DynamicStateViewportWithCount,
			}) || skip
		} else {
			checkViewportCount = t.viewportCountToInherit
		}
	}
	if vs.UsedDynamicScissorCount {
		if t.scissorCountToInherit == 0 || t.scissorCountTrashedBy != kNotTrashed {
			skip = t.checkMissingInherit(index, secondary, inheritCheck{
				defined:   t.scissorCountToInherit != 0,
				trashedBy: t.scissorCountTrashedBy,
				state:     vulkan.DynamicStateScissorWithCount,
			}) || skip
		} else {
			checkScissorCount = t.scissorCountToInherit
		}
	}

	// Viewports beyond pViewportDepths cannot be inherited at all.
	checkViewportCount = min(uint32(kMaxViewports), uint32(len(depths)), max(checkViewportCount, vs.UsedViewportScissorCount))
	checkScissorCount = min(uint32(kMaxViewports), max(checkScissorCount, vs.UsedViewportScissorCount))

	if vs.UsedDynamicViewportCount && t.viewportCountToInherit > uint32(len(depths)) {
		skip = t.checks.LogError(report.Objects(t.primary.Handle(), secondary.Handle()), kVUIDInheritedViewportScissor, t.loc,
			"Draw commands in pCommandBuffers[%d] (%s) consume inherited dynamic viewport with count state but the dynamic viewport count (%d) exceeds the inheritance limit (viewportDepthCount=%d).",
			index, t.checks.fmtHandle(secondary.Handle()), t.viewportCountToInherit, len(depths)) || skip
	}

	for n := uint32(0); n < checkViewportCount; n++ {
		skip = t.checkMissingInherit(index, secondary, inheritCheck{
			defined:   t.viewportMask&(uint32(1)<<n) != 0,
			trashedBy: t.viewportTrashedBy[n],
			state:     vk.DynamicStateViewport,
			index:     n,
			staticUse: vs.UsedViewportScissorCount,
			inherited: &t.viewportsToInherit[n],
			expected:  &depths[n],
		}) || skip
	}
	for n := uint32(0); n < checkScissorCount; n++ {
		skip = t.checkMissingInherit(index, secondary, inheritCheck{
			defined:   t.scissorMask&(uint32(1)<<n) != 0,
			trashedBy: t.scissorTrashedBy[n],
			state:     vk.DynamicStateScissor,
			index:     n,
			staticUse: vs.UsedViewportScissorCount,
		}) || skip
	}
	return skip
}
