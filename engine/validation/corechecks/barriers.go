package corechecks

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vksync/engine/validation/imagelayout"
	"github.com/spaghettifunk/vksync/engine/validation/report"
	"github.com/spaghettifunk/vksync/engine/validation/state"
	"github.com/spaghettifunk/vksync/engine/vulkan"
)

func barrierVUID[B state.ImageBarrier](b B, suffix string) string {
	if b.IsSynchronization2() {
		return "VUID-VkImageMemoryBarrier2-" + suffix
	}
	return "VUID-VkImageMemoryBarrier-" + suffix
}

// ValidateBarriersToImages checks the old and new layouts of a command's
// image barriers. Each barrier is checked against the layouts the recording
// holds plus the transitions of the barriers before it in the same command.
func ValidateBarriersToImages[B state.ImageBarrier](c *CoreChecks, cb *state.CommandBuffer, barriers []B, loc report.Location) bool {
	if c.layoutValidationDisabled() {
		return false
	}
	skip := false
	scratch := make(map[*state.Image]*imagelayout.SubresourceLayoutMap)
	family := cb.Pool.QueueFamilyIndex()

	for i, b := range barriers {
		img := b.BarrierImage()
		if img == nil {
			continue
		}
		bloc := loc.At(barrierField(b), i)
		oldLayout, newLayout := b.Layouts()
		if newLayout == vk.ImageLayoutUndefined || newLayout == vk.ImageLayoutPreinitialized {
			skip = c.LogError(report.Objects(cb.Handle(), img.Handle()), barrierVUID(b, "newLayout-01198"), bloc.Dot("newLayout"),
				"Image Layout cannot be transitioned to UNDEFINED or PREINITIALIZED.") || skip
		}
		if b.IsSynchronization2() && oldLayout == newLayout {
			continue
		}

		m, ok := scratch[img]
		if !ok {
			if cur := cb.ImageLayoutMap(img); cur != nil {
				m = cur.Clone()
			} else {
				m = imagelayout.NewSubresourceLayoutMap(img.Handle().Handle, img.Encoder)
			}
			scratch[img] = m
		}

		srcFamily, _ := b.QueueFamilies()
		rng := img.NormalizeSubresourceRange(b.BarrierRange())
		if oldLayout != vk.ImageLayoutUndefined && srcFamily != vulkan.QueueFamilyExternal {
			// Aspects are checked one at a time for separate depth and stencil layouts.
			for aspect := vk.ImageAspectFlags(1); aspect != 0 && aspect <= rng.AspectMask; aspect <<= 1 {
				if rng.AspectMask&aspect == 0 {
					continue
				}
				check := newLayoutUseCheck(oldLayout, aspect)
				sub := rng
				sub.AspectMask = aspect
				skip = m.AnyInRange(sub, func(r imagelayout.LayoutRange, e imagelayout.LayoutEntry) bool {
					if check.Check(e) {
						return false
					}
					s := m.Decode(r.Begin)
					return c.LogError(report.Objects(cb.Handle(), img.Handle()), barrierVUID(b, "oldLayout-01197"), bloc.Dot("oldLayout"),
						"%s cannot transition the layout of aspect=%d level=%d layer=%d from %s when the %s layout is %s.",
						c.fmtHandle(img.Handle()), s.AspectMask, s.MipLevel, s.ArrayLayer, vulkan.ImageLayoutString(oldLayout),
						check.message, vulkan.ImageLayoutString(check.layout))
				}) || skip
			}
		}
		transitionLayoutMap(m, img, b, state.IsOwnershipRelease(b, family))
	}
	return skip
}

func barrierField[B state.ImageBarrier](b B) string {
	if b.IsSynchronization2() {
		return "pImageMemoryBarriers2"
	}
	return "pImageMemoryBarriers"
}

// transitionRange widens the barrier range of a 2D array compatible volume
// to every depth slice.
func transitionRange(img *state.Image, rng vk.ImageSubresourceRange) vk.ImageSubresourceRange {
	n := img.NormalizeSubresourceRange(rng)
	if img.CreateInfo.Flags&vulkan.ImageCreate2dArrayCompatible != 0 {
		n.BaseArrayLayer = 0
		n.LayerCount = img.CreateInfo.Extent.Depth
	}
	return n
}

func barrierLayouts[B state.ImageBarrier](b B) (initial, newLayout vk.ImageLayout) {
	oldLayout, newLayout := b.Layouts()
	aspect := b.BarrierRange().AspectMask
	initial = imagelayout.NormalizeSynchronization2Layout(aspect, oldLayout)
	newLayout = imagelayout.NormalizeSynchronization2Layout(aspect, newLayout)
	// Transitions made by an external instance are not tracked.
	if src, _ := b.QueueFamilies(); src == vulkan.QueueFamilyExternal {
		initial = vk.ImageLayoutUndefined
	}
	return initial, newLayout
}

func transitionLayoutMap[B state.ImageBarrier](m *imagelayout.SubresourceLayoutMap, img *state.Image, b B, release bool) {
	rng := transitionRange(img, b.BarrierRange())
	initial, newLayout := barrierLayouts(b)
	if release {
		m.SetSubresourceRangeInitialLayout(rng, initial, nil)
		return
	}
	m.SetSubresourceRangeLayout(rng, newLayout, initial)
}

// RecordTransitionImageLayout applies one barrier to the recording. The
// release half of a queue family ownership transfer only records the layout
// it expects; the acquire half performs the transition.
func RecordTransitionImageLayout[B state.ImageBarrier](c *CoreChecks, cb *state.CommandBuffer, b B, release bool) {
	img := b.BarrierImage()
	if c.features().Synchronization2 {
		if oldLayout, newLayout := b.Layouts(); oldLayout == newLayout {
			return
		}
	}
	rng := transitionRange(img, b.BarrierRange())
	initial, newLayout := barrierLayouts(b)
	if release {
		cb.SetImageInitialLayout(img, rng, initial)
		return
	}
	cb.SetImageLayout(img, rng, newLayout, initial)
}

func TransitionImageLayouts[B state.ImageBarrier](c *CoreChecks, cb *state.CommandBuffer, barriers []B) {
	family := cb.Pool.QueueFamilyIndex()
	for _, b := range barriers {
		if b.BarrierImage() == nil {
			continue
		}
		RecordTransitionImageLayout(c, cb, b, state.IsOwnershipRelease(b, family))
	}
}

func (c *CoreChecks) PreCallValidateCmdPipelineBarrier(cb *state.CommandBuffer, info *state.PipelineBarrierInfo) bool {
	loc := report.Loc("vkCmdPipelineBarrier")
	skip := c.ValidateCmd(cb, loc)
	return ValidateBarriersToImages(c, cb, info.ImageMemoryBarriers, loc) || skip
}

func (c *CoreChecks) PostCallRecordCmdPipelineBarrier(cb *state.CommandBuffer, info *state.PipelineBarrierInfo) {
	for _, b := range info.BufferMemoryBarriers {
		if b.Buffer != nil {
			cb.AddChild(b.Buffer)
		}
	}
	TransitionImageLayouts(c, cb, info.ImageMemoryBarriers)
}

func (c *CoreChecks) PreCallValidateCmdPipelineBarrier2(cb *state.CommandBuffer, dep *state.DependencyInfo) bool {
	loc := report.Loc("vkCmdPipelineBarrier2")
	skip := c.ValidateCmd(cb, loc)
	return ValidateBarriersToImages(c, cb, dep.ImageMemoryBarriers, loc.Dot("pDependencyInfo")) || skip
}

func (c *CoreChecks) PostCallRecordCmdPipelineBarrier2(cb *state.CommandBuffer, dep *state.DependencyInfo) {
	for _, b := range dep.BufferMemoryBarriers {
		if b.Buffer != nil {
			cb.AddChild(b.Buffer)
		}
	}
	TransitionImageLayouts(c, cb, dep.ImageMemoryBarriers)
}

func (c *CoreChecks) PreCallValidateCmdWaitEvents(cb *state.CommandBuffer, info *state.WaitEventsInfo) bool {
	loc := report.Loc("vkCmdWaitEvents")
	skip := c.ValidateCmd(cb, loc)
	return ValidateBarriersToImages(c, cb, info.Dependency.ImageMemoryBarriers, loc) || skip
}

func (c *CoreChecks) PostCallRecordCmdWaitEvents(cb *state.CommandBuffer, info *state.WaitEventsInfo) {
	for _, e := range info.Events {
		cb.AddChild(e)
	}
	TransitionImageLayouts(c, cb, info.Dependency.ImageMemoryBarriers)
}

// PreCallValidateCmdSetEvent also validates vkCmdResetEvent.
func (c *CoreChecks) PreCallValidateCmdSetEvent(function string, cb *state.CommandBuffer, event *state.Event) bool {
	loc := report.Loc(function)
	skip := c.ValidateCmd(cb, loc)
	return c.insideRenderPass(cb, loc, "VUID-"+function+"-renderpass") || skip
}

func (c *CoreChecks) PostCallRecordCmdSetEvent(cb *state.CommandBuffer, event *state.Event) {
	if event != nil {
		cb.AddChild(event)
	}
}
