package corechecks

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vksync/engine/validation/imagelayout"
	"github.com/spaghettifunk/vksync/engine/validation/report"
	"github.com/spaghettifunk/vksync/engine/validation/state"
	"github.com/spaghettifunk/vksync/engine/vulkan"
)

const kVUIDRenderPassInitialLayout = "VUID-vkCmdBeginRenderPass-initialLayout-00900"

func (c *CoreChecks) PreCallValidateCmdBeginRenderPass(cb *state.CommandBuffer, info *state.RenderPassBeginInfo) bool {
	loc := report.Loc("vkCmdBeginRenderPass")
	skip := c.ValidateCmd(cb, loc)
	if !cb.IsPrimary() {
		skip = c.LogError(report.Objects(cb.Handle()), "VUID-vkCmdBeginRenderPass-bufferlevel", loc,
			"%s must be a primary command buffer.", c.fmtHandle(cb.Handle())) || skip
	}
	if cb.InRenderPass() {
		skip = c.LogError(report.Objects(cb.Handle()), "VUID-vkCmdBeginRenderPass-renderpass", loc,
			"It is invalid to issue this call inside an active render pass.") || skip
	}
	if info.RenderPass == nil || info.Framebuffer == nil {
		return skip
	}
	bloc := loc.Dot("pRenderPassBegin")
	fb := info.Framebuffer
	if fb.RenderPass != nil && !fb.RenderPass.Compatible(info.RenderPass) {
		skip = c.LogError(report.Objects(cb.Handle(), info.RenderPass.Handle(), fb.Handle()), "VUID-VkRenderPassBeginInfo-renderPass-00904", bloc.Dot("renderPass"),
			"%s is not compatible with %s used to create %s.",
			c.fmtHandle(info.RenderPass.Handle()), c.fmtHandle(fb.RenderPass.Handle()), c.fmtHandle(fb.Handle())) || skip
	}
	if len(fb.Attachments) != len(info.RenderPass.CreateInfo.Attachments) {
		return c.LogError(report.Objects(cb.Handle(), info.RenderPass.Handle(), fb.Handle()), "VUID-VkRenderPassBeginInfo-framebuffer-parameter", bloc.Dot("framebuffer"),
			"%s has %d attachments but %s describes %d.", c.fmtHandle(fb.Handle()), len(fb.Attachments),
			c.fmtHandle(info.RenderPass.Handle()), len(info.RenderPass.CreateInfo.Attachments)) || skip
	}
	return c.VerifyFramebufferAndRenderPassLayouts(cb, info, bloc) || skip
}

// VerifyFramebufferAndRenderPassLayouts checks every attachment's initial
// layout against the layout the recording last left its view in. The
// stencil aspect is checked against the separate stencil layout if given.
func (c *CoreChecks) VerifyFramebufferAndRenderPassLayouts(cb *state.CommandBuffer, info *state.RenderPassBeginInfo, loc report.Location) bool {
	if c.layoutValidationDisabled() {
		return false
	}
	skip := false
	attachments := info.RenderPass.CreateInfo.Attachments
	for i, view := range info.Framebuffer.Attachments {
		if view == nil || i >= len(attachments) {
			continue
		}
		desc := attachments[i]
		stencilInitial := desc.InitialLayout
		if desc.StencilInitialLayout != vulkan.InvalidLayout {
			stencilInitial = desc.StencilInitialLayout
		}
		m := cb.ImageLayoutMap(view.Image)
		if m == nil {
			continue
		}
		for bit := 0; bit < 32; bit++ {
			aspect := vk.ImageAspectFlags(1) << bit
			if view.Range.AspectMask&aspect == 0 {
				continue
			}
			expected := desc.InitialLayout
			if aspect == vulkan.ImageAspectStencil {
				expected = stencilInitial
			}
			if expected == vk.ImageLayoutUndefined {
				continue
			}
			rng := view.Range
			rng.AspectMask = aspect
			check := newLayoutUseCheck(expected, aspect)
			skip = m.AnyInRange(rng, func(_ imagelayout.LayoutRange, e imagelayout.LayoutEntry) bool {
				if check.Check(e) {
					return false
				}
				return c.LogError(report.Objects(cb.Handle(), info.RenderPass.Handle(), view.Handle(), view.Image.Handle()), kVUIDRenderPassInitialLayout, loc,
					"You cannot start a render pass using attachment %d where the render pass initial layout is %s and the %s layout of the attachment is %s. The layouts must match, or the render pass initial layout for the attachment must be VK_IMAGE_LAYOUT_UNDEFINED",
					i, vulkan.ImageLayoutString(expected), check.message, vulkan.ImageLayoutString(check.layout))
			}) || skip
		}
	}
	return skip
}

func (c *CoreChecks) PostCallRecordCmdBeginRenderPass(cb *state.CommandBuffer, info *state.RenderPassBeginInfo) {
	cb.BeginRenderPass(info.RenderPass, info.Framebuffer, info.Contents)
	c.TransitionBeginRenderPassLayouts(cb, info.RenderPass)
}

// TransitionBeginRenderPassLayouts records the attachments' initial layouts
// and moves them into the layouts of the first subpass.
func (c *CoreChecks) TransitionBeginRenderPassLayouts(cb *state.CommandBuffer, rp *state.RenderPass) {
	for i, view := range cb.ActiveAttachments {
		if view == nil || i >= len(rp.CreateInfo.Attachments) {
			continue
		}
		desc := rp.CreateInfo.Attachments[i]
		depthStencil := view.Range.AspectMask&vulkan.ImageAspectDepthStencil == vulkan.ImageAspectDepthStencil
		if desc.StencilInitialLayout != vulkan.InvalidLayout && depthStencil {
			depth := view.Range
			depth.AspectMask = vulkan.ImageAspectDepth
			cb.SetImageInitialLayout(view.Image, depth, desc.InitialLayout)
			stencil := view.Range
			stencil.AspectMask = vulkan.ImageAspectStencil
			cb.SetImageInitialLayout(view.Image, stencil, desc.StencilInitialLayout)
			continue
		}
		cb.SetImageViewInitialLayout(view, desc.InitialLayout)
	}
	c.TransitionSubpassLayouts(cb, rp, 0)
}

// TransitionSubpassLayouts moves the input, color and depth/stencil
// attachments of a subpass into their reference layouts.
func (c *CoreChecks) TransitionSubpassLayouts(cb *state.CommandBuffer, rp *state.RenderPass, subpass uint32) {
	if subpass >= rp.SubpassCount() {
		return
	}
	sp := &rp.CreateInfo.Subpasses[subpass]
	transition := func(ref state.AttachmentReference) {
		if ref.Unused() || int(ref.Attachment) >= len(cb.ActiveAttachments) {
			return
		}
		if view := cb.ActiveAttachments[ref.Attachment]; view != nil {
			cb.SetImageViewLayout(view, ref.Layout, ref.StencilLayout)
		}
	}
	for _, ref := range sp.InputAttachments {
		transition(ref)
	}
	for _, ref := range sp.ColorAttachments {
		transition(ref)
	}
	if sp.DepthStencilAttachment != nil {
		transition(*sp.DepthStencilAttachment)
	}
}

func (c *CoreChecks) TransitionFinalSubpassLayouts(cb *state.CommandBuffer, rp *state.RenderPass) {
	for i, view := range cb.ActiveAttachments {
		if view == nil || i >= len(rp.CreateInfo.Attachments) {
			continue
		}
		desc := rp.CreateInfo.Attachments[i]
		cb.SetImageViewLayout(view, desc.FinalLayout, desc.StencilFinalLayout)
	}
}

func (c *CoreChecks) PreCallValidateCmdNextSubpass(cb *state.CommandBuffer, contents vk.SubpassContents) bool {
	loc := report.Loc("vkCmdNextSubpass")
	skip := c.ValidateCmd(cb, loc)
	if cb.ActiveRenderPass == nil {
		return c.LogError(report.Objects(cb.Handle()), "VUID-vkCmdNextSubpass-renderpass", loc,
			"This call must be issued inside an active render pass.") || skip
	}
	if cb.ActiveSubpass+1 >= cb.ActiveRenderPass.SubpassCount() {
		skip = c.LogError(report.Objects(cb.Handle(), cb.ActiveRenderPass.Handle()), "VUID-vkCmdNextSubpass-None-00909", loc,
			"Attempted to advance beyond final subpass.") || skip
	}
	return skip
}

func (c *CoreChecks) PostCallRecordCmdNextSubpass(cb *state.CommandBuffer, contents vk.SubpassContents) {
	if cb.ActiveRenderPass == nil {
		return
	}
	cb.NextSubpass(contents)
	c.TransitionSubpassLayouts(cb, cb.ActiveRenderPass, cb.ActiveSubpass)
}

func (c *CoreChecks) PreCallValidateCmdEndRenderPass(cb *state.CommandBuffer) bool {
	loc := report.Loc("vkCmdEndRenderPass")
	skip := c.ValidateCmd(cb, loc)
	if cb.ActiveRenderPass == nil {
		if cb.ActiveRendering != nil {
			return c.LogError(report.Objects(cb.Handle()), "VUID-vkCmdEndRenderPass-None-06170", loc,
				"Called when the active render pass instance was begun with vkCmdBeginRendering().") || skip
		}
		return c.outsideRenderPass(cb, loc, "VUID-vkCmdEndRenderPass-renderpass") || skip
	}
	if !cb.IsPrimary() {
		skip = c.LogError(report.Objects(cb.Handle()), "VUID-vkCmdEndRenderPass-bufferlevel", loc,
			"%s must be a primary command buffer.", c.fmtHandle(cb.Handle())) || skip
	}
	if last := cb.ActiveRenderPass.SubpassCount(); last > 0 && cb.ActiveSubpass != last-1 {
		skip = c.LogError(report.Objects(cb.Handle(), cb.ActiveRenderPass.Handle()), "VUID-vkCmdEndRenderPass-None-00910", loc,
			"Called before reaching final subpass.") || skip
	}
	return skip
}

func (c *CoreChecks) PostCallRecordCmdEndRenderPass(cb *state.CommandBuffer) {
	if rp := cb.ActiveRenderPass; rp != nil {
		c.TransitionFinalSubpassLayouts(cb, rp)
	}
	cb.EndRenderPass()
}

func (c *CoreChecks) PreCallValidateCmdBeginRendering(cb *state.CommandBuffer, info *state.RenderingInfo) bool {
	loc := report.Loc("vkCmdBeginRendering")
	skip := c.ValidateCmd(cb, loc)
	if cb.InRenderPass() {
		skip = c.LogError(report.Objects(cb.Handle()), "VUID-vkCmdBeginRendering-renderpass", loc,
			"It is invalid to issue this call inside an active render pass.") || skip
	}
	if !cb.IsPrimary() && info.Flags&vulkan.RenderingContentsSecondary != 0 {
		skip = c.LogError(report.Objects(cb.Handle()), "VUID-vkCmdBeginRendering-commandBuffer-06068", loc.Dot("pRenderingInfo").Dot("flags"),
			"%s is a secondary command buffer but VK_RENDERING_CONTENTS_SECONDARY_COMMAND_BUFFERS_BIT is set.",
			c.fmtHandle(cb.Handle())) || skip
	}
	for i, a := range info.ColorAttachments {
		if a.View == nil {
			continue
		}
		if a.Layout == vk.ImageLayoutDepthStencilAttachmentOptimal || a.Layout == vulkan.ImageLayoutDepthStencilReadOnlyOptimal {
			skip = c.LogError(report.Objects(cb.Handle(), a.View.Handle()), "VUID-VkRenderingInfo-colorAttachmentCount-06090", loc.Dot("pRenderingInfo").At("pColorAttachments", i).Dot("imageLayout"),
				"Color attachment uses layout %s.", vulkan.ImageLayoutString(a.Layout)) || skip
		}
	}
	return skip
}

// PostCallRecordCmdBeginRendering records the layouts the attachments are
// expected in when the rendering instance begins.
func (c *CoreChecks) PostCallRecordCmdBeginRendering(cb *state.CommandBuffer, info *state.RenderingInfo) {
	cb.BeginRendering(info)
	seed := func(a *state.RenderingAttachment) {
		if a == nil {
			return
		}
		if a.View != nil {
			cb.SetImageViewInitialLayout(a.View, a.Layout)
		}
		if a.ResolveView != nil {
			cb.SetImageViewInitialLayout(a.ResolveView, a.ResolveLayout)
		}
	}
	for i := range info.ColorAttachments {
		seed(&info.ColorAttachments[i])
	}
	seed(info.DepthAttachment)
	seed(info.StencilAttachment)
}

func (c *CoreChecks) PreCallValidateCmdEndRendering(cb *state.CommandBuffer) bool {
	loc := report.Loc("vkCmdEndRendering")
	skip := c.ValidateCmd(cb, loc)
	switch {
	case cb.ActiveRenderPass != nil:
		skip = c.LogError(report.Objects(cb.Handle(), cb.ActiveRenderPass.Handle()), "VUID-vkCmdEndRendering-None-06161", loc,
			"Called when the active render pass instance was begun with vkCmdBeginRenderPass().") || skip
	case cb.ActiveRendering == nil:
		skip = c.outsideRenderPass(cb, loc, "VUID-vkCmdEndRendering-renderpass") || skip
	}
	return skip
}

func (c *CoreChecks) PostCallRecordCmdEndRendering(cb *state.CommandBuffer) {
	cb.EndRendering()
}
