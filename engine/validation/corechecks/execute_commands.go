package corechecks

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vksync/engine/validation/imagelayout"
	"github.com/spaghettifunk/vksync/engine/validation/report"
	"github.com/spaghettifunk/vksync/engine/validation/state"
	"github.com/spaghettifunk/vksync/engine/vulkan"
)

func (c *CoreChecks) PreCallValidateCmdExecuteCommands(cb *state.CommandBuffer, secondaries []*state.CommandBuffer) bool {
	loc := report.Loc("vkCmdExecuteCommands")
	skip := c.ValidateCmd(cb, loc)
	if !cb.IsPrimary() {
		skip = c.LogError(report.Objects(cb.Handle()), "VUID-vkCmdExecuteCommands-bufferlevel", loc,
			"%s must be a primary command buffer.", c.fmtHandle(cb.Handle())) || skip
	}
	if cb.ActiveRenderPass != nil && cb.ActiveSubpassContents != vk.SubpassContentsSecondaryCommandBuffers {
		skip = c.LogError(report.Objects(cb.Handle()), "VUID-vkCmdExecuteCommands-contents-06018", loc,
			"contents must be set to VK_SUBPASS_CONTENTS_SECONDARY_COMMAND_BUFFERS when calling vkCmdExecuteCommands() within a render pass instance begun with vkCmdBeginRenderPass().") || skip
	}
	if r := cb.ActiveRendering; r != nil && r.Flags&vulkan.RenderingContentsSecondary == 0 {
		skip = c.LogError(report.Objects(cb.Handle()), "VUID-vkCmdExecuteCommands-flags-06024", loc,
			"VkRenderingInfo::flags must include VK_RENDERING_CONTENTS_SECONDARY_COMMAND_BUFFERS_BIT when calling vkCmdExecuteCommands() within a render pass instance begun with vkCmdBeginRendering().") || skip
	}

	viewports := NewViewportScissorInheritanceTracker(c, loc)
	skip = viewports.VisitPrimary(cb) || skip

	seen := make(map[*state.CommandBuffer]struct{}, len(secondaries))
	for i, sub := range secondaries {
		sloc := loc.At("pCommandBuffers", i)
		objects := report.Objects(cb.Handle(), sub.Handle())

		if sub.IsPrimary() {
			skip = c.LogError(objects, "VUID-vkCmdExecuteCommands-pCommandBuffers-00088", sloc,
				"%s is not VK_COMMAND_BUFFER_LEVEL_SECONDARY.", c.fmtHandle(sub.Handle())) || skip
		} else {
			skip = c.validateSecondaryState(cb, sub, sloc) || skip
			skip = c.validateSecondaryRenderPass(cb, sub, sloc) || skip
		}

		if !sub.BeginInfo.Has(vk.CommandBufferUsageSimultaneousUseBit) {
			if sub.InUse() {
				skip = c.LogError(objects, "VUID-vkCmdExecuteCommands-pCommandBuffers-00091", sloc,
					"Cannot execute pending %s without VK_COMMAND_BUFFER_USAGE_SIMULTANEOUS_USE_BIT set.", c.fmtHandle(sub.Handle())) || skip
			}
			if other := sub.PrimaryCommandBuffer; other != nil && other != cb && sub.IsLinkedTo(other) {
				skip = c.LogError(report.Objects(cb.Handle(), sub.Handle(), other.Handle()), "VUID-vkCmdExecuteCommands-pCommandBuffers-00092", sloc,
					"Cannot execute %s without VK_COMMAND_BUFFER_USAGE_SIMULTANEOUS_USE_BIT set if previously executed in %s.",
					c.fmtHandle(sub.Handle()), c.fmtHandle(other.Handle())) || skip
			}
			if _, dup := seen[sub]; dup {
				skip = c.LogError(objects, "VUID-vkCmdExecuteCommands-pCommandBuffers-00093", sloc,
					"Cannot duplicate %s in pCommandBuffers without VK_COMMAND_BUFFER_USAGE_SIMULTANEOUS_USE_BIT.", c.fmtHandle(sub.Handle())) || skip
			}
			if cb.BeginInfo.Has(vk.CommandBufferUsageSimultaneousUseBit) {
				// Only a warning, the primary silently loses the bit.
				c.LogWarning(objects, kVUIDInvalidSimultaneousUse, sloc,
					"%s does not have VK_COMMAND_BUFFER_USAGE_SIMULTANEOUS_USE_BIT set and will cause primary %s to be treated as if it does not have VK_COMMAND_BUFFER_USAGE_SIMULTANEOUS_USE_BIT set, even though it does.",
					c.fmtHandle(sub.Handle()), c.fmtHandle(cb.Handle()))
			}
		}
		seen[sub] = struct{}{}

		skip = c.validateSecondaryQueries(cb, sub, sloc) || skip

		if sub.Pool.QueueFamilyIndex() != cb.Pool.QueueFamilyIndex() {
			skip = c.LogError(report.Objects(cb.Handle(), sub.Handle(), cb.Pool.Handle(), sub.Pool.Handle()), "VUID-vkCmdExecuteCommands-pCommandBuffers-00094", sloc,
				"%s created in queue family %d, but primary %s created in queue family %d.",
				c.fmtHandle(sub.Handle()), sub.Pool.QueueFamilyIndex(), c.fmtHandle(cb.Handle()), cb.Pool.QueueFamilyIndex()) || skip
		}
		switch {
		case cb.Pool.Protected() && !sub.Pool.Protected():
			skip = c.LogError(objects, "VUID-vkCmdExecuteCommands-commandBuffer-01820", sloc,
				"Primary %s is protected but secondary %s is unprotected.", c.fmtHandle(cb.Handle()), c.fmtHandle(sub.Handle())) || skip
		case !cb.Pool.Protected() && sub.Pool.Protected():
			skip = c.LogError(objects, "VUID-vkCmdExecuteCommands-commandBuffer-01821", sloc,
				"Primary %s is unprotected but secondary %s is protected.", c.fmtHandle(cb.Handle()), c.fmtHandle(sub.Handle())) || skip
		}

		skip = c.validateSecondaryInitialLayouts(cb, sub, sloc) || skip

		if !sub.IsPrimary() {
			skip = viewports.VisitSecondary(uint32(i), sub) || skip
		}
	}
	return skip
}

func (c *CoreChecks) validateSecondaryState(cb, sub *state.CommandBuffer, loc report.Location) bool {
	switch sub.State() {
	case state.COMMAND_BUFFER_STATE_RECORDED:
		return false
	case state.COMMAND_BUFFER_STATE_INVALID_COMPLETE, state.COMMAND_BUFFER_STATE_INVALID_INCOMPLETE:
		return c.ReportInvalidCommandBuffer(sub, loc)
	default:
		return c.LogError(report.Objects(cb.Handle(), sub.Handle()), "VUID-vkCmdExecuteCommands-pCommandBuffers-00089", loc,
			"Secondary %s is %s, it must be in the executable state.", c.fmtHandle(sub.Handle()), sub.State())
	}
}

func (c *CoreChecks) validateSecondaryRenderPass(cb, sub *state.CommandBuffer, loc report.Location) bool {
	skip := false
	objects := report.Objects(cb.Handle(), sub.Handle())
	continues := sub.BeginInfo.Has(vk.CommandBufferUsageRenderPassContinueBit)
	inh := sub.BeginInfo.Inheritance

	switch {
	case cb.ActiveRenderPass != nil:
		if !continues {
			return c.LogError(objects, "VUID-vkCmdExecuteCommands-pCommandBuffers-00096", loc,
				"%s is executed within a render pass instance begun with %s, but was not begun with VK_COMMAND_BUFFER_USAGE_RENDER_PASS_CONTINUE_BIT set.",
				c.fmtHandle(sub.Handle()), c.fmtHandle(cb.ActiveRenderPass.Handle()))
		}
		if inh == nil {
			return skip
		}
		if inh.RenderPass != nil && inh.RenderPass != cb.ActiveRenderPass && !inh.RenderPass.Compatible(cb.ActiveRenderPass) {
			skip = c.LogError(report.Objects(cb.Handle(), sub.Handle(), inh.RenderPass.Handle(), cb.ActiveRenderPass.Handle()), "VUID-vkCmdExecuteCommands-pBeginInfo-06020", loc,
				"%s was begun with %s which is incompatible with the active %s.",
				c.fmtHandle(sub.Handle()), c.fmtHandle(inh.RenderPass.Handle()), c.fmtHandle(cb.ActiveRenderPass.Handle())) || skip
		}
		if inh.Framebuffer != nil && cb.ActiveFramebuffer != nil && inh.Framebuffer != cb.ActiveFramebuffer {
			skip = c.LogError(report.Objects(cb.Handle(), sub.Handle(), inh.Framebuffer.Handle(), cb.ActiveFramebuffer.Handle()), "VUID-vkCmdExecuteCommands-pCommandBuffers-00099", loc,
				"%s references %s instead of the active %s.",
				c.fmtHandle(sub.Handle()), c.fmtHandle(inh.Framebuffer.Handle()), c.fmtHandle(cb.ActiveFramebuffer.Handle())) || skip
		}
		if inh.Subpass != cb.ActiveSubpass {
			skip = c.LogError(objects, "VUID-vkCmdExecuteCommands-pCommandBuffers-06019", loc,
				"%s was begun for subpass %d but the active subpass is %d.", c.fmtHandle(sub.Handle()), inh.Subpass, cb.ActiveSubpass) || skip
		}
	case cb.ActiveRendering != nil:
		if !continues {
			return c.LogError(objects, "VUID-vkCmdExecuteCommands-pBeginInfo-06025", loc,
				"%s is executed within a dynamic rendering instance, but was not begun with VK_COMMAND_BUFFER_USAGE_RENDER_PASS_CONTINUE_BIT set.",
				c.fmtHandle(sub.Handle()))
		}
		if inh == nil || inh.Rendering == nil {
			return skip
		}
		skip = c.validateInheritedRendering(cb.ActiveRendering, inh.Rendering, objects, loc) || skip
	default:
		if continues {
			skip = c.LogError(objects, "VUID-vkCmdExecuteCommands-pCommandBuffers-00100", loc,
				"%s is executed outside a render pass instance, but was begun with VK_COMMAND_BUFFER_USAGE_RENDER_PASS_CONTINUE_BIT set.",
				c.fmtHandle(sub.Handle())) || skip
		}
	}
	return skip
}

func (c *CoreChecks) validateInheritedRendering(active *state.RenderingInfo, inh *state.InheritanceRenderingInfo, objects report.LogObjectList, loc report.Location) bool {
	skip := false
	ignore := vulkan.RenderingContentsSecondary
	if active.Flags&^ignore != inh.Flags&^ignore {
		skip = c.LogError(objects, "VUID-vkCmdExecuteCommands-flags-06026", loc,
			"VkCommandBufferInheritanceRenderingInfo::flags (0x%x) does not match VkRenderingInfo::flags (0x%x), excluding VK_RENDERING_CONTENTS_SECONDARY_COMMAND_BUFFERS_BIT.",
			uint32(inh.Flags), uint32(active.Flags)) || skip
	}
	if len(active.ColorAttachments) != len(inh.ColorAttachmentFormats) {
		skip = c.LogError(objects, "VUID-vkCmdExecuteCommands-colorAttachmentCount-06027", loc,
			"VkCommandBufferInheritanceRenderingInfo::colorAttachmentCount (%d) does not match VkRenderingInfo::colorAttachmentCount (%d).",
			len(inh.ColorAttachmentFormats), len(active.ColorAttachments)) || skip
	} else {
		for i := range active.ColorAttachments {
			format := active.ColorFormat(i)
			if format != vk.FormatUndefined && format != inh.ColorAttachmentFormats[i] {
				skip = c.LogError(objects, "VUID-vkCmdExecuteCommands-imageView-06028", loc,
					"Color attachment %d has format %d but the inherited format is %d.", i, format, inh.ColorAttachmentFormats[i]) || skip
			}
		}
	}
	if f := active.DepthFormat(); f != vk.FormatUndefined && f != inh.DepthAttachmentFormat {
		skip = c.LogError(objects, "VUID-vkCmdExecuteCommands-pDepthAttachment-06029", loc,
			"Depth attachment format %d does not match the inherited depth format %d.", f, inh.DepthAttachmentFormat) || skip
	}
	if f := active.StencilFormat(); f != vk.FormatUndefined && f != inh.StencilAttachmentFormat {
		skip = c.LogError(objects, "VUID-vkCmdExecuteCommands-pStencilAttachment-06030", loc,
			"Stencil attachment format %d does not match the inherited stencil format %d.", f, inh.StencilAttachmentFormat) || skip
	}
	if active.ViewMask != inh.ViewMask {
		skip = c.LogError(objects, "VUID-vkCmdExecuteCommands-viewMask-06031", loc,
			"VkCommandBufferInheritanceRenderingInfo::viewMask (0x%x) does not match VkRenderingInfo::viewMask (0x%x).",
			inh.ViewMask, active.ViewMask) || skip
	}
	if s := active.Samples(); s != 0 && inh.RasterizationSamples != 0 && s != inh.RasterizationSamples {
		skip = c.LogError(objects, "VUID-vkCmdExecuteCommands-pNext-06035", loc,
			"Attachments use %d samples but rasterizationSamples is %d.", s, inh.RasterizationSamples) || skip
	}
	return skip
}

func (c *CoreChecks) validateSecondaryQueries(cb, sub *state.CommandBuffer, loc report.Location) bool {
	skip := false
	objects := report.Objects(cb.Handle(), sub.Handle())
	inh := sub.BeginInfo.Inheritance
	if len(cb.ActiveQueries) > 0 && !c.features().InheritedQueries {
		skip = c.LogError(objects, "VUID-vkCmdExecuteCommands-commandBuffer-00101", loc,
			"%s cannot be executed while a query is active because the inheritedQueries feature is not enabled.",
			c.fmtHandle(sub.Handle())) || skip
	}
	if q, ok := cb.HasActiveQueryOfType(vulkan.QueryTypeOcclusion); ok && (inh == nil || !inh.OcclusionQueryEnable) {
		skip = c.LogError(report.Objects(cb.Handle(), sub.Handle(), q.Pool.Handle()), "VUID-vkCmdExecuteCommands-commandBuffer-00102", loc,
			"%s is executed while occlusion query %s is active but was not begun with occlusionQueryEnable.",
			c.fmtHandle(sub.Handle()), q) || skip
	}
	if q, ok := cb.HasActiveQueryOfType(vulkan.QueryTypePipelineStatistics); ok {
		var inherited vk.QueryPipelineStatisticFlags
		if inh != nil {
			inherited = inh.PipelineStatistics
		}
		if want := q.Pool.CreateInfo.PipelineStatistics; want&^inherited != 0 {
			skip = c.LogError(report.Objects(cb.Handle(), sub.Handle(), q.Pool.Handle()), "VUID-vkCmdExecuteCommands-commandBuffer-00104", loc,
				"%s pipelineStatistics 0x%x must be a superset of the active query's statistics 0x%x.",
				c.fmtHandle(sub.Handle()), uint32(inherited), uint32(want)) || skip
		}
	}
	for _, started := range sortedQueries(sub.StartedQueries) {
		if active, ok := cb.HasActiveQueryOfType(started.Type()); ok {
			skip = c.LogError(report.Objects(cb.Handle(), sub.Handle(), active.Pool.Handle()), "VUID-vkCmdExecuteCommands-commandBuffer-00105", loc,
				"%s begins %s but a query of the same type (%s) is active in the primary.",
				c.fmtHandle(sub.Handle()), started, active) || skip
		}
	}
	return skip
}

// validateSecondaryInitialLayouts compares the layouts the secondary expects
// with the primary's current (else initial) layouts, subresource by
// subresource.
func (c *CoreChecks) validateSecondaryInitialLayouts(cb, sub *state.CommandBuffer, loc report.Location) bool {
	if c.layoutValidationDisabled() {
		return false
	}
	skip := false
	sub.ForEachImageLayoutMap(func(img *state.Image, subMap *imagelayout.SubresourceLayoutMap) {
		cbMap := cb.ImageLayoutMap(img)
		if cbMap == nil {
			return
		}
		for _, entry := range subMap.LayoutMap().Entries() {
			expected := entry.Value.Initial
			if expected == vk.ImageLayoutUndefined || expected == vulkan.InvalidLayout {
				continue
			}
			for i := entry.Range.Begin; i < entry.Range.End; i++ {
				s := subMap.Decode(i)
				have, ok := cbMap.SubresourceLayouts(s)
				if !ok {
					continue
				}
				layout, kind := have.Current, "current"
				if !have.HasCurrent() {
					layout, kind = have.Initial, "initial"
				}
				if layout == vulkan.InvalidLayout || imagelayout.ImageLayoutMatches(s.AspectMask, layout, expected) {
					continue
				}
				skip = c.LogError(report.Objects(cb.Handle(), sub.Handle(), img.Handle()), kVUIDExecuteCommandsInitialUsage, loc,
					"Executed secondary command buffer using %s (subresource: aspectMask 0x%X array layer %d, mip level %d) which expects layout %s--instead, image %s layout is %s.",
					c.fmtHandle(img.Handle()), uint32(s.AspectMask), s.ArrayLayer, s.MipLevel,
					vulkan.ImageLayoutString(expected), kind, vulkan.ImageLayoutString(layout)) || skip
			}
		}
	})
	return skip
}

func (c *CoreChecks) PostCallRecordCmdExecuteCommands(cb *state.CommandBuffer, secondaries []*state.CommandBuffer) {
	cb.ExecuteCommands(secondaries)
}
