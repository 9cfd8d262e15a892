package corechecks

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vksync/engine/validation/report"
	"github.com/spaghettifunk/vksync/engine/validation/state"
)

func drawFunction(info *state.DrawInfo) string {
	switch {
	case info.Indirect != nil && info.Indexed:
		return "vkCmdDrawIndexedIndirect"
	case info.Indirect != nil:
		return "vkCmdDrawIndirect"
	case info.Indexed:
		return "vkCmdDrawIndexed"
	default:
		return "vkCmdDraw"
	}
}

func (c *CoreChecks) PreCallValidateCmdBindPipeline(cb *state.CommandBuffer, p *state.Pipeline) bool {
	loc := report.Loc("vkCmdBindPipeline")
	skip := c.ValidateCmd(cb, loc)
	if p.IsGraphics() && cb.ActiveRenderPass != nil && p.RenderPass != nil && !p.RenderPass.Compatible(cb.ActiveRenderPass) {
		skip = c.LogPerformanceWarning(report.Objects(cb.Handle(), p.Handle(), cb.ActiveRenderPass.Handle()), "UNASSIGNED-CoreValidation-DrawState-RenderPassIncompatible", loc,
			"%s was created for %s which is not compatible with the active %s.",
			c.fmtHandle(p.Handle()), c.fmtHandle(p.RenderPass.Handle()), c.fmtHandle(cb.ActiveRenderPass.Handle())) || skip
	}
	return skip
}

func (c *CoreChecks) PreCallValidateCmdBindDescriptorSets(cb *state.CommandBuffer, bindPoint vk.PipelineBindPoint, first uint32, sets []*state.DescriptorSet) bool {
	return c.ValidateCmd(cb, report.Loc("vkCmdBindDescriptorSets"))
}

func (c *CoreChecks) PreCallValidateCmdSetViewport(cb *state.CommandBuffer, first uint32, viewports []vk.Viewport) bool {
	loc := report.Loc("vkCmdSetViewport")
	skip := c.ValidateCmd(cb, loc)
	if first+uint32(len(viewports)) > state.MaxViewports {
		skip = c.LogError(report.Objects(cb.Handle()), "VUID-vkCmdSetViewport-firstViewport-01223", loc.Dot("firstViewport"),
			"firstViewport (%d) + viewportCount (%d) is greater than maxViewports (%d).", first, len(viewports), state.MaxViewports) || skip
	}
	return skip
}

func (c *CoreChecks) PreCallValidateCmdSetScissor(cb *state.CommandBuffer, first, count uint32) bool {
	loc := report.Loc("vkCmdSetScissor")
	skip := c.ValidateCmd(cb, loc)
	if first+count > state.MaxViewports {
		skip = c.LogError(report.Objects(cb.Handle()), "VUID-vkCmdSetScissor-firstScissor-00592", loc.Dot("firstScissor"),
			"firstScissor (%d) + scissorCount (%d) is greater than maxViewports (%d).", first, count, state.MaxViewports) || skip
	}
	return skip
}

func (c *CoreChecks) PreCallValidateCmdDraw(cb *state.CommandBuffer, info *state.DrawInfo) bool {
	loc := report.Loc(drawFunction(info))
	skip := c.ValidateCmd(cb, loc)
	skip = c.outsideRenderPass(cb, loc, "VUID-"+loc.Function+"-renderpass") || skip
	if cb.BoundPipelines[vk.PipelineBindPointGraphics] == nil {
		skip = c.LogError(report.Objects(cb.Handle()), "VUID-"+loc.Function+"-None-08606", loc,
			"A valid VK_PIPELINE_BIND_POINT_GRAPHICS pipeline must be bound with vkCmdBindPipeline before calling this command.") || skip
	}
	if info.Indexed && cb.IndexBuffer == nil {
		skip = c.LogError(report.Objects(cb.Handle()), "VUID-"+loc.Function+"-None-07312", loc,
			"Index buffer object has not been bound to this command buffer.") || skip
	}
	return skip
}

func (c *CoreChecks) PostCallRecordCmdDraw(cb *state.CommandBuffer, info *state.DrawInfo) {
	if info.Indirect != nil {
		cb.AddChild(info.Indirect)
	}
	cb.RecordDraw()
}

func (c *CoreChecks) PreCallValidateCmdDispatch(cb *state.CommandBuffer, info *state.DispatchInfo) bool {
	name := "vkCmdDispatch"
	if info.Indirect != nil {
		name = "vkCmdDispatchIndirect"
	}
	loc := report.Loc(name)
	skip := c.ValidateCmd(cb, loc)
	skip = c.insideRenderPass(cb, loc, "VUID-"+name+"-renderpass") || skip
	if cb.BoundPipelines[vk.PipelineBindPointCompute] == nil {
		skip = c.LogError(report.Objects(cb.Handle()), "VUID-"+name+"-None-08606", loc,
			"A valid VK_PIPELINE_BIND_POINT_COMPUTE pipeline must be bound with vkCmdBindPipeline before calling this command.") || skip
	}
	return skip
}

func (c *CoreChecks) PostCallRecordCmdDispatch(cb *state.CommandBuffer, info *state.DispatchInfo) {
	if info.Indirect != nil {
		cb.AddChild(info.Indirect)
	}
}
