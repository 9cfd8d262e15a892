package layer

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vksync/engine/validation/report"
	"github.com/spaghettifunk/vksync/engine/validation/state"
	"github.com/spaghettifunk/vksync/engine/vulkan"
)

func (l *Layer) BeginCommandBuffer(cb *state.CommandBuffer, info state.CommandBufferBeginInfo) error {
	skip := l.Core.PreCallValidateBeginCommandBuffer(cb, &info)
	return l.finish(skip, func() {
		l.Tracker.BeginCommandBuffer(cb, info)
		l.Sync.PostCallRecordBeginCommandBuffer(cb, &info)
	})
}

func (l *Layer) EndCommandBuffer(cb *state.CommandBuffer) error {
	skip := l.Core.PreCallValidateEndCommandBuffer(cb)
	return l.finish(skip, cb.End)
}

func (l *Layer) ResetCommandBuffer(cb *state.CommandBuffer) error {
	skip := l.Core.PreCallValidateResetCommandBuffer(cb)
	return l.finish(skip, func() {
		l.Tracker.ResetCommandBuffer(cb)
		l.Sync.PostCallRecordResetCommandBuffer(cb)
	})
}

func (l *Layer) FreeCommandBuffers(cbs []*state.CommandBuffer) error {
	skip := l.Core.PreCallValidateFreeCommandBuffers(cbs)
	return l.finish(skip, func() {
		l.Sync.PreCallRecordFreeCommandBuffers(cbs)
		for _, cb := range cbs {
			if err := l.Tracker.FreeCommandBuffer(cb); err != nil {
				l.warn("vkFreeCommandBuffers", err)
			}
		}
	})
}

func (l *Layer) ResetCommandPool(pool *state.CommandPool) error {
	skip := l.Core.PreCallValidateResetCommandPool(pool)
	return l.finish(skip, func() {
		l.Tracker.ResetCommandPool(pool)
		l.Sync.PostCallRecordResetCommandPool(pool)
	})
}

func (l *Layer) DestroyCommandPool(pool *state.CommandPool) error {
	skip := l.Core.PreCallValidateDestroyCommandPool(pool)
	return l.finish(skip, func() {
		if err := l.Tracker.DestroyCommandPool(pool.Handle().Handle); err != nil {
			l.warn("vkDestroyCommandPool", err)
		}
	})
}

func (l *Layer) CmdBindPipeline(cb *state.CommandBuffer, p *state.Pipeline) error {
	skip := l.Core.PreCallValidateCmdBindPipeline(cb, p)
	return l.command(cb, "vkCmdBindPipeline", skip, func() {
		cb.BindPipeline(p)
	})
}

func (l *Layer) CmdBindDescriptorSets(cb *state.CommandBuffer, bindPoint vk.PipelineBindPoint, first uint32, sets []*state.DescriptorSet) error {
	skip := l.Core.PreCallValidateCmdBindDescriptorSets(cb, bindPoint, first, sets)
	return l.command(cb, "vkCmdBindDescriptorSets", skip, func() {
		cb.BindDescriptorSets(bindPoint, first, sets)
	})
}

func (l *Layer) CmdBindVertexBuffers(cb *state.CommandBuffer, first uint32, buffers []*state.Buffer) error {
	skip := l.Core.ValidateCmd(cb, report.Loc("vkCmdBindVertexBuffers"))
	return l.command(cb, "vkCmdBindVertexBuffers", skip, func() {
		cb.BindVertexBuffers(first, buffers)
	})
}

func (l *Layer) CmdBindIndexBuffer(cb *state.CommandBuffer, b *state.Buffer) error {
	skip := l.Core.ValidateCmd(cb, report.Loc("vkCmdBindIndexBuffer"))
	return l.command(cb, "vkCmdBindIndexBuffer", skip, func() {
		cb.BindIndexBuffer(b)
	})
}

func (l *Layer) CmdSetViewport(cb *state.CommandBuffer, first uint32, viewports []vk.Viewport) error {
	skip := l.Core.PreCallValidateCmdSetViewport(cb, first, viewports)
	return l.command(cb, "vkCmdSetViewport", skip, func() {
		cb.SetViewport(first, viewports)
	})
}

func (l *Layer) CmdSetViewportWithCount(cb *state.CommandBuffer, viewports []vk.Viewport) error {
	skip := l.Core.ValidateCmd(cb, report.Loc("vkCmdSetViewportWithCount"))
	return l.command(cb, "vkCmdSetViewportWithCount", skip, func() {
		cb.SetViewportWithCount(viewports)
	})
}

func (l *Layer) CmdSetScissor(cb *state.CommandBuffer, first, count uint32) error {
	skip := l.Core.PreCallValidateCmdSetScissor(cb, first, count)
	return l.command(cb, "vkCmdSetScissor", skip, func() {
		cb.SetScissor(first, count)
	})
}

func (l *Layer) CmdSetScissorWithCount(cb *state.CommandBuffer, count uint32) error {
	skip := l.Core.ValidateCmd(cb, report.Loc("vkCmdSetScissorWithCount"))
	return l.command(cb, "vkCmdSetScissorWithCount", skip, func() {
		cb.SetScissorWithCount(count)
	})
}

func (l *Layer) CmdBeginQuery(cb *state.CommandBuffer, q state.QueryObject) error {
	skip := l.Core.PreCallValidateCmdBeginQuery(cb, q)
	return l.command(cb, "vkCmdBeginQuery", skip, func() {
		cb.BeginQuery(q)
	})
}

func (l *Layer) CmdEndQuery(cb *state.CommandBuffer, q state.QueryObject) error {
	skip := l.Core.PreCallValidateCmdEndQuery(cb, q)
	return l.command(cb, "vkCmdEndQuery", skip, func() {
		cb.EndQuery(q)
	})
}

func (l *Layer) CmdCopyImage(cb *state.CommandBuffer, info *state.CopyImageInfo) error {
	skip := l.Core.PreCallValidateCmdCopyImage(cb, info)
	skip = l.Sync.PreCallValidateCmdCopyImage(cb, info) || skip
	return l.command(cb, "vkCmdCopyImage", skip, func() {
		l.Core.PostCallRecordCmdCopyImage(cb, info)
		l.Sync.PostCallRecordCmdCopyImage(cb, info)
	})
}

func (l *Layer) CmdBlitImage(cb *state.CommandBuffer, info *state.BlitImageInfo) error {
	skip := l.Core.PreCallValidateCmdBlitImage(cb, info)
	skip = l.Sync.PreCallValidateCmdBlitImage(cb, info) || skip
	return l.command(cb, "vkCmdBlitImage", skip, func() {
		l.Core.PostCallRecordCmdBlitImage(cb, info)
		l.Sync.PostCallRecordCmdBlitImage(cb, info)
	})
}

func (l *Layer) CmdResolveImage(cb *state.CommandBuffer, info *state.ResolveImageInfo) error {
	skip := l.Core.PreCallValidateCmdResolveImage(cb, info)
	skip = l.Sync.PreCallValidateCmdResolveImage(cb, info) || skip
	return l.command(cb, "vkCmdResolveImage", skip, func() {
		l.Core.PostCallRecordCmdResolveImage(cb, info)
		l.Sync.PostCallRecordCmdResolveImage(cb, info)
	})
}

func (l *Layer) CmdCopyBufferToImage(cb *state.CommandBuffer, info *state.CopyBufferToImageInfo) error {
	skip := l.Core.PreCallValidateCmdCopyBufferToImage(cb, info)
	skip = l.Sync.PreCallValidateCmdCopyBufferToImage(cb, info) || skip
	return l.command(cb, "vkCmdCopyBufferToImage", skip, func() {
		l.Core.PostCallRecordCmdCopyBufferToImage(cb, info)
		l.Sync.PostCallRecordCmdCopyBufferToImage(cb, info)
	})
}

func (l *Layer) CmdCopyImageToBuffer(cb *state.CommandBuffer, info *state.CopyImageToBufferInfo) error {
	skip := l.Core.PreCallValidateCmdCopyImageToBuffer(cb, info)
	skip = l.Sync.PreCallValidateCmdCopyImageToBuffer(cb, info) || skip
	return l.command(cb, "vkCmdCopyImageToBuffer", skip, func() {
		l.Core.PostCallRecordCmdCopyImageToBuffer(cb, info)
		l.Sync.PostCallRecordCmdCopyImageToBuffer(cb, info)
	})
}

func (l *Layer) CmdCopyBuffer(cb *state.CommandBuffer, info *state.CopyBufferInfo) error {
	skip := l.Core.PreCallValidateCmdCopyBuffer(cb, info)
	skip = l.Sync.PreCallValidateCmdCopyBuffer(cb, info) || skip
	return l.command(cb, "vkCmdCopyBuffer", skip, func() {
		l.Core.PostCallRecordCmdCopyBuffer(cb, info)
		l.Sync.PostCallRecordCmdCopyBuffer(cb, info)
	})
}

func (l *Layer) CmdClearColorImage(cb *state.CommandBuffer, info *state.ClearImageInfo) error {
	skip := l.Core.PreCallValidateCmdClearColorImage(cb, info)
	skip = l.Sync.PreCallValidateCmdClearColorImage(cb, info) || skip
	return l.command(cb, "vkCmdClearColorImage", skip, func() {
		l.Core.PostCallRecordCmdClearColorImage(cb, info)
		l.Sync.PostCallRecordCmdClearColorImage(cb, info)
	})
}

func (l *Layer) CmdClearDepthStencilImage(cb *state.CommandBuffer, info *state.ClearImageInfo) error {
	skip := l.Core.PreCallValidateCmdClearDepthStencilImage(cb, info)
	skip = l.Sync.PreCallValidateCmdClearDepthStencilImage(cb, info) || skip
	return l.command(cb, "vkCmdClearDepthStencilImage", skip, func() {
		l.Core.PostCallRecordCmdClearDepthStencilImage(cb, info)
		l.Sync.PostCallRecordCmdClearDepthStencilImage(cb, info)
	})
}

func (l *Layer) CmdFillBuffer(cb *state.CommandBuffer, info *state.FillBufferInfo) error {
	skip := l.Core.PreCallValidateCmdFillBuffer(cb, info)
	skip = l.Sync.PreCallValidateCmdFillBuffer(cb, info) || skip
	return l.command(cb, "vkCmdFillBuffer", skip, func() {
		l.Core.PostCallRecordCmdFillBuffer(cb, info)
		l.Sync.PostCallRecordCmdFillBuffer(cb, info)
	})
}

func (l *Layer) CmdUpdateBuffer(cb *state.CommandBuffer, info *state.FillBufferInfo) error {
	skip := l.Core.PreCallValidateCmdUpdateBuffer(cb, info)
	skip = l.Sync.PreCallValidateCmdUpdateBuffer(cb, info) || skip
	return l.command(cb, "vkCmdUpdateBuffer", skip, func() {
		l.Core.PostCallRecordCmdFillBuffer(cb, info)
		l.Sync.PostCallRecordCmdUpdateBuffer(cb, info)
	})
}

func (l *Layer) CmdPipelineBarrier(cb *state.CommandBuffer, info *state.PipelineBarrierInfo) error {
	skip := l.Core.PreCallValidateCmdPipelineBarrier(cb, info)
	skip = l.Sync.PreCallValidateCmdPipelineBarrier(cb, info) || skip
	return l.command(cb, "vkCmdPipelineBarrier", skip, func() {
		l.Core.PostCallRecordCmdPipelineBarrier(cb, info)
		l.Sync.PostCallRecordCmdPipelineBarrier(cb, info)
	})
}

func (l *Layer) CmdPipelineBarrier2(cb *state.CommandBuffer, dep *state.DependencyInfo) error {
	skip := l.Core.PreCallValidateCmdPipelineBarrier2(cb, dep)
	skip = l.Sync.PreCallValidateCmdPipelineBarrier2(cb, dep) || skip
	return l.command(cb, "vkCmdPipelineBarrier2", skip, func() {
		l.Core.PostCallRecordCmdPipelineBarrier2(cb, dep)
		l.Sync.PostCallRecordCmdPipelineBarrier2(cb, dep)
	})
}

func (l *Layer) CmdSetEvent(cb *state.CommandBuffer, event *state.Event, stages vulkan.PipelineStageFlags2) error {
	skip := l.Core.PreCallValidateCmdSetEvent("vkCmdSetEvent", cb, event)
	return l.command(cb, "vkCmdSetEvent", skip, func() {
		l.Core.PostCallRecordCmdSetEvent(cb, event)
		l.Sync.PostCallRecordCmdSetEvent(cb, event, stages)
	})
}

func (l *Layer) CmdResetEvent(cb *state.CommandBuffer, event *state.Event) error {
	skip := l.Core.PreCallValidateCmdSetEvent("vkCmdResetEvent", cb, event)
	return l.command(cb, "vkCmdResetEvent", skip, func() {
		l.Core.PostCallRecordCmdSetEvent(cb, event)
		l.Sync.PostCallRecordCmdResetEvent(cb, event)
	})
}

func (l *Layer) CmdWaitEvents(cb *state.CommandBuffer, info *state.WaitEventsInfo) error {
	skip := l.Core.PreCallValidateCmdWaitEvents(cb, info)
	skip = l.Sync.PreCallValidateCmdWaitEvents(cb, info) || skip
	return l.command(cb, "vkCmdWaitEvents", skip, func() {
		l.Core.PostCallRecordCmdWaitEvents(cb, info)
		l.Sync.PostCallRecordCmdWaitEvents(cb, info)
	})
}

func (l *Layer) CmdBeginRenderPass(cb *state.CommandBuffer, info *state.RenderPassBeginInfo) error {
	skip := l.Core.PreCallValidateCmdBeginRenderPass(cb, info)
	skip = l.Sync.PreCallValidateCmdBeginRenderPass(cb, info) || skip
	return l.command(cb, "vkCmdBeginRenderPass", skip, func() {
		l.Core.PostCallRecordCmdBeginRenderPass(cb, info)
		l.Sync.PostCallRecordCmdBeginRenderPass(cb, info)
	})
}

func (l *Layer) CmdNextSubpass(cb *state.CommandBuffer, contents vk.SubpassContents) error {
	skip := l.Core.PreCallValidateCmdNextSubpass(cb, contents)
	return l.command(cb, "vkCmdNextSubpass", skip, func() {
		l.Core.PostCallRecordCmdNextSubpass(cb, contents)
		l.Sync.PostCallRecordCmdNextSubpass(cb, contents)
	})
}

func (l *Layer) CmdEndRenderPass(cb *state.CommandBuffer) error {
	skip := l.Core.PreCallValidateCmdEndRenderPass(cb)
	skip = l.Sync.PreCallValidateCmdEndRenderPass(cb) || skip
	return l.command(cb, "vkCmdEndRenderPass", skip, func() {
		l.Core.PostCallRecordCmdEndRenderPass(cb)
		l.Sync.PostCallRecordCmdEndRenderPass(cb)
	})
}

func (l *Layer) CmdBeginRendering(cb *state.CommandBuffer, info *state.RenderingInfo) error {
	skip := l.Core.PreCallValidateCmdBeginRendering(cb, info)
	skip = l.Sync.PreCallValidateCmdBeginRendering(cb, info) || skip
	return l.command(cb, "vkCmdBeginRendering", skip, func() {
		l.Core.PostCallRecordCmdBeginRendering(cb, info)
		l.Sync.PostCallRecordCmdBeginRendering(cb, info)
	})
}

func (l *Layer) CmdEndRendering(cb *state.CommandBuffer) error {
	skip := l.Core.PreCallValidateCmdEndRendering(cb)
	skip = l.Sync.PreCallValidateCmdEndRendering(cb) || skip
	return l.command(cb, "vkCmdEndRendering", skip, func() {
		l.Core.PostCallRecordCmdEndRendering(cb)
		l.Sync.PostCallRecordCmdEndRendering(cb)
	})
}

func drawName(info *state.DrawInfo) string {
	name := "vkCmdDraw"
	if info.Indexed {
		name += "Indexed"
	}
	if info.Indirect != nil {
		name += "Indirect"
	}
	return name
}

func (l *Layer) CmdDraw(cb *state.CommandBuffer, info *state.DrawInfo) error {
	skip := l.Core.PreCallValidateCmdDraw(cb, info)
	skip = l.Sync.PreCallValidateCmdDraw(cb, info) || skip
	return l.command(cb, drawName(info), skip, func() {
		l.Core.PostCallRecordCmdDraw(cb, info)
		l.Sync.PostCallRecordCmdDraw(cb, info)
	})
}

func (l *Layer) CmdDispatch(cb *state.CommandBuffer, info *state.DispatchInfo) error {
	skip := l.Core.PreCallValidateCmdDispatch(cb, info)
	skip = l.Sync.PreCallValidateCmdDispatch(cb, info) || skip
	name := "vkCmdDispatch"
	if info.Indirect != nil {
		name = "vkCmdDispatchIndirect"
	}
	return l.command(cb, name, skip, func() {
		l.Core.PostCallRecordCmdDispatch(cb, info)
		l.Sync.PostCallRecordCmdDispatch(cb, info)
	})
}

func (l *Layer) CmdExecuteCommands(cb *state.CommandBuffer, secondaries []*state.CommandBuffer) error {
	skip := l.Core.PreCallValidateCmdExecuteCommands(cb, secondaries)
	skip = l.Sync.PreCallValidateCmdExecuteCommands(cb, secondaries) || skip
	return l.command(cb, "vkCmdExecuteCommands", skip, func() {
		l.Core.PostCallRecordCmdExecuteCommands(cb, secondaries)
		l.Sync.PostCallRecordCmdExecuteCommands(cb, secondaries)
	})
}
