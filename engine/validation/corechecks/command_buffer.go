package corechecks

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vksync/engine/validation/report"
	"github.com/spaghettifunk/vksync/engine/validation/state"
	"github.com/spaghettifunk/vksync/engine/vulkan"
)

func causeString(h report.TypedHandle) string {
	switch h.Type {
	case report.ObjectTypeDescriptorSet:
		return "destroyed or updated"
	case report.ObjectTypeCommandBuffer:
		return "destroyed or rerecorded"
	default:
		return "destroyed"
	}
}

// ReportInvalidCommandBuffer reports every binding whose destruction or
// update invalidated cb.
func (c *CoreChecks) ReportInvalidCommandBuffer(cb *state.CommandBuffer, loc report.Location) bool {
	skip := false
	for _, broken := range cb.BrokenBindings() {
		objects := broken.Objects.Clone().Add(cb.Handle())
		skip = c.LogError(objects, kVUIDInvalidCommandBuffer+"-"+broken.Object.Type.String(), loc,
			"You are adding %s to %s that is invalid because bound %s was %s.",
			loc.String(), c.fmtHandle(cb.Handle()), c.fmtHandle(broken.Object), causeString(broken.Object)) || skip
	}
	return skip
}

func (c *CoreChecks) CheckCommandBufferInFlight(cb *state.CommandBuffer, action, vuid string, loc report.Location) bool {
	if !cb.InUse() {
		return false
	}
	return c.LogError(report.Objects(cb.Handle()), vuid, loc, "Attempt to %s %s which is in use.", action, c.fmtHandle(cb.Handle()))
}

// CheckCommandBuffersInFlight checks every command buffer of pool.
func (c *CoreChecks) CheckCommandBuffersInFlight(pool *state.CommandPool, action, vuid string, loc report.Location) bool {
	skip := false
	for _, cb := range pool.CommandBuffers() {
		skip = c.CheckCommandBufferInFlight(cb, action, vuid, loc) || skip
	}
	return skip
}

// ValidateCmd checks that a vkCmd* call is recorded into a recording buffer.
func (c *CoreChecks) ValidateCmd(cb *state.CommandBuffer, loc report.Location) bool {
	if !c.Settings().CommandBufferState {
		return false
	}
	switch cb.State() {
	case state.COMMAND_BUFFER_STATE_RECORDING:
		return false
	case state.COMMAND_BUFFER_STATE_INVALID_COMPLETE, state.COMMAND_BUFFER_STATE_INVALID_INCOMPLETE:
		return c.ReportInvalidCommandBuffer(cb, loc)
	default:
		return c.LogError(report.Objects(cb.Handle()), "VUID-"+loc.Function+"-commandBuffer-recording", loc,
			"You must call vkBeginCommandBuffer() before this call to %s.", loc.Function)
	}
}

// insideRenderPass flags commands that must be recorded outside a render pass.
func (c *CoreChecks) insideRenderPass(cb *state.CommandBuffer, loc report.Location, vuid string) bool {
	if cb.ActiveRenderPass == nil {
		return false
	}
	return c.LogError(report.Objects(cb.Handle(), cb.ActiveRenderPass.Handle()), vuid, loc,
		"It is invalid to issue this call inside an active %s.", c.fmtHandle(cb.ActiveRenderPass.Handle()))
}

func (c *CoreChecks) outsideRenderPass(cb *state.CommandBuffer, loc report.Location, vuid string) bool {
	if cb.InRenderPass() {
		return false
	}
	return c.LogError(report.Objects(cb.Handle()), vuid, loc, "This call must be issued inside an active render pass.")
}

func (c *CoreChecks) PreCallValidateBeginCommandBuffer(cb *state.CommandBuffer, info *state.CommandBufferBeginInfo) bool {
	if !c.Settings().CommandBufferState {
		return false
	}
	loc := report.Loc("vkBeginCommandBuffer")
	skip := false
	if cb.InUse() {
		skip = c.LogError(report.Objects(cb.Handle()), "VUID-vkBeginCommandBuffer-commandBuffer-00049", loc,
			"Calling vkBeginCommandBuffer() on active %s before it has completed. You must check command buffer fence before this call.",
			c.fmtHandle(cb.Handle())) || skip
	}

	if cb.IsPrimary() {
		both := vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit) | vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
		if info.Flags&both == both {
			skip = c.LogError(report.Objects(cb.Handle()), "VUID-vkBeginCommandBuffer-commandBuffer-02840", loc,
				"Primary %s can't have both VK_COMMAND_BUFFER_USAGE_ONE_TIME_SUBMIT_BIT and VK_COMMAND_BUFFER_USAGE_SIMULTANEOUS_USE_BIT set.",
				c.fmtHandle(cb.Handle())) || skip
		}
	} else {
		skip = c.validateSecondaryBeginInfo(cb, info, loc) || skip
	}

	switch cb.State() {
	case state.COMMAND_BUFFER_STATE_RECORDING:
		skip = c.LogError(report.Objects(cb.Handle()), "VUID-vkBeginCommandBuffer-commandBuffer-00049", loc,
			"Cannot call Begin on %s in the RECORDING state. Must first call vkEndCommandBuffer().",
			c.fmtHandle(cb.Handle())) || skip
	case state.COMMAND_BUFFER_STATE_RECORDED, state.COMMAND_BUFFER_STATE_INVALID_COMPLETE:
		if !cb.Pool.CanResetBuffers() {
			skip = c.LogError(report.Objects(cb.Handle(), cb.Pool.Handle()), "VUID-vkBeginCommandBuffer-commandBuffer-00050", loc,
				"Call to vkBeginCommandBuffer() on %s attempts to implicitly reset cmdBuffer created from %s that does NOT have the VK_COMMAND_POOL_CREATE_RESET_COMMAND_BUFFER_BIT bit set.",
				c.fmtHandle(cb.Handle()), c.fmtHandle(cb.Pool.Handle())) || skip
		}
	}
	return skip
}

func (c *CoreChecks) validateSecondaryBeginInfo(cb *state.CommandBuffer, info *state.CommandBufferBeginInfo, loc report.Location) bool {
	inh := info.Inheritance
	if inh == nil {
		return c.LogError(report.Objects(cb.Handle()), "VUID-vkBeginCommandBuffer-commandBuffer-00051", loc,
			"Secondary %s must have inheritance info.", c.fmtHandle(cb.Handle()))
	}
	skip := false
	iloc := loc.Dot("pBeginInfo").Dot("pInheritanceInfo")
	if info.Has(vk.CommandBufferUsageRenderPassContinueBit) && inh.Rendering == nil {
		if fb, rp := inh.Framebuffer, inh.RenderPass; fb != nil && rp != nil && fb.RenderPass != rp && !fb.RenderPass.Compatible(rp) {
			skip = c.LogError(report.Objects(cb.Handle(), fb.RenderPass.Handle(), rp.Handle()), "VUID-VkCommandBufferBeginInfo-flags-00055", iloc.Dot("framebuffer"),
				"%s of framebuffer %s is incompatible with %s of the inheritance info.",
				c.fmtHandle(fb.RenderPass.Handle()), c.fmtHandle(fb.Handle()), c.fmtHandle(rp.Handle())) || skip
		}
		switch {
		case inh.RenderPass == nil:
			skip = c.LogError(report.Objects(cb.Handle()), "VUID-VkCommandBufferBeginInfo-flags-06000", iloc.Dot("renderPass"),
				"Secondary %s begun with VK_COMMAND_BUFFER_USAGE_RENDER_PASS_CONTINUE_BIT must have a valid renderPass.",
				c.fmtHandle(cb.Handle())) || skip
		case inh.Subpass >= inh.RenderPass.SubpassCount():
			skip = c.LogError(report.Objects(cb.Handle(), inh.RenderPass.Handle()), "VUID-VkCommandBufferBeginInfo-flags-06001", iloc.Dot("subpass"),
				"Secondary %s must have a subpass index (%d) that is less than the number of subpasses (%d).",
				c.fmtHandle(cb.Handle()), inh.Subpass, inh.RenderPass.SubpassCount()) || skip
		}
	}
	if inh.QueryFlags&vulkan.QueryControlPrecise != 0 && (!inh.OcclusionQueryEnable || !c.features().OcclusionQueryPrecise) {
		skip = c.LogError(report.Objects(cb.Handle()), "VUID-vkBeginCommandBuffer-commandBuffer-00052", iloc.Dot("queryFlags"),
			"Secondary %s must not have VK_QUERY_CONTROL_PRECISE_BIT if occulusionQuery is disabled or the device does not support precise occlusion queries.",
			c.fmtHandle(cb.Handle())) || skip
	}
	return skip
}

func (c *CoreChecks) PreCallValidateEndCommandBuffer(cb *state.CommandBuffer) bool {
	if !c.Settings().CommandBufferState {
		return false
	}
	loc := report.Loc("vkEndCommandBuffer")
	skip := false
	if cb.IsPrimary() || !cb.BeginInfo.Has(vk.CommandBufferUsageRenderPassContinueBit) {
		skip = c.insideRenderPass(cb, loc, "VUID-vkEndCommandBuffer-commandBuffer-00060") || skip
	}
	switch cb.State() {
	case state.COMMAND_BUFFER_STATE_INVALID_COMPLETE, state.COMMAND_BUFFER_STATE_INVALID_INCOMPLETE:
		skip = c.ReportInvalidCommandBuffer(cb, loc) || skip
	case state.COMMAND_BUFFER_STATE_RECORDING:
	default:
		skip = c.LogError(report.Objects(cb.Handle()), "VUID-vkEndCommandBuffer-commandBuffer-00059", loc,
			"Cannot call End on %s when not in the RECORDING state. Must first call vkBeginCommandBuffer().",
			c.fmtHandle(cb.Handle())) || skip
	}
	for _, q := range sortedQueries(cb.ActiveQueries) {
		skip = c.LogError(report.Objects(cb.Handle(), q.Pool.Handle()), "VUID-vkEndCommandBuffer-commandBuffer-00061", loc,
			"Ending command buffer with in progress query: %s, query %d.", c.fmtHandle(q.Pool.Handle()), q.Query) || skip
	}
	return skip
}

func (c *CoreChecks) PreCallValidateResetCommandBuffer(cb *state.CommandBuffer) bool {
	if !c.Settings().CommandBufferState {
		return false
	}
	loc := report.Loc("vkResetCommandBuffer")
	skip := false
	if !cb.Pool.CanResetBuffers() {
		skip = c.LogError(report.Objects(cb.Handle(), cb.Pool.Handle()), "VUID-vkResetCommandBuffer-commandBuffer-00046", loc,
			"Attempt to reset %s created from %s that does NOT have the VK_COMMAND_POOL_CREATE_RESET_COMMAND_BUFFER_BIT bit set.",
			c.fmtHandle(cb.Handle()), c.fmtHandle(cb.Pool.Handle())) || skip
	}
	return c.CheckCommandBufferInFlight(cb, "reset", "VUID-vkResetCommandBuffer-commandBuffer-00045", loc) || skip
}

func (c *CoreChecks) PreCallValidateFreeCommandBuffers(cbs []*state.CommandBuffer) bool {
	loc := report.Loc("vkFreeCommandBuffers")
	skip := false
	for i, cb := range cbs {
		skip = c.CheckCommandBufferInFlight(cb, "free", "VUID-vkFreeCommandBuffers-pCommandBuffers-00047", loc.At("pCommandBuffers", i)) || skip
	}
	return skip
}

func (c *CoreChecks) PreCallValidateResetCommandPool(pool *state.CommandPool) bool {
	return c.CheckCommandBuffersInFlight(pool, "reset command pool with", "VUID-vkResetCommandPool-commandPool-00040", report.Loc("vkResetCommandPool"))
}

func (c *CoreChecks) PreCallValidateDestroyCommandPool(pool *state.CommandPool) bool {
	return c.CheckCommandBuffersInFlight(pool, "destroy command pool with", "VUID-vkDestroyCommandPool-commandPool-00041", report.Loc("vkDestroyCommandPool"))
}

func (c *CoreChecks) PreCallValidateCmdBeginQuery(cb *state.CommandBuffer, q state.QueryObject) bool {
	loc := report.Loc("vkCmdBeginQuery")
	skip := c.ValidateCmd(cb, loc)
	if _, active := cb.ActiveQueries[q]; active {
		skip = c.LogError(report.Objects(cb.Handle(), q.Pool.Handle()), "VUID-vkCmdBeginQuery-queryPool-01922", loc,
			"%s query %d is already active.", c.fmtHandle(q.Pool.Handle()), q.Query) || skip
	}
	return skip
}

func (c *CoreChecks) PreCallValidateCmdEndQuery(cb *state.CommandBuffer, q state.QueryObject) bool {
	loc := report.Loc("vkCmdEndQuery")
	skip := c.ValidateCmd(cb, loc)
	if _, active := cb.ActiveQueries[q]; !active {
		skip = c.LogError(report.Objects(cb.Handle(), q.Pool.Handle()), "VUID-vkCmdEndQuery-None-01923", loc,
			"Ending a query before it was started: %s, index %d.", c.fmtHandle(q.Pool.Handle()), q.Query) || skip
	}
	return skip
}
