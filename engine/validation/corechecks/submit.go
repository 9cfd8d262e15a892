package corechecks

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vksync/engine/validation/imagelayout"
	"github.com/spaghettifunk/vksync/engine/validation/report"
	"github.com/spaghettifunk/vksync/engine/validation/state"
	"github.com/spaghettifunk/vksync/engine/vulkan"
)

// ValidateCmdBufImageLayouts compares the layouts cb expects its images in
// with the layouts left by completed work and by the command buffers of the
// same submission validated before it. The layouts cb leaves behind are then
// added to overlay.
func (c *CoreChecks) ValidateCmdBufImageLayouts(loc report.Location, cb *state.CommandBuffer, overlay *imagelayout.Overlay) bool {
	if c.layoutValidationDisabled() {
		return false
	}
	skip := false
	cb.ForEachImageLayoutMap(func(img *state.Image, local *imagelayout.SubresourceLayoutMap) {
		if local.Empty() {
			return
		}
		prior, _ := overlay.Get(img.Handle().Handle)
		imagelayout.FindInitialLayoutMismatches(local, prior, img.GlobalLayouts, func(m imagelayout.Mismatch) {
			skip = c.LogError(report.Objects(cb.Handle(), img.Handle()), kVUIDInvalidImageLayout, loc,
				"command buffer %s expects %s (subresource: aspectMask 0x%X array layer %d, mip level %d) to be in layout %s--instead, current layout is %s.",
				c.fmtHandle(cb.Handle()), c.fmtHandle(img.Handle()), uint32(m.Subresource.AspectMask), m.Subresource.ArrayLayer,
				m.Subresource.MipLevel, vulkan.ImageLayoutString(m.Expected), vulkan.ImageLayoutString(m.Actual)) || skip
		})
		imagelayout.SpliceCurrentLayouts(overlay.GetOrCreate(img.Handle().Handle), local)
	})
	return skip
}

// UpdateCmdBufImageLayouts commits the layouts cb leaves its images in.
func (c *CoreChecks) UpdateCmdBufImageLayouts(cb *state.CommandBuffer) {
	cb.ForEachImageLayoutMap(func(img *state.Image, local *imagelayout.SubresourceLayoutMap) {
		imagelayout.Commit(img.GlobalLayouts, local)
	})
}

// ValidateCommandBufferState checks that cb can be submitted; submitCount
// counts its uses in the call so far.
func (c *CoreChecks) ValidateCommandBufferState(cb *state.CommandBuffer, loc report.Location, submitCount int, vuid string) bool {
	if !c.Settings().CommandBufferState {
		return false
	}
	skip := false
	if cb.BeginInfo.Has(vk.CommandBufferUsageOneTimeSubmitBit) && cb.SubmitCount()+submitCount > 1 {
		skip = c.LogError(report.Objects(cb.Handle()), kVUIDSingleSubmitViolation, loc,
			"%s was begun w/ VK_COMMAND_BUFFER_USAGE_ONE_TIME_SUBMIT_BIT set, but has been submitted 0x%x times.",
			c.fmtHandle(cb.Handle()), cb.SubmitCount()+submitCount) || skip
	}
	switch cb.State() {
	case state.COMMAND_BUFFER_STATE_INVALID_COMPLETE, state.COMMAND_BUFFER_STATE_INVALID_INCOMPLETE:
		skip = c.ReportInvalidCommandBuffer(cb, loc) || skip
	case state.COMMAND_BUFFER_STATE_INITIAL:
		skip = c.LogError(report.Objects(cb.Handle()), vuid, loc,
			"%s used in the call to %s is unrecorded and contains no commands.", c.fmtHandle(cb.Handle()), loc.Function) || skip
	case state.COMMAND_BUFFER_STATE_RECORDING:
		skip = c.LogError(report.Objects(cb.Handle()), kVUIDNoEndCommandBuffer, loc,
			"You must call vkEndCommandBuffer() on %s before this call to %s!", c.fmtHandle(cb.Handle()), loc.Function) || skip
	}
	return skip
}

func (c *CoreChecks) validateCommandBufferSimultaneousUse(cb *state.CommandBuffer, loc report.Location, submitCount int) bool {
	if cb.BeginInfo.Has(vk.CommandBufferUsageSimultaneousUseBit) {
		return false
	}
	if !cb.InUse() && submitCount <= 1 {
		return false
	}
	vuid := "VUID-vkQueueSubmit-pCommandBuffers-00071"
	if loc.Function == "vkQueueSubmit2" {
		vuid = "VUID-vkQueueSubmit2-commandBuffer-03875"
	}
	return c.LogError(report.Objects(cb.Handle()), vuid, loc,
		"%s is already in use and is not marked for simultaneous use.", c.fmtHandle(cb.Handle()))
}

func (c *CoreChecks) validatePrimaryCommandBufferState(cb *state.CommandBuffer, loc report.Location, submitCount int) bool {
	skip := false
	submit2 := loc.Function == "vkQueueSubmit2"
	if !cb.IsPrimary() {
		vuid := "VUID-VkSubmitInfo-pCommandBuffers-00075"
		if submit2 {
			vuid = "VUID-VkCommandBufferSubmitInfo-commandBuffer-03890"
		}
		skip = c.LogError(report.Objects(cb.Handle()), vuid, loc,
			"Command buffer %s was included in the pCommandBuffers array of QueueSubmit but was allocated with VK_COMMAND_BUFFER_LEVEL_SECONDARY.",
			c.fmtHandle(cb.Handle())) || skip
	} else {
		for _, sub := range cb.LinkedCommandBuffers() {
			if sub.PrimaryCommandBuffer == cb || sub.BeginInfo.Has(vk.CommandBufferUsageSimultaneousUseBit) || sub.PrimaryCommandBuffer == nil {
				continue
			}
			vuid := "VUID-vkQueueSubmit-pCommandBuffers-00073"
			if submit2 {
				vuid = "VUID-vkQueueSubmit2-commandBuffer-03876"
			}
			skip = c.LogError(report.Objects(cb.Handle(), sub.Handle(), sub.PrimaryCommandBuffer.Handle()), vuid, loc,
				"%s was submitted with secondary %s but that buffer has subsequently been bound to primary %s and it does not have VK_COMMAND_BUFFER_USAGE_SIMULTANEOUS_USE_BIT set.",
				c.fmtHandle(cb.Handle()), c.fmtHandle(sub.Handle()), c.fmtHandle(sub.PrimaryCommandBuffer.Handle())) || skip
		}
	}
	skip = c.validateCommandBufferSimultaneousUse(cb, loc, submitCount) || skip
	vuid := "VUID-vkQueueSubmit-pCommandBuffers-00072"
	if submit2 {
		vuid = "VUID-vkQueueSubmit2-commandBuffer-03877"
	}
	return c.ValidateCommandBufferState(cb, loc, submitCount, vuid) || skip
}

func (c *CoreChecks) validateQueueFamilyIndices(cb *state.CommandBuffer, q *state.Queue, loc report.Location) bool {
	if cb.Pool.QueueFamilyIndex() == q.FamilyIndex {
		return false
	}
	vuid := "VUID-vkQueueSubmit-pCommandBuffers-00074"
	if loc.Function == "vkQueueSubmit2" {
		vuid = "VUID-vkQueueSubmit2-commandBuffer-03878"
	}
	return c.LogError(report.Objects(cb.Handle(), q.Handle()), vuid, loc,
		"Primary %s created in queue family %d is being submitted on %s from queue family %d.",
		c.fmtHandle(cb.Handle()), cb.Pool.QueueFamilyIndex(), c.fmtHandle(q.Handle()), q.FamilyIndex)
}

func (c *CoreChecks) validateFence(fence *state.Fence, loc report.Location) bool {
	if fence == nil {
		return false
	}
	switch {
	case fence.Pending():
		return c.LogError(report.Objects(fence.Handle()), "VUID-vkQueueSubmit-fence-00064", loc,
			"%s is already in use by another submission.", c.fmtHandle(fence.Handle()))
	case fence.Signaled():
		return c.LogError(report.Objects(fence.Handle()), "VUID-vkQueueSubmit-fence-00063", loc,
			"%s submitted in SIGNALED state. Fences must be reset before being submitted", c.fmtHandle(fence.Handle()))
	}
	return false
}

// PreCallValidateQueueSubmit validates every command buffer of every batch.
// Image layouts are checked through one overlay for the whole call, so a
// rejected call leaves the global layouts untouched.
func (c *CoreChecks) PreCallValidateQueueSubmit(function string, q *state.Queue, subs []*state.Submission) bool {
	loc := report.Loc(function)
	skip := false
	overlay := imagelayout.NewOverlay()
	submitCounts := make(map[*state.CommandBuffer]int)
	for i, sub := range subs {
		sloc := loc.At("pSubmits", i)
		for j, cb := range sub.CommandBuffers {
			cloc := sloc.At("pCommandBuffers", j)
			skip = c.ValidateCmdBufImageLayouts(cloc, cb, overlay) || skip
			submitCounts[cb]++
			skip = c.validatePrimaryCommandBufferState(cb, cloc, submitCounts[cb]) || skip
			skip = c.validateQueueFamilyIndices(cb, q, cloc) || skip
			for _, linked := range cb.LinkedCommandBuffers() {
				skip = c.validateQueueFamilyIndices(linked, q, cloc) || skip
			}
			if cb.Pool.Protected() != q.Protected {
				skip = c.LogError(report.Objects(cb.Handle(), q.Handle()), "VUID-VkSubmitInfo-pNext-04148", cloc,
					"%s protected state does not match the protected state of %s.",
					c.fmtHandle(cb.Handle()), c.fmtHandle(q.Handle())) || skip
			}
		}
	}
	if len(subs) > 0 {
		skip = c.validateFence(subs[len(subs)-1].Fence, loc.Dot("fence")) || skip
	}
	return skip
}

func (c *CoreChecks) PostCallRecordQueueSubmit(q *state.Queue, subs []*state.Submission) {
	for _, sub := range subs {
		for _, cb := range sub.CommandBuffers {
			c.UpdateCmdBufImageLayouts(cb)
		}
	}
}
