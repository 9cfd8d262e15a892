package syncval

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vksync/engine/validation/state"
	"github.com/spaghettifunk/vksync/engine/vulkan"
)

// shaderStageAccesses maps each shader stage to its descriptor accesses.
var shaderStageAccesses = []struct {
	stage                                       vulkan.PipelineStageFlags2
	uniform, sampled, storageRead, storageWrite SyncStageAccessIndex
}{
	{vulkan.PipelineStage2VertexShader, SyncVertexShaderUniformRead, SyncVertexShaderShaderSampledRead,
		SyncVertexShaderShaderStorageRead, SyncVertexShaderShaderStorageWrite},
	{vulkan.PipelineStage2TessellationControlShader, SyncTessellationControlShaderUniformRead, SyncTessellationControlShaderShaderSampledRead,
		SyncTessellationControlShaderShaderStorageRead, SyncTessellationControlShaderShaderStorageWrite},
	{vulkan.PipelineStage2TessellationEvaluationShader, SyncTessellationEvaluationShaderUniformRead, SyncTessellationEvaluationShaderShaderSampledRead,
		SyncTessellationEvaluationShaderShaderStorageRead, SyncTessellationEvaluationShaderShaderStorageWrite},
	{vulkan.PipelineStage2GeometryShader, SyncGeometryShaderUniformRead, SyncGeometryShaderShaderSampledRead,
		SyncGeometryShaderShaderStorageRead, SyncGeometryShaderShaderStorageWrite},
	{vulkan.PipelineStage2FragmentShader, SyncFragmentShaderUniformRead, SyncFragmentShaderShaderSampledRead,
		SyncFragmentShaderShaderStorageRead, SyncFragmentShaderShaderStorageWrite},
	{vulkan.PipelineStage2ComputeShader, SyncComputeShaderUniformRead, SyncComputeShaderShaderSampledRead,
		SyncComputeShaderShaderStorageRead, SyncComputeShaderShaderStorageWrite},
}

// descriptorUsage is the access a shader stage makes through b.
func descriptorUsage(b *state.DescriptorBinding, stage vulkan.PipelineStageFlags2) (SyncStageAccessIndex, bool) {
	for _, s := range shaderStageAccesses {
		if s.stage != stage {
			continue
		}
		switch b.Type {
		case vk.DescriptorTypeUniformBuffer, vk.DescriptorTypeUniformBufferDynamic:
			return s.uniform, true
		case vk.DescriptorTypeSampledImage, vk.DescriptorTypeCombinedImageSampler, vk.DescriptorTypeUniformTexelBuffer:
			return s.sampled, true
		case vk.DescriptorTypeStorageBuffer, vk.DescriptorTypeStorageBufferDynamic,
			vk.DescriptorTypeStorageImage, vk.DescriptorTypeStorageTexelBuffer:
			if b.IsWrite() {
				return s.storageWrite, true
			}
			return s.storageRead, true
		case vk.DescriptorTypeInputAttachment:
			if stage == vulkan.PipelineStage2FragmentShader {
				return SyncFragmentShaderInputAttachmentRead, true
			}
		}
	}
	return SyncAccessIndexNone, false
}

func descriptorRange(b *state.DescriptorBinding) ResourceAccessRange {
	if b.ImageView != nil {
		return ImageViewRange(b.ImageView)
	}
	size := b.Range
	if size == 0 {
		size = vulkan.WholeSize
	}
	return BufferRange(b.Buffer, b.Offset, size)
}

// descriptorOps lists the accesses of the sets bound at bindPoint.
func descriptorOps(cb *state.CommandBuffer, bindPoint vk.PipelineBindPoint) []syncOp {
	stages := vulkan.PipelineStage2ComputeShader
	if bindPoint == vk.PipelineBindPointGraphics {
		stages = vulkan.PipelineStage2VertexShader | vulkan.PipelineStage2TessellationControlShader |
			vulkan.PipelineStage2TessellationEvaluationShader | vulkan.PipelineStage2GeometryShader | vulkan.PipelineStage2FragmentShader
	}
	var ops []syncOp
	for setIdx, ds := range cb.BoundDescriptorSets[bindPoint] {
		if ds == nil {
			continue
		}
		for i := range ds.Bindings {
			b := &ds.Bindings[i]
			res := descriptorRange(b)
			if res.Empty() {
				continue
			}
			field := fmt.Sprintf("pDescriptorSets[%d].binding[%d]", setIdx, b.Binding)
			for _, s := range shaderStageAccesses {
				if s.stage&stages&b.Stages == 0 {
					continue
				}
				if usage, ok := descriptorUsage(b, s.stage); ok {
					ops = append(ops, accessOp(res, usage, field, kMaxTag))
				}
			}
		}
	}
	return ops
}

func indirectOp(b *state.Buffer, offset, size uint64) syncOp {
	if size == 0 {
		size = vulkan.WholeSize
	}
	return accessOp(BufferRange(b, offset, size), SyncDrawIndirectIndirectCommandRead, "buffer", kMaxTag)
}

// attachmentOps lists the attachment writes of a draw in the current
// subpass or dynamic rendering instance.
func attachmentOps(c *CommandBufferAccessContext) []syncOp {
	floor := c.rasterFloor()
	var ops []syncOp
	add := func(view *state.ImageView, usage SyncStageAccessIndex, field string) {
		if view == nil {
			return
		}
		op := accessOp(ImageViewRange(view), usage, field, floor)
		op.inheritFloor = c.renderPass != nil && c.renderPass.inherited
		ops = append(ops, op)
	}
	if rs := c.renderPass; rs != nil {
		if int(rs.subpass) >= len(rs.rp.CreateInfo.Subpasses) {
			return nil
		}
		sp := &rs.rp.CreateInfo.Subpasses[rs.subpass]
		for i, ref := range sp.ColorAttachments {
			if !ref.Unused() {
				add(attachmentView(rs.attachments, int(ref.Attachment)), SyncColorAttachmentOutputColorAttachmentWrite,
					fmt.Sprintf("pColorAttachments[%d]", i))
			}
		}
		if ds := sp.DepthStencilAttachment; ds != nil && !ds.Unused() {
			add(attachmentView(rs.attachments, int(ds.Attachment)), SyncLateFragmentTestsDepthStencilAttachmentWrite, "pDepthStencilAttachment")
		}
		return ops
	}
	if r := c.rendering; r != nil {
		for _, a := range renderingAttachments(r) {
			add(a.View, storeUsage(viewFormat(a.View)), renderingField(r, a))
		}
	}
	return ops
}

func viewFormat(v *state.ImageView) vk.Format {
	if v == nil {
		return vk.FormatUndefined
	}
	return v.Format
}

func drawOps(c *CommandBufferAccessContext, info *state.DrawInfo) []syncOp {
	cb := c.cb
	var ops []syncOp
	if info.Indirect != nil {
		ops = append(ops, indirectOp(info.Indirect, info.IndirectOffset, info.IndirectSize))
	}
	if info.Indexed && cb.IndexBuffer != nil {
		ops = append(ops, accessOp(BufferRange(cb.IndexBuffer, 0, vulkan.WholeSize), SyncIndexInputIndexRead, "indexBuffer", kMaxTag))
	}
	for i, vb := range cb.VertexBuffers {
		if vb != nil {
			ops = append(ops, accessOp(BufferRange(vb, 0, vulkan.WholeSize), SyncVertexAttributeInputVertexAttributeRead,
				fmt.Sprintf("pVertexBuffers[%d]", i), kMaxTag))
		}
	}
	ops = append(ops, descriptorOps(cb, vk.PipelineBindPointGraphics)...)
	return append(ops, attachmentOps(c)...)
}

func drawFunction(info *state.DrawInfo) string {
	switch {
	case info.Indexed && info.Indirect != nil:
		return "vkCmdDrawIndexedIndirect"
	case info.Indexed:
		return "vkCmdDrawIndexed"
	case info.Indirect != nil:
		return "vkCmdDrawIndirect"
	}
	return "vkCmdDraw"
}

func (sv *SyncValidator) PreCallValidateCmdDraw(cb *state.CommandBuffer, info *state.DrawInfo) bool {
	return sv.validate(cb, drawFunction(info), drawOps(sv.context(cb), info))
}

func (sv *SyncValidator) PostCallRecordCmdDraw(cb *state.CommandBuffer, info *state.DrawInfo) {
	c := sv.context(cb)
	c.record(drawFunction(info), drawOps(c, info))
}

func dispatchOps(cb *state.CommandBuffer, info *state.DispatchInfo) []syncOp {
	var ops []syncOp
	if info.Indirect != nil {
		ops = append(ops, indirectOp(info.Indirect, info.IndirectOffset, info.IndirectSize))
	}
	return append(ops, descriptorOps(cb, vk.PipelineBindPointCompute)...)
}

func dispatchFunction(info *state.DispatchInfo) string {
	if info.Indirect != nil {
		return "vkCmdDispatchIndirect"
	}
	return "vkCmdDispatch"
}

func (sv *SyncValidator) PreCallValidateCmdDispatch(cb *state.CommandBuffer, info *state.DispatchInfo) bool {
	return sv.validate(cb, dispatchFunction(info), dispatchOps(cb, info))
}

func (sv *SyncValidator) PostCallRecordCmdDispatch(cb *state.CommandBuffer, info *state.DispatchInfo) {
	sv.record(cb, dispatchFunction(info), dispatchOps(cb, info))
}
