package syncval

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vksync/engine/validation/state"
	"github.com/spaghettifunk/vksync/engine/vulkan"
)

func regionField(i int, name string) string {
	return fmt.Sprintf("pRegions[%d].%s", i, name)
}

func imagePairOps(info *state.CopyImageInfo, read, write SyncStageAccessIndex) []syncOp {
	ops := make([]syncOp, 0, 2*len(info.Regions))
	for i, r := range info.Regions {
		ops = append(ops,
			accessOp(ImageLayersRange(info.Src, r.SrcSubresource), read, regionField(i, "srcSubresource"), kMaxTag),
			accessOp(ImageLayersRange(info.Dst, r.DstSubresource), write, regionField(i, "dstSubresource"), kMaxTag),
		)
	}
	return ops
}

// bufferImageRange is the part of a buffer one buffer/image copy region
// touches. Formats without a known texel size cover the rest of the buffer.
func bufferImageRange(b *state.Buffer, img *state.Image, r state.BufferImageCopyRegion) ResourceAccessRange {
	size := vulkan.WholeSize
	if img != nil {
		if texel := vulkan.FormatTexelSize(img.CreateInfo.Format); texel > 0 {
			layers := img.Encoder.NormalizeLayers(r.ImageSubresource).LayerCount
			e := r.ImageExtent
			size = texel * uint64(e.Width) * uint64(max(e.Height, 1)) * uint64(max(e.Depth, 1)) * uint64(max(layers, 1))
		}
	}
	return BufferRange(b, r.BufferOffset, size)
}

func (sv *SyncValidator) PreCallValidateCmdCopyImage(cb *state.CommandBuffer, info *state.CopyImageInfo) bool {
	return sv.validate(cb, "vkCmdCopyImage", imagePairOps(info, SyncCopyTransferRead, SyncCopyTransferWrite))
}

func (sv *SyncValidator) PostCallRecordCmdCopyImage(cb *state.CommandBuffer, info *state.CopyImageInfo) {
	sv.record(cb, "vkCmdCopyImage", imagePairOps(info, SyncCopyTransferRead, SyncCopyTransferWrite))
}

func (sv *SyncValidator) PreCallValidateCmdBlitImage(cb *state.CommandBuffer, info *state.BlitImageInfo) bool {
	return sv.validate(cb, "vkCmdBlitImage", imagePairOps((*state.CopyImageInfo)(info), SyncBlitTransferRead, SyncBlitTransferWrite))
}

func (sv *SyncValidator) PostCallRecordCmdBlitImage(cb *state.CommandBuffer, info *state.BlitImageInfo) {
	sv.record(cb, "vkCmdBlitImage", imagePairOps((*state.CopyImageInfo)(info), SyncBlitTransferRead, SyncBlitTransferWrite))
}

func (sv *SyncValidator) PreCallValidateCmdResolveImage(cb *state.CommandBuffer, info *state.ResolveImageInfo) bool {
	return sv.validate(cb, "vkCmdResolveImage", imagePairOps((*state.CopyImageInfo)(info), SyncResolveTransferRead, SyncResolveTransferWrite))
}

func (sv *SyncValidator) PostCallRecordCmdResolveImage(cb *state.CommandBuffer, info *state.ResolveImageInfo) {
	sv.record(cb, "vkCmdResolveImage", imagePairOps((*state.CopyImageInfo)(info), SyncResolveTransferRead, SyncResolveTransferWrite))
}

func copyBufferToImageOps(info *state.CopyBufferToImageInfo) []syncOp {
	ops := make([]syncOp, 0, 2*len(info.Regions))
	for i, r := range info.Regions {
		ops = append(ops,
			accessOp(bufferImageRange(info.Src, info.Dst, r), SyncCopyTransferRead, regionField(i, "bufferOffset"), kMaxTag),
			accessOp(ImageLayersRange(info.Dst, r.ImageSubresource), SyncCopyTransferWrite, regionField(i, "imageSubresource"), kMaxTag),
		)
	}
	return ops
}

func (sv *SyncValidator) PreCallValidateCmdCopyBufferToImage(cb *state.CommandBuffer, info *state.CopyBufferToImageInfo) bool {
	return sv.validate(cb, "vkCmdCopyBufferToImage", copyBufferToImageOps(info))
}

func (sv *SyncValidator) PostCallRecordCmdCopyBufferToImage(cb *state.CommandBuffer, info *state.CopyBufferToImageInfo) {
	sv.record(cb, "vkCmdCopyBufferToImage", copyBufferToImageOps(info))
}

func copyImageToBufferOps(info *state.CopyImageToBufferInfo) []syncOp {
	ops := make([]syncOp, 0, 2*len(info.Regions))
	for i, r := range info.Regions {
		ops = append(ops,
			accessOp(ImageLayersRange(info.Src, r.ImageSubresource), SyncCopyTransferRead, regionField(i, "imageSubresource"), kMaxTag),
			accessOp(bufferImageRange(info.Dst, info.Src, r), SyncCopyTransferWrite, regionField(i, "bufferOffset"), kMaxTag),
		)
	}
	return ops
}

func (sv *SyncValidator) PreCallValidateCmdCopyImageToBuffer(cb *state.CommandBuffer, info *state.CopyImageToBufferInfo) bool {
	return sv.validate(cb, "vkCmdCopyImageToBuffer", copyImageToBufferOps(info))
}

func (sv *SyncValidator) PostCallRecordCmdCopyImageToBuffer(cb *state.CommandBuffer, info *state.CopyImageToBufferInfo) {
	sv.record(cb, "vkCmdCopyImageToBuffer", copyImageToBufferOps(info))
}

func copyBufferOps(info *state.CopyBufferInfo) []syncOp {
	ops := make([]syncOp, 0, 2*len(info.Regions))
	for i, r := range info.Regions {
		ops = append(ops,
			accessOp(BufferRange(info.Src, r.SrcOffset, r.Size), SyncCopyTransferRead, regionField(i, "srcOffset"), kMaxTag),
			accessOp(BufferRange(info.Dst, r.DstOffset, r.Size), SyncCopyTransferWrite, regionField(i, "dstOffset"), kMaxTag),
		)
	}
	return ops
}

func (sv *SyncValidator) PreCallValidateCmdCopyBuffer(cb *state.CommandBuffer, info *state.CopyBufferInfo) bool {
	return sv.validate(cb, "vkCmdCopyBuffer", copyBufferOps(info))
}

func (sv *SyncValidator) PostCallRecordCmdCopyBuffer(cb *state.CommandBuffer, info *state.CopyBufferInfo) {
	sv.record(cb, "vkCmdCopyBuffer", copyBufferOps(info))
}

func clearOps(info *state.ClearImageInfo) []syncOp {
	ops := make([]syncOp, 0, len(info.Ranges))
	for i, rng := range info.Ranges {
		ops = append(ops, accessOp(ImageRange(info.Image, rng), SyncClearTransferWrite, fmt.Sprintf("pRanges[%d]", i), kMaxTag))
	}
	return ops
}

func (sv *SyncValidator) PreCallValidateCmdClearColorImage(cb *state.CommandBuffer, info *state.ClearImageInfo) bool {
	return sv.validate(cb, "vkCmdClearColorImage", clearOps(info))
}

func (sv *SyncValidator) PostCallRecordCmdClearColorImage(cb *state.CommandBuffer, info *state.ClearImageInfo) {
	sv.record(cb, "vkCmdClearColorImage", clearOps(info))
}

func (sv *SyncValidator) PreCallValidateCmdClearDepthStencilImage(cb *state.CommandBuffer, info *state.ClearImageInfo) bool {
	return sv.validate(cb, "vkCmdClearDepthStencilImage", clearOps(info))
}

func (sv *SyncValidator) PostCallRecordCmdClearDepthStencilImage(cb *state.CommandBuffer, info *state.ClearImageInfo) {
	sv.record(cb, "vkCmdClearDepthStencilImage", clearOps(info))
}

func fillOps(info *state.FillBufferInfo) []syncOp {
	return []syncOp{accessOp(BufferRange(info.Buffer, info.Offset, info.Size), SyncClearTransferWrite, "dstBuffer", kMaxTag)}
}

func (sv *SyncValidator) PreCallValidateCmdFillBuffer(cb *state.CommandBuffer, info *state.FillBufferInfo) bool {
	return sv.validate(cb, "vkCmdFillBuffer", fillOps(info))
}

func (sv *SyncValidator) PostCallRecordCmdFillBuffer(cb *state.CommandBuffer, info *state.FillBufferInfo) {
	sv.record(cb, "vkCmdFillBuffer", fillOps(info))
}

func (sv *SyncValidator) PreCallValidateCmdUpdateBuffer(cb *state.CommandBuffer, info *state.FillBufferInfo) bool {
	return sv.validate(cb, "vkCmdUpdateBuffer", fillOps(info))
}

func (sv *SyncValidator) PostCallRecordCmdUpdateBuffer(cb *state.CommandBuffer, info *state.FillBufferInfo) {
	sv.record(cb, "vkCmdUpdateBuffer", fillOps(info))
}

// Barriers

func scopeBarrier(src, dst state.Scope) SyncBarrier {
	return NewSyncBarrier(MakeSrcScope(src.Stages), MakeDstScope(dst.Stages), src.Accesses, dst.Accesses)
}

func imageBarrierEntry[B state.ImageBarrier](b B, cmdSrc, cmdDst vulkan.PipelineStageFlags2, field string) barrierEntry {
	src, dst := b.Scopes(cmdSrc, cmdDst)
	res := ImageRange(b.BarrierImage(), b.BarrierRange())
	return barrierEntry{
		barrier:          scopeBarrier(src, dst),
		res:              &res,
		layoutTransition: state.IsLayoutTransition(b),
		field:            field,
	}
}

func memoryBarrierEntries(memory []state.MemoryBarrier, buffers []state.BufferMemoryBarrier) []barrierEntry {
	entries := make([]barrierEntry, 0, len(memory)+len(buffers))
	for i, mb := range memory {
		entries = append(entries, barrierEntry{
			barrier: scopeBarrier(mb.Src, mb.Dst),
			field:   fmt.Sprintf("pMemoryBarriers[%d]", i),
		})
	}
	for i, bb := range buffers {
		res := BufferRange(bb.Buffer, bb.Offset, bb.Size)
		entries = append(entries, barrierEntry{
			barrier: scopeBarrier(bb.Src, bb.Dst),
			res:     &res,
			field:   fmt.Sprintf("pBufferMemoryBarriers[%d]", i),
		})
	}
	return entries
}

// pipelineBarrierEntries resolves a vkCmdPipelineBarrier call. The stage
// masks alone form an execution barrier over every resource.
func pipelineBarrierEntries(src, dst vulkan.PipelineStageFlags2, memory []state.MemoryBarrier,
	buffers []state.BufferMemoryBarrier, images []state.ImageMemoryBarrier) []barrierEntry {
	entries := []barrierEntry{{
		barrier: NewSyncBarrier(MakeSrcScope(src), MakeDstScope(dst), 0, 0),
		field:   "srcStageMask",
	}}
	entries = append(entries, memoryBarrierEntries(memory, buffers)...)
	for i, ib := range images {
		entries = append(entries, imageBarrierEntry(ib, src, dst, fmt.Sprintf("pImageMemoryBarriers[%d]", i)))
	}
	return entries
}

func dependencyEntries(dep *state.DependencyInfo) []barrierEntry {
	entries := memoryBarrierEntries(dep.MemoryBarriers, dep.BufferMemoryBarriers)
	for i, ib := range dep.ImageMemoryBarriers {
		entries = append(entries, imageBarrierEntry(ib, 0, 0, fmt.Sprintf("pDependencyInfo.pImageMemoryBarriers[%d]", i)))
	}
	return entries
}

func barrierOp(entries []barrierEntry) []syncOp {
	return []syncOp{{kind: syncOpBarriers, barriers: entries}}
}

func (sv *SyncValidator) PreCallValidateCmdPipelineBarrier(cb *state.CommandBuffer, info *state.PipelineBarrierInfo) bool {
	return sv.validate(cb, "vkCmdPipelineBarrier", barrierOp(pipelineBarrierEntries(info.SrcStageMask, info.DstStageMask,
		info.MemoryBarriers, info.BufferMemoryBarriers, info.ImageMemoryBarriers)))
}

func (sv *SyncValidator) PostCallRecordCmdPipelineBarrier(cb *state.CommandBuffer, info *state.PipelineBarrierInfo) {
	sv.record(cb, "vkCmdPipelineBarrier", barrierOp(pipelineBarrierEntries(info.SrcStageMask, info.DstStageMask,
		info.MemoryBarriers, info.BufferMemoryBarriers, info.ImageMemoryBarriers)))
}

func (sv *SyncValidator) PreCallValidateCmdPipelineBarrier2(cb *state.CommandBuffer, dep *state.DependencyInfo) bool {
	return sv.validate(cb, "vkCmdPipelineBarrier2", barrierOp(dependencyEntries(dep)))
}

func (sv *SyncValidator) PostCallRecordCmdPipelineBarrier2(cb *state.CommandBuffer, dep *state.DependencyInfo) {
	sv.record(cb, "vkCmdPipelineBarrier2", barrierOp(dependencyEntries(dep)))
}

// Events

func (sv *SyncValidator) PostCallRecordCmdSetEvent(cb *state.CommandBuffer, event *state.Event, stages vulkan.PipelineStageFlags2) {
	c := sv.context(cb)
	tag := c.record("vkCmdSetEvent", nil)
	c.events[event] = eventState{tag: tag, stages: stages}
}

func (sv *SyncValidator) PostCallRecordCmdResetEvent(cb *state.CommandBuffer, event *state.Event) {
	c := sv.context(cb)
	c.record("vkCmdResetEvent", nil)
	delete(c.events, event)
}

// waitEventsOps resolves a wait. Its first scope holds the accesses recorded
// before the latest of the matching sets, or everything when an event was
// set outside this recording.
func waitEventsOps(c *CommandBufferAccessContext, info *state.WaitEventsInfo) []syncOp {
	scopeTag := ResourceUsageTag(0)
	var setStages vulkan.PipelineStageFlags2
	for _, e := range info.Events {
		es, ok := c.events[e]
		if !ok {
			scopeTag = kMaxTag
			setStages = 0
			break
		}
		scopeTag = max(scopeTag, es.tag)
		setStages |= es.stages
	}
	var entries []barrierEntry
	if info.SrcStageMask != 0 || info.DstStageMask != 0 {
		src := info.SrcStageMask
		if narrowed := src & setStages; narrowed != 0 {
			src = narrowed
		}
		entries = pipelineBarrierEntries(src, info.DstStageMask, nil, nil, nil)
		// sync1 memory barriers carry the command's masks in their scopes
		entries = append(entries, memoryBarrierEntries(info.Dependency.MemoryBarriers, info.Dependency.BufferMemoryBarriers)...)
		for i, ib := range info.Dependency.ImageMemoryBarriers {
			entries = append(entries, imageBarrierEntry(ib, 0, 0, fmt.Sprintf("pImageMemoryBarriers[%d]", i)))
		}
	} else {
		entries = dependencyEntries(&info.Dependency)
	}
	return []syncOp{{kind: syncOpBarriers, barriers: entries, scopeTag: scopeTag, eventScope: true}}
}

func (sv *SyncValidator) PreCallValidateCmdWaitEvents(cb *state.CommandBuffer, info *state.WaitEventsInfo) bool {
	return sv.validate(cb, "vkCmdWaitEvents", waitEventsOps(sv.context(cb), info))
}

func (sv *SyncValidator) PostCallRecordCmdWaitEvents(cb *state.CommandBuffer, info *state.WaitEventsInfo) {
	c := sv.context(cb)
	c.record("vkCmdWaitEvents", waitEventsOps(c, info))
}

// Render passes

var implicitIncoming = state.SubpassDependency{
	SrcSubpass:   vulkan.SubpassExternal,
	SrcStageMask: vulkan.PipelineStage2TopOfPipe,
	DstStageMask: vulkan.PipelineStage2AllCommands,
	DstAccessMask: vulkan.Access2InputAttachmentRead | vulkan.Access2ColorAttachmentRead | vulkan.Access2ColorAttachmentWrite |
		vulkan.Access2DepthStencilAttachmentRead | vulkan.Access2DepthStencilAttachmentWrite,
}

var implicitOutgoing = state.SubpassDependency{
	DstSubpass:    vulkan.SubpassExternal,
	SrcStageMask:  vulkan.PipelineStage2AllCommands,
	DstStageMask:  vulkan.PipelineStage2BottomOfPipe,
	SrcAccessMask: vulkan.Access2ColorAttachmentWrite | vulkan.Access2DepthStencilAttachmentWrite,
}

func dependencyBarrier(d state.SubpassDependency) SyncBarrier {
	return NewSyncBarrier(MakeSrcScope(d.SrcStageMask), MakeDstScope(d.DstStageMask), d.SrcAccessMask, d.DstAccessMask)
}

// subpassLayout is the layout attachment has in subpass.
func subpassLayout(rp *state.RenderPass, subpass, attachment uint32) (vk.ImageLayout, bool) {
	if int(subpass) >= len(rp.CreateInfo.Subpasses) {
		return 0, false
	}
	sp := &rp.CreateInfo.Subpasses[subpass]
	for _, ref := range sp.References() {
		if ref.Attachment == attachment {
			return ref.Layout, true
		}
	}
	return 0, false
}

func attachmentView(views []*state.ImageView, i int) *state.ImageView {
	if i < len(views) {
		return views[i]
	}
	return nil
}

func isDepthStencil(f vk.Format) bool {
	return vulkan.FormatHasDepth(f) || vulkan.FormatHasStencil(f)
}

func loadUsage(desc state.AttachmentDescription) SyncStageAccessIndex {
	load := desc.LoadOp
	if !vulkan.FormatHasDepth(desc.Format) && vulkan.FormatHasStencil(desc.Format) {
		load = desc.StencilLoadOp
	}
	if isDepthStencil(desc.Format) {
		if load == vk.AttachmentLoadOpLoad {
			return SyncEarlyFragmentTestsDepthStencilAttachmentRead
		}
		return SyncEarlyFragmentTestsDepthStencilAttachmentWrite
	}
	if load == vk.AttachmentLoadOpLoad {
		return SyncColorAttachmentOutputColorAttachmentRead
	}
	return SyncColorAttachmentOutputColorAttachmentWrite
}

func storeUsage(f vk.Format) SyncStageAccessIndex {
	if isDepthStencil(f) {
		return SyncLateFragmentTestsDepthStencilAttachmentWrite
	}
	return SyncColorAttachmentOutputColorAttachmentWrite
}

// beginRenderPassOps applies the incoming dependency of each attachment's
// first subpass with its layout transition, then the load operations.
func beginRenderPassOps(info *state.RenderPassBeginInfo, beginTag ResourceUsageTag) []syncOp {
	rp := info.RenderPass
	var views []*state.ImageView
	if info.Framebuffer != nil {
		views = info.Framebuffer.Attachments
	}
	var entries []barrierEntry
	var loads []syncOp
	explicit := map[uint32]bool{}
	for i, desc := range rp.CreateInfo.Attachments {
		first := rp.AttachmentFirstSubpass[i]
		view := attachmentView(views, i)
		if first == vulkan.AttachmentUnused || view == nil {
			continue
		}
		dep, ok := rp.ExternalDependency(first, true)
		if !ok {
			dep = implicitIncoming
		} else if !explicit[first] {
			explicit[first] = true
			entries = append(entries, barrierEntry{barrier: dependencyBarrier(dep), field: fmt.Sprintf("pSubpasses[%d]", first)})
		}
		layout, _ := subpassLayout(rp, first, uint32(i))
		res := ImageViewRange(view)
		if desc.InitialLayout != layout {
			entries = append(entries, barrierEntry{
				barrier:          dependencyBarrier(dep),
				res:              &res,
				layoutTransition: true,
				field:            fmt.Sprintf("pAttachments[%d]", i),
			})
		}
		loads = append(loads, accessOp(res, loadUsage(desc), fmt.Sprintf("pAttachments[%d]", i), beginTag))
	}
	var ops []syncOp
	if len(entries) > 0 {
		ops = append(ops, syncOp{kind: syncOpBarriers, barriers: entries})
	}
	return append(ops, loads...)
}

// endRenderPassOps stores each attachment and transitions it to its final
// layout under the outgoing dependency of its last subpass.
func endRenderPassOps(rs *renderPassState) []syncOp {
	rp := rs.rp
	var ops []syncOp
	var entries []barrierEntry
	for i, desc := range rp.CreateInfo.Attachments {
		last := rp.AttachmentLastSubpass[i]
		view := attachmentView(rs.attachments, i)
		if last == vulkan.AttachmentUnused || view == nil {
			continue
		}
		res := ImageViewRange(view)
		ops = append(ops, accessOp(res, storeUsage(desc.Format), fmt.Sprintf("pAttachments[%d]", i), rs.beginTag))
		layout, _ := subpassLayout(rp, last, uint32(i))
		if desc.FinalLayout == layout {
			continue
		}
		dep, ok := rp.ExternalDependency(last, false)
		if !ok {
			dep = implicitOutgoing
		}
		entries = append(entries, barrierEntry{
			barrier:          dependencyBarrier(dep),
			res:              &res,
			layoutTransition: true,
			field:            fmt.Sprintf("pAttachments[%d]", i),
		})
	}
	if len(entries) > 0 {
		ops = append(ops, syncOp{kind: syncOpBarriers, barriers: entries})
	}
	return ops
}

func (sv *SyncValidator) PreCallValidateCmdBeginRenderPass(cb *state.CommandBuffer, info *state.RenderPassBeginInfo) bool {
	if info.RenderPass == nil {
		return false
	}
	c := sv.context(cb)
	return sv.validate(cb, "vkCmdBeginRenderPass", beginRenderPassOps(info, c.nextTag()))
}

func (sv *SyncValidator) PostCallRecordCmdBeginRenderPass(cb *state.CommandBuffer, info *state.RenderPassBeginInfo) {
	if info.RenderPass == nil {
		return
	}
	c := sv.context(cb)
	tag := c.record("vkCmdBeginRenderPass", beginRenderPassOps(info, c.nextTag()))
	var views []*state.ImageView
	if info.Framebuffer != nil {
		views = info.Framebuffer.Attachments
	}
	c.renderPass = &renderPassState{rp: info.RenderPass, attachments: views, beginTag: tag}
}

func (sv *SyncValidator) PostCallRecordCmdNextSubpass(cb *state.CommandBuffer, contents vk.SubpassContents) {
	c := sv.context(cb)
	c.record("vkCmdNextSubpass", nil)
	if c.renderPass != nil {
		c.renderPass.subpass++
	}
}

func (sv *SyncValidator) PreCallValidateCmdEndRenderPass(cb *state.CommandBuffer) bool {
	c := sv.context(cb)
	if c.renderPass == nil || c.renderPass.inherited {
		return false
	}
	return sv.validate(cb, "vkCmdEndRenderPass", endRenderPassOps(c.renderPass))
}

func (sv *SyncValidator) PostCallRecordCmdEndRenderPass(cb *state.CommandBuffer) {
	c := sv.context(cb)
	if c.renderPass == nil || c.renderPass.inherited {
		c.record("vkCmdEndRenderPass", nil)
		return
	}
	c.record("vkCmdEndRenderPass", endRenderPassOps(c.renderPass))
	c.renderPass = nil
}

func renderingAttachments(info *state.RenderingInfo) []*state.RenderingAttachment {
	out := make([]*state.RenderingAttachment, 0, len(info.ColorAttachments)+2)
	for i := range info.ColorAttachments {
		out = append(out, &info.ColorAttachments[i])
	}
	if info.DepthAttachment != nil {
		out = append(out, info.DepthAttachment)
	}
	if info.StencilAttachment != nil && info.StencilAttachment != info.DepthAttachment {
		out = append(out, info.StencilAttachment)
	}
	return out
}

func renderingField(info *state.RenderingInfo, a *state.RenderingAttachment) string {
	switch a {
	case info.DepthAttachment:
		return "pDepthAttachment"
	case info.StencilAttachment:
		return "pStencilAttachment"
	}
	for i := range info.ColorAttachments {
		if &info.ColorAttachments[i] == a {
			return fmt.Sprintf("pColorAttachments[%d]", i)
		}
	}
	return "pRenderingInfo"
}

func beginRenderingOps(info *state.RenderingInfo, beginTag ResourceUsageTag) []syncOp {
	var ops []syncOp
	for _, a := range renderingAttachments(info) {
		if a.View == nil {
			continue
		}
		desc := state.AttachmentDescription{Format: a.View.Format, LoadOp: a.LoadOp, StencilLoadOp: a.LoadOp}
		ops = append(ops, accessOp(ImageViewRange(a.View), loadUsage(desc), renderingField(info, a), beginTag))
	}
	return ops
}

func endRenderingOps(info *state.RenderingInfo, beginTag ResourceUsageTag) []syncOp {
	var ops []syncOp
	for _, a := range renderingAttachments(info) {
		if a.View != nil {
			ops = append(ops, accessOp(ImageViewRange(a.View), storeUsage(a.View.Format), renderingField(info, a), beginTag))
		}
		if a.ResolveView != nil {
			ops = append(ops, accessOp(ImageViewRange(a.ResolveView), SyncColorAttachmentOutputColorAttachmentWrite, renderingField(info, a)+".resolveImageView", beginTag))
		}
	}
	return ops
}

func (sv *SyncValidator) PreCallValidateCmdBeginRendering(cb *state.CommandBuffer, info *state.RenderingInfo) bool {
	c := sv.context(cb)
	return sv.validate(cb, "vkCmdBeginRendering", beginRenderingOps(info, c.nextTag()))
}

func (sv *SyncValidator) PostCallRecordCmdBeginRendering(cb *state.CommandBuffer, info *state.RenderingInfo) {
	c := sv.context(cb)
	c.renderingTag = c.record("vkCmdBeginRendering", beginRenderingOps(info, c.nextTag()))
	c.rendering = info
}

func (sv *SyncValidator) PreCallValidateCmdEndRendering(cb *state.CommandBuffer) bool {
	c := sv.context(cb)
	if c.rendering == nil {
		return false
	}
	return sv.validate(cb, "vkCmdEndRendering", endRenderingOps(c.rendering, c.renderingTag))
}

func (sv *SyncValidator) PostCallRecordCmdEndRendering(cb *state.CommandBuffer) {
	c := sv.context(cb)
	if c.rendering == nil {
		c.record("vkCmdEndRendering", nil)
		return
	}
	c.record("vkCmdEndRendering", endRenderingOps(c.rendering, c.renderingTag))
	c.rendering = nil
	c.renderingTag = kMaxTag
}
