package replay

import (
	"strings"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"

	"github.com/spaghettifunk/vksync/engine/core"
	"github.com/spaghettifunk/vksync/engine/validation/state"
	"github.com/spaghettifunk/vksync/engine/vulkan"
)

type command func(r *Replay, c *Call) error

var commands = map[string]command{
	"vkBeginCommandBuffer":        beginCommandBuffer,
	"vkEndCommandBuffer":          withCB((*Replay).endCommandBuffer),
	"vkResetCommandBuffer":        withCB((*Replay).resetCommandBuffer),
	"vkFreeCommandBuffers":        withCB((*Replay).freeCommandBuffer),
	"vkResetCommandPool":          resetCommandPool,
	"vkCmdBindPipeline":           withCB((*Replay).bindPipeline),
	"vkCmdBindIndexBuffer":        withCB((*Replay).bindIndexBuffer),
	"vkCmdBindVertexBuffers":      withCB((*Replay).bindVertexBuffers),
	"vkCmdSetViewport":            withCB((*Replay).setViewport),
	"vkCmdSetScissor":             withCB((*Replay).setScissor),
	"vkCmdFillBuffer":             withCB((*Replay).fillBuffer),
	"vkCmdUpdateBuffer":           withCB((*Replay).fillBuffer),
	"vkCmdCopyBuffer":             withCB((*Replay).copyBuffer),
	"vkCmdCopyImage":              withCB((*Replay).copyImage),
	"vkCmdBlitImage":              withCB((*Replay).copyImage),
	"vkCmdResolveImage":           withCB((*Replay).copyImage),
	"vkCmdCopyBufferToImage":      withCB((*Replay).copyBufferToImage),
	"vkCmdCopyImageToBuffer":      withCB((*Replay).copyImageToBuffer),
	"vkCmdClearColorImage":        withCB((*Replay).clearImage),
	"vkCmdClearDepthStencilImage": withCB((*Replay).clearImage),
	"vkCmdPipelineBarrier":        withCB((*Replay).pipelineBarrier),
	"vkCmdPipelineBarrier2":       withCB((*Replay).pipelineBarrier2),
	"vkCmdSetEvent":               withCB((*Replay).setEvent),
	"vkCmdResetEvent":             withCB((*Replay).resetEvent),
	"vkCmdWaitEvents":             withCB((*Replay).waitEvents),
	"vkCmdBeginRenderPass":        withCB((*Replay).beginRenderPass),
	"vkCmdNextSubpass":            withCB((*Replay).nextSubpass),
	"vkCmdEndRenderPass":          withCB((*Replay).endRenderPass),
	"vkCmdBeginRendering":         withCB((*Replay).beginRendering),
	"vkCmdEndRendering":           withCB((*Replay).endRendering),
	"vkCmdDraw":                   withCB((*Replay).draw),
	"vkCmdDispatch":               withCB((*Replay).dispatch),
	"vkCmdExecuteCommands":        withCB((*Replay).executeCommands),
	"vkQueueSubmit":               queueSubmit,
	"vkQueueSubmit2":              queueSubmit,
	"vkQueueWaitIdle":             queueWaitIdle,
	"vkDeviceWaitIdle":            deviceWaitIdle,
	"vkWaitForFences":             waitForFences,
	"vkDestroy":                   destroy,
}

// withCB resolves the call's command buffer before running fn.
func withCB(fn func(r *Replay, cb *state.CommandBuffer, c *Call) error) command {
	return func(r *Replay, c *Call) error {
		cb, err := object[*state.CommandBuffer](r, c.CB)
		if err != nil {
			return err
		}
		return fn(r, cb, c)
	}
}

func invalid(format string, args ...interface{}) error {
	return errors.Wrapf(core.ErrInvalidScenario, format, args...)
}

func layoutOr(name string, fallback vk.ImageLayout) (vk.ImageLayout, error) {
	if name == "" {
		return fallback, nil
	}
	l, ok := vulkan.ParseImageLayout(name)
	if !ok {
		return 0, invalid("layout %q", name)
	}
	return l, nil
}

func stages(s string, fallback vulkan.PipelineStageFlags2) (vulkan.PipelineStageFlags2, error) {
	if s == "" {
		return fallback, nil
	}
	m, ok := vulkan.ParseStageMask(s)
	if !ok {
		return 0, invalid("stages %q", s)
	}
	return m, nil
}

func accesses(s string) (vulkan.AccessFlags2, error) {
	if s == "" {
		return vulkan.Access2None, nil
	}
	m, ok := vulkan.ParseAccessMask(s)
	if !ok {
		return 0, invalid("accesses %q", s)
	}
	return m, nil
}

func loadOp(s string) (vk.AttachmentLoadOp, error) {
	switch strings.ToUpper(s) {
	case "", "LOAD":
		return vk.AttachmentLoadOpLoad, nil
	case "CLEAR":
		return vk.AttachmentLoadOpClear, nil
	case "DONT_CARE":
		return vk.AttachmentLoadOpDontCare, nil
	}
	return 0, invalid("load op %q", s)
}

func storeOp(s string) (vk.AttachmentStoreOp, error) {
	switch strings.ToUpper(s) {
	case "", "STORE":
		return vk.AttachmentStoreOpStore, nil
	case "DONT_CARE":
		return vk.AttachmentStoreOpDontCare, nil
	}
	return 0, invalid("store op %q", s)
}

func usageFlags(s string) (vk.CommandBufferUsageFlags, error) {
	var flags vk.CommandBufferUsageFlags
	for _, part := range strings.Split(s, "|") {
		switch strings.ToUpper(strings.TrimSpace(part)) {
		case "":
		case "ONE_TIME_SUBMIT":
			flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
		case "RENDER_PASS_CONTINUE":
			flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageRenderPassContinueBit)
		case "SIMULTANEOUS_USE":
			flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
		default:
			return 0, invalid("usage flag %q", part)
		}
	}
	return flags, nil
}

func contents(s string) (vk.SubpassContents, error) {
	switch strings.ToUpper(s) {
	case "", "INLINE":
		return vk.SubpassContentsInline, nil
	case "SECONDARY_COMMAND_BUFFERS":
		return vk.SubpassContentsSecondaryCommandBuffers, nil
	}
	return 0, invalid("subpass contents %q", s)
}

// subresourceRange converts a scenario range, nil meaning the whole image.
func subresourceRange(rng *Range, img *state.Image) (vk.ImageSubresourceRange, error) {
	if rng == nil {
		return img.FullRange(), nil
	}
	aspect := vulkan.FormatAspects(img.CreateInfo.Format)
	if rng.Aspect != "" {
		var ok bool
		if aspect, ok = vulkan.ParseAspectMask(rng.Aspect); !ok {
			return vk.ImageSubresourceRange{}, invalid("aspect %q", rng.Aspect)
		}
	}
	return vk.ImageSubresourceRange{
		AspectMask:     aspect,
		BaseMipLevel:   rng.BaseMip,
		LevelCount:     vulkan.ConditionalOperator(rng.Levels == 0, vulkan.RemainingMipLevels, rng.Levels),
		BaseArrayLayer: rng.BaseLayer,
		LayerCount:     vulkan.ConditionalOperator(rng.Layers == 0, vulkan.RemainingArrayLayers, rng.Layers),
	}, nil
}

func subresourceLayers(rng *Range, img *state.Image) (vk.ImageSubresourceLayers, error) {
	full, err := subresourceRange(rng, img)
	if err != nil {
		return vk.ImageSubresourceLayers{}, err
	}
	full = img.NormalizeSubresourceRange(full)
	return vk.ImageSubresourceLayers{
		AspectMask:     full.AspectMask,
		MipLevel:       full.BaseMipLevel,
		BaseArrayLayer: full.BaseArrayLayer,
		LayerCount:     full.LayerCount,
	}, nil
}

func mipExtent(img *state.Image, level uint32) vk.Extent3D {
	e := img.CreateInfo.Extent
	return vk.Extent3D{
		Width:  max(e.Width>>level, 1),
		Height: max(e.Height>>level, 1),
		Depth:  max(e.Depth>>level, 1),
	}
}

func beginCommandBuffer(r *Replay, c *Call) error {
	cb, err := object[*state.CommandBuffer](r, c.CB)
	if err != nil {
		return err
	}
	flags, err := usageFlags(c.Flags)
	if err != nil {
		return err
	}
	info := state.CommandBufferBeginInfo{Flags: flags}
	if !cb.IsPrimary() {
		info.Inheritance = &state.InheritanceInfo{}
		if c.RenderPass != "" {
			rp, err := object[*state.RenderPass](r, c.RenderPass)
			if err != nil {
				return err
			}
			info.Inheritance.RenderPass = rp
			info.Inheritance.Framebuffer = r.framebuffers[c.RenderPass]
		}
	}
	return r.layer.BeginCommandBuffer(cb, info)
}

func (r *Replay) endCommandBuffer(cb *state.CommandBuffer, _ *Call) error {
	return r.layer.EndCommandBuffer(cb)
}

func (r *Replay) resetCommandBuffer(cb *state.CommandBuffer, _ *Call) error {
	return r.layer.ResetCommandBuffer(cb)
}

func (r *Replay) freeCommandBuffer(cb *state.CommandBuffer, c *Call) error {
	if err := r.layer.FreeCommandBuffers([]*state.CommandBuffer{cb}); err != nil {
		return err
	}
	return r.release(c.CB)
}

func resetCommandPool(r *Replay, _ *Call) error {
	return r.layer.ResetCommandPool(r.pool)
}

func (r *Replay) bindPipeline(cb *state.CommandBuffer, c *Call) error {
	p, err := object[*state.Pipeline](r, c.Pipeline)
	if err != nil {
		return err
	}
	return r.layer.CmdBindPipeline(cb, p)
}

func (r *Replay) bindIndexBuffer(cb *state.CommandBuffer, c *Call) error {
	b, err := object[*state.Buffer](r, c.Buffer)
	if err != nil {
		return err
	}
	return r.layer.CmdBindIndexBuffer(cb, b)
}

func (r *Replay) bindVertexBuffers(cb *state.CommandBuffer, c *Call) error {
	b, err := object[*state.Buffer](r, c.Buffer)
	if err != nil {
		return err
	}
	return r.layer.CmdBindVertexBuffers(cb, 0, []*state.Buffer{b})
}

func (r *Replay) setViewport(cb *state.CommandBuffer, c *Call) error {
	viewports := make([]vk.Viewport, max(c.Count, 1))
	for i := range viewports {
		viewports[i] = vk.Viewport{Width: 1, Height: 1, MaxDepth: 1}
	}
	return r.layer.CmdSetViewport(cb, uint32(c.Offset), viewports)
}

func (r *Replay) setScissor(cb *state.CommandBuffer, c *Call) error {
	return r.layer.CmdSetScissor(cb, uint32(c.Offset), max(c.Count, 1))
}

func (r *Replay) fillBuffer(cb *state.CommandBuffer, c *Call) error {
	b, err := object[*state.Buffer](r, c.Buffer)
	if err != nil {
		return err
	}
	info := &state.FillBufferInfo{
		Buffer: b,
		Offset: c.Offset,
		Size:   vulkan.ConditionalOperator(c.Size == 0, vulkan.WholeSize, c.Size),
	}
	if c.Cmd == "vkCmdUpdateBuffer" {
		return r.layer.CmdUpdateBuffer(cb, info)
	}
	return r.layer.CmdFillBuffer(cb, info)
}

func (r *Replay) copyBuffer(cb *state.CommandBuffer, c *Call) error {
	src, err := object[*state.Buffer](r, c.Src)
	if err != nil {
		return err
	}
	dst, err := object[*state.Buffer](r, c.Dst)
	if err != nil {
		return err
	}
	size := c.Size
	if size == 0 {
		size = min(src.CreateInfo.Size-c.Offset, dst.CreateInfo.Size-c.DstOffset)
	}
	return r.layer.CmdCopyBuffer(cb, &state.CopyBufferInfo{
		Src:     src,
		Dst:     dst,
		Regions: []state.BufferCopyRegion{{SrcOffset: c.Offset, DstOffset: c.DstOffset, Size: size}},
	})
}

func (r *Replay) copyImage(cb *state.CommandBuffer, c *Call) error {
	src, err := object[*state.Image](r, c.Src)
	if err != nil {
		return err
	}
	dst, err := object[*state.Image](r, c.Dst)
	if err != nil {
		return err
	}
	srcLayout, err := layoutOr(c.SrcLayout, vk.ImageLayoutTransferSrcOptimal)
	if err != nil {
		return err
	}
	dstLayout, err := layoutOr(c.DstLayout, vk.ImageLayoutTransferDstOptimal)
	if err != nil {
		return err
	}
	srcLayers, err := subresourceLayers(c.Range, src)
	if err != nil {
		return err
	}
	dstLayers, err := subresourceLayers(c.Range, dst)
	if err != nil {
		return err
	}
	info := &state.CopyImageInfo{
		Src:       src,
		SrcLayout: srcLayout,
		Dst:       dst,
		DstLayout: dstLayout,
		Regions: []state.ImageCopyRegion{{
			SrcSubresource: srcLayers,
			DstSubresource: dstLayers,
			Extent:         mipExtent(src, srcLayers.MipLevel),
		}},
	}
	switch c.Cmd {
	case "vkCmdBlitImage":
		return r.layer.CmdBlitImage(cb, (*state.BlitImageInfo)(info))
	case "vkCmdResolveImage":
		return r.layer.CmdResolveImage(cb, (*state.ResolveImageInfo)(info))
	default:
		return r.layer.CmdCopyImage(cb, info)
	}
}

func (r *Replay) copyBufferToImage(cb *state.CommandBuffer, c *Call) error {
	src, err := object[*state.Buffer](r, c.Src)
	if err != nil {
		return err
	}
	dst, err := object[*state.Image](r, c.Dst)
	if err != nil {
		return err
	}
	layout, err := layoutOr(c.DstLayout, vk.ImageLayoutTransferDstOptimal)
	if err != nil {
		return err
	}
	layers, err := subresourceLayers(c.Range, dst)
	if err != nil {
		return err
	}
	return r.layer.CmdCopyBufferToImage(cb, &state.CopyBufferToImageInfo{
		Src:       src,
		Dst:       dst,
		DstLayout: layout,
		Regions: []state.BufferImageCopyRegion{{
			BufferOffset:     c.Offset,
			ImageSubresource: layers,
			ImageExtent:      mipExtent(dst, layers.MipLevel),
		}},
	})
}

func (r *Replay) copyImageToBuffer(cb *state.CommandBuffer, c *Call) error {
	src, err := object[*state.Image](r, c.Src)
	if err != nil {
		return err
	}
	dst, err := object[*state.Buffer](r, c.Dst)
	if err != nil {
		return err
	}
	layout, err := layoutOr(c.SrcLayout, vk.ImageLayoutTransferSrcOptimal)
	if err != nil {
		return err
	}
	layers, err := subresourceLayers(c.Range, src)
	if err != nil {
		return err
	}
	return r.layer.CmdCopyImageToBuffer(cb, &state.CopyImageToBufferInfo{
		Src:       src,
		SrcLayout: layout,
		Dst:       dst,
		Regions: []state.BufferImageCopyRegion{{
			BufferOffset:     c.Offset,
			ImageSubresource: layers,
			ImageExtent:      mipExtent(src, layers.MipLevel),
		}},
	})
}

func (r *Replay) clearImage(cb *state.CommandBuffer, c *Call) error {
	img, err := object[*state.Image](r, c.Image)
	if err != nil {
		return err
	}
	layout, err := layoutOr(c.Layout, vk.ImageLayoutTransferDstOptimal)
	if err != nil {
		return err
	}
	rng, err := subresourceRange(c.Range, img)
	if err != nil {
		return err
	}
	info := &state.ClearImageInfo{Image: img, Layout: layout, Ranges: []vk.ImageSubresourceRange{rng}}
	if c.Cmd == "vkCmdClearDepthStencilImage" {
		return r.layer.CmdClearDepthStencilImage(cb, info)
	}
	return r.layer.CmdClearColorImage(cb, info)
}

// dependency converts the call's barriers. cmdSrc and cmdDst stand in for
// barriers that name no stages of their own.
func (r *Replay) dependency(c *Call, cmdSrc, cmdDst vulkan.PipelineStageFlags2) (*state.DependencyInfo, error) {
	dep := &state.DependencyInfo{}
	for i, b := range c.Barriers {
		src, dst, err := scopes(b, cmdSrc, cmdDst)
		if err != nil {
			return nil, errors.WithMessagef(err, "barriers[%d]", i)
		}
		switch {
		case b.Buffer != "" && b.Image != "":
			return nil, invalid("barriers[%d] names both a buffer and an image", i)
		case b.Buffer != "":
			buf, err := object[*state.Buffer](r, b.Buffer)
			if err != nil {
				return nil, err
			}
			dep.BufferMemoryBarriers = append(dep.BufferMemoryBarriers, state.BufferMemoryBarrier{
				Src:                 src,
				Dst:                 dst,
				SrcQueueFamilyIndex: vulkan.QueueFamilyIgnored,
				DstQueueFamilyIndex: vulkan.QueueFamilyIgnored,
				Buffer:              buf,
				Offset:              b.Offset,
				Size:                vulkan.ConditionalOperator(b.Size == 0, vulkan.WholeSize, b.Size),
			})
		case b.Image != "":
			img, err := object[*state.Image](r, b.Image)
			if err != nil {
				return nil, err
			}
			oldLayout, err := layoutOr(b.OldLayout, vk.ImageLayoutUndefined)
			if err != nil {
				return nil, err
			}
			newLayout, err := layoutOr(b.NewLayout, oldLayout)
			if err != nil {
				return nil, err
			}
			rng, err := subresourceRange(b.Range, img)
			if err != nil {
				return nil, err
			}
			dep.ImageMemoryBarriers = append(dep.ImageMemoryBarriers, state.ImageMemoryBarrier2{
				Src:                 src,
				Dst:                 dst,
				OldLayout:           oldLayout,
				NewLayout:           newLayout,
				SrcQueueFamilyIndex: vulkan.QueueFamilyIgnored,
				DstQueueFamilyIndex: vulkan.QueueFamilyIgnored,
				Image:               img,
				SubresourceRange:    rng,
			})
		default:
			dep.MemoryBarriers = append(dep.MemoryBarriers, state.MemoryBarrier{Src: src, Dst: dst})
		}
	}
	return dep, nil
}

func scopes(b Barrier, cmdSrc, cmdDst vulkan.PipelineStageFlags2) (state.Scope, state.Scope, error) {
	var src, dst state.Scope
	var err error
	if src.Stages, err = stages(b.SrcStages, cmdSrc); err != nil {
		return src, dst, err
	}
	if dst.Stages, err = stages(b.DstStages, cmdDst); err != nil {
		return src, dst, err
	}
	if src.Accesses, err = accesses(b.SrcAccess); err != nil {
		return src, dst, err
	}
	if dst.Accesses, err = accesses(b.DstAccess); err != nil {
		return src, dst, err
	}
	return src, dst, nil
}

func (r *Replay) callStages(c *Call) (vulkan.PipelineStageFlags2, vulkan.PipelineStageFlags2, error) {
	src, err := stages(c.SrcStages, vulkan.PipelineStage2TopOfPipe)
	if err != nil {
		return 0, 0, err
	}
	dst, err := stages(c.DstStages, vulkan.PipelineStage2BottomOfPipe)
	if err != nil {
		return 0, 0, err
	}
	return src, dst, nil
}

// pipelineBarrier records the vkCmdPipelineBarrier form: every barrier
// takes its stages from the command.
func (r *Replay) pipelineBarrier(cb *state.CommandBuffer, c *Call) error {
	src, dst, err := r.callStages(c)
	if err != nil {
		return err
	}
	for i, b := range c.Barriers {
		if b.SrcStages != "" || b.DstStages != "" {
			return invalid("barriers[%d]: vkCmdPipelineBarrier barriers take the command's stages", i)
		}
	}
	dep, err := r.dependency(c, src, dst)
	if err != nil {
		return err
	}
	info := &state.PipelineBarrierInfo{
		SrcStageMask:         src,
		DstStageMask:         dst,
		MemoryBarriers:       dep.MemoryBarriers,
		BufferMemoryBarriers: dep.BufferMemoryBarriers,
	}
	for _, b := range dep.ImageMemoryBarriers {
		info.ImageMemoryBarriers = append(info.ImageMemoryBarriers, state.ImageMemoryBarrier{
			SrcAccessMask:       vk.AccessFlags(b.Src.Accesses),
			DstAccessMask:       vk.AccessFlags(b.Dst.Accesses),
			OldLayout:           b.OldLayout,
			NewLayout:           b.NewLayout,
			SrcQueueFamilyIndex: b.SrcQueueFamilyIndex,
			DstQueueFamilyIndex: b.DstQueueFamilyIndex,
			Image:               b.Image,
			SubresourceRange:    b.SubresourceRange,
		})
	}
	return r.layer.CmdPipelineBarrier(cb, info)
}

func (r *Replay) pipelineBarrier2(cb *state.CommandBuffer, c *Call) error {
	dep, err := r.dependency(c, vulkan.PipelineStage2None, vulkan.PipelineStage2None)
	if err != nil {
		return err
	}
	return r.layer.CmdPipelineBarrier2(cb, dep)
}

func (r *Replay) setEvent(cb *state.CommandBuffer, c *Call) error {
	event, err := object[*state.Event](r, c.Event)
	if err != nil {
		return err
	}
	src, err := stages(c.SrcStages, vulkan.PipelineStage2AllCommands)
	if err != nil {
		return err
	}
	return r.layer.CmdSetEvent(cb, event, src)
}

func (r *Replay) resetEvent(cb *state.CommandBuffer, c *Call) error {
	event, err := object[*state.Event](r, c.Event)
	if err != nil {
		return err
	}
	return r.layer.CmdResetEvent(cb, event)
}

func (r *Replay) waitEvents(cb *state.CommandBuffer, c *Call) error {
	names := c.Events
	if c.Event != "" {
		names = append([]string{c.Event}, names...)
	}
	events, err := objects[*state.Event](r, names)
	if err != nil {
		return err
	}
	src, dst, err := r.callStages(c)
	if err != nil {
		return err
	}
	dep, err := r.dependency(c, src, dst)
	if err != nil {
		return err
	}
	return r.layer.CmdWaitEvents(cb, &state.WaitEventsInfo{
		Events:       events,
		SrcStageMask: src,
		DstStageMask: dst,
		Dependency:   *dep,
	})
}

func (r *Replay) beginRenderPass(cb *state.CommandBuffer, c *Call) error {
	rp, err := object[*state.RenderPass](r, c.RenderPass)
	if err != nil {
		return err
	}
	sc, err := contents(c.Flags)
	if err != nil {
		return err
	}
	return r.layer.CmdBeginRenderPass(cb, &state.RenderPassBeginInfo{
		RenderPass:  rp,
		Framebuffer: r.framebuffers[c.RenderPass],
		Contents:    sc,
	})
}

func (r *Replay) nextSubpass(cb *state.CommandBuffer, c *Call) error {
	sc, err := contents(c.Flags)
	if err != nil {
		return err
	}
	return r.layer.CmdNextSubpass(cb, sc)
}

func (r *Replay) endRenderPass(cb *state.CommandBuffer, _ *Call) error {
	return r.layer.CmdEndRenderPass(cb)
}

func (r *Replay) beginRendering(cb *state.CommandBuffer, c *Call) error {
	views, err := objects[*state.ImageView](r, c.Views)
	if err != nil {
		return err
	}
	load, err := loadOp(c.Load)
	if err != nil {
		return err
	}
	store, err := storeOp(c.Store)
	if err != nil {
		return err
	}
	info := &state.RenderingInfo{LayerCount: 1}
	for _, v := range views {
		fallback := vulkan.ConditionalOperator(vulkan.FormatIsDepthOrStencil(v.Format),
			vk.ImageLayoutDepthStencilAttachmentOptimal, vk.ImageLayoutColorAttachmentOptimal)
		layout, err := layoutOr(c.Layout, fallback)
		if err != nil {
			return err
		}
		att := state.RenderingAttachment{View: v, Layout: layout, LoadOp: load, StoreOp: store}
		switch {
		case vulkan.FormatHasDepth(v.Format):
			info.DepthAttachment = &att
			if vulkan.FormatHasStencil(v.Format) {
				info.StencilAttachment = &att
			}
		case vulkan.FormatHasStencil(v.Format):
			info.StencilAttachment = &att
		default:
			info.ColorAttachments = append(info.ColorAttachments, att)
		}
	}
	return r.layer.CmdBeginRendering(cb, info)
}

func (r *Replay) endRendering(cb *state.CommandBuffer, _ *Call) error {
	return r.layer.CmdEndRendering(cb)
}

func (r *Replay) indirect(c *Call) (*state.Buffer, error) {
	if c.Buffer == "" {
		return nil, nil
	}
	return object[*state.Buffer](r, c.Buffer)
}

func (r *Replay) draw(cb *state.CommandBuffer, c *Call) error {
	b, err := r.indirect(c)
	if err != nil {
		return err
	}
	return r.layer.CmdDraw(cb, &state.DrawInfo{
		Indexed:        c.Indexed,
		Indirect:       b,
		IndirectOffset: c.Offset,
		IndirectSize:   vulkan.ConditionalOperator(c.Size == 0, vulkan.WholeSize, c.Size),
	})
}

func (r *Replay) dispatch(cb *state.CommandBuffer, c *Call) error {
	b, err := r.indirect(c)
	if err != nil {
		return err
	}
	return r.layer.CmdDispatch(cb, &state.DispatchInfo{
		Indirect:       b,
		IndirectOffset: c.Offset,
		IndirectSize:   vulkan.ConditionalOperator(c.Size == 0, vulkan.WholeSize, c.Size),
	})
}

func (r *Replay) executeCommands(cb *state.CommandBuffer, c *Call) error {
	secondaries, err := objects[*state.CommandBuffer](r, c.Secondaries)
	if err != nil {
		return err
	}
	return r.layer.CmdExecuteCommands(cb, secondaries)
}

func (r *Replay) callQueue(c *Call) (*state.Queue, error) {
	if c.Queue == "" {
		return r.queue, nil
	}
	return object[*state.Queue](r, c.Queue)
}

func queueSubmit(r *Replay, c *Call) error {
	q, err := r.callQueue(c)
	if err != nil {
		return err
	}
	subs := make([]*state.Submission, 0, len(c.Submits))
	for i, s := range c.Submits {
		sub := &state.Submission{}
		if sub.CommandBuffers, err = objects[*state.CommandBuffer](r, s.CommandBuffers); err != nil {
			return errors.WithMessagef(err, "submits[%d]", i)
		}
		if sub.WaitSemaphores, err = objects[*state.Semaphore](r, s.Wait); err != nil {
			return errors.WithMessagef(err, "submits[%d]", i)
		}
		if sub.SignalSemaphores, err = objects[*state.Semaphore](r, s.Signal); err != nil {
			return errors.WithMessagef(err, "submits[%d]", i)
		}
		if s.Fence != "" {
			if sub.Fence, err = object[*state.Fence](r, s.Fence); err != nil {
				return errors.WithMessagef(err, "submits[%d]", i)
			}
		}
		subs = append(subs, sub)
	}
	if c.Cmd == "vkQueueSubmit2" {
		return r.layer.QueueSubmit2(q, subs)
	}
	return r.layer.QueueSubmit(q, subs)
}

func queueWaitIdle(r *Replay, c *Call) error {
	q, err := r.callQueue(c)
	if err != nil {
		return err
	}
	r.layer.QueueWaitIdle(q)
	return nil
}

func deviceWaitIdle(r *Replay, _ *Call) error {
	r.layer.DeviceWaitIdle()
	return nil
}

func waitForFences(r *Replay, c *Call) error {
	fences, err := objects[*state.Fence](r, c.Fences)
	if err != nil {
		return err
	}
	r.layer.WaitForFences(fences)
	return nil
}

func destroy(r *Replay, c *Call) error {
	h, ok := r.handles[c.Object]
	if !ok {
		return invalid("unknown object %q", c.Object)
	}
	if err := r.layer.Destroy(h); err != nil {
		return err
	}
	return r.release(c.Object)
}
