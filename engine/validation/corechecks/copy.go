package corechecks

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vksync/engine/validation/report"
	"github.com/spaghettifunk/vksync/engine/validation/state"
)

// transferVUIDs names the two layout VUIDs of one image operand.
type transferVUIDs struct {
	mismatch string
	invalid  string
}

func cmdVUIDs(cmd, field, mismatch, invalid string) transferVUIDs {
	return transferVUIDs{
		mismatch: "VUID-" + cmd + "-" + field + "-" + mismatch,
		invalid:  "VUID-" + cmd + "-" + field + "-" + invalid,
	}
}

var (
	clearColorVUIDs   = cmdVUIDs("vkCmdClearColorImage", "imageLayout", "00004", "01394")
	clearDepthVUIDs   = cmdVUIDs("vkCmdClearDepthStencilImage", "imageLayout", "00011", "00012")
	copySrcVUIDs      = cmdVUIDs("vkCmdCopyImage", "srcImageLayout", "00128", "01917")
	copyDstVUIDs      = cmdVUIDs("vkCmdCopyImage", "dstImageLayout", "00133", "01395")
	bufferToImageVUID = cmdVUIDs("vkCmdCopyBufferToImage", "dstImageLayout", "00180", "01396")
	imageToBufferVUID = cmdVUIDs("vkCmdCopyImageToBuffer", "srcImageLayout", "00189", "01397")
	blitSrcVUIDs      = cmdVUIDs("vkCmdBlitImage", "srcImageLayout", "00221", "00222")
	blitDstVUIDs      = cmdVUIDs("vkCmdBlitImage", "dstImageLayout", "00226", "00227")
	resolveSrcVUIDs   = cmdVUIDs("vkCmdResolveImage", "srcImageLayout", "00260", "01400")
	resolveDstVUIDs   = cmdVUIDs("vkCmdResolveImage", "dstImageLayout", "00262", "01401")
)

// transferCmd runs the checks every transfer command shares.
func (c *CoreChecks) transferCmd(cb *state.CommandBuffer, loc report.Location) bool {
	skip := c.ValidateCmd(cb, loc)
	return c.insideRenderPass(cb, loc, "VUID-"+loc.Function+"-renderpass") || skip
}

func (c *CoreChecks) validateClear(cb *state.CommandBuffer, info *state.ClearImageInfo, loc report.Location, vuids transferVUIDs) bool {
	skip := c.transferCmd(cb, loc)
	if info.Image == nil {
		return skip
	}
	hasError := false
	for i, rng := range info.Ranges {
		skip = c.VerifyImageLayout(cb, info.Image, rng, rng.AspectMask, info.Layout, vk.ImageLayoutTransferDstOptimal,
			loc.At("pRanges", i), vuids.invalid, vuids.mismatch, &hasError) || skip
	}
	return skip
}

func (c *CoreChecks) recordClear(cb *state.CommandBuffer, info *state.ClearImageInfo) {
	if info.Image == nil {
		return
	}
	for _, rng := range info.Ranges {
		cb.SetImageLayout(info.Image, rng, info.Layout, info.Layout)
	}
}

func (c *CoreChecks) PreCallValidateCmdClearColorImage(cb *state.CommandBuffer, info *state.ClearImageInfo) bool {
	return c.validateClear(cb, info, report.Loc("vkCmdClearColorImage"), clearColorVUIDs)
}

func (c *CoreChecks) PostCallRecordCmdClearColorImage(cb *state.CommandBuffer, info *state.ClearImageInfo) {
	c.recordClear(cb, info)
}

func (c *CoreChecks) PreCallValidateCmdClearDepthStencilImage(cb *state.CommandBuffer, info *state.ClearImageInfo) bool {
	return c.validateClear(cb, info, report.Loc("vkCmdClearDepthStencilImage"), clearDepthVUIDs)
}

func (c *CoreChecks) PostCallRecordCmdClearDepthStencilImage(cb *state.CommandBuffer, info *state.ClearImageInfo) {
	c.recordClear(cb, info)
}

// validateImagePair checks the source and destination operands of a copy,
// blit or resolve region by region.
func (c *CoreChecks) validateImagePair(cb *state.CommandBuffer, info *state.CopyImageInfo, loc report.Location, src, dst transferVUIDs) bool {
	skip := c.transferCmd(cb, loc)
	srcError, dstError := false, false
	for i, r := range info.Regions {
		rloc := loc.At("pRegions", i)
		if info.Src != nil {
			skip = c.VerifyImageLayoutLayers(cb, info.Src, r.SrcSubresource, info.SrcLayout, vk.ImageLayoutTransferSrcOptimal,
				rloc.Dot("srcSubresource"), src.invalid, src.mismatch, &srcError) || skip
		}
		if info.Dst != nil {
			skip = c.VerifyImageLayoutLayers(cb, info.Dst, r.DstSubresource, info.DstLayout, vk.ImageLayoutTransferDstOptimal,
				rloc.Dot("dstSubresource"), dst.invalid, dst.mismatch, &dstError) || skip
		}
	}
	return skip
}

func (c *CoreChecks) recordImagePair(cb *state.CommandBuffer, info *state.CopyImageInfo) {
	for _, r := range info.Regions {
		if info.Src != nil {
			cb.SetImageInitialLayoutLayers(info.Src, r.SrcSubresource, info.SrcLayout)
		}
		if info.Dst != nil {
			cb.SetImageInitialLayoutLayers(info.Dst, r.DstSubresource, info.DstLayout)
		}
	}
}

func (c *CoreChecks) PreCallValidateCmdCopyImage(cb *state.CommandBuffer, info *state.CopyImageInfo) bool {
	return c.validateImagePair(cb, info, report.Loc("vkCmdCopyImage"), copySrcVUIDs, copyDstVUIDs)
}

func (c *CoreChecks) PostCallRecordCmdCopyImage(cb *state.CommandBuffer, info *state.CopyImageInfo) {
	c.recordImagePair(cb, info)
}

func (c *CoreChecks) PreCallValidateCmdBlitImage(cb *state.CommandBuffer, info *state.BlitImageInfo) bool {
	return c.validateImagePair(cb, (*state.CopyImageInfo)(info), report.Loc("vkCmdBlitImage"), blitSrcVUIDs, blitDstVUIDs)
}

func (c *CoreChecks) PostCallRecordCmdBlitImage(cb *state.CommandBuffer, info *state.BlitImageInfo) {
	c.recordImagePair(cb, (*state.CopyImageInfo)(info))
}

func (c *CoreChecks) PreCallValidateCmdResolveImage(cb *state.CommandBuffer, info *state.ResolveImageInfo) bool {
	return c.validateImagePair(cb, (*state.CopyImageInfo)(info), report.Loc("vkCmdResolveImage"), resolveSrcVUIDs, resolveDstVUIDs)
}

func (c *CoreChecks) PostCallRecordCmdResolveImage(cb *state.CommandBuffer, info *state.ResolveImageInfo) {
	c.recordImagePair(cb, (*state.CopyImageInfo)(info))
}

func (c *CoreChecks) PreCallValidateCmdCopyBufferToImage(cb *state.CommandBuffer, info *state.CopyBufferToImageInfo) bool {
	loc := report.Loc("vkCmdCopyBufferToImage")
	skip := c.transferCmd(cb, loc)
	if info.Dst == nil {
		return skip
	}
	hasError := false
	for i, r := range info.Regions {
		skip = c.VerifyImageLayoutLayers(cb, info.Dst, r.ImageSubresource, info.DstLayout, vk.ImageLayoutTransferDstOptimal,
			loc.At("pRegions", i).Dot("imageSubresource"), bufferToImageVUID.invalid, bufferToImageVUID.mismatch, &hasError) || skip
	}
	return skip
}

func (c *CoreChecks) PostCallRecordCmdCopyBufferToImage(cb *state.CommandBuffer, info *state.CopyBufferToImageInfo) {
	if info.Src != nil {
		cb.AddChild(info.Src)
	}
	if info.Dst == nil {
		return
	}
	for _, r := range info.Regions {
		cb.SetImageInitialLayoutLayers(info.Dst, r.ImageSubresource, info.DstLayout)
	}
}

func (c *CoreChecks) PreCallValidateCmdCopyImageToBuffer(cb *state.CommandBuffer, info *state.CopyImageToBufferInfo) bool {
	loc := report.Loc("vkCmdCopyImageToBuffer")
	skip := c.transferCmd(cb, loc)
	if info.Src == nil {
		return skip
	}
	hasError := false
	for i, r := range info.Regions {
		skip = c.VerifyImageLayoutLayers(cb, info.Src, r.ImageSubresource, info.SrcLayout, vk.ImageLayoutTransferSrcOptimal,
			loc.At("pRegions", i).Dot("imageSubresource"), imageToBufferVUID.invalid, imageToBufferVUID.mismatch, &hasError) || skip
	}
	return skip
}

func (c *CoreChecks) PostCallRecordCmdCopyImageToBuffer(cb *state.CommandBuffer, info *state.CopyImageToBufferInfo) {
	if info.Dst != nil {
		cb.AddChild(info.Dst)
	}
	if info.Src == nil {
		return
	}
	for _, r := range info.Regions {
		cb.SetImageInitialLayoutLayers(info.Src, r.ImageSubresource, info.SrcLayout)
	}
}

func (c *CoreChecks) PreCallValidateCmdCopyBuffer(cb *state.CommandBuffer, info *state.CopyBufferInfo) bool {
	return c.transferCmd(cb, report.Loc("vkCmdCopyBuffer"))
}

func (c *CoreChecks) PostCallRecordCmdCopyBuffer(cb *state.CommandBuffer, info *state.CopyBufferInfo) {
	for _, b := range []*state.Buffer{info.Src, info.Dst} {
		if b != nil {
			cb.AddChild(b)
		}
	}
}

func (c *CoreChecks) PreCallValidateCmdFillBuffer(cb *state.CommandBuffer, info *state.FillBufferInfo) bool {
	return c.transferCmd(cb, report.Loc("vkCmdFillBuffer"))
}

func (c *CoreChecks) PreCallValidateCmdUpdateBuffer(cb *state.CommandBuffer, info *state.FillBufferInfo) bool {
	return c.transferCmd(cb, report.Loc("vkCmdUpdateBuffer"))
}

// PostCallRecordCmdFillBuffer also records vkCmdUpdateBuffer.
func (c *CoreChecks) PostCallRecordCmdFillBuffer(cb *state.CommandBuffer, info *state.FillBufferInfo) {
	if info.Buffer != nil {
		cb.AddChild(info.Buffer)
	}
}
