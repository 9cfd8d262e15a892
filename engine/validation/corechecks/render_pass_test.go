package corechecks

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/vksync/engine/validation/report"
	"github.com/spaghettifunk/vksync/engine/validation/state"
)

// colorTarget builds a single color attachment render pass and a
// framebuffer over img.
func (f *fixture) colorTarget(img *state.Image, initial, subpass, final vk.ImageLayout) *state.RenderPassBeginInfo {
	f.t.Helper()
	view, err := f.tr.CreateImageView(f.handle(), state.ImageViewCreateInfo{
		Image:            img.Handle().Handle,
		Format:           vk.FormatR8g8b8a8Unorm,
		SubresourceRange: fullColor(),
	})
	require.NoError(f.t, err)
	rp, err := f.tr.CreateRenderPass(f.handle(), state.RenderPassCreateInfo{
		Attachments: []state.AttachmentDescription{{
			Format:        vk.FormatR8g8b8a8Unorm,
			Samples:       vk.SampleCount1Bit,
			InitialLayout: initial,
			FinalLayout:   final,
		}},
		Subpasses: []state.SubpassDescription{{
			ColorAttachments: []state.AttachmentReference{{Attachment: 0, Layout: subpass}},
		}},
	})
	require.NoError(f.t, err)
	fb, err := f.tr.CreateFramebuffer(f.handle(), state.FramebufferCreateInfo{
		RenderPass:  rp.Handle().Handle,
		Attachments: []report.Handle{view.Handle().Handle},
		Width:       16,
		Height:      16,
		Layers:      1,
	})
	require.NoError(f.t, err)
	return &state.RenderPassBeginInfo{RenderPass: rp, Framebuffer: fb, Contents: vk.SubpassContentsInline}
}

func (f *fixture) beginRenderPass(cb *state.CommandBuffer, info *state.RenderPassBeginInfo) bool {
	skip := f.cc.PreCallValidateCmdBeginRenderPass(cb, info)
	f.cc.PostCallRecordCmdBeginRenderPass(cb, info)
	return skip
}

func (f *fixture) endRenderPass(cb *state.CommandBuffer) bool {
	skip := f.cc.PreCallValidateCmdEndRenderPass(cb)
	f.cc.PostCallRecordCmdEndRenderPass(cb)
	return skip
}

func TestRenderPassTransitionsToFinalLayout(t *testing.T) {
	f := newFixture(t, state.Features{})
	img := f.image()
	info := f.colorTarget(img, vk.ImageLayoutUndefined, vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutPresentSrc)
	cb := f.primary()

	assert.False(t, f.beginRenderPass(cb, info))
	e, ok := cb.ImageLayoutMap(img).SubresourceLayouts(img.Encoder.Decode(0))
	require.True(t, ok)
	assert.Equal(t, vk.ImageLayoutUndefined, e.Initial)
	assert.Equal(t, vk.ImageLayoutColorAttachmentOptimal, e.Current)

	assert.False(t, f.endRenderPass(cb))
	e, ok = cb.ImageLayoutMap(img).SubresourceLayouts(img.Encoder.Decode(0))
	require.True(t, ok)
	assert.Equal(t, vk.ImageLayoutPresentSrc, e.Current)
	assert.Nil(t, cb.ActiveRenderPass)
	assert.Empty(t, f.log.Records())
}

func TestRenderPassInitialLayoutMismatch(t *testing.T) {
	f := newFixture(t, state.Features{})
	img := f.image()
	info := f.colorTarget(img, vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutColorAttachmentOptimal)
	cb := f.primary()
	f.barrier(cb, img, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal)

	assert.True(t, f.beginRenderPass(cb, info))
	recs := f.log.RecordsFor(kVUIDRenderPassInitialLayout)
	require.Len(t, recs, 1)
	assert.Contains(t, recs[0].Message, "render pass initial layout is VK_IMAGE_LAYOUT_COLOR_ATTACHMENT_OPTIMAL")
	assert.Contains(t, recs[0].Message, "VK_IMAGE_LAYOUT_TRANSFER_DST_OPTIMAL")
}

func TestRenderPassUndefinedInitialLayoutIsNotChecked(t *testing.T) {
	f := newFixture(t, state.Features{})
	img := f.image()
	info := f.colorTarget(img, vk.ImageLayoutUndefined, vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutColorAttachmentOptimal)
	cb := f.primary()
	f.barrier(cb, img, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal)

	assert.False(t, f.beginRenderPass(cb, info))
	assert.Empty(t, f.log.RecordsFor(kVUIDRenderPassInitialLayout))
}

func TestEndRenderPassBeforeFinalSubpass(t *testing.T) {
	f := newFixture(t, state.Features{})
	img := f.image()
	info := f.colorTarget(img, vk.ImageLayoutUndefined, vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutColorAttachmentOptimal)
	info.RenderPass.CreateInfo.Subpasses = append(info.RenderPass.CreateInfo.Subpasses, state.SubpassDescription{})
	cb := f.primary()
	f.beginRenderPass(cb, info)

	assert.True(t, f.cc.PreCallValidateCmdEndRenderPass(cb))
	assert.Len(t, f.log.RecordsFor("VUID-vkCmdEndRenderPass-None-00910"), 1)

	f.cc.PostCallRecordCmdNextSubpass(cb, vk.SubpassContentsInline)
	assert.True(t, f.cc.PreCallValidateCmdNextSubpass(cb, vk.SubpassContentsInline))
	assert.Len(t, f.log.RecordsFor("VUID-vkCmdNextSubpass-None-00909"), 1)
}

func TestRenderPassCommandsOutsideRenderPass(t *testing.T) {
	f := newFixture(t, state.Features{})
	cb := f.primary()

	assert.True(t, f.cc.PreCallValidateCmdEndRenderPass(cb))
	assert.Len(t, f.log.RecordsFor("VUID-vkCmdEndRenderPass-renderpass"), 1)
	assert.True(t, f.cc.PreCallValidateCmdNextSubpass(cb, vk.SubpassContentsInline))
	assert.Len(t, f.log.RecordsFor("VUID-vkCmdNextSubpass-renderpass"), 1)
}

func TestClearInsideRenderPass(t *testing.T) {
	f := newFixture(t, state.Features{})
	img := f.image()
	info := f.colorTarget(img, vk.ImageLayoutUndefined, vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutColorAttachmentOptimal)
	cb := f.primary()
	f.beginRenderPass(cb, info)

	assert.True(t, f.clear(cb, f.image(), vk.ImageLayoutTransferDstOptimal))
	assert.Len(t, f.log.RecordsFor("VUID-vkCmdClearColorImage-renderpass"), 1)
}

func TestDynamicRenderingRecordsAttachmentLayouts(t *testing.T) {
	f := newFixture(t, state.Features{})
	img := f.image()
	view, err := f.tr.CreateImageView(f.handle(), state.ImageViewCreateInfo{
		Image:            img.Handle().Handle,
		Format:           vk.FormatR8g8b8a8Unorm,
		SubresourceRange: fullColor(),
	})
	require.NoError(t, err)
	cb := f.primary()
	info := &state.RenderingInfo{
		LayerCount:       1,
		ColorAttachments: []state.RenderingAttachment{{View: view, Layout: vk.ImageLayoutColorAttachmentOptimal}},
	}

	assert.False(t, f.cc.PreCallValidateCmdBeginRendering(cb, info))
	f.cc.PostCallRecordCmdBeginRendering(cb, info)
	e, ok := cb.ImageLayoutMap(img).SubresourceLayouts(img.Encoder.Decode(0))
	require.True(t, ok)
	assert.Equal(t, vk.ImageLayoutColorAttachmentOptimal, e.Initial)

	// vkCmdEndRenderPass cannot end a dynamic rendering instance.
	assert.True(t, f.cc.PreCallValidateCmdEndRenderPass(cb))
	assert.Len(t, f.log.RecordsFor("VUID-vkCmdEndRenderPass-None-06170"), 1)

	assert.False(t, f.cc.PreCallValidateCmdEndRendering(cb))
	f.cc.PostCallRecordCmdEndRendering(cb)
	assert.False(t, cb.InRenderPass())
}
