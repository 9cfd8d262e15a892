package state

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/vksync/engine/core"
	"github.com/spaghettifunk/vksync/engine/validation/report"
	"github.com/spaghettifunk/vksync/engine/vulkan"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	tr := NewTracker(Features{}, core.NewEventBus())
	t.Cleanup(tr.Close)
	return tr
}

func colorImage(t *testing.T, tr *Tracker, h report.Handle) *Image {
	t.Helper()
	img, err := tr.CreateImage(h, ImageCreateInfo{
		ImageType:     vk.ImageType2d,
		Format:        vk.FormatR8g8b8a8Unorm,
		Extent:        vk.Extent3D{Width: 64, Height: 64, Depth: 1},
		MipLevels:     2,
		ArrayLayers:   2,
		Tiling:        vk.ImageTilingOptimal,
		InitialLayout: vk.ImageLayoutUndefined,
	})
	require.NoError(t, err)
	return img
}

func allocate(t *testing.T, tr *Tracker, pool report.Handle, level vk.CommandBufferLevel, handles ...report.Handle) []*CommandBuffer {
	t.Helper()
	cbs, err := tr.AllocateCommandBuffers(pool, level, handles)
	require.NoError(t, err)
	return cbs
}

func TestCommandBufferLifecycle(t *testing.T) {
	tr := newTestTracker(t)
	_, err := tr.CreateCommandPool(1, CommandPoolCreateInfo{})
	require.NoError(t, err)
	cb := allocate(t, tr, 1, vk.CommandBufferLevelPrimary, 10)[0]

	assert.Equal(t, COMMAND_BUFFER_STATE_INITIAL, cb.State())
	tr.BeginCommandBuffer(cb, CommandBufferBeginInfo{})
	assert.Equal(t, COMMAND_BUFFER_STATE_RECORDING, cb.State())
	cb.RecordCommand("vkCmdDraw")
	assert.Equal(t, uint32(1), cb.CommandCount)
	cb.End()
	assert.Equal(t, COMMAND_BUFFER_STATE_RECORDED, cb.State())

	// Begin on a recorded buffer resets it.
	tr.BeginCommandBuffer(cb, CommandBufferBeginInfo{})
	assert.Equal(t, uint32(0), cb.CommandCount)
	assert.Equal(t, COMMAND_BUFFER_STATE_RECORDING, cb.State())
}

func TestDuplicateAndUnknownHandles(t *testing.T) {
	tr := newTestTracker(t)
	colorImage(t, tr, 5)

	_, err := tr.CreateImage(5, ImageCreateInfo{Format: vk.FormatR8g8b8a8Unorm})
	assert.ErrorIs(t, err, core.ErrDuplicateHandle)

	_, err = tr.Image(6)
	assert.ErrorIs(t, err, core.ErrUnknownHandle)

	_, err = tr.Lookup(report.NewTypedHandle(5, report.ObjectTypeImage))
	assert.NoError(t, err)
}

func TestCreateImageSeedsGlobalLayout(t *testing.T) {
	tr := newTestTracker(t)
	img, err := tr.CreateImage(3, ImageCreateInfo{
		Format:        vk.FormatR8g8b8a8Unorm,
		InitialLayout: vk.ImageLayoutPreinitialized,
	})
	require.NoError(t, err)

	layout, ok := img.GlobalLayouts.Layout(img.Encoder.Decode(0))
	require.True(t, ok)
	assert.Equal(t, vk.ImageLayoutPreinitialized, layout)
}

func TestCreateUndefinedImageHasNoGlobalLayout(t *testing.T) {
	tr := newTestTracker(t)
	img := colorImage(t, tr, 4)

	_, ok := img.GlobalLayouts.Layout(img.Encoder.Decode(0))
	assert.False(t, ok)
}

func TestDestroyInvalidatesRecordedCommandBuffer(t *testing.T) {
	tr := newTestTracker(t)
	_, err := tr.CreateCommandPool(1, CommandPoolCreateInfo{})
	require.NoError(t, err)
	cb := allocate(t, tr, 1, vk.CommandBufferLevelPrimary, 10)[0]
	img := colorImage(t, tr, 20)

	tr.BeginCommandBuffer(cb, CommandBufferBeginInfo{})
	cb.SetImageLayout(img, img.FullRange(), vk.ImageLayoutGeneral, vulkan.InvalidLayout)
	cb.End()
	require.True(t, cb.HasChild(img.Handle()))

	require.NoError(t, tr.DestroyImage(20))

	assert.Equal(t, COMMAND_BUFFER_STATE_INVALID_COMPLETE, cb.State())
	broken := cb.BrokenBindings()
	require.Len(t, broken, 1)
	assert.Equal(t, img.Handle(), broken[0].Object)
	assert.False(t, cb.HasChild(img.Handle()))
	assert.Nil(t, cb.ImageLayoutMap(img))
	assert.True(t, img.Destroyed())
}

func TestDestroyWhileRecordingIsIncomplete(t *testing.T) {
	tr := newTestTracker(t)
	_, err := tr.CreateCommandPool(1, CommandPoolCreateInfo{})
	require.NoError(t, err)
	cb := allocate(t, tr, 1, vk.CommandBufferLevelPrimary, 10)[0]
	b, err := tr.CreateBuffer(30, BufferCreateInfo{Size: 256})
	require.NoError(t, err)

	tr.BeginCommandBuffer(cb, CommandBufferBeginInfo{})
	cb.BindIndexBuffer(b)
	require.NoError(t, tr.DestroyBuffer(30))

	assert.Equal(t, COMMAND_BUFFER_STATE_INVALID_INCOMPLETE, cb.State())
	cb.End()
	assert.Equal(t, COMMAND_BUFFER_STATE_INVALID_INCOMPLETE, cb.State())
}

func TestRerecordedSecondaryInvalidatesPrimary(t *testing.T) {
	tr := newTestTracker(t)
	_, err := tr.CreateCommandPool(1, CommandPoolCreateInfo{Flags: vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit)})
	require.NoError(t, err)
	primary := allocate(t, tr, 1, vk.CommandBufferLevelPrimary, 10)[0]
	secondary := allocate(t, tr, 1, vk.CommandBufferLevelSecondary, 11)[0]
	img := colorImage(t, tr, 20)

	tr.BeginCommandBuffer(secondary, CommandBufferBeginInfo{Inheritance: &InheritanceInfo{}})
	secondary.SetImageLayout(img, img.FullRange(), vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutUndefined)
	secondary.End()

	tr.BeginCommandBuffer(primary, CommandBufferBeginInfo{})
	primary.ExecuteCommands([]*CommandBuffer{secondary})
	primary.End()
	require.True(t, primary.IsLinkedTo(secondary))
	require.True(t, secondary.IsLinkedTo(primary))

	// The secondary's layouts were folded into the primary.
	m := primary.ImageLayoutMap(img)
	require.NotNil(t, m)
	entry, ok := m.SubresourceLayouts(img.Encoder.Decode(0))
	require.True(t, ok)
	assert.Equal(t, vk.ImageLayoutUndefined, entry.Initial)
	assert.Equal(t, vk.ImageLayoutTransferDstOptimal, entry.Current)

	tr.ResetCommandBuffer(secondary)

	assert.Equal(t, COMMAND_BUFFER_STATE_INVALID_COMPLETE, primary.State())
	broken := primary.BrokenBindings()
	require.Len(t, broken, 1)
	assert.Equal(t, secondary.Handle(), broken[0].Object)
	assert.False(t, primary.IsLinkedTo(secondary))
}

func TestDestroyPropagatesThroughSecondary(t *testing.T) {
	tr := newTestTracker(t)
	_, err := tr.CreateCommandPool(1, CommandPoolCreateInfo{})
	require.NoError(t, err)
	primary := allocate(t, tr, 1, vk.CommandBufferLevelPrimary, 10)[0]
	secondary := allocate(t, tr, 1, vk.CommandBufferLevelSecondary, 11)[0]
	img := colorImage(t, tr, 20)

	tr.BeginCommandBuffer(secondary, CommandBufferBeginInfo{Inheritance: &InheritanceInfo{}})
	secondary.SetImageInitialLayout(img, img.FullRange(), vk.ImageLayoutGeneral)
	secondary.End()
	tr.BeginCommandBuffer(primary, CommandBufferBeginInfo{})
	primary.ExecuteCommands([]*CommandBuffer{secondary})
	primary.End()

	require.NoError(t, tr.DestroyImage(20))

	assert.Equal(t, COMMAND_BUFFER_STATE_INVALID_COMPLETE, secondary.State())
	assert.Equal(t, COMMAND_BUFFER_STATE_INVALID_COMPLETE, primary.State())

	// The primary hears about the image both directly and through the
	// secondary, either chain starts at the image.
	broken := primary.BrokenBindings()
	require.Len(t, broken, 1)
	assert.Equal(t, img.Handle(), broken[0].Objects.Head())
	assert.False(t, primary.IsLinkedTo(secondary))
}

func TestDescriptorUpdateKeepsBinding(t *testing.T) {
	tr := newTestTracker(t)
	_, err := tr.CreateCommandPool(1, CommandPoolCreateInfo{})
	require.NoError(t, err)
	cb := allocate(t, tr, 1, vk.CommandBufferLevelPrimary, 10)[0]
	ds, err := tr.CreateDescriptorSet(40)
	require.NoError(t, err)

	tr.BeginCommandBuffer(cb, CommandBufferBeginInfo{})
	cb.BindDescriptorSets(vk.PipelineBindPointGraphics, 1, []*DescriptorSet{ds})
	cb.End()
	require.Len(t, cb.BoundDescriptorSets[vk.PipelineBindPointGraphics], 2)

	tr.UpdateDescriptorSet(ds, []DescriptorBinding{{Binding: 0, Type: vk.DescriptorTypeUniformBuffer}})

	assert.Equal(t, COMMAND_BUFFER_STATE_INVALID_COMPLETE, cb.State())
	assert.True(t, cb.HasChild(ds.Handle()))
	_, ok := ds.Binding(0)
	assert.True(t, ok)
}

func TestFreePoolFreesCommandBuffers(t *testing.T) {
	tr := newTestTracker(t)
	p, err := tr.CreateCommandPool(1, CommandPoolCreateInfo{})
	require.NoError(t, err)
	allocate(t, tr, 1, vk.CommandBufferLevelPrimary, 10, 11, 12)
	require.Len(t, p.CommandBuffers(), 3)

	require.NoError(t, tr.DestroyCommandPool(1))
	_, err = tr.CommandBuffer(11)
	assert.ErrorIs(t, err, core.ErrUnknownHandle)
	assert.Empty(t, p.CommandBuffers())
}

func TestQueueSubmitAndFenceRetire(t *testing.T) {
	tr := newTestTracker(t)
	_, err := tr.CreateCommandPool(1, CommandPoolCreateInfo{})
	require.NoError(t, err)
	cbs := allocate(t, tr, 1, vk.CommandBufferLevelPrimary, 10, 11)
	for _, cb := range cbs {
		tr.BeginCommandBuffer(cb, CommandBufferBeginInfo{})
		cb.End()
	}
	q, err := tr.CreateQueue(100, 0, 0, false)
	require.NoError(t, err)
	f, err := tr.CreateFence(200, false)
	require.NoError(t, err)

	seqs := tr.QueueSubmit(q, []*Submission{
		{CommandBuffers: cbs[:1]},
		{CommandBuffers: cbs[1:], Fence: f},
	})
	assert.Equal(t, []uint64{1, 2}, seqs)
	assert.Equal(t, 2, q.Pending())
	assert.True(t, cbs[0].InUse())
	assert.Equal(t, COMMAND_BUFFER_STATE_PENDING, cbs[1].EffectiveState())
	assert.Equal(t, 1, cbs[1].SubmitCount())
	assert.False(t, f.Signaled())

	signaled := tr.WaitForFences([]*Fence{f})
	assert.Len(t, signaled, 1)
	assert.True(t, f.Signaled())
	assert.False(t, cbs[0].InUse())
	assert.False(t, cbs[1].InUse())
	assert.Equal(t, 0, q.Pending())
	assert.Equal(t, uint64(2), q.LastRetired())

	f.Reset()
	assert.False(t, f.Wait())
}

func TestSemaphoreWaitRetiresSignalingQueue(t *testing.T) {
	tr := newTestTracker(t)
	_, err := tr.CreateCommandPool(1, CommandPoolCreateInfo{})
	require.NoError(t, err)
	cbs := allocate(t, tr, 1, vk.CommandBufferLevelPrimary, 10, 11)
	for _, cb := range cbs {
		tr.BeginCommandBuffer(cb, CommandBufferBeginInfo{})
		cb.End()
	}
	gfx, err := tr.CreateQueue(100, 0, 0, false)
	require.NoError(t, err)
	compute, err := tr.CreateQueue(101, 1, 0, false)
	require.NoError(t, err)
	sem, err := tr.CreateSemaphore(300)
	require.NoError(t, err)

	tr.QueueSubmit(gfx, []*Submission{{CommandBuffers: cbs[:1], SignalSemaphores: []*Semaphore{sem}}})
	sq, seq, ok := sem.Signaler()
	require.True(t, ok)
	assert.Equal(t, gfx, sq)
	assert.Equal(t, uint64(1), seq)

	tr.QueueSubmit(compute, []*Submission{{CommandBuffers: cbs[1:], WaitSemaphores: []*Semaphore{sem}}})
	_, _, ok = sem.Signaler()
	assert.False(t, ok)

	tr.QueueWaitIdle(compute)
	assert.False(t, cbs[1].InUse())
	assert.False(t, cbs[0].InUse())
	assert.Equal(t, 0, gfx.Pending())
}

func TestExecutedSecondaryIsInUseWithPrimary(t *testing.T) {
	tr := newTestTracker(t)
	_, err := tr.CreateCommandPool(1, CommandPoolCreateInfo{})
	require.NoError(t, err)
	primary := allocate(t, tr, 1, vk.CommandBufferLevelPrimary, 10)[0]
	secondary := allocate(t, tr, 1, vk.CommandBufferLevelSecondary, 11)[0]
	tr.BeginCommandBuffer(secondary, CommandBufferBeginInfo{Inheritance: &InheritanceInfo{}})
	secondary.End()
	tr.BeginCommandBuffer(primary, CommandBufferBeginInfo{})
	primary.ExecuteCommands([]*CommandBuffer{secondary})
	primary.End()

	q, err := tr.CreateQueue(100, 0, 0, false)
	require.NoError(t, err)
	tr.QueueSubmit(q, []*Submission{{CommandBuffers: []*CommandBuffer{primary}}})
	assert.True(t, secondary.InUse())
	assert.True(t, secondary.Node.InUse())

	tr.DeviceWaitIdle()
	assert.False(t, secondary.InUse())
}

func TestBindPipelineTrashesStaticViewports(t *testing.T) {
	tr := newTestTracker(t)
	_, err := tr.CreateCommandPool(1, CommandPoolCreateInfo{})
	require.NoError(t, err)
	cb := allocate(t, tr, 1, vk.CommandBufferLevelPrimary, 10)[0]
	static, err := tr.CreatePipeline(50, PipelineCreateInfo{
		BindPoint:     vk.PipelineBindPointGraphics,
		ViewportCount: 1,
		ScissorCount:  1,
		Viewports:     []vk.Viewport{{Width: 16, Height: 16, MinDepth: 0, MaxDepth: 0.5}},
	})
	require.NoError(t, err)
	dynamic, err := tr.CreatePipeline(51, PipelineCreateInfo{
		BindPoint:     vk.PipelineBindPointGraphics,
		DynamicStates: []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor},
		ViewportCount: 2,
		ScissorCount:  2,
	})
	require.NoError(t, err)

	tr.BeginCommandBuffer(cb, CommandBufferBeginInfo{})
	cb.SetViewport(0, []vk.Viewport{{Width: 16, Height: 16, MaxDepth: 1}})
	cb.SetScissor(0, 1)
	vs := &cb.ViewportScissor
	assert.Equal(t, uint32(1), vs.ViewportMask)
	assert.Equal(t, uint32(1), vs.ScissorMask)

	cb.BindPipeline(static)
	assert.Equal(t, uint32(1), vs.TrashedViewportMask)
	assert.Equal(t, uint32(1), vs.TrashedScissorMask)
	assert.Equal(t, uint32(1), vs.StaticViewportMask)
	assert.Equal(t, float32(0.5), vs.StaticViewports[0].MaxDepth)
	assert.True(t, vs.TrashedViewportCount)

	cb.BindPipeline(dynamic)
	cb.SetViewport(0, []vk.Viewport{{Width: 16, Height: 16, MaxDepth: 1}, {Width: 8, Height: 8, MaxDepth: 1}})
	assert.Equal(t, uint32(0), vs.TrashedViewportMask)
	assert.Equal(t, uint32(0), vs.StaticViewportMask)
	cb.RecordDraw()
	assert.Equal(t, uint32(2), vs.UsedViewportScissorCount)
	assert.False(t, vs.UsedDynamicViewportCount)
}

func TestViewportWithCount(t *testing.T) {
	tr := newTestTracker(t)
	_, err := tr.CreateCommandPool(1, CommandPoolCreateInfo{})
	require.NoError(t, err)
	cb := allocate(t, tr, 1, vk.CommandBufferLevelSecondary, 10)[0]
	p, err := tr.CreatePipeline(50, PipelineCreateInfo{
		BindPoint:     vk.PipelineBindPointGraphics,
		DynamicStates: []vk.DynamicState{vulkan.DynamicStateViewportWithCount, vulkan.DynamicStateScissorWithCount},
	})
	require.NoError(t, err)

	tr.BeginCommandBuffer(cb, CommandBufferBeginInfo{Inheritance: &InheritanceInfo{
		ViewportScissor: &InheritanceViewportScissorInfo{
			ViewportScissor2D: true,
			ViewportDepths:    []vk.Viewport{{MaxDepth: 1}},
		},
	}})
	assert.Len(t, cb.ViewportScissor.InheritedViewportDepths, 1)

	cb.BindPipeline(p)
	cb.RecordDraw()
	vs := &cb.ViewportScissor
	assert.True(t, vs.UsedDynamicViewportCount)
	assert.True(t, vs.UsedDynamicScissorCount)
	assert.Equal(t, uint32(0), vs.UsedViewportScissorCount)
	assert.False(t, vs.TrashedViewportCount)

	cb.SetViewportWithCount([]vk.Viewport{{MaxDepth: 1}, {MaxDepth: 1}, {MaxDepth: 1}})
	assert.Equal(t, uint32(3), vs.ViewportWithCountCount)
	assert.Equal(t, uint32(0x7), vs.ViewportWithCountMask)
}

func TestExecuteCommandsTrashesPrimaryViewports(t *testing.T) {
	tr := newTestTracker(t)
	_, err := tr.CreateCommandPool(1, CommandPoolCreateInfo{})
	require.NoError(t, err)
	primary := allocate(t, tr, 1, vk.CommandBufferLevelPrimary, 10)[0]
	secondary := allocate(t, tr, 1, vk.CommandBufferLevelSecondary, 11)[0]
	tr.BeginCommandBuffer(secondary, CommandBufferBeginInfo{
		Flags:       vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit),
		Inheritance: &InheritanceInfo{},
	})
	secondary.End()

	tr.BeginCommandBuffer(primary, CommandBufferBeginInfo{Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)})
	primary.SetViewport(0, []vk.Viewport{{MaxDepth: 1}})
	primary.ExecuteCommands([]*CommandBuffer{secondary})
	assert.Equal(t, ^uint32(0), primary.ViewportScissor.TrashedViewportMask)
	assert.True(t, primary.ViewportScissor.TrashedScissorCount)
	assert.True(t, primary.BeginInfo.Has(vk.CommandBufferUsageSimultaneousUseBit))
	assert.Equal(t, []*CommandBuffer{secondary}, primary.ExecutedSecondaries)
}

func TestRenderPassUsage(t *testing.T) {
	tr := newTestTracker(t)
	rp, err := tr.CreateRenderPass(60, RenderPassCreateInfo{
		Attachments: []AttachmentDescription{
			{Format: vk.FormatR8g8b8a8Unorm, Samples: vk.SampleCount1Bit},
			{Format: vk.FormatD32Sfloat, Samples: vk.SampleCount1Bit},
		},
		Subpasses: []SubpassDescription{
			{ColorAttachments: []AttachmentReference{{Attachment: 0, Layout: vk.ImageLayoutColorAttachmentOptimal}}},
			{
				InputAttachments:       []AttachmentReference{{Attachment: 0, Layout: vk.ImageLayoutShaderReadOnlyOptimal}},
				DepthStencilAttachment: &AttachmentReference{Attachment: 1, Layout: vk.ImageLayoutDepthStencilAttachmentOptimal},
			},
		},
		Dependencies: []SubpassDependency{
			{SrcSubpass: vulkan.SubpassExternal, DstSubpass: 0, SrcStageMask: vulkan.PipelineStage2AllTransfer, DstStageMask: vulkan.PipelineStage2ColorAttachmentOutput},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []uint32{0, 1}, rp.AttachmentFirstSubpass)
	assert.Equal(t, []uint32{1, 1}, rp.AttachmentLastSubpass)
	_, ok := rp.ExternalDependency(0, true)
	assert.True(t, ok)
	_, ok = rp.ExternalDependency(1, false)
	assert.False(t, ok)

	other, err := tr.CreateRenderPass(61, rp.CreateInfo)
	require.NoError(t, err)
	assert.True(t, rp.Compatible(other))

	ci := rp.CreateInfo
	ci.Attachments = append([]AttachmentDescription(nil), ci.Attachments...)
	ci.Attachments[0].Format = vk.FormatB8g8r8a8Unorm
	incompatible, err := tr.CreateRenderPass(62, ci)
	require.NoError(t, err)
	assert.False(t, rp.Compatible(incompatible))
}

func TestSwapchainImagesAreNotSeeded(t *testing.T) {
	tr := newTestTracker(t)
	sc, err := tr.CreateSwapchain(70, []report.Handle{71, 72}, ImageCreateInfo{Format: vk.FormatB8g8r8a8Unorm}, true)
	require.NoError(t, err)
	require.Len(t, sc.Images, 2)
	assert.True(t, sc.Images[0].SharedPresentable)

	_, ok := sc.Images[0].GlobalLayouts.Layout(sc.Images[0].Encoder.Decode(0))
	assert.False(t, ok)

	require.NoError(t, tr.Destroy(report.NewTypedHandle(70, report.ObjectTypeSwapchain)))
	_, err = tr.Image(71)
	assert.ErrorIs(t, err, core.ErrUnknownHandle)
}
