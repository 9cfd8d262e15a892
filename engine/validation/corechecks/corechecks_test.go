package corechecks

import (
	"strings"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/vksync/engine/core"
	"github.com/spaghettifunk/vksync/engine/validation/report"
	"github.com/spaghettifunk/vksync/engine/validation/state"
	"github.com/spaghettifunk/vksync/engine/vulkan"
)

type fixture struct {
	t     *testing.T
	tr    *state.Tracker
	log   *report.Logger
	cc    *CoreChecks
	pool  *state.CommandPool
	queue *state.Queue
	next  report.Handle
}

func newFixture(t *testing.T, features state.Features) *fixture {
	t.Helper()
	tr := state.NewTracker(features, core.NewEventBus())
	t.Cleanup(tr.Close)
	f := &fixture{
		t:    t,
		tr:   tr,
		log:  report.NewLogger(report.WithQuiet()),
		next: 100,
	}
	f.cc = New(tr, f.log, DefaultSettings())

	var err error
	f.pool, err = tr.CreateCommandPool(f.handle(), state.CommandPoolCreateInfo{
		Flags: vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	})
	require.NoError(t, err)
	f.queue, err = tr.CreateQueue(f.handle(), 0, 0, false)
	require.NoError(t, err)
	return f
}

func (f *fixture) handle() report.Handle {
	f.next++
	return f.next
}

func (f *fixture) image() *state.Image {
	f.t.Helper()
	img, err := f.tr.CreateImage(f.handle(), state.ImageCreateInfo{
		ImageType:   vk.ImageType2d,
		Format:      vk.FormatR8g8b8a8Unorm,
		Extent:      vk.Extent3D{Width: 16, Height: 16, Depth: 1},
		MipLevels:   1,
		ArrayLayers: 1,
		Tiling:      vk.ImageTilingOptimal,
	})
	require.NoError(f.t, err)
	return img
}

func (f *fixture) commandBuffer(level vk.CommandBufferLevel) *state.CommandBuffer {
	f.t.Helper()
	cbs, err := f.tr.AllocateCommandBuffers(f.pool.Handle().Handle, level, []report.Handle{f.handle()})
	require.NoError(f.t, err)
	return cbs[0]
}

func (f *fixture) primary() *state.CommandBuffer {
	cb := f.commandBuffer(vk.CommandBufferLevelPrimary)
	f.tr.BeginCommandBuffer(cb, state.CommandBufferBeginInfo{})
	return cb
}

func (f *fixture) secondary(info state.CommandBufferBeginInfo) *state.CommandBuffer {
	cb := f.commandBuffer(vk.CommandBufferLevelSecondary)
	if info.Inheritance == nil {
		info.Inheritance = &state.InheritanceInfo{}
	}
	f.tr.BeginCommandBuffer(cb, info)
	return cb
}

func (f *fixture) errors() []report.Record {
	var out []report.Record
	for _, r := range f.log.Records() {
		if r.Severity == report.SeverityError {
			out = append(out, r)
		}
	}
	return out
}

func fullColor() vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask: vulkan.ImageAspectColor,
		LevelCount: 1,
		LayerCount: 1,
	}
}

func colorLayers() vk.ImageSubresourceLayers {
	return vk.ImageSubresourceLayers{AspectMask: vulkan.ImageAspectColor, LayerCount: 1}
}

func (f *fixture) clear(cb *state.CommandBuffer, img *state.Image, layout vk.ImageLayout) bool {
	info := &state.ClearImageInfo{Image: img, Layout: layout, Ranges: []vk.ImageSubresourceRange{fullColor()}}
	skip := f.cc.PreCallValidateCmdClearColorImage(cb, info)
	f.cc.PostCallRecordCmdClearColorImage(cb, info)
	return skip
}

func (f *fixture) copy(cb *state.CommandBuffer, src, dst *state.Image, dstLayout vk.ImageLayout) bool {
	info := &state.CopyImageInfo{
		Src:       src,
		SrcLayout: vk.ImageLayoutTransferSrcOptimal,
		Dst:       dst,
		DstLayout: dstLayout,
		Regions:   []state.ImageCopyRegion{{SrcSubresource: colorLayers(), DstSubresource: colorLayers(), Extent: vk.Extent3D{Width: 16, Height: 16, Depth: 1}}},
	}
	skip := f.cc.PreCallValidateCmdCopyImage(cb, info)
	f.cc.PostCallRecordCmdCopyImage(cb, info)
	return skip
}

func (f *fixture) barrier(cb *state.CommandBuffer, img *state.Image, oldLayout, newLayout vk.ImageLayout) bool {
	info := &state.PipelineBarrierInfo{
		ImageMemoryBarriers: []state.ImageMemoryBarrier{{
			OldLayout:        oldLayout,
			NewLayout:        newLayout,
			Image:            img,
			SubresourceRange: fullColor(),
		}},
	}
	skip := f.cc.PreCallValidateCmdPipelineBarrier(cb, info)
	f.cc.PostCallRecordCmdPipelineBarrier(cb, info)
	return skip
}

func TestCopyAfterClearReportsPreviousKnownLayout(t *testing.T) {
	f := newFixture(t, state.Features{})
	src, dst := f.image(), f.image()
	cb := f.primary()

	// GENERAL is allowed for a clear, with a performance warning.
	assert.False(t, f.clear(cb, dst, vk.ImageLayoutGeneral))
	assert.Len(t, f.log.RecordsFor(kVUIDInvalidImageLayout), 1)

	assert.True(t, f.copy(cb, src, dst, vk.ImageLayoutTransferDstOptimal))
	errs := f.errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "VUID-vkCmdCopyImage-dstImageLayout-00133", errs[0].VUID)
	assert.Contains(t, errs[0].Message, "previous known layout VK_IMAGE_LAYOUT_GENERAL")
}

func TestFirstUseIsNotAnError(t *testing.T) {
	f := newFixture(t, state.Features{})
	src, dst := f.image(), f.image()
	cb := f.primary()

	assert.False(t, f.copy(cb, src, dst, vk.ImageLayoutTransferDstOptimal))
	assert.Empty(t, f.log.Records())

	m := cb.ImageLayoutMap(dst)
	require.NotNil(t, m)
	e, ok := m.SubresourceLayouts(dst.Encoder.Decode(0))
	require.True(t, ok)
	assert.Equal(t, vk.ImageLayoutTransferDstOptimal, e.Initial)
	assert.False(t, e.HasCurrent())
}

func TestInvalidLayoutForCommand(t *testing.T) {
	f := newFixture(t, state.Features{})
	src, dst := f.image(), f.image()
	cb := f.primary()

	assert.True(t, f.copy(cb, src, dst, vk.ImageLayoutShaderReadOnlyOptimal))
	errs := f.errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "VUID-vkCmdCopyImage-dstImageLayout-01395", errs[0].VUID)
}

func TestInvalidLayoutWithSharedPresentableFeature(t *testing.T) {
	f := newFixture(t, state.Features{SharedPresentableImage: true})
	src, dst := f.image(), f.image()
	sc, err := f.tr.CreateSwapchain(f.handle(), []report.Handle{f.handle()}, state.ImageCreateInfo{
		ImageType:   vk.ImageType2d,
		Format:      vk.FormatB8g8r8a8Unorm,
		Extent:      vk.Extent3D{Width: 16, Height: 16, Depth: 1},
		MipLevels:   1,
		ArrayLayers: 1,
	}, true)
	require.NoError(t, err)
	shared := sc.Images[0]
	cb := f.primary()

	assert.True(t, f.copy(cb, src, dst, vk.ImageLayoutShaderReadOnlyOptimal))
	errs := f.errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "VUID-vkCmdCopyImage-dstImageLayout-01395", errs[0].VUID)
	assert.Contains(t, errs[0].Message, "but can only be VK_IMAGE_LAYOUT_TRANSFER_DST_OPTIMAL")

	assert.True(t, f.copy(cb, src, shared, vk.ImageLayoutShaderReadOnlyOptimal))
	errs = f.errors()
	require.Len(t, errs, 2)
	assert.Contains(t, errs[1].Message, "must be VK_IMAGE_LAYOUT_SHARED_PRESENT_KHR")
}

func TestLinearImageGeneralIsQuiet(t *testing.T) {
	f := newFixture(t, state.Features{})
	img, err := f.tr.CreateImage(f.handle(), state.ImageCreateInfo{
		ImageType: vk.ImageType2d,
		Format:    vk.FormatR8g8b8a8Unorm,
		Extent:    vk.Extent3D{Width: 4, Height: 4, Depth: 1},
		Tiling:    vk.ImageTilingLinear,
	})
	require.NoError(t, err)
	cb := f.primary()

	assert.False(t, f.clear(cb, img, vk.ImageLayoutGeneral))
	assert.Empty(t, f.log.Records())
}

func TestLayoutValidationCanBeDisabled(t *testing.T) {
	f := newFixture(t, state.Features{})
	f.cc.SetSettings(Settings{CommandBufferState: true})
	src, dst := f.image(), f.image()
	cb := f.primary()

	f.clear(cb, dst, vk.ImageLayoutGeneral)
	assert.False(t, f.copy(cb, src, dst, vk.ImageLayoutTransferDstOptimal))
	assert.Empty(t, f.log.Records())
}

func TestBarrierOldLayoutMismatch(t *testing.T) {
	f := newFixture(t, state.Features{})
	img := f.image()
	cb := f.primary()

	assert.False(t, f.barrier(cb, img, vk.ImageLayoutUndefined, vk.ImageLayoutGeneral))
	assert.True(t, f.barrier(cb, img, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal))

	errs := f.errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "VUID-VkImageMemoryBarrier-oldLayout-01197", errs[0].VUID)
	assert.Contains(t, errs[0].Message, "previous known layout is VK_IMAGE_LAYOUT_GENERAL")
}

func TestBarriersInOneCallSeeEachOther(t *testing.T) {
	f := newFixture(t, state.Features{})
	img := f.image()
	cb := f.primary()

	info := &state.PipelineBarrierInfo{
		ImageMemoryBarriers: []state.ImageMemoryBarrier{
			{OldLayout: vk.ImageLayoutUndefined, NewLayout: vk.ImageLayoutGeneral, Image: img, SubresourceRange: fullColor()},
			{OldLayout: vk.ImageLayoutGeneral, NewLayout: vk.ImageLayoutTransferDstOptimal, Image: img, SubresourceRange: fullColor()},
		},
	}
	assert.False(t, f.cc.PreCallValidateCmdPipelineBarrier(cb, info))
	// Validation does not touch the recording.
	assert.Nil(t, cb.ImageLayoutMap(img))

	f.cc.PostCallRecordCmdPipelineBarrier(cb, info)
	e, ok := cb.ImageLayoutMap(img).SubresourceLayouts(img.Encoder.Decode(0))
	require.True(t, ok)
	assert.Equal(t, vk.ImageLayoutUndefined, e.Initial)
	assert.Equal(t, vk.ImageLayoutTransferDstOptimal, e.Current)
}

func TestBarrierNewLayoutUndefined(t *testing.T) {
	f := newFixture(t, state.Features{})
	img := f.image()
	cb := f.primary()

	assert.True(t, f.barrier(cb, img, vk.ImageLayoutUndefined, vk.ImageLayoutUndefined))
	assert.Len(t, f.log.RecordsFor("VUID-VkImageMemoryBarrier-newLayout-01198"), 1)
}

func TestReleaseBarrierOnlyRecordsInitialLayout(t *testing.T) {
	f := newFixture(t, state.Features{})
	img := f.image()
	cb := f.primary()

	info := &state.PipelineBarrierInfo{
		ImageMemoryBarriers: []state.ImageMemoryBarrier{{
			OldLayout:           vk.ImageLayoutTransferDstOptimal,
			NewLayout:           vk.ImageLayoutShaderReadOnlyOptimal,
			SrcQueueFamilyIndex: 0,
			DstQueueFamilyIndex: 1,
			Image:               img,
			SubresourceRange:    fullColor(),
		}},
	}
	f.cc.PostCallRecordCmdPipelineBarrier(cb, info)
	e, ok := cb.ImageLayoutMap(img).SubresourceLayouts(img.Encoder.Decode(0))
	require.True(t, ok)
	assert.Equal(t, vk.ImageLayoutTransferDstOptimal, e.Initial)
	assert.False(t, e.HasCurrent())
}

func TestCommandOutsideRecording(t *testing.T) {
	f := newFixture(t, state.Features{})
	img := f.image()
	cb := f.commandBuffer(vk.CommandBufferLevelPrimary)

	assert.True(t, f.clear(cb, img, vk.ImageLayoutTransferDstOptimal))
	recs := f.log.RecordsFor("VUID-vkCmdClearColorImage-commandBuffer-recording")
	require.Len(t, recs, 1)
	assert.True(t, strings.HasPrefix(recs[0].Message, "You must call vkBeginCommandBuffer()"))
}
