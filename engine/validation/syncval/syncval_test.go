package syncval

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/vksync/engine/core"
	"github.com/spaghettifunk/vksync/engine/validation/report"
	"github.com/spaghettifunk/vksync/engine/validation/state"
	"github.com/spaghettifunk/vksync/engine/vulkan"
)

const (
	vuidRAW = "SYNC-HAZARD-READ-AFTER-WRITE"
	vuidWAR = "SYNC-HAZARD-WRITE-AFTER-READ"
	vuidWAW = "SYNC-HAZARD-WRITE-AFTER-WRITE"
)

type fixture struct {
	t     *testing.T
	tr    *state.Tracker
	log   *report.Logger
	sv    *SyncValidator
	pool  *state.CommandPool
	queue *state.Queue
	next  report.Handle
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tr := state.NewTracker(state.Features{Synchronization2: true}, core.NewEventBus())
	t.Cleanup(tr.Close)
	f := &fixture{
		t:    t,
		tr:   tr,
		log:  report.NewLogger(report.WithQuiet()),
		next: 100,
	}
	f.sv = New(tr, f.log, DefaultSettings())
	t.Cleanup(f.sv.Close)

	var err error
	f.pool, err = tr.CreateCommandPool(f.handle(), state.CommandPoolCreateInfo{
		Flags: vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	})
	require.NoError(t, err)
	f.queue = f.newQueue()
	return f
}

func (f *fixture) handle() report.Handle {
	f.next++
	return f.next
}

func (f *fixture) newQueue() *state.Queue {
	f.t.Helper()
	q, err := f.tr.CreateQueue(f.handle(), 0, 0, false)
	require.NoError(f.t, err)
	return q
}

func (f *fixture) buffer() *state.Buffer {
	f.t.Helper()
	b, err := f.tr.CreateBuffer(f.handle(), state.BufferCreateInfo{Size: 256})
	require.NoError(f.t, err)
	return b
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

func (f *fixture) commandBuffer(level vk.CommandBufferLevel, info state.CommandBufferBeginInfo) *state.CommandBuffer {
	f.t.Helper()
	cbs, err := f.tr.AllocateCommandBuffers(f.pool.Handle().Handle, level, []report.Handle{f.handle()})
	require.NoError(f.t, err)
	f.tr.BeginCommandBuffer(cbs[0], info)
	f.sv.PostCallRecordBeginCommandBuffer(cbs[0], &info)
	return cbs[0]
}

func (f *fixture) primary() *state.CommandBuffer {
	return f.commandBuffer(vk.CommandBufferLevelPrimary, state.CommandBufferBeginInfo{})
}

func fullColor() vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{AspectMask: vulkan.ImageAspectColor, LevelCount: 1, LayerCount: 1}
}

func (f *fixture) fill(cb *state.CommandBuffer, b *state.Buffer, offset, size uint64) bool {
	info := &state.FillBufferInfo{Buffer: b, Offset: offset, Size: size}
	skip := f.sv.PreCallValidateCmdFillBuffer(cb, info)
	f.sv.PostCallRecordCmdFillBuffer(cb, info)
	return skip
}

func (f *fixture) copyBuffer(cb *state.CommandBuffer, src, dst *state.Buffer) bool {
	info := &state.CopyBufferInfo{Src: src, Dst: dst, Regions: []state.BufferCopyRegion{{Size: 64}}}
	skip := f.sv.PreCallValidateCmdCopyBuffer(cb, info)
	f.sv.PostCallRecordCmdCopyBuffer(cb, info)
	return skip
}

func (f *fixture) clear(cb *state.CommandBuffer, img *state.Image) bool {
	info := &state.ClearImageInfo{Image: img, Layout: vk.ImageLayoutTransferDstOptimal, Ranges: []vk.ImageSubresourceRange{fullColor()}}
	skip := f.sv.PreCallValidateCmdClearColorImage(cb, info)
	f.sv.PostCallRecordCmdClearColorImage(cb, info)
	return skip
}

func (f *fixture) barrier2(cb *state.CommandBuffer, dep *state.DependencyInfo) bool {
	skip := f.sv.PreCallValidateCmdPipelineBarrier2(cb, dep)
	f.sv.PostCallRecordCmdPipelineBarrier2(cb, dep)
	return skip
}

func (f *fixture) submit(q *state.Queue, subs ...*state.Submission) bool {
	skip := f.sv.PreCallValidateQueueSubmit("vkQueueSubmit", q, subs)
	f.tr.QueueSubmit(q, subs)
	f.sv.PostCallRecordQueueSubmit(q, subs)
	return skip
}

func batch(cbs ...*state.CommandBuffer) *state.Submission {
	return &state.Submission{CommandBuffers: cbs}
}

var (
	clearWrite = state.Scope{Stages: vulkan.PipelineStage2Clear, Accesses: vulkan.Access2TransferWrite}
	copyRead   = state.Scope{Stages: vulkan.PipelineStage2Copy, Accesses: vulkan.Access2TransferRead}
	copyWrite  = state.Scope{Stages: vulkan.PipelineStage2Copy, Accesses: vulkan.Access2TransferWrite}
)

func TestReadAfterWrite(t *testing.T) {
	f := newFixture(t)
	src, dst := f.buffer(), f.buffer()
	cb := f.primary()

	assert.False(t, f.fill(cb, src, 0, vulkan.WholeSize))
	assert.True(t, f.copyBuffer(cb, src, dst))

	recs := f.log.RecordsFor(vuidRAW)
	require.Len(t, recs, 1)
	assert.Equal(t, "vkCmdCopyBuffer()", recs[0].Location)
	assert.Contains(t, recs[0].Message, "prior_usage: SYNC_CLEAR_TRANSFER_WRITE")
	assert.Contains(t, recs[0].Message, "command: vkCmdFillBuffer")
	assert.Contains(t, recs[0].Message, "pRegions[0].srcOffset")
}

func TestBarrierOrdersWriteBeforeRead(t *testing.T) {
	f := newFixture(t)
	src, dst := f.buffer(), f.buffer()
	cb := f.primary()

	f.fill(cb, src, 0, vulkan.WholeSize)
	assert.False(t, f.barrier2(cb, &state.DependencyInfo{
		BufferMemoryBarriers: []state.BufferMemoryBarrier{{Src: clearWrite, Dst: copyRead, Buffer: src, Size: vulkan.WholeSize}},
	}))
	assert.False(t, f.copyBuffer(cb, src, dst))
	assert.Empty(t, f.log.Records())
}

func TestBarrierWithWrongAccessScope(t *testing.T) {
	f := newFixture(t)
	src, dst := f.buffer(), f.buffer()
	cb := f.primary()

	f.fill(cb, src, 0, vulkan.WholeSize)
	// orders the fill before copy writes only
	f.barrier2(cb, &state.DependencyInfo{
		MemoryBarriers: []state.MemoryBarrier{{Src: clearWrite, Dst: copyWrite}},
	})
	assert.True(t, f.copyBuffer(cb, src, dst))
	assert.Len(t, f.log.RecordsFor(vuidRAW), 1)
}

func TestWriteAfterRead(t *testing.T) {
	f := newFixture(t)
	src, dst := f.buffer(), f.buffer()
	cb := f.primary()

	f.copyBuffer(cb, src, dst)
	assert.True(t, f.fill(cb, src, 0, 16))
	recs := f.log.RecordsFor(vuidWAR)
	require.Len(t, recs, 1)
	assert.Contains(t, recs[0].Message, "prior_usage: SYNC_COPY_TRANSFER_READ")
	assert.Contains(t, recs[0].Message, "read_barriers:")
}

func TestExecutionBarrierOrdersWriteAfterRead(t *testing.T) {
	f := newFixture(t)
	src, dst := f.buffer(), f.buffer()
	cb := f.primary()

	f.copyBuffer(cb, src, dst)
	info := &state.PipelineBarrierInfo{SrcStageMask: vulkan.PipelineStage2Copy, DstStageMask: vulkan.PipelineStage2Clear}
	assert.False(t, f.sv.PreCallValidateCmdPipelineBarrier(cb, info))
	f.sv.PostCallRecordCmdPipelineBarrier(cb, info)

	assert.False(t, f.fill(cb, src, 0, 16))
	assert.Empty(t, f.log.Records())
}

func TestWriteAfterWrite(t *testing.T) {
	f := newFixture(t)
	b := f.buffer()
	cb := f.primary()

	f.fill(cb, b, 0, 64)
	assert.False(t, f.fill(cb, b, 64, 64), "disjoint ranges")
	assert.True(t, f.fill(cb, b, 32, 64))
	assert.Len(t, f.log.RecordsFor(vuidWAW), 1)
}

func TestLayoutTransitionHazard(t *testing.T) {
	f := newFixture(t)
	img := f.image()
	cb := f.primary()

	f.clear(cb, img)
	transition := func(src state.Scope) *state.DependencyInfo {
		return &state.DependencyInfo{ImageMemoryBarriers: []state.ImageMemoryBarrier2{{
			Src:              src,
			Dst:              copyRead,
			OldLayout:        vk.ImageLayoutTransferDstOptimal,
			NewLayout:        vk.ImageLayoutTransferSrcOptimal,
			Image:            img,
			SubresourceRange: fullColor(),
		}}}
	}

	assert.True(t, f.barrier2(cb, transition(state.Scope{Stages: vulkan.PipelineStage2TopOfPipe})))
	recs := f.log.RecordsFor(vuidWAW)
	require.Len(t, recs, 1)
	assert.Contains(t, recs[0].Message, "pDependencyInfo.pImageMemoryBarriers[0]")
	assert.Contains(t, recs[0].Message, "usage: SYNC_IMAGE_LAYOUT_TRANSITION")

	f.log.Reset()
	cb2 := f.primary()
	f.clear(cb2, img)
	assert.False(t, f.barrier2(cb2, transition(clearWrite)))

	// the transition is a write ordered before copy reads
	buf := f.buffer()
	info := &state.CopyImageToBufferInfo{
		Src:       img,
		SrcLayout: vk.ImageLayoutTransferSrcOptimal,
		Dst:       buf,
		Regions: []state.BufferImageCopyRegion{{
			ImageSubresource: vk.ImageSubresourceLayers{AspectMask: vulkan.ImageAspectColor, LayerCount: 1},
			ImageExtent:      vk.Extent3D{Width: 4, Height: 4, Depth: 1},
		}},
	}
	assert.False(t, f.sv.PreCallValidateCmdCopyImageToBuffer(cb2, info))
	assert.Empty(t, f.log.Records())
}

func TestWaitEventsScope(t *testing.T) {
	f := newFixture(t)
	src, dst := f.buffer(), f.buffer()
	event, err := f.tr.CreateEvent(f.handle())
	require.NoError(t, err)
	wait := &state.WaitEventsInfo{
		Events:     []*state.Event{event},
		Dependency: state.DependencyInfo{MemoryBarriers: []state.MemoryBarrier{{Src: clearWrite, Dst: copyRead}}},
	}

	cb := f.primary()
	f.fill(cb, src, 0, vulkan.WholeSize)
	f.sv.PostCallRecordCmdSetEvent(cb, event, vulkan.PipelineStage2Clear)
	assert.False(t, f.sv.PreCallValidateCmdWaitEvents(cb, wait))
	f.sv.PostCallRecordCmdWaitEvents(cb, wait)
	assert.False(t, f.copyBuffer(cb, src, dst))
	assert.Empty(t, f.log.Records())

	// a write after the set is outside the wait's first scope
	cb2 := f.primary()
	f.sv.PostCallRecordCmdSetEvent(cb2, event, vulkan.PipelineStage2Clear)
	f.fill(cb2, src, 0, vulkan.WholeSize)
	f.sv.PostCallRecordCmdWaitEvents(cb2, wait)
	assert.True(t, f.copyBuffer(cb2, src, dst))
	assert.Len(t, f.log.RecordsFor(vuidRAW), 1)
}

func TestExecuteCommandsReplaysSecondary(t *testing.T) {
	f := newFixture(t)
	src, dst := f.buffer(), f.buffer()

	sub := f.commandBuffer(vk.CommandBufferLevelSecondary, state.CommandBufferBeginInfo{Inheritance: &state.InheritanceInfo{}})
	assert.False(t, f.copyBuffer(sub, src, dst))

	cb := f.primary()
	f.fill(cb, src, 0, vulkan.WholeSize)
	assert.True(t, f.sv.PreCallValidateCmdExecuteCommands(cb, []*state.CommandBuffer{sub}))
	recs := f.log.RecordsFor(vuidRAW)
	require.Len(t, recs, 1)
	assert.Equal(t, "vkCmdExecuteCommands(): pCommandBuffers[0]", recs[0].Location)
	assert.Contains(t, recs[0].Message, "recorded by vkCmdCopyBuffer")

	f.sv.PostCallRecordCmdExecuteCommands(cb, []*state.CommandBuffer{sub})
	c, ok := f.sv.CommandBufferContext(cb)
	require.True(t, ok)
	assert.Len(t, c.Records(), 2)

	// the secondary's read is now part of the primary's history
	assert.True(t, f.fill(cb, src, 0, 16))
	assert.Len(t, f.log.RecordsFor(vuidWAR), 1)
}

func TestSubmitHazardBetweenCommandBuffers(t *testing.T) {
	f := newFixture(t)
	src, dst := f.buffer(), f.buffer()

	cb1 := f.primary()
	f.fill(cb1, src, 0, vulkan.WholeSize)
	cb1.End()
	cb2 := f.primary()
	f.copyBuffer(cb2, src, dst)
	cb2.End()
	require.Empty(t, f.log.Records())

	assert.True(t, f.submit(f.queue, batch(cb1, cb2)))
	recs := f.log.RecordsFor(vuidRAW)
	require.Len(t, recs, 1)
	assert.Equal(t, "vkQueueSubmit(): pSubmits[0].pCommandBuffers[1]", recs[0].Location)
	assert.Contains(t, recs[0].Message, "command: vkCmdFillBuffer")
	assert.Contains(t, recs[0].Message, "submit_index: 1")
}

func TestSubmitHazardAcrossSubmissions(t *testing.T) {
	f := newFixture(t)
	src, dst := f.buffer(), f.buffer()

	cb1 := f.primary()
	f.fill(cb1, src, 0, vulkan.WholeSize)
	cb1.End()
	cb2 := f.primary()
	f.copyBuffer(cb2, src, dst)
	cb2.End()

	assert.False(t, f.submit(f.queue, batch(cb1)))
	assert.True(t, f.submit(f.queue, batch(cb2)))
	assert.Len(t, f.log.RecordsFor(vuidRAW), 1)
}

func TestSemaphoreOrdersQueues(t *testing.T) {
	f := newFixture(t)
	other := f.newQueue()
	sem, err := f.tr.CreateSemaphore(f.handle())
	require.NoError(t, err)
	src, dst := f.buffer(), f.buffer()

	cb1 := f.primary()
	f.fill(cb1, src, 0, vulkan.WholeSize)
	cb1.End()
	cb2 := f.primary()
	f.copyBuffer(cb2, src, dst)
	cb2.End()

	assert.False(t, f.submit(f.queue, &state.Submission{CommandBuffers: []*state.CommandBuffer{cb1}, SignalSemaphores: []*state.Semaphore{sem}}))
	assert.False(t, f.submit(other, &state.Submission{CommandBuffers: []*state.CommandBuffer{cb2}, WaitSemaphores: []*state.Semaphore{sem}}))
	assert.Empty(t, f.log.Records())
}

func TestWaitIdleRetiresAccesses(t *testing.T) {
	f := newFixture(t)
	src, dst := f.buffer(), f.buffer()

	cb1 := f.primary()
	f.fill(cb1, src, 0, vulkan.WholeSize)
	cb1.End()
	cb2 := f.primary()
	f.copyBuffer(cb2, src, dst)
	cb2.End()

	f.submit(f.queue, batch(cb1))
	f.tr.QueueWaitIdle(f.queue)
	f.sv.PostCallRecordQueueWaitIdle(f.queue)
	assert.False(t, f.submit(f.queue, batch(cb2)))
	assert.Empty(t, f.log.Records())
}

func TestFenceWaitRetiresAccesses(t *testing.T) {
	f := newFixture(t)
	fence, err := f.tr.CreateFence(f.handle(), false)
	require.NoError(t, err)
	src, dst := f.buffer(), f.buffer()

	cb1 := f.primary()
	f.fill(cb1, src, 0, vulkan.WholeSize)
	cb1.End()
	cb2 := f.primary()
	f.copyBuffer(cb2, src, dst)
	cb2.End()

	f.submit(f.queue, &state.Submission{CommandBuffers: []*state.CommandBuffer{cb1}, Fence: fence})
	f.sv.PostCallRecordWaitForFences([]*state.Fence{fence})
	assert.False(t, f.submit(f.queue, batch(cb2)))
	assert.Empty(t, f.log.Records())
}

func (f *fixture) deviceRecords() []ResourceUsageRecord {
	var out []ResourceUsageRecord
	f.sv.DeviceAccess(func(_ *AccessContext, records []ResourceUsageRecord) {
		out = append(out, records...)
	})
	return out
}

func TestWaitsTrimDeviceRecords(t *testing.T) {
	f := newFixture(t)
	src, dst := f.buffer(), f.buffer()

	cb1 := f.primary()
	f.fill(cb1, src, 0, vulkan.WholeSize)
	cb1.End()
	cb2 := f.primary()
	f.copyBuffer(cb2, src, dst)
	cb2.End()

	f.submit(f.queue, batch(cb1))
	require.Len(t, f.deviceRecords(), 1)
	f.tr.QueueWaitIdle(f.queue)
	f.sv.PostCallRecordQueueWaitIdle(f.queue)
	assert.Empty(t, f.deviceRecords())

	f.submit(f.queue, batch(cb2))
	recs := f.deviceRecords()
	require.Len(t, recs, 1)
	assert.Equal(t, "vkCmdCopyBuffer", recs[0].Command)

	f.sv.PostCallRecordDeviceWaitIdle()
	assert.Empty(t, f.deviceRecords())
}

func TestTrimKeepsRecordsOfLiveAccesses(t *testing.T) {
	f := newFixture(t)
	other := f.newQueue()
	src, dst, staging := f.buffer(), f.buffer(), f.buffer()

	cb1 := f.primary()
	f.fill(cb1, src, 0, vulkan.WholeSize)
	cb1.End()
	cb2 := f.primary()
	f.copyBuffer(cb2, staging, dst)
	cb2.End()
	cb3 := f.primary()
	f.fill(cb3, dst, 0, vulkan.WholeSize)
	cb3.End()

	f.submit(f.queue, batch(cb1))
	f.submit(other, batch(cb2))
	f.tr.QueueWaitIdle(f.queue)
	f.sv.PostCallRecordQueueWaitIdle(f.queue)

	recs := f.deviceRecords()
	require.Len(t, recs, 1)
	assert.Equal(t, "vkCmdCopyBuffer", recs[0].Command)

	// The copy on the other queue is still unordered with the fill.
	assert.True(t, f.submit(f.queue, batch(cb3)))
	waw := f.log.RecordsFor(vuidWAW)
	require.Len(t, waw, 1)
	assert.Contains(t, waw[0].Message, "command: vkCmdCopyBuffer")
}

func TestSemaphoreSurvivesTrim(t *testing.T) {
	f := newFixture(t)
	other, third := f.newQueue(), f.newQueue()
	sem, err := f.tr.CreateSemaphore(f.handle())
	require.NoError(t, err)
	src, dst, scratch := f.buffer(), f.buffer(), f.buffer()

	cb1 := f.primary()
	f.fill(cb1, scratch, 0, vulkan.WholeSize)
	cb1.End()
	cb2 := f.primary()
	f.fill(cb2, src, 0, vulkan.WholeSize)
	cb2.End()
	cb3 := f.primary()
	f.copyBuffer(cb3, src, dst)
	cb3.End()

	f.submit(other, batch(cb1))
	f.submit(f.queue, &state.Submission{CommandBuffers: []*state.CommandBuffer{cb2}, SignalSemaphores: []*state.Semaphore{sem}})
	f.tr.QueueWaitIdle(other)
	f.sv.PostCallRecordQueueWaitIdle(other)
	require.Len(t, f.deviceRecords(), 1)

	assert.False(t, f.submit(third, &state.Submission{CommandBuffers: []*state.CommandBuffer{cb3}, WaitSemaphores: []*state.Semaphore{sem}}))
	assert.Empty(t, f.log.Records())
}

func TestSubmitTimeValidationDisabled(t *testing.T) {
	f := newFixture(t)
	f.sv.SetSettings(Settings{Enabled: true})
	src, dst := f.buffer(), f.buffer()

	cb1 := f.primary()
	f.fill(cb1, src, 0, vulkan.WholeSize)
	cb2 := f.primary()
	f.copyBuffer(cb2, src, dst)

	assert.False(t, f.submit(f.queue, batch(cb1, cb2)))
	assert.Empty(t, f.log.Records())
}

func TestDestroyedBufferForgotten(t *testing.T) {
	f := newFixture(t)
	b := f.buffer()
	cb := f.primary()
	f.fill(cb, b, 0, vulkan.WholeSize)
	cb.End()
	f.submit(f.queue, batch(cb))

	found := false
	f.sv.DeviceAccess(func(ctx *AccessContext, _ []ResourceUsageRecord) {
		_, found = ctx.resources[b.Handle()]
	})
	require.True(t, found)

	require.NoError(t, f.tr.DestroyBuffer(b.Handle().Handle))
	f.sv.DeviceAccess(func(ctx *AccessContext, _ []ResourceUsageRecord) {
		_, found = ctx.resources[b.Handle()]
	})
	assert.False(t, found)
}

func TestPrintStats(t *testing.T) {
	f := newFixture(t)
	b := f.buffer()
	cb := f.primary()
	f.fill(cb, b, 0, 64)
	f.fill(cb, b, 0, 64)

	w := jwriter.NewWriter()
	obj := w.Object()
	f.sv.PrintStats(obj)
	c, _ := f.sv.CommandBufferContext(cb)
	c.AccessContext().PrintDetailedMap(obj, c.Records())
	obj.End()
	require.NoError(t, w.Error())
	out := string(w.Bytes())
	assert.Contains(t, out, "WRITE_AFTER_WRITE")
	assert.Contains(t, out, "SYNC_CLEAR_TRANSFER_WRITE after SYNC_CLEAR_TRANSFER_WRITE")
	assert.Contains(t, out, "vkCmdFillBuffer")
}
