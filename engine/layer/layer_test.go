package layer

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/vksync/engine/config"
	"github.com/spaghettifunk/vksync/engine/core"
	"github.com/spaghettifunk/vksync/engine/validation/report"
	"github.com/spaghettifunk/vksync/engine/validation/state"
)

const vuidRAW = "SYNC-HAZARD-READ-AFTER-WRITE"

type fixture struct {
	t     *testing.T
	l     *Layer
	pool  *state.CommandPool
	queue *state.Queue
	next  report.Handle
}

func newFixture(t *testing.T, settings *config.Settings) *fixture {
	t.Helper()
	f := &fixture{t: t, l: New(settings, report.WithQuiet()), next: 0x1000}
	t.Cleanup(f.l.Close)

	var err error
	f.pool, err = f.l.Tracker.CreateCommandPool(f.handle(), state.CommandPoolCreateInfo{
		Flags: vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	})
	require.NoError(t, err)
	f.queue, err = f.l.Tracker.CreateQueue(f.handle(), 0, 0, false)
	require.NoError(t, err)
	return f
}

func (f *fixture) handle() report.Handle {
	f.next++
	return f.next
}

func (f *fixture) buffer() *state.Buffer {
	f.t.Helper()
	b, err := f.l.Tracker.CreateBuffer(f.handle(), state.BufferCreateInfo{Size: 256})
	require.NoError(f.t, err)
	return b
}

func (f *fixture) commandBuffer() *state.CommandBuffer {
	f.t.Helper()
	cbs, err := f.l.Tracker.AllocateCommandBuffers(f.pool.Handle().Handle, vk.CommandBufferLevelPrimary, []report.Handle{f.handle()})
	require.NoError(f.t, err)
	return cbs[0]
}

func (f *fixture) begin() *state.CommandBuffer {
	cb := f.commandBuffer()
	require.NoError(f.t, f.l.BeginCommandBuffer(cb, state.CommandBufferBeginInfo{}))
	return cb
}

func fill(b *state.Buffer) *state.FillBufferInfo {
	return &state.FillBufferInfo{Buffer: b, Size: 64}
}

func copyOf(src, dst *state.Buffer) *state.CopyBufferInfo {
	return &state.CopyBufferInfo{Src: src, Dst: dst, Regions: []state.BufferCopyRegion{{Size: 64}}}
}

func TestRecordsAndReportsHazard(t *testing.T) {
	f := newFixture(t, nil)
	src, dst := f.buffer(), f.buffer()

	cb := f.begin()
	require.NoError(t, f.l.CmdFillBuffer(cb, fill(src)))
	require.NoError(t, f.l.CmdCopyBuffer(cb, copyOf(src, dst)))
	require.NoError(t, f.l.EndCommandBuffer(cb))

	assert.Equal(t, state.COMMAND_BUFFER_STATE_RECORDED, cb.State())
	assert.Equal(t, uint32(2), cb.CommandCount)
	assert.Equal(t, "vkCmdCopyBuffer", cb.LastCommand)
	assert.True(t, cb.HasChild(src.Handle()))

	recs := f.l.Reporter.RecordsFor(vuidRAW)
	require.Len(t, recs, 1)
	assert.Equal(t, "vkCmdCopyBuffer()", recs[0].Location)

	require.NoError(t, f.l.QueueSubmit(f.queue, []*state.Submission{{CommandBuffers: []*state.CommandBuffer{cb}}}))
	assert.Len(t, f.l.Reporter.RecordsFor(vuidRAW), 1, "recorded hazards are not reported again at submit")
	assert.True(t, cb.InUse())

	f.l.QueueWaitIdle(f.queue)
	assert.False(t, cb.InUse())
}

func TestSubmitHazardBetweenCommandBuffers(t *testing.T) {
	f := newFixture(t, nil)
	src, dst := f.buffer(), f.buffer()

	writer := f.begin()
	require.NoError(t, f.l.CmdFillBuffer(writer, fill(src)))
	require.NoError(t, f.l.EndCommandBuffer(writer))
	reader := f.begin()
	require.NoError(t, f.l.CmdCopyBuffer(reader, copyOf(src, dst)))
	require.NoError(t, f.l.EndCommandBuffer(reader))
	assert.Empty(t, f.l.Reporter.Records())

	err := f.l.QueueSubmit(f.queue, []*state.Submission{{CommandBuffers: []*state.CommandBuffer{writer, reader}}})
	require.NoError(t, err)
	recs := f.l.Reporter.RecordsFor(vuidRAW)
	require.Len(t, recs, 1)
	assert.Equal(t, "vkQueueSubmit(): pSubmits[0].pCommandBuffers[1]", recs[0].Location)
}

func TestStopOnValidationFail(t *testing.T) {
	settings := config.Default()
	settings.Validation.StopOnValidationFail = true
	f := newFixture(t, settings)
	b := f.buffer()

	cb := f.commandBuffer()
	err := f.l.CmdFillBuffer(cb, fill(b))
	assert.ErrorIs(t, err, core.ErrValidationFailed)
	assert.Zero(t, cb.CommandCount, "skipped calls are not recorded")
	assert.Len(t, f.l.Reporter.RecordsFor("VUID-vkCmdFillBuffer-commandBuffer-recording"), 1)

	cb = f.begin()
	require.NoError(t, f.l.CmdFillBuffer(cb, fill(b)))
	assert.ErrorIs(t, f.l.CmdFillBuffer(cb, fill(b)), core.ErrValidationFailed)
	assert.Equal(t, uint32(1), cb.CommandCount)
}

func TestSettingsReload(t *testing.T) {
	f := newFixture(t, nil)
	src, dst := f.buffer(), f.buffer()

	s := config.Default()
	s.Validation.Sync = false
	s.Messages.Disabled = []string{"VUID-vkCmdCopyBuffer-commandBuffer-recording"}
	f.l.Events.Fire(core.EVENT_CODE_SETTINGS_RELOADED, nil, core.EventContext{Object: s})
	assert.Same(t, s, f.l.Settings())
	assert.False(t, f.l.Sync.Settings().Enabled)

	cb := f.begin()
	require.NoError(t, f.l.CmdFillBuffer(cb, fill(src)))
	require.NoError(t, f.l.CmdCopyBuffer(cb, copyOf(src, dst)))
	assert.Empty(t, f.l.Reporter.RecordsFor(vuidRAW))

	idle := f.commandBuffer()
	require.NoError(t, f.l.CmdCopyBuffer(idle, copyOf(src, dst)))
	assert.Empty(t, f.l.Reporter.Records(), "disabled VUIDs are filtered")
}

func TestDestroyInvalidatesRecording(t *testing.T) {
	f := newFixture(t, nil)
	b := f.buffer()

	cb := f.begin()
	require.NoError(t, f.l.CmdFillBuffer(cb, fill(b)))
	require.NoError(t, f.l.EndCommandBuffer(cb))
	require.NoError(t, f.l.Destroy(b.Handle()))
	assert.Equal(t, state.COMMAND_BUFFER_STATE_INVALID_COMPLETE, cb.State())

	require.NoError(t, f.l.QueueSubmit(f.queue, []*state.Submission{{CommandBuffers: []*state.CommandBuffer{cb}}}))
	recs := f.l.Reporter.RecordsFor("UNASSIGNED-CoreValidation-DrawState-InvalidCommandBuffer-VkBuffer")
	assert.Len(t, recs, 1)
}

func TestDestroyCommandPoolInFlight(t *testing.T) {
	f := newFixture(t, nil)
	cb := f.begin()
	require.NoError(t, f.l.EndCommandBuffer(cb))
	require.NoError(t, f.l.QueueSubmit(f.queue, []*state.Submission{{CommandBuffers: []*state.CommandBuffer{cb}}}))

	require.NoError(t, f.l.Destroy(f.pool.Handle()))
	assert.Len(t, f.l.Reporter.RecordsFor("VUID-vkDestroyCommandPool-commandPool-00041"), 1)

	_, err := f.l.Tracker.CommandPool(f.pool.Handle().Handle)
	assert.ErrorIs(t, err, core.ErrUnknownHandle)
}
