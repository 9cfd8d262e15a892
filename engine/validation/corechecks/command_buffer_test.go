package corechecks

import (
	"strings"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/vksync/engine/validation/report"
	"github.com/spaghettifunk/vksync/engine/validation/state"
	"github.com/spaghettifunk/vksync/engine/vulkan"
)

func TestBeginWhileRecording(t *testing.T) {
	f := newFixture(t, state.Features{})
	cb := f.primary()

	assert.True(t, f.cc.PreCallValidateBeginCommandBuffer(cb, &state.CommandBufferBeginInfo{}))
	assert.Len(t, f.log.RecordsFor("VUID-vkBeginCommandBuffer-commandBuffer-00049"), 1)
}

func TestBeginOneTimeAndSimultaneous(t *testing.T) {
	f := newFixture(t, state.Features{})
	cb := f.commandBuffer(vk.CommandBufferLevelPrimary)
	info := &state.CommandBufferBeginInfo{
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit) | vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit),
	}

	assert.True(t, f.cc.PreCallValidateBeginCommandBuffer(cb, info))
	assert.Len(t, f.log.RecordsFor("VUID-vkBeginCommandBuffer-commandBuffer-02840"), 1)
}

func TestBeginSecondaryWithoutInheritance(t *testing.T) {
	f := newFixture(t, state.Features{})
	cb := f.commandBuffer(vk.CommandBufferLevelSecondary)

	assert.True(t, f.cc.PreCallValidateBeginCommandBuffer(cb, &state.CommandBufferBeginInfo{}))
	assert.Len(t, f.log.RecordsFor("VUID-vkBeginCommandBuffer-commandBuffer-00051"), 1)
}

func TestBeginContinueSecondaryWithoutRenderPass(t *testing.T) {
	f := newFixture(t, state.Features{})
	cb := f.commandBuffer(vk.CommandBufferLevelSecondary)
	info := &state.CommandBufferBeginInfo{
		Flags:       vk.CommandBufferUsageFlags(vk.CommandBufferUsageRenderPassContinueBit),
		Inheritance: &state.InheritanceInfo{},
	}

	assert.True(t, f.cc.PreCallValidateBeginCommandBuffer(cb, info))
	assert.Len(t, f.log.RecordsFor("VUID-VkCommandBufferBeginInfo-flags-06000"), 1)
}

func TestImplicitResetNeedsResetablePool(t *testing.T) {
	f := newFixture(t, state.Features{})
	pool, err := f.tr.CreateCommandPool(f.handle(), state.CommandPoolCreateInfo{})
	require.NoError(t, err)
	cbs, err := f.tr.AllocateCommandBuffers(pool.Handle().Handle, vk.CommandBufferLevelPrimary, []report.Handle{f.handle()})
	require.NoError(t, err)
	cb := cbs[0]
	f.tr.BeginCommandBuffer(cb, state.CommandBufferBeginInfo{})
	cb.End()

	assert.True(t, f.cc.PreCallValidateBeginCommandBuffer(cb, &state.CommandBufferBeginInfo{}))
	assert.Len(t, f.log.RecordsFor("VUID-vkBeginCommandBuffer-commandBuffer-00050"), 1)
	assert.True(t, f.cc.PreCallValidateResetCommandBuffer(cb))
	assert.Len(t, f.log.RecordsFor("VUID-vkResetCommandBuffer-commandBuffer-00046"), 1)
}

func TestEndCommandBuffer(t *testing.T) {
	f := newFixture(t, state.Features{})

	cb := f.primary()
	assert.False(t, f.cc.PreCallValidateEndCommandBuffer(cb))
	cb.End()
	assert.Equal(t, state.COMMAND_BUFFER_STATE_RECORDED, cb.State())

	assert.True(t, f.cc.PreCallValidateEndCommandBuffer(cb))
	assert.Len(t, f.log.RecordsFor("VUID-vkEndCommandBuffer-commandBuffer-00059"), 1)
}

func TestEndWithActiveQuery(t *testing.T) {
	f := newFixture(t, state.Features{})
	pool, err := f.tr.CreateQueryPool(f.handle(), state.QueryPoolCreateInfo{QueryType: vulkan.QueryTypeOcclusion, QueryCount: 2})
	require.NoError(t, err)
	cb := f.primary()
	q := state.QueryObject{Pool: pool, Query: 1}

	assert.False(t, f.cc.PreCallValidateCmdBeginQuery(cb, q))
	cb.BeginQuery(q)
	assert.True(t, f.cc.PreCallValidateCmdBeginQuery(cb, q))
	assert.Len(t, f.log.RecordsFor("VUID-vkCmdBeginQuery-queryPool-01922"), 1)

	assert.True(t, f.cc.PreCallValidateEndCommandBuffer(cb))
	assert.Len(t, f.log.RecordsFor("VUID-vkEndCommandBuffer-commandBuffer-00061"), 1)
}

func TestEndQueryNotStarted(t *testing.T) {
	f := newFixture(t, state.Features{})
	pool, err := f.tr.CreateQueryPool(f.handle(), state.QueryPoolCreateInfo{QueryType: vulkan.QueryTypeOcclusion, QueryCount: 1})
	require.NoError(t, err)
	cb := f.primary()

	assert.True(t, f.cc.PreCallValidateCmdEndQuery(cb, state.QueryObject{Pool: pool}))
	assert.Len(t, f.log.RecordsFor("VUID-vkCmdEndQuery-None-01923"), 1)
}

func TestDestroyedImageInvalidatesRecording(t *testing.T) {
	f := newFixture(t, state.Features{})
	img := f.image()
	cb := f.primary()
	f.clear(cb, img, vk.ImageLayoutTransferDstOptimal)
	cb.End()

	require.NoError(t, f.tr.DestroyImage(img.Handle().Handle))
	assert.Equal(t, state.COMMAND_BUFFER_STATE_INVALID_COMPLETE, cb.State())

	assert.True(t, f.submit(batch(cb)))
	errs := f.errors()
	require.Len(t, errs, 1)
	assert.True(t, strings.HasPrefix(errs[0].VUID, kVUIDInvalidCommandBuffer))
	assert.Contains(t, errs[0].Message, "was destroyed")
}

func TestRerecordedSecondaryInvalidatesPrimary(t *testing.T) {
	f := newFixture(t, state.Features{})
	sub := f.secondary(state.CommandBufferBeginInfo{})
	sub.End()
	cb := f.primary()
	f.executeCommands(cb, sub)
	cb.End()

	f.tr.BeginCommandBuffer(sub, state.CommandBufferBeginInfo{Inheritance: &state.InheritanceInfo{}})
	assert.Equal(t, state.COMMAND_BUFFER_STATE_INVALID_COMPLETE, cb.State())

	assert.True(t, f.cc.PreCallValidateEndCommandBuffer(cb))
	errs := f.errors()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "destroyed or rerecorded")
}

func TestResetInFlight(t *testing.T) {
	f := newFixture(t, state.Features{})
	cb := f.primary()
	cb.End()
	require.False(t, f.submit(batch(cb)))

	assert.True(t, f.cc.PreCallValidateResetCommandBuffer(cb))
	assert.Len(t, f.log.RecordsFor("VUID-vkResetCommandBuffer-commandBuffer-00045"), 1)
	assert.True(t, f.cc.PreCallValidateFreeCommandBuffers([]*state.CommandBuffer{cb}))
	assert.True(t, f.cc.PreCallValidateResetCommandPool(f.pool))

	f.tr.QueueWaitIdle(f.queue)
	assert.False(t, f.cc.PreCallValidateResetCommandBuffer(cb))
}
