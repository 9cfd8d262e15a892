package corechecks

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/vksync/engine/validation/state"
	"github.com/spaghettifunk/vksync/engine/vulkan"
)

func (f *fixture) executeCommands(cb *state.CommandBuffer, secondaries ...*state.CommandBuffer) bool {
	skip := f.cc.PreCallValidateCmdExecuteCommands(cb, secondaries)
	f.cc.PostCallRecordCmdExecuteCommands(cb, secondaries)
	return skip
}

func TestDuplicateSecondaryReportedPerExtraOccurrence(t *testing.T) {
	f := newFixture(t, state.Features{})
	sub := f.secondary(state.CommandBufferBeginInfo{})
	sub.End()
	other := f.secondary(state.CommandBufferBeginInfo{})
	other.End()
	cb := f.primary()

	assert.True(t, f.executeCommands(cb, sub, other, sub, sub))
	recs := f.log.RecordsFor("VUID-vkCmdExecuteCommands-pCommandBuffers-00093")
	require.Len(t, recs, 2)
	assert.Equal(t, "vkCmdExecuteCommands(): pCommandBuffers[2]", recs[0].Location)
	assert.Equal(t, "vkCmdExecuteCommands(): pCommandBuffers[3]", recs[1].Location)
	assert.Len(t, f.errors(), 2)
}

func TestSimultaneousSecondaryMayRepeat(t *testing.T) {
	f := newFixture(t, state.Features{})
	sub := f.secondary(state.CommandBufferBeginInfo{
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit),
	})
	sub.End()
	cb := f.primary()

	assert.False(t, f.executeCommands(cb, sub, sub))
	assert.Empty(t, f.log.Records())
}

func TestExecutePrimaryAndUnrecordedSecondary(t *testing.T) {
	f := newFixture(t, state.Features{})
	prim := f.commandBuffer(vk.CommandBufferLevelPrimary)
	unrecorded := f.secondary(state.CommandBufferBeginInfo{})
	cb := f.primary()

	assert.True(t, f.cc.PreCallValidateCmdExecuteCommands(cb, []*state.CommandBuffer{prim, unrecorded}))
	assert.Len(t, f.log.RecordsFor("VUID-vkCmdExecuteCommands-pCommandBuffers-00088"), 1)
	assert.Len(t, f.log.RecordsFor("VUID-vkCmdExecuteCommands-pCommandBuffers-00089"), 1)
}

func TestSimultaneousPrimaryWarnsAboutSecondary(t *testing.T) {
	f := newFixture(t, state.Features{})
	sub := f.secondary(state.CommandBufferBeginInfo{})
	sub.End()
	cb := f.commandBuffer(vk.CommandBufferLevelPrimary)
	f.tr.BeginCommandBuffer(cb, state.CommandBufferBeginInfo{
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit),
	})

	assert.False(t, f.executeCommands(cb, sub))
	assert.Len(t, f.log.RecordsFor(kVUIDInvalidSimultaneousUse), 1)
	assert.False(t, cb.BeginInfo.Has(vk.CommandBufferUsageSimultaneousUseBit))
}

func TestSecondaryLinkedToAnotherPrimary(t *testing.T) {
	f := newFixture(t, state.Features{})
	sub := f.secondary(state.CommandBufferBeginInfo{})
	sub.End()
	first := f.primary()
	f.executeCommands(first, sub)
	first.End()

	second := f.primary()
	assert.True(t, f.executeCommands(second, sub))
	assert.Len(t, f.log.RecordsFor("VUID-vkCmdExecuteCommands-pCommandBuffers-00092"), 1)
}

func TestContinueSecondaryOutsideRenderPass(t *testing.T) {
	f := newFixture(t, state.Features{})
	rp, err := f.tr.CreateRenderPass(f.handle(), state.RenderPassCreateInfo{
		Subpasses: []state.SubpassDescription{{}},
	})
	require.NoError(t, err)
	sub := f.secondary(state.CommandBufferBeginInfo{
		Flags:       vk.CommandBufferUsageFlags(vk.CommandBufferUsageRenderPassContinueBit),
		Inheritance: &state.InheritanceInfo{RenderPass: rp},
	})
	sub.End()
	cb := f.primary()

	assert.True(t, f.cc.PreCallValidateCmdExecuteCommands(cb, []*state.CommandBuffer{sub}))
	assert.Len(t, f.log.RecordsFor("VUID-vkCmdExecuteCommands-pCommandBuffers-00100"), 1)
}

func TestActiveQueryWithoutInheritedQueries(t *testing.T) {
	f := newFixture(t, state.Features{})
	pool, err := f.tr.CreateQueryPool(f.handle(), state.QueryPoolCreateInfo{QueryType: vulkan.QueryTypeOcclusion, QueryCount: 4})
	require.NoError(t, err)
	sub := f.secondary(state.CommandBufferBeginInfo{})
	sub.End()
	cb := f.primary()
	cb.BeginQuery(state.QueryObject{Pool: pool, Query: 0})

	assert.True(t, f.cc.PreCallValidateCmdExecuteCommands(cb, []*state.CommandBuffer{sub}))
	assert.Len(t, f.log.RecordsFor("VUID-vkCmdExecuteCommands-commandBuffer-00101"), 1)
	assert.Len(t, f.log.RecordsFor("VUID-vkCmdExecuteCommands-commandBuffer-00102"), 1)
}

func TestSecondaryInitialLayoutAgainstPrimary(t *testing.T) {
	f := newFixture(t, state.Features{})
	img := f.image()
	sub := f.secondary(state.CommandBufferBeginInfo{})
	sub.SetImageInitialLayout(img, fullColor(), vk.ImageLayoutTransferDstOptimal)
	sub.End()

	cb := f.primary()
	cb.SetImageLayout(img, fullColor(), vk.ImageLayoutGeneral, vk.ImageLayoutUndefined)

	assert.True(t, f.executeCommands(cb, sub))
	recs := f.log.RecordsFor(kVUIDExecuteCommandsInitialUsage)
	require.Len(t, recs, 1)
	assert.Contains(t, recs[0].Message, "which expects layout VK_IMAGE_LAYOUT_TRANSFER_DST_OPTIMAL--instead, image current layout is VK_IMAGE_LAYOUT_GENERAL")

	// The secondary's map is merged into the primary.
	e, ok := cb.ImageLayoutMap(img).SubresourceLayouts(img.Encoder.Decode(0))
	require.True(t, ok)
	assert.Equal(t, vk.ImageLayoutGeneral, e.Current)
	assert.Same(t, cb, sub.PrimaryCommandBuffer)
}

func TestSecondaryDepthLayoutMatchesPrimaryDepthStencil(t *testing.T) {
	f := newFixture(t, state.Features{SeparateDepthStencilLayouts: true})
	img, err := f.tr.CreateImage(f.handle(), state.ImageCreateInfo{
		ImageType:   vk.ImageType2d,
		Format:      vk.FormatD24UnormS8Uint,
		Extent:      vk.Extent3D{Width: 16, Height: 16, Depth: 1},
		MipLevels:   1,
		ArrayLayers: 1,
		Tiling:      vk.ImageTilingOptimal,
	})
	require.NoError(t, err)
	depth := vk.ImageSubresourceRange{
		AspectMask: vulkan.ImageAspectDepth,
		LevelCount: 1,
		LayerCount: 1,
	}

	sub := f.secondary(state.CommandBufferBeginInfo{})
	sub.SetImageInitialLayout(img, depth, vulkan.ImageLayoutDepthAttachmentOptimal)
	sub.End()

	cb := f.primary()
	cb.SetImageLayout(img, depth, vk.ImageLayoutDepthStencilAttachmentOptimal, vk.ImageLayoutUndefined)

	assert.False(t, f.executeCommands(cb, sub))
	assert.Empty(t, f.log.RecordsFor(kVUIDExecuteCommandsInitialUsage))
}
