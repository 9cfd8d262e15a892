package imagelayout

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/spaghettifunk/vksync/engine/validation/subresource"
	"github.com/spaghettifunk/vksync/engine/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func colorEncoder() *subresource.Encoder {
	return subresource.NewImageEncoder(vk.FormatR8g8b8a8Unorm, 2, 2)
}

func fullColor(enc *subresource.Encoder) vk.ImageSubresourceRange {
	return enc.FullRange()
}

func single(mip, layer uint32) vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{AspectMask: vulkan.ImageAspectColor, BaseMipLevel: mip, LevelCount: 1, BaseArrayLayer: layer, LayerCount: 1}
}

func TestInitialLayoutIsWriteOnce(t *testing.T) {
	enc := colorEncoder()
	m := NewSubresourceLayoutMap(1, enc)

	assert.True(t, m.SetSubresourceRangeInitialLayout(single(0, 0), vk.ImageLayoutTransferSrcOptimal, nil))
	assert.False(t, m.SetSubresourceRangeInitialLayout(single(0, 0), vk.ImageLayoutGeneral, nil))

	m.SetSubresourceRangeLayout(fullColor(enc), vk.ImageLayoutShaderReadOnlyOptimal, vk.ImageLayoutColorAttachmentOptimal)
	m.SetSubresourceRangeLayout(fullColor(enc), vk.ImageLayoutGeneral, vulkan.InvalidLayout)

	e, ok := m.SubresourceLayouts(subresource.Subresource{AspectMask: vulkan.ImageAspectColor})
	require.True(t, ok)
	assert.Equal(t, vk.ImageLayoutTransferSrcOptimal, e.Initial)
	assert.Equal(t, vk.ImageLayoutGeneral, e.Current)

	e, ok = m.SubresourceLayouts(subresource.Subresource{AspectMask: vulkan.ImageAspectColor, MipLevel: 1, ArrayLayer: 1})
	require.True(t, ok)
	assert.Equal(t, vk.ImageLayoutColorAttachmentOptimal, e.Initial)
	assert.Equal(t, vk.ImageLayoutGeneral, e.Current)
}

func TestSetLayoutSeedsInitialWithNewLayout(t *testing.T) {
	m := NewSubresourceLayoutMap(1, colorEncoder())
	m.SetSubresourceRangeLayout(single(1, 0), vk.ImageLayoutTransferDstOptimal, vulkan.InvalidLayout)
	e, ok := m.SubresourceLayouts(subresource.Subresource{AspectMask: vulkan.ImageAspectColor, MipLevel: 1})
	require.True(t, ok)
	assert.Equal(t, vk.ImageLayoutTransferDstOptimal, e.Initial)
	_, ok = m.SubresourceLayouts(subresource.Subresource{AspectMask: vulkan.ImageAspectColor})
	assert.False(t, ok)
}

func TestImageLayoutMatches(t *testing.T) {
	layouts := append([]vk.ImageLayout{}, knownLayoutsForTest...)
	aspects := []vk.ImageAspectFlags{vulkan.ImageAspectColor, vulkan.ImageAspectDepth, vulkan.ImageAspectStencil, vulkan.ImageAspectDepthStencil}
	for _, aspect := range aspects {
		for _, a := range layouts {
			assert.True(t, ImageLayoutMatches(aspect, a, a))
			for _, b := range layouts {
				assert.Equal(t, ImageLayoutMatches(aspect, a, b), ImageLayoutMatches(aspect, b, a), "symmetry %d %d", a, b)
			}
		}
	}

	assert.True(t, ImageLayoutMatches(vulkan.ImageAspectDepth, vk.ImageLayoutDepthStencilAttachmentOptimal, vulkan.ImageLayoutDepthAttachmentOptimal))
	assert.True(t, ImageLayoutMatches(vulkan.ImageAspectDepth, vulkan.ImageLayoutDepthAttachmentStencilReadOnlyOptimal, vulkan.ImageLayoutDepthAttachmentOptimal))
	assert.True(t, ImageLayoutMatches(vulkan.ImageAspectStencil, vulkan.ImageLayoutDepthStencilReadOnlyOptimal, vulkan.ImageLayoutStencilReadOnlyOptimal))
	assert.False(t, ImageLayoutMatches(vulkan.ImageAspectColor, vk.ImageLayoutDepthStencilAttachmentOptimal, vulkan.ImageLayoutDepthAttachmentOptimal))
	assert.False(t, ImageLayoutMatches(vulkan.ImageAspectDepthStencil, vulkan.ImageLayoutDepthAttachmentStencilReadOnlyOptimal, vk.ImageLayoutDepthStencilAttachmentOptimal))
	assert.True(t, ImageLayoutMatches(vulkan.ImageAspectColor, vulkan.ImageLayoutAttachmentOptimal, vk.ImageLayoutColorAttachmentOptimal))
	assert.True(t, ImageLayoutMatches(vulkan.ImageAspectDepth, vulkan.ImageLayoutReadOnlyOptimal, vulkan.ImageLayoutDepthStencilReadOnlyOptimal))
}

var knownLayoutsForTest = []vk.ImageLayout{
	vk.ImageLayoutUndefined,
	vk.ImageLayoutGeneral,
	vk.ImageLayoutColorAttachmentOptimal,
	vk.ImageLayoutDepthStencilAttachmentOptimal,
	vulkan.ImageLayoutDepthStencilReadOnlyOptimal,
	vk.ImageLayoutShaderReadOnlyOptimal,
	vk.ImageLayoutTransferDstOptimal,
	vulkan.ImageLayoutDepthReadOnlyStencilAttachmentOptimal,
	vulkan.ImageLayoutDepthAttachmentStencilReadOnlyOptimal,
	vulkan.ImageLayoutDepthAttachmentOptimal,
	vulkan.ImageLayoutDepthReadOnlyOptimal,
	vulkan.ImageLayoutStencilAttachmentOptimal,
	vulkan.ImageLayoutStencilReadOnlyOptimal,
	vulkan.ImageLayoutReadOnlyOptimal,
	vulkan.ImageLayoutAttachmentOptimal,
}

func TestMismatchesAgainstOverlayThenGlobal(t *testing.T) {
	enc := colorEncoder()
	global := NewGlobalImageLayoutRangeMap(enc)
	global.SetSubresourceRangeLayout(fullColor(enc), vk.ImageLayoutGeneral)

	first := NewSubresourceLayoutMap(1, enc)
	first.SetSubresourceRangeLayout(single(0, 0), vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutGeneral)
	overlay := NewOverlay()
	var got []Mismatch
	FindInitialLayoutMismatches(first, nil, global, func(m Mismatch) { got = append(got, m) })
	assert.Empty(t, got)
	SpliceCurrentLayouts(overlay.GetOrCreate(1), first)

	second := NewSubresourceLayoutMap(1, enc)
	second.SetSubresourceRangeInitialLayout(fullColor(enc), vk.ImageLayoutTransferDstOptimal, nil)
	ov, _ := overlay.Get(1)
	FindInitialLayoutMismatches(second, ov, global, func(m Mismatch) { got = append(got, m) })

	// Subresource 0 comes from the overlay and matches, the other three come from the global map.
	require.Len(t, got, 3)
	for _, m := range got {
		assert.NotEqual(t, uint64(0), m.Index)
		assert.Equal(t, vk.ImageLayoutGeneral, m.Actual)
		assert.Equal(t, vk.ImageLayoutTransferDstOptimal, m.Expected)
	}

	l, ok := global.Layout(subresource.Subresource{AspectMask: vulkan.ImageAspectColor})
	require.True(t, ok)
	assert.Equal(t, vk.ImageLayoutGeneral, l, "validation never writes the global map")

	Commit(global, first)
	l, _ = global.Layout(subresource.Subresource{AspectMask: vulkan.ImageAspectColor})
	assert.Equal(t, vk.ImageLayoutTransferDstOptimal, l)
}

func TestMismatchesSkipUnknownImage(t *testing.T) {
	enc := colorEncoder()
	global := NewGlobalImageLayoutRangeMap(enc)
	local := NewSubresourceLayoutMap(1, enc)
	local.SetSubresourceRangeInitialLayout(fullColor(enc), vk.ImageLayoutTransferSrcOptimal, nil)
	called := false
	FindInitialLayoutMismatches(local, nil, global, func(Mismatch) { called = true })
	assert.False(t, called)
}

func TestMismatchesSkipUndefinedInitial(t *testing.T) {
	enc := colorEncoder()
	global := NewGlobalImageLayoutRangeMap(enc)
	global.SetSubresourceRangeLayout(fullColor(enc), vk.ImageLayoutGeneral)
	local := NewSubresourceLayoutMap(1, enc)
	local.SetSubresourceRangeLayout(fullColor(enc), vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutUndefined)
	called := false
	FindInitialLayoutMismatches(local, nil, global, func(Mismatch) { called = true })
	assert.False(t, called)
}

func TestSpliceIsUnionOfCurrentLayouts(t *testing.T) {
	enc := colorEncoder()
	overlay := NewOverlay()
	a := NewSubresourceLayoutMap(1, enc)
	a.SetSubresourceRangeLayout(single(0, 0), vk.ImageLayoutGeneral, vulkan.InvalidLayout)
	a.SetSubresourceRangeInitialLayout(single(0, 1), vk.ImageLayoutTransferSrcOptimal, nil)
	b := NewSubresourceLayoutMap(1, enc)
	b.SetSubresourceRangeLayout(single(1, 1), vk.ImageLayoutTransferDstOptimal, vulkan.InvalidLayout)

	dst := overlay.GetOrCreate(1)
	SpliceCurrentLayouts(dst, a)
	SpliceCurrentLayouts(dst, b)

	assert.Equal(t, 2, dst.Len(), "initial-only entries are not spliced")
	l, _ := dst.Get(enc.Encode(subresource.Subresource{AspectMask: vulkan.ImageAspectColor}))
	assert.Equal(t, vk.ImageLayoutGeneral, l)
	l, _ = dst.Get(enc.Encode(subresource.Subresource{AspectMask: vulkan.ImageAspectColor, MipLevel: 1, ArrayLayer: 1}))
	assert.Equal(t, vk.ImageLayoutTransferDstOptimal, l)
}

func TestUpdateFrom(t *testing.T) {
	enc := colorEncoder()
	primary := NewSubresourceLayoutMap(1, enc)
	primary.SetSubresourceRangeLayout(single(0, 0), vk.ImageLayoutGeneral, vk.ImageLayoutUndefined)
	secondary := NewSubresourceLayoutMap(1, enc)
	secondary.SetSubresourceRangeLayout(fullColor(enc), vk.ImageLayoutShaderReadOnlyOptimal, vk.ImageLayoutGeneral)

	assert.True(t, primary.UpdateFrom(secondary))
	e, _ := primary.SubresourceLayouts(subresource.Subresource{AspectMask: vulkan.ImageAspectColor})
	assert.Equal(t, vk.ImageLayoutUndefined, e.Initial)
	assert.Equal(t, vk.ImageLayoutShaderReadOnlyOptimal, e.Current)
	e, _ = primary.SubresourceLayouts(subresource.Subresource{AspectMask: vulkan.ImageAspectColor, MipLevel: 1})
	assert.Equal(t, vk.ImageLayoutGeneral, e.Initial)
}

func TestPrintDetailedMap(t *testing.T) {
	enc := colorEncoder()
	global := NewGlobalImageLayoutRangeMap(enc)
	global.SetSubresourceRangeLayout(fullColor(enc), vk.ImageLayoutGeneral)

	w := jwriter.NewWriter()
	obj := w.Object()
	global.PrintDetailedMap(obj)
	obj.End()
	require.NoError(t, w.Error())
	assert.Contains(t, string(w.Bytes()), "VK_IMAGE_LAYOUT_GENERAL")
}
