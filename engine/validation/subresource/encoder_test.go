package subresource

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vksync/engine/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, enc := range []*Encoder{
		NewImageEncoder(vk.FormatR8g8b8a8Unorm, 4, 3),
		NewImageEncoder(vk.FormatD24UnormS8Uint, 2, 5),
		NewImageEncoder(vulkan.FormatG8B8R83Plane420Unorm, 1, 2),
	} {
		for i := uint64(0); i < enc.Size(); i++ {
			s := enc.Decode(i)
			assert.Equal(t, i, enc.Encode(s), "index %d (%s)", i, s)
		}
	}
}

func TestEncoderLayout(t *testing.T) {
	enc := NewImageEncoder(vk.FormatD24UnormS8Uint, 2, 3)
	assert.Equal(t, uint64(12), enc.Size())
	s := enc.Decode(7)
	assert.Equal(t, vulkan.ImageAspectStencil, s.AspectMask)
	assert.Equal(t, uint32(0), s.MipLevel)
	assert.Equal(t, uint32(1), s.ArrayLayer)
}

func TestNormalizeRange(t *testing.T) {
	enc := NewImageEncoder(vk.FormatD32Sfloat, 4, 6)
	n := enc.NormalizeRange(vk.ImageSubresourceRange{
		AspectMask:     vulkan.ImageAspectDepthStencil,
		BaseMipLevel:   1,
		LevelCount:     vulkan.RemainingMipLevels,
		BaseArrayLayer: 4,
		LayerCount:     10,
	})
	assert.Equal(t, vulkan.ImageAspectDepth, n.AspectMask, "stencil clipped away")
	assert.Equal(t, uint32(3), n.LevelCount)
	assert.Equal(t, uint32(2), n.LayerCount)

	planes := NewImageEncoder(vulkan.FormatG8B8R82Plane420Unorm, 1, 1)
	assert.Equal(t, vulkan.ImageAspectPlane0|vulkan.ImageAspectPlane1,
		planes.NormalizeRange(vk.ImageSubresourceRange{AspectMask: vulkan.ImageAspectColor, LevelCount: 1, LayerCount: 1}).AspectMask)
}

func TestRangeGen(t *testing.T) {
	enc := NewImageEncoder(vk.FormatR8g8b8a8Unorm, 3, 4)

	full := enc.RangeGen(enc.FullRange())
	require.Len(t, full, 1)
	assert.Equal(t, IndexRange{Begin: 0, End: 12}, full[0])

	partial := enc.RangeGen(vk.ImageSubresourceRange{
		AspectMask: vulkan.ImageAspectColor, BaseMipLevel: 1, LevelCount: 2, BaseArrayLayer: 1, LayerCount: 2,
	})
	assert.Equal(t, []IndexRange{{Begin: 5, End: 7}, {Begin: 9, End: 11}}, partial)
	assert.Equal(t, uint64(4), enc.Count(vk.ImageSubresourceRange{
		AspectMask: vulkan.ImageAspectColor, BaseMipLevel: 1, LevelCount: 2, BaseArrayLayer: 1, LayerCount: 2,
	}))

	assert.Empty(t, enc.RangeGen(vk.ImageSubresourceRange{AspectMask: vulkan.ImageAspectDepth, LevelCount: 1, LayerCount: 1}))
}
