// Package subresource maps image subresources (aspect, mip level, array
// layer) onto a dense linear index space.
package subresource

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vksync/engine/containers/rangemap"
	"github.com/spaghettifunk/vksync/engine/vulkan"
)

type IndexRange = rangemap.Range[uint64]

type Subresource struct {
	AspectMask vk.ImageAspectFlags
	MipLevel   uint32
	ArrayLayer uint32
}

func (s Subresource) String() string {
	return fmt.Sprintf("aspectMask %s mip %d layer %d", vulkan.AspectMaskString(s.AspectMask), s.MipLevel, s.ArrayLayer)
}

// Encoder orders indices aspect-major, then mip level, then array layer.
type Encoder struct {
	aspectMask  vk.ImageAspectFlags
	aspects     []vk.ImageAspectFlags
	mipLevels   uint32
	arrayLayers uint32
	aspectSize  uint64
	limit       uint64
}

// aspectOrder is the fixed order aspects take in the index space.
var aspectOrder = []vk.ImageAspectFlags{
	vulkan.ImageAspectColor,
	vulkan.ImageAspectDepth,
	vulkan.ImageAspectStencil,
	vulkan.ImageAspectPlane0,
	vulkan.ImageAspectPlane1,
	vulkan.ImageAspectPlane2,
}

func NewEncoder(aspectMask vk.ImageAspectFlags, mipLevels, arrayLayers uint32) *Encoder {
	e := &Encoder{
		aspectMask:  aspectMask,
		mipLevels:   max(mipLevels, 1),
		arrayLayers: max(arrayLayers, 1),
	}
	for _, a := range aspectOrder {
		if aspectMask&a != 0 {
			e.aspects = append(e.aspects, a)
		}
	}
	e.aspectSize = uint64(e.mipLevels) * uint64(e.arrayLayers)
	e.limit = e.aspectSize * uint64(len(e.aspects))
	return e
}

// NewImageEncoder builds the encoder for an image of the given format and extents.
func NewImageEncoder(format vk.Format, mipLevels, arrayLayers uint32) *Encoder {
	return NewEncoder(vulkan.FormatAspects(format), mipLevels, arrayLayers)
}

func (e *Encoder) AspectMask() vk.ImageAspectFlags { return e.aspectMask }
func (e *Encoder) MipLevels() uint32 { return e.mipLevels }
func (e *Encoder) ArrayLayers() uint32 { return e.arrayLayers }

// Size is the number of linear indices, one per subresource.
func (e *Encoder) Size() uint64 { return e.limit }

func (e *Encoder) FullRange() vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask:     e.aspectMask,
		BaseMipLevel:   0,
		LevelCount:     e.mipLevels,
		BaseArrayLayer: 0,
		LayerCount:     e.arrayLayers,
	}
}

func (e *Encoder) aspectIndex(aspect vk.ImageAspectFlags) int {
	for i, a := range e.aspects {
		if a == aspect {
			return i
		}
	}
	return -1
}

// Encode returns the linear index of a single-aspect subresource.
func (e *Encoder) Encode(s Subresource) uint64 {
	ai := e.aspectIndex(s.AspectMask)
	if ai < 0 {
		return e.limit
	}
	return uint64(ai)*e.aspectSize + uint64(s.MipLevel)*uint64(e.arrayLayers) + uint64(s.ArrayLayer)
}

func (e *Encoder) Decode(index uint64) Subresource {
	if index >= e.limit {
		return Subresource{}
	}
	ai := index / e.aspectSize
	rem := index % e.aspectSize
	return Subresource{
		AspectMask: e.aspects[ai],
		MipLevel:   uint32(rem / uint64(e.arrayLayers)),
		ArrayLayer: uint32(rem % uint64(e.arrayLayers)),
	}
}

// NormalizeRange resolves the REMAINING counts, clips the aspect mask to the
// image's aspects and clamps the range to the image's extents. COLOR on a
// multi-planar image selects every plane.
func (e *Encoder) NormalizeRange(r vk.ImageSubresourceRange) vk.ImageSubresourceRange {
	out := r
	aspect := r.AspectMask
	if aspect&vulkan.ImageAspectColor != 0 && e.aspectMask&vulkan.ImageAspectPlane0 != 0 {
		aspect = (aspect &^ vulkan.ImageAspectColor) | (e.aspectMask & (vulkan.ImageAspectPlane0 | vulkan.ImageAspectPlane1 | vulkan.ImageAspectPlane2))
	}
	out.AspectMask = aspect & e.aspectMask

	out.BaseMipLevel = min(r.BaseMipLevel, e.mipLevels)
	if r.LevelCount == vulkan.RemainingMipLevels {
		out.LevelCount = e.mipLevels - out.BaseMipLevel
	} else {
		out.LevelCount = min(r.LevelCount, e.mipLevels-out.BaseMipLevel)
	}
	out.BaseArrayLayer = min(r.BaseArrayLayer, e.arrayLayers)
	if r.LayerCount == vulkan.RemainingArrayLayers {
		out.LayerCount = e.arrayLayers - out.BaseArrayLayer
	} else {
		out.LayerCount = min(r.LayerCount, e.arrayLayers-out.BaseArrayLayer)
	}
	return out
}

// NormalizeLayers converts a single-mip layer set into a normalized range.
func (e *Encoder) NormalizeLayers(l vk.ImageSubresourceLayers) vk.ImageSubresourceRange {
	return e.NormalizeRange(vk.ImageSubresourceRange{
		AspectMask:     l.AspectMask,
		BaseMipLevel:   l.MipLevel,
		LevelCount:     1,
		BaseArrayLayer: l.BaseArrayLayer,
		LayerCount:     l.LayerCount,
	})
}

// RangeGen returns the linear index ranges covering exactly the subresources
// of r, merged where they are contiguous.
func (e *Encoder) RangeGen(r vk.ImageSubresourceRange) []IndexRange {
	n := e.NormalizeRange(r)
	if n.LevelCount == 0 || n.LayerCount == 0 || n.AspectMask == 0 {
		return nil
	}
	var out []IndexRange
	for _, a := range e.aspects {
		if n.AspectMask&a == 0 {
			continue
		}
		for mip := n.BaseMipLevel; mip < n.BaseMipLevel+n.LevelCount; mip++ {
			begin := e.Encode(Subresource{AspectMask: a, MipLevel: mip, ArrayLayer: n.BaseArrayLayer})
			piece := IndexRange{Begin: begin, End: begin + uint64(n.LayerCount)}
			if last := len(out) - 1; last >= 0 && out[last].End == piece.Begin {
				out[last].End = piece.End
				continue
			}
			out = append(out, piece)
		}
	}
	return out
}

// Count returns how many subresources r selects after normalization.
func (e *Encoder) Count(r vk.ImageSubresourceRange) uint64 {
	var n uint64
	for _, rng := range e.RangeGen(r) {
		n += rng.Len()
	}
	return n
}
