package state

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vksync/engine/validation/imagelayout"
	"github.com/spaghettifunk/vksync/engine/validation/report"
	"github.com/spaghettifunk/vksync/engine/validation/subresource"
	"github.com/spaghettifunk/vksync/engine/vulkan"
)

type ImageCreateInfo struct {
	Flags         vk.ImageCreateFlags
	ImageType     vk.ImageType
	Format        vk.Format
	Extent        vk.Extent3D
	MipLevels     uint32
	ArrayLayers   uint32
	Samples       vk.SampleCountFlagBits
	Tiling        vk.ImageTiling
	Usage         vk.ImageUsageFlags
	InitialLayout vk.ImageLayout
}

type Image struct {
	Node
	CreateInfo ImageCreateInfo
	Encoder    *subresource.Encoder
	// Layouts established by completed submissions.
	GlobalLayouts *imagelayout.GlobalImageLayoutRangeMap

	SharedPresentable bool
	Swapchain         report.Handle
}

func newImage(h report.Handle, ci ImageCreateInfo) *Image {
	if ci.MipLevels == 0 {
		ci.MipLevels = 1
	}
	if ci.ArrayLayers == 0 {
		ci.ArrayLayers = 1
	}
	if ci.Samples == 0 {
		ci.Samples = vk.SampleCount1Bit
	}
	layers := ci.ArrayLayers
	// Depth slices of a 2D array compatible volume are addressed as layers.
	if ci.ImageType == vulkan.ImageType3d && ci.Flags&vulkan.ImageCreate2dArrayCompatible != 0 && ci.Extent.Depth > layers {
		layers = ci.Extent.Depth
	}
	enc := subresource.NewImageEncoder(ci.Format, ci.MipLevels, layers)
	return &Image{
		Node:          newNode(h, report.ObjectTypeImage),
		CreateInfo:    ci,
		Encoder:       enc,
		GlobalLayouts: imagelayout.NewGlobalImageLayoutRangeMap(enc),
	}
}

func (i *Image) NormalizeSubresourceRange(r vk.ImageSubresourceRange) vk.ImageSubresourceRange {
	return i.Encoder.NormalizeRange(r)
}

func (i *Image) FullRange() vk.ImageSubresourceRange {
	return i.Encoder.FullRange()
}

func (i *Image) IsLinear() bool {
	return i.CreateInfo.Tiling == vk.ImageTilingLinear
}

func (i *Image) Protected() bool {
	return i.CreateInfo.Flags&vulkan.ImageCreateProtected != 0
}

// Is3DArrayCompatible reports whether the depth slices of a 3D image can be
// addressed as array layers.
func (i *Image) Is3DArrayCompatible() bool {
	return i.CreateInfo.ImageType == vulkan.ImageType3d &&
		i.CreateInfo.Flags&vulkan.ImageCreate2dArrayCompatible != 0
}

type ImageViewCreateInfo struct {
	Image            report.Handle
	Format           vk.Format
	SubresourceRange vk.ImageSubresourceRange
}

type ImageView struct {
	Node
	Image  *Image
	Format vk.Format
	// Range is normalized against the image.
	Range vk.ImageSubresourceRange
}

func newImageView(h report.Handle, img *Image, ci ImageViewCreateInfo) *ImageView {
	format := ci.Format
	if format == vk.FormatUndefined {
		format = img.CreateInfo.Format
	}
	return &ImageView{
		Node:   newNode(h, report.ObjectTypeImageView),
		Image:  img,
		Format: format,
		Range:  img.NormalizeSubresourceRange(ci.SubresourceRange),
	}
}

type BufferCreateInfo struct {
	Size  uint64
	Usage vk.BufferUsageFlags
}

type Buffer struct {
	Node
	CreateInfo BufferCreateInfo
}

func newBuffer(h report.Handle, ci BufferCreateInfo) *Buffer {
	return &Buffer{
		Node:       newNode(h, report.ObjectTypeBuffer),
		CreateInfo: ci,
	}
}
