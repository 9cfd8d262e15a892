package state

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vksync/engine/vulkan"
)

// Parameters of the recorded commands, shared by every validation object.

type ImageCopyRegion struct {
	SrcSubresource vk.ImageSubresourceLayers
	DstSubresource vk.ImageSubresourceLayers
	Extent         vk.Extent3D
}

type CopyImageInfo struct {
	Src       *Image
	SrcLayout vk.ImageLayout
	Dst       *Image
	DstLayout vk.ImageLayout
	Regions   []ImageCopyRegion
}

// BlitImageInfo reuses ImageCopyRegion, the extent is ignored.
type BlitImageInfo CopyImageInfo

type ResolveImageInfo CopyImageInfo

type BufferImageCopyRegion struct {
	BufferOffset     uint64
	ImageSubresource vk.ImageSubresourceLayers
	ImageExtent      vk.Extent3D
}

type CopyBufferToImageInfo struct {
	Src       *Buffer
	Dst       *Image
	DstLayout vk.ImageLayout
	Regions   []BufferImageCopyRegion
}

type CopyImageToBufferInfo struct {
	Src       *Image
	SrcLayout vk.ImageLayout
	Dst       *Buffer
	Regions   []BufferImageCopyRegion
}

type BufferCopyRegion struct {
	SrcOffset uint64
	DstOffset uint64
	Size      uint64
}

type CopyBufferInfo struct {
	Src     *Buffer
	Dst     *Buffer
	Regions []BufferCopyRegion
}

type ClearImageInfo struct {
	Image  *Image
	Layout vk.ImageLayout
	Ranges []vk.ImageSubresourceRange
}

// FillBufferInfo covers vkCmdFillBuffer and vkCmdUpdateBuffer.
type FillBufferInfo struct {
	Buffer *Buffer
	Offset uint64
	Size   uint64
}

type RenderPassBeginInfo struct {
	RenderPass  *RenderPass
	Framebuffer *Framebuffer
	Contents    vk.SubpassContents
}

// PipelineBarrierInfo is a vkCmdPipelineBarrier call. Its memory and buffer
// barriers carry the command's stage masks in their scopes.
type PipelineBarrierInfo struct {
	SrcStageMask         vulkan.PipelineStageFlags2
	DstStageMask         vulkan.PipelineStageFlags2
	MemoryBarriers       []MemoryBarrier
	BufferMemoryBarriers []BufferMemoryBarrier
	ImageMemoryBarriers  []ImageMemoryBarrier
}

type DrawInfo struct {
	Indexed bool
	// Indirect is the parameter buffer of an indirect draw, or nil.
	Indirect       *Buffer
	IndirectOffset uint64
	IndirectSize   uint64
}

type DispatchInfo struct {
	Indirect       *Buffer
	IndirectOffset uint64
	IndirectSize   uint64
}

type WaitEventsInfo struct {
	Events       []*Event
	SrcStageMask vulkan.PipelineStageFlags2
	DstStageMask vulkan.PipelineStageFlags2
	Dependency   DependencyInfo
}
