package state

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vksync/engine/vulkan"
)

// Scope is the stage and access half of a dependency.
type Scope struct {
	Stages   vulkan.PipelineStageFlags2
	Accesses vulkan.AccessFlags2
}

type MemoryBarrier struct {
	Src Scope
	Dst Scope
}

type BufferMemoryBarrier struct {
	Src                 Scope
	Dst                 Scope
	SrcQueueFamilyIndex uint32
	DstQueueFamilyIndex uint32
	Buffer              *Buffer
	Offset              uint64
	Size                uint64
}

// ImageBarrier is satisfied by both image barrier flavours.
type ImageBarrier interface {
	BarrierImage() *Image
	BarrierRange() vk.ImageSubresourceRange
	Layouts() (oldLayout, newLayout vk.ImageLayout)
	QueueFamilies() (src, dst uint32)
	// Scopes resolves the barrier's scopes, cmdSrc and cmdDst are the
	// stage masks of the recording command.
	Scopes(cmdSrc, cmdDst vulkan.PipelineStageFlags2) (src, dst Scope)
	IsSynchronization2() bool
}

// ImageMemoryBarrier is the vkCmdPipelineBarrier flavour: stages come from
// the command.
type ImageMemoryBarrier struct {
	SrcAccessMask       vk.AccessFlags
	DstAccessMask       vk.AccessFlags
	OldLayout           vk.ImageLayout
	NewLayout           vk.ImageLayout
	SrcQueueFamilyIndex uint32
	DstQueueFamilyIndex uint32
	Image               *Image
	SubresourceRange    vk.ImageSubresourceRange
}

func (b ImageMemoryBarrier) BarrierImage() *Image { return b.Image }
func (b ImageMemoryBarrier) BarrierRange() vk.ImageSubresourceRange { return b.SubresourceRange }
func (b ImageMemoryBarrier) IsSynchronization2() bool { return false }

func (b ImageMemoryBarrier) Layouts() (vk.ImageLayout, vk.ImageLayout) {
	return b.OldLayout, b.NewLayout
}

func (b ImageMemoryBarrier) QueueFamilies() (uint32, uint32) {
	return b.SrcQueueFamilyIndex, b.DstQueueFamilyIndex
}

func (b ImageMemoryBarrier) Scopes(cmdSrc, cmdDst vulkan.PipelineStageFlags2) (Scope, Scope) {
	return Scope{Stages: cmdSrc, Accesses: vulkan.AccessFlags2From(b.SrcAccessMask)},
		Scope{Stages: cmdDst, Accesses: vulkan.AccessFlags2From(b.DstAccessMask)}
}

// ImageMemoryBarrier2 carries its own stage masks.
type ImageMemoryBarrier2 struct {
	Src                 Scope
	Dst                 Scope
	OldLayout           vk.ImageLayout
	NewLayout           vk.ImageLayout
	SrcQueueFamilyIndex uint32
	DstQueueFamilyIndex uint32
	Image               *Image
	SubresourceRange    vk.ImageSubresourceRange
}

func (b ImageMemoryBarrier2) BarrierImage() *Image { return b.Image }
func (b ImageMemoryBarrier2) BarrierRange() vk.ImageSubresourceRange { return b.SubresourceRange }
func (b ImageMemoryBarrier2) IsSynchronization2() bool { return true }

func (b ImageMemoryBarrier2) Layouts() (vk.ImageLayout, vk.ImageLayout) {
	return b.OldLayout, b.NewLayout
}

func (b ImageMemoryBarrier2) QueueFamilies() (uint32, uint32) {
	return b.SrcQueueFamilyIndex, b.DstQueueFamilyIndex
}

func (b ImageMemoryBarrier2) Scopes(_, _ vulkan.PipelineStageFlags2) (Scope, Scope) {
	return b.Src, b.Dst
}

// DependencyInfo is one vkCmdPipelineBarrier2 / vkCmdWaitEvents2 payload.
type DependencyInfo struct {
	MemoryBarriers       []MemoryBarrier
	BufferMemoryBarriers []BufferMemoryBarrier
	ImageMemoryBarriers  []ImageMemoryBarrier2
}

// IsLayoutTransition reports whether a barrier changes the layout.
func IsLayoutTransition[B ImageBarrier](b B) bool {
	oldLayout, newLayout := b.Layouts()
	return oldLayout != newLayout
}

// IsOwnershipRelease reports whether the barrier releases ownership to
// another queue family of the recording queue family.
func IsOwnershipRelease[B ImageBarrier](b B, family uint32) bool {
	src, dst := b.QueueFamilies()
	return src != dst && src == family
}

func IsOwnershipAcquire[B ImageBarrier](b B, family uint32) bool {
	src, dst := b.QueueFamilies()
	return src != dst && dst == family
}
