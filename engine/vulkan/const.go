package vulkan

import (
	vk "github.com/goki/vulkan"
)

/** Image layouts added after Vulkan 1.0, spelled by value. */
const (
	ImageLayoutDepthReadOnlyStencilAttachmentOptimal vk.ImageLayout = 1000117000
	ImageLayoutDepthAttachmentStencilReadOnlyOptimal vk.ImageLayout = 1000117001
	ImageLayoutDepthAttachmentOptimal                vk.ImageLayout = 1000241000
	ImageLayoutDepthReadOnlyOptimal                  vk.ImageLayout = 1000241001
	ImageLayoutStencilAttachmentOptimal              vk.ImageLayout = 1000241002
	ImageLayoutStencilReadOnlyOptimal                vk.ImageLayout = 1000241003
	ImageLayoutReadOnlyOptimal                       vk.ImageLayout = 1000314000
	ImageLayoutAttachmentOptimal                     vk.ImageLayout = 1000314001
	ImageLayoutSharedPresent                         vk.ImageLayout = 1000111000
	ImageLayoutDepthStencilReadOnlyOptimal           vk.ImageLayout = 4

	// InvalidLayout marks a layout slot that was never written.
	InvalidLayout vk.ImageLayout = 0x7FFFFFFF
)

/** Image aspects. */
const (
	ImageAspectColor    = vk.ImageAspectFlags(vk.ImageAspectColorBit)
	ImageAspectDepth    = vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	ImageAspectStencil  vk.ImageAspectFlags = 0x00000004
	ImageAspectMetadata vk.ImageAspectFlags = 0x00000008
	ImageAspectPlane0   vk.ImageAspectFlags = 0x00000010
	ImageAspectPlane1   vk.ImageAspectFlags = 0x00000020
	ImageAspectPlane2   vk.ImageAspectFlags = 0x00000040

	ImageAspectDepthStencil = ImageAspectDepth | ImageAspectStencil
)

const (
	RemainingMipLevels   uint32 = ^uint32(0)
	RemainingArrayLayers uint32 = ^uint32(0)
	AttachmentUnused     uint32 = ^uint32(0)
	SubpassExternal      uint32 = ^uint32(0)
	WholeSize            uint64 = ^uint64(0)

	QueueFamilyIgnored  uint32 = ^uint32(0)
	QueueFamilyExternal uint32 = ^uint32(0) - 1
	QueueFamilyForeign  uint32 = ^uint32(0) - 2
)

/** Formats beyond the 1.0 depth/stencil set. */
const (
	FormatX8D24UnormPack32 vk.Format = 125
	FormatS8Uint           vk.Format = 127
	FormatD16UnormS8Uint   vk.Format = 128

	FormatG8B8R83Plane420Unorm vk.Format = 1000156002
	FormatG8B8R82Plane420Unorm vk.Format = 1000156003
	FormatG8B8R83Plane422Unorm vk.Format = 1000156004
	FormatG8B8R82Plane422Unorm vk.Format = 1000156005
	FormatG8B8R83Plane444Unorm vk.Format = 1000156006
)

/** Dynamic states. */
const (
	DynamicStateViewportWithCount vk.DynamicState = 1000267003
	DynamicStateScissorWithCount  vk.DynamicState = 1000267004
)

/** Image creation and usage bits the tracker inspects. */
const (
	ImageCreateProtected         vk.ImageCreateFlags       = 0x00000800
	ImageCreate2dArrayCompatible vk.ImageCreateFlags       = 0x00000020
	CommandPoolCreateProtected   vk.CommandPoolCreateFlags = 0x00000004
	ImageType3d                  vk.ImageType              = 2
	QueryControlPrecise          vk.QueryControlFlags      = 0x00000001
	RenderingContentsSecondary   RenderingFlags            = 0x00000001
	RenderingSuspending          RenderingFlags            = 0x00000002
	RenderingResuming            RenderingFlags            = 0x00000004
	QueryTypeOcclusion           vk.QueryType              = 0
	QueryTypePipelineStatistics  vk.QueryType              = 1
	QueryTypeTimestamp           vk.QueryType              = 2
)

// RenderingFlags mirrors VkRenderingFlags.
type RenderingFlags uint32

/**
 * Synchronization2 masks. The low 32 bits agree with the 1.0
 * VkPipelineStageFlags and VkAccessFlags values.
 */
type PipelineStageFlags2 uint64

const (
	PipelineStage2None                         PipelineStageFlags2 = 0
	PipelineStage2TopOfPipe                    PipelineStageFlags2 = 0x00000001
	PipelineStage2DrawIndirect                 PipelineStageFlags2 = 0x00000002
	PipelineStage2VertexInput                  PipelineStageFlags2 = 0x00000004
	PipelineStage2VertexShader                 PipelineStageFlags2 = 0x00000008
	PipelineStage2TessellationControlShader    PipelineStageFlags2 = 0x00000010
	PipelineStage2TessellationEvaluationShader PipelineStageFlags2 = 0x00000020
	PipelineStage2GeometryShader               PipelineStageFlags2 = 0x00000040
	PipelineStage2FragmentShader               PipelineStageFlags2 = 0x00000080
	PipelineStage2EarlyFragmentTests           PipelineStageFlags2 = 0x00000100
	PipelineStage2LateFragmentTests            PipelineStageFlags2 = 0x00000200
	PipelineStage2ColorAttachmentOutput        PipelineStageFlags2 = 0x00000400
	PipelineStage2ComputeShader                PipelineStageFlags2 = 0x00000800
	PipelineStage2AllTransfer                  PipelineStageFlags2 = 0x00001000
	PipelineStage2BottomOfPipe                 PipelineStageFlags2 = 0x00002000
	PipelineStage2Host                         PipelineStageFlags2 = 0x00004000
	PipelineStage2AllGraphics                  PipelineStageFlags2 = 0x00008000
	PipelineStage2AllCommands                  PipelineStageFlags2 = 0x00010000
	PipelineStage2Copy                         PipelineStageFlags2 = 0x100000000
	PipelineStage2Resolve                      PipelineStageFlags2 = 0x200000000
	PipelineStage2Blit                         PipelineStageFlags2 = 0x400000000
	PipelineStage2Clear                        PipelineStageFlags2 = 0x800000000
	PipelineStage2IndexInput                   PipelineStageFlags2 = 0x1000000000
	PipelineStage2VertexAttributeInput         PipelineStageFlags2 = 0x2000000000
	PipelineStage2PreRasterizationShaders      PipelineStageFlags2 = 0x4000000000
)

type AccessFlags2 uint64

const (
	Access2None                        AccessFlags2 = 0
	Access2IndirectCommandRead         AccessFlags2 = 0x00000001
	Access2IndexRead                   AccessFlags2 = 0x00000002
	Access2VertexAttributeRead         AccessFlags2 = 0x00000004
	Access2UniformRead                 AccessFlags2 = 0x00000008
	Access2InputAttachmentRead         AccessFlags2 = 0x00000010
	Access2ShaderRead                  AccessFlags2 = 0x00000020
	Access2ShaderWrite                 AccessFlags2 = 0x00000040
	Access2ColorAttachmentRead         AccessFlags2 = 0x00000080
	Access2ColorAttachmentWrite        AccessFlags2 = 0x00000100
	Access2DepthStencilAttachmentRead  AccessFlags2 = 0x00000200
	Access2DepthStencilAttachmentWrite AccessFlags2 = 0x00000400
	Access2TransferRead                AccessFlags2 = 0x00000800
	Access2TransferWrite               AccessFlags2 = 0x00001000
	Access2HostRead                    AccessFlags2 = 0x00002000
	Access2HostWrite                   AccessFlags2 = 0x00004000
	Access2MemoryRead                  AccessFlags2 = 0x00008000
	Access2MemoryWrite                 AccessFlags2 = 0x00010000
	Access2ShaderSampledRead           AccessFlags2 = 0x100000000
	Access2ShaderStorageRead           AccessFlags2 = 0x200000000
	Access2ShaderStorageWrite          AccessFlags2 = 0x400000000
)

// StageFlags2 widens a 1.0 stage mask.
func StageFlags2(mask vk.PipelineStageFlags) PipelineStageFlags2 {
	return PipelineStageFlags2(mask)
}

// AccessFlags2From widens a 1.0 access mask.
func AccessFlags2From(mask vk.AccessFlags) AccessFlags2 {
	return AccessFlags2(mask)
}
