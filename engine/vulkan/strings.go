package vulkan

import (
	"fmt"
	"math/bits"
	"strings"

	vk "github.com/goki/vulkan"
)

func ImageLayoutString(layout vk.ImageLayout) string {
	switch layout {
	case vk.ImageLayoutUndefined:
		return "VK_IMAGE_LAYOUT_UNDEFINED"
	case vk.ImageLayoutGeneral:
		return "VK_IMAGE_LAYOUT_GENERAL"
	case vk.ImageLayoutColorAttachmentOptimal:
		return "VK_IMAGE_LAYOUT_COLOR_ATTACHMENT_OPTIMAL"
	case vk.ImageLayoutDepthStencilAttachmentOptimal:
		return "VK_IMAGE_LAYOUT_DEPTH_STENCIL_ATTACHMENT_OPTIMAL"
	case ImageLayoutDepthStencilReadOnlyOptimal:
		return "VK_IMAGE_LAYOUT_DEPTH_STENCIL_READ_ONLY_OPTIMAL"
	case vk.ImageLayoutShaderReadOnlyOptimal:
		return "VK_IMAGE_LAYOUT_SHADER_READ_ONLY_OPTIMAL"
	case vk.ImageLayoutTransferSrcOptimal:
		return "VK_IMAGE_LAYOUT_TRANSFER_SRC_OPTIMAL"
	case vk.ImageLayoutTransferDstOptimal:
		return "VK_IMAGE_LAYOUT_TRANSFER_DST_OPTIMAL"
	case vk.ImageLayoutPreinitialized:
		return "VK_IMAGE_LAYOUT_PREINITIALIZED"
	case ImageLayoutDepthReadOnlyStencilAttachmentOptimal:
		return "VK_IMAGE_LAYOUT_DEPTH_READ_ONLY_STENCIL_ATTACHMENT_OPTIMAL"
	case ImageLayoutDepthAttachmentStencilReadOnlyOptimal:
		return "VK_IMAGE_LAYOUT_DEPTH_ATTACHMENT_STENCIL_READ_ONLY_OPTIMAL"
	case ImageLayoutDepthAttachmentOptimal:
		return "VK_IMAGE_LAYOUT_DEPTH_ATTACHMENT_OPTIMAL"
	case ImageLayoutDepthReadOnlyOptimal:
		return "VK_IMAGE_LAYOUT_DEPTH_READ_ONLY_OPTIMAL"
	case ImageLayoutStencilAttachmentOptimal:
		return "VK_IMAGE_LAYOUT_STENCIL_ATTACHMENT_OPTIMAL"
	case ImageLayoutStencilReadOnlyOptimal:
		return "VK_IMAGE_LAYOUT_STENCIL_READ_ONLY_OPTIMAL"
	case ImageLayoutReadOnlyOptimal:
		return "VK_IMAGE_LAYOUT_READ_ONLY_OPTIMAL"
	case ImageLayoutAttachmentOptimal:
		return "VK_IMAGE_LAYOUT_ATTACHMENT_OPTIMAL"
	case vk.ImageLayoutPresentSrc:
		return "VK_IMAGE_LAYOUT_PRESENT_SRC_KHR"
	case ImageLayoutSharedPresent:
		return "VK_IMAGE_LAYOUT_SHARED_PRESENT_KHR"
	case InvalidLayout:
		return "INVALID_LAYOUT"
	default:
		return fmt.Sprintf("Unhandled VkImageLayout (%d)", int32(layout))
	}
}

// ParseImageLayout accepts the full enumerant name or its short form
// ("TRANSFER_DST_OPTIMAL").
func ParseImageLayout(name string) (vk.ImageLayout, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if !strings.HasPrefix(name, "VK_IMAGE_LAYOUT_") {
		name = "VK_IMAGE_LAYOUT_" + name
	}
	for _, l := range knownLayouts {
		if ImageLayoutString(l) == name {
			return l, true
		}
	}
	return InvalidLayout, false
}

var knownLayouts = []vk.ImageLayout{
	vk.ImageLayoutUndefined,
	vk.ImageLayoutGeneral,
	vk.ImageLayoutColorAttachmentOptimal,
	vk.ImageLayoutDepthStencilAttachmentOptimal,
	ImageLayoutDepthStencilReadOnlyOptimal,
	vk.ImageLayoutShaderReadOnlyOptimal,
	vk.ImageLayoutTransferSrcOptimal,
	vk.ImageLayoutTransferDstOptimal,
	vk.ImageLayoutPreinitialized,
	ImageLayoutDepthReadOnlyStencilAttachmentOptimal,
	ImageLayoutDepthAttachmentStencilReadOnlyOptimal,
	ImageLayoutDepthAttachmentOptimal,
	ImageLayoutDepthReadOnlyOptimal,
	ImageLayoutStencilAttachmentOptimal,
	ImageLayoutStencilReadOnlyOptimal,
	ImageLayoutReadOnlyOptimal,
	ImageLayoutAttachmentOptimal,
	vk.ImageLayoutPresentSrc,
	ImageLayoutSharedPresent,
}

var aspectNames = []struct {
	bit  vk.ImageAspectFlags
	name string
}{
	{ImageAspectColor, "COLOR"},
	{ImageAspectDepth, "DEPTH"},
	{ImageAspectStencil, "STENCIL"},
	{ImageAspectMetadata, "METADATA"},
	{ImageAspectPlane0, "PLANE_0"},
	{ImageAspectPlane1, "PLANE_1"},
	{ImageAspectPlane2, "PLANE_2"},
}

func AspectMaskString(mask vk.ImageAspectFlags) string {
	if mask == 0 {
		return "0"
	}
	var parts []string
	for _, a := range aspectNames {
		if mask&a.bit != 0 {
			parts = append(parts, a.name)
			mask &^= a.bit
		}
	}
	if mask != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(mask)))
	}
	return strings.Join(parts, "|")
}

// ParseAspectMask parses "COLOR", "DEPTH|STENCIL" and friends.
func ParseAspectMask(s string) (vk.ImageAspectFlags, bool) {
	var mask vk.ImageAspectFlags
	for _, part := range strings.Split(s, "|") {
		part = strings.ToUpper(strings.TrimSpace(part))
		found := false
		for _, a := range aspectNames {
			if a.name == part {
				mask |= a.bit
				found = true
			}
		}
		if !found {
			return 0, false
		}
	}
	return mask, true
}

var stageNames = map[PipelineStageFlags2]string{
	PipelineStage2TopOfPipe:                    "TOP_OF_PIPE",
	PipelineStage2DrawIndirect:                 "DRAW_INDIRECT",
	PipelineStage2VertexInput:                  "VERTEX_INPUT",
	PipelineStage2VertexShader:                 "VERTEX_SHADER",
	PipelineStage2TessellationControlShader:    "TESSELLATION_CONTROL_SHADER",
	PipelineStage2TessellationEvaluationShader: "TESSELLATION_EVALUATION_SHADER",
	PipelineStage2GeometryShader:               "GEOMETRY_SHADER",
	PipelineStage2FragmentShader:               "FRAGMENT_SHADER",
	PipelineStage2EarlyFragmentTests:           "EARLY_FRAGMENT_TESTS",
	PipelineStage2LateFragmentTests:            "LATE_FRAGMENT_TESTS",
	PipelineStage2ColorAttachmentOutput:        "COLOR_ATTACHMENT_OUTPUT",
	PipelineStage2ComputeShader:                "COMPUTE_SHADER",
	PipelineStage2AllTransfer:                  "TRANSFER",
	PipelineStage2BottomOfPipe:                 "BOTTOM_OF_PIPE",
	PipelineStage2Host:                         "HOST",
	PipelineStage2AllGraphics:                  "ALL_GRAPHICS",
	PipelineStage2AllCommands:                  "ALL_COMMANDS",
	PipelineStage2Copy:                         "COPY",
	PipelineStage2Resolve:                      "RESOLVE",
	PipelineStage2Blit:                         "BLIT",
	PipelineStage2Clear:                        "CLEAR",
	PipelineStage2IndexInput:                   "INDEX_INPUT",
	PipelineStage2VertexAttributeInput:         "VERTEX_ATTRIBUTE_INPUT",
	PipelineStage2PreRasterizationShaders:      "PRE_RASTERIZATION_SHADERS",
}

var accessNames = map[AccessFlags2]string{
	Access2IndirectCommandRead:         "INDIRECT_COMMAND_READ",
	Access2IndexRead:                   "INDEX_READ",
	Access2VertexAttributeRead:         "VERTEX_ATTRIBUTE_READ",
	Access2UniformRead:                 "UNIFORM_READ",
	Access2InputAttachmentRead:         "INPUT_ATTACHMENT_READ",
	Access2ShaderRead:                  "SHADER_READ",
	Access2ShaderWrite:                 "SHADER_WRITE",
	Access2ColorAttachmentRead:         "COLOR_ATTACHMENT_READ",
	Access2ColorAttachmentWrite:        "COLOR_ATTACHMENT_WRITE",
	Access2DepthStencilAttachmentRead:  "DEPTH_STENCIL_ATTACHMENT_READ",
	Access2DepthStencilAttachmentWrite: "DEPTH_STENCIL_ATTACHMENT_WRITE",
	Access2TransferRead:                "TRANSFER_READ",
	Access2TransferWrite:               "TRANSFER_WRITE",
	Access2HostRead:                    "HOST_READ",
	Access2HostWrite:                   "HOST_WRITE",
	Access2MemoryRead:                  "MEMORY_READ",
	Access2MemoryWrite:                 "MEMORY_WRITE",
	Access2ShaderSampledRead:           "SHADER_SAMPLED_READ",
	Access2ShaderStorageRead:           "SHADER_STORAGE_READ",
	Access2ShaderStorageWrite:          "SHADER_STORAGE_WRITE",
}

func (s PipelineStageFlags2) String() string {
	if s == 0 {
		return "NONE"
	}
	return joinBits(uint64(s), func(bit uint64) string {
		if n, ok := stageNames[PipelineStageFlags2(bit)]; ok {
			return n
		}
		return fmt.Sprintf("0x%x", bit)
	})
}

func (a AccessFlags2) String() string {
	if a == 0 {
		return "NONE"
	}
	return joinBits(uint64(a), func(bit uint64) string {
		if n, ok := accessNames[AccessFlags2(bit)]; ok {
			return n
		}
		return fmt.Sprintf("0x%x", bit)
	})
}

// ParseStageMask parses "TRANSFER|COMPUTE_SHADER".
func ParseStageMask(s string) (PipelineStageFlags2, bool) {
	var mask PipelineStageFlags2
	for _, part := range strings.Split(s, "|") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part == "" || part == "NONE" {
			continue
		}
		found := false
		for bit, name := range stageNames {
			if name == part {
				mask |= bit
				found = true
				break
			}
		}
		if !found {
			return 0, false
		}
	}
	return mask, true
}

// ParseAccessMask parses "TRANSFER_WRITE|SHADER_READ".
func ParseAccessMask(s string) (AccessFlags2, bool) {
	var mask AccessFlags2
	for _, part := range strings.Split(s, "|") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part == "" || part == "NONE" {
			continue
		}
		found := false
		for bit, name := range accessNames {
			if name == part {
				mask |= bit
				found = true
				break
			}
		}
		if !found {
			return 0, false
		}
	}
	return mask, true
}

func joinBits(v uint64, name func(uint64) string) string {
	var parts []string
	for v != 0 {
		bit := uint64(1) << bits.TrailingZeros64(v)
		parts = append(parts, name(bit))
		v &^= bit
	}
	return strings.Join(parts, "|")
}

func ConditionalOperator[T any](cond bool, a, b T) T {
	if cond {
		return a
	}
	return b
}
