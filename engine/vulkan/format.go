package vulkan

import (
	"fmt"
	"strings"

	vk "github.com/goki/vulkan"
)

// FormatAspects returns every aspect an image of format f has.
func FormatAspects(f vk.Format) vk.ImageAspectFlags {
	switch f {
	case vk.FormatD16Unorm, FormatX8D24UnormPack32, vk.FormatD32Sfloat:
		return ImageAspectDepth
	case FormatS8Uint:
		return ImageAspectStencil
	case FormatD16UnormS8Uint, vk.FormatD24UnormS8Uint, vk.FormatD32SfloatS8Uint:
		return ImageAspectDepthStencil
	case FormatG8B8R82Plane420Unorm, FormatG8B8R82Plane422Unorm:
		return ImageAspectPlane0 | ImageAspectPlane1
	case FormatG8B8R83Plane420Unorm, FormatG8B8R83Plane422Unorm, FormatG8B8R83Plane444Unorm:
		return ImageAspectPlane0 | ImageAspectPlane1 | ImageAspectPlane2
	default:
		return ImageAspectColor
	}
}

func FormatIsDepthOrStencil(f vk.Format) bool {
	return FormatAspects(f)&ImageAspectDepthStencil != 0
}

func FormatIsMultiplane(f vk.Format) bool {
	return FormatAspects(f)&ImageAspectPlane0 != 0
}

func FormatHasDepth(f vk.Format) bool {
	return FormatAspects(f)&ImageAspectDepth != 0
}

func FormatHasStencil(f vk.Format) bool {
	return FormatAspects(f)&ImageAspectStencil != 0
}

// FormatTexelSize returns the bytes per texel of the common uncompressed
// formats, or 0 when the size is not known.
func FormatTexelSize(f vk.Format) uint64 {
	switch f {
	case vk.FormatR8Unorm, vk.FormatR8Uint, FormatS8Uint:
		return 1
	case vk.FormatR8g8Unorm, vk.FormatD16Unorm, vk.FormatR16Sfloat:
		return 2
	case vk.FormatR8g8b8a8Unorm, vk.FormatR8g8b8a8Srgb, vk.FormatB8g8r8a8Unorm, vk.FormatB8g8r8a8Srgb,
		vk.FormatR32Sfloat, vk.FormatR32Uint, vk.FormatD32Sfloat, vk.FormatD24UnormS8Uint, FormatX8D24UnormPack32:
		return 4
	case vk.FormatR16g16b16a16Sfloat, vk.FormatR32g32Sfloat:
		return 8
	case vk.FormatR32g32b32a32Sfloat:
		return 16
	default:
		return 0
	}
}

var formatNames = map[vk.Format]string{
	vk.FormatUndefined:          "UNDEFINED",
	vk.FormatR8Unorm:            "R8_UNORM",
	vk.FormatR8Uint:             "R8_UINT",
	vk.FormatR8g8Unorm:          "R8G8_UNORM",
	vk.FormatR8g8b8a8Unorm:      "R8G8B8A8_UNORM",
	vk.FormatR8g8b8a8Srgb:       "R8G8B8A8_SRGB",
	vk.FormatB8g8r8a8Unorm:      "B8G8R8A8_UNORM",
	vk.FormatB8g8r8a8Srgb:       "B8G8R8A8_SRGB",
	vk.FormatR16Sfloat:          "R16_SFLOAT",
	vk.FormatR16g16b16a16Sfloat: "R16G16B16A16_SFLOAT",
	vk.FormatR32Uint:            "R32_UINT",
	vk.FormatR32Sfloat:          "R32_SFLOAT",
	vk.FormatR32g32Sfloat:       "R32G32_SFLOAT",
	vk.FormatR32g32b32a32Sfloat: "R32G32B32A32_SFLOAT",
	vk.FormatD16Unorm:           "D16_UNORM",
	FormatX8D24UnormPack32:      "X8_D24_UNORM_PACK32",
	vk.FormatD32Sfloat:          "D32_SFLOAT",
	FormatS8Uint:                "S8_UINT",
	FormatD16UnormS8Uint:        "D16_UNORM_S8_UINT",
	vk.FormatD24UnormS8Uint:     "D24_UNORM_S8_UINT",
	vk.FormatD32SfloatS8Uint:    "D32_SFLOAT_S8_UINT",
	FormatG8B8R82Plane420Unorm:  "G8_B8R8_2PLANE_420_UNORM",
	FormatG8B8R83Plane420Unorm:  "G8_B8_R8_3PLANE_420_UNORM",
}

func FormatString(f vk.Format) string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("VkFormat(%d)", int32(f))
}

// ParseFormat accepts the format names used in messages, with or without
// the VK_FORMAT_ prefix.
func ParseFormat(name string) (vk.Format, bool) {
	name = strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(name)), "VK_FORMAT_")
	for f, n := range formatNames {
		if n == name {
			return f, true
		}
	}
	return vk.FormatUndefined, false
}
