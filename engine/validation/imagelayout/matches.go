package imagelayout

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vksync/engine/vulkan"
)

// NormalizeDepthImageLayout maps combined depth/stencil layouts to the layout
// the depth aspect is in.
func NormalizeDepthImageLayout(layout vk.ImageLayout) vk.ImageLayout {
	switch layout {
	case vk.ImageLayoutDepthStencilAttachmentOptimal, vulkan.ImageLayoutDepthAttachmentStencilReadOnlyOptimal:
		return vulkan.ImageLayoutDepthAttachmentOptimal
	case vulkan.ImageLayoutDepthStencilReadOnlyOptimal, vulkan.ImageLayoutDepthReadOnlyStencilAttachmentOptimal:
		return vulkan.ImageLayoutDepthReadOnlyOptimal
	default:
		return layout
	}
}

// NormalizeStencilImageLayout maps combined depth/stencil layouts to the layout
// the stencil aspect is in.
func NormalizeStencilImageLayout(layout vk.ImageLayout) vk.ImageLayout {
	switch layout {
	case vk.ImageLayoutDepthStencilAttachmentOptimal, vulkan.ImageLayoutDepthReadOnlyStencilAttachmentOptimal:
		return vulkan.ImageLayoutStencilAttachmentOptimal
	case vulkan.ImageLayoutDepthStencilReadOnlyOptimal, vulkan.ImageLayoutDepthAttachmentStencilReadOnlyOptimal:
		return vulkan.ImageLayoutStencilReadOnlyOptimal
	default:
		return layout
	}
}

// NormalizeSynchronization2Layout resolves the generic ATTACHMENT_OPTIMAL and
// READ_ONLY_OPTIMAL layouts for the given aspects.
func NormalizeSynchronization2Layout(aspectMask vk.ImageAspectFlags, layout vk.ImageLayout) vk.ImageLayout {
	switch layout {
	case vulkan.ImageLayoutAttachmentOptimal:
		switch {
		case aspectMask&vulkan.ImageAspectDepthStencil == vulkan.ImageAspectDepthStencil:
			return vk.ImageLayoutDepthStencilAttachmentOptimal
		case aspectMask&vulkan.ImageAspectDepth != 0:
			return vulkan.ImageLayoutDepthAttachmentOptimal
		case aspectMask&vulkan.ImageAspectStencil != 0:
			return vulkan.ImageLayoutStencilAttachmentOptimal
		case aspectMask&vulkan.ImageAspectColor != 0:
			return vk.ImageLayoutColorAttachmentOptimal
		}
	case vulkan.ImageLayoutReadOnlyOptimal:
		switch {
		case aspectMask&vulkan.ImageAspectDepthStencil == vulkan.ImageAspectDepthStencil:
			return vulkan.ImageLayoutDepthStencilReadOnlyOptimal
		case aspectMask&vulkan.ImageAspectDepth != 0:
			return vulkan.ImageLayoutDepthReadOnlyOptimal
		case aspectMask&vulkan.ImageAspectStencil != 0:
			return vulkan.ImageLayoutStencilReadOnlyOptimal
		case aspectMask&vulkan.ImageAspectColor != 0:
			return vk.ImageLayoutShaderReadOnlyOptimal
		}
	}
	return layout
}

// ImageLayoutMatches reports whether a and b are the same layout for the
// given aspects, treating depth/stencil combined layouts as equal to the
// per-aspect layout they imply.
func ImageLayoutMatches(aspectMask vk.ImageAspectFlags, a, b vk.ImageLayout) bool {
	if a == b {
		return true
	}
	a = NormalizeSynchronization2Layout(aspectMask, a)
	b = NormalizeSynchronization2Layout(aspectMask, b)
	if a == b {
		return true
	}

	switch aspectMask {
	case vulkan.ImageAspectDepth:
		return NormalizeDepthImageLayout(a) == NormalizeDepthImageLayout(b)
	case vulkan.ImageAspectStencil:
		return NormalizeStencilImageLayout(a) == NormalizeStencilImageLayout(b)
	case vulkan.ImageAspectDepthStencil:
		return NormalizeDepthImageLayout(a) == NormalizeDepthImageLayout(b) &&
			NormalizeStencilImageLayout(a) == NormalizeStencilImageLayout(b)
	}
	return false
}
