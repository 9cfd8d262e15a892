package corechecks

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vksync/engine/validation/imagelayout"
	"github.com/spaghettifunk/vksync/engine/validation/report"
	"github.com/spaghettifunk/vksync/engine/validation/state"
	"github.com/spaghettifunk/vksync/engine/vulkan"
)

// layoutUseCheck compares an explicit layout against what the recording
// already knows about a subresource.
type layoutUseCheck struct {
	expected   vk.ImageLayout
	aspectMask vk.ImageAspectFlags

	message string
	layout  vk.ImageLayout
}

func newLayoutUseCheck(expected vk.ImageLayout, aspectMask vk.ImageAspectFlags) *layoutUseCheck {
	return &layoutUseCheck{expected: expected, aspectMask: aspectMask, layout: vulkan.InvalidLayout}
}

// Check returns false and fills message/layout on a mismatch.
func (lc *layoutUseCheck) Check(e imagelayout.LayoutEntry) bool {
	lc.message = ""
	lc.layout = vulkan.InvalidLayout
	switch {
	case e.HasCurrent():
		if !imagelayout.ImageLayoutMatches(lc.aspectMask, lc.expected, e.Current) {
			lc.message = "previous known"
			lc.layout = e.Current
		}
	case e.HasInitial():
		if !imagelayout.ImageLayoutMatches(lc.aspectMask, lc.expected, e.Initial) {
			// A view of both depth and stencil may have seeded a combined layout.
			if !(e.State != nil && e.State.AspectMask&vulkan.ImageAspectDepthStencil != 0 &&
				imagelayout.ImageLayoutMatches(e.State.AspectMask, lc.expected, e.Initial)) {
				lc.message = "previously used"
				lc.layout = e.Initial
			}
		}
	}
	return lc.layout == vulkan.InvalidLayout
}

func (c *CoreChecks) verifyImageLayoutRange(cb *state.CommandBuffer, img *state.Image, rng vk.ImageSubresourceRange, aspectMask vk.ImageAspectFlags,
	explicit vk.ImageLayout, loc report.Location, mismatchVUID string, hasError *bool) bool {
	m := cb.ImageLayoutMap(img)
	if m == nil {
		return false
	}
	check := newLayoutUseCheck(explicit, aspectMask)
	return m.AnyInRange(rng, func(r imagelayout.LayoutRange, e imagelayout.LayoutEntry) bool {
		if check.Check(e) {
			return false
		}
		*hasError = true
		sub := m.Decode(r.Begin)
		return c.LogError(report.Objects(cb.Handle(), img.Handle()), mismatchVUID, loc,
			"Cannot use %s (layer=%d mip=%d) with specific layout %s that doesn't match the %s layout %s.",
			c.fmtHandle(img.Handle()), sub.ArrayLayer, sub.MipLevel, vulkan.ImageLayoutString(explicit),
			check.message, vulkan.ImageLayoutString(check.layout))
	})
}

// VerifyImageLayout checks that the explicit layout a command names for rng
// agrees with the layouts recorded so far, and that it is the optimal layout
// (or GENERAL) for the command.
func (c *CoreChecks) VerifyImageLayout(cb *state.CommandBuffer, img *state.Image, rng vk.ImageSubresourceRange, aspectMask vk.ImageAspectFlags,
	explicit, optimal vk.ImageLayout, loc report.Location, invalidVUID, mismatchVUID string, hasError *bool) bool {
	if c.layoutValidationDisabled() {
		return false
	}
	skip := c.verifyImageLayoutRange(cb, img, img.NormalizeSubresourceRange(rng), aspectMask, explicit, loc, mismatchVUID, hasError)

	if optimal == vk.ImageLayoutUndefined || explicit == optimal {
		return skip
	}
	switch {
	case explicit == vk.ImageLayoutGeneral:
		if !img.IsLinear() {
			skip = c.LogPerformanceWarning(report.Objects(cb.Handle(), img.Handle()), kVUIDInvalidImageLayout, loc,
				"For optimal performance %s layout should be %s instead of GENERAL.",
				c.fmtHandle(img.Handle()), vulkan.ImageLayoutString(optimal)) || skip
		}
	case c.features().SharedPresentableImage && img.SharedPresentable:
		if explicit != vulkan.ImageLayoutSharedPresent {
			skip = c.LogError(report.Objects(img.Handle()), invalidVUID, loc,
				"Layout for shared presentable image is %s but must be VK_IMAGE_LAYOUT_SHARED_PRESENT_KHR.",
				vulkan.ImageLayoutString(explicit)) || skip
		}
	default:
		*hasError = true
		skip = c.LogError(report.Objects(cb.Handle(), img.Handle()), invalidVUID, loc,
			"Layout for %s is %s but can only be %s or VK_IMAGE_LAYOUT_GENERAL.",
			c.fmtHandle(img.Handle()), vulkan.ImageLayoutString(explicit), vulkan.ImageLayoutString(optimal)) || skip
	}
	return skip
}

func (c *CoreChecks) VerifyImageLayoutLayers(cb *state.CommandBuffer, img *state.Image, layers vk.ImageSubresourceLayers,
	explicit, optimal vk.ImageLayout, loc report.Location, invalidVUID, mismatchVUID string, hasError *bool) bool {
	return c.VerifyImageLayout(cb, img, img.Encoder.NormalizeLayers(layers), layers.AspectMask, explicit, optimal, loc, invalidVUID, mismatchVUID, hasError)
}

func (c *CoreChecks) VerifyImageViewLayout(cb *state.CommandBuffer, view *state.ImageView,
	explicit, optimal vk.ImageLayout, loc report.Location, invalidVUID, mismatchVUID string, hasError *bool) bool {
	return c.VerifyImageLayout(cb, view.Image, view.Range, view.Range.AspectMask, explicit, optimal, loc, invalidVUID, mismatchVUID, hasError)
}
