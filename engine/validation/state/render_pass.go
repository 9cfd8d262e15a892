package state

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vksync/engine/validation/report"
	"github.com/spaghettifunk/vksync/engine/vulkan"
)

type AttachmentDescription struct {
	Format         vk.Format
	Samples        vk.SampleCountFlagBits
	LoadOp         vk.AttachmentLoadOp
	StoreOp        vk.AttachmentStoreOp
	StencilLoadOp  vk.AttachmentLoadOp
	StencilStoreOp vk.AttachmentStoreOp
	InitialLayout  vk.ImageLayout
	FinalLayout    vk.ImageLayout
	// Separate stencil layouts, InvalidLayout when not given.
	StencilInitialLayout vk.ImageLayout
	StencilFinalLayout   vk.ImageLayout
}

// AttachmentReference is one subpass use of an attachment.
type AttachmentReference struct {
	Attachment    uint32
	Layout        vk.ImageLayout
	StencilLayout vk.ImageLayout
	AspectMask    vk.ImageAspectFlags
}

func (r AttachmentReference) Unused() bool {
	return r.Attachment == vulkan.AttachmentUnused
}

type SubpassDescription struct {
	InputAttachments       []AttachmentReference
	ColorAttachments       []AttachmentReference
	ResolveAttachments     []AttachmentReference
	DepthStencilAttachment *AttachmentReference
	PreserveAttachments    []uint32
	ViewMask               uint32
}

// References lists every attachment the subpass touches.
func (s *SubpassDescription) References() []AttachmentReference {
	refs := make([]AttachmentReference, 0, len(s.InputAttachments)+len(s.ColorAttachments)+len(s.ResolveAttachments)+1)
	refs = append(refs, s.InputAttachments...)
	refs = append(refs, s.ColorAttachments...)
	refs = append(refs, s.ResolveAttachments...)
	if s.DepthStencilAttachment != nil {
		refs = append(refs, *s.DepthStencilAttachment)
	}
	return refs
}

type SubpassDependency struct {
	SrcSubpass    uint32
	DstSubpass    uint32
	SrcStageMask  vulkan.PipelineStageFlags2
	DstStageMask  vulkan.PipelineStageFlags2
	SrcAccessMask vulkan.AccessFlags2
	DstAccessMask vulkan.AccessFlags2
}

type RenderPassCreateInfo struct {
	Attachments  []AttachmentDescription
	Subpasses    []SubpassDescription
	Dependencies []SubpassDependency
}

type RenderPass struct {
	Node
	CreateInfo RenderPassCreateInfo
	// First subpass using each attachment, or AttachmentUnused.
	AttachmentFirstSubpass []uint32
	AttachmentLastSubpass  []uint32
}

// normalizeStencilLayouts marks separate stencil layouts that were left at
// their zero value as not given. UNDEFINED is never a legal final or
// reference layout, so a zero final layout means no separate stencil.
func normalizeStencilLayouts(ci RenderPassCreateInfo) RenderPassCreateInfo {
	attachments := make([]AttachmentDescription, len(ci.Attachments))
	for i, a := range ci.Attachments {
		if a.StencilFinalLayout == vk.ImageLayoutUndefined {
			a.StencilInitialLayout = vulkan.InvalidLayout
			a.StencilFinalLayout = vulkan.InvalidLayout
		}
		attachments[i] = a
	}
	ci.Attachments = attachments
	fix := func(refs []AttachmentReference) []AttachmentReference {
		out := make([]AttachmentReference, len(refs))
		for i, r := range refs {
			if r.StencilLayout == vk.ImageLayoutUndefined {
				r.StencilLayout = vulkan.InvalidLayout
			}
			out[i] = r
		}
		return out
	}
	subpasses := make([]SubpassDescription, len(ci.Subpasses))
	for i, sp := range ci.Subpasses {
		sp.InputAttachments = fix(sp.InputAttachments)
		sp.ColorAttachments = fix(sp.ColorAttachments)
		sp.ResolveAttachments = fix(sp.ResolveAttachments)
		if sp.DepthStencilAttachment != nil {
			ds := fix([]AttachmentReference{*sp.DepthStencilAttachment})[0]
			sp.DepthStencilAttachment = &ds
		}
		subpasses[i] = sp
	}
	ci.Subpasses = subpasses
	return ci
}

func newRenderPass(h report.Handle, ci RenderPassCreateInfo) *RenderPass {
	ci = normalizeStencilLayouts(ci)
	rp := &RenderPass{
		Node:                   newNode(h, report.ObjectTypeRenderPass),
		CreateInfo:             ci,
		AttachmentFirstSubpass: make([]uint32, len(ci.Attachments)),
		AttachmentLastSubpass:  make([]uint32, len(ci.Attachments)),
	}
	for i := range rp.AttachmentFirstSubpass {
		rp.AttachmentFirstSubpass[i] = vulkan.AttachmentUnused
		rp.AttachmentLastSubpass[i] = vulkan.AttachmentUnused
	}
	for s := range ci.Subpasses {
		for _, ref := range ci.Subpasses[s].References() {
			if ref.Unused() || int(ref.Attachment) >= len(ci.Attachments) {
				continue
			}
			if rp.AttachmentFirstSubpass[ref.Attachment] == vulkan.AttachmentUnused {
				rp.AttachmentFirstSubpass[ref.Attachment] = uint32(s)
			}
			rp.AttachmentLastSubpass[ref.Attachment] = uint32(s)
		}
	}
	return rp
}

func (rp *RenderPass) SubpassCount() uint32 {
	return uint32(len(rp.CreateInfo.Subpasses))
}

// ExternalDependency returns the dependency between the render pass and
// outside work for the given subpass. incoming selects EXTERNAL -> subpass.
func (rp *RenderPass) ExternalDependency(subpass uint32, incoming bool) (SubpassDependency, bool) {
	for _, d := range rp.CreateInfo.Dependencies {
		if incoming && d.SrcSubpass == vulkan.SubpassExternal && d.DstSubpass == subpass {
			return d, true
		}
		if !incoming && d.DstSubpass == vulkan.SubpassExternal && d.SrcSubpass == subpass {
			return d, true
		}
	}
	return SubpassDependency{}, false
}

// Compatible reports whether two render passes agree on attachment formats
// and sample counts, and subpass attachment references.
func (rp *RenderPass) Compatible(other *RenderPass) bool {
	if rp == other {
		return true
	}
	a, b := rp.CreateInfo, other.CreateInfo
	if len(a.Attachments) != len(b.Attachments) || len(a.Subpasses) != len(b.Subpasses) {
		return false
	}
	for i := range a.Attachments {
		if a.Attachments[i].Format != b.Attachments[i].Format || a.Attachments[i].Samples != b.Attachments[i].Samples {
			return false
		}
	}
	for i := range a.Subpasses {
		sa, sb := &a.Subpasses[i], &b.Subpasses[i]
		if !compatibleRefs(sa.ColorAttachments, sb.ColorAttachments) ||
			!compatibleRefs(sa.InputAttachments, sb.InputAttachments) ||
			!compatibleRefs(sa.ResolveAttachments, sb.ResolveAttachments) {
			return false
		}
		if (sa.DepthStencilAttachment == nil) != (sb.DepthStencilAttachment == nil) {
			return false
		}
		if sa.DepthStencilAttachment != nil && sa.DepthStencilAttachment.Attachment != sb.DepthStencilAttachment.Attachment {
			return false
		}
		if sa.ViewMask != sb.ViewMask {
			return false
		}
	}
	return true
}

func compatibleRefs(a, b []AttachmentReference) bool {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	at := func(refs []AttachmentReference, i int) uint32 {
		if i < len(refs) {
			return refs[i].Attachment
		}
		return vulkan.AttachmentUnused
	}
	for i := 0; i < n; i++ {
		if at(a, i) != at(b, i) {
			return false
		}
	}
	return true
}

type FramebufferCreateInfo struct {
	RenderPass  report.Handle
	Attachments []report.Handle
	Width       uint32
	Height      uint32
	Layers      uint32
}

type Framebuffer struct {
	Node
	RenderPass  *RenderPass
	Attachments []*ImageView
	Width       uint32
	Height      uint32
	Layers      uint32
}

// RenderingAttachment is one attachment of a dynamic rendering instance.
type RenderingAttachment struct {
	View          *ImageView
	Layout        vk.ImageLayout
	ResolveView   *ImageView
	ResolveLayout vk.ImageLayout
	LoadOp        vk.AttachmentLoadOp
	StoreOp       vk.AttachmentStoreOp
}

type RenderingInfo struct {
	Flags             vulkan.RenderingFlags
	ViewMask          uint32
	LayerCount        uint32
	ColorAttachments  []RenderingAttachment
	DepthAttachment   *RenderingAttachment
	StencilAttachment *RenderingAttachment
}

func (r *RenderingInfo) ColorFormat(i int) vk.Format {
	if i >= len(r.ColorAttachments) || r.ColorAttachments[i].View == nil {
		return vk.FormatUndefined
	}
	return r.ColorAttachments[i].View.Format
}

func (r *RenderingInfo) DepthFormat() vk.Format {
	if r.DepthAttachment == nil || r.DepthAttachment.View == nil {
		return vk.FormatUndefined
	}
	return r.DepthAttachment.View.Format
}

func (r *RenderingInfo) StencilFormat() vk.Format {
	if r.StencilAttachment == nil || r.StencilAttachment.View == nil {
		return vk.FormatUndefined
	}
	return r.StencilAttachment.View.Format
}

// Samples returns the sample count of the first bound attachment.
func (r *RenderingInfo) Samples() vk.SampleCountFlagBits {
	for _, a := range r.ColorAttachments {
		if a.View != nil {
			return a.View.Image.CreateInfo.Samples
		}
	}
	for _, a := range []*RenderingAttachment{r.DepthAttachment, r.StencilAttachment} {
		if a != nil && a.View != nil {
			return a.View.Image.CreateInfo.Samples
		}
	}
	return 0
}
