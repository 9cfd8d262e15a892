package state

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vksync/engine/validation/report"
	"github.com/spaghettifunk/vksync/engine/vulkan"
)

// PipelineRenderingInfo carries the attachment formats of a pipeline
// created for dynamic rendering.
type PipelineRenderingInfo struct {
	ViewMask                uint32
	ColorAttachmentFormats  []vk.Format
	DepthAttachmentFormat   vk.Format
	StencilAttachmentFormat vk.Format
}

type PipelineCreateInfo struct {
	BindPoint     vk.PipelineBindPoint
	DynamicStates []vk.DynamicState

	// Viewport state, ignored for compute pipelines.
	ViewportCount     uint32
	ScissorCount      uint32
	Viewports         []vk.Viewport
	Scissors          []vk.Rect2D
	RasterizerDiscard bool

	RenderPass report.Handle
	Subpass    uint32
	Rendering  *PipelineRenderingInfo
}

type Pipeline struct {
	Node
	CreateInfo PipelineCreateInfo
	RenderPass *RenderPass
	dynamic    map[vk.DynamicState]struct{}
}

func newPipeline(h report.Handle, ci PipelineCreateInfo, rp *RenderPass) *Pipeline {
	p := &Pipeline{
		Node:       newNode(h, report.ObjectTypePipeline),
		CreateInfo: ci,
		RenderPass: rp,
		dynamic:    make(map[vk.DynamicState]struct{}, len(ci.DynamicStates)),
	}
	for _, s := range ci.DynamicStates {
		p.dynamic[s] = struct{}{}
	}
	return p
}

func (p *Pipeline) IsDynamic(s vk.DynamicState) bool {
	_, ok := p.dynamic[s]
	return ok
}

func (p *Pipeline) IsGraphics() bool {
	return p.CreateInfo.BindPoint == vk.PipelineBindPointGraphics
}

func (p *Pipeline) RasterizationEnabled() bool {
	return p.IsGraphics() && !p.CreateInfo.RasterizerDiscard
}

// DynamicViewportCount reports whether the viewport count is set by
// vkCmdSetViewportWithCount rather than baked into the pipeline.
func (p *Pipeline) DynamicViewportCount() bool {
	return p.IsDynamic(vulkan.DynamicStateViewportWithCount)
}

func (p *Pipeline) DynamicScissorCount() bool {
	return p.IsDynamic(vulkan.DynamicStateScissorWithCount)
}

// StaticViewports reports whether binding the pipeline overwrites the
// viewport slots it declares.
func (p *Pipeline) StaticViewports() bool {
	return !p.IsDynamic(vk.DynamicStateViewport) && !p.DynamicViewportCount()
}

func (p *Pipeline) StaticScissors() bool {
	return !p.IsDynamic(vk.DynamicStateScissor) && !p.DynamicScissorCount()
}
