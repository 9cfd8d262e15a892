package state

import (
	"sync"
	"sync/atomic"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vksync/engine/validation/imagelayout"
	"github.com/spaghettifunk/vksync/engine/validation/report"
	"github.com/spaghettifunk/vksync/engine/vulkan"
)

type CommandBufferState int

const (
	COMMAND_BUFFER_STATE_INITIAL CommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_RECORDED
	COMMAND_BUFFER_STATE_INVALID_COMPLETE
	COMMAND_BUFFER_STATE_INVALID_INCOMPLETE
	// Only reported by EffectiveState, a pending buffer stays RECORDED.
	COMMAND_BUFFER_STATE_PENDING
)

func (s CommandBufferState) String() string {
	switch s {
	case COMMAND_BUFFER_STATE_INITIAL:
		return "initial"
	case COMMAND_BUFFER_STATE_RECORDING:
		return "recording"
	case COMMAND_BUFFER_STATE_RECORDED:
		return "recorded"
	case COMMAND_BUFFER_STATE_INVALID_COMPLETE:
		return "invalid (complete)"
	case COMMAND_BUFFER_STATE_INVALID_INCOMPLETE:
		return "invalid (incomplete)"
	case COMMAND_BUFFER_STATE_PENDING:
		return "pending"
	}
	return "unknown"
}

type InheritanceRenderingInfo struct {
	Flags                   vulkan.RenderingFlags
	ViewMask                uint32
	ColorAttachmentFormats  []vk.Format
	DepthAttachmentFormat   vk.Format
	StencilAttachmentFormat vk.Format
	RasterizationSamples    vk.SampleCountFlagBits
}

type InheritanceViewportScissorInfo struct {
	ViewportScissor2D bool
	ViewportDepths    []vk.Viewport
}

type InheritanceInfo struct {
	RenderPass           *RenderPass
	Subpass              uint32
	Framebuffer          *Framebuffer
	OcclusionQueryEnable bool
	QueryFlags           vk.QueryControlFlags
	PipelineStatistics   vk.QueryPipelineStatisticFlags
	Rendering            *InheritanceRenderingInfo
	ViewportScissor      *InheritanceViewportScissorInfo
}

type CommandBufferBeginInfo struct {
	Flags       vk.CommandBufferUsageFlags
	Inheritance *InheritanceInfo
}

func (bi *CommandBufferBeginInfo) Has(bit vk.CommandBufferUsageFlagBits) bool {
	return bi.Flags&vk.CommandBufferUsageFlags(bit) != 0
}

const MaxViewports = 32

// ViewportScissorState tracks which viewport and scissor slots a recording
// defined, and which a pipeline bind or executed secondary left undefined.
type ViewportScissorState struct {
	ViewportMask           uint32
	ScissorMask            uint32
	ViewportWithCountMask  uint32
	ScissorWithCountMask   uint32
	ViewportWithCountCount uint32
	ScissorWithCountCount  uint32

	TrashedViewportMask  uint32
	TrashedScissorMask   uint32
	TrashedViewportCount bool
	TrashedScissorCount  bool

	DynamicViewports [MaxViewports]vk.Viewport
	// Viewports written by static pipeline state into trashed slots, valid
	// where StaticViewportMask is set.
	StaticViewports    [MaxViewports]vk.Viewport
	StaticViewportMask uint32

	// Consumption by draws.
	UsedViewportScissorCount uint32
	UsedDynamicViewportCount bool
	UsedDynamicScissorCount  bool

	PipelineStaticViewportCount uint32
	PipelineStaticScissorCount  uint32
	BoundDynamicViewportCount   bool
	BoundDynamicScissorCount    bool

	InheritedViewportDepths []vk.Viewport
}

type layoutMapEntry struct {
	image  *Image
	layout *imagelayout.SubresourceLayoutMap
}

type CommandBuffer struct {
	Node
	Pool  *CommandPool
	Level vk.CommandBufferLevel

	mu        sync.Mutex
	state     CommandBufferState
	BeginInfo CommandBufferBeginInfo
	inFlight  atomic.Int32
	submits   atomic.Int32

	// Number of vkCmd* calls recorded since begin.
	CommandCount uint32
	LastCommand  string

	layoutMaps  map[report.Handle]*layoutMapEntry
	layoutOrder []report.Handle

	ActiveQueries  map[QueryObject]struct{}
	StartedQueries map[QueryObject]struct{}

	linked         map[*CommandBuffer]struct{}
	children       map[report.TypedHandle]Object
	brokenBindings map[report.TypedHandle]report.LogObjectList
	brokenOrder    []report.TypedHandle

	// Render pass state.
	ActiveRenderPass      *RenderPass
	ActiveFramebuffer     *Framebuffer
	ActiveSubpass         uint32
	ActiveSubpassContents vk.SubpassContents
	ActiveAttachments     []*ImageView
	ActiveRendering       *RenderingInfo

	BoundPipelines      map[vk.PipelineBindPoint]*Pipeline
	BoundDescriptorSets map[vk.PipelineBindPoint][]*DescriptorSet
	VertexBuffers       []*Buffer
	IndexBuffer         *Buffer

	ViewportScissor ViewportScissorState

	// Secondary command buffers recorded by vkCmdExecuteCommands, in order.
	ExecutedSecondaries []*CommandBuffer
	// The primary that most recently executed this secondary.
	PrimaryCommandBuffer *CommandBuffer
}

func newCommandBuffer(h report.Handle, pool *CommandPool, level vk.CommandBufferLevel) *CommandBuffer {
	cb := &CommandBuffer{
		Node:  newNode(h, report.ObjectTypeCommandBuffer),
		Pool:  pool,
		Level: level,
	}
	cb.resetFields()
	return cb
}

func (cb *CommandBuffer) resetFields() {
	cb.BeginInfo = CommandBufferBeginInfo{}
	cb.CommandCount = 0
	cb.LastCommand = ""
	cb.layoutMaps = make(map[report.Handle]*layoutMapEntry)
	cb.layoutOrder = nil
	cb.ActiveQueries = make(map[QueryObject]struct{})
	cb.StartedQueries = make(map[QueryObject]struct{})
	cb.linked = make(map[*CommandBuffer]struct{})
	cb.children = make(map[report.TypedHandle]Object)
	cb.brokenBindings = make(map[report.TypedHandle]report.LogObjectList)
	cb.brokenOrder = nil
	cb.ActiveRenderPass = nil
	cb.ActiveFramebuffer = nil
	cb.ActiveSubpass = 0
	cb.ActiveSubpassContents = vk.SubpassContentsInline
	cb.ActiveAttachments = nil
	cb.ActiveRendering = nil
	cb.BoundPipelines = make(map[vk.PipelineBindPoint]*Pipeline)
	cb.BoundDescriptorSets = make(map[vk.PipelineBindPoint][]*DescriptorSet)
	cb.VertexBuffers = nil
	cb.IndexBuffer = nil
	cb.ViewportScissor = ViewportScissorState{}
	cb.ExecutedSecondaries = nil
	cb.PrimaryCommandBuffer = nil
}

func (cb *CommandBuffer) IsPrimary() bool {
	return cb.Level == vk.CommandBufferLevelPrimary
}

func (cb *CommandBuffer) State() CommandBufferState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// EffectiveState folds the in-flight count into the recorded state.
func (cb *CommandBuffer) EffectiveState() CommandBufferState {
	s := cb.State()
	if s == COMMAND_BUFFER_STATE_RECORDED && cb.InUse() {
		return COMMAND_BUFFER_STATE_PENDING
	}
	return s
}

func (cb *CommandBuffer) setState(s CommandBufferState) {
	cb.mu.Lock()
	cb.state = s
	cb.mu.Unlock()
}

// InUse reports whether a submission referencing the buffer is still in
// flight.
func (cb *CommandBuffer) InUse() bool {
	return cb.inFlight.Load() > 0
}

func (cb *CommandBuffer) beginUse() {
	cb.inFlight.Add(1)
	for _, sub := range cb.ExecutedSecondaries {
		sub.beginUse()
	}
}

func (cb *CommandBuffer) endUse() {
	cb.inFlight.Add(-1)
	for _, sub := range cb.ExecutedSecondaries {
		sub.endUse()
	}
}

// SubmitCount is the number of times the buffer was submitted since begin.
func (cb *CommandBuffer) SubmitCount() int {
	return int(cb.submits.Load())
}

func (cb *CommandBuffer) AddSubmit() {
	cb.submits.Add(1)
}

// Begin starts a recording. The caller resets recorded buffers first.
func (cb *CommandBuffer) Begin(info CommandBufferBeginInfo) {
	cb.mu.Lock()
	cb.state = COMMAND_BUFFER_STATE_RECORDING
	cb.mu.Unlock()

	cb.BeginInfo = info
	inh := info.Inheritance
	if cb.IsPrimary() || inh == nil {
		return
	}
	if info.Has(vk.CommandBufferUsageRenderPassContinueBit) {
		if inh.RenderPass != nil {
			cb.ActiveRenderPass = inh.RenderPass
			cb.ActiveSubpass = inh.Subpass
			cb.AddChild(inh.RenderPass)
			if inh.Framebuffer != nil {
				cb.ActiveFramebuffer = inh.Framebuffer
				cb.AddChild(inh.Framebuffer)
			}
		}
	}
	if vs := inh.ViewportScissor; vs != nil && vs.ViewportScissor2D {
		cb.ViewportScissor.InheritedViewportDepths = append([]vk.Viewport(nil), vs.ViewportDepths...)
	}
}

// End finishes the recording. An invalidated recording stays invalid.
func (cb *CommandBuffer) End() {
	cb.mu.Lock()
	if cb.state == COMMAND_BUFFER_STATE_RECORDING {
		cb.state = COMMAND_BUFFER_STATE_RECORDED
	}
	cb.mu.Unlock()
}

// Reset drops everything recorded and unlinks the buffer from the objects
// it referenced.
func (cb *CommandBuffer) Reset() {
	cb.mu.Lock()
	children := cb.children
	linked := cb.linked
	cb.state = COMMAND_BUFFER_STATE_INITIAL
	cb.mu.Unlock()

	for _, obj := range children {
		obj.base().removeParent(cb)
	}
	for other := range linked {
		other.unlink(cb)
	}
	cb.submits.Store(0)
	cb.resetFields()
}

// RecordCommand counts a vkCmd* call.
func (cb *CommandBuffer) RecordCommand(name string) {
	cb.CommandCount++
	cb.LastCommand = name
}

// AddChild makes obj a dependency of the recording.
func (cb *CommandBuffer) AddChild(obj Object) {
	cb.mu.Lock()
	cb.children[obj.Handle()] = obj
	cb.mu.Unlock()
	obj.base().addParent(cb)
}

func (cb *CommandBuffer) HasChild(h report.TypedHandle) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	_, ok := cb.children[h]
	return ok
}

// Link records that cb and other were joined by vkCmdExecuteCommands.
func (cb *CommandBuffer) Link(other *CommandBuffer) {
	cb.mu.Lock()
	cb.linked[other] = struct{}{}
	cb.mu.Unlock()
	other.mu.Lock()
	other.linked[cb] = struct{}{}
	other.mu.Unlock()
}

func (cb *CommandBuffer) unlink(other *CommandBuffer) {
	cb.mu.Lock()
	delete(cb.linked, other)
	cb.mu.Unlock()
}

func (cb *CommandBuffer) LinkedCommandBuffers() []*CommandBuffer {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	out := make([]*CommandBuffer, 0, len(cb.linked))
	for other := range cb.linked {
		out = append(out, other)
	}
	return out
}

func (cb *CommandBuffer) IsLinkedTo(other *CommandBuffer) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	_, ok := cb.linked[other]
	return ok
}

// BrokenBinding is an object whose destruction or update invalidated the
// recording, together with the chain of objects that referenced it.
type BrokenBinding struct {
	Object  report.TypedHandle
	Objects report.LogObjectList
}

func (cb *CommandBuffer) BrokenBindings() []BrokenBinding {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	out := make([]BrokenBinding, 0, len(cb.brokenOrder))
	for _, h := range cb.brokenOrder {
		out = append(out, BrokenBinding{Object: h, Objects: cb.brokenBindings[h]})
	}
	return out
}

func (cb *CommandBuffer) notifyInvalidate(chain report.LogObjectList, unlink bool) {
	cb.mu.Lock()
	switch cb.state {
	case COMMAND_BUFFER_STATE_RECORDING:
		cb.state = COMMAND_BUFFER_STATE_INVALID_INCOMPLETE
	case COMMAND_BUFFER_STATE_RECORDED:
		cb.state = COMMAND_BUFFER_STATE_INVALID_COMPLETE
	}
	head := chain.Head()
	if _, exists := cb.brokenBindings[head]; !exists {
		cb.brokenOrder = append(cb.brokenOrder, head)
	}
	cb.brokenBindings[head] = chain.Clone()
	var unlinked []*CommandBuffer
	if unlink {
		for _, h := range chain {
			obj, ok := cb.children[h]
			if !ok {
				continue
			}
			delete(cb.children, h)
			switch o := obj.(type) {
			case *Image:
				delete(cb.layoutMaps, h.Handle)
			case *CommandBuffer:
				delete(cb.linked, o)
				unlinked = append(unlinked, o)
			}
		}
	}
	cb.mu.Unlock()

	for _, o := range unlinked {
		o.unlink(cb)
	}
	cb.Node.notifyInvalidate(chain.Clone().Add(cb.Handle()), unlink)
}

// ImageLayoutMap returns the recording's layout map for img, or nil.
func (cb *CommandBuffer) ImageLayoutMap(img *Image) *imagelayout.SubresourceLayoutMap {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if e, ok := cb.layoutMaps[img.Handle().Handle]; ok {
		return e.layout
	}
	return nil
}

// ImageLayoutMapOrCreate returns the layout map for img, creating it and
// binding the image on first use.
func (cb *CommandBuffer) ImageLayoutMapOrCreate(img *Image) *imagelayout.SubresourceLayoutMap {
	if m := cb.ImageLayoutMap(img); m != nil {
		return m
	}
	m := imagelayout.NewSubresourceLayoutMap(img.Handle().Handle, img.Encoder)
	cb.mu.Lock()
	cb.layoutMaps[img.Handle().Handle] = &layoutMapEntry{image: img, layout: m}
	cb.layoutOrder = append(cb.layoutOrder, img.Handle().Handle)
	cb.mu.Unlock()
	cb.AddChild(img)
	return m
}

// ForEachImageLayoutMap visits the layout maps in first-use order.
func (cb *CommandBuffer) ForEachImageLayoutMap(fn func(img *Image, m *imagelayout.SubresourceLayoutMap)) {
	cb.mu.Lock()
	entries := make([]*layoutMapEntry, 0, len(cb.layoutOrder))
	for _, h := range cb.layoutOrder {
		if e, ok := cb.layoutMaps[h]; ok {
			entries = append(entries, e)
		}
	}
	cb.mu.Unlock()
	for _, e := range entries {
		fn(e.image, e.layout)
	}
}

// SetImageLayout records a transition of rng to layout. expected seeds the
// initial layout of subresources first touched here.
func (cb *CommandBuffer) SetImageLayout(img *Image, rng vk.ImageSubresourceRange, layout, expected vk.ImageLayout) {
	m := cb.ImageLayoutMapOrCreate(img)
	m.SetSubresourceRangeLayout(img.NormalizeSubresourceRange(rng), layout, expected)
}

// SetImageInitialLayout records that the command expects rng in layout.
func (cb *CommandBuffer) SetImageInitialLayout(img *Image, rng vk.ImageSubresourceRange, layout vk.ImageLayout) {
	m := cb.ImageLayoutMapOrCreate(img)
	m.SetSubresourceRangeInitialLayout(img.NormalizeSubresourceRange(rng), layout, nil)
}

func (cb *CommandBuffer) SetImageInitialLayoutLayers(img *Image, layers vk.ImageSubresourceLayers, layout vk.ImageLayout) {
	cb.SetImageInitialLayout(img, img.Encoder.NormalizeLayers(layers), layout)
}

// SetImageViewInitialLayout records the layout a view is expected in,
// remembering the view that established it.
func (cb *CommandBuffer) SetImageViewInitialLayout(view *ImageView, layout vk.ImageLayout) {
	m := cb.ImageLayoutMapOrCreate(view.Image)
	state := &imagelayout.InitialLayoutState{
		ImageView:  view.Handle().Handle,
		AspectMask: view.Range.AspectMask,
	}
	m.SetSubresourceRangeInitialLayout(view.Range, layout, state)
	cb.AddChild(view)
}

// SetImageViewLayout transitions a view. A valid stencilLayout applies to
// the stencil aspect separately.
func (cb *CommandBuffer) SetImageViewLayout(view *ImageView, layout, stencilLayout vk.ImageLayout) {
	rng := view.Range
	if stencilLayout != vulkan.InvalidLayout && rng.AspectMask&vulkan.ImageAspectStencil != 0 && rng.AspectMask&vulkan.ImageAspectDepth != 0 {
		depth := rng
		depth.AspectMask = vulkan.ImageAspectDepth
		cb.SetImageLayout(view.Image, depth, layout, vulkan.InvalidLayout)
		stencil := rng
		stencil.AspectMask = vulkan.ImageAspectStencil
		cb.SetImageLayout(view.Image, stencil, stencilLayout, vulkan.InvalidLayout)
		return
	}
	cb.SetImageLayout(view.Image, rng, layout, vulkan.InvalidLayout)
}

// BeginQuery marks a query active and started.
func (cb *CommandBuffer) BeginQuery(q QueryObject) {
	cb.ActiveQueries[q] = struct{}{}
	cb.StartedQueries[q] = struct{}{}
	cb.AddChild(q.Pool)
}

func (cb *CommandBuffer) EndQuery(q QueryObject) {
	delete(cb.ActiveQueries, q)
}

// HasActiveQueryOfType reports whether a query of type t is active.
func (cb *CommandBuffer) HasActiveQueryOfType(t vk.QueryType) (QueryObject, bool) {
	for q := range cb.ActiveQueries {
		if q.Type() == t {
			return q, true
		}
	}
	return QueryObject{}, false
}

func (cb *CommandBuffer) BeginRenderPass(rp *RenderPass, fb *Framebuffer, contents vk.SubpassContents) {
	cb.ActiveRenderPass = rp
	cb.ActiveFramebuffer = fb
	cb.ActiveSubpass = 0
	cb.ActiveSubpassContents = contents
	cb.ActiveAttachments = nil
	cb.AddChild(rp)
	if fb != nil {
		cb.ActiveAttachments = fb.Attachments
		cb.AddChild(fb)
	}
}

func (cb *CommandBuffer) NextSubpass(contents vk.SubpassContents) {
	cb.ActiveSubpass++
	cb.ActiveSubpassContents = contents
}

func (cb *CommandBuffer) EndRenderPass() {
	cb.ActiveRenderPass = nil
	cb.ActiveFramebuffer = nil
	cb.ActiveSubpass = 0
	cb.ActiveAttachments = nil
}

func (cb *CommandBuffer) BeginRendering(info *RenderingInfo) {
	cb.ActiveRendering = info
	for _, a := range info.ColorAttachments {
		if a.View != nil {
			cb.AddChild(a.View)
		}
	}
}

func (cb *CommandBuffer) EndRendering() {
	cb.ActiveRendering = nil
}

// InRenderPass reports whether a render pass or dynamic rendering instance
// is active, including one inherited by a render pass continue secondary.
func (cb *CommandBuffer) InRenderPass() bool {
	return cb.ActiveRenderPass != nil || cb.ActiveRendering != nil
}

func (cb *CommandBuffer) BindPipeline(p *Pipeline) {
	cb.BoundPipelines[p.CreateInfo.BindPoint] = p
	cb.AddChild(p)
	if !p.IsGraphics() {
		return
	}
	vs := &cb.ViewportScissor
	ci := &p.CreateInfo
	raster := p.RasterizationEnabled()
	vs.BoundDynamicViewportCount = p.DynamicViewportCount()
	vs.BoundDynamicScissorCount = p.DynamicScissorCount()

	vs.PipelineStaticViewportCount = 0
	vs.PipelineStaticScissorCount = 0
	if raster && !vs.BoundDynamicViewportCount {
		vs.PipelineStaticViewportCount = ci.ViewportCount
	}
	if raster && !vs.BoundDynamicScissorCount {
		vs.PipelineStaticScissorCount = ci.ScissorCount
	}

	if !vs.BoundDynamicViewportCount {
		vs.TrashedViewportCount = true
		if raster && p.StaticViewports() {
			bits := countMask(ci.ViewportCount)
			vs.TrashedViewportMask |= bits
			for i := uint32(0); i < ci.ViewportCount && i < MaxViewports; i++ {
				if int(i) < len(ci.Viewports) {
					vs.StaticViewports[i] = ci.Viewports[i]
					vs.StaticViewportMask |= 1 << i
				} else {
					vs.StaticViewportMask &^= 1 << i
				}
			}
		}
	}
	if !vs.BoundDynamicScissorCount {
		vs.TrashedScissorCount = true
		if raster && p.StaticScissors() {
			vs.TrashedScissorMask |= countMask(ci.ScissorCount)
		}
	}
}

func (cb *CommandBuffer) BindDescriptorSets(bindPoint vk.PipelineBindPoint, first uint32, sets []*DescriptorSet) {
	bound := cb.BoundDescriptorSets[bindPoint]
	for need := int(first) + len(sets); len(bound) < need; {
		bound = append(bound, nil)
	}
	for i, ds := range sets {
		bound[int(first)+i] = ds
		cb.AddChild(ds)
	}
	cb.BoundDescriptorSets[bindPoint] = bound
}

func (cb *CommandBuffer) BindVertexBuffers(first uint32, buffers []*Buffer) {
	for need := int(first) + len(buffers); len(cb.VertexBuffers) < need; {
		cb.VertexBuffers = append(cb.VertexBuffers, nil)
	}
	for i, b := range buffers {
		cb.VertexBuffers[int(first)+i] = b
		if b != nil {
			cb.AddChild(b)
		}
	}
}

func (cb *CommandBuffer) BindIndexBuffer(b *Buffer) {
	cb.IndexBuffer = b
	cb.AddChild(b)
}

func countMask(n uint32) uint32 {
	if n >= MaxViewports {
		return ^uint32(0)
	}
	return (uint32(1) << n) - 1
}

func (cb *CommandBuffer) SetViewport(first uint32, viewports []vk.Viewport) {
	vs := &cb.ViewportScissor
	for i, vp := range viewports {
		slot := first + uint32(i)
		if slot >= MaxViewports {
			break
		}
		bit := uint32(1) << slot
		vs.ViewportMask |= bit
		vs.TrashedViewportMask &^= bit
		vs.StaticViewportMask &^= bit
		vs.DynamicViewports[slot] = vp
	}
}

func (cb *CommandBuffer) SetViewportWithCount(viewports []vk.Viewport) {
	vs := &cb.ViewportScissor
	count := uint32(len(viewports))
	bits := countMask(count)
	vs.ViewportWithCountMask |= bits
	vs.TrashedViewportMask &^= bits
	vs.StaticViewportMask &^= bits
	vs.ViewportWithCountCount = count
	vs.TrashedViewportCount = false
	for i, vp := range viewports {
		if i >= MaxViewports {
			break
		}
		vs.DynamicViewports[i] = vp
	}
}

func (cb *CommandBuffer) SetScissor(first, count uint32) {
	vs := &cb.ViewportScissor
	bits := countMask(count) << first
	vs.ScissorMask |= bits
	vs.TrashedScissorMask &^= bits
}

func (cb *CommandBuffer) SetScissorWithCount(count uint32) {
	vs := &cb.ViewportScissor
	bits := countMask(count)
	vs.ScissorWithCountMask |= bits
	vs.TrashedScissorMask &^= bits
	vs.ScissorWithCountCount = count
	vs.TrashedScissorCount = false
}

// RecordDraw accounts for the viewports and scissors a draw consumes.
func (cb *CommandBuffer) RecordDraw() {
	p := cb.BoundPipelines[vk.PipelineBindPointGraphics]
	if p == nil || !p.RasterizationEnabled() {
		return
	}
	vs := &cb.ViewportScissor
	if vs.PipelineStaticViewportCount > vs.UsedViewportScissorCount {
		vs.UsedViewportScissorCount = vs.PipelineStaticViewportCount
	}
	if vs.PipelineStaticScissorCount > vs.UsedViewportScissorCount {
		vs.UsedViewportScissorCount = vs.PipelineStaticScissorCount
	}
	vs.UsedDynamicViewportCount = vs.UsedDynamicViewportCount || vs.BoundDynamicViewportCount
	vs.UsedDynamicScissorCount = vs.UsedDynamicScissorCount || vs.BoundDynamicScissorCount
}

// ExecuteCommands folds the secondaries into the primary recording.
func (cb *CommandBuffer) ExecuteCommands(secondaries []*CommandBuffer) {
	for _, sub := range secondaries {
		if !sub.BeginInfo.Has(vk.CommandBufferUsageSimultaneousUseBit) &&
			cb.BeginInfo.Has(vk.CommandBufferUsageSimultaneousUseBit) {
			cb.BeginInfo.Flags &^= vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
		}
		sub.ForEachImageLayoutMap(func(img *Image, m *imagelayout.SubresourceLayoutMap) {
			cb.ImageLayoutMapOrCreate(img).UpdateFrom(m)
		})
		for q := range sub.StartedQueries {
			cb.StartedQueries[q] = struct{}{}
		}
		cb.Link(sub)
		cb.AddChild(sub)
		sub.PrimaryCommandBuffer = cb
		cb.ExecutedSecondaries = append(cb.ExecutedSecondaries, sub)
	}
	// Executing secondaries leaves the primary's viewport and scissor
	// state undefined.
	vs := &cb.ViewportScissor
	vs.TrashedViewportMask = ^uint32(0)
	vs.TrashedScissorMask = ^uint32(0)
	vs.TrashedViewportCount = true
	vs.TrashedScissorCount = true
	vs.StaticViewportMask = 0
}
