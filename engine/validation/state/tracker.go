package state

import (
	"sort"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"

	"github.com/spaghettifunk/vksync/engine/core"
	"github.com/spaghettifunk/vksync/engine/validation/report"
)

// Features are the device features the checks depend on.
type Features struct {
	Synchronization2            bool
	InheritedQueries            bool
	InheritedViewportScissor2D  bool
	SeparateDepthStencilLayouts bool
	SharedPresentableImage      bool
	OcclusionQueryPrecise       bool
}

// Tracker owns every state object of one device.
type Tracker struct {
	Features Features
	Events   *core.EventBus

	locks *LockPool

	images         map[report.Handle]*Image
	imageViews     map[report.Handle]*ImageView
	buffers        map[report.Handle]*Buffer
	swapchains     map[report.Handle]*Swapchain
	commandPools   map[report.Handle]*CommandPool
	commandBuffers map[report.Handle]*CommandBuffer
	renderPasses   map[report.Handle]*RenderPass
	framebuffers   map[report.Handle]*Framebuffer
	pipelines      map[report.Handle]*Pipeline
	descriptorSets map[report.Handle]*DescriptorSet
	queryPools     map[report.Handle]*QueryPool
	events         map[report.Handle]*Event
	fences         map[report.Handle]*Fence
	semaphores     map[report.Handle]*Semaphore
	queues         map[report.Handle]*Queue
}

func NewTracker(features Features, events *core.EventBus) *Tracker {
	if events == nil {
		events = core.NewEventBus()
	}
	t := &Tracker{
		Features:       features,
		Events:         events,
		locks:          NewLockPool(),
		images:         make(map[report.Handle]*Image),
		imageViews:     make(map[report.Handle]*ImageView),
		buffers:        make(map[report.Handle]*Buffer),
		swapchains:     make(map[report.Handle]*Swapchain),
		commandPools:   make(map[report.Handle]*CommandPool),
		commandBuffers: make(map[report.Handle]*CommandBuffer),
		renderPasses:   make(map[report.Handle]*RenderPass),
		framebuffers:   make(map[report.Handle]*Framebuffer),
		pipelines:      make(map[report.Handle]*Pipeline),
		descriptorSets: make(map[report.Handle]*DescriptorSet),
		queryPools:     make(map[report.Handle]*QueryPool),
		events:         make(map[report.Handle]*Event),
		fences:         make(map[report.Handle]*Fence),
		semaphores:     make(map[report.Handle]*Semaphore),
		queues:         make(map[report.Handle]*Queue),
	}
	for _, code := range []core.SystemEventCode{
		core.EVENT_CODE_OBJECT_DESTROYED,
		core.EVENT_CODE_DESCRIPTOR_SET_UPDATED,
		core.EVENT_CODE_COMMAND_BUFFER_RERECORDED,
	} {
		t.Events.Register(code, t, onInvalidatingEvent)
	}
	return t
}

// Close unregisters the tracker from the event bus.
func (t *Tracker) Close() {
	t.Events.Unregister(core.EVENT_CODE_OBJECT_DESTROYED, t)
	t.Events.Unregister(core.EVENT_CODE_DESCRIPTOR_SET_UPDATED, t)
	t.Events.Unregister(core.EVENT_CODE_COMMAND_BUFFER_RERECORDED, t)
}

// onInvalidatingEvent turns the recordings that reference the object
// invalid. Destruction and rerecording also drop the references; a
// descriptor update keeps them.
func onInvalidatingEvent(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	obj, ok := data.Object.(Object)
	if !ok {
		return false
	}
	unlink := code != core.EVENT_CODE_DESCRIPTOR_SET_UPDATED
	obj.base().notifyInvalidate(report.Objects(obj.Handle()), unlink)
	return false
}

func (t *Tracker) fire(code core.SystemEventCode, obj Object) {
	ctx := core.EventContext{Object: obj}
	ctx.Data.U64[0] = uint64(obj.Handle().Handle)
	ctx.Data.U32[0] = uint32(obj.Handle().Type)
	t.Events.Fire(code, t, ctx)
}

func lookup[T any](t *Tracker, group LockGroup, table map[report.Handle]T, h report.Handle, kind report.ObjectType) (T, error) {
	var out T
	err := t.locks.SafeCall(group, func() error {
		obj, ok := table[h]
		if !ok {
			return errors.Wrapf(core.ErrUnknownHandle, "%s 0x%x", kind, uint64(h))
		}
		out = obj
		return nil
	})
	return out, err
}

func insert[T any](t *Tracker, group LockGroup, table map[report.Handle]T, h report.Handle, kind report.ObjectType, obj T) error {
	return t.locks.SafeCall(group, func() error {
		if h == report.NullHandle {
			return errors.Wrapf(core.ErrUnknownHandle, "null %s", kind)
		}
		if _, exists := table[h]; exists {
			return errors.Wrapf(core.ErrDuplicateHandle, "%s 0x%x", kind, uint64(h))
		}
		table[h] = obj
		return nil
	})
}

func remove[T Object](t *Tracker, group LockGroup, table map[report.Handle]T, h report.Handle, kind report.ObjectType) (T, error) {
	var out T
	err := t.locks.SafeCall(group, func() error {
		obj, ok := table[h]
		if !ok {
			return errors.Wrapf(core.ErrUnknownHandle, "%s 0x%x", kind, uint64(h))
		}
		delete(table, h)
		out = obj
		return nil
	})
	return out, err
}

func (t *Tracker) destroyed(obj Object) {
	obj.base().markDestroyed()
	t.fire(core.EVENT_CODE_OBJECT_DESTROYED, obj)
}

func (t *Tracker) CreateImage(h report.Handle, ci ImageCreateInfo) (*Image, error) {
	img := newImage(h, ci)
	if err := insert(t, ImageManagement, t.images, h, report.ObjectTypeImage, img); err != nil {
		return nil, err
	}
	// An UNDEFINED image has no prior layout until its first submission
	// commits one.
	if ci.InitialLayout != vk.ImageLayoutUndefined {
		img.GlobalLayouts.SetSubresourceRangeLayout(img.FullRange(), ci.InitialLayout)
	}
	return img, nil
}

func (t *Tracker) Image(h report.Handle) (*Image, error) {
	return lookup(t, ImageManagement, t.images, h, report.ObjectTypeImage)
}

func (t *Tracker) DestroyImage(h report.Handle) error {
	img, err := remove(t, ImageManagement, t.images, h, report.ObjectTypeImage)
	if err != nil {
		return err
	}
	t.destroyed(img)
	return nil
}

// Images returns the live images ordered by handle.
func (t *Tracker) Images() []*Image {
	var out []*Image
	_ = t.locks.SafeCall(ImageManagement, func() error {
		out = make([]*Image, 0, len(t.images))
		for _, img := range t.images {
			out = append(out, img)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Handle().Handle < out[j].Handle().Handle })
	return out
}

// CreateSwapchain registers the presentable images of a swapchain. Their
// layouts are unknown until first use.
func (t *Tracker) CreateSwapchain(h report.Handle, images []report.Handle, ci ImageCreateInfo, sharedPresent bool) (*Swapchain, error) {
	sc := &Swapchain{
		Node:          newNode(h, report.ObjectTypeSwapchain),
		SharedPresent: sharedPresent,
	}
	if err := insert(t, SwapchainManagement, t.swapchains, h, report.ObjectTypeSwapchain, sc); err != nil {
		return nil, err
	}
	for _, ih := range images {
		img := newImage(ih, ci)
		img.SharedPresentable = sharedPresent
		img.Swapchain = h
		if err := insert(t, ImageManagement, t.images, ih, report.ObjectTypeImage, img); err != nil {
			return nil, err
		}
		sc.Images = append(sc.Images, img)
	}
	return sc, nil
}

func (t *Tracker) DestroySwapchain(h report.Handle) error {
	sc, err := remove(t, SwapchainManagement, t.swapchains, h, report.ObjectTypeSwapchain)
	if err != nil {
		return err
	}
	for _, img := range sc.Images {
		if _, err := remove(t, ImageManagement, t.images, img.Handle().Handle, report.ObjectTypeImage); err == nil {
			t.destroyed(img)
		}
	}
	t.destroyed(sc)
	return nil
}

func (t *Tracker) CreateImageView(h report.Handle, ci ImageViewCreateInfo) (*ImageView, error) {
	img, err := t.Image(ci.Image)
	if err != nil {
		return nil, err
	}
	view := newImageView(h, img, ci)
	if err := insert(t, ImageManagement, t.imageViews, h, report.ObjectTypeImageView, view); err != nil {
		return nil, err
	}
	return view, nil
}

func (t *Tracker) ImageView(h report.Handle) (*ImageView, error) {
	return lookup(t, ImageManagement, t.imageViews, h, report.ObjectTypeImageView)
}

func (t *Tracker) DestroyImageView(h report.Handle) error {
	view, err := remove(t, ImageManagement, t.imageViews, h, report.ObjectTypeImageView)
	if err != nil {
		return err
	}
	t.destroyed(view)
	return nil
}

func (t *Tracker) CreateBuffer(h report.Handle, ci BufferCreateInfo) (*Buffer, error) {
	b := newBuffer(h, ci)
	if err := insert(t, BufferManagement, t.buffers, h, report.ObjectTypeBuffer, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (t *Tracker) Buffer(h report.Handle) (*Buffer, error) {
	return lookup(t, BufferManagement, t.buffers, h, report.ObjectTypeBuffer)
}

func (t *Tracker) DestroyBuffer(h report.Handle) error {
	b, err := remove(t, BufferManagement, t.buffers, h, report.ObjectTypeBuffer)
	if err != nil {
		return err
	}
	t.destroyed(b)
	return nil
}

func (t *Tracker) CreateCommandPool(h report.Handle, ci CommandPoolCreateInfo) (*CommandPool, error) {
	p := newCommandPool(h, ci)
	if err := insert(t, CommandPoolManagement, t.commandPools, h, report.ObjectTypeCommandPool, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (t *Tracker) CommandPool(h report.Handle) (*CommandPool, error) {
	return lookup(t, CommandPoolManagement, t.commandPools, h, report.ObjectTypeCommandPool)
}

// DestroyCommandPool frees every command buffer of the pool first.
func (t *Tracker) DestroyCommandPool(h report.Handle) error {
	p, err := t.CommandPool(h)
	if err != nil {
		return err
	}
	for _, cb := range p.CommandBuffers() {
		if err := t.FreeCommandBuffer(cb); err != nil {
			return err
		}
	}
	if _, err := remove(t, CommandPoolManagement, t.commandPools, h, report.ObjectTypeCommandPool); err != nil {
		return err
	}
	t.destroyed(p)
	return nil
}

// ResetCommandPool resets every command buffer of the pool.
func (t *Tracker) ResetCommandPool(p *CommandPool) {
	for _, cb := range p.CommandBuffers() {
		t.ResetCommandBuffer(cb)
	}
}

func (t *Tracker) AllocateCommandBuffers(pool report.Handle, level vk.CommandBufferLevel, handles []report.Handle) ([]*CommandBuffer, error) {
	p, err := t.CommandPool(pool)
	if err != nil {
		return nil, err
	}
	out := make([]*CommandBuffer, 0, len(handles))
	for _, h := range handles {
		cb := newCommandBuffer(h, p, level)
		if err := insert(t, CommandBufferManagement, t.commandBuffers, h, report.ObjectTypeCommandBuffer, cb); err != nil {
			return nil, err
		}
		p.add(cb)
		out = append(out, cb)
	}
	return out, nil
}

func (t *Tracker) CommandBuffer(h report.Handle) (*CommandBuffer, error) {
	return lookup(t, CommandBufferManagement, t.commandBuffers, h, report.ObjectTypeCommandBuffer)
}

func (t *Tracker) FreeCommandBuffer(cb *CommandBuffer) error {
	if _, err := remove(t, CommandBufferManagement, t.commandBuffers, cb.Handle().Handle, report.ObjectTypeCommandBuffer); err != nil {
		return err
	}
	cb.Pool.remove(cb)
	cb.Reset()
	t.destroyed(cb)
	return nil
}

// BeginCommandBuffer starts a recording, implicitly resetting a buffer that
// was recorded before.
func (t *Tracker) BeginCommandBuffer(cb *CommandBuffer, info CommandBufferBeginInfo) {
	if cb.State() != COMMAND_BUFFER_STATE_INITIAL {
		t.ResetCommandBuffer(cb)
	}
	cb.Begin(info)
}

func (t *Tracker) ResetCommandBuffer(cb *CommandBuffer) {
	cb.Reset()
	t.fire(core.EVENT_CODE_COMMAND_BUFFER_RERECORDED, cb)
}

func (t *Tracker) CreateRenderPass(h report.Handle, ci RenderPassCreateInfo) (*RenderPass, error) {
	rp := newRenderPass(h, ci)
	if err := insert(t, RenderpassManagement, t.renderPasses, h, report.ObjectTypeRenderPass, rp); err != nil {
		return nil, err
	}
	return rp, nil
}

func (t *Tracker) RenderPass(h report.Handle) (*RenderPass, error) {
	return lookup(t, RenderpassManagement, t.renderPasses, h, report.ObjectTypeRenderPass)
}

func (t *Tracker) DestroyRenderPass(h report.Handle) error {
	rp, err := remove(t, RenderpassManagement, t.renderPasses, h, report.ObjectTypeRenderPass)
	if err != nil {
		return err
	}
	t.destroyed(rp)
	return nil
}

func (t *Tracker) CreateFramebuffer(h report.Handle, ci FramebufferCreateInfo) (*Framebuffer, error) {
	rp, err := t.RenderPass(ci.RenderPass)
	if err != nil {
		return nil, err
	}
	fb := &Framebuffer{
		Node:       newNode(h, report.ObjectTypeFramebuffer),
		RenderPass: rp,
		Width:      ci.Width,
		Height:     ci.Height,
		Layers:     ci.Layers,
	}
	for _, vh := range ci.Attachments {
		view, err := t.ImageView(vh)
		if err != nil {
			return nil, err
		}
		fb.Attachments = append(fb.Attachments, view)
	}
	if err := insert(t, RenderpassManagement, t.framebuffers, h, report.ObjectTypeFramebuffer, fb); err != nil {
		return nil, err
	}
	return fb, nil
}

func (t *Tracker) Framebuffer(h report.Handle) (*Framebuffer, error) {
	return lookup(t, RenderpassManagement, t.framebuffers, h, report.ObjectTypeFramebuffer)
}

func (t *Tracker) DestroyFramebuffer(h report.Handle) error {
	fb, err := remove(t, RenderpassManagement, t.framebuffers, h, report.ObjectTypeFramebuffer)
	if err != nil {
		return err
	}
	t.destroyed(fb)
	return nil
}

func (t *Tracker) CreatePipeline(h report.Handle, ci PipelineCreateInfo) (*Pipeline, error) {
	var rp *RenderPass
	if ci.RenderPass != report.NullHandle {
		var err error
		if rp, err = t.RenderPass(ci.RenderPass); err != nil {
			return nil, err
		}
	}
	p := newPipeline(h, ci, rp)
	if err := insert(t, PipelineManagement, t.pipelines, h, report.ObjectTypePipeline, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (t *Tracker) Pipeline(h report.Handle) (*Pipeline, error) {
	return lookup(t, PipelineManagement, t.pipelines, h, report.ObjectTypePipeline)
}

func (t *Tracker) DestroyPipeline(h report.Handle) error {
	p, err := remove(t, PipelineManagement, t.pipelines, h, report.ObjectTypePipeline)
	if err != nil {
		return err
	}
	t.destroyed(p)
	return nil
}

func (t *Tracker) CreateDescriptorSet(h report.Handle) (*DescriptorSet, error) {
	ds := newDescriptorSet(h)
	if err := insert(t, DescriptorManagement, t.descriptorSets, h, report.ObjectTypeDescriptorSet, ds); err != nil {
		return nil, err
	}
	return ds, nil
}

func (t *Tracker) DescriptorSet(h report.Handle) (*DescriptorSet, error) {
	return lookup(t, DescriptorManagement, t.descriptorSets, h, report.ObjectTypeDescriptorSet)
}

// UpdateDescriptorSet writes bindings and invalidates recordings that
// bound the set.
func (t *Tracker) UpdateDescriptorSet(ds *DescriptorSet, bindings []DescriptorBinding) {
	for _, b := range bindings {
		ds.write(b)
	}
	t.fire(core.EVENT_CODE_DESCRIPTOR_SET_UPDATED, ds)
}

func (t *Tracker) FreeDescriptorSet(h report.Handle) error {
	ds, err := remove(t, DescriptorManagement, t.descriptorSets, h, report.ObjectTypeDescriptorSet)
	if err != nil {
		return err
	}
	t.destroyed(ds)
	return nil
}

func (t *Tracker) CreateQueryPool(h report.Handle, ci QueryPoolCreateInfo) (*QueryPool, error) {
	qp := newQueryPool(h, ci)
	if err := insert(t, QueryManagement, t.queryPools, h, report.ObjectTypeQueryPool, qp); err != nil {
		return nil, err
	}
	return qp, nil
}

func (t *Tracker) QueryPool(h report.Handle) (*QueryPool, error) {
	return lookup(t, QueryManagement, t.queryPools, h, report.ObjectTypeQueryPool)
}

func (t *Tracker) DestroyQueryPool(h report.Handle) error {
	qp, err := remove(t, QueryManagement, t.queryPools, h, report.ObjectTypeQueryPool)
	if err != nil {
		return err
	}
	t.destroyed(qp)
	return nil
}

func (t *Tracker) CreateEvent(h report.Handle) (*Event, error) {
	e := newEvent(h)
	if err := insert(t, SynchronizationManagement, t.events, h, report.ObjectTypeEvent, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (t *Tracker) Event(h report.Handle) (*Event, error) {
	return lookup(t, SynchronizationManagement, t.events, h, report.ObjectTypeEvent)
}

func (t *Tracker) DestroyEvent(h report.Handle) error {
	e, err := remove(t, SynchronizationManagement, t.events, h, report.ObjectTypeEvent)
	if err != nil {
		return err
	}
	t.destroyed(e)
	return nil
}

func (t *Tracker) CreateFence(h report.Handle, signaled bool) (*Fence, error) {
	f := newFence(h, signaled)
	if err := insert(t, SynchronizationManagement, t.fences, h, report.ObjectTypeFence, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (t *Tracker) Fence(h report.Handle) (*Fence, error) {
	return lookup(t, SynchronizationManagement, t.fences, h, report.ObjectTypeFence)
}

func (t *Tracker) DestroyFence(h report.Handle) error {
	f, err := remove(t, SynchronizationManagement, t.fences, h, report.ObjectTypeFence)
	if err != nil {
		return err
	}
	t.destroyed(f)
	return nil
}

func (t *Tracker) CreateSemaphore(h report.Handle) (*Semaphore, error) {
	s := newSemaphore(h)
	if err := insert(t, SynchronizationManagement, t.semaphores, h, report.ObjectTypeSemaphore, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (t *Tracker) Semaphore(h report.Handle) (*Semaphore, error) {
	return lookup(t, SynchronizationManagement, t.semaphores, h, report.ObjectTypeSemaphore)
}

func (t *Tracker) DestroySemaphore(h report.Handle) error {
	s, err := remove(t, SynchronizationManagement, t.semaphores, h, report.ObjectTypeSemaphore)
	if err != nil {
		return err
	}
	t.destroyed(s)
	return nil
}

func (t *Tracker) CreateQueue(h report.Handle, family, index uint32, protected bool) (*Queue, error) {
	q := newQueue(h, family, index, protected)
	if err := insert(t, QueueManagement, t.queues, h, report.ObjectTypeQueue, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (t *Tracker) Queue(h report.Handle) (*Queue, error) {
	return lookup(t, QueueManagement, t.queues, h, report.ObjectTypeQueue)
}

// Queues returns every queue ordered by handle.
func (t *Tracker) Queues() []*Queue {
	var out []*Queue
	_ = t.locks.SafeCall(QueueManagement, func() error {
		out = make([]*Queue, 0, len(t.queues))
		for _, q := range t.queues {
			out = append(out, q)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Handle().Handle < out[j].Handle().Handle })
	return out
}

// QueueSubmit records the submissions of one vkQueueSubmit call. Checks
// are expected to have run already.
func (t *Tracker) QueueSubmit(q *Queue, subs []*Submission) []uint64 {
	seqs := make([]uint64, 0, len(subs))
	_ = t.locks.SafeQueueCall(uint64(q.Handle().Handle), func() error {
		for _, sub := range subs {
			for _, cb := range sub.CommandBuffers {
				cb.AddSubmit()
			}
			seqs = append(seqs, q.Submit(sub))
		}
		return nil
	})
	return seqs
}

func (t *Tracker) WaitForFences(fences []*Fence) []*Fence {
	var signaled []*Fence
	for _, f := range fences {
		if f.Wait() {
			signaled = append(signaled, f)
		}
	}
	return signaled
}

func (t *Tracker) QueueWaitIdle(q *Queue) []*Submission {
	return q.RetireAll()
}

func (t *Tracker) DeviceWaitIdle() []*Submission {
	var done []*Submission
	for _, q := range t.Queues() {
		done = append(done, q.RetireAll()...)
	}
	return done
}

// Lookup resolves a typed handle to its state object.
func (t *Tracker) Lookup(h report.TypedHandle) (Object, error) {
	var (
		obj Object
		err error
	)
	switch h.Type {
	case report.ObjectTypeImage:
		obj, err = t.Image(h.Handle)
	case report.ObjectTypeImageView:
		obj, err = t.ImageView(h.Handle)
	case report.ObjectTypeBuffer:
		obj, err = t.Buffer(h.Handle)
	case report.ObjectTypeCommandPool:
		obj, err = t.CommandPool(h.Handle)
	case report.ObjectTypeCommandBuffer:
		obj, err = t.CommandBuffer(h.Handle)
	case report.ObjectTypeRenderPass:
		obj, err = t.RenderPass(h.Handle)
	case report.ObjectTypeFramebuffer:
		obj, err = t.Framebuffer(h.Handle)
	case report.ObjectTypePipeline:
		obj, err = t.Pipeline(h.Handle)
	case report.ObjectTypeDescriptorSet:
		obj, err = t.DescriptorSet(h.Handle)
	case report.ObjectTypeQueryPool:
		obj, err = t.QueryPool(h.Handle)
	case report.ObjectTypeEvent:
		obj, err = t.Event(h.Handle)
	case report.ObjectTypeFence:
		obj, err = t.Fence(h.Handle)
	case report.ObjectTypeSemaphore:
		obj, err = t.Semaphore(h.Handle)
	case report.ObjectTypeQueue:
		obj, err = t.Queue(h.Handle)
	default:
		return nil, errors.Wrapf(core.ErrUnknownHandle, "%s", h)
	}
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// Destroy destroys any object by typed handle.
func (t *Tracker) Destroy(h report.TypedHandle) error {
	switch h.Type {
	case report.ObjectTypeImage:
		return t.DestroyImage(h.Handle)
	case report.ObjectTypeImageView:
		return t.DestroyImageView(h.Handle)
	case report.ObjectTypeBuffer:
		return t.DestroyBuffer(h.Handle)
	case report.ObjectTypeCommandPool:
		return t.DestroyCommandPool(h.Handle)
	case report.ObjectTypeCommandBuffer:
		cb, err := t.CommandBuffer(h.Handle)
		if err != nil {
			return err
		}
		return t.FreeCommandBuffer(cb)
	case report.ObjectTypeRenderPass:
		return t.DestroyRenderPass(h.Handle)
	case report.ObjectTypeFramebuffer:
		return t.DestroyFramebuffer(h.Handle)
	case report.ObjectTypePipeline:
		return t.DestroyPipeline(h.Handle)
	case report.ObjectTypeDescriptorSet:
		return t.FreeDescriptorSet(h.Handle)
	case report.ObjectTypeQueryPool:
		return t.DestroyQueryPool(h.Handle)
	case report.ObjectTypeEvent:
		return t.DestroyEvent(h.Handle)
	case report.ObjectTypeFence:
		return t.DestroyFence(h.Handle)
	case report.ObjectTypeSemaphore:
		return t.DestroySemaphore(h.Handle)
	case report.ObjectTypeSwapchain:
		return t.DestroySwapchain(h.Handle)
	}
	return errors.Wrapf(core.ErrUnknownHandle, "cannot destroy %s", h)
}
