package replay

import (
	"context"
	"fmt"
	"time"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/pkg/errors"

	"github.com/spaghettifunk/vksync/engine/config"
	"github.com/spaghettifunk/vksync/engine/core"
	"github.com/spaghettifunk/vksync/engine/layer"
	"github.com/spaghettifunk/vksync/engine/validation/report"
	"github.com/spaghettifunk/vksync/engine/validation/state"
	"github.com/spaghettifunk/vksync/engine/validation/syncval"
	"github.com/spaghettifunk/vksync/engine/vulkan"
)

// Handles are ids from a core.Identifiers table shifted past the null handle.
const handleBase report.Handle = 0x1000

type Options struct {
	Settings *config.Settings
	Logger   []report.LoggerOption
	// Dump keeps a JSON dump of the layouts and access state in the result.
	Dump bool
}

type Result struct {
	Scenario string
	RunID    uuid.UUID
	Records  []report.Record
	Failures []string
	Duration time.Duration
	Dump     []byte
}

func (r *Result) Passed() bool {
	return len(r.Failures) == 0
}

// Replay holds one scenario's layer and the handles of its named objects.
type Replay struct {
	scenario *Scenario
	layer    *layer.Layer
	ids      *core.Identifiers

	handles      map[string]report.TypedHandle
	framebuffers map[string]*state.Framebuffer
	pool         *state.CommandPool
	queue        *state.Queue
}

// New creates a layer for the scenario and every object it declares.
func New(s *Scenario, opts Options) (*Replay, error) {
	r := &Replay{
		scenario:     s,
		layer:        layer.New(opts.Settings, opts.Logger...),
		ids:          core.NewIdentifiers(64),
		handles:      map[string]report.TypedHandle{},
		framebuffers: map[string]*state.Framebuffer{},
	}
	if err := r.create(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func (r *Replay) Layer() *layer.Layer {
	return r.layer
}

func (r *Replay) Close() {
	r.layer.Close()
}

func (r *Replay) alloc(name string, t report.ObjectType) report.Handle {
	h := handleBase + report.Handle(r.ids.AquireNewID(name))
	if name != "" {
		r.handles[name] = report.TypedHandle{Handle: h, Type: t}
		r.layer.SetObjectName(h, name)
	}
	return h
}

func (r *Replay) release(name string) error {
	h, ok := r.handles[name]
	if !ok {
		return errors.Wrapf(core.ErrInvalidScenario, "unknown object %q", name)
	}
	delete(r.handles, name)
	return r.ids.ReleaseID(uint32(h.Handle - handleBase))
}

func object[T state.Object](r *Replay, name string) (T, error) {
	var zero T
	h, ok := r.handles[name]
	if !ok {
		return zero, errors.Wrapf(core.ErrInvalidScenario, "unknown object %q", name)
	}
	obj, err := r.layer.Tracker.Lookup(h)
	if err != nil {
		return zero, errors.WithMessagef(err, "object %q", name)
	}
	typed, ok := obj.(T)
	if !ok {
		return zero, errors.Wrapf(core.ErrInvalidScenario, "object %q is a %s", name, h.Type)
	}
	return typed, nil
}

func objects[T state.Object](r *Replay, names []string) ([]T, error) {
	out := make([]T, 0, len(names))
	for _, n := range names {
		obj, err := object[T](r, n)
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, nil
}

func (r *Replay) create() error {
	t := r.layer.Tracker
	s := r.scenario

	var err error
	r.pool, err = t.CreateCommandPool(r.alloc("", report.ObjectTypeCommandPool), state.CommandPoolCreateInfo{
		Flags: vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	})
	if err != nil {
		return err
	}
	if len(s.Queues) == 0 {
		if r.queue, err = t.CreateQueue(r.alloc("", report.ObjectTypeQueue), 0, 0, false); err != nil {
			return err
		}
	}
	for i, q := range s.Queues {
		queue, err := t.CreateQueue(r.alloc(q.Name, report.ObjectTypeQueue), q.Family, q.Index, false)
		if err != nil {
			return err
		}
		if i == 0 {
			r.queue = queue
		}
	}

	for _, b := range s.Buffers {
		if _, err := t.CreateBuffer(r.alloc(b.Name, report.ObjectTypeBuffer), state.BufferCreateInfo{
			Size:  b.Size,
			Usage: vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit | vk.BufferUsageTransferDstBit | vk.BufferUsageStorageBufferBit | vk.BufferUsageIndirectBufferBit),
		}); err != nil {
			return err
		}
	}
	for _, desc := range s.Images {
		ci, err := imageCreateInfo(desc)
		if err != nil {
			return err
		}
		if _, err := t.CreateImage(r.alloc(desc.Name, report.ObjectTypeImage), ci); err != nil {
			return err
		}
	}
	for _, v := range s.Views {
		img, err := object[*state.Image](r, v.Image)
		if err != nil {
			return err
		}
		rng, err := subresourceRange(v.Range, img)
		if err != nil {
			return errors.WithMessagef(err, "view %q", v.Name)
		}
		if _, err := t.CreateImageView(r.alloc(v.Name, report.ObjectTypeImageView), state.ImageViewCreateInfo{
			Image:            img.Handle().Handle,
			Format:           img.CreateInfo.Format,
			SubresourceRange: rng,
		}); err != nil {
			return err
		}
	}
	for _, rp := range s.RenderPasses {
		if err := r.createRenderPass(rp); err != nil {
			return errors.WithMessagef(err, "render pass %q", rp.Name)
		}
	}
	for _, p := range s.Pipelines {
		if err := r.createPipeline(p); err != nil {
			return errors.WithMessagef(err, "pipeline %q", p.Name)
		}
	}

	for _, desc := range s.CommandBuffers {
		level := vk.CommandBufferLevelPrimary
		switch desc.Level {
		case "", "primary":
		case "secondary":
			level = vk.CommandBufferLevelSecondary
		default:
			return errors.Wrapf(core.ErrInvalidScenario, "command buffer %q: level %q", desc.Name, desc.Level)
		}
		h := r.alloc(desc.Name, report.ObjectTypeCommandBuffer)
		if _, err := t.AllocateCommandBuffers(r.pool.Handle().Handle, level, []report.Handle{h}); err != nil {
			return err
		}
	}
	for _, name := range s.Events {
		if _, err := t.CreateEvent(r.alloc(name, report.ObjectTypeEvent)); err != nil {
			return err
		}
	}
	for _, name := range s.Semaphores {
		if _, err := t.CreateSemaphore(r.alloc(name, report.ObjectTypeSemaphore)); err != nil {
			return err
		}
	}
	for _, f := range s.Fences {
		if _, err := t.CreateFence(r.alloc(f.Name, report.ObjectTypeFence), f.Signaled); err != nil {
			return err
		}
	}
	return nil
}

func imageCreateInfo(desc ImageDesc) (state.ImageCreateInfo, error) {
	format, ok := vulkan.ParseFormat(desc.Format)
	if !ok {
		return state.ImageCreateInfo{}, errors.Wrapf(core.ErrInvalidScenario, "image %q: format %q", desc.Name, desc.Format)
	}
	initial := vk.ImageLayoutUndefined
	if desc.InitialLayout != "" {
		if initial, ok = vulkan.ParseImageLayout(desc.InitialLayout); !ok {
			return state.ImageCreateInfo{}, errors.Wrapf(core.ErrInvalidScenario, "image %q: layout %q", desc.Name, desc.InitialLayout)
		}
	}
	ci := state.ImageCreateInfo{
		ImageType:     vk.ImageType2d,
		Format:        format,
		Extent:        vk.Extent3D{Width: max(desc.Width, 1), Height: max(desc.Height, 1), Depth: max(desc.Depth, 1)},
		MipLevels:     max(desc.MipLevels, 1),
		ArrayLayers:   max(desc.ArrayLayers, 1),
		Samples:       vk.SampleCount1Bit,
		Tiling:        vulkan.ConditionalOperator(desc.Linear, vk.ImageTilingLinear, vk.ImageTilingOptimal),
		Usage:         vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit),
		InitialLayout: initial,
	}
	if ci.Extent.Depth > 1 {
		ci.ImageType = vk.ImageType3d
	}
	if vulkan.FormatIsDepthOrStencil(format) {
		ci.Usage |= vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit)
	} else {
		ci.Usage |= vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageStorageBit)
	}
	return ci, nil
}

func (r *Replay) createRenderPass(desc RenderPassDesc) error {
	var (
		ci    state.RenderPassCreateInfo
		sub   state.SubpassDescription
		views []report.Handle
		fbW   uint32
		fbH   uint32
	)
	for i, a := range desc.Attachments {
		view, err := object[*state.ImageView](r, a.View)
		if err != nil {
			return err
		}
		att, layout, err := attachmentDescription(a, view.Format)
		if err != nil {
			return errors.WithMessagef(err, "attachments[%d]", i)
		}
		ci.Attachments = append(ci.Attachments, att)
		ref := state.AttachmentReference{Attachment: uint32(i), Layout: layout}
		if vulkan.FormatIsDepthOrStencil(view.Format) {
			sub.DepthStencilAttachment = &ref
		} else {
			sub.ColorAttachments = append(sub.ColorAttachments, ref)
		}
		views = append(views, view.Handle().Handle)
		extent := view.Image.CreateInfo.Extent
		fbW, fbH = max(fbW, extent.Width), max(fbH, extent.Height)
	}
	ci.Subpasses = []state.SubpassDescription{sub}

	rp, err := r.layer.Tracker.CreateRenderPass(r.alloc(desc.Name, report.ObjectTypeRenderPass), ci)
	if err != nil {
		return err
	}
	fb, err := r.layer.Tracker.CreateFramebuffer(r.alloc("", report.ObjectTypeFramebuffer), state.FramebufferCreateInfo{
		RenderPass:  rp.Handle().Handle,
		Attachments: views,
		Width:       fbW,
		Height:      fbH,
		Layers:      1,
	})
	if err != nil {
		return err
	}
	r.framebuffers[desc.Name] = fb
	return nil
}

func attachmentDescription(a AttachmentDesc, format vk.Format) (state.AttachmentDescription, vk.ImageLayout, error) {
	load, err := loadOp(a.Load)
	if err != nil {
		return state.AttachmentDescription{}, 0, err
	}
	store, err := storeOp(a.Store)
	if err != nil {
		return state.AttachmentDescription{}, 0, err
	}
	defaultLayout := vulkan.ConditionalOperator(vulkan.FormatIsDepthOrStencil(format),
		vk.ImageLayoutDepthStencilAttachmentOptimal, vk.ImageLayoutColorAttachmentOptimal)
	initial, err := layoutOr(a.Initial, vk.ImageLayoutUndefined)
	if err != nil {
		return state.AttachmentDescription{}, 0, err
	}
	layout, err := layoutOr(a.Layout, defaultLayout)
	if err != nil {
		return state.AttachmentDescription{}, 0, err
	}
	final, err := layoutOr(a.Final, layout)
	if err != nil {
		return state.AttachmentDescription{}, 0, err
	}

	att := state.AttachmentDescription{
		Format:         format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         load,
		StoreOp:        store,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  initial,
		FinalLayout:    final,
	}
	if vulkan.FormatHasStencil(format) {
		att.StencilLoadOp, att.StencilStoreOp = load, store
	}
	return att, layout, nil
}

func (r *Replay) createPipeline(desc PipelineDesc) error {
	ci := state.PipelineCreateInfo{BindPoint: vk.PipelineBindPointGraphics}
	switch desc.BindPoint {
	case "", "graphics":
	case "compute":
		ci.BindPoint = vk.PipelineBindPointCompute
	default:
		return errors.Wrapf(core.ErrInvalidScenario, "bind point %q", desc.BindPoint)
	}
	if ci.BindPoint == vk.PipelineBindPointGraphics {
		count := max(desc.ViewportCount, 1)
		ci.ViewportCount, ci.ScissorCount = count, count
		if desc.DynamicViewport {
			ci.DynamicStates = append(ci.DynamicStates, vk.DynamicStateViewport)
		} else {
			ci.Viewports = make([]vk.Viewport, count)
			for i := range ci.Viewports {
				ci.Viewports[i] = vk.Viewport{Width: 1, Height: 1, MaxDepth: 1}
			}
		}
		if desc.DynamicScissor {
			ci.DynamicStates = append(ci.DynamicStates, vk.DynamicStateScissor)
		} else {
			ci.Scissors = make([]vk.Rect2D, count)
		}
		if desc.RenderPass != "" {
			rp, err := object[*state.RenderPass](r, desc.RenderPass)
			if err != nil {
				return err
			}
			ci.RenderPass = rp.Handle().Handle
		}
	}
	_, err := r.layer.Tracker.CreatePipeline(r.alloc(desc.Name, report.ObjectTypePipeline), ci)
	return err
}

// Run replays every call. Calls skipped on a validation failure are
// logged and the replay goes on.
func (r *Replay) Run(ctx context.Context) error {
	for i := range r.scenario.Calls {
		if err := ctx.Err(); err != nil {
			return err
		}
		c := &r.scenario.Calls[i]
		err := commands[c.Cmd](r, c)
		switch {
		case err == nil:
		case errors.Is(err, core.ErrValidationFailed):
			core.LogDebug("%s: calls[%d] %s skipped", r.scenario.Name, i, c.Cmd)
		default:
			return errors.WithMessagef(err, "calls[%d] %s", i, c.Cmd)
		}
	}
	return nil
}

// Check compares the delivered messages with the expectations.
func (r *Replay) Check() []string {
	var failures []string
	expected := make(map[string]struct{}, len(r.scenario.Expect))
	for _, e := range r.scenario.Expect {
		expected[e.VUID] = struct{}{}
		if got := len(r.layer.Reporter.RecordsFor(e.VUID)); got != e.Count {
			failures = append(failures, fmt.Sprintf("%s: expected %d, got %d", e.VUID, e.Count, got))
		}
	}
	if r.scenario.Strict {
		for _, rec := range r.layer.Reporter.Records() {
			if _, ok := expected[rec.VUID]; !ok {
				failures = append(failures, "unexpected "+rec.String())
			}
		}
	}
	return failures
}

// Dump writes the messages, the global image layouts and the device access
// state of the replay.
func (r *Replay) Dump(obj jwriter.ObjectState) {
	obj.Name("Scenario").String(r.scenario.Name)

	msgs := obj.Name("Messages").Array()
	for _, rec := range r.layer.Reporter.Records() {
		m := msgs.Object()
		m.Name("Severity").String(rec.Severity.String())
		m.Name("VUID").String(rec.VUID)
		m.Name("Location").String(rec.Location)
		m.Name("Message").String(rec.Message)
		m.End()
	}
	msgs.End()

	images := obj.Name("Images").Array()
	for _, img := range r.layer.Tracker.Images() {
		o := images.Object()
		o.Name("Image").String(r.layer.Reporter.FormatHandle(img.Handle()))
		o.Name("Format").String(vulkan.FormatString(img.CreateInfo.Format))
		img.GlobalLayouts.PrintDetailedMap(o)
		o.End()
	}
	images.End()

	sync := obj.Name("Sync").Object()
	r.layer.Sync.PrintStats(sync)
	r.layer.Sync.DeviceAccess(func(ctx *syncval.AccessContext, records []syncval.ResourceUsageRecord) {
		ctx.PrintDetailedMap(sync, records)
	})
	sync.End()
}

// Execute builds, runs and checks one scenario.
func Execute(ctx context.Context, s *Scenario, opts Options) (*Result, error) {
	clock := core.NewClock()
	clock.Start()
	runID := uuid.New()
	core.LogDebug("%s: run %s", s.Name, runID)
	r, err := New(s, opts)
	if err != nil {
		return nil, errors.WithMessagef(err, "scenario %s", s.Name)
	}
	defer r.Close()

	if err := r.Run(ctx); err != nil {
		return nil, errors.WithMessagef(err, "scenario %s", s.Name)
	}
	clock.Stop()
	res := &Result{
		Scenario: s.Name,
		RunID:    runID,
		Records:  r.layer.Reporter.Records(),
		Failures: r.Check(),
		Duration: clock.Elapsed(),
	}
	if opts.Dump {
		w := jwriter.NewWriter()
		obj := w.Object()
		r.Dump(obj)
		obj.End()
		if err := w.Error(); err != nil {
			return nil, errors.Wrap(err, "dump")
		}
		res.Dump = w.Bytes()
	}
	return res, nil
}
