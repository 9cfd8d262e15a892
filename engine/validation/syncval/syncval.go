// Package syncval detects unsynchronized accesses to buffer and image
// memory. Each recording keeps a log of its accesses and barriers, which is
// checked as commands are recorded and replayed onto the device timeline
// when the command buffer is submitted.
package syncval

import (
	"fmt"
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/vksync/engine/core"
	"github.com/spaghettifunk/vksync/engine/validation/report"
	"github.com/spaghettifunk/vksync/engine/validation/state"
)

// Settings switches the hazard checks on and off.
type Settings struct {
	Enabled bool
	// SubmitTimeValidation replays recorded logs at queue submission.
	SubmitTimeValidation bool
}

func DefaultSettings() Settings {
	return Settings{
		Enabled:              true,
		SubmitTimeValidation: true,
	}
}

// signalInfo is the point of a queue's timeline a semaphore or fence
// signals: every access tagged below limit.
type signalInfo struct {
	queue QueueID
	limit ResourceUsageTag
}

// deviceContext is the access history of everything submitted.
type deviceContext struct {
	mu         sync.Mutex
	access     *AccessContext
	records    []ResourceUsageRecord
	semaphores map[*state.Semaphore]signalInfo
	fences     map[*state.Fence]signalInfo
}

type SyncValidator struct {
	tracker  *state.Tracker
	reporter report.Reporter
	metrics  *core.Metrics

	mu       sync.RWMutex
	settings Settings
	contexts map[*state.CommandBuffer]*CommandBufferAccessContext

	queueMu sync.Mutex
	queues  map[*state.Queue]*sync.Mutex

	device deviceContext
}

func New(tracker *state.Tracker, reporter report.Reporter, settings Settings) *SyncValidator {
	sv := &SyncValidator{
		tracker:  tracker,
		reporter: reporter,
		metrics:  core.NewMetrics(),
		settings: settings,
		contexts: make(map[*state.CommandBuffer]*CommandBufferAccessContext),
		queues:   make(map[*state.Queue]*sync.Mutex),
		device: deviceContext{
			access:     NewAccessContext(),
			semaphores: make(map[*state.Semaphore]signalInfo),
			fences:     make(map[*state.Fence]signalInfo),
		},
	}
	tracker.Events.Register(core.EVENT_CODE_OBJECT_DESTROYED, sv, onObjectDestroyed)
	return sv
}

// Close unregisters the validator from the tracker's event bus.
func (sv *SyncValidator) Close() {
	sv.tracker.Events.Unregister(core.EVENT_CODE_OBJECT_DESTROYED, sv)
}

func (sv *SyncValidator) SetSettings(s Settings) {
	sv.mu.Lock()
	sv.settings = s
	sv.mu.Unlock()
}

func (sv *SyncValidator) Settings() Settings {
	sv.mu.RLock()
	defer sv.mu.RUnlock()
	return sv.settings
}

func (sv *SyncValidator) enabled() bool {
	return sv.Settings().Enabled
}

// Metrics counts the reported hazards by kind and by access pair.
func (sv *SyncValidator) Metrics() *core.Metrics {
	return sv.metrics
}

func onObjectDestroyed(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	sv := listener.(*SyncValidator)
	switch obj := data.Object.(type) {
	case *state.CommandBuffer:
		sv.forget(obj)
	case *state.Image:
		sv.forgetResource(obj.Handle())
	case *state.Buffer:
		sv.forgetResource(obj.Handle())
	case *state.Semaphore:
		sv.device.mu.Lock()
		delete(sv.device.semaphores, obj)
		sv.device.mu.Unlock()
	case *state.Fence:
		sv.device.mu.Lock()
		delete(sv.device.fences, obj)
		sv.device.mu.Unlock()
	}
	return false
}

func (sv *SyncValidator) forgetResource(h report.TypedHandle) {
	sv.device.mu.Lock()
	delete(sv.device.access.resources, h)
	sv.device.mu.Unlock()
}

// context returns the access context of cb, creating it on first use.
func (sv *SyncValidator) context(cb *state.CommandBuffer) *CommandBufferAccessContext {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	c, ok := sv.contexts[cb]
	if !ok {
		c = newCommandBufferAccessContext(cb)
		sv.contexts[cb] = c
	}
	return c
}

func (sv *SyncValidator) lookup(cb *state.CommandBuffer) *CommandBufferAccessContext {
	sv.mu.RLock()
	defer sv.mu.RUnlock()
	return sv.contexts[cb]
}

func (sv *SyncValidator) forget(cb *state.CommandBuffer) {
	sv.mu.Lock()
	delete(sv.contexts, cb)
	sv.mu.Unlock()
}

func (sv *SyncValidator) queueLock(q *state.Queue) *sync.Mutex {
	sv.queueMu.Lock()
	defer sv.queueMu.Unlock()
	mu, ok := sv.queues[q]
	if !ok {
		mu = &sync.Mutex{}
		sv.queues[q] = mu
	}
	return mu
}

// CommandBufferContext exposes the access history of a recording.
func (sv *SyncValidator) CommandBufferContext(cb *state.CommandBuffer) (*CommandBufferAccessContext, bool) {
	c := sv.lookup(cb)
	return c, c != nil
}

// DeviceAccess runs fn over the device timeline while holding its lock.
func (sv *SyncValidator) DeviceAccess(fn func(ctx *AccessContext, records []ResourceUsageRecord)) {
	sv.device.mu.Lock()
	defer sv.device.mu.Unlock()
	fn(sv.device.access, sv.device.records)
}

func (sv *SyncValidator) PostCallRecordBeginCommandBuffer(cb *state.CommandBuffer, info *state.CommandBufferBeginInfo) {
	c := sv.context(cb)
	c.Reset()
	if info == nil || info.Inheritance == nil || info.Inheritance.RenderPass == nil || cb.IsPrimary() {
		return
	}
	inh := info.Inheritance
	var views []*state.ImageView
	if inh.Framebuffer != nil {
		views = inh.Framebuffer.Attachments
	}
	c.renderPass = &renderPassState{
		rp:          inh.RenderPass,
		attachments: views,
		subpass:     inh.Subpass,
		inherited:   true,
	}
}

func (sv *SyncValidator) PostCallRecordResetCommandBuffer(cb *state.CommandBuffer) {
	if c := sv.lookup(cb); c != nil {
		c.Reset()
	}
}

func (sv *SyncValidator) PreCallRecordFreeCommandBuffers(cbs []*state.CommandBuffer) {
	for _, cb := range cbs {
		sv.forget(cb)
	}
}

func (sv *SyncValidator) PostCallRecordResetCommandPool(pool *state.CommandPool) {
	sv.mu.RLock()
	defer sv.mu.RUnlock()
	for cb, c := range sv.contexts {
		if cb.Pool == pool {
			c.Reset()
		}
	}
}

// hazardArgs formats the access info shared by every hazard message.
func (sv *SyncValidator) hazardArgs(h HazardResult, prior ResourceUsageRecord) string {
	barriers := "read_barriers: " + h.ReadBarriers.String()
	if h.PriorUsage.IsWrite() {
		barriers = "write_barriers: " + h.WriteBarriers.String()
	}
	return fmt.Sprintf("usage: %s, prior_usage: %s, %s, command: %s, seq_no: %d, command_buffer: %s",
		h.Usage, h.PriorUsage, barriers, prior.Command, prior.Seq, sv.reporter.FormatHandle(prior.CommandBuffer))
}

func (sv *SyncValidator) count(h HazardResult) {
	sv.metrics.Count(h.Hazard.String())
	sv.metrics.Count(h.Usage.String() + " after " + h.PriorUsage.String())
}

func recordAt(records []ResourceUsageRecord, tag ResourceUsageTag) ResourceUsageRecord {
	if tag < ResourceUsageTag(len(records)) {
		return records[tag]
	}
	return ResourceUsageRecord{Command: "unknown"}
}

// reportRecordHazard reports a hazard found while recording cb.
func (sv *SyncValidator) reportRecordHazard(c *CommandBufferAccessContext, loc report.Location, h opHazard, records []ResourceUsageRecord) bool {
	sv.count(h.hazard)
	res := h.resource()
	return sv.reporter.LogError(report.Objects(c.cb.Handle(), res), h.hazard.Hazard.VUID(), loc,
		"Hazard %s for %s %s. Access info (%s).",
		h.hazard.Hazard, h.field(), sv.reporter.FormatHandle(res), sv.hazardArgs(h.hazard, recordAt(records, h.hazard.PriorTag)))
}

// validate checks the ops a command would record against cb's history.
func (sv *SyncValidator) validate(cb *state.CommandBuffer, command string, ops []syncOp) bool {
	if !sv.enabled() || len(ops) == 0 {
		return false
	}
	c := sv.context(cb)
	skip := false
	for _, h := range c.detect(ops) {
		skip = sv.reportRecordHazard(c, report.Loc(command), h, c.records) || skip
	}
	return skip
}

func (sv *SyncValidator) record(cb *state.CommandBuffer, command string, ops []syncOp) ResourceUsageTag {
	return sv.context(cb).record(command, ops)
}

func (sv *SyncValidator) PreCallValidateCmdExecuteCommands(cb *state.CommandBuffer, secondaries []*state.CommandBuffer) bool {
	if !sv.enabled() {
		return false
	}
	c := sv.context(cb)
	ctx := c.context.Clone()
	base := c.nextTag()
	floor := c.rasterFloor()
	records := c.records[:len(c.records):len(c.records)]
	loc := report.Loc("vkCmdExecuteCommands")
	skip := false
	for i, sub := range secondaries {
		subctx := sv.lookup(sub)
		if subctx == nil {
			continue
		}
		for _, h := range replayOps(ctx, subctx.ops, base, floor, kQueueIDInvalid) {
			sv.count(h.hazard)
			res := h.resource()
			prior := recordAt(records, h.hazard.PriorTag)
			skip = sv.reporter.LogError(report.Objects(cb.Handle(), sub.Handle(), res), h.hazard.Hazard.VUID(), loc.At("pCommandBuffers", i),
				"Hazard %s for %s %s in %s, recorded by %s (seq_no %d). Access info (%s).",
				h.hazard.Hazard, h.field(), sv.reporter.FormatHandle(res), sv.reporter.FormatHandle(sub.Handle()),
				recordAt(subctx.records, h.op.tag-base).Command, h.op.tag-base+1, sv.hazardArgs(h.hazard, prior)) || skip
		}
		base += ResourceUsageTag(len(subctx.records))
		records = append(records, subctx.records...)
	}
	return skip
}

func (sv *SyncValidator) PostCallRecordCmdExecuteCommands(cb *state.CommandBuffer, secondaries []*state.CommandBuffer) {
	c := sv.context(cb)
	for _, sub := range secondaries {
		if subctx := sv.lookup(sub); subctx != nil {
			c.executeSecondary(subctx)
		}
	}
}

// submitRun replays submitted command buffers onto a device timeline.
type submitRun struct {
	access     *AccessContext
	records    []ResourceUsageRecord
	semaphores map[*state.Semaphore]signalInfo
	fences     map[*state.Fence]signalInfo
}

type submitHazard struct {
	batch, index int
	cb           *state.CommandBuffer
	hazard       opHazard
	records      []ResourceUsageRecord
}

// run replays subs as submitted to q. seq is the submit index of the first
// batch, used when the submissions were not numbered yet.
func (sv *SyncValidator) run(r *submitRun, q *state.Queue, subs []*state.Submission, seq uint64, onHazard func(submitHazard)) {
	queue := q.Handle().Handle
	for i, sub := range subs {
		for _, s := range sub.WaitSemaphores {
			sig, ok := r.semaphores[s]
			if !ok {
				continue
			}
			delete(r.semaphores, s)
			scope := barrierScope{queue: sig.queue, limit: sig.limit}
			r.access.ApplyBarrier(nil, fullBarrier(), scope, false)
			r.access.ApplyPendingBarriers(ResourceUsageTag(len(r.records)))
		}
		submitIndex := sub.Seq
		if submitIndex == 0 {
			submitIndex = seq + uint64(i)
		}
		for j, cb := range sub.CommandBuffers {
			c := sv.lookup(cb)
			if c == nil {
				continue
			}
			base := ResourceUsageTag(len(r.records))
			for _, rec := range c.records {
				rec.Queue = queue
				rec.SubmitIndex = submitIndex
				rec.Batch = sub.Batch
				r.records = append(r.records, rec)
			}
			hazards := replayOps(r.access, c.ops, base, kMaxTag, queue)
			if onHazard != nil {
				for _, h := range hazards {
					onHazard(submitHazard{batch: i, index: j, cb: cb, hazard: h, records: r.records})
				}
			}
		}
		limit := signalInfo{queue: queue, limit: ResourceUsageTag(len(r.records))}
		for _, s := range sub.SignalSemaphores {
			r.semaphores[s] = limit
		}
		if sub.Fence != nil {
			r.fences[sub.Fence] = limit
		}
	}
}

func (sv *SyncValidator) PreCallValidateQueueSubmit(function string, q *state.Queue, subs []*state.Submission) bool {
	settings := sv.Settings()
	if !settings.Enabled || !settings.SubmitTimeValidation {
		return false
	}
	clock := core.NewClock()
	clock.Start()
	qmu := sv.queueLock(q)
	qmu.Lock()
	defer qmu.Unlock()
	d := &sv.device
	d.mu.Lock()
	defer d.mu.Unlock()

	r := &submitRun{
		access:     d.access.Clone(),
		records:    d.records[:len(d.records):len(d.records)],
		semaphores: maps.Clone(d.semaphores),
		fences:     maps.Clone(d.fences),
	}
	loc := report.Loc(function)
	skip := false
	sv.run(r, q, subs, q.LastSubmitted()+1, func(sh submitHazard) {
		h := sh.hazard
		sv.count(h.hazard)
		res := h.resource()
		rec := recordAt(sh.records, h.op.tag)
		prior := recordAt(sh.records, h.hazard.PriorTag)
		skip = sv.reporter.LogError(report.Objects(q.Handle(), sh.cb.Handle(), res), h.hazard.Hazard.VUID(),
			loc.At("pSubmits", sh.batch).At("pCommandBuffers", sh.index),
			"Hazard %s for %s %s, recorded by %s (seq_no %d). Access info (%s, queue: %s, submit_index: %d, batch: %s).",
			h.hazard.Hazard, h.field(), sv.reporter.FormatHandle(res), rec.Command, rec.Seq,
			sv.hazardArgs(h.hazard, prior), sv.reporter.FormatHandle(report.NewTypedHandle(prior.Queue, report.ObjectTypeQueue)),
			prior.SubmitIndex, prior.Batch) || skip
	})
	clock.Stop()
	sv.metrics.SubmitUpdate(clock.Elapsed())
	return skip
}

func (sv *SyncValidator) PostCallRecordQueueSubmit(q *state.Queue, subs []*state.Submission) {
	if !sv.Settings().Enabled {
		return
	}
	qmu := sv.queueLock(q)
	qmu.Lock()
	defer qmu.Unlock()
	d := &sv.device
	d.mu.Lock()
	defer d.mu.Unlock()

	r := &submitRun{
		access:     d.access,
		records:    d.records,
		semaphores: d.semaphores,
		fences:     d.fences,
	}
	sv.run(r, q, subs, q.LastSubmitted(), nil)
	d.records = r.records
}

// retire drops the accesses of queue tagged below limit.
func (d *deviceContext) retire(queue QueueID, limit ResourceUsageTag) {
	if limit == 0 {
		return
	}
	d.access.Retire(queue, limit-1)
}

// trim drops the records older than every stored access and renumbers the
// rest, so the timeline only holds commands that can still be reported.
func (d *deviceContext) trim() {
	floor, ok := d.access.MinTag()
	if !ok {
		floor = ResourceUsageTag(len(d.records))
	}
	if floor == 0 {
		return
	}
	d.access.Rebase(floor)
	d.records = slices.Clone(d.records[floor:])
	for s, sig := range d.semaphores {
		sig.limit = rebaseLimit(sig.limit, floor)
		d.semaphores[s] = sig
	}
	for f, sig := range d.fences {
		sig.limit = rebaseLimit(sig.limit, floor)
		d.fences[f] = sig
	}
}

// rebaseLimit moves a signal limit with the records. A limit below floor
// covers no stored access.
func rebaseLimit(limit, floor ResourceUsageTag) ResourceUsageTag {
	switch {
	case limit == kMaxTag:
		return limit
	case limit < floor:
		return 0
	}
	return limit - floor
}

func (sv *SyncValidator) PostCallRecordQueueWaitIdle(q *state.Queue) {
	d := &sv.device
	d.mu.Lock()
	defer d.mu.Unlock()
	d.retire(q.Handle().Handle, kMaxTag)
	d.trim()
}

func (sv *SyncValidator) PostCallRecordDeviceWaitIdle() {
	d := &sv.device
	d.mu.Lock()
	defer d.mu.Unlock()
	d.access.Reset()
	d.trim()
}

func (sv *SyncValidator) PostCallRecordWaitForFences(fences []*state.Fence) {
	d := &sv.device
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, f := range fences {
		if sig, ok := d.fences[f]; ok {
			d.retire(sig.queue, sig.limit)
			delete(d.fences, f)
		}
	}
	d.trim()
}
