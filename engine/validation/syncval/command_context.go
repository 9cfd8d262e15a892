package syncval

import (
	"github.com/google/uuid"

	"github.com/spaghettifunk/vksync/engine/validation/report"
	"github.com/spaghettifunk/vksync/engine/validation/state"
	"github.com/spaghettifunk/vksync/engine/vulkan"
)

// ResourceUsageRecord is the command behind a tag.
type ResourceUsageRecord struct {
	Command string
	// Seq is the 1-based index of the command in its command buffer.
	Seq           uint32
	CommandBuffer report.TypedHandle
	Queue         QueueID
	SubmitIndex   uint64
	Batch         uuid.UUID
}

type syncOpKind uint8

const (
	syncOpAccess syncOpKind = iota
	syncOpBarriers
)

type barrierEntry struct {
	barrier SyncBarrier
	// res is nil for global memory and execution barriers.
	res              *ResourceAccessRange
	layoutTransition bool
	// field names the barrier in reports, like "pImageMemoryBarriers[0]".
	field string
}

// syncOp is one entry of a command buffer's access log.
type syncOp struct {
	kind  syncOpKind
	tag   ResourceUsageTag
	res   ResourceAccessRange
	usage SyncStageAccessIndex
	field string
	// Attachment accesses at or after rasterFloor are in the same render
	// pass instance, kMaxTag outside of one.
	rasterFloor ResourceUsageTag
	// inheritFloor marks attachment accesses of a secondary recorded inside
	// a render pass, they take the floor of the executing primary.
	inheritFloor bool

	barriers []barrierEntry
	// Accesses tagged at or after scopeTag are outside the barriers'
	// first scope. Only event waits set it, other barriers use their own tag.
	scopeTag   ResourceUsageTag
	eventScope bool
}

func shiftTag(tag, base ResourceUsageTag) ResourceUsageTag {
	if tag == kMaxTag {
		return tag
	}
	return tag + base
}

// shifted returns op with its tags moved by base.
func (op syncOp) shifted(base ResourceUsageTag) syncOp {
	op.tag += base
	op.rasterFloor = shiftTag(op.rasterFloor, base)
	op.scopeTag = shiftTag(op.scopeTag, base)
	return op
}

// opHazard is a hazard found while running an op log.
type opHazard struct {
	op      *syncOp
	barrier int
	hazard  HazardResult
}

func (h opHazard) field() string {
	if h.op.kind == syncOpBarriers && h.barrier < len(h.op.barriers) {
		return h.op.barriers[h.barrier].field
	}
	return h.op.field
}

func (h opHazard) resource() report.TypedHandle {
	if h.op.kind == syncOpBarriers && h.barrier < len(h.op.barriers) && h.op.barriers[h.barrier].res != nil {
		return h.op.barriers[h.barrier].res.Resource
	}
	return h.op.res.Resource
}

// detectOp checks op against ctx without changing it.
func detectOp(ctx *AccessContext, op *syncOp, queue QueueID) (opHazard, bool) {
	switch op.kind {
	case syncOpAccess:
		if h := ctx.DetectHazard(op.res, op.usage, op.rasterFloor); h.IsHazard() {
			return opHazard{op: op, hazard: h}, true
		}
	case syncOpBarriers:
		scope := barrierScope{queue: queue, limit: op.scopeTag}
		for i, b := range op.barriers {
			if !b.layoutTransition || b.res == nil {
				continue
			}
			if h := ctx.DetectBarrierHazard(*b.res, b.barrier, scope); h.IsHazard() {
				return opHazard{op: op, barrier: i, hazard: h}, true
			}
		}
	}
	return opHazard{}, false
}

// recordOp applies op to ctx.
func recordOp(ctx *AccessContext, op *syncOp, queue QueueID) {
	switch op.kind {
	case syncOpAccess:
		ctx.UpdateAccess(op.res, op.usage, op.tag, queue)
	case syncOpBarriers:
		scope := barrierScope{queue: queue, limit: op.scopeTag}
		for _, b := range op.barriers {
			ctx.ApplyBarrier(b.res, b.barrier, scope, b.layoutTransition)
		}
		ctx.ApplyPendingBarriers(op.tag)
	}
}

// replayOps runs a recorded log, shifted by base, into ctx. Hazards whose
// prior access is tagged at or after base were found while recording the
// log and are not returned again. floor replaces inherited raster floors.
func replayOps(ctx *AccessContext, ops []syncOp, base, floor ResourceUsageTag, queue QueueID) []opHazard {
	var hazards []opHazard
	for i := range ops {
		op := ops[i].shifted(base)
		if op.inheritFloor {
			op.rasterFloor = floor
			op.inheritFloor = false
		}
		if h, found := detectOp(ctx, &op, queue); found && h.hazard.PriorTag < base {
			hazards = append(hazards, h)
		}
		recordOp(ctx, &op, queue)
	}
	return hazards
}

type eventState struct {
	tag    ResourceUsageTag
	stages vulkan.PipelineStageFlags2
}

// renderPassState is the render pass instance being recorded.
type renderPassState struct {
	rp          *state.RenderPass
	attachments []*state.ImageView
	subpass     uint32
	beginTag    ResourceUsageTag
	// inherited is set in secondaries recorded to continue a render pass.
	inherited bool
}

// CommandBufferAccessContext is the access history of one recording.
type CommandBufferAccessContext struct {
	cb      *state.CommandBuffer
	context *AccessContext
	records []ResourceUsageRecord
	ops     []syncOp
	events  map[*state.Event]eventState

	renderPass *renderPassState
	rendering  *state.RenderingInfo
	// beginTag of a dynamic rendering instance, kMaxTag outside of one.
	renderingTag ResourceUsageTag
}

func newCommandBufferAccessContext(cb *state.CommandBuffer) *CommandBufferAccessContext {
	return &CommandBufferAccessContext{
		cb:           cb,
		context:      NewAccessContext(),
		events:       make(map[*state.Event]eventState),
		renderingTag: kMaxTag,
	}
}

func (c *CommandBufferAccessContext) Reset() {
	c.context.Reset()
	c.records = nil
	c.ops = nil
	c.events = make(map[*state.Event]eventState)
	c.renderPass = nil
	c.rendering = nil
	c.renderingTag = kMaxTag
}

func (c *CommandBufferAccessContext) AccessContext() *AccessContext {
	return c.context
}

func (c *CommandBufferAccessContext) Records() []ResourceUsageRecord {
	return c.records
}

// nextTag is the tag the next recorded command gets.
func (c *CommandBufferAccessContext) nextTag() ResourceUsageTag {
	return ResourceUsageTag(len(c.records))
}

func (c *CommandBufferAccessContext) newTag(command string) ResourceUsageTag {
	tag := c.nextTag()
	c.records = append(c.records, ResourceUsageRecord{
		Command:       command,
		Seq:           uint32(len(c.records)) + 1,
		CommandBuffer: c.cb.Handle(),
	})
	return tag
}

// rasterFloor returns the begin tag of the active render pass instance.
// Secondaries continuing a render pass start inside it.
func (c *CommandBufferAccessContext) rasterFloor() ResourceUsageTag {
	if c.renderPass != nil {
		return c.renderPass.beginTag
	}
	return c.renderingTag
}

// detect checks the ops a command would record, tagged with the next tag.
// Accesses that follow a barrier of the same command, like render pass
// load operations, are checked against a scratch copy holding the barrier.
func (c *CommandBufferAccessContext) detect(ops []syncOp) []opHazard {
	var hazards []opHazard
	tag := c.nextTag()
	ctx := c.context
	sequential := false
	for i := range ops[:max(len(ops)-1, 0)] {
		sequential = sequential || ops[i].kind == syncOpBarriers
	}
	if sequential {
		ctx = ctx.Clone()
	}
	for i := range ops {
		ops[i].tag = tag
		if !ops[i].eventScope {
			ops[i].scopeTag = tag
		}
		if h, found := detectOp(ctx, &ops[i], kQueueIDInvalid); found {
			hazards = append(hazards, h)
		}
		if sequential {
			recordOp(ctx, &ops[i], kQueueIDInvalid)
		}
	}
	return hazards
}

// record tags ops with a new command and applies them.
func (c *CommandBufferAccessContext) record(command string, ops []syncOp) ResourceUsageTag {
	tag := c.newTag(command)
	for i := range ops {
		ops[i].tag = tag
		if !ops[i].eventScope {
			ops[i].scopeTag = tag
		}
		recordOp(c.context, &ops[i], kQueueIDInvalid)
		c.ops = append(c.ops, ops[i])
	}
	return tag
}

// executeSecondary folds the log of a secondary into this recording.
func (c *CommandBufferAccessContext) executeSecondary(sub *CommandBufferAccessContext) {
	base := ResourceUsageTag(len(c.records))
	floor := c.rasterFloor()
	c.records = append(c.records, sub.records...)
	for i := range sub.ops {
		op := sub.ops[i].shifted(base)
		if op.inheritFloor {
			op.rasterFloor = floor
			op.inheritFloor = false
		}
		recordOp(c.context, &op, kQueueIDInvalid)
		c.ops = append(c.ops, op)
	}
}

func accessOp(res ResourceAccessRange, usage SyncStageAccessIndex, field string, rasterFloor ResourceUsageTag) syncOp {
	return syncOp{kind: syncOpAccess, res: res, usage: usage, field: field, rasterFloor: rasterFloor}
}
