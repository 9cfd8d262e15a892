package syncval

import (
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/vksync/engine/validation/report"
	"github.com/spaghettifunk/vksync/engine/vulkan"
)

// ResourceUsageTag orders the commands of one access log.
type ResourceUsageTag uint64

const kMaxTag = ^ResourceUsageTag(0)

// QueueID identifies the queue an access was submitted on. Accesses still
// being recorded belong to kQueueIDInvalid.
type QueueID = report.Handle

const kQueueIDInvalid QueueID = report.NullHandle

type SyncHazard int

const (
	NONE SyncHazard = iota
	READ_AFTER_WRITE
	WRITE_AFTER_READ
	WRITE_AFTER_WRITE
)

func (h SyncHazard) String() string {
	switch h {
	case READ_AFTER_WRITE:
		return "READ_AFTER_WRITE"
	case WRITE_AFTER_READ:
		return "WRITE_AFTER_READ"
	case WRITE_AFTER_WRITE:
		return "WRITE_AFTER_WRITE"
	default:
		return "NONE"
	}
}

func (h SyncHazard) VUID() string {
	switch h {
	case READ_AFTER_WRITE:
		return "SYNC-HAZARD-READ-AFTER-WRITE"
	case WRITE_AFTER_READ:
		return "SYNC-HAZARD-WRITE-AFTER-READ"
	case WRITE_AFTER_WRITE:
		return "SYNC-HAZARD-WRITE-AFTER-WRITE"
	default:
		return "SYNC-HAZARD-NONE"
	}
}

// HazardResult describes the prior access a new one conflicts with.
type HazardResult struct {
	Hazard     SyncHazard
	Usage      SyncStageAccessIndex
	PriorUsage SyncStageAccessIndex
	PriorTag   ResourceUsageTag
	PriorQueue QueueID
	// Barriers that protected the prior access, for the report.
	WriteBarriers SyncStageAccessFlags
	ReadBarriers  vulkan.PipelineStageFlags2
}

func (h HazardResult) IsHazard() bool {
	return h.Hazard != NONE
}

// ReadState is the last read of one pipeline stage.
type ReadState struct {
	Stage    vulkan.PipelineStageFlags2
	Access   SyncStageAccessIndex
	Barriers vulkan.PipelineStageFlags2
	Tag      ResourceUsageTag
	Queue    QueueID

	pendingDepChain vulkan.PipelineStageFlags2
}

// AccessState is the access history of one memory range: the last write
// and the last read of every stage that read since.
type AccessState struct {
	hasWrite      bool
	lastWrite     SyncStageAccessIndex
	writeTag      ResourceUsageTag
	writeQueue    QueueID
	writeBarriers SyncStageAccessFlags
	writeDepChain vulkan.PipelineStageFlags2

	reads      []ReadState
	readStages vulkan.PipelineStageFlags2

	pendingWriteBarriers    SyncStageAccessFlags
	pendingWriteDepChain    vulkan.PipelineStageFlags2
	pendingLayoutTransition bool
	pendingLayoutQueue      QueueID
}

// Values live in range maps that share them between pieces and clones, so
// the reads slice is copied before it is written to.
func (a *AccessState) ownReads() {
	a.reads = slices.Clone(a.reads)
}

func (a *AccessState) Empty() bool {
	return !a.hasWrite && len(a.reads) == 0
}

func (a *AccessState) LastWrite() (SyncStageAccessIndex, ResourceUsageTag, bool) {
	return a.lastWrite, a.writeTag, a.hasWrite
}

func (a *AccessState) Reads() []ReadState {
	return a.reads
}

func (a *AccessState) writeInSourceScopeOrChain(srcExec vulkan.PipelineStageFlags2, srcAccess SyncStageAccessFlags) bool {
	return srcAccess.Has(a.lastWrite) || a.writeDepChain&srcExec != 0
}

func (a *AccessState) writeHazard(usage SyncStageAccessIndex) HazardResult {
	return HazardResult{
		Hazard:        WRITE_AFTER_WRITE,
		Usage:         usage,
		PriorUsage:    a.lastWrite,
		PriorTag:      a.writeTag,
		PriorQueue:    a.writeQueue,
		WriteBarriers: a.writeBarriers,
	}
}

func readHazard(hazard SyncHazard, usage SyncStageAccessIndex, r ReadState) HazardResult {
	return HazardResult{
		Hazard:       hazard,
		Usage:        usage,
		PriorUsage:   r.Access,
		PriorTag:     r.Tag,
		PriorQueue:   r.Queue,
		ReadBarriers: r.Barriers,
	}
}

var attachmentAccesses = SyncColorAttachmentOutputColorAttachmentRead.Bit() | SyncColorAttachmentOutputColorAttachmentWrite.Bit() |
	SyncEarlyFragmentTestsDepthStencilAttachmentRead.Bit() | SyncEarlyFragmentTestsDepthStencilAttachmentWrite.Bit() |
	SyncLateFragmentTestsDepthStencilAttachmentRead.Bit() | SyncLateFragmentTestsDepthStencilAttachmentWrite.Bit()

// rasterOrdered reports whether two attachment accesses of the render pass
// instance that began at floor are ordered by rasterization order.
func rasterOrdered(prior SyncStageAccessIndex, priorTag ResourceUsageTag, usage SyncStageAccessIndex, floor ResourceUsageTag) bool {
	return priorTag >= floor && attachmentAccesses.Has(prior) && attachmentAccesses.Has(usage)
}

// DetectHazard checks a new access against the history. Attachment
// accesses tagged at or after rasterFloor belong to the current render pass
// instance.
func (a *AccessState) DetectHazard(usage SyncStageAccessIndex, rasterFloor ResourceUsageTag) HazardResult {
	writeOrdered := !a.hasWrite || a.writeBarriers.Has(usage) || rasterOrdered(a.lastWrite, a.writeTag, usage, rasterFloor)
	if usage.IsRead() {
		if !writeOrdered {
			h := a.writeHazard(usage)
			h.Hazard = READ_AFTER_WRITE
			return h
		}
		return HazardResult{}
	}
	// The last write is ordered before every read recorded since, so a
	// write only has to be ordered after those reads.
	if len(a.reads) > 0 {
		stage := usage.Stage()
		for _, r := range a.reads {
			if stage&^r.Barriers != 0 && !rasterOrdered(r.Access, r.Tag, usage, rasterFloor) {
				return readHazard(WRITE_AFTER_READ, usage, r)
			}
		}
		return HazardResult{}
	}
	if !writeOrdered {
		return a.writeHazard(usage)
	}
	return HazardResult{}
}

// DetectBarrierHazard checks a layout transition, which writes the range,
// against the first scope of its barrier. Accesses outside scope are only
// covered by an earlier dependency chain.
func (a *AccessState) DetectBarrierHazard(srcExec vulkan.PipelineStageFlags2, srcAccess SyncStageAccessFlags, scope barrierScope) HazardResult {
	if len(a.reads) > 0 {
		for _, r := range a.reads {
			covered := r.Barriers&srcExec != 0
			if scope.includes(r.Queue, r.Tag) {
				covered = covered || r.Stage&srcExec != 0
			}
			if !covered {
				return readHazard(WRITE_AFTER_READ, SyncImageLayoutTransition, r)
			}
		}
		return HazardResult{}
	}
	if !a.hasWrite {
		return HazardResult{}
	}
	covered := a.writeDepChain&srcExec != 0
	if scope.includes(a.writeQueue, a.writeTag) {
		covered = covered || srcAccess.Has(a.lastWrite)
	}
	if !covered {
		return a.writeHazard(SyncImageLayoutTransition)
	}
	return HazardResult{}
}

// Update records an access.
func (a *AccessState) Update(usage SyncStageAccessIndex, tag ResourceUsageTag, queue QueueID) {
	if !usage.IsRead() {
		a.setWrite(usage, tag, queue)
		return
	}
	a.ownReads()
	stage := usage.Stage()
	for i := range a.reads {
		if a.reads[i].Stage == stage {
			a.reads[i] = ReadState{Stage: stage, Access: usage, Tag: tag, Queue: queue}
			return
		}
	}
	a.reads = append(a.reads, ReadState{Stage: stage, Access: usage, Tag: tag, Queue: queue})
	a.readStages |= stage
}

func (a *AccessState) setWrite(usage SyncStageAccessIndex, tag ResourceUsageTag, queue QueueID) {
	*a = AccessState{
		hasWrite:   true,
		lastWrite:  usage,
		writeTag:   tag,
		writeQueue: queue,
	}
}

// barrierScope limits a barrier's first scope to the accesses of one queue
// recorded before a tag.
type barrierScope struct {
	queue QueueID
	limit ResourceUsageTag
}

func (s barrierScope) includes(queue QueueID, tag ResourceUsageTag) bool {
	return queue == s.queue && tag < s.limit
}

// SyncBarrier is one resolved execution and memory dependency.
type SyncBarrier struct {
	SrcExecScope   vulkan.PipelineStageFlags2
	SrcAccessScope SyncStageAccessFlags
	DstExecScope   vulkan.PipelineStageFlags2
	DstAccessScope SyncStageAccessFlags
}

func NewSyncBarrier(src, dst SyncExecScope, srcAccess, dstAccess vulkan.AccessFlags2) SyncBarrier {
	return SyncBarrier{
		SrcExecScope:   src.ExecScope,
		SrcAccessScope: src.ValidAccesses & AccessScopeByAccess(srcAccess),
		DstExecScope:   dst.ExecScope,
		DstAccessScope: dst.ValidAccesses & AccessScopeByAccess(dstAccess),
	}
}

// fullBarrier orders everything before against everything after.
func fullBarrier() SyncBarrier {
	src := MakeSrcScope(vulkan.PipelineStage2AllCommands)
	dst := MakeDstScope(vulkan.PipelineStage2AllCommands)
	return NewSyncBarrier(src, dst, vulkan.Access2MemoryRead|vulkan.Access2MemoryWrite, vulkan.Access2MemoryRead|vulkan.Access2MemoryWrite)
}

// ApplyBarrier adds the barrier to the pending state. Barriers of one
// command do not see each other, ApplyPendingBarriers commits them.
func (a *AccessState) ApplyBarrier(scope barrierScope, b SyncBarrier, layoutTransition bool) {
	if layoutTransition {
		a.pendingWriteBarriers |= b.DstAccessScope
		a.pendingWriteDepChain |= b.DstExecScope
		a.pendingLayoutTransition = true
		a.pendingLayoutQueue = scope.queue
		return
	}
	if a.hasWrite && scope.includes(a.writeQueue, a.writeTag) && a.writeInSourceScopeOrChain(b.SrcExecScope, b.SrcAccessScope) {
		a.pendingWriteBarriers |= b.DstAccessScope
		a.pendingWriteDepChain |= b.DstExecScope
	}
	if len(a.reads) == 0 {
		return
	}
	a.ownReads()
	for i := range a.reads {
		r := &a.reads[i]
		if scope.includes(r.Queue, r.Tag) && b.SrcExecScope&(r.Stage|r.Barriers) != 0 {
			r.pendingDepChain |= b.DstExecScope
		}
	}
}

// ApplyPendingBarriers commits the barriers of the current command. A
// layout transition becomes the last write.
func (a *AccessState) ApplyPendingBarriers(tag ResourceUsageTag) {
	if a.pendingLayoutTransition {
		barriers, chain := a.pendingWriteBarriers, a.pendingWriteDepChain
		a.setWrite(SyncImageLayoutTransition, tag, a.pendingLayoutQueue)
		a.writeBarriers = barriers
		a.writeDepChain = chain
		return
	}
	if len(a.reads) > 0 {
		a.ownReads()
		for i := range a.reads {
			r := &a.reads[i]
			r.Barriers |= r.pendingDepChain
			r.pendingDepChain = 0
		}
	}
	a.writeBarriers |= a.pendingWriteBarriers
	a.writeDepChain |= a.pendingWriteDepChain
	a.pendingWriteBarriers = 0
	a.pendingWriteDepChain = 0
}

// hasPending reports whether ApplyPendingBarriers would change anything.
func (a *AccessState) hasPending() bool {
	if a.pendingLayoutTransition || a.pendingWriteBarriers != 0 || a.pendingWriteDepChain != 0 {
		return true
	}
	for _, r := range a.reads {
		if r.pendingDepChain != 0 {
			return true
		}
	}
	return false
}

// Retire drops the accesses of queue up to tag, which have completed.
func (a *AccessState) Retire(queue QueueID, tag ResourceUsageTag) {
	if a.hasWrite && a.writeQueue == queue && a.writeTag <= tag {
		a.hasWrite = false
		a.lastWrite = SyncAccessIndexNone
		a.writeBarriers = 0
		a.writeDepChain = 0
	}
	if len(a.reads) == 0 {
		return
	}
	kept := make([]ReadState, 0, len(a.reads))
	a.readStages = 0
	for _, r := range a.reads {
		if r.Queue == queue && r.Tag <= tag {
			continue
		}
		kept = append(kept, r)
		a.readStages |= r.Stage
	}
	a.reads = kept
}

// minTag is the oldest tag the state refers to.
func (a *AccessState) minTag() (ResourceUsageTag, bool) {
	tag, ok := kMaxTag, false
	if a.hasWrite {
		tag, ok = a.writeTag, true
	}
	for _, r := range a.reads {
		tag, ok = min(tag, r.Tag), true
	}
	return tag, ok
}

// rebase moves every tag down by delta. No tag is below delta.
func (a *AccessState) rebase(delta ResourceUsageTag) {
	if a.hasWrite {
		a.writeTag -= delta
	} else {
		a.writeTag = 0
	}
	if len(a.reads) == 0 {
		return
	}
	a.ownReads()
	for i := range a.reads {
		a.reads[i].Tag -= delta
	}
}

func equalAccessStates(x, y AccessState) bool {
	if x.hasWrite != y.hasWrite || x.lastWrite != y.lastWrite || x.writeTag != y.writeTag ||
		x.writeQueue != y.writeQueue || x.writeBarriers != y.writeBarriers || x.writeDepChain != y.writeDepChain ||
		x.pendingWriteBarriers != y.pendingWriteBarriers || x.pendingWriteDepChain != y.pendingWriteDepChain ||
		x.pendingLayoutTransition != y.pendingLayoutTransition || x.pendingLayoutQueue != y.pendingLayoutQueue {
		return false
	}
	return slices.Equal(x.reads, y.reads)
}
