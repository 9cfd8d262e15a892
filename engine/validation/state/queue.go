package state

import (
	"sync"

	"github.com/google/uuid"

	"github.com/spaghettifunk/vksync/engine/containers"
	"github.com/spaghettifunk/vksync/engine/validation/report"
)

// Submission is one batch of a vkQueueSubmit call.
type Submission struct {
	Seq              uint64
	Batch            uuid.UUID
	CommandBuffers   []*CommandBuffer
	WaitSemaphores   []*Semaphore
	SignalSemaphores []*Semaphore
	Fence            *Fence

	waits []queueWait
}

type queueWait struct {
	queue *Queue
	seq   uint64
}

type Queue struct {
	Node
	FamilyIndex uint32
	Index       uint32
	Protected   bool

	mu      sync.Mutex
	pending *containers.RingQueue[*Submission]
	seq     uint64
	retired uint64
}

const initialQueueDepth = 8

func newQueue(h report.Handle, family, index uint32, protected bool) *Queue {
	return &Queue{
		Node:        newNode(h, report.ObjectTypeQueue),
		FamilyIndex: family,
		Index:       index,
		Protected:   protected,
		pending:     containers.NewRingQueue[*Submission](initialQueueDepth),
	}
}

// Submit appends sub to the in-flight list and returns its sequence number.
// Batches without an id get a fresh one.
// The command buffers become pending until the submission retires.
func (q *Queue) Submit(sub *Submission) uint64 {
	q.mu.Lock()
	q.seq++
	sub.Seq = q.seq
	if sub.Batch == uuid.Nil {
		sub.Batch = uuid.New()
	}
	q.pending.Push(sub)
	q.mu.Unlock()

	for _, cb := range sub.CommandBuffers {
		cb.beginUse()
	}
	for _, s := range sub.WaitSemaphores {
		if sq, seq, ok := s.consume(); ok && sq != q {
			sub.waits = append(sub.waits, queueWait{queue: sq, seq: seq})
		}
	}
	for _, s := range sub.SignalSemaphores {
		s.signal(q, sub.Seq)
	}
	if sub.Fence != nil {
		sub.Fence.arm(q, sub.Seq)
	}
	return sub.Seq
}

// Retire completes every submission up to and including seq, along with
// the work on other queues they waited for.
func (q *Queue) Retire(seq uint64) []*Submission {
	q.mu.Lock()
	var done []*Submission
	for !q.pending.IsEmpty() {
		head, _ := q.pending.Peek()
		if head.Seq > seq {
			break
		}
		_, _ = q.pending.Dequeue()
		done = append(done, head)
	}
	if seq > q.retired && seq <= q.seq {
		q.retired = seq
	}
	q.mu.Unlock()

	for _, sub := range done {
		for _, w := range sub.waits {
			w.queue.Retire(w.seq)
		}
		for _, cb := range sub.CommandBuffers {
			cb.endUse()
		}
		if sub.Fence != nil {
			sub.Fence.signal()
		}
	}
	return done
}

// RetireAll completes everything submitted so far.
func (q *Queue) RetireAll() []*Submission {
	q.mu.Lock()
	last := q.seq
	q.mu.Unlock()
	return q.Retire(last)
}

func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.Len()
}

// LastSubmitted returns the sequence number of the newest submission.
func (q *Queue) LastSubmitted() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.seq
}

func (q *Queue) LastRetired() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.retired
}
