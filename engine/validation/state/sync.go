package state

import (
	"sync"

	"github.com/spaghettifunk/vksync/engine/validation/report"
)

type Fence struct {
	Node
	mu       sync.Mutex
	signaled bool
	queue    *Queue
	seq      uint64
}

func newFence(h report.Handle, createSignaled bool) *Fence {
	return &Fence{
		Node: newNode(h, report.ObjectTypeFence),
		// Make sure to signal the fence if required.
		signaled: createSignaled,
	}
}

func (f *Fence) Signaled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signaled
}

// Pending reports whether the fence waits on a submission that has not
// retired yet.
func (f *Fence) Pending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.signaled && f.queue != nil
}

func (f *Fence) arm(q *Queue, seq uint64) {
	f.mu.Lock()
	f.signaled = false
	f.queue = q
	f.seq = seq
	f.mu.Unlock()
}

func (f *Fence) signal() {
	f.mu.Lock()
	f.signaled = true
	f.mu.Unlock()
}

// Wait retires the submission the fence was armed with. An unsignaled fence
// that was never submitted stays unsignaled and Wait returns false.
func (f *Fence) Wait() bool {
	f.mu.Lock()
	if f.signaled {
		// If already signaled, do not wait.
		f.mu.Unlock()
		return true
	}
	q, seq := f.queue, f.seq
	f.mu.Unlock()

	if q == nil {
		return false
	}
	q.Retire(seq)
	f.signal()
	return true
}

func (f *Fence) Reset() {
	f.mu.Lock()
	f.signaled = false
	f.queue = nil
	f.seq = 0
	f.mu.Unlock()
}

type Semaphore struct {
	Node
	mu        sync.Mutex
	signaler  *Queue
	signalSeq uint64
}

func newSemaphore(h report.Handle) *Semaphore {
	return &Semaphore{Node: newNode(h, report.ObjectTypeSemaphore)}
}

// Signaler returns the queue and submission that last signaled the semaphore.
func (s *Semaphore) Signaler() (*Queue, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signaler, s.signalSeq, s.signaler != nil
}

func (s *Semaphore) signal(q *Queue, seq uint64) {
	s.mu.Lock()
	s.signaler = q
	s.signalSeq = seq
	s.mu.Unlock()
}

// consume unsignals a binary semaphore, returning who signaled it.
func (s *Semaphore) consume() (*Queue, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, seq := s.signaler, s.signalSeq
	s.signaler = nil
	s.signalSeq = 0
	return q, seq, q != nil
}

type Event struct {
	Node
	mu       sync.Mutex
	signaled bool
}

func newEvent(h report.Handle) *Event {
	return &Event{Node: newNode(h, report.ObjectTypeEvent)}
}

func (e *Event) SetSignaled(v bool) {
	e.mu.Lock()
	e.signaled = v
	e.mu.Unlock()
}

func (e *Event) Signaled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.signaled
}

type Swapchain struct {
	Node
	Images        []*Image
	SharedPresent bool
}
