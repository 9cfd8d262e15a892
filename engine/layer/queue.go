package layer

import (
	"github.com/spaghettifunk/vksync/engine/core"
	"github.com/spaghettifunk/vksync/engine/validation/report"
	"github.com/spaghettifunk/vksync/engine/validation/state"
)

func (l *Layer) QueueSubmit(q *state.Queue, subs []*state.Submission) error {
	return l.queueSubmit("vkQueueSubmit", q, subs)
}

// QueueSubmit2 takes the same batches, only the reported locations differ.
func (l *Layer) QueueSubmit2(q *state.Queue, subs []*state.Submission) error {
	return l.queueSubmit("vkQueueSubmit2", q, subs)
}

func (l *Layer) queueSubmit(function string, q *state.Queue, subs []*state.Submission) error {
	skip := l.Core.PreCallValidateQueueSubmit(function, q, subs)
	skip = l.Sync.PreCallValidateQueueSubmit(function, q, subs) || skip
	return l.finish(skip, func() {
		seqs := l.Tracker.QueueSubmit(q, subs)
		l.Core.PostCallRecordQueueSubmit(q, subs)
		l.Sync.PostCallRecordQueueSubmit(q, subs)
		for i, sub := range subs {
			core.LogDebug("%s: %s batch %s seq %d, %d command buffers", function,
				l.Reporter.FormatHandle(q.Handle()), sub.Batch, seqs[i], len(sub.CommandBuffers))
		}
	})
}

// WaitForFences retires the submissions of the fences that signal.
func (l *Layer) WaitForFences(fences []*state.Fence) {
	signaled := l.Tracker.WaitForFences(fences)
	l.Sync.PostCallRecordWaitForFences(signaled)
}

func (l *Layer) QueueWaitIdle(q *state.Queue) {
	l.Tracker.QueueWaitIdle(q)
	l.Sync.PostCallRecordQueueWaitIdle(q)
}

func (l *Layer) DeviceWaitIdle() {
	l.Tracker.DeviceWaitIdle()
	l.Sync.PostCallRecordDeviceWaitIdle()
}

// Destroy destroys any object by typed handle. Command pools go through
// DestroyCommandPool so in-flight command buffers are reported.
func (l *Layer) Destroy(h report.TypedHandle) error {
	if h.Type == report.ObjectTypeCommandPool {
		pool, err := l.Tracker.CommandPool(h.Handle)
		if err != nil {
			return err
		}
		return l.DestroyCommandPool(pool)
	}
	if h.Type == report.ObjectTypeCommandBuffer {
		cb, err := l.Tracker.CommandBuffer(h.Handle)
		if err != nil {
			return err
		}
		return l.FreeCommandBuffers([]*state.CommandBuffer{cb})
	}
	return l.Tracker.Destroy(h)
}

// SetObjectName attaches a debug name shown in messages.
func (l *Layer) SetObjectName(h report.Handle, name string) {
	l.Reporter.SetObjectName(h, name)
}

func (l *Layer) warn(function string, err error) {
	core.LogWarn("%s: %s", function, err)
}
