package state

import "sync"

type LockGroup string

const (
	ImageManagement           LockGroup = "image_management"
	BufferManagement          LockGroup = "buffer_management"
	CommandPoolManagement     LockGroup = "command_pool_management"
	CommandBufferManagement   LockGroup = "command_buffer_management"
	RenderpassManagement      LockGroup = "renderpass_management"
	PipelineManagement        LockGroup = "pipeline_management"
	DescriptorManagement      LockGroup = "descriptor_management"
	QueryManagement           LockGroup = "query_management"
	QueueManagement           LockGroup = "queue_management"
	SynchronizationManagement LockGroup = "synchronization_management"
	SwapchainManagement       LockGroup = "swapchain_management"
)

// LockPool hands out one mutex per object table and one per queue.
type LockPool struct {
	locks map[LockGroup]*sync.Mutex
	mu    sync.Mutex // Protects access to the locks map

	queueMutexes map[uint64]*sync.Mutex
}

func NewLockPool() *LockPool {
	return &LockPool{
		locks:        make(map[LockGroup]*sync.Mutex),
		queueMutexes: make(map[uint64]*sync.Mutex),
	}
}

// Get or create a mutex for a specific group
func (lp *LockPool) lock(group LockGroup) *sync.Mutex {
	lp.mu.Lock()
	l, exists := lp.locks[group]
	if !exists {
		l = &sync.Mutex{}
		lp.locks[group] = l
	}
	lp.mu.Unlock()

	l.Lock()
	return l
}

func (lp *LockPool) SafeCall(group LockGroup, fn func() error) error {
	l := lp.lock(group)
	defer l.Unlock()

	return fn()
}

func (lp *LockPool) queueLock(queue uint64) *sync.Mutex {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	l, exists := lp.queueMutexes[queue]
	if !exists {
		l = &sync.Mutex{}
		lp.queueMutexes[queue] = l
	}
	return l
}

// SafeQueueCall serializes fn with every other call made for the same queue.
func (lp *LockPool) SafeQueueCall(queue uint64, fn func() error) error {
	l := lp.queueLock(queue)
	l.Lock()
	defer l.Unlock()

	return fn()
}
