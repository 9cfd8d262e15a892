package state

import (
	"sort"
	"sync"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vksync/engine/validation/report"
	"github.com/spaghettifunk/vksync/engine/vulkan"
)

type CommandPoolCreateInfo struct {
	Flags            vk.CommandPoolCreateFlags
	QueueFamilyIndex uint32
}

type CommandPool struct {
	Node
	CreateInfo CommandPoolCreateInfo

	mu      sync.Mutex
	buffers map[report.Handle]*CommandBuffer
}

func newCommandPool(h report.Handle, ci CommandPoolCreateInfo) *CommandPool {
	return &CommandPool{
		Node:       newNode(h, report.ObjectTypeCommandPool),
		CreateInfo: ci,
		buffers:    make(map[report.Handle]*CommandBuffer),
	}
}

// CanResetBuffers reports whether individual command buffers of the pool
// may be reset, explicitly or by vkBeginCommandBuffer.
func (p *CommandPool) CanResetBuffers() bool {
	return p.CreateInfo.Flags&vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit) != 0
}

func (p *CommandPool) Protected() bool {
	return p.CreateInfo.Flags&vulkan.CommandPoolCreateProtected != 0
}

func (p *CommandPool) QueueFamilyIndex() uint32 {
	return p.CreateInfo.QueueFamilyIndex
}

// CommandBuffers returns the pool's command buffers ordered by handle.
func (p *CommandPool) CommandBuffers() []*CommandBuffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*CommandBuffer, 0, len(p.buffers))
	for _, cb := range p.buffers {
		out = append(out, cb)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Handle().Handle < out[j].Handle().Handle
	})
	return out
}

func (p *CommandPool) add(cb *CommandBuffer) {
	p.mu.Lock()
	p.buffers[cb.Handle().Handle] = cb
	p.mu.Unlock()
}

func (p *CommandPool) remove(cb *CommandBuffer) {
	p.mu.Lock()
	delete(p.buffers, cb.Handle().Handle)
	p.mu.Unlock()
}
