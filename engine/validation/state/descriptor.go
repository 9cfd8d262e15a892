package state

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vksync/engine/validation/report"
	"github.com/spaghettifunk/vksync/engine/vulkan"
)

// ShaderAccess is how the shaders declared to use a binding touch it.
type ShaderAccess int

const (
	ShaderAccessRead ShaderAccess = iota
	ShaderAccessWrite
	// Atomics read and write, they are tracked as reads.
	ShaderAccessAtomic
)

func (a ShaderAccess) String() string {
	switch a {
	case ShaderAccessWrite:
		return "write"
	case ShaderAccessAtomic:
		return "atomic"
	default:
		return "read"
	}
}

// DescriptorBinding is the resource written to one descriptor.
type DescriptorBinding struct {
	Binding     uint32
	Type        vk.DescriptorType
	Stages      vulkan.PipelineStageFlags2
	Access      ShaderAccess
	ImageView   *ImageView
	ImageLayout vk.ImageLayout
	Buffer      *Buffer
	Offset      uint64
	Range       uint64
}

// IsWrite reports whether the binding is tracked as a write.
func (b *DescriptorBinding) IsWrite() bool {
	return b.Access == ShaderAccessWrite
}

type DescriptorSet struct {
	Node
	Bindings []DescriptorBinding
}

func newDescriptorSet(h report.Handle) *DescriptorSet {
	return &DescriptorSet{
		Node: newNode(h, report.ObjectTypeDescriptorSet),
	}
}

// Binding returns the descriptor written at binding, if any.
func (ds *DescriptorSet) Binding(binding uint32) (*DescriptorBinding, bool) {
	for i := range ds.Bindings {
		if ds.Bindings[i].Binding == binding {
			return &ds.Bindings[i], true
		}
	}
	return nil, false
}

func (ds *DescriptorSet) write(b DescriptorBinding) {
	if cur, ok := ds.Binding(b.Binding); ok {
		*cur = b
		return
	}
	ds.Bindings = append(ds.Bindings, b)
}
