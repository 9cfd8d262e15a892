package state

import (
	"sync"

	"github.com/spaghettifunk/vksync/engine/validation/report"
)

// Object is implemented by every tracked state object.
type Object interface {
	Handle() report.TypedHandle
	base() *Node
}

// Node is the part shared by all state objects: the handle and the set of
// command buffers that reference the object.
type Node struct {
	handle    report.TypedHandle
	mu        sync.Mutex
	parents   map[*CommandBuffer]struct{}
	destroyed bool
}

func newNode(h report.Handle, t report.ObjectType) Node {
	return Node{
		handle:  report.NewTypedHandle(h, t),
		parents: make(map[*CommandBuffer]struct{}),
	}
}

func (n *Node) Handle() report.TypedHandle { return n.handle }

func (n *Node) base() *Node { return n }

func (n *Node) Destroyed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.destroyed
}

func (n *Node) addParent(cb *CommandBuffer) {
	n.mu.Lock()
	n.parents[cb] = struct{}{}
	n.mu.Unlock()
}

func (n *Node) removeParent(cb *CommandBuffer) {
	n.mu.Lock()
	delete(n.parents, cb)
	n.mu.Unlock()
}

// Parents returns the command buffers currently referencing the object.
func (n *Node) Parents() []*CommandBuffer {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*CommandBuffer, 0, len(n.parents))
	for cb := range n.parents {
		out = append(out, cb)
	}
	return out
}

// InUse reports whether a pending command buffer references the object.
func (n *Node) InUse() bool {
	for _, cb := range n.Parents() {
		if cb.InUse() {
			return true
		}
	}
	return false
}

// notifyInvalidate tells every parent that the chain of objects ending
// in this one is no longer valid.
func (n *Node) notifyInvalidate(chain report.LogObjectList, unlink bool) {
	for _, cb := range n.Parents() {
		cb.notifyInvalidate(chain, unlink)
	}
	if unlink {
		n.mu.Lock()
		n.parents = make(map[*CommandBuffer]struct{})
		n.mu.Unlock()
	}
}

func (n *Node) markDestroyed() {
	n.mu.Lock()
	n.destroyed = true
	n.mu.Unlock()
}
