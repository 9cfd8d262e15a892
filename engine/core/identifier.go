package core

import (
	"fmt"
	"sync"
)

// Identifiers hands out small reusable ids. Released slots are handed out
// again before the table grows.
type Identifiers struct {
	mu     sync.Mutex
	owners []interface{}
}

func NewIdentifiers(capacity int) *Identifiers {
	return &Identifiers{
		owners: make([]interface{}, 0, capacity),
	}
}

func (ids *Identifiers) AquireNewID(owner interface{}) uint32 {
	ids.mu.Lock()
	defer ids.mu.Unlock()

	length := uint32(len(ids.owners))
	for i := uint32(0); i < length; i++ {
		// Existing free spot. Take it.
		if ids.owners[i] == nil {
			ids.owners[i] = owner
			return i
		}
	}

	// No free slot, the new id is the old length.
	ids.owners = append(ids.owners, owner)
	return length
}

func (ids *Identifiers) ReleaseID(id uint32) error {
	ids.mu.Lock()
	defer ids.mu.Unlock()

	length := uint32(len(ids.owners))
	if id >= length {
		return fmt.Errorf("release id '%d' out of range (max=%d): %w", id, length, ErrIdentifierRelease)
	}
	if ids.owners[id] == nil {
		return fmt.Errorf("release id '%d': %w", id, ErrIdentifierRelease)
	}
	ids.owners[id] = nil
	return nil
}

// Owner returns the owner registered for id, nil when the slot is free.
func (ids *Identifiers) Owner(id uint32) interface{} {
	ids.mu.Lock()
	defer ids.mu.Unlock()

	if id >= uint32(len(ids.owners)) {
		return nil
	}
	return ids.owners[id]
}

// Live returns how many ids are currently taken.
func (ids *Identifiers) Live() int {
	ids.mu.Lock()
	defer ids.mu.Unlock()

	n := 0
	for _, o := range ids.owners {
		if o != nil {
			n++
		}
	}
	return n
}
