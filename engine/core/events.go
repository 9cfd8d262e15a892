package core

import "sync"

// EventContext carries the payload of a fired event.
type EventContext struct {
	Data struct {
		U64 [2]uint64
		U32 [4]uint32
		C   [2]string
	}
	// Object is the state object the event is about, if any.
	Object interface{}
}

type SystemEventCode int

const (
	// An object was destroyed.
	/* Context usage:
	 * u64 handle = data.U64[0];
	 * u32 object type = data.U32[0];
	 */
	EVENT_CODE_OBJECT_DESTROYED SystemEventCode = 0x01

	// A descriptor set was updated after being bound.
	/* Context usage:
	 * u64 handle = data.U64[0];
	 */
	EVENT_CODE_DESCRIPTOR_SET_UPDATED SystemEventCode = 0x02

	// A command buffer was reset, begun again or freed.
	/* Context usage:
	 * u64 handle = data.U64[0];
	 */
	EVENT_CODE_COMMAND_BUFFER_RERECORDED SystemEventCode = 0x03

	// The settings file was reloaded.
	/* Context usage:
	 * Object = *config.Settings
	 */
	EVENT_CODE_SETTINGS_RELOADED SystemEventCode = 0x04

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

// Should return true if handled.
type FnOnEvent func(code SystemEventCode, sender interface{}, listener interface{}, data EventContext) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

// EventBus dispatches events to the listeners registered for their code.
type EventBus struct {
	mu         sync.RWMutex
	registered map[SystemEventCode][]*registeredEvent
}

func NewEventBus() *EventBus {
	return &EventBus{
		registered: make(map[SystemEventCode][]*registeredEvent),
	}
}

/**
 * Register to listen for when events are sent with the provided code. A listener
 * may only be registered once per code, a duplicate registration returns false.
 * @param code The event code to listen for.
 * @param listener The listener instance, used as the registration key.
 * @param onEvent The callback invoked when the event code is fired.
 * @returns true if the event is successfully registered; otherwise false.
 */
func (eb *EventBus) Register(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for _, e := range eb.registered[code] {
		if e.listener == listener {
			return false
		}
	}
	eb.registered[code] = append(eb.registered[code], &registeredEvent{
		listener: listener,
		callback: onEvent,
	})
	return true
}

/**
 * Unregister from listening for when events are sent with the provided code.
 * @returns true if the listener was found and removed; otherwise false.
 */
func (eb *EventBus) Unregister(code SystemEventCode, listener interface{}) bool {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	events := eb.registered[code]
	for i, e := range events {
		if e.listener == listener {
			eb.registered[code] = append(events[:i], events[i+1:]...)
			return true
		}
	}
	return false
}

/**
 * Fires an event to listeners of the given code. If a handler returns
 * true, the event is considered handled and is not passed on to any more listeners.
 * @returns true if handled, otherwise false.
 */
func (eb *EventBus) Fire(code SystemEventCode, sender interface{}, context EventContext) bool {
	eb.mu.RLock()
	events := make([]*registeredEvent, len(eb.registered[code]))
	copy(events, eb.registered[code])
	eb.mu.RUnlock()

	for _, e := range events {
		if e.callback(code, sender, e.listener, context) {
			return true
		}
	}
	return false
}

// Listeners returns how many listeners are registered for code.
func (eb *EventBus) Listeners(code SystemEventCode) int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.registered[code])
}
