package anvil

import (
	"slices"

	"github.com/akmonengine/anvil/actor"
)

const (
	TRIGGER_ENTER EventType = iota
	COLLISION_ENTER
	TRIGGER_STAY
	COLLISION_STAY
	TRIGGER_EXIT
	COLLISION_EXIT
	ON_SLEEP
	ON_WAKE
	JOINT_BREAK
)

// contactKey tracks a touching pair; the same pair may be touching through a
// trigger shape and a solid shape at once.
type contactKey struct {
	pair    Pair
	trigger bool
}

func compareContactKeys(a, b contactKey) int {
	if c := comparePairs(a.pair, b.pair); c != 0 {
		return c
	}
	switch {
	case a.trigger == b.trigger:
		return 0
	case a.trigger:
		return -1
	}
	return 1
}

type EventType uint8

// Event interface - all events implement this
type Event interface {
	Type() EventType
}

// Trigger events
type TriggerEnterEvent struct {
	ActorA ActorID
	ActorB ActorID
}

func (e TriggerEnterEvent) Type() EventType { return TRIGGER_ENTER }

type TriggerStayEvent struct {
	ActorA ActorID
	ActorB ActorID
}

func (e TriggerStayEvent) Type() EventType { return TRIGGER_STAY }

type TriggerExitEvent struct {
	ActorA ActorID
	ActorB ActorID
}

func (e TriggerExitEvent) Type() EventType { return TRIGGER_EXIT }

// Collision events
type CollisionEnterEvent struct {
	ActorA ActorID
	ActorB ActorID
}

func (e CollisionEnterEvent) Type() EventType { return COLLISION_ENTER }

type CollisionStayEvent struct {
	ActorA ActorID
	ActorB ActorID
}

func (e CollisionStayEvent) Type() EventType { return COLLISION_STAY }

type CollisionExitEvent struct {
	ActorA ActorID
	ActorB ActorID
}

func (e CollisionExitEvent) Type() EventType { return COLLISION_EXIT }

// Sleep/Wake events
type SleepEvent struct {
	Actor ActorID
}

func (e SleepEvent) Type() EventType { return ON_SLEEP }

type WakeEvent struct {
	Actor ActorID
}

func (e WakeEvent) Type() EventType { return ON_WAKE }

// JointBreakEvent is sent once, on the step the joint exceeded its break force or torque
type JointBreakEvent struct {
	Joint  JointID
	ActorA ActorID
	ActorB ActorID
}

func (e JointBreakEvent) Type() EventType { return JOINT_BREAK }

// EventListener - callback for events
type EventListener func(event Event)

// Events buffers what happened during a step until the results are fetched.
// Event order only depends on actor ids, never on map iteration.
type Events struct {
	// Listeners by event type
	listeners map[EventType][]EventListener

	// Event buffer to send at flush
	buffer []Event

	// Collision tracking for Enter/Stay/Exit detection
	previousActivePairs map[contactKey]bool
	currentActivePairs  map[contactKey]bool

	sleepStates map[ActorID]bool
}

func NewEvents() Events {
	return Events{
		listeners:           make(map[EventType][]EventListener),
		buffer:              make([]Event, 0, 256),
		previousActivePairs: make(map[contactKey]bool),
		currentActivePairs:  make(map[contactKey]bool),
		sleepStates:         make(map[ActorID]bool),
	}
}

// Subscribe adds a listener for an event type
func (e *Events) Subscribe(eventType EventType, listener EventListener) {
	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

// recordContact is called during substeps for every touching pair
func (e *Events) recordContact(pair Pair, trigger bool) {
	e.currentActivePairs[contactKey{pair: pair, trigger: trigger}] = true
}

func (e *Events) emitJointBreak(joint JointID, a, b ActorID) {
	e.buffer = append(e.buffer, JointBreakEvent{Joint: joint, ActorA: a, ActorB: b})
}

// processCollisionEvents compares current and previous pairs to detect Enter/Stay/Exit.
// Pairs at rest are not tested by the narrow phase anymore; they are carried
// over silently instead of being reported as exits.
func (e *Events) processCollisionEvents(resting func(Pair) bool) {
	current := sortedContactKeys(e.currentActivePairs)
	for _, key := range current {
		a, b := key.pair.A, key.pair.B
		switch {
		case e.previousActivePairs[key] && key.trigger:
			e.buffer = append(e.buffer, TriggerStayEvent{ActorA: a, ActorB: b})
		case e.previousActivePairs[key]:
			e.buffer = append(e.buffer, CollisionStayEvent{ActorA: a, ActorB: b})
		case key.trigger:
			e.buffer = append(e.buffer, TriggerEnterEvent{ActorA: a, ActorB: b})
		default:
			e.buffer = append(e.buffer, CollisionEnterEvent{ActorA: a, ActorB: b})
		}
	}

	for _, key := range sortedContactKeys(e.previousActivePairs) {
		if e.currentActivePairs[key] {
			continue
		}
		if resting(key.pair) {
			e.currentActivePairs[key] = true
			continue
		}

		a, b := key.pair.A, key.pair.B
		if key.trigger {
			e.buffer = append(e.buffer, TriggerExitEvent{ActorA: a, ActorB: b})
		} else {
			e.buffer = append(e.buffer, CollisionExitEvent{ActorA: a, ActorB: b})
		}
	}

	// Swap for next frame and clear current
	e.previousActivePairs, e.currentActivePairs = e.currentActivePairs, e.previousActivePairs
	clear(e.currentActivePairs)
}

// processSleepEvents reports the dynamic bodies whose sleep state changed
// since the last call. bodies are expected sorted by id.
func (e *Events) processSleepEvents(bodies []*actor.RigidBody) {
	for _, body := range bodies {
		if body.IsStatic() {
			continue
		}

		id := ActorID(body.ID)
		trackedState, exists := e.sleepStates[id]
		if !exists {
			e.sleepStates[id] = body.IsSleeping
			continue
		}

		if !trackedState && body.IsSleeping {
			e.buffer = append(e.buffer, SleepEvent{Actor: id})
			e.sleepStates[id] = true
		} else if trackedState && !body.IsSleeping {
			e.buffer = append(e.buffer, WakeEvent{Actor: id})
			e.sleepStates[id] = false
		}
	}
}

// forget drops every trace of a released actor, so it never gets an exit event
func (e *Events) forget(id ActorID) {
	delete(e.sleepStates, id)
	for key := range e.previousActivePairs {
		if key.pair.A == id || key.pair.B == id {
			delete(e.previousActivePairs, key)
		}
	}
}

// flush binds the buffered events to their listeners and clears the buffer.
// The returned calls are run by the caller once the world is unlocked, so
// listeners may call back into the world.
func (e *Events) flush() []func() {
	var calls []func()
	for _, event := range e.buffer {
		for _, listener := range e.listeners[event.Type()] {
			calls = append(calls, func() { listener(event) })
		}
	}
	e.buffer = e.buffer[:0]
	return calls
}

func sortedContactKeys(pairs map[contactKey]bool) []contactKey {
	keys := make([]contactKey, 0, len(pairs))
	for key := range pairs {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, compareContactKeys)
	return keys
}
