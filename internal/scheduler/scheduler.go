// Package scheduler implements the priority-queue event scheduler that
// drives low-LOD (off-screen) actor simulation. Each actor posts its next
// meaningful state change instead of being polled every tick; between
// events an actor costs nothing.
package scheduler

import (
	"container/heap"
	"math"

	"github.com/l1jgo/server/internal/ecs"
)

// EventKind names a scheduled event. Handlers are resolved through a
// static map built once at startup (see RegisterHandler) — never through
// reflection or a dynamically constructed dispatch table.
type EventKind string

const (
	ArriveNode      EventKind = "ARRIVE_NODE"
	HungerCritical  EventKind = "HUNGER_CRITICAL"
	FinishSearch    EventKind = "FINISH_SEARCH"
	FinishWork      EventKind = "FINISH_WORK"
	FinishEat       EventKind = "FINISH_EAT"
	RestComplete    EventKind = "REST_COMPLETE"
	DecisionCycle   EventKind = "DECISION_CYCLE"
	CombatResolved  EventKind = "COMBAT_RESOLVED"
	CommunalMeal    EventKind = "COMMUNAL_MEAL"
)

// Event is one entry in the scheduler's priority queue, ordered by
// (Time, seq) so same-tick posts resolve in post order. Cancellation is
// soft: Cancelled is set and the event is skipped when popped, rather
// than searched out and removed from the heap immediately.
type Event struct {
	Time      float64
	seq       int64
	Actor     ecs.EntityID
	Kind      EventKind
	Data      map[string]any
	Cancelled bool

	index int // heap.Interface bookkeeping
}

type eventHeap []*Event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].Time != h[j].Time {
		return h[i].Time < h[j].Time
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *eventHeap) Push(x any) {
	e := x.(*Event)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Handler resolves one event. W is the concrete world type the owning
// package binds the scheduler to (see simworld.World) — kept generic here
// so this package has no dependency on actor-component layout.
type Handler[W any] func(w W, actor ecs.EntityID, kind EventKind, data map[string]any, s *Scheduler[W], gameTime float64)

// Scheduler is a min-heap event queue ordered by (time, seq), seq being
// the posting order,
// plus a static handler registry and a per-actor pending index used for
// cancellation and introspection.
type Scheduler[W any] struct {
	queue    eventHeap
	seq      int64
	handlers map[EventKind]Handler[W]
	pending  map[ecs.EntityID][]*Event

	Processed int
}

func New[W any]() *Scheduler[W] {
	return &Scheduler[W]{
		handlers: make(map[EventKind]Handler[W]),
		pending:  make(map[ecs.EntityID][]*Event),
	}
}

// RegisterHandler binds kind to a handler. Call once at startup for each
// kind the scheduler must dispatch; never re-register at tick time.
func (s *Scheduler[W]) RegisterHandler(kind EventKind, h Handler[W]) {
	s.handlers[kind] = h
}

// Post schedules kind for actor at the given game-time.
func (s *Scheduler[W]) Post(t float64, actor ecs.EntityID, kind EventKind, data map[string]any) *Event {
	s.seq++
	if data == nil {
		data = map[string]any{}
	}
	e := &Event{Time: t, seq: s.seq, Actor: actor, Kind: kind, Data: data}
	heap.Push(&s.queue, e)
	s.pending[actor] = append(s.pending[actor], e)
	return e
}

// PostDelta schedules kind for actor delta game-minutes after now.
func (s *Scheduler[W]) PostDelta(now, delta float64, actor ecs.EntityID, kind EventKind, data map[string]any) *Event {
	return s.Post(now+delta, actor, kind, data)
}

// CancelActor soft-cancels every pending event for actor. Returns the
// number cancelled.
func (s *Scheduler[W]) CancelActor(actor ecs.EntityID) int {
	events := s.pending[actor]
	delete(s.pending, actor)
	n := 0
	for _, e := range events {
		if !e.Cancelled {
			e.Cancelled = true
			n++
		}
	}
	return n
}

// CancelActorKind soft-cancels actor's pending events of one kind.
func (s *Scheduler[W]) CancelActorKind(actor ecs.EntityID, kind EventKind) int {
	events := s.pending[actor]
	n := 0
	kept := events[:0]
	for _, e := range events {
		if !e.Cancelled && e.Kind == kind {
			e.Cancelled = true
			n++
			continue
		}
		kept = append(kept, e)
	}
	s.pending[actor] = kept
	return n
}

// PeekTime returns the time of the next non-cancelled event, or
// +Inf if the queue is empty.
func (s *Scheduler[W]) PeekTime() float64 {
	for s.queue.Len() > 0 && s.queue[0].Cancelled {
		heap.Pop(&s.queue)
	}
	if s.queue.Len() == 0 {
		return math.Inf(1)
	}
	return s.queue[0].Time
}

// IsHighLOD reports whether actor is currently real-time simulated and
// should have its low-LOD events skipped rather than dispatched.
type IsHighLOD func(actor ecs.EntityID) bool

// Alive reports whether actor is still live in the world.
type Alive func(actor ecs.EntityID) bool

// Tick dispatches every non-cancelled event with Time <= now, skipping
// events for dead or currently-high-LOD actors. It never re-enters
// itself — handlers must not call Tick. Returns the count dispatched.
func (s *Scheduler[W]) Tick(w W, now float64, alive Alive, highLOD IsHighLOD) int {
	count := 0
	for s.queue.Len() > 0 {
		if s.queue[0].Cancelled {
			heap.Pop(&s.queue)
			continue
		}
		if s.queue[0].Time > now {
			break
		}
		e := heap.Pop(&s.queue).(*Event)
		if e.Cancelled {
			continue
		}
		s.removePending(e)
		if alive != nil && !alive(e.Actor) {
			continue
		}
		if highLOD != nil && highLOD(e.Actor) {
			continue
		}
		if h, ok := s.handlers[e.Kind]; ok {
			h(w, e.Actor, e.Kind, e.Data, s, now)
			count++
		}
	}
	s.Processed += count
	return count
}

func (s *Scheduler[W]) removePending(e *Event) {
	list := s.pending[e.Actor]
	for i, pe := range list {
		if pe == e {
			s.pending[e.Actor] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// PendingCount returns the number of non-cancelled events in the queue.
func (s *Scheduler[W]) PendingCount() int {
	n := 0
	for _, e := range s.queue {
		if !e.Cancelled {
			n++
		}
	}
	return n
}

// HasPending reports whether actor has a pending event, optionally
// filtered to one kind ("" matches any kind).
func (s *Scheduler[W]) HasPending(actor ecs.EntityID, kind EventKind) bool {
	for _, e := range s.pending[actor] {
		if e.Cancelled {
			continue
		}
		if kind == "" || e.Kind == kind {
			return true
		}
	}
	return false
}

// EntityPending returns actor's non-cancelled pending events.
func (s *Scheduler[W]) EntityPending(actor ecs.EntityID) []*Event {
	var out []*Event
	for _, e := range s.pending[actor] {
		if !e.Cancelled {
			out = append(out, e)
		}
	}
	return out
}

// SavedEvent is the serializable form of a pending event, used by the
// save/load format.
type SavedEvent struct {
	Time  float64        `json:"time"`
	Actor ecs.EntityID   `json:"actor"`
	Kind  EventKind      `json:"kind"`
	Data  map[string]any `json:"data"`
}

// ToList serializes every non-cancelled pending event.
func (s *Scheduler[W]) ToList() []SavedEvent {
	out := make([]SavedEvent, 0, s.PendingCount())
	for _, e := range s.queue {
		if e.Cancelled {
			continue
		}
		out = append(out, SavedEvent{Time: e.Time, Actor: e.Actor, Kind: e.Kind, Data: e.Data})
	}
	return out
}

// LoadList restores events from a save file, re-posting each one.
func (s *Scheduler[W]) LoadList(events []SavedEvent) {
	for _, se := range events {
		s.Post(se.Time, se.Actor, se.Kind, se.Data)
	}
}
