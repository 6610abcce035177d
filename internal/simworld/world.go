// Package simworld wires together the entity/component store, the
// subzone graph, the event scheduler, and the static content tables
// into the one concrete world type the rest of the simulation operates
// on. Every component store and every resource is a named field here
// rather than a reflection-keyed lookup, so a handler reads w.Health or
// w.Graph directly instead of a generic Resource[Graph]() accessor —
// the same tradeoff the host repo's own ECS package makes against a
// reflective event bus, carried one step further into the world itself.
package simworld

import (
	"math"
	"math/rand"

	"github.com/l1jgo/server/internal/data"
	"github.com/l1jgo/server/internal/ecs"
	"github.com/l1jgo/server/internal/scheduler"
	"github.com/l1jgo/server/internal/subzone"
)

// Clock tracks the simulation's game-time, measured in game-minutes
// since minute 0 of day 0. Now only ever grows, so it can be compared
// directly with scheduled event times.
type Clock struct {
	Now float64
	Day int
}

// Advance moves the clock forward by delta game-minutes and sets Day to
// the number of whole 1440-minute days elapsed.
func (c *Clock) Advance(delta float64) {
	c.Now += delta
	c.Day = int(c.Now / 1440)
}

// TimeOfDay returns the current minute-of-day in [0, 1440).
func (c *Clock) TimeOfDay() float64 {
	return math.Mod(c.Now, 1440)
}

// World is the concrete actor/component/resource container every
// handler, decision routine, and save/load path operates on.
type World struct {
	*ecs.World

	TilePos      *ecs.Store[ecs.TilePos]
	GraphPos     *ecs.Store[ecs.GraphPos]
	Velocity     *ecs.Store[ecs.Velocity]
	Facing       *ecs.Store[ecs.Facing]
	Collider     *ecs.Store[ecs.Collider]
	Hurtbox      *ecs.Store[ecs.Hurtbox]
	Health       *ecs.Store[ecs.Health]
	Hunger       *ecs.Store[ecs.Hunger]
	Inventory    *ecs.Store[ecs.Inventory]
	Equipment    *ecs.Store[ecs.Equipment]
	Combat       *ecs.Store[ecs.Combat]
	Threat       *ecs.Store[ecs.Threat]
	AttackConfig *ecs.Store[ecs.AttackConfig]
	Faction      *ecs.Store[ecs.Faction]
	Home         *ecs.Store[ecs.Home]
	Stockpile    *ecs.Store[ecs.Stockpile]
	TravelPlan   *ecs.Store[ecs.TravelPlan]
	WorldMemory  *ecs.Store[ecs.WorldMemory]
	Lod          *ecs.Store[ecs.Lod]
	Identity     *ecs.Store[ecs.Identity]
	Brain        *ecs.Store[ecs.Brain]
	Loot         *ecs.Store[ecs.Loot]
	LootTableRef *ecs.Store[ecs.LootTableRef]
	Player       *ecs.Store[ecs.Player]

	Graph      *subzone.Graph
	Scheduler  *scheduler.Scheduler[*World]
	Clock      *Clock
	Items      *data.ItemRegistry
	LootTables *data.LootTableManager

	// CombatRNG is the genuine combat RNG stream (flee checks, damage
	// variance). Kept distinct from the deterministic hash-based
	// detection-roll stream used by checkpoint evaluation so that
	// replaying a checkpoint roll never perturbs combat outcomes.
	CombatRNG *rand.Rand
}

// NewWorld constructs an empty world bound to graph, with every
// component store created and registered so Purge strips an actor from
// all of them, and every resource set to its zero-value default. Items
// and LootTables are nil until the caller assigns loaded tables.
func NewWorld(graph *subzone.Graph, rngSeed int64) *World {
	w := &World{
		World: ecs.NewWorld(),

		TilePos:      ecs.NewStore[ecs.TilePos](),
		GraphPos:     ecs.NewStore[ecs.GraphPos](),
		Velocity:     ecs.NewStore[ecs.Velocity](),
		Facing:       ecs.NewStore[ecs.Facing](),
		Collider:     ecs.NewStore[ecs.Collider](),
		Hurtbox:      ecs.NewStore[ecs.Hurtbox](),
		Health:       ecs.NewStore[ecs.Health](),
		Hunger:       ecs.NewStore[ecs.Hunger](),
		Inventory:    ecs.NewStore[ecs.Inventory](),
		Equipment:    ecs.NewStore[ecs.Equipment](),
		Combat:       ecs.NewStore[ecs.Combat](),
		Threat:       ecs.NewStore[ecs.Threat](),
		AttackConfig: ecs.NewStore[ecs.AttackConfig](),
		Faction:      ecs.NewStore[ecs.Faction](),
		Home:         ecs.NewStore[ecs.Home](),
		Stockpile:    ecs.NewStore[ecs.Stockpile](),
		TravelPlan:   ecs.NewStore[ecs.TravelPlan](),
		WorldMemory:  ecs.NewStore[ecs.WorldMemory](),
		Lod:          ecs.NewStore[ecs.Lod](),
		Identity:     ecs.NewStore[ecs.Identity](),
		Brain:        ecs.NewStore[ecs.Brain](),
		Loot:         ecs.NewStore[ecs.Loot](),
		LootTableRef: ecs.NewStore[ecs.LootTableRef](),
		Player:       ecs.NewStore[ecs.Player](),

		Graph:     graph,
		Scheduler: scheduler.New[*World](),
		Clock:     &Clock{},
		CombatRNG: rand.New(rand.NewSource(rngSeed)),
	}

	reg := w.World.Registry()
	reg.Register(w.TilePos)
	reg.Register(w.GraphPos)
	reg.Register(w.Velocity)
	reg.Register(w.Facing)
	reg.Register(w.Collider)
	reg.Register(w.Hurtbox)
	reg.Register(w.Health)
	reg.Register(w.Hunger)
	reg.Register(w.Inventory)
	reg.Register(w.Equipment)
	reg.Register(w.Combat)
	reg.Register(w.Threat)
	reg.Register(w.AttackConfig)
	reg.Register(w.Faction)
	reg.Register(w.Home)
	reg.Register(w.Stockpile)
	reg.Register(w.TravelPlan)
	reg.Register(w.WorldMemory)
	reg.Register(w.Lod)
	reg.Register(w.Identity)
	reg.Register(w.Brain)
	reg.Register(w.Loot)
	reg.Register(w.LootTableRef)
	reg.Register(w.Player)

	return w
}

// IsHighLOD adapts the Lod store to scheduler.IsHighLOD: an actor with
// no Lod component (a settlement, a container) is never treated as
// high-LOD.
func (w *World) IsHighLOD(actor ecs.EntityID) bool {
	l, ok := w.Lod.Get(actor)
	return ok && l.Level == "high"
}

// Alive adapts ecs.World.Alive to scheduler.Alive.
func (w *World) Alive(actor ecs.EntityID) bool {
	return w.World.Alive(actor)
}

// Tick advances the clock by delta game-minutes and dispatches every
// scheduled event up to the new time.
func (w *World) Tick(delta float64) int {
	w.Clock.Advance(delta)
	return w.Scheduler.Tick(w, w.Clock.Now, w.Alive, w.IsHighLOD)
}
