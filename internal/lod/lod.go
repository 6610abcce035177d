// Package lod implements promotion and demotion of actors between
// high-LOD (real-time, TilePos-resident) and low-LOD (event-driven,
// GraphPos-resident) simulation, plus the zone-transition sweep that
// drives it. World state must stay consistent across a transition —
// nothing appears, disappears, or teleports, and no combat outcome
// changes because of where an actor happened to be simulated.
package lod

import (
	"math/rand"

	"go.uber.org/zap"

	"github.com/l1jgo/server/internal/ecs"
	"github.com/l1jgo/server/internal/scheduler"
	"github.com/l1jgo/server/internal/simworld"
)

// RealTimeCollaborator is the boundary with the out-of-scope real-time
// engine (§6.3). The low-LOD simulation never computes passability
// itself — it always asks the collaborator.
type RealTimeCollaborator interface {
	IsPassable(zone string, x, y float64) bool
	RandomPassableSpot(zone string, x, y, radius float64) (float64, float64, bool)
}

// promotionJitter is how far from a node's anchor a freshly promoted
// actor is placed before passability is checked, matching the original
// random placement window.
const promotionJitter = 2.0

const gracePeriod = 0.5

// Promote moves actor from low-LOD (GraphPos) to high-LOD (TilePos).
// Returns false if actor has no GraphPos or the subzone graph has no
// matching node — it is left untouched in either case. A container
// (Identity.Kind == "container") receives only TilePos: it never gets
// Velocity, Facing, Collider, or Hurtbox, since it never moves or takes
// a hit.
func Promote(w *simworld.World, rtc RealTimeCollaborator, actor ecs.EntityID, gameTime float64, log *zap.Logger) bool {
	gp, ok := w.GraphPos.Get(actor)
	if !ok {
		return false
	}
	node, ok := w.Graph.GetNode(gp.Subzone)
	if !ok {
		return false
	}

	offsetX := (rand.Float64()*2 - 1) * promotionJitter
	offsetY := (rand.Float64()*2 - 1) * promotionJitter
	tileX := float64(node.AnchorX) + offsetX
	tileY := float64(node.AnchorY) + offsetY

	if !rtc.IsPassable(gp.Zone, tileX, tileY) {
		tileX, tileY = float64(node.AnchorX), float64(node.AnchorY)
		if !rtc.IsPassable(gp.Zone, tileX, tileY) {
			if sx, sy, found := rtc.RandomPassableSpot(gp.Zone, float64(node.AnchorX), float64(node.AnchorY), 6.0); found {
				tileX, tileY = sx, sy
			}
		}
	}

	w.Scheduler.CancelActor(actor)

	zone := gp.Zone
	w.GraphPos.Remove(actor)
	w.TilePos.Set(actor, &ecs.TilePos{X: tileX, Y: tileY, Zone: zone})
	w.ZoneAdd(actor, zone)

	isContainer := false
	if ident, ok := w.Identity.Get(actor); ok {
		isContainer = ident.Kind == "container"
	}

	if !isContainer && !w.Velocity.Has(actor) {
		w.Velocity.Set(actor, &ecs.Velocity{})
	}

	if brain, ok := w.Brain.Get(actor); ok {
		brain.Active = true
		if plan, ok := w.TravelPlan.Get(actor); ok && !plan.Complete() {
			brain.State["_sim_destination"] = plan.Destination
			brain.State["_sim_was_traveling"] = true
		}
	}
	w.TravelPlan.Remove(actor)

	if l, ok := w.Lod.Get(actor); ok {
		l.Level = "high"
		l.TransitionUntil = gameTime + gracePeriod
	} else {
		w.Lod.Set(actor, &ecs.Lod{Level: "high", TransitionUntil: gameTime + gracePeriod})
	}

	if !isContainer && w.Health.Has(actor) {
		if !w.Collider.Has(actor) {
			w.Collider.Set(actor, &ecs.Collider{})
		}
		if !w.Hurtbox.Has(actor) {
			w.Hurtbox.Set(actor, &ecs.Hurtbox{})
		}
	}
	if !isContainer && !w.Facing.Has(actor) {
		w.Facing.Set(actor, &ecs.Facing{})
	}

	name := identityName(w, actor)
	log.Debug("promoted actor to high lod",
		zap.String("name", name), zap.Uint64("actor", uint64(actor)),
		zap.Float64("x", tileX), zap.Float64("y", tileY), zap.String("zone", zone))

	return true
}

// ResolveCombat finishes a fight that is still in progress when an
// actor is demoted. lod does not import combat; the caller passes an
// implementation in (events.ResolveCombatForLod is the one backed by
// the combat package).
type ResolveCombat func(w *simworld.World, attacker, defender ecs.EntityID, node string, gameTime float64)

// Demote moves actor from high-LOD (TilePos) to low-LOD (GraphPos).
// Never demotes the Player actor. If the actor was mid-combat when
// demoted, resolveCombat is invoked first so combat never stalls or
// skips a resolution just because an actor left real-time simulation.
func Demote(w *simworld.World, actor ecs.EntityID, gameTime float64, resolveCombat ResolveCombat, log *zap.Logger) bool {
	if w.Player.Has(actor) {
		return false
	}
	tp, ok := w.TilePos.Get(actor)
	if !ok {
		return false
	}
	node, ok := w.Graph.NearestNodeToTile(tp.Zone, int(tp.X), int(tp.Y))
	if !ok {
		return false
	}

	brain, hasBrain := w.Brain.Get(actor)
	if hasBrain && resolveCombat != nil {
		if target, ok := brain.AttackTarget(); ok && w.Alive(target) {
			resolveCombat(w, actor, target, node.ID, gameTime)
			if !w.Alive(actor) {
				return true
			}
		}
	}

	zone := tp.Zone
	w.TilePos.Remove(actor)
	w.GraphPos.Set(actor, &ecs.GraphPos{Zone: zone, Subzone: node.ID})
	w.ZoneRemove(actor)

	if vel, ok := w.Velocity.Get(actor); ok {
		vel.X, vel.Y = 0, 0
	}

	if hasBrain {
		brain.Active = false
		for k := range brain.State {
			delete(brain.State, k)
		}
	}

	if l, ok := w.Lod.Get(actor); ok {
		l.Level = "low"
	} else {
		w.Lod.Set(actor, &ecs.Lod{Level: "low"})
	}

	scheduleInitialEvents(w, actor, node.ID, gameTime)

	name := identityName(w, actor)
	log.Debug("demoted actor to low lod",
		zap.String("name", name), zap.Uint64("actor", uint64(actor)), zap.String("subzone", node.ID))

	return true
}

// scheduleInitialEvents posts the two events every freshly demoted
// actor needs: a hunger prediction and a decision cycle.
func scheduleInitialEvents(w *simworld.World, actor ecs.EntityID, nodeID string, gameTime float64) {
	if hunger, ok := w.Hunger.Get(actor); ok && hunger.Rate > 0 {
		untilCritical := (hunger.Current - hunger.Maximum*0.3) / (hunger.Rate * 60)
		if untilCritical < 0 {
			untilCritical = 0
		}
		w.Scheduler.PostDelta(gameTime, untilCritical, actor, scheduler.HungerCritical, nil)
	}
	delay := 1.0 + rand.Float64()*4.0
	w.Scheduler.PostDelta(gameTime, delay, actor, scheduler.DecisionCycle, map[string]any{"node": nodeID})
}

func identityName(w *simworld.World, actor ecs.EntityID) string {
	if ident, ok := w.Identity.Get(actor); ok {
		return ident.Name
	}
	return "?"
}

// OnPlayerEnterZone promotes every low-LOD actor whose GraphPos is in
// newZone and demotes every high-LOD non-player actor whose TilePos is
// not. Returns the counts promoted and demoted.
func OnPlayerEnterZone(w *simworld.World, rtc RealTimeCollaborator, newZone string, gameTime float64, resolveCombat ResolveCombat, log *zap.Logger) (promoted, demoted int) {
	var toPromote []ecs.EntityID
	w.GraphPos.Each(func(id ecs.EntityID, gp *ecs.GraphPos) {
		if gp.Zone == newZone && w.Alive(id) {
			toPromote = append(toPromote, id)
		}
	})
	for _, id := range toPromote {
		if Promote(w, rtc, id, gameTime, log) {
			promoted++
		}
	}

	var toDemote []ecs.EntityID
	w.TilePos.Each(func(id ecs.EntityID, tp *ecs.TilePos) {
		if tp.Zone != newZone && !w.Player.Has(id) && w.Alive(id) {
			toDemote = append(toDemote, id)
		}
	})
	for _, id := range toDemote {
		if Demote(w, id, gameTime, resolveCombat, log) {
			demoted++
		}
	}

	log.Info("zone transition", zap.String("zone", newZone), zap.Int("promoted", promoted), zap.Int("demoted", demoted))
	return promoted, demoted
}

// DemoteAllNonPlayer demotes every high-LOD non-player actor. Used at
// world bootstrap to move freshly spawned actors into the event queue.
func DemoteAllNonPlayer(w *simworld.World, gameTime float64, log *zap.Logger) int {
	var ids []ecs.EntityID
	w.TilePos.Each(func(id ecs.EntityID, _ *ecs.TilePos) {
		if !w.Player.Has(id) && w.Alive(id) {
			ids = append(ids, id)
		}
	})
	demoted := 0
	for _, id := range ids {
		if Demote(w, id, gameTime, nil, log) {
			demoted++
		}
	}
	return demoted
}

// IsHighLOD reports whether actor is currently real-time simulated.
// Unlike simworld.World.IsHighLOD, an actor with no Lod component
// counts as high-LOD here when it has TilePos and no GraphPos.
func IsHighLOD(w *simworld.World, actor ecs.EntityID) bool {
	if l, ok := w.Lod.Get(actor); ok {
		return l.Level == "high"
	}
	return w.TilePos.Has(actor) && !w.GraphPos.Has(actor)
}
