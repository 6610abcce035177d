// Package checkpoint implements the ARRIVE_NODE evaluation: presence,
// discovery, and interrupt checks run in order every time an actor
// reaches a subzone node.
package checkpoint

import (
	"encoding/binary"
	"fmt"
	"math"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/l1jgo/server/internal/ecs"
	"github.com/l1jgo/server/internal/scheduler"
	"github.com/l1jgo/server/internal/simworld"
	"github.com/l1jgo/server/internal/subzone"
)

// Outcome is the result of a checkpoint evaluation.
type Outcome string

const (
	Continue  Outcome = "continue"
	Encounter Outcome = "encounter"
	Divert    Outcome = "divert"
	Arrived   Outcome = "arrived"
)

// EncounterResolver starts hostile combat between two actors at node.
// Injected by the composition root so this package doesn't need to
// import combat directly.
type EncounterResolver func(w *simworld.World, actor, other ecs.EntityID, nodeID string, gameTime float64)

// ContinueTraveler advances actor's travel plan past nodeID. Injected
// so this package doesn't need to import travel directly.
type ContinueTraveler func(w *simworld.World, actor ecs.EntityID, nodeID string, gameTime float64) bool

const defaultDetectionDistance = 2.0

// Run performs the full checkpoint evaluation for actor arriving at
// nodeID. See §4.6 for the step order: presence, discovery, interrupt,
// then continue-or-arrive.
func Run(w *simworld.World, actor ecs.EntityID, nodeID string, resolve EncounterResolver, cont ContinueTraveler, gameTime float64, log *zap.Logger) Outcome {
	node, ok := w.Graph.GetNode(nodeID)
	if !ok {
		return Continue
	}

	if presenceCheck(w, actor, nodeID, node, resolve, gameTime, log) == Encounter {
		return Encounter
	}

	discoveryCheck(w, actor, node, gameTime)

	if interruptCheck(w, actor, node, gameTime) {
		return Divert
	}

	if plan, ok := w.TravelPlan.Get(actor); ok && !plan.Complete() {
		if cont(w, actor, nodeID, gameTime) {
			return Continue
		}
		return Arrived
	}
	return Arrived
}

// EntitiesAtNode returns every live actor whose GraphPos.Subzone is
// nodeID, excluding exclude.
func EntitiesAtNode(w *simworld.World, nodeID string, exclude ecs.EntityID) []ecs.EntityID {
	var out []ecs.EntityID
	w.GraphPos.Each(func(id ecs.EntityID, gp *ecs.GraphPos) {
		if gp.Subzone == nodeID && id != exclude && w.Alive(id) {
			out = append(out, id)
		}
	})
	return out
}

func presenceCheck(w *simworld.World, actor ecs.EntityID, nodeID string, node *subzone.Node, resolve EncounterResolver, gameTime float64, log *zap.Logger) Outcome {
	myFaction, _ := w.Faction.Get(actor)

	for _, other := range EntitiesAtNode(w, nodeID, actor) {
		otherFaction, _ := w.Faction.Get(other)
		switch relationship(myFaction, otherFaction) {
		case "hostile":
			resolve(w, actor, other, nodeID, gameTime)
			return Encounter
		case "friendly":
			shareMemories(w, actor, other, gameTime, log)
		}
	}

	myVisibility := node.Visibility
	if myVisibility == 0 {
		myVisibility = 0.5
	}
	for neighborID, travelTime := range node.Connections {
		neighbor, ok := w.Graph.GetNode(neighborID)
		if !ok {
			continue
		}
		neighborVisibility := neighbor.Visibility
		if neighborVisibility == 0 {
			neighborVisibility = 0.5
		}
		detectionChance := myVisibility * neighborVisibility
		if detectionRoll(actor, neighborID, gameTime) > detectionChance {
			continue
		}

		for _, other := range EntitiesAtNode(w, neighborID, actor) {
			otherFaction, _ := w.Faction.Get(other)
			switch relationship(myFaction, otherFaction) {
			case "hostile":
				if health, ok := w.Health.Get(actor); ok {
					ratio := health.Current / math.Max(health.Maximum, 1)
					if ratio < 0.3 {
						logAwareness(w, log, actor, other, neighborID, "fleeing")
						continue
					}
				}
				t := travelTime
				if t == 0 {
					t = defaultDetectionDistance
				}
				w.Scheduler.PostDelta(gameTime, t, actor, scheduler.ArriveNode, map[string]any{
					"node": neighborID, "from": nodeID,
				})
				logAwareness(w, log, actor, other, neighborID, "engaging")
				return Encounter
			case "friendly":
				if wmem, ok := w.WorldMemory.Get(actor); ok {
					otherName := "unknown"
					if ident, ok := w.Identity.Get(other); ok {
						otherName = ident.Name
					}
					wmem.Observe(fmt.Sprintf("nearby:%d", other), map[string]any{
						"node": neighborID, "name": otherName,
					}, gameTime, 60.0)
				}
			}
		}
	}

	return Continue
}

func discoveryCheck(w *simworld.World, actor ecs.EntityID, node *subzone.Node, gameTime float64) {
	wmem, ok := w.WorldMemory.Get(actor)
	if !ok {
		return
	}

	wmem.Observe(fmt.Sprintf("location:%s", node.ID), map[string]any{
		"zone":          node.Zone,
		"shelter":       node.Shelter,
		"threat_level":  node.ThreatLevel,
		"containers":    len(node.Containers),
		"resources":     node.Resources,
	}, gameTime, 600.0)

	for _, containerID := range node.Containers {
		cid := ecs.EntityID(containerID)
		if inv, ok := w.Inventory.Get(cid); ok {
			hasItems := len(inv.Items) > 0
			wmem.Observe(fmt.Sprintf("container:%d", cid), map[string]any{
				"node":       node.ID,
				"has_items":  hasItems,
				"item_count": inv.Count(),
			}, gameTime, 300.0)
		}
	}

	for _, other := range EntitiesAtNode(w, node.ID, actor) {
		name, group, disposition := "unknown", "unknown", "neutral"
		if ident, ok := w.Identity.Get(other); ok {
			name = ident.Name
		}
		if faction, ok := w.Faction.Get(other); ok {
			group = faction.Group
			disposition = faction.Disposition
		}
		wmem.Observe(fmt.Sprintf("entity:%d", other), map[string]any{
			"node": node.ID, "name": name, "group": group, "disposition": disposition,
		}, gameTime, 200.0)
	}
}

func interruptCheck(w *simworld.World, actor ecs.EntityID, node *subzone.Node, gameTime float64) bool {
	if hunger, ok := w.Hunger.Get(actor); ok {
		ratio := hunger.Current / math.Max(hunger.Maximum, 0.01)
		if ratio < 0.25 {
			if inv, ok := w.Inventory.Get(actor); ok && len(inv.Items) > 0 {
				w.Scheduler.PostDelta(gameTime, 2.0, actor, scheduler.FinishEat, map[string]any{"node": node.ID})
				return true
			}
			if len(node.Containers) > 0 {
				w.Scheduler.PostDelta(gameTime, 5.0, actor, scheduler.FinishSearch, map[string]any{
					"node": node.ID, "container": node.Containers[0],
				})
				return true
			}
		}
	}

	if health, ok := w.Health.Get(actor); ok && node.Shelter {
		ratio := health.Current / math.Max(health.Maximum, 0.01)
		if ratio < 0.4 {
			duration := math.Max(5.0, (1.0-ratio)*30.0)
			w.Scheduler.PostDelta(gameTime, duration, actor, scheduler.RestComplete, map[string]any{
				"node": node.ID, "duration": duration,
			})
			return true
		}
	}

	return false
}

// relationship determines how actor and other relate based on
// Faction: same group is always friendly; a hostile disposition on
// either side makes the pairing hostile; friendly on both sides makes
// it friendly; otherwise neutral.
func relationship(mine, other *ecs.Faction) string {
	if mine == nil || other == nil {
		return "neutral"
	}
	if mine.Group == other.Group {
		return "friendly"
	}
	if mine.Disposition == "hostile" || other.Disposition == "hostile" {
		return "hostile"
	}
	if mine.Disposition == "friendly" && other.Disposition == "friendly" {
		return "friendly"
	}
	return "neutral"
}

// detectionRoll is a deterministic, reproducible [0,1) value derived
// from (actor, neighborID, whole game-minute). Kept entirely separate from
// the combat package's math/rand stream (see §9) so replaying the same
// arrival always yields the same spot/no-spot outcome.
func detectionRoll(actor ecs.EntityID, neighborID string, gameTime float64) float64 {
	sum := blake2b.Sum256([]byte(fmt.Sprintf("%d:%s:%d", actor, neighborID, int(gameTime))))
	v := binary.BigEndian.Uint32(sum[:4])
	return float64(v) / (float64(math.MaxUint32) + 1)
}

func shareMemories(w *simworld.World, a, b ecs.EntityID, gameTime float64, log *zap.Logger) {
	memA, okA := w.WorldMemory.Get(a)
	memB, okB := w.WorldMemory.Get(b)
	if !okA || !okB {
		return
	}

	transferEntries(memA, memB, "location:", gameTime)
	transferEntries(memB, memA, "location:", gameTime)
	transferEntries(memA, memB, "threat:", gameTime)
	transferEntries(memB, memA, "threat:", gameTime)

	spreadToB := transferEntries(memA, memB, "crime:", gameTime)
	spreadToA := transferEntries(memB, memA, "crime:", gameTime)

	if spreadToB > 0 {
		checkGuardCrimeReaction(w, b, gameTime, log)
	}
	if spreadToA > 0 {
		checkGuardCrimeReaction(w, a, gameTime, log)
	}
}

// transferEntries copies fresh src entries under prefix into dst
// whenever dst lacks the key or holds an older copy, returning the
// count transferred.
func transferEntries(src, dst *ecs.WorldMemory, prefix string, gameTime float64) int {
	count := 0
	for _, entry := range src.QueryPrefix(prefix, gameTime, false) {
		existing, ok := dst.Recall(entry.Key)
		if !ok || existing.Timestamp < entry.Timestamp {
			dst.Observe(entry.Key, entry.Data, gameTime, entry.TTL)
			count++
		}
	}
	return count
}

// checkGuardCrimeReaction turns a friendly combat-capable actor
// hostile once it learns of a witnessed crime via word-of-mouth.
func checkGuardCrimeReaction(w *simworld.World, actor ecs.EntityID, gameTime float64, log *zap.Logger) {
	if !w.AttackConfig.Has(actor) {
		return
	}
	faction, ok := w.Faction.Get(actor)
	if !ok || faction.Disposition != "friendly" {
		return
	}
	wmem, ok := w.WorldMemory.Get(actor)
	if !ok {
		return
	}
	if len(wmem.QueryPrefix("crime:", gameTime, false)) == 0 {
		return
	}

	faction.Disposition = "hostile"
	name := "?"
	if ident, ok := w.Identity.Get(actor); ok {
		name = ident.Name
	}
	log.Info("guard turned hostile after learning of crimes via word-of-mouth",
		zap.String("name", name), zap.Uint64("actor", uint64(actor)))
}

func logAwareness(w *simworld.World, log *zap.Logger, actor, other ecs.EntityID, atNode, action string) {
	name, otherName := "?", "?"
	if ident, ok := w.Identity.Get(actor); ok {
		name = ident.Name
	}
	if ident, ok := w.Identity.Get(other); ok {
		otherName = ident.Name
	}
	log.Debug("adjacent-node awareness",
		zap.String("actor", name), zap.String("spotted", otherName),
		zap.String("at_node", atNode), zap.String("action", action))
}
