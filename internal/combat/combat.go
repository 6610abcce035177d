// Package combat implements closed-form stat-check combat between two
// hostile actors sharing a subzone node, and the encounter wrapper
// that turns a resolution into world state changes: flee handling,
// death handling (corpse + loot), looting, and post-combat memory.
package combat

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/l1jgo/server/internal/ecs"
	"github.com/l1jgo/server/internal/scheduler"
	"github.com/l1jgo/server/internal/simworld"
	"github.com/l1jgo/server/internal/subzone"
	"github.com/l1jgo/server/internal/travel"
)

const (
	fleeCheckInterval = 2.0  // game-minutes between flee checks
	varianceSigma     = 0.15 // ±15% damage variance
	minDPS            = 0.1  // floor for effective DPS
)

// Result describes the outcome of one stat-check resolution.
type Result struct {
	WinnerID          ecs.EntityID
	LoserID           ecs.EntityID
	FightDuration     float64
	WinnerDamageTaken float64
	LoserFled         bool
	FleeID            ecs.EntityID
}

// StatCheckCombat resolves combat between attacker and defender via
// closed-form stat check: effective DPS reduced by the opponent's
// defense, time-to-kill for each side, periodic flee-probability
// checks along the fight's conceptual timeline, and Gaussian damage
// variance clamped to [0.5, 1.5] applied to damage only, never to
// fight duration.
func StatCheckCombat(w *simworld.World, attacker, defender ecs.EntityID) Result {
	atkDPS := effectiveDPS(w, attacker)
	defDPS := effectiveDPS(w, defender)

	atkHealth, okA := w.Health.Get(attacker)
	defHealth, okD := w.Health.Get(defender)
	if !okA || !okD {
		return Result{WinnerID: attacker, LoserID: defender}
	}

	atkDef, defDef := 0.0, 0.0
	if c, ok := w.Combat.Get(defender); ok {
		atkDef = c.Defense
	}
	if c, ok := w.Combat.Get(attacker); ok {
		defDef = c.Defense
	}

	atkEffective := math.Max(atkDPS-atkDef*0.3, minDPS)
	defEffective := math.Max(defDPS-defDef*0.3, minDPS)

	ttkDefender := defHealth.Current / atkEffective
	ttkAttacker := atkHealth.Current / defEffective

	atkFlee := fleeThreshold(w, attacker)
	defFlee := fleeThreshold(w, defender)

	fightDuration := math.Min(ttkDefender, ttkAttacker)
	fled := false
	var fleeID ecs.EntityID

	for t := fleeCheckInterval; t < fightDuration; t += fleeCheckInterval {
		if atkFlee > 0 {
			atkRatio := (atkHealth.Current - defEffective*t) / math.Max(atkHealth.Maximum, 1.0)
			if atkRatio <= atkFlee && fleeRoll(w, attacker, defender) {
				fightDuration, fled, fleeID = t, true, attacker
				break
			}
		}
		if defFlee > 0 {
			defRatio := (defHealth.Current - atkEffective*t) / math.Max(defHealth.Maximum, 1.0)
			if defRatio <= defFlee && fleeRoll(w, defender, attacker) {
				fightDuration, fled, fleeID = t, true, defender
				break
			}
		}
	}

	variance := w.CombatRNG.NormFloat64()*varianceSigma + 1.0
	variance = math.Max(0.5, math.Min(1.5, variance))

	if fled {
		atkDamage := defEffective * fightDuration * variance
		defDamage := atkEffective * fightDuration * variance
		atkHealth.Current = math.Max(1.0, atkHealth.Current-atkDamage)
		defHealth.Current = math.Max(1.0, defHealth.Current-defDamage)

		if fleeID == attacker {
			return Result{WinnerID: defender, LoserID: attacker, FightDuration: fightDuration,
				WinnerDamageTaken: defDamage, LoserFled: true, FleeID: attacker}
		}
		return Result{WinnerID: attacker, LoserID: defender, FightDuration: fightDuration,
			WinnerDamageTaken: atkDamage, LoserFled: true, FleeID: defender}
	}

	var winnerID, loserID ecs.EntityID
	var winnerDamage float64
	if ttkDefender < ttkAttacker {
		winnerID, loserID = attacker, defender
		winnerDamage = defEffective * fightDuration * variance
	} else {
		winnerID, loserID = defender, attacker
		winnerDamage = atkEffective * fightDuration * variance
	}

	if winnerHealth, ok := w.Health.Get(winnerID); ok {
		winnerHealth.Current = math.Max(1.0, winnerHealth.Current-winnerDamage)
	}
	if loserHealth, ok := w.Health.Get(loserID); ok {
		loserHealth.Current = 0.0
	}

	return Result{WinnerID: winnerID, LoserID: loserID, FightDuration: fightDuration, WinnerDamageTaken: winnerDamage}
}

func effectiveDPS(w *simworld.World, actor ecs.EntityID) float64 {
	baseDamage := 1.0
	if c, ok := w.Combat.Get(actor); ok {
		baseDamage = c.Damage
	}

	weaponDmg := 0.0
	attackSpeed := 1.0 // hits per game-minute

	if equip, ok := w.Equipment.Get(actor); ok && equip.Weapon != "" && w.Items != nil {
		weaponDmg = w.Items.Field(equip.Weapon, "damage", 0.0)
		cooldown := w.Items.Field(equip.Weapon, "cooldown", 0.5)
		if cooldown > 0 {
			attackSpeed = 1.0 / cooldown
		}
	}

	return (baseDamage + weaponDmg) * attackSpeed
}

func fleeThreshold(w *simworld.World, actor ecs.EntityID) float64 {
	if t, ok := w.Threat.Get(actor); ok {
		return t.FleeThreshold
	}
	return 0.0
}

// fleeRoll decides whether fleer escapes opponent, weighted by
// relative speed, using the genuine combat RNG stream — never the
// checkpoint's deterministic detection-roll stream.
func fleeRoll(w *simworld.World, fleer, opponent ecs.EntityID) bool {
	fleerSpeed, oppSpeed := 2.0, 2.0
	if t, ok := w.Threat.Get(fleer); ok && t.Speed > 0 {
		fleerSpeed = t.Speed
	}
	if t, ok := w.Threat.Get(opponent); ok && t.Speed > 0 {
		oppSpeed = t.Speed
	}
	fleeChance := math.Min(0.9, fleerSpeed/math.Max(oppSpeed, 0.1)*0.5)
	return w.CombatRNG.Float64() < fleeChance
}

// ResolveEncounter runs StatCheckCombat and applies its outcome: flee
// diversion, death handling (corpse + loot roll), looting, a
// follow-up decision cycle for the winner, and post-combat memory
// writes for both survivors. This is checkpoint.EncounterResolver's
// concrete implementation.
func ResolveEncounter(w *simworld.World, a, b ecs.EntityID, nodeID string, gameTime float64, log *zap.Logger) Result {
	result := StatCheckCombat(w, a, b)
	logCombat(w, log, result)

	if result.LoserFled {
		handleFlee(w, result.FleeID, nodeID, gameTime)
		postDecisionEvent(w, result.WinnerID, nodeID, gameTime+result.FightDuration)
	} else {
		handleDeath(w, result.LoserID, nodeID, gameTime, log)
		lootCorpse(w, result.WinnerID, result.LoserID)
		postDecisionEvent(w, result.WinnerID, nodeID, gameTime+result.FightDuration)
	}

	recordCombatMemory(w, a, b, nodeID, result, gameTime)
	return result
}

func handleFlee(w *simworld.World, fleer ecs.EntityID, fromNode string, gameTime float64) {
	w.Scheduler.CancelActor(fleer)
	w.TravelPlan.Remove(fleer)

	fleeTarget := ""
	if home, ok := w.Home.Get(fleer); ok && home.Subzone != "" {
		fleeTarget = home.Subzone
	} else if target, ok := travel.FindNearestWith(w.Graph, fromNode, 0, func(n *subzone.Node) bool { return n.Shelter }); ok {
		fleeTarget = target
	}

	if fleeTarget != "" && fleeTarget != fromNode {
		if plan, ok := travel.PlanRoute(w, fleer, fromNode, fleeTarget, gameTime); ok {
			travel.BeginTravel(w, fleer, plan, gameTime)
			return
		}
	}

	w.Scheduler.PostDelta(gameTime, 10.0, fleer, scheduler.RestComplete, map[string]any{
		"node": fromNode, "duration": 10.0,
	})
}

func lootCorpse(w *simworld.World, winner, loser ecs.EntityID) {
	winnerInv, ok1 := w.Inventory.Get(winner)
	loserInv, ok2 := w.Inventory.Get(loser)
	if !ok1 || !ok2 {
		return
	}
	for itemID, count := range loserInv.Items {
		winnerInv.Items[itemID] += count
	}
	for itemID := range loserInv.Items {
		delete(loserInv.Items, itemID)
	}
}

func handleDeath(w *simworld.World, dead ecs.EntityID, nodeID string, gameTime float64, log *zap.Logger) {
	w.Scheduler.CancelActor(dead)

	deadName := fmt.Sprintf("entity_%d", dead)
	if ident, ok := w.Identity.Get(dead); ok {
		deadName = ident.Name
	}
	deadInv, hasInv := w.Inventory.Get(dead)
	zone := ""
	if gp, ok := w.GraphPos.Get(dead); ok {
		zone = gp.Zone
	}

	corpse := w.Spawn()
	w.Identity.Set(corpse, &ecs.Identity{Name: "Corpse of " + deadName, Kind: "corpse"})
	w.GraphPos.Set(corpse, &ecs.GraphPos{Zone: zone, Subzone: nodeID})

	if hasInv && len(deadInv.Items) > 0 {
		corpseInv := ecs.NewInventory()
		for itemID, count := range deadInv.Items {
			corpseInv.Items[itemID] = count
		}
		w.Inventory.Set(corpse, corpseInv)
	}

	if ref, ok := w.LootTableRef.Get(dead); ok && ref.TableName != "" && w.LootTables != nil {
		items := w.LootTables.Roll(ref.TableName, w.CombatRNG)
		corpseInv, ok := w.Inventory.Get(corpse)
		if !ok {
			corpseInv = ecs.NewInventory()
			w.Inventory.Set(corpse, corpseInv)
		}
		for _, itemID := range items {
			corpseInv.Add(itemID, 1)
		}
	}

	w.Loot.Set(corpse, &ecs.Loot{Looted: false})

	log.Info("actor died", zap.String("name", deadName), zap.String("node", nodeID), zap.Uint64("corpse", uint64(corpse)))

	w.Kill(dead)
}

func postDecisionEvent(w *simworld.World, actor ecs.EntityID, nodeID string, gameTime float64) {
	w.Scheduler.PostDelta(gameTime, 0.1, actor, scheduler.DecisionCycle, map[string]any{"node": nodeID})
}

func recordCombatMemory(w *simworld.World, a, b ecs.EntityID, nodeID string, result Result, gameTime float64) {
	pairs := [2][2]ecs.EntityID{{a, b}, {b, a}}
	for _, pair := range pairs {
		actor, opponent := pair[0], pair[1]
		if !w.Alive(actor) {
			continue
		}
		wmem, ok := w.WorldMemory.Get(actor)
		if !ok {
			continue
		}
		opponentName := "unknown"
		if ident, ok := w.Identity.Get(opponent); ok {
			opponentName = ident.Name
		}
		won := actor == result.WinnerID
		damageTaken := 0.0
		if won {
			damageTaken = result.WinnerDamageTaken
		}
		wmem.Observe(fmt.Sprintf("combat:%d", opponent), map[string]any{
			"node": nodeID, "opponent_name": opponentName, "won": won, "damage_taken": damageTaken,
		}, gameTime, 600.0)

		wmem.Observe(fmt.Sprintf("threat:%s", nodeID), map[string]any{
			"level": 1.0, "source": "combat with " + opponentName,
		}, gameTime, 300.0)
	}
}

func logCombat(w *simworld.World, log *zap.Logger, result Result) {
	winnerName, loserName := "?", "?"
	if ident, ok := w.Identity.Get(result.WinnerID); ok {
		winnerName = ident.Name
	}
	if ident, ok := w.Identity.Get(result.LoserID); ok {
		loserName = ident.Name
	}
	if result.LoserFled {
		log.Debug("combat resolved by flee", zap.String("winner", winnerName), zap.String("fled", loserName),
			zap.Float64("duration", result.FightDuration))
		return
	}
	log.Debug("combat resolved by death", zap.String("winner", winnerName), zap.String("loser", loserName),
		zap.Float64("damage_taken", result.WinnerDamageTaken), zap.Float64("duration", result.FightDuration))
}
