// Package decision implements the one-shot AI decision cycle: a
// five-tier priority stack (survival, critical needs, role/duty,
// discretionary, default) that runs whenever an actor needs to choose
// its next action — on arrival, on waking, on being interrupted by
// hunger or combat.
package decision

import (
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/l1jgo/server/internal/ecs"
	"github.com/l1jgo/server/internal/hunger"
	"github.com/l1jgo/server/internal/scheduler"
	"github.com/l1jgo/server/internal/simworld"
	"github.com/l1jgo/server/internal/subzone"
	"github.com/l1jgo/server/internal/travel"
)

// Action names the behavior the cycle chose, for logging and tests.
type Action string

const (
	ActionDead       Action = "dead"
	ActionNoPosition Action = "no_position"
	ActionTraveling  Action = "traveling"
	ActionRest       Action = "rest"
	ActionEat        Action = "eat"
	ActionScavenge   Action = "scavenge"
	ActionFarm       Action = "farm"
	ActionGuard      Action = "guard"
	ActionRaid       Action = "raid"
	ActionExplore    Action = "explore"
	ActionReturnHome Action = "return_home"
	ActionWander     Action = "wander"
	ActionIdle       Action = "idle"
)

// farmTags names the resource-node tags a farmer's home node must
// carry for the role/duty tier to start a farming work task.
var farmTags = map[string]bool{"farmable": true, "wheat": true, "corn": true}

// Run executes the full decision cycle for actor at currentNode,
// returning the action it chose. All actions end by posting scheduler
// events; Run never blocks or loops.
func Run(w *simworld.World, actor ecs.EntityID, currentNode string, gameTime float64, log *zap.Logger) Action {
	if !w.Alive(actor) {
		return ActionDead
	}
	if !w.GraphPos.Has(actor) {
		return ActionNoPosition
	}

	if plan, ok := w.TravelPlan.Get(actor); ok && !plan.Complete() {
		logDecision(w, log, actor, "continuing existing travel plan")
		return ActionTraveling
	}

	if a, ok := checkSurvival(w, actor, currentNode, gameTime, log); ok {
		return a
	}
	if a, ok := checkCriticalNeeds(w, actor, currentNode, gameTime, log); ok {
		return a
	}
	if a, ok := checkRoleDuties(w, actor, currentNode, gameTime, log); ok {
		return a
	}
	if a, ok := checkDiscretionary(w, actor, currentNode, gameTime, log); ok {
		return a
	}
	return defaultBehavior(w, actor, currentNode, gameTime, log)
}

// ── Priority 1: survival ──────────────────────────────────────────

func checkSurvival(w *simworld.World, actor ecs.EntityID, currentNode string, gameTime float64, log *zap.Logger) (Action, bool) {
	health, ok := w.Health.Get(actor)
	if !ok {
		return "", false
	}
	hpRatio := health.Current / maxF(health.Maximum, 1.0)
	if hpRatio >= 0.3 {
		return "", false
	}

	if node, ok := w.Graph.GetNode(currentNode); ok && node.Shelter {
		restDuration := maxF(10.0, (1.0-hpRatio)*60.0)
		w.Scheduler.PostDelta(gameTime, restDuration, actor, scheduler.RestComplete, map[string]any{
			"node": currentNode, "duration": restDuration,
		})
		logDecision(w, log, actor, fmt.Sprintf("resting at %s (%.0f min)", currentNode, restDuration))
		return ActionRest, true
	}

	if shelter, ok := travel.FindNearestWith(w.Graph, currentNode, 0, func(n *subzone.Node) bool { return n.Shelter }); ok {
		if plan, ok := travel.PlanRoute(w, actor, currentNode, shelter, gameTime); ok {
			travel.BeginTravel(w, actor, plan, gameTime)
			logDecision(w, log, actor, "fleeing to shelter at "+shelter)
			return ActionRest, true
		}
	}

	w.Scheduler.PostDelta(gameTime, 15.0, actor, scheduler.RestComplete, map[string]any{
		"node": currentNode, "duration": 15.0,
	})
	return ActionRest, true
}

// ── Priority 2: critical needs ───────────────────────────────────

func checkCriticalNeeds(w *simworld.World, actor ecs.EntityID, currentNode string, gameTime float64, log *zap.Logger) (Action, bool) {
	h, ok := w.Hunger.Get(actor)
	if !ok {
		return "", false
	}
	ratio := h.Current / maxF(h.Maximum, 0.01)
	if ratio >= 0.4 {
		return "", false
	}

	if hunger.TryEat(w, actor) {
		hunger.ScheduleHungerEvent(w, actor, gameTime)
		logDecision(w, log, actor, "eating from inventory")
		w.Scheduler.PostDelta(gameTime, 2.0, actor, scheduler.DecisionCycle, map[string]any{"node": currentNode})
		return ActionEat, true
	}

	if hunger.TryEatFromStockpile(w, actor) {
		hunger.ScheduleHungerEvent(w, actor, gameTime)
		logDecision(w, log, actor, "eating from stockpile")
		w.Scheduler.PostDelta(gameTime, 2.0, actor, scheduler.DecisionCycle, map[string]any{"node": currentNode})
		return ActionEat, true
	}

	return goScavenge(w, actor, currentNode, gameTime, "hunger", log)
}

// ── Priority 3: role / duty ───────────────────────────────────────

func checkRoleDuties(w *simworld.World, actor ecs.EntityID, currentNode string, gameTime float64, log *zap.Logger) (Action, bool) {
	faction, _ := w.Faction.Get(actor)
	home, hasHome := w.Home.Get(actor)
	group := "neutral"
	if faction != nil {
		group = faction.Group
	}

	if hasHome && currentNode == home.Subzone {
		if node, ok := w.Graph.GetNode(currentNode); ok {
			for _, tag := range node.Resources {
				if farmTags[tag] {
					workDuration := 15.0 + rand.Float64()*15.0
					w.Scheduler.PostDelta(gameTime, workDuration, actor, scheduler.FinishWork, map[string]any{
						"job": "farming", "node": currentNode, "yield": 2 + rand.Intn(4),
					})
					logDecision(w, log, actor, "farming at "+currentNode)
					return ActionFarm, true
				}
			}
		}
	}

	if (group == "guards" || group == "settlers") && hasHome && home.Subzone != "" {
		if a, ok := patrol(w, actor, currentNode, home, group, gameTime, log); ok {
			return a, true
		}
	}

	if (group == "scavengers" || group == "raiders" || group == "settlers") && settlementNeedsSupplies(w, home, hasHome) {
		return goScavenge(w, actor, currentNode, gameTime, "supply", log)
	}

	if group == "raiders" {
		if a, ok := goRaid(w, actor, currentNode, gameTime, log); ok {
			return a, true
		}
	}

	return "", false
}

func patrol(w *simworld.World, actor ecs.EntityID, currentNode string, home *ecs.Home, group string, gameTime float64, log *zap.Logger) (Action, bool) {
	homeNode, ok := w.Graph.GetNode(home.Subzone)
	if !ok {
		return "", false
	}
	isGuard := w.AttackConfig.Has(actor)

	patrolZone := make(map[string]float64, len(homeNode.Connections))
	for id, t := range homeNode.Connections {
		patrolZone[id] = t
	}
	if isGuard {
		for adjID := range homeNode.Connections {
			adjNode, ok := w.Graph.GetNode(adjID)
			if !ok {
				continue
			}
			for adj2ID, adj2Time := range adjNode.Connections {
				if adj2ID == home.Subzone {
					continue
				}
				if _, already := patrolZone[adj2ID]; !already {
					patrolZone[adj2ID] = homeNode.Connections[adjID] + adj2Time
				}
			}
		}
	}

	if currentNode != home.Subzone {
		if _, inZone := patrolZone[currentNode]; !inZone {
			return goHome(w, actor, currentNode, gameTime, "patrol", log)
		}
	}

	candidates := make([]string, 0, len(patrolZone))
	for id := range patrolZone {
		candidates = append(candidates, id)
	}
	if len(candidates) == 0 {
		return "", false
	}
	target := candidates[rand.Intn(len(candidates))]

	curNode, ok := w.Graph.GetNode(currentNode)
	if ok {
		if t, direct := curNode.Connections[target]; direct {
			w.Scheduler.PostDelta(gameTime, t, actor, scheduler.ArriveNode, map[string]any{"node": target, "from": currentNode})
		} else if plan, ok := travel.PlanRoute(w, actor, currentNode, target, gameTime); ok {
			travel.BeginTravel(w, actor, plan, gameTime)
		} else {
			w.Scheduler.PostDelta(gameTime, 3.0+rand.Float64()*5.0, actor, scheduler.DecisionCycle, map[string]any{"node": currentNode})
		}
	}
	logDecision(w, log, actor, "patrolling to "+target)
	return ActionGuard, true
}

func settlementNeedsSupplies(w *simworld.World, home *ecs.Home, hasHome bool) bool {
	if !hasHome || home.Subzone == "" {
		return false
	}
	needs := false
	w.Stockpile.Each(func(settlement ecs.EntityID, stock *ecs.Stockpile) {
		if needs {
			return
		}
		gp, ok := w.GraphPos.Get(settlement)
		if !ok {
			return
		}
		if gp.Subzone != home.Subzone {
			if home.Zone == "" || gp.Zone != home.Zone {
				return
			}
		}
		needs = stock.TotalCount() < 10
	})
	return needs
}

func goRaid(w *simworld.World, actor ecs.EntityID, currentNode string, gameTime float64, log *zap.Logger) (Action, bool) {
	wmem, ok := w.WorldMemory.Get(actor)
	if !ok {
		return "", false
	}
	for _, entry := range wmem.QueryPrefix("location:", gameTime, true) {
		containers, _ := entry.Data["containers"].(int)
		if containers <= 0 {
			continue
		}
		target := entry.Key[len("location:"):]
		if target == currentNode {
			continue
		}
		if plan, ok := travel.PlanRoute(w, actor, currentNode, target, gameTime); ok {
			travel.BeginTravel(w, actor, plan, gameTime)
			logDecision(w, log, actor, "raiding toward "+target)
			return ActionRaid, true
		}
	}
	return "", false
}

// ── Priority 4: discretionary ─────────────────────────────────────

func checkDiscretionary(w *simworld.World, actor ecs.EntityID, currentNode string, gameTime float64, log *zap.Logger) (Action, bool) {
	wmem, ok := w.WorldMemory.Get(actor)
	if !ok {
		return "", false
	}
	node, ok := w.Graph.GetNode(currentNode)
	if !ok {
		return "", false
	}

	var unvisited []string
	for neighbor := range node.Connections {
		if _, fresh := wmem.RecallFresh(fmt.Sprintf("location:%s", neighbor), gameTime); !fresh {
			unvisited = append(unvisited, neighbor)
		}
	}

	if len(unvisited) > 0 && rand.Float64() < 0.3 {
		target := unvisited[rand.Intn(len(unvisited))]
		travelTime := node.Connections[target]
		w.Scheduler.PostDelta(gameTime, travelTime, actor, scheduler.ArriveNode, map[string]any{"node": target, "from": currentNode})
		logDecision(w, log, actor, "exploring "+target)
		return ActionExplore, true
	}

	return "", false
}

// ── Priority 5: default ────────────────────────────────────────────

func defaultBehavior(w *simworld.World, actor ecs.EntityID, currentNode string, gameTime float64, log *zap.Logger) Action {
	if home, ok := w.Home.Get(actor); ok && home.Subzone != "" && currentNode != home.Subzone {
		if a, ok := goHome(w, actor, currentNode, gameTime, "default", log); ok {
			return a
		}
		return ActionIdle
	}

	if node, ok := w.Graph.GetNode(currentNode); ok && len(node.Connections) > 0 && rand.Float64() < 0.4 {
		neighbors := make([]string, 0, len(node.Connections))
		for id := range node.Connections {
			neighbors = append(neighbors, id)
		}
		neighbor := neighbors[rand.Intn(len(neighbors))]
		w.Scheduler.PostDelta(gameTime, node.Connections[neighbor], actor, scheduler.ArriveNode, map[string]any{"node": neighbor, "from": currentNode})
		logDecision(w, log, actor, "wandering to "+neighbor)
		return ActionWander
	}

	wait := 5.0 + rand.Float64()*15.0
	w.Scheduler.PostDelta(gameTime, wait, actor, scheduler.DecisionCycle, map[string]any{"node": currentNode})
	logDecision(w, log, actor, fmt.Sprintf("idling at %s for %.0f min", currentNode, wait))
	return ActionIdle
}

// ── Shared actions ─────────────────────────────────────────────────

// goScavenge begins travel toward the most recently remembered
// container node that still has items, else toward the nearest node
// with containers; failing both it explores a random neighbour. It
// posts no FINISH_SEARCH itself, and when no move is possible it
// returns false without scheduling anything.
func goScavenge(w *simworld.World, actor ecs.EntityID, currentNode string, gameTime float64, reason string, log *zap.Logger) (Action, bool) {
	wmem, hasMem := w.WorldMemory.Get(actor)

	target := ""
	if hasMem {
		bestTime := -1.0
		for _, entry := range wmem.QueryPrefix("container:", gameTime, true) {
			hasItems, _ := entry.Data["has_items"].(bool)
			if !hasItems {
				continue
			}
			nodeID, _ := entry.Data["node"].(string)
			if nodeID == "" || nodeID == currentNode {
				continue
			}
			if entry.Timestamp > bestTime {
				bestTime, target = entry.Timestamp, nodeID
			}
		}
	}

	if target == "" {
		target, _ = travel.FindNearestWith(w.Graph, currentNode, 0, func(n *subzone.Node) bool { return len(n.Containers) > 0 })
	}

	if target != "" {
		if plan, ok := travel.PlanRoute(w, actor, currentNode, target, gameTime); ok {
			travel.BeginTravel(w, actor, plan, gameTime)
			logDecision(w, log, actor, fmt.Sprintf("scavenging toward %s (%s)", target, reason))
			return ActionScavenge, true
		}
	}

	if node, ok := w.Graph.GetNode(currentNode); ok && len(node.Connections) > 0 {
		neighbors := make([]string, 0, len(node.Connections))
		for id := range node.Connections {
			neighbors = append(neighbors, id)
		}
		randomTarget := neighbors[rand.Intn(len(neighbors))]
		if plan, ok := travel.PlanRoute(w, actor, currentNode, randomTarget, gameTime); ok {
			travel.BeginTravel(w, actor, plan, gameTime)
			logDecision(w, log, actor, "exploring randomly ("+reason+")")
			return ActionExplore, true
		}
	}

	return "", false
}

func goHome(w *simworld.World, actor ecs.EntityID, currentNode string, gameTime float64, reason string, log *zap.Logger) (Action, bool) {
	home, ok := w.Home.Get(actor)
	if !ok || home.Subzone == "" || currentNode == home.Subzone {
		return "", false
	}
	if plan, ok := travel.PlanRoute(w, actor, currentNode, home.Subzone, gameTime); ok {
		travel.BeginTravel(w, actor, plan, gameTime)
		logDecision(w, log, actor, fmt.Sprintf("returning home to %s (%s)", home.Subzone, reason))
		return ActionReturnHome, true
	}
	return "", false
}

func logDecision(w *simworld.World, log *zap.Logger, actor ecs.EntityID, msg string) {
	name := "?"
	if ident, ok := w.Identity.Get(actor); ok {
		name = ident.Name
	}
	log.Debug("decision", zap.String("name", name), zap.String("action", msg))
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
