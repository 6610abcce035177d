// Package events is the composition root: it registers every
// scheduler handler against a concrete simworld.World, wiring the
// checkpoint, decision, combat, travel, and hunger packages together
// through the injected function types each of those packages exposes
// to avoid importing each other directly.
package events

import (
	"math"

	"go.uber.org/zap"

	"github.com/l1jgo/server/internal/checkpoint"
	"github.com/l1jgo/server/internal/combat"
	"github.com/l1jgo/server/internal/decision"
	"github.com/l1jgo/server/internal/ecs"
	"github.com/l1jgo/server/internal/hunger"
	"github.com/l1jgo/server/internal/lod"
	"github.com/l1jgo/server/internal/scheduler"
	"github.com/l1jgo/server/internal/simworld"
	"github.com/l1jgo/server/internal/travel"
)

// Communal mealtime constants, grounded on the settlement-scale eating
// pass: the in-world day is 1440 minutes long, meals are served twice
// daily, each seating lasts 10 minutes, and guards are held back a
// further 30 minutes after the seating ends (40 minutes after the bell)
// so the settlement isn't left unwatched.
const (
	DayLength    = 1440.0
	MealDuration = 10.0
	GuardDelay   = 30.0
)

// MealTimes are the minute-of-day the communal bell rings.
var MealTimes = []float64{360, 1080}

// Register binds every ARRIVE_NODE / HUNGER_CRITICAL / ... handler to
// s, resolving the injected EncounterResolver/ContinueTraveler
// closures through combat.ResolveEncounter and travel.ContinueTravel.
// Call once at startup.
func Register(s *scheduler.Scheduler[*simworld.World], log *zap.Logger) {
	resolveCombatForCheckpoint := func(w *simworld.World, actor, other ecs.EntityID, nodeID string, gameTime float64) {
		combat.ResolveEncounter(w, actor, other, nodeID, gameTime, log)
	}
	continueTraveler := func(w *simworld.World, actor ecs.EntityID, nodeID string, gameTime float64) bool {
		return travel.ContinueTravel(w, actor, nodeID, gameTime)
	}

	s.RegisterHandler(scheduler.ArriveNode, handleArriveNode(resolveCombatForCheckpoint, continueTraveler, log))
	s.RegisterHandler(scheduler.HungerCritical, handleHungerCritical(log))
	s.RegisterHandler(scheduler.FinishSearch, handleFinishSearch(log))
	s.RegisterHandler(scheduler.FinishWork, handleFinishWork(log))
	s.RegisterHandler(scheduler.FinishEat, handleFinishEat(log))
	s.RegisterHandler(scheduler.RestComplete, handleRestComplete(log))
	s.RegisterHandler(scheduler.DecisionCycle, handleDecisionCycle(log))
	s.RegisterHandler(scheduler.CombatResolved, handleCombatResolved(log))
	s.RegisterHandler(scheduler.CommunalMeal, handleCommunalMeal(log))
}

// ResolveCombatForLod adapts combat.ResolveEncounter to lod.ResolveCombat,
// for callers driving lod.Demote/lod.OnPlayerEnterZone directly.
func ResolveCombatForLod(log *zap.Logger) lod.ResolveCombat {
	return func(w *simworld.World, attacker, defender ecs.EntityID, node string, gameTime float64) {
		combat.ResolveEncounter(w, attacker, defender, node, gameTime, log)
	}
}

func nodeFromData(data map[string]any) string {
	if n, ok := data["node"].(string); ok {
		return n
	}
	return ""
}

func handleArriveNode(resolve checkpoint.EncounterResolver, cont checkpoint.ContinueTraveler, log *zap.Logger) scheduler.Handler[*simworld.World] {
	return func(w *simworld.World, actor ecs.EntityID, kind scheduler.EventKind, data map[string]any, s *scheduler.Scheduler[*simworld.World], gameTime float64) {
		node := nodeFromData(data)
		if node == "" {
			return
		}
		if gp, ok := w.GraphPos.Get(actor); ok {
			gp.Subzone = node
		} else {
			zone := ""
			if n, ok := w.Graph.GetNode(node); ok {
				zone = n.Zone
			}
			w.GraphPos.Set(actor, &ecs.GraphPos{Zone: zone, Subzone: node})
		}

		outcome := checkpoint.Run(w, actor, node, resolve, cont, gameTime, log)
		switch outcome {
		case checkpoint.Arrived:
			s.PostDelta(gameTime, 0.1, actor, scheduler.DecisionCycle, map[string]any{"node": node})
		case checkpoint.Encounter, checkpoint.Divert:
			// the resolver / interrupt check already scheduled the
			// actor's next event.
		case checkpoint.Continue:
			// ContinueTraveler already posted the next ARRIVE_NODE.
		}
	}
}

func handleHungerCritical(log *zap.Logger) scheduler.Handler[*simworld.World] {
	return func(w *simworld.World, actor ecs.EntityID, kind scheduler.EventKind, data map[string]any, s *scheduler.Scheduler[*simworld.World], gameTime float64) {
		if hunger.TryEat(w, actor) || hunger.TryEatFromStockpile(w, actor) {
			hunger.ScheduleHungerEvent(w, actor, gameTime)
			s.PostDelta(gameTime, 0.5, actor, scheduler.DecisionCycle, nil)
			return
		}
		if h, ok := w.Hunger.Get(actor); ok && h.StarveDPS > 0 {
			if health, ok := w.Health.Get(actor); ok {
				health.Current = math.Max(0, health.Current-h.StarveDPS*5.0)
				if health.Current <= 0 {
					logStarved(log, w, actor)
					w.Kill(actor)
					return
				}
			}
		}
		s.PostDelta(gameTime, 0.5, actor, scheduler.DecisionCycle, nil)
		s.PostDelta(gameTime, 5.0, actor, scheduler.HungerCritical, nil)
	}
}

func handleFinishSearch(log *zap.Logger) scheduler.Handler[*simworld.World] {
	return func(w *simworld.World, actor ecs.EntityID, kind scheduler.EventKind, data map[string]any, s *scheduler.Scheduler[*simworld.World], gameTime float64) {
		containerRaw, ok := data["container"]
		if !ok {
			s.PostDelta(gameTime, 0.1, actor, scheduler.DecisionCycle, nil)
			return
		}
		var container ecs.EntityID
		switch v := containerRaw.(type) {
		case ecs.EntityID:
			container = v
		case uint64:
			container = ecs.EntityID(v)
		case float64:
			container = ecs.EntityID(v)
		}

		if inv, ok := w.Inventory.Get(container); ok {
			actorInv, ok := w.Inventory.Get(actor)
			if !ok {
				actorInv = ecs.NewInventory()
				w.Inventory.Set(actor, actorInv)
			}
			for itemID, count := range inv.Items {
				taken := inv.Remove(itemID, count)
				actorInv.Add(itemID, taken)
			}
			node := nodeFromData(data)
			if wmem, ok := w.WorldMemory.Get(actor); ok && node != "" {
				wmem.Observe("container:"+node, map[string]any{
					"node": node, "has_items": false, "item_count": 0,
				}, gameTime, 300.0)
			}
		}
		s.PostDelta(gameTime, 0.1, actor, scheduler.DecisionCycle, nil)
	}
}

func handleFinishWork(log *zap.Logger) scheduler.Handler[*simworld.World] {
	return func(w *simworld.World, actor ecs.EntityID, kind scheduler.EventKind, data map[string]any, s *scheduler.Scheduler[*simworld.World], gameTime float64) {
		job, _ := data["job"].(string)
		yield, _ := data["yield"].(int)
		node := nodeFromData(data)

		if job == "farming" && yield > 0 && node != "" {
			hunger.AddToSettlementStockpile(w, node, "wheat", yield)
		}
		s.PostDelta(gameTime, 0.1, actor, scheduler.DecisionCycle, nil)
	}
}

func handleFinishEat(log *zap.Logger) scheduler.Handler[*simworld.World] {
	return func(w *simworld.World, actor ecs.EntityID, kind scheduler.EventKind, data map[string]any, s *scheduler.Scheduler[*simworld.World], gameTime float64) {
		if hunger.TryEat(w, actor) || hunger.TryEatFromStockpile(w, actor) {
			hunger.ScheduleHungerEvent(w, actor, gameTime)
		}
		s.PostDelta(gameTime, 0.1, actor, scheduler.DecisionCycle, nil)
	}
}

func handleRestComplete(log *zap.Logger) scheduler.Handler[*simworld.World] {
	return func(w *simworld.World, actor ecs.EntityID, kind scheduler.EventKind, data map[string]any, s *scheduler.Scheduler[*simworld.World], gameTime float64) {
		duration, _ := data["duration"].(float64)
		if duration <= 0 {
			duration = 10.0
		}
		if health, ok := w.Health.Get(actor); ok {
			health.Current = math.Min(health.Maximum, health.Current+duration*2.0)
		}
		s.PostDelta(gameTime, 0.1, actor, scheduler.DecisionCycle, nil)
	}
}

func handleDecisionCycle(log *zap.Logger) scheduler.Handler[*simworld.World] {
	return func(w *simworld.World, actor ecs.EntityID, kind scheduler.EventKind, data map[string]any, s *scheduler.Scheduler[*simworld.World], gameTime float64) {
		node := nodeFromData(data)
		if node == "" {
			if gp, ok := w.GraphPos.Get(actor); ok {
				node = gp.Subzone
			}
		}
		if node == "" {
			return
		}
		decision.Run(w, actor, node, gameTime, log)
	}
}

func handleCombatResolved(log *zap.Logger) scheduler.Handler[*simworld.World] {
	return func(w *simworld.World, actor ecs.EntityID, kind scheduler.EventKind, data map[string]any, s *scheduler.Scheduler[*simworld.World], gameTime float64) {
		node := nodeFromData(data)
		s.PostDelta(gameTime, 0.1, actor, scheduler.DecisionCycle, map[string]any{"node": node})
	}
}

// handleCommunalMeal is the settlement-scale mealtime pass: every
// actor whose Home points at the meal's node eats from that node's
// stockpile (or its own inventory failing that) in one handler pass,
// then the next meal is scheduled at the next MealTimes entry (see
// scheduleNextMeal) and guards are released
// GuardDelay minutes after the seating ends.
func handleCommunalMeal(log *zap.Logger) scheduler.Handler[*simworld.World] {
	return func(w *simworld.World, actor ecs.EntityID, kind scheduler.EventKind, data map[string]any, s *scheduler.Scheduler[*simworld.World], gameTime float64) {
		node := nodeFromData(data)
		if node == "" {
			return
		}

		var diners []ecs.EntityID
		w.Home.Each(func(id ecs.EntityID, home *ecs.Home) {
			if home.Subzone == node && w.Alive(id) {
				diners = append(diners, id)
			}
		})

		fed := 0
		for _, diner := range diners {
			if hunger.TryEatFromStockpile(w, diner) || hunger.TryEat(w, diner) {
				hunger.ScheduleHungerEvent(w, diner, gameTime)
				fed++
			}
		}
		log.Info("communal meal served", zap.String("node", node), zap.Int("diners", len(diners)), zap.Int("fed", fed))

		for _, diner := range diners {
			if w.AttackConfig.Has(diner) {
				s.PostDelta(gameTime, MealDuration+GuardDelay, diner, scheduler.DecisionCycle, map[string]any{"node": node})
			} else {
				s.PostDelta(gameTime, MealDuration, diner, scheduler.DecisionCycle, map[string]any{"node": node})
			}
		}

		scheduleNextMeal(s, actor, node, gameTime)
	}
}

// scheduleNextMeal posts the next COMMUNAL_MEAL for node, owned by
// settlement (the Stockpile-bearing actor — COMMUNAL_MEAL must be
// attached to a live actor so the scheduler's per-tick alive() filter
// doesn't drop it), at the next MealTimes entry strictly after
// gameTime's time-of-day, wrapping to the first meal of the following
// day if gameTime is past the last one.
func scheduleNextMeal(s *scheduler.Scheduler[*simworld.World], settlement ecs.EntityID, node string, gameTime float64) {
	timeOfDay := math.Mod(gameTime, DayLength)
	dayStart := gameTime - timeOfDay

	for _, mealTime := range MealTimes {
		if mealTime > timeOfDay {
			s.PostDelta(dayStart, mealTime, settlement, scheduler.CommunalMeal, map[string]any{"node": node})
			return
		}
	}
	s.PostDelta(dayStart+DayLength, MealTimes[0], settlement, scheduler.CommunalMeal, map[string]any{"node": node})
}

// ScheduleMealEvents bootstraps the first COMMUNAL_MEAL for every
// settlement actor (one bearing a Stockpile) at world start, so
// communal meals begin firing from day one without a bespoke
// per-settlement wire-up at the call site.
func ScheduleMealEvents(w *simworld.World, gameTime float64) {
	w.Stockpile.Each(func(settlement ecs.EntityID, _ *ecs.Stockpile) {
		gp, ok := w.GraphPos.Get(settlement)
		if !ok {
			return
		}
		scheduleNextMeal(w.Scheduler, settlement, gp.Subzone, gameTime)
	})
}

func logStarved(log *zap.Logger, w *simworld.World, actor ecs.EntityID) {
	name := "?"
	if ident, ok := w.Identity.Get(actor); ok {
		name = ident.Name
	}
	log.Info("actor starved to death", zap.String("name", name), zap.Uint64("actor", uint64(actor)))
}
