package events

import (
	"testing"

	"go.uber.org/zap"

	"github.com/l1jgo/server/internal/ecs"
	"github.com/l1jgo/server/internal/scheduler"
	"github.com/l1jgo/server/internal/simworld"
	"github.com/l1jgo/server/internal/subzone"
)

func buildTestGraph() *subzone.Graph {
	g := subzone.NewGraph()
	g.AddNode(&subzone.Node{ID: "hall", Zone: "z"})
	return g
}

func TestHandleHungerCriticalEatsAndReschedules(t *testing.T) {
	w := simworld.NewWorld(buildTestGraph(), 1)
	log := zap.NewNop()
	actor := w.Spawn()
	w.Hunger.Set(actor, &ecs.Hunger{Current: 5, Maximum: 100, Rate: 0.1, StarveDPS: 2})
	inv := ecs.NewInventory()
	inv.Items["food_ration"] = 1
	w.Inventory.Set(actor, inv)

	handler := handleHungerCritical(log)
	handler(w, actor, scheduler.HungerCritical, nil, w.Scheduler, 0)

	if !w.Alive(actor) {
		t.Fatal("an actor that successfully ate should not have starved")
	}
	if !w.Scheduler.HasPending(actor, scheduler.DecisionCycle) {
		t.Fatal("expected a follow-up DECISION_CYCLE after eating")
	}
}

func TestHandleHungerCriticalKillsOnStarvation(t *testing.T) {
	w := simworld.NewWorld(buildTestGraph(), 1)
	log := zap.NewNop()
	actor := w.Spawn()
	w.Hunger.Set(actor, &ecs.Hunger{Current: 0, Maximum: 100, Rate: 0.1, StarveDPS: 100})
	w.Health.Set(actor, &ecs.Health{Current: 5, Maximum: 100})

	handler := handleHungerCritical(log)
	handler(w, actor, scheduler.HungerCritical, nil, w.Scheduler, 0)

	if w.Alive(actor) {
		t.Fatal("an actor with no food and lethal starvation damage should have died")
	}
}

func TestHandleFinishSearchTransfersContainerItems(t *testing.T) {
	w := simworld.NewWorld(buildTestGraph(), 1)
	log := zap.NewNop()
	actor := w.Spawn()
	container := w.Spawn()
	cInv := ecs.NewInventory()
	cInv.Items["gold_coin"] = 3
	w.Inventory.Set(container, cInv)

	handler := handleFinishSearch(log)
	handler(w, actor, scheduler.FinishSearch, map[string]any{"container": container, "node": "hall"}, w.Scheduler, 0)

	actorInv, ok := w.Inventory.Get(actor)
	if !ok || actorInv.Items["gold_coin"] != 3 {
		t.Fatalf("expected actor to receive 3 gold_coin, got %+v", actorInv)
	}
	if cInv.Items["gold_coin"] != 0 {
		t.Fatalf("container inventory should be emptied, got %d", cInv.Items["gold_coin"])
	}
}

func TestHandleFinishWorkAddsYieldToStockpile(t *testing.T) {
	w := simworld.NewWorld(buildTestGraph(), 1)
	log := zap.NewNop()
	actor := w.Spawn()
	settlement := w.Spawn()
	w.GraphPos.Set(settlement, &ecs.GraphPos{Zone: "z", Subzone: "hall"})
	w.Stockpile.Set(settlement, ecs.NewStockpile())

	handler := handleFinishWork(log)
	handler(w, actor, scheduler.FinishWork, map[string]any{"job": "farming", "node": "hall", "yield": 4}, w.Scheduler, 0)

	stock, _ := w.Stockpile.Get(settlement)
	if stock.Items["wheat"] != 4 {
		t.Fatalf("stockpile wheat = %d, want 4", stock.Items["wheat"])
	}
}

func TestHandleCommunalMealFeedsDinersAndSchedulesNext(t *testing.T) {
	w := simworld.NewWorld(buildTestGraph(), 1)
	log := zap.NewNop()
	settlement := w.Spawn()
	w.GraphPos.Set(settlement, &ecs.GraphPos{Zone: "z", Subzone: "hall"})
	stock := ecs.NewStockpile()
	stock.Add("bread", 10)
	w.Stockpile.Set(settlement, stock)

	diner := w.Spawn()
	w.Home.Set(diner, &ecs.Home{Zone: "z", Subzone: "hall"})
	w.Hunger.Set(diner, &ecs.Hunger{Current: 10, Maximum: 100, Rate: 0.1})

	handler := handleCommunalMeal(log)
	handler(w, settlement, scheduler.CommunalMeal, map[string]any{"node": "hall"}, w.Scheduler, 100)

	h, _ := w.Hunger.Get(diner)
	if h.Current <= 10 {
		t.Fatalf("diner should have been fed, hunger = %v", h.Current)
	}
	if !w.Scheduler.HasPending(diner, scheduler.DecisionCycle) {
		t.Fatal("expected the diner to get a follow-up DECISION_CYCLE")
	}
	if !w.Scheduler.HasPending(settlement, scheduler.CommunalMeal) {
		t.Fatal("expected the next COMMUNAL_MEAL to be scheduled")
	}
}

func TestScheduleMealEventsBootstrapsFromStockpile(t *testing.T) {
	w := simworld.NewWorld(buildTestGraph(), 1)
	settlement := w.Spawn()
	w.GraphPos.Set(settlement, &ecs.GraphPos{Zone: "z", Subzone: "hall"})
	w.Stockpile.Set(settlement, ecs.NewStockpile())

	ScheduleMealEvents(w, 0)

	if !w.Scheduler.HasPending(settlement, scheduler.CommunalMeal) {
		t.Fatal("expected a bootstrap COMMUNAL_MEAL to be scheduled for the settlement")
	}
}

func TestHandleArriveNodeSetsGraphPosAndSchedulesDecision(t *testing.T) {
	w := simworld.NewWorld(buildTestGraph(), 1)
	log := zap.NewNop()
	actor := w.Spawn()

	resolve := func(w *simworld.World, a, b ecs.EntityID, nodeID string, gameTime float64) {}
	cont := func(w *simworld.World, a ecs.EntityID, nodeID string, gameTime float64) bool { return false }

	handler := handleArriveNode(resolve, cont, log)
	handler(w, actor, scheduler.ArriveNode, map[string]any{"node": "hall"}, w.Scheduler, 0)

	gp, ok := w.GraphPos.Get(actor)
	if !ok || gp.Subzone != "hall" {
		t.Fatalf("GraphPos after arrival = %+v, want subzone hall", gp)
	}
	if !w.Scheduler.HasPending(actor, scheduler.DecisionCycle) {
		t.Fatal("expected a follow-up DECISION_CYCLE after arriving with no travel plan pending")
	}
}
