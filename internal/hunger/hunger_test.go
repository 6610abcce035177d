package hunger

import (
	"testing"

	"github.com/l1jgo/server/internal/ecs"
	"github.com/l1jgo/server/internal/scheduler"
	"github.com/l1jgo/server/internal/simworld"
	"github.com/l1jgo/server/internal/subzone"
)

func newTestWorld() *simworld.World {
	g := subzone.NewGraph()
	g.AddNode(&subzone.Node{ID: "hall", Zone: "woodhaven"})
	return simworld.NewWorld(g, 1)
}

func TestTryEatFallbackWithoutItemRegistry(t *testing.T) {
	w := newTestWorld()
	actor := w.Spawn()
	w.Hunger.Set(actor, &ecs.Hunger{Current: 10, Maximum: 100, Rate: 0.1})
	inv := ecs.NewInventory()
	inv.Items["trail_food"] = 2
	w.Inventory.Set(actor, inv)

	if !TryEat(w, actor) {
		t.Fatal("expected TryEat to succeed on a 'food'-named item with no item registry")
	}
	h, _ := w.Hunger.Get(actor)
	if h.Current <= 10 {
		t.Fatalf("hunger should have increased, got %v", h.Current)
	}
	if inv.Items["trail_food"] != 1 {
		t.Fatalf("one unit of trail_food should have been consumed, got %d", inv.Items["trail_food"])
	}
}

func TestTryEatReturnsFalseWithNoFood(t *testing.T) {
	w := newTestWorld()
	actor := w.Spawn()
	w.Hunger.Set(actor, &ecs.Hunger{Current: 10, Maximum: 100, Rate: 0.1})
	w.Inventory.Set(actor, ecs.NewInventory())

	if TryEat(w, actor) {
		t.Fatal("TryEat should fail with an empty inventory")
	}
}

func TestTryEatFromStockpileMatchesBySubzone(t *testing.T) {
	w := newTestWorld()
	settlement := w.Spawn()
	w.GraphPos.Set(settlement, &ecs.GraphPos{Zone: "woodhaven", Subzone: "hall"})
	stock := ecs.NewStockpile()
	stock.Add("bread", 5)
	w.Stockpile.Set(settlement, stock)

	villager := w.Spawn()
	w.Home.Set(villager, &ecs.Home{Zone: "woodhaven", Subzone: "hall"})
	w.Hunger.Set(villager, &ecs.Hunger{Current: 10, Maximum: 100, Rate: 0.1})

	if !TryEatFromStockpile(w, villager) {
		t.Fatal("expected to draw food from the co-located settlement stockpile")
	}
	if stock.Items["bread"] != 4 {
		t.Fatalf("stockpile should have been decremented, got %d", stock.Items["bread"])
	}
}

func TestTryEatFromStockpileFailsWithoutHome(t *testing.T) {
	w := newTestWorld()
	villager := w.Spawn()
	w.Hunger.Set(villager, &ecs.Hunger{Current: 10, Maximum: 100, Rate: 0.1})
	if TryEatFromStockpile(w, villager) {
		t.Fatal("an actor with no Home component has no stockpile to draw from")
	}
}

func TestAddToSettlementStockpileMatchesBySubzone(t *testing.T) {
	w := newTestWorld()
	settlement := w.Spawn()
	w.GraphPos.Set(settlement, &ecs.GraphPos{Zone: "woodhaven", Subzone: "hall"})
	w.Stockpile.Set(settlement, ecs.NewStockpile())

	AddToSettlementStockpile(w, "hall", "wheat", 7)

	stock, _ := w.Stockpile.Get(settlement)
	if stock.Items["wheat"] != 7 {
		t.Fatalf("wheat in stockpile = %d, want 7", stock.Items["wheat"])
	}
}

func TestScheduleHungerEventSkipsHighLODActors(t *testing.T) {
	w := newTestWorld()
	actor := w.Spawn()
	w.TilePos.Set(actor, &ecs.TilePos{Zone: "woodhaven", X: 1, Y: 1}) // high-LOD: has TilePos, no GraphPos
	w.Hunger.Set(actor, &ecs.Hunger{Current: 50, Maximum: 100, Rate: 0.1})

	ScheduleHungerEvent(w, actor, 0)

	if w.Scheduler.HasPending(actor, scheduler.HungerCritical) {
		t.Fatal("high-LOD actors (no GraphPos) should not get a scheduled HUNGER_CRITICAL event")
	}
}

func TestScheduleHungerEventPostsImmediatelyBelowThreshold(t *testing.T) {
	w := newTestWorld()
	actor := w.Spawn()
	w.GraphPos.Set(actor, &ecs.GraphPos{Zone: "woodhaven", Subzone: "hall"})
	w.Hunger.Set(actor, &ecs.Hunger{Current: 10, Maximum: 100, Rate: 0.1})

	ScheduleHungerEvent(w, actor, 100)

	if !w.Scheduler.HasPending(actor, scheduler.HungerCritical) {
		t.Fatal("an actor already below the critical threshold should get an immediate HUNGER_CRITICAL event")
	}
}
