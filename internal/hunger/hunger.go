// Package hunger holds the eating and hunger-scheduling mechanics
// shared by the decision cycle's critical-needs tier and the event
// handlers (HUNGER_CRITICAL, FINISH_EAT, COMMUNAL_MEAL) — split out
// on its own so neither package has to import the other.
package hunger

import (
	"strings"

	"github.com/l1jgo/server/internal/ecs"
	"github.com/l1jgo/server/internal/scheduler"
	"github.com/l1jgo/server/internal/simworld"
)

const stockpileFoodValue = 25.0

// TryEat eats the best available consumable from actor's own
// inventory, preferring the highest food_value item. Returns true if
// something was eaten. Falls back to any item whose id contains
// "food" when no item registry is available.
func TryEat(w *simworld.World, actor ecs.EntityID) bool {
	h, ok := w.Hunger.Get(actor)
	if !ok {
		return false
	}
	inv, ok := w.Inventory.Get(actor)
	if !ok {
		return false
	}

	if w.Items == nil {
		for itemID, qty := range inv.Items {
			if qty > 0 && strings.Contains(strings.ToLower(itemID), "food") {
				h.Current = minF(h.Maximum, h.Current+stockpileFoodValue)
				inv.Remove(itemID, 1)
				return true
			}
		}
		return false
	}

	bestID := ""
	bestFood := 0.0
	for itemID, qty := range inv.Items {
		if qty <= 0 || w.Items.ItemType(itemID) != "consumable" {
			continue
		}
		food := w.Items.Field(itemID, "food_value", 0.0)
		if food > bestFood {
			bestFood, bestID = food, itemID
		}
	}
	if bestID == "" {
		return false
	}

	h.Current = minF(h.Maximum, h.Current+bestFood)
	if heal := w.Items.Field(bestID, "heal", 0.0); heal > 0 {
		if health, ok := w.Health.Get(actor); ok {
			health.Current = minF(health.Maximum, health.Current+heal)
		}
	}
	inv.Remove(bestID, 1)
	return true
}

// TryEatFromStockpile draws one unit of food from actor's home
// settlement's stockpile, matched by subzone or, failing that, zone.
func TryEatFromStockpile(w *simworld.World, actor ecs.EntityID) bool {
	home, ok := w.Home.Get(actor)
	if !ok {
		return false
	}

	found := false
	w.Stockpile.Each(func(settlement ecs.EntityID, stock *ecs.Stockpile) {
		if found {
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
		for itemID, qty := range stock.Items {
			if qty > 0 {
				stock.Remove(itemID, 1)
				if h, ok := w.Hunger.Get(actor); ok {
					h.Current = minF(h.Maximum, h.Current+stockpileFoodValue)
				}
				found = true
				return
			}
		}
	})
	return found
}

// AddToSettlementStockpile adds count of itemID to the stockpile of
// the settlement actor located at subzoneID (matched by subzone, or
// by zone when the settlement isn't exactly co-located).
func AddToSettlementStockpile(w *simworld.World, subzoneID, itemID string, count int) {
	zoneID := ""
	if node, ok := w.Graph.GetNode(subzoneID); ok {
		zoneID = node.Zone
	}
	w.Stockpile.Each(func(settlement ecs.EntityID, stock *ecs.Stockpile) {
		gp, ok := w.GraphPos.Get(settlement)
		if !ok {
			return
		}
		if gp.Subzone != subzoneID {
			if zoneID == "" || gp.Zone != zoneID {
				return
			}
		}
		stock.Add(itemID, count)
	})
}

// ScheduleHungerEvent cancels any pending HUNGER_CRITICAL for actor
// and posts the next one, predicted from the current hunger drain
// rate, or immediately if already at or below the critical threshold.
// No-op for high-LOD actors (TilePos-resident, no GraphPos).
func ScheduleHungerEvent(w *simworld.World, actor ecs.EntityID, gameTime float64) {
	if !w.GraphPos.Has(actor) {
		return
	}
	h, ok := w.Hunger.Get(actor)
	if !ok {
		return
	}

	w.Scheduler.CancelActorKind(actor, scheduler.HungerCritical)

	threshold := h.Maximum * 0.3
	if h.Current <= threshold {
		w.Scheduler.PostDelta(gameTime, 0.5, actor, scheduler.HungerCritical, nil)
		return
	}

	drainPerMinute := h.Rate * 60.0
	if drainPerMinute <= 0 {
		return
	}
	timeToCritical := (h.Current - threshold) / drainPerMinute
	w.Scheduler.PostDelta(gameTime, timeToCritical, actor, scheduler.HungerCritical, nil)
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
