// Package travel computes and drives routes through the subzone
// graph: planning a path, posting the ARRIVE_NODE events that walk it,
// and the bounded-depth search used to locate a node by predicate.
package travel

import (
	"math"

	"github.com/l1jgo/server/internal/ecs"
	"github.com/l1jgo/server/internal/scheduler"
	"github.com/l1jgo/server/internal/simworld"
	"github.com/l1jgo/server/internal/subzone"
)

const (
	threatWeight        = 5.0
	fallbackTravelTime  = 5.0
	defaultMaxHops      = 20
)

// PlanRoute computes a path from start to goal. If actor has
// WorldMemory, routing is threat-aware; otherwise it falls back to
// plain shortest path. Returns (plan, true) on success; (zero, false)
// if no path exists. start == goal returns an empty, complete plan.
func PlanRoute(w *simworld.World, actor ecs.EntityID, start, goal string, gameTime float64) (ecs.TravelPlan, bool) {
	if start == goal {
		return ecs.TravelPlan{Path: nil, Destination: goal}, true
	}

	var path []string
	var ok bool
	if mem, hasMem := w.WorldMemory.Get(actor); hasMem {
		path, ok = w.Graph.ThreatAwarePath(start, goal, mem, threatWeight, gameTime)
	} else {
		path, ok = w.Graph.ShortestPath(start, goal)
	}
	if !ok {
		return ecs.TravelPlan{}, false
	}
	return ecs.TravelPlan{Path: path, CurrentIndex: 0, Destination: goal}, true
}

// BeginTravel attaches plan to actor and posts the first ARRIVE_NODE
// event. No-op if actor has no GraphPos (it must be low-LOD to travel
// the subzone graph).
func BeginTravel(w *simworld.World, actor ecs.EntityID, plan ecs.TravelPlan, gameTime float64) {
	gp, ok := w.GraphPos.Get(actor)
	if !ok {
		return
	}
	w.TravelPlan.Set(actor, &plan)

	stored, _ := w.TravelPlan.Get(actor)
	next, ok := stored.NextNode()
	if !ok {
		return
	}

	travelTime := w.Graph.TravelTime(gp.Subzone, next)
	if math.IsInf(travelTime, 1) {
		travelTime = fallbackTravelTime
	}
	w.Scheduler.PostDelta(gameTime, travelTime, actor, scheduler.ArriveNode, map[string]any{
		"node": next, "from": gp.Subzone,
	})
}

// ContinueTravel advances actor's TravelPlan past arrivedNode and
// posts the next ARRIVE_NODE. Returns true if the journey continues,
// false if it completed (TravelPlan is removed in that case) or the
// actor has no plan at all.
func ContinueTravel(w *simworld.World, actor ecs.EntityID, arrivedNode string, gameTime float64) bool {
	plan, ok := w.TravelPlan.Get(actor)
	if !ok {
		return false
	}

	plan.Advance()

	next, ok := plan.NextNode()
	if !ok {
		w.TravelPlan.Remove(actor)
		return false
	}

	travelTime := w.Graph.TravelTime(arrivedNode, next)
	if math.IsInf(travelTime, 1) {
		travelTime = fallbackTravelTime
	}
	w.Scheduler.PostDelta(gameTime, travelTime, actor, scheduler.ArriveNode, map[string]any{
		"node": next, "from": arrivedNode,
	})
	return true
}

// FindNearestWith does a bounded-depth breadth-first search from
// start, returning the first node (start included) satisfying
// predicate, or "" if none is found within maxHops.
func FindNearestWith(graph *subzone.Graph, start string, maxHops int, predicate func(*subzone.Node) bool) (string, bool) {
	if maxHops <= 0 {
		maxHops = defaultMaxHops
	}
	startNode, ok := graph.GetNode(start)
	if !ok {
		return "", false
	}
	if predicate(startNode) {
		return start, true
	}

	type queued struct {
		id    string
		depth int
	}
	visited := map[string]bool{start: true}
	queue := []queued{{start, 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxHops {
			continue
		}
		node, ok := graph.GetNode(cur.id)
		if !ok {
			continue
		}
		for neighbor := range node.Connections {
			if visited[neighbor] {
				continue
			}
			visited[neighbor] = true
			nnode, ok := graph.GetNode(neighbor)
			if ok && predicate(nnode) {
				return neighbor, true
			}
			queue = append(queue, queued{neighbor, cur.depth + 1})
		}
	}

	return "", false
}
