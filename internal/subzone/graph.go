// Package subzone implements the weighted directed graph of named
// locations ("subzone nodes") that off-screen actors move through
// instead of tile-by-tile pathfinding.
package subzone

import (
	"container/heap"
	"math"
)

// Node is a single meaningful area within a zone: an anchor tile
// position, weighted connections to neighbors (travel time in
// game-minutes), and the state a checkpoint evaluation reads.
type Node struct {
	ID          string
	Zone        string
	AnchorX     int
	AnchorY     int
	Connections map[string]float64
	ThreatLevel float64
	Containers  []uint64 // actor ids, kept opaque here to avoid an ecs import
	Resources   []string
	Shelter     bool
	Visibility  float64
}

// ThreatMemory is satisfied by ecs.WorldMemory; kept as an interface here
// so this package doesn't need to import ecs for a single lookup.
type ThreatMemory interface {
	RecallThreat(nodeID string, now float64) (level float64, ok bool)
}

// Graph is a weighted directed graph of subzone nodes. Stored as a
// world resource.
type Graph struct {
	Nodes map[string]*Node
}

func NewGraph() *Graph {
	return &Graph{Nodes: make(map[string]*Node)}
}

func (g *Graph) AddNode(n *Node) {
	if n.Connections == nil {
		n.Connections = make(map[string]float64)
	}
	g.Nodes[n.ID] = n
}

// AddEdge connects a to b with the given travel time. When bidirectional
// is true, the reverse edge b->a is set to the same weight.
func (g *Graph) AddEdge(a, b string, travelTime float64, bidirectional bool) {
	if na, ok := g.Nodes[a]; ok {
		na.Connections[b] = travelTime
	}
	if bidirectional {
		if nb, ok := g.Nodes[b]; ok {
			nb.Connections[a] = travelTime
		}
	}
}

func (g *Graph) GetNode(id string) (*Node, bool) {
	n, ok := g.Nodes[id]
	return n, ok
}

func (g *Graph) ZoneNodes(zone string) []*Node {
	var out []*Node
	for _, n := range g.Nodes {
		if n.Zone == zone {
			out = append(out, n)
		}
	}
	return out
}

type pqItem struct {
	id   string
	dist float64
}

type priorityQueue []pqItem

func (q priorityQueue) Len() int            { return len(q) }
func (q priorityQueue) Less(i, j int) bool  { return q[i].dist < q[j].dist }
func (q priorityQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *priorityQueue) Push(x any)         { *q = append(*q, x.(pqItem)) }
func (q *priorityQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// ShortestPath returns the Dijkstra shortest path from start to goal as
// an ordered list of node ids excluding start, nil with ok=false if no
// path exists. start==goal returns an empty, ok=true path.
func (g *Graph) ShortestPath(start, goal string) ([]string, bool) {
	return g.routeWithCost(start, goal, func(string, string, float64) float64 { return 0 })
}

// ThreatAwarePath is ShortestPath with each edge's cost increased by
// threatWeight * (neighbor's threat level + any fresh threat memory
// the caller holds for that neighbor).
func (g *Graph) ThreatAwarePath(start, goal string, mem ThreatMemory, threatWeight, gameTime float64) ([]string, bool) {
	return g.routeWithCost(start, goal, func(_, neighbor string, _ float64) float64 {
		n, ok := g.Nodes[neighbor]
		cost := 0.0
		if ok {
			cost = n.ThreatLevel * threatWeight
		}
		if mem != nil {
			if level, ok := mem.RecallThreat(neighbor, gameTime); ok {
				cost += level * threatWeight
			}
		}
		return cost
	})
}

func (g *Graph) routeWithCost(start, goal string, extraCost func(from, to string, travelTime float64) float64) ([]string, bool) {
	if _, ok := g.Nodes[start]; !ok {
		return nil, false
	}
	if _, ok := g.Nodes[goal]; !ok {
		return nil, false
	}
	if start == goal {
		return []string{}, true
	}

	dist := map[string]float64{start: 0}
	prev := map[string]string{}
	visited := map[string]bool{}
	pq := &priorityQueue{{id: start, dist: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(pqItem)
		if visited[cur.id] {
			continue
		}
		visited[cur.id] = true
		if cur.id == goal {
			break
		}
		node, ok := g.Nodes[cur.id]
		if !ok {
			continue
		}
		for neighbor, travelTime := range node.Connections {
			if visited[neighbor] {
				continue
			}
			nd := cur.dist + travelTime + extraCost(cur.id, neighbor, travelTime)
			if existing, ok := dist[neighbor]; !ok || nd < existing {
				dist[neighbor] = nd
				prev[neighbor] = cur.id
				heap.Push(pq, pqItem{id: neighbor, dist: nd})
			}
		}
	}

	if _, ok := prev[goal]; !ok {
		return nil, false
	}

	var path []string
	cur := goal
	for cur != start {
		path = append([]string{cur}, path...)
		p, ok := prev[cur]
		if !ok {
			break
		}
		cur = p
	}
	return path, true
}

// TravelTime returns the direct edge weight from a to b, or +Inf if no
// such edge exists.
func (g *Graph) TravelTime(a, b string) float64 {
	n, ok := g.Nodes[a]
	if !ok {
		return math.Inf(1)
	}
	if t, ok := n.Connections[b]; ok {
		return t
	}
	return math.Inf(1)
}

// TotalPathTime sums edge weights along path, starting from start.
func (g *Graph) TotalPathTime(path []string, start string) float64 {
	total := 0.0
	prev := start
	for _, nodeID := range path {
		total += g.TravelTime(prev, nodeID)
		prev = nodeID
	}
	return total
}

func (g *Graph) NodesWithShelter(zone string) []*Node {
	var out []*Node
	for _, n := range g.Nodes {
		if !n.Shelter {
			continue
		}
		if zone != "" && n.Zone != zone {
			continue
		}
		out = append(out, n)
	}
	return out
}

func (g *Graph) NodesWithContainers(zone string) []*Node {
	var out []*Node
	for _, n := range g.Nodes {
		if len(n.Containers) == 0 {
			continue
		}
		if zone != "" && n.Zone != zone {
			continue
		}
		out = append(out, n)
	}
	return out
}

// NearestNodeToTile finds the node in zone closest (by squared distance
// to its anchor) to tile (x, y).
func (g *Graph) NearestNodeToTile(zone string, x, y int) (*Node, bool) {
	var best *Node
	bestDist := math.Inf(1)
	for _, n := range g.Nodes {
		if n.Zone != zone {
			continue
		}
		dx := float64(n.AnchorX - x)
		dy := float64(n.AnchorY - y)
		d := dx*dx + dy*dy
		if d < bestDist {
			bestDist = d
			best = n
		}
	}
	return best, best != nil
}
