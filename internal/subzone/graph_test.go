package subzone

import (
	"math"
	"testing"
)

func buildTestGraph() *Graph {
	g := NewGraph()
	g.AddNode(&Node{ID: "gate", Zone: "woodhaven", AnchorX: 0, AnchorY: 0})
	g.AddNode(&Node{ID: "market", Zone: "woodhaven", AnchorX: 10, AnchorY: 0, Shelter: true})
	g.AddNode(&Node{ID: "farm", Zone: "woodhaven", AnchorX: 20, AnchorY: 0, Resources: []string{"wheat"}})
	g.AddNode(&Node{ID: "ruins", Zone: "woodhaven", AnchorX: 30, AnchorY: 0, Containers: []uint64{1}})
	g.AddNode(&Node{ID: "island", Zone: "woodhaven", AnchorX: 40, AnchorY: 0})

	g.AddEdge("gate", "market", 5, true)
	g.AddEdge("market", "farm", 3, true)
	g.AddEdge("market", "ruins", 10, true)
	g.AddEdge("farm", "ruins", 2, true)
	// island deliberately left disconnected
	return g
}

func TestShortestPathFindsCheaperRoute(t *testing.T) {
	g := buildTestGraph()
	path, ok := g.ShortestPath("gate", "ruins")
	if !ok {
		t.Fatal("expected a path from gate to ruins")
	}
	// gate->market->farm->ruins = 5+3+2 = 10, cheaper than gate->market->ruins = 15
	want := []string{"market", "farm", "ruins"}
	if len(path) != len(want) {
		t.Fatalf("path = %v, want %v", path, want)
	}
	for i := range want {
		if path[i] != want[i] {
			t.Fatalf("path = %v, want %v", path, want)
		}
	}
}

func TestShortestPathStartEqualsGoal(t *testing.T) {
	g := buildTestGraph()
	path, ok := g.ShortestPath("gate", "gate")
	if !ok {
		t.Fatal("start==goal should report ok")
	}
	if len(path) != 0 {
		t.Fatalf("start==goal should yield an empty path, got %v", path)
	}
}

func TestShortestPathNoRouteExists(t *testing.T) {
	g := buildTestGraph()
	if _, ok := g.ShortestPath("gate", "island"); ok {
		t.Fatal("expected no path to a disconnected node")
	}
}

func TestShortestPathUnknownNode(t *testing.T) {
	g := buildTestGraph()
	if _, ok := g.ShortestPath("gate", "nowhere"); ok {
		t.Fatal("unknown goal node should report not-found")
	}
	if _, ok := g.ShortestPath("nowhere", "gate"); ok {
		t.Fatal("unknown start node should report not-found")
	}
}

func TestThreatAwarePathPrefersLowerThreat(t *testing.T) {
	g := NewGraph()
	g.AddNode(&Node{ID: "a", Zone: "z"})
	g.AddNode(&Node{ID: "safe", Zone: "z", ThreatLevel: 0})
	g.AddNode(&Node{ID: "risky", Zone: "z", ThreatLevel: 10})
	g.AddNode(&Node{ID: "b", Zone: "z"})
	g.AddEdge("a", "safe", 5, false)
	g.AddEdge("safe", "b", 5, false)
	g.AddEdge("a", "risky", 4, false)
	g.AddEdge("risky", "b", 4, false)

	path, ok := g.ThreatAwarePath("a", "b", nil, 1.0, 0)
	if !ok {
		t.Fatal("expected a path")
	}
	if len(path) == 0 || path[0] != "safe" {
		t.Fatalf("expected the threat-aware path to route through 'safe', got %v", path)
	}
}

func TestTravelTimeMissingEdgeIsInfinite(t *testing.T) {
	g := buildTestGraph()
	if tt := g.TravelTime("gate", "island"); !math.IsInf(tt, 1) {
		t.Fatalf("TravelTime for a missing edge = %v, want +Inf", tt)
	}
}

func TestNodesWithShelterAndContainers(t *testing.T) {
	g := buildTestGraph()
	shelters := g.NodesWithShelter("woodhaven")
	if len(shelters) != 1 || shelters[0].ID != "market" {
		t.Fatalf("NodesWithShelter = %v, want just market", shelters)
	}
	withContainers := g.NodesWithContainers("woodhaven")
	if len(withContainers) != 1 || withContainers[0].ID != "ruins" {
		t.Fatalf("NodesWithContainers = %v, want just ruins", withContainers)
	}
}

func TestNearestNodeToTile(t *testing.T) {
	g := buildTestGraph()
	n, ok := g.NearestNodeToTile("woodhaven", 22, 0)
	if !ok {
		t.Fatal("expected a nearest node")
	}
	if n.ID != "farm" {
		t.Fatalf("nearest node to (22,0) = %s, want farm", n.ID)
	}
}
