package subzone

import "testing"

const sampleGraphTOML = `
[nodes.gate]
zone = "woodhaven"
anchor = [0, 0]
connections = { market = 5.0 }

[nodes.market]
zone = "woodhaven"
anchor = [10, 0]
shelter = true
threat_level = 0.5
resource_nodes = ["wheat"]
`

func TestLoadGraphInsertsBackEdges(t *testing.T) {
	g, err := LoadGraph([]byte(sampleGraphTOML))
	if err != nil {
		t.Fatalf("LoadGraph returned error: %v", err)
	}
	if len(g.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(g.Nodes))
	}

	gate, ok := g.GetNode("gate")
	if !ok {
		t.Fatal("missing gate node")
	}
	if tt, ok := gate.Connections["market"]; !ok || tt != 5.0 {
		t.Fatalf("gate->market = %v, %v, want 5.0, true", tt, ok)
	}

	market, ok := g.GetNode("market")
	if !ok {
		t.Fatal("missing market node")
	}
	if tt, ok := market.Connections["gate"]; !ok || tt != 5.0 {
		t.Fatalf("expected an auto-inserted back-edge market->gate = 5.0, got %v, %v", tt, ok)
	}
	if !market.Shelter {
		t.Fatal("market should be marked as shelter")
	}
	if market.Visibility != 1.0 {
		t.Fatalf("visibility defaults to 1.0 when unset, got %v", market.Visibility)
	}
}

func TestLoadGraphRejectsMalformedTOML(t *testing.T) {
	if _, err := LoadGraph([]byte("not valid [ toml")); err == nil {
		t.Fatal("expected an error decoding malformed TOML")
	}
}
