package subzone

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// nodeRecord mirrors one [nodes.<id>] table in the graph description
// file, decoded the same way internal/config decodes its TOML file —
// struct tags plus BurntSushi/toml, no custom parser.
type nodeRecord struct {
	Zone        string             `toml:"zone"`
	Anchor      [2]int             `toml:"anchor"`
	Connections map[string]float64 `toml:"connections"`
	ThreatLevel float64            `toml:"threat_level"`
	Resources   []string           `toml:"resource_nodes"`
	Shelter     bool               `toml:"shelter"`
	Visibility  float64            `toml:"visibility"`
}

type graphFile struct {
	Nodes map[string]nodeRecord `toml:"nodes"`
}

// LoadGraph parses a subzone graph description from TOML bytes. After
// every node is loaded, a second pass inserts the reverse edge for any
// connection whose back-edge is missing, so an author only has to
// declare one direction of a two-way path.
func LoadGraph(data []byte) (*Graph, error) {
	var file graphFile
	if _, err := toml.Decode(string(data), &file); err != nil {
		return nil, fmt.Errorf("decode subzone graph: %w", err)
	}

	g := NewGraph()
	for id, rec := range file.Nodes {
		visibility := rec.Visibility
		if visibility == 0 {
			visibility = 1.0
		}
		connections := make(map[string]float64, len(rec.Connections))
		for neighbor, t := range rec.Connections {
			connections[neighbor] = t
		}
		g.AddNode(&Node{
			ID:          id,
			Zone:        rec.Zone,
			AnchorX:     rec.Anchor[0],
			AnchorY:     rec.Anchor[1],
			Connections: connections,
			ThreatLevel: rec.ThreatLevel,
			Resources:   rec.Resources,
			Shelter:     rec.Shelter,
			Visibility:  visibility,
		})
	}

	for id, node := range g.Nodes {
		for neighbor, travelTime := range node.Connections {
			nb, ok := g.Nodes[neighbor]
			if !ok {
				continue
			}
			if _, has := nb.Connections[id]; !has {
				nb.Connections[id] = travelTime
			}
		}
	}

	return g, nil
}
