package data

import (
	"fmt"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"
)

// LootEntry is a single weighted possible drop within a loot table.
type LootEntry struct {
	ItemID string `yaml:"item_id"`
	Min    int    `yaml:"min"`
	Max    int    `yaml:"max"`
	Chance int    `yaml:"chance"` // out of 1,000,000 (100% = 1000000)
}

type lootTableEntry struct {
	Name  string      `yaml:"name"`
	Items []LootEntry `yaml:"items"`
}

type lootListFile struct {
	Tables []lootTableEntry `yaml:"tables"`
}

// LootTableManager holds every named loot table a corpse or container
// can reference via ecs.LootTableRef. Stored as a world resource.
type LootTableManager struct {
	tables map[string][]LootEntry
}

// Get returns the raw entry list for a table, or nil if undefined.
func (m *LootTableManager) Get(name string) []LootEntry {
	return m.tables[name]
}

func (m *LootTableManager) Count() int {
	return len(m.tables)
}

// LoadLootTableManager loads named loot tables from a YAML file.
func LoadLootTableManager(path string) (*LootTableManager, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read loot tables: %w", err)
	}
	var f lootListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse loot tables: %w", err)
	}
	m := &LootTableManager{tables: make(map[string][]LootEntry, len(f.Tables))}
	for _, t := range f.Tables {
		m.tables[t.Name] = t.Items
	}
	return m, nil
}

// Roll independently evaluates every entry in the named table against
// its chance-out-of-1,000,000 and returns the item ids that hit,
// repeated per unit for entries that rolled more than one (min..max
// chosen uniformly). An undefined table rolls nothing.
func (m *LootTableManager) Roll(name string, rng *rand.Rand) []string {
	entries := m.tables[name]
	if len(entries) == 0 {
		return nil
	}
	var out []string
	for _, e := range entries {
		if rng.Intn(1_000_000) >= e.Chance {
			continue
		}
		count := e.Min
		if e.Max > e.Min {
			count = e.Min + rng.Intn(e.Max-e.Min+1)
		}
		for i := 0; i < count; i++ {
			out = append(out, e.ItemID)
		}
	}
	return out
}
