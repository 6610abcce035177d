package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ItemDef is one entry in the item registry. Type and DisplayName are
// the two fields every caller needs by name; everything else
// (damage, cooldown, food_value, heal, ...) is item-specific and
// looked up generically through Field rather than a fixed column per
// stat, since the item set here is open-ended content, not a bounded
// client protocol enum.
type ItemDef struct {
	ID          string         `yaml:"id"`
	Type        string         `yaml:"type"`
	DisplayName string         `yaml:"display_name"`
	Fields      map[string]any `yaml:",inline"`
}

type itemListFile struct {
	Items []ItemDef `yaml:"items"`
}

// ItemRegistry holds all item templates indexed by string id. Stored
// as a world resource.
type ItemRegistry struct {
	items map[string]*ItemDef
}

func NewItemRegistry() *ItemRegistry {
	return &ItemRegistry{items: make(map[string]*ItemDef)}
}

// LoadItemRegistry merges one or more YAML item-list files into a
// single registry, so weapons, armor, and consumables can live in
// separate source files the way the host repo splits weapon/armor/
// etcitem tables. Later files win on id collision.
func LoadItemRegistry(paths ...string) (*ItemRegistry, error) {
	reg := NewItemRegistry()
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read item list %s: %w", path, err)
		}
		var f itemListFile
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("parse item list %s: %w", path, err)
		}
		for i := range f.Items {
			def := f.Items[i]
			reg.items[def.ID] = &def
		}
	}
	return reg, nil
}

// Get returns an item definition by id, or nil if not found.
func (r *ItemRegistry) Get(id string) *ItemDef {
	return r.items[id]
}

// ItemType returns the item's type string ("weapon", "consumable",
// "armor", ...), or "" if the id is unknown.
func (r *ItemRegistry) ItemType(id string) string {
	if d, ok := r.items[id]; ok {
		return d.Type
	}
	return ""
}

func (r *ItemRegistry) DisplayName(id string) string {
	if d, ok := r.items[id]; ok {
		return d.DisplayName
	}
	return ""
}

// Field does a generic numeric field lookup against the item's
// type-specific data, returning def if the item or key is unknown.
func (r *ItemRegistry) Field(id, key string, def float64) float64 {
	d, ok := r.items[id]
	if !ok {
		return def
	}
	v, ok := d.Fields[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return def
	}
}

// FieldString is Field's string-valued counterpart.
func (r *ItemRegistry) FieldString(id, key, def string) string {
	d, ok := r.items[id]
	if !ok {
		return def
	}
	v, ok := d.Fields[key]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}

func (r *ItemRegistry) Count() int { return len(r.items) }
