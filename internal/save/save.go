// Package save implements the versioned JSON save format: player
// state, the rest of the world's actors split between high-LOD and
// low-LOD groups (each serializing only the components it actually
// has), and the scheduler's pending event list.
package save

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/l1jgo/server/internal/ecs"
	"github.com/l1jgo/server/internal/scheduler"
	"github.com/l1jgo/server/internal/simerr"
	"github.com/l1jgo/server/internal/simworld"
)

const FormatVersion = 2

const savesDir = "saves"

// SlotPath returns the save file path for a slot, creating the saves
// directory if it doesn't already exist.
func SlotPath(slot int) (string, error) {
	if err := os.MkdirAll(savesDir, 0o755); err != nil {
		return "", fmt.Errorf("create saves dir: %w", err)
	}
	return filepath.Join(savesDir, fmt.Sprintf("slot%d.json", slot)), nil
}

type healthData struct {
	Current, Maximum float64
}

type hungerData struct {
	Current, Rate float64
}

type equipmentData struct {
	Weapon, Armor string
}

type subzonePos struct {
	Zone, Subzone string
}

type memoryEntry struct {
	Key       string         `json:"key"`
	Data      map[string]any `json:"data"`
	Timestamp float64        `json:"timestamp"`
	TTL       float64        `json:"ttl"`
}

type homeData struct {
	Zone, Subzone string
}

type playerData struct {
	Zone      string             `json:"zone"`
	X         float64            `json:"x"`
	Y         float64            `json:"y"`
	Inventory map[string]int     `json:"inventory,omitempty"`
	Equipment *equipmentData     `json:"equipment,omitempty"`
	Health    *healthData        `json:"health,omitempty"`
	Hunger    *hungerData        `json:"hunger,omitempty"`
}

type entityData struct {
	Name      string          `json:"name,omitempty"`
	Kind      string          `json:"kind,omitempty"`
	Lod       string          `json:"lod"`
	SimMode   string          `json:"sim_mode"`
	Zone      string          `json:"zone,omitempty"`
	X         float64         `json:"x,omitempty"`
	Y         float64         `json:"y,omitempty"`
	SubzonePos *subzonePos    `json:"subzone_pos,omitempty"`
	Health    *healthData     `json:"health,omitempty"`
	Hunger    *hungerData     `json:"hunger,omitempty"`
	Inventory map[string]int  `json:"inventory,omitempty"`
	Equipment *equipmentData  `json:"equipment,omitempty"`
	Home      *homeData       `json:"home,omitempty"`
	WorldMemory []memoryEntry `json:"world_memory,omitempty"`
}

// Data is the full deserialized form of a save file.
type Data struct {
	FormatVersion  int                       `json:"format_version"`
	Player         *playerData               `json:"player"`
	Entities       map[string]entityData     `json:"entities"`
	SchedulerQueue []scheduler.SavedEvent    `json:"scheduler_queue"`
}

// Save serializes the live world to slot, overwriting any existing
// file there.
func Save(w *simworld.World, slot int) error {
	path, err := SlotPath(slot)
	if err != nil {
		return err
	}

	data := Data{
		FormatVersion: FormatVersion,
		Entities:      make(map[string]entityData),
	}

	var playerID ecs.EntityID
	var hasPlayer bool
	w.Player.Each(func(id ecs.EntityID, _ *ecs.Player) {
		if w.Alive(id) {
			playerID, hasPlayer = id, true
		}
	})

	if hasPlayer {
		data.Player = buildPlayerData(w, playerID)
	}

	w.TilePos.Each(func(id ecs.EntityID, tp *ecs.TilePos) {
		if id == playerID || !w.Alive(id) {
			return
		}
		ent := entityData{Lod: lodLevel(w, id), SimMode: "high", Zone: tp.Zone, X: tp.X, Y: tp.Y}
		fillCommon(w, id, &ent)
		data.Entities[fmt.Sprintf("%d", id)] = ent
	})

	w.GraphPos.Each(func(id ecs.EntityID, gp *ecs.GraphPos) {
		if id == playerID || !w.Alive(id) {
			return
		}
		ent := entityData{Lod: lodLevel(w, id), SimMode: "low", SubzonePos: &subzonePos{Zone: gp.Zone, Subzone: gp.Subzone}}
		fillCommon(w, id, &ent)
		if home, ok := w.Home.Get(id); ok {
			ent.Home = &homeData{Zone: home.Zone, Subzone: home.Subzone}
		}
		if wmem, ok := w.WorldMemory.Get(id); ok {
			for _, e := range wmem.Entries {
				ent.WorldMemory = append(ent.WorldMemory, memoryEntry{Key: e.Key, Data: e.Data, Timestamp: e.Timestamp, TTL: e.TTL})
			}
		}
		data.Entities[fmt.Sprintf("%d", id)] = ent
	})

	data.SchedulerQueue = w.Scheduler.ToList()

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal save: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write save %s: %w", path, err)
	}
	return nil
}

func buildPlayerData(w *simworld.World, id ecs.EntityID) *playerData {
	pd := &playerData{}
	if tp, ok := w.TilePos.Get(id); ok {
		pd.Zone, pd.X, pd.Y = tp.Zone, tp.X, tp.Y
	}
	if inv, ok := w.Inventory.Get(id); ok && len(inv.Items) > 0 {
		pd.Inventory = inv.Items
	}
	if eq, ok := w.Equipment.Get(id); ok {
		pd.Equipment = &equipmentData{Weapon: eq.Weapon, Armor: eq.Armor}
	}
	if h, ok := w.Health.Get(id); ok {
		pd.Health = &healthData{Current: h.Current, Maximum: h.Maximum}
	}
	if h, ok := w.Hunger.Get(id); ok {
		pd.Hunger = &hungerData{Current: h.Current, Rate: h.Rate}
	}
	return pd
}

func fillCommon(w *simworld.World, id ecs.EntityID, ent *entityData) {
	if ident, ok := w.Identity.Get(id); ok {
		ent.Name, ent.Kind = ident.Name, ident.Kind
	}
	if h, ok := w.Health.Get(id); ok {
		ent.Health = &healthData{Current: h.Current, Maximum: h.Maximum}
	}
	if h, ok := w.Hunger.Get(id); ok {
		ent.Hunger = &hungerData{Current: h.Current, Rate: h.Rate}
	}
	if inv, ok := w.Inventory.Get(id); ok && len(inv.Items) > 0 {
		ent.Inventory = inv.Items
	}
	if eq, ok := w.Equipment.Get(id); ok {
		ent.Equipment = &equipmentData{Weapon: eq.Weapon, Armor: eq.Armor}
	}
}

func lodLevel(w *simworld.World, id ecs.EntityID) string {
	if l, ok := w.Lod.Get(id); ok {
		return l.Level
	}
	return "low"
}

// Load reads, decodes and validates slot's save file and returns its
// contents; it does not modify w (ApplyPlayer, ApplyEntity and
// ApplyScheduler write the data onto actors). Returns (nil, nil) when
// the slot has no save file. Returns simerr.ErrCorruptSave, wrapped
// with the underlying error, when the file cannot be read, does not
// decode, or has another format_version — the caller must handle this
// explicitly rather than treat it as an empty save.
func Load(w *simworld.World, slot int) (*Data, error) {
	path, err := SlotPath(slot)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", simerr.ErrCorruptSave, path, err)
	}

	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", simerr.ErrCorruptSave, path, err)
	}
	if data.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("%w: %s has format_version %d, want %d", simerr.ErrCorruptSave, path, data.FormatVersion, FormatVersion)
	}

	return &data, nil
}

// ApplyPlayer writes a loaded playerData back onto id's components.
// Caller is responsible for having already spawned/resolved id (e.g.
// the existing player actor from a freshly-bootstrapped world).
func ApplyPlayer(w *simworld.World, id ecs.EntityID, pd *playerData) {
	if pd == nil {
		return
	}
	w.TilePos.Set(id, &ecs.TilePos{X: pd.X, Y: pd.Y, Zone: pd.Zone})
	w.ZoneAdd(id, pd.Zone)
	if pd.Inventory != nil {
		inv := ecs.NewInventory()
		for k, v := range pd.Inventory {
			inv.Items[k] = v
		}
		w.Inventory.Set(id, inv)
	}
	if pd.Equipment != nil {
		w.Equipment.Set(id, &ecs.Equipment{Weapon: pd.Equipment.Weapon, Armor: pd.Equipment.Armor})
	}
	if pd.Health != nil {
		w.Health.Set(id, &ecs.Health{Current: pd.Health.Current, Maximum: pd.Health.Maximum})
	}
	if pd.Hunger != nil {
		if h, ok := w.Hunger.Get(id); ok {
			h.Current, h.Rate = pd.Hunger.Current, pd.Hunger.Rate
		} else {
			w.Hunger.Set(id, &ecs.Hunger{Current: pd.Hunger.Current, Rate: pd.Hunger.Rate})
		}
	}
}

// ApplyEntity writes a loaded entityData back onto id's components,
// restoring its LOD-appropriate position component, any memory
// entries, and the scalar component state fillCommon saved.
func ApplyEntity(w *simworld.World, id ecs.EntityID, ent entityData) {
	if ent.SimMode == "high" {
		w.TilePos.Set(id, &ecs.TilePos{X: ent.X, Y: ent.Y, Zone: ent.Zone})
		w.ZoneAdd(id, ent.Zone)
		w.Lod.Set(id, &ecs.Lod{Level: "high"})
	} else if ent.SubzonePos != nil {
		w.GraphPos.Set(id, &ecs.GraphPos{Zone: ent.SubzonePos.Zone, Subzone: ent.SubzonePos.Subzone})
		w.Lod.Set(id, &ecs.Lod{Level: "low"})
	}

	if ent.Name != "" || ent.Kind != "" {
		w.Identity.Set(id, &ecs.Identity{Name: ent.Name, Kind: ent.Kind})
	}
	if ent.Health != nil {
		w.Health.Set(id, &ecs.Health{Current: ent.Health.Current, Maximum: ent.Health.Maximum})
	}
	if ent.Hunger != nil {
		w.Hunger.Set(id, &ecs.Hunger{Current: ent.Hunger.Current, Rate: ent.Hunger.Rate})
	}
	if ent.Inventory != nil {
		inv := ecs.NewInventory()
		for k, v := range ent.Inventory {
			inv.Items[k] = v
		}
		w.Inventory.Set(id, inv)
	}
	if ent.Equipment != nil {
		w.Equipment.Set(id, &ecs.Equipment{Weapon: ent.Equipment.Weapon, Armor: ent.Equipment.Armor})
	}
	if ent.Home != nil {
		w.Home.Set(id, &ecs.Home{Zone: ent.Home.Zone, Subzone: ent.Home.Subzone})
	}
	if len(ent.WorldMemory) > 0 {
		wmem := ecs.NewWorldMemory()
		for _, e := range ent.WorldMemory {
			wmem.Entries[e.Key] = ecs.MemoryEntry{Key: e.Key, Data: e.Data, Timestamp: e.Timestamp, TTL: e.TTL}
		}
		w.WorldMemory.Set(id, wmem)
	}
}

// ApplyScheduler replays a save's pending events onto s.
func ApplyScheduler(s *scheduler.Scheduler[*simworld.World], events []scheduler.SavedEvent) {
	s.LoadList(events)
}
