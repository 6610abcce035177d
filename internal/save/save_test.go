package save

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/l1jgo/server/internal/ecs"
	"github.com/l1jgo/server/internal/scheduler"
	"github.com/l1jgo/server/internal/simerr"
	"github.com/l1jgo/server/internal/simworld"
	"github.com/l1jgo/server/internal/subzone"
)

func buildTestGraph() *subzone.Graph {
	g := subzone.NewGraph()
	g.AddNode(&subzone.Node{ID: "gate", Zone: "woodhaven"})
	return g
}

// chdirTemp isolates the "saves" directory each test writes into a
// scratch directory, restoring the working directory on cleanup.
func chdirTemp(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(cwd) })
}

func TestSaveAndLoadRoundTripPlayer(t *testing.T) {
	chdirTemp(t)
	w := simworld.NewWorld(buildTestGraph(), 1)
	player := w.Spawn()
	w.Player.Set(player, &ecs.Player{})
	w.TilePos.Set(player, &ecs.TilePos{Zone: "woodhaven", X: 3, Y: 4})
	inv := ecs.NewInventory()
	inv.Items["sword"] = 1
	w.Inventory.Set(player, inv)
	w.Health.Set(player, &ecs.Health{Current: 50, Maximum: 100})

	if err := Save(w, 7); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := Load(w, 7)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if data == nil || data.Player == nil {
		t.Fatal("expected player data to round-trip")
	}
	if data.Player.X != 3 || data.Player.Y != 4 || data.Player.Zone != "woodhaven" {
		t.Fatalf("player position = %+v, want (woodhaven, 3, 4)", data.Player)
	}
	if data.Player.Inventory["sword"] != 1 {
		t.Fatalf("player inventory = %+v, want sword:1", data.Player.Inventory)
	}
	if data.Player.Health == nil || data.Player.Health.Current != 50 {
		t.Fatalf("player health = %+v, want current 50", data.Player.Health)
	}
}

func TestSaveAndLoadRoundTripLowLODEntity(t *testing.T) {
	chdirTemp(t)
	w := simworld.NewWorld(buildTestGraph(), 1)
	villager := w.Spawn()
	w.GraphPos.Set(villager, &ecs.GraphPos{Zone: "woodhaven", Subzone: "gate"})
	w.Home.Set(villager, &ecs.Home{Zone: "woodhaven", Subzone: "gate"})
	w.Identity.Set(villager, &ecs.Identity{Name: "Tomas", Kind: "villager"})
	wmem := ecs.NewWorldMemory()
	wmem.Observe("location:gate", map[string]any{"seen": true}, 0, 600)
	w.WorldMemory.Set(villager, wmem)

	if err := Save(w, 8); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := Load(w, 8)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	key := fmt.Sprintf("%d", villager)
	ent, ok := data.Entities[key]
	if !ok {
		t.Fatalf("expected a saved entity for the villager, entities = %+v", data.Entities)
	}
	if ent.SimMode != "low" || ent.SubzonePos == nil || ent.SubzonePos.Subzone != "gate" {
		t.Fatalf("villager entity = %+v, want low-LOD at gate", ent)
	}
	if ent.Home == nil || ent.Home.Subzone != "gate" {
		t.Fatalf("villager home = %+v, want gate", ent.Home)
	}
	if len(ent.WorldMemory) != 1 {
		t.Fatalf("expected one world memory entry to round-trip, got %d", len(ent.WorldMemory))
	}
}

func TestLoadMissingFileReturnsNil(t *testing.T) {
	chdirTemp(t)
	w := simworld.NewWorld(buildTestGraph(), 1)
	data, err := Load(w, 99)
	if err != nil {
		t.Fatalf("Load of a missing slot returned an error: %v", err)
	}
	if data != nil {
		t.Fatal("Load of a missing slot should return nil data")
	}
}

func TestLoadFormatVersionMismatchReturnsCorruptSave(t *testing.T) {
	chdirTemp(t)
	w := simworld.NewWorld(buildTestGraph(), 1)
	path, err := SlotPath(3)
	if err != nil {
		t.Fatalf("SlotPath: %v", err)
	}
	if err := os.WriteFile(path, []byte(`{"format_version": 1, "entities": {}}`), 0o644); err != nil {
		t.Fatalf("write stale save: %v", err)
	}

	_, err = Load(w, 3)
	if !errors.Is(err, simerr.ErrCorruptSave) {
		t.Fatalf("Load of a mismatched format_version = %v, want simerr.ErrCorruptSave", err)
	}
}

func TestLoadMalformedJSONReturnsCorruptSave(t *testing.T) {
	chdirTemp(t)
	w := simworld.NewWorld(buildTestGraph(), 1)
	path, err := SlotPath(4)
	if err != nil {
		t.Fatalf("SlotPath: %v", err)
	}
	if err := os.WriteFile(path, []byte(`{not json`), 0o644); err != nil {
		t.Fatalf("write malformed save: %v", err)
	}

	_, err = Load(w, 4)
	if !errors.Is(err, simerr.ErrCorruptSave) {
		t.Fatalf("Load of malformed JSON = %v, want simerr.ErrCorruptSave", err)
	}
}

func TestApplySchedulerReplaysPendingEvents(t *testing.T) {
	w := simworld.NewWorld(buildTestGraph(), 1)
	actor := w.Spawn()
	w.Scheduler.Post(50, actor, scheduler.DecisionCycle, map[string]any{"node": "gate"})
	saved := w.Scheduler.ToList()

	fresh := simworld.NewWorld(buildTestGraph(), 1)
	ApplyScheduler(fresh.Scheduler, saved)

	if !fresh.Scheduler.HasPending(actor, scheduler.DecisionCycle) {
		t.Fatal("expected the replayed event to be pending on the fresh scheduler")
	}
}

func TestSlotPathCreatesSavesDir(t *testing.T) {
	chdirTemp(t)
	path, err := SlotPath(1)
	if err != nil {
		t.Fatalf("SlotPath: %v", err)
	}
	if filepath.Base(path) != "slot1.json" {
		t.Fatalf("SlotPath = %s, want basename slot1.json", path)
	}
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Fatalf("saves directory was not created: %v", err)
	}
}
