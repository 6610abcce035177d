package ecs

import "testing"

type position struct{ X, Y float64 }

func TestWorldKillThenPurgeLifecycle(t *testing.T) {
	w := NewWorld()
	store := NewStore[position]()
	w.Registry().Register(store)

	id := w.Spawn()
	store.Set(id, &position{X: 1, Y: 2})
	w.ZoneAdd(id, "woodhaven")

	if !w.Alive(id) {
		t.Fatal("freshly spawned actor should be alive")
	}

	w.Kill(id)
	if w.Alive(id) {
		t.Fatal("Kill should make Alive false immediately")
	}
	if !store.Has(id) {
		t.Fatal("components must survive until Purge, not be stripped at Kill")
	}
	zoned := w.ZoneEntities("woodhaven")
	if len(zoned) != 0 {
		t.Fatalf("ZoneEntities should filter out dead actors even before purge, got %d", len(zoned))
	}

	w.Purge()
	if store.Has(id) {
		t.Fatal("Purge should strip components")
	}

	respawned := w.Spawn()
	if respawned == id {
		t.Fatal("purge should recycle the generational slot, not hand back the same id")
	}
}

func TestWorldZoneAddMovesBetweenZones(t *testing.T) {
	w := NewWorld()
	id := w.Spawn()
	w.ZoneAdd(id, "woodhaven")
	w.ZoneAdd(id, "saltmarsh")

	if got := w.ZoneEntities("woodhaven"); len(got) != 0 {
		t.Fatalf("actor should have left woodhaven, found %d entries", len(got))
	}
	got := w.ZoneEntities("saltmarsh")
	if len(got) != 1 || got[0] != id {
		t.Fatalf("expected [%v] in saltmarsh, got %v", id, got)
	}
}

func TestWorldKillIsIdempotent(t *testing.T) {
	w := NewWorld()
	id := w.Spawn()
	w.Kill(id)
	w.Kill(id)
	w.Purge()
	if w.Alive(id) {
		t.Fatal("purged actor should not be alive")
	}
}
