package ecs

// World is the top-level actor container: it owns identity allocation,
// the set of registered component stores, and the zone index used for
// O(zone-size) spatial queries instead of O(world-size) scans.
//
// Lifecycle is spawn → ... → kill → purge. Kill marks an actor dead
// immediately (Alive starts returning false, its events stop dispatching)
// but leaves its components and identity slot in place until Purge runs;
// Purge is when the generational slot is actually recycled, components
// are stripped from every store, and the zone index forgets the actor.
// Splitting kill from purge lets a single sweep (stat combat, demotion,
// a settlement dying out) mark several actors dead and tear them all
// down together rather than one at a time mid-iteration.
type World struct {
	pool     *EntityPool
	registry *Registry
	dead     map[EntityID]struct{}
	pending  []EntityID

	zoneIndex map[string]map[EntityID]struct{}
	actorZone map[EntityID]string
}

func NewWorld() *World {
	return &World{
		pool:      NewEntityPool(),
		registry:  NewRegistry(),
		dead:      make(map[EntityID]struct{}),
		pending:   make([]EntityID, 0, 64),
		zoneIndex: make(map[string]map[EntityID]struct{}),
		actorZone: make(map[EntityID]string),
	}
}

func (w *World) Registry() *Registry { return w.registry }

func (w *World) Spawn() EntityID {
	return w.pool.Spawn()
}

// Kill marks id dead: Alive(id) becomes false immediately, but its
// components and zone membership survive until the next Purge.
func (w *World) Kill(id EntityID) {
	if _, already := w.dead[id]; already {
		return
	}
	w.dead[id] = struct{}{}
	w.pending = append(w.pending, id)
}

func (w *World) Alive(id EntityID) bool {
	if !w.pool.Alive(id) {
		return false
	}
	_, dead := w.dead[id]
	return !dead
}

// Purge tears down every actor killed since the last Purge: strips its
// components from all registered stores, drops it from the zone index,
// and recycles its identity slot. Call once per tick, after event
// dispatch, never from inside a handler.
func (w *World) Purge() {
	for _, id := range w.pending {
		w.registry.RemoveAll(id)
		w.removeFromZoneLocked(id)
		w.pool.Kill(id)
		delete(w.dead, id)
	}
	w.pending = w.pending[:0]
}

// -- Zone index --

// ZoneAdd registers id as present in zone. Call on spawn and on promotion.
func (w *World) ZoneAdd(id EntityID, zone string) {
	w.removeFromZoneLocked(id)
	if w.zoneIndex[zone] == nil {
		w.zoneIndex[zone] = make(map[EntityID]struct{})
	}
	w.zoneIndex[zone][id] = struct{}{}
	w.actorZone[id] = zone
}

// ZoneRemove drops id from the zone index without killing it. Call on
// demotion, when an actor leaves the tile-resident world.
func (w *World) ZoneRemove(id EntityID) {
	w.removeFromZoneLocked(id)
}

func (w *World) removeFromZoneLocked(id EntityID) {
	if zone, ok := w.actorZone[id]; ok {
		delete(w.zoneIndex[zone], id)
		delete(w.actorZone, id)
	}
}

// ZoneEntities returns the live actor ids registered in zone. The
// returned slice is a fresh copy safe to range over while mutating
// the world.
func (w *World) ZoneEntities(zone string) []EntityID {
	bucket := w.zoneIndex[zone]
	out := make([]EntityID, 0, len(bucket))
	for id := range bucket {
		if w.Alive(id) {
			out = append(out, id)
		}
	}
	return out
}
