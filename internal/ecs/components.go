package ecs

// TilePos is a high-LOD actor's real-time position, owned jointly with
// the external real-time collaborator (see the promotion/demotion
// contract in package lod). An actor has TilePos xor GraphPos, never
// both, never neither once spawned.
type TilePos struct {
	X, Y float64
	Zone string
}

// GraphPos is a low-LOD actor's abstract position: a subzone node within
// a zone. Replaces TilePos on demotion.
type GraphPos struct {
	Zone    string
	Subzone string
}

type Velocity struct {
	X, Y float64
}

type Facing struct {
	Direction string // "up", "down", "left", "right"
}

type Collider struct {
	Width, Height float64
	Solid         bool
}

type Hurtbox struct {
	OffsetX, OffsetY float64
	Width, Height    float64
}

type Health struct {
	Current, Maximum float64
}

func (h *Health) Ratio() float64 {
	if h.Maximum <= 0 {
		return 0
	}
	return h.Current / h.Maximum
}

// Hunger drains over time and is restored by eating. Rate is hunger
// drained per second; StarveDPS is HP damage per second once Current
// hits zero.
type Hunger struct {
	Current, Maximum float64
	Rate              float64
	StarveDPS         float64
}

func (h *Hunger) Ratio() float64 {
	if h.Maximum <= 0 {
		return 0
	}
	return h.Current / h.Maximum
}

type Inventory struct {
	Items    map[string]int
	Capacity float64
}

func NewInventory() *Inventory {
	return &Inventory{Items: make(map[string]int)}
}

func (inv *Inventory) Add(itemID string, count int) {
	if count <= 0 {
		return
	}
	inv.Items[itemID] += count
}

func (inv *Inventory) Remove(itemID string, count int) int {
	have := inv.Items[itemID]
	taken := count
	if taken > have {
		taken = have
	}
	if taken <= 0 {
		return 0
	}
	inv.Items[itemID] -= taken
	if inv.Items[itemID] <= 0 {
		delete(inv.Items, itemID)
	}
	return taken
}

func (inv *Inventory) Count() int {
	total := 0
	for _, n := range inv.Items {
		total += n
	}
	return total
}

type Equipment struct {
	Weapon, Armor string
}

// Combat holds base (unarmed/unequipped) combat stats; weapon damage and
// attack speed are looked up from Equipment + the item registry.
type Combat struct {
	Damage  float64
	Defense float64
}

// Threat governs when an actor considers fleeing a fight it's losing.
// FleeThreshold is an HP ratio — 0 disables flee checks entirely.
type Threat struct {
	FleeThreshold float64
	Speed         float64
}

// AttackConfig marks an actor as combat-capable (a "guard" in the
// decision cycle's role/duty tier is any actor with this component).
type AttackConfig struct {
	Range float64
}

// Faction drives the checkpoint's relationship check: same Group is
// always friendly; otherwise a "hostile" Disposition on either side
// makes the pairing hostile, and "friendly" on both sides makes it
// friendly, else neutral.
type Faction struct {
	Group       string
	Disposition string // "hostile", "friendly", "neutral"
}

type Home struct {
	Zone, Subzone string
}

// Stockpile is a shared resource pool attached to a settlement actor,
// not to individual actors — the decision cycle and event handlers
// look it up via GraphPos co-location with an actor's Home.
type Stockpile struct {
	Items    map[string]int
	Capacity float64
}

func NewStockpile() *Stockpile {
	return &Stockpile{Items: make(map[string]int), Capacity: 200.0}
}

func (s *Stockpile) Add(itemID string, count int) {
	s.Items[itemID] += count
}

func (s *Stockpile) Remove(itemID string, count int) int {
	have := s.Items[itemID]
	taken := count
	if taken > have {
		taken = have
	}
	if taken <= 0 {
		return 0
	}
	s.Items[itemID] -= taken
	if s.Items[itemID] <= 0 {
		delete(s.Items, itemID)
	}
	return taken
}

func (s *Stockpile) TotalCount() int {
	total := 0
	for _, n := range s.Items {
		total += n
	}
	return total
}

// TravelPlan is the current path through the subzone graph. Attached
// when an actor decides to go somewhere, removed on arrival.
type TravelPlan struct {
	Path         []string
	CurrentIndex int
	Destination  string
}

func (p *TravelPlan) NextNode() (string, bool) {
	if p.CurrentIndex < len(p.Path) {
		return p.Path[p.CurrentIndex], true
	}
	return "", false
}

func (p *TravelPlan) Complete() bool {
	return p.CurrentIndex >= len(p.Path)
}

// Advance moves to the next node, returning it, or "",false if the
// path is already exhausted.
func (p *TravelPlan) Advance() (string, bool) {
	if p.CurrentIndex < len(p.Path) {
		node := p.Path[p.CurrentIndex]
		p.CurrentIndex++
		return node, true
	}
	return "", false
}

// MemoryEntry is one observation in an actor's WorldMemory: a composite
// key (e.g. "location:pharmacy"), a freeform payload, and a TTL measured
// from Timestamp.
type MemoryEntry struct {
	Key       string
	Data      map[string]any
	Timestamp float64
	TTL       float64
}

func (e MemoryEntry) IsStale(now float64) bool {
	return now-e.Timestamp > e.TTL
}

type WorldMemory struct {
	Entries map[string]MemoryEntry
}

func NewWorldMemory() *WorldMemory {
	return &WorldMemory{Entries: make(map[string]MemoryEntry)}
}

func (m *WorldMemory) Observe(key string, data map[string]any, gameTime, ttl float64) {
	m.Entries[key] = MemoryEntry{Key: key, Data: data, Timestamp: gameTime, TTL: ttl}
}

func (m *WorldMemory) Recall(key string) (MemoryEntry, bool) {
	e, ok := m.Entries[key]
	return e, ok
}

func (m *WorldMemory) RecallFresh(key string, now float64) (MemoryEntry, bool) {
	e, ok := m.Entries[key]
	if ok && !e.IsStale(now) {
		return e, true
	}
	return MemoryEntry{}, false
}

// QueryPrefix returns every entry whose key starts with prefix. When
// staleOK is false, stale entries (relative to now) are excluded.
func (m *WorldMemory) QueryPrefix(prefix string, now float64, staleOK bool) []MemoryEntry {
	var out []MemoryEntry
	for key, e := range m.Entries {
		if len(key) < len(prefix) || key[:len(prefix)] != prefix {
			continue
		}
		if !staleOK && e.IsStale(now) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (m *WorldMemory) Forget(key string) {
	delete(m.Entries, key)
}

// RecallThreat returns the "level" of a fresh "threat:<nodeID>" entry,
// satisfying subzone.ThreatMemory.
func (m *WorldMemory) RecallThreat(nodeID string, now float64) (float64, bool) {
	e, ok := m.RecallFresh("threat:"+nodeID, now)
	if !ok {
		return 0, false
	}
	level, ok := e.Data["level"].(float64)
	return level, ok
}

// Lod tracks an actor's current level of detail. TransitionUntil is the
// game-time a just-promoted actor's orientation grace period ends.
type Lod struct {
	Level           string // "low", "high"
	TransitionUntil float64
}

type Identity struct {
	Name string
	Kind string // "npc", "corpse", "container", "settlement", ...
}

// Brain is the high-LOD behavior driver handed off to the real-time
// collaborator. State carries goal data (e.g. "attack_target",
// "destination") across the promote/demote boundary; it is opaque to
// the low-LOD simulation beyond that handoff.
type Brain struct {
	Active bool
	State  map[string]any
}

func NewBrain() *Brain {
	return &Brain{State: make(map[string]any)}
}

func (b *Brain) AttackTarget() (EntityID, bool) {
	v, ok := b.State["attack_target"]
	if !ok {
		return 0, false
	}
	id, ok := v.(EntityID)
	return id, ok
}

// Loot marks an actor (a corpse) as available to be looted, and whether
// it already has been.
type Loot struct {
	Looted bool
}

// LootTableRef names the loot table to roll when this actor dies.
type LootTableRef struct {
	TableName string
}

// Player marks the single player actor. lod.Demote refuses to demote it.
type Player struct{}
