package game

// Event is a value-typed record produced by the simulation during a tick and
// consumed at tick end by the broadcaster. Events never outlive the tick that
// produced them; anything a late joiner needs is part of the room snapshot.
type Event interface {
	Name() string
}

// EventBus collects events in emission order within a single tick. It is only
// touched by the room's worker goroutine, so no locking is needed.
type EventBus struct {
	queue []Event
}

func NewEventBus() *EventBus {
	return &EventBus{queue: make([]Event, 0, 256)}
}

// Emit appends an event preserving emission order.
func (b *EventBus) Emit(ev Event) {
	b.queue = append(b.queue, ev)
}

// Drain hands every queued event to fn and resets the queue, reusing the
// backing array.
func (b *EventBus) Drain(fn func(Event)) {
	for _, ev := range b.queue {
		fn(ev)
	}
	b.queue = b.queue[:0]
}

// Len returns the number of queued events.
func (b *EventBus) Len() int { return len(b.queue) }

// EnemyHealthUpdate reports a health change that clients should reflect
// before the next 10 Hz state dump (big hits, boss damage).
type EnemyHealthUpdate struct {
	ID     string  `json:"id"`
	Health float64 `json:"health"`
}

func (EnemyHealthUpdate) Name() string { return "enemyHealthUpdate" }

// EnemyDead marks an enemy death with its drop payload.
type EnemyDead struct {
	ID      string  `json:"id"`
	Type    string  `json:"type"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Ducats  int     `json:"ducats"`
	Markers int     `json:"markers"`
}

func (EnemyDead) Name() string { return "enemy_dead" }

// EntityDead is the generic death notice for NPC emplacements.
type EntityDead struct {
	ID string `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

func (EntityDead) Name() string { return "entity_dead" }

// BoomerExploded triggers the puke pool visual and warns nearby clients.
type BoomerExploded struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

func (BoomerExploded) Name() string { return "boomerExploded" }

// TroopDamaged reports damage taken by an allied troop.
type TroopDamaged struct {
	ID     string  `json:"id"`
	Health float64 `json:"health"`
}

func (TroopDamaged) Name() string { return "troopDamaged" }

// TroopDeath removes a troop client-side.
type TroopDeath struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

func (TroopDeath) Name() string { return "troopDeath" }

// TroopAttack drives melee swing VFX.
type TroopAttack struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	TargetID string `json:"targetId"`
}

func (TroopAttack) Name() string { return "troopAttack" }

// TroopHitscan is emitted for every ranged shot, including blocked ones, so
// the client can draw the tracer either way.
type TroopHitscan struct {
	ID        string  `json:"id"`
	X1        float64 `json:"x1"`
	Y1        float64 `json:"y1"`
	X2        float64 `json:"x2"`
	Y2        float64 `json:"y2"`
	Blocked   bool    `json:"blocked"`
	HitHazard string  `json:"hitHazard,omitempty"`
}

func (TroopHitscan) Name() string { return "troopHitscan" }

// TroopGrenade is emitted when the grenade is thrown; damage lands later at
// the scheduled detonation.
type TroopGrenade struct {
	ID      string  `json:"id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	FuseSec float64 `json:"fuseSec"`
}

func (TroopGrenade) Name() string { return "troopGrenade" }

// HazardHit reports chip damage to a breakable hazard.
type HazardHit struct {
	ID     string  `json:"id"`
	Kind   string  `json:"kind"`
	Health float64 `json:"health"`
}

func (HazardHit) Name() string { return "hazardHit" }

// HazardRemoved removes a hazard client-side (sandbag broken, barrel gone,
// puke pool expired).
type HazardRemoved struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Exploded bool   `json:"exploded,omitempty"`
}

func (HazardRemoved) Name() string { return "hazardRemoved" }

// VFXEvent is a generic one-shot visual cue.
type VFXEvent struct {
	Kind  string  `json:"kind"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Angle float64 `json:"angle,omitempty"`
	Scale float64 `json:"scale,omitempty"`
}

func (VFXEvent) Name() string { return "vfxEvent" }

// DamageText floats a damage number client-side.
type DamageText struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Amount float64 `json:"amount"`
	Crit   bool    `json:"crit,omitempty"`
}

func (DamageText) Name() string { return "damageText" }

// HordeSpawned announces a zone or wave horde for the on-screen warning.
type HordeSpawned struct {
	Zone   string `json:"zone,omitempty"`
	Diff   int    `json:"diff"`
	Count  int    `json:"count"`
	Return bool   `json:"return"`
}

func (HordeSpawned) Name() string { return "horde_spawned" }

// BurnStateChanged fires on the first fire stack acquired and the last
// removed, never in between.
type BurnStateChanged struct {
	EntityID string `json:"entityId"`
	Burning  bool   `json:"burning"`
}

func (BurnStateChanged) Name() string { return "burnStateChanged" }

// ReadyTimerUpdate replicates the lobby countdown.
type ReadyTimerUpdate struct {
	Started   bool    `json:"started"`
	TimeLeft  float64 `json:"timeLeft"`
	LevelType string  `json:"levelType,omitempty"`
}

func (ReadyTimerUpdate) Name() string { return "readyTimerUpdate" }

// ExtractionTimerUpdate replicates the extraction countdown.
type ExtractionTimerUpdate struct {
	Started  bool    `json:"started"`
	TimeLeft float64 `json:"timeLeft"`
	Kind     string  `json:"kind,omitempty"`
}

func (ExtractionTimerUpdate) Name() string { return "extractionTimerUpdate" }

// PurchaseResult acknowledges a shop purchase attempt to its originator.
type PurchaseResult struct {
	PlayerID string `json:"playerId"`
	Index    int    `json:"index"`
	Success  bool   `json:"success"`
	Reason   string `json:"reason,omitempty"`
}

func (PurchaseResult) Name() string { return "purchaseResult" }

// ArtifactUpdate replicates gold chest artifact custody changes.
type ArtifactUpdate struct {
	ChestID   string  `json:"chestId"`
	CarriedBy string  `json:"carriedBy,omitempty"`
	X         float64 `json:"x,omitempty"`
	Y         float64 `json:"y,omitempty"`
	OnGround  bool    `json:"onGround"`
}

func (ArtifactUpdate) Name() string { return "artifactUpdate" }

// MissionEnded freezes the client on the accomplishment screen.
type MissionEnded struct {
	VictoryPoints int    `json:"victoryPoints"`
	Kind          string `json:"kind"`
}

func (MissionEnded) Name() string { return "missionEnded" }
