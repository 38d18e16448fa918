package game

import "fmt"

// Entity type tags. Behavior dispatches on these rather than on Go types so
// the replication layer can serialize every entity class the same way.
const (
	EnemyBasic      = "basic"
	EnemyProjectile = "projectile"
	EnemyLicker     = "licker"
	EnemyBoomer     = "boomer"
	EnemyBigboy     = "bigboy"
	EnemyWallguy    = "wallguy"
)

const (
	TroopMelee     = "melee"
	TroopRanged    = "ranged"
	TroopGrenadier = "grenadier"
)

const (
	ChestBrown     = "brown"
	ChestGold      = "gold"
	ChestStartGear = "startGear"
	ChestDebug     = "debug"
)

const (
	FactionEnemy    = "enemy"
	FactionFriendly = "friendly"
)

// idAllocator hands out stable string ids per entity class. Allocators are
// room-scoped, so ids are unique within a room for its whole lifetime.
type idAllocator struct {
	prefix string
	next   uint64
}

func (a *idAllocator) Next() string {
	a.next++
	return fmt.Sprintf("%s_%d", a.prefix, a.next)
}

// DotStack is one damage-over-time tag on an entity. Multiple stacks from
// different sources tick simultaneously and their damage sums.
type DotStack struct {
	Source   string  `json:"source"`
	DPS      float64 `json:"dps"`
	TimeLeft float64 `json:"timeLeft"`
}

// StatItem is a rollable stat modifier: chest drops, shop stock and equipped
// inventory all use the same record.
type StatItem struct {
	Name      string  `json:"name"`
	Stat      string  `json:"stat"`
	Rarity    string  `json:"rarity"`
	Value     float64 `json:"value"`
	IsPercent bool    `json:"isPercent"`
	Price     int     `json:"price,omitempty"`
	Currency  string  `json:"currency,omitempty"`
	Cosmetic  bool    `json:"cosmetic,omitempty"`
	Sold      bool    `json:"sold,omitempty"`
}

// DashState tracks the player dash ability.
type DashState struct {
	Active   bool    `json:"active"`
	Duration float64 `json:"duration"`
	Cooldown float64 `json:"cooldown"`
	DirX     float64 `json:"-"`
	DirY     float64 `json:"-"`
}

// Player is the authoritative record for one connected client. Created on
// join, destroyed on disconnect or room reset.
type Player struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	VX     float64 `json:"-"`
	VY     float64 `json:"-"`
	Radius float64 `json:"radius"`

	Health     float64 `json:"health"`
	HealthMax  float64 `json:"healthMax"`
	Stamina    float64 `json:"stamina"`
	StaminaMax float64 `json:"staminaMax"`
	Sprinting  bool    `json:"sprinting"`
	Exhausted  bool    `json:"exhausted"`
	Dash       DashState `json:"dash"`
	Invisible  bool    `json:"invisible"`
	Dead       bool    `json:"dead"`

	Dots      []DotStack `json:"dots,omitempty"`
	Burning   bool       `json:"burning"`
	MudSlow   float64    `json:"-"` // linger timer, seconds
	Gassed    bool       `json:"gassed"`
	gasLinger float64

	Inventory     []StatItem `json:"inventory"`
	Ducats        int        `json:"ducats"`
	BloodMarkers  int        `json:"bloodMarkers"`
	VictoryPoints int        `json:"victoryPoints"`
	LootLevel     int        `json:"lootLevel"`
	Evil          bool       `json:"evil"`

	AimAngle     float64 `json:"aimAngle"`
	WeaponIndex  int     `json:"weaponIndex"`
	LastInputSeq uint64  `json:"lastInputSeq"`

	CarryingChest string `json:"carryingChest,omitempty"` // gold chest id when carrying its artifact

	fireTimer       float64
	abilityCooldown float64
}

// aiState is the director's per-enemy scratchpad.
type aiState struct {
	Style       string  // direct, flank_left, flank_right, rear
	FlankRadius float64
	NextReeval  float64 // seconds until style re-pick
	StuckTimer  float64
	Heading     float64 // smoothed heading angle, radians
	HasHeading  bool

	RingSlot   int // -1 when unassigned
	RingAngle  float64
	RingRadius float64

	Avoid avoidState
}

// avoidState is the reverse/sidestep/escape machine shared in shape between
// enemies and troops.
type avoidState struct {
	Phase       string // "", reverse, sidestep, escape
	Timer       float64
	Side        float64 // ±1
	EscapeAngle float64
}

// Enemy is one hostile (or, for NPC emplacements, friendly-faction) unit.
type Enemy struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Faction   string  `json:"faction"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Radius    float64 `json:"radius"`
	SpeedMul  float64 `json:"speedMul"`
	Health    float64 `json:"health"`
	HealthMax float64 `json:"healthMax"`
	Alive     bool    `json:"alive"`

	PreferContact bool `json:"-"`

	Dots    []DotStack `json:"dots,omitempty"`
	Burning bool       `json:"burning"`
	MudSlow float64    `json:"-"`

	ai aiState

	// Per-type behavior state.
	DashTimer    float64 `json:"-"` // bigboy charge
	ShieldAngle  float64 `json:"shieldAngle,omitempty"` // wallguy
	Standoff     float64 `json:"-"` // projectile preferred range
	Tactic       string  `json:"-"` // "", kite, strafe
	AttackTimer  float64 `json:"-"`
	DropsRolled  bool    `json:"-"`
}

// troopAvoid extends the avoid machine with the troop-only phases.
type troopAvoid struct {
	Phase string // "", reverse, sidestep, escape, zoneEscape, fireDetour
	Timer float64
	Side  float64

	EscapeAngle float64
	RepickIn    float64

	// zoneEscape bookkeeping
	EscapeTX   float64
	EscapeTY   float64
	Moved      float64
	MovedNeed  float64
	ClearT     float64
	FollowZone bool

	// fireDetour stored sideways vector
	DetourX float64
	DetourY float64
}

// Troop is one allied unit spawned from a barracks.
type Troop struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Faction   string  `json:"faction"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Radius    float64 `json:"radius"`
	Health    float64 `json:"health"`
	HealthMax float64 `json:"healthMax"`

	AttackRange    float64 `json:"attackRange"`
	AttackCooldown float64 `json:"-"`
	TargetEnemyID  string  `json:"targetEnemyId,omitempty"`
	BarrelAngle    float64 `json:"barrelAngle"`
	BarracksID     int     `json:"barracksId"`

	Dots    []DotStack `json:"dots,omitempty"`
	Burning bool       `json:"burning"`
	MudSlow float64    `json:"-"`

	avoid troopAvoid

	// Stuck detection anchors.
	anchorX, anchorY float64
	stuckHold        float64
	wallContact      bool // previous tick, for rising edge
	occupiedZone     int  // yellow zone id being occupied, -1 none
	occupiedFor      float64

	lastMoveX, lastMoveY float64
	goalX, goalY         float64
	inFirePool           bool
}

// Chest is a lootable container. Gold chests additionally carry the mission
// artifact.
type Chest struct {
	ID      string  `json:"id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Variant string  `json:"variant"`
	Radius  float64 `json:"radius"`

	Opening   bool    `json:"opening"`
	Opened    bool    `json:"opened"`
	TimeLeft  float64 `json:"timeLeft"`
	TimeTotal float64 `json:"timeTotal"`
	StartedBy string  `json:"startedBy,omitempty"`

	Drops []StatItem `json:"drops,omitempty"`

	// Artifact custody, gold chests only. Exactly one of: sealed
	// (!Opened), carried (ArtifactCarriedBy != ""), on ground
	// (ArtifactOnGround).
	ArtifactCarriedBy string  `json:"artifactCarriedBy,omitempty"`
	ArtifactOnGround  bool    `json:"artifactOnGround"`
	ArtifactX         float64 `json:"artifactX,omitempty"`
	ArtifactY         float64 `json:"artifactY,omitempty"`
}

// Hazard kinds.
const (
	HazardSandbag    = "sandbag"
	HazardBarbedWire = "barbed_wire"
	HazardMudPool    = "mud_pool"
	HazardFirePool   = "fire_pool"
	HazardGas        = "gas_canister"
	HazardBarrel     = "exploding_barrel"
	HazardPukePool   = "puke_pool"
)

// Hazard is one world hazard. Sandbags and barrels are breakable and own an
// oriented collision box in the Environment; the zone kinds (wire, mud,
// fire, gas, puke) have no collision and only affect entities inside Radius.
type Hazard struct {
	ID     string  `json:"id"`
	Kind   string  `json:"kind"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius,omitempty"`

	W     float64 `json:"w,omitempty"`
	H     float64 `json:"h,omitempty"`
	Angle float64 `json:"angle,omitempty"`

	Health   float64 `json:"health,omitempty"`
	BoxIndex int     `json:"-"` // index into Environment's oriented boxes, -1 for zone hazards
	OwnerID  string  `json:"-"` // player-placed abilities only

	TTL float64 `json:"ttl,omitempty"` // puke pools only

	ExplosionRadius float64 `json:"-"`
	ExplosionDamage float64 `json:"-"`
}

// Breakable reports whether the hazard takes damage and owns a collision box.
func (h *Hazard) Breakable() bool {
	return h.Kind == HazardSandbag || h.Kind == HazardBarrel
}

// Stuck zone kinds.
const (
	ZoneWallHit   = "wallHit"
	ZoneStuck     = "stuck"
	ZoneFireDeath = "fireDeath"
)

// StuckZone marks a spot where troops got stuck so followers route around it.
type StuckZone struct {
	ID   int     `json:"id"`
	Kind string  `json:"kind"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	R    float64 `json:"r"`
	TTL  float64 `json:"ttl"`

	// Longest continuous single-troop occupancy, drives yellow→red.
	Occupied float64 `json:"-"`

	HasExit    bool    `json:"hasExit"`
	ExitAngle  float64 `json:"exitAngle,omitempty"`
	exitBase   float64
	resampleIn float64
}

// GroundItem is a dropped stat item waiting to be picked up.
type GroundItem struct {
	ID   string   `json:"id"`
	X    float64  `json:"x"`
	Y    float64  `json:"y"`
	Item StatItem `json:"item"`
}

// Grenade is a scheduled explosion from a grenadier troop.
type Grenade struct {
	X, Y    float64
	Fuse    float64
	Radius  float64
	Damage  float64 // at inner radius, falls to edge minimum
	MinDmg  float64
	OwnerID string
}
