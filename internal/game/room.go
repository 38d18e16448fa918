package game

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"trenchline/internal/config"
	"trenchline/internal/data"
	"trenchline/internal/game/spatial"
	"trenchline/internal/game/world"
)

// Scene names.
const (
	SceneLobby = "lobby"
	SceneLevel = "level"
)

const (
	lobbyBoundary    = 2000.0
	gridCellSize     = spatial.DefaultCellSize
	maxTickDelta     = 0.1 // clamp after stalls so nothing teleports
	chestReachSlack  = 30.0
	artifactReach    = 60.0
	extractionBaseVP = 10

	abilityMaxActive    = 3
	abilityCooldownSec  = 10.0
	abilityReach        = 200.0
	abilityHealth       = 150.0
)

// Publisher delivers replication payloads to connected clients. The api
// package's hub implements it; tests substitute a recorder.
type Publisher interface {
	Broadcast(roomID, msgType string, payload interface{})
	Send(roomID, playerID, msgType string, payload interface{})
}

// Observer receives per-tick measurements for metrics export.
type Observer interface {
	RecordTick(roomID string, d time.Duration)
	RecordPlayerCount(roomID string, n int)
}

// Deps bundles everything a room needs from the outside.
type Deps struct {
	Cfg     *config.Config
	Log     *zap.Logger
	Modes   *data.ModeTable
	Hazards *data.HazardTable
	Weapons *data.WeaponTable
	Audit   *AuditLog
	Pub     Publisher
	Obs     Observer
	OnEmpty func(roomID string)
}

// countdown is a shared shape for the ready and extraction timers.
type countdown struct {
	Running   bool
	TimeLeft  float64
	Kind      string // level type (ready) or extraction kind
	lastWhole int    // last whole second replicated
}

// Room owns one isolated simulation. All state below the dependency block is
// touched only by the room's worker goroutine; cross-room communication goes
// through the inbound command queue and the publisher.
type Room struct {
	ID string

	cfg      *config.Config
	log      *zap.Logger
	modes    *data.ModeTable
	hazTable *data.HazardTable
	weapons  *data.WeaponTable
	audit    *AuditLog
	pub      Publisher
	obs      Observer
	onEmpty  func(string)

	inbound  chan Command
	stop     chan struct{}
	stopOnce sync.Once

	// Scene and static world.
	scene     string
	levelType string
	mode      *data.GameMode
	env       *world.Environment

	// Entities.
	players     map[string]*Player
	enemies     map[string]*Enemy
	troops      map[string]*Troop
	chests      map[string]*Chest
	hazards     map[string]*Hazard
	groundItems map[string]*GroundItem
	stuckZones  map[int]*StuckZone
	grenades    []Grenade

	stuckZoneSeq int

	playerGrid *spatial.Grid
	enemyGrid  *spatial.Grid
	troopGrid  *spatial.Grid

	enemyIDs  idAllocator
	troopIDs  idAllocator
	chestIDs  idAllocator
	hazardIDs idAllocator
	itemIDs   idAllocator

	// Randomness: rng drives gameplay (seeded, replayable), jitter drives
	// cosmetic variation.
	worldSeed int64
	rng       *SeqRand
	jitter    *SeqRand

	// Subsystem state.
	directorMode   string
	rings          map[string]*playerRing
	ringTimer      float64
	barracksList   []*barracks
	troopPhase     int
	zones          []*zoneState
	zoneCheckTimer float64
	refillUnlocked bool
	bursts         []pendingBurst
	wavePhase      string
	waveIndex      int
	waveTimer      float64
	phaseTime      float64
	shop           []StatItem

	ready      countdown
	extraction countdown

	// Replication.
	bus          *EventBus
	bcast        *broadcaster
	hazardsDirty bool
	chestsDirty  bool
	itemsDirty   bool

	pendingInputs map[string]PlayerInput

	tickRate     int
	tickNum      uint64
	now          float64
	missionEnded bool
}

// NewRoom creates a room in the lobby scene. The world seed fixes every
// gameplay roll for the room's lifetime.
func NewRoom(id string, seed int64, d Deps) *Room {
	r := &Room{
		ID:       id,
		cfg:      d.Cfg,
		log:      d.Log,
		modes:    d.Modes,
		hazTable: d.Hazards,
		weapons:  d.Weapons,
		audit:    d.Audit,
		pub:      d.Pub,
		obs:      d.Obs,
		onEmpty:  d.OnEmpty,

		inbound: make(chan Command, d.Cfg.Network.InQueueSize),
		stop:    make(chan struct{}),

		scene: SceneLobby,
		env:   world.NewEnvironment(lobbyBoundary),

		players:     make(map[string]*Player),
		enemies:     make(map[string]*Enemy),
		troops:      make(map[string]*Troop),
		chests:      make(map[string]*Chest),
		hazards:     make(map[string]*Hazard),
		groundItems: make(map[string]*GroundItem),
		stuckZones:  make(map[int]*StuckZone),

		playerGrid: spatial.NewGrid(gridCellSize),
		enemyGrid:  spatial.NewGrid(gridCellSize),
		troopGrid:  spatial.NewGrid(gridCellSize),

		enemyIDs:  idAllocator{prefix: "enemy"},
		troopIDs:  idAllocator{prefix: "troop"},
		chestIDs:  idAllocator{prefix: "chest"},
		hazardIDs: idAllocator{prefix: "hazard"},
		itemIDs:   idAllocator{prefix: "item"},

		worldSeed: seed,
		rng:       NewSeqRand(seed),
		jitter:    NewSeqRand(seed ^ 0x6a09e667),

		directorMode: DirectorHunt,
		rings:        make(map[string]*playerRing),

		bus:           NewEventBus(),
		pendingInputs: make(map[string]PlayerInput),
		tickRate:      d.Cfg.Sim.TickRate,
	}
	r.bcast = newBroadcaster(d.Cfg.Sim.SnapshotRate)
	r.rollShop()
	return r
}

// Enqueue offers a command to the room without blocking. Returns false when
// the queue is full; callers treat that as backpressure, not an error.
func (r *Room) Enqueue(cmd Command) bool {
	select {
	case r.inbound <- cmd:
		return true
	default:
		return false
	}
}

// Stop asks the worker to exit after the current tick.
func (r *Room) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// Run is the room's worker loop: fixed-rate ticks until stopped, the context
// ends, or the room stays empty past the grace period.
func (r *Room) Run(ctx context.Context) {
	interval := time.Second / time.Duration(r.tickRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.log.Info("room worker started",
		zap.String("room", r.ID),
		zap.Int("tickRate", r.tickRate))

	last := time.Now()
	var emptyFor time.Duration
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			if dt > maxTickDelta {
				dt = maxTickDelta
			}

			start := time.Now()
			r.drainCommands()
			r.Tick(dt)
			r.bcast.flush(r, dt)
			if r.obs != nil {
				r.obs.RecordTick(r.ID, time.Since(start))
				r.obs.RecordPlayerCount(r.ID, len(r.players))
			}

			if len(r.players) == 0 {
				emptyFor += interval
				if emptyFor >= r.cfg.Sim.EmptyRoomGrace {
					r.log.Info("room empty past grace, shutting down",
						zap.String("room", r.ID))
					if r.onEmpty != nil {
						r.onEmpty(r.ID)
					}
					return
				}
			} else {
				emptyFor = 0
			}
		}
	}
}

// drainCommands applies queued commands up to the per-tick budget. A client
// flooding the queue cannot stall the simulation.
func (r *Room) drainCommands() {
	budget := r.cfg.Network.MaxInputsPerTick
	if n := len(r.players); n > 1 {
		budget *= n
	}
	for i := 0; i < budget; i++ {
		select {
		case cmd := <-r.inbound:
			r.apply(cmd)
		default:
			return
		}
	}
}

func (r *Room) apply(cmd Command) {
	if c, ok := cmd.(CmdJoin); ok {
		r.handleJoin(c)
		return
	}
	p := r.players[cmd.playerID()]
	if p == nil {
		return
	}
	switch c := cmd.(type) {
	case CmdLeave:
		r.handleLeave(p)
	case CmdInput:
		// Latest sample wins; stale sequence numbers are dropped.
		if prev, ok := r.pendingInputs[p.ID]; !ok || c.Input.Seq >= prev.Seq {
			r.pendingInputs[p.ID] = c.Input
		}
	case CmdStartReadyTimer:
		r.startReadyTimer(p, c.LevelType)
	case CmdCancelReadyTimer:
		r.cancelReadyTimer(p)
	case CmdOpenChest:
		r.openChest(p, c.ChestID)
	case CmdCancelOpenChest:
		r.cancelOpenChest(p)
	case CmdPickUpArtifact:
		r.pickUpArtifact(p, c.ChestID)
	case CmdDropArtifact:
		if p.CarryingChest != "" {
			r.dropArtifact(p)
		}
	case CmdPurchaseShopItem:
		r.purchaseShopItem(p, c.Index)
		r.audit.EmitSimple(AuditPurchase, r.tickNum, r.ID, p.ID, map[string]int{"index": c.Index})
	case CmdRequestExtraction:
		r.requestExtraction(p, c.Kind)
	case CmdPlaceAbility:
		r.placeAbility(p, c)
	case CmdSendNPCDot:
		r.applyNPCDot(c.NPCID, c.DPS, c.Duration)
	case CmdAbilityDotDamage:
		r.applyAbilityDot(p, c)
	case CmdReturnToLobby:
		if r.missionEnded {
			r.returnToLobby()
		}
	}
}

func (r *Room) handleJoin(c CmdJoin) {
	if _, ok := r.players[c.Player]; ok {
		return
	}
	p := NewPlayer(c.Player, c.Name)
	if r.scene == SceneLevel {
		// Late joiner drops at the mission spawn.
		p.X = r.mode.Spawn.X
		p.Y = r.mode.Spawn.Y + r.jitter.Range(-r.mode.Spawn.Radius, r.mode.Spawn.Radius)
	} else {
		p.X = r.jitter.Range(-120, 120)
		p.Y = r.jitter.Range(-120, 120)
	}
	r.players[p.ID] = p
	r.playerGrid.Insert(p.ID, p.X, p.Y)

	// Everyone gets a starting-gear chest next to them in the lobby.
	if r.scene == SceneLobby {
		sg := &Chest{
			ID:      r.chestIDs.Next(),
			Variant: ChestStartGear,
			X:       p.X + 80,
			Y:       p.Y - 40,
			Radius:  chestRadius,
		}
		r.chests[sg.ID] = sg
		r.chestsDirty = true
	}
	if r.cfg.Debug.EnableDebugChests {
		r.spawnDebugChest(p)
		r.chestsDirty = true
	}

	r.log.Info("player joined",
		zap.String("room", r.ID),
		zap.String("player", p.ID),
		zap.String("scene", r.scene))
	r.audit.EmitSimple(AuditPlayerJoin, r.tickNum, r.ID, p.ID, nil)
}

func (r *Room) handleLeave(p *Player) {
	if p.CarryingChest != "" {
		r.dropArtifact(p)
	}
	// Mid-mission leavers scatter their gear so the squad can recover it.
	if r.scene == SceneLevel {
		for _, it := range p.Inventory {
			r.dropGroundItem(it, p.X, p.Y)
		}
	}
	r.playerGrid.Remove(p.ID)
	delete(r.players, p.ID)
	delete(r.pendingInputs, p.ID)
	delete(r.rings, p.ID)

	r.log.Info("player left",
		zap.String("room", r.ID),
		zap.String("player", p.ID))
	r.audit.EmitSimple(AuditPlayerLeave, r.tickNum, r.ID, p.ID, nil)
}

// Tick advances the simulation one step. Exported for tests; the worker loop
// is the only production caller.
func (r *Room) Tick(dt float64) {
	r.now += dt
	r.tickNum++

	for _, p := range r.players {
		in := r.pendingInputs[p.ID]
		r.integratePlayer(p, in, dt)
		if r.tickPlayerDots(p, dt) {
			continue
		}
		if p.gasLinger > 0 {
			p.gasLinger -= dt
			if p.gasLinger <= 0 {
				p.Gassed = false
			}
		}
		if p.abilityCooldown > 0 {
			p.abilityCooldown -= dt
		}
		r.playerFire(p, in, dt)
	}

	if r.scene == SceneLevel && !r.missionEnded {
		r.tickRings(dt)
		r.tickDirector(dt)
		r.tickBarracks(dt)
		r.tickTroops(dt)
		r.tickHazards(dt)
		r.tickStuckZones(dt)
		r.tickZones(dt)
		r.tickWavePhases(dt)
	}

	r.collectGroundItems()
	r.tickChests(dt)
	r.tickTimers(dt)
}

// ── Scene transitions ──

// startLevel tears down the lobby and builds the mission scene.
func (r *Room) startLevel(levelType string) {
	mode := r.modes.Get(levelType)
	if mode == nil {
		r.log.Warn("unknown level type",
			zap.String("room", r.ID),
			zap.String("levelType", levelType))
		return
	}
	r.mode = mode
	r.scene = SceneLevel
	r.levelType = levelType
	r.missionEnded = false
	r.extraction = countdown{}

	r.buildLevelScene()

	r.log.Info("level started",
		zap.String("room", r.ID),
		zap.String("levelType", levelType),
		zap.Int64("seed", r.worldSeed))
	r.audit.EmitSimple(AuditScene, r.tickNum, r.ID, "", map[string]string{"scene": SceneLevel, "level": levelType})
}

func (r *Room) buildLevelScene() {
	r.clearLevelEntities()

	r.env = world.NewEnvironment(r.mode.Boundary)
	r.buildTrenchWalls()

	r.placeHazards(r.hazTable.Get(r.levelType))
	r.placeChests()
	r.rollShop()
	r.initZones()
	r.initBarracks()
	r.spawnEmplacements()
	if r.cfg.Sim.AmbientSpawns {
		r.spawnAmbientPopulation()
	}

	r.wavePhase = phaseSearch
	r.waveIndex = 0
	r.waveTimer = 0
	r.phaseTime = 0
	r.directorMode = DirectorHunt

	// Reposition everyone at the mission spawn, alive and at full health.
	sp := r.mode.Spawn
	for _, p := range r.players {
		p.Dead = false
		p.Health = p.HealthMax
		p.Stamina = p.StaminaMax
		p.Exhausted = false
		p.Dots = nil
		p.Burning = false
		p.X = sp.X
		p.Y = sp.Y + r.jitter.Range(-sp.Radius, sp.Radius)
		r.playerGrid.Move(p.ID, p.X, p.Y)
		if r.cfg.Debug.EnableDebugChests {
			r.spawnDebugChest(p)
		}
	}
	r.hazardsDirty = true
	r.chestsDirty = true
	r.itemsDirty = true
}

// buildTrenchWalls lays defensive wall lines across the field with seeded
// gaps, then carves crossing corridors so every line stays passable.
func (r *Room) buildTrenchWalls() {
	rng := r.rng.Fork("walls")
	bound := r.mode.Boundary
	if bound <= lobbyBoundary {
		return
	}

	var gaps []world.AABB
	for _, wx := range []float64{-6000, -2500, 1000, 4500, 8000} {
		if wx <= -bound+500 || wx >= bound-500 {
			continue
		}
		r.env.AddObstacle(world.AABB{
			MinX: wx - 40, MaxX: wx + 40,
			MinY: -bound + 200, MaxY: bound - 200,
		})
		// Two to three corridors per line.
		n := 2 + rng.Intn(2)
		for g := 0; g < n; g++ {
			gy := rng.Range(-bound+600, bound-600)
			gaps = append(gaps, world.AABB{
				MinX: wx - 60, MaxX: wx + 60,
				MinY: gy - 180, MaxY: gy + 180,
			})
		}
	}
	r.env.ClearGapAreas(gaps)
}

// spawnAmbientPopulation seeds the baseline enemy field between the safe band
// and the far boundary.
func (r *Room) spawnAmbientPopulation() {
	rng := r.rng.Fork("ambient")
	minX := r.mode.ZoneSpawning.SafeMinX
	if minX == 0 {
		minX = r.env.Boundary.MinX + 1000
	}
	for i := 0; i < r.mode.Enemies.TotalCount; i++ {
		typ := weightedType(r.mode.Enemies.TypeRatios, rng)
		for try := 0; try < 8; try++ {
			x := rng.Range(minX+500, r.env.Boundary.MaxX-200)
			y := rng.Range(r.env.Boundary.MinY+200, r.env.Boundary.MaxY-200)
			if r.env.CircleHitsAny(x, y, 24, world.FilterAll) {
				continue
			}
			near := false
			for _, p := range r.players {
				if math.Hypot(p.X-x, p.Y-y) < hordePlayerClear {
					near = true
					break
				}
			}
			if near {
				continue
			}
			r.spawnEnemy(typ, x, y)
			break
		}
	}
}

// returnToLobby clears every mission entity and puts the party back in the
// lobby scene.
func (r *Room) returnToLobby() {
	r.clearLevelEntities()
	r.scene = SceneLobby
	r.levelType = ""
	r.mode = nil
	r.missionEnded = false
	r.extraction = countdown{}
	r.env = world.NewEnvironment(lobbyBoundary)

	for _, p := range r.players {
		p.Dead = false
		p.Health = p.HealthMax
		p.Dots = nil
		p.Burning = false
		p.CarryingChest = ""
		p.X = r.jitter.Range(-120, 120)
		p.Y = r.jitter.Range(-120, 120)
		r.playerGrid.Move(p.ID, p.X, p.Y)
	}
	r.hazardsDirty = true
	r.chestsDirty = true
	r.itemsDirty = true

	r.log.Info("returned to lobby", zap.String("room", r.ID))
	r.audit.EmitSimple(AuditScene, r.tickNum, r.ID, "", map[string]string{"scene": SceneLobby})
}

func (r *Room) clearLevelEntities() {
	r.enemies = make(map[string]*Enemy)
	r.troops = make(map[string]*Troop)
	r.chests = make(map[string]*Chest)
	r.hazards = make(map[string]*Hazard)
	r.groundItems = make(map[string]*GroundItem)
	r.stuckZones = make(map[int]*StuckZone)
	r.grenades = nil
	r.barracksList = nil
	r.zones = nil
	r.bursts = nil
	r.rings = make(map[string]*playerRing)
	r.enemyGrid.Clear()
	r.troopGrid.Clear()
}

// ── Timers ──

func (r *Room) startReadyTimer(p *Player, levelType string) {
	if r.scene != SceneLobby || r.ready.Running {
		return
	}
	mode := r.modes.Get(levelType)
	if mode == nil {
		return
	}
	total := mode.Timers.Ready
	if total <= 0 {
		total = 10
	}
	r.ready = countdown{Running: true, TimeLeft: total, Kind: levelType, lastWhole: -1}
	r.log.Info("ready timer started",
		zap.String("room", r.ID),
		zap.String("player", p.ID),
		zap.String("levelType", levelType))
	r.bus.Emit(ReadyTimerUpdate{Started: true, TimeLeft: total, LevelType: levelType})
}

func (r *Room) cancelReadyTimer(p *Player) {
	if !r.ready.Running {
		return
	}
	r.ready = countdown{}
	r.log.Info("ready timer cancelled",
		zap.String("room", r.ID),
		zap.String("player", p.ID))
	r.bus.Emit(ReadyTimerUpdate{Started: false, TimeLeft: 0})
}

func (r *Room) tickTimers(dt float64) {
	if r.ready.Running {
		r.ready.TimeLeft -= dt
		if whole := int(math.Ceil(r.ready.TimeLeft)); whole != r.ready.lastWhole && whole > 0 {
			r.ready.lastWhole = whole
			r.bus.Emit(ReadyTimerUpdate{Started: true, TimeLeft: r.ready.TimeLeft, LevelType: r.ready.Kind})
		}
		if r.ready.TimeLeft <= 0 {
			levelType := r.ready.Kind
			r.ready = countdown{}
			r.startLevel(levelType)
		}
	}
	r.tickExtraction(dt)
}

// ── Extraction ──

// requestExtraction starts the countdown when the requester stands in the
// extraction zone with the artifact present there.
func (r *Room) requestExtraction(p *Player, kind string) {
	if r.scene != SceneLevel || r.extraction.Running || r.missionEnded || p.Dead {
		return
	}
	if kind != "heretic" {
		kind = "normal"
	}
	// TODO: track heretic conversion server-side instead of trusting the
	// requested kind.
	ex := r.mode.Extraction
	zr := r.extractionRadius()
	if math.Hypot(p.X-ex.X, p.Y-ex.Y) > zr {
		return
	}
	if !r.artifactInZone() {
		return
	}
	total := r.mode.Timers.Extraction
	if total <= 0 {
		total = 60
	}
	r.extraction = countdown{Running: true, TimeLeft: total, Kind: kind, lastWhole: -1}
	r.startExtractionBursts(kind)
	r.log.Info("extraction started",
		zap.String("room", r.ID),
		zap.String("player", p.ID),
		zap.String("kind", kind))
	r.bus.Emit(ExtractionTimerUpdate{Started: true, TimeLeft: total, Kind: kind})
	r.audit.EmitSimple(AuditExtraction, r.tickNum, r.ID, p.ID, map[string]string{"kind": kind, "state": "started"})
}

func (r *Room) extractionRadius() float64 {
	if r.mode.Timers.ExtractionZone > 0 {
		return r.mode.Timers.ExtractionZone
	}
	if r.mode.Extraction.Radius > 0 {
		return r.mode.Extraction.Radius
	}
	return 400
}

// artifactInZone reports whether the gold chest artifact, carried or on the
// ground, currently sits inside the extraction zone.
func (r *Room) artifactInZone() bool {
	ex := r.mode.Extraction
	zr := r.extractionRadius()
	for _, c := range r.chests {
		if c == nil || c.Variant != ChestGold || !c.Opened {
			continue
		}
		x, y := c.ArtifactX, c.ArtifactY
		if c.ArtifactCarriedBy != "" {
			carrier := r.players[c.ArtifactCarriedBy]
			if carrier == nil {
				continue
			}
			x, y = carrier.X, carrier.Y
		} else if !c.ArtifactOnGround {
			continue
		}
		if math.Hypot(x-ex.X, y-ex.Y) <= zr {
			return true
		}
	}
	return false
}

func (r *Room) tickExtraction(dt float64) {
	if !r.extraction.Running {
		return
	}
	// Dropping or carrying the artifact out of the zone cancels the run.
	if !r.artifactInZone() {
		r.extraction = countdown{}
		r.log.Info("extraction cancelled, artifact left the zone",
			zap.String("room", r.ID))
		r.bus.Emit(ExtractionTimerUpdate{Started: false, TimeLeft: 0})
		r.audit.EmitSimple(AuditExtraction, r.tickNum, r.ID, "", map[string]string{"state": "cancelled"})
		return
	}
	r.extraction.TimeLeft -= dt
	if whole := int(math.Ceil(r.extraction.TimeLeft)); whole != r.extraction.lastWhole && whole > 0 {
		r.extraction.lastWhole = whole
		r.bus.Emit(ExtractionTimerUpdate{Started: true, TimeLeft: r.extraction.TimeLeft, Kind: r.extraction.Kind})
	}
	if r.extraction.TimeLeft <= 0 {
		r.completeExtraction()
	}
}

// completeExtraction awards victory points and freezes the mission on the
// accomplishment screen. The freeze is one-way until the party returns to the
// lobby.
func (r *Room) completeExtraction() {
	kind := r.extraction.Kind
	r.extraction = countdown{}

	alive := 0
	for _, p := range r.players {
		if !p.Dead {
			alive++
		}
	}
	vp := extractionBaseVP + alive*2
	if kind == "heretic" {
		vp *= 2
	}
	for _, p := range r.players {
		p.VictoryPoints += vp
	}
	r.missionEnded = true

	r.log.Info("extraction complete",
		zap.String("room", r.ID),
		zap.String("kind", kind),
		zap.Int("vp", vp))
	r.bus.Emit(MissionEnded{VictoryPoints: vp, Kind: kind})
	r.audit.EmitSimple(AuditExtraction, r.tickNum, r.ID, "", map[string]interface{}{"state": "complete", "vp": vp})
}

// ── Chests and the artifact ──

func (r *Room) openChest(p *Player, chestID string) {
	c := r.chests[chestID]
	if c == nil || c.Opened || c.Opening || p.Dead {
		return
	}
	if math.Hypot(p.X-c.X, p.Y-c.Y) > c.Radius+p.Radius+chestReachSlack {
		return
	}
	c.Opening = true
	c.TimeTotal = chestOpenSeconds
	c.TimeLeft = chestOpenSeconds
	c.StartedBy = p.ID
	r.chestsDirty = true
}

// cancelOpenChest aborts the channel: no drops, progress resets fully.
func (r *Room) cancelOpenChest(p *Player) {
	for _, c := range r.chests {
		if c != nil && c.Opening && c.StartedBy == p.ID {
			c.Opening = false
			c.TimeLeft = 0
			c.StartedBy = ""
			r.chestsDirty = true
		}
	}
}

func (r *Room) tickChests(dt float64) {
	for _, c := range r.chests {
		if c == nil || !c.Opening {
			continue
		}
		opener := r.players[c.StartedBy]
		if opener == nil || opener.Dead ||
			math.Hypot(opener.X-c.X, opener.Y-c.Y) > c.Radius+playerRadius+chestReachSlack*2 {
			c.Opening = false
			c.TimeLeft = 0
			c.StartedBy = ""
			r.chestsDirty = true
			continue
		}
		c.TimeLeft -= dt
		if c.TimeLeft > 0 {
			continue
		}
		c.Opening = false
		c.Opened = true
		c.TimeLeft = 0
		r.rollChestDrops(c)
		opener.Inventory = append(opener.Inventory, c.Drops...)
		opener.RecomputeStats()
		c.StartedBy = ""
		r.chestsDirty = true
		r.bus.Emit(VFXEvent{Kind: "chestOpened", X: c.X, Y: c.Y})
		r.log.Debug("chest opened",
			zap.String("room", r.ID),
			zap.String("chest", c.ID),
			zap.String("player", opener.ID))
	}
}

func (r *Room) pickUpArtifact(p *Player, chestID string) {
	c := r.chests[chestID]
	if c == nil || c.Variant != ChestGold || !c.Opened || p.Dead || p.CarryingChest != "" {
		return
	}
	if c.ArtifactCarriedBy != "" {
		return
	}
	ax, ay := c.X, c.Y
	if c.ArtifactOnGround {
		ax, ay = c.ArtifactX, c.ArtifactY
	}
	if math.Hypot(p.X-ax, p.Y-ay) > artifactReach {
		return
	}
	c.ArtifactCarriedBy = p.ID
	c.ArtifactOnGround = false
	c.ArtifactX, c.ArtifactY = p.X, p.Y
	p.CarryingChest = c.ID
	r.bus.Emit(ArtifactUpdate{ChestID: c.ID, CarriedBy: p.ID, X: p.X, Y: p.Y})
}

// dropArtifact puts the carried artifact on the ground at the carrier's feet.
// Also called from the death path.
func (r *Room) dropArtifact(p *Player) {
	c := r.chests[p.CarryingChest]
	p.CarryingChest = ""
	if c == nil {
		return
	}
	c.ArtifactCarriedBy = ""
	c.ArtifactOnGround = true
	c.ArtifactX, c.ArtifactY = p.X, p.Y
	r.bus.Emit(ArtifactUpdate{ChestID: c.ID, OnGround: true, X: p.X, Y: p.Y})
}

// ── Player abilities ──

// placeAbility drops a player sandbag wall, subject to the active cap and the
// per-player cooldown.
func (r *Room) placeAbility(p *Player, c CmdPlaceAbility) {
	if r.scene != SceneLevel || r.missionEnded || p.Dead {
		return
	}
	if c.Kind != "sandbag_wall" || p.abilityCooldown > 0 {
		return
	}
	if math.Hypot(p.X-c.X, p.Y-c.Y) > abilityReach {
		return
	}
	active := 0
	for _, h := range r.hazards {
		if h.OwnerID == p.ID {
			active++
		}
	}
	if active >= abilityMaxActive {
		return
	}
	if !r.env.IsInsideBounds(c.X, c.Y, sandbagW/2) {
		return
	}

	h := &Hazard{
		ID:       r.hazardIDs.Next(),
		Kind:     HazardSandbag,
		X:        c.X,
		Y:        c.Y,
		W:        sandbagW,
		H:        sandbagH,
		Angle:    c.Angle,
		Health:   abilityHealth,
		OwnerID:  p.ID,
		BoxIndex: -1,
	}
	h.BoxIndex = r.env.AddOrientedBox(world.OrientedBox{
		X: c.X, Y: c.Y, W: sandbagW, H: sandbagH, Angle: c.Angle,
		Breakable: true, HazardID: h.ID,
	})
	r.hazards[h.ID] = h
	p.abilityCooldown = abilityCooldownSec
	r.hazardsDirty = true
	r.bus.Emit(VFXEvent{Kind: "abilityPlaced", X: c.X, Y: c.Y, Angle: c.Angle})
}

// applyAbilityDot is PvP: the server only honors it across alignment lines,
// and clamps whatever numbers the client claims.
func (r *Room) applyAbilityDot(attacker *Player, c CmdAbilityDotDamage) {
	target := r.players[c.TargetPlayerID]
	if target == nil || target.Dead || attacker.Dead {
		return
	}
	if attacker.Evil == target.Evil {
		return
	}
	dps := math.Min(c.DPS, 30)
	duration := math.Min(c.Duration, 6)
	if dps <= 0 || duration <= 0 {
		return
	}
	applyDot(&target.Dots, "ability:"+c.AbilityID, dps, duration)
}

// ── Query helpers ──

// nearestAlivePlayer returns the closest targetable living player to a point,
// or nil. Dashing players are untargetable for the burst.
func (r *Room) nearestAlivePlayer(x, y float64) *Player {
	var best *Player
	bestD := math.MaxFloat64
	for _, p := range r.players {
		if p.Dead || p.Invisible {
			continue
		}
		d := math.Hypot(p.X-x, p.Y-y)
		if d < bestD {
			best = p
			bestD = d
		}
	}
	return best
}

// anyAlivePlayer returns an arbitrary living player, or nil.
func (r *Room) anyAlivePlayer() *Player {
	for _, p := range r.players {
		if !p.Dead {
			return p
		}
	}
	return nil
}

// forPlayersIn visits living players inside the circle. Grid candidates are
// a cell superset; the exact distance check happens here.
func (r *Room) forPlayersIn(x, y, radius float64, fn func(*Player)) {
	for _, id := range r.playerGrid.QueryCircle(x, y, radius) {
		p := r.players[id]
		if p == nil || p.Dead {
			continue
		}
		if math.Hypot(p.X-x, p.Y-y) > radius {
			continue
		}
		fn(p)
	}
}

// forTroopsIn visits troops inside the circle.
func (r *Room) forTroopsIn(x, y, radius float64, fn func(*Troop)) {
	for _, id := range r.troopGrid.QueryCircle(x, y, radius) {
		t := r.troops[id]
		if t == nil {
			continue
		}
		if math.Hypot(t.X-x, t.Y-y) > radius {
			continue
		}
		fn(t)
	}
}

// forEnemiesIn visits living hostile enemies inside the circle.
func (r *Room) forEnemiesIn(x, y, radius float64, fn func(*Enemy)) {
	for _, id := range r.enemyGrid.QueryCircle(x, y, radius) {
		e := r.enemies[id]
		if e == nil || !e.Alive || e.Faction != FactionEnemy {
			continue
		}
		if math.Hypot(e.X-x, e.Y-y) > radius {
			continue
		}
		fn(e)
	}
}
