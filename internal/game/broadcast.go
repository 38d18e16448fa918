package game

// Replication: full entity dumps at the snapshot rate, hazard/chest dumps on
// change only, and point events every tick in emission order.

// Message type tags on the wire.
const (
	msgPlayersState = "playersState"
	msgEnemiesState = "enemiesState"
	msgTroopsState  = "troopsState"
	msgHazardsState = "hazardsState"
	msgChestsState  = "chestsState"
	msgItemsState   = "itemsState"
	msgShopState    = "shopState"
	msgSceneState   = "sceneState"
)

type playersStatePayload struct {
	Players []*Player `json:"players"`
}

type enemiesStatePayload struct {
	Enemies []*Enemy `json:"enemies"`
}

type troopsStatePayload struct {
	Troops []*Troop `json:"troops"`
	Phase  int      `json:"phase"`
}

type hazardsStatePayload struct {
	Hazards []*Hazard `json:"hazards"`
}

type chestsStatePayload struct {
	Chests []*Chest `json:"chests"`
}

type itemsStatePayload struct {
	Items []*GroundItem `json:"items"`
}

type shopStatePayload struct {
	Items []StatItem `json:"items"`
}

type sceneStatePayload struct {
	Scene     string `json:"scene"`
	LevelType string `json:"levelType,omitempty"`
	Tick      uint64 `json:"tick"`
}

// broadcaster owns the snapshot cadence for one room. It runs on the room's
// worker goroutine right after the tick.
type broadcaster struct {
	snapInterval float64
	snapTimer    float64
	lastScene    string
	lastShopLen  int
	soldSeen     int
}

func newBroadcaster(snapshotRate int) *broadcaster {
	if snapshotRate <= 0 {
		snapshotRate = 10
	}
	return &broadcaster{snapInterval: 1.0 / float64(snapshotRate)}
}

// flush sends point events for this tick, then state dumps when due.
func (b *broadcaster) flush(r *Room, dt float64) {
	if r.pub == nil {
		r.bus.Drain(func(Event) {})
		return
	}

	// Point events. Purchase results go only to their originator.
	r.bus.Drain(func(ev Event) {
		if pr, ok := ev.(PurchaseResult); ok {
			r.pub.Send(r.ID, pr.PlayerID, pr.Name(), pr)
			return
		}
		r.pub.Broadcast(r.ID, ev.Name(), ev)
	})

	// Scene changes replicate immediately.
	if r.scene != b.lastScene {
		b.lastScene = r.scene
		r.pub.Broadcast(r.ID, msgSceneState, sceneStatePayload{
			Scene: r.scene, LevelType: r.levelType, Tick: r.tickNum,
		})
	}

	// On-change dumps.
	if r.hazardsDirty {
		r.hazardsDirty = false
		r.pub.Broadcast(r.ID, msgHazardsState, hazardsStatePayload{Hazards: hazardList(r)})
	}
	if r.chestsDirty {
		r.chestsDirty = false
		r.pub.Broadcast(r.ID, msgChestsState, chestsStatePayload{Chests: chestList(r)})
	}
	if r.itemsDirty {
		r.itemsDirty = false
		r.pub.Broadcast(r.ID, msgItemsState, itemsStatePayload{Items: groundItemList(r)})
	}
	if sold := soldCount(r.shop); len(r.shop) != b.lastShopLen || sold != b.soldSeen {
		b.lastShopLen = len(r.shop)
		b.soldSeen = sold
		r.pub.Broadcast(r.ID, msgShopState, shopStatePayload{Items: r.shop})
	}

	b.snapTimer -= dt
	if b.snapTimer > 0 {
		return
	}
	b.snapTimer = b.snapInterval

	r.pub.Broadcast(r.ID, msgPlayersState, playersStatePayload{Players: playerList(r)})
	if r.scene == SceneLevel {
		r.pub.Broadcast(r.ID, msgEnemiesState, enemiesStatePayload{Enemies: enemyList(r)})
		r.pub.Broadcast(r.ID, msgTroopsState, troopsStatePayload{Troops: troopList(r), Phase: r.troopPhase})
	}
}

func playerList(r *Room) []*Player {
	out := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p)
	}
	return out
}

func enemyList(r *Room) []*Enemy {
	out := make([]*Enemy, 0, len(r.enemies))
	for _, e := range r.enemies {
		if e.Alive {
			out = append(out, e)
		}
	}
	return out
}

func troopList(r *Room) []*Troop {
	out := make([]*Troop, 0, len(r.troops))
	for _, t := range r.troops {
		out = append(out, t)
	}
	return out
}

func hazardList(r *Room) []*Hazard {
	out := make([]*Hazard, 0, len(r.hazards))
	for _, h := range r.hazards {
		out = append(out, h)
	}
	return out
}

func chestList(r *Room) []*Chest {
	out := make([]*Chest, 0, len(r.chests))
	for _, c := range r.chests {
		out = append(out, c)
	}
	return out
}

func groundItemList(r *Room) []*GroundItem {
	out := make([]*GroundItem, 0, len(r.groundItems))
	for _, g := range r.groundItems {
		out = append(out, g)
	}
	return out
}

func soldCount(items []StatItem) int {
	n := 0
	for _, it := range items {
		if it.Sold {
			n++
		}
	}
	return n
}
