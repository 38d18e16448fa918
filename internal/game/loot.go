package game

import (
	"fmt"
	"math"

	"trenchline/internal/game/world"
)

// Loot manager: every roll is seeded from worldSeed + hash(entity id), so the
// same seed reproduces the same drops regardless of the order chests get
// opened in.

const (
	RarityCommon    = "common"
	RarityRare      = "rare"
	RarityEpic      = "epic"
	RarityLegendary = "legendary"

	chestOpenSeconds = 3.0
	chestRadius      = 40.0

	shopEpicCount      = 4
	shopLegendaryCount = 4

	groundItemReach = 50.0
)

var rarityOrder = []string{RarityCommon, RarityRare, RarityEpic, RarityLegendary}

var rarityIndex = map[string]int{
	RarityCommon: 0, RarityRare: 1, RarityEpic: 2, RarityLegendary: 3,
}

// statDef is one rollable stat with rarity-indexed values.
type statDef struct {
	Stat      string
	IsPercent bool
	Values    [4]float64 // common, rare, epic, legendary
}

var statDefs = []statDef{
	{Stat: "health", IsPercent: false, Values: [4]float64{10, 20, 35, 60}},
	{Stat: "health", IsPercent: true, Values: [4]float64{4, 8, 14, 22}},
	{Stat: "stamina", IsPercent: false, Values: [4]float64{10, 18, 30, 50}},
	{Stat: "moveSpeed", IsPercent: true, Values: [4]float64{3, 6, 10, 16}},
	{Stat: "damage", IsPercent: true, Values: [4]float64{5, 10, 18, 30}},
	{Stat: "fireRate", IsPercent: true, Values: [4]float64{4, 8, 14, 22}},
	{Stat: "lootLuck", IsPercent: false, Values: [4]float64{1, 2, 3, 5}},
}

// Rarity weights per chest variant. Gold (boss) chests only roll the top two
// tiers.
var chestRarityWeights = map[string][4]float64{
	ChestBrown:     {60, 30, 8, 2},
	ChestGold:      {0, 0, 60, 40},
	ChestStartGear: {100, 0, 0, 0},
	ChestDebug:     {25, 25, 25, 25},
}

var chestDropCounts = map[string]int{
	ChestBrown:     2,
	ChestGold:      4,
	ChestStartGear: 2,
	ChestDebug:     6,
}

// shopCosmetics is the fixed cosmetic stock appended after the stat rolls.
var shopCosmetics = []StatItem{
	{Name: "Steel Helmet", Rarity: RarityRare, Cosmetic: true, Price: 250, Currency: "ducats"},
	{Name: "Officer Cap", Rarity: RarityEpic, Cosmetic: true, Price: 600, Currency: "ducats"},
	{Name: "Ash Cloak", Rarity: RarityEpic, Cosmetic: true, Price: 3, Currency: "vp"},
	{Name: "Gilded Skin", Rarity: RarityLegendary, Cosmetic: true, Price: 8, Currency: "vp"},
}

// lootRand derives the seeded stream for one entity id.
func (r *Room) lootRand(entityID string) *SeqRand {
	return NewSeqRand(r.worldSeed + HashID(entityID))
}

// rollRarity samples a rarity tier from the variant's weight table.
func rollRarity(weights [4]float64, rng *SeqRand) string {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return RarityCommon
	}
	roll := rng.Float() * total
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		if roll < w {
			return rarityOrder[i]
		}
		roll -= w
	}
	return RarityLegendary
}

// rollStatItem rolls one stat item at the given rarity.
func rollStatItem(rarity string, rng *SeqRand) StatItem {
	def := statDefs[rng.Intn(len(statDefs))]
	val := def.Values[rarityIndex[rarity]]
	suffix := ""
	if def.IsPercent {
		suffix = "%"
	}
	return StatItem{
		Name:      fmt.Sprintf("%s +%g%s", def.Stat, val, suffix),
		Stat:      def.Stat,
		Rarity:    rarity,
		Value:     val,
		IsPercent: def.IsPercent,
	}
}

// rollChestDrops fills a chest's drop list from its seeded stream. Idempotent
// per chest: the list is rolled at most once.
func (r *Room) rollChestDrops(c *Chest) {
	if len(c.Drops) > 0 {
		return
	}
	rng := r.lootRand(c.ID)
	weights := chestRarityWeights[c.Variant]
	count := chestDropCounts[c.Variant]
	for i := 0; i < count; i++ {
		c.Drops = append(c.Drops, rollStatItem(rollRarity(weights, rng), rng))
	}
}

// rollEnemyDrops rolls type-specific currency on death, independently seeded
// per enemy.
func (r *Room) rollEnemyDrops(e *Enemy) (ducats, markers int) {
	rates, ok := r.mode.Enemies.DropRates[e.Type]
	if !ok {
		return 0, 0
	}
	rng := r.lootRand(e.ID)
	if rng.Float() >= rates.Chance {
		return 0, 0
	}
	if rates.DucatsMax > rates.DucatsMin {
		ducats = rates.DucatsMin + rng.Intn(rates.DucatsMax-rates.DucatsMin+1)
	} else {
		ducats = rates.DucatsMin
	}
	if rates.MarkersMax > rates.MarkersMin {
		markers = rates.MarkersMin + rng.Intn(rates.MarkersMax-rates.MarkersMin+1)
	} else {
		markers = rates.MarkersMin
	}
	// Cooperative pickup: everyone alive collects the drop.
	for _, p := range r.players {
		if !p.Dead {
			p.Ducats += ducats
			p.BloodMarkers += markers
		}
	}
	return ducats, markers
}

// dropGroundItem places a stat item on the ground with a small scatter.
func (r *Room) dropGroundItem(it StatItem, x, y float64) {
	g := &GroundItem{
		ID:   r.itemIDs.Next(),
		X:    x + r.jitter.Range(-40, 40),
		Y:    y + r.jitter.Range(-40, 40),
		Item: it,
	}
	r.groundItems[g.ID] = g
	r.itemsDirty = true
}

// collectGroundItems hands dropped items to living players who walk over
// them. First to touch wins.
func (r *Room) collectGroundItems() {
	if len(r.groundItems) == 0 {
		return
	}
	for id, g := range r.groundItems {
		for _, p := range r.players {
			if p.Dead {
				continue
			}
			if math.Hypot(p.X-g.X, p.Y-g.Y) > groundItemReach+p.Radius {
				continue
			}
			p.Inventory = append(p.Inventory, g.Item)
			p.RecomputeStats()
			delete(r.groundItems, id)
			r.itemsDirty = true
			r.bus.Emit(VFXEvent{Kind: "itemPickup", X: g.X, Y: g.Y})
			break
		}
	}
}

// rollShop builds the room's shop inventory: 4 Epic and 4 Legendary stat
// items plus the fixed cosmetics.
func (r *Room) rollShop() {
	rng := r.lootRand("shop")
	r.shop = r.shop[:0]
	for i := 0; i < shopEpicCount; i++ {
		it := rollStatItem(RarityEpic, rng)
		it.Price = 400
		it.Currency = "ducats"
		r.shop = append(r.shop, it)
	}
	for i := 0; i < shopLegendaryCount; i++ {
		it := rollStatItem(RarityLegendary, rng)
		it.Price = 900
		it.Currency = "ducats"
		r.shop = append(r.shop, it)
	}
	r.shop = append(r.shop, shopCosmetics...)
}

// purchaseShopItem validates and executes a purchase. Failures change
// nothing; the result event carries the reason back to the originator.
func (r *Room) purchaseShopItem(p *Player, index int) {
	result := PurchaseResult{PlayerID: p.ID, Index: index}
	if index < 0 || index >= len(r.shop) {
		result.Reason = "No such item"
		r.bus.Emit(result)
		return
	}
	it := &r.shop[index]
	if it.Sold {
		result.Reason = "Already sold"
		r.bus.Emit(result)
		return
	}
	switch it.Currency {
	case "vp":
		if p.VictoryPoints < it.Price {
			result.Reason = "Insufficient victory points"
			r.bus.Emit(result)
			return
		}
		p.VictoryPoints -= it.Price
	default:
		if p.Ducats < it.Price {
			result.Reason = "Insufficient ducats"
			r.bus.Emit(result)
			return
		}
		p.Ducats -= it.Price
	}
	it.Sold = true
	if !it.Cosmetic {
		p.Inventory = append(p.Inventory, *it)
		p.RecomputeStats()
	}
	result.Success = true
	r.bus.Emit(result)
}

// placeChests seeds the level's chests: one gold chest carrying the
// artifact, plus brown chests scattered in their band.
func (r *Room) placeChests() {
	rng := r.rng.Fork("chests")
	loot := r.mode.Loot

	gold := &Chest{
		ID:      r.chestIDs.Next(),
		Variant: ChestGold,
		X:       rng.Range(loot.GoldChest.MinX, loot.GoldChest.MaxX),
		Y:       rng.Range(loot.GoldChest.MinY, loot.GoldChest.MaxY),
		Radius:  chestRadius,
	}
	r.chests[gold.ID] = gold

	for i := 0; i < loot.BrownChestCount; i++ {
		c := &Chest{
			ID:      r.chestIDs.Next(),
			Variant: ChestBrown,
			X:       rng.Range(loot.BrownChest.MinX, loot.BrownChest.MaxX),
			Y:       rng.Range(loot.BrownChest.MinY, loot.BrownChest.MaxY),
			Radius:  chestRadius,
		}
		if loot.Clearance > 0 && r.env.CircleHitsAny(c.X, c.Y, loot.Clearance, world.FilterAll) {
			continue
		}
		r.chests[c.ID] = c
	}
}

// spawnDebugChest drops a six-item debug chest next to a player. Gated by
// the ENABLE_DEBUG_CHESTS flag.
func (r *Room) spawnDebugChest(p *Player) {
	c := &Chest{
		ID:      r.chestIDs.Next(),
		Variant: ChestDebug,
		X:       p.X + 80,
		Y:       p.Y,
		Radius:  chestRadius,
	}
	r.chests[c.ID] = c
}
