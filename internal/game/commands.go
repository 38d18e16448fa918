package game

// Client-originated commands, delivered through the room's inbound queue and
// consumed at the start of each tick. Every command is addressed to a player
// already known to the room; unknown players are dropped silently.

// Command is one queued client action.
type Command interface {
	playerID() string
}

// Origin names the player a command comes from. Exported so the transport
// layer can construct commands.
type Origin struct {
	Player string
}

func (o Origin) playerID() string { return o.Player }

// CmdJoin adds a player to the room.
type CmdJoin struct {
	Origin
	Name string
}

// CmdLeave removes a player at end of the current tick.
type CmdLeave struct {
	Origin
}

// CmdInput carries one input sample.
type CmdInput struct {
	Origin
	Input PlayerInput
}

// CmdStartReadyTimer starts the lobby countdown.
type CmdStartReadyTimer struct {
	Origin
	LevelType string
}

// CmdCancelReadyTimer cancels the lobby countdown.
type CmdCancelReadyTimer struct {
	Origin
}

// CmdOpenChest begins a chest open.
type CmdOpenChest struct {
	Origin
	ChestID string
}

// CmdCancelOpenChest aborts an in-progress open.
type CmdCancelOpenChest struct {
	Origin
}

// CmdPickUpArtifact picks the artifact out of an opened gold chest or off
// the ground.
type CmdPickUpArtifact struct {
	Origin
	ChestID string
}

// CmdDropArtifact drops the carried artifact at the carrier's feet.
type CmdDropArtifact struct {
	Origin
}

// CmdPurchaseShopItem buys a shop slot.
type CmdPurchaseShopItem struct {
	Origin
	Index int
}

// CmdRequestExtraction starts the extraction countdown.
type CmdRequestExtraction struct {
	Origin
	Kind string // "normal" or "heretic"
}

// CmdPlaceAbility places a player ability in the world. The server validates
// the cap and cooldown.
type CmdPlaceAbility struct {
	Origin
	Kind        string
	X, Y, Angle float64
	Progression int
}

// CmdSendNPCDot is the client-originated DOT tag for friendly emplacements.
type CmdSendNPCDot struct {
	Origin
	NPCID    string
	DPS      float64
	Duration float64
}

// CmdAbilityDotDamage is PvP ability DOT; the server revalidates alignment
// before applying anything.
type CmdAbilityDotDamage struct {
	Origin
	AbilityID      string
	TargetPlayerID string
	DPS            float64
	Duration       float64
}

// CmdReturnToLobby leaves the accomplishment screen.
type CmdReturnToLobby struct {
	Origin
}
