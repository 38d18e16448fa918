package game

import (
	"testing"

	"go.uber.org/zap"

	"trenchline/internal/config"
	"trenchline/internal/data"
	"trenchline/internal/game/world"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{MaxRooms: 4},
		Network: config.NetworkConfig{
			InQueueSize:      64,
			MaxInputsPerTick: 16,
		},
		Sim: config.SimConfig{
			TickRate:     60,
			SnapshotRate: 10,
			// Keep the baseline field empty so tests control every spawn.
			AmbientSpawns: false,
		},
	}
}

func testDeps(t *testing.T) Deps {
	t.Helper()
	modes, err := data.LoadModeTable("")
	if err != nil {
		t.Fatalf("load modes: %v", err)
	}
	hazards, err := data.LoadHazardTable("")
	if err != nil {
		t.Fatalf("load hazards: %v", err)
	}
	weapons, err := data.LoadWeaponTable("")
	if err != nil {
		t.Fatalf("load weapons: %v", err)
	}
	return Deps{
		Cfg:     testConfig(),
		Log:     zap.NewNop(),
		Modes:   modes,
		Hazards: hazards,
		Weapons: weapons,
		Audit:   NewAuditLog(),
	}
}

func newTestRoom(t *testing.T, seed int64) *Room {
	t.Helper()
	return NewRoom("room_test", seed, testDeps(t))
}

func joinTestPlayer(r *Room, id string) *Player {
	r.apply(CmdJoin{Origin: Origin{Player: id}, Name: id})
	return r.players[id]
}

// enterBareLevel puts the room in the level scene with an empty battlefield so
// tests control the geometry, instead of the seeded layout startLevel builds.
func enterBareLevel(r *Room, mode *data.GameMode) {
	r.mode = mode
	r.scene = SceneLevel
	r.levelType = mode.Name
	r.env = world.NewEnvironment(mode.Boundary)
}

func movePlayerTo(r *Room, p *Player, x, y float64) {
	p.X, p.Y = x, y
	r.playerGrid.Move(p.ID, x, y)
}

func drainEvents(r *Room) []Event {
	var out []Event
	r.bus.Drain(func(ev Event) { out = append(out, ev) })
	return out
}

func eventsOfName(evs []Event, name string) []Event {
	var out []Event
	for _, ev := range evs {
		if ev.Name() == name {
			out = append(out, ev)
		}
	}
	return out
}

func chestByVariant(r *Room, variant string) *Chest {
	for _, c := range r.chests {
		if c.Variant == variant {
			return c
		}
	}
	return nil
}
