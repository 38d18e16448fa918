package api

import (
	"encoding/json"
	"net/http"

	"trenchline/internal/config"
	"trenchline/internal/data"
	"trenchline/internal/game"
)

type handlers struct {
	cfg     *config.Config
	manager *game.RoomManager
	hub     *Hub
	modes   *data.ModeTable
	weapons *data.WeaponTable
	audit   *game.AuditLog
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// handleStatus reports server-level counters.
func (h *handlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rooms":   h.manager.Count(),
		"clients": h.hub.ClientCount(),
		"audit":   h.audit.Stats(),
	})
}

// handleModes lists the available level types.
func (h *handlers) handleModes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"modes": h.modes.Names(),
	})
}

// handleWeapons dumps the weapon progression table for the client UI.
func (h *handlers) handleWeapons(w http.ResponseWriter, r *http.Request) {
	out := make([]*data.WeaponProgression, 0, h.weapons.Count())
	for i := 0; i < h.weapons.Count(); i++ {
		out = append(out, h.weapons.ByIndex(i))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"weapons": out})
}

// handleRooms reports the live room count. Room ids are join tokens, so the
// list itself is not exposed.
func (h *handlers) handleRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count": h.manager.Count(),
		"max":   h.cfg.Server.MaxRooms,
	})
}
