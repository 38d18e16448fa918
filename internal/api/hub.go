package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"trenchline/internal/config"
	"trenchline/internal/game"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

// envelope is the wire frame in both directions.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// client is one WebSocket connection bound to a room and player.
type client struct {
	conn     *websocket.Conn
	roomID   string
	playerID string
	ip       string
	send     chan []byte
	closed   sync.Once
}

func (c *client) close() {
	c.closed.Do(func() {
		close(c.send)
	})
}

// Hub routes room broadcasts to the right sockets and client messages into
// the right room's command queue. Implements game.Publisher.
type Hub struct {
	cfg     *config.Config
	log     *zap.Logger
	manager *game.RoomManager

	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}

	wsLimiter    *WebSocketRateLimiter
	extraOrigins []string
	upgrader     websocket.Upgrader
}

// NewHub creates the hub. Attach it to the room manager deps as Publisher
// before creating rooms.
func NewHub(cfg *config.Config, log *zap.Logger, extraOrigins []string) *Hub {
	h := &Hub{
		cfg:          cfg,
		log:          log,
		rooms:        make(map[string]map[*client]struct{}),
		wsLimiter:    NewWebSocketRateLimiter(cfg.Network.MaxWSConnsPerIP),
		extraOrigins: extraOrigins,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if IsAllowedOrigin(origin, h.extraOrigins) {
				return true
			}
			h.log.Warn("websocket rejected by origin", zap.String("origin", origin))
			RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// SetManager wires the room manager after construction; hub and manager
// reference each other.
func (h *Hub) SetManager(m *game.RoomManager) {
	h.manager = m
}

// Broadcast marshals once and fans out to every client in the room. A slow
// client drops messages rather than stalling the room.
func (h *Hub) Broadcast(roomID, msgType string, payload interface{}) {
	frame, err := marshalFrame(msgType, payload)
	if err != nil {
		return
	}
	h.mu.RLock()
	for c := range h.rooms[roomID] {
		select {
		case c.send <- frame:
			IncrementWSMessages()
		default:
			IncrementWSDropped()
		}
	}
	h.mu.RUnlock()
}

// Send delivers to one player's connection(s) in a room.
func (h *Hub) Send(roomID, playerID, msgType string, payload interface{}) {
	frame, err := marshalFrame(msgType, payload)
	if err != nil {
		return
	}
	h.mu.RLock()
	for c := range h.rooms[roomID] {
		if c.playerID != playerID {
			continue
		}
		select {
		case c.send <- frame:
			IncrementWSMessages()
		default:
			IncrementWSDropped()
		}
	}
	h.mu.RUnlock()
}

func marshalFrame(msgType string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: msgType, Data: data})
}

// ClientCount returns the number of connected sockets.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.rooms {
		n += len(set)
	}
	return n
}

// HandleWebSocket upgrades /ws?room=X&player=Y&name=Z connections.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("room")
	playerID := r.URL.Query().Get("player")
	name := r.URL.Query().Get("name")
	if roomID == "" || playerID == "" {
		http.Error(w, "room and player are required", http.StatusBadRequest)
		return
	}
	if name == "" {
		name = playerID
	}

	ip := GetClientIP(r)
	if h.ClientCount() >= h.cfg.Network.MaxWSConnsTotal {
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}
	if !h.wsLimiter.Allow(ip) {
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	room, err := h.manager.GetOrCreate(roomID)
	if err != nil {
		h.wsLimiter.Release(ip)
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.wsLimiter.Release(ip)
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		conn:     conn,
		roomID:   roomID,
		playerID: playerID,
		ip:       ip,
		send:     make(chan []byte, sendBufferSize),
	}
	h.register(c)
	room.Enqueue(game.CmdJoin{Origin: game.Origin{Player: playerID}, Name: name})

	go h.writePump(c)
	go h.readPump(c, room)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	set := h.rooms[c.roomID]
	if set == nil {
		set = make(map[*client]struct{})
		h.rooms[c.roomID] = set
	}
	set[c] = struct{}{}
	n := 0
	for _, s := range h.rooms {
		n += len(s)
	}
	h.mu.Unlock()

	UpdateWSConnections(n)
	h.log.Info("client connected",
		zap.String("room", c.roomID),
		zap.String("player", c.playerID),
		zap.String("ip", c.ip))
}

func (h *Hub) unregister(c *client, room *game.Room) {
	h.mu.Lock()
	if set, ok := h.rooms[c.roomID]; ok {
		if _, present := set[c]; present {
			delete(set, c)
			if len(set) == 0 {
				delete(h.rooms, c.roomID)
			}
			h.wsLimiter.Release(c.ip)
		}
	}
	n := 0
	for _, s := range h.rooms {
		n += len(s)
	}
	h.mu.Unlock()

	c.close()
	c.conn.Close()
	UpdateWSConnections(n)
	if room != nil {
		room.Enqueue(game.CmdLeave{Origin: game.Origin{Player: c.playerID}})
	}
	h.log.Info("client disconnected",
		zap.String("room", c.roomID),
		zap.String("player", c.playerID))
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) readPump(c *client, room *game.Room) {
	defer h.unregister(c, room)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}
		if cmd, ok := decodeCommand(c.playerID, env); ok {
			room.Enqueue(cmd)
		}
	}
}

// inputFrame is the client input wire format.
type inputFrame struct {
	Seq         uint64  `json:"seq"`
	Up          bool    `json:"up"`
	Down        bool    `json:"down"`
	Left        bool    `json:"left"`
	Right       bool    `json:"right"`
	Shift       bool    `json:"shift"`
	Aim         float64 `json:"aim"`
	MouseDown   bool    `json:"mouseDown"`
	WeaponIndex int     `json:"weaponIndex"`
	Secondary   bool    `json:"secondary"`
	TimestampMs int64   `json:"ts"`
}

// decodeCommand maps one wire message to a room command. Unknown or
// malformed messages are dropped; the server never trusts client payloads
// beyond their shape.
func decodeCommand(playerID string, env envelope) (game.Command, bool) {
	from := game.Origin{Player: playerID}
	switch env.Type {
	case "input":
		var f inputFrame
		if err := json.Unmarshal(env.Data, &f); err != nil {
			return nil, false
		}
		return game.CmdInput{Origin: from, Input: game.PlayerInput{
			Seq:                f.Seq,
			W:                  f.Up,
			S:                  f.Down,
			A:                  f.Left,
			D:                  f.Right,
			Shift:              f.Shift,
			AimAngle:           f.Aim,
			MouseDown:          f.MouseDown,
			WeaponIndex:        f.WeaponIndex,
			SecondaryRequested: f.Secondary,
			TimestampMs:        f.TimestampMs,
		}}, true

	case "startReadyTimer":
		var d struct {
			LevelType string `json:"levelType"`
		}
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return nil, false
		}
		return game.CmdStartReadyTimer{Origin: from, LevelType: d.LevelType}, true

	case "cancelReadyTimer":
		return game.CmdCancelReadyTimer{Origin: from}, true

	case "openChest":
		var d struct {
			ChestID string `json:"chestId"`
		}
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return nil, false
		}
		return game.CmdOpenChest{Origin: from, ChestID: d.ChestID}, true

	case "cancelOpenChest":
		return game.CmdCancelOpenChest{Origin: from}, true

	case "pickUpArtifact":
		var d struct {
			ChestID string `json:"chestId"`
		}
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return nil, false
		}
		return game.CmdPickUpArtifact{Origin: from, ChestID: d.ChestID}, true

	case "dropArtifact":
		return game.CmdDropArtifact{Origin: from}, true

	case "purchase":
		var d struct {
			Index int `json:"index"`
		}
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return nil, false
		}
		return game.CmdPurchaseShopItem{Origin: from, Index: d.Index}, true

	case "requestExtraction":
		var d struct {
			Kind string `json:"kind"`
		}
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return nil, false
		}
		return game.CmdRequestExtraction{Origin: from, Kind: d.Kind}, true

	case "placeAbility":
		var d struct {
			Kind        string  `json:"kind"`
			X           float64 `json:"x"`
			Y           float64 `json:"y"`
			Angle       float64 `json:"angle"`
			Progression int     `json:"progression"`
		}
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return nil, false
		}
		return game.CmdPlaceAbility{Origin: from, Kind: d.Kind,
			X: d.X, Y: d.Y, Angle: d.Angle, Progression: d.Progression}, true

	case "npcDot":
		var d struct {
			NPCID    string  `json:"npcId"`
			DPS      float64 `json:"dps"`
			Duration float64 `json:"duration"`
		}
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return nil, false
		}
		return game.CmdSendNPCDot{Origin: from, NPCID: d.NPCID, DPS: d.DPS, Duration: d.Duration}, true

	case "abilityDot":
		var d struct {
			AbilityID string  `json:"abilityId"`
			TargetID  string  `json:"targetId"`
			DPS       float64 `json:"dps"`
			Duration  float64 `json:"duration"`
		}
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return nil, false
		}
		return game.CmdAbilityDotDamage{Origin: from, AbilityID: d.AbilityID,
			TargetPlayerID: d.TargetID, DPS: d.DPS, Duration: d.Duration}, true

	case "returnToLobby":
		return game.CmdReturnToLobby{Origin: from}, true
	}
	return nil, false
}
