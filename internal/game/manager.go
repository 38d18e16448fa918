package game

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrRoomLimit is returned when the server is at its room cap.
var ErrRoomLimit = errors.New("room limit reached")

// RoomManager creates rooms on demand and reaps them when their workers exit.
// Safe for concurrent use from connection handlers.
type RoomManager struct {
	deps Deps

	mu    sync.RWMutex
	rooms map[string]*Room

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRoomManager builds a manager; rooms run under its internal context until
// Shutdown.
func NewRoomManager(deps Deps) *RoomManager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &RoomManager{
		deps:   deps,
		rooms:  make(map[string]*Room),
		ctx:    ctx,
		cancel: cancel,
	}
	return m
}

// GetOrCreate returns the room with the given id, starting its worker if it
// does not exist yet.
func (m *RoomManager) GetOrCreate(id string) (*Room, error) {
	m.mu.RLock()
	if r, ok := m.rooms[id]; ok {
		m.mu.RUnlock()
		return r, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[id]; ok {
		return r, nil
	}
	if len(m.rooms) >= m.deps.Cfg.Server.MaxRooms {
		return nil, ErrRoomLimit
	}

	deps := m.deps
	deps.OnEmpty = m.remove
	r := NewRoom(id, time.Now().UnixNano(), deps)
	m.rooms[id] = r

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		r.Run(m.ctx)
		m.remove(id)
	}()

	m.deps.Log.Info("room created", zap.String("room", id))
	return r, nil
}

// Get returns an existing room, or nil.
func (m *RoomManager) Get(id string) *Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rooms[id]
}

// Count returns the number of live rooms.
func (m *RoomManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

func (m *RoomManager) remove(id string) {
	m.mu.Lock()
	r, ok := m.rooms[id]
	if ok {
		delete(m.rooms, id)
	}
	m.mu.Unlock()
	if ok {
		r.Stop()
		m.deps.Log.Info("room removed", zap.String("room", id))
	}
}

// Shutdown stops every room worker and waits for them to exit.
func (m *RoomManager) Shutdown() {
	m.cancel()
	m.wg.Wait()

	m.mu.Lock()
	m.rooms = make(map[string]*Room)
	m.mu.Unlock()
}
