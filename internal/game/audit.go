package game

import (
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// AuditLog is a bounded, rate-limited append-only record of simulation
// events, written as newline-delimited JSON off the tick path. Under
// pressure it drops oldest entries instead of stalling the simulation.

const (
	auditBufferSize      = 1024
	auditMaxPerSec       = 10000
	auditMaxPerPlayer    = 100
	auditFlushSize       = 64
	auditFlushInterval   = 100 * time.Millisecond
	auditLimiterCleanup  = 5 * time.Minute
)

// AuditType classifies audit records.
type AuditType uint8

const (
	AuditUnknown AuditType = iota
	AuditTick
	AuditPlayerJoin
	AuditPlayerLeave
	AuditDamage
	AuditDeath
	AuditHorde
	AuditScene
	AuditExtraction
	AuditPurchase
)

func (t AuditType) String() string {
	switch t {
	case AuditTick:
		return "tick"
	case AuditPlayerJoin:
		return "player_join"
	case AuditPlayerLeave:
		return "player_leave"
	case AuditDamage:
		return "damage"
	case AuditDeath:
		return "death"
	case AuditHorde:
		return "horde"
	case AuditScene:
		return "scene"
	case AuditExtraction:
		return "extraction"
	case AuditPurchase:
		return "purchase"
	default:
		return "unknown"
	}
}

const auditVersion uint8 = 1

// AuditRecord is one logged event.
type AuditRecord struct {
	Version   uint8     `json:"version"`
	Type      AuditType `json:"type"`
	Timestamp int64     `json:"timestamp"`
	Sequence  uint64    `json:"sequence"`
	TickNum   uint64    `json:"tickNum"`
	RoomID    string    `json:"roomId"`
	PlayerID  string    `json:"playerId,omitempty"`
	Payload   []byte    `json:"payload,omitempty"`
}

// playerLimiterEntry tracks per-player rate limiting.
type playerLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// AuditLog is safe for concurrent Emit from multiple room workers; the ring
// is guarded by atomics and the writer runs on its own goroutine.
type AuditLog struct {
	buffer    [auditBufferSize]AuditRecord
	writeHead uint64 // atomic
	readHead  uint64 // atomic
	writeMu   sync.Mutex

	globalLimiter  *rate.Limiter
	playerLimiters sync.Map // map[string]*playerLimiterEntry

	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	filePath string
	file     *os.File
	fileMu   sync.Mutex

	droppedCount uint64 // atomic
	totalCount   uint64 // atomic
}

// NewAuditLog creates a stopped audit log.
func NewAuditLog() *AuditLog {
	return &AuditLog{
		globalLimiter: rate.NewLimiter(auditMaxPerSec, auditMaxPerSec/10),
		stopChan:      make(chan struct{}),
	}
}

// Start opens the output file (empty path keeps the log in-memory only) and
// launches the async writer.
func (al *AuditLog) Start(filePath string) error {
	if al.running.Load() {
		return nil
	}
	al.filePath = filePath
	if filePath != "" {
		file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		al.file = file
	}
	al.running.Store(true)
	al.writerWg.Add(2)
	go al.writerLoop()
	go al.cleanupLoop()
	return nil
}

// Stop flushes remaining records and closes the file.
func (al *AuditLog) Stop() {
	al.stopOnce.Do(func() {
		al.running.Store(false)
		close(al.stopChan)
		al.writerWg.Wait()

		al.fileMu.Lock()
		if al.file != nil {
			al.file.Close()
		}
		al.fileMu.Unlock()
	})
}

// Emit records an event. Returns false when rate-limited or stopped.
func (al *AuditLog) Emit(rec AuditRecord) bool {
	if !al.running.Load() {
		return false
	}
	if !al.globalLimiter.Allow() {
		atomic.AddUint64(&al.droppedCount, 1)
		return false
	}
	if rec.PlayerID != "" {
		if !al.getPlayerLimiter(rec.PlayerID).Allow() {
			atomic.AddUint64(&al.droppedCount, 1)
			return false
		}
	}

	al.writeMu.Lock()
	head := atomic.AddUint64(&al.writeHead, 1)
	tail := atomic.LoadUint64(&al.readHead)
	if head-tail >= auditBufferSize {
		// Rolling window: drop the oldest rather than block a room worker.
		atomic.AddUint64(&al.readHead, 1)
		atomic.AddUint64(&al.droppedCount, 1)
	}
	rec.Sequence = head
	al.buffer[head%auditBufferSize] = rec
	al.writeMu.Unlock()

	atomic.AddUint64(&al.totalCount, 1)
	return true
}

// EmitSimple builds and emits a record with the current timestamp.
func (al *AuditLog) EmitSimple(t AuditType, tickNum uint64, roomID, playerID string, payload interface{}) bool {
	var data []byte
	if payload != nil {
		data, _ = json.Marshal(payload)
	}
	return al.Emit(AuditRecord{
		Version:   auditVersion,
		Type:      t,
		Timestamp: time.Now().UnixNano(),
		TickNum:   tickNum,
		RoomID:    roomID,
		PlayerID:  playerID,
		Payload:   data,
	})
}

func (al *AuditLog) getPlayerLimiter(playerID string) *rate.Limiter {
	if entry, ok := al.playerLimiters.Load(playerID); ok {
		e := entry.(*playerLimiterEntry)
		e.lastUsed = time.Now()
		return e.limiter
	}
	entry := &playerLimiterEntry{
		limiter:  rate.NewLimiter(auditMaxPerPlayer, auditMaxPerPlayer/10),
		lastUsed: time.Now(),
	}
	actual, _ := al.playerLimiters.LoadOrStore(playerID, entry)
	return actual.(*playerLimiterEntry).limiter
}

func (al *AuditLog) writerLoop() {
	defer al.writerWg.Done()

	ticker := time.NewTicker(auditFlushInterval)
	defer ticker.Stop()

	batch := make([]AuditRecord, 0, auditFlushSize)
	for {
		select {
		case <-al.stopChan:
			batch = al.collectBatch(batch[:0])
			if len(batch) > 0 {
				al.flushBatch(batch)
			}
			return
		case <-ticker.C:
			batch = al.collectBatch(batch[:0])
			if len(batch) > 0 {
				al.flushBatch(batch)
			}
		}
	}
}

func (al *AuditLog) cleanupLoop() {
	defer al.writerWg.Done()

	ticker := time.NewTicker(auditLimiterCleanup)
	defer ticker.Stop()
	for {
		select {
		case <-al.stopChan:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-auditLimiterCleanup)
			al.playerLimiters.Range(func(key, value interface{}) bool {
				if value.(*playerLimiterEntry).lastUsed.Before(cutoff) {
					al.playerLimiters.Delete(key)
				}
				return true
			})
		}
	}
}

func (al *AuditLog) collectBatch(batch []AuditRecord) []AuditRecord {
	head := atomic.LoadUint64(&al.writeHead)
	tail := atomic.LoadUint64(&al.readHead)
	for i := tail; i < head && len(batch) < auditFlushSize; i++ {
		batch = append(batch, al.buffer[i%auditBufferSize])
	}
	if len(batch) > 0 {
		atomic.AddUint64(&al.readHead, uint64(len(batch)))
	}
	return batch
}

func (al *AuditLog) flushBatch(batch []AuditRecord) {
	al.fileMu.Lock()
	defer al.fileMu.Unlock()
	if al.file == nil {
		return
	}
	for _, rec := range batch {
		data, err := json.Marshal(rec)
		if err != nil {
			continue
		}
		al.file.Write(data)
		al.file.Write([]byte("\n"))
	}
}

// Stats returns counters for monitoring.
func (al *AuditLog) Stats() map[string]interface{} {
	head := atomic.LoadUint64(&al.writeHead)
	tail := atomic.LoadUint64(&al.readHead)
	return map[string]interface{}{
		"total":   atomic.LoadUint64(&al.totalCount),
		"dropped": atomic.LoadUint64(&al.droppedCount),
		"pending": head - tail,
		"running": al.running.Load(),
	}
}

// DroppedCount returns the number of dropped records.
func (al *AuditLog) DroppedCount() uint64 {
	return atomic.LoadUint64(&al.droppedCount)
}
