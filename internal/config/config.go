// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for server and simulation settings.
//
// Configuration is layered: compiled defaults, then an optional TOML file
// (TRENCHLINE_CONFIG), then environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the complete server configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Network   NetworkConfig   `toml:"network"`
	Sim       SimConfig       `toml:"sim"`
	Logging   LoggingConfig   `toml:"logging"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Debug     DebugConfig     `toml:"debug"`
}

// ServerConfig holds HTTP/WebSocket server settings.
type ServerConfig struct {
	Port     int    `toml:"port"`
	Name     string `toml:"name"`
	MaxRooms int    `toml:"max_rooms"`
}

// NetworkConfig bounds per-room queue sizes and drain rates.
type NetworkConfig struct {
	InQueueSize      int `toml:"in_queue_size"`
	OutQueueSize     int `toml:"out_queue_size"`
	MaxInputsPerTick int `toml:"max_inputs_per_tick"`
	MaxWSConnsTotal  int `toml:"max_ws_conns_total"`
	MaxWSConnsPerIP  int `toml:"max_ws_conns_per_ip"`
}

// SimConfig holds simulation-rate settings shared by every room.
type SimConfig struct {
	TickRate       int           `toml:"tick_rate"`        // simulation Hz
	SnapshotRate   int           `toml:"snapshot_rate"`    // replication Hz for entity dumps
	EmptyRoomGrace time.Duration `toml:"empty_room_grace"` // worker exits after the room stays empty this long
	AmbientSpawns  bool          `toml:"ambient_spawns"`
}

// LoggingConfig selects zap output format and level.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// RateLimitConfig configures per-IP HTTP throttling.
type RateLimitConfig struct {
	Enabled           bool    `toml:"enabled"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

// DebugConfig gates development-only behavior.
type DebugConfig struct {
	EnableDebugChests bool   `toml:"enable_debug_chests"`
	EventLogPath      string `toml:"event_log_path"`
	MetricsAddr       string `toml:"metrics_addr"`
}

// Load reads the TOML config at path (if it exists), applies environment
// overrides, and returns the merged configuration.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:     3000,
			Name:     "trenchline",
			MaxRooms: 64,
		},
		Network: NetworkConfig{
			InQueueSize:      256,
			OutQueueSize:     512,
			MaxInputsPerTick: 64,
			MaxWSConnsTotal:  500,
			MaxWSConnsPerIP:  10,
		},
		Sim: SimConfig{
			TickRate:       60,
			SnapshotRate:   10,
			EmptyRoomGrace: 30 * time.Second,
			AmbientSpawns:  true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 10,
			Burst:             20,
		},
		Debug: DebugConfig{
			EventLogPath: "events.jsonl",
			MetricsAddr:  "127.0.0.1:6060",
		},
	}
}

// applyEnv layers environment variables on top of file/default values.
// Environment variables take precedence over everything else.
func (c *Config) applyEnv() {
	if p := getEnvInt("PORT", 0); p > 0 {
		c.Server.Port = p
	}
	if tr := getEnvInt("TICK_RATE", 0); tr > 0 {
		c.Sim.TickRate = tr
	}
	if sr := getEnvInt("SNAPSHOT_RATE", 0); sr > 0 {
		c.Sim.SnapshotRate = sr
	}
	if os.Getenv("AMBIENT_SPAWNS") == "false" {
		c.Sim.AmbientSpawns = false
	}
	if os.Getenv("ENABLE_DEBUG_CHESTS") == "true" {
		c.Debug.EnableDebugChests = true
	}
	if p := os.Getenv("EVENT_LOG_PATH"); p != "" {
		c.Debug.EventLogPath = p
	}
	if a := os.Getenv("METRICS_ADDR"); a != "" {
		c.Debug.MetricsAddr = a
	}
	if lv := os.Getenv("LOG_LEVEL"); lv != "" {
		c.Logging.Level = lv
	}
	if f := os.Getenv("LOG_FORMAT"); f != "" {
		c.Logging.Format = f
	}
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
