// Package config holds the simulation parameters of an rvsim core and
// reads and writes them as JSON.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sarchlab/rvsim/timing/axi"
	"github.com/sarchlab/rvsim/timing/cache"
)

// Config holds the geometry and timing of a simulated core.
type Config struct {
	// ICache and DCache are the L1 cache geometries.
	ICache cache.Config `json:"icache"`
	DCache cache.Config `json:"dcache"`

	// Memory is the external memory attached to the bus.
	Memory axi.MemoryConfig `json:"memory"`

	// SyscallLatency is the number of cycles an ECALL holds retirement.
	// Default: 1 cycle.
	SyscallLatency uint64 `json:"syscall_latency"`

	// MaxCycles bounds a run. Zero means no limit.
	MaxCycles uint64 `json:"max_cycles"`

	// FrequencyMHz is the core clock used when the core runs on an Akita
	// engine. Default: 100 MHz.
	FrequencyMHz uint64 `json:"frequency_mhz"`
}

// DefaultConfig returns the configuration of the reference core.
func DefaultConfig() *Config {
	return &Config{
		ICache:         cache.DefaultICacheConfig(),
		DCache:         cache.DefaultDCacheConfig(),
		Memory:         axi.DefaultMemoryConfig(),
		SyscallLatency: 1,
		MaxCycles:      0,
		FrequencyMHz:   100,
	}
}

// LoadConfig loads a Config from a JSON file. Fields missing from the file
// keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := c.JSON()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// JSON returns the indented JSON form of the Config.
func (c *Config) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize config: %w", err)
	}

	return append(data, '\n'), nil
}

// Validate checks the cache geometries and memory parameters.
func (c *Config) Validate() error {
	if err := c.ICache.Validate(); err != nil {
		return fmt.Errorf("icache: %w", err)
	}
	if err := c.DCache.Validate(); err != nil {
		return fmt.Errorf("dcache: %w", err)
	}
	if c.ICache.ID == c.DCache.ID {
		return fmt.Errorf("icache and dcache must use different bus IDs")
	}
	if c.Memory.Capacity == 0 {
		return fmt.Errorf("memory capacity must be > 0")
	}
	if c.FrequencyMHz == 0 {
		return fmt.Errorf("frequency_mhz must be > 0")
	}
	return nil
}

// Clone returns a deep copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
