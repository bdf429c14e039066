// Package cache provides the core's split L1 caches: a read-only instruction
// cache and a write-back data cache. Each sits behind its own controller
// state machine that refills and writes back whole lines as bursts on a
// private port, which the arbiter connects to the external memory bus.
//
// Tags, valid and dirty bits and the LRU order live in an Akita cache
// directory; line data is kept alongside it.
package cache

import (
	"fmt"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/rvsim/timing/arbiter"
	"github.com/sarchlab/rvsim/timing/axi"
)

// Config holds cache configuration parameters.
type Config struct {
	// NumSets is the number of sets.
	NumSets int `json:"num_sets"`
	// Ways is the associativity.
	Ways int `json:"ways"`
	// BlockSize in bytes (cache line size)
	BlockSize int `json:"block_size"`
	// BeatBytes is the width of one refill beat in bytes.
	BeatBytes int `json:"beat_bytes"`
	// ID is the transaction ID the controller puts on the bus.
	ID uint16 `json:"id"`
}

// DefaultICacheConfig returns the instruction cache geometry: 512 sets of
// two 64-byte lines, refilled as sixteen 4-byte beats.
func DefaultICacheConfig() Config {
	return Config{
		NumSets:   512,
		Ways:      2,
		BlockSize: 64,
		BeatBytes: 4,
		ID:        0,
	}
}

// DefaultDCacheConfig returns the data cache geometry: 512 sets of two
// 64-byte lines, moved as eight 8-byte beats.
func DefaultDCacheConfig() Config {
	return Config{
		NumSets:   512,
		Ways:      2,
		BlockSize: 64,
		BeatBytes: 8,
		ID:        1,
	}
}

// Beats is the number of beats in one line burst.
func (c Config) Beats() int {
	return c.BlockSize / c.BeatBytes
}

// Validate checks the geometry.
func (c Config) Validate() error {
	if c.NumSets <= 0 || c.NumSets&(c.NumSets-1) != 0 {
		return fmt.Errorf("num_sets must be a positive power of two, got %d", c.NumSets)
	}

	if c.Ways <= 0 {
		return fmt.Errorf("ways must be positive, got %d", c.Ways)
	}

	if c.BeatBytes <= 0 || c.BeatBytes > axi.DataBytes ||
		c.BeatBytes&(c.BeatBytes-1) != 0 {
		return fmt.Errorf("beat_bytes must be a power of two up to %d, got %d",
			axi.DataBytes, c.BeatBytes)
	}

	if c.BlockSize < c.BeatBytes || c.BlockSize%c.BeatBytes != 0 {
		return fmt.Errorf("block_size %d is not a multiple of beat_bytes %d",
			c.BlockSize, c.BeatBytes)
	}

	if c.Beats() > 1<<axi.LenWidth {
		return fmt.Errorf("a line of %d beats does not fit one burst", c.Beats())
	}

	return nil
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Refills    uint64
	Evictions  uint64
	Writebacks uint64

	// Snoops counts invalidations received; SnoopHits those that found a
	// valid line.
	Snoops    uint64
	SnoopHits uint64

	// DiscardedRefills counts refills dropped because a snoop hit the line
	// while its burst was in flight.
	DiscardedRefills uint64

	// CancelledMisses counts misses abandoned by a flush before their
	// burst was issued; DeferredFlushes those that arrived mid-burst.
	CancelledMisses uint64
	DeferredFlushes uint64
}

// Arbiter is the part of the bus arbiter a controller talks to.
type Arbiter interface {
	Request(c arbiter.Client)
	Release(c arbiter.Client)
	Granted(c arbiter.Client) bool
}

// store keeps the tag directory and line data of one cache.
type store struct {
	config Config

	// Akita cache directory for tag/state management
	directory *akitacache.DirectoryImpl

	// Data storage - indexed by (setID * ways + wayID)
	dataStore [][]byte
}

func newStore(config Config) *store {
	totalBlocks := config.NumSets * config.Ways

	dataStore := make([][]byte, totalBlocks)
	for i := range dataStore {
		dataStore[i] = make([]byte, config.BlockSize)
	}

	return &store{
		config: config,
		directory: akitacache.NewDirectory(
			config.NumSets,
			config.Ways,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		dataStore: dataStore,
	}
}

func (s *store) blockAddr(addr uint64) uint64 {
	return addr / uint64(s.config.BlockSize) * uint64(s.config.BlockSize)
}

func (s *store) setID(addr uint64) int {
	return int(addr / uint64(s.config.BlockSize) % uint64(s.config.NumSets))
}

// lookup returns the valid block holding addr, or nil.
func (s *store) lookup(addr uint64) *akitacache.Block {
	block := s.directory.Lookup(0, s.blockAddr(addr))
	if block != nil && block.IsValid {
		return block
	}
	return nil
}

// find returns the block holding the newest copy of addr, including a line
// that was invalidated by a snoop but still carries dirty data.
func (s *store) find(addr uint64) *akitacache.Block {
	line := s.blockAddr(addr)
	set := s.directory.GetSets()[s.setID(addr)]

	for _, block := range set.Blocks {
		if block.Tag == line && (block.IsValid || block.IsDirty) {
			return block
		}
	}

	return nil
}

// victim picks the way a refill of addr goes into. An invalidated dirty
// copy of the same line is always reused so it gets written back before
// the line is fetched again.
func (s *store) victim(addr uint64) *akitacache.Block {
	line := s.blockAddr(addr)
	set := s.directory.GetSets()[s.setID(addr)]

	for _, block := range set.Blocks {
		if block.Tag == line && !block.IsValid && block.IsDirty {
			return block
		}
	}

	return s.directory.FindVictim(line)
}

func (s *store) data(block *akitacache.Block) []byte {
	return s.dataStore[block.SetID*s.config.Ways+block.WayID]
}

// fill installs a refilled line.
func (s *store) fill(block *akitacache.Block, addr uint64, data []byte) {
	copy(s.data(block), data)
	block.Tag = s.blockAddr(addr)
	block.IsValid = true
	block.IsDirty = false
	s.directory.Visit(block)
}

func (s *store) reset() {
	s.directory.Reset()
	for _, line := range s.dataStore {
		clear(line)
	}
}

// extractData extracts a value of the given size from a byte slice.
func extractData(data []byte, offset uint64, size int) uint64 {
	if data == nil || int(offset)+size > len(data) {
		return 0
	}

	var result uint64
	for i := 0; i < size; i++ {
		result |= uint64(data[int(offset)+i]) << (i * 8)
	}
	return result
}

// storeData stores a value of the given size into a byte slice.
func storeData(data []byte, offset uint64, size int, value uint64) {
	if data == nil || int(offset)+size > len(data) {
		return
	}

	for i := 0; i < size; i++ {
		data[int(offset)+i] = byte(value >> (i * 8))
	}
}

// beatOffset is the byte offset of beat n inside a line.
func (s *store) beatOffset(n int) uint64 {
	return uint64(n * s.config.BeatBytes)
}

// laneData moves the bytes of a beat between a line buffer and their lanes
// on the 64-bit data bus.
func laneData(addr uint64, bus uint64, size int) uint64 {
	return bus >> (8 * axi.LaneOffset(addr)) & (1<<(8*uint(size)) - 1)
}

func toLanes(addr uint64, value uint64) uint64 {
	return value << (8 * axi.LaneOffset(addr))
}
