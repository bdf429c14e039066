package cache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/rvsim/timing/arbiter"
	"github.com/sarchlab/rvsim/timing/axi"
)

// ICacheState is the instruction cache controller state.
type ICacheState uint8

// Instruction cache controller states.
const (
	ICacheIdle ICacheState = iota
	ICacheCheck
	ICacheRequestRefill
	ICacheRefill
	ICacheWaitReady
)

func (s ICacheState) String() string {
	switch s {
	case ICacheCheck:
		return "check"
	case ICacheRequestRefill:
		return "request_refill"
	case ICacheRefill:
		return "refill"
	case ICacheWaitReady:
		return "wait_ready"
	}
	return "idle"
}

// ICache is the read-only instruction cache and its refill controller.
type ICache struct {
	*sim.HookableBase

	config Config
	store  *store
	arb    Arbiter
	port   axi.Pins

	state    ICacheState
	missReq  bool
	missAddr uint64
	victim   *akitacache.Block
	refill   []byte
	beat     int

	refillInvalidated bool

	flushPrev    bool
	flushRise    bool
	flushPending bool

	fault error
	stats Statistics
}

// NewICache creates an instruction cache that requests the bus through arb.
func NewICache(config Config, arb Arbiter) *ICache {
	return &ICache{
		HookableBase: sim.NewHookableBase(),
		config:       config,
		store:        newStore(config),
		arb:          arb,
		refill:       make([]byte, config.BlockSize),
	}
}

// Config returns the cache configuration.
func (c *ICache) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *ICache) Stats() Statistics {
	return c.stats
}

// State returns the controller state.
func (c *ICache) State() ICacheState {
	return c.state
}

// Port returns the controller's private bus port.
func (c *ICache) Port() *axi.Pins {
	return &c.port
}

// Err returns the response error that faulted a refill, if any.
func (c *ICache) Err() error {
	return c.fault
}

// Contains reports whether the line holding addr is valid.
func (c *ICache) Contains(addr uint64) bool {
	return c.store.lookup(addr) != nil
}

// Fetch returns the instruction word at pc. On a miss, or while the
// controller is busy, it reports false and the fetch must be retried.
func (c *ICache) Fetch(pc uint64) (uint32, bool) {
	if c.state != ICacheIdle {
		return 0, false
	}

	c.stats.Reads++

	block := c.store.lookup(pc)
	if block != nil {
		c.stats.Hits++
		c.store.directory.Visit(block)

		offset := pc % uint64(c.config.BlockSize)
		return uint32(extractData(c.store.data(block), offset, 4)), true
	}

	c.stats.Misses++
	c.missReq = true
	c.missAddr = c.store.blockAddr(pc)

	return 0, false
}

// SetFlush samples the flush input. A rising edge abandons a miss whose
// burst has not been issued. A burst already on the bus runs to completion
// and the controller then returns straight to idle.
func (c *ICache) SetFlush(level bool) {
	if level && !c.flushPrev {
		c.flushRise = true
	}
	c.flushPrev = level
}

// Drive sets the controller's outputs on its private port.
func (c *ICache) Drive() {
	c.port.ClearMaster()

	switch c.state {
	case ICacheRequestRefill:
		if !c.arb.Granted(arbiter.ClientICache) {
			return
		}

		c.port.ARValid = true
		c.port.ARID = c.config.ID
		c.port.ARAddr = c.missAddr
		c.port.ARLen = uint8(c.config.Beats() - 1)
		c.port.ARSize = axi.SizeFor(c.config.BeatBytes)
		c.port.ARBurst = axi.BurstIncr
		c.port.ARCache = axi.CacheNormal
		c.port.ARProt = axi.ProtInstruction
	case ICacheRefill:
		c.port.RReady = true
	}
}

// Edge advances the controller after the bus handshakes of this cycle.
func (c *ICache) Edge() {
	rise := c.flushRise
	c.flushRise = false

	switch c.state {
	case ICacheIdle:
		if c.missReq && !rise {
			c.state = ICacheCheck
		}
		c.missReq = false
	case ICacheCheck:
		if rise {
			c.stats.CancelledMisses++
			c.state = ICacheIdle
			return
		}

		c.victim = c.store.victim(c.missAddr)
		c.refillInvalidated = false
		c.arb.Request(arbiter.ClientICache)
		c.state = ICacheRequestRefill
	case ICacheRequestRefill:
		c.edgeRequestRefill(rise)
	case ICacheRefill:
		c.edgeRefill(rise)
	case ICacheWaitReady:
		c.state = ICacheIdle
	}
}

func (c *ICache) edgeRequestRefill(rise bool) {
	if c.port.ARFire() {
		c.beat = 0
		c.flushPending = rise
		c.state = ICacheRefill
		return
	}

	if rise {
		c.arb.Release(arbiter.ClientICache)
		c.stats.CancelledMisses++
		c.state = ICacheIdle
	}
}

func (c *ICache) edgeRefill(rise bool) {
	if rise {
		c.flushPending = true
	}

	if !c.port.RFire() {
		return
	}

	addr := c.missAddr + c.store.beatOffset(c.beat)
	if axi.IsError(c.port.RResp) && c.fault == nil {
		c.fault = &axi.ResponseError{
			Dir: axi.DirRead, ID: c.port.RID, Addr: addr, Resp: c.port.RResp,
		}
	}

	word := laneData(addr, c.port.RData, c.config.BeatBytes)
	storeData(c.refill, c.store.beatOffset(c.beat), c.config.BeatBytes, word)
	c.beat++

	if !c.port.RLast {
		return
	}

	c.arb.Release(arbiter.ClientICache)

	switch {
	case c.refillInvalidated:
		c.refillInvalidated = false
		c.stats.DiscardedRefills++
		invokeLineHook(c, HookPosDiscardRefill, arbiter.ClientICache, c.missAddr)
	case c.fault == nil:
		if c.victim.IsValid {
			c.stats.Evictions++
		}
		c.store.fill(c.victim, c.missAddr, c.refill)
		c.stats.Refills++
		invokeLineHook(c, HookPosRefill, arbiter.ClientICache, c.missAddr)
	}

	if c.flushPending {
		c.flushPending = false
		c.stats.DeferredFlushes++
		invokeLineHook(c, HookPosDeferredFlush, arbiter.ClientICache, c.missAddr)
		c.state = ICacheIdle
		return
	}

	c.state = ICacheWaitReady
}

// Snoop applies an invalidation received on the snoop channel. A matching
// line is dropped. A refill of the same line that has already been
// requested completes on the bus but is not installed, so the next fetch
// misses and reads the new contents.
func (c *ICache) Snoop(addr uint64, _ uint8) {
	c.stats.Snoops++

	if block := c.store.lookup(addr); block != nil {
		block.IsValid = false
		c.stats.SnoopHits++
		invokeLineHook(c, HookPosSnoopHit, arbiter.ClientICache, block.Tag)
	}

	switch c.state {
	case ICacheRequestRefill, ICacheRefill:
		if c.missAddr == c.store.blockAddr(addr) {
			c.refillInvalidated = true
		}
	}
}

// Reset invalidates every line and returns the controller to idle.
func (c *ICache) Reset() {
	c.store.reset()
	c.port = axi.Pins{}
	c.state = ICacheIdle
	c.missReq = false
	c.victim = nil
	c.beat = 0
	c.refillInvalidated = false
	c.flushPrev, c.flushRise, c.flushPending = false, false, false
	c.fault = nil
	c.stats = Statistics{}
}
