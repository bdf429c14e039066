package cache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/rvsim/timing/arbiter"
	"github.com/sarchlab/rvsim/timing/axi"
)

// DCacheState is the data cache controller state.
type DCacheState uint8

// Data cache controller states.
const (
	DCacheIdle DCacheState = iota
	DCacheCheck
	DCacheWritebackRequest
	DCacheWriteback
	DCacheRefillRequest
	DCacheRefill
	DCacheWaitReady
)

func (s DCacheState) String() string {
	switch s {
	case DCacheCheck:
		return "check"
	case DCacheWritebackRequest:
		return "writeback_request"
	case DCacheWriteback:
		return "writeback"
	case DCacheRefillRequest:
		return "refill_request"
	case DCacheRefill:
		return "refill"
	case DCacheWaitReady:
		return "wait_ready"
	}
	return "idle"
}

// Request is one load or store presented by the memory stage.
type Request struct {
	Addr  uint64
	Size  int
	Write bool
	Data  uint64
}

// DCache is the write-back, write-allocate data cache and its controller.
type DCache struct {
	*sim.HookableBase

	config Config
	store  *store
	arb    Arbiter
	port   axi.Pins

	state      DCacheState
	missReq    bool
	missAddr   uint64
	victim     *akitacache.Block
	requesting bool

	wbAddr uint64
	wbData []byte
	wbBeat int

	refill            []byte
	beat              int
	refillInvalidated bool

	fault error
	stats Statistics
}

// NewDCache creates a data cache that requests the bus through arb.
func NewDCache(config Config, arb Arbiter) *DCache {
	return &DCache{
		HookableBase: sim.NewHookableBase(),
		config:       config,
		store:        newStore(config),
		arb:          arb,
		wbData:       make([]byte, config.BlockSize),
		refill:       make([]byte, config.BlockSize),
	}
}

// Config returns the cache configuration.
func (c *DCache) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *DCache) Stats() Statistics {
	return c.stats
}

// State returns the controller state.
func (c *DCache) State() DCacheState {
	return c.state
}

// Port returns the controller's private bus port.
func (c *DCache) Port() *axi.Pins {
	return &c.port
}

// Err returns the response error that faulted a burst, if any.
func (c *DCache) Err() error {
	return c.fault
}

// Contains reports whether the line holding addr is valid.
func (c *DCache) Contains(addr uint64) bool {
	return c.store.lookup(addr) != nil
}

// Dirty reports whether the newest copy of addr is held dirty, whether or
// not the line is still valid.
func (c *DCache) Dirty(addr uint64) bool {
	block := c.store.find(addr)
	return block != nil && block.IsDirty
}

// Access performs a load or store. It completes in the calling cycle on a
// hit and reports false otherwise, in which case the request must be
// presented again once the line has been brought in. An access that spans
// two lines hits only once both are present; the first missing line is
// refilled.
func (c *DCache) Access(req Request) (uint64, bool) {
	if c.state != DCacheIdle {
		return 0, false
	}

	if req.Write {
		c.stats.Writes++
	} else {
		c.stats.Reads++
	}

	last := req.Addr + uint64(req.Size) - 1

	first := c.store.lookup(req.Addr)
	second := first
	if c.store.blockAddr(last) != c.store.blockAddr(req.Addr) {
		second = c.store.lookup(last)
	}

	switch {
	case first == nil:
		c.miss(req.Addr)
		return 0, false
	case second == nil:
		c.miss(last)
		return 0, false
	}

	c.stats.Hits++
	c.store.directory.Visit(first)
	if second != first {
		c.store.directory.Visit(second)
	}

	var value uint64
	for i := 0; i < req.Size; i++ {
		addr := req.Addr + uint64(i)

		block := first
		if c.store.blockAddr(addr) != first.Tag {
			block = second
		}

		line := c.store.data(block)
		offset := addr % uint64(c.config.BlockSize)

		if req.Write {
			line[offset] = byte(req.Data >> (8 * i))
			block.IsDirty = true
		} else {
			value |= uint64(line[offset]) << (8 * i)
		}
	}

	return value, true
}

func (c *DCache) miss(addr uint64) {
	c.stats.Misses++
	c.missReq = true
	c.missAddr = c.store.blockAddr(addr)
}

// Snoop applies an invalidation received on the snoop channel. A matching
// valid line loses its valid bit but keeps its dirty data, which is written
// back when the way is next reused. A refill of the same line that has
// already been requested is discarded on arrival.
func (c *DCache) Snoop(addr uint64, _ uint8) {
	c.stats.Snoops++

	if block := c.store.lookup(addr); block != nil {
		block.IsValid = false
		c.stats.SnoopHits++
		invokeLineHook(c, HookPosSnoopHit, arbiter.ClientDCache, block.Tag)
	}

	switch c.state {
	case DCacheRefillRequest, DCacheRefill:
		if c.missAddr == c.store.blockAddr(addr) {
			c.refillInvalidated = true
		}
	}
}

// Drive sets the controller's outputs on its private port.
func (c *DCache) Drive() {
	c.port.ClearMaster()

	granted := c.requesting && c.arb.Granted(arbiter.ClientDCache)

	switch c.state {
	case DCacheWritebackRequest:
		if !granted {
			return
		}

		c.port.AWValid = true
		c.port.AWID = c.config.ID
		c.port.AWAddr = c.wbAddr
		c.port.AWLen = uint8(c.config.Beats() - 1)
		c.port.AWSize = axi.SizeFor(c.config.BeatBytes)
		c.port.AWBurst = axi.BurstIncr
		c.port.AWCache = axi.CacheNormal
	case DCacheWriteback:
		c.port.BReady = true
		if c.wbBeat >= c.config.Beats() {
			return
		}

		addr := c.wbAddr + c.store.beatOffset(c.wbBeat)
		value := extractData(c.wbData, c.store.beatOffset(c.wbBeat), c.config.BeatBytes)
		c.port.WValid = true
		c.port.WData = toLanes(addr, value)
		c.port.WStrb = axi.Strobe(addr, c.config.BeatBytes)
		c.port.WLast = c.wbBeat == c.config.Beats()-1
	case DCacheRefillRequest:
		if !granted {
			return
		}

		c.port.ARValid = true
		c.port.ARID = c.config.ID
		c.port.ARAddr = c.missAddr
		c.port.ARLen = uint8(c.config.Beats() - 1)
		c.port.ARSize = axi.SizeFor(c.config.BeatBytes)
		c.port.ARBurst = axi.BurstIncr
		c.port.ARCache = axi.CacheNormal
	case DCacheRefill:
		c.port.RReady = true
	}
}

// Edge advances the controller after the bus handshakes of this cycle.
func (c *DCache) Edge() {
	switch c.state {
	case DCacheIdle:
		if c.missReq {
			c.state = DCacheCheck
		}
		c.missReq = false
	case DCacheCheck:
		c.edgeCheck()
	case DCacheWritebackRequest:
		if c.port.AWFire() {
			c.wbBeat = 0
			c.state = DCacheWriteback
		}
	case DCacheWriteback:
		c.edgeWriteback()
	case DCacheRefillRequest:
		if !c.requesting {
			c.request()
			return
		}

		if c.port.ARFire() {
			c.beat = 0
			c.state = DCacheRefill
		}
	case DCacheRefill:
		c.edgeRefill()
	case DCacheWaitReady:
		c.state = DCacheIdle
	}
}

func (c *DCache) request() {
	c.arb.Request(arbiter.ClientDCache)
	c.requesting = true
}

func (c *DCache) release() {
	c.arb.Release(arbiter.ClientDCache)
	c.requesting = false
}

func (c *DCache) edgeCheck() {
	c.victim = c.store.victim(c.missAddr)
	c.refillInvalidated = false

	if c.victim.IsValid {
		c.stats.Evictions++
	}

	if c.victim.IsDirty {
		c.wbAddr = c.victim.Tag
		copy(c.wbData, c.store.data(c.victim))
		c.request()
		c.state = DCacheWritebackRequest
		return
	}

	c.request()
	c.state = DCacheRefillRequest
}

func (c *DCache) edgeWriteback() {
	if c.port.WFire() {
		c.wbBeat++
	}

	if !c.port.BFire() {
		return
	}

	if axi.IsError(c.port.BResp) && c.fault == nil {
		c.fault = &axi.ResponseError{
			Dir: axi.DirWrite, ID: c.port.BID, Addr: c.wbAddr, Resp: c.port.BResp,
		}
	}

	c.victim.IsDirty = false
	c.victim.IsValid = false
	c.stats.Writebacks++
	invokeLineHook(c, HookPosWriteback, arbiter.ClientDCache, c.wbAddr)

	// The request is dropped for at least one edge so the arbiter sees
	// the end of the burst and may hand the port over.
	c.release()
	c.state = DCacheRefillRequest
}

func (c *DCache) edgeRefill() {
	if !c.port.RFire() {
		return
	}

	addr := c.missAddr + c.store.beatOffset(c.beat)
	if axi.IsError(c.port.RResp) && c.fault == nil {
		c.fault = &axi.ResponseError{
			Dir: axi.DirRead, ID: c.port.RID, Addr: addr, Resp: c.port.RResp,
		}
	}

	value := laneData(addr, c.port.RData, c.config.BeatBytes)
	storeData(c.refill, c.store.beatOffset(c.beat), c.config.BeatBytes, value)
	c.beat++

	if !c.port.RLast {
		return
	}

	c.release()

	if c.fault != nil || c.refillInvalidated {
		if c.refillInvalidated {
			c.stats.DiscardedRefills++
			invokeLineHook(c, HookPosDiscardRefill, arbiter.ClientDCache, c.missAddr)
		}
		c.refillInvalidated = false
		c.state = DCacheIdle
		return
	}

	c.store.fill(c.victim, c.missAddr, c.refill)
	c.stats.Refills++
	invokeLineHook(c, HookPosRefill, arbiter.ClientDCache, c.missAddr)
	c.state = DCacheWaitReady
}

// Peek reads a byte from the newest cached copy of addr, including dirty
// data of a snooped line.
func (c *DCache) Peek(addr uint64) (byte, bool) {
	block := c.store.find(addr)
	if block == nil {
		return 0, false
	}

	offset := addr % uint64(c.config.BlockSize)
	return c.store.data(block)[offset], true
}

// Poke overwrites a byte of a cached copy of addr and marks it dirty. It
// reports false when the line is not cached.
func (c *DCache) Poke(addr uint64, value byte) bool {
	block := c.store.find(addr)
	if block == nil {
		return false
	}

	offset := addr % uint64(c.config.BlockSize)
	c.store.data(block)[offset] = value
	block.IsDirty = true

	return true
}

// Reset invalidates every line without write-back and returns the
// controller to idle.
func (c *DCache) Reset() {
	c.store.reset()
	c.port = axi.Pins{}
	c.state = DCacheIdle
	c.missReq = false
	c.victim = nil
	c.requesting = false
	c.wbBeat, c.beat = 0, 0
	c.refillInvalidated = false
	c.fault = nil
	c.stats = Statistics{}
}
