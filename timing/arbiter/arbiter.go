// Package arbiter multiplexes the instruction and data cache controllers
// onto the core's single external memory port.
//
// At most one controller owns the port at a time. A grant lasts until the
// owner drops its request, which the controllers do only once their burst
// has completed, so bursts from different controllers never interleave.
package arbiter

import (
	"fmt"

	"github.com/rs/xid"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/rvsim/timing/axi"
)

// Client identifies a requester.
type Client int

// Requesters, in index order.
const (
	ClientNone Client = iota
	ClientICache
	ClientDCache
)

func (c Client) String() string {
	switch c {
	case ClientICache:
		return "icache"
	case ClientDCache:
		return "dcache"
	}
	return "none"
}

// State is the arbiter's grant state.
type State uint8

// Grant states.
const (
	StateIdle State = iota
	StateGrantICache
	StateGrantDCache
)

func (s State) String() string {
	switch s {
	case StateGrantICache:
		return "grant_icache"
	case StateGrantDCache:
		return "grant_dcache"
	}
	return "idle"
}

// Hook positions invoked by the arbiter. Grant and release hooks carry the
// Client as the item; transaction hooks carry the *Transaction.
var (
	HookPosGrant    = &sim.HookPos{Name: "Arbiter Grant"}
	HookPosRelease  = &sim.HookPos{Name: "Arbiter Release"}
	HookPosTxnStart = &sim.HookPos{Name: "Arbiter Transaction Start"}
	HookPosTxnEnd   = &sim.HookPos{Name: "Arbiter Transaction End"}
)

// Transaction is one burst issued through the arbiter.
type Transaction struct {
	ID         string
	Client     Client
	Dir        axi.Direction
	Addr       uint64
	Len        uint8
	Beats      int
	Resp       uint8
	StartCycle uint64
	EndCycle   uint64
}

// Statistics counts grants and transactions.
type Statistics struct {
	Grants       [3]uint64
	Transactions uint64
	Beats        uint64
	IdleCycles   uint64
	BusyCycles   uint64
}

// Arbiter grants exclusive use of the memory port. The data cache wins
// simultaneous requests.
type Arbiter struct {
	*sim.HookableBase

	state           State
	servicingICache bool
	requests        [3]bool
	active          *Transaction
	cycle           uint64
	stats           Statistics
}

// New creates an idle arbiter.
func New() *Arbiter {
	return &Arbiter{HookableBase: sim.NewHookableBase()}
}

// Request raises the request line of c.
func (a *Arbiter) Request(c Client) {
	a.requests[c] = true
}

// Release lowers the request line of c.
func (a *Arbiter) Release(c Client) {
	a.requests[c] = false
}

// Requesting reports the request line of c.
func (a *Arbiter) Requesting(c Client) bool {
	return a.requests[c]
}

// Granted reports whether c owns the port this cycle.
func (a *Arbiter) Granted(c Client) bool {
	return a.Grant() == c
}

// Grant returns the current owner of the port.
func (a *Arbiter) Grant() Client {
	switch a.state {
	case StateGrantICache:
		return ClientICache
	case StateGrantDCache:
		return ClientDCache
	}
	return ClientNone
}

// State returns the grant state.
func (a *Arbiter) State() State {
	return a.state
}

// ServicingICache reports whether the instruction cache holds the grant.
func (a *Arbiter) ServicingICache() bool {
	return a.servicingICache
}

// Active returns the burst in flight, or nil.
func (a *Arbiter) Active() *Transaction {
	return a.active
}

// Stats returns the arbiter statistics.
func (a *Arbiter) Stats() Statistics {
	return a.stats
}

// Reset drops every request and returns to idle.
func (a *Arbiter) Reset() {
	a.state = StateIdle
	a.servicingICache = false
	a.requests = [3]bool{}
	a.active = nil
	a.cycle = 0
	a.stats = Statistics{}
}

// Drive forwards the owner's request channels onto the external pins.
// Requests from the other controller are not forwarded.
func (a *Arbiter) Drive(pins, icache, dcache *axi.Pins) {
	switch a.state {
	case StateGrantICache:
		pins.CopyMaster(icache)
	case StateGrantDCache:
		pins.CopyMaster(dcache)
	}
}

// Route returns the slave's responses to the owner's private port and
// records the transaction activity of this cycle.
func (a *Arbiter) Route(pins, icache, dcache *axi.Pins) {
	icache.ClearSlave()
	dcache.ClearSlave()

	owner := a.Grant()
	switch owner {
	case ClientICache:
		icache.CopySlave(pins)
	case ClientDCache:
		dcache.CopySlave(pins)
	}

	a.track(owner, pins)
}

func (a *Arbiter) track(owner Client, pins *axi.Pins) {
	switch {
	case pins.ARFire():
		a.start(owner, axi.DirRead, pins.ARAddr, pins.ARLen)
	case pins.AWFire():
		a.start(owner, axi.DirWrite, pins.AWAddr, pins.AWLen)
	}

	if a.active == nil {
		return
	}

	switch a.active.Dir {
	case axi.DirRead:
		if pins.RFire() {
			a.beat(pins.RResp)
			if pins.RLast {
				a.finish()
			}
		}
	case axi.DirWrite:
		if pins.WFire() {
			a.beat(axi.RespOkay)
		}
		if pins.BFire() {
			a.active.Resp = pins.BResp
			a.finish()
		}
	}
}

func (a *Arbiter) start(owner Client, dir axi.Direction, addr uint64, length uint8) {
	if a.active != nil {
		panic(fmt.Sprintf("arbiter: %s burst issued while %s burst in flight",
			dir, a.active.Dir))
	}

	a.active = &Transaction{
		ID:         xid.New().String(),
		Client:     owner,
		Dir:        dir,
		Addr:       addr,
		Len:        length,
		StartCycle: a.cycle,
	}
	a.stats.Transactions++

	a.InvokeHook(sim.HookCtx{Domain: a, Pos: HookPosTxnStart, Item: a.active})
}

func (a *Arbiter) beat(resp uint8) {
	a.active.Beats++
	a.stats.Beats++

	if resp > a.active.Resp {
		a.active.Resp = resp
	}
}

func (a *Arbiter) finish() {
	a.active.EndCycle = a.cycle
	a.InvokeHook(sim.HookCtx{Domain: a, Pos: HookPosTxnEnd, Item: a.active})
	a.active = nil
}

// Arbitrate advances the grant state at the end of the cycle. A released
// grant is re-arbitrated in the same cycle, so a waiting controller gets the
// port with no idle cycle in between.
func (a *Arbiter) Arbitrate() {
	switch a.state {
	case StateGrantICache:
		if !a.requests[ClientICache] {
			a.release(ClientICache)
			a.state = a.pick()
		}
	case StateGrantDCache:
		if !a.requests[ClientDCache] {
			a.release(ClientDCache)
			a.state = a.pick()
		}
	default:
		a.state = a.pick()
	}

	a.servicingICache = a.state == StateGrantICache

	if a.state == StateIdle {
		a.stats.IdleCycles++
	} else {
		a.stats.BusyCycles++
	}

	a.cycle++
}

func (a *Arbiter) pick() State {
	var (
		next   State
		client Client
	)

	switch {
	case a.requests[ClientDCache]:
		next, client = StateGrantDCache, ClientDCache
	case a.requests[ClientICache]:
		next, client = StateGrantICache, ClientICache
	default:
		return StateIdle
	}

	a.stats.Grants[client]++
	a.InvokeHook(sim.HookCtx{Domain: a, Pos: HookPosGrant, Item: client})

	return next
}

func (a *Arbiter) release(c Client) {
	if a.active != nil {
		panic(fmt.Sprintf("arbiter: %s released grant during a burst", c))
	}

	a.InvokeHook(sim.HookCtx{Domain: a, Pos: HookPosRelease, Item: c})
}
