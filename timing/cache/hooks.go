package cache

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/rvsim/timing/arbiter"
)

// Hook positions invoked by the cache controllers. Every one carries an
// *Event as the item.
var (
	HookPosRefill        = &sim.HookPos{Name: "Cache Refill"}
	HookPosDiscardRefill = &sim.HookPos{Name: "Cache Discard Refill"}
	HookPosWriteback     = &sim.HookPos{Name: "Cache Writeback"}
	HookPosSnoopHit      = &sim.HookPos{Name: "Cache Snoop Hit"}
	HookPosDeferredFlush = &sim.HookPos{Name: "Cache Deferred Flush"}
)

// Event is a line-level cache event.
type Event struct {
	Cache arbiter.Client
	Addr  uint64
}

type hookInvoker interface {
	sim.Hookable
	InvokeHook(ctx sim.HookCtx)
}

func invokeLineHook(
	domain hookInvoker,
	pos *sim.HookPos,
	client arbiter.Client,
	addr uint64,
) {
	if domain.NumHooks() == 0 {
		return
	}

	domain.InvokeHook(sim.HookCtx{
		Domain: domain,
		Pos:    pos,
		Item:   &Event{Cache: client, Addr: addr},
	})
}
