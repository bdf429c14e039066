package trace

import (
	"io"
	"log"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/rvsim/timing/arbiter"
	"github.com/sarchlab/rvsim/timing/axi"
	"github.com/sarchlab/rvsim/timing/cache"
)

// LogHook prints one line per arbiter or cache event.
type LogHook struct {
	sim.LogHookBase
}

// NewLogHook creates a LogHook that writes to w.
func NewLogHook(w io.Writer) *LogHook {
	h := &LogHook{}
	h.Logger = log.New(w, "", 0)

	return h
}

// Func logs arbiter grants and transaction boundaries along with cache line
// events.
func (h *LogHook) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case arbiter.HookPosGrant:
		h.Printf("grant %s", ctx.Item)
	case arbiter.HookPosRelease:
		h.Printf("release %s", ctx.Item)
	case arbiter.HookPosTxnStart:
		txn := ctx.Item.(*arbiter.Transaction)
		h.Printf("cycle %d %s %s start id=%s addr=0x%x len=%d",
			txn.StartCycle, txn.Client, txn.Dir, txn.ID, txn.Addr, txn.Len)
	case arbiter.HookPosTxnEnd:
		txn := ctx.Item.(*arbiter.Transaction)
		h.Printf("cycle %d %s %s end id=%s beats=%d resp=%s",
			txn.EndCycle, txn.Client, txn.Dir, txn.ID, txn.Beats,
			axi.RespName(txn.Resp))
	case cache.HookPosRefill:
		h.logLine("refill", ctx.Item)
	case cache.HookPosDiscardRefill:
		h.logLine("discard refill", ctx.Item)
	case cache.HookPosWriteback:
		h.logLine("writeback", ctx.Item)
	case cache.HookPosSnoopHit:
		h.logLine("snoop hit", ctx.Item)
	case cache.HookPosDeferredFlush:
		h.logLine("deferred flush", ctx.Item)
	}
}

func (h *LogHook) logLine(what string, item interface{}) {
	event := item.(*cache.Event)
	h.Printf("%s %s line=0x%x", event.Cache, what, event.Addr)
}
