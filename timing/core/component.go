package core

import "github.com/sarchlab/akita/v4/sim"

// Component runs a Core as an Akita ticking component. It ticks once per
// cycle of its frequency until the core halts.
type Component struct {
	*sim.TickingComponent

	core      *Core
	maxCycles uint64
}

// NewComponent wraps core so that engine drives its clock at freq.
func NewComponent(
	name string,
	engine sim.Engine,
	freq sim.Freq,
	core *Core,
) *Component {
	c := &Component{core: core}
	c.TickingComponent = sim.NewTickingComponent(name, engine, freq, c)

	return c
}

// Core returns the wrapped core.
func (c *Component) Core() *Core {
	return c.core
}

// SetMaxCycles stops the ticking once the core has run for n cycles. Zero
// means no limit.
func (c *Component) SetMaxCycles(n uint64) {
	c.maxCycles = n
}

// Tick advances the core by one cycle. It reports no progress once the
// core has halted or reached its cycle limit, which stops the ticking.
func (c *Component) Tick() bool {
	if c.maxCycles > 0 && c.core.Stats().Cycles >= c.maxCycles {
		return false
	}

	return c.core.Tick()
}

// Start schedules the first tick.
func (c *Component) Start() {
	c.TickLater()
}
