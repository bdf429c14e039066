package axi

// Agent is a slave-side participant on the boundary.
type Agent interface {
	// Drive sets the agent's outputs for the current cycle from its
	// registered state.
	Drive(p *Pins)

	// Edge observes the handshakes of the current cycle and advances the
	// agent's state.
	Edge(p *Pins)
}
