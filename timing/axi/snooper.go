package axi

// Snoop opcodes carried on ACSNOOP. The core treats every opcode as an
// invalidation.
const (
	SnoopReadOnce     uint8 = 0b0000
	SnoopCleanInvalid uint8 = 0b1001
	SnoopMakeInvalid  uint8 = 0b1101
)

// SnoopRequest is one entry on the snoop address channel.
type SnoopRequest struct {
	// Cycle is the earliest cycle the request may be presented.
	Cycle uint64
	Addr  uint64
	Snoop uint8
}

// Snooper is an agent that presents queued snoop requests on the AC
// channel, one at a time, in order.
type Snooper struct {
	queue     []SnoopRequest
	cycle     uint64
	delivered []SnoopRequest
}

// NewSnooper creates an empty Snooper.
func NewSnooper() *Snooper {
	return &Snooper{}
}

// Invalidate queues a MakeInvalid snoop for addr to be presented as soon as
// possible.
func (s *Snooper) Invalidate(addr uint64) {
	s.Schedule(SnoopRequest{Cycle: s.cycle, Addr: addr, Snoop: SnoopMakeInvalid})
}

// Schedule queues a snoop request.
func (s *Snooper) Schedule(req SnoopRequest) {
	s.queue = append(s.queue, req)
}

// Pending returns the number of snoops not yet accepted.
func (s *Snooper) Pending() int {
	return len(s.queue)
}

// Delivered returns the snoops accepted by the core, with Cycle set to the
// cycle of the handshake.
func (s *Snooper) Delivered() []SnoopRequest {
	return s.delivered
}

// Drive presents the head of the queue once its cycle is reached.
func (s *Snooper) Drive(p *Pins) {
	if len(s.queue) == 0 || s.queue[0].Cycle > s.cycle {
		return
	}

	p.ACValid = true
	p.ACAddr = s.queue[0].Addr
	p.ACSnoop = s.queue[0].Snoop
}

// Edge pops the head of the queue when the core accepts it.
func (s *Snooper) Edge(p *Pins) {
	if p.ACFire() && len(s.queue) > 0 {
		req := s.queue[0]
		req.Cycle = s.cycle
		s.delivered = append(s.delivered, req)
		s.queue = s.queue[1:]
	}

	s.cycle++
}
