// Package axi models the core's external memory boundary: a single AXI-like
// master port with five handshake channels plus an ACE-style snoop address
// channel, and the test-bench agents that sit on the slave side of it.
//
// Signals are sampled once per clock. Every cycle is split into a drive phase,
// where masters and slaves set their outputs on a shared Pins value, and an
// edge phase, where both sides observe which handshakes fired.
package axi

// Signal widths at the boundary.
const (
	IDWidth     = 13
	LenWidth    = 8
	SizeWidth   = 3
	BurstWidth  = 2
	CacheWidth  = 4
	ProtWidth   = 3
	StrbWidth   = 8
	RespWidth   = 2
	SnoopWidth  = 4
	DataBytes   = 8
	AddressBits = 64
)

// Burst types.
const (
	BurstFixed uint8 = 0b00
	BurstIncr  uint8 = 0b01
	BurstWrap  uint8 = 0b10
)

// Response codes.
const (
	RespOkay   uint8 = 0b00
	RespExOkay uint8 = 0b01
	RespSlvErr uint8 = 0b10
	RespDecErr uint8 = 0b11
)

// Protection bits.
const (
	ProtPrivileged  uint8 = 0b001
	ProtNonSecure   uint8 = 0b010
	ProtInstruction uint8 = 0b100
)

// CacheNormal marks a normal, non-cacheable, bufferable access.
const CacheNormal uint8 = 0b0011

// Pins holds every signal crossing the core boundary for one cycle.
type Pins struct {
	// Write address channel
	AWID    uint16
	AWAddr  uint64
	AWLen   uint8
	AWSize  uint8
	AWBurst uint8
	AWLock  bool
	AWCache uint8
	AWProt  uint8
	AWValid bool
	AWReady bool

	// Write data channel
	WData  uint64
	WStrb  uint8
	WLast  bool
	WValid bool
	WReady bool

	// Write response channel
	BID    uint16
	BResp  uint8
	BValid bool
	BReady bool

	// Read address channel
	ARID    uint16
	ARAddr  uint64
	ARLen   uint8
	ARSize  uint8
	ARBurst uint8
	ARLock  bool
	ARCache uint8
	ARProt  uint8
	ARValid bool
	ARReady bool

	// Read data channel
	RID    uint16
	RData  uint64
	RResp  uint8
	RLast  bool
	RValid bool
	RReady bool

	// Snoop address channel
	ACValid bool
	ACReady bool
	ACAddr  uint64
	ACSnoop uint8
}

// Fire reports whether a valid/ready handshake completes this cycle.
func Fire(valid, ready bool) bool {
	return valid && ready
}

// AWFire reports a write address handshake.
func (p *Pins) AWFire() bool { return Fire(p.AWValid, p.AWReady) }

// WFire reports a write data handshake.
func (p *Pins) WFire() bool { return Fire(p.WValid, p.WReady) }

// BFire reports a write response handshake.
func (p *Pins) BFire() bool { return Fire(p.BValid, p.BReady) }

// ARFire reports a read address handshake.
func (p *Pins) ARFire() bool { return Fire(p.ARValid, p.ARReady) }

// RFire reports a read data handshake.
func (p *Pins) RFire() bool { return Fire(p.RValid, p.RReady) }

// ACFire reports a snoop address handshake.
func (p *Pins) ACFire() bool { return Fire(p.ACValid, p.ACReady) }

// Mask truncates every multi-bit field to its declared width.
func (p *Pins) Mask() {
	const idMask = 1<<IDWidth - 1

	p.AWID &= idMask
	p.BID &= idMask
	p.ARID &= idMask
	p.RID &= idMask

	p.AWSize &= 1<<SizeWidth - 1
	p.ARSize &= 1<<SizeWidth - 1
	p.AWBurst &= 1<<BurstWidth - 1
	p.ARBurst &= 1<<BurstWidth - 1
	p.AWCache &= 1<<CacheWidth - 1
	p.ARCache &= 1<<CacheWidth - 1
	p.AWProt &= 1<<ProtWidth - 1
	p.ARProt &= 1<<ProtWidth - 1
	p.BResp &= 1<<RespWidth - 1
	p.RResp &= 1<<RespWidth - 1
	p.ACSnoop &= 1<<SnoopWidth - 1
}

// ClearMaster deasserts every master-driven signal.
func (p *Pins) ClearMaster() {
	p.AWID, p.AWAddr, p.AWLen, p.AWSize = 0, 0, 0, 0
	p.AWBurst, p.AWLock, p.AWCache, p.AWProt = 0, false, 0, 0
	p.AWValid = false

	p.WData, p.WStrb, p.WLast, p.WValid = 0, 0, false, false
	p.BReady = false

	p.ARID, p.ARAddr, p.ARLen, p.ARSize = 0, 0, 0, 0
	p.ARBurst, p.ARLock, p.ARCache, p.ARProt = 0, false, 0, 0
	p.ARValid = false

	p.RReady = false
	p.ACReady = false
}

// ClearSlave deasserts every slave-driven signal.
func (p *Pins) ClearSlave() {
	p.AWReady = false
	p.WReady = false
	p.BID, p.BResp, p.BValid = 0, 0, false
	p.ARReady = false
	p.RID, p.RData, p.RResp, p.RLast, p.RValid = 0, 0, 0, false, false
	p.ACValid, p.ACAddr, p.ACSnoop = false, 0, 0
}

// CopyMaster copies the master-driven request channels from src, leaving
// the snoop ready untouched.
func (p *Pins) CopyMaster(src *Pins) {
	p.AWID, p.AWAddr, p.AWLen, p.AWSize = src.AWID, src.AWAddr, src.AWLen, src.AWSize
	p.AWBurst, p.AWLock, p.AWCache, p.AWProt = src.AWBurst, src.AWLock, src.AWCache, src.AWProt
	p.AWValid = src.AWValid

	p.WData, p.WStrb, p.WLast, p.WValid = src.WData, src.WStrb, src.WLast, src.WValid
	p.BReady = src.BReady

	p.ARID, p.ARAddr, p.ARLen, p.ARSize = src.ARID, src.ARAddr, src.ARLen, src.ARSize
	p.ARBurst, p.ARLock, p.ARCache, p.ARProt = src.ARBurst, src.ARLock, src.ARCache, src.ARProt
	p.ARValid = src.ARValid

	p.RReady = src.RReady
}

// CopySlave copies the slave-driven response channels from src. The snoop
// channel is not part of the copy.
func (p *Pins) CopySlave(src *Pins) {
	p.AWReady = src.AWReady
	p.WReady = src.WReady
	p.BID, p.BResp, p.BValid = src.BID, src.BResp, src.BValid
	p.ARReady = src.ARReady
	p.RID, p.RData, p.RResp, p.RLast, p.RValid =
		src.RID, src.RData, src.RResp, src.RLast, src.RValid
}
