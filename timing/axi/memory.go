package axi

import (
	"encoding/binary"
	"fmt"

	"github.com/sarchlab/akita/v4/mem/mem"
)

// MemoryConfig holds the timing and size of a Memory slave.
type MemoryConfig struct {
	// Capacity is the size of the backing storage in bytes.
	Capacity uint64 `json:"capacity"`

	// ReadLatency is the number of cycles between an accepted AR and the
	// first R beat.
	ReadLatency uint64 `json:"read_latency"`

	// WriteLatency is the number of cycles between the last W beat and the
	// B response.
	WriteLatency uint64 `json:"write_latency"`
}

// DefaultMemoryConfig returns a 4 GB memory with a short fixed latency.
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		Capacity:     4 * mem.GB,
		ReadLatency:  4,
		WriteLatency: 2,
	}
}

// Beat records one data transfer seen by the Memory slave.
type Beat struct {
	Cycle uint64
	Dir   Direction
	ID    uint16
	Addr  uint64
	Data  uint64
	Strb  uint8
	Resp  uint8
	Last  bool
}

type addrRange struct {
	lo, hi uint64
}

type burst struct {
	id     uint16
	addr   uint64
	length uint8
	size   uint8
	kind   uint8
}

func (b *burst) beatAddr(n int) uint64 {
	return BeatAddress(b.addr, b.length, b.size, b.kind, n)
}

type readEngine struct {
	busy  bool
	req   burst
	beat  int
	delay uint64
}

type writePhase uint8

const (
	writeIdle writePhase = iota
	writeData
	writeResp
)

type writeEngine struct {
	phase writePhase
	req   burst
	beat  int
	delay uint64
	resp  uint8
}

// Memory is a slave agent that serves bursts from an akita storage. Reads
// and writes are handled by independent engines, so a write burst and a read
// burst may overlap in time.
type Memory struct {
	config  MemoryConfig
	storage *mem.Storage
	faults  []addrRange
	cycle   uint64
	beats   []Beat
	rd      readEngine
	wr      writeEngine
}

// NewMemory creates a Memory slave.
func NewMemory(config MemoryConfig) *Memory {
	return &Memory{
		config:  config,
		storage: mem.NewStorage(config.Capacity),
	}
}

// Storage returns the backing storage.
func (m *Memory) Storage() *mem.Storage {
	return m.storage
}

// InjectFault makes every beat touching [addr, addr+size) answer SLVERR.
func (m *Memory) InjectFault(addr, size uint64) {
	m.faults = append(m.faults, addrRange{lo: addr, hi: addr + size})
}

// Beats returns the log of data beats transferred so far.
func (m *Memory) Beats() []Beat {
	return m.beats
}

// Reset drops any in-flight burst and the beat log. Memory contents are
// kept.
func (m *Memory) Reset() {
	m.rd = readEngine{}
	m.wr = writeEngine{}
	m.beats = nil
	m.cycle = 0
}

// Drive sets the slave-side outputs for this cycle.
func (m *Memory) Drive(p *Pins) {
	p.ARReady = !m.rd.busy

	if m.rd.busy && m.rd.delay == 0 {
		data, resp := m.readBeat(m.rd.req.beatAddr(m.rd.beat), m.rd.req.size)
		p.RValid = true
		p.RID = m.rd.req.id
		p.RData = data
		p.RResp = resp
		p.RLast = m.rd.beat == int(m.rd.req.length)
	}

	p.AWReady = m.wr.phase == writeIdle
	p.WReady = m.wr.phase == writeData

	if m.wr.phase == writeResp && m.wr.delay == 0 {
		p.BValid = true
		p.BID = m.wr.req.id
		p.BResp = m.wr.resp
	}
}

// Edge applies this cycle's handshakes.
func (m *Memory) Edge(p *Pins) {
	m.edgeRead(p)
	m.edgeWrite(p)
	m.cycle++
}

func (m *Memory) edgeRead(p *Pins) {
	if !m.rd.busy {
		if p.ARFire() {
			m.rd = readEngine{
				busy: true,
				req: burst{
					id: p.ARID, addr: p.ARAddr, length: p.ARLen,
					size: p.ARSize, kind: p.ARBurst,
				},
				delay: m.config.ReadLatency,
			}
		}

		return
	}

	if m.rd.delay > 0 {
		m.rd.delay--
		return
	}

	if !p.RFire() {
		return
	}

	m.log(Beat{
		Dir: DirRead, ID: p.RID, Addr: m.rd.req.beatAddr(m.rd.beat),
		Data: p.RData, Resp: p.RResp, Last: p.RLast,
	})

	if p.RLast {
		m.rd = readEngine{}
		return
	}

	m.rd.beat++
}

func (m *Memory) edgeWrite(p *Pins) {
	switch m.wr.phase {
	case writeIdle:
		if p.AWFire() {
			m.wr = writeEngine{
				phase: writeData,
				req: burst{
					id: p.AWID, addr: p.AWAddr, length: p.AWLen,
					size: p.AWSize, kind: p.AWBurst,
				},
			}
		}
	case writeData:
		if !p.WFire() {
			return
		}

		addr := m.wr.req.beatAddr(m.wr.beat)
		resp := m.writeBeat(addr, p.WData, p.WStrb)
		if resp > m.wr.resp {
			m.wr.resp = resp
		}

		m.log(Beat{
			Dir: DirWrite, ID: m.wr.req.id, Addr: addr,
			Data: p.WData, Strb: p.WStrb, Resp: resp, Last: p.WLast,
		})

		m.wr.beat++
		if p.WLast {
			m.wr.phase = writeResp
			m.wr.delay = m.config.WriteLatency
		}
	case writeResp:
		if m.wr.delay > 0 {
			m.wr.delay--
			return
		}

		if p.BFire() {
			m.wr = writeEngine{}
		}
	}
}

func (m *Memory) log(b Beat) {
	b.Cycle = m.cycle
	m.beats = append(m.beats, b)
}

func (m *Memory) faulted(addr, size uint64) bool {
	for _, r := range m.faults {
		if addr < r.hi && addr+size > r.lo {
			return true
		}
	}
	return false
}

// readBeat places size bytes at addr on their byte lanes of the bus word.
func (m *Memory) readBeat(addr uint64, size uint8) (uint64, uint8) {
	n := uint64(SizeBytes(size))
	if m.faulted(addr, n) {
		return 0, RespSlvErr
	}

	raw, err := m.storage.Read(addr, n)
	if err != nil {
		return 0, RespDecErr
	}

	var data uint64
	lane := LaneOffset(addr)
	for i, b := range raw {
		data |= uint64(b) << (8 * (lane + uint(i)))
	}

	return data, RespOkay
}

func (m *Memory) writeBeat(addr, data uint64, strb uint8) uint8 {
	base := addr &^ (DataBytes - 1)
	if m.faulted(base, DataBytes) {
		return RespSlvErr
	}

	raw, err := m.storage.Read(base, DataBytes)
	if err != nil {
		return RespDecErr
	}

	word := MergeStrobe(binary.LittleEndian.Uint64(raw), data, strb)

	buf := make([]byte, DataBytes)
	binary.LittleEndian.PutUint64(buf, word)
	if err := m.storage.Write(base, buf); err != nil {
		return RespDecErr
	}

	return RespOkay
}

// Write stores bytes directly, bypassing the bus.
func (m *Memory) Write(addr uint64, data []byte) error {
	if err := m.storage.Write(addr, data); err != nil {
		return fmt.Errorf("failed to write memory at 0x%x: %w", addr, err)
	}
	return nil
}

// Read fetches bytes directly, bypassing the bus.
func (m *Memory) Read(addr, n uint64) ([]byte, error) {
	data, err := m.storage.Read(addr, n)
	if err != nil {
		return nil, fmt.Errorf("failed to read memory at 0x%x: %w", addr, err)
	}
	return data, nil
}

// Read8 reads one byte, returning 0 when the address is out of range.
func (m *Memory) Read8(addr uint64) byte {
	data, err := m.storage.Read(addr, 1)
	if err != nil {
		return 0
	}
	return data[0]
}

// Write8 writes one byte. Out-of-range writes are dropped.
func (m *Memory) Write8(addr uint64, value byte) {
	_ = m.storage.Write(addr, []byte{value})
}

// Write32 stores a little-endian word directly.
func (m *Memory) Write32(addr uint64, value uint32) error {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, value)
	return m.Write(addr, buf)
}

// Read64 loads a little-endian doubleword directly.
func (m *Memory) Read64(addr uint64) (uint64, error) {
	data, err := m.Read(addr, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(data), nil
}

// Write64 stores a little-endian doubleword directly.
func (m *Memory) Write64(addr uint64, value uint64) error {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, value)
	return m.Write(addr, buf)
}
