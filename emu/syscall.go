package emu

import "io"

// RISC-V Linux syscall numbers.
const (
	SyscallRead         uint64 = 63  // read(fd, buf, count)
	SyscallWrite        uint64 = 64  // write(fd, buf, count)
	SyscallExit         uint64 = 93  // exit(status)
	SyscallExitGroup    uint64 = 94  // exit_group(status)
	SyscallClockGettime uint64 = 113 // clock_gettime(clockid, tp)
)

// Linux error codes.
const (
	EBADF  = 9  // Bad file descriptor
	ENOSYS = 38 // Function not implemented
	EIO    = 5  // I/O error
	EFAULT = 14 // Bad address
	EINVAL = 22 // Invalid argument
)

// Clock IDs accepted by clock_gettime.
const (
	ClockRealtime  uint64 = 0
	ClockMonotonic uint64 = 1
)

// MaxTransfer is the largest byte count a single read or write moves.
// Larger requests complete short.
const MaxTransfer = 1 << 20

// SyscallResult represents the result of a syscall execution.
type SyscallResult struct {
	// Exited is true if the syscall caused program termination.
	Exited bool

	// ExitCode is the exit status if Exited is true.
	ExitCode int64

	// Latency is the number of extra cycles the service takes. Retirement
	// of the ECALL is held for this many cycles.
	Latency uint64
}

// SyscallHandler is the interface for handling RISC-V syscalls.
type SyscallHandler interface {
	// Handle executes the syscall indicated by the register file state.
	// RISC-V Linux syscall convention:
	//   - Syscall number in a7
	//   - Arguments in a0-a5
	//   - Return value in a0
	Handle() SyscallResult
}

// Memory is the byte-level view of guest memory a syscall needs. The core
// provides an implementation that sees dirty data still held in the data
// cache.
type Memory interface {
	Read8(addr uint64) byte
	Write8(addr uint64, value byte)
}

// DefaultSyscallHandler provides a basic syscall handler implementation.
type DefaultSyscallHandler struct {
	regFile *RegFile
	memory  Memory
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	latency uint64

	clock   func() uint64
	clockHz uint64
}

// NewDefaultSyscallHandler creates a default syscall handler. Nil writers
// discard output.
func NewDefaultSyscallHandler(
	regFile *RegFile,
	memory Memory,
	stdout, stderr io.Writer,
) *DefaultSyscallHandler {
	if stdout == nil {
		stdout = io.Discard
	}

	if stderr == nil {
		stderr = io.Discard
	}

	return &DefaultSyscallHandler{
		regFile: regFile,
		memory:  memory,
		stdout:  stdout,
		stderr:  stderr,
	}
}

// SetStdin sets the stdin reader for the syscall handler.
func (h *DefaultSyscallHandler) SetStdin(stdin io.Reader) {
	h.stdin = stdin
}

// SetLatency sets the number of cycles every syscall takes to complete.
func (h *DefaultSyscallHandler) SetLatency(cycles uint64) {
	h.latency = cycles
}

// SetClock sets the tick source clock_gettime reports, counting at hz ticks
// per second. Without a clock the time reads as zero.
func (h *DefaultSyscallHandler) SetClock(ticks func() uint64, hz uint64) {
	h.clock = ticks
	h.clockHz = hz
}

// Handle executes the syscall indicated by the register file state.
func (h *DefaultSyscallHandler) Handle() SyscallResult {
	var result SyscallResult

	switch h.regFile.ReadReg(RegA7) {
	case SyscallRead:
		h.handleRead()
	case SyscallWrite:
		h.handleWrite()
	case SyscallExit, SyscallExitGroup:
		result = h.handleExit()
	case SyscallClockGettime:
		h.handleClockGettime()
	default:
		h.setError(ENOSYS)
	}

	result.Latency = h.latency

	return result
}

func (h *DefaultSyscallHandler) handleExit() SyscallResult {
	return SyscallResult{
		Exited:   true,
		ExitCode: int64(h.regFile.ReadReg(RegA0)),
	}
}

func (h *DefaultSyscallHandler) handleRead() {
	fd := h.regFile.ReadReg(RegA0)
	bufPtr := h.regFile.ReadReg(RegA1)
	count := h.regFile.ReadReg(RegA2)

	// Only stdin (fd=0) is supported
	if fd != 0 {
		h.setError(EBADF)
		return
	}

	count, ok := transferSize(bufPtr, count)
	if !ok {
		h.setError(EFAULT)
		return
	}

	// No stdin configured reads as EOF
	if h.stdin == nil {
		h.regFile.WriteReg(RegA0, 0)
		return
	}

	buf := make([]byte, count)
	n, err := h.stdin.Read(buf)
	if err != nil && n == 0 {
		h.regFile.WriteReg(RegA0, 0)
		return
	}

	for i := 0; i < n; i++ {
		h.memory.Write8(bufPtr+uint64(i), buf[i])
	}

	h.regFile.WriteReg(RegA0, uint64(n))
}

func (h *DefaultSyscallHandler) handleWrite() {
	fd := h.regFile.ReadReg(RegA0)
	bufPtr := h.regFile.ReadReg(RegA1)
	count := h.regFile.ReadReg(RegA2)

	var writer io.Writer
	switch fd {
	case 1:
		writer = h.stdout
	case 2:
		writer = h.stderr
	default:
		h.setError(EBADF)
		return
	}

	count, ok := transferSize(bufPtr, count)
	if !ok {
		h.setError(EFAULT)
		return
	}

	buf := make([]byte, count)
	for i := uint64(0); i < count; i++ {
		buf[i] = h.memory.Read8(bufPtr + i)
	}

	n, err := writer.Write(buf)
	if err != nil {
		h.setError(EIO)
		return
	}

	h.regFile.WriteReg(RegA0, uint64(n))
}

func (h *DefaultSyscallHandler) handleClockGettime() {
	clockID := h.regFile.ReadReg(RegA0)
	tp := h.regFile.ReadReg(RegA1)

	if clockID != ClockRealtime && clockID != ClockMonotonic {
		h.setError(EINVAL)
		return
	}

	if tp == 0 || tp+16 < tp {
		h.setError(EFAULT)
		return
	}

	var sec, nsec uint64
	if h.clock != nil && h.clockHz != 0 {
		ticks := h.clock()
		sec = ticks / h.clockHz
		nsec = ticks % h.clockHz * 1_000_000_000 / h.clockHz
	}

	h.write64(tp, sec)
	h.write64(tp+8, nsec)
	h.regFile.WriteReg(RegA0, 0)
}

func (h *DefaultSyscallHandler) write64(addr, value uint64) {
	for i := uint64(0); i < 8; i++ {
		h.memory.Write8(addr+i, byte(value>>(8*i)))
	}
}

// transferSize bounds count to MaxTransfer. It reports false when the
// buffer would wrap around the address space.
func transferSize(bufPtr, count uint64) (uint64, bool) {
	if bufPtr+count < bufPtr {
		return 0, false
	}

	if count > MaxTransfer {
		count = MaxTransfer
	}

	return count, true
}

// setError sets a0 to -errno (as two's complement).
func (h *DefaultSyscallHandler) setError(errno int) {
	h.regFile.WriteReg(RegA0, uint64(-int64(errno)))
}
