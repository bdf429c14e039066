package axi

// SizeBytes converts an AxSIZE encoding to a byte count.
func SizeBytes(size uint8) int {
	return 1 << size
}

// SizeFor returns the AxSIZE encoding of a power-of-two byte count.
func SizeFor(bytes int) uint8 {
	var size uint8
	for 1<<size < bytes {
		size++
	}

	return size
}

// LaneOffset returns the byte lane of addr on the 64-bit data bus.
func LaneOffset(addr uint64) uint {
	return uint(addr % DataBytes)
}

// Strobe returns the write strobe covering size bytes at addr within one
// bus word. Bytes that would fall past the end of the word are dropped, so
// callers pass beat-aligned transfers only.
func Strobe(addr uint64, size int) uint8 {
	mask := uint16(1)<<uint(size) - 1
	return uint8(mask << LaneOffset(addr))
}

// MergeStrobe writes the strobed bytes of data over old.
func MergeStrobe(old, data uint64, strb uint8) uint64 {
	var mask uint64
	for i := uint(0); i < DataBytes; i++ {
		if strb&(1<<i) != 0 {
			mask |= 0xFF << (8 * i)
		}
	}

	return (old &^ mask) | (data & mask)
}

// BeatAddress returns the address of beat n of a burst.
func BeatAddress(addr uint64, length, size, burst uint8, n int) uint64 {
	bytes := uint64(SizeBytes(size))
	aligned := addr &^ (bytes - 1)

	switch burst {
	case BurstFixed:
		return addr
	case BurstWrap:
		span := bytes * (uint64(length) + 1)
		lower := addr &^ (span - 1)
		return lower + (aligned-lower+uint64(n)*bytes)%span
	}

	if n == 0 {
		return addr
	}

	return aligned + uint64(n)*bytes
}
