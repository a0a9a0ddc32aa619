package emu

import "encoding/binary"

const pageSize = 4096

// Memory is a sparse, byte-addressable functional memory. Pages are
// allocated on first write; unwritten bytes read as zero.
type Memory struct {
	pages map[uint64]*[pageSize]byte
}

// NewMemory creates an empty memory.
func NewMemory() *Memory {
	return &Memory{pages: make(map[uint64]*[pageSize]byte)}
}

func (m *Memory) page(addr uint64, alloc bool) *[pageSize]byte {
	num := addr / pageSize
	p, ok := m.pages[num]
	if !ok && alloc {
		p = new([pageSize]byte)
		m.pages[num] = p
	}
	return p
}

// Read8 reads one byte.
func (m *Memory) Read8(addr uint64) uint8 {
	p := m.page(addr, false)
	if p == nil {
		return 0
	}
	return p[addr%pageSize]
}

// Write8 writes one byte.
func (m *Memory) Write8(addr uint64, value uint8) {
	m.page(addr, true)[addr%pageSize] = value
}

// Read64 reads a little-endian 64-bit value.
func (m *Memory) Read64(addr uint64) uint64 {
	var buf [8]byte
	for i := range buf {
		buf[i] = m.Read8(addr + uint64(i))
	}
	return binary.LittleEndian.Uint64(buf[:])
}

// Write64 writes a little-endian 64-bit value.
func (m *Memory) Write64(addr uint64, value uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	for i, b := range buf {
		m.Write8(addr+uint64(i), b)
	}
}

// WriteBytes copies data into memory starting at addr.
func (m *Memory) WriteBytes(addr uint64, data []byte) {
	for i, b := range data {
		m.Write8(addr+uint64(i), b)
	}
}

// ReadBytes copies n bytes starting at addr.
func (m *Memory) ReadBytes(addr uint64, n uint64) []byte {
	out := make([]byte, n)
	for i := uint64(0); i < n; i++ {
		out[i] = m.Read8(addr + i)
	}
	return out
}
