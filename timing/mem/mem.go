// Package mem provides the timing model of the memory system: the system
// crossbar, the memory controller and its DRAM interface.
//
// The model is latency-only. Data lives in the functional emulator; an access
// here answers when it completes. All times are in picoseconds.
package mem

import (
	"errors"
	"fmt"
)

// ErrAddressOutOfRange is returned when no responder claims an address.
var ErrAddressOutOfRange = errors.New("address not in any memory range")

// AddrRange is a contiguous physical address range [Start, Start+Size).
type AddrRange struct {
	Start uint64
	Size  uint64
}

// End returns the first address past the range.
func (r AddrRange) End() uint64 {
	return r.Start + r.Size
}

// Contains reports whether [addr, addr+size) lies inside the range.
func (r AddrRange) Contains(addr uint64, size int) bool {
	if size < 1 {
		size = 1
	}
	return addr >= r.Start && addr+uint64(size) <= r.End()
}

// String formats the range the way address maps are usually printed.
func (r AddrRange) String() string {
	return fmt.Sprintf("[0x%x:0x%x]", r.Start, r.End())
}

// Request is one timing access.
type Request struct {
	// Source names the requesting port, e.g. "system.cpu.dcache_port".
	Source string

	Addr  uint64
	Size  int
	Write bool
}

// Responder is the memory side of the crossbar.
type Responder interface {
	Range() AddrRange
	// Access returns the time the response leaves the responder for a
	// request that arrives at time t.
	Access(req Request, t uint64) uint64
}
