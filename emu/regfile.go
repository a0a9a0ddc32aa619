// Package emu provides functional execution of workload programs.
package emu

import "github.com/sarchlab/pipesweep/insts"

// RegFile represents the architectural register file of one hardware thread.
type RegFile struct {
	// X holds general-purpose registers X0-X30.
	// X[31] is the zero register (XZR) which always reads as 0.
	X [32]uint64

	// PC is the program counter.
	PC uint64
}

// ReadReg reads a register value. Register 31 returns 0 (XZR).
func (r *RegFile) ReadReg(reg uint8) uint64 {
	if reg >= insts.ZeroReg {
		return 0
	}
	return r.X[reg]
}

// WriteReg writes a value to a register. Writes to register 31+ are ignored.
func (r *RegFile) WriteReg(reg uint8, value uint64) {
	if reg >= insts.ZeroReg {
		return
	}
	r.X[reg] = value
}

// Reset clears all registers and the program counter.
func (r *RegFile) Reset() {
	*r = RegFile{}
}
