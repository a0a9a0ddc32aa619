// Package insts provides the instruction set used by simulated workloads.
//
// The set is a small 64-bit load/store ISA with 32 general-purpose registers.
// Register 31 is the zero register (XZR): it reads as 0 and writes to it are
// discarded. Instructions are 4 bytes apart in the text segment.
//
// Usage:
//
//	inst := insts.Instruction{Op: insts.OpADDI, Rd: 1, Rn: 1, Imm: 1}
//	fmt.Println(inst) // addi x1, x1, #1
package insts

import "fmt"

// Op represents an opcode.
type Op uint16

// Opcodes.
const (
	OpUnknown Op = iota
	OpNOP
	OpMOVI // Rd = Imm
	OpADD  // Rd = Rn + Rm
	OpADDI // Rd = Rn + Imm
	OpSUB  // Rd = Rn - Rm
	OpSUBI // Rd = Rn - Imm
	OpMUL  // Rd = Rn * Rm
	OpLDRB // Rd = mem8[Rn + Imm]
	OpSTRB // mem8[Rn + Imm] = Rd
	OpLDR  // Rd = mem64[Rn + Imm]
	OpSTR  // mem64[Rn + Imm] = Rd
	OpB    // PC = Target
	OpCBZ  // if Rn == 0 { PC = Target }
	OpCBNZ // if Rn != 0 { PC = Target }
	OpSVC  // system call, number in X8
)

// ZeroReg is the register index that always reads as zero.
const ZeroReg uint8 = 31

// InstSize is the size of one instruction in bytes.
const InstSize = 4

var opNames = map[Op]string{
	OpNOP:  "nop",
	OpMOVI: "movi",
	OpADD:  "add",
	OpADDI: "addi",
	OpSUB:  "sub",
	OpSUBI: "subi",
	OpMUL:  "mul",
	OpLDRB: "ldrb",
	OpSTRB: "strb",
	OpLDR:  "ldr",
	OpSTR:  "str",
	OpB:    "b",
	OpCBZ:  "cbz",
	OpCBNZ: "cbnz",
	OpSVC:  "svc",
}

// String returns the assembler mnemonic of the opcode.
func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", uint16(o))
}

// ParseOp returns the opcode for a mnemonic.
func ParseOp(mnemonic string) (Op, bool) {
	for op, name := range opNames {
		if name == mnemonic {
			return op, true
		}
	}
	return OpUnknown, false
}

// Instruction represents one static instruction.
type Instruction struct {
	Op Op

	Rd uint8 // Destination register, or the value register for stores
	Rn uint8 // First source register / base register
	Rm uint8 // Second source register

	Imm    int64  // Immediate operand or address offset
	Target uint64 // Branch target address
}

// IsBranch returns true for any control-flow instruction.
func (i *Instruction) IsBranch() bool {
	return i.Op == OpB || i.Op == OpCBZ || i.Op == OpCBNZ
}

// IsCondBranch returns true for branches whose direction depends on a register.
func (i *Instruction) IsCondBranch() bool {
	return i.Op == OpCBZ || i.Op == OpCBNZ
}

// IsLoad returns true for memory reads.
func (i *Instruction) IsLoad() bool {
	return i.Op == OpLDRB || i.Op == OpLDR
}

// IsStore returns true for memory writes.
func (i *Instruction) IsStore() bool {
	return i.Op == OpSTRB || i.Op == OpSTR
}

// IsMem returns true for loads and stores.
func (i *Instruction) IsMem() bool {
	return i.IsLoad() || i.IsStore()
}

// IsSyscall returns true for system calls.
func (i *Instruction) IsSyscall() bool {
	return i.Op == OpSVC
}

// AccessSize returns the number of bytes a memory instruction touches.
func (i *Instruction) AccessSize() int {
	switch i.Op {
	case OpLDRB, OpSTRB:
		return 1
	case OpLDR, OpSTR:
		return 8
	default:
		return 0
	}
}

// SrcRegs returns the registers read by the instruction. The zero register
// is never reported as a source.
func (i *Instruction) SrcRegs() []uint8 {
	var regs []uint8
	add := func(r uint8) {
		if r != ZeroReg {
			regs = append(regs, r)
		}
	}

	switch i.Op {
	case OpADD, OpSUB, OpMUL:
		add(i.Rn)
		add(i.Rm)
	case OpADDI, OpSUBI, OpLDRB, OpLDR, OpCBZ, OpCBNZ:
		add(i.Rn)
	case OpSTRB, OpSTR:
		add(i.Rn)
		add(i.Rd)
	case OpSVC:
		// Syscall number and the three argument registers.
		add(8)
		add(0)
		add(1)
		add(2)
	}

	return regs
}

// DstReg returns the register written by the instruction, if any.
func (i *Instruction) DstReg() (uint8, bool) {
	switch i.Op {
	case OpMOVI, OpADD, OpADDI, OpSUB, OpSUBI, OpMUL, OpLDRB, OpLDR:
		if i.Rd == ZeroReg {
			return 0, false
		}
		return i.Rd, true
	case OpSVC:
		return 0, true
	default:
		return 0, false
	}
}

// String formats the instruction in assembler syntax.
func (i Instruction) String() string {
	switch i.Op {
	case OpNOP, OpSVC:
		return i.Op.String()
	case OpMOVI:
		return fmt.Sprintf("%s x%d, #%d", i.Op, i.Rd, i.Imm)
	case OpADD, OpSUB, OpMUL:
		return fmt.Sprintf("%s x%d, x%d, x%d", i.Op, i.Rd, i.Rn, i.Rm)
	case OpADDI, OpSUBI:
		return fmt.Sprintf("%s x%d, x%d, #%d", i.Op, i.Rd, i.Rn, i.Imm)
	case OpLDRB, OpSTRB, OpLDR, OpSTR:
		return fmt.Sprintf("%s x%d, [x%d, #%d]", i.Op, i.Rd, i.Rn, i.Imm)
	case OpB:
		return fmt.Sprintf("%s 0x%x", i.Op, i.Target)
	case OpCBZ, OpCBNZ:
		return fmt.Sprintf("%s x%d, 0x%x", i.Op, i.Rn, i.Target)
	default:
		return i.Op.String()
	}
}
