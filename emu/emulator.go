package emu

import (
	"errors"
	"fmt"
	"io"

	"github.com/sarchlab/pipesweep/insts"
)

// ErrExited is returned when stepping a thread that has already exited.
var ErrExited = errors.New("thread has exited")

// Retired describes one functionally executed dynamic instruction.
type Retired struct {
	Inst   *insts.Instruction
	PC     uint64
	NextPC uint64

	// Taken is true when a branch redirected control flow.
	Taken bool

	// MemAddr is the effective address of a load or store.
	MemAddr uint64

	// Exited is set on the exit syscall.
	Exited   bool
	ExitCode int64
}

// Emulator executes a program functionally, one instruction per Step.
type Emulator struct {
	regFile        *RegFile
	memory         *Memory
	syscallHandler SyscallHandler

	text     []insts.Instruction
	textBase uint64

	stdout io.Writer
	stderr io.Writer

	instructionCount uint64
	exited           bool
	exitCode         int64
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithStdout sets the writer receiving fd 1 output.
func WithStdout(w io.Writer) EmulatorOption {
	return func(e *Emulator) {
		e.stdout = w
	}
}

// WithStderr sets the writer receiving fd 2 output.
func WithStderr(w io.Writer) EmulatorOption {
	return func(e *Emulator) {
		e.stderr = w
	}
}

// WithSyscallHandler sets a custom syscall handler.
func WithSyscallHandler(handler SyscallHandler) EmulatorOption {
	return func(e *Emulator) {
		e.syscallHandler = handler
	}
}

// NewEmulator creates an emulator for the given text segment. Execution
// starts at textBase.
func NewEmulator(text []insts.Instruction, textBase uint64, opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile:  &RegFile{PC: textBase},
		memory:   NewMemory(),
		text:     text,
		textBase: textBase,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.syscallHandler == nil {
		e.syscallHandler = NewDefaultSyscallHandler(e.regFile, e.memory, e.stdout, e.stderr)
	}

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// PC returns the address of the next instruction.
func (e *Emulator) PC() uint64 {
	return e.regFile.PC
}

// Exited returns true after the exit syscall.
func (e *Emulator) Exited() bool {
	return e.exited
}

// ExitCode returns the exit status once Exited is true.
func (e *Emulator) ExitCode() int64 {
	return e.exitCode
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

func (e *Emulator) fetch(pc uint64) (*insts.Instruction, error) {
	if pc < e.textBase || (pc-e.textBase)%insts.InstSize != 0 {
		return nil, fmt.Errorf("pc 0x%x is not an instruction address", pc)
	}

	idx := (pc - e.textBase) / insts.InstSize
	if idx >= uint64(len(e.text)) {
		return nil, fmt.Errorf("pc 0x%x is outside the text segment", pc)
	}

	return &e.text[idx], nil
}

// Step executes one instruction.
func (e *Emulator) Step() (Retired, error) {
	if e.exited {
		return Retired{}, ErrExited
	}

	pc := e.regFile.PC
	inst, err := e.fetch(pc)
	if err != nil {
		return Retired{}, err
	}

	r := Retired{Inst: inst, PC: pc, NextPC: pc + insts.InstSize}
	regs := e.regFile

	switch inst.Op {
	case insts.OpNOP:
	case insts.OpMOVI:
		regs.WriteReg(inst.Rd, uint64(inst.Imm))
	case insts.OpADD:
		regs.WriteReg(inst.Rd, regs.ReadReg(inst.Rn)+regs.ReadReg(inst.Rm))
	case insts.OpADDI:
		regs.WriteReg(inst.Rd, regs.ReadReg(inst.Rn)+uint64(inst.Imm))
	case insts.OpSUB:
		regs.WriteReg(inst.Rd, regs.ReadReg(inst.Rn)-regs.ReadReg(inst.Rm))
	case insts.OpSUBI:
		regs.WriteReg(inst.Rd, regs.ReadReg(inst.Rn)-uint64(inst.Imm))
	case insts.OpMUL:
		regs.WriteReg(inst.Rd, regs.ReadReg(inst.Rn)*regs.ReadReg(inst.Rm))
	case insts.OpLDRB:
		r.MemAddr = e.effectiveAddr(inst)
		regs.WriteReg(inst.Rd, uint64(e.memory.Read8(r.MemAddr)))
	case insts.OpLDR:
		r.MemAddr = e.effectiveAddr(inst)
		regs.WriteReg(inst.Rd, e.memory.Read64(r.MemAddr))
	case insts.OpSTRB:
		r.MemAddr = e.effectiveAddr(inst)
		e.memory.Write8(r.MemAddr, uint8(regs.ReadReg(inst.Rd)))
	case insts.OpSTR:
		r.MemAddr = e.effectiveAddr(inst)
		e.memory.Write64(r.MemAddr, regs.ReadReg(inst.Rd))
	case insts.OpB:
		r.Taken = true
	case insts.OpCBZ:
		r.Taken = regs.ReadReg(inst.Rn) == 0
	case insts.OpCBNZ:
		r.Taken = regs.ReadReg(inst.Rn) != 0
	case insts.OpSVC:
		result := e.syscallHandler.Handle()
		if result.Exited {
			e.exited = true
			e.exitCode = result.ExitCode
			r.Exited = true
			r.ExitCode = result.ExitCode
		}
	default:
		return Retired{}, fmt.Errorf("unsupported instruction %s at pc 0x%x", inst.Op, pc)
	}

	if r.Taken {
		r.NextPC = inst.Target
	}

	regs.PC = r.NextPC
	e.instructionCount++

	return r, nil
}

func (e *Emulator) effectiveAddr(inst *insts.Instruction) uint64 {
	return uint64(int64(e.regFile.ReadReg(inst.Rn)) + inst.Imm)
}

// Run executes until the program exits or maxInstructions have executed.
// A maxInstructions of 0 means no limit.
func (e *Emulator) Run(maxInstructions uint64) (int64, error) {
	for !e.exited {
		if maxInstructions != 0 && e.instructionCount >= maxInstructions {
			return 0, fmt.Errorf("instruction limit %d reached", maxInstructions)
		}

		if _, err := e.Step(); err != nil {
			return 0, err
		}
	}

	return e.exitCode, nil
}
