// Package latency provides instruction timing for the core models.
//
// The latency values can be configured via TimingConfig.
package latency

import (
	"github.com/sarchlab/pipesweep/insts"
)

// Table provides instruction latency lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with default timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a new latency table with custom timing configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// GetLatency returns the execution latency in cycles for the given
// instruction. For loads this is only the address generation part.
func (t *Table) GetLatency(inst *insts.Instruction) uint64 {
	if inst == nil {
		return 1
	}

	switch inst.Op {
	case insts.OpNOP, insts.OpMOVI, insts.OpADD, insts.OpADDI, insts.OpSUB, insts.OpSUBI:
		return t.config.ALULatency

	case insts.OpMUL:
		return t.config.MultiplyLatency

	case insts.OpB, insts.OpCBZ, insts.OpCBNZ:
		return t.config.BranchLatency

	case insts.OpLDRB, insts.OpLDR:
		return t.config.AGULatency

	case insts.OpSTRB, insts.OpSTR:
		return t.config.AGULatency + t.config.StoreLatency

	case insts.OpSVC:
		return t.config.SyscallLatency

	default:
		return 1
	}
}

// MispredictPenalty returns the front-end redirect cost after a
// misprediction resolves.
func (t *Table) MispredictPenalty() uint64 {
	return t.config.BranchMispredictPenalty
}

// FrontEndDepth returns the fetch-to-dispatch delay.
func (t *Table) FrontEndDepth() uint64 {
	return t.config.FrontEndDepth
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
