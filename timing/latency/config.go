package latency

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TimingConfig holds latency values for different instruction classes.
// Memory access latency is not part of the table: loads and stores take
// AGULatency cycles to compute their address and then whatever the memory
// system reports.
type TimingConfig struct {
	// ALULatency is the execution latency for MOVI/ADD/SUB and their
	// immediate forms. Default: 1 cycle.
	ALULatency uint64 `yaml:"alu_latency"`

	// MultiplyLatency is the latency for integer multiply. Default: 3 cycles.
	MultiplyLatency uint64 `yaml:"multiply_latency"`

	// BranchLatency is the cycles until a branch resolves. Default: 1 cycle.
	BranchLatency uint64 `yaml:"branch_latency"`

	// BranchMispredictPenalty is the additional cycles lost to redirect the
	// front end after a misprediction resolves. Default: 6 cycles.
	BranchMispredictPenalty uint64 `yaml:"branch_mispredict_penalty"`

	// AGULatency is the address generation latency of loads and stores.
	// Default: 1 cycle.
	AGULatency uint64 `yaml:"agu_latency"`

	// StoreLatency is the cycles until a store can commit once its address
	// is known (the write drains to memory in the background). Default: 1.
	StoreLatency uint64 `yaml:"store_latency"`

	// SyscallLatency is the latency for system call instructions.
	// Default: 1 cycle (handling is external).
	SyscallLatency uint64 `yaml:"syscall_latency"`

	// FrontEndDepth is the cycles between fetch and dispatch. Default: 1.
	FrontEndDepth uint64 `yaml:"front_end_depth"`
}

// DefaultTimingConfig returns a TimingConfig with default values.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		ALULatency:              1,
		MultiplyLatency:         3,
		BranchLatency:           1,
		BranchMispredictPenalty: 6,
		AGULatency:              1,
		StoreLatency:            1,
		SyscallLatency:          1,
		FrontEndDepth:           1,
	}
}

// LoadConfig loads a TimingConfig from a YAML file. Fields absent from the
// file keep their default values.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid timing config %s: %w", path, err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a YAML file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that every latency that gates progress is > 0.
func (c *TimingConfig) Validate() error {
	if c.ALULatency == 0 {
		return fmt.Errorf("alu_latency must be > 0")
	}
	if c.MultiplyLatency == 0 {
		return fmt.Errorf("multiply_latency must be > 0")
	}
	if c.BranchLatency == 0 {
		return fmt.Errorf("branch_latency must be > 0")
	}
	if c.AGULatency == 0 {
		return fmt.Errorf("agu_latency must be > 0")
	}
	if c.StoreLatency == 0 {
		return fmt.Errorf("store_latency must be > 0")
	}
	if c.SyscallLatency == 0 {
		return fmt.Errorf("syscall_latency must be > 0")
	}
	if c.FrontEndDepth == 0 {
		return fmt.Errorf("front_end_depth must be > 0")
	}
	return nil
}

// Clone returns a deep copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}
