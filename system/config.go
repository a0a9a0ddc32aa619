// Package system turns abstract machine configurations into fully wired
// system descriptions that an engine can instantiate.
package system

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sarchlab/pipesweep/timing/bpred"
)

// ErrInvalidConfiguration is returned when a MachineConfig cannot be built.
var ErrInvalidConfiguration = errors.New("invalid machine configuration")

// CoreKind is the closed set of core models a system can be built around.
type CoreKind int

// Core kinds.
const (
	// SimpleInOrder is a MinorCPU-like in-order pipeline.
	SimpleInOrder CoreKind = iota + 1
	// SuperscalarOOO is a DerivO3CPU-like out-of-order core.
	SuperscalarOOO
)

var coreKindNames = map[CoreKind]string{
	SimpleInOrder:  "MinorCPU",
	SuperscalarOOO: "DerivO3CPU",
}

func (k CoreKind) String() string {
	if name, ok := coreKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("CoreKind(%d)", int(k))
}

// ParseCoreKind accepts the model names ("MinorCPU", "DerivO3CPU") and the
// kind names ("SimpleInOrder", "SuperscalarOOO"), case-insensitively.
func ParseCoreKind(s string) (CoreKind, error) {
	switch strings.ToLower(s) {
	case "minorcpu", "minor", "simpleinorder":
		return SimpleInOrder, nil
	case "derivo3cpu", "o3cpu", "o3", "superscalarooo":
		return SuperscalarOOO, nil
	default:
		return 0, fmt.Errorf("%w: unknown core kind %q", ErrInvalidConfiguration, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k CoreKind) MarshalText() ([]byte, error) {
	name, ok := coreKindNames[k]
	if !ok {
		return nil, fmt.Errorf("%w: unknown core kind %d", ErrInvalidConfiguration, int(k))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *CoreKind) UnmarshalText(text []byte) error {
	parsed, err := ParseCoreKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// MachineConfig is the abstract description of one machine.
type MachineConfig struct {
	Core CoreKind `yaml:"core"`

	// IssueWidth sets every stage width of a SuperscalarOOO core. It is
	// ignored for SimpleInOrder.
	IssueWidth int `yaml:"issue_width,omitempty"`

	// ThreadCount is the number of hardware threads of a SuperscalarOOO
	// core, at most MaxThreads. It is ignored for SimpleInOrder.
	ThreadCount int `yaml:"thread_count,omitempty"`

	// BranchPredictor is attached to the core when set.
	BranchPredictor *bpred.Kind `yaml:"branch_predictor,omitempty"`
}

// String summarizes the configuration for logs.
func (c MachineConfig) String() string {
	var b strings.Builder
	b.WriteString(c.Core.String())
	if c.Core == SuperscalarOOO {
		fmt.Fprintf(&b, " width=%d threads=%d", c.IssueWidth, c.ThreadCount)
	}
	if c.BranchPredictor != nil {
		fmt.Fprintf(&b, " bp=%s", c.BranchPredictor)
	}
	return b.String()
}

// Predictor returns a pointer to k, for use in MachineConfig literals.
func Predictor(k bpred.Kind) *bpred.Kind {
	return &k
}
