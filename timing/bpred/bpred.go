// Package bpred provides the conditional branch direction predictors that
// can be attached to a core.
package bpred

import (
	"fmt"
	"strings"
)

// Kind identifies a predictor implementation.
type Kind int

// Predictor kinds.
const (
	KindBiMode Kind = iota + 1
	KindLocal
	KindTournament
)

var kindNames = map[Kind]string{
	KindBiMode:     "BiModeBP",
	KindLocal:      "LocalBP",
	KindTournament: "TournamentBP",
}

// String returns the predictor name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Valid reports whether k names a known predictor.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind accepts "BiModeBP", "bimode", "BiMode" and so on.
func ParseKind(s string) (Kind, error) {
	norm := strings.TrimSuffix(strings.ToLower(s), "bp")
	for k, name := range kindNames {
		if strings.TrimSuffix(strings.ToLower(name), "bp") == norm {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown branch predictor %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("unknown branch predictor kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Stats holds statistics for a branch predictor.
type Stats struct {
	// Lookups is the number of predictions made.
	Lookups uint64
	// Correct is the number of correct predictions.
	Correct uint64
	// Incorrect is the number of mispredictions.
	Incorrect uint64
}

// Accuracy returns the prediction accuracy as a percentage.
func (s Stats) Accuracy() float64 {
	total := s.Correct + s.Incorrect
	if total == 0 {
		return 0
	}
	return float64(s.Correct) / float64(total) * 100
}

// Predictor predicts conditional branch directions. Each hardware thread
// keeps its own global history; tables are shared.
type Predictor interface {
	Kind() Kind
	// Predict returns true if the branch at pc is predicted taken.
	Predict(tid int, pc uint64) bool
	// Update trains the predictor with the resolved direction. It must be
	// called once per Predict, before the next Predict of the same thread.
	Update(tid int, pc uint64, taken bool)
	Stats() Stats
	Reset()
}

// Config sizes the predictor tables. Sizes must be powers of 2.
type Config struct {
	// PHTSize is the number of entries in each pattern history table.
	PHTSize uint32
	// ChoiceSize is the number of entries in the choice/chooser table.
	ChoiceSize uint32
	// HistoryBits is the length of the per-thread global history.
	HistoryBits uint
	// NumThreads is the number of hardware threads sharing the predictor.
	NumThreads int
}

// DefaultConfig returns a default configuration for numThreads threads.
func DefaultConfig(numThreads int) Config {
	return Config{
		PHTSize:     2048,
		ChoiceSize:  8192,
		HistoryBits: 12,
		NumThreads:  numThreads,
	}
}

func (c Config) validate() error {
	if c.PHTSize == 0 || c.PHTSize&(c.PHTSize-1) != 0 {
		return fmt.Errorf("pht size %d is not a power of 2", c.PHTSize)
	}
	if c.ChoiceSize == 0 || c.ChoiceSize&(c.ChoiceSize-1) != 0 {
		return fmt.Errorf("choice size %d is not a power of 2", c.ChoiceSize)
	}
	if c.HistoryBits == 0 || c.HistoryBits > 32 {
		return fmt.Errorf("history bits must be in [1, 32], got %d", c.HistoryBits)
	}
	if c.NumThreads <= 0 {
		return fmt.Errorf("num threads must be > 0, got %d", c.NumThreads)
	}
	return nil
}

// New creates a predictor of the given kind.
func New(kind Kind, config Config) (Predictor, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	switch kind {
	case KindBiMode:
		return newBiMode(config), nil
	case KindLocal:
		return newLocal(config), nil
	case KindTournament:
		return newTournament(config), nil
	default:
		return nil, fmt.Errorf("unknown branch predictor kind %d", int(kind))
	}
}

// 2-bit saturating counter states: 0=Strongly Not Taken, 1=Weakly Not Taken,
// 2=Weakly Taken, 3=Strongly Taken.
const (
	weaklyNotTaken uint8 = 1
	weaklyTaken    uint8 = 2
)

func counterTaken(c uint8) bool {
	return c >= 2
}

func train(c *uint8, taken bool) {
	if taken {
		if *c < 3 {
			*c++
		}
	} else if *c > 0 {
		*c--
	}
}

func fill(table []uint8, v uint8) {
	for i := range table {
		table[i] = v
	}
}

func pcIndex(pc uint64, size uint32) uint32 {
	return uint32((pc >> 2) & uint64(size-1))
}

// history tracks the per-thread global branch history.
type history struct {
	bits []uint32
	mask uint32
}

func newHistory(numThreads int, length uint) history {
	return history{
		bits: make([]uint32, numThreads),
		mask: uint32((uint64(1) << length) - 1),
	}
}

func (h *history) get(tid int) uint32 {
	return h.bits[tid]
}

func (h *history) push(tid int, taken bool) {
	v := h.bits[tid] << 1
	if taken {
		v |= 1
	}
	h.bits[tid] = v & h.mask
}

func (h *history) reset() {
	for i := range h.bits {
		h.bits[i] = 0
	}
}

func (s *Stats) record(predicted, taken bool) {
	if predicted == taken {
		s.Correct++
	} else {
		s.Incorrect++
	}
}
