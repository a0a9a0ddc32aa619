// Package stats provides the named counter registry shared by all simulated
// components of a run.
//
// Counters are created on first use and keep their storage for the lifetime
// of the Registry. A component built for a later run that asks for the same
// name gets the same counter back, so values accumulate across runs unless
// the registry is reset in between.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
)

// Scalar is a monotonically increasing counter.
type Scalar struct {
	name  string
	desc  string
	value uint64
}

// Name returns the counter name.
func (s *Scalar) Name() string {
	return s.name
}

// Desc returns the counter description.
func (s *Scalar) Desc() string {
	return s.desc
}

// Inc adds one.
func (s *Scalar) Inc() {
	s.value++
}

// Add adds n.
func (s *Scalar) Add(n uint64) {
	s.value += n
}

// Value returns the current value.
func (s *Scalar) Value() uint64 {
	return s.value
}

type formula struct {
	desc string
	fn   func() float64
}

// Registry holds scalars and formulas by name.
type Registry struct {
	scalars  map[string]*Scalar
	formulas map[string]formula
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		scalars:  make(map[string]*Scalar),
		formulas: make(map[string]formula),
	}
}

// Scalar returns the counter with the given name, creating it if needed.
func (r *Registry) Scalar(name, desc string) *Scalar {
	if s, ok := r.scalars[name]; ok {
		if desc != "" {
			s.desc = desc
		}
		return s
	}

	s := &Scalar{name: name, desc: desc}
	r.scalars[name] = s
	return s
}

// Formula registers a value derived from other counters. Registering a name
// again replaces the previous formula.
func (r *Registry) Formula(name, desc string, fn func() float64) {
	r.formulas[name] = formula{desc: desc, fn: fn}
}

// Value returns the current value of a scalar or formula.
func (r *Registry) Value(name string) (float64, bool) {
	if s, ok := r.scalars[name]; ok {
		return float64(s.value), true
	}
	if f, ok := r.formulas[name]; ok {
		return f.fn(), true
	}
	return 0, false
}

// Names returns all scalar and formula names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.scalars)+len(r.formulas))
	for name := range r.scalars {
		names = append(names, name)
	}
	for name := range r.formulas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset zeroes every scalar. Formulas follow their inputs.
func (r *Registry) Reset() {
	for _, s := range r.scalars {
		s.value = 0
	}
}

// Snapshot captures the current value of every scalar and formula.
func (r *Registry) Snapshot() Snapshot {
	snap := Snapshot{values: make(map[string]float64)}
	for _, name := range r.Names() {
		v, _ := r.Value(name)
		snap.values[name] = v
		snap.names = append(snap.names, name)
	}
	return snap
}

// SnapshotAndReset captures all values and then resets the registry.
// Calling it twice in a row is harmless: the second snapshot is all zero.
func (r *Registry) SnapshotAndReset() Snapshot {
	snap := r.Snapshot()
	r.Reset()
	return snap
}

// Dump writes every value as "name value # description" lines between
// begin/end markers.
func (r *Registry) Dump(w io.Writer) error {
	if _, err := fmt.Fprintln(w, "\n---------- Begin Simulation Statistics ----------"); err != nil {
		return err
	}

	for _, name := range r.Names() {
		v, _ := r.Value(name)
		desc := ""
		if s, ok := r.scalars[name]; ok {
			desc = s.desc
		} else {
			desc = r.formulas[name].desc
		}

		if _, err := fmt.Fprintf(w, "%-52s %20s # %s\n", name, formatValue(v), desc); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(w, "\n---------- End Simulation Statistics   ----------")
	return err
}

func formatValue(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "nan"
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.6f", v)
}

// Snapshot is an immutable copy of the registry values.
type Snapshot struct {
	values map[string]float64
	names  []string
}

// Get returns a value, or 0 if the name was not registered.
func (s Snapshot) Get(name string) float64 {
	return s.values[name]
}

// Uint returns a value truncated to an unsigned integer.
func (s Snapshot) Uint(name string) uint64 {
	v := s.values[name]
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	return uint64(v)
}

// Has reports whether the name was registered.
func (s Snapshot) Has(name string) bool {
	_, ok := s.values[name]
	return ok
}

// Names returns the captured names in sorted order.
func (s Snapshot) Names() []string {
	return s.names
}

// Ratio returns num/den, or 0 when den is 0.
func Ratio(num, den *Scalar) func() float64 {
	return func() float64 {
		if den.Value() == 0 {
			return 0
		}
		return float64(num.Value()) / float64(den.Value())
	}
}
