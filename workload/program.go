// Package workload binds simulated processes to executable programs.
package workload

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/pipesweep/insts"
)

// DefaultTextBase is where text is placed when a program file omits it.
const DefaultTextBase = 0x1000

// Segment represents an initialized region of the program image.
type Segment struct {
	// VirtAddr is the address where this segment is loaded.
	VirtAddr uint64
	// Data contains the initialized bytes.
	Data []byte
	// MemSize is the size in memory (may be larger than len(Data)).
	MemSize uint64
}

// Program is a loaded executable ready to be bound to hardware threads.
type Program struct {
	Name string
	// EntryPoint is the address where execution begins.
	EntryPoint uint64
	// TextBase is the address of Text[0].
	TextBase uint64
	Text     []insts.Instruction
	Segments []Segment
}

// Footprint returns one past the highest address of the static image.
func (p *Program) Footprint() uint64 {
	end := p.TextBase + uint64(len(p.Text))*insts.InstSize
	for _, seg := range p.Segments {
		size := seg.MemSize
		if uint64(len(seg.Data)) > size {
			size = uint64(len(seg.Data))
		}
		if seg.VirtAddr+size > end {
			end = seg.VirtAddr + size
		}
	}
	return end
}

type programFile struct {
	Name     string        `yaml:"name"`
	TextBase uint64        `yaml:"text_base"`
	Data     []segmentFile `yaml:"data"`
	Text     []instFile    `yaml:"text"`
}

type segmentFile struct {
	Addr  uint64 `yaml:"addr"`
	ASCII string `yaml:"ascii"`
	Bytes []byte `yaml:"bytes"`
	Size  uint64 `yaml:"size"`
}

type instFile struct {
	Label  string `yaml:"label"`
	Op     string `yaml:"op"`
	Rd     uint8  `yaml:"rd"`
	Rn     uint8  `yaml:"rn"`
	Rm     uint8  `yaml:"rm"`
	Imm    int64  `yaml:"imm"`
	Target string `yaml:"target"`
}

// Parse decodes a YAML program description. Branch targets name labels.
func Parse(data []byte) (*Program, error) {
	var f programFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse program: %w", err)
	}

	if len(f.Text) == 0 {
		return nil, fmt.Errorf("program %q has no text", f.Name)
	}

	base := f.TextBase
	if base == 0 {
		base = DefaultTextBase
	}

	labels := make(map[string]uint64)
	for i, in := range f.Text {
		if in.Label == "" {
			continue
		}
		if _, dup := labels[in.Label]; dup {
			return nil, fmt.Errorf("duplicate label %q", in.Label)
		}
		labels[in.Label] = base + uint64(i)*insts.InstSize
	}

	prog := &Program{
		Name:       f.Name,
		EntryPoint: base,
		TextBase:   base,
		Text:       make([]insts.Instruction, 0, len(f.Text)),
	}

	for i, in := range f.Text {
		op, ok := insts.ParseOp(in.Op)
		if !ok {
			return nil, fmt.Errorf("instruction %d: unknown op %q", i, in.Op)
		}

		inst := insts.Instruction{Op: op, Rd: in.Rd, Rn: in.Rn, Rm: in.Rm, Imm: in.Imm}
		if inst.IsBranch() {
			target, ok := labels[in.Target]
			if !ok {
				return nil, fmt.Errorf("instruction %d: unknown branch target %q", i, in.Target)
			}
			inst.Target = target
		}

		prog.Text = append(prog.Text, inst)
	}

	for _, d := range f.Data {
		data := append([]byte(d.ASCII), d.Bytes...)
		size := d.Size
		if size < uint64(len(data)) {
			size = uint64(len(data))
		}
		prog.Segments = append(prog.Segments, Segment{
			VirtAddr: d.Addr,
			Data:     data,
			MemSize:  size,
		})
	}

	return prog, nil
}
