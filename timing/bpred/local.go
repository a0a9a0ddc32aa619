package bpred

// local is a 2-bit saturating counter (bimodal) predictor indexed by PC.
type local struct {
	bht   []uint8
	size  uint32
	stats Stats
}

func newLocal(config Config) *local {
	p := &local{
		bht:  make([]uint8, config.PHTSize),
		size: config.PHTSize,
	}
	p.Reset()
	return p
}

func (p *local) Kind() Kind {
	return KindLocal
}

func (p *local) Predict(_ int, pc uint64) bool {
	p.stats.Lookups++
	return counterTaken(p.bht[pcIndex(pc, p.size)])
}

func (p *local) Update(_ int, pc uint64, taken bool) {
	c := &p.bht[pcIndex(pc, p.size)]
	p.stats.record(counterTaken(*c), taken)
	train(c, taken)
}

func (p *local) Stats() Stats {
	return p.stats
}

// Reset biases every counter towards taken and clears statistics.
func (p *local) Reset() {
	fill(p.bht, weaklyTaken)
	p.stats = Stats{}
}
