package bpred

// biMode splits the pattern history into a taken-biased and a
// not-taken-biased table, both indexed by PC xor global history. A
// PC-indexed choice table selects which of the two supplies the prediction.
type biMode struct {
	choice   []uint8
	taken    []uint8
	notTaken []uint8

	choiceSize uint32
	phtSize    uint32
	hist       history
	stats      Stats
}

func newBiMode(config Config) *biMode {
	p := &biMode{
		choice:     make([]uint8, config.ChoiceSize),
		taken:      make([]uint8, config.PHTSize),
		notTaken:   make([]uint8, config.PHTSize),
		choiceSize: config.ChoiceSize,
		phtSize:    config.PHTSize,
		hist:       newHistory(config.NumThreads, config.HistoryBits),
	}
	p.Reset()
	return p
}

func (p *biMode) Kind() Kind {
	return KindBiMode
}

// lookup returns the choice counter and the selected direction counter.
func (p *biMode) lookup(tid int, pc uint64) (*uint8, *uint8) {
	choice := &p.choice[pcIndex(pc, p.choiceSize)]
	idx := (uint32(pc>>2) ^ p.hist.get(tid)) & (p.phtSize - 1)

	if counterTaken(*choice) {
		return choice, &p.taken[idx]
	}
	return choice, &p.notTaken[idx]
}

func (p *biMode) Predict(tid int, pc uint64) bool {
	p.stats.Lookups++
	_, dir := p.lookup(tid, pc)
	return counterTaken(*dir)
}

func (p *biMode) Update(tid int, pc uint64, taken bool) {
	choice, dir := p.lookup(tid, pc)
	predicted := counterTaken(*dir)
	p.stats.record(predicted, taken)

	// The choice table is left alone when it pointed the wrong way but the
	// selected table still predicted correctly.
	if !(counterTaken(*choice) != taken && predicted == taken) {
		train(choice, taken)
	}
	train(dir, taken)

	p.hist.push(tid, taken)
}

func (p *biMode) Stats() Stats {
	return p.stats
}

func (p *biMode) Reset() {
	fill(p.choice, weaklyTaken)
	fill(p.taken, weaklyTaken)
	fill(p.notTaken, weaklyNotTaken)
	p.hist.reset()
	p.stats = Stats{}
}
