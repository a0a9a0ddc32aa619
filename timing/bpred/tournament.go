package bpred

// tournament runs a PC-indexed local predictor and a history-indexed global
// predictor side by side; a history-indexed chooser picks between them.
type tournament struct {
	local   []uint8
	global  []uint8
	chooser []uint8

	phtSize    uint32
	choiceSize uint32
	hist       history
	stats      Stats
}

func newTournament(config Config) *tournament {
	p := &tournament{
		local:      make([]uint8, config.PHTSize),
		global:     make([]uint8, config.ChoiceSize),
		chooser:    make([]uint8, config.ChoiceSize),
		phtSize:    config.PHTSize,
		choiceSize: config.ChoiceSize,
		hist:       newHistory(config.NumThreads, config.HistoryBits),
	}
	p.Reset()
	return p
}

func (p *tournament) Kind() Kind {
	return KindTournament
}

func (p *tournament) counters(tid int, pc uint64) (l, g, c *uint8) {
	gidx := p.hist.get(tid) & (p.choiceSize - 1)
	return &p.local[pcIndex(pc, p.phtSize)], &p.global[gidx], &p.chooser[gidx]
}

func (p *tournament) Predict(tid int, pc uint64) bool {
	p.stats.Lookups++
	l, g, c := p.counters(tid, pc)
	if counterTaken(*c) {
		return counterTaken(*g)
	}
	return counterTaken(*l)
}

func (p *tournament) Update(tid int, pc uint64, taken bool) {
	l, g, c := p.counters(tid, pc)
	localTaken := counterTaken(*l)
	globalTaken := counterTaken(*g)

	predicted := localTaken
	if counterTaken(*c) {
		predicted = globalTaken
	}
	p.stats.record(predicted, taken)

	// Chooser moves towards global when only global was right, and towards
	// local when only local was right.
	if localTaken != globalTaken {
		train(c, globalTaken == taken)
	}
	train(l, taken)
	train(g, taken)

	p.hist.push(tid, taken)
}

func (p *tournament) Stats() Stats {
	return p.stats
}

func (p *tournament) Reset() {
	fill(p.local, weaklyTaken)
	fill(p.global, weaklyTaken)
	fill(p.chooser, weaklyTaken)
	p.hist.reset()
	p.stats = Stats{}
}
