package bpe

// pairIndex is the authoritative map from an adjacent token-id pair to its
// current frequency across the corpus, keyed by the packed 64-bit
// (left<<32)|right per spec, with a monotonic version counter bumped on
// every frequency change so heap entries can be lazily invalidated.
type pairIndex struct {
	entries map[uint64]*pairEntry
}

type pairEntry struct {
	freq    uint64
	version uint64
}

func newPairIndex() *pairIndex {
	return &pairIndex{entries: make(map[uint64]*pairEntry)}
}

func packPair(left, right int32) uint64 {
	return uint64(uint32(left))<<32 | uint64(uint32(right))
}

func unpackPair(key uint64) (left, right int32) {
	return int32(key >> 32), int32(uint32(key))
}

// get returns the entry for key, creating a zero entry if absent. Missing
// keys behave as {freq: 0, version: 0} on first access, per spec.
func (p *pairIndex) get(key uint64) *pairEntry {
	e, ok := p.entries[key]
	if !ok {
		e = &pairEntry{}
		p.entries[key] = e
	}
	return e
}

// Freq returns the current frequency and version for (left, right) without
// creating an entry.
func (p *pairIndex) Freq(left, right int32) (freq, version uint64) {
	e, ok := p.entries[packPair(left, right)]
	if !ok {
		return 0, 0
	}
	return e.freq, e.version
}

// Increment adjusts the frequency for (left, right) by delta, clamping at
// zero on underflow, and bumps the version whenever the stored frequency
// actually changes. It returns the new frequency and version.
func (p *pairIndex) Increment(left, right int32, delta int64) (freq, version uint64) {
	e := p.get(packPair(left, right))
	old := e.freq
	if delta < 0 {
		abs := uint64(-delta)
		if e.freq >= abs {
			e.freq -= abs
		} else {
			e.freq = 0
		}
	} else {
		e.freq += uint64(delta)
	}
	if e.freq != old {
		e.version++
	}
	return e.freq, e.version
}

// Set overwrites the frequency for (left, right) outright and bumps the
// version if it changed. Used to recompute an authoritative count.
func (p *pairIndex) Set(left, right int32, freq uint64) (version uint64) {
	e := p.get(packPair(left, right))
	if e.freq != freq {
		e.freq = freq
		e.version++
	}
	return e.version
}

// Zero clears the frequency for (left, right), bumping the version. Used
// once a pair has just been fully merged away.
func (p *pairIndex) Zero(left, right int32) {
	e := p.get(packPair(left, right))
	if e.freq != 0 {
		e.freq = 0
		e.version++
	}
}
