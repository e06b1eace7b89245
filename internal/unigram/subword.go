package unigram

import (
	"math"
	"sort"

	"github.com/shredword/trainer/internal/container"
)

// Defaults mirror spec.md §6's configuration defaults for the Unigram
// model.
const (
	DefaultVocabSize        = 32000
	DefaultMaxPieceLength   = 16
	DefaultSeedSize         = 1_000_000
	DefaultMinTokenFreq     = 1
	DefaultNumIterations    = 10
	DefaultReductionRatio   = 0.8
	ConvergenceThreshold    = 0.001
	sampleTextLimitForSeeds = 10000
)

// Enumerate returns the deduplicated set of contiguous substrings of text
// no longer than maxLen bytes, grounded on
// original_source/shredword/csrc/unigram/subword.cpp's extractSubwords.
func Enumerate(text string, maxLen int) []string {
	n := len(text)
	seen := make(map[string]bool)
	var out []string
	for i := 0; i < n; i++ {
		limit := i + maxLen
		if limit > n {
			limit = n
		}
		for j := i + 1; j <= limit; j++ {
			s := text[i:j]
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

// BuildSeedLexicon constructs the initial, over-sized candidate vocabulary
// per spec.md §4.J's four steps:
//  1. every observed byte is seeded unconditionally;
//  2. multi-byte candidates are enumerated from a bounded text sample;
//  3. candidates are re-counted (by document frequency, i.e. number of
//     texts containing the candidate at least once) across the full set;
//  4. candidates meeting minTokenFreq are inserted, capped at seedSize.
//
// Grounded on unigram.cpp's extractInitialSubwords.
func BuildSeedLexicon(texts []string, maxPieceLen, seedSize int, minTokenFreq uint64) (Lexicon, *container.Trie) {
	lex := make(Lexicon)
	trie := container.NewTrie()

	byteFreq := make(map[byte]uint64)
	for _, text := range texts {
		for i := 0; i < len(text); i++ {
			byteFreq[text[i]]++
		}
	}
	for b, freq := range byteFreq {
		tok := string([]byte{b})
		lex[tok] = math.Log(float64(freq))
		trie.Insert(tok, freqAsUint32(freq))
	}

	sampleLimit := len(texts)
	if sampleLimit > sampleTextLimitForSeeds {
		sampleLimit = sampleTextLimitForSeeds
	}
	candidates := make(map[string]bool)
	for i := 0; i < sampleLimit; i++ {
		for _, s := range Enumerate(texts[i], maxPieceLen) {
			if len(s) <= 1 {
				continue // single bytes are already seeded unconditionally
			}
			candidates[s] = true
		}
	}

	counts := make(map[string]uint64)
	for _, text := range texts {
		for _, s := range Enumerate(text, maxPieceLen) {
			if candidates[s] {
				counts[s]++
			}
		}
	}

	type scored struct {
		token string
		count uint64
	}
	var ranked []scored
	for tok, count := range counts {
		if count < minTokenFreq {
			continue
		}
		ranked = append(ranked, scored{tok, count})
	}
	// Deterministic priority by descending count (the original's heap
	// cutoff depends on hashmap iteration order, which Go's maps don't
	// reproduce; sorting gives a stable, reproducible seed set instead).
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].token < ranked[j].token
	})
	if len(ranked) > seedSize {
		ranked = ranked[:seedSize]
	}
	for _, r := range ranked {
		lex[r.token] = math.Log(float64(r.count))
		trie.Insert(r.token, freqAsUint32(r.count))
	}

	return lex, trie
}

func freqAsUint32(v uint64) uint32 {
	if v > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}
