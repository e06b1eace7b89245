package unigram

import (
	"fmt"
	"hash/fnv"
	"log"
	"math"
	"sort"

	"github.com/shredword/trainer/internal/container"
	"github.com/shredword/trainer/internal/normalize"
	"github.com/shredword/trainer/internal/trainerr"
)

// maxTrainingTexts, maxLossSampleTexts, and maxScoringSampleTexts bound the
// outer loop's per-iteration work, mirroring
// original_source/shredword/csrc/unigram/unigram.h's
// MAX_TEXTS_FOR_TRAINING/LOSS/SCORING constants.
const (
	maxTrainingTexts      = 50000
	maxLossSampleTexts    = 2000
	maxScoringSampleTexts = 5000
	lossCacheCapacity     = 100000
)

// Config holds Unigram training parameters.
type Config struct {
	TargetVocabSize int
	MaxPieceLength  int
	SeedSize        int
	MinTokenFreq    uint64
	NumIterations   int
	ReductionRatio  float64
	Logger          *log.Logger
}

type trainState int

const (
	stateUninitialised trainState = iota
	stateCorpusLoaded
	stateSeeded
	stateDone
)

// Trainer runs the Unigram EM-style pruning loop described in spec.md
// §4.K: compute loss, re-score tokens from expected counts, prune the
// weakest candidates, repeat until convergence or num_iterations is spent.
//
// Grounded on original_source/shredword/csrc/unigram/unigram.cpp's
// trainUnigram/computeLoss/updateTokenScores/pruneVocabStep sequence.
type Trainer struct {
	cfg   Config
	texts []string

	lexicon    Lexicon
	trie       *container.Trie
	tokenFreqs map[string]uint64
	lossCache  *container.IntLRU

	state       trainState
	finalTokens []string
	finalScores []float64
}

// NewTrainer validates cfg and returns a Trainer ready for LoadCorpus.
func NewTrainer(cfg Config) (*Trainer, error) {
	if cfg.TargetVocabSize < 1 {
		return nil, &trainerr.ConfigError{Reason: fmt.Sprintf("vocab_size %d must be positive", cfg.TargetVocabSize)}
	}
	if cfg.TargetVocabSize > math.MaxInt32 {
		return nil, &trainerr.OutOfMemoryError{
			Reason: fmt.Sprintf("vocab_size %d would overflow the int32 token id space", cfg.TargetVocabSize),
		}
	}
	if cfg.MaxPieceLength <= 0 {
		cfg.MaxPieceLength = DefaultMaxPieceLength
	}
	if cfg.SeedSize <= 0 {
		cfg.SeedSize = DefaultSeedSize
	}
	if cfg.SeedSize > math.MaxInt32 {
		return nil, &trainerr.OutOfMemoryError{
			Reason: fmt.Sprintf("seed_size %d is too large to allocate a candidate lexicon for", cfg.SeedSize),
		}
	}
	if cfg.MinTokenFreq == 0 {
		cfg.MinTokenFreq = DefaultMinTokenFreq
	}
	if cfg.NumIterations <= 0 {
		cfg.NumIterations = DefaultNumIterations
	}
	if cfg.ReductionRatio <= 0 || cfg.ReductionRatio >= 1 {
		cfg.ReductionRatio = DefaultReductionRatio
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Trainer{cfg: cfg}, nil
}

// LoadCorpus normalizes raw lines and keeps up to maxTrainingTexts
// non-empty sentences as the training set.
func (t *Trainer) LoadCorpus(lines []string) error {
	if t.state != stateUninitialised {
		return fmt.Errorf("unigram: LoadCorpus called out of order")
	}
	var texts []string
	for _, raw := range lines {
		norm := normalize.Normalize(raw)
		if norm == "" {
			continue
		}
		texts = append(texts, norm)
	}
	if len(texts) == 0 {
		return &trainerr.EmptyCorpusError{Path: "<corpus>"}
	}
	if len(texts) > maxTrainingTexts {
		texts = texts[:maxTrainingTexts]
	}
	t.texts = texts
	t.state = stateCorpusLoaded
	return nil
}

// Seed builds the initial over-sized candidate lexicon. This is spec.md
// §4.J's seed construction, run once before the outer EM loop.
func (t *Trainer) Seed() error {
	if t.state != stateCorpusLoaded {
		return fmt.Errorf("unigram: Seed called before LoadCorpus")
	}
	t.lexicon, t.trie = BuildSeedLexicon(t.texts, t.cfg.MaxPieceLength, t.cfg.SeedSize, t.cfg.MinTokenFreq)
	t.tokenFreqs = make(map[string]uint64)
	for _, tf := range t.trie.CollectAll() {
		t.tokenFreqs[tf.Token] = uint64(tf.Freq)
	}
	t.lossCache = container.NewIntLRU(lossCacheCapacity)
	t.state = stateSeeded
	return nil
}

func sentenceCacheKey(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

// A per-sentence loss is a float64 but container.IntLRU's value slot is
// int64, matching spec.md §4.E's literal contract; lossless bit
// reinterpretation lets the cache hold either without a second cache type.
func lossToCacheValue(loss float64) int64 {
	return int64(math.Float64bits(loss))
}

func cacheValueToLoss(v int64) float64 {
	return math.Float64frombits(uint64(v))
}

// computeLoss is spec.md §4.K step 1: mean per-byte negative log-likelihood
// of the current lexicon's best segmentation over a bounded sample.
func (t *Trainer) computeLoss() float64 {
	sample := t.texts
	if len(sample) > maxLossSampleTexts {
		sample = sample[:maxLossSampleTexts]
	}
	var totalLoss float64
	var totalLen int
	for _, text := range sample {
		key := sentenceCacheKey(text)
		if cached := t.lossCache.Get(key); cached != container.Miss {
			totalLoss += cacheValueToLoss(cached)
			totalLen += len(text)
			continue
		}
		pieces := Segment(text, t.lexicon, t.cfg.MaxPieceLength)
		var textLoss float64
		for _, p := range pieces {
			textLoss -= t.lexicon.Score(p)
		}
		t.lossCache.Put(key, lossToCacheValue(textLoss))
		totalLoss += textLoss
		totalLen += len(text)
	}
	if totalLen == 0 {
		return 0
	}
	return totalLoss / float64(totalLen)
}

// updateTokenScores is spec.md §4.K step 3: segment a bounded sample,
// tally realised piece counts per token, and re-score
// score(t) = log(count(t)) - log(total_count). Tokens never observed in
// the sample retain a count of 1 so they keep a tiny probability mass.
func (t *Trainer) updateTokenScores() {
	sample := t.texts
	if len(sample) > maxScoringSampleTexts {
		sample = sample[:maxScoringSampleTexts]
	}
	observed := make(map[string]uint64)
	for _, text := range sample {
		for _, p := range Segment(text, t.lexicon, t.cfg.MaxPieceLength) {
			if _, ok := t.lexicon[p]; ok {
				observed[p]++
			}
		}
	}
	var total uint64
	for _, c := range observed {
		total += c
	}
	if total == 0 {
		return
	}
	logTotal := math.Log(float64(total))
	for tok := range t.lexicon {
		count := observed[tok]
		if count == 0 {
			count = 1
		}
		t.lexicon[tok] = math.Log(float64(count)) - logTotal
		if _, ok := t.tokenFreqs[tok]; ok {
			t.tokenFreqs[tok] = count
		}
	}
}

// tokenLossIncrease estimates the loss increase from removing tok: the
// count(t)*|score(t)| heuristic named in spec.md §9 as one of the
// original's three acceptable variants, chosen here for its constant-time
// cost relative to a full re-Viterbi without the token.
func (t *Trainer) tokenLossIncrease(tok string) float64 {
	count := t.tokenFreqs[tok]
	if count == 0 {
		count = 1
	}
	return float64(count) * math.Abs(t.lexicon[tok])
}

// prune is spec.md §4.K step 4: if the lexicon exceeds target_vocab_size,
// remove the weakest multi-byte candidates until
// max(target, floor(reduction_ratio*|lexicon|)) remain. Single-byte tokens
// are never removed.
func (t *Trainer) prune() {
	current := len(t.lexicon)
	if current <= t.cfg.TargetVocabSize {
		return
	}
	target := t.cfg.TargetVocabSize
	if floor := int(float64(current) * t.cfg.ReductionRatio); floor > target {
		target = floor
	}
	toRemove := current - target
	if toRemove <= 0 {
		return
	}

	type candidate struct {
		token string
		loss  float64
	}
	var candidates []candidate
	for tok := range t.lexicon {
		if len(tok) <= 1 {
			continue
		}
		candidates = append(candidates, candidate{tok, t.tokenLossIncrease(tok)})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].loss != candidates[j].loss {
			return candidates[i].loss < candidates[j].loss
		}
		return candidates[i].token < candidates[j].token
	})
	if toRemove > len(candidates) {
		toRemove = len(candidates)
	}
	for i := 0; i < toRemove; i++ {
		tok := candidates[i].token
		delete(t.lexicon, tok)
		delete(t.tokenFreqs, tok)
		t.trie.Remove(tok)
	}
}

// Train runs the outer EM loop for up to NumIterations, stopping early on
// convergence, then finalises and returns the resulting lexicon size.
func (t *Trainer) Train() (int, error) {
	if t.state != stateSeeded {
		if err := t.Seed(); err != nil {
			return 0, err
		}
	}
	prevLoss := math.MaxFloat64
	for iter := 0; iter < t.cfg.NumIterations; iter++ {
		currentLoss := t.computeLoss()
		if math.Abs(prevLoss-currentLoss) < ConvergenceThreshold {
			t.cfg.Logger.Printf("unigram: convergence reached after %d iterations (loss cache held %d entries)", iter, t.lossCache.Len())
			break
		}
		prevLoss = currentLoss
		t.updateTokenScores()
		t.prune()
		t.lossCache = container.NewIntLRU(lossCacheCapacity)
	}
	t.finalize()
	t.state = stateDone
	return len(t.finalTokens), nil
}

// finalize partitions the lexicon into single-byte and multi-byte tokens,
// sorts the multi-byte tokens by score descending, and keeps single bytes
// plus the top target_vocab_size-|single_byte| multi-byte tokens. This is
// spec.md §4.K's finalisation step.
func (t *Trainer) finalize() {
	var singles []string
	var multi []string
	for tok := range t.lexicon {
		if len(tok) == 1 {
			singles = append(singles, tok)
		} else {
			multi = append(multi, tok)
		}
	}
	sort.Slice(multi, func(i, j int) bool {
		si, sj := t.lexicon[multi[i]], t.lexicon[multi[j]]
		if si != sj {
			return si > sj
		}
		return multi[i] < multi[j]
	})
	sort.Strings(singles)

	limit := t.cfg.TargetVocabSize - len(singles)
	if limit > len(multi) {
		limit = len(multi)
	}
	if limit < 0 {
		limit = 0
	}
	multi = multi[:limit]

	t.finalTokens = append(append([]string{}, singles...), multi...)
	t.finalScores = make([]float64, len(t.finalTokens))
	for i, tok := range t.finalTokens {
		t.finalScores[i] = t.lexicon[tok]
	}
}

// Vocabulary returns the finalised (token, score) pairs produced by Train,
// sorted by score descending as spec.md §6 requires for the saved vocab
// file.
func (t *Trainer) Vocabulary() []TokenScore {
	out := make([]TokenScore, len(t.finalTokens))
	for i, tok := range t.finalTokens {
		out[i] = TokenScore{Token: tok, Score: t.finalScores[i]}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Token < out[j].Token
	})
	return out
}

// TokenScore pairs a vocabulary token with its final log-probability score.
type TokenScore struct {
	Token string
	Score float64
}
