package unigram

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shredword/trainer/internal/trainerr"
)

func repeatLines(line string, n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = line
	}
	return lines
}

func newTestTrainer(t *testing.T, vocabSize, numIterations int) *Trainer {
	tr, err := NewTrainer(Config{
		TargetVocabSize: vocabSize,
		MaxPieceLength:  16,
		NumIterations:   numIterations,
		MinTokenFreq:    1,
	})
	require.NoError(t, err)
	return tr
}

func TestNewTrainerRejectsVocabSizeOverflowingInt32(t *testing.T) {
	_, err := NewTrainer(Config{TargetVocabSize: math.MaxInt32 + 1})
	require.Error(t, err)
	var oomErr *trainerr.OutOfMemoryError
	assert.ErrorAs(t, err, &oomErr)
}

func TestNewTrainerRejectsSeedSizeOverflowingInt32(t *testing.T) {
	_, err := NewTrainer(Config{TargetVocabSize: 300, SeedSize: math.MaxInt32 + 1})
	require.Error(t, err)
	var oomErr *trainerr.OutOfMemoryError
	assert.ErrorAs(t, err, &oomErr)
}

func TestLoadCorpusRejectsEmptyInput(t *testing.T) {
	tr := newTestTrainer(t, 12, 5)
	err := tr.LoadCorpus([]string{"", "   "})
	assert.Error(t, err)
}

// Boundary: a one-byte one-line corpus produces a lexicon of exactly one
// token.
func TestBoundarySingleByteCorpusYieldsOneToken(t *testing.T) {
	tr := newTestTrainer(t, 300, 5)
	require.NoError(t, tr.LoadCorpus([]string{"a"}))
	n, err := tr.Train()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "a", tr.Vocabulary()[0].Token)
}

// Invariant: the lexicon never prunes away a single-byte token, even when
// the alphabet alone exceeds target_vocab_size.
func TestSingleByteTokensSurviveEvenWhenAlphabetExceedsTarget(t *testing.T) {
	tr, err := NewTrainer(Config{TargetVocabSize: 3, MaxPieceLength: 8, NumIterations: 3, MinTokenFreq: 1})
	require.NoError(t, err)
	require.NoError(t, tr.LoadCorpus(repeatLines("abcdefgh", 20)))
	_, err = tr.Train()
	require.NoError(t, err)
	present := make(map[string]bool)
	for _, tf := range tr.Vocabulary() {
		present[tf.Token] = true
	}
	for _, b := range "abcdefgh" {
		assert.True(t, present[string(b)], "byte %q must survive pruning", b)
	}
}

// Scenario 5 (relaxed): a small corpus of a repeated two-word sentence
// yields a lexicon at or under the target size that still contains every
// observed byte, and a Viterbi segmentation of the corpus text that
// reconstructs exactly.
func TestScenarioTheCatCorpusUnigram(t *testing.T) {
	tr := newTestTrainer(t, 12, 5)
	require.NoError(t, tr.LoadCorpus(repeatLines("the cat", 100)))
	n, err := tr.Train()
	require.NoError(t, err)
	assert.LessOrEqual(t, n, 12)

	vocab := tr.Vocabulary()
	lex := make(Lexicon, len(vocab))
	tokens := make(map[string]bool)
	for _, tf := range vocab {
		lex[tf.Token] = tf.Score
		tokens[tf.Token] = true
	}
	for _, b := range []byte("the▁cat") {
		assert.True(t, tokens[string([]byte{b})]) // every byte present
	}

	pieces := Segment("the▁cat", lex, 16)
	assert.Equal(t, "the▁cat", strings.Join(pieces, ""))
}

// The final vocabulary is returned sorted by score descending, the order
// the saved vocab file is written in. The save/load round trip itself is
// tested in internal/modelio.
func TestVocabularyIsSortedByScoreDescending(t *testing.T) {
	tr := newTestTrainer(t, 12, 5)
	require.NoError(t, tr.LoadCorpus(repeatLines("the cat sat", 100)))
	_, err := tr.Train()
	require.NoError(t, err)
	vocab := tr.Vocabulary()
	for i := 1; i < len(vocab); i++ {
		assert.GreaterOrEqual(t, vocab[i-1].Score, vocab[i].Score)
	}
}

func TestSeedCalledImplicitlyByTrain(t *testing.T) {
	tr := newTestTrainer(t, 20, 2)
	require.NoError(t, tr.LoadCorpus(repeatLines("hello world", 10)))
	n, err := tr.Train()
	require.NoError(t, err)
	assert.Greater(t, n, 0)
}
