package unigram

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnumerateAllSubstringsUpToMaxLen(t *testing.T) {
	got := Enumerate("ab", 2)
	sort.Strings(got)
	assert.Equal(t, []string{"a", "ab", "b"}, got)
}

func TestEnumerateDeduplicatesRepeats(t *testing.T) {
	got := Enumerate("aaa", 1)
	assert.Equal(t, []string{"a"}, got)
}

func TestEnumerateRespectsMaxLen(t *testing.T) {
	got := Enumerate("abcd", 2)
	for _, s := range got {
		assert.LessOrEqual(t, len(s), 2)
	}
}

func TestBuildSeedLexiconContainsEveryObservedByte(t *testing.T) {
	texts := []string{"banana", "bandana"}
	lex, trie := BuildSeedLexicon(texts, 8, 1_000_000, 1)
	for _, b := range []byte("banand") {
		tok := string([]byte{b})
		_, ok := lex[tok]
		assert.True(t, ok, "byte %q missing from seed lexicon", tok)
		_, found := trie.Search(tok)
		assert.True(t, found)
	}
}

func TestBuildSeedLexiconIncludesFrequentMultiByteCandidate(t *testing.T) {
	texts := make([]string, 20)
	for i := range texts {
		texts[i] = "banana"
	}
	lex, _ := BuildSeedLexicon(texts, 8, 1_000_000, 1)
	_, ok := lex["ana"]
	assert.True(t, ok)
}

func TestBuildSeedLexiconRespectsSeedSizeCap(t *testing.T) {
	texts := []string{"abcdefghijklmnopqrstuvwxyz"}
	lex, _ := BuildSeedLexicon(texts, 4, 5, 1)
	multiByte := 0
	for tok := range lex {
		if len(tok) > 1 {
			multiByte++
		}
	}
	assert.LessOrEqual(t, multiByte, 5)
}
