// Package unigram implements the Unigram language-model vocabulary trainer:
// Viterbi segmentation over a scored lexicon, a subword extractor that
// builds the initial over-sized candidate vocabulary, and the EM-style
// outer loop that re-scores and prunes it down to the target size.
//
// Grounded on original_source/shredword/csrc/unigram/{unigram,subword}.cpp.
package unigram

import "math"

// Lexicon maps a token string to its current log-probability score. The
// trainer mutates it in place across iterations; a plain map is sufficient
// since training is single-threaded throughout (no concurrent readers).
type Lexicon map[string]float64

// dpCell is a Viterbi DP cell: the best cumulative score reachable at a
// byte offset, and the offset it was reached from.
type dpCell struct {
	score  float64
	parent int
}

var negInf = math.Inf(-1)

// Segment computes the maximum-score segmentation of text under lexicon,
// per spec.md §4.I. maxPieceLen bounds how far ahead each DP step looks.
//
// If no position reaches the end (every byte in text falls outside the
// lexicon's reach), the fallback is one token per input byte rather than
// leaving the text unsegmented.
func Segment(text string, lexicon Lexicon, maxPieceLen int) []string {
	n := len(text)
	if n == 0 {
		return nil
	}
	dp := make([]dpCell, n+1)
	for i := 1; i <= n; i++ {
		dp[i] = dpCell{score: negInf, parent: -1}
	}
	dp[0] = dpCell{score: 0, parent: -1}

	// i ascends outward from 0, so among positions tied on score the
	// smallest i (longest piece ending at j) is written first and a
	// strictly-greater later write can never displace it.
	for i := 0; i < n; i++ {
		if dp[i].score == negInf {
			continue
		}
		limit := i + maxPieceLen
		if limit > n {
			limit = n
		}
		for j := i + 1; j <= limit; j++ {
			piece := text[i:j]
			score, ok := lexicon[piece]
			if !ok {
				continue
			}
			candidate := dp[i].score + score
			if candidate > dp[j].score {
				dp[j].score = candidate
				dp[j].parent = i
			}
		}
	}

	if dp[n].parent == -1 {
		out := make([]string, n)
		for i := 0; i < n; i++ {
			out[i] = text[i : i+1]
		}
		return out
	}

	var starts []int
	pos := n
	for pos > 0 {
		start := dp[pos].parent
		starts = append(starts, start)
		pos = start
	}
	pieces := make([]string, len(starts))
	for i, start := range starts {
		end := n
		if i > 0 {
			end = starts[i-1]
		}
		pieces[len(starts)-1-i] = text[start:end]
	}
	return pieces
}

// Score looks up a token's log-probability, defaulting to unknownScore
// when it is absent from the lexicon. Mirrors computeLoss's
// "-UNKNOWN_TOKEN_SCORE" fallback in the original trainer.
const unknownScore = -20.0

func (l Lexicon) Score(token string) float64 {
	if s, ok := l[token]; ok {
		return s
	}
	return unknownScore
}
