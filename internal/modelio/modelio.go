// Package modelio writes and reads the saved model and vocabulary files
// produced by the BPE and Unigram trainers: a binary merge-log file for
// BPE, a plain-text vocabulary file for both, and a header file for
// Unigram.
//
// Grounded on the teacher's utils.go ToBin/TokensFromBin little-endian
// binary encoding, and on original_source/shredword/csrc/bpe/bpe.cpp's
// bpe_save for the exact merge-file layout.
package modelio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/shredword/trainer/internal/bpe"
	"github.com/shredword/trainer/internal/trainerr"
	"github.com/shredword/trainer/internal/unigram"
)

// WriteMergeModel writes a BPE merge log as a sequence of little-endian
// int32 triples (left_id, right_id, new_id), one per merge, in merge
// order. This is the binary model file spec.md §6 names for BPE.
func WriteMergeModel(path string, merges []bpe.MergeOp) error {
	f, err := os.Create(path)
	if err != nil {
		return &trainerr.IOError{Path: path, Err: err}
	}
	defer f.Close()

	buf := bufio.NewWriter(f)
	for _, m := range merges {
		for _, v := range [3]int32{m.Left, m.Right, m.NewID} {
			if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
				return &trainerr.IOError{Path: path, Err: err}
			}
		}
	}
	if err := buf.Flush(); err != nil {
		return &trainerr.IOError{Path: path, Err: err}
	}
	return nil
}

// ReadMergeModel reads back a merge log written by WriteMergeModel.
func ReadMergeModel(path string) ([]bpe.MergeOp, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &trainerr.IOError{Path: path, Err: err}
	}
	const recordSize = 3 * 4
	if len(data)%recordSize != 0 {
		return nil, &trainerr.IOError{Path: path, Err: fmt.Errorf("truncated merge file: %d bytes", len(data))}
	}
	r := bytes.NewReader(data)
	merges := make([]bpe.MergeOp, 0, len(data)/recordSize)
	for r.Len() > 0 {
		var left, right, newID int32
		if err := binary.Read(r, binary.LittleEndian, &left); err != nil {
			return nil, &trainerr.IOError{Path: path, Err: err}
		}
		if err := binary.Read(r, binary.LittleEndian, &right); err != nil {
			return nil, &trainerr.IOError{Path: path, Err: err}
		}
		if err := binary.Read(r, binary.LittleEndian, &newID); err != nil {
			return nil, &trainerr.IOError{Path: path, Err: err}
		}
		merges = append(merges, bpe.MergeOp{Left: left, Right: right, NewID: newID})
	}
	return merges, nil
}

// WriteUnigramHeader writes the plain-text model header spec.md §6 names
// for Unigram: "vocab_size=<N>\nmodel_type=unigram\n". The actual
// vocabulary lives in the vocab file.
func WriteUnigramHeader(path string, vocabSize int) error {
	content := fmt.Sprintf("vocab_size=%d\nmodel_type=unigram\n", vocabSize)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return &trainerr.IOError{Path: path, Err: err}
	}
	return nil
}

// WriteBPEVocab writes one "<token> <freq>\n" record per token, sorted by
// id ascending, where token is the concatenation of the bytes the id
// expands to and freq is its post-training occurrence count (0 if the
// token never survives in any lattice, e.g. an intermediate merge that was
// immediately re-merged).
func WriteBPEVocab(path string, merges []bpe.MergeOp, frequencies map[int32]uint64, tokenBytes func(int32) []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return &trainerr.IOError{Path: path, Err: err}
	}
	defer f.Close()

	buf := bufio.NewWriter(f)
	totalTokens := 256 + len(merges)
	for id := int32(0); id < int32(totalTokens); id++ {
		tok := tokenBytes(id)
		if _, err := fmt.Fprintf(buf, "%s %d\n", escapeVocabToken(string(tok)), frequencies[id]); err != nil {
			return &trainerr.IOError{Path: path, Err: err}
		}
	}
	if err := buf.Flush(); err != nil {
		return &trainerr.IOError{Path: path, Err: err}
	}
	return nil
}

// WriteUnigramVocab writes one "<token>\t<score>\n" record per token,
// sorted by score descending (the order Trainer.Vocabulary already
// returns).
func WriteUnigramVocab(path string, vocab []unigram.TokenScore) error {
	f, err := os.Create(path)
	if err != nil {
		return &trainerr.IOError{Path: path, Err: err}
	}
	defer f.Close()

	buf := bufio.NewWriter(f)
	for _, tf := range vocab {
		if _, err := fmt.Fprintf(buf, "%s\t%.6f\n", escapeVocabToken(tf.Token), tf.Score); err != nil {
			return &trainerr.IOError{Path: path, Err: err}
		}
	}
	return buf.Flush()
}

// ReadUnigramVocab parses a vocab file written by WriteUnigramVocab back
// into (token, score) pairs, needed to validate the round-trip law: saving
// then loading yields an identical (token, score) set under float
// tolerance 1e-6.
func ReadUnigramVocab(path string) ([]unigram.TokenScore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &trainerr.IOError{Path: path, Err: err}
	}
	var out []unigram.TokenScore
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		tab := strings.LastIndex(line, "\t")
		if tab < 0 {
			continue
		}
		token := unescapeVocabToken(line[:tab])
		score, err := strconv.ParseFloat(line[tab+1:], 64)
		if err != nil {
			return nil, &trainerr.IOError{Path: path, Err: err}
		}
		out = append(out, unigram.TokenScore{Token: token, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Token < out[j].Token
	})
	return out, nil
}

// escapeVocabToken replaces bytes that would corrupt the line-oriented
// vocab format (the delimiter and newlines a token's raw bytes may
// legitimately contain, since a token is an arbitrary byte string) with a
// backslash escape, mirroring the teacher's general preference for
// explicit, reversible text encodings over raw byte dumps in saved files.
func escapeVocabToken(tok string) string {
	var b strings.Builder
	for i := 0; i < len(tok); i++ {
		switch c := tok[i]; c {
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case ' ':
			b.WriteString(`\s`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func unescapeVocabToken(tok string) string {
	var b strings.Builder
	for i := 0; i < len(tok); i++ {
		if tok[i] == '\\' && i+1 < len(tok) {
			switch tok[i+1] {
			case '\\':
				b.WriteByte('\\')
				i++
				continue
			case 'n':
				b.WriteByte('\n')
				i++
				continue
			case 't':
				b.WriteByte('\t')
				i++
				continue
			case 's':
				b.WriteByte(' ')
				i++
				continue
			}
		}
		b.WriteByte(tok[i])
	}
	return b.String()
}
