// Package corpusio reads training corpora off disk: a single file via
// mmap, a set of files discovered by glob pattern, and an optional
// sentence-boundary pre-segmentation pass.
//
// Grounded on the teacher's resources/mmap.go (mmap-backed reads) and
// cmd/dataset_tokenizer/dataset_tokenizer.go's GlobTexts (glob-based
// multi-file discovery).
package corpusio

import (
	"bufio"
	"bytes"
	"os"
	"sort"

	"github.com/edsrzf/mmap-go"
	"github.com/jdkato/prose/v2"
	"github.com/yargevad/filepathx"

	"github.com/shredword/trainer/internal/trainerr"
)

// ReadLines mmaps path and splits it into non-empty lines. Blank lines are
// dropped here, matching spec.md §6's "Input file... Blank lines skipped."
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &trainerr.IOError{Path: path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, &trainerr.IOError{Path: path, Err: err}
	}
	if info.Size() == 0 {
		return nil, nil
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, &trainerr.IOError{Path: path, Err: err}
	}
	defer data.Unmap()

	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, &trainerr.IOError{Path: path, Err: err}
	}
	return lines, nil
}

// DiscoverFiles expands a doublestar glob pattern (e.g. "corpus/**/*.txt")
// into a sorted, deterministic list of matching file paths.
func DiscoverFiles(pattern string) ([]string, error) {
	matches, err := filepathx.Glob(pattern)
	if err != nil {
		return nil, &trainerr.IOError{Path: pattern, Err: err}
	}
	sort.Strings(matches)
	return matches, nil
}

// ReadCorpus reads every line from every file matched by pattern, in
// sorted path order.
func ReadCorpus(pattern string) ([]string, error) {
	paths, err := DiscoverFiles(pattern)
	if err != nil {
		return nil, err
	}
	var all []string
	for _, path := range paths {
		lines, err := ReadLines(path)
		if err != nil {
			return nil, err
		}
		all = append(all, lines...)
	}
	return all, nil
}

// SplitSentences re-segments each line at sentence boundaries using a
// statistical sentence tokenizer, so a multi-sentence line contributes
// several training examples instead of one. This is an optional corpus
// pre-processing step, not part of either training engine's core
// algorithm; callers pass its output straight into LoadCorpus.
//
// Grounded on the teacher's prose.go, which uses the same library for
// sentence-boundary detection when trimming token output.
func SplitSentences(lines []string) ([]string, error) {
	var out []string
	for _, line := range lines {
		doc, err := prose.NewDocument(line,
			prose.WithTagging(false),
			prose.WithExtraction(false),
			prose.WithTokenization(false))
		if err != nil {
			continue // a single malformed line is skipped, not fatal
		}
		for _, sentence := range doc.Sentences() {
			if sentence.Text != "" {
				out = append(out, sentence.Text)
			}
		}
	}
	return out, nil
}
