package corpusio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadLinesSkipsBlankLines(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "corpus.txt", "the cat\n\nsat on\n\n\nthe mat\n")

	lines, err := ReadLines(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"the cat", "sat on", "the mat"}, lines)
}

func TestReadLinesEmptyFileReturnsNil(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "empty.txt", "")

	lines, err := ReadLines(path)
	require.NoError(t, err)
	assert.Nil(t, lines)
}

func TestReadLinesMissingFileIsIOError(t *testing.T) {
	_, err := ReadLines(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestDiscoverFilesMatchesGlobSorted(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", "b")
	writeFile(t, dir, "a.txt", "a")
	writeFile(t, dir, "c.md", "c")

	matches, err := DiscoverFiles(filepath.Join(dir, "*.txt"))
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, filepath.Join(dir, "a.txt"), matches[0])
	assert.Equal(t, filepath.Join(dir, "b.txt"), matches[1])
}

func TestReadCorpusConcatenatesInSortedPathOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "1.txt", "one\n")
	writeFile(t, dir, "2.txt", "two\n")

	lines, err := ReadCorpus(filepath.Join(dir, "*.txt"))
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, lines)
}

func TestSplitSentencesSplitsMultiSentenceLine(t *testing.T) {
	out, err := SplitSentences([]string{"The cat sat. The dog ran."})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Contains(t, out[0], "cat")
	assert.Contains(t, out[1], "dog")
}

func TestSplitSentencesDropsEmptyInput(t *testing.T) {
	out, err := SplitSentences(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}
