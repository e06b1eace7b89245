// Package normalize implements the corpus normalization pass shared by the
// BPE and Unigram trainers: ASCII lowercasing and whitespace collapsing,
// grounded on the teacher's strings.Replacer-driven normalization in
// gpt_bpe.go (the GPTEncoder.Normalizer field) and the boundary-marker
// convention from the original shredword normalizer.
package normalize

import "strings"

// BoundaryMarker is the three-byte UTF-8 encoding of U+2581 (LOWER ONE
// EIGHTH BLOCK), used to mark the position of whitespace runs in the
// corpus so that word boundaries survive subword splitting.
const BoundaryMarker = "▁"

func isASCIIWhitespace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	default:
		return false
	}
}

func lowerASCII(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

// Normalize lowercases ASCII letters and collapses every maximal run of
// ASCII whitespace into a single BoundaryMarker. Non-whitespace,
// non-ASCII-letter bytes pass through unchanged. A trailing boundary
// marker, if produced, is stripped.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw) + len(raw)/4)
	inWhitespace := false
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if isASCIIWhitespace(c) {
			if !inWhitespace {
				b.WriteString(BoundaryMarker)
				inWhitespace = true
			}
			continue
		}
		inWhitespace = false
		b.WriteByte(lowerASCII(c))
	}
	out := b.String()
	if strings.HasSuffix(out, BoundaryMarker) {
		out = out[:len(out)-len(BoundaryMarker)]
	}
	return out
}
