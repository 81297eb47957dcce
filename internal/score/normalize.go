// Package score implements the Elocute scoring engine: text normalisation,
// word-level edit distance (Word Error Rate), accuracy classification, and
// per-word pronunciation feedback.
//
// Everything in this package is pure and deterministic — the same reference
// and hypothesis always produce the same score. All comparison runs on
// normalised token sequences so that casing, punctuation, and whitespace
// differences between the target sentence and the transcriber output never
// count against the speaker.
package score

import "strings"

// punctuation is the fixed, locale-independent set of characters stripped by
// [Normalize]. It matches ASCII punctuation exactly; accented letters and
// non-Latin scripts pass through untouched.
const punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// Normalize canonicalises text for fair comparison: lowercase, punctuation
// removed, whitespace runs collapsed, leading/trailing whitespace trimmed.
// Returns the resulting word tokens in order. Empty or blank input yields a
// nil slice.
func Normalize(text string) []string {
	if text == "" {
		return nil
	}
	lowered := strings.ToLower(text)
	stripped := strings.Map(func(r rune) rune {
		if strings.ContainsRune(punctuation, r) {
			return -1
		}
		return r
	}, lowered)
	return strings.Fields(stripped)
}
