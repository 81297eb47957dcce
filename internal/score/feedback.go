package score

import "github.com/antzucaro/matchr"

// WordFeedback describes how one reference word fared against the hypothesis.
// It powers the per-word practice hints shown after a scored attempt.
type WordFeedback struct {
	// Word is the normalised reference word.
	Word string

	// Heard is the hypothesis word that best matched Word, or empty when the
	// hypothesis contained nothing similar.
	Heard string

	// Similarity is the Jaro-Winkler score between Word and Heard (0–1).
	Similarity float64

	// Correct reports an exact match after normalisation.
	Correct bool

	// SoundsAlike reports that Word and Heard share a Double Metaphone code:
	// the speaker likely produced the right sounds even though the
	// transcriber wrote a different word.
	SoundsAlike bool
}

// Feedback computes per-word hints for a scored attempt. For every word in
// the normalised reference it finds the most similar word in the normalised
// hypothesis and reports whether it was exact, phonetically close, or missing.
//
// Feedback is advisory only — the authoritative score is [WordErrorRate] plus
// [Classify]; this function exists so the practice surface can point at the
// specific words that pulled the score down.
func Feedback(reference, hypothesis string) []WordFeedback {
	ref := Normalize(reference)
	if len(ref) == 0 {
		return nil
	}
	hyp := Normalize(hypothesis)

	out := make([]WordFeedback, 0, len(ref))
	for _, word := range ref {
		fb := WordFeedback{Word: word}

		for _, heard := range hyp {
			sim := matchr.JaroWinkler(word, heard, false)
			if sim > fb.Similarity {
				fb.Similarity = sim
				fb.Heard = heard
			}
			if heard == word {
				break
			}
		}

		fb.Correct = fb.Heard == word
		if !fb.Correct && fb.Heard != "" {
			fb.SoundsAlike = soundsAlike(word, fb.Heard)
		}

		out = append(out, fb)
	}
	return out
}

// soundsAlike reports whether two words share at least one Double Metaphone
// code, i.e. a plausible same-pronunciation transcription mismatch.
func soundsAlike(a, b string) bool {
	ap, as := matchr.DoubleMetaphone(a)
	bp, bs := matchr.DoubleMetaphone(b)
	for _, x := range []string{ap, as} {
		if x == "" {
			continue
		}
		if x == bp || (bs != "" && x == bs) {
			return true
		}
	}
	return false
}
