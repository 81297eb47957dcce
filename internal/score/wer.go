package score

import "math"

// WordErrorRate computes the Word Error Rate between a reference sentence and
// a hypothesis transcription. Both inputs are normalised with [Normalize]
// before comparison, and the edit distance is computed at word granularity —
// one substitution, insertion, or deletion per word, unit cost each.
//
//	WER = edits / len(reference tokens)
//
// The result is rounded to 4 decimal places and is NOT capped at 1.0: a
// hypothesis much longer than the reference legitimately scores above 1.0,
// and that signal is preserved for the classifier.
//
// When the reference normalises to zero tokens the divisor is undefined; by
// policy an empty hypothesis scores 0.0 and a non-empty one scores 1.0.
// (The cap at 1.0 here is a convention, not a mathematical necessity.)
func WordErrorRate(reference, hypothesis string) float64 {
	ref := Normalize(reference)
	hyp := Normalize(hypothesis)

	if len(ref) == 0 {
		if len(hyp) == 0 {
			return 0.0
		}
		return 1.0
	}

	dist := editDistance(ref, hyp)
	wer := float64(dist) / float64(len(ref))
	return math.Round(wer*10000) / 10000
}

// editDistance is the classic Levenshtein dynamic programme over token
// slices. O(n·m) time and space — negligible for sentence-length input.
func editDistance(ref, hyp []string) int {
	n, m := len(ref), len(hyp)

	dp := make([][]int, n+1)
	for i := range dp {
		dp[i] = make([]int, m+1)
		dp[i][0] = i
	}
	for j := 0; j <= m; j++ {
		dp[0][j] = j
	}

	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			if ref[i-1] == hyp[j-1] {
				dp[i][j] = dp[i-1][j-1]
				continue
			}
			dp[i][j] = 1 + min(
				dp[i-1][j],   // deletion
				dp[i][j-1],   // insertion
				dp[i-1][j-1], // substitution
			)
		}
	}
	return dp[n][m]
}
