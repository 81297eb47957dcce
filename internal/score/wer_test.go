package score_test

import (
	"math"
	"testing"

	"github.com/mwathi/elocute/internal/score"
)

func TestWordErrorRate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		reference  string
		hypothesis string
		want       float64
	}{
		{"exact match", "the quick brown fox", "the quick brown fox", 0.0},
		{"exact after normalisation", "The Quick, Brown Fox!", "the quick brown fox", 0.0},
		{"both empty", "", "", 0.0},
		{"empty reference non-empty hypothesis", "", "anything", 1.0},
		{"non-empty reference empty hypothesis", "the quick brown fox", "", 1.0},
		{"one deletion", "the quick brown fox", "the quick brown", 0.25},
		{"one substitution", "good morning everyone", "good evening everyone", 0.3333},
		{"one insertion", "good morning", "good good morning", 0.5},
		{"all wrong", "alpha beta", "gamma delta", 1.0},
		{"hypothesis much longer exceeds one", "hi", "well hello there my good friend", 6.0},
		{"punctuation only hypothesis", "the quick brown fox", "?!.", 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := score.WordErrorRate(tt.reference, tt.hypothesis)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("WordErrorRate(%q, %q) = %v, want %v", tt.reference, tt.hypothesis, got, tt.want)
			}
		})
	}
}

func TestWordErrorRate_Identity(t *testing.T) {
	t.Parallel()

	// WER(A, A) == 0 for any text, including messy ones.
	texts := []string{
		"she sells sea shells",
		"  Mixed   CASE  and...   punctuation!!  ",
		"one",
		"",
	}
	for _, text := range texts {
		if got := score.WordErrorRate(text, text); got != 0.0 {
			t.Errorf("WordErrorRate(%q, same) = %v, want 0.0", text, got)
		}
	}
}

func TestWordErrorRate_RoundsToFourDecimals(t *testing.T) {
	t.Parallel()

	// 1 edit over 3 words = 0.333333… which must round to 0.3333.
	got := score.WordErrorRate("good morning everyone", "good evening everyone")
	if got != 0.3333 {
		t.Errorf("WordErrorRate = %v, want 0.3333", got)
	}

	// 2 edits over 3 words = 0.666666… rounds to 0.6667.
	got = score.WordErrorRate("good morning everyone", "bad evening everyone")
	if got != 0.6667 {
		t.Errorf("WordErrorRate = %v, want 0.6667", got)
	}
}

func TestWordErrorRate_NotCappedAboveOne(t *testing.T) {
	t.Parallel()

	// Reference 1 word, hypothesis 5 unrelated words: distance 5, WER 5.0.
	got := score.WordErrorRate("yes", "no no no no no")
	if got != 5.0 {
		t.Errorf("WordErrorRate = %v, want 5.0 (must not be capped)", got)
	}
}
