package score

import (
	"fmt"
	"math"
)

// Category is the discrete pronunciation verdict derived from an accuracy
// percentage against configured thresholds.
type Category string

const (
	CategoryExcellent        Category = "excellent"
	CategoryGood             Category = "good"
	CategoryNeedsImprovement Category = "needs_improvement"
)

// IsValid reports whether c is a recognised category.
func (c Category) IsValid() bool {
	switch c {
	case CategoryExcellent, CategoryGood, CategoryNeedsImprovement:
		return true
	}
	return false
}

// Signal is a UI-agnostic feedback tag derived one-to-one from Category.
// Presentation layers map it to whatever surface they drive (screen colour,
// status LED, sound cue) without this package knowing about any of them.
type Signal string

const (
	SignalPositive Signal = "positive"
	SignalNeutral  Signal = "neutral"
	SignalNegative Signal = "negative"
)

// Signal returns the feedback tag for the category.
func (c Category) Signal() Signal {
	switch c {
	case CategoryExcellent:
		return SignalPositive
	case CategoryGood:
		return SignalNeutral
	default:
		return SignalNegative
	}
}

// Thresholds configures the accuracy cut-offs for [Classify]. Both values are
// inclusive lower bounds on the 0–100 accuracy scale.
type Thresholds struct {
	// ExcellentMin is the minimum accuracy rated Excellent.
	ExcellentMin int `yaml:"excellent_min"`

	// GoodMin is the minimum accuracy rated Good. Anything below is
	// NeedsImprovement.
	GoodMin int `yaml:"good_min"`
}

// DefaultThresholds returns the standard production cut-offs: Excellent at
// 70 %, Good at 50 %.
func DefaultThresholds() Thresholds {
	return Thresholds{ExcellentMin: 70, GoodMin: 50}
}

// Validate checks that the thresholds are coherent.
func (t Thresholds) Validate() error {
	if t.ExcellentMin <= t.GoodMin {
		return fmt.Errorf("score: excellent_min (%d) must be greater than good_min (%d)", t.ExcellentMin, t.GoodMin)
	}
	if t.GoodMin < 0 || t.ExcellentMin > 100 {
		return fmt.Errorf("score: thresholds must lie within 0–100 (got excellent_min=%d good_min=%d)", t.ExcellentMin, t.GoodMin)
	}
	return nil
}

// Result bundles a classified score. Accuracy is monotonically non-increasing
// in WER, so re-classifying the same WER always reproduces the same Result.
type Result struct {
	// WER is the word error rate the result was derived from.
	WER float64

	// Accuracy is the 0–100 percentage score: clamp(round((1-WER)*100), 0, 100).
	Accuracy int

	// Category is the discrete verdict under the thresholds used.
	Category Category

	// Signal is the UI-agnostic feedback tag for Category.
	Signal Signal
}

// Classify maps a word error rate to an accuracy percentage and category
// under the given thresholds.
func Classify(wer float64, t Thresholds) Result {
	accuracy := int(math.Round((1 - wer) * 100))
	if accuracy < 0 {
		accuracy = 0
	}
	if accuracy > 100 {
		accuracy = 100
	}

	var cat Category
	switch {
	case accuracy >= t.ExcellentMin:
		cat = CategoryExcellent
	case accuracy >= t.GoodMin:
		cat = CategoryGood
	default:
		cat = CategoryNeedsImprovement
	}

	return Result{
		WER:      wer,
		Accuracy: accuracy,
		Category: cat,
		Signal:   cat.Signal(),
	}
}
