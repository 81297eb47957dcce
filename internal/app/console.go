package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"

	"github.com/mwathi/elocute/internal/capture"
	"github.com/mwathi/elocute/internal/practice"
	"github.com/mwathi/elocute/internal/score"
	"github.com/mwathi/elocute/internal/store"
)

// Console is the interactive practice loop. Each round it picks a sentence,
// optionally speaks it, records the learner until they press Enter, and
// prints the verdict.
//
// Input lines are pumped through a channel by a background goroutine so the
// loop can select between user input and context cancellation; the reader
// goroutine is the only place that touches the underlying stream.
type Console struct {
	runner    *practice.Runner
	store     *store.Store
	sentences []store.Sentence
	userID    int64

	in  io.Reader
	out io.Writer

	// pick returns an index into sentences. Replaceable for deterministic
	// tests; defaults to uniform random.
	pick func(n int) int
}

// NewConsole builds a Console over the given sentence library. A zero userID
// runs guest rounds: scored but never stored.
func NewConsole(runner *practice.Runner, st *store.Store, sentences []store.Sentence, userID int64, in io.Reader, out io.Writer) *Console {
	return &Console{
		runner:    runner,
		store:     st,
		sentences: sentences,
		userID:    userID,
		in:        in,
		out:       out,
		pick:      rand.IntN,
	}
}

// Run executes practice rounds until the input stream ends, the user quits,
// or ctx is cancelled.
func (c *Console) Run(ctx context.Context) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(c.out, "elocute — press Enter to start a round, type 'stats' for your progress, 'quit' to exit.")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			switch line {
			case "quit", "q", "exit":
				return nil
			case "stats":
				c.printStats(ctx)
			case "":
				if err := c.round(ctx, lines); err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					fmt.Fprintf(c.out, "round failed: %v\n", err)
				}
			default:
				fmt.Fprintf(c.out, "unknown command %q\n", line)
			}
		}
	}
}

// round runs one practice round: prompt, record until the next input line,
// then print the verdict.
func (c *Console) round(ctx context.Context, lines <-chan string) error {
	sentence := c.sentences[c.pick(len(c.sentences))]
	fmt.Fprintf(c.out, "\nRead aloud (difficulty %d):\n  %s\n", sentence.Difficulty, sentence.Text)
	fmt.Fprintln(c.out, "Recording… press Enter to stop.")

	// roundDone releases the stop goroutine when the round ends on its own
	// (watchdog, backend failure) so it never lingers on lines and steals
	// the next command.
	roundDone := make(chan struct{})

	out, err := c.runner.Run(ctx, practice.Round{
		UserID:     c.userID,
		Sentence:   sentence,
		SpeakFirst: true,
		OnSession: func(s *capture.Session) {
			go func() {
				select {
				case <-lines:
				case <-roundDone:
				case <-ctx.Done():
				}
				s.Stop()
			}()
		},
	})
	close(roundDone)
	if err != nil {
		return err
	}

	c.printVerdict(out)
	return nil
}

// printVerdict renders the scored round.
func (c *Console) printVerdict(out *practice.Outcome) {
	res := out.Score
	fmt.Fprintf(c.out, "\n%s  accuracy %d%%  (WER %.4f, heard: %q)\n",
		categoryBadge(res.Category), res.Accuracy, res.WER, res.Transcription)

	if marks := wordMarks(res.Words); marks != "" {
		fmt.Fprintf(c.out, "  words: %s\n", marks)
	}
	for _, issue := range res.SoftIssues {
		fmt.Fprintf(c.out, "  note: %s\n", issue)
	}
	fmt.Fprintf(c.out, "  recorded %.1fs", out.Recording.Duration.Seconds())
	if out.AttemptID != 0 {
		fmt.Fprintf(c.out, ", saved as attempt %d", out.AttemptID)
	}
	fmt.Fprintln(c.out)
}

// printStats renders the practising user's aggregate progress.
func (c *Console) printStats(ctx context.Context) {
	if c.userID == 0 {
		fmt.Fprintln(c.out, "practising as guest; no stored progress")
		return
	}
	st, err := c.store.UserStats(ctx, c.userID)
	if err != nil {
		fmt.Fprintf(c.out, "stats unavailable: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "attempts %d, average %d%% — excellent %d / good %d / needs work %d\n",
		st.TotalAttempts, st.AverageScore, st.Excellent, st.Good, st.NeedsImprovement)
}

// categoryBadge maps a verdict to its console rendering.
func categoryBadge(cat score.Category) string {
	switch cat {
	case score.CategoryExcellent:
		return "EXCELLENT"
	case score.CategoryGood:
		return "GOOD"
	default:
		return "KEEP PRACTISING"
	}
}

// wordMarks renders per-word feedback: mispronounced words get ✗, words that
// sounded right but were spelt differently by the engine get ~.
func wordMarks(words []score.WordFeedback) string {
	if len(words) == 0 {
		return ""
	}
	var b strings.Builder
	for i, w := range words {
		if i > 0 {
			b.WriteByte(' ')
		}
		switch {
		case w.Correct:
			b.WriteString(w.Word)
		case w.SoundsAlike:
			b.WriteString(w.Word + "~")
		default:
			b.WriteString(w.Word + "✗")
		}
	}
	return b.String()
}
