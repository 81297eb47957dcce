package app

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mwathi/elocute/internal/capture"
	"github.com/mwathi/elocute/internal/pipeline"
	"github.com/mwathi/elocute/internal/practice"
	"github.com/mwathi/elocute/internal/score"
	"github.com/mwathi/elocute/internal/store"
	"github.com/mwathi/elocute/internal/validate"
	"github.com/mwathi/elocute/pkg/audio"
	audiomock "github.com/mwathi/elocute/pkg/audio/mock"
	sttmock "github.com/mwathi/elocute/pkg/provider/stt/mock"
)

// loudChunk returns one second of audible 16 kHz mono audio.
func loudChunk() []int16 {
	samples := make([]int16, 16000)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = 8000
		} else {
			samples[i] = -8000
		}
	}
	return samples
}

func newTestRunner(t *testing.T, transcriber *sttmock.Transcriber, opts ...practice.Option) *practice.Runner {
	t.Helper()
	resolver := &audiomock.Resolver{
		DeviceList: []audio.Device{{Name: "Test Mic", MaxInputChannels: 1}},
	}
	backend := &audiomock.Backend{
		Stream: audiomock.NewStream([][]int16{loudChunk(), loudChunk()}, 0),
	}
	recorder := capture.New(resolver, backend, capture.Config{PollInterval: 5 * time.Millisecond})
	pipe := pipeline.New(validate.New(validate.DefaultLimits()), transcriber)
	return practice.New(recorder, pipe, t.TempDir(), opts...)
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return st
}

func TestConsole_QuitExitsCleanly(t *testing.T) {
	t.Parallel()
	c := NewConsole(newTestRunner(t, &sttmock.Transcriber{}), newTestStore(t),
		[]store.Sentence{{Text: "Hello."}}, 0,
		strings.NewReader("quit\n"), &strings.Builder{})

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestConsole_EOFExitsCleanly(t *testing.T) {
	t.Parallel()
	c := NewConsole(newTestRunner(t, &sttmock.Transcriber{}), newTestStore(t),
		[]store.Sentence{{Text: "Hello."}}, 0,
		strings.NewReader(""), &strings.Builder{})

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestConsole_RoundPrintsVerdict(t *testing.T) {
	t.Parallel()
	transcriber := &sttmock.Transcriber{}
	transcriber.Result.Text = "the sun is shining"

	var out strings.Builder
	c := NewConsole(newTestRunner(t, transcriber), newTestStore(t),
		[]store.Sentence{{ID: 1, Text: "The sun is shining.", Difficulty: 1}}, 0,
		strings.NewReader("\nstop\nquit\n"), &out)
	c.pick = func(int) int { return 0 }

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "The sun is shining.") {
		t.Errorf("output should show the sentence, got:\n%s", got)
	}
	if !strings.Contains(got, "EXCELLENT") {
		t.Errorf("output should show the verdict, got:\n%s", got)
	}
	if !strings.Contains(got, "accuracy 100%") {
		t.Errorf("output should show accuracy, got:\n%s", got)
	}
}

// syncBuffer lets the test read console output while Run is still writing.
type syncBuffer struct {
	mu sync.Mutex
	b  strings.Builder
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func TestConsole_QuitAfterWatchdogRound(t *testing.T) {
	t.Parallel()
	transcriber := &sttmock.Transcriber{}
	transcriber.Result.Text = "hello"

	in, w := io.Pipe()
	var out syncBuffer
	c := NewConsole(newTestRunner(t, transcriber, practice.WithMaxDuration(50*time.Millisecond)),
		newTestStore(t), []store.Sentence{{Text: "Hello."}}, 0, in, &out)
	c.pick = func(int) int { return 0 }

	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(context.Background()) }()

	// Start a round but never press Enter; the recording watchdog ends it.
	if _, err := io.WriteString(w, "\n"); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(out.String(), "accuracy") {
		if time.Now().After(deadline) {
			t.Fatalf("round never finished, output:\n%s", out.String())
		}
		time.Sleep(10 * time.Millisecond)
	}

	// The next line must reach the command loop, not a leftover stop goroutine.
	if _, err := io.WriteString(w, "quit\n"); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("console did not exit on quit after a watchdog-ended round")
	}
}

func TestConsole_StatsAsGuest(t *testing.T) {
	t.Parallel()
	var out strings.Builder
	c := NewConsole(newTestRunner(t, &sttmock.Transcriber{}), newTestStore(t),
		[]store.Sentence{{Text: "Hello."}}, 0,
		strings.NewReader("stats\nquit\n"), &out)

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "guest") {
		t.Errorf("guest stats should say so, got:\n%s", out.String())
	}
}

func TestConsole_StatsForUser(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()
	userID, err := st.CreateUser(ctx, "amara", "hash")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.SaveAttempt(ctx, store.Attempt{
		UserID: userID, TargetText: "x", Accuracy: 80, Category: "excellent",
	}); err != nil {
		t.Fatal(err)
	}

	var out strings.Builder
	c := NewConsole(newTestRunner(t, &sttmock.Transcriber{}), st,
		[]store.Sentence{{Text: "Hello."}}, userID,
		strings.NewReader("stats\nquit\n"), &out)

	if err := c.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "attempts 1") {
		t.Errorf("stats should count the stored attempt, got:\n%s", out.String())
	}
}

func TestConsole_UnknownCommand(t *testing.T) {
	t.Parallel()
	var out strings.Builder
	c := NewConsole(newTestRunner(t, &sttmock.Transcriber{}), newTestStore(t),
		[]store.Sentence{{Text: "Hello."}}, 0,
		strings.NewReader("dance\nquit\n"), &out)

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), `unknown command "dance"`) {
		t.Errorf("output should flag unknown command, got:\n%s", out.String())
	}
}

func TestWordMarks(t *testing.T) {
	t.Parallel()
	marks := wordMarks([]score.WordFeedback{
		{Word: "the", Correct: true},
		{Word: "quick", SoundsAlike: true},
		{Word: "fox"},
	})
	if got, want := marks, "the quick~ fox✗"; got != want {
		t.Errorf("wordMarks = %q, want %q", got, want)
	}
}
