package app_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mwathi/elocute/internal/app"
	"github.com/mwathi/elocute/internal/config"
	"github.com/mwathi/elocute/pkg/audio"
	audiomock "github.com/mwathi/elocute/pkg/audio/mock"
	sttmock "github.com/mwathi/elocute/pkg/provider/stt/mock"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Server.ListenAddr = "" // no HTTP listener in tests
	cfg.Storage.DBPath = filepath.Join(dir, "test.db")
	cfg.Storage.RecordingsDir = filepath.Join(dir, "recordings")
	return cfg
}

func testProviders() *app.Providers {
	return &app.Providers{
		STT: &sttmock.Transcriber{},
		Resolver: &audiomock.Resolver{
			DeviceList: []audio.Device{{Name: "Test Mic", MaxInputChannels: 1}},
		},
		Backend: &audiomock.Backend{},
		Player:  &audiomock.Player{},
	}
}

func TestNew_SeedsSentenceLibrary(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a, err := app.New(ctx, testConfig(t), testProviders())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Shutdown(ctx)

	sentences, err := a.Store().Sentences(ctx)
	if err != nil {
		t.Fatalf("Sentences: %v", err)
	}
	if len(sentences) == 0 {
		t.Fatal("store should be seeded with the built-in library")
	}
}

func TestNew_SeedIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cfg := testConfig(t)

	a, err := app.New(ctx, cfg, testProviders())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	first, _ := a.Store().Sentences(ctx)
	a.Shutdown(ctx)

	b, err := app.New(ctx, cfg, testProviders())
	if err != nil {
		t.Fatalf("New (second): %v", err)
	}
	defer b.Shutdown(ctx)
	second, _ := b.Store().Sentences(ctx)

	if len(first) != len(second) {
		t.Errorf("reopening should not reseed: %d then %d sentences", len(first), len(second))
	}
}

func TestRun_ConsoleQuit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	var out strings.Builder
	a, err := app.New(ctx, testConfig(t), testProviders(),
		app.WithConsoleIO(strings.NewReader("quit\n"), &out))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Shutdown(ctx)

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after quit")
	}
	if !strings.Contains(out.String(), "elocute") {
		t.Errorf("console banner missing, got:\n%s", out.String())
	}
}

func TestRun_UnknownUserFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a, err := app.New(ctx, testConfig(t), testProviders(),
		app.WithConsoleIO(strings.NewReader(""), &strings.Builder{}),
		app.WithUser("nobody"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Shutdown(ctx)

	if err := a.Run(ctx); err == nil {
		t.Fatal("Run should fail for unknown user")
	}
}

func TestApplyConfig_RebuildsRunner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cfg := testConfig(t)
	a, err := app.New(ctx, cfg, testProviders())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Shutdown(ctx)

	before := a.Runner()
	updated := *cfg
	updated.Scoring.ExcellentMin = 90

	a.ApplyConfig(cfg, &updated)
	if a.Runner() == before {
		t.Error("runner should be rebuilt after a scoring change")
	}
}

func TestShutdown_Idempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a, err := app.New(ctx, testConfig(t), testProviders())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := a.Shutdown(ctx); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
}
