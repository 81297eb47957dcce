// Package app wires all elocute subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run executes the practice loop alongside the HTTP endpoint,
// and Shutdown tears everything down in order.
//
// For testing, inject mock implementations via functional options. When an
// option is not provided, New creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/mwathi/elocute/internal/capture"
	"github.com/mwathi/elocute/internal/config"
	"github.com/mwathi/elocute/internal/health"
	"github.com/mwathi/elocute/internal/observe"
	"github.com/mwathi/elocute/internal/pipeline"
	"github.com/mwathi/elocute/internal/practice"
	"github.com/mwathi/elocute/internal/store"
	"github.com/mwathi/elocute/internal/validate"
	"github.com/mwathi/elocute/pkg/audio"
	"github.com/mwathi/elocute/pkg/provider/stt"
	"github.com/mwathi/elocute/pkg/provider/tts"
)

// Providers holds one interface value per provider slot. Nil TTS or Player
// disables sentence playback; the rest are required. Populated by main.go
// via the config registry.
type Providers struct {
	STT      stt.Transcriber
	TTS      tts.Synthesizer
	Resolver audio.Resolver
	Backend  audio.Backend
	Player   audio.Player
}

// App owns all subsystem lifetimes and orchestrates practice sessions.
type App struct {
	cfg       *config.Config
	providers *Providers

	// Subsystems — initialised in New, torn down in Shutdown.
	store    *store.Store
	recorder *capture.Recorder
	metrics  *observe.Metrics
	server   *http.Server

	// runnerMu guards runner, which ApplyConfig swaps on hot reload.
	runnerMu sync.Mutex
	runner   *practice.Runner

	// console I/O, replaceable in tests.
	in  io.Reader
	out io.Writer

	// username to practise as; empty means guest.
	username string

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects an attempt store instead of opening one from config.
func WithStore(s *store.Store) Option {
	return func(a *App) { a.store = s }
}

// WithConsoleIO redirects the interactive loop's input and output.
func WithConsoleIO(in io.Reader, out io.Writer) Option {
	return func(a *App) { a.in = in; a.out = out }
}

// WithUser selects the account to practise as. Empty means guest: rounds
// are scored but never persisted.
func WithUser(username string) Option {
	return func(a *App) { a.username = username }
}

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry).
//
// New performs all initialisation synchronously: store migration, sentence
// seeding, recorder and runner construction, and the HTTP endpoint.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	a := &App{
		cfg:       cfg,
		providers: providers,
		metrics:   observe.DefaultMetrics(),
		in:        os.Stdin,
		out:       os.Stdout,
	}
	for _, o := range opts {
		o(a)
	}

	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}
	a.initRunner()
	a.initHTTP()

	return a, nil
}

// initStore opens the database, migrates the schema, and seeds the sentence
// library on first run.
func (a *App) initStore(ctx context.Context) error {
	if a.store == nil {
		st, err := store.Open(a.cfg.Storage.DBPath, store.WithHistoryCap(a.cfg.Storage.HistoryCap))
		if err != nil {
			return err
		}
		a.store = st
		a.closers = append(a.closers, st.Close)
	}

	if err := a.store.Migrate(ctx); err != nil {
		return err
	}

	sentences := store.DefaultLibrary()
	if path := a.cfg.Storage.SentenceLibrary; path != "" {
		lib, err := store.LoadLibrary(path)
		if err != nil {
			return fmt.Errorf("load sentence library %q: %w", path, err)
		}
		sentences = lib
	}
	n, err := a.store.SeedSentences(ctx, sentences)
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Info("seeded sentence library", "count", n)
	}
	return nil
}

// initRunner builds the capture recorder and practice runner from config.
func (a *App) initRunner() {
	a.recorder = capture.New(a.providers.Resolver, a.providers.Backend, capture.Config{
		Format: audio.Format{
			SampleRate:      a.cfg.Audio.SampleRate,
			Channels:        a.cfg.Audio.Channels,
			FramesPerBuffer: a.cfg.Audio.FramesPerBuffer,
		},
		Metrics: a.metrics,
	})

	pipe := pipeline.New(
		validate.New(a.cfg.Validation),
		a.providers.STT,
		pipeline.WithThresholds(a.cfg.Scoring),
		pipeline.WithMetrics(a.metrics),
	)

	runnerOpts := []practice.Option{
		practice.WithStore(a.store),
		practice.WithDevice(a.cfg.Audio.InputDevice),
		practice.WithMaxDuration(a.cfg.Capture.MaxDuration),
	}
	if a.providers.TTS != nil && a.providers.Player != nil {
		runnerOpts = append(runnerOpts,
			practice.WithSpeech(a.providers.TTS, a.providers.Player, a.cfg.Providers.TTS.DefaultVoice))
	}

	a.runnerMu.Lock()
	a.runner = practice.New(a.recorder, pipe, a.cfg.Storage.RecordingsDir, runnerOpts...)
	a.runnerMu.Unlock()
}

// initHTTP builds the health + metrics endpoint.
func (a *App) initHTTP() {
	checks := []health.Checker{
		health.Microphone(a.providers.Resolver, a.cfg.Audio.InputDevice),
		health.Transcriber(a.providers.STT),
		health.Database(a.store),
	}
	if a.providers.TTS != nil {
		checks = append(checks, health.Synthesizer(a.providers.TTS))
	}

	mux := http.NewServeMux()
	health.New(checks...).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	a.server = &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           observe.Middleware(a.metrics)(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Store exposes the attempt store for the console and for main.
func (a *App) Store() *store.Store { return a.store }

// Runner exposes the practice runner for the console.
func (a *App) Runner() *practice.Runner {
	a.runnerMu.Lock()
	defer a.runnerMu.Unlock()
	return a.runner
}

// ApplyConfig applies a hot-reloadable config change. Fields the diff does
// not track require a restart and are ignored here.
func (a *App) ApplyConfig(old, new *config.Config) {
	d := config.Diff(old, new)
	if !d.Any() {
		return
	}
	if d.ScoringChanged || d.ValidationChanged || d.CaptureChanged || d.DefaultVoiceChanged {
		a.cfg.Validation = new.Validation
		a.cfg.Scoring = new.Scoring
		a.cfg.Capture = new.Capture
		a.cfg.Providers.TTS.DefaultVoice = new.Providers.TTS.DefaultVoice
		a.initRunner()
		slog.Info("practice settings reloaded",
			"excellent_min", new.Scoring.ExcellentMin,
			"good_min", new.Scoring.GoodMin,
			"max_duration", new.Capture.MaxDuration,
		)
	}
}

// Run starts the HTTP endpoint and the interactive practice loop, blocking
// until ctx is cancelled or the console exits.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if a.server.Addr != "" {
		g.Go(func() error {
			slog.Info("http endpoint listening", "addr", a.server.Addr)
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("app: http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return a.server.Shutdown(shutCtx)
		})
	}

	g.Go(func() error {
		defer a.stopHTTP()
		console, err := a.newConsole(ctx)
		if err != nil {
			return err
		}
		return console.Run(ctx)
	})

	return g.Wait()
}

// stopHTTP closes the HTTP listener when the console exits so Run returns.
func (a *App) stopHTTP() {
	if a.server.Addr == "" {
		return
	}
	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutCtx); err != nil {
		slog.Warn("http shutdown error", "err", err)
	}
}

// newConsole resolves the practising user and builds the interactive loop.
func (a *App) newConsole(ctx context.Context) (*Console, error) {
	var userID int64
	if a.username != "" {
		u, err := a.store.UserByName(ctx, a.username)
		if err != nil {
			return nil, fmt.Errorf("app: look up user %q: %w", a.username, err)
		}
		userID = u.ID
		if err := a.store.TouchLastLogin(ctx, userID); err != nil {
			slog.Warn("failed to update last login", "err", err)
		}
	}

	sentences, err := a.store.Sentences(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: load sentences: %w", err)
	}
	if len(sentences) == 0 {
		return nil, errors.New("app: sentence library is empty")
	}

	return NewConsole(a.Runner(), a.store, sentences, userID, a.in, a.out), nil
}

// Shutdown tears down all subsystems in reverse-init order. It respects the
// context deadline: if ctx expires before all closers finish, remaining
// closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		for i := len(a.closers) - 1; i >= 0; i-- {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", i+1)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := a.closers[i](); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
