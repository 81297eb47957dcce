// Command elocute is the speech practice trainer: it speaks a sentence,
// records the learner reading it back, transcribes the recording, and scores
// the pronunciation.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mwathi/elocute/internal/app"
	"github.com/mwathi/elocute/internal/config"
	"github.com/mwathi/elocute/internal/observe"
	"github.com/mwathi/elocute/pkg/audio/portaudio"
	"github.com/mwathi/elocute/pkg/provider/stt"
	sttmock "github.com/mwathi/elocute/pkg/provider/stt/mock"
	"github.com/mwathi/elocute/pkg/provider/stt/whisper"
	"github.com/mwathi/elocute/pkg/provider/tts"
	"github.com/mwathi/elocute/pkg/provider/tts/piper"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	user := flag.String("user", "", "practise as this account (empty: guest, nothing is stored)")
	listDevices := flag.Bool("list-devices", false, "list audio input devices and exit")
	flag.Parse()

	if *listDevices {
		return printDevices()
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "elocute: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "elocute: %v\n", err)
		}
		return 1
	}

	// Logger with a hot-reloadable level.
	level := new(slog.LevelVar)
	level.Set(cfg.Server.LogLevel.Level())
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("elocute starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry (Prometheus exporter behind the OTel meter provider).
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "elocute",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// Audio host: microphone capture and speaker playback.
	host, err := portaudio.NewHost()
	if err != nil {
		slog.Error("failed to initialise audio host", "err", err)
		return 1
	}
	defer host.Close()

	// Speech providers.
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}
	providers.Resolver = host
	providers.Backend = host
	providers.Player = host

	application, err := app.New(ctx, cfg, providers, app.WithUser(*user))
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	// Watch the config file for hot-reloadable changes.
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		if d := config.Diff(old, new); d.LogLevelChanged {
			level.Set(d.NewLogLevel.Level())
			slog.Info("log level reloaded", "level", d.NewLogLevel)
		}
		application.ApplyConfig(old, new)
	})
	if err != nil {
		slog.Warn("config watcher disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// registerBuiltinProviders wires all built-in provider factories into reg.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterSTT("whisper", func(c config.STTConfig) (stt.Transcriber, error) {
		var opts []whisper.Option
		if c.Model != "" {
			opts = append(opts, whisper.WithModel(c.Model))
		}
		if c.Language != "" {
			opts = append(opts, whisper.WithLanguage(c.Language))
		}
		return whisper.NewServer(c.BaseURL, opts...)
	})

	reg.RegisterSTT("whisper-native", func(c config.STTConfig) (stt.Transcriber, error) {
		var opts []whisper.Option
		if c.Language != "" {
			opts = append(opts, whisper.WithLanguage(c.Language))
		}
		return whisper.NewNative(c.ModelPath, opts...)
	})

	// mock transcribes everything to the empty string; useful for trying the
	// recording flow without a model.
	reg.RegisterSTT("mock", func(config.STTConfig) (stt.Transcriber, error) {
		return &sttmock.Transcriber{}, nil
	})

	reg.RegisterTTS("piper", func(c config.TTSConfig) (tts.Synthesizer, error) {
		var opts []piper.Option
		if c.DefaultVoice != "" {
			opts = append(opts, piper.WithDefaultVoice(c.DefaultVoice))
		}
		synth, err := piper.New(c.Binary, c.Voices, opts...)
		if err != nil {
			return nil, err
		}
		if c.CacheDir != "" {
			return tts.NewCache(c.CacheDir, synth), nil
		}
		return synth, nil
	})
}

// buildProviders instantiates the providers named in cfg using the registry.
// TTS is optional: a missing or broken synthesizer only disables sentence
// playback.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	p, err := reg.CreateSTT(cfg.Providers.STT)
	if err != nil {
		return nil, fmt.Errorf("create stt provider %q: %w", cfg.Providers.STT.Name, err)
	}
	ps.STT = p
	slog.Info("provider created", "kind", "stt", "name", cfg.Providers.STT.Name)

	if name := cfg.Providers.TTS.Name; name != "" && cfg.Providers.TTS.Binary != "" {
		s, err := reg.CreateTTS(cfg.Providers.TTS)
		if err != nil {
			slog.Warn("sentence playback disabled", "kind", "tts", "name", name, "err", err)
		} else {
			ps.TTS = s
			slog.Info("provider created", "kind", "tts", "name", name)
		}
	}

	return ps, nil
}

// printDevices lists the available input devices.
func printDevices() int {
	host, err := portaudio.NewHost()
	if err != nil {
		fmt.Fprintf(os.Stderr, "elocute: %v\n", err)
		return 1
	}
	defer host.Close()

	devices, err := host.Devices(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "elocute: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Println("no input devices found")
		return 0
	}
	for _, d := range devices {
		marker := " "
		if d.IsDefault {
			marker = "*"
		}
		fmt.Printf("%s %-40s %d ch @ %.0f Hz\n", marker, d.Name, d.MaxInputChannels, d.DefaultSampleRate)
	}
	return 0
}
