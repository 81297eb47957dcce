package health

import (
	"context"
	"fmt"

	"github.com/mwathi/elocute/pkg/audio"
	"github.com/mwathi/elocute/pkg/provider/stt"
	"github.com/mwathi/elocute/pkg/provider/tts"
)

// Pinger matches any dependency with a Ping probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Microphone returns a checker that verifies the configured input device can
// be resolved. An empty device name probes for the host default.
func Microphone(resolver audio.Resolver, device string) Checker {
	return Checker{
		Name: "microphone",
		Check: func(ctx context.Context) error {
			dev, err := resolver.Resolve(ctx, device)
			if err != nil {
				return err
			}
			if dev.MaxInputChannels <= 0 {
				return fmt.Errorf("device %q has no input channels", dev.Name)
			}
			return nil
		},
	}
}

// Transcriber returns a checker probing the speech-to-text provider. When the
// transcriber does not support pinging, the check always passes.
func Transcriber(t stt.Transcriber) Checker {
	return Checker{
		Name: "stt",
		Check: func(ctx context.Context) error {
			p, ok := t.(stt.Pinger)
			if !ok {
				return nil
			}
			return p.Ping(ctx)
		},
	}
}

// Synthesizer returns a checker probing the text-to-speech provider. When the
// synthesizer does not support pinging, the check always passes.
func Synthesizer(s tts.Synthesizer) Checker {
	return Checker{
		Name: "tts",
		Check: func(ctx context.Context) error {
			p, ok := s.(Pinger)
			if !ok {
				return nil
			}
			return p.Ping(ctx)
		},
	}
}

// Database returns a checker verifying the attempt store is reachable.
func Database(p Pinger) Checker {
	return Checker{
		Name: "database",
		Check: func(ctx context.Context) error {
			return p.Ping(ctx)
		},
	}
}
