// Package mock provides a test double for the stt.Transcriber interface.
//
// Script the returned text (or error) and inspect which recordings were
// submitted:
//
//	tr := &mock.Transcriber{Result: stt.Result{Text: "the cat sat"}}
//	res, _ := tr.Transcribe(ctx, "/tmp/a.wav")
package mock

import (
	"context"
	"sync"

	"github.com/mwathi/elocute/pkg/provider/stt"
)

// Transcriber is a mock implementation of stt.Transcriber.
type Transcriber struct {
	mu sync.Mutex

	// Result is returned by Transcribe when Fn is nil.
	Result stt.Result

	// Err, if non-nil, is returned by Transcribe.
	Err error

	// Fn, when set, overrides Result/Err entirely for per-call scripting.
	Fn func(ctx context.Context, audioPath string) (stt.Result, error)

	// PingErr is returned by Ping.
	PingErr error

	// TranscribeCalls records the audio path of every Transcribe call.
	TranscribeCalls []string
}

// Transcribe records the call and returns the scripted result.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath string) (stt.Result, error) {
	t.mu.Lock()
	t.TranscribeCalls = append(t.TranscribeCalls, audioPath)
	fn := t.Fn
	res, err := t.Result, t.Err
	t.mu.Unlock()

	if fn != nil {
		return fn(ctx, audioPath)
	}
	if err != nil {
		return stt.Result{}, err
	}
	return res, nil
}

// Ping returns PingErr.
func (t *Transcriber) Ping(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.PingErr
}

// Calls returns a copy of the recorded Transcribe paths. Thread-safe.
func (t *Transcriber) Calls() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.TranscribeCalls))
	copy(out, t.TranscribeCalls)
	return out
}

// Compile-time assertions.
var (
	_ stt.Transcriber = (*Transcriber)(nil)
	_ stt.Pinger      = (*Transcriber)(nil)
)
