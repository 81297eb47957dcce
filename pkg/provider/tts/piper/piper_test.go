package piper_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mwathi/elocute/pkg/provider/tts/piper"
	"github.com/mwathi/elocute/pkg/wav"
)

// fakePiper writes a shell script that mimics the piper CLI: it ignores the
// prompt on stdin and copies a pre-rendered WAV to the --output_file
// argument. Returns the script path and the model path it expects.
func fakePiper(t *testing.T) (binary, model string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake piper script requires a POSIX shell")
	}

	dir := t.TempDir()
	src := filepath.Join(dir, "rendered.wav")
	samples := make([]int16, 2205)
	for i := range samples {
		samples[i] = int16(i % 3000)
	}
	if err := wav.WriteFile(src, samples, 22050, 1); err != nil {
		t.Fatal(err)
	}

	binary = filepath.Join(dir, "piper")
	script := "#!/bin/sh\n# args: --model <m> --output_file <f>\ncat >/dev/null\ncp " + src + " \"$4\"\n"
	if err := os.WriteFile(binary, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	model = filepath.Join(dir, "voice.onnx")
	if err := os.WriteFile(model, []byte("onnx"), 0o644); err != nil {
		t.Fatal(err)
	}
	return binary, model
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	if _, err := piper.New("", map[string]string{"f": "m.onnx"}); err == nil {
		t.Error("New with empty binary succeeded, want error")
	}
	if _, err := piper.New("piper", nil); err == nil {
		t.Error("New with no voices succeeded, want error")
	}
	if _, err := piper.New("piper", map[string]string{"f": "m.onnx"}, piper.WithDefaultVoice("missing")); err == nil {
		t.Error("New with unknown default voice succeeded, want error")
	}
}

func TestSynthesize(t *testing.T) {
	t.Parallel()

	binary, model := fakePiper(t)
	s, err := piper.New(binary, map[string]string{"female": model})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	clip, err := s.Synthesize(context.Background(), "The cat sat on the mat.", "female")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if clip.SampleRate != 22050 || clip.Channels != 1 {
		t.Errorf("clip format = %d Hz / %d ch, want 22050 Hz mono", clip.SampleRate, clip.Channels)
	}
	if len(clip.Samples) != 2205 {
		t.Errorf("clip samples = %d, want 2205", len(clip.Samples))
	}
	if got := clip.Duration(); got != 100*time.Millisecond {
		t.Errorf("Duration() = %v, want 100ms", got)
	}
}

func TestSynthesize_DefaultVoice(t *testing.T) {
	t.Parallel()

	binary, model := fakePiper(t)
	s, err := piper.New(binary, map[string]string{"female": model, "male": model},
		piper.WithDefaultVoice("male"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Synthesize(context.Background(), "hello", ""); err != nil {
		t.Fatalf("Synthesize() with empty voice error = %v", err)
	}
}

func TestSynthesize_Errors(t *testing.T) {
	t.Parallel()

	binary, model := fakePiper(t)
	s, err := piper.New(binary, map[string]string{"female": model})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Synthesize(context.Background(), "   ", "female"); err == nil {
		t.Error("Synthesize() with blank text succeeded, want error")
	}
	if _, err := s.Synthesize(context.Background(), "hello", "robot"); err == nil {
		t.Error("Synthesize() with unknown voice succeeded, want error")
	}
}

func TestSynthesize_SubprocessFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	binary := filepath.Join(dir, "piper")
	if err := os.WriteFile(binary, []byte("#!/bin/sh\necho 'model load failed' >&2\nexit 1\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if runtime.GOOS == "windows" {
		t.Skip("fake piper script requires a POSIX shell")
	}

	s, err := piper.New(binary, map[string]string{"female": filepath.Join(dir, "v.onnx")})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Synthesize(context.Background(), "hello", "female"); err == nil {
		t.Fatal("Synthesize() succeeded despite subprocess failure, want error")
	}
}

func TestVoicesAndPing(t *testing.T) {
	t.Parallel()

	binary, model := fakePiper(t)
	s, err := piper.New(binary, map[string]string{"male": model, "female": model})
	if err != nil {
		t.Fatal(err)
	}

	voices, err := s.Voices(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(voices) != 2 || voices[0].ID != "female" || voices[1].ID != "male" {
		t.Errorf("Voices() = %v, want [female male] in stable order", voices)
	}

	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}

	missing, err := piper.New(binary, map[string]string{"female": filepath.Join(t.TempDir(), "gone.onnx")})
	if err != nil {
		t.Fatal(err)
	}
	if err := missing.Ping(context.Background()); err == nil {
		t.Error("Ping() with a missing model succeeded, want error")
	}
}
