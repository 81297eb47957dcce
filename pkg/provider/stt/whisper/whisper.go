// Package whisper provides whisper.cpp-backed stt.Transcriber
// implementations.
//
// Two variants exist:
//
//   - Server talks to a running whisper-server binary over its REST API
//     (POST /inference), keeping the model in a separate process.
//   - Native links whisper.cpp directly through its CGO bindings,
//     eliminating HTTP overhead entirely.
//
// Both accept the same functional options and return whitespace-trimmed
// text; an empty string means the recording contained no recognizable
// speech, which is a valid result.
//
// Usage:
//
//	t, err := whisper.NewServer("http://localhost:8080",
//	    whisper.WithLanguage("en"),
//	)
//	res, err := t.Transcribe(ctx, "/tmp/attempt.wav")
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mwathi/elocute/pkg/provider/stt"
)

const (
	defaultLanguage = "en"
	defaultTimeout  = 30 * time.Second
)

// config holds the options shared by the Server and Native variants.
type config struct {
	model      string
	language   string
	timeout    time.Duration
	httpClient *http.Client
}

func defaultConfig() config {
	return config{
		language: defaultLanguage,
		timeout:  defaultTimeout,
	}
}

// Option is a functional option accepted by NewServer and NewNative.
type Option func(*config)

// WithModel sets the model identifier forwarded to the whisper-server
// (e.g., "base.en", "small"). When empty the server uses whichever model it
// was started with — this is the default. Ignored by the native variant,
// which is bound to the model file it loaded.
func WithModel(model string) Option {
	return func(c *config) { c.model = model }
}

// WithLanguage sets the BCP-47 language code for recognition (e.g., "en",
// "de", "sw"). Defaults to "en".
func WithLanguage(lang string) Option {
	return func(c *config) { c.language = lang }
}

// WithTimeout bounds a single inference request. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithHTTPClient replaces the HTTP client used by the server variant.
// Intended for tests and callers that need custom transport settings.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) { c.httpClient = client }
}

// Server implements stt.Transcriber against a whisper-server REST endpoint.
// Safe for concurrent use; each Transcribe call is an independent request.
type Server struct {
	serverURL string
	cfg       config
	client    *http.Client
}

// Compile-time assertions.
var (
	_ stt.Transcriber = (*Server)(nil)
	_ stt.Pinger      = (*Server)(nil)
)

// NewServer creates a Server transcriber that submits recordings to the
// whisper-server at serverURL (e.g., "http://localhost:8080").
func NewServer(serverURL string, opts ...Option) (*Server, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: serverURL must not be empty")
	}
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	client := cfg.httpClient
	if client == nil {
		client = &http.Client{Timeout: cfg.timeout}
	}
	return &Server{serverURL: strings.TrimRight(serverURL, "/"), cfg: cfg, client: client}, nil
}

// Transcribe uploads the WAV file at audioPath to POST /inference as
// multipart/form-data and returns the recognized text.
func (s *Server) Transcribe(ctx context.Context, audioPath string) (stt.Result, error) {
	start := time.Now()

	f, err := os.Open(audioPath)
	if err != nil {
		return stt.Result{}, fmt.Errorf("whisper: open recording: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return stt.Result{}, fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := io.Copy(fw, f); err != nil {
		return stt.Result{}, fmt.Errorf("whisper: read recording: %w", err)
	}
	if s.cfg.language != "" {
		if err := mw.WriteField("language", s.cfg.language); err != nil {
			return stt.Result{}, fmt.Errorf("whisper: write language field: %w", err)
		}
	}
	if s.cfg.model != "" {
		if err := mw.WriteField("model", s.cfg.model); err != nil {
			return stt.Result{}, fmt.Errorf("whisper: write model field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return stt.Result{}, fmt.Errorf("whisper: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.serverURL+"/inference", &body)
	if err != nil {
		return stt.Result{}, fmt.Errorf("whisper: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return stt.Result{}, fmt.Errorf("whisper: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return stt.Result{}, fmt.Errorf("whisper: server returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return stt.Result{}, fmt.Errorf("whisper: read response body: %w", err)
	}
	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return stt.Result{}, fmt.Errorf("whisper: parse JSON response: %w", err)
	}

	return stt.Result{
		Text:     strings.TrimSpace(parsed.Text),
		Language: s.cfg.language,
		Elapsed:  time.Since(start),
	}, nil
}

// Ping reports whether the whisper-server is reachable. Any HTTP response
// counts as reachable — the server answers non-inference paths with 404 but
// that still proves the process is up.
func (s *Server) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.serverURL+"/", nil)
	if err != nil {
		return fmt.Errorf("whisper: create ping request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("whisper: server unreachable: %w", err)
	}
	resp.Body.Close()
	return nil
}
