// Package speech converts voice-note audio into text via an external
// speech-to-text service.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultWhisperBase    = "https://api.openai.com/v1"
	defaultWhisperModel   = "whisper-1"
	defaultWhisperTimeout = 60 * time.Second
)

// ErrTranscription wraps every failure of the transcription adapter so
// callers can report one generic notice without inspecting the cause.
var ErrTranscription = errors.New("transcription failed")

// Transcriber converts a voice-note payload into plain text.
type Transcriber interface {
	// Transcribe sends the audio bytes (in their native compressed container,
	// e.g. OGG) to the speech-to-text service and returns the transcript with
	// surrounding whitespace trimmed. filename hints the container format.
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// WhisperConfig configures the Whisper transcription client.
type WhisperConfig struct {
	// APIKey is the bearer token; the completion service's key works here.
	APIKey string
	// BaseURL overrides the API endpoint. Defaults to https://api.openai.com/v1.
	BaseURL string
	// Model is the transcription model. Defaults to whisper-1.
	Model string
	// Timeout for each HTTP request. Defaults to 60s.
	Timeout time.Duration
}

// WhisperClient implements Transcriber using the OpenAI audio API.
type WhisperClient struct {
	cfg    WhisperConfig
	client *http.Client
}

// NewWhisper creates a Transcriber backed by the OpenAI (or compatible)
// transcription API. The returned client is safe for concurrent use.
func NewWhisper(cfg WhisperConfig) *WhisperClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultWhisperBase
	}
	if cfg.Model == "" {
		cfg.Model = defaultWhisperModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultWhisperTimeout
	}
	return &WhisperClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type transcriptionResponse struct {
	Text  string `json:"text"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Transcribe stages the audio in a temporary file, uploads it as multipart
// form data, and returns the transcript. The staging file is removed on every
// path, success or failure.
func (w *WhisperClient) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("%w: empty audio payload", ErrTranscription)
	}

	// The service identifies the container by file extension. Voice notes
	// often arrive with a display name instead of a filename, so fall back to
	// the OGG container they are normally encoded in.
	if filepath.Ext(filename) == "" {
		filename = "voice.ogg"
	}

	tmp, err := os.CreateTemp("", "voice_*"+filepath.Ext(filename))
	if err != nil {
		return "", fmt.Errorf("%w: stage audio: %v", ErrTranscription, err)
	}
	defer func() {
		tmp.Close()
		if rmErr := os.Remove(tmp.Name()); rmErr != nil {
			slog.Warn("speech: remove staged audio", "path", tmp.Name(), "err", rmErr)
		}
	}()

	if _, err := tmp.Write(audio); err != nil {
		return "", fmt.Errorf("%w: stage audio: %v", ErrTranscription, err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("%w: stage audio: %v", ErrTranscription, err)
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("model", w.cfg.Model); err != nil {
		return "", fmt.Errorf("%w: build form: %v", ErrTranscription, err)
	}
	part, err := form.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return "", fmt.Errorf("%w: build form: %v", ErrTranscription, err)
	}
	if _, err := io.Copy(part, tmp); err != nil {
		return "", fmt.Errorf("%w: build form: %v", ErrTranscription, err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("%w: build form: %v", ErrTranscription, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		w.cfg.BaseURL+"/audio/transcriptions",
		&body,
	)
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", ErrTranscription, err)
	}
	httpReq.Header.Set("Content-Type", form.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+w.cfg.APIKey)

	resp, err := w.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: http request: %v", ErrTranscription, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrTranscription, err)
	}

	var tr transcriptionResponse
	if err := json.Unmarshal(respBody, &tr); err != nil {
		return "", fmt.Errorf("%w: decode response (status %d): %v", ErrTranscription, resp.StatusCode, err)
	}
	if tr.Error != nil {
		return "", fmt.Errorf("%w: api error %s: %s", ErrTranscription, tr.Error.Type, tr.Error.Message)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%w: unexpected HTTP status %d", ErrTranscription, resp.StatusCode)
	}

	return strings.TrimSpace(tr.Text), nil
}

// Compile-time interface satisfaction check.
var _ Transcriber = (*WhisperClient)(nil)
