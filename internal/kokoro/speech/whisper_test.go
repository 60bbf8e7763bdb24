package speech_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bdobrica/kokoro/internal/kokoro/speech"
)

func TestTranscribe_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", auth)
		}

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if model := r.FormValue("model"); model != "whisper-1" {
			t.Errorf("expected model whisper-1, got %q", model)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		if header.Filename != "note.ogg" {
			t.Errorf("expected filename note.ogg, got %q", header.Filename)
		}
		payload, _ := io.ReadAll(file)
		if string(payload) != "fake-ogg-bytes" {
			t.Errorf("unexpected payload %q", payload)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text": "  hello from voice  "}`))
	}))
	defer srv.Close()

	c := speech.NewWhisper(speech.WhisperConfig{APIKey: "test-key", BaseURL: srv.URL})

	text, err := c.Transcribe(context.Background(), []byte("fake-ogg-bytes"), "note.ogg")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "hello from voice" {
		t.Errorf("expected trimmed transcript, got %q", text)
	}
}

func TestTranscribe_FailuresWrapSentinel(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"api error", http.StatusBadRequest, `{"error": {"message": "bad audio", "type": "invalid_request_error"}}`},
		{"not json", http.StatusOK, "<html>oops</html>"},
		{"http error without body", http.StatusInternalServerError, `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := speech.NewWhisper(speech.WhisperConfig{APIKey: "k", BaseURL: srv.URL})
			_, err := c.Transcribe(context.Background(), []byte("audio"), "note.ogg")
			if !errors.Is(err, speech.ErrTranscription) {
				t.Errorf("expected ErrTranscription, got %v", err)
			}
		})
	}
}

func TestTranscribe_EmptyPayloadRejectedLocally(t *testing.T) {
	c := speech.NewWhisper(speech.WhisperConfig{APIKey: "k", BaseURL: "http://127.0.0.1:0"})
	_, err := c.Transcribe(context.Background(), nil, "note.ogg")
	if !errors.Is(err, speech.ErrTranscription) {
		t.Errorf("expected ErrTranscription, got %v", err)
	}
}

func TestTranscribe_RemovesStagedAudio(t *testing.T) {
	// Point TMPDIR at a private directory so leftover staging files are
	// detectable regardless of what else the host is doing.
	tmpDir := t.TempDir()
	t.Setenv("TMPDIR", tmpDir)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text": "ok"}`))
	}))
	defer srv.Close()

	c := speech.NewWhisper(speech.WhisperConfig{APIKey: "k", BaseURL: srv.URL})
	if _, err := c.Transcribe(context.Background(), []byte("audio"), "note.ogg"); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	leftovers, err := filepath.Glob(filepath.Join(tmpDir, "voice_*"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(leftovers) != 0 {
		t.Errorf("expected staged audio to be removed, found %v", leftovers)
	}

	// Failure path cleans up too.
	srvFail := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "nope", "type": "invalid_request_error"}}`))
	}))
	defer srvFail.Close()

	cFail := speech.NewWhisper(speech.WhisperConfig{APIKey: "k", BaseURL: srvFail.URL})
	if _, err := cFail.Transcribe(context.Background(), []byte("audio"), "note.ogg"); err == nil {
		t.Fatal("expected error")
	}
	leftovers, _ = filepath.Glob(filepath.Join(tmpDir, "voice_*"))
	if len(leftovers) != 0 {
		t.Errorf("expected staged audio to be removed after failure, found %v", leftovers)
	}

	if entries, err := os.ReadDir(tmpDir); err == nil {
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), "voice_") {
				t.Errorf("staging file %q survived", e.Name())
			}
		}
	}
}
