// Package conversation orchestrates one exchange: load the user's transcript,
// append the new turn, pick the active instruction, window the context, call
// the completion service, and persist the result.
package conversation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bdobrica/kokoro/common/trace"
	"github.com/bdobrica/kokoro/internal/kokoro/llm"
	"github.com/bdobrica/kokoro/internal/kokoro/persona"
	"github.com/bdobrica/kokoro/internal/kokoro/session"
	"github.com/bdobrica/kokoro/internal/kokoro/transcript"
)

const (
	// DefaultWindow is the number of transcript turns sent to the completion
	// service per request (the system instruction rides on top of these).
	DefaultWindow = 10
	// DefaultMaxReplyTokens caps the generated reply length.
	DefaultMaxReplyTokens = 400
)

// TranscriptStore is the slice of the transcript package the manager needs.
type TranscriptStore interface {
	Load(userID string) ([]transcript.Turn, error)
	Save(userID string, turns []transcript.Turn) error
}

// UsageRecorder receives token counts after each successful exchange.
// Recording is best-effort; failures are logged, never surfaced to the user.
type UsageRecorder interface {
	WriteUsage(ctx context.Context, exchangeID, userID, model string, promptTokens, completionTokens int) error
}

// Config assembles the manager's dependencies.
type Config struct {
	Transcripts TranscriptStore
	Sessions    *session.Store
	Personas    *persona.Registry
	Provider    llm.Provider
	// Usage is optional; nil disables usage recording.
	Usage UsageRecorder
	// Window overrides DefaultWindow when positive.
	Window int
	// MaxReplyTokens overrides DefaultMaxReplyTokens when positive.
	MaxReplyTokens int
}

// Manager runs exchanges. It holds no per-request state and is safe for
// concurrent use; the documented per-user persistence race lives in the
// transcript store underneath it.
type Manager struct {
	cfg Config
}

// NewManager creates a Manager with defaults applied.
func NewManager(cfg Config) *Manager {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.MaxReplyTokens <= 0 {
		cfg.MaxReplyTokens = DefaultMaxReplyTokens
	}
	return &Manager{cfg: cfg}
}

// Respond runs one exchange for userID and returns the assistant's reply.
//
// On completion failure nothing is persisted: the just-appended user turn
// only exists in the in-memory working copy, so the transcript on disk is
// unchanged from before the attempt. The caller is expected to tell the user
// to resend the message.
func (m *Manager) Respond(ctx context.Context, userID, text string) (string, error) {
	exchangeID := trace.FromContext(ctx)
	if exchangeID == "" {
		exchangeID = trace.GenerateID()
		ctx = trace.WithID(ctx, exchangeID)
	}

	turns, err := m.cfg.Transcripts.Load(userID)
	if err != nil {
		return "", fmt.Errorf("load transcript: %w", err)
	}
	turns = append(turns, transcript.Turn{Role: transcript.RoleUser, Content: text})

	instruction := m.activeInstruction(userID)
	messages := buildMessages(instruction, turns, m.cfg.Window)

	resp, err := m.cfg.Provider.Complete(ctx, llm.CompletionRequest{
		Messages:  messages,
		MaxTokens: m.cfg.MaxReplyTokens,
	})
	if err != nil {
		return "", fmt.Errorf("complete: %w", err)
	}

	turns = append(turns, transcript.Turn{Role: transcript.RoleAssistant, Content: resp.Content})
	if err := m.cfg.Transcripts.Save(userID, turns); err != nil {
		return "", fmt.Errorf("save transcript: %w", err)
	}

	if m.cfg.Usage != nil {
		if err := m.cfg.Usage.WriteUsage(ctx, exchangeID, userID, resp.Model,
			resp.Usage.PromptTokens, resp.Usage.CompletionTokens); err != nil {
			slog.Warn("conversation: record usage", "exchange", exchangeID, "err", err)
		}
	}

	return resp.Content, nil
}

// activeInstruction picks the system instruction for the user's current mode.
// Story mode's fixed instruction wins while active; otherwise the selected
// persona applies, falling back to the profile default.
func (m *Manager) activeInstruction(userID string) string {
	if m.cfg.Sessions.Mode(userID) == session.ModeStory {
		return m.cfg.Personas.Story()
	}
	return m.cfg.Sessions.Instruction(userID, m.cfg.Personas.Default())
}

// buildMessages assembles the completion request: one system message followed
// by the last window turns in original order. With the new user turn already
// appended, at most window-1 historical turns survive.
func buildMessages(instruction string, turns []transcript.Turn, window int) []llm.Message {
	if len(turns) > window {
		turns = turns[len(turns)-window:]
	}

	messages := make([]llm.Message, 0, len(turns)+1)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: instruction})
	for _, turn := range turns {
		messages = append(messages, llm.Message{Role: llm.Role(turn.Role), Content: turn.Content})
	}
	return messages
}
