// Package llm defines the completion-service interface and message types used
// by the conversation manager, plus an OpenAI-compatible implementation.
//
// Failures carry an ErrorKind so callers and tests can distinguish a dead
// endpoint from a garbled response or a rejected credential, even though the
// user-facing treatment collapses them into one generic notice.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Role is the role of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single message in a completion request.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the input to a single completion call.
type CompletionRequest struct {
	// Model overrides the provider's default model when non-empty.
	Model string
	// Messages is the windowed conversation, system instruction first.
	Messages []Message
	// MaxTokens caps the generated reply length.
	MaxTokens int
}

// CompletionResponse is the output of a successful completion call.
type CompletionResponse struct {
	// Content is the generated reply text, whitespace-trimmed.
	Content string
	// Model is the model that produced the reply.
	Model string
	// Usage holds token counts for cost tracking.
	Usage TokenUsage
}

// TokenUsage reports token consumption for the usage log.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Provider is the interface all completion backends implement.
type Provider interface {
	// Complete sends the windowed messages and returns the next assistant
	// reply. Errors are *ServiceError values.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// ErrorKind classifies a completion-service failure.
type ErrorKind string

const (
	// KindUnreachable covers transport-level failures: DNS, refused
	// connections, timeouts.
	KindUnreachable ErrorKind = "unreachable"
	// KindMalformed covers undecodable or structurally empty responses.
	KindMalformed ErrorKind = "malformed"
	// KindAuth covers rejected credentials (HTTP 401/403).
	KindAuth ErrorKind = "auth"
	// KindQuota covers rate limits and exhausted quota (HTTP 429).
	KindQuota ErrorKind = "quota"
)

// ServiceError is a completion-service failure tagged with its kind.
type ServiceError struct {
	Kind ErrorKind
	Err  error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("completion service (%s): %v", e.Kind, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// serviceErr wraps err with the given kind.
func serviceErr(kind ErrorKind, err error) *ServiceError {
	return &ServiceError{Kind: kind, Err: err}
}

// KindOf extracts the ErrorKind from err, or "" when err is not a
// ServiceError.
func KindOf(err error) ErrorKind {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
