// Package commands parses slash commands and runs their handlers. The token
// table comes from the persona profile, so deployments can rename or alias
// commands (including non-ASCII tokens) without a rebuild.
package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bdobrica/kokoro/internal/kokoro/persona"
	"github.com/bdobrica/kokoro/internal/kokoro/session"
	"github.com/bdobrica/kokoro/internal/kokoro/transcript"
)

// ErrNotACommand signals that the message does not start with the command
// prefix and should flow to the conversation manager instead.
var ErrNotACommand = errors.New("not a command")

const prefix = "/"

// TranscriptStore is the slice of the transcript package the handlers need.
type TranscriptStore interface {
	Load(userID string) ([]transcript.Turn, error)
	Clear(userID string) error
}

// FileSender delivers a file attachment to a room. The matrix gateway
// satisfies it; tests substitute a recorder.
type FileSender interface {
	SendFile(ctx context.Context, roomID, filename, path string) error
}

// Request is one inbound message under consideration as a command.
type Request struct {
	UserID string
	RoomID string
	Text   string
}

// Router resolves command tokens to actions and dispatches to handlers.
type Router struct {
	personas    *persona.Registry
	sessions    *session.Store
	transcripts TranscriptStore
	files       FileSender

	// aliases maps a lowercased command token to its action.
	aliases map[string]string
}

// NewRouter builds a Router with the alias table taken from the profile's
// command section.
func NewRouter(personas *persona.Registry, sessions *session.Store, transcripts TranscriptStore, files FileSender) *Router {
	aliases := make(map[string]string)
	for action, tokens := range personas.Commands() {
		for _, token := range tokens {
			aliases[strings.ToLower(token)] = action
		}
	}
	return &Router{
		personas:    personas,
		sessions:    sessions,
		transcripts: transcripts,
		files:       files,
		aliases:     aliases,
	}
}

// Dispatch parses the message and runs the matching handler, returning the
// text reply to send. Messages without the command prefix return
// ErrNotACommand; unknown command tokens get the usage text so the user is
// never silently ignored.
func (r *Router) Dispatch(ctx context.Context, req Request) (string, error) {
	if !strings.HasPrefix(req.Text, prefix) {
		return "", ErrNotACommand
	}

	fields := strings.Fields(strings.TrimPrefix(req.Text, prefix))
	if len(fields) == 0 {
		return r.helpText(), nil
	}
	token := strings.ToLower(fields[0])
	args := fields[1:]

	action, ok := r.aliases[token]
	if !ok {
		return r.helpText(), nil
	}

	switch action {
	case persona.ActionHelp:
		return r.helpText(), nil
	case persona.ActionRole:
		return r.handleRole(req.UserID, args)
	case persona.ActionStory:
		return r.handleStory(req.UserID)
	case persona.ActionNew:
		return r.handleNew(req.UserID)
	case persona.ActionSave:
		return r.handleSave(ctx, req)
	default:
		// Profile validation pins the action set, so this is unreachable with
		// a loaded registry.
		return "", fmt.Errorf("unmapped action %q for token %q", action, token)
	}
}

// helpText renders the usage message from the configured token table, using
// the first alias of each action.
func (r *Router) helpText() string {
	descriptions := map[string]string{
		persona.ActionHelp:  "show this message",
		persona.ActionRole:  "pick a persona, e.g. /%s lawyer",
		persona.ActionStory: "co-write a story",
		persona.ActionSave:  "download the conversation as a text file",
		persona.ActionNew:   "forget the conversation so far",
	}
	actions := []string{
		persona.ActionHelp, persona.ActionRole, persona.ActionStory,
		persona.ActionSave, persona.ActionNew,
	}

	var b strings.Builder
	b.WriteString("Hi! I chat, act out personas, and co-write stories. Commands:\n")
	for _, action := range actions {
		tokens := r.personas.Tokens(action)
		if len(tokens) == 0 {
			continue
		}
		desc := descriptions[action]
		if strings.Contains(desc, "%s") {
			desc = fmt.Sprintf(desc, tokens[0])
		}
		fmt.Fprintf(&b, "/%s - %s\n", tokens[0], desc)
	}
	b.WriteString("Anything else you send is part of our conversation. Voice notes work too.")
	return b.String()
}

// roleList renders the valid role names for re-prompting.
func (r *Router) roleList() string {
	names := r.personas.Names()
	sort.Strings(names)
	return strings.Join(names, ", ")
}
