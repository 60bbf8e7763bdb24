package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bdobrica/kokoro/internal/kokoro/export"
	"github.com/bdobrica/kokoro/internal/kokoro/persona"
)

// handleRole selects a persona. An unknown or missing name leaves the user's
// state untouched and re-prompts with the valid names.
func (r *Router) handleRole(userID string, args []string) (string, error) {
	if len(args) == 0 {
		return "Which persona? Try one of: " + r.roleList(), nil
	}

	name := strings.ToLower(strings.Join(args, " "))
	instruction, err := r.personas.Resolve(name)
	if err != nil {
		if errors.Is(err, persona.ErrUnknownRole) {
			return fmt.Sprintf("I don't know the persona %q. Try one of: %s", name, r.roleList()), nil
		}
		return "", fmt.Errorf("resolve role: %w", err)
	}

	r.sessions.SetRole(userID, instruction)
	return fmt.Sprintf("From now on I'll answer as a %s. Send /new if you'd like me to forget our conversation first.", name), nil
}

// handleStory switches the user into story mode.
func (r *Router) handleStory(userID string) (string, error) {
	r.sessions.EnterStory(userID)
	return "Let's write a story together! What should it be about?", nil
}

// handleNew clears the stored transcript. Mode and persona selection survive;
// only the memory of past turns is dropped.
func (r *Router) handleNew(userID string) (string, error) {
	if err := r.transcripts.Clear(userID); err != nil {
		return "", fmt.Errorf("clear transcript: %w", err)
	}
	return "Done, I've forgotten our conversation. What shall we talk about?", nil
}

// handleSave renders the transcript to a temporary text file and delivers it
// as an attachment. The temp file is removed whether delivery succeeds or not.
func (r *Router) handleSave(ctx context.Context, req Request) (string, error) {
	turns, err := r.transcripts.Load(req.UserID)
	if err != nil {
		return "", fmt.Errorf("load transcript: %w", err)
	}
	if len(turns) == 0 {
		return "There's nothing to save yet. Say something first!", nil
	}

	path, cleanup, err := export.WriteTemp(turns)
	if err != nil {
		return "", fmt.Errorf("export transcript: %w", err)
	}
	defer cleanup()

	if err := r.files.SendFile(ctx, req.RoomID, export.Filename(), path); err != nil {
		return "", fmt.Errorf("send transcript file: %w", err)
	}
	return "", nil
}
