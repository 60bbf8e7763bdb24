// Package transcript persists per-user conversation history as one JSON
// document per user under a fixed data directory.
//
// The store is deliberately simple: whole-document read and whole-document
// overwrite, no locking. Two concurrent exchanges for the same user race on
// read-modify-write and the later Save wins; this is an accepted limitation
// of the single-process deployment model, not a safe design.
package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Turn is one message in a conversation, tagged with its speaker role.
// The JSON shape matches the chat-completion message format so stored turns
// can be sent to the model without conversion.
type Turn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Speaker roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Store reads and writes per-user transcripts in a data directory.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory %q: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the data directory the store writes to.
func (s *Store) Dir() string {
	return s.dir
}

// Load returns the stored transcript for userID, oldest turn first.
// A user with no stored transcript yields an empty slice, not an error.
func (s *Store) Load(userID string) ([]Turn, error) {
	data, err := os.ReadFile(s.path(userID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Turn{}, nil
		}
		return nil, fmt.Errorf("read transcript for %s: %w", userID, err)
	}

	var turns []Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("decode transcript for %s: %w", userID, err)
	}
	return turns, nil
}

// Save overwrites the stored transcript for userID with the given turns.
// The document is fully replaced; there is no partial-write protection, so a
// crash mid-write can truncate the file (accepted risk).
func (s *Store) Save(userID string, turns []Turn) error {
	if turns == nil {
		turns = []Turn{}
	}
	data, err := json.MarshalIndent(turns, "", "  ")
	if err != nil {
		return fmt.Errorf("encode transcript for %s: %w", userID, err)
	}
	if err := os.WriteFile(s.path(userID), data, 0o644); err != nil {
		return fmt.Errorf("write transcript for %s: %w", userID, err)
	}
	return nil
}

// Clear replaces the stored transcript for userID with an empty one.
// Mode and persona are not this store's concern and are untouched.
func (s *Store) Clear(userID string) error {
	return s.Save(userID, []Turn{})
}

// path derives the on-disk filename for a user ID.
func (s *Store) path(userID string) string {
	return filepath.Join(s.dir, "memory_"+sanitize(userID)+".json")
}

// sanitize maps a Matrix user ID (e.g. "@alice:example.com") onto a
// filesystem-safe token. The mapping is deterministic so the same user always
// resolves to the same file.
func sanitize(userID string) string {
	var b strings.Builder
	b.Grow(len(userID))
	for _, r := range userID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
