// Package session tracks per-user conversation settings: the active mode
// (assistant or story) and the selected persona instruction.
//
// State lives only in process memory and resets to defaults on restart; the
// durable transcript is the transcript package's concern. The store is an
// explicit dependency injected into handlers rather than a package-level map,
// and it is mutex-guarded because every inbound event runs in its own
// goroutine.
package session

import "sync"

// Mode selects how the system instruction for a user is chosen.
type Mode string

const (
	// ModeAssistant uses the user's persona instruction (or the default).
	ModeAssistant Mode = "assistant"
	// ModeStory uses the fixed narrative co-writing instruction.
	ModeStory Mode = "story"
)

// state is the per-user record. A zero instruction means "no role selected".
type state struct {
	mode        Mode
	instruction string
}

// Store holds per-user session state keyed by user ID.
// The zero value is not usable; construct with NewStore.
type Store struct {
	mu    sync.Mutex
	users map[string]state
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{users: make(map[string]state)}
}

// Mode returns the user's active mode, ModeAssistant when none was set.
func (s *Store) Mode(userID string) Mode {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.users[userID]; ok && st.mode != "" {
		return st.mode
	}
	return ModeAssistant
}

// Instruction returns the user's persona instruction, or fallback when the
// user has not selected a role. The "no selection yet" case is explicit here
// rather than hidden in an auto-vivifying lookup.
func (s *Store) Instruction(userID, fallback string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.users[userID]; ok && st.instruction != "" {
		return st.instruction
	}
	return fallback
}

// SetRole stores the resolved persona instruction for the user and resets the
// mode to assistant. Selecting a role always leaves story mode.
func (s *Store) SetRole(userID, instruction string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[userID] = state{mode: ModeAssistant, instruction: instruction}
}

// EnterStory switches the user into story mode. The stored persona
// instruction is kept; the story instruction takes precedence while the mode
// is active.
func (s *Store) EnterStory(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.users[userID]
	st.mode = ModeStory
	s.users[userID] = st
}
