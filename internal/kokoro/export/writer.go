// Package export renders a stored transcript into a human-readable document
// for delivery as a downloadable attachment.
package export

import (
	"fmt"
	"os"
	"strings"

	"github.com/bdobrica/kokoro/internal/kokoro/transcript"
)

// Speaker labels used in the rendered document.
const (
	labelUser      = "You"
	labelAssistant = "Assistant"
)

// Render formats the turns as labelled lines separated by blank lines, in
// chronological order.
func Render(turns []transcript.Turn) string {
	var b strings.Builder
	for _, turn := range turns {
		label := labelAssistant
		if turn.Role == transcript.RoleUser {
			label = labelUser
		}
		fmt.Fprintf(&b, "%s: %s\n\n", label, turn.Content)
	}
	return b.String()
}

// Filename returns the attachment name presented to the user.
func Filename() string {
	return "chat.txt"
}

// WriteTemp renders the turns into a temporary file and returns its path
// together with a cleanup func. The caller must invoke cleanup once the
// document has been delivered (or delivery has failed); the artifact never
// outlives the request that produced it.
func WriteTemp(turns []transcript.Turn) (path string, cleanup func(), err error) {
	f, err := os.CreateTemp("", "chat_*.txt")
	if err != nil {
		return "", nil, fmt.Errorf("create export file: %w", err)
	}

	cleanup = func() { os.Remove(f.Name()) }

	if _, err := f.WriteString(Render(turns)); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("write export file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close export file: %w", err)
	}

	return f.Name(), cleanup, nil
}
