package export_test

import (
	"os"
	"strings"
	"testing"

	"github.com/bdobrica/kokoro/internal/kokoro/export"
	"github.com/bdobrica/kokoro/internal/kokoro/transcript"
)

func TestRender_LabelsAndOrder(t *testing.T) {
	turns := []transcript.Turn{
		{Role: transcript.RoleUser, Content: "hi"},
		{Role: transcript.RoleAssistant, Content: "hello"},
	}

	doc := export.Render(turns)

	youIdx := strings.Index(doc, "You: hi")
	botIdx := strings.Index(doc, "Assistant: hello")
	if youIdx == -1 || botIdx == -1 {
		t.Fatalf("expected both labelled lines, got:\n%s", doc)
	}
	if youIdx > botIdx {
		t.Errorf("expected chronological order, got:\n%s", doc)
	}
	if !strings.Contains(doc, "hi\n\n") {
		t.Errorf("expected blank line between turns, got:\n%s", doc)
	}
}

func TestRender_EmptyTranscript(t *testing.T) {
	if doc := export.Render(nil); doc != "" {
		t.Errorf("expected empty document, got %q", doc)
	}
}

func TestWriteTemp_CreatesAndCleansUp(t *testing.T) {
	turns := []transcript.Turn{
		{Role: transcript.RoleUser, Content: "hi"},
		{Role: transcript.RoleAssistant, Content: "hello"},
	}

	path, cleanup, err := export.WriteTemp(turns)
	if err != nil {
		t.Fatalf("WriteTemp: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export file: %v", err)
	}
	if string(data) != export.Render(turns) {
		t.Errorf("file content does not match Render output")
	}

	cleanup()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected export file to be removed, stat err: %v", err)
	}
}
