package persona_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/bdobrica/kokoro/internal/kokoro/persona"
)

func TestBuiltin_HasExpectedShape(t *testing.T) {
	r := persona.Builtin()

	if r.Default() == "" {
		t.Error("expected non-empty default instruction")
	}
	if r.Story() == "" {
		t.Error("expected non-empty story instruction")
	}

	names := r.Names()
	if len(names) < 18 {
		t.Errorf("expected at least 18 roles, got %d", len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("Names not sorted: %q before %q", names[i-1], names[i])
		}
	}

	for _, action := range []string{persona.ActionHelp, persona.ActionRole, persona.ActionStory, persona.ActionSave, persona.ActionNew} {
		if len(r.Tokens(action)) == 0 {
			t.Errorf("expected tokens for action %q", action)
		}
	}
}

func TestResolve_CaseInsensitive(t *testing.T) {
	r := persona.Builtin()

	want, err := r.Resolve("doctor")
	if err != nil {
		t.Fatalf("Resolve(doctor): %v", err)
	}

	for _, name := range []string{"Doctor", "DOCTOR", "  doctor  "} {
		got, err := r.Resolve(name)
		if err != nil {
			t.Errorf("Resolve(%q): %v", name, err)
			continue
		}
		if got != want {
			t.Errorf("Resolve(%q): expected same instruction as lowercase lookup", name)
		}
	}
}

func TestResolve_UnknownRole(t *testing.T) {
	r := persona.Builtin()

	_, err := r.Resolve("astronaut")
	if !errors.Is(err, persona.ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}

func TestParse_ProfileOverride(t *testing.T) {
	doc := `
apiVersion: kokoro/v1
default: Be helpful.
story: Tell stories.
roles:
  pirate: Speak like a pirate.
commands:
  help: [start, help]
  role: [role, "роль"]
  story: [story]
  save: [save]
  new: [new]
`
	r, err := persona.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if _, err := r.Resolve("pirate"); err != nil {
		t.Errorf("Resolve(pirate): %v", err)
	}
	if _, err := r.Resolve("doctor"); !errors.Is(err, persona.ErrUnknownRole) {
		t.Errorf("expected built-in roles to be replaced, got %v", err)
	}

	tokens := r.Tokens(persona.ActionRole)
	found := false
	for _, tok := range tokens {
		if tok == "роль" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected non-ASCII alias in role tokens, got %v", tokens)
	}
}

func TestParse_RejectsMalformedProfiles(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "wrong apiVersion",
			doc: `
apiVersion: kokoro/v2
default: x
story: x
roles: {a: x}
commands: {help: [h], role: [r], story: [s], save: [v], new: [n]}
`,
		},
		{
			name: "missing story",
			doc: `
apiVersion: kokoro/v1
default: x
roles: {a: x}
commands: {help: [h], role: [r], story: [s], save: [v], new: [n]}
`,
		},
		{
			name: "empty role instruction",
			doc: `
apiVersion: kokoro/v1
default: x
story: x
roles: {a: ""}
commands: {help: [h], role: [r], story: [s], save: [v], new: [n]}
`,
		},
		{
			name: "uppercase role name",
			doc: `
apiVersion: kokoro/v1
default: x
story: x
roles: {Pirate: arr}
commands: {help: [h], role: [r], story: [s], save: [v], new: [n]}
`,
		},
		{
			name: "missing command action",
			doc: `
apiVersion: kokoro/v1
default: x
story: x
roles: {a: x}
commands: {help: [h], role: [r], story: [s], save: [v]}
`,
		},
		{
			name: "command token with whitespace",
			doc: `
apiVersion: kokoro/v1
default: x
story: x
roles: {a: x}
commands: {help: ["h i"], role: [r], story: [s], save: [v], new: [n]}
`,
		},
		{
			name: "not yaml",
			doc:  "::::",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := persona.Parse([]byte(tt.doc)); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestNames_MatchesOriginalRoster(t *testing.T) {
	r := persona.Builtin()
	roster := strings.Join(r.Names(), ",")

	for _, role := range []string{"psychologist", "teacher", "marketer", "developer", "doctor", "lawyer"} {
		if !strings.Contains(roster, role) {
			t.Errorf("expected role %q in roster %s", role, roster)
		}
	}
}
