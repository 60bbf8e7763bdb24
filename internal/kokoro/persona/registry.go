package persona

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed profile.yaml
var builtinProfile []byte

//go:embed schema.json
var profileSchema string

// ErrUnknownRole is returned by Resolve for role names absent from the
// profile. Callers should recover by presenting Names to the user.
var ErrUnknownRole = errors.New("unknown role")

// Registry answers persona lookups against a validated profile.
// It is immutable after construction and safe for concurrent use.
type Registry struct {
	profile Profile
}

// Parse decodes a profile YAML document, validates it against the embedded
// JSON Schema, and returns a Registry. It is the canonical entry point for
// loading profiles.
func Parse(data []byte) (*Registry, error) {
	// Schema validation runs on the JSON shape of the document so the schema
	// semantics match what jsonschema expects.
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("profile parse: %w", err)
	}
	jsonDoc, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("profile parse: %w", err)
	}
	var doc any
	if err := json.Unmarshal(jsonDoc, &doc); err != nil {
		return nil, fmt.Errorf("profile parse: %w", err)
	}

	schema, err := jsonschema.CompileString("profile.schema.json", profileSchema)
	if err != nil {
		return nil, fmt.Errorf("profile schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("profile validate: %w", err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("profile parse: %w", err)
	}
	return &Registry{profile: p}, nil
}

// Load reads and parses a profile file from disk.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profile load %q: %w", path, err)
	}
	return Parse(data)
}

// Builtin returns the registry backed by the embedded default profile.
// The embedded profile is covered by tests, so a parse failure here is a
// build defect; it panics rather than forcing every caller to handle it.
func Builtin() *Registry {
	r, err := Parse(builtinProfile)
	if err != nil {
		panic(fmt.Sprintf("persona: embedded profile is invalid: %v", err))
	}
	return r
}

// Resolve returns the instruction for the named role. Matching is
// case-insensitive and exact; unknown names yield ErrUnknownRole and leave it
// to the caller to re-prompt.
func (r *Registry) Resolve(name string) (string, error) {
	instruction, ok := r.profile.Roles[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, name)
	}
	return instruction, nil
}

// Default returns the generic-assistant instruction used when no role has
// been selected.
func (r *Registry) Default() string {
	return r.profile.Default
}

// Story returns the fixed narrative co-writing instruction.
func (r *Registry) Story() string {
	return r.profile.Story
}

// Names returns all role names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profile.Roles))
	for name := range r.profile.Roles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tokens returns the command tokens configured for the given router action.
func (r *Registry) Tokens(action string) []string {
	return r.profile.Commands[action]
}

// Commands returns a copy of the full action → tokens table.
func (r *Registry) Commands() map[string][]string {
	out := make(map[string][]string, len(r.profile.Commands))
	for action, tokens := range r.profile.Commands {
		out[action] = append([]string(nil), tokens...)
	}
	return out
}
