// Package persona defines the bot profile: the system instructions that steer
// the completion service, the table of selectable roles, and the command-token
// aliases accepted by the router.
//
// A profile is a versioned YAML document (apiVersion kokoro/v1) validated
// against an embedded JSON Schema. A built-in profile ships with the binary
// so the bot runs with no config files; operators can point KOKORO_PROFILE at
// their own file to replace roles, instructions, or command tokens (e.g. to
// localize command names).
package persona

// ProfileVersion is the apiVersion string required in every profile document.
const ProfileVersion = "kokoro/v1"

// Profile is the root type of a profile document.
type Profile struct {
	// APIVersion must be "kokoro/v1".
	APIVersion string `yaml:"apiVersion" json:"apiVersion"`

	// Default is the generic-assistant instruction used when the user has not
	// selected a role.
	Default string `yaml:"default" json:"default"`

	// Story is the fixed narrative co-writing instruction used while story
	// mode is active.
	Story string `yaml:"story" json:"story"`

	// Roles maps a role name (lowercase) to its instruction.
	Roles map[string]string `yaml:"roles" json:"roles"`

	// Commands maps a router action to the command tokens that trigger it.
	// Tokens are matched after the "/" prefix; non-ASCII tokens are allowed.
	Commands map[string][]string `yaml:"commands" json:"commands"`
}

// Router actions a profile must provide tokens for.
const (
	ActionHelp  = "help"
	ActionRole  = "role"
	ActionStory = "story"
	ActionSave  = "save"
	ActionNew   = "new"
)
