package plugin

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DescriptorFile is the conventional descriptor file name.
const DescriptorFile = "plugin.yaml"

var (
	// ErrInvalidDescriptor is returned when a descriptor fails validation.
	ErrInvalidDescriptor = errors.New("invalid plugin descriptor")

	namePattern    = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	commandPattern = regexp.MustCompile(`^[a-z0-9_:-]+$`)
)

// Descriptor declares a plugin and the commands it owns. Commands that are
// not declared here can never be bound.
type Descriptor struct {
	Name        string                 `yaml:"name"`
	Version     string                 `yaml:"version"`
	Description string                 `yaml:"description,omitempty"`
	Authors     []string               `yaml:"authors,omitempty"`
	Commands    map[string]CommandSpec `yaml:"commands,omitempty"`

	// declared names that lower-cased onto an earlier command
	collisions []string
}

// CommandSpec describes one declared command.
type CommandSpec struct {
	Description string   `yaml:"description,omitempty"`
	Usage       string   `yaml:"usage,omitempty"`
	Aliases     []string `yaml:"aliases,omitempty"`
	Permission  string   `yaml:"permission,omitempty"`
}

// LoadDescriptor reads and validates a descriptor file.
func LoadDescriptor(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read descriptor: %w", err)
	}
	d, err := ParseDescriptor(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// ParseDescriptor decodes and validates descriptor YAML. Command names and
// aliases are lower-cased.
func ParseDescriptor(data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse descriptor: %w", err)
	}
	d.normalize()
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

func (d *Descriptor) normalize() {
	if len(d.Commands) == 0 {
		return
	}
	names := make([]string, 0, len(d.Commands))
	for name := range d.Commands {
		names = append(names, name)
	}
	sort.Strings(names)

	commands := make(map[string]CommandSpec, len(d.Commands))
	for _, name := range names {
		spec := d.Commands[name]
		for i, alias := range spec.Aliases {
			spec.Aliases[i] = strings.ToLower(strings.TrimSpace(alias))
		}
		key := strings.ToLower(strings.TrimSpace(name))
		if _, dup := commands[key]; dup {
			d.collisions = append(d.collisions, name)
			continue
		}
		commands[key] = spec
	}
	d.Commands = commands
}

// Validate checks the plugin name, version and that every command name and
// alias is well formed and unique.
func (d *Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDescriptor)
	}
	if !namePattern.MatchString(d.Name) {
		return fmt.Errorf("%w: name %q may only contain letters, digits, '_', '.' and '-'", ErrInvalidDescriptor, d.Name)
	}
	if d.Version == "" {
		return fmt.Errorf("%w: version is required", ErrInvalidDescriptor)
	}
	if len(d.collisions) > 0 {
		return fmt.Errorf("%w: duplicate command name %q", ErrInvalidDescriptor, strings.ToLower(d.collisions[0]))
	}

	owner := make(map[string]string)
	for _, name := range d.CommandNames() {
		if !commandPattern.MatchString(name) {
			return fmt.Errorf("%w: command name %q", ErrInvalidDescriptor, name)
		}
		owner[name] = name
	}
	for _, name := range d.CommandNames() {
		for _, alias := range d.Commands[name].Aliases {
			if !commandPattern.MatchString(alias) {
				return fmt.Errorf("%w: alias %q of command %q", ErrInvalidDescriptor, alias, name)
			}
			if other, taken := owner[alias]; taken {
				return fmt.Errorf("%w: alias %q of command %q already names %q", ErrInvalidDescriptor, alias, name, other)
			}
			owner[alias] = name
		}
	}
	return nil
}

// CommandNames returns the declared command names, sorted.
func (d *Descriptor) CommandNames() []string {
	names := make([]string, 0, len(d.Commands))
	for name := range d.Commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
