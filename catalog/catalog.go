// Package catalog holds the compiled-in table of registrable component types
// and the namespace scanner that enumerates it.
//
// Component packages describe their types from init() functions, the same way
// language parsers and slash commands announce themselves elsewhere in the
// platform:
//
//	func init() {
//		catalog.Register(catalog.TypeInfo{
//			Namespace:   "commands/admin",
//			Name:        "KickCommand",
//			Marker:      &catalog.Marker{Key: "kick"},
//			Constructor: catalog.NewWith(NewKickCommand),
//		})
//	}
//
// The registration pipeline then discovers these types by namespace instead of
// inspecting the binary at runtime.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"go/token"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrDuplicateType is returned when an identifier is registered twice.
	ErrDuplicateType = errors.New("type already registered")
	// ErrInvalidNamespace is returned for malformed namespaces.
	ErrInvalidNamespace = errors.New("invalid namespace")
	// ErrInvalidName is returned when a type name is not a Go identifier.
	ErrInvalidName = errors.New("invalid type name")
	// ErrAbstractConstructor is returned when a constructor does not produce a
	// concrete type that can be probed for capabilities.
	ErrAbstractConstructor = errors.New("constructor must produce a concrete type")
	// ErrTypeNotFound is returned by Load for identifiers that are not compiled in.
	ErrTypeNotFound = errors.New("type not found")
)

// Marker is the declarative registration metadata attached to a type.
type Marker struct {
	// Key is the registration key, e.g. the command name a type binds to.
	Key string `yaml:"key,omitempty"`
	// DevOnly marks the type as loadable only in development mode.
	DevOnly bool `yaml:"dev,omitempty"`
}

// TypeInfo describes one registrable type.
type TypeInfo struct {
	// Namespace is the slash-separated grouping, e.g. "commands/admin".
	Namespace string

	// Name is the simple type name.
	Name string

	// Marker is nil when the type carries no registration marker.
	Marker *Marker

	// Constructor builds instances. Its result type is also the probe used
	// for capability checks.
	Constructor Constructor

	// Init runs every time the type is loaded; a failure makes the type
	// unloadable for that pass. Init must be idempotent.
	Init func() error
}

// Identifier returns the fully qualified identifier of the type.
func (t TypeInfo) Identifier() string {
	return Identifier(t.Namespace, t.Name)
}

// DevOnly reports whether the type is marked development-only.
func (t TypeInfo) DevOnly() bool {
	return t.Marker != nil && t.Marker.DevOnly
}

// Identifier joins a namespace and a type name.
func Identifier(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

// SplitIdentifier splits an identifier into namespace and type name.
func SplitIdentifier(identifier string) (namespace, name string) {
	i := strings.LastIndex(identifier, ".")
	if i < 0 {
		return "", identifier
	}
	return identifier[:i], identifier[i+1:]
}

// ValidateNamespace checks that a namespace is a clean slash-separated path.
// The empty namespace is the root.
func ValidateNamespace(namespace string) error {
	if namespace == "" {
		return nil
	}
	if strings.ContainsAny(namespace, "*?[]{}\\. \t") {
		return fmt.Errorf("%w: %q contains reserved characters", ErrInvalidNamespace, namespace)
	}
	for _, segment := range strings.Split(namespace, "/") {
		if segment == "" {
			return fmt.Errorf("%w: %q has an empty segment", ErrInvalidNamespace, namespace)
		}
	}
	return nil
}

// ValidateIdentifier checks that an identifier is namespace.Name with a valid
// namespace and a Go identifier as the name.
func ValidateIdentifier(identifier string) error {
	namespace, name := SplitIdentifier(identifier)
	if err := ValidateNamespace(namespace); err != nil {
		return err
	}
	if !token.IsIdentifier(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Loader resolves identifiers to type descriptions.
type Loader interface {
	Load(identifier string) (*TypeInfo, error)
}

// Catalog is the table of compiled-in types.
// Thread-safe for concurrent access.
type Catalog struct {
	mu    sync.RWMutex
	types map[string]TypeInfo
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{types: make(map[string]TypeInfo)}
}

// Default is the global catalog. Component packages register into it via init().
var Default = NewCatalog()

// Register adds a type to the catalog.
func (c *Catalog) Register(info TypeInfo) error {
	if err := ValidateNamespace(info.Namespace); err != nil {
		return err
	}
	if !token.IsIdentifier(info.Name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, info.Name)
	}
	if info.Constructor.Probe() == nil {
		if info.Constructor.shapeErr != nil {
			return fmt.Errorf("%s: %w", info.Identifier(), info.Constructor.shapeErr)
		}
		return fmt.Errorf("%s: %w", info.Identifier(), ErrAbstractConstructor)
	}

	id := info.Identifier()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.types[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateType, id)
	}
	c.types[id] = info
	return nil
}

// MustRegister is Register for init() functions; it panics on error.
func (c *Catalog) MustRegister(info TypeInfo) {
	if err := c.Register(info); err != nil {
		panic(fmt.Sprintf("catalog: %v", err))
	}
}

// Register adds a type to the Default catalog and panics on error.
func Register(info TypeInfo) {
	Default.MustRegister(info)
}

// Load resolves an identifier and runs the type's Init hook.
func (c *Catalog) Load(identifier string) (*TypeInfo, error) {
	c.mu.RLock()
	info, ok := c.types[identifier]
	c.mu.RUnlock()

	if !ok {
		return nil, &LoadError{Identifier: identifier, Err: ErrTypeNotFound}
	}
	if info.Init != nil {
		if err := info.Init(); err != nil {
			return nil, &LoadError{Identifier: identifier, Err: err}
		}
	}
	return &info, nil
}

// Lookup returns the type description without running Init.
func (c *Catalog) Lookup(identifier string) (TypeInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info, ok := c.types[identifier]
	return info, ok
}

// Identifiers returns all registered identifiers in sorted order.
// It implements Index and never fails.
func (c *Catalog) Identifiers(_ context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.types))
	for id := range c.types {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Len returns the number of registered types.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.types)
}
