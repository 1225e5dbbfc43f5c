package metadata

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/conduit-lang/powerups/runtime/graph"
)

var (
	ErrSchemaExists = errors.New("schema already registered")
	ErrNoSchema     = errors.New("no schema registered")
)

// Provider supplies the declared member set of a graph object's concrete
// type. It is the metadata collaborator consumed by the wiring runtime.
type Provider interface {
	SchemaFor(subject any) (*Schema, error)
}

// Described is implemented by graph objects that carry their own schema.
// Registries consult it before their type index.
type Described interface {
	Schema() *Schema
}

// Registry maps Go types to the schema describing them.
type Registry struct {
	mu     sync.RWMutex
	byType map[reflect.Type]*Schema
	byName map[string]*Schema
}

// NewRegistry creates an empty schema registry.
func NewRegistry() *Registry {
	return &Registry{
		byType: make(map[reflect.Type]*Schema),
		byName: make(map[string]*Schema),
	}
}

// Register associates schema with the Go type t. Registering t twice, or a
// different schema under a type name already taken, fails with
// ErrSchemaExists.
func (r *Registry) Register(t reflect.Type, schema *Schema) error {
	if t == nil {
		return fmt.Errorf("metadata: type is required")
	}
	if schema == nil {
		return fmt.Errorf("metadata: schema is required for %s", t)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byType[t]; exists {
		return fmt.Errorf("metadata: %w: %s", ErrSchemaExists, t)
	}
	// A type name identifies one schema; the same schema may back several
	// Go types (a struct and its pointer, for instance).
	if existing, exists := r.byName[schema.TypeName()]; exists && existing != schema {
		return fmt.Errorf("metadata: %w: type name %s", ErrSchemaExists, schema.TypeName())
	}
	r.byType[t] = schema
	r.byName[schema.TypeName()] = schema
	return nil
}

// RegisterType associates schema with the type parameter S.
func RegisterType[S any](r *Registry, schema *Schema) error {
	return r.Register(reflect.TypeFor[S](), schema)
}

// SchemaFor implements Provider.
func (r *Registry) SchemaFor(subject any) (*Schema, error) {
	if d, ok := subject.(Described); ok {
		if s := d.Schema(); s != nil {
			return s, nil
		}
	}

	t := reflect.TypeOf(subject)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if s, ok := r.byType[t]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("metadata: %w for %s", ErrNoSchema, graph.TypeName(subject))
}

// Schema finds a registered schema by its graph object type name.
func (r *Registry) Schema(typeName string) (*Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byName[typeName]
	return s, ok
}

// TypeNames returns the registered graph object type names, sorted.
func (r *Registry) TypeNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SchemasByPattern returns the schemas whose type name matches a glob
// pattern, ordered by type name.
func (r *Registry) SchemasByPattern(pattern string) []*Schema {
	var out []*Schema
	for _, name := range r.TypeNames() {
		if graph.Match(name, pattern) {
			s, _ := r.Schema(name)
			out = append(out, s)
		}
	}
	return out
}

// Global registry instance
var globalRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry {
	return globalRegistry
}

// MustRegister registers schema for S in the process-wide registry and
// panics on error. Intended for init functions.
func MustRegister[S any](schema *Schema) {
	if err := RegisterType[S](globalRegistry, schema); err != nil {
		panic(err)
	}
}

// Reset clears the process-wide registry (used for testing).
func Reset() {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.byType = make(map[reflect.Type]*Schema)
	globalRegistry.byName = make(map[string]*Schema)
}
