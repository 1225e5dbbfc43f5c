// Package graph defines the view of the host's object graph consumed by the
// wiring and resource-tracking runtime.
//
// The runtime never builds or owns the graph. Hosts hand it a Graph able to
// resolve lookup keys, and graph objects identify themselves through Node.
// Lookup keys follow the host's conventions: a key starting with UniqueMarker
// names a unique object within the owner ("%Player"), anything else is a path
// relative to the object being wired ("Body/Sprite").
package graph

import (
	"fmt"

	ustrings "github.com/conduit-lang/powerups/internal/util/strings"
)

// UniqueMarker prefixes keys that address an object by its unique name.
const UniqueMarker = '%'

// Node is implemented by every object living in the graph.
//
// The resource tracker never releases values implementing Node: the host tears
// graph objects down itself.
type Node interface {
	Name() string
}

// Graph resolves lookup keys against the host's real object graph.
type Graph interface {
	// Node returns the object addressed by key, or false if there is none.
	Node(key string) (any, bool)
}

// GraphFunc adapts a plain function to the Graph interface.
type GraphFunc func(key string) (any, bool)

// Node implements Graph.
func (f GraphFunc) Node(key string) (any, bool) {
	return f(key)
}

// DeriveKey converts a declared member name into the unique-name lookup key
// the member is wired to when no explicit path is given.
//
//	DeriveKey("_my_ref")       == "%MyRef"
//	DeriveKey("MyUniqueNode")  == "%MyUniqueNode"
//	DeriveKey("")              == "%"
func DeriveKey(name string) string {
	return ustrings.ASCIIPascalCase(name, UniqueMarker)
}

// PascalCase is DeriveKey without the unique-name marker.
func PascalCase(name string) string {
	return ustrings.ASCIIPascalCase(name, 0)
}

// IsUnique reports whether key addresses an object by unique name.
func IsUnique(key string) bool {
	return len(key) > 0 && key[0] == UniqueMarker
}

// Match reports whether name matches a case-sensitive glob pattern where '*'
// matches zero or more characters and '?' exactly one.
func Match(name, pattern string) bool {
	return ustrings.Match(name, pattern)
}

// NameOf reads the name of a graph target without trusting it. Targets that
// do not implement Node, report an empty name, or panic while reporting it
// (for example an unstubbed mock) yield false.
func NameOf(target any) (name string, ok bool) {
	n, isNode := target.(Node)
	if !isNode || n == nil {
		return "", false
	}
	defer func() {
		if recover() != nil {
			name, ok = "", false
		}
	}()
	name = n.Name()
	return name, name != ""
}

// TypeName returns the concrete type name used in diagnostics.
func TypeName(v any) string {
	if v == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T", v)
}
