// Package fakegraph provides an ordered, keyed overlay graph that tests
// install on a graph object to substitute wiring targets without building a
// real scene.
//
// Entries keep insertion order so that "first child", index access and
// pattern search behave like a real graph's document order. The graph does
// not own its targets; they are shared references supplied by the test.
package fakegraph

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/conduit-lang/powerups/runtime/graph"
)

var (
	ErrDuplicateKey    = errors.New("duplicate key")
	ErrNotFound        = errors.New("not found")
	ErrIndexOutOfRange = errors.New("index out of range")
)

// Entry is a single keyed target.
type Entry struct {
	Key    string
	Target any
}

// Graph is the overlay graph. It is safe for concurrent use.
type Graph struct {
	mu      sync.RWMutex
	entries []Entry
	index   map[string]int
	nextID  int
}

// New creates a graph holding entries in the given order.
func New(entries ...Entry) (*Graph, error) {
	g := &Graph{index: make(map[string]int, len(entries))}
	for _, e := range entries {
		if err := g.Insert(e.Key, e.Target); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// FromMap creates a graph from a key -> target map. Entries are inserted in
// sorted key order because map iteration order is unspecified.
func FromMap(targets map[string]any) *Graph {
	keys := make([]string, 0, len(targets))
	for k := range targets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	g := &Graph{index: make(map[string]int, len(targets))}
	for _, k := range keys {
		g.entries = append(g.entries, Entry{Key: k, Target: targets[k]})
		g.index[k] = len(g.entries) - 1
	}
	return g
}

// Insert appends target under key.
func (g *Graph) Insert(key string, target any) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.insertLocked(key, target)
}

func (g *Graph) insertLocked(key string, target any) error {
	if _, exists := g.index[key]; exists {
		return fmt.Errorf("fakegraph: %w: %s", ErrDuplicateKey, key)
	}
	g.entries = append(g.entries, Entry{Key: key, Target: target})
	g.index[key] = len(g.entries) - 1
	return nil
}

// AddChild appends target keyed by its name. Targets that cannot report a
// name are keyed "<Type>@<n>".
func (g *Graph) AddChild(target any) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key, ok := graph.NameOf(target)
	if !ok {
		key = fmt.Sprintf("%s@%d", typeLabel(target), g.nextID)
		g.nextID++
	}
	if err := g.insertLocked(key, target); err != nil {
		return "", err
	}
	return key, nil
}

// Lookup returns the target stored under key or ErrNotFound.
func (g *Graph) Lookup(key string) (any, error) {
	target, ok := g.Find(key)
	if !ok {
		return nil, fmt.Errorf("fakegraph: %w: %s", ErrNotFound, key)
	}
	return target, nil
}

// Find is the lenient variant of Lookup.
func (g *Graph) Find(key string) (any, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	i, ok := g.index[key]
	if !ok {
		return nil, false
	}
	return g.entries[i].Target, true
}

// Has reports whether key is present.
func (g *Graph) Has(key string) bool {
	_, ok := g.Find(key)
	return ok
}

// FindByNamePattern returns the first target, in insertion order, whose name
// matches the glob pattern. Targets that cannot report a name are skipped.
func (g *Graph) FindByNamePattern(pattern string) (any, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, e := range g.entries {
		if name, ok := graph.NameOf(e.Target); ok && graph.Match(name, pattern) {
			return e.Target, true
		}
	}
	return nil, false
}

// FindAllByNamePattern returns every target whose name matches the glob
// pattern, in insertion order.
func (g *Graph) FindAllByNamePattern(pattern string) []any {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []any
	for _, e := range g.entries {
		if name, ok := graph.NameOf(e.Target); ok && graph.Match(name, pattern) {
			out = append(out, e.Target)
		}
	}
	return out
}

// Child returns the target at index. Negative indexes count from the end.
func (g *Graph) Child(index int) (any, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	i := index
	if i < 0 {
		i += len(g.entries)
	}
	if i < 0 || i >= len(g.entries) {
		return nil, fmt.Errorf("fakegraph: %w: %d (len %d)", ErrIndexOutOfRange, index, len(g.entries))
	}
	return g.entries[i].Target, nil
}

// Len returns the number of entries.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.entries)
}

// Children returns every target in insertion order.
func (g *Graph) Children() []any {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]any, len(g.entries))
	for i, e := range g.entries {
		out[i] = e.Target
	}
	return out
}

// Entries returns a copy of every entry in insertion order.
func (g *Graph) Entries() []Entry {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Entry, len(g.entries))
	copy(out, g.entries)
	return out
}

// Remove deletes the entry holding target. Pointer-shaped targets (pointers,
// maps, channels, funcs, and interfaces holding them) are located by
// identity. Other comparable targets have no identity and are matched by ==,
// so among equal value targets the first in insertion order is removed.
// Incomparable targets never match.
func (g *Graph) Remove(target any) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for i, e := range g.entries {
		if !sameTarget(e.Target, target) {
			continue
		}
		g.entries = append(g.entries[:i], g.entries[i+1:]...)
		delete(g.index, e.Key)
		for j := i; j < len(g.entries); j++ {
			g.index[g.entries[j].Key] = j
		}
		return nil
	}
	return fmt.Errorf("fakegraph: %w: target %s", ErrNotFound, graph.TypeName(target))
}

// sameTarget reports whether a and b are the same target. For pointer-shaped
// values == is an address comparison; for other comparable values it is value
// equality, the closest a non-pointer has to identity.
func sameTarget(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

func typeLabel(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return "nil"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.Name()
}
