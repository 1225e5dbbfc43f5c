// Package scene is an in-memory scene tree used to host graph objects
// outside a game engine. It backs the CLI and the runtime tests.
package scene

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/conduit-lang/powerups/runtime/graph"
)

var (
	ErrDuplicateName   = errors.New("duplicate node name")
	ErrDuplicateUnique = errors.New("duplicate unique name")
	ErrNoNode          = errors.New("node not found")
)

// Tree is a rooted tree of nodes. Node names are unique among siblings and
// nodes flagged unique can be reached from anywhere with "%Name".
type Tree struct {
	mu       sync.RWMutex
	root     *Node
	extends  map[string][]string
	unique   map[string]*Node
	byID     map[uuid.UUID]*Node
	size     int
}

// Node is a node of a Tree.
type Node struct {
	id       uuid.UUID
	name     string
	typ      string
	unique   bool
	parent   *Node
	children []*Node
	tree     *Tree
}

// NewTree creates a tree with a root node.
func NewTree(rootName, rootType string) *Tree {
	t := &Tree{
		extends: make(map[string][]string),
		unique:  make(map[string]*Node),
		byID:    make(map[uuid.UUID]*Node),
	}
	t.root = t.newNode(rootName, rootType, false)
	return t
}

func (t *Tree) newNode(name, typ string, unique bool) *Node {
	n := &Node{
		id:     uuid.New(),
		name:   name,
		typ:    typ,
		unique: unique,
		tree:   t,
	}
	t.byID[n.id] = n
	t.size++
	return n
}

// Root returns the root node.
func (t *Tree) Root() *Node {
	return t.root
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.size
}

// Extend declares that typ derives from each of ancestors.
func (t *Tree) Extend(typ string, ancestors ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.extends[typ] = append(t.extends[typ], ancestors...)
}

// IsA reports whether typ is want or derives from it.
func (t *Tree) IsA(typ, want string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.isALocked(typ, want, make(map[string]bool))
}

func (t *Tree) isALocked(typ, want string, seen map[string]bool) bool {
	if typ == want {
		return true
	}
	if seen[typ] {
		return false
	}
	seen[typ] = true
	for _, parent := range t.extends[typ] {
		if t.isALocked(parent, want, seen) {
			return true
		}
	}
	return false
}

// Ancestry returns typ followed by every type it derives from, nearest first.
func (t *Tree) Ancestry(typ string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := []string{typ}
	seen := map[string]bool{typ: true}
	for i := 0; i < len(out); i++ {
		for _, parent := range t.extends[out[i]] {
			if !seen[parent] {
				seen[parent] = true
				out = append(out, parent)
			}
		}
	}
	return out
}

// Add creates a node under parent.
func (t *Tree) Add(parent *Node, name, typ string, unique bool) (*Node, error) {
	if parent == nil || parent.tree != t {
		return nil, fmt.Errorf("scene: parent does not belong to this tree")
	}
	if name == "" || strings.ContainsAny(name, "/%") {
		return nil, fmt.Errorf("scene: invalid node name %q", name)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if parent.childLocked(name) != nil {
		return nil, fmt.Errorf("scene: %w: %s/%s", ErrDuplicateName, parent.pathLocked(), name)
	}
	if unique {
		if _, exists := t.unique[name]; exists {
			return nil, fmt.Errorf("scene: %w: %%%s", ErrDuplicateUnique, name)
		}
	}

	n := t.newNode(name, typ, unique)
	n.parent = parent
	parent.children = append(parent.children, n)
	if unique {
		t.unique[name] = n
	}
	return n, nil
}

// NodeByID finds a node by id.
func (t *Tree) NodeByID(id uuid.UUID) (*Node, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.byID[id]
	return n, ok
}

// Unique finds a node flagged unique by name.
func (t *Tree) Unique(name string) (*Node, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.unique[name]
	return n, ok
}

// Walk visits every node depth first, parents before children, until fn
// returns false.
func (t *Tree) Walk(fn func(*Node) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	walk(t.root, fn)
}

func walk(n *Node, fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.children {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

// ID returns the node's id.
func (n *Node) ID() uuid.UUID { return n.id }

// Name implements graph.Node.
func (n *Node) Name() string { return n.name }

// Type returns the node's type name.
func (n *Node) Type() string { return n.typ }

// Unique reports whether the node is reachable as "%Name".
func (n *Node) Unique() bool { return n.unique }

// Parent returns the parent node, or nil for the root.
func (n *Node) Parent() *Node {
	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()
	return n.parent
}

// Children returns the node's children in insertion order.
func (n *Node) Children() []*Node {
	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Child returns the child called name.
func (n *Node) Child(name string) (*Node, bool) {
	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()
	c := n.childLocked(name)
	return c, c != nil
}

func (n *Node) childLocked(name string) *Node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// Is reports whether the node's type is typ or derives from it.
func (n *Node) Is(typ string) bool {
	return n.tree.IsA(n.typ, typ)
}

// Path returns the absolute path of the node, e.g. "/Root/Player/Sprite".
func (n *Node) Path() string {
	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()
	return n.pathLocked()
}

func (n *Node) pathLocked() string {
	var parts []string
	for cur := n; cur != nil; cur = cur.parent {
		parts = append(parts, cur.name)
	}
	var b strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		b.WriteByte('/')
		b.WriteString(parts[i])
	}
	return b.String()
}

// Lookup resolves path relative to n. Paths are made of "/"-separated
// segments; ".." steps to the parent, "%Name" jumps to a unique node and a
// leading "/" starts from the root, whose name must be the first segment.
func (n *Node) Lookup(path string) (*Node, bool) {
	if path == "" {
		return nil, false
	}

	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()

	cur := n
	segments := strings.Split(path, "/")
	if segments[0] == "" {
		root := n.tree.root
		if len(segments) < 2 || segments[1] != root.name {
			return nil, false
		}
		cur = root
		segments = segments[2:]
	}

	for _, seg := range segments {
		switch {
		case seg == "" || seg == ".":
			continue
		case seg == "..":
			if cur.parent == nil {
				return nil, false
			}
			cur = cur.parent
		case graph.IsUnique(seg):
			u, ok := n.tree.unique[seg[1:]]
			if !ok {
				return nil, false
			}
			cur = u
		default:
			c := cur.childLocked(seg)
			if c == nil {
				return nil, false
			}
			cur = c
		}
	}
	return cur, true
}

// Resolve is Lookup reporting ErrNoNode on a miss.
func (n *Node) Resolve(path string) (*Node, error) {
	found, ok := n.Lookup(path)
	if !ok {
		return nil, fmt.Errorf("scene: %w: %s from %s", ErrNoNode, path, n.Path())
	}
	return found, nil
}

// Graph returns the graph of nodes reachable from n.
func (n *Node) Graph() graph.Graph {
	return graph.GraphFunc(func(key string) (any, bool) {
		found, ok := n.Lookup(key)
		if !ok {
			return nil, false
		}
		return found, true
	})
}
