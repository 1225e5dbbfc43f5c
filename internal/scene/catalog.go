package scene

import (
	"slices"
	"sync"
)

// View is a node seen through capabilities its type does not implement
// natively.
type View struct {
	Node         *Node
	Capabilities []string
}

// Name implements graph.Node.
func (v View) Name() string {
	if v.Node == nil {
		return ""
	}
	return v.Node.Name()
}

// Is reports whether the view exposes typ, either as an adapted capability
// or through the underlying node's own type.
func (v View) Is(typ string) bool {
	if slices.Contains(v.Capabilities, typ) {
		return true
	}
	return v.Node != nil && v.Node.Is(typ)
}

// Catalog records which capabilities each node type can be adapted to. Its
// Adapt method is the adapter used when wiring scene members.
type Catalog struct {
	mu       sync.RWMutex
	provides map[string][]string
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{provides: make(map[string][]string)}
}

// Provide declares that nodes of type typ can be adapted to capabilities.
func (c *Catalog) Provide(typ string, capabilities ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, capability := range capabilities {
		if !slices.Contains(c.provides[typ], capability) {
			c.provides[typ] = append(c.provides[typ], capability)
		}
	}
}

// Capabilities returns the capabilities a node of type typ can be adapted
// to, including those its ancestors provide.
func (c *Catalog) Capabilities(tree *Tree, typ string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []string
	for _, t := range tree.Ancestry(typ) {
		for _, capability := range c.provides[t] {
			if !slices.Contains(out, capability) {
				out = append(out, capability)
			}
		}
	}
	return out
}

// Adapt returns a View of target when target is a node whose type provides
// at least one capability.
func (c *Catalog) Adapt(target any) (any, bool) {
	n, ok := target.(*Node)
	if !ok || n == nil {
		return nil, false
	}
	capabilities := c.Capabilities(n.tree, n.typ)
	if len(capabilities) == 0 {
		return nil, false
	}
	return View{Node: n, Capabilities: capabilities}, true
}

// Satisfies reports whether value, a *Node or a View, is of type typ.
func Satisfies(value any, typ string) bool {
	switch v := value.(type) {
	case *Node:
		return v != nil && v.Is(typ)
	case View:
		return v.Is(typ)
	default:
		return false
	}
}
