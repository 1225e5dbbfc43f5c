// Package autonode resolves the declared references of a graph object to
// other objects in the graph.
//
// Every member carrying a metadata.WireTag is resolved by key: the tag's
// explicit path, or the key derived from the member name (see
// graph.DeriveKey). A fake graph installed on the object is consulted before
// the real graph, which lets tests substitute individual targets. The found
// target is checked against the member's declared type; when it does not
// satisfy it, the capability adapter is asked for a view that does.
package autonode

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/powerups/runtime/fakegraph"
	"github.com/conduit-lang/powerups/runtime/graph"
	"github.com/conduit-lang/powerups/runtime/metadata"
)

// Subject is a graph object whose references can be wired.
type Subject interface {
	graph.Node
	// Graph returns the real graph lookups are made against. It may be nil
	// when the object is not attached to a graph.
	Graph() graph.Graph
	// FakeGraph returns the overlay installed for tests, or nil.
	FakeGraph() *fakegraph.Graph
}

// Adapter returns a view of target exposing a capability its concrete type
// does not implement natively, or false when none exists.
type Adapter func(target any) (any, bool)

// Connector wires graph objects.
type Connector struct {
	adapt  Adapter
	logger *zap.Logger
}

// Option configures a Connector.
type Option func(*Connector)

// WithAdapter sets the capability adapter consulted on type mismatch.
func WithAdapter(adapt Adapter) Option {
	return func(c *Connector) {
		c.adapt = adapt
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Connector) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewConnector creates a connector.
func NewConnector(opts ...Option) *Connector {
	c := &Connector{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect wires every member of schema carrying a wire tag on subject, in
// declaration order.
//
// Connect fails fast: the first member whose target is missing or of the
// wrong type aborts the operation with a *WiringError. Members declared
// before the failing one have already been assigned and keep their values;
// members after it are left untouched.
func (c *Connector) Connect(schema *metadata.Schema, subject Subject) error {
	if schema == nil {
		return fmt.Errorf("autonode: schema is required")
	}
	if subject == nil {
		return fmt.Errorf("autonode: subject is required")
	}

	for _, member := range schema.Members() {
		tag, ok := member.Wiring()
		if !ok {
			continue
		}
		if err := c.connectMember(member, tag, subject); err != nil {
			return err
		}
	}
	return nil
}

func (c *Connector) connectMember(member metadata.Member, tag metadata.WireTag, subject Subject) error {
	key := metadata.KeyFor(member.Name, tag)

	target, ok := c.Resolve(subject, key)
	if !ok {
		return &WiringError{
			Kind:     MissingTarget,
			Subject:  subjectName(subject),
			Member:   member.Name,
			Key:      key,
			Expected: member.Type,
		}
	}

	q := metadata.AcquireQuery(target)
	defer metadata.ReleaseQuery(q)

	if member.Satisfies(q) {
		if err := member.Set(subject, target); err != nil {
			return fmt.Errorf("autonode: assign %s on %s: %w", member.Name, subjectName(subject), err)
		}
		c.logger.Debug("wired member",
			zap.String("subject", subjectName(subject)),
			zap.String("member", member.Name),
			zap.String("key", key),
		)
		return nil
	}

	// The raw target does not satisfy the declared type; the member may be
	// expecting a capability view of it.
	if c.adapt != nil {
		if adapted, ok := c.adapt(target); ok {
			q.Set(adapted)
			if member.Satisfies(q) {
				if err := member.Set(subject, adapted); err != nil {
					return fmt.Errorf("autonode: assign %s on %s: %w", member.Name, subjectName(subject), err)
				}
				c.logger.Debug("wired adapted member",
					zap.String("subject", subjectName(subject)),
					zap.String("member", member.Name),
					zap.String("key", key),
					zap.String("adapter", graph.TypeName(adapted)),
				)
				return nil
			}
		}
	}

	return &WiringError{
		Kind:     TypeMismatch,
		Subject:  subjectName(subject),
		Member:   member.Name,
		Key:      key,
		Expected: member.Type,
		Found:    graph.TypeName(target),
	}
}

// Resolve looks key up on behalf of subject: the fake graph first, when one
// is installed, then the real graph. Entries holding no value (nil, or a nil
// pointer or interface) count as absent in both.
func (c *Connector) Resolve(subject Subject, key string) (any, bool) {
	if fakes := subject.FakeGraph(); fakes != nil {
		if target, ok := fakes.Find(key); ok && !metadata.IsAbsent(target) {
			return target, true
		}
	}
	if g := subject.Graph(); g != nil {
		if target, ok := g.Node(key); ok && !metadata.IsAbsent(target) {
			return target, true
		}
	}
	return nil, false
}

func subjectName(s Subject) string {
	if name, ok := graph.NameOf(s); ok {
		return name
	}
	return graph.TypeName(s)
}
