package lifecycle

import (
	"sync"

	"github.com/conduit-lang/powerups/runtime/autodispose"
	"github.com/conduit-lang/powerups/runtime/autonode"
	"github.com/conduit-lang/powerups/runtime/fakegraph"
)

// Object is a graph object managed by a Dispatcher.
type Object interface {
	autonode.Subject
	PowerUps() *Base
}

// Setuper is implemented by objects that initialize themselves on Ready.
// Setup is skipped while the object is under test.
type Setuper interface {
	Setup() error
}

// Base holds the per-object state the runtime needs. Embed it in a graph
// object type; its methods supply FakeGraph and PowerUps for Object.
type Base struct {
	mu          sync.Mutex
	fake        *fakegraph.Graph
	disposables autodispose.Set
	testing     bool
	state       State
}

// PowerUps returns b.
func (b *Base) PowerUps() *Base {
	return b
}

// FakeGraph returns the installed fake graph, or nil.
func (b *Base) FakeGraph() *fakegraph.Graph {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fake
}

// InstallFakeGraph installs a fake graph holding entries, replacing any
// previous one. Every later lookup made for the object consults it before
// the real graph.
func (b *Base) InstallFakeGraph(entries ...fakegraph.Entry) error {
	g, err := fakegraph.New(entries...)
	if err != nil {
		return err
	}
	b.setFake(g)
	return nil
}

// InstallFakeMap installs a fake graph built from a key to target map.
func (b *Base) InstallFakeMap(targets map[string]any) {
	b.setFake(fakegraph.FromMap(targets))
}

// ClearFakeGraph removes the installed fake graph.
func (b *Base) ClearFakeGraph() {
	b.setFake(nil)
}

func (b *Base) setFake(g *fakegraph.Graph) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fake = g
}

// Disposables returns the object's tracked resource set.
func (b *Base) Disposables() *autodispose.Set {
	return &b.disposables
}

// SetTesting marks the object as under test.
func (b *Base) SetTesting(testing bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.testing = testing
}

// IsTesting reports whether the object is under test.
func (b *Base) IsTesting() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.testing
}

// State returns the object's lifecycle state.
func (b *Base) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Base) setState(s State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = s
}
