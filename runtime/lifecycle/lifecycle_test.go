package lifecycle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/conduit-lang/powerups/runtime/autonode"
	"github.com/conduit-lang/powerups/runtime/fakegraph"
	"github.com/conduit-lang/powerups/runtime/graph"
	"github.com/conduit-lang/powerups/runtime/metadata"
)

type sprite struct{ name string }

func (s *sprite) Name() string { return s.name }

type conn struct{ closes int }

func (c *conn) Close() error {
	c.closes++
	return nil
}

type myNode struct {
	Base
	name    string
	primary graph.Graph

	myRef       *sprite
	conn        *conn
	setupCalls  int
	setupErr    error
	setupOpened bool
}

func (n *myNode) Name() string       { return n.name }
func (n *myNode) Graph() graph.Graph { return n.primary }

func (n *myNode) Setup() error {
	n.setupCalls++
	if n.setupErr != nil {
		return n.setupErr
	}
	if n.setupOpened {
		n.conn = &conn{}
	}
	return nil
}

var myNodeSchema = metadata.MustSchema("MyNode",
	metadata.Field("_my_ref", func(n *myNode) **sprite { return &n.myRef }, metadata.Wired()),
	metadata.Field("conn", func(n *myNode) **conn { return &n.conn }),
)

func newRegistry(t *testing.T) *metadata.Registry {
	t.Helper()
	r := metadata.NewRegistry()
	require.NoError(t, metadata.RegisterType[*myNode](r, myNodeSchema))
	return r
}

func TestDispatcher_EndToEnd(t *testing.T) {
	d := NewDispatcher(newRegistry(t))
	fake := &sprite{name: "Fake"}

	n := &myNode{name: "MyNode"}
	n.SetTesting(true)
	require.NoError(t, n.InstallFakeGraph(fakegraph.Entry{Key: "%MyRef", Target: fake}))

	require.NoError(t, d.Notify(n, SceneInstantiated))
	assert.Same(t, fake, n.myRef)
	assert.Equal(t, Wired, n.State())

	n.conn = &conn{}
	require.NoError(t, d.Notify(n, Ready))
	assert.Equal(t, Attached, n.State())
	assert.Equal(t, 0, n.setupCalls, "setup is skipped under test")
	assert.True(t, n.Disposables().Contains(n.conn))

	require.NoError(t, d.Notify(n, ExitingGraph))
	require.NoError(t, d.Notify(n, ExitingGraph))
	assert.Equal(t, 1, n.conn.closes)
	assert.Equal(t, Detached, n.State())
}

func TestDispatcher_FakeGraphOverridesRealGraph(t *testing.T) {
	d := NewDispatcher(newRegistry(t))
	primaryRef := &sprite{name: "Real"}
	fake := &sprite{name: "Fake"}

	n := &myNode{
		name: "MyNode",
		primary: graph.GraphFunc(func(key string) (any, bool) {
			if key == "%MyRef" {
				return primaryRef, true
			}
			return nil, false
		}),
	}

	require.NoError(t, d.OnSceneInstantiated(n))
	assert.Same(t, primaryRef, n.myRef)

	n.InstallFakeMap(map[string]any{"%MyRef": fake})
	require.NoError(t, d.OnSceneInstantiated(n))
	assert.Same(t, fake, n.myRef)

	n.ClearFakeGraph()
	assert.Nil(t, n.FakeGraph())
}

func TestDispatcher_MissingTarget(t *testing.T) {
	d := NewDispatcher(newRegistry(t))
	n := &myNode{name: "MyNode"}

	err := d.OnSceneInstantiated(n)
	require.Error(t, err)
	assert.ErrorIs(t, err, autonode.ErrMissingTarget)
	assert.Equal(t, Created, n.State())
}

func TestDispatcher_SetupRunsBeforeTracking(t *testing.T) {
	d := NewDispatcher(newRegistry(t))
	n := &myNode{name: "MyNode", setupOpened: true}

	require.NoError(t, d.OnReady(n))
	assert.Equal(t, 1, n.setupCalls)
	require.NotNil(t, n.conn)
	assert.True(t, n.Disposables().Contains(n.conn), "resources opened in setup are tracked")

	require.NoError(t, d.OnExitingGraph(n))
	assert.Equal(t, 1, n.conn.closes)
}

func TestDispatcher_SetupFailure(t *testing.T) {
	d := NewDispatcher(newRegistry(t))
	n := &myNode{name: "MyNode", setupErr: errors.New("boom")}

	err := d.OnReady(n)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setup MyNode")
	assert.Equal(t, Created, n.State())
}

func TestDispatcher_ReattachAfterRelease(t *testing.T) {
	d := NewDispatcher(newRegistry(t))
	n := &myNode{name: "MyNode"}

	require.NoError(t, d.OnReady(n))
	require.NoError(t, d.OnExitingGraph(n))
	assert.Error(t, d.OnReady(n))
}

func TestDispatcher_HooksOrder(t *testing.T) {
	d := NewDispatcher(newRegistry(t))
	n := &myNode{name: "MyNode", conn: &conn{}}
	n.SetTesting(true)

	var calls []string
	record := func(label string) HookFunc {
		return func(obj Object) error {
			calls = append(calls, label)
			return nil
		}
	}

	hooks := d.Hooks()
	require.NoError(t, hooks.On(Ready, "ready", func(obj Object) error {
		calls = append(calls, "ready")
		assert.Equal(t, 0, obj.PowerUps().Disposables().Len(), "ready hooks run before tracking")
		return nil
	}))
	require.NoError(t, hooks.After(Ready, "attached", func(obj Object) error {
		calls = append(calls, "attached")
		assert.Equal(t, 1, obj.PowerUps().Disposables().Len())
		return nil
	}))
	require.NoError(t, hooks.On(ExitingGraph, "exit", record("exit")))
	require.NoError(t, hooks.After(ExitingGraph, "detached", func(obj Object) error {
		calls = append(calls, "detached")
		assert.Equal(t, 1, n.conn.closes)
		return nil
	}))

	require.NoError(t, d.OnReady(n))
	require.NoError(t, d.OnExitingGraph(n))
	assert.Equal(t, []string{"ready", "attached", "exit", "detached"}, calls)
}

func TestDispatcher_SecondDetachIsNoop(t *testing.T) {
	d := NewDispatcher(newRegistry(t))
	n := &myNode{
		name:    "MyNode",
		primary: graph.GraphFunc(func(string) (any, bool) { return &sprite{name: "MyRef"}, true }),
		conn:    &conn{},
	}

	runs := map[string]int{}
	count := func(label string) HookFunc {
		return func(Object) error {
			runs[label]++
			return nil
		}
	}
	require.NoError(t, d.Hooks().On(ExitingGraph, "exit", count("exit")))
	require.NoError(t, d.Hooks().After(ExitingGraph, "detached", count("detached")))

	require.NoError(t, d.OnSceneInstantiated(n))
	require.NoError(t, d.OnReady(n))
	require.NoError(t, d.OnExitingGraph(n))
	require.NoError(t, d.OnExitingGraph(n))
	require.NoError(t, d.Notify(n, ExitingGraph))

	assert.Equal(t, 1, n.conn.closes)
	assert.Equal(t, map[string]int{"exit": 1, "detached": 1}, runs)
	assert.Equal(t, Detached, n.State())
}

func TestDispatcher_HookFailureAborts(t *testing.T) {
	hooks := NewRegistry()
	require.NoError(t, hooks.On(ExitingGraph, "flush", func(Object) error {
		return errors.New("flush failed")
	}))
	d := NewDispatcher(newRegistry(t), WithHooks(hooks))
	n := &myNode{name: "MyNode", conn: &conn{}}

	require.NoError(t, d.OnReady(n))
	err := d.OnExitingGraph(n)
	require.Error(t, err)
	assert.Equal(t, "hook exiting_graph (flush) failed: flush failed", err.Error())
	assert.Equal(t, 0, n.conn.closes, "release does not run after a failed hook")
}

func TestDispatcher_NoSchema(t *testing.T) {
	d := NewDispatcher(metadata.NewRegistry())
	err := d.OnSceneInstantiated(&myNode{name: "MyNode"})
	assert.ErrorIs(t, err, metadata.ErrNoSchema)

	assert.Error(t, d.OnReady(nil))
	assert.Error(t, d.OnExitingGraph(nil))
}

func TestDispatcher_NotifyCode(t *testing.T) {
	d := NewDispatcher(newRegistry(t))
	n := &myNode{name: "MyNode", conn: &conn{}}
	n.SetTesting(true)

	require.NoError(t, d.NotifyCode(n, CodeReady))
	assert.Equal(t, Attached, n.State())
	require.NoError(t, d.NotifyCode(n, 99), "unrelated codes are ignored")
	require.NoError(t, d.NotifyCode(n, CodeExitTree))
	assert.Equal(t, 1, n.conn.closes)

	err := d.Notify(n, Notification(42))
	assert.ErrorIs(t, err, ErrUnknownNotification)
}

func TestDispatcher_Logs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	d := NewDispatcher(newRegistry(t), WithLogger(zap.New(core)))
	n := &myNode{name: "MyNode"}
	n.InstallFakeMap(map[string]any{"%MyRef": &sprite{name: "Fake"}})

	require.NoError(t, d.OnSceneInstantiated(n))
	assert.Equal(t, 1, logs.FilterMessage("object wired").Len())
	assert.Equal(t, 1, logs.FilterMessage("wired member").Len())
}

func TestDispatcher_DefaultsToGlobalRegistry(t *testing.T) {
	defer metadata.Reset()
	metadata.MustRegister[*myNode](myNodeSchema)

	d := NewDispatcher(nil, WithConnector(autonode.NewConnector()))
	n := &myNode{name: "MyNode"}
	n.InstallFakeMap(map[string]any{"%MyRef": &sprite{}})
	require.NoError(t, d.OnSceneInstantiated(n))
}

func TestNotification(t *testing.T) {
	tests := []struct {
		input string
		want  Notification
		code  int
	}{
		{"scene_instantiated", SceneInstantiated, CodeSceneInstantiated},
		{"Ready", Ready, CodeReady},
		{"exiting-graph", ExitingGraph, CodeExitTree},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			n, err := ParseNotification(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
			assert.Equal(t, tt.code, n.Code())

			fromCode, ok := FromCode(tt.code)
			require.True(t, ok)
			assert.Equal(t, tt.want, fromCode)
		})
	}

	_, err := ParseNotification("process")
	assert.ErrorIs(t, err, ErrUnknownNotification)
	assert.Equal(t, "Notification(9)", Notification(9).String())
	assert.Equal(t, -1, Notification(9).Code())
	assert.False(t, Notification(0).Valid())
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.HasHooks(Ready, PhaseBefore))

	require.NoError(t, r.On(Ready, "a", func(Object) error { return nil }))
	assert.True(t, r.HasHooks(Ready, PhaseBefore))
	assert.False(t, r.HasHooks(Ready, PhaseComplete))

	hooks := r.Hooks(Ready, PhaseBefore)
	require.Len(t, hooks, 1)
	assert.Equal(t, Ready, hooks[0].Notification)
	assert.Equal(t, PhaseBefore, hooks[0].Phase)

	assert.ErrorIs(t, r.On(Notification(0), "bad", func(Object) error { return nil }), ErrUnknownNotification)
	assert.Error(t, r.Register(Ready, PhaseBefore, nil))
	assert.Error(t, r.Register(Ready, PhaseBefore, &Hook{Name: "nofn"}))

	require.NoError(t, r.After(Ready, "", func(Object) error { return errors.New("x") }))
	err := r.Run(nil, Ready, PhaseComplete)
	assert.EqualError(t, err, "hook ready:complete failed: x")
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "before", PhaseBefore.String())
	assert.Equal(t, "complete", PhaseComplete.String())
	assert.Equal(t, "Phase(5)", Phase(5).String())
	assert.Equal(t, "created", Created.String())
	assert.Equal(t, "wired", Wired.String())
	assert.Equal(t, "attached", Attached.String())
	assert.Equal(t, "detached", Detached.String())
	assert.Equal(t, "State(7)", State(7).String())
}
