package lifecycle

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/powerups/runtime/autodispose"
	"github.com/conduit-lang/powerups/runtime/autonode"
	"github.com/conduit-lang/powerups/runtime/metadata"
)

// Dispatcher routes host notifications to the wiring and tracking runtimes.
type Dispatcher struct {
	provider  metadata.Provider
	connector *autonode.Connector
	tracker   *autodispose.Tracker
	hooks     *Registry
	logger    *zap.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithConnector sets the connector used on SceneInstantiated.
func WithConnector(c *autonode.Connector) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.connector = c
		}
	}
}

// WithTracker sets the resource tracker used on Ready.
func WithTracker(t *autodispose.Tracker) Option {
	return func(d *Dispatcher) {
		if t != nil {
			d.tracker = t
		}
	}
}

// WithHooks sets the hook registry.
func WithHooks(r *Registry) Option {
	return func(d *Dispatcher) {
		if r != nil {
			d.hooks = r
		}
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher creates a dispatcher reading schemas from provider. A nil
// provider uses the process-wide metadata registry.
func NewDispatcher(provider metadata.Provider, opts ...Option) *Dispatcher {
	if provider == nil {
		provider = metadata.Default()
	}
	d := &Dispatcher{
		provider: provider,
		hooks:    NewRegistry(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.connector == nil {
		d.connector = autonode.NewConnector(autonode.WithLogger(d.logger))
	}
	if d.tracker == nil {
		d.tracker = autodispose.NewTracker(autodispose.WithLogger(d.logger))
	}
	return d
}

// Hooks returns the dispatcher's hook registry.
func (d *Dispatcher) Hooks() *Registry {
	return d.hooks
}

// Notify handles notification n for obj.
func (d *Dispatcher) Notify(obj Object, n Notification) error {
	switch n {
	case SceneInstantiated:
		return d.OnSceneInstantiated(obj)
	case Ready:
		return d.OnReady(obj)
	case ExitingGraph:
		return d.OnExitingGraph(obj)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownNotification, n)
	}
}

// NotifyCode handles a raw host notification code. Codes the runtime does
// not react to are ignored.
func (d *Dispatcher) NotifyCode(obj Object, code int) error {
	n, ok := FromCode(code)
	if !ok {
		return nil
	}
	return d.Notify(obj, n)
}

// OnSceneInstantiated wires obj's declared references. The host sends it
// once the object's sub-graph is fully built, so references between
// siblings resolve.
func (d *Dispatcher) OnSceneInstantiated(obj Object) error {
	schema, err := d.schemaFor(obj)
	if err != nil {
		return err
	}
	if err := d.hooks.Run(obj, SceneInstantiated, PhaseBefore); err != nil {
		return err
	}
	if err := d.connector.Connect(schema, obj); err != nil {
		return err
	}
	obj.PowerUps().setState(Wired)
	d.logger.Debug("object wired", zap.String("object", obj.Name()))

	return d.hooks.Run(obj, SceneInstantiated, PhaseComplete)
}

// OnReady runs Setup unless the object is under test, then the Ready hooks,
// then tracks the resources the object holds. Tracking happens last so that
// resources created during setup are seen.
func (d *Dispatcher) OnReady(obj Object) error {
	schema, err := d.schemaFor(obj)
	if err != nil {
		return err
	}
	base := obj.PowerUps()

	if s, ok := obj.(Setuper); ok && !base.IsTesting() {
		if err := s.Setup(); err != nil {
			return fmt.Errorf("setup %s: %w", obj.Name(), err)
		}
	}
	if err := d.hooks.Run(obj, Ready, PhaseBefore); err != nil {
		return err
	}
	if err := d.tracker.Track(schema, obj, base.Disposables()); err != nil {
		return err
	}
	base.setState(Attached)
	d.logger.Debug("object attached",
		zap.String("object", obj.Name()),
		zap.Int("resources", base.Disposables().Len()),
	)

	return d.hooks.Run(obj, Ready, PhaseComplete)
}

// OnExitingGraph runs the exit hooks, then releases every tracked resource.
// Once the object is detached, further calls do nothing and run no hooks.
func (d *Dispatcher) OnExitingGraph(obj Object) error {
	if obj == nil {
		return fmt.Errorf("lifecycle: object is required")
	}
	base := obj.PowerUps()
	if base.State() == Detached {
		return nil
	}
	if err := d.hooks.Run(obj, ExitingGraph, PhaseBefore); err != nil {
		return err
	}
	if err := base.Disposables().Release(); err != nil {
		base.setState(Detached)
		return fmt.Errorf("release %s: %w", obj.Name(), err)
	}
	base.setState(Detached)
	d.logger.Debug("object detached", zap.String("object", obj.Name()))

	return d.hooks.Run(obj, ExitingGraph, PhaseComplete)
}

func (d *Dispatcher) schemaFor(obj Object) (*metadata.Schema, error) {
	if obj == nil {
		return nil, fmt.Errorf("lifecycle: object is required")
	}
	return d.provider.SchemaFor(obj)
}
