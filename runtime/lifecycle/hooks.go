package lifecycle

import (
	"fmt"
	"sync"
)

// HookFunc is a hook invoked for a graph object.
type HookFunc func(obj Object) error

// Hook is a registered lifecycle hook.
type Hook struct {
	Name         string
	Notification Notification
	Phase        Phase
	Fn           HookFunc
}

type hookKey struct {
	notification Notification
	phase        Phase
}

func (k hookKey) String() string {
	if k.phase == PhaseBefore {
		return k.notification.String()
	}
	return k.notification.String() + ":" + k.phase.String()
}

// Registry holds lifecycle hooks in registration order.
type Registry struct {
	mu    sync.RWMutex
	hooks map[hookKey][]*Hook
}

// NewRegistry creates an empty hook registry.
func NewRegistry() *Registry {
	return &Registry{
		hooks: make(map[hookKey][]*Hook),
	}
}

// Register adds a hook for notification n at phase p.
func (r *Registry) Register(n Notification, p Phase, hook *Hook) error {
	if !n.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownNotification, n)
	}
	if hook == nil || hook.Fn == nil {
		return fmt.Errorf("hook function is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	hook.Notification = n
	hook.Phase = p
	key := hookKey{n, p}
	r.hooks[key] = append(r.hooks[key], hook)
	return nil
}

// On registers fn to run before the runtime handles n.
func (r *Registry) On(n Notification, name string, fn HookFunc) error {
	return r.Register(n, PhaseBefore, &Hook{Name: name, Fn: fn})
}

// After registers fn to run once the runtime has handled n.
func (r *Registry) After(n Notification, name string, fn HookFunc) error {
	return r.Register(n, PhaseComplete, &Hook{Name: name, Fn: fn})
}

// Hooks returns the hooks registered for n at phase p.
func (r *Registry) Hooks(n Notification, p Phase) []*Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()

	hooks := r.hooks[hookKey{n, p}]
	out := make([]*Hook, len(hooks))
	copy(out, hooks)
	return out
}

// HasHooks returns true if there are any hooks registered for n at phase p.
func (r *Registry) HasHooks(n Notification, p Phase) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hooks[hookKey{n, p}]) > 0
}

// Run executes the hooks for n at phase p in registration order. The first
// failing hook aborts the run.
func (r *Registry) Run(obj Object, n Notification, p Phase) error {
	key := hookKey{n, p}
	for _, hook := range r.Hooks(n, p) {
		if err := hook.Fn(obj); err != nil {
			if hook.Name != "" {
				return fmt.Errorf("hook %s (%s) failed: %w", key, hook.Name, err)
			}
			return fmt.Errorf("hook %s failed: %w", key, err)
		}
	}
	return nil
}
