// Package autodispose tracks the resources a graph object owns and releases
// them when the object leaves the graph.
//
// A resource is any value implementing io.Closer held by a readable and
// writable member. Graph objects are never tracked, even when they implement
// io.Closer: the host tears them down itself. Read-only members are skipped
// as well; exposing a resource read-only does not transfer its ownership.
package autodispose

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/conduit-lang/powerups/runtime/graph"
	"github.com/conduit-lang/powerups/runtime/metadata"
)

// ErrReleased is returned when tracking is attempted on a released set.
var ErrReleased = errors.New("resource set already released")

// State is the tracker state of one graph object.
type State int

const (
	Unattached State = iota
	Tracking
	Released
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Unattached:
		return "unattached"
	case Tracking:
		return "tracking"
	case Released:
		return "released"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Set is the tracked resource set owned by one graph object. The zero value
// is an empty, unattached set ready to use.
//
// Release holds the set's lock while it closes resources. A Close method must
// not call back into the same set; doing so deadlocks.
type Set struct {
	mu        sync.Mutex
	resources []io.Closer
	state     State
}

// State returns the current tracker state.
func (s *Set) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Len returns the number of tracked resources.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.resources)
}

// Contains reports whether r is tracked.
func (s *Set) Contains(r io.Closer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexLocked(r) >= 0
}

// Add tracks r. Adding a resource already tracked is a no-op. Adding to a
// released set fails with ErrReleased.
func (s *Set) Add(r io.Closer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Released {
		return ErrReleased
	}
	if s.indexLocked(r) < 0 {
		s.resources = append(s.resources, r)
	}
	return nil
}

func (s *Set) indexLocked(r io.Closer) int {
	for i, existing := range s.resources {
		if sameResource(existing, r) {
			return i
		}
	}
	return -1
}

// Release closes every tracked resource exactly once and empties the set.
// Close failures do not stop the drain; they are combined and returned once
// the set has been cleared. Releasing an already released set is a no-op.
func (s *Set) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Released {
		return nil
	}

	var errs error
	for _, r := range s.resources {
		if metadata.IsAbsent(r) {
			continue
		}
		if err := r.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("autodispose: close %s: %w", graph.TypeName(r), err))
		}
	}
	s.resources = nil
	s.state = Released
	return errs
}

// Tracker registers the resources of graph objects.
type Tracker struct {
	logger *zap.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTracker creates a tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Track scans the readable and writable members of owner and adds every
// current value that is a resource to set. Unset members are skipped.
//
// Member getters run before the set is locked, so they may use set. When a
// getter fails nothing is added and the set keeps its previous state.
func (t *Tracker) Track(schema *metadata.Schema, owner any, set *Set) error {
	if schema == nil {
		return fmt.Errorf("autodispose: schema is required")
	}
	if set == nil {
		return fmt.Errorf("autodispose: resource set is required")
	}

	type found struct {
		member   string
		resource io.Closer
	}
	var candidates []found
	for _, member := range schema.Members() {
		if !member.Readable || !member.Mutable {
			continue
		}
		value, err := member.Get(owner)
		if err != nil {
			return fmt.Errorf("autodispose: read %s: %w", member.Name, err)
		}
		if metadata.IsAbsent(value) {
			continue
		}
		if r, ok := resourceOf(value); ok {
			candidates = append(candidates, found{member: member.Name, resource: r})
		}
	}

	set.mu.Lock()
	defer set.mu.Unlock()

	if set.state == Released {
		return ErrReleased
	}
	for _, c := range candidates {
		if set.indexLocked(c.resource) >= 0 {
			continue
		}
		set.resources = append(set.resources, c.resource)
		t.logger.Debug("tracking resource",
			zap.String("member", c.member),
			zap.String("type", graph.TypeName(c.resource)),
		)
	}
	set.state = Tracking
	return nil
}

// resourceOf returns value as a resource unless it is a graph object.
func resourceOf(value any) (io.Closer, bool) {
	if _, isNode := value.(graph.Node); isNode {
		return nil, false
	}
	q := metadata.AcquireQuery(value)
	defer metadata.ReleaseQuery(q)
	return metadata.As[io.Closer](q)
}

func sameResource(a, b io.Closer) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}
