// Package lifecycle dispatches host lifecycle notifications to the wiring
// and resource tracking runtimes.
//
// The host delivers three notifications per graph object, on a single
// control thread per object:
//
//	SceneInstantiated  the object's sub-graph is fully built; references are wired
//	Ready              the object is ready; Setup runs, then resources are tracked
//	ExitingGraph       the object leaves the graph; tracked resources are released
//
// Hooks can be registered around each notification. Hooks registered for
// PhaseBefore run before the runtime's own work and hooks registered for
// PhaseComplete run after it, which gives callers the "attach-complete" and
// "detach-complete" continuation points.
package lifecycle

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownNotification is returned for notifications outside the closed set.
var ErrUnknownNotification = errors.New("unknown lifecycle notification")

// Notification is a lifecycle event delivered by the host.
type Notification int

const (
	SceneInstantiated Notification = iota + 1
	Ready
	ExitingGraph
)

// Host notification codes.
const (
	CodeExitTree          = 11
	CodeReady             = 13
	CodeSceneInstantiated = 20
)

var notificationNames = map[Notification]string{
	SceneInstantiated: "scene_instantiated",
	Ready:             "ready",
	ExitingGraph:      "exiting_graph",
}

// String returns the notification name.
func (n Notification) String() string {
	if name, ok := notificationNames[n]; ok {
		return name
	}
	return fmt.Sprintf("Notification(%d)", int(n))
}

// Valid reports whether n is one of the known notifications.
func (n Notification) Valid() bool {
	_, ok := notificationNames[n]
	return ok
}

// Code returns the host's numeric code for n, or -1 when n is unknown.
func (n Notification) Code() int {
	switch n {
	case SceneInstantiated:
		return CodeSceneInstantiated
	case Ready:
		return CodeReady
	case ExitingGraph:
		return CodeExitTree
	default:
		return -1
	}
}

// ParseNotification parses a notification name. Matching ignores case and
// accepts either underscores or hyphens as separators.
func ParseNotification(s string) (Notification, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for n, name := range notificationNames {
		if name == normalized {
			return n, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownNotification, s)
}

// FromCode maps a host notification code to a Notification. Codes the
// runtime does not react to report false.
func FromCode(code int) (Notification, bool) {
	switch code {
	case CodeSceneInstantiated:
		return SceneInstantiated, true
	case CodeReady:
		return Ready, true
	case CodeExitTree:
		return ExitingGraph, true
	default:
		return 0, false
	}
}

// Phase positions a hook relative to the runtime's work for a notification.
type Phase int

const (
	// PhaseBefore hooks run before the runtime handles the notification.
	PhaseBefore Phase = iota
	// PhaseComplete hooks run once the runtime has handled it.
	PhaseComplete
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseBefore:
		return "before"
	case PhaseComplete:
		return "complete"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// State is the lifecycle position of one graph object.
type State int

const (
	Created State = iota
	Wired
	Attached
	Detached
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Wired:
		return "wired"
	case Attached:
		return "attached"
	case Detached:
		return "detached"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
