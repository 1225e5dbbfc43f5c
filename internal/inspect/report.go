// Package inspect checks scene files and serves the results over HTTP.
//
// A Report is what one pass over a scene file produced: every subject's
// lifecycle state and the target each wired member resolved to, or the
// error that stopped it. The check command prints reports, and Server hands
// them to HTTP and websocket clients.
package inspect

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/conduit-lang/powerups/internal/scene"
	"github.com/conduit-lang/powerups/internal/watch"
	"github.com/conduit-lang/powerups/runtime/autonode"
	"github.com/conduit-lang/powerups/runtime/lifecycle"
	"github.com/conduit-lang/powerups/runtime/metadata"
)

// Report is the result of checking one scene file.
type Report struct {
	Scene    string          `json:"scene"`
	Through  string          `json:"through"`
	Subjects []SubjectReport `json:"subjects"`
	Error    string          `json:"error,omitempty"`

	// Candidates lists the keys that resolve in the scene, for suggestions.
	Candidates []string `json:"-"`
	// Err is the load error, if the scene could not be read.
	Err error `json:"-"`
}

// SubjectReport is the outcome for one subject of a scene.
type SubjectReport struct {
	Node    string         `json:"node"`
	State   string         `json:"state"`
	Members []MemberReport `json:"members,omitempty"`
	Error   string         `json:"error,omitempty"`

	Err error `json:"-"`
}

// MemberReport is one wired member and what it resolved to.
type MemberReport struct {
	Name   string `json:"name"`
	Key    string `json:"key"`
	Target string `json:"target"`
}

// Failed returns the number of subjects that did not get through the
// lifecycle, counting an unreadable scene as one.
func (r *Report) Failed() int {
	if r.Err != nil {
		return 1
	}
	n := 0
	for _, s := range r.Subjects {
		if s.Err != nil {
			n++
		}
	}
	return n
}

// Check loads the scene file at path and delivers the lifecycle
// notifications up to and including through to every subject.
func Check(path string, through lifecycle.Notification, logger *zap.Logger) *Report {
	s, err := scene.Load(path)
	return check(path, s, err, through, logger)
}

// CheckSource is Check for scene content that is not on disk, such as an
// unsaved editor buffer. name identifies the scene in the report.
func CheckSource(name string, src io.Reader, through lifecycle.Notification, logger *zap.Logger) *Report {
	s, err := scene.Read(src)
	return check(name, s, err, through, logger)
}

func check(path string, s *scene.Scene, err error, through lifecycle.Notification, logger *zap.Logger) *Report {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Report{Scene: path, Through: through.String(), Subjects: []SubjectReport{}}

	if err != nil {
		r.Err = err
		r.Error = err.Error()
		return r
	}

	logger = logger.With(zap.String("scene", path))
	d := lifecycle.NewDispatcher(metadata.NewRegistry(),
		lifecycle.WithLogger(logger),
		lifecycle.WithConnector(autonode.NewConnector(
			autonode.WithAdapter(s.Catalog.Adapt),
			autonode.WithLogger(logger),
		)),
	)

	r.Candidates = LookupKeys(s)
	for _, inst := range s.Instances {
		sr := SubjectReport{Node: inst.Node().Path()}
		if err := Deliver(d, inst, through); err != nil {
			sr.Err = err
			sr.Error = err.Error()
		}
		sr.State = inst.PowerUps().State().String()

		if sr.Err == nil {
			for _, m := range inst.Schema().Wired() {
				tag, _ := m.Wiring()
				value, _ := inst.Value(m.Name)
				sr.Members = append(sr.Members, MemberReport{
					Name:   m.Name,
					Key:    metadata.KeyFor(m.Name, tag),
					Target: DescribeTarget(value),
				})
			}
		}
		r.Subjects = append(r.Subjects, sr)
	}
	return r
}

// Deliver sends the lifecycle notifications up to and including last.
func Deliver(d *lifecycle.Dispatcher, obj lifecycle.Object, last lifecycle.Notification) error {
	for _, n := range []lifecycle.Notification{
		lifecycle.SceneInstantiated,
		lifecycle.Ready,
		lifecycle.ExitingGraph,
	} {
		if err := d.Notify(obj, n); err != nil {
			return err
		}
		if n == last {
			break
		}
	}
	return nil
}

// DescribeTarget renders a wired value for display.
func DescribeTarget(value any) string {
	switch v := value.(type) {
	case *scene.Node:
		return v.Path()
	case scene.View:
		return fmt.Sprintf("%s as %s", v.Node.Path(), strings.Join(v.Capabilities, ", "))
	case nil:
		return "-"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// LookupKeys lists keys that resolve in the scene: unique names and the
// paths of every node.
func LookupKeys(s *scene.Scene) []string {
	seen := make(map[string]bool)
	var keys []string
	add := func(key string) {
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	s.Tree.Walk(func(n *scene.Node) bool {
		if n.Unique() {
			add("%" + n.Name())
		}
		add(n.Name())
		add(n.Path())
		return true
	})
	sort.Strings(keys)
	return keys
}

// SubjectDescription is the JSON form of one subject's wiring schema.
type SubjectDescription struct {
	Node string `json:"node"`
	metadata.SchemaMetadata
}

// Describe returns the wiring schema of every subject of s.
func Describe(s *scene.Scene) []SubjectDescription {
	out := make([]SubjectDescription, 0, len(s.Instances))
	for _, inst := range s.Instances {
		out = append(out, SubjectDescription{
			Node:           inst.Node().Path(),
			SchemaMetadata: inst.Schema().Describe(),
		})
	}
	return out
}

// SceneFiles returns the scene files under dir, leaving out the powerups
// config file that shares their extension.
func SceneFiles(dir string) ([]string, error) {
	files, err := watch.FindSceneFiles(dir)
	if err != nil {
		return nil, err
	}
	out := files[:0]
	for _, f := range files {
		if !IsConfigFile(f) {
			out = append(out, f)
		}
	}
	return out, nil
}

// IsConfigFile reports whether path names a powerups config file.
func IsConfigFile(path string) bool {
	return strings.HasPrefix(filepath.Base(path), "powerups.")
}
