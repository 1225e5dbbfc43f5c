package scene

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"

	"github.com/conduit-lang/powerups/runtime/fakegraph"
	"github.com/conduit-lang/powerups/runtime/graph"
	"github.com/conduit-lang/powerups/runtime/lifecycle"
	"github.com/conduit-lang/powerups/runtime/metadata"
)

// File is the decoded form of a scene file.
type File struct {
	Root         NodeSpec         `mapstructure:"root"`
	Types        []TypeSpec       `mapstructure:"types"`
	Capabilities []CapabilitySpec `mapstructure:"capabilities"`
	Subjects     []SubjectSpec    `mapstructure:"subjects"`
}

// NodeSpec declares a node and its children.
type NodeSpec struct {
	Name     string     `mapstructure:"name"`
	Type     string     `mapstructure:"type"`
	Unique   bool       `mapstructure:"unique"`
	Children []NodeSpec `mapstructure:"children"`
}

// TypeSpec declares the types a node type derives from.
type TypeSpec struct {
	Name    string   `mapstructure:"name"`
	Extends []string `mapstructure:"extends"`
}

// CapabilitySpec declares the capabilities a node type can be adapted to.
type CapabilitySpec struct {
	Type     string   `mapstructure:"type"`
	Provides []string `mapstructure:"provides"`
}

// SubjectSpec declares the members of a node whose references get wired.
type SubjectSpec struct {
	Node    string       `mapstructure:"node"`
	Members []MemberSpec `mapstructure:"members"`
	Fakes   []FakeSpec   `mapstructure:"fakes"`
}

// MemberSpec declares one member of a subject.
type MemberSpec struct {
	Name     string `mapstructure:"name"`
	Type     string `mapstructure:"type"`
	Wired    bool   `mapstructure:"wired"`
	Path     string `mapstructure:"path"`
	ReadOnly bool   `mapstructure:"read_only"`
}

// FakeSpec overrides a lookup key with the node at Node.
type FakeSpec struct {
	Key  string `mapstructure:"key"`
	Node string `mapstructure:"node"`
}

// Scene is a loaded scene: the node tree, the capability catalog and the
// instances whose members get wired.
type Scene struct {
	Tree      *Tree
	Catalog   *Catalog
	Instances []*Instance
}

// Instance is a node hosted as a graph object. Its members are declared by
// the scene file and their values live on the instance.
type Instance struct {
	lifecycle.Base

	node   *Node
	schema *metadata.Schema

	mu     sync.RWMutex
	values map[string]any
}

// Name implements graph.Node.
func (i *Instance) Name() string { return i.node.Name() }

// Graph returns the nodes reachable from the instance's node.
func (i *Instance) Graph() graph.Graph { return i.node.Graph() }

// Node returns the hosted node.
func (i *Instance) Node() *Node { return i.node }

// Schema implements metadata.Described.
func (i *Instance) Schema() *metadata.Schema { return i.schema }

// Value returns the current value of a member.
func (i *Instance) Value(member string) (any, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	v, ok := i.values[member]
	return v, ok
}

func (i *Instance) set(member string, value any) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.values[member] = value
}

// Instance finds an instance by node name.
func (s *Scene) Instance(name string) (*Instance, bool) {
	for _, inst := range s.Instances {
		if inst.Name() == name {
			return inst, true
		}
	}
	return nil, false
}

// Load reads a scene file. The format is chosen from the file extension and
// defaults to YAML.
func Load(path string) (*Scene, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read scene file: %w", err)
	}
	return decode(v)
}

// Read reads a YAML scene from r.
func Read(r io.Reader) (*Scene, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("failed to read scene: %w", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Scene, error) {
	var f File
	if err := v.Unmarshal(&f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scene: %w", err)
	}
	return Build(f)
}

// Build creates a scene from its decoded form.
func Build(f File) (*Scene, error) {
	if f.Root.Name == "" {
		return nil, fmt.Errorf("scene: root.name is required")
	}
	rootType := f.Root.Type
	if rootType == "" {
		rootType = "Node"
	}

	tree := NewTree(f.Root.Name, rootType)
	for _, spec := range f.Root.Children {
		if err := addNode(tree, tree.Root(), spec); err != nil {
			return nil, err
		}
	}
	for _, t := range f.Types {
		tree.Extend(t.Name, t.Extends...)
	}

	catalog := NewCatalog()
	for _, c := range f.Capabilities {
		catalog.Provide(c.Type, c.Provides...)
	}

	s := &Scene{Tree: tree, Catalog: catalog}
	for _, spec := range f.Subjects {
		inst, err := newInstance(tree, spec)
		if err != nil {
			return nil, err
		}
		s.Instances = append(s.Instances, inst)
	}
	return s, nil
}

func addNode(tree *Tree, parent *Node, spec NodeSpec) error {
	typ := spec.Type
	if typ == "" {
		typ = "Node"
	}
	n, err := tree.Add(parent, spec.Name, typ, spec.Unique)
	if err != nil {
		return err
	}
	for _, child := range spec.Children {
		if err := addNode(tree, n, child); err != nil {
			return err
		}
	}
	return nil
}

func newInstance(tree *Tree, spec SubjectSpec) (*Instance, error) {
	node, err := tree.Root().Resolve(spec.Node)
	if err != nil {
		return nil, fmt.Errorf("subject %q: %w", spec.Node, err)
	}

	inst := &Instance{
		node:   node,
		values: make(map[string]any, len(spec.Members)),
	}

	members := make([]metadata.Member, 0, len(spec.Members))
	for _, m := range spec.Members {
		if m.Type == "" {
			return nil, fmt.Errorf("subject %q: member %q: type is required", spec.Node, m.Name)
		}
		members = append(members, dynamicMember(m))
	}
	schema, err := metadata.NewSchema(node.Type(), members...)
	if err != nil {
		return nil, fmt.Errorf("subject %q: %w", spec.Node, err)
	}
	inst.schema = schema

	if len(spec.Fakes) > 0 {
		entries := make([]fakegraph.Entry, 0, len(spec.Fakes))
		for _, fake := range spec.Fakes {
			target, err := tree.Root().Resolve(fake.Node)
			if err != nil {
				return nil, fmt.Errorf("subject %q: fake %q: %w", spec.Node, fake.Key, err)
			}
			entries = append(entries, fakegraph.Entry{Key: fake.Key, Target: target})
		}
		if err := inst.InstallFakeGraph(entries...); err != nil {
			return nil, fmt.Errorf("subject %q: %w", spec.Node, err)
		}
	}
	return inst, nil
}

func dynamicMember(spec MemberSpec) metadata.Member {
	var tags metadata.Tags
	switch {
	case spec.Path != "":
		tags = append(tags, metadata.WiredTo(spec.Path))
	case spec.Wired:
		tags = append(tags, metadata.Wired())
	}

	d := metadata.DynamicMember{
		Name:    spec.Name,
		Type:    spec.Type,
		IsField: true,
		Tags:    tags,
		Check: func(value any) bool {
			return Satisfies(value, spec.Type)
		},
		Get: func(owner any) (any, error) {
			inst, err := instanceOf(spec.Name, owner)
			if err != nil {
				return nil, err
			}
			v, _ := inst.Value(spec.Name)
			return v, nil
		},
	}
	if !spec.ReadOnly {
		d.Set = func(owner any, value any) error {
			inst, err := instanceOf(spec.Name, owner)
			if err != nil {
				return err
			}
			inst.set(spec.Name, value)
			return nil
		}
	}
	return metadata.Dynamic(d)
}

func instanceOf(member string, owner any) (*Instance, error) {
	inst, ok := owner.(*Instance)
	if !ok {
		return nil, fmt.Errorf("%w: %s belongs to a scene instance, got %T", metadata.ErrOwnerMismatch, member, owner)
	}
	return inst, nil
}
