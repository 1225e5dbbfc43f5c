package metadata

import (
	"fmt"

	"github.com/conduit-lang/powerups/runtime/graph"
)

// Schema is the ordered member set of one graph object type. Schemas are
// immutable once built and safe for concurrent use.
type Schema struct {
	typeName string
	members  []Member
	index    map[string]int
}

// NewSchema builds a schema for typeName. Member order is preserved exactly
// as given; it drives wiring order and therefore error reproducibility.
func NewSchema(typeName string, members ...Member) (*Schema, error) {
	s := &Schema{
		typeName: typeName,
		members:  make([]Member, 0, len(members)),
		index:    make(map[string]int, len(members)),
	}
	for _, m := range members {
		if m.Name == "" {
			return nil, fmt.Errorf("schema %s: member name is required", typeName)
		}
		if _, exists := s.index[m.Name]; exists {
			return nil, fmt.Errorf("schema %s: %w: %s", typeName, ErrDuplicateMember, m.Name)
		}
		s.index[m.Name] = len(s.members)
		s.members = append(s.members, m)
	}
	return s, nil
}

// MustSchema is NewSchema that panics on error. Intended for package-level
// schema declarations.
func MustSchema(typeName string, members ...Member) *Schema {
	s, err := NewSchema(typeName, members...)
	if err != nil {
		panic(err)
	}
	return s
}

// TypeName returns the graph object type the schema describes.
func (s *Schema) TypeName() string {
	return s.typeName
}

// Len returns the number of declared members.
func (s *Schema) Len() int {
	return len(s.members)
}

// Members returns the declared members in declaration order.
// Returns a copy to prevent external mutation.
func (s *Schema) Members() []Member {
	out := make([]Member, len(s.members))
	copy(out, s.members)
	return out
}

// Member finds a declared member by name.
func (s *Schema) Member(name string) (Member, bool) {
	i, ok := s.index[name]
	if !ok {
		return Member{}, false
	}
	return s.members[i], true
}

// Wired returns the members carrying a wire tag, in declaration order.
func (s *Schema) Wired() []Member {
	var out []Member
	for _, m := range s.members {
		if _, ok := m.Wiring(); ok {
			out = append(out, m)
		}
	}
	return out
}

// CheckType asks whether the value captured by q satisfies the declared type
// of the named member.
func (s *Schema) CheckType(name string, q *TypeQuery) (bool, error) {
	m, ok := s.Member(name)
	if !ok {
		return false, fmt.Errorf("schema %s: %w: %s", s.typeName, ErrUnknownMember, name)
	}
	return m.Satisfies(q), nil
}

// SchemaMetadata is the serializable description of a Schema.
type SchemaMetadata struct {
	Type    string           `json:"type"`    // Graph object type name
	Members []MemberMetadata `json:"members"` // Members in declaration order
}

// MemberMetadata is the serializable description of a Member.
type MemberMetadata struct {
	Name     string   `json:"name"`           // Declared member name
	Type     string   `json:"type"`           // Declared type name
	Field    bool     `json:"field"`          // Field rather than property
	Readable bool     `json:"readable"`       // Member can be read
	Mutable  bool     `json:"mutable"`        // Member can be assigned
	Wired    bool     `json:"wired"`          // Member carries a wire tag
	Key      string   `json:"key,omitempty"`  // Lookup key for wired members
	Tags     []string `json:"tags,omitempty"` // Opaque tag ids
}

// Describe returns the serializable description of the schema. Wired members
// report the lookup key they resolve to.
func (s *Schema) Describe() SchemaMetadata {
	out := SchemaMetadata{
		Type:    s.typeName,
		Members: make([]MemberMetadata, 0, len(s.members)),
	}
	for _, m := range s.members {
		mm := MemberMetadata{
			Name:     m.Name,
			Type:     m.Type,
			Field:    m.IsField,
			Readable: m.Readable,
			Mutable:  m.Mutable,
		}
		if w, ok := m.Wiring(); ok {
			mm.Wired = true
			mm.Key = KeyFor(m.Name, w)
		}
		for _, tag := range m.Tags {
			if o, ok := tag.(OpaqueTag); ok {
				mm.Tags = append(mm.Tags, o.ID)
			}
		}
		out.Members = append(out.Members, mm)
	}
	return out
}

// KeyFor returns the lookup key a wired member resolves to: the tag's explicit
// path, or the key derived from the member name.
func KeyFor(member string, tag WireTag) string {
	if tag.Path != "" {
		return tag.Path
	}
	return graph.DeriveKey(member)
}
