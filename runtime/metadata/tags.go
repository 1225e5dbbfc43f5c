package metadata

// TagKind identifies a declarative intent attached to a member.
type TagKind int

const (
	// TagOpaque is any tag the runtime does not interpret.
	TagOpaque TagKind = iota
	// TagWire requests automatic reference resolution.
	TagWire
)

// String returns the tag kind name.
func (k TagKind) String() string {
	switch k {
	case TagWire:
		return "wire"
	default:
		return "opaque"
	}
}

// Tag is a declarative intent attached to a member. The set of
// implementations is closed: WireTag and OpaqueTag.
type Tag interface {
	Kind() TagKind
	isTag()
}

// WireTag marks a member for automatic reference resolution. An empty Path
// means the lookup key is derived from the member name.
type WireTag struct {
	Path string
}

// Kind implements Tag.
func (WireTag) Kind() TagKind { return TagWire }

func (WireTag) isTag() {}

// OpaqueTag carries a declarative intent the runtime ignores. ID identifies
// the tag and Args holds its arguments.
type OpaqueTag struct {
	ID   string
	Args []any
}

// Kind implements Tag.
func (OpaqueTag) Kind() TagKind { return TagOpaque }

func (OpaqueTag) isTag() {}

// Wired returns a wire tag whose key is derived from the member name.
func Wired() Tag {
	return WireTag{}
}

// WiredTo returns a wire tag with an explicit lookup path.
func WiredTo(path string) Tag {
	return WireTag{Path: path}
}

// Opaque returns a tag the runtime carries but does not interpret.
func Opaque(id string, args ...any) Tag {
	return OpaqueTag{ID: id, Args: args}
}

// Tags is the multimap of tags attached to one member, in declaration order.
type Tags []Tag

// Wiring returns the first wire tag, if any.
func (t Tags) Wiring() (WireTag, bool) {
	for _, tag := range t {
		if w, ok := tag.(WireTag); ok {
			return w, true
		}
	}
	return WireTag{}, false
}

// ByID returns the arguments of every opaque tag with the given id.
func (t Tags) ByID(id string) [][]any {
	var out [][]any
	for _, tag := range t {
		if o, ok := tag.(OpaqueTag); ok && o.ID == id {
			out = append(out, o.Args)
		}
	}
	return out
}

// Has reports whether a tag of the given kind is present.
func (t Tags) Has(kind TagKind) bool {
	for _, tag := range t {
		if tag.Kind() == kind {
			return true
		}
	}
	return false
}
