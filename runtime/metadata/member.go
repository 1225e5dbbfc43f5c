package metadata

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	ErrUnknownMember   = errors.New("unknown member")
	ErrDuplicateMember = errors.New("duplicate member")
	ErrOwnerMismatch   = errors.New("member owner mismatch")
	ErrNotReadable     = errors.New("member is not readable")
	ErrNotWritable     = errors.New("member is not writable")
	ErrValueType       = errors.New("value does not match member type")
)

// Member is a declared field or property of a graph object type.
type Member struct {
	Name     string // Declared member name (e.g. "_my_ref", "Weapon")
	Type     string // Declared type name, for diagnostics
	IsField  bool   // Field (true) or property (false)
	Readable bool   // Member can be read
	Mutable  bool   // Member can be assigned
	Tags     Tags   // Declarative intents in declaration order

	check func(q *TypeQuery) bool
	get   func(owner any) (any, error)
	set   func(owner any, value any) error
}

// Satisfies runs the member's type check against the value captured by q.
func (m Member) Satisfies(q *TypeQuery) bool {
	if m.check == nil {
		return false
	}
	return m.check(q)
}

// Get reads the member's current value from owner.
func (m Member) Get(owner any) (any, error) {
	if !m.Readable || m.get == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotReadable, m.Name)
	}
	return m.get(owner)
}

// Set assigns value to the member on owner.
func (m Member) Set(owner any, value any) error {
	if !m.Mutable || m.set == nil {
		return fmt.Errorf("%w: %s", ErrNotWritable, m.Name)
	}
	return m.set(owner, value)
}

// Wiring returns the member's wire tag, if it carries one.
func (m Member) Wiring() (WireTag, bool) {
	return m.Tags.Wiring()
}

// Field declares a readable and writable field of S with declared type T.
// ref returns the address of the field on a given owner.
func Field[S any, T any](name string, ref func(S) *T, tags ...Tag) Member {
	return Member{
		Name:     name,
		Type:     typeName[T](),
		IsField:  true,
		Readable: true,
		Mutable:  true,
		Tags:     Tags(tags),
		check:    Is[T],
		get: func(owner any) (any, error) {
			s, err := ownerAs[S](name, owner)
			if err != nil {
				return nil, err
			}
			return *ref(s), nil
		},
		set: func(owner any, value any) error {
			s, err := ownerAs[S](name, owner)
			if err != nil {
				return err
			}
			v, err := valueAs[T](name, value)
			if err != nil {
				return err
			}
			*ref(s) = v
			return nil
		},
	}
}

// Property declares a property of S with declared type T. A nil get makes the
// property write-only and a nil set makes it read-only.
func Property[S any, T any](name string, get func(S) T, set func(S, T), tags ...Tag) Member {
	m := Member{
		Name:     name,
		Type:     typeName[T](),
		Readable: get != nil,
		Mutable:  set != nil,
		Tags:     Tags(tags),
		check:    Is[T],
	}
	if get != nil {
		m.get = func(owner any) (any, error) {
			s, err := ownerAs[S](name, owner)
			if err != nil {
				return nil, err
			}
			return get(s), nil
		}
	}
	if set != nil {
		m.set = func(owner any, value any) error {
			s, err := ownerAs[S](name, owner)
			if err != nil {
				return err
			}
			v, err := valueAs[T](name, value)
			if err != nil {
				return err
			}
			set(s, v)
			return nil
		}
	}
	return m
}

// Getter declares a read-only property of S with declared type T.
func Getter[S any, T any](name string, get func(S) T, tags ...Tag) Member {
	return Property[S, T](name, get, nil, tags...)
}

// DynamicMember describes a member whose declared type is only known at
// runtime, such as members declared in a scene file.
type DynamicMember struct {
	Name    string
	Type    string
	IsField bool
	Tags    Tags
	Check   func(value any) bool
	Get     func(owner any) (any, error)
	Set     func(owner any, value any) error
}

// Dynamic builds a Member from a DynamicMember description.
func Dynamic(d DynamicMember) Member {
	m := Member{
		Name:     d.Name,
		Type:     d.Type,
		IsField:  d.IsField,
		Readable: d.Get != nil,
		Mutable:  d.Set != nil,
		Tags:     d.Tags,
		get:      d.Get,
		set:      d.Set,
	}
	if d.Check != nil {
		m.check = func(q *TypeQuery) bool {
			return q != nil && d.Check(q.Value())
		}
	}
	return m
}

// IsAbsent reports whether v holds no value: a nil interface, or a nil
// pointer, map, slice, channel or func stored in one.
func IsAbsent(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}

func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}

func ownerAs[S any](member string, owner any) (S, error) {
	s, ok := owner.(S)
	if !ok {
		var zero S
		return zero, fmt.Errorf("%w: %s belongs to %s, got %T", ErrOwnerMismatch, member, typeName[S](), owner)
	}
	return s, nil
}

func valueAs[T any](member string, value any) (T, error) {
	var zero T
	if value == nil {
		return zero, nil
	}
	v, ok := value.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s expects %s, got %T", ErrValueType, member, typeName[T](), value)
	}
	return v, nil
}
