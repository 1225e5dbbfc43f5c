package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type namedTarget struct{ name string }

func (n *namedTarget) Name() string { return n.name }

type panickyTarget struct{}

func (panickyTarget) Name() string { panic("name not stubbed") }

func TestDeriveKey(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"_my_ref", "%MyRef"},
		{"_my_unique_node", "%MyUniqueNode"},
		{"MyUniqueNode", "%MyUniqueNode"},
		{"_myNode", "%MyNode"},
		{"", "%"},
		{"____", "%"},
		{"_ñandu_run", "%ñanduRun"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := DeriveKey(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, DeriveKey(tt.input), "derivation must be deterministic")
			assert.False(t, strings.Contains(got[1:], "_"), "no underscores after the marker")
			assert.LessOrEqual(t, len(got), len(tt.input)+1)
		})
	}
}

func TestPascalCase(t *testing.T) {
	assert.Equal(t, "MyRef", PascalCase("_my_ref"))
	assert.Equal(t, "", PascalCase("_"))
}

func TestIsUnique(t *testing.T) {
	assert.True(t, IsUnique("%Player"))
	assert.False(t, IsUnique("Path/To/Player"))
	assert.False(t, IsUnique(""))
}

func TestNameOf(t *testing.T) {
	name, ok := NameOf(&namedTarget{name: "Sprite"})
	assert.True(t, ok)
	assert.Equal(t, "Sprite", name)

	_, ok = NameOf(&namedTarget{})
	assert.False(t, ok, "empty names are not usable")

	_, ok = NameOf(panickyTarget{})
	assert.False(t, ok, "panicking Name() is skipped")

	_, ok = NameOf(42)
	assert.False(t, ok)

	_, ok = NameOf(nil)
	assert.False(t, ok)
}

func TestGraphFunc(t *testing.T) {
	target := &namedTarget{name: "Camera"}
	g := GraphFunc(func(key string) (any, bool) {
		if key == "%Camera" {
			return target, true
		}
		return nil, false
	})

	got, ok := g.Node("%Camera")
	assert.True(t, ok)
	assert.Same(t, target, got)

	_, ok = g.Node("%Missing")
	assert.False(t, ok)
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "<nil>", TypeName(nil))
	assert.Equal(t, "*graph.namedTarget", TypeName(&namedTarget{}))
}
