package formx

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestApply_RegisterForm(t *testing.T) {
	in := map[string]any{"name": "j", "confirmPassword": "p"}
	got := Apply(in, Spec{
		Rename: map[string]string{"confirmPassword": "password_confirmation"},
		Add:    map[string]any{"terms": true},
		Remove: []string{"confirmPassword"},
	})

	want := map[string]any{"name": "j", "password_confirmation": "p", "terms": true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Apply mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, map[string]any{"name": "j", "confirmPassword": "p"}, in, "input untouched")
}

func TestApply_Order(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
		spec Spec
		want map[string]any
	}{
		{
			name: "add overwrites renamed value",
			in:   map[string]any{"a": 1},
			spec: Spec{Rename: map[string]string{"a": "b"}, Add: map[string]any{"b": 2}},
			want: map[string]any{"b": 2},
		},
		{
			name: "remove runs after add",
			in:   map[string]any{"a": 1},
			spec: Spec{Add: map[string]any{"x": 1}, Remove: []string{"x"}},
			want: map[string]any{"a": 1},
		},
		{
			name: "remove targets renamed name",
			in:   map[string]any{"a": 1, "c": 3},
			spec: Spec{Rename: map[string]string{"a": "b"}, Remove: []string{"b"}},
			want: map[string]any{"c": 3},
		},
		{
			name: "rename onto existing key replaces it",
			in:   map[string]any{"a": 1, "b": 2},
			spec: Spec{Rename: map[string]string{"a": "b"}},
			want: map[string]any{"b": 1},
		},
		{
			name: "swap",
			in:   map[string]any{"a": 1, "b": 2},
			spec: Spec{Rename: map[string]string{"a": "b", "b": "a"}},
			want: map[string]any{"a": 2, "b": 1},
		},
		{
			name: "unknown keys ignored",
			in:   map[string]any{"a": 1},
			spec: Spec{Rename: map[string]string{"zz": "y"}, Remove: []string{"nope"}},
			want: map[string]any{"a": 1},
		},
		{
			name: "nil input",
			in:   nil,
			spec: Spec{Add: map[string]any{"k": "v"}},
			want: map[string]any{"k": "v"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Apply(tt.in, tt.spec))
		})
	}
}

func TestApplyAny(t *testing.T) {
	spec := Spec{Add: map[string]any{"k": 1}}
	assert.Equal(t, "plain", ApplyAny("plain", spec))
	assert.Equal(t, map[string]any{"k": 1}, ApplyAny(map[string]any{}, spec))

	in := map[string]any{"a": 1}
	assert.Equal(t, in, ApplyAny(in, Spec{}))
	assert.True(t, Spec{}.IsZero())
}
