package history

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type withHidden struct {
	Name   string
	hidden int
	Fn     func() `json:"-"`
}

func TestEqual(t *testing.T) {
	shared := &counter{Count: 1}
	var nilCounter *counter

	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"both nil", nil, nil, true},
		{"nil vs typed nil pointer", nil, nilCounter, true},
		{"nil vs struct pointer", nil, shared, false},
		{"same pointer", shared, shared, true},
		{"equal pointees", shared, &counter{Count: 1}, true},
		{"different pointees", shared, &counter{Count: 2}, false},
		{"int vs float", 1, 1.0, true},
		{"int vs uint", int64(3), uint8(3), true},
		{"negative int vs uint", -1, uint64(math.MaxUint64), false},
		{"NaN", math.NaN(), math.NaN(), true},
		{"signed zeros", 0.0, math.Copysign(0, -1), false},
		{"string vs number", "1", 1, false},
		{"slices", []int{1, 2}, []int{1, 2}, true},
		{"slice order", []int{1, 2}, []int{2, 1}, false},
		{"slice length", []int{1}, []int{1, 1}, false},
		{"nil slice vs empty", []int(nil), []int{}, true},
		{"array vs slice", [2]int{1, 2}, []any{1, 2}, true},
		{"list vs map", []any{}, map[string]any{}, false},
		{"maps", map[string]any{"a": 1, "b": []any{"x"}}, map[string]any{"b": []any{"x"}, "a": 1}, true},
		{"map extra key", map[string]any{"a": 1}, map[string]any{"a": 1, "b": nil}, false},
		{"map different key", map[string]any{"a": 1}, map[string]any{"b": 1}, false},
		{"nil map vs empty", map[string]int(nil), map[string]int{}, true},
		{"structs", counter{Count: 1}, counter{Count: 1}, true},
		{"struct types", counter{Count: 1}, struct{ Count int }{Count: 1}, false},
		{"unexported fields", withHidden{Name: "a", hidden: 1}, withHidden{Name: "a", hidden: 2}, false},
		{"nil funcs", withHidden{Name: "a"}, withHidden{Name: "a"}, true},
		{"non-nil funcs", withHidden{Fn: func() {}}, withHidden{Fn: func() {}}, false},
		{"nested", map[string]any{"p": &profile{Mods: []string{"x"}}}, map[string]any{"p": &profile{Mods: []string{"x"}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
			assert.Equal(t, tt.want, Equal(tt.b, tt.a))
		})
	}
}

func TestClone(t *testing.T) {
	t.Run("deep copy", func(t *testing.T) {
		src := profile{Name: "a", Mods: []string{"x"}, Tags: map[string]string{"k": "v"}}
		dst := Clone(src, zap.NewNop())

		dst.Mods[0] = "y"
		dst.Tags["k"] = "w"
		assert.Equal(t, "x", src.Mods[0])
		assert.Equal(t, "v", src.Tags["k"])
	})

	t.Run("lossy copy drops unsupported members", func(t *testing.T) {
		src := withHidden{Name: "a", Fn: func() {}}
		fail := func(withHidden) (withHidden, error) { return withHidden{}, assert.AnError }

		dst := cloneWith(src, fail, zap.NewNop())
		assert.Equal(t, "a", dst.Name)
		assert.Nil(t, dst.Fn)
	})

	t.Run("func members never share the value", func(t *testing.T) {
		src := map[string]any{"n": 1, "f": func() {}}

		dst := Clone(src, zap.NewNop())
		assert.Equal(t, 1, dst["n"])
		assert.Nil(t, dst["f"])

		dst["n"] = 2
		assert.Equal(t, 1, src["n"])
	})

	t.Run("json copy drops unexported fields", func(t *testing.T) {
		dst, err := JSONCopy(withHidden{Name: "a", hidden: 7})
		require.NoError(t, err)
		assert.Equal(t, "a", dst.Name)
		assert.Zero(t, dst.hidden)
	})
}
