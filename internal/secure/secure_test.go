package secure_test

import (
	"encoding/json"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/nikbrunner/cortex/internal/model"
	"github.com/nikbrunner/cortex/internal/secure"
)

func TestClone_DropsPrototypeKeys(t *testing.T) {
	var v any
	assert.NilError(t, json.Unmarshal([]byte(`{"__proto__":{"polluted":true},"a":{"constructor":{"prototype":1},"b":[{"prototype":2,"c":3}]}}`), &v))

	got, err := secure.Clone(v)
	assert.NilError(t, err)
	assert.DeepEqual(t, got, map[string]any{
		"a": map[string]any{
			"b": []any{map[string]any{"c": float64(3)}},
		},
	})
}

func TestClone_IsDeep(t *testing.T) {
	src := map[string]any{"list": []any{"x"}, "obj": map[string]any{"k": "v"}}

	got, err := secure.Clone(src)
	assert.NilError(t, err)

	src["list"].([]any)[0] = "changed"
	src["obj"].(map[string]any)["k"] = "changed"

	clone := got.(map[string]any)
	assert.Equal(t, clone["list"].([]any)[0], "x")
	assert.Equal(t, clone["obj"].(map[string]any)["k"], "v")
}

func TestClone_RejectsExoticValues(t *testing.T) {
	tests := []struct {
		name string
		in   any
	}{
		{"struct", struct{ A int }{1}},
		{"time", time.Now()},
		{"nested func", map[string]any{"f": func() {}}},
		{"typed map", map[string]string{"a": "b"}},
		{"int", 1},
		{"channel in array", []any{make(chan int)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := secure.Clone(tt.in)
			assert.ErrorIs(t, err, secure.ErrInvalidObjectType)
		})
	}
}

func TestDecodeInto_KeepsTypedFields(t *testing.T) {
	raw := []byte(`{"theme":"nord","__proto__":{"theme":"evil"},"gridColumns":4,"tagColors":{"go":"blue","constructor":"red"}}`)

	var s model.Settings
	assert.NilError(t, secure.DecodeInto(raw, &s))
	assert.Equal(t, s.Theme, "nord")
	assert.Equal(t, s.GridColumns, 4)
	assert.DeepEqual(t, s.TagColors, map[string]string{"go": "blue"})
}

func TestInto_LargeIDsSurvive(t *testing.T) {
	src := []model.Category{{ID: 1734567890123, Name: "Dev", Bookmarks: []model.Bookmark{{ID: 1734567890124, Title: "Go", URL: "https://go.dev/", Tags: []string{}}}}}

	var dst []model.Category
	assert.NilError(t, secure.Into(src, &dst))
	assert.DeepEqual(t, dst, src)
}

func TestCloneBytes_Malformed(t *testing.T) {
	_, err := secure.CloneBytes([]byte(`{"a":`))
	assert.Assert(t, err != nil)

	_, err = secure.CloneBytes([]byte(`{} {}`))
	assert.Check(t, is.ErrorContains(err, "trailing data"))
}
