package asset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chunk-minifier/internal/sourcemap"
)

func TestParseDevtool(t *testing.T) {
	testCases := []struct {
		raw     string
		mode    MapMode
		content bool
	}{
		{"", MapNone, true},
		{"false", MapNone, true},
		{"eval", MapNone, true},
		{"eval-source-map", MapNone, true},
		{"cheap-module-source-map", MapExternal, true},
		{"source-map", MapExternal, true},
		{"inline-source-map", MapInline, true},
		{"inline-cheap-source-map", MapInline, true},
		{"hidden-source-map", MapHidden, true},
		{"nosources-source-map", MapExternal, false},
		{"Source-Map", MapExternal, true},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			d := ParseDevtool(tc.raw)
			assert.Equal(t, tc.mode, d.Mode)
			assert.Equal(t, tc.content, d.SourcesContent)
			assert.Equal(t, tc.raw, d.Raw)
		})
	}
}

func TestCompilationOrderAndUniqueness(t *testing.T) {
	c := NewCompilation(ParseDevtool("source-map"))

	require.NoError(t, c.Emit(&Asset{Name: "b.js", Source: []byte("b")}))
	require.NoError(t, c.Emit(&Asset{Name: "a.js", Source: []byte("a")}))

	err := c.Emit(&Asset{Name: "b.js"})
	assert.ErrorIs(t, err, ErrDuplicateAsset)

	assert.Equal(t, []string{"b.js", "a.js"}, c.Names())

	c.Put(&Asset{Name: "b.js", Source: []byte("bb")})
	c.Put(&Asset{Name: "b.js.map", Source: []byte("{}")})
	assert.Equal(t, []string{"b.js", "a.js", "b.js.map"}, c.Names())

	b, ok := c.Get("b.js")
	require.True(t, ok)
	assert.Equal(t, "bb", string(b.Source))
	assert.Equal(t, ContentHash([]byte("bb")), b.Info.ContentHash)

	require.NoError(t, c.Remove("b.js.map"))
	assert.ErrorIs(t, c.Remove("b.js.map"), ErrAssetNotFound)
	assert.Equal(t, 2, c.Len())
}

func TestContentHash(t *testing.T) {
	h := ContentHash([]byte("console.log(1)"))
	assert.Len(t, h, 8)
	assert.Equal(t, h, ContentHash([]byte("console.log(1)")))
	assert.NotEqual(t, h, ContentHash([]byte("console.log(2)")))
}

func TestAssetClone(t *testing.T) {
	a := &Asset{
		Name:   "index.js",
		Source: []byte("x"),
		Map:    &sourcemap.SourceMap{Version: 3, Sources: []string{"src.js"}},
	}
	a.AddLabel(LabelMinimized)
	a.AddLabel(LabelMinimized)
	a.SetRelated("sourceMap", "index.js.map")

	cp := a.Clone()
	cp.Source[0] = 'y'
	cp.Map.Sources[0] = "other.js"
	cp.Info.Related["sourceMap"] = "changed"

	assert.Equal(t, "x", string(a.Source))
	assert.Equal(t, "src.js", a.Map.Sources[0])
	assert.Equal(t, "index.js.map", a.Info.Related["sourceMap"])
	assert.Equal(t, []string{LabelMinimized}, a.Info.Labels)

	a.SetRelated("sourceMap", "")
	assert.Empty(t, a.Info.Related)
}

func TestSnapshotRestore(t *testing.T) {
	c := NewCompilation(ParseDevtool("source-map"))
	require.NoError(t, c.Emit(&Asset{Name: "a.js", Source: []byte("a")}))
	require.NoError(t, c.Emit(&Asset{Name: "b.js", Source: []byte("b")}))

	snap := c.Snapshot()

	a, _ := c.Get("a.js")
	a.Source = []byte("minified")
	c.Put(&Asset{Name: "a.js.map", Source: []byte("{}")})
	require.NoError(t, c.Remove("b.js"))

	c.Restore(snap)

	assert.Equal(t, []string{"a.js", "b.js"}, c.Names())
	a, _ = c.Get("a.js")
	assert.Equal(t, "a", string(a.Source))
	_, ok := c.Get("a.js.map")
	assert.False(t, ok)
	assert.Empty(t, c.Removed())
}

func TestRemovedTracksDeletedAssets(t *testing.T) {
	c := NewCompilation(ParseDevtool(""))
	require.NoError(t, c.Emit(&Asset{Name: "b.js.map", Source: []byte("{}")}))
	require.NoError(t, c.Emit(&Asset{Name: "a.js.map", Source: []byte("{}")}))

	require.NoError(t, c.Remove("b.js.map"))
	require.NoError(t, c.Remove("a.js.map"))
	assert.Equal(t, []string{"a.js.map", "b.js.map"}, c.Removed())

	// 重新加入后不再视为删除
	c.Put(&Asset{Name: "a.js.map", Source: []byte("{}")})
	assert.Equal(t, []string{"b.js.map"}, c.Removed())

	assert.ErrorIs(t, c.Remove("missing.js"), ErrAssetNotFound)
	assert.Equal(t, []string{"b.js.map"}, c.Removed())
}
