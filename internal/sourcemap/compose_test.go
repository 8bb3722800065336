package sourcemap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seg(genCol, src, line, col, name int) Segment {
	return Segment{GeneratedColumn: genCol, SourceIndex: src, OriginalLine: line, OriginalColumn: col, NameIndex: name}
}

func strPtr(s string) *string { return &s }

// intermediate 为 "function add(a, b) {\n  return a + b;\n}"
// minified 为 "function add(n,d){return n+d}"
func minifiedMap() *SourceMap {
	lines := Mappings{{
		seg(0, 0, 0, 0, -1),
		seg(9, 0, 0, 9, 0),
		seg(13, 0, 0, 13, 1),
		seg(15, 0, 0, 16, 2),
		seg(18, 0, 1, 2, -1),
		seg(25, 0, 1, 9, 1),
		seg(27, 0, 1, 13, 2),
	}}
	return &SourceMap{
		Version:        3,
		File:           "index.js",
		Sources:        []string{"index.js"},
		SourcesContent: []*string{strPtr("function add(a, b) {\n  return a + b;\n}")},
		Names:          []string{"add", "a", "b"},
		Mappings:       EncodeMappings(lines),
	}
}

// 中间代码第 0、1 行来自 src/add.ts 的第 2、3 行
func transpileMap() *SourceMap {
	lines := Mappings{
		{seg(0, 0, 2, 0, -1), seg(9, 0, 2, 9, 0), seg(13, 0, 2, 13, -1), seg(16, 0, 2, 24, -1)},
		{seg(2, 0, 3, 2, -1), seg(9, 0, 3, 9, -1), seg(13, 0, 3, 13, -1)},
	}
	return &SourceMap{
		Version:        3,
		File:           "index.js",
		Sources:        []string{"src/add.ts"},
		SourcesContent: []*string{strPtr("// header\n\nfunction add(a: number, b: number) {\n  return a + b;\n}")},
		Names:          []string{"add"},
		Mappings:       EncodeMappings(lines),
	}
}

func TestComposeWithoutPreviousMap(t *testing.T) {
	second := minifiedMap()

	out, err := Compose(nil, second)
	require.NoError(t, err)
	assert.Equal(t, second, out)

	out.Sources[0] = "mutated"
	assert.Equal(t, "index.js", second.Sources[0], "result must not alias the input")
}

func TestComposeRequiresGeneratedMap(t *testing.T) {
	_, err := Compose(transpileMap(), nil)
	assert.ErrorIs(t, err, ErrInvalidMap)
}

func TestComposeWithIdentity(t *testing.T) {
	second := minifiedMap()
	content, _ := second.SourceContent(0)

	out, err := Compose(Identity("index.js", content), second)
	require.NoError(t, err)

	assert.Equal(t, second.Sources, out.Sources)
	assert.Equal(t, second.SourcesContent, out.SourcesContent)
	assert.Equal(t, second.Names, out.Names)
	assert.Equal(t, second.Mappings, out.Mappings)
}

func TestComposeMatchesChainedLookup(t *testing.T) {
	first, second := transpileMap(), minifiedMap()

	out, err := Compose(first, second)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/add.ts"}, out.Sources)

	secondLines, err := DecodeMappings(second.Mappings)
	require.NoError(t, err)

	for _, s := range secondLines[0] {
		mid, ok := second.Lookup(0, s.GeneratedColumn)
		require.True(t, ok)

		want, chained := first.Lookup(mid.Line, mid.Column)
		got, composed := out.Lookup(0, s.GeneratedColumn)

		if !chained {
			continue
		}
		require.True(t, composed, "column %d", s.GeneratedColumn)
		assert.Equal(t, want.Source, got.Source)
		assert.Equal(t, want.Line, got.Line)
		assert.Equal(t, want.Column, got.Column)
	}
}

func TestComposePrefersOriginalNames(t *testing.T) {
	out, err := Compose(transpileMap(), minifiedMap())
	require.NoError(t, err)

	pos, ok := out.Lookup(0, 9)
	require.True(t, ok)
	assert.Equal(t, "add", pos.Name)

	pos, ok = out.Lookup(0, 13)
	require.True(t, ok)
	assert.Equal(t, "a", pos.Name, "falls back to the generated map's name")

	seen := map[string]bool{}
	for _, n := range out.Names {
		assert.False(t, seen[n], "duplicate name %q", n)
		seen[n] = true
	}
}

func TestComposeDropsUntraceableMappings(t *testing.T) {
	first := &SourceMap{
		Version:  3,
		File:     "index.js",
		Sources:  []string{"a.js", "unused.js"},
		Names:    []string{},
		Mappings: EncodeMappings(Mappings{{seg(0, 0, 0, 0, -1)}, {}}),
	}
	second := &SourceMap{
		Version:  3,
		Sources:  []string{"index.js"},
		Names:    []string{},
		Mappings: EncodeMappings(Mappings{{seg(0, 0, 0, 0, -1), seg(5, 0, 1, 0, -1)}}),
	}

	out, err := Compose(first, second)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.js"}, out.Sources, "only sources of retained mappings are kept")

	lines, err := DecodeMappings(out.Mappings)
	require.NoError(t, err)
	require.Len(t, lines[0], 1)
	assert.Equal(t, 0, lines[0][0].GeneratedColumn)
}

func TestComposeAppendsForeignSources(t *testing.T) {
	first := transpileMap()
	second := &SourceMap{
		Version:        3,
		Sources:        []string{"index.js", "<runtime>"},
		SourcesContent: []*string{nil, strPtr("helper()")},
		Names:          []string{},
		Mappings: EncodeMappings(Mappings{{
			seg(0, 1, 0, 0, -1),
			seg(8, 0, 0, 0, -1),
		}}),
	}

	out, err := Compose(first, second)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/add.ts", "<runtime>"}, out.Sources)
	require.Len(t, out.SourcesContent, 2)
	assert.Equal(t, "helper()", *out.SourcesContent[1])

	pos, ok := out.Lookup(0, 0)
	require.True(t, ok)
	assert.Equal(t, "<runtime>", pos.Source)

	pos, ok = out.Lookup(0, 8)
	require.True(t, ok)
	assert.Equal(t, "src/add.ts", pos.Source)
	assert.Equal(t, 2, pos.Line)
}

func TestComposeDegradesOnMalformedPreviousMap(t *testing.T) {
	first := transpileMap()
	first.Mappings = "AAEA,!!,SAAS;" + "EAAC"
	second := minifiedMap()

	out, err := Compose(first, second)
	require.NotNil(t, out)
	require.Error(t, err)

	var cerr *MapComposeError
	require.ErrorAs(t, err, &cerr)
	assert.ErrorIs(t, err, ErrMapCompose)
	assert.Positive(t, cerr.Dropped)

	pos, ok := out.Lookup(0, 0)
	require.True(t, ok)
	assert.Equal(t, 2, pos.Line)
}

func TestComposeIsDeterministic(t *testing.T) {
	a, err := Compose(transpileMap(), minifiedMap())
	require.NoError(t, err)
	b, err := Compose(transpileMap(), minifiedMap())
	require.NoError(t, err)

	ab, err := a.Bytes()
	require.NoError(t, err)
	bb, err := b.Bytes()
	require.NoError(t, err)
	assert.Equal(t, ab, bb)
}
