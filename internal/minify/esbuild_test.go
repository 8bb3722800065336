package minify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bundleSource = `(function (modules) {
  function __webpack_require__(moduleId) {
    var module = { exports: {} };
    modules[moduleId](module, module.exports, __webpack_require__);
    return module.exports;
  }
  return __webpack_require__(0);
})([
  function (module, exports) {
    console.log("hello world");
  }
]);
`

func allFlags() Options {
	return Options{MinifyWhitespace: true, MinifyIdentifiers: true, MinifySyntax: true}
}

func TestESBuildMinifyShrinksCode(t *testing.T) {
	res, err := NewESBuild().Minify(context.Background(), "index.js", []byte(bundleSource), allFlags())
	require.NoError(t, err)

	assert.Less(t, len(res.Code), len(bundleSource))
	assert.NotContains(t, string(res.Code), "__webpack_require__")
	assert.Contains(t, string(res.Code), "hello world")
	assert.Nil(t, res.Map)
}

func TestESBuildWhitespaceOnlyKeepsIdentifiers(t *testing.T) {
	res, err := NewESBuild().Minify(context.Background(), "index.js", []byte(bundleSource), Options{MinifyWhitespace: true})
	require.NoError(t, err)

	assert.Less(t, len(res.Code), len(bundleSource))
	assert.Contains(t, string(res.Code), "__webpack_require__")
}

func TestESBuildNoFlagsKeepsIdentifiers(t *testing.T) {
	res, err := NewESBuild().Minify(context.Background(), "index.js", []byte(bundleSource), Options{})
	require.NoError(t, err)
	assert.Contains(t, string(res.Code), "__webpack_require__")
}

func TestESBuildSourceMapNamesAsset(t *testing.T) {
	opts := allFlags()
	opts.Sourcemap = true
	opts.SourcesContent = true

	res, err := NewESBuild().Minify(context.Background(), "js/index.js", []byte(bundleSource), opts)
	require.NoError(t, err)
	require.NotNil(t, res.Map)

	assert.Equal(t, []string{"js/index.js"}, res.Map.Sources)
	require.Len(t, res.Map.SourcesContent, 1)
	require.NotNil(t, res.Map.SourcesContent[0])
	assert.Equal(t, bundleSource, *res.Map.SourcesContent[0])
	assert.NotEmpty(t, res.Map.Mappings)
	assert.NotContains(t, string(res.Code), "sourceMappingURL")
}

func TestESBuildSourceMapWithoutContent(t *testing.T) {
	opts := allFlags()
	opts.Sourcemap = true

	res, err := NewESBuild().Minify(context.Background(), "index.js", []byte(bundleSource), opts)
	require.NoError(t, err)
	require.NotNil(t, res.Map)

	_, ok := res.Map.SourceContent(0)
	assert.False(t, ok)
}

func TestESBuildCSS(t *testing.T) {
	src := "body {\n  color: red;\n  margin: 0px;\n}\n"
	res, err := NewESBuild().Minify(context.Background(), "main.css?v=3", []byte(src), allFlags())
	require.NoError(t, err)

	assert.Less(t, len(res.Code), len(src))
	assert.Contains(t, string(res.Code), "color:red")
}

func TestESBuildSyntaxError(t *testing.T) {
	_, err := NewESBuild().Minify(context.Background(), "broken.js", []byte("var x = ;\n"), allFlags())
	require.Error(t, err)

	var merr *Error
	require.True(t, errors.As(err, &merr))
	assert.True(t, errors.Is(err, ErrMinify))
	assert.Equal(t, "broken.js", merr.AssetName)
	assert.True(t, strings.HasPrefix(merr.Location, "1:"), merr.Location)
	assert.Contains(t, err.Error(), "broken.js from minifier")
}

func TestFormatLocationTruncatesOnRuneBoundary(t *testing.T) {
	line := "var s = \"" + strings.Repeat("中文", 60) + "\";"
	loc := formatLocation(&api.Location{Line: 3, Column: 9, LineText: line})

	assert.True(t, utf8.ValidString(loc))
	assert.True(t, strings.HasPrefix(loc, "3:9 var s = "))
	assert.True(t, strings.HasSuffix(loc, "..."))
	assert.Equal(t, maxLineText, utf8.RuneCountInString(strings.TrimSuffix(strings.TrimPrefix(loc, "3:9 "), "...")))

	assert.Equal(t, "1:0 var a;", formatLocation(&api.Location{Line: 1, LineText: "var a;"}))
	assert.Equal(t, "", formatLocation(nil))
}

func TestESBuildInvalidOption(t *testing.T) {
	opts := allFlags()
	opts.Target = "es1999"

	_, err := NewESBuild().Minify(context.Background(), "index.js", []byte(bundleSource), opts)
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestESBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewESBuild().Minify(ctx, "index.js", []byte(bundleSource), allFlags())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestESBuildDropConsole(t *testing.T) {
	opts := allFlags()
	opts.Drop = []string{"console"}

	res, err := NewESBuild().Minify(context.Background(), "index.js", []byte(bundleSource), opts)
	require.NoError(t, err)
	assert.NotContains(t, string(res.Code), "hello world")
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"zero value", Options{}, false},
		{"es5", Options{Target: "ES5"}, false},
		{"esnext", Options{Target: "esnext"}, false},
		{"unknown target", Options{Target: "es3"}, true},
		{"utf8 charset", Options{Charset: "utf-8"}, false},
		{"unknown charset", Options{Charset: "latin1"}, true},
		{"eof legal comments", Options{LegalComments: "eof"}, false},
		{"unknown legal comments", Options{LegalComments: "linked"}, true},
		{"drop debugger", Options{Drop: []string{"debugger"}}, false},
		{"drop unknown", Options{Drop: []string{"alert"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidOption)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	tests := map[string]Kind{
		"index.js":       KindScript,
		"chunk.mjs":      KindScript,
		"lib.cjs":        KindScript,
		"main.JS?v=2":    KindScript,
		"style.css":      KindStyle,
		"style.css#hash": KindStyle,
		"index.html":     KindMarkup,
		"logo.svg":       KindMarkup,
		"data.json":      KindMarkup,
		"index.js.map":   KindOther,
		"image.png":      KindOther,
		"README":         KindOther,
	}

	for name, want := range tests {
		assert.Equal(t, want, KindOf(name), name)
	}
}
