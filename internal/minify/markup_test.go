package minify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkupHTML(t *testing.T) {
	src := "<html>\n  <body>\n    <p>  hello   world  </p>\n  </body>\n</html>\n"

	res, err := NewMarkup().Minify(context.Background(), "index.html", []byte(src), allFlags())
	require.NoError(t, err)

	assert.Less(t, len(res.Code), len(src))
	assert.Contains(t, string(res.Code), "hello world")
	assert.Nil(t, res.Map)
}

func TestMarkupJSON(t *testing.T) {
	src := "{\n  \"name\": \"app\",\n  \"version\": 1\n}\n"

	res, err := NewMarkup().Minify(context.Background(), "data.json", []byte(src), allFlags())
	require.NoError(t, err)
	assert.Equal(t, `{"name":"app","version":1}`, string(res.Code))
}

func TestMarkupSVG(t *testing.T) {
	src := "<svg xmlns=\"http://www.w3.org/2000/svg\">\n  <rect width=\"10\" height=\"10\" />\n</svg>\n"

	res, err := NewMarkup().Minify(context.Background(), "logo.svg", []byte(src), allFlags())
	require.NoError(t, err)
	assert.Less(t, len(res.Code), len(src))
	assert.NotContains(t, string(res.Code), "\n")
	assert.Contains(t, string(res.Code), "<svg")
}

func TestMarkupPassThrough(t *testing.T) {
	src := []byte("{ \"a\": 1 }")

	t.Run("no flags", func(t *testing.T) {
		res, err := NewMarkup().Minify(context.Background(), "data.json", src, Options{})
		require.NoError(t, err)
		assert.Equal(t, src, res.Code)
	})

	t.Run("unknown extension", func(t *testing.T) {
		res, err := NewMarkup().Minify(context.Background(), "notes.txt", src, allFlags())
		require.NoError(t, err)
		assert.Equal(t, src, res.Code)
	})
}

func TestMarkupInvalidJSON(t *testing.T) {
	_, err := NewMarkup().Minify(context.Background(), "data.json", []byte("{\"a\": @}"), allFlags())
	assert.ErrorIs(t, err, ErrMinify)
}
