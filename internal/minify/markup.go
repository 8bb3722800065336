/**
 * internal/minify/markup.go
 * HTML / SVG / JSON 压缩
 *
 * 功能：
 * - esbuild 不处理的标记类产物使用 tdewolff/minify
 * - 不生成 source map
 *
 * 依赖：
 * - github.com/tdewolff/minify/v2
 */

package minify

import (
	"context"
	"path"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/json"
	"github.com/tdewolff/minify/v2/svg"
)

var markupTypes = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".svg":  "image/svg+xml",
	".json": "application/json",
}

// Markup 标记类产物压缩器
type Markup struct {
	m *minify.M
}

// NewMarkup 创建标记类压缩器
func NewMarkup() *Markup {
	m := minify.New()
	m.Add("text/html", &html.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
	})
	m.Add("image/svg+xml", &svg.Minifier{})
	m.Add("application/json", &json.Minifier{})
	return &Markup{m: m}
}

// Minify 压缩单个标记类产物
// 三个压缩开关全部关闭时原样返回
func (mk *Markup) Minify(ctx context.Context, name string, code []byte, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mediaType, ok := markupTypes[strings.ToLower(path.Ext(StripQuery(name)))]
	if !ok || !(opts.MinifyWhitespace || opts.MinifySyntax || opts.MinifyIdentifiers) {
		return &Result{Code: append([]byte(nil), code...)}, nil
	}

	out, err := mk.m.Bytes(mediaType, code)
	if err != nil {
		return nil, &Error{AssetName: name, Message: err.Error()}
	}
	return &Result{Code: out}, nil
}
