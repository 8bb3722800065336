/**
 * internal/minify/esbuild.go
 * 基于 esbuild 的 JS / CSS 压缩
 *
 * 功能：
 * - 调用 esbuild Transform API 压缩单个产物
 * - 按需生成外部 map（sources 指向产物名，作为合并锚点）
 * - 将 esbuild 的错误转换为 *Error，警告转换为 Warning
 *
 * 依赖：
 * - github.com/evanw/esbuild/pkg/api
 */

package minify

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"chunk-minifier/internal/sourcemap"
	"chunk-minifier/internal/utils"

	"github.com/evanw/esbuild/pkg/api"
)

// ESBuild esbuild 压缩器，无状态，可并发使用
type ESBuild struct{}

// NewESBuild 创建 esbuild 压缩器
func NewESBuild() *ESBuild {
	return &ESBuild{}
}

// Minify 压缩单个产物
//
// 参数：
//   - ctx: 上下文（取消后放弃结果）
//   - name: 产物名，同时作为 map 的 sources 条目
//   - code: 压缩前代码（不应包含 sourceMappingURL 注释）
//   - opts: 压缩选项
//
// 返回：
//   - *Result: 压缩结果
//   - error: *Error（压缩器拒绝输入）或 ctx 错误
func (e *ESBuild) Minify(ctx context.Context, name string, code []byte, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	topts, err := transformOptions(name, opts)
	if err != nil {
		return nil, err
	}

	res := api.Transform(string(code), topts)

	if len(res.Errors) > 0 {
		return nil, newError(name, res.Errors)
	}

	// 构建已取消，丢弃结果
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{Code: res.Code}

	if opts.Sourcemap && len(res.Map) > 0 {
		sm, err := sourcemap.Parse(res.Map)
		if err != nil {
			return nil, &Error{AssetName: name, Message: fmt.Sprintf("minifier produced an invalid source map: %v", err)}
		}
		result.Map = sm
	}

	for _, w := range res.Warnings {
		result.Warnings = append(result.Warnings, Warning{Text: w.Text, Location: formatLocation(w.Location)})
	}

	utils.LogDebugf("[MINIFY] esbuild: %s %d -> %d bytes", name, len(code), len(res.Code))
	return result, nil
}

// newError 将 esbuild 错误列表转换为 *Error
// 位置取第一个错误
func newError(name string, msgs []api.Message) *Error {
	texts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		texts = append(texts, m.Text)
	}

	return &Error{
		AssetName: name,
		Message:   strings.Join(texts, "; "),
		Location:  formatLocation(msgs[0].Location),
	}
}

// maxLineText 位置提示中源码行的最大字符数
const maxLineText = 80

func formatLocation(loc *api.Location) string {
	if loc == nil {
		return ""
	}
	s := fmt.Sprintf("%d:%d", loc.Line, loc.Column)
	if text := strings.TrimSpace(loc.LineText); text != "" {
		if utf8.RuneCountInString(text) > maxLineText {
			text = string([]rune(text)[:maxLineText]) + "..."
		}
		s += " " + text
	}
	return s
}
