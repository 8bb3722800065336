/**
 * internal/minify/minifier.go
 * 压缩调用接口
 *
 * 功能：
 * - Minifier 接口：输入代码 -> 压缩代码 + 可选 map + 警告
 * - MinifyError：压缩器拒绝输入时的错误（含产物名与位置）
 * - 按文件名判断产物类型
 */

package minify

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"chunk-minifier/internal/sourcemap"
)

// ====================  错误定义 ====================

// ErrMinify 压缩器拒绝输入（语法错误或内部错误）
var ErrMinify = errors.New("MINIFY_FAILED")

// Error 单个产物的压缩错误
type Error struct {
	AssetName string
	Message   string
	Location  string // "行:列"，可能附带出错行文本
}

func (e *Error) Error() string {
	if e.Location == "" {
		return fmt.Sprintf("%s from minifier: %s", e.AssetName, e.Message)
	}
	return fmt.Sprintf("%s from minifier: %s [%s]", e.AssetName, e.Message, e.Location)
}

func (e *Error) Unwrap() error { return ErrMinify }

// ====================  数据结构 ====================

// Warning 压缩器警告，不影响构建结果
type Warning struct {
	Text     string
	Location string
}

// Result 单次压缩结果
// Code / Map 视为只读，重写阶段会复制后再修改
type Result struct {
	Code     []byte
	Map      *sourcemap.SourceMap
	Warnings []Warning
}

// Minifier 外部压缩服务
// 实现必须可并发调用，调用之间不共享可变状态
type Minifier interface {
	Minify(ctx context.Context, name string, code []byte, opts Options) (*Result, error)
}

// ====================  产物类型 ====================

// Kind 产物类型
type Kind int

const (
	KindOther  Kind = iota
	KindScript      // .js .mjs .cjs
	KindStyle       // .css
	KindMarkup      // .html .htm .svg .json
)

func (k Kind) String() string {
	switch k {
	case KindScript:
		return "script"
	case KindStyle:
		return "style"
	case KindMarkup:
		return "markup"
	default:
		return "other"
	}
}

// KindOf 按文件名（忽略查询串）判断产物类型
func KindOf(name string) Kind {
	switch strings.ToLower(path.Ext(StripQuery(name))) {
	case ".js", ".mjs", ".cjs":
		return KindScript
	case ".css":
		return KindStyle
	case ".html", ".htm", ".svg", ".json":
		return KindMarkup
	default:
		return KindOther
	}
}

// StripQuery 去掉文件名中的查询串和片段（如 main.js?v=1）
func StripQuery(name string) string {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		return name[:i]
	}
	return name
}
