package plugin

import (
	"fmt"
	"strings"

	"chunk-minifier/internal/metrics"
	"chunk-minifier/internal/minify"
)

// Options 插件构造参数
type Options struct {
	Include []string // 正则列表，空表示全部
	Exclude []string // 正则列表，优先于 Include

	// Minify 显式为 false 且未设置任何细分开关时不压缩（仅重新生成代码）
	Minify            *bool
	MinifyWhitespace  bool
	MinifyIdentifiers bool
	MinifySyntax      bool

	// Sourcemap nil 时继承宿主 devtool；false 强制不生成；
	// true 且 devtool 为 none 时生成外部 .map
	Sourcemap *bool

	// 透传给压缩器
	Target        string
	Charset       string
	LegalComments string
	KeepNames     bool
	Drop          []string
	Pure          []string

	CSS    bool // 同时处理 .css
	Markup bool // 同时处理 .html .htm .svg .json
}

// FailurePolicy 重写阶段出错时的处理方式
type FailurePolicy int

const (
	// FailureKeep 已重写的产物保持重写后状态
	FailureKeep FailurePolicy = iota
	// FailureRollback 恢复本轮开始前的全部产物
	FailureRollback
)

func (p FailurePolicy) String() string {
	if p == FailureRollback {
		return "rollback"
	}
	return "keep"
}

// ParseFailurePolicy 解析 keep / rollback，空字符串为 keep
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "keep":
		return FailureKeep, nil
	case "rollback":
		return FailureRollback, nil
	default:
		return FailureKeep, fmt.Errorf("unknown failure policy %q (want keep or rollback)", s)
	}
}

// Option 可选依赖注入
type Option func(*Plugin)

// WithMinifier 替换 JS / CSS 压缩器（默认 esbuild）
func WithMinifier(m minify.Minifier) Option {
	return func(p *Plugin) { p.scripts = m }
}

// WithMarkupMinifier 替换 HTML / SVG / JSON 压缩器
func WithMarkupMinifier(m minify.Minifier) Option {
	return func(p *Plugin) { p.markup = m }
}

// WithConcurrency 限制同时进行的压缩调用数
func WithConcurrency(n int) Option {
	return func(p *Plugin) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithFailurePolicy 设置重写失败时的处理方式
func WithFailurePolicy(policy FailurePolicy) Option {
	return func(p *Plugin) { p.policy = policy }
}

// WithMetrics 记录 Prometheus 指标
func WithMetrics(c *metrics.Collector) Option {
	return func(p *Plugin) { p.metrics = c }
}

// minifyFlags 细分开关全部未设置时默认全部开启
func (o Options) minifyFlags() (whitespace, identifiers, syntax bool) {
	if o.MinifyWhitespace || o.MinifyIdentifiers || o.MinifySyntax {
		return o.MinifyWhitespace, o.MinifyIdentifiers, o.MinifySyntax
	}
	if o.Minify != nil && !*o.Minify {
		return false, false, false
	}
	return true, true, true
}
