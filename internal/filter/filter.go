/**
 * internal/filter/filter.go
 * 产物过滤器
 *
 * 功能：
 * - 基于 include / exclude 正则判断产物是否需要处理
 * - exclude 优先于 include
 * - 匹配对象为构建分配的逻辑文件名（子串 / 正则语义）
 */

package filter

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrFilterConfig include / exclude 配置无效
var ErrFilterConfig = errors.New("FILTER_CONFIG_INVALID")

// ConfigError 无效的过滤模式
type ConfigError struct {
	Field   string // "include" 或 "exclude"
	Pattern string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s pattern %q", ErrFilterConfig.Error(), e.Field, e.Pattern)
	}
	return fmt.Sprintf("%s: %s pattern %q: %v", ErrFilterConfig.Error(), e.Field, e.Pattern, e.Err)
}

func (e *ConfigError) Unwrap() error { return ErrFilterConfig }

// Filter 产物过滤器，构造后只读，可并发使用
type Filter struct {
	include []*regexp.Regexp
	exclude []*regexp.Regexp
}

// New 编译 include / exclude 模式
// 任一模式为空字符串或无法编译时返回 *ConfigError
func New(include, exclude []string) (*Filter, error) {
	inc, err := compile("include", include)
	if err != nil {
		return nil, err
	}
	exc, err := compile("exclude", exclude)
	if err != nil {
		return nil, err
	}
	return &Filter{include: inc, exclude: exc}, nil
}

func compile(field string, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			return nil, &ConfigError{Field: field, Pattern: p, Err: errors.New("empty pattern")}
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, &ConfigError{Field: field, Pattern: p, Err: err}
		}
		out = append(out, re)
	}
	return out, nil
}

// ShouldProcess 判断产物是否在处理范围内
func (f *Filter) ShouldProcess(name string) bool {
	if f == nil {
		return true
	}

	for _, re := range f.exclude {
		if re.MatchString(name) {
			return false
		}
	}

	if len(f.include) == 0 {
		return true
	}
	for _, re := range f.include {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}
