/**
 * internal/sourcemap/comment.go
 * sourceMappingURL 注释处理
 *
 * 功能：
 * - 提取 / 去除 JS 与 CSS 中的 sourceMappingURL 注释
 * - 生成注释（外部文件或 data URL）
 * - data URL 与 SourceMap 之间的转换
 */

package sourcemap

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// DataURLPrefix 内联 map 使用的 data URL 前缀
const DataURLPrefix = "data:application/json;charset=utf-8;base64,"

var (
	// 匹配整行的 //# sourceMappingURL=... 或 /*# sourceMappingURL=... */（兼容旧的 //@ 写法）
	urlCommentRe = regexp.MustCompile(`(?m)^[ \t]*(?://[#@][ \t]+sourceMappingURL=([^\s'"]*)[ \t]*|/\*[#@][ \t]+sourceMappingURL=([^\s*'"]*)[ \t]*\*/[ \t]*)\r?$`)
)

// ExtractURL 返回代码中最后一个 sourceMappingURL 的值
func ExtractURL(code []byte) (string, bool) {
	matches := urlCommentRe.FindAllSubmatch(code, -1)
	if len(matches) == 0 {
		return "", false
	}

	last := matches[len(matches)-1]
	if len(last[1]) > 0 {
		return string(last[1]), true
	}
	return string(last[2]), true
}

// StripURL 去除所有 sourceMappingURL 注释行
// 总是返回新的切片，不修改输入
func StripURL(code []byte) []byte {
	if !bytes.Contains(code, []byte("sourceMappingURL=")) {
		return append([]byte(nil), code...)
	}

	stripped := urlCommentRe.ReplaceAll(code, nil)
	return append([]byte(nil), bytes.TrimRight(stripped, " \t\r\n")...)
}

// AppendComment 在代码末尾追加 sourceMappingURL 注释
// css 为 true 时使用块注释
func AppendComment(code []byte, mapURL string, css bool) []byte {
	out := make([]byte, 0, len(code)+len(mapURL)+32)
	out = append(out, code...)
	if len(out) > 0 && out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}

	if css {
		out = append(out, "/*# sourceMappingURL="...)
		out = append(out, mapURL...)
		out = append(out, " */\n"...)
		return out
	}

	out = append(out, "//# sourceMappingURL="...)
	out = append(out, mapURL...)
	out = append(out, '\n')
	return out
}

// ToDataURL 将 map 编码为 base64 data URL
func ToDataURL(m *SourceMap) (string, error) {
	data, err := m.Bytes()
	if err != nil {
		return "", fmt.Errorf("failed to encode source map: %w", err)
	}
	return DataURLPrefix + base64.StdEncoding.EncodeToString(data), nil
}

// IsDataURL 判断 sourceMappingURL 是否为内联 data URL
func IsDataURL(u string) bool {
	return strings.HasPrefix(u, "data:")
}

// FromDataURL 解析 data:application/json 形式的内联 map
func FromDataURL(u string) (*SourceMap, error) {
	if !IsDataURL(u) {
		return nil, fmt.Errorf("%w: not a data URL", ErrInvalidMap)
	}

	comma := strings.IndexByte(u, ',')
	if comma < 0 {
		return nil, fmt.Errorf("%w: malformed data URL", ErrInvalidMap)
	}

	meta, payload := u[len("data:"):comma], u[comma+1:]
	if !strings.HasPrefix(meta, "application/json") {
		return nil, fmt.Errorf("%w: unsupported media type %q", ErrInvalidMap, meta)
	}

	var data []byte
	if strings.HasSuffix(meta, ";base64") {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMap, err)
		}
		data = decoded
	} else {
		unescaped, err := url.PathUnescape(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMap, err)
		}
		data = []byte(unescaped)
	}

	return Parse(data)
}
