/**
 * internal/sourcemap/sourcemap.go
 * Source Map 数据模型
 *
 * 功能：
 * - Source Map v3 JSON 解析与序列化
 * - 位置查询（生成位置 -> 原始位置）
 * - 恒等映射生成（测试与无前置 map 时的锚点）
 */

package sourcemap

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ====================  错误定义 ====================

var (
	// ErrInvalidMap Source Map 结构无效
	ErrInvalidMap = errors.New("INVALID_SOURCE_MAP")

	// ErrMapCompose Source Map 合并时有映射被丢弃
	ErrMapCompose = errors.New("MAP_COMPOSE_LOSSY")
)

// ====================  数据结构 ====================

// SourceMap Source Map v3 文档
type SourceMap struct {
	Version        int       `json:"version"`
	File           string    `json:"file,omitempty"`
	SourceRoot     string    `json:"sourceRoot,omitempty"`
	Sources        []string  `json:"sources"`
	SourcesContent []*string `json:"sourcesContent,omitempty"`
	Names          []string  `json:"names"`
	Mappings       string    `json:"mappings"`
}

// Position 原始位置（行列均从 0 开始）
type Position struct {
	Source string
	Line   int
	Column int
	Name   string
}

// rawMap 解析时用于检测不支持的 index map
type rawMap struct {
	SourceMap
	Sections json.RawMessage `json:"sections"`
}

// ====================  解析与序列化 ====================

// Parse 解析 Source Map JSON
func Parse(data []byte) (*SourceMap, error) {
	var raw rawMap
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMap, err)
	}

	if len(raw.Sections) > 0 {
		return nil, fmt.Errorf("%w: indexed source maps are not supported", ErrInvalidMap)
	}

	if raw.Version != 3 {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidMap, raw.Version)
	}

	sm := raw.SourceMap
	return &sm, nil
}

// Bytes 序列化为 JSON
// sources / names 为空时输出 [] 而不是 null
func (m *SourceMap) Bytes() ([]byte, error) {
	out := *m
	if out.Version == 0 {
		out.Version = 3
	}
	if out.Sources == nil {
		out.Sources = []string{}
	}
	if out.Names == nil {
		out.Names = []string{}
	}
	return json.Marshal(&out)
}

// Clone 深拷贝
func (m *SourceMap) Clone() *SourceMap {
	if m == nil {
		return nil
	}

	out := *m
	out.Sources = append([]string(nil), m.Sources...)
	out.Names = append([]string(nil), m.Names...)
	if m.SourcesContent != nil {
		out.SourcesContent = make([]*string, len(m.SourcesContent))
		for i, c := range m.SourcesContent {
			if c != nil {
				s := *c
				out.SourcesContent[i] = &s
			}
		}
	}
	return &out
}

// SourceContent 返回第 i 个源的内嵌内容
func (m *SourceMap) SourceContent(i int) (string, bool) {
	if i < 0 || i >= len(m.SourcesContent) || m.SourcesContent[i] == nil {
		return "", false
	}
	return *m.SourcesContent[i], true
}

// Lookup 查询生成位置对应的原始位置
// 使用同一生成行中列号不大于 column 的最后一个映射段
func (m *SourceMap) Lookup(line, column int) (Position, bool) {
	lines, _ := DecodeMappings(m.Mappings)

	seg, ok := lines.Lookup(line, column)
	if !ok || !seg.HasSource() || seg.SourceIndex >= len(m.Sources) {
		return Position{}, false
	}

	pos := Position{
		Source: m.Sources[seg.SourceIndex],
		Line:   seg.OriginalLine,
		Column: seg.OriginalColumn,
	}
	if seg.HasName() && seg.NameIndex < len(m.Names) {
		pos.Name = m.Names[seg.NameIndex]
	}
	return pos, true
}

// ====================  恒等映射 ====================

// Identity 为 content 生成逐字符的恒等映射
// 每个生成位置都映射到 name 中相同的行列，列按 UTF-16 码元计数
func Identity(name, content string) *SourceMap {
	var lines Mappings

	for _, text := range strings.Split(content, "\n") {
		var segs []Segment
		col := 0
		for len(text) > 0 {
			r, size := utf8.DecodeRuneInString(text)
			segs = append(segs, Segment{
				GeneratedColumn: col,
				SourceIndex:     0,
				OriginalLine:    len(lines),
				OriginalColumn:  col,
				NameIndex:       -1,
			})
			col += utf16Len(r)
			text = text[size:]
		}
		lines = append(lines, segs)
	}

	src := content
	return &SourceMap{
		Version:        3,
		File:           name,
		Sources:        []string{name},
		SourcesContent: []*string{&src},
		Names:          []string{},
		Mappings:       EncodeMappings(lines),
	}
}

func utf16Len(r rune) int {
	if r >= 0x10000 {
		return 2
	}
	return 1
}
