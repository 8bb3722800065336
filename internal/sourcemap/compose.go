/**
 * internal/sourcemap/compose.go
 * Source Map 链式合并
 *
 * 功能：
 * - 将 原始->中间 与 中间->压缩 两张 map 合并为 原始->压缩
 * - 中间位置查不到原始位置的映射段直接丢弃
 * - 名称表按索引重映射并去重
 * - 前置 map 损坏时尽力合并，返回 *MapComposeError 作为提示
 */

package sourcemap

import (
	"errors"
	"fmt"
	"strings"
)

// MapComposeError 合并过程中因数据损坏被丢弃的映射
// 合并结果依然可用，调用方应当只记录警告
type MapComposeError struct {
	Dropped int
	Reasons []string
}

func (e *MapComposeError) Error() string {
	return fmt.Sprintf("%s: %d mappings dropped (%s)", ErrMapCompose.Error(), e.Dropped, strings.Join(e.Reasons, "; "))
}

func (e *MapComposeError) Unwrap() error { return ErrMapCompose }

func (e *MapComposeError) add(reason string) {
	e.Dropped++
	if len(e.Reasons) < 5 {
		e.Reasons = append(e.Reasons, reason)
	}
}

// sourceRef 结果中的源引用
// fromFirst 为 true 时 index 指向 first.Sources，否则指向 second.Sources
type sourceRef struct {
	fromFirst bool
	index     int
}

type pendingSegment struct {
	genCol   int
	mapped   bool
	src      sourceRef
	origLine int
	origCol  int
	name     string
	hasName  bool
}

// Compose 合并两张连续的 Source Map
//
// 参数：
//   - first: 原始 -> 中间 的映射，可为 nil
//   - second: 中间 -> 输出 的映射（压缩器生成）
//
// 返回：
//   - *SourceMap: 原始 -> 输出 的映射
//   - error: second 为 nil 时返回错误；存在损坏数据时返回 *MapComposeError，结果仍然有效
func Compose(first, second *SourceMap) (*SourceMap, error) {
	if second == nil {
		return nil, fmt.Errorf("%w: no generated map to compose", ErrInvalidMap)
	}
	if first == nil {
		return second.Clone(), nil
	}

	cerr := &MapComposeError{}

	firstLines, err := DecodeMappings(first.Mappings)
	if err != nil {
		var merr *MappingsError
		if errors.As(err, &merr) {
			for i := 0; i < merr.Skipped; i++ {
				cerr.add("previous map: " + merr.First)
			}
		}
	}
	secondLines, err := DecodeMappings(second.Mappings)
	if err != nil {
		var merr *MappingsError
		if errors.As(err, &merr) {
			for i := 0; i < merr.Skipped; i++ {
				cerr.add("generated map: " + merr.First)
			}
		}
	}

	delegated := func(i int) bool {
		return len(second.Sources) == 1 || first.File == "" || second.Sources[i] == first.File
	}

	// 第一遍：逐段追溯到原始位置
	pending := make([][]pendingSegment, len(secondLines))
	usedFirst := make([]bool, len(first.Sources))
	var passthrough []int
	passSeen := make(map[int]bool)

	for li, segs := range secondLines {
		for _, seg := range segs {
			if !seg.HasSource() {
				pending[li] = append(pending[li], pendingSegment{genCol: seg.GeneratedColumn})
				continue
			}
			if seg.SourceIndex >= len(second.Sources) {
				cerr.add(fmt.Sprintf("generated map: source index %d out of range", seg.SourceIndex))
				continue
			}

			p := pendingSegment{genCol: seg.GeneratedColumn, mapped: true}
			if seg.HasName() && seg.NameIndex < len(second.Names) {
				p.name, p.hasName = second.Names[seg.NameIndex], true
			}

			if !delegated(seg.SourceIndex) {
				p.src = sourceRef{index: seg.SourceIndex}
				p.origLine, p.origCol = seg.OriginalLine, seg.OriginalColumn
				if !passSeen[seg.SourceIndex] {
					passSeen[seg.SourceIndex] = true
					passthrough = append(passthrough, seg.SourceIndex)
				}
				pending[li] = append(pending[li], p)
				continue
			}

			orig, ok := firstLines.Lookup(seg.OriginalLine, seg.OriginalColumn)
			if !ok || !orig.HasSource() {
				// 中间代码没有可追溯的来源（合成代码）
				continue
			}
			if orig.SourceIndex >= len(first.Sources) {
				cerr.add(fmt.Sprintf("previous map: source index %d out of range", orig.SourceIndex))
				continue
			}

			if orig.HasName() && orig.NameIndex < len(first.Names) {
				p.name, p.hasName = first.Names[orig.NameIndex], true
			}
			p.src = sourceRef{fromFirst: true, index: orig.SourceIndex}
			p.origLine, p.origCol = orig.OriginalLine, orig.OriginalColumn
			usedFirst[orig.SourceIndex] = true
			pending[li] = append(pending[li], p)
		}
	}

	// 第二遍：建立 sources 表（保持 first 的顺序，透传源追加在后）
	out := &SourceMap{
		Version:    3,
		File:       second.File,
		SourceRoot: first.SourceRoot,
		Sources:    []string{},
		Names:      []string{},
	}
	var contents []*string
	hasContent := false

	firstIndex := make(map[int]int)
	for i, name := range first.Sources {
		if !usedFirst[i] {
			continue
		}
		firstIndex[i] = len(out.Sources)
		out.Sources = append(out.Sources, name)
		c := contentAt(first, i)
		hasContent = hasContent || c != nil
		contents = append(contents, c)
	}

	secondIndex := make(map[int]int)
	for _, i := range passthrough {
		name := second.Sources[i]
		if existing := indexOf(out.Sources, name); existing >= 0 {
			secondIndex[i] = existing
			continue
		}
		secondIndex[i] = len(out.Sources)
		out.Sources = append(out.Sources, name)
		c := contentAt(second, i)
		hasContent = hasContent || c != nil
		contents = append(contents, c)
	}
	if hasContent {
		out.SourcesContent = contents
	}

	// 第三遍：生成最终映射段，名称去重
	nameIndex := make(map[string]int)
	lines := make(Mappings, len(pending))
	for li, segs := range pending {
		for _, p := range segs {
			seg := Segment{GeneratedColumn: p.genCol, SourceIndex: -1, NameIndex: -1}
			if p.mapped {
				if p.src.fromFirst {
					seg.SourceIndex = firstIndex[p.src.index]
				} else {
					seg.SourceIndex = secondIndex[p.src.index]
				}
				seg.OriginalLine, seg.OriginalColumn = p.origLine, p.origCol

				if p.hasName {
					idx, ok := nameIndex[p.name]
					if !ok {
						idx = len(out.Names)
						nameIndex[p.name] = idx
						out.Names = append(out.Names, p.name)
					}
					seg.NameIndex = idx
				}
			}
			lines[li] = append(lines[li], seg)
		}
	}
	out.Mappings = EncodeMappings(lines)

	if cerr.Dropped > 0 {
		return out, cerr
	}
	return out, nil
}

func contentAt(m *SourceMap, i int) *string {
	if c, ok := m.SourceContent(i); ok {
		return &c
	}
	return nil
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
