/**
 * internal/sourcemap/vlq.go
 * mappings 字段的 Base64 VLQ 编解码
 *
 * 功能：
 * - 解码为按生成行分组的映射段
 * - 宽松解码：无效段跳过并计数，不中断整体解析
 * - 编码回紧凑字符串
 */

package sourcemap

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

const base64Chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

var base64Index = func() [256]int8 {
	var idx [256]int8
	for i := range idx {
		idx[i] = -1
	}
	for i := 0; i < len(base64Chars); i++ {
		idx[base64Chars[i]] = int8(i)
	}
	return idx
}()

var (
	errVLQTruncated = errors.New("truncated VLQ value")
	errVLQOverflow  = errors.New("VLQ value overflows 32 bits")
)

// ====================  数据结构 ====================

// Segment 单个映射段
// SourceIndex / NameIndex 为 -1 表示该字段不存在
type Segment struct {
	GeneratedColumn int
	SourceIndex     int
	OriginalLine    int
	OriginalColumn  int
	NameIndex       int
}

// HasSource 是否带有原始位置
func (s Segment) HasSource() bool { return s.SourceIndex >= 0 }

// HasName 是否带有名称
func (s Segment) HasName() bool { return s.NameIndex >= 0 }

// Mappings 按生成行分组的映射段，行内按生成列升序
type Mappings [][]Segment

// MappingsError 解码时被跳过的段
type MappingsError struct {
	Skipped int
	First   string
}

func (e *MappingsError) Error() string {
	return fmt.Sprintf("%d malformed mapping segments skipped (first: %s)", e.Skipped, e.First)
}

func (e *MappingsError) Unwrap() error { return ErrInvalidMap }

// Lookup 查找 line 行中列号不大于 column 的最后一个段
func (m Mappings) Lookup(line, column int) (Segment, bool) {
	if line < 0 || line >= len(m) {
		return Segment{}, false
	}

	segs := m[line]
	i := sort.Search(len(segs), func(i int) bool { return segs[i].GeneratedColumn > column })
	if i == 0 {
		return Segment{}, false
	}
	return segs[i-1], true
}

// ====================  解码 ====================

// DecodeMappings 解码 mappings 字符串
// 无效段会被跳过，此时同时返回已解码部分和 *MappingsError
func DecodeMappings(s string) (Mappings, error) {
	var (
		lines    Mappings
		merr     *MappingsError
		srcIdx   int
		origLine int
		origCol  int
		nameIdx  int
	)

	skip := func(line, seg int, reason string) {
		if merr == nil {
			merr = &MappingsError{First: fmt.Sprintf("line %d segment %d: %s", line, seg, reason)}
		}
		merr.Skipped++
	}

	for lineNo, lineText := range strings.Split(s, ";") {
		var segs []Segment
		genCol := 0

		if lineText != "" {
			for segNo, segText := range strings.Split(lineText, ",") {
				if segText == "" {
					continue
				}

				fields, err := decodeFields(segText)
				if err != nil {
					skip(lineNo, segNo, err.Error())
					continue
				}
				if n := len(fields); n != 1 && n != 4 && n != 5 {
					skip(lineNo, segNo, fmt.Sprintf("unexpected field count %d", n))
					continue
				}

				seg := Segment{GeneratedColumn: genCol + fields[0], SourceIndex: -1, NameIndex: -1}
				if len(fields) >= 4 {
					seg.SourceIndex = srcIdx + fields[1]
					seg.OriginalLine = origLine + fields[2]
					seg.OriginalColumn = origCol + fields[3]
				}
				if len(fields) == 5 {
					seg.NameIndex = nameIdx + fields[4]
				}

				if seg.GeneratedColumn < 0 || (len(fields) >= 4 &&
					(seg.SourceIndex < 0 || seg.OriginalLine < 0 || seg.OriginalColumn < 0)) ||
					(len(fields) == 5 && seg.NameIndex < 0) {
					skip(lineNo, segNo, "negative position")
					continue
				}

				genCol = seg.GeneratedColumn
				if seg.HasSource() {
					srcIdx, origLine, origCol = seg.SourceIndex, seg.OriginalLine, seg.OriginalColumn
				}
				if seg.HasName() {
					nameIdx = seg.NameIndex
				}
				segs = append(segs, seg)
			}
		}

		sort.SliceStable(segs, func(i, j int) bool {
			return segs[i].GeneratedColumn < segs[j].GeneratedColumn
		})
		lines = append(lines, segs)
	}

	if merr != nil {
		return lines, merr
	}
	return lines, nil
}

// decodeFields 解码单个段的所有 VLQ 字段
func decodeFields(s string) ([]int, error) {
	fields := make([]int, 0, 5)
	for pos := 0; pos < len(s); {
		v, next, err := decodeVLQ(s, pos)
		if err != nil {
			return nil, err
		}
		fields = append(fields, v)
		pos = next
	}
	return fields, nil
}

func decodeVLQ(s string, pos int) (int, int, error) {
	shift, result := 0, 0
	for {
		if pos >= len(s) {
			return 0, pos, errVLQTruncated
		}
		digit := base64Index[s[pos]]
		if digit < 0 {
			return 0, pos, fmt.Errorf("invalid base64 character %q", s[pos])
		}
		pos++

		result += int(digit&31) << shift
		if digit&32 == 0 {
			break
		}
		shift += 5
		if shift > 30 {
			return 0, pos, errVLQOverflow
		}
	}

	if result&1 == 1 {
		return -(result >> 1), pos, nil
	}
	return result >> 1, pos, nil
}

// ====================  编码 ====================

// EncodeMappings 编码映射段
func EncodeMappings(lines Mappings) string {
	var (
		b        strings.Builder
		srcIdx   int
		origLine int
		origCol  int
		nameIdx  int
	)

	for i, segs := range lines {
		if i > 0 {
			b.WriteByte(';')
		}
		genCol := 0
		for j, seg := range segs {
			if j > 0 {
				b.WriteByte(',')
			}
			encodeVLQ(&b, seg.GeneratedColumn-genCol)
			genCol = seg.GeneratedColumn

			if !seg.HasSource() {
				continue
			}
			encodeVLQ(&b, seg.SourceIndex-srcIdx)
			encodeVLQ(&b, seg.OriginalLine-origLine)
			encodeVLQ(&b, seg.OriginalColumn-origCol)
			srcIdx, origLine, origCol = seg.SourceIndex, seg.OriginalLine, seg.OriginalColumn

			if seg.HasName() {
				encodeVLQ(&b, seg.NameIndex-nameIdx)
				nameIdx = seg.NameIndex
			}
		}
	}
	return b.String()
}

func encodeVLQ(b *strings.Builder, v int) {
	vlq := v << 1
	if v < 0 {
		vlq = (-v << 1) | 1
	}
	for {
		digit := vlq & 31
		vlq >>= 5
		if vlq > 0 {
			digit |= 32
		}
		b.WriteByte(base64Chars[digit])
		if vlq == 0 {
			return
		}
	}
}
