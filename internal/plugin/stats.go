package plugin

import (
	"fmt"
	"strings"
	"time"

	"chunk-minifier/internal/utils"
)

// AssetStat 单个产物的处理结果
type AssetStat struct {
	Name    string   `json:"name"`
	Before  int      `json:"before"`
	After   int      `json:"after"`
	Labels  []string `json:"labels,omitempty"`
	Skipped bool     `json:"skipped,omitempty"` // 已压缩过，本轮未处理
}

// Stats 一轮压缩的统计，Assets 按产物枚举顺序排列
type Stats struct {
	Considered  int           `json:"considered"`
	Minified    int           `json:"minified"`
	Skipped     int           `json:"skipped"`
	Assets      []AssetStat   `json:"assets"`
	BytesBefore int64         `json:"bytesBefore"`
	BytesAfter  int64         `json:"bytesAfter"`
	Duration    time.Duration `json:"duration"`
}

// SavedRatio 节省的字节比例（0-1）
func (s *Stats) SavedRatio() float64 {
	if s.BytesBefore == 0 {
		return 0
	}
	return 1 - float64(s.BytesAfter)/float64(s.BytesBefore)
}

// String 构建摘要，每个产物一行
//
//	asset index.js 1.20 KB [minimized] (was 3.40 KB)
//	minified 1 of 2 assets (1 skipped): 3.40 KB -> 1.20 KB (64.7% saved) in 12ms
func (s *Stats) String() string {
	var b strings.Builder

	for _, a := range s.Assets {
		fmt.Fprintf(&b, "asset %s %s", a.Name, utils.FormatBytes(int64(a.After)))
		for _, l := range a.Labels {
			fmt.Fprintf(&b, " [%s]", l)
		}
		if !a.Skipped {
			fmt.Fprintf(&b, " (was %s)", utils.FormatBytes(int64(a.Before)))
		}
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "minified %d of %d assets", s.Minified, s.Considered)
	if s.Skipped > 0 {
		fmt.Fprintf(&b, " (%d skipped)", s.Skipped)
	}
	fmt.Fprintf(&b, ": %s -> %s (%.1f%% saved) in %s",
		utils.FormatBytes(s.BytesBefore),
		utils.FormatBytes(s.BytesAfter),
		s.SavedRatio()*100,
		s.Duration.Round(time.Millisecond))

	return b.String()
}
