package asset

import "strings"

// MapMode 产物的 source map 附加方式
type MapMode int

const (
	MapNone     MapMode = iota // 不生成 map，去除已有关联
	MapInline                  // 以 data URL 注释内联
	MapExternal                // 独立 .map 文件 + 注释
	MapHidden                  // 独立 .map 文件，不写注释
)

func (m MapMode) String() string {
	switch m {
	case MapInline:
		return "inline"
	case MapExternal:
		return "external"
	case MapHidden:
		return "hidden"
	default:
		return "none"
	}
}

// Devtool 宿主构建的 devtool 配置
type Devtool struct {
	Raw            string
	Mode           MapMode
	SourcesContent bool // map 中是否内嵌源码
}

// ParseDevtool 解析 webpack 风格的 devtool 字符串
//
//	""、"false"、"none"、"eval"、"eval-*"   -> none
//	"*inline*"                             -> inline
//	"hidden-*source-map"                   -> hidden
//	"*source-map"                          -> external
//
// 带 "nosources" 时不内嵌源码
func ParseDevtool(raw string) Devtool {
	s := strings.ToLower(strings.TrimSpace(raw))
	d := Devtool{Raw: raw, SourcesContent: !strings.Contains(s, "nosources")}

	switch {
	case s == "" || s == "false" || s == "none" || strings.HasPrefix(s, "eval"):
		d.Mode = MapNone
	case !strings.Contains(s, "source-map"):
		d.Mode = MapNone
	case strings.Contains(s, "inline"):
		d.Mode = MapInline
	case strings.Contains(s, "hidden"):
		d.Mode = MapHidden
	default:
		d.Mode = MapExternal
	}
	return d
}
