/**
 * internal/rewrite/rewrite.go
 * 将压缩结果写回产物
 *
 * 功能：
 * - 替换产物内容，重新计算内容哈希
 * - 合并产物原有 map 与压缩器 map
 * - 按 map 模式输出：不输出 / 内联 data URL / 外部 .map 文件 / 隐藏 .map 文件
 * - 去除旧的 sourceMappingURL 注释，保证只有一条
 *
 * 依赖：
 * - internal/sourcemap
 * - internal/asset
 */

package rewrite

import (
	"errors"
	"fmt"
	"path"

	"chunk-minifier/internal/asset"
	"chunk-minifier/internal/minify"
	"chunk-minifier/internal/sourcemap"
	"chunk-minifier/internal/utils"
)

// RelatedSourceMap Info.Related 中 map 文件的键
const RelatedSourceMap = asset.RelatedSourceMap

// ErrInvalidInput 调用参数缺失
var ErrInvalidInput = errors.New("REWRITE_INVALID_INPUT")

// MapName 产物对应的外部 map 文件名（忽略查询串）
func MapName(name string) string {
	return minify.StripQuery(name) + ".map"
}

// Apply 将压缩结果应用到产物
//
// 所有输出先计算完成再修改产物，失败时产物保持不变。
//
// 参数：
//   - c: 构建会话（外部模式下注册 .map 产物）
//   - a: 待改写的产物（属于 c）
//   - res: 压缩结果
//   - mode: map 输出模式
//
// 返回：
//   - error: 参数缺失或 map 序列化失败；map 合并有损只记录警告
func Apply(c *asset.Compilation, a *asset.Asset, res *minify.Result, mode asset.MapMode) error {
	if c == nil || a == nil || res == nil {
		return ErrInvalidInput
	}

	code := sourcemap.StripURL(res.Code)
	css := minify.KindOf(a.Name) == minify.KindStyle
	mapName := MapName(a.Name)

	var composed *sourcemap.SourceMap
	if mode != asset.MapNone && res.Map != nil {
		m, err := sourcemap.Compose(a.Map, res.Map)
		if err != nil {
			var cerr *sourcemap.MapComposeError
			if !errors.As(err, &cerr) {
				return fmt.Errorf("compose source map for %s: %w", a.Name, err)
			}
			utils.LogPrintf("[REWRITE] WARN: %s: %v", a.Name, cerr)
		}
		m.File = path.Base(minify.StripQuery(a.Name))
		if !c.Devtool().SourcesContent {
			m.SourcesContent = nil
		}
		composed = m
	} else if mode != asset.MapNone {
		utils.LogDebugf("[REWRITE] %s: minifier returned no map, dropping map association", a.Name)
	}

	var mapAsset *asset.Asset
	if composed != nil {
		switch mode {
		case asset.MapInline:
			dataURL, err := sourcemap.ToDataURL(composed)
			if err != nil {
				return fmt.Errorf("encode inline map for %s: %w", a.Name, err)
			}
			code = sourcemap.AppendComment(code, dataURL, css)

		case asset.MapExternal, asset.MapHidden:
			data, err := composed.Bytes()
			if err != nil {
				return fmt.Errorf("encode map for %s: %w", a.Name, err)
			}
			mapAsset = &asset.Asset{
				Name:   mapName,
				Source: data,
				Info:   asset.Info{Development: true},
			}
			if mode == asset.MapExternal {
				code = sourcemap.AppendComment(code, path.Base(mapName), css)
			}
		}
	}

	// 没有有效 map 时，之前注册的 .map 产物已与新内容不匹配
	if mapAsset == nil {
		removeStaleMap(c, mapName)
	} else {
		c.Put(mapAsset)
	}
	// 加载时关联的 map 文件名可能与 <name>.map 不同
	if prev := a.Info.Related[RelatedSourceMap]; prev != "" && (mapAsset == nil || prev != mapName) {
		removeStaleMap(c, prev)
	}

	a.Source = code
	a.Map = composed
	a.Info.Minimized = true
	a.Info.ContentHash = asset.ContentHash(code)
	a.AddLabel(asset.LabelMinimized)
	if mapAsset != nil {
		a.SetRelated(RelatedSourceMap, mapName)
	} else {
		a.SetRelated(RelatedSourceMap, "")
	}

	return nil
}

// removeStaleMap 删除不再匹配产物内容的调试 map
func removeStaleMap(c *asset.Compilation, name string) {
	if prev, ok := c.Get(name); ok && prev.Info.Development {
		_ = c.Remove(name)
		utils.LogDebugf("[REWRITE] Removed stale map %s", name)
	}
}
