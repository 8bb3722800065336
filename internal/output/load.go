/**
 * internal/output/load.go
 * 从构建输出目录加载产物
 *
 * 功能：
 * - 遍历目录，按相对路径（/ 分隔）作为产物名
 * - 读取 sourceMappingURL：data URL 直接解析，文件引用读取对应 .map
 * - 没有注释但存在同名 .map 时同样作为前置 map
 * - 全部 .map 作为调试产物加载，被引用的 .map 记录为所属产物的关联 map
 */

package output

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"chunk-minifier/internal/asset"
	"chunk-minifier/internal/sourcemap"
	"chunk-minifier/internal/utils"
)

// 文件权限（与构建工具保持一致）
const (
	dirPerm  = 0755
	filePerm = 0644
)

// ErrNotDirectory 输入路径不是目录
var ErrNotDirectory = errors.New("OUTPUT_NOT_DIRECTORY")

// LoadDir 加载目录中的全部产物
//
// 参数：
//   - dir: 构建输出目录
//   - devtool: 宿主构建的 devtool 配置
//
// 返回：
//   - *asset.Compilation: 按路径字典序排列的产物集合
//   - error: 目录不可读
func LoadDir(dir string, devtool asset.Devtool) (*asset.Compilation, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}

	files := make(map[string]bool)
	var names []string
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			utils.LogPrintf("[OUTPUT] WARN: Walk error for %s: %v", p, err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		// 预压缩文件由本工具重新生成
		if strings.HasSuffix(p, ".br") {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		files[name] = true
		names = append(names, name)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	sort.Strings(names)

	c := asset.NewCompilation(devtool)
	consumed := make(map[string]bool)

	for _, name := range names {
		if strings.HasSuffix(name, ".map") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}

		a := &asset.Asset{Name: name, Source: data}
		mapName, m := inputMap(dir, name, data, files)
		if mapName != "" {
			consumed[mapName] = true
			a.SetRelated(asset.RelatedSourceMap, mapName)
		}
		a.Map = m

		if err := c.Emit(a); err != nil {
			return nil, err
		}
	}

	// .map 原样保留；被引用的 map 在产物重写后由 rewrite 替换或删除
	for _, name := range names {
		if !strings.HasSuffix(name, ".map") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		if err := c.Emit(&asset.Asset{Name: name, Source: data, Info: asset.Info{Development: true}}); err != nil {
			return nil, err
		}
	}

	utils.LogPrintf("[OUTPUT] Loaded %d assets from %s (%d input maps)", c.Len(), dir, len(consumed))
	return c, nil
}

// inputMap 查找产物的前置 map
// 返回被使用的 .map 文件名（内联 map 时为空）与解析结果
func inputMap(dir, name string, code []byte, files map[string]bool) (string, *sourcemap.SourceMap) {
	ref, ok := sourcemap.ExtractURL(code)
	if ok && sourcemap.IsDataURL(ref) {
		m, err := sourcemap.FromDataURL(ref)
		if err != nil {
			utils.LogPrintf("[OUTPUT] WARN: %s: ignoring inline source map: %v", name, err)
			return "", nil
		}
		return "", m
	}

	var mapName string
	switch {
	case ok && ref != "" && !strings.Contains(ref, "://"):
		mapName = path.Join(path.Dir(name), ref)
	case files[name+".map"]:
		mapName = name + ".map"
	default:
		return "", nil
	}
	if !files[mapName] {
		utils.LogDebugf("[OUTPUT] %s references missing map %s", name, mapName)
		return "", nil
	}

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(mapName)))
	if err != nil {
		utils.LogPrintf("[OUTPUT] WARN: %s: failed to read %s: %v", name, mapName, err)
		return "", nil
	}
	m, err := sourcemap.Parse(data)
	if err != nil {
		utils.LogPrintf("[OUTPUT] WARN: %s: ignoring %s: %v", name, mapName, err)
		return mapName, nil
	}
	return mapName, m
}
