/**
 * internal/output/write.go
 * 产物写出与资源清单
 *
 * 功能：
 * - 将构建会话中的产物写入目录
 * - 生成哈希化文件名副本与 manifest.json（逻辑名 -> 哈希化文件名）
 */

package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"chunk-minifier/internal/asset"
	"chunk-minifier/internal/utils"
)

// ManifestFile 资源清单文件名
const ManifestFile = "manifest.json"

// Manifest 资源清单，逻辑名 -> 哈希化文件名（同目录）
type Manifest map[string]string

// WriteDir 将全部产物写入 dir，返回写入字节数
// 构建中被删除的产物（如失效的 .map）同时从 dir 中删除，连同其 .br 副本
func WriteDir(c *asset.Compilation, dir string) (int64, error) {
	var written int64

	for _, a := range c.Assets() {
		if err := writeFile(dir, a.Name, a.Source); err != nil {
			return written, err
		}
		written += int64(a.Size())
	}

	for _, name := range c.Removed() {
		for _, p := range []string{name, name + ".br"} {
			err := os.Remove(filepath.Join(dir, filepath.FromSlash(p)))
			if err == nil {
				utils.LogDebugf("[OUTPUT] Removed stale %s", p)
				continue
			}
			if !errors.Is(err, fs.ErrNotExist) {
				return written, fmt.Errorf("failed to remove %s: %w", p, err)
			}
		}
	}

	utils.LogPrintf("[OUTPUT] Wrote %d assets to %s (%s)", c.Len(), dir, utils.FormatBytes(written))
	return written, nil
}

// HashedName 在扩展名前插入内容哈希：js/app.js -> js/app.1a2b3c4d.js
func HashedName(name, hash string) string {
	dir, base := path.Split(name)
	ext := path.Ext(base)
	return dir + strings.TrimSuffix(base, ext) + "." + hash + ext
}

// WriteManifest 为非调试产物写出哈希化副本并保存 manifest.json
func WriteManifest(c *asset.Compilation, dir string) (Manifest, error) {
	manifest := make(Manifest)

	for _, a := range c.Assets() {
		if a.Info.Development {
			continue
		}

		hash := a.Info.ContentHash
		if hash == "" {
			hash = asset.ContentHash(a.Source)
		}
		hashed := HashedName(a.Name, hash)

		if err := writeFile(dir, hashed, a.Source); err != nil {
			return nil, err
		}
		manifest[a.Name] = path.Base(hashed)
	}

	if len(manifest) == 0 {
		utils.LogPrintf("[OUTPUT] No assets to manifest")
		return manifest, nil
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), data, filePerm); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}

	utils.LogPrintf("[OUTPUT] Saved asset manifest with %d entries", len(manifest))
	return manifest, nil
}

// writeFile 写入单个文件，按需创建目录
func writeFile(dir, name string, data []byte) error {
	dst := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dst), dirPerm); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(dst, data, filePerm); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
