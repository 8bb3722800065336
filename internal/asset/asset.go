/**
 * internal/asset/asset.go
 * 构建产物模型
 *
 * 功能：
 * - Asset：以输出文件名为标识的产物（内容、前置 map、内容哈希）
 * - Compilation：一次构建会话内的产物集合，保持输出顺序
 * - 内容哈希（缓存破坏文件名使用）
 */

package asset

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
	"sync"

	"chunk-minifier/internal/sourcemap"
)

// ====================  错误定义 ====================

var (
	// ErrDuplicateAsset 同名产物已存在
	ErrDuplicateAsset = errors.New("DUPLICATE_ASSET")

	// ErrAssetNotFound 产物不存在
	ErrAssetNotFound = errors.New("ASSET_NOT_FOUND")
)

const (
	// LabelMinimized 压缩后附加到产物上的构建标签
	LabelMinimized = "minimized"

	// RelatedSourceMap Info.Related 中 map 文件的键
	RelatedSourceMap = "sourceMap"
)

// ====================  数据结构 ====================

// Info 产物附加信息
type Info struct {
	Minimized   bool              // 是否已压缩
	Development bool              // 仅调试用途（如 .map 文件）
	ContentHash string            // 内容哈希（sha256 前 8 位）
	Labels      []string          // 构建摘要中显示的标签
	Related     map[string]string // 关联产物，如 "sourceMap" -> "index.js.map"
}

// Asset 构建产物
type Asset struct {
	Name   string               // 输出文件名（构建内唯一）
	Source []byte               // 当前内容
	Map    *sourcemap.SourceMap // 前置 map（原始 -> 当前内容），可为 nil
	Info   Info
}

// Size 内容字节数
func (a *Asset) Size() int {
	return len(a.Source)
}

// AddLabel 添加标签（去重）
func (a *Asset) AddLabel(label string) {
	for _, l := range a.Info.Labels {
		if l == label {
			return
		}
	}
	a.Info.Labels = append(a.Info.Labels, label)
}

// SetRelated 设置关联产物，name 为空时删除
func (a *Asset) SetRelated(kind, name string) {
	if name == "" {
		delete(a.Info.Related, kind)
		return
	}
	if a.Info.Related == nil {
		a.Info.Related = make(map[string]string)
	}
	a.Info.Related[kind] = name
}

// Clone 深拷贝（回滚快照使用）
func (a *Asset) Clone() *Asset {
	out := &Asset{
		Name:   a.Name,
		Source: append([]byte(nil), a.Source...),
		Map:    a.Map.Clone(),
		Info:   a.Info,
	}
	out.Info.Labels = append([]string(nil), a.Info.Labels...)
	if a.Info.Related != nil {
		out.Info.Related = make(map[string]string, len(a.Info.Related))
		for k, v := range a.Info.Related {
			out.Info.Related[k] = v
		}
	}
	return out
}

// ContentHash 计算内容的 SHA256 哈希前 8 位
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum)[:8]
}

// ====================  构建会话 ====================

// Compilation 一次构建会话中的产物集合
// 线程安全；遍历顺序为产物首次加入的顺序
type Compilation struct {
	mu      sync.RWMutex
	devtool Devtool
	order   []string
	assets  map[string]*Asset
	removed map[string]bool // 本次构建中删除、写出时需要清理的产物
}

// NewCompilation 创建构建会话
func NewCompilation(devtool Devtool) *Compilation {
	return &Compilation{
		devtool: devtool,
		assets:  make(map[string]*Asset),
		removed: make(map[string]bool),
	}
}

// Devtool 返回宿主构建的 source map 配置
func (c *Compilation) Devtool() Devtool {
	return c.devtool
}

// Emit 添加新产物，同名产物已存在时返回 ErrDuplicateAsset
func (c *Compilation) Emit(a *Asset) error {
	if a == nil || a.Name == "" {
		return fmt.Errorf("asset name is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.assets[a.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateAsset, a.Name)
	}
	if a.Info.ContentHash == "" {
		a.Info.ContentHash = ContentHash(a.Source)
	}

	c.order = append(c.order, a.Name)
	c.assets[a.Name] = a
	delete(c.removed, a.Name)
	return nil
}

// Put 添加或替换产物，替换时保持原有顺序
func (c *Compilation) Put(a *Asset) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.assets[a.Name]; !exists {
		c.order = append(c.order, a.Name)
	}
	if a.Info.ContentHash == "" {
		a.Info.ContentHash = ContentHash(a.Source)
	}
	c.assets[a.Name] = a
	delete(c.removed, a.Name)
}

// Remove 删除产物，名称记入 Removed
func (c *Compilation) Remove(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.assets[name]; !exists {
		return fmt.Errorf("%w: %s", ErrAssetNotFound, name)
	}

	delete(c.assets, name)
	c.removed[name] = true
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// Get 按名称获取产物
func (c *Compilation) Get(name string) (*Asset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	a, ok := c.assets[name]
	return a, ok
}

// Names 返回所有产物名称（输出顺序的副本）
func (c *Compilation) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return append([]string(nil), c.order...)
}

// Assets 返回所有产物（输出顺序）
func (c *Compilation) Assets() []*Asset {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Asset, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.assets[name])
	}
	return out
}

// Removed 返回本次构建中被删除且未重新加入的产物名称（字典序）
func (c *Compilation) Removed() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.removed))
	for name := range c.removed {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Len 产物数量
func (c *Compilation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.order)
}

// Snapshot 深拷贝当前全部产物（保持顺序）
func (c *Compilation) Snapshot() []*Asset {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Asset, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.assets[name].Clone())
	}
	return out
}

// Restore 以快照整体替换产物集合，快照之后新增的产物被丢弃
func (c *Compilation) Restore(snapshot []*Asset) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order = make([]string, 0, len(snapshot))
	c.assets = make(map[string]*Asset, len(snapshot))
	for _, a := range snapshot {
		c.order = append(c.order, a.Name)
		c.assets[a.Name] = a
		delete(c.removed, a.Name)
	}
}
