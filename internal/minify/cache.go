/**
 * internal/minify/cache.go
 * 压缩结果 LRU 缓存（带 singleflight 合并重复调用）
 *
 * 功能：
 * - 以 (产物名, 代码, 选项) 指纹为键缓存压缩结果，增量重建时跳过未变化的产物
 * - Singleflight：同一指纹的并发调用只执行一次
 * - 命中率统计
 * - 只缓存成功结果，错误不缓存
 *
 * 依赖：
 * - github.com/hashicorp/golang-lru/v2 (LRU 缓存实现)
 * - golang.org/x/sync/singleflight
 * - golang.org/x/crypto/blake2b (指纹)
 */

package minify

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync/atomic"

	"chunk-minifier/internal/utils"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"
)

// ====================  错误定义 ====================

// ErrCacheInitFailed 缓存初始化失败
var ErrCacheInitFailed = errors.New("CACHE_INIT_FAILED")

// ====================  数据结构 ====================

// CacheStats 缓存统计信息
type CacheStats struct {
	Size     int     `json:"size"`     // 当前缓存条目数
	MaxSize  int     `json:"maxSize"`  // 最大缓存容量
	Hits     uint64  `json:"hits"`     // 命中次数
	Misses   uint64  `json:"misses"`   // 未命中次数
	HitRatio float64 `json:"hitRatio"` // 命中率（0-1）
}

// Cached 带缓存的压缩器
type Cached struct {
	next    Minifier
	cache   *lru.Cache[string, *Result]
	maxSize int
	hits    uint64 // 原子操作
	misses  uint64 // 原子操作
	sf      singleflight.Group
}

// ====================  构造函数 ====================

// NewCached 包装压缩器
//
// 参数：
//   - next: 实际执行压缩的压缩器
//   - maxSize: 最大缓存条目数，必须大于 0
func NewCached(next Minifier, maxSize int) (*Cached, error) {
	if next == nil {
		return nil, fmt.Errorf("%w: minifier is nil", ErrCacheInitFailed)
	}
	if maxSize <= 0 {
		return nil, fmt.Errorf("%w: maxSize must be positive, got %d", ErrCacheInitFailed, maxSize)
	}

	cache, err := lru.New[string, *Result](maxSize)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create LRU cache: %v", ErrCacheInitFailed, err)
	}

	utils.LogDebugf("[MINIFY] Result cache initialized: maxSize=%d", maxSize)

	return &Cached{next: next, cache: cache, maxSize: maxSize}, nil
}

// ====================  缓存操作 ====================

// Minify 命中缓存时直接返回，否则调用下层压缩器
func (c *Cached) Minify(ctx context.Context, name string, code []byte, opts Options) (*Result, error) {
	key := cacheKey(name, code, opts)

	if res, ok := c.cache.Get(key); ok {
		atomic.AddUint64(&c.hits, 1)
		return res, nil
	}
	atomic.AddUint64(&c.misses, 1)

	// 共享调用不随发起方取消，各等待方只受自己的 ctx 约束
	flightCtx := context.WithoutCancel(ctx)
	ch := c.sf.DoChan(key, func() (interface{}, error) {
		// 等待期间可能已被其他调用写入
		if res, ok := c.cache.Get(key); ok {
			return res, nil
		}

		res, err := c.next.Minify(flightCtx, name, code, opts)
		if err != nil {
			return nil, err
		}
		c.cache.Add(key, res)
		return res, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		if r.Shared {
			utils.LogDebugf("[MINIFY] Singleflight shared result for %s", name)
		}
		res, ok := r.Val.(*Result)
		if !ok {
			return nil, fmt.Errorf("unexpected cached value for %s", name)
		}
		return res, nil
	}
}

// Stats 返回缓存统计
func (c *Cached) Stats() CacheStats {
	hits := atomic.LoadUint64(&c.hits)
	misses := atomic.LoadUint64(&c.misses)

	var ratio float64
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}

	return CacheStats{
		Size:     c.cache.Len(),
		MaxSize:  c.maxSize,
		Hits:     hits,
		Misses:   misses,
		HitRatio: ratio,
	}
}

// Purge 清空缓存
func (c *Cached) Purge() {
	c.cache.Purge()
}

// cacheKey 计算调用指纹
func cacheKey(name string, code []byte, opts Options) string {
	h, _ := blake2b.New256(nil)
	fmt.Fprintf(h, "%s\x00%+v\x00", name, opts)
	h.Write(code)
	return hex.EncodeToString(h.Sum(nil))
}
