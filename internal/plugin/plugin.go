/**
 * internal/plugin/plugin.go
 * 压缩插件主流程
 *
 * 功能：
 * - 每轮构建一次：枚举产物 -> 过滤 -> 并发压缩 -> 逐个重写 -> 汇总统计
 * - 压缩错误在全部调用结束后统一检查，任何产物被重写前即失败
 * - 构建取消时放弃进行中的调用，不做任何重写
 * - 同一插件实例不允许并发执行两轮
 *
 * 依赖：
 * - golang.org/x/sync/errgroup (fan-out / fan-in)
 * - internal/filter, internal/minify, internal/rewrite
 */

package plugin

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"chunk-minifier/internal/asset"
	"chunk-minifier/internal/filter"
	"chunk-minifier/internal/metrics"
	"chunk-minifier/internal/minify"
	"chunk-minifier/internal/rewrite"
	"chunk-minifier/internal/sourcemap"
	"chunk-minifier/internal/utils"

	"golang.org/x/sync/errgroup"
)

// ====================  错误定义 ====================

var (
	// ErrReentrant 上一轮尚未结束
	ErrReentrant = errors.New("PLUGIN_ALREADY_RUNNING")

	// ErrAborted 构建被取消
	ErrAborted = errors.New("PLUGIN_ABORTED")
)

// ====================  数据结构 ====================

// Plugin 压缩插件
type Plugin struct {
	opts    Options
	filter  *filter.Filter
	minify  minify.Options // 不含 map 设置，每轮按 devtool 补全
	scripts minify.Minifier
	markup  minify.Minifier

	concurrency int
	policy      FailurePolicy
	metrics     *metrics.Collector

	running atomic.Bool
	mu      sync.Mutex
	phase   Phase
}

// candidate 通过过滤、等待压缩的产物
type candidate struct {
	asset *asset.Asset
	kind  minify.Kind
	input []byte
}

// outcome 单个压缩调用的结果
type outcome struct {
	res      *minify.Result
	err      error
	duration time.Duration
}

// ====================  构造函数 ====================

// New 创建插件
// include / exclude 无效时返回 *filter.ConfigError，透传选项无效时返回 minify.ErrInvalidOption
func New(opts Options, options ...Option) (*Plugin, error) {
	f, err := filter.New(opts.Include, opts.Exclude)
	if err != nil {
		return nil, err
	}

	whitespace, identifiers, syntax := opts.minifyFlags()
	mopts := minify.Options{
		MinifyWhitespace:  whitespace,
		MinifyIdentifiers: identifiers,
		MinifySyntax:      syntax,
		Target:            opts.Target,
		Charset:           opts.Charset,
		LegalComments:     opts.LegalComments,
		KeepNames:         opts.KeepNames,
		Drop:              opts.Drop,
		Pure:              opts.Pure,
	}
	if err := mopts.Validate(); err != nil {
		return nil, err
	}

	p := &Plugin{
		opts:        opts,
		filter:      f,
		minify:      mopts,
		scripts:     minify.NewESBuild(),
		markup:      minify.NewMarkup(),
		concurrency: runtime.GOMAXPROCS(0),
	}
	for _, o := range options {
		o(p)
	}

	return p, nil
}

// ====================  主流程 ====================

// Run 对构建会话执行一轮压缩
//
// 参数：
//   - ctx: 构建上下文，取消后返回 ErrAborted 且不重写任何产物
//   - c: 构建会话
//
// 返回：
//   - *Stats: 统计（按枚举顺序）
//   - error: *minify.Error、ErrAborted、ErrReentrant 或重写错误
func (p *Plugin) Run(ctx context.Context, c *asset.Compilation) (*Stats, error) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, ErrReentrant
	}
	defer p.running.Store(false)

	start := time.Now()
	stats, err := p.run(ctx, c)
	if err != nil {
		_ = p.transition(PhaseFailed)
	}
	p.metrics.RecordRun(time.Since(start), err)
	if stats != nil {
		stats.Duration = time.Since(start)
	}
	return stats, err
}

func (p *Plugin) run(ctx context.Context, c *asset.Compilation) (*Stats, error) {
	if err := p.transition(PhaseEnumerating); err != nil {
		return nil, err
	}
	all := c.Assets()

	if err := p.transition(PhaseFiltering); err != nil {
		return nil, err
	}
	stats := &Stats{}
	candidates := p.selectAssets(all, stats)

	devtool := c.Devtool()
	mode := p.mapMode(devtool)
	mopts := p.minify
	mopts.Sourcemap = mode != asset.MapNone
	mopts.SourcesContent = devtool.SourcesContent

	if err := p.transition(PhaseMinifying); err != nil {
		return nil, err
	}
	results := p.minifyAll(ctx, candidates, mopts)

	if err := ctx.Err(); err != nil {
		utils.LogPrintf("[PLUGIN] WARN: Build aborted during minification: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrAborted, err)
	}
	if failed := firstError(candidates, results); failed != nil {
		p.metrics.RecordAsset(failed.kind.String(), metrics.OutcomeFailed, len(failed.input), 0, 0)
		utils.LogPrintf("[PLUGIN] ERROR: %v", failed.err)
		return nil, failed.err
	}

	if err := p.transition(PhaseRewriting); err != nil {
		return nil, err
	}

	var snapshot []*asset.Asset
	if p.policy == FailureRollback {
		snapshot = c.Snapshot()
	}

	rewritten := make(map[string]AssetStat, len(candidates))
	for i, cand := range candidates {
		a := cand.asset
		res := results[i].res
		before := a.Size()

		for _, w := range res.Warnings {
			utils.LogPrintf("[PLUGIN] WARN: %s: %s %s", a.Name, w.Text, w.Location)
		}

		if err := rewrite.Apply(c, a, res, mode); err != nil {
			if snapshot != nil {
				c.Restore(snapshot)
				utils.LogPrintf("[PLUGIN] WARN: Rewrite of %s failed, restored %d assets", a.Name, len(snapshot))
			}
			return nil, fmt.Errorf("rewrite %s: %w", a.Name, err)
		}

		rewritten[a.Name] = AssetStat{
			Name:   a.Name,
			Before: before,
			After:  a.Size(),
			Labels: append([]string(nil), a.Info.Labels...),
		}
		p.metrics.RecordAsset(cand.kind.String(), metrics.OutcomeMinified, before, a.Size(), results[i].duration)
	}

	// 统计按原始枚举顺序
	for _, a := range all {
		st, ok := rewritten[a.Name]
		if !ok {
			continue
		}
		stats.Assets = append(stats.Assets, st)
		stats.Minified++
		stats.BytesBefore += int64(st.Before)
		stats.BytesAfter += int64(st.After)
	}
	orderStats(all, stats)

	if err := p.transition(PhaseDone); err != nil {
		return nil, err
	}

	utils.LogPrintf("[PLUGIN] Minified %d/%d assets (%d skipped), %s -> %s",
		stats.Minified, stats.Considered, stats.Skipped,
		utils.FormatBytes(stats.BytesBefore), utils.FormatBytes(stats.BytesAfter))

	return stats, nil
}

// ====================  阶段实现 ====================

// selectAssets 类型检查 + include/exclude 过滤，已压缩的产物记为跳过
func (p *Plugin) selectAssets(all []*asset.Asset, stats *Stats) []candidate {
	var out []candidate

	for _, a := range all {
		if a.Info.Development {
			continue
		}
		kind := minify.KindOf(a.Name)
		if !p.handles(kind) || !p.filter.ShouldProcess(a.Name) {
			continue
		}

		stats.Considered++
		if a.Info.Minimized {
			stats.Skipped++
			stats.Assets = append(stats.Assets, AssetStat{
				Name:    a.Name,
				Before:  a.Size(),
				After:   a.Size(),
				Labels:  append([]string(nil), a.Info.Labels...),
				Skipped: true,
			})
			p.metrics.RecordAsset(kind.String(), metrics.OutcomeSkipped, a.Size(), a.Size(), 0)
			continue
		}

		out = append(out, candidate{
			asset: a,
			kind:  kind,
			input: sourcemap.StripURL(a.Source),
		})
	}

	utils.LogDebugf("[PLUGIN] %d of %d assets selected for minification", len(out), len(all))
	return out
}

// handles 插件是否处理该类型的产物
func (p *Plugin) handles(kind minify.Kind) bool {
	switch kind {
	case minify.KindScript:
		return true
	case minify.KindStyle:
		return p.opts.CSS
	case minify.KindMarkup:
		return p.opts.Markup
	default:
		return false
	}
}

// mapMode 由 Sourcemap 选项与宿主 devtool 确定 map 输出方式
func (p *Plugin) mapMode(d asset.Devtool) asset.MapMode {
	if p.opts.Sourcemap != nil {
		if !*p.opts.Sourcemap {
			return asset.MapNone
		}
		if d.Mode == asset.MapNone {
			return asset.MapExternal
		}
	}
	return d.Mode
}

// minifyAll 并发压缩，等待全部调用结束
// 单个调用失败不取消其余调用，保证报告的失败产物与调度顺序无关；
// 只有构建 ctx 取消时放弃剩余调用。结果按下标写入，不需要加锁
func (p *Plugin) minifyAll(ctx context.Context, candidates []candidate, opts minify.Options) []outcome {
	results := make([]outcome, len(candidates))

	var g errgroup.Group
	g.SetLimit(p.concurrency)

	for i := range candidates {
		cand := candidates[i]
		m := p.scripts
		if cand.kind == minify.KindMarkup {
			m = p.markup
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].err = err
				return err
			}

			started := time.Now()
			res, err := m.Minify(ctx, cand.asset.Name, cand.input, opts)
			results[i] = outcome{res: res, err: err, duration: time.Since(started)}
			if err == nil && res == nil {
				results[i].err = fmt.Errorf("%w: minifier returned no result for %s", minify.ErrMinify, cand.asset.Name)
			}
			return results[i].err
		})
	}

	_ = g.Wait()
	return results
}

type failedAsset struct {
	candidate
	err error
}

// firstError 按枚举顺序返回第一个非取消类错误
func firstError(candidates []candidate, results []outcome) *failedAsset {
	var cancelled *failedAsset
	for i, r := range results {
		if r.err == nil {
			continue
		}
		if errors.Is(r.err, context.Canceled) || errors.Is(r.err, context.DeadlineExceeded) {
			if cancelled == nil {
				cancelled = &failedAsset{candidate: candidates[i], err: r.err}
			}
			continue
		}
		return &failedAsset{candidate: candidates[i], err: r.err}
	}
	return cancelled
}

// orderStats 按枚举顺序重排统计（跳过的产物在过滤阶段已加入）
func orderStats(all []*asset.Asset, stats *Stats) {
	byName := make(map[string]AssetStat, len(stats.Assets))
	for _, st := range stats.Assets {
		byName[st.Name] = st
	}

	ordered := make([]AssetStat, 0, len(byName))
	for _, a := range all {
		if st, ok := byName[a.Name]; ok {
			ordered = append(ordered, st)
		}
	}
	stats.Assets = ordered
}
