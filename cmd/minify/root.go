package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"chunk-minifier/internal/asset"
	"chunk-minifier/internal/config"
	"chunk-minifier/internal/metrics"
	"chunk-minifier/internal/minify"
	"chunk-minifier/internal/output"
	"chunk-minifier/internal/plugin"
	"chunk-minifier/internal/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// cliFlags 命令行参数，显式设置时覆盖环境变量配置
type cliFlags struct {
	envFile     string
	outDir      string
	include     []string
	exclude     []string
	devtool     string
	sourcemap   bool
	target      string
	charset     string
	legal       string
	drop        []string
	keepNames   bool
	whitespace  bool
	identifiers bool
	syntax      bool
	css         bool
	markup      bool
	concurrency int
	cacheSize   int
	policy      string
	brotli      bool
	manifest    bool
	upload      bool
	metricsFile string
	verbose     bool
}

func newRootCmd() *cobra.Command {
	f := &cliFlags{}

	cmd := &cobra.Command{
		Use:   "minify <dir>",
		Short: "Minify build output and keep source maps consistent",
		Long: `minify loads a build output directory, minifies JavaScript assets with esbuild
(optionally CSS, HTML, SVG and JSON), composes any existing source maps with the
minifier's maps and writes the result back.

Configuration is read from the environment (and .env); flags override it.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f, args[0])
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.envFile, "env-file", "", "load configuration from this .env file")
	flags.StringVarP(&f.outDir, "out", "o", "", "output directory (default: rewrite in place)")
	flags.StringSliceVar(&f.include, "include", nil, "only process assets matching these regexps")
	flags.StringSliceVar(&f.exclude, "exclude", nil, "skip assets matching these regexps")
	flags.StringVar(&f.devtool, "devtool", "", "source map style of the input build (none, source-map, inline-source-map, hidden-source-map, ...)")
	flags.BoolVar(&f.sourcemap, "sourcemap", false, "force source maps on or off (default: follow --devtool)")
	flags.StringVar(&f.target, "target", "", "language target passed to the minifier (default es2015)")
	flags.StringVar(&f.charset, "charset", "", "output charset: ascii or utf8")
	flags.StringVar(&f.legal, "legal-comments", "", "legal comments: none, inline or eof")
	flags.StringSliceVar(&f.drop, "drop", nil, "drop console and/or debugger statements")
	flags.BoolVar(&f.keepNames, "keep-names", false, "preserve function and class names")
	flags.BoolVar(&f.whitespace, "whitespace", false, "minify whitespace")
	flags.BoolVar(&f.identifiers, "identifiers", false, "minify identifiers")
	flags.BoolVar(&f.syntax, "syntax", false, "minify syntax")
	flags.BoolVar(&f.css, "css", false, "also minify .css assets")
	flags.BoolVar(&f.markup, "markup", false, "also minify .html, .svg and .json assets")
	flags.IntVar(&f.concurrency, "concurrency", 0, "parallel minifier calls (default: GOMAXPROCS)")
	flags.IntVar(&f.cacheSize, "cache-size", 0, "result cache entries, 0 disables the cache")
	flags.StringVar(&f.policy, "failure-policy", "", "on rewrite failure: keep or rollback")
	flags.BoolVar(&f.brotli, "brotli", false, "write .br precompressed copies")
	flags.BoolVar(&f.manifest, "manifest", false, "write hashed copies and manifest.json")
	flags.BoolVar(&f.upload, "upload", false, "upload the output directory to the configured R2 bucket")
	flags.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this file")
	flags.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging")

	return cmd
}

// applyFlags 将显式设置的参数覆盖到配置
func applyFlags(cmd *cobra.Command, f *cliFlags, cfg *config.Config) error {
	changed := cmd.Flags().Changed

	if changed("include") {
		cfg.Include = f.include
	}
	if changed("exclude") {
		cfg.Exclude = f.exclude
	}
	if changed("devtool") {
		cfg.Devtool = f.devtool
	}
	if changed("sourcemap") {
		v := f.sourcemap
		cfg.Sourcemap = &v
	}
	if changed("target") {
		cfg.Target = f.target
	}
	if changed("css") {
		cfg.CSS = f.css
	}
	if changed("markup") {
		cfg.Markup = f.markup
	}
	if changed("concurrency") {
		cfg.Concurrency = f.concurrency
	}
	if changed("cache-size") {
		cfg.CacheSize = f.cacheSize
	}
	if changed("failure-policy") {
		policy, err := plugin.ParseFailurePolicy(f.policy)
		if err != nil {
			return err
		}
		cfg.FailurePolicy = policy
	}
	if changed("brotli") {
		cfg.Brotli = f.brotli
	}
	if changed("manifest") {
		cfg.Manifest = f.manifest
	}
	if f.verbose {
		cfg.LogLevel = "debug"
	}
	return nil
}

// run 执行压缩流程
func run(cmd *cobra.Command, f *cliFlags, inDir string) error {
	startTime := time.Now()

	cfg, err := config.Load(f.envFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := applyFlags(cmd, f, cfg); err != nil {
		return err
	}
	if err := utils.SetLogLevel(cfg.LogLevel); err != nil {
		return err
	}

	outDir := f.outDir
	if outDir == "" {
		outDir = inDir
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. 加载产物
	c, err := output.LoadDir(inDir, asset.ParseDevtool(cfg.Devtool))
	if err != nil {
		return err
	}

	// 2. 压缩
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	var scripts minify.Minifier = minify.NewESBuild()
	var cache *minify.Cached
	if cfg.CacheSize > 0 {
		if cache, err = minify.NewCached(scripts, cfg.CacheSize); err != nil {
			return err
		}
		scripts = cache
	}

	opts := cfg.PluginOptions()
	opts.MinifyWhitespace = f.whitespace
	opts.MinifyIdentifiers = f.identifiers
	opts.MinifySyntax = f.syntax
	opts.Charset = f.charset
	opts.LegalComments = f.legal
	opts.Drop = f.drop
	opts.KeepNames = f.keepNames

	p, err := plugin.New(opts,
		plugin.WithMinifier(scripts),
		plugin.WithConcurrency(cfg.Concurrency),
		plugin.WithFailurePolicy(cfg.FailurePolicy),
		plugin.WithMetrics(collector),
	)
	if err != nil {
		return err
	}

	stats, err := p.Run(ctx, c)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), stats.String())

	if cache != nil {
		cs := cache.Stats()
		utils.LogDebugf("[CLI] Cache: size=%d, hits=%d, misses=%d", cs.Size, cs.Hits, cs.Misses)
	}

	// 3. 写出
	if _, err := output.WriteDir(c, outDir); err != nil {
		return err
	}

	// 4. 后处理
	if cfg.Manifest {
		if _, err := output.WriteManifest(c, outDir); err != nil {
			return err
		}
	}
	if cfg.Brotli {
		if _, err := output.Precompress(outDir, cfg.Concurrency); err != nil {
			utils.LogPrintf("[CLI] WARN: Brotli compression had errors: %v", err)
		}
	}
	if f.upload {
		u, err := output.NewUploader(ctx, cfg.UploadConfig(), collector)
		if err != nil {
			return err
		}
		if _, err := u.UploadDir(ctx, outDir); err != nil {
			return err
		}
	}

	if f.metricsFile != "" {
		if err := os.MkdirAll(filepath.Dir(f.metricsFile), 0755); err != nil {
			return err
		}
		if err := prometheus.WriteToTextfile(f.metricsFile, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	utils.LogPrintf("[CLI] Completed in %dms", time.Since(startTime).Milliseconds())
	return nil
}
