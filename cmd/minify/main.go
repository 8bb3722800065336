/**
 * cmd/minify/main.go
 * 构建产物压缩工具
 *
 * 功能：
 * - 加载构建输出目录（含已有 source map）
 * - 使用 esbuild 压缩 JS（可选 CSS / HTML / SVG / JSON）
 * - 合并 source map，按 devtool 输出内联或外部 map
 * - 可选：资源清单、Brotli 预压缩、上传到 R2
 *
 * 用法：
 *   go run ./cmd/minify dist
 *   go run ./cmd/minify dist --devtool source-map --css --brotli
 *   go run ./cmd/minify dist --out build --upload
 */

package main

import (
	"os"

	"chunk-minifier/internal/utils"
)

func main() {
	defer utils.SyncLogger()

	if err := newRootCmd().Execute(); err != nil {
		utils.LogPrintf("[CLI] ERROR: %v", err)
		utils.SyncLogger()
		os.Exit(1)
	}
}
