/**
 * internal/output/brotli.go
 * Brotli 预压缩
 *
 * 功能：
 * - 为文本类产物生成 .br 副本，原文件保留
 * - 并行压缩（信号量限制并发）
 */

package output

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"chunk-minifier/internal/utils"

	"github.com/andybalholm/brotli"
)

// Brotli 压缩级别
const brotliLevel = brotli.BestCompression

// compressible 需要预压缩的扩展名
var compressible = map[string]bool{
	".js":   true,
	".mjs":  true,
	".cjs":  true,
	".css":  true,
	".html": true,
	".htm":  true,
	".json": true,
	".svg":  true,
}

// CompressStats 预压缩统计
type CompressStats struct {
	Files      int
	Original   int64
	Compressed int64
}

// Precompress 为 dir 中的文本文件生成 .br 副本
// concurrency <= 0 时使用 4
func Precompress(dir string, concurrency int) (*CompressStats, error) {
	if concurrency <= 0 {
		concurrency = 4
	}

	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			utils.LogPrintf("[OUTPUT] WARN: Walk error for %s: %v", p, err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if compressible[strings.ToLower(filepath.Ext(p))] {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	stats := &CompressStats{}
	if len(files) == 0 {
		utils.LogPrintf("[OUTPUT] WARN: No files to compress")
		return stats, nil
	}

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		errChan   = make(chan error, len(files))
		semaphore = make(chan struct{}, concurrency)
	)

	for _, p := range files {
		wg.Add(1)
		go func(filePath string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			original, compressed, err := brotliFile(filePath)
			if err != nil {
				errChan <- fmt.Errorf("%s: %w", filePath, err)
				return
			}
			if original == 0 {
				return
			}

			mu.Lock()
			stats.Files++
			stats.Original += original
			stats.Compressed += compressed
			mu.Unlock()
		}(p)
	}

	wg.Wait()
	close(errChan)

	var errs []error
	for err := range errChan {
		errs = append(errs, err)
		utils.LogPrintf("[OUTPUT] WARN: Brotli compression failed: %v", err)
	}

	var ratio float64
	if stats.Original > 0 {
		ratio = float64(stats.Compressed) / float64(stats.Original) * 100
	}
	utils.LogPrintf("[OUTPUT] Brotli: compressed %d files, %s -> %s (%.1f%%)",
		stats.Files, utils.FormatBytes(stats.Original), utils.FormatBytes(stats.Compressed), ratio)

	if len(errs) > 0 {
		return stats, fmt.Errorf("%d files failed to compress", len(errs))
	}
	return stats, nil
}

// brotliFile 压缩单个文件为 src.br
// 返回原始大小和压缩后大小，空文件跳过
func brotliFile(src string) (int64, int64, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read: %w", err)
	}
	if len(data) == 0 {
		return 0, 0, nil
	}

	brPath := src + ".br"
	brFile, err := os.Create(brPath)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create .br file: %w", err)
	}

	brWriter := brotli.NewWriterLevel(brFile, brotliLevel)
	if _, err := brWriter.Write(data); err != nil {
		_ = brFile.Close()
		_ = os.Remove(brPath)
		return 0, 0, fmt.Errorf("failed to write compressed data: %w", err)
	}
	if err := brWriter.Close(); err != nil {
		_ = brFile.Close()
		_ = os.Remove(brPath)
		return 0, 0, fmt.Errorf("failed to close brotli writer: %w", err)
	}
	if err := brFile.Close(); err != nil {
		_ = os.Remove(brPath)
		return 0, 0, fmt.Errorf("failed to close file: %w", err)
	}

	info, err := os.Stat(brPath)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to stat .br file: %w", err)
	}

	return int64(len(data)), info.Size(), nil
}
