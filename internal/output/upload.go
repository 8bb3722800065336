/**
 * internal/output/upload.go
 * 上传产物到 S3 兼容存储（Cloudflare R2）
 *
 * 功能：
 * - 遍历输出目录，逐个 PutObject
 * - .br 文件设置 Content-Encoding，Content-Type 取原始扩展名
 * - 令牌桶限速，errgroup 限制并发
 *
 * 依赖：
 * - github.com/aws/aws-sdk-go-v2 (s3)
 * - golang.org/x/time/rate
 */

package output

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"

	"chunk-minifier/internal/metrics"
	"chunk-minifier/internal/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ErrUploadNotConfigured 存储配置不完整
var ErrUploadNotConfigured = errors.New("UPLOAD_NOT_CONFIGURED")

// uploadConcurrency 同时进行的上传数
const uploadConcurrency = 4

// putObjectAPI Uploader 使用的 S3 接口子集
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// UploadConfig 存储配置
type UploadConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string  // 对象键前缀，如 "static/v2"
	RPS       float64 // 每秒请求数上限，<= 0 不限速
}

// Uploader 产物上传器
type Uploader struct {
	client  putObjectAPI
	bucket  string
	prefix  string
	limiter *rate.Limiter
	metrics *metrics.Collector
}

// NewUploader 创建上传器
func NewUploader(ctx context.Context, cfg UploadConfig, collector *metrics.Collector) (*Uploader, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		return nil, ErrUploadNotConfigured
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	utils.LogPrintf("[OUTPUT] Uploader initialized: bucket=%s, prefix=%q", cfg.Bucket, cfg.Prefix)
	return newUploader(client, cfg, collector), nil
}

func newUploader(client putObjectAPI, cfg UploadConfig, collector *metrics.Collector) *Uploader {
	limit := rate.Inf
	burst := 1
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
		burst = int(cfg.RPS)
		if burst < 1 {
			burst = 1
		}
	}

	return &Uploader{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  strings.Trim(cfg.Prefix, "/"),
		limiter: rate.NewLimiter(limit, burst),
		metrics: collector,
	}
}

// UploadDir 上传目录下的全部文件
// 返回上传的文件数；任一文件失败时取消其余上传
func (u *Uploader) UploadDir(ctx context.Context, dir string) (int, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to walk %s: %w", dir, err)
	}

	var uploaded int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)

	for _, p := range files {
		g.Go(func() error {
			rel, err := filepath.Rel(dir, p)
			if err != nil {
				return err
			}
			if err := u.uploadFile(gctx, p, filepath.ToSlash(rel)); err != nil {
				return err
			}
			atomic.AddInt64(&uploaded, 1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(uploaded), err
	}

	utils.LogPrintf("[OUTPUT] Uploaded %d files to bucket %s", uploaded, u.bucket)
	return int(uploaded), nil
}

// uploadFile 上传单个文件
func (u *Uploader) uploadFile(ctx context.Context, filePath, name string) error {
	if err := u.limiter.Wait(ctx); err != nil {
		return err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(u.key(name)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType(name)),
	}
	if strings.HasSuffix(name, ".br") {
		input.ContentEncoding = aws.String("br")
	}

	_, err = u.client.PutObject(ctx, input)
	u.metrics.RecordUpload(int64(len(data)), err)
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", name, err)
	}

	utils.LogDebugf("[OUTPUT] Uploaded %s (%s)", name, utils.FormatBytes(int64(len(data))))
	return nil
}

func (u *Uploader) key(name string) string {
	if u.prefix == "" {
		return name
	}
	return u.prefix + "/" + name
}

// contentType 按扩展名推断，.br 取原始扩展名
func contentType(name string) string {
	name = strings.TrimSuffix(name, ".br")
	switch ext := strings.ToLower(path.Ext(name)); ext {
	case ".js", ".mjs", ".cjs":
		return "application/javascript"
	case ".map":
		return "application/json"
	default:
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
		return "application/octet-stream"
	}
}
