/**
 * internal/config/config.go
 * 配置加载模块
 *
 * 功能：
 * - 从环境变量加载压缩、输出、上传配置
 * - 支持 .env 文件
 * - 提供默认值和类型转换
 * - 配置验证（无效值报错，可选项缺失只警告）
 *
 * 依赖：
 * - github.com/joho/godotenv (.env 文件加载)
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"chunk-minifier/internal/output"
	"chunk-minifier/internal/plugin"
	"chunk-minifier/internal/utils"

	"github.com/joho/godotenv"
)

// ====================  错误定义 ====================

var (
	// ErrInvalidValue 配置值无效
	ErrInvalidValue = errors.New("INVALID_CONFIG_VALUE")

	// ErrEnvFileNotFound 显式指定的 .env 文件不存在
	ErrEnvFileNotFound = errors.New("ENV_FILE_NOT_FOUND")
)

// ====================  配置结构 ====================

// Config 运行配置
type Config struct {
	// 产物选择
	Include []string // MINIFY_INCLUDE，逗号分隔的正则
	Exclude []string // MINIFY_EXCLUDE
	CSS     bool     // MINIFY_CSS
	Markup  bool     // MINIFY_MARKUP

	// Source map
	Devtool   string // MINIFY_DEVTOOL，webpack 风格
	Sourcemap *bool  // MINIFY_SOURCEMAP，未设置时继承 devtool

	// 压缩器
	Target      string // MINIFY_TARGET，默认 es2015
	Concurrency int    // MINIFY_CONCURRENCY，0 表示 GOMAXPROCS
	CacheSize   int    // MINIFY_CACHE_SIZE，结果缓存条目数

	FailurePolicy plugin.FailurePolicy // MINIFY_FAILURE_POLICY: keep / rollback

	// 后处理
	Brotli   bool   // MINIFY_BROTLI
	Manifest bool   // MINIFY_MANIFEST
	LogLevel string // MINIFY_LOG_LEVEL

	// R2 / S3 上传
	R2Endpoint  string
	R2AccessKey string
	R2SecretKey string
	R2Bucket    string
	R2Prefix    string
	R2UploadRPS float64
}

// ====================  配置加载 ====================

// Load 加载配置
//
// 参数：
//   - envFile: .env 路径；为空时尝试当前目录的 .env，不存在不报错
//
// 返回：
//   - *Config: 配置实例
//   - error: ErrEnvFileNotFound（显式指定的文件不存在）或 ErrInvalidValue
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrEnvFileNotFound, envFile, err)
		}
		utils.LogPrintf("[CONFIG] Loaded .env from %s", envFile)
	} else if err := godotenv.Load(); err == nil {
		utils.LogPrintf("[CONFIG] Loaded .env from current directory")
	}

	c := &Config{}
	var errs []error

	c.Include = getEnvList("MINIFY_INCLUDE")
	c.Exclude = getEnvList("MINIFY_EXCLUDE")
	c.Devtool = getEnv("MINIFY_DEVTOOL", "")
	c.Target = getEnv("MINIFY_TARGET", "")
	c.LogLevel = getEnv("MINIFY_LOG_LEVEL", "info")
	c.R2Endpoint = getEnv("R2_ENDPOINT", "")
	c.R2AccessKey = getEnvWithFallback("R2_ACCESS_KEY", "AWS_ACCESS_KEY_ID", "")
	c.R2SecretKey = getEnvWithFallback("R2_SECRET_KEY", "AWS_SECRET_ACCESS_KEY", "")
	c.R2Bucket = getEnv("R2_BUCKET", "")
	c.R2Prefix = getEnv("R2_PREFIX", "")

	var err error
	collect := func(e error) {
		if e != nil {
			errs = append(errs, e)
		}
	}

	c.CSS, err = getEnvBool("MINIFY_CSS", false)
	collect(err)
	c.Markup, err = getEnvBool("MINIFY_MARKUP", false)
	collect(err)
	c.Brotli, err = getEnvBool("MINIFY_BROTLI", false)
	collect(err)
	c.Manifest, err = getEnvBool("MINIFY_MANIFEST", false)
	collect(err)
	c.Sourcemap, err = getEnvOptionalBool("MINIFY_SOURCEMAP")
	collect(err)

	concurrency, err := getEnvInt("MINIFY_CONCURRENCY", 0)
	if err != nil {
		utils.LogPrintf("[CONFIG] WARN: Invalid MINIFY_CONCURRENCY, using default: %v", err)
	}
	c.Concurrency = concurrency

	cacheSize, err := getEnvInt("MINIFY_CACHE_SIZE", 256)
	if err != nil {
		utils.LogPrintf("[CONFIG] WARN: Invalid MINIFY_CACHE_SIZE, using default (256): %v", err)
	}
	c.CacheSize = cacheSize

	rps, err := getEnvFloat("R2_UPLOAD_RPS", 10)
	if err != nil {
		utils.LogPrintf("[CONFIG] WARN: Invalid R2_UPLOAD_RPS, using default (10): %v", err)
	}
	c.R2UploadRPS = rps

	policy, err := plugin.ParseFailurePolicy(getEnv("MINIFY_FAILURE_POLICY", ""))
	if err != nil {
		collect(fmt.Errorf("%w: MINIFY_FAILURE_POLICY: %v", ErrInvalidValue, err))
	}
	c.FailurePolicy = policy

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	validateConfig(c)

	utils.LogPrintf("[CONFIG] Configuration loaded: devtool=%q, target=%q, failure_policy=%s",
		c.Devtool, c.Target, c.FailurePolicy)
	return c, nil
}

// validateConfig 检查可选项组合，只记录警告
func validateConfig(c *Config) {
	var warnings []string

	if c.R2Bucket != "" && !c.IsUploadConfigured() {
		warnings = append(warnings, "R2_BUCKET is set but R2 credentials are incomplete (upload will be disabled)")
	}
	if c.Sourcemap != nil && *c.Sourcemap && c.Devtool == "" {
		warnings = append(warnings, "MINIFY_SOURCEMAP=true without MINIFY_DEVTOOL, external maps will be emitted")
	}

	for _, w := range warnings {
		utils.LogPrintf("[CONFIG] WARN: %s", w)
	}
}

// ====================  配置转换 ====================

// IsUploadConfigured 上传配置是否完整
func (c *Config) IsUploadConfigured() bool {
	return c.R2Endpoint != "" && c.R2AccessKey != "" && c.R2SecretKey != "" && c.R2Bucket != ""
}

// PluginOptions 转换为插件参数
func (c *Config) PluginOptions() plugin.Options {
	return plugin.Options{
		Include:   c.Include,
		Exclude:   c.Exclude,
		Sourcemap: c.Sourcemap,
		Target:    c.Target,
		CSS:       c.CSS,
		Markup:    c.Markup,
	}
}

// UploadConfig 转换为上传参数
func (c *Config) UploadConfig() output.UploadConfig {
	return output.UploadConfig{
		Endpoint:  c.R2Endpoint,
		AccessKey: c.R2AccessKey,
		SecretKey: c.R2SecretKey,
		Bucket:    c.R2Bucket,
		Prefix:    c.R2Prefix,
		RPS:       c.R2UploadRPS,
	}
}

// ====================  辅助函数 ====================

// getEnv 获取环境变量，支持默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt 获取正整数环境变量
// 值存在但无法解析或不为正数时返回默认值和错误
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%w: %s=%s is not a valid integer", ErrInvalidValue, key, value)
	}
	if intVal <= 0 {
		return defaultValue, fmt.Errorf("%w: %s=%d must be positive", ErrInvalidValue, key, intVal)
	}

	return intVal, nil
}

// getEnvFloat 获取正浮点数环境变量
func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f <= 0 {
		return defaultValue, fmt.Errorf("%w: %s=%s is not a positive number", ErrInvalidValue, key, value)
	}
	return f, nil
}

// getEnvBool 获取布尔环境变量（1/0、true/false、yes/no）
func getEnvBool(key string, defaultValue bool) (bool, error) {
	b, err := getEnvOptionalBool(key)
	if err != nil || b == nil {
		return defaultValue, err
	}
	return *b, nil
}

// getEnvOptionalBool 未设置时返回 nil
func getEnvOptionalBool(key string) (*bool, error) {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))

	var b bool
	switch value {
	case "":
		return nil, nil
	case "1", "true", "yes", "on":
		b = true
	case "0", "false", "no", "off":
		b = false
	default:
		return nil, fmt.Errorf("%w: %s=%s is not a valid boolean", ErrInvalidValue, key, value)
	}
	return &b, nil
}

// getEnvList 获取逗号分隔的列表，忽略空项
func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvWithFallback 获取环境变量，支持备用键名
func getEnvWithFallback(primaryKey, fallbackKey, defaultValue string) string {
	if value := os.Getenv(primaryKey); value != "" {
		return value
	}
	if value := os.Getenv(fallbackKey); value != "" {
		utils.LogPrintf("[CONFIG] Using fallback key %s instead of %s", fallbackKey, primaryKey)
		return value
	}
	return defaultValue
}
