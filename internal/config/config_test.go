package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chunk-minifier/internal/plugin"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Nil(t, c.Include)
	assert.Nil(t, c.Sourcemap)
	assert.Equal(t, 256, c.CacheSize)
	assert.Equal(t, 0, c.Concurrency)
	assert.Equal(t, plugin.FailureKeep, c.FailurePolicy)
	assert.Equal(t, 10.0, c.R2UploadRPS)
	assert.False(t, c.IsUploadConfigured())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MINIFY_INCLUDE", `\.js$, ,vendor`)
	t.Setenv("MINIFY_EXCLUDE", "legacy")
	t.Setenv("MINIFY_DEVTOOL", "source-map")
	t.Setenv("MINIFY_SOURCEMAP", "false")
	t.Setenv("MINIFY_CSS", "yes")
	t.Setenv("MINIFY_CONCURRENCY", "3")
	t.Setenv("MINIFY_FAILURE_POLICY", "rollback")
	t.Setenv("R2_ENDPOINT", "https://example.r2.cloudflarestorage.com")
	t.Setenv("R2_BUCKET", "assets")
	t.Setenv("R2_ACCESS_KEY", "")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIAEXAMPLE")
	t.Setenv("R2_SECRET_KEY", "secret")

	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []string{`\.js$`, "vendor"}, c.Include)
	require.NotNil(t, c.Sourcemap)
	assert.False(t, *c.Sourcemap)
	assert.True(t, c.CSS)
	assert.Equal(t, 3, c.Concurrency)
	assert.Equal(t, plugin.FailureRollback, c.FailurePolicy)
	assert.True(t, c.IsUploadConfigured())
	assert.Equal(t, "AKIAEXAMPLE", c.UploadConfig().AccessKey)

	opts := c.PluginOptions()
	assert.Equal(t, []string{"legacy"}, opts.Exclude)
	assert.True(t, opts.CSS)
	assert.Equal(t, c.Sourcemap, opts.Sourcemap)
}

func TestLoadInvalidValues(t *testing.T) {
	t.Run("bad boolean", func(t *testing.T) {
		t.Setenv("MINIFY_BROTLI", "maybe")
		_, err := Load("")
		assert.ErrorIs(t, err, ErrInvalidValue)
	})

	t.Run("bad failure policy", func(t *testing.T) {
		t.Setenv("MINIFY_FAILURE_POLICY", "retry")
		_, err := Load("")
		assert.ErrorIs(t, err, ErrInvalidValue)
	})

	t.Run("bad integer falls back to default", func(t *testing.T) {
		t.Setenv("MINIFY_CACHE_SIZE", "-1")
		c, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, 256, c.CacheSize)
	})
}

func TestLoadEnvFile(t *testing.T) {
	t.Setenv("MINIFY_TARGET", "")
	os.Unsetenv("MINIFY_TARGET")

	path := filepath.Join(t.TempDir(), "minify.env")
	require.NoError(t, os.WriteFile(path, []byte("MINIFY_TARGET=es2020\n"), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "es2020", c.Target)

	_, err = Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorIs(t, err, ErrEnvFileNotFound)
}

func TestGetEnvOptionalBool(t *testing.T) {
	tests := []struct {
		value   string
		want    *bool
		wantErr bool
	}{
		{"", nil, false},
		{"TRUE", boolPtr(true), false},
		{"0", boolPtr(false), false},
		{"off", boolPtr(false), false},
		{"sometimes", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("TEST_OPTIONAL_BOOL", tt.value)
			got, err := getEnvOptionalBool("TEST_OPTIONAL_BOOL")
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidValue)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func boolPtr(b bool) *bool { return &b }
