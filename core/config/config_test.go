package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "oss-cn-shanghai", cfg.OSS.Region)
	assert.Equal(t, "minio", cfg.OSS.Driver)
	assert.True(t, cfg.OSS.UseSSL)
	assert.Equal(t, 30, cfg.OSS.TimeoutSeconds)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 1, cfg.Sync.Concurrency)
	assert.Equal(t, 1000, cfg.Sync.PageSize)
	assert.Equal(t, int64(31536000), cfg.Cache.MaxAgeSeconds)
	assert.True(t, cfg.Cache.Immutable)
	assert.Empty(t, cfg.Cache.ContentDisposition)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("OSS_ACCESS_KEY_ID", "LTAI-test")
	t.Setenv("OSS_ACCESS_KEY_SECRET", "secret")
	t.Setenv("OSS_BUCKET_NAME", "student-housing")
	t.Setenv("OSS_REGION", "oss-cn-hangzhou")
	t.Setenv("OSS_USE_SSL", "false")
	t.Setenv("SYNC_CONCURRENCY", "8")
	t.Setenv("CACHE_IMMUTABLE", "false")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "LTAI-test", cfg.OSS.AccessKeyID)
	assert.Equal(t, "secret", cfg.OSS.AccessKeySecret)
	assert.Equal(t, "student-housing", cfg.OSS.BucketName)
	assert.Equal(t, "oss-cn-hangzhou", cfg.OSS.Region)
	assert.False(t, cfg.OSS.UseSSL)
	assert.Equal(t, 8, cfg.Sync.Concurrency)
	assert.False(t, cfg.Cache.Immutable)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.NoError(t, cfg.OSS.Validate())
}

func TestLoadConfig_DotEnv(t *testing.T) {
	// Registered so the values written by the .env file are restored afterwards.
	t.Setenv("OSS_BUCKET_NAME", "")
	t.Setenv("OSS_ENDPOINT", "")

	dir := t.TempDir()
	content := "OSS_BUCKET_NAME=from-dotenv\nOSS_ENDPOINT=https://oss-cn-shanghai-internal.aliyuncs.com\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "from-dotenv", cfg.OSS.BucketName)
	assert.Equal(t, "oss-cn-shanghai-internal.aliyuncs.com", cfg.OSS.ResolvedEndpoint())
}

func TestLoadConfig_MissingCredentials(t *testing.T) {
	t.Setenv("OSS_ACCESS_KEY_ID", "")
	t.Setenv("OSS_ACCESS_KEY_SECRET", "")
	t.Setenv("OSS_BUCKET_NAME", "")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	err = cfg.OSS.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OSS_ACCESS_KEY_ID")
	assert.Contains(t, err.Error(), "OSS_BUCKET_NAME")
}

func TestCacheConfig_Headers(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	h := CacheConfig{MaxAgeSeconds: 31536000, Immutable: true}.Headers(now)
	assert.Equal(t, "public, max-age=31536000, immutable", h.CacheControl)
	assert.Equal(t, now.Add(365*24*time.Hour), h.Expires)

	h = CacheConfig{MaxAgeSeconds: 600, ContentDisposition: "inline"}.Headers(now)
	assert.Equal(t, "public, max-age=600", h.CacheControl)
	assert.Equal(t, "inline", h.ContentDisposition)
}
