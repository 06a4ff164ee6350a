package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "local", cfg.Gateway.Type)
	assert.Equal(t, "memory", cfg.Cache.Type)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 2*time.Hour, cfg.Session.IdleTTL)
	assert.Equal(t, 24*time.Hour, cfg.Queue.TaskTTL)
	assert.False(t, cfg.Queue.Enable)
	assert.False(t, cfg.Preview.Sanitize)
	assert.Equal(t, "html", cfg.Export.DefaultFormat)

	// 缺少配置文件时会写出默认配置
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
gateway:
  type: rest
  base_url: https://example.supabase.co/rest/v1
  api_key: ${SLIDEAI_TEST_KEY}
  retry_delay: 250ms
preview:
  sanitize: true
`)
	t.Setenv("SLIDEAI_TEST_KEY", "secret-key")
	t.Setenv("SERVER_PORT", "9100")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "rest", cfg.Gateway.Type)
	assert.Equal(t, "secret-key", cfg.Gateway.APIKey)
	assert.Equal(t, 250*time.Millisecond, cfg.Gateway.RetryDelay)
	assert.True(t, cfg.Preview.Sanitize)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(writeConfig(t, "gateway:\n  type: ftp\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "gateway:\n  type: rest\n"))
	assert.EqualError(t, err, "gateway.base_url is required for the rest gateway")

	_, err = Load(writeConfig(t, "storage:\n  type: s3\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "queue:\n  enable: true\n  type: kafka\n"))
	assert.EqualError(t, err, `unsupported queue type: "kafka"`)

	// 未启用时不检查队列类型
	_, err = Load(writeConfig(t, "queue:\n  type: kafka\n"))
	assert.NoError(t, err)
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("SLIDEAI_EXPAND", "value")

	assert.Equal(t, "value", expandEnv("${SLIDEAI_EXPAND}"))
	assert.Equal(t, "${SLIDEAI_MISSING_VAR}", expandEnv("${SLIDEAI_MISSING_VAR}"))
	assert.Equal(t, "plain", expandEnv("plain"))
	assert.Equal(t, "prefix-${SLIDEAI_EXPAND}", expandEnv("prefix-${SLIDEAI_EXPAND}"))
}
