package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
provider:
  api_key: test-key
  websocket_url: wss://stream.example.com/v2
  rest_base_url: https://api.example.com
halts:
  rss_feed_url: https://example.com/halts.rss
  table_url: https://example.com/halts.html
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 30, c.Tier1.LookbackDays)
	assert.Equal(t, int64(3000000), c.Tier1.MinAvgVolume)
	assert.Equal(t, []string{"06:30", "09:30", "13:30"}, c.Tier1.ScanTimes)
	assert.Equal(t, 50, c.Tier2.SubscribeBatch)
	assert.Equal(t, 60*time.Second, c.Halts.PollInterval)
	assert.Equal(t, 3*time.Minute, c.News.PollInterval)
	assert.Equal(t, 2*time.Hour, c.News.BreakingMaxAge)
	assert.Equal(t, 72*time.Hour, c.News.GeneralMaxAge)
	assert.Equal(t, 1024, c.Dispatch.BufferSize)
	assert.False(t, c.Redis.Enabled)
}

func TestLoadOverridesDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, minimalYAML+`
log:
  level: debug
tier1:
  min_price: 1.00
  max_price: 20
  scan_times: ["05:00"]
`))
	require.NoError(t, err)

	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, 1.00, c.Tier1.MinPrice)
	assert.Equal(t, 20.0, c.Tier1.MaxPrice)
	assert.Equal(t, []string{"05:00"}, c.Tier1.ScanTimes)
}

func TestLoadMissingProviderKey(t *testing.T) {
	_, err := Load(writeConfig(t, `
provider:
  websocket_url: wss://stream.example.com/v2
  rest_base_url: https://api.example.com
halts:
  rss_feed_url: https://example.com/halts.rss
  table_url: https://example.com/halts.html
`))
	assert.Error(t, err)
}

func TestLoadRejectsInvertedPriceBand(t *testing.T) {
	_, err := Load(writeConfig(t, minimalYAML+`
tier1:
  min_price: 10
  max_price: 5
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_price")
}

func TestLoadRejectsOversizedSubscribeBatch(t *testing.T) {
	_, err := Load(writeConfig(t, minimalYAML+`
tier2:
  subscribe_batch: 100
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subscribe_batch")
}

func TestLoadRejectsBadScanTime(t *testing.T) {
	_, err := Load(writeConfig(t, minimalYAML+`
tier1:
  scan_times: ["25:99"]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan_times")
}

func TestLoadRejectsUnknownProviderType(t *testing.T) {
	_, err := Load(writeConfig(t, minimalYAML+`
news:
  providers:
    - name: wire
      type: grpc
      url: https://example.com
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type")
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("PROVIDER_API_KEY", "env-key")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("SCAN_TIMES", "04:30,12:00")
	t.Setenv("NEWS_API_KEY", "news-key")

	c, err := LoadWithEnv(writeConfig(t, minimalYAML+`
news:
  providers:
    - name: wire
      type: rest
      url: https://news.example.com
`))
	require.NoError(t, err)

	assert.Equal(t, "env-key", c.Provider.APIKey)
	assert.Equal(t, "warn", c.Log.Level)
	assert.Equal(t, []string{"04:30", "12:00"}, c.Tier1.ScanTimes)
	require.Len(t, c.News.Providers, 1)
	assert.Equal(t, "news-key", c.News.Providers[0].APIKey)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
