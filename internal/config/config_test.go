package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_Valid(t *testing.T) {
	path := writeTempConfig(t, `{
		"database_url": "postgres://localhost/autoapply",
		"accept_confidence": 60,
		"reuse_window_days": 3,
		"pool_size": 5
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/autoapply", cfg.DatabaseURL)
	assert.Equal(t, 60, cfg.AcceptConfidence)
	assert.Equal(t, 3, cfg.ReuseWindowDays)
	assert.Equal(t, 5, cfg.PoolSize)
}

func TestLoadConfig_HeadlessDefaultsTrue(t *testing.T) {
	cfg, err := LoadConfig(writeTempConfig(t, `{}`))
	require.NoError(t, err)
	assert.True(t, cfg.Headless)

	cfg, err = LoadConfig(writeTempConfig(t, `{"headless": false}`))
	require.NoError(t, err)
	assert.False(t, cfg.Headless)
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	_, err := LoadConfig("")
	assert.Error(t, err)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	path := writeTempConfig(t, `{not json`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults are valid", Defaults(), false},
		{"confidence over 100", Config{AcceptConfidence: 101}, true},
		{"negative confidence", Config{AcceptConfidence: -1}, true},
		{"uncertain above accept", Config{AcceptConfidence: 30, UncertainConfidence: 40}, true},
		{"negative attempts", Config{MaxSubmitAttempts: -1}, true},
		{"negative reuse window", Config{ReuseWindowDays: -2}, true},
		{"geoip without proxy", Config{GeoIP: true}, true},
		{"geoip with proxy", Config{GeoIP: true, Proxy: ProxyConfig{Server: "http://proxy:8080"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := Config{AcceptConfidence: 70}
	merged := cfg.MergeWithDefaults(Defaults())

	// Explicit value kept
	assert.Equal(t, 70, merged.AcceptConfidence)
	// Unset values filled
	assert.Equal(t, 25, merged.UncertainConfidence)
	assert.Equal(t, 7, merged.ReuseWindowDays)
	assert.Equal(t, 2, merged.MaxSubmitAttempts)
	assert.Equal(t, "autoapply:applications", merged.QueueKey)
}

func TestDurationHelpers(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, 60*time.Second, cfg.NavigationTimeout())
	assert.Equal(t, 1500*time.Millisecond, cfg.SettleDelay())
	assert.Equal(t, 7*24*time.Hour, cfg.ReuseWindow())
	assert.Equal(t, 2*time.Minute, cfg.VerifyCeiling())
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PROXY_SERVER", "http://proxy.example:3128")
	t.Setenv("PROXY_USERNAME", "user")
	t.Setenv("DATABASE_URL", "postgres://env/db")

	cfg := Config{}
	cfg.ApplyEnv()
	assert.Equal(t, "http://proxy.example:3128", cfg.Proxy.Server)
	assert.Equal(t, "user", cfg.Proxy.Username)
	assert.Equal(t, "postgres://env/db", cfg.DatabaseURL)

	// Config file values win over env
	cfg2 := Config{DatabaseURL: "postgres://file/db"}
	cfg2.ApplyEnv()
	assert.Equal(t, "postgres://file/db", cfg2.DatabaseURL)
}
