// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

// defaultConfig builds a validated configuration from the registered defaults.
func defaultConfig(t *testing.T) *Config {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := defaultConfig(t)

	assert.Equal(t, "info", cfg.Logger().Level)
	assert.Equal(t, "courier", cfg.Logger().ServiceName)
	assert.True(t, cfg.Browser().DownloadFallback)
	assert.Equal(t, 1920, cfg.Browser().Viewport["width"])
	assert.Equal(t, 1080, cfg.Browser().Viewport["height"])
	assert.Equal(t, ".facebook.com", cfg.Target().RootDomain)
	assert.Equal(t, 5*time.Second, cfg.Target().ThreadSettle)
	assert.Equal(t, DefaultLocators, cfg.Dispatch().Locators)
	assert.Equal(t, 3*time.Second, cfg.Dispatch().DefaultDelay)
	assert.Equal(t, 100, cfg.UI().HistorySize)
	assert.Equal(t, 50, cfg.UI().DisplaySize)
	assert.Equal(t, "AUTO-1", cfg.UI().SourceTag)

	require.NoError(t, cfg.Validate(), "defaults must always validate")
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	t.Run("Bad Base URL", func(t *testing.T) {
		cfg := defaultConfig(t)
		cfg.TargetCfg.BaseURL = "facebook.com"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "base_url must be an absolute URL")
	})

	t.Run("Missing Thread Placeholder", func(t *testing.T) {
		cfg := defaultConfig(t)
		cfg.TargetCfg.ThreadPath = "/messages/t/"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "{thread_id}")
	})

	t.Run("No Locators", func(t *testing.T) {
		cfg := defaultConfig(t)
		cfg.DispatchCfg.Locators = nil
		assert.Error(t, cfg.Validate())
	})

	t.Run("Display Larger Than History", func(t *testing.T) {
		cfg := defaultConfig(t)
		cfg.UICfg.DisplaySize = cfg.UICfg.HistorySize + 1
		assert.Error(t, cfg.Validate())
	})

	t.Run("Delay Out Of Range", func(t *testing.T) {
		cfg := defaultConfig(t)
		cfg.SetDispatchDefaultDelay(61 * time.Second)
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dispatch.default_delay")
	})
}

func TestValidateDelay(t *testing.T) {
	assert.NoError(t, ValidateDelay(time.Second))
	assert.NoError(t, ValidateDelay(60*time.Second))
	assert.Error(t, ValidateDelay(0))
	assert.Error(t, ValidateDelay(999*time.Millisecond))
	assert.Error(t, ValidateDelay(61*time.Second))
}

func TestThreadURL(t *testing.T) {
	target := defaultConfig(t).Target()
	assert.Equal(t, "https://www.facebook.com/messages/t/555", target.ThreadURL("555"))

	target.BaseURL = "https://chat.example.com/"
	target.ThreadPath = "/c/{thread_id}/view"
	assert.Equal(t, "https://chat.example.com/c/abc/view", target.ThreadURL("abc"))
}

// -- Viper Integration Tests --

func TestNewConfigFromViper(t *testing.T) {
	yamlConfig := []byte(`
logger:
  level: debug
browser:
  exec_path: /opt/chrome/chrome
target:
  root_settle: 1s
dispatch:
  default_delay: 10s
  locators:
    - textarea
`)
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlConfig)))

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger().Level)
	assert.Equal(t, "/opt/chrome/chrome", cfg.Browser().ExecPath)
	assert.Equal(t, time.Second, cfg.Target().RootSettle)
	assert.Equal(t, 10*time.Second, cfg.Dispatch().DefaultDelay)
	assert.Equal(t, []string{"textarea"}, cfg.Dispatch().Locators)
	// Untouched sections keep their defaults.
	assert.Equal(t, "https://www.facebook.com", cfg.Target().BaseURL)
}

func TestNewConfigFromViper_Invalid(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("ui.history_size", 0)

	_, err := NewConfigFromViper(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestSetters(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.SetBrowserExecPath("/usr/bin/chromium")
	cfg.SetDispatchDefaultDelay(7 * time.Second)
	assert.Equal(t, "/usr/bin/chromium", cfg.Browser().ExecPath)
	assert.Equal(t, 7*time.Second, cfg.Dispatch().DefaultDelay)
}
