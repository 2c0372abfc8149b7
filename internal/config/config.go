// File: internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Target() TargetConfig
	Dispatch() DispatchConfig
	UI() UIConfig

	// Browser Setters
	SetBrowserExecPath(string)

	// Dispatch Setters
	SetDispatchDefaultDelay(d time.Duration)
}

// Config holds the entire application configuration.
// Fields are exported for viper's decoder; callers should prefer the getters.
type Config struct {
	LoggerCfg   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	BrowserCfg  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	TargetCfg   TargetConfig   `mapstructure:"target" yaml:"target"`
	DispatchCfg DispatchConfig `mapstructure:"dispatch" yaml:"dispatch"`
	UICfg       UIConfig       `mapstructure:"ui" yaml:"ui"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig     { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig   { return c.BrowserCfg }
func (c *Config) Target() TargetConfig     { return c.TargetCfg }
func (c *Config) Dispatch() DispatchConfig { return c.DispatchCfg }
func (c *Config) UI() UIConfig             { return c.UICfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetBrowserExecPath(p string)             { c.BrowserCfg.ExecPath = p }
func (c *Config) SetDispatchDefaultDelay(d time.Duration) { c.DispatchCfg.DefaultDelay = d }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the headless browser instance. Headless
// mode itself is not configurable.
type BrowserConfig struct {
	ExecPath         string         `mapstructure:"exec_path" yaml:"exec_path"`
	UserAgent        string         `mapstructure:"user_agent" yaml:"user_agent"`
	Args             []string       `mapstructure:"args" yaml:"args"`
	Viewport         map[string]int `mapstructure:"viewport" yaml:"viewport"`
	LaunchTimeout    time.Duration  `mapstructure:"launch_timeout" yaml:"launch_timeout"`
	DownloadFallback bool           `mapstructure:"download_fallback" yaml:"download_fallback"`
	Debug            bool           `mapstructure:"debug" yaml:"debug"`
}

// TargetConfig describes the messaging application being driven.
type TargetConfig struct {
	BaseURL    string `mapstructure:"base_url" yaml:"base_url"`
	RootDomain string `mapstructure:"root_domain" yaml:"root_domain"`
	// ThreadPath is joined to BaseURL; "{thread_id}" is substituted.
	ThreadPath   string        `mapstructure:"thread_path" yaml:"thread_path"`
	LoginMarkers []string      `mapstructure:"login_markers" yaml:"login_markers"`
	RootSettle   time.Duration `mapstructure:"root_settle" yaml:"root_settle"`
	ThreadSettle time.Duration `mapstructure:"thread_settle" yaml:"thread_settle"`
}

// DispatchConfig tunes the per-message send protocol.
type DispatchConfig struct {
	Locators     []string      `mapstructure:"locators" yaml:"locators"`
	FocusSettle  time.Duration `mapstructure:"focus_settle" yaml:"focus_settle"`
	KeySettle    time.Duration `mapstructure:"key_settle" yaml:"key_settle"`
	TypeSettle   time.Duration `mapstructure:"type_settle" yaml:"type_settle"`
	ErrorBackoff time.Duration `mapstructure:"error_backoff" yaml:"error_backoff"`
	DefaultDelay time.Duration `mapstructure:"default_delay" yaml:"default_delay"`
}

// UIConfig configures the foreground control surfaces.
type UIConfig struct {
	RedrawInterval time.Duration `mapstructure:"redraw_interval" yaml:"redraw_interval"`
	HistorySize    int           `mapstructure:"history_size" yaml:"history_size"`
	DisplaySize    int           `mapstructure:"display_size" yaml:"display_size"`
	SourceTag      string        `mapstructure:"source_tag" yaml:"source_tag"`
}

// DefaultLocators is the ordered fallback list of CSS selectors tried when
// looking for the conversation's message composer.
var DefaultLocators = []string{
	`div[contenteditable="true"][role="textbox"]`,
	`div[aria-label*="message" i][contenteditable="true"]`,
	`div[data-lexical-editor="true"]`,
	`div.notranslate[contenteditable="true"]`,
	`div[contenteditable="true"]`,
	`textarea[placeholder*="message" i]`,
	`div[role="textbox"]`,
	`div[aria-label*="Type a message" i]`,
}

// Delay bounds accepted for the inter-message delay.
const (
	MinDelay = 1 * time.Second
	MaxDelay = 60 * time.Second
)

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "courier")
	v.SetDefault("logger.log_file", "courier.log")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")

	// -- Browser --
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.user_agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("browser.viewport", map[string]int{"width": 1920, "height": 1080})
	v.SetDefault("browser.launch_timeout", "45s")
	v.SetDefault("browser.download_fallback", true)
	v.SetDefault("browser.debug", false)

	// -- Target --
	v.SetDefault("target.base_url", "https://www.facebook.com")
	v.SetDefault("target.root_domain", ".facebook.com")
	v.SetDefault("target.thread_path", "/messages/t/{thread_id}")
	v.SetDefault("target.login_markers", []string{"/login", "/checkpoint", "login.php"})
	v.SetDefault("target.root_settle", "3s")
	v.SetDefault("target.thread_settle", "5s")

	// -- Dispatch --
	v.SetDefault("dispatch.locators", DefaultLocators)
	v.SetDefault("dispatch.focus_settle", "1s")
	v.SetDefault("dispatch.key_settle", "500ms")
	v.SetDefault("dispatch.type_settle", "1s")
	v.SetDefault("dispatch.error_backoff", "2s")
	v.SetDefault("dispatch.default_delay", "3s")

	// -- UI --
	v.SetDefault("ui.redraw_interval", "1s")
	v.SetDefault("ui.history_size", 100)
	v.SetDefault("ui.display_size", 50)
	v.SetDefault("ui.source_tag", "AUTO-1")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.TargetCfg.Validate(); err != nil {
		return fmt.Errorf("target configuration invalid: %w", err)
	}
	if len(c.DispatchCfg.Locators) == 0 {
		return fmt.Errorf("dispatch.locators must list at least one selector")
	}
	if err := ValidateDelay(c.DispatchCfg.DefaultDelay); err != nil {
		return fmt.Errorf("dispatch.default_delay: %w", err)
	}
	if c.UICfg.HistorySize <= 0 {
		return fmt.Errorf("ui.history_size must be a positive integer")
	}
	if c.UICfg.DisplaySize <= 0 || c.UICfg.DisplaySize > c.UICfg.HistorySize {
		return fmt.Errorf("ui.display_size must be between 1 and ui.history_size")
	}
	if c.UICfg.RedrawInterval <= 0 {
		return fmt.Errorf("ui.redraw_interval must be a positive duration")
	}
	return nil
}

// Validate checks the TargetConfig settings.
func (t *TargetConfig) Validate() error {
	u, err := url.Parse(t.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base_url must be an absolute URL, got %q", t.BaseURL)
	}
	if strings.TrimSpace(t.RootDomain) == "" {
		return fmt.Errorf("root_domain is required")
	}
	if !strings.Contains(t.ThreadPath, "{thread_id}") {
		return fmt.Errorf("thread_path must contain the {thread_id} placeholder")
	}
	return nil
}

// ValidateDelay enforces the accepted inter-message delay range.
func ValidateDelay(d time.Duration) error {
	if d < MinDelay || d > MaxDelay {
		return fmt.Errorf("delay must be between %s and %s, got %s", MinDelay, MaxDelay, d)
	}
	return nil
}

// ThreadURL builds the navigation URL for a conversation thread.
func (t TargetConfig) ThreadURL(threadID string) string {
	path := strings.ReplaceAll(t.ThreadPath, "{thread_id}", threadID)
	return strings.TrimRight(t.BaseURL, "/") + path
}
