package browser

import (
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/courier-cli/internal/config"
)

// launchFlag is a Chrome command-line switch. A false bool removes the switch.
type launchFlag struct {
	Name  string
	Value interface{}
}

// launchFlags lists the switches layered over chromedp's defaults. Headless
// mode is always on; extra args cannot turn it off.
func launchFlags(cfg config.BrowserConfig) []launchFlag {
	flags := []launchFlag{
		{"headless", true},
		// chromedp's defaults turn this on; it exposes the automation banner.
		{"enable-automation", false},
		{"no-sandbox", true},
		{"disable-dev-shm-usage", true},
		{"disable-gpu", true},
		{"disable-blink-features", "AutomationControlled"},
		{"disable-extensions", true},
	}

	for _, arg := range cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		name := strings.TrimPrefix(parts[0], "--")
		if name == "" || name == "headless" {
			continue
		}
		if len(parts) == 2 {
			flags = append(flags, launchFlag{name, parts[1]})
		} else {
			flags = append(flags, launchFlag{name, true})
		}
	}
	return flags
}

// windowSize reads the configured viewport, falling back to 1920x1080.
func windowSize(cfg config.BrowserConfig) (int, int) {
	w, h := cfg.Viewport["width"], cfg.Viewport["height"]
	if w <= 0 {
		w = 1920
	}
	if h <= 0 {
		h = 1080
	}
	return w, h
}

// DefaultAllocatorOptions builds the exec allocator options for cfg. execPath
// overrides chromedp's own binary lookup when non-empty.
func DefaultAllocatorOptions(cfg config.BrowserConfig, execPath string) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for _, f := range launchFlags(cfg) {
		opts = append(opts, chromedp.Flag(f.Name, f.Value))
	}

	w, h := windowSize(cfg)
	opts = append(opts, chromedp.WindowSize(w, h))
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}
	return opts
}
