package browser

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/go-rod/rod/lib/launcher"
	"go.uber.org/zap"
)

// wellKnownPaths are checked, in order, after the configured exec path.
var wellKnownPaths = map[string][]string{
	"linux": {
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/snap/bin/chromium",
	},
	"darwin": {
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"/Applications/Chromium.app/Contents/MacOS/Chromium",
	},
	"windows": {
		`C:\Program Files\Google\Chrome\Application\chrome.exe`,
		`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
	},
}

// Hooks for tests.
var (
	statFile     = os.Stat
	lookPath     = exec.LookPath
	rodLookPath  = launcher.LookPath
	downloadRod  = func() (string, error) { return launcher.NewBrowser().Get() }
	currentGOOS  = runtime.GOOS
	pathBinaries = []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "chrome"}
)

// resolveExecPath picks a Chrome binary. An empty result with a nil error
// leaves the lookup to chromedp.
func resolveExecPath(configured string) (string, error) {
	if configured != "" {
		if _, err := statFile(configured); err != nil {
			return "", fmt.Errorf("configured browser exec path %q: %w", configured, err)
		}
		return configured, nil
	}
	for _, p := range wellKnownPaths[currentGOOS] {
		if _, err := statFile(p); err == nil {
			return p, nil
		}
	}
	for _, name := range pathBinaries {
		if p, err := lookPath(name); err == nil {
			return p, nil
		}
	}
	return "", nil
}

// provisionFallback locates a browser through rod's launcher, downloading a
// pinned Chromium revision into the user cache when none is installed.
func provisionFallback(logger *zap.Logger) (string, error) {
	if p, ok := rodLookPath(); ok {
		logger.Info("Using browser found by fallback lookup.", zap.String("path", p))
		return p, nil
	}

	logger.Warn("No browser installed. Downloading Chromium; this can take a while.")
	p, err := downloadRod()
	if err != nil {
		return "", fmt.Errorf("failed to download chromium: %w", err)
	}
	logger.Info("Chromium downloaded.", zap.String("path", p))
	return p, nil
}
