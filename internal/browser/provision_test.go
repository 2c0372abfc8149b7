package browser

import (
	"errors"
	"io/fs"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// stubHooks swaps the lookup hooks for the duration of a test.
func stubHooks(t *testing.T, existing map[string]bool, onPath map[string]string) {
	t.Helper()
	origStat, origLook, origGOOS := statFile, lookPath, currentGOOS
	t.Cleanup(func() { statFile, lookPath, currentGOOS = origStat, origLook, origGOOS })

	currentGOOS = "linux"
	statFile = func(name string) (os.FileInfo, error) {
		if existing[name] {
			return nil, nil
		}
		return nil, fs.ErrNotExist
	}
	lookPath = func(file string) (string, error) {
		if p, ok := onPath[file]; ok {
			return p, nil
		}
		return "", errors.New("not found")
	}
}

func TestResolveExecPath(t *testing.T) {
	t.Run("ConfiguredPathWins", func(t *testing.T) {
		stubHooks(t, map[string]bool{"/custom/chrome": true, "/usr/bin/chromium": true}, nil)
		p, err := resolveExecPath("/custom/chrome")
		require.NoError(t, err)
		assert.Equal(t, "/custom/chrome", p)
	})

	t.Run("ConfiguredPathMissing", func(t *testing.T) {
		stubHooks(t, nil, nil)
		_, err := resolveExecPath("/missing/chrome")
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("WellKnownInOrder", func(t *testing.T) {
		stubHooks(t, map[string]bool{"/usr/bin/chromium": true, "/snap/bin/chromium": true}, nil)
		p, err := resolveExecPath("")
		require.NoError(t, err)
		assert.Equal(t, "/usr/bin/chromium", p)
	})

	t.Run("SearchPath", func(t *testing.T) {
		stubHooks(t, nil, map[string]string{"chromium-browser": "/home/u/bin/chromium-browser"})
		p, err := resolveExecPath("")
		require.NoError(t, err)
		assert.Equal(t, "/home/u/bin/chromium-browser", p)
	})

	t.Run("NothingFound", func(t *testing.T) {
		stubHooks(t, nil, nil)
		p, err := resolveExecPath("")
		require.NoError(t, err)
		assert.Empty(t, p, "chromedp performs its own lookup")
	})
}

func TestProvisionFallback(t *testing.T) {
	origLook, origDownload := rodLookPath, downloadRod
	t.Cleanup(func() { rodLookPath, downloadRod = origLook, origDownload })

	t.Run("SystemBrowser", func(t *testing.T) {
		rodLookPath = func() (string, bool) { return "/usr/bin/chrome", true }
		downloadRod = func() (string, error) { t.Fatal("download must not run"); return "", nil }
		p, err := provisionFallback(zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, "/usr/bin/chrome", p)
	})

	t.Run("Download", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		rodLookPath = func() (string, bool) { return "", false }
		downloadRod = func() (string, error) { return "/cache/rod/chromium", nil }
		p, err := provisionFallback(zap.New(core))
		require.NoError(t, err)
		assert.Equal(t, "/cache/rod/chromium", p)
		assert.Equal(t, 1, logs.FilterLevelExact(zap.WarnLevel).Len())
	})

	t.Run("DownloadFails", func(t *testing.T) {
		rodLookPath = func() (string, bool) { return "", false }
		downloadRod = func() (string, error) { return "", errors.New("offline") }
		_, err := provisionFallback(zap.NewNop())
		assert.ErrorContains(t, err, "offline")
	})
}
