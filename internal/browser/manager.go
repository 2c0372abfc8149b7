package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/internal/browser/stealth"
	"github.com/xkilldash9x/courier-cli/internal/config"
)

const defaultLaunchTimeout = 45 * time.Second

// ChromeLauncher starts Chrome through chromedp's exec allocator.
type ChromeLauncher struct {
	browserCfg  config.BrowserConfig
	dispatchCfg config.DispatchConfig
	persona     stealth.Persona
	logger      *zap.Logger
}

// NewLauncher creates a launcher configured from cfg.
func NewLauncher(cfg config.Interface, logger *zap.Logger) *ChromeLauncher {
	b := cfg.Browser()
	return &ChromeLauncher{
		browserCfg:  b,
		dispatchCfg: cfg.Dispatch(),
		persona:     stealth.DefaultPersona.WithUserAgent(b.UserAgent),
		logger:      logger.Named("browser"),
	}
}

// Open launches a browser and returns a session on its first tab. When the
// first attempt fails and download_fallback is enabled, a browser is
// provisioned through rod's launcher and the launch is retried once.
func (l *ChromeLauncher) Open(ctx context.Context) (Session, error) {
	execPath, err := resolveExecPath(l.browserCfg.ExecPath)
	if err != nil {
		l.logger.Warn("Configured browser not usable, falling back to lookup.", zap.Error(err))
		execPath = ""
	}

	s, err := l.launch(ctx, execPath)
	if err == nil {
		return s, nil
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrDriverUnavailable, ctx.Err())
	}
	l.logger.Warn("Browser launch failed.", zap.String("exec_path", execPath), zap.Error(err))
	if !l.browserCfg.DownloadFallback {
		return nil, fmt.Errorf("%w: %v", ErrDriverUnavailable, err)
	}

	fallback, perr := provisionFallback(l.logger)
	if perr != nil {
		return nil, fmt.Errorf("%w: %v (fallback: %v)", ErrDriverUnavailable, err, perr)
	}
	s, err = l.launch(ctx, fallback)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDriverUnavailable, err)
	}
	return s, nil
}

// launch starts one browser process and verifies it answers a navigation.
// The process outlives ctx; it is released by Session.Close.
func (l *ChromeLauncher) launch(ctx context.Context, execPath string) (*chromeSession, error) {
	l.logger.Info("Initializing browser allocator...", zap.String("exec_path", execPath))

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx),
		DefaultAllocatorOptions(l.browserCfg, execPath)...)

	sugar := l.logger.Sugar()
	ctxOpts := []chromedp.ContextOption{
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf),
	}
	if l.browserCfg.Debug {
		ctxOpts = append(ctxOpts, chromedp.WithDebugf(sugar.Debugf))
	}
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, ctxOpts...)

	s := &chromeSession{
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		settle:      l.dispatchCfg,
		logger:      l.logger,
	}

	timeout := l.browserCfg.LaunchTimeout
	if timeout <= 0 {
		timeout = defaultLaunchTimeout
	}

	// The first Run allocates the browser and binds it to tabCtx, so it must
	// not carry a deadline of its own.
	started := make(chan error, 1)
	go func() { started <- chromedp.Run(tabCtx) }()

	select {
	case err := <-started:
		if err != nil {
			s.release()
			return nil, fmt.Errorf("browser failed to start: %w", err)
		}
	case <-time.After(timeout):
		s.release()
		return nil, fmt.Errorf("browser did not start within %s", timeout)
	case <-ctx.Done():
		s.release()
		return nil, ctx.Err()
	}

	probeCtx, cancelProbe := context.WithTimeout(ctx, timeout)
	defer cancelProbe()
	if err := s.run(probeCtx, chromedp.Navigate("about:blank")); err != nil {
		s.release()
		return nil, fmt.Errorf("browser failed to respond: %w", err)
	}
	if err := s.run(probeCtx, stealth.Apply(l.persona, l.logger)); err != nil {
		s.release()
		return nil, fmt.Errorf("failed to apply stealth persona: %w", err)
	}

	l.logger.Info("Browser launched successfully and is responsive.")
	return s, nil
}
