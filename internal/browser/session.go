package browser

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/internal/config"
	"github.com/xkilldash9x/courier-cli/internal/credentials"
)

// chromeSession is a Session backed by a chromedp tab.
type chromeSession struct {
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	settle      config.DispatchConfig
	logger      *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

// run executes actions on the tab, stopping early when either the tab or ctx
// is cancelled.
func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (s *chromeSession) InjectCredentials(ctx context.Context, creds []credentials.Credential) Injection {
	var res Injection
	for _, c := range creds {
		if err := s.run(ctx, cookieParams(c)); err != nil {
			s.logger.Warn("Failed to set cookie.", zap.String("name", c.Name), zap.Error(err))
			res.Failures = append(res.Failures, CookieFailure{Name: c.Name, Err: err})
			if ctx.Err() != nil {
				break
			}
			continue
		}
		res.Applied++
	}
	s.logger.Debug("Cookies injected.", zap.Int("applied", res.Applied), zap.Int("failed", len(res.Failures)))
	return res
}

// cookieParams maps a credential onto a CDP Network.setCookie call.
func cookieParams(c credentials.Credential) *network.SetCookieParams {
	p := network.SetCookie(c.Name, c.Value).WithDomain(c.Domain).WithPath(c.Path)
	if c.Secure {
		p = p.WithSecure(true)
	}
	if c.HTTPOnly {
		p = p.WithHTTPOnly(true)
	}
	if ss, ok := sameSite(c.SameSite); ok {
		p = p.WithSameSite(ss)
	}
	if c.Expires > 0 {
		sec, frac := math.Modf(c.Expires)
		ts := cdp.TimeSinceEpoch(time.Unix(int64(sec), int64(frac*1e9)))
		p = p.WithExpires(&ts)
	}
	return p
}

func sameSite(v string) (network.CookieSameSite, bool) {
	switch strings.ToLower(v) {
	case "strict":
		return network.CookieSameSiteStrict, true
	case "lax":
		return network.CookieSameSiteLax, true
	case "none", "no_restriction":
		return network.CookieSameSiteNone, true
	}
	return "", false
}

func (s *chromeSession) Navigate(ctx context.Context, url string, settle time.Duration) (PageState, error) {
	var st PageState
	s.logger.Debug("Navigating.", zap.String("url", url))
	err := s.run(ctx,
		chromedp.Navigate(url),
		chromedp.Sleep(settle),
		chromedp.Location(&st.URL),
		chromedp.Title(&st.Title),
	)
	return st, err
}

// ResolveInput returns the first rendered match of the first locator that
// matches anything. When none of that locator's matches has a layout box the
// first match is returned and SendMessage reports it as not focusable.
func (s *chromeSession) ResolveInput(ctx context.Context, locators []string) (Element, error) {
	for i, sel := range locators {
		var (
			nodes []*cdp.Node
			pick  cdp.NodeID
		)
		err := s.run(ctx,
			chromedp.Nodes(sel, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)),
			chromedp.ActionFunc(func(ctx context.Context) error {
				pick = firstRendered(ctx, nodes)
				return nil
			}),
		)
		if err != nil {
			if ctx.Err() != nil {
				return Element{}, ctx.Err()
			}
			s.logger.Debug("Locator query failed.", zap.Int("strategy", i), zap.String("selector", sel), zap.Error(err))
			continue
		}
		if len(nodes) > 0 {
			return Element{Strategy: i, Selector: sel, Matches: len(nodes), NodeID: pick}, nil
		}
	}
	return Element{}, ErrNoInput
}

// firstRendered returns the first node with a layout box, or the first node.
func firstRendered(ctx context.Context, nodes []*cdp.Node) cdp.NodeID {
	if len(nodes) == 0 {
		return 0
	}
	for _, n := range nodes {
		if _, err := dom.GetBoxModel().WithNodeID(n.NodeID).Do(ctx); err == nil {
			return n.NodeID
		}
	}
	return nodes[0].NodeID
}

// SendMessage focuses el, clears it, types text and presses Enter. None of
// the steps wait for the node to become visible: a hidden or detached node
// fails at focus.
func (s *chromeSession) SendMessage(ctx context.Context, el Element, text string) error {
	return s.run(ctx,
		dom.ScrollIntoViewIfNeeded().WithNodeID(el.NodeID),
		dom.Focus().WithNodeID(el.NodeID),
		chromedp.Sleep(s.settle.FocusSettle),
		selectAll(),
		chromedp.Sleep(s.settle.KeySettle),
		chromedp.KeyEvent(kb.Delete),
		chromedp.Sleep(s.settle.KeySettle),
		chromedp.KeyEvent(text),
		chromedp.Sleep(s.settle.TypeSettle),
		chromedp.KeyEvent(kb.Enter),
	)
}

// selectAll presses Ctrl+A with the selectAll editing command attached.
func selectAll() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		down := input.DispatchKeyEvent(input.KeyDown).
			WithKey("a").
			WithCode("KeyA").
			WithWindowsVirtualKeyCode(65).
			WithModifiers(input.ModifierCtrl).
			WithCommands([]string{"selectAll"})
		if err := down.Do(ctx); err != nil {
			return err
		}
		return input.DispatchKeyEvent(input.KeyUp).
			WithKey("a").
			WithCode("KeyA").
			WithWindowsVirtualKeyCode(65).
			WithModifiers(input.ModifierCtrl).
			Do(ctx)
	})
}

// Close shuts the tab and the browser process. Later calls return the result
// of the first.
func (s *chromeSession) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.logger.Debug("Closing browser session.")
		if err := chromedp.Cancel(s.tabCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("Browser did not close cleanly.", zap.Error(err))
			s.closeErr = err
		}
		s.release()
	})
	return s.closeErr
}

// release cancels the tab and allocator contexts, which kills the process.
func (s *chromeSession) release() {
	s.tabCancel()
	s.allocCancel()
}
