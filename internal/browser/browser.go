// Package browser owns the headless Chrome lifecycle used to drive the
// messaging web application: launch, cookie injection, navigation, composer
// discovery and the per-message key protocol.
package browser

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"

	"github.com/xkilldash9x/courier-cli/internal/credentials"
)

var (
	// ErrDriverUnavailable is returned when no Chrome binary could be started,
	// including after fallback provisioning.
	ErrDriverUnavailable = errors.New("browser driver unavailable")
	// ErrNoInput is returned by ResolveInput when every locator came up empty.
	ErrNoInput = errors.New("no locator matched an input element")
)

// Launcher starts browser sessions.
type Launcher interface {
	Open(ctx context.Context) (Session, error)
}

// Session is a single automated tab. It is owned by one worker for one run.
type Session interface {
	// InjectCredentials applies cookies to the current page's domain. A
	// failing cookie is recorded in the result and skipped.
	InjectCredentials(ctx context.Context, creds []credentials.Credential) Injection
	// Navigate loads url, waits settle, and reports where the page landed.
	Navigate(ctx context.Context, url string, settle time.Duration) (PageState, error)
	// ResolveInput tries locators in order and returns the first rendered
	// match of the first locator that matched anything.
	ResolveInput(ctx context.Context, locators []string) (Element, error)
	// SendMessage clears el, types text, waits, and submits with Enter. It
	// never waits for el to become visible.
	SendMessage(ctx context.Context, el Element, text string) error
	// Close releases the browser. It is safe to call more than once.
	Close(ctx context.Context) error
}

// Injection reports the outcome of InjectCredentials.
type Injection struct {
	Applied  int
	Failures []CookieFailure
}

// CookieFailure names a cookie the browser refused.
type CookieFailure struct {
	Name string
	Err  error
}

// PageState is the page location after a navigation settles.
type PageState struct {
	URL   string
	Title string
}

// Element is a resolved composer node.
type Element struct {
	// Strategy is the index into the locator list that produced the match.
	Strategy int
	Selector string
	// Matches counts how many nodes the winning locator found.
	Matches int
	NodeID  cdp.NodeID
}

// IsLoginRedirect reports whether url carries any of the markers that the
// application uses for its login and checkpoint pages.
func IsLoginRedirect(url string, markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(url, m) {
			return true
		}
	}
	return false
}
