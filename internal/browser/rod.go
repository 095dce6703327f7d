// SPDX-License-Identifier: Apache-2.0

package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

var errNotStarted = errors.New("browser not started")

// Rod drives a locally launched Chromium through the DevTools protocol.
type Rod struct {
	bin           string
	timeout       time.Duration
	logger        *slog.Logger
	forceHeadless bool

	mu       sync.Mutex
	cancel   context.CancelFunc
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

func NewRod(bin string, timeout time.Duration, logger *slog.Logger) *Rod {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Rod{bin: bin, timeout: timeout, logger: logger}
}

func (r *Rod) Start(ctx context.Context, cfg LaunchConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		if _, err := r.browser.Version(); err == nil {
			return nil
		}
		r.closeLocked()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l := launcher.New().Headless(cfg.Headless || r.forceHeadless)
	if r.bin != "" {
		l = l.Bin(r.bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}

	// the browser outlives the request that started it
	bctx, cancel := context.WithCancel(context.Background())
	b := rod.New().ControlURL(controlURL).Context(bctx)
	if err := b.Connect(); err != nil {
		cancel()
		l.Kill()
		return fmt.Errorf("connect to browser: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: cfg.StartURL})
	if err != nil {
		cancel()
		_ = b.Close()
		l.Kill()
		return fmt.Errorf("open page %s: %w", cfg.StartURL, err)
	}
	if err := page.Timeout(r.timeout).WaitLoad(); err != nil {
		r.logger.Warn("initial page load did not finish",
			"session_id", cfg.SessionID,
			"url", cfg.StartURL,
			"error", err,
		)
	}

	r.cancel = cancel
	r.launcher, r.browser, r.page = l, b, page
	r.logger.Info("browser started",
		"session_id", cfg.SessionID,
		"browser", cfg.Browser,
		"headless", cfg.Headless,
	)
	return nil
}

// Stop closes the page and browser. Calling it on a stopped driver is a
// no-op.
func (r *Rod) Stop(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeLocked()
}

func (r *Rod) closeLocked() error {
	var errs []error
	if r.page != nil {
		if err := r.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close page: %w", err))
		}
	}
	if r.browser != nil {
		if err := r.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	if r.launcher != nil {
		r.launcher.Kill()
	}
	if r.cancel != nil {
		r.cancel()
	}
	r.page, r.browser, r.launcher, r.cancel = nil, nil, nil, nil
	return errors.Join(errs...)
}

// ExecuteScript evaluates a JavaScript function expression on the recorded
// page, and registers it to run again on every new document so capture
// survives navigation.
func (r *Rod) ExecuteScript(ctx context.Context, script string) (string, error) {
	r.mu.Lock()
	page := r.page
	r.mu.Unlock()
	if page == nil {
		return "", errNotStarted
	}

	res, err := page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:      script,
		ByValue: true,
	})
	if err != nil {
		return "", fmt.Errorf("evaluate script: %w", err)
	}
	if _, err := page.EvalOnNewDocument("(" + script + ")()"); err != nil {
		r.logger.Warn("register script for new documents failed", "error", err)
	}
	if res == nil {
		return "", nil
	}
	return res.Value.String(), nil
}

func (r *Rod) IsActive(context.Context) bool {
	r.mu.Lock()
	b := r.browser
	r.mu.Unlock()
	if b == nil {
		return false
	}
	_, err := b.Version()
	return err == nil
}
