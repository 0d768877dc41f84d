// Package browser drives a real Chromium page behind the scraper's
// surface contract.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"cardscrape/config"
)

const (
	viewportWidth  = 1920
	viewportHeight = 1080
)

// Session is one exclusive browser page. Every operation carries a
// deadline so a stuck page cannot hang a run.
type Session struct {
	cfg      *config.Config
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

// Open launches a Chromium instance and returns a session on a fresh
// incognito page. ctx bounds the whole session's lifetime.
func Open(ctx context.Context, cfg *config.Config) (*Session, error) {
	l := launcher.New().Headless(cfg.Headless)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to chromium: %w", err)
	}

	incognito, err := browser.Incognito()
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, fmt.Errorf("incognito context: %w", err)
	}
	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, fmt.Errorf("create page: %w", err)
	}

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             viewportWidth,
		Height:            viewportHeight,
		DeviceScaleFactor: 1,
		Mobile:            false,
	}).Call(page); err != nil {
		slog.Warn("set viewport failed", slog.Any("error", err))
	}
	if err := (proto.NetworkSetUserAgentOverride{
		UserAgent: cfg.UserAgent,
	}).Call(page); err != nil {
		slog.Warn("set user agent failed", slog.Any("error", err))
	}

	return &Session{cfg: cfg, launcher: l, browser: browser, page: page}, nil
}

// Navigate loads url and waits for the load event.
func (s *Session) Navigate(url string) error {
	page := s.page.Timeout(s.cfg.NavigationTimeout)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait for load: %w", err)
	}
	return nil
}

// Click clicks the first element matching selector.
func (s *Session) Click(selector string) error {
	el, err := s.element(selector, s.cfg.OpTimeout)
	if err != nil {
		return err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

// Fill replaces the text of the input matching selector.
func (s *Session) Fill(selector, text string) error {
	el, err := s.element(selector, s.cfg.OpTimeout)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("select text in %s: %w", selector, err)
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("input into %s: %w", selector, err)
	}
	return nil
}

// Text returns the trimmed text content of the first match.
func (s *Session) Text(selector string) (string, error) {
	el, err := s.element(selector, s.cfg.OpTimeout)
	if err != nil {
		return "", err
	}
	text, err := el.Text()
	if err != nil {
		return "", fmt.Errorf("read text of %s: %w", selector, err)
	}
	return strings.TrimSpace(text), nil
}

// HTML returns the outer markup of the first match.
func (s *Session) HTML(selector string) (string, error) {
	el, err := s.element(selector, s.cfg.OpTimeout)
	if err != nil {
		return "", err
	}
	markup, err := el.HTML()
	if err != nil {
		return "", fmt.Errorf("read markup of %s: %w", selector, err)
	}
	return markup, nil
}

// AttributeAll returns attr for every current match, in render order.
// Matches without the attribute are skipped.
func (s *Session) AttributeAll(selector, attr string) ([]string, error) {
	els, err := s.page.Timeout(s.cfg.OpTimeout).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("elements %s: %w", selector, err)
	}
	values := make([]string, 0, len(els))
	for _, el := range els {
		v, err := el.Attribute(attr)
		if err != nil || v == nil {
			continue
		}
		values = append(values, *v)
	}
	return values, nil
}

// Count returns the number of current matches without waiting for any.
func (s *Session) Count(selector string) (int, error) {
	els, err := s.page.Timeout(s.cfg.OpTimeout).Elements(selector)
	if err != nil {
		return 0, fmt.Errorf("elements %s: %w", selector, err)
	}
	return len(els), nil
}

// Visible reports whether a match exists and is visible right now.
func (s *Session) Visible(selector string) bool {
	has, el, err := s.page.Timeout(s.cfg.OpTimeout).Has(selector)
	if err != nil || !has {
		return false
	}
	visible, err := el.Visible()
	return err == nil && visible
}

// WaitVisible blocks until a match is visible or the timeout expires.
func (s *Session) WaitVisible(selector string, timeout time.Duration) error {
	el, err := s.page.Timeout(timeout).Element(selector)
	if err != nil {
		return fmt.Errorf("element %s: %w", selector, err)
	}
	if err := el.WaitVisible(); err != nil {
		return fmt.Errorf("wait visible %s: %w", selector, err)
	}
	return nil
}

// ScrollBottom scrolls the page to its bottom.
func (s *Session) ScrollBottom() error {
	_, err := s.page.Timeout(s.cfg.OpTimeout).Evaluate(&rod.EvalOptions{
		JS:      `() => window.scrollTo(0, document.body.scrollHeight)`,
		ByValue: true,
	})
	if err != nil {
		return fmt.Errorf("scroll to bottom: %w", err)
	}
	return nil
}

// Close shuts the page, the browser, and the launched process.
func (s *Session) Close() error {
	if s.page != nil {
		_ = s.page.Close()
	}
	var err error
	if s.browser != nil {
		err = s.browser.Close()
	}
	if s.launcher != nil {
		s.launcher.Kill()
	}
	return err
}

func (s *Session) element(selector string, timeout time.Duration) (*rod.Element, error) {
	el, err := s.page.Timeout(timeout).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("element %s: %w", selector, err)
	}
	return el, nil
}
