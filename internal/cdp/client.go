package cdp

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

// EventSink receives interception and lifecycle events resolved to plain
// identifiers. The trace pipeline implements it; the client stays free of
// session semantics.
type EventSink interface {
	OnRequestWillBeSent(tabID string, ev *network.EventRequestWillBeSent)
	OnResponseReceived(tabID string, ev *network.EventResponseReceived)
	OnLoadingFailed(tabID string, ev *network.EventLoadingFailed)
	OnTabCreated(tabID, openerTabID string)
	OnTabRemoved(tabID string)
	OnWindowRemoved(windowID string)
}

// Client manages CDP connections to browser tabs and forwards network and
// target lifecycle events into the sink.
type Client struct {
	cdpURL    string
	urlFilter string
	sink      EventSink

	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	targets *targetTable
	tabs    map[target.ID]*tabContext
	tabsMu  sync.RWMutex
	done    chan struct{}
}

type tabContext struct {
	ID     target.ID
	URL    string
	ctx    context.Context
	cancel context.CancelFunc
}

func NewClient(cdpURL, urlFilter string, sink EventSink) *Client {
	return &Client{
		cdpURL:    cdpURL,
		urlFilter: urlFilter,
		sink:      sink,
		targets:   newTargetTable(),
		tabs:      make(map[target.ID]*tabContext),
		done:      make(chan struct{}),
	}
}

// Connect attaches to the browser, enables target discovery so spawned
// tabs are picked up as they appear, and attaches to all current page
// targets matching the URL filter.
func (c *Client) Connect(ctx context.Context) error {
	_ = ctx
	slog.Info("Connecting to Chromium", "url", c.cdpURL)

	c.allocCtx, c.allocCancel = chromedp.NewRemoteAllocator(context.Background(), c.cdpURL)
	c.browserCtx, c.browserCancel = chromedp.NewContext(c.allocCtx)

	if err := chromedp.Run(c.browserCtx); err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}

	chromedp.ListenBrowser(c.browserCtx, c.onBrowserEvent)
	if err := chromedp.Run(c.browserCtx, target.SetDiscoverTargets(true)); err != nil {
		return fmt.Errorf("failed to enable target discovery: %w", err)
	}

	targets, err := chromedp.Targets(c.browserCtx)
	if err != nil {
		return fmt.Errorf("failed to enumerate targets: %w", err)
	}

	attachedCount := 0
	for _, t := range targets {
		if t.Type != "page" {
			continue
		}
		if !c.matchesTabURL(t.URL) {
			slog.Debug("Skipping tab (url filter)", "url", t.URL)
			continue
		}
		if err := c.attachToTab(t.TargetID, t.URL); err != nil {
			slog.Error("Failed to attach to tab", "target_id", t.TargetID, "url", t.URL, "error", err)
			continue
		}
		attachedCount++
	}

	slog.Info("Attached to tabs", "count", attachedCount, "tab_url_filter", c.urlFilter)
	return nil
}

func (c *Client) onBrowserEvent(ev interface{}) {
	switch e := ev.(type) {
	case *target.EventTargetCreated:
		info := e.TargetInfo
		if info.Type != "page" || !c.matchesTabURL(info.URL) {
			return
		}
		// Attaching needs CDP round-trips; never block the event loop.
		go func() {
			c.sink.OnTabCreated(string(info.TargetID), string(info.OpenerID))
			if err := c.attachToTab(info.TargetID, info.URL); err != nil {
				slog.Debug("Failed to attach to spawned tab", "target_id", info.TargetID, "error", err)
			}
		}()
	case *target.EventTargetDestroyed:
		go c.detachTab(e.TargetID)
	}
}

func (c *Client) attachToTab(targetID target.ID, url string) error {
	c.tabsMu.RLock()
	_, already := c.tabs[targetID]
	c.tabsMu.RUnlock()
	if already {
		return nil
	}

	tabCtx, tabCancel := chromedp.NewContext(c.allocCtx, chromedp.WithTargetID(targetID))
	tab := &tabContext{ID: targetID, URL: url, ctx: tabCtx, cancel: tabCancel}

	c.tabsMu.Lock()
	c.tabs[targetID] = tab
	c.tabsMu.Unlock()

	if err := chromedp.Run(tabCtx, network.Enable(), network.SetCacheDisabled(true)); err != nil {
		tabCancel()
		c.tabsMu.Lock()
		delete(c.tabs, targetID)
		c.tabsMu.Unlock()
		return fmt.Errorf("failed to enable network domain: %w", err)
	}

	windowID, err := c.resolveWindow(tabCtx, targetID)
	if err != nil {
		slog.Debug("Window resolution failed", "target_id", targetID, "error", err)
	} else {
		c.targets.put(targetID, windowID)
	}

	slog.Info("Attached to tab", "target_id", targetID, "window_id", windowID, "url", truncateURL(url))
	chromedp.ListenTarget(tabCtx, c.createEventHandler(string(targetID)))
	return nil
}

func (c *Client) detachTab(targetID target.ID) {
	c.tabsMu.Lock()
	tab, ok := c.tabs[targetID]
	if ok {
		delete(c.tabs, targetID)
	}
	c.tabsMu.Unlock()

	if !ok {
		return
	}
	tab.cancel()
	c.sink.OnTabRemoved(string(targetID))

	if windowID, empty := c.targets.remove(targetID); empty {
		slog.Info("Window closed", "window_id", windowID)
		c.sink.OnWindowRemoved(windowID)
	}
}

func (c *Client) createEventHandler(tabID string) func(ev interface{}) {
	return func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			c.sink.OnRequestWillBeSent(tabID, e)
		case *network.EventResponseReceived:
			c.sink.OnResponseReceived(tabID, e)
		case *network.EventLoadingFailed:
			c.sink.OnLoadingFailed(tabID, e)
		}
	}
}

func (c *Client) resolveWindow(tabCtx context.Context, targetID target.ID) (string, error) {
	resolveCtx, cancel := context.WithTimeout(tabCtx, 10*time.Second)
	defer cancel()

	var windowID browser.WindowID
	err := chromedp.Run(resolveCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		windowID, _, err = browser.GetWindowForTarget().WithTargetID(targetID).Do(ctx)
		return err
	}))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(int64(windowID), 10), nil
}

// WindowForTab returns the window identifier a tab belongs to, resolving
// over CDP when the tab has not been attached yet.
func (c *Client) WindowForTab(ctx context.Context, tabID string) (string, error) {
	if windowID, ok := c.targets.window(target.ID(tabID)); ok {
		return windowID, nil
	}

	c.tabsMu.RLock()
	tab, ok := c.tabs[target.ID(tabID)]
	c.tabsMu.RUnlock()
	if !ok {
		return "", fmt.Errorf("unknown tab: %s", tabID)
	}
	return c.resolveWindow(tab.ctx, tab.ID)
}

// ListPages enumerates attachable page targets with their windows.
func (c *Client) ListPages(ctx context.Context) ([]TargetSummary, error) {
	_ = ctx
	targets, err := chromedp.Targets(c.browserCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate targets: %w", err)
	}

	var out []TargetSummary
	for _, t := range targets {
		if t.Type != "page" {
			continue
		}
		summary := TargetSummary{TabID: string(t.TargetID), URL: t.URL, Title: t.Title}
		if windowID, ok := c.targets.window(t.TargetID); ok {
			summary.WindowID = windowID
		}
		out = append(out, summary)
	}
	return out, nil
}

func (c *Client) Close() error {
	close(c.done)

	c.tabsMu.Lock()
	for _, tab := range c.tabs {
		tab.cancel()
	}
	c.tabs = make(map[target.ID]*tabContext)
	c.tabsMu.Unlock()

	if c.browserCancel != nil {
		c.browserCancel()
	}
	if c.allocCancel != nil {
		c.allocCancel()
	}

	slog.Info("CDP client closed")
	return nil
}

// GetTabCount returns the number of attached tabs.
func (c *Client) GetTabCount() int {
	c.tabsMu.RLock()
	defer c.tabsMu.RUnlock()
	return len(c.tabs)
}

func (c *Client) matchesTabURL(url string) bool {
	if c.urlFilter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(url), strings.ToLower(c.urlFilter))
}

func truncateURL(url string) string {
	if len(url) > 120 {
		return url[:120] + "..."
	}
	return url
}
