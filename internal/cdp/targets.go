package cdp

import (
	"sync"

	"github.com/chromedp/cdproto/target"
)

// TargetSummary describes an attachable page target.
type TargetSummary struct {
	TabID    string `json:"tab_id"`
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
	WindowID string `json:"window_id,omitempty"`
}

// targetTable tracks which browser window each attached tab belongs to,
// so window-close can be derived from the last tab of a window going away.
type targetTable struct {
	mu      sync.RWMutex
	windows map[target.ID]string         // tab → window
	tabs    map[string]map[target.ID]bool // window → tabs
}

func newTargetTable() *targetTable {
	return &targetTable{
		windows: make(map[target.ID]string),
		tabs:    make(map[string]map[target.ID]bool),
	}
}

func (t *targetTable) put(tabID target.ID, windowID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.windows[tabID] = windowID
	if t.tabs[windowID] == nil {
		t.tabs[windowID] = make(map[target.ID]bool)
	}
	t.tabs[windowID][tabID] = true
}

func (t *targetTable) window(tabID target.ID) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	w, ok := t.windows[tabID]
	return w, ok
}

// remove drops the tab and reports whether its window is now empty.
func (t *targetTable) remove(tabID target.ID) (windowID string, windowEmpty bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	windowID, ok := t.windows[tabID]
	if !ok {
		return "", false
	}
	delete(t.windows, tabID)
	if set := t.tabs[windowID]; set != nil {
		delete(set, tabID)
		if len(set) == 0 {
			delete(t.tabs, windowID)
			return windowID, true
		}
	}
	return windowID, false
}

func (t *targetTable) count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.windows)
}
