package cdp

import (
	"testing"

	"github.com/chromedp/cdproto/target"
)

func TestTargetTable(t *testing.T) {
	tbl := newTargetTable()
	tbl.put(target.ID("tab-1"), "win-1")
	tbl.put(target.ID("tab-2"), "win-1")
	tbl.put(target.ID("tab-3"), "win-2")

	if got := tbl.count(); got != 3 {
		t.Fatalf("count() = %d, want 3", got)
	}
	if w, ok := tbl.window(target.ID("tab-2")); !ok || w != "win-1" {
		t.Fatalf("window(tab-2) = %q, %v", w, ok)
	}
	if _, ok := tbl.window(target.ID("tab-9")); ok {
		t.Fatalf("window() found an unknown tab")
	}

	// Removing one of two tabs does not empty the window.
	if w, empty := tbl.remove(target.ID("tab-1")); w != "win-1" || empty {
		t.Fatalf("remove(tab-1) = %q, %v; want win-1, false", w, empty)
	}
	// Removing the last tab does.
	if w, empty := tbl.remove(target.ID("tab-2")); w != "win-1" || !empty {
		t.Fatalf("remove(tab-2) = %q, %v; want win-1, true", w, empty)
	}
	// Unknown tabs are a no-op.
	if w, empty := tbl.remove(target.ID("tab-2")); w != "" || empty {
		t.Fatalf("second remove(tab-2) = %q, %v", w, empty)
	}
	if got := tbl.count(); got != 1 {
		t.Fatalf("count() = %d, want 1", got)
	}
}
