package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.CDPPort != 9222 {
		t.Fatalf("CDPPort = %d, want 9222", cfg.CDPPort)
	}
	if cfg.BindAddr != "127.0.0.1:8780" {
		t.Fatalf("BindAddr = %q", cfg.BindAddr)
	}
	if len(cfg.PortCandidates) != 2 {
		t.Fatalf("PortCandidates = %v", cfg.PortCandidates)
	}
	if !cfg.PortAutoFallback || cfg.ArchiveEnabled {
		t.Fatalf("flag defaults wrong: fallback=%v archive=%v", cfg.PortAutoFallback, cfg.ArchiveEnabled)
	}
	if cfg.GetCDPURL() != "http://127.0.0.1:9222" {
		t.Fatalf("GetCDPURL() = %q", cfg.GetCDPURL())
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SAMLTRACE_CDP_PORT", "9333")
	t.Setenv("SAMLTRACE_PORT_CANDIDATES", "127.0.0.1:9001, 127.0.0.1:9002,")
	t.Setenv("SAMLTRACE_ARCHIVE", "true")
	t.Setenv("SAMLTRACE_TAB_URL_FILTER", "example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.CDPPort != 9333 {
		t.Fatalf("CDPPort = %d, want 9333", cfg.CDPPort)
	}
	if len(cfg.PortCandidates) != 2 || cfg.PortCandidates[1] != "127.0.0.1:9002" {
		t.Fatalf("PortCandidates = %v", cfg.PortCandidates)
	}
	if !cfg.ArchiveEnabled {
		t.Fatalf("ArchiveEnabled = false, want true")
	}
	if cfg.TabURLFilter != "example.com" {
		t.Fatalf("TabURLFilter = %q", cfg.TabURLFilter)
	}
}

func TestEnvHelpersIgnoreMalformedValues(t *testing.T) {
	t.Setenv("SAMLTRACE_CDP_PORT", "not-a-number")
	t.Setenv("SAMLTRACE_ARCHIVE", "sometimes")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.CDPPort != 9222 {
		t.Fatalf("CDPPort = %d, want default 9222", cfg.CDPPort)
	}
	if cfg.ArchiveEnabled {
		t.Fatalf("ArchiveEnabled = true, want default false")
	}
}
