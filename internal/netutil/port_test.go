package netutil

import (
	"net"
	"testing"
)

func TestPickBindAddrPreferredFree(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	got, err := PickBindAddr(addr, nil, false)
	if err != nil {
		t.Fatalf("PickBindAddr() error = %v", err)
	}
	if got != addr {
		t.Fatalf("PickBindAddr() = %q, want %q", got, addr)
	}
}

func TestPickBindAddrFallback(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen busy: %v", err)
	}
	defer func() { _ = busy.Close() }()

	free, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen free: %v", err)
	}
	freeAddr := free.Addr().String()
	_ = free.Close()

	got, err := PickBindAddr(busy.Addr().String(), []string{busy.Addr().String(), freeAddr}, true)
	if err != nil {
		t.Fatalf("PickBindAddr() error = %v", err)
	}
	if got != freeAddr {
		t.Fatalf("PickBindAddr() = %q, want %q", got, freeAddr)
	}
}

func TestPickBindAddrNoFallbackFails(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen busy: %v", err)
	}
	defer func() { _ = busy.Close() }()

	if _, err := PickBindAddr(busy.Addr().String(), nil, false); err == nil {
		t.Fatalf("PickBindAddr() expected error for busy address without fallback")
	}
}
