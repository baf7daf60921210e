package netutil

import (
	"errors"
	"fmt"
	"net"
)

// PickBindAddr picks an available bind address for the control API. The
// preferred address wins when free; otherwise the fallback candidates are
// probed in order, unless fallback is disabled.
func PickBindAddr(preferred string, fallbacks []string, allowFallback bool) (string, error) {
	if preferred != "" {
		free, err := addrFree(preferred)
		if err != nil {
			return "", err
		}
		if free {
			return preferred, nil
		}
		if !allowFallback {
			return "", fmt.Errorf("preferred bind address in use: %s", preferred)
		}
	}

	for _, addr := range fallbacks {
		free, err := addrFree(addr)
		if err != nil {
			return "", err
		}
		if free {
			return addr, nil
		}
	}

	return "", errors.New("no available tracer bind addresses")
}

// addrFree probes an address by briefly listening on it.
func addrFree(addr string) (bool, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return false, nil
	}
	if closeErr := ln.Close(); closeErr != nil {
		return false, closeErr
	}
	return true, nil
}
