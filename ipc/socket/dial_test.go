package socket

import (
	"net"
	"path/filepath"
	"testing"
	"time"
)

// TestDialRetryWaitsForListener tests that DialRetry keeps retrying until
// the server side starts listening
func TestDialRetryWaitsForListener(t *testing.T) {
	endpoint := filepath.Join(t.TempDir(), "late.sock")

	lnCh := make(chan net.Listener, 1)
	go func() {
		// The server comes up only after the client started dialing.
		time.Sleep(150 * time.Millisecond)
		ln, err := net.Listen("unix", endpoint)
		if err != nil {
			t.Error(err)
			return
		}
		lnCh <- ln
		c, err := ln.Accept()
		if err == nil {
			_ = c.Close()
		}
	}()

	s, err := DialRetry(endpoint, -1, 10*time.Second)
	if err != nil {
		t.Fatalf("DialRetry failed: %v", err)
	}
	_ = s.Close()

	if ln := <-lnCh; ln != nil {
		_ = ln.Close()
	}
}

// TestDialRetryFailsFast tests that zero retries yield exactly one attempt
func TestDialRetryFailsFast(t *testing.T) {
	endpoint := filepath.Join(t.TempDir(), "nobody-home.sock")

	start := time.Now()
	_, err := DialRetry(endpoint, 0, 0)
	if err == nil {
		t.Fatal("expected connect error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("single attempt took %s, no backoff expected", elapsed)
	}
}

// TestDialRetryTimeout tests that the overall deadline bounds unlimited
// retries
func TestDialRetryTimeout(t *testing.T) {
	endpoint := filepath.Join(t.TempDir(), "nobody-home.sock")

	start := time.Now()
	_, err := DialRetry(endpoint, -1, 200*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("timed-out dial took %s", elapsed)
	}
}
