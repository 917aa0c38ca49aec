package socket

import (
	"fmt"
	"net"
	"time"

	"github.com/jpillora/backoff"
)

// Dial connects to the local stream socket at endpoint and wraps it.
func Dial(endpoint string) (*Socket, error) {
	conn, err := net.Dial("unix", endpoint)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// DialRetry connects to the local stream socket at endpoint, retrying with
// exponential backoff while the server side is not yet listening.
//
// A negative retries means retry until timeout; a timeout <= 0 means no
// overall deadline. With retries < 0 and timeout <= 0 the call blocks until
// the connect succeeds.
func DialRetry(endpoint string, retries int, timeout time.Duration) (*Socket, error) {
	b := &backoff.Backoff{
		Factor: 2,
		Jitter: true,
		Min:    50 * time.Millisecond,
		Max:    1 * time.Second,
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		sock, err := Dial(endpoint)
		if err == nil {
			return sock, nil
		}
		lastErr = err

		if retries >= 0 && attempt >= retries {
			return nil, fmt.Errorf("socket: failed to connect to %s after %d attempt(s): %w", endpoint, attempt+1, lastErr)
		}

		wait := b.Duration()
		if !deadline.IsZero() {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return nil, fmt.Errorf("socket: failed to connect to %s within %s: %w", endpoint, timeout, lastErr)
			}
			if wait > remaining {
				wait = remaining
			}
		}

		Logger.Debugf("connect to %s failed (%v), retrying in %s", endpoint, err, wait)
		time.Sleep(wait)
	}
}
