// Package probe checks whether something is already listening on a TCP address.
package probe

import (
	"context"
	"net"
	"time"
)

// DefaultTimeout bounds a single probe attempt
const DefaultTimeout = 1000 * time.Millisecond

// Func reports whether addr accepts TCP connections
type Func func(ctx context.Context, addr string, timeout time.Duration) bool

// IsOpen makes a single connection attempt to addr and reports whether it succeeded.
// Errors, timeouts and context cancellation all count as closed. The probing
// connection is closed before returning.
func IsOpen(ctx context.Context, addr string, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
