// Package transport provides depot peer links and the ways to open them:
// TCP for production and an in-process network for tests.
package transport

import (
	"context"
	"net"
)

// Dialer opens an outbound connection to a depot listening on port.
// Depots address each other by port alone; every peer is on the same host.
type Dialer interface {
	Dial(ctx context.Context, port int) (net.Conn, error)
}

// ListenerPort returns the port ln is bound to, or 0 if it cannot tell.
func ListenerPort(ln net.Listener) int {
	switch a := ln.Addr().(type) {
	case *net.TCPAddr:
		return a.Port
	case memAddr:
		return int(a)
	}
	return 0
}
