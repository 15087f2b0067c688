package transport

import (
	"context"
	"net"
	"strconv"
	"time"
)

const defaultDialTimeout = 5 * time.Second

// TCPDialer dials depots on Host (localhost when empty).
type TCPDialer struct {
	Host    string
	Timeout time.Duration
}

// NewTCP returns a dialer for depots on the local host.
func NewTCP() *TCPDialer {
	return &TCPDialer{Host: "localhost", Timeout: defaultDialTimeout}
}

func (d *TCPDialer) Dial(ctx context.Context, port int) (net.Conn, error) {
	host := d.Host
	if host == "" {
		host = "localhost"
	}
	timeout := d.Timeout
	if timeout == 0 {
		timeout = defaultDialTimeout
	}
	nd := net.Dialer{Timeout: timeout}
	return nd.DialContext(ctx, "tcp4", net.JoinHostPort(host, strconv.Itoa(port)))
}

// Listen binds a TCP listener on addr ("localhost:0" picks a free port).
func Listen(addr string) (net.Listener, error) {
	return net.Listen("tcp4", addr)
}
