package transport

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
)

// Network is an in-process stand-in for localhost used by tests. Listeners
// are registered under a port number; dialing that port hands the listener
// one end of a net.Pipe.
type Network struct {
	mu        sync.Mutex
	listeners map[int]*MemoryListener
	nextPort  int
}

// NewNetwork returns an empty network. Ports are assigned from 20000 up.
func NewNetwork() *Network {
	return &Network{
		listeners: make(map[int]*MemoryListener),
		nextPort:  20000,
	}
}

// Listen registers a listener on the next free port.
func (n *Network) Listen() *MemoryListener {
	n.mu.Lock()
	defer n.mu.Unlock()
	for {
		n.nextPort++
		if _, taken := n.listeners[n.nextPort]; !taken {
			break
		}
	}
	l := &MemoryListener{
		net:     n,
		port:    n.nextPort,
		accepts: make(chan net.Conn, 16),
		done:    make(chan struct{}),
	}
	n.listeners[l.port] = l
	return l
}

func (n *Network) Dial(ctx context.Context, port int) (net.Conn, error) {
	n.mu.Lock()
	l, ok := n.listeners[port]
	n.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("memory transport: connection refused on port %d", port)
	}

	local, remote := net.Pipe()
	select {
	case l.accepts <- remote:
		return local, nil
	case <-l.done:
	case <-ctx.Done():
	}
	local.Close()
	remote.Close()
	return nil, fmt.Errorf("memory transport: connection refused on port %d", port)
}

// MemoryListener implements net.Listener for a Network.
type MemoryListener struct {
	net     *Network
	port    int
	accepts chan net.Conn
	once    sync.Once
	done    chan struct{}
}

func (l *MemoryListener) Port() int { return l.port }

func (l *MemoryListener) Accept() (net.Conn, error) {
	select {
	case c := <-l.accepts:
		return c, nil
	case <-l.done:
		return nil, net.ErrClosed
	}
}

func (l *MemoryListener) Close() error {
	l.once.Do(func() {
		close(l.done)
		l.net.mu.Lock()
		delete(l.net.listeners, l.port)
		l.net.mu.Unlock()
	})
	return nil
}

func (l *MemoryListener) Addr() net.Addr { return memAddr(l.port) }

type memAddr int

func (a memAddr) Network() string { return "memory" }
func (a memAddr) String() string  { return "localhost:" + strconv.Itoa(int(a)) }
