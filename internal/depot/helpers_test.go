package depot

import (
	"bytes"
	"context"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hami-sh/2310ass4/internal/inventory"
	"github.com/hami-sh/2310ass4/internal/neighbour"
	"github.com/hami-sh/2310ass4/internal/transport"
)

// syncBuffer is a bytes.Buffer safe to write from the worker while a test
// reads it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	b.buf.Reset()
	b.mu.Unlock()
}

// countingDialer records the ports it was asked to dial and refuses them.
type countingDialer struct {
	mu    sync.Mutex
	ports []int
}

func (c *countingDialer) Dial(ctx context.Context, port int) (net.Conn, error) {
	c.mu.Lock()
	c.ports = append(c.ports, port)
	c.mu.Unlock()
	return nil, &net.OpError{Op: "dial", Net: "tcp", Err: net.UnknownNetworkError("refused")}
}

func (c *countingDialer) calls() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.ports...)
}

func newTestDepot(t *testing.T, cfg Config) (*Depot, *syncBuffer) {
	t.Helper()
	out := &syncBuffer{}
	if cfg.Name == "" {
		cfg.Name = "hub"
	}
	if cfg.Port == 0 {
		cfg.Port = 4000
	}
	cfg.Out = out
	d, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { d.Stop() }) //nolint:errcheck
	return d, out
}

// peerLink returns a depot-side link and the remote end of it. The link is
// recorded in the registry as an inbound, not yet introduced, neighbour.
func peerLink(t *testing.T, d *Depot) (*transport.Link, *transport.Link) {
	t.Helper()
	local, remote := net.Pipe()
	link := transport.NewLink(local, false)
	d.neighbours.Record(neighbour.Connection{Status: neighbour.Attempted, Link: link})
	peer := transport.NewLink(remote, true)
	t.Cleanup(func() {
		link.Close()
		peer.Close()
	})
	return link, peer
}

// readAsync reads one line from l in the background. net.Pipe is unbuffered,
// so a reader must be waiting before the depot writes.
func readAsync(l *transport.Link) <-chan string {
	ch := make(chan string, 1)
	go func() {
		line, err := l.ReadLine()
		if err != nil {
			close(ch)
			return
		}
		ch <- line
	}()
	return ch
}

func recv(t *testing.T, ch <-chan string) (string, bool) {
	t.Helper()
	select {
	case line, ok := <-ch:
		return line, ok
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for peer read")
		return "", false
	}
}

func feed(d *Depot, link *transport.Link, lines ...string) {
	for _, line := range lines {
		d.handle(&Message{Kind: PeerLine, Line: strings.TrimSuffix(line, "\n"), Link: link})
	}
}

func count(t *testing.T, d *Depot, name string) int {
	t.Helper()
	n, ok := d.goods.Count(name)
	require.True(t, ok, "no entry for %q", name)
	return n
}

// dumpOf triggers a dump on a running depot and returns it.
func dumpOf(d *Depot, out *syncBuffer) string {
	out.Reset()
	if err := d.RequestDump(); err != nil {
		return ""
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s := out.String(); s != "" {
			return s
		}
		time.Sleep(2 * time.Millisecond)
	}
	return ""
}

func requireDump(t *testing.T, d *Depot, out *syncBuffer, want string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return dumpOf(d, out) == want
	}, 5*time.Second, 20*time.Millisecond, "dump never became:\n%s", want)
}

func items(pairs ...any) []inventory.Item {
	var out []inventory.Item
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, inventory.Item{Name: pairs[i].(string), Count: pairs[i+1].(int)})
	}
	return out
}

func itoa(n int) string { return strconv.Itoa(n) }
