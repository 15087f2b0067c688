package transport

import (
	"bufio"
	"errors"
	"net"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// ErrClosed is returned by Send on a link that has been closed.
var ErrClosed = errors.New("transport: link closed")

// Link is one peer connection split into a line reader and a line writer.
// The reader side belongs to a single goroutine. Send may be called from
// any goroutine.
type Link struct {
	id       string
	conn     net.Conn
	outbound bool
	r        *bufio.Reader

	wmu sync.Mutex
	w   *bufio.Writer

	closeOnce sync.Once
	closed    atomic.Bool
}

// NewLink wraps conn. outbound marks links this depot dialed.
func NewLink(conn net.Conn, outbound bool) *Link {
	return &Link{
		id:       uuid.NewString(),
		conn:     conn,
		outbound: outbound,
		r:        bufio.NewReader(conn),
		w:        bufio.NewWriter(conn),
	}
}

func (l *Link) ID() string { return l.id }

func (l *Link) Outbound() bool { return l.outbound }

func (l *Link) RemoteAddr() string {
	if a := l.conn.RemoteAddr(); a != nil {
		return a.String()
	}
	return ""
}

// ReadLine returns the next line without its terminating newline. Only
// complete lines are returned: bytes left unterminated when the peer hangs
// up are discarded and ReadLine reports io.EOF.
func (l *Link) ReadLine() (string, error) {
	line, err := l.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(line, "\n"), nil
}

// Closed reports whether Close has been called.
func (l *Link) Closed() bool { return l.closed.Load() }

// Send writes line and flushes it. line should carry its own newline.
func (l *Link) Send(line string) error {
	if l.closed.Load() {
		return ErrClosed
	}
	l.wmu.Lock()
	defer l.wmu.Unlock()
	if _, err := l.w.WriteString(line); err != nil {
		return err
	}
	return l.w.Flush()
}

// Close shuts the socket down, releasing both the read and the write side.
// A blocked ReadLine or Send returns with an error. Closing twice is a no-op.
func (l *Link) Close() error {
	var err error
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		if cw, ok := l.conn.(interface{ CloseWrite() error }); ok {
			err = cw.CloseWrite()
		}
		err = multierr.Append(err, l.conn.Close())
	})
	return err
}
