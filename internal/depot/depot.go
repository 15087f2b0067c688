// Package depot implements the depot node engine.
//
// Design:
//   - One goroutine per peer link reads lines and pushes them onto the inbox.
//   - One worker goroutine pops messages and applies them. It is the only
//     goroutine that touches the inventory and the deferred store, so neither
//     needs a lock.
//   - The neighbour registry has its own lock because the accept loop records
//     inbound links while the worker is dispatching.
//   - Dump requests (SIGHUP in the binary) travel through the same inbox, so a
//     dump always reflects the state between two processed messages.
package depot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hami-sh/2310ass4/internal/deferred"
	"github.com/hami-sh/2310ass4/internal/inventory"
	"github.com/hami-sh/2310ass4/internal/metrics"
	"github.com/hami-sh/2310ass4/internal/neighbour"
	"github.com/hami-sh/2310ass4/internal/protocol"
	"github.com/hami-sh/2310ass4/internal/transport"
)

// DefaultQueueCapacity is the inbox size when Config leaves it unset.
const DefaultQueueCapacity = 10

var (
	ErrInvalidName = errors.New("depot: invalid name")
	ErrInvalidPort = errors.New("depot: invalid listening port")
	ErrNotStarted  = errors.New("depot: not started")
)

// Config configures a Depot.
type Config struct {
	Name          string           // this depot's name, announced in IM
	Port          int              // port this depot listens on
	Items         []inventory.Item // starting stock
	QueueCapacity int              // inbox size; defaults to DefaultQueueCapacity
	Dialer        transport.Dialer // defaults to TCP on localhost
	Out           io.Writer        // dump destination; defaults to os.Stdout
	Signals       <-chan os.Signal // each receive triggers a dump; may be nil
	Logger        *zap.Logger      // defaults to a no-op logger
	Metrics       *metrics.Metrics // defaults to a fresh set
}

// Depot is one node of the network.
type Depot struct {
	cfg     Config
	log     *zap.Logger
	metrics *metrics.Metrics
	inbox   *inbox

	// Owned by the worker goroutine.
	goods    *inventory.Store
	deferred *deferred.Store

	neighbours *neighbour.Registry

	ctx     context.Context
	cancel  context.CancelFunc
	group   *errgroup.Group
	readers sync.WaitGroup

	// acceptMu orders inbound registration against Stop: once stopping is
	// set no new link is recorded or given a reader.
	acceptMu sync.Mutex
	stopping bool

	startOnce sync.Once
	stopOnce  sync.Once
	stopErr   error
}

// New validates cfg and builds a Depot. Nothing runs until Start.
func New(cfg Config) (*Depot, error) {
	if !protocol.ValidName(cfg.Name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, cfg.Name)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPort, cfg.Port)
	}
	for _, it := range cfg.Items {
		if !protocol.ValidName(it.Name) {
			return nil, fmt.Errorf("%w: item %q", ErrInvalidName, it.Name)
		}
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = DefaultQueueCapacity
	}
	if cfg.Dialer == nil {
		cfg.Dialer = transport.NewTCP()
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Depot{
		cfg:        cfg,
		log:        cfg.Logger.With(zap.String("depot", cfg.Name), zap.Int("port", cfg.Port)),
		metrics:    cfg.Metrics,
		inbox:      newInbox(cfg.QueueCapacity, cfg.Metrics),
		goods:      inventory.New(cfg.Items...),
		deferred:   deferred.New(),
		neighbours: neighbour.New(),
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

func (d *Depot) Name() string { return d.cfg.Name }

func (d *Depot) Port() int { return d.cfg.Port }

// Start launches the worker and, if configured, the signal watcher.
// Calling Start more than once has no further effect.
func (d *Depot) Start() {
	d.startOnce.Do(func() {
		g, ctx := errgroup.WithContext(d.ctx)
		g.Go(func() error { return d.work(ctx) })
		if d.cfg.Signals != nil {
			g.Go(func() error { return d.watchSignals(ctx) })
		}
		d.group = g
		d.log.Info("depot started", zap.Int("queue", d.cfg.QueueCapacity))
	})
}

// Stop halts the worker, closes every peer link and waits for the readers
// to finish. Messages still queued are discarded. A Serve still running
// returns at its next accept; closing its listener makes that immediate.
func (d *Depot) Stop() error {
	d.stopOnce.Do(func() {
		d.acceptMu.Lock()
		d.stopping = true
		d.acceptMu.Unlock()

		d.cancel()
		var err error
		if d.group != nil {
			err = d.group.Wait()
		}
		err = multierr.Append(err, d.neighbours.CloseAll())
		d.readers.Wait()
		if n := d.inbox.drain(); n > 0 {
			d.log.Debug("discarded queued messages", zap.Int("count", n))
		}
		d.stopErr = err
		d.log.Info("depot stopped")
	})
	return d.stopErr
}

// Serve accepts inbound peers on ln until accepting fails. It returns nil if
// the failure was caused by Stop or by ln being closed. Start must be called
// first.
func (d *Depot) Serve(ln net.Listener) error {
	if d.group == nil {
		return ErrNotStarted
	}
	for {
		conn, err := ln.Accept()
		if err != nil {
			if d.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("depot: accept: %w", err)
		}
		if !d.accept(conn) {
			conn.Close()
			return nil
		}
	}
}

// accept records conn as an inbound link and starts its reader. It reports
// false once Stop has begun.
func (d *Depot) accept(conn net.Conn) bool {
	d.acceptMu.Lock()
	defer d.acceptMu.Unlock()
	if d.stopping {
		return false
	}
	link := transport.NewLink(conn, false)
	d.neighbours.Record(neighbour.Connection{Status: neighbour.Attempted, Link: link})
	d.log.Debug("accepted link", zap.String("link", link.ID()), zap.String("remote", link.RemoteAddr()))
	d.spawnReader(link)
	return true
}

// Submit queues line as if a peer had sent it, but with no link attached.
// An IM submitted this way is dropped since there is no link to bind.
func (d *Depot) Submit(line string) error {
	return d.inbox.push(d.ctx, &Message{Kind: PeerLine, Line: line})
}

// Connect asks the worker to open an outbound link to the depot on port.
func (d *Depot) Connect(port int) error {
	return d.Submit(protocol.Command{Kind: protocol.KindConnect, Port: port}.Encode())
}

// RequestDump asks the worker to write the depot's state to Config.Out.
func (d *Depot) RequestDump() error {
	return d.inbox.push(d.ctx, &Message{Kind: SignalDump})
}

func (d *Depot) watchSignals(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-d.cfg.Signals:
			if !ok {
				return nil
			}
			if err := d.inbox.push(ctx, &Message{Kind: SignalDump}); err != nil {
				return nil
			}
		}
	}
}
