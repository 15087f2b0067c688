package depot

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hami-sh/2310ass4/internal/deferred"
	"github.com/hami-sh/2310ass4/internal/inventory"
	"github.com/hami-sh/2310ass4/internal/metrics"
	"github.com/hami-sh/2310ass4/internal/neighbour"
	"github.com/hami-sh/2310ass4/internal/protocol"
	"github.com/hami-sh/2310ass4/internal/transport"
)

const dialTimeout = 5 * time.Second

// work is the worker loop. It is the only caller of handle.
func (d *Depot) work(ctx context.Context) error {
	for {
		msg, err := d.inbox.pop(ctx)
		if err != nil {
			return nil
		}
		d.handle(msg)
	}
}

// handle applies one message. A bad message never stops the worker.
func (d *Depot) handle(msg *Message) {
	if msg.Kind == SignalDump {
		d.dump()
		return
	}

	// Lines queued behind a bad introduction die with their link.
	if msg.Link != nil && msg.Link.Closed() {
		d.drop(metrics.DropClosedLink, msg.Line)
		return
	}

	cmd, err := protocol.Parse(msg.Line)
	if err != nil {
		if msg.Link != nil && isIntroduction(msg.Line) {
			d.teardown(msg.Link, err.Error())
			return
		}
		d.drop(metrics.DropMalformed, msg.Line, zap.Error(err))
		return
	}
	d.metrics.Messages.WithLabelValues(cmd.Kind.String()).Inc()

	switch cmd.Kind {
	case protocol.KindConnect:
		d.connect(cmd.Port)
	case protocol.KindIM:
		d.introduce(msg.Link, cmd)
	case protocol.KindDeliver, protocol.KindWithdraw, protocol.KindTransfer:
		d.apply(cmd)
	case protocol.KindDefer:
		d.park(cmd, msg.Line)
	case protocol.KindExecute:
		d.execute(cmd.Key)
	}
}

// isIntroduction reports whether line claims to be an IM, however mangled.
func isIntroduction(line string) bool {
	keyword, _, _ := strings.Cut(line, ":")
	return keyword == protocol.KindIM.String()
}

func (d *Depot) drop(reason, line string, fields ...zap.Field) {
	d.metrics.Dropped.WithLabelValues(reason).Inc()
	d.log.Debug("message dropped", append(fields, zap.String("reason", reason), zap.String("line", line))...)
}

// connect dials the depot on port unless it is this depot or already a
// neighbour.
func (d *Depot) connect(port int) {
	line := protocol.Command{Kind: protocol.KindConnect, Port: port}.Encode()
	if port == d.cfg.Port {
		d.drop(metrics.DropOwnPort, line)
		return
	}
	if _, ok := d.neighbours.ByPort(port); ok {
		d.drop(metrics.DropDuplicate, line)
		return
	}

	ctx, cancel := context.WithTimeout(d.ctx, dialTimeout)
	conn, err := d.cfg.Dialer.Dial(ctx, port)
	cancel()
	if err != nil {
		d.drop(metrics.DropDialFailed, line, zap.Error(err))
		return
	}
	link := transport.NewLink(conn, true)
	d.neighbours.Record(neighbour.Connection{Port: port, Status: neighbour.Attempted, Link: link})
	d.log.Info("connected", zap.Int("peer_port", port), zap.String("link", link.ID()))
	d.spawnReader(link)
}

// introduce binds an IM to the link it arrived on. Anything that makes the
// introduction unusable closes the link.
func (d *Depot) introduce(link *transport.Link, cmd protocol.Command) {
	if link == nil {
		d.drop(metrics.DropMalformed, cmd.Encode())
		return
	}
	if cmd.Port == d.cfg.Port {
		d.teardown(link, "introduced with our own port")
		return
	}
	if other, ok := d.neighbours.ByPort(cmd.Port); ok && other.Link.ID() != link.ID() {
		d.teardown(link, "port already registered")
		return
	}
	own, ok := d.neighbours.ByLink(link.ID())
	if !ok {
		d.teardown(link, "link not registered")
		return
	}
	if own.Status == neighbour.Confirmed {
		d.teardown(link, "repeated introduction")
		return
	}

	d.neighbours.Confirm(link.ID(), cmd.Name, cmd.Port)
	d.metrics.Neighbours.Set(float64(d.neighbours.Confirmed()))
	d.log.Info("neighbour confirmed",
		zap.String("neighbour", cmd.Name),
		zap.Int("peer_port", cmd.Port),
		zap.String("link", link.ID()))

	// The dialing side introduced itself first; answer so it can confirm us.
	if !link.Outbound() {
		if err := link.Send(protocol.Introduce(d.cfg.Port, d.cfg.Name)); err != nil {
			d.log.Warn("introduction reply failed", zap.String("link", link.ID()), zap.Error(err))
		}
	}
}

// teardown closes link and forgets its registry entry.
func (d *Depot) teardown(link *transport.Link, reason string) {
	d.metrics.TornDown.Inc()
	d.neighbours.Remove(link.ID())
	d.metrics.Neighbours.Set(float64(d.neighbours.Confirmed()))
	if err := link.Close(); err != nil {
		d.log.Debug("close after bad introduction", zap.String("link", link.ID()), zap.Error(err))
	}
	d.log.Info("link torn down", zap.String("link", link.ID()), zap.String("reason", reason))
}

// apply runs an immediate goods command. Execute replays parked commands
// through here too.
func (d *Depot) apply(cmd protocol.Command) {
	item := inventory.Item{Name: cmd.Item, Count: cmd.Qty}
	switch cmd.Kind {
	case protocol.KindDeliver:
		d.goods.Add(item)
	case protocol.KindWithdraw:
		d.goods.Remove(item)
	case protocol.KindTransfer:
		dest, ok := d.neighbours.ByName(cmd.Destination)
		if !ok {
			d.drop(metrics.DropUnknownPeer, cmd.Encode())
			return
		}
		d.goods.Remove(item)
		if err := dest.Link.Send(protocol.Deliver(cmd.Qty, cmd.Item)); err != nil {
			d.log.Warn("transfer delivery failed",
				zap.String("neighbour", cmd.Destination),
				zap.String("item", cmd.Item),
				zap.Int("qty", cmd.Qty),
				zap.Error(err))
		}
	}
}

// park stores a Defer without running it. line is the Defer as received.
func (d *Depot) park(cmd protocol.Command, line string) {
	raw := strings.SplitN(strings.TrimSuffix(line, "\n"), ":", 3)[2]
	d.deferred.Add(deferred.Record{Key: cmd.Key, Command: *cmd.Deferred, Raw: raw})
	d.metrics.DeferredQueued.Set(float64(d.deferred.Len()))
}

// execute replays the batch under key in the order it was deferred and
// removes it.
func (d *Depot) execute(key uint64) {
	n := d.deferred.ExecuteAndPurge(key, func(rec deferred.Record) {
		d.log.Debug("replaying deferred command", zap.Uint64("key", key), zap.String("command", rec.Raw))
		d.apply(rec.Command)
	})
	d.metrics.DeferredQueued.Set(float64(d.deferred.Len()))
	d.log.Debug("executed batch", zap.Uint64("key", key), zap.Int("commands", n))
}
