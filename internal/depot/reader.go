package depot

import (
	"go.uber.org/zap"

	"github.com/hami-sh/2310ass4/internal/protocol"
	"github.com/hami-sh/2310ass4/internal/transport"
)

func (d *Depot) spawnReader(link *transport.Link) {
	d.readers.Add(1)
	go func() {
		defer d.readers.Done()
		d.readLoop(link)
	}()
}

// readLoop feeds every line from link into the inbox until the peer hangs
// up. Outbound links introduce this depot first. The loop never closes the
// link; the worker does that after a bad introduction, and Stop does it on
// shutdown.
func (d *Depot) readLoop(link *transport.Link) {
	log := d.log.With(zap.String("link", link.ID()), zap.Bool("outbound", link.Outbound()))
	if link.Outbound() {
		if err := link.Send(protocol.Introduce(d.cfg.Port, d.cfg.Name)); err != nil {
			log.Warn("introduction failed", zap.Error(err))
			return
		}
	}
	for {
		line, err := link.ReadLine()
		if err != nil {
			log.Debug("link read ended", zap.Error(err))
			return
		}
		if err := d.inbox.push(d.ctx, &Message{Kind: PeerLine, Line: line, Link: link}); err != nil {
			return
		}
	}
}
