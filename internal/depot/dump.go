package depot

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// dump writes the goods (sorted, zero counts left out) and the confirmed
// neighbours (sorted) to Config.Out.
func (d *Depot) dump() {
	var b strings.Builder
	b.WriteString("Goods:\n")
	for _, it := range d.goods.Snapshot() {
		fmt.Fprintf(&b, "%s %d\n", it.Name, it.Count)
	}
	b.WriteString("Neighbours:\n")
	for _, name := range d.neighbours.Names() {
		b.WriteString(name)
		b.WriteByte('\n')
	}
	if _, err := io.WriteString(d.cfg.Out, b.String()); err != nil {
		d.log.Warn("dump failed", zap.Error(err))
		return
	}
	d.metrics.Dumps.Inc()
}
