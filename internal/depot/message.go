package depot

import "github.com/hami-sh/2310ass4/internal/transport"

// MessageKind says where a queued message came from.
type MessageKind int

const (
	// PeerLine is one line read from a peer link, or submitted locally when
	// Link is nil.
	PeerLine MessageKind = iota
	// SignalDump asks the worker to print the depot's state.
	SignalDump
)

func (k MessageKind) String() string {
	switch k {
	case PeerLine:
		return "peer_line"
	case SignalDump:
		return "signal_dump"
	}
	return "unknown"
}

// Message is the unit handed from readers to the worker. Each message is
// consumed exactly once.
type Message struct {
	Kind MessageKind
	Line string
	Link *transport.Link
}
