// Package neighbour tracks the peer connections of a depot.
package neighbour

import (
	"sort"
	"sync"

	"go.uber.org/multierr"
)

// Status of a neighbour connection.
type Status int

const (
	// Attempted connections have a socket but no introduction yet.
	Attempted Status = iota
	// Confirmed connections have introduced themselves with IM.
	Confirmed
)

func (s Status) String() string {
	if s == Confirmed {
		return "confirmed"
	}
	return "attempted"
}

// Link is the registry's view of a peer socket.
type Link interface {
	ID() string
	Send(line string) error
	Close() error
}

// Connection is one registered peer. Port is the peer's listening port, or
// 0 while an inbound peer has not introduced itself.
type Connection struct {
	Name   string
	Port   int
	Status Status
	Link   Link
}

// Registry is safe for concurrent use. It does not enforce port uniqueness;
// callers check ByPort before recording.
type Registry struct {
	mu    sync.Mutex
	conns []Connection
}

func New() *Registry {
	return &Registry{}
}

// Record appends c.
func (r *Registry) Record(c Connection) {
	r.mu.Lock()
	r.conns = append(r.conns, c)
	r.mu.Unlock()
}

// ByPort returns the connection registered with a known port.
func (r *Registry) ByPort(port int) (Connection, bool) {
	if port == 0 {
		return Connection{}, false
	}
	return r.find(func(c *Connection) bool { return c.Port == port })
}

// ByName returns the confirmed connection introduced as name.
func (r *Registry) ByName(name string) (Connection, bool) {
	return r.find(func(c *Connection) bool { return c.Status == Confirmed && c.Name == name })
}

// ByLink returns the connection carried by the link with the given ID.
func (r *Registry) ByLink(id string) (Connection, bool) {
	return r.find(func(c *Connection) bool { return c.Link != nil && c.Link.ID() == id })
}

// Confirm marks the connection carried by link id as introduced under name
// and port. It returns false if no such connection is recorded.
func (r *Registry) Confirm(id, name string, port int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.conns {
		c := &r.conns[i]
		if c.Link != nil && c.Link.ID() == id {
			c.Name = name
			c.Port = port
			c.Status = Confirmed
			return true
		}
	}
	return false
}

// Remove drops the connection carried by link id, keeping the order of the
// others. It does not close the link.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.conns {
		if r.conns[i].Link != nil && r.conns[i].Link.ID() == id {
			r.conns = append(r.conns[:i], r.conns[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// Confirmed returns the number of introduced neighbours.
func (r *Registry) Confirmed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.conns {
		if c.Status == Confirmed {
			n++
		}
	}
	return n
}

// Names returns the names of confirmed neighbours, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	names := make([]string, 0, len(r.conns))
	for _, c := range r.conns {
		if c.Status == Confirmed {
			names = append(names, c.Name)
		}
	}
	r.mu.Unlock()
	sort.Strings(names)
	return names
}

// All returns a copy of every connection in registration order.
func (r *Registry) All() []Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Connection, len(r.conns))
	copy(out, r.conns)
	return out
}

// CloseAll closes every link and empties the registry.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	conns := r.conns
	r.conns = nil
	r.mu.Unlock()

	var err error
	for _, c := range conns {
		if c.Link != nil {
			err = multierr.Append(err, c.Link.Close())
		}
	}
	return err
}

func (r *Registry) find(match func(*Connection) bool) (Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.conns {
		if match(&r.conns[i]) {
			return r.conns[i], true
		}
	}
	return Connection{}, false
}
