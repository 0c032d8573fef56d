package server

import (
	"math/rand"
	"sort"
	"sync"
)

// Port range the broker draws from: the registered/dynamic range, leaving
// the well-known ports alone.
const (
	portMin = 1024
	portMax = 49151
)

// PortBroker hands out listening ports that no other part of the process
// is using. The in-use set is shared by every concurrently dispatched job,
// so all access goes through the mutex. A leased port must be bound
// immediately: a port that is merely unleased is not guaranteed free at
// the OS level.
type PortBroker struct {
	mu    sync.Mutex
	inUse map[int]struct{}
}

// NewPortBroker reserves the given ports for the life of the process
// (typically the server's own listening port).
func NewPortBroker(reserved ...int) *PortBroker {
	b := &PortBroker{inUse: make(map[int]struct{})}
	for _, p := range reserved {
		b.inUse[p] = struct{}{}
	}
	return b
}

// Lease picks a uniformly random unused port, marks it in use, and returns
// it. Collisions are retried with a fresh draw; the port space is large
// relative to concurrent conversations so there is no retry bound.
func (b *PortBroker) Lease() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	for {
		port := portMin + rand.Intn(portMax-portMin)
		if _, taken := b.inUse[port]; !taken {
			b.inUse[port] = struct{}{}
			return port
		}
	}
}

// Reserve marks an externally chosen port (a client's callback port) as in
// use so it can never be handed out as an ephemeral lease.
func (b *PortBroker) Reserve(port int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inUse[port] = struct{}{}
}

// Release removes the port from the in-use set unconditionally.
func (b *PortBroker) Release(port int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.inUse, port)
}

// InUse reports whether the port is currently leased or reserved.
func (b *PortBroker) InUse(port int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, taken := b.inUse[port]
	return taken
}

// Leased returns a sorted snapshot of the in-use set.
func (b *PortBroker) Leased() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]int, 0, len(b.inUse))
	for p := range b.inUse {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}
