package transport

import (
	"context"
	"sync"
)

// Pool caches live connections by remote address so repeated Connect
// calls to the same peer reuse one QUIC connection and its open
// streams instead of re-handshaking.
type Pool struct {
	endpoint *Endpoint
	mu       sync.Mutex
	conns    map[string]*Connection
}

// NewPool creates a pool that dials through endpoint on a cache miss.
func NewPool(endpoint *Endpoint) *Pool {
	return &Pool{endpoint: endpoint, conns: make(map[string]*Connection)}
}

// Get returns a cached connection to nameOrIPv6:port, dialing one if
// none exists yet.
func (p *Pool) Get(ctx context.Context, nameOrIPv6 string, port int) (*Connection, error) {
	key := nameOrIPv6
	p.mu.Lock()
	if c, ok := p.conns[key]; ok {
		p.mu.Unlock()
		return c, nil
	}
	p.mu.Unlock()

	c, err := p.endpoint.Connect(ctx, nameOrIPv6, port)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.conns[key] = c
	p.mu.Unlock()
	return c, nil
}

// Evict drops a connection from the pool, e.g. after it closes due to
// a transient I/O error, so the next Get dials fresh.
func (p *Pool) Evict(nameOrIPv6 string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.conns, nameOrIPv6)
}

// CloseAll closes every pooled connection.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for k, c := range p.conns {
		c.Close()
		delete(p.conns, k)
	}
}
