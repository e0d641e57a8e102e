package sshexec

import (
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	gwerrors "github.com/stacklok/mcpgateway/pkg/errors"
)

// poolKey identifies a pooled connection by host, port, username, and
// a fingerprint of the credential used to establish it — distinct
// credentials against the same host never share a connection.
type poolKey struct {
	host        string
	port        int
	username    string
	fingerprint string
}

type pooledConn struct {
	client     *ssh.Client
	lastUsedAt time.Time
}

// pool is a capped, keepalive connection pool keyed by poolKey. Idle
// connections beyond the configured linger are closed by sweep.
type pool struct {
	mu      sync.Mutex
	conns   map[poolKey]*pooledConn
	maxSize int
	linger  time.Duration
}

func newPool(maxSize int, linger time.Duration) *pool {
	p := &pool{conns: make(map[poolKey]*pooledConn), maxSize: maxSize, linger: linger}
	return p
}

// get returns a pooled connection for key, dialing a fresh one via
// dial if none is cached or the cached one is dead.
func (p *pool) get(key poolKey, dial func() (*ssh.Client, error)) (*ssh.Client, error) {
	p.sweep()

	p.mu.Lock()
	if existing, ok := p.conns[key]; ok {
		existing.lastUsedAt = time.Now()
		p.mu.Unlock()
		return existing.client, nil
	}
	if len(p.conns) >= p.maxSize {
		p.mu.Unlock()
		return nil, gwerrors.NewPoolExhaustedError("ssh connection pool exhausted", nil)
	}
	p.mu.Unlock()

	client, err := dial()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.conns[key] = &pooledConn{client: client, lastUsedAt: time.Now()}
	p.mu.Unlock()

	return client, nil
}

// discard removes and closes the pooled connection for key, forcing
// the next call to dial fresh. Used after a command failure so a
// broken connection is never silently reused.
func (p *pool) discard(key poolKey) {
	p.mu.Lock()
	existing, ok := p.conns[key]
	if ok {
		delete(p.conns, key)
	}
	p.mu.Unlock()
	if ok {
		_ = existing.client.Close()
	}
}

// sweep closes and evicts connections idle beyond the linger window.
func (p *pool) sweep() {
	cutoff := time.Now().Add(-p.linger)
	p.mu.Lock()
	var stale []*pooledConn
	for key, c := range p.conns {
		if c.lastUsedAt.Before(cutoff) {
			stale = append(stale, c)
			delete(p.conns, key)
		}
	}
	p.mu.Unlock()
	for _, c := range stale {
		_ = c.client.Close()
	}
}
