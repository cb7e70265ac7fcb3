package monitor

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rileyhilliard/srvstats/internal/errors"
	"github.com/rileyhilliard/srvstats/internal/logger"
	"github.com/rileyhilliard/srvstats/pkg/sshutil"
)

// Conn is a pooled connection: it opens exec channels and can be probed.
// *sshutil.Client satisfies it.
type Conn interface {
	sshutil.ChannelOpener
	Ping() error
	Close() error
}

// DialFunc connects to one SSH connection string.
type DialFunc func(addr string) (Conn, error)

// SSHDialer dials with sshutil.Dial.
func SSHDialer(opts sshutil.DialOptions) DialFunc {
	return func(addr string) (Conn, error) {
		client, err := sshutil.Dial(addr, opts)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// Pool manages a pool of SSH connections for reuse between polling cycles.
// It keeps connections alive to avoid the overhead of reconnecting on each
// collection.
type Pool struct {
	mu          sync.Mutex
	hosts       map[string][]string
	connections map[string]*poolEntry
	dialing     map[string]*sync.Mutex
	dial        DialFunc
	pingTimeout time.Duration
	log         logger.Logger
}

// poolEntry holds a connection and its metadata.
type poolEntry struct {
	conn     Conn
	via      string
	lastUsed time.Time
}

// NewPool creates a pool for hosts, keyed by host name, each with its SSH
// connection strings in preference order.
func NewPool(hosts map[string][]string, dial DialFunc, log logger.Logger) *Pool {
	if log == nil {
		log = logger.Noop()
	}
	return &Pool{
		hosts:       hosts,
		connections: make(map[string]*poolEntry),
		dialing:     make(map[string]*sync.Mutex),
		dial:        dial,
		pingTimeout: sshutil.DefaultPingTimeout,
		log:         log,
	}
}

// WithPingTimeout sets how long the liveness check of a pooled connection
// may take before the connection is treated as dead.
func (p *Pool) WithPingTimeout(d time.Duration) *Pool {
	if d > 0 {
		p.pingTimeout = d
	}
	return p
}

// Get retrieves an existing connection for the given host, or creates a new one.
// If the connection is stale or broken, it will be replaced with a fresh connection.
func (p *Pool) Get(name string) (Conn, error) {
	addrs, ok := p.hosts[name]
	if !ok || len(addrs) == 0 {
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("Host '%s' isn't configured", name),
			"Add it under 'hosts' in your config.")
	}

	if conn, ok := p.reuse(name); ok {
		return conn, nil
	}

	// One dial at a time per host; a slow dial shouldn't fan out into many.
	hostMu := p.hostLock(name)
	hostMu.Lock()
	defer hostMu.Unlock()

	// Another caller may have redialed while this one waited.
	if conn, ok := p.reuse(name); ok {
		return conn, nil
	}

	var lastErr error
	for _, addr := range addrs {
		conn, err := p.dial(addr)
		if err != nil {
			p.log.Debug("dial %s via %s failed: %v", name, addr, err)
			lastErr = err
			continue
		}

		p.mu.Lock()
		p.connections[name] = &poolEntry{conn: conn, via: addr, lastUsed: time.Now()}
		p.mu.Unlock()
		return conn, nil
	}

	if len(addrs) == 1 {
		return nil, lastErr
	}
	return nil, errors.WrapWithCode(lastErr, errors.ErrSSH,
		fmt.Sprintf("None of the SSH targets for '%s' answered", name),
		"Tried: "+strings.Join(addrs, ", "))
}

// ConnectedVia returns the connection string currently in use for name.
func (p *Pool) ConnectedVia(name string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if entry, ok := p.connections[name]; ok {
		return entry.via
	}
	return ""
}

// Opener returns a ChannelOpener for name that goes through the pool on
// every open. A failed open drops the pooled connection.
func (p *Pool) Opener(name string) sshutil.ChannelOpener {
	return &pooledOpener{pool: p, name: name}
}

// Close closes all connections in the pool and clears it.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for name, entry := range p.connections {
		if entry.conn != nil {
			_ = entry.conn.Close()
		}
		delete(p.connections, name)
	}
}

// CloseOne closes and removes a specific connection from the pool.
func (p *Pool) CloseOne(name string) {
	p.remove(name)
}

// Size returns the number of connections in the pool.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.connections)
}

// reuse returns the pooled connection for name if it answers a keepalive
// within the ping timeout. A dead or silent connection is closed and dropped.
func (p *Pool) reuse(name string) (Conn, bool) {
	p.mu.Lock()
	entry, exists := p.connections[name]
	p.mu.Unlock()
	if !exists || entry.conn == nil {
		return nil, false
	}

	if err := sshutil.BoundedPing(entry.conn.Ping, p.pingTimeout); err != nil {
		p.log.Debug("connection to %s via %s is dead, redialing: %v", name, entry.via, err)
		p.release(name, entry.conn)
		return nil, false
	}

	p.mu.Lock()
	entry.lastUsed = time.Now()
	p.mu.Unlock()
	return entry.conn, true
}

// release closes conn and drops it from the pool if it is still the pooled
// connection for name. An open that fails late must not take down a
// connection that was dialed to replace it.
func (p *Pool) release(name string, conn Conn) {
	p.mu.Lock()
	if entry, ok := p.connections[name]; ok && entry.conn == conn {
		delete(p.connections, name)
	}
	p.mu.Unlock()
	_ = conn.Close()
}

func (p *Pool) hostLock(name string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.dialing[name]
	if !ok {
		m = &sync.Mutex{}
		p.dialing[name] = m
	}
	return m
}

// remove closes and removes a connection from the pool.
func (p *Pool) remove(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if entry, ok := p.connections[name]; ok {
		if entry.conn != nil {
			_ = entry.conn.Close()
		}
		delete(p.connections, name)
	}
}

type pooledOpener struct {
	pool *Pool
	name string
}

func (o *pooledOpener) OpenChannel() (sshutil.StreamChannel, error) {
	conn, err := o.pool.Get(o.name)
	if err != nil {
		return nil, err
	}
	ch, err := conn.OpenChannel()
	if err != nil {
		o.pool.release(o.name, conn)
		return nil, err
	}
	return ch, nil
}

var _ Conn = (*sshutil.Client)(nil)
