// Package directory implements DirectoryContext, the public entry point for
// issuing queries and write operations against a directory server (spec
// §6). ConnectionFactory/pooling is grounded on the teacher's
// session_pool.go (Session.GetOrCreateConn health-checked via WhoAmI,
// SessionPool map keyed by address, background cleanup loop).
package directory

import (
	"context"
	"crypto/tls"
	"sync"
	"time"

	ldap "github.com/go-ldap/ldap/v3"

	"github.com/sgnl-ai/ldapquery/command"
	"github.com/sgnl-ai/ldapquery/ldaperr"
)

// DirectoryConnection is the subset of *ldap.Conn behaviour a DirectoryContext
// needs, narrowed and context-aware so an in-memory fake can stand in for
// tests (internal/testsupport).
type DirectoryConnection interface {
	command.Connection
	WhoAmI(controls []ldap.Control) (*ldap.WhoAmIResult, error)
	Close() error
}

// wireConnection adapts a *ldap.Conn to DirectoryConnection, adding context
// cancellation around the blocking Search call the way the teacher's
// datasource code pairs RequestTimeoutSeconds with the search request's own
// TimeLimit. go-ldap's Search is not itself context-aware, so a cancelled
// context returns early; the underlying request is left to finish against
// the connection in the background and its result is discarded.
type wireConnection struct {
	conn *ldap.Conn
}

func (w *wireConnection) SearchContext(ctx context.Context, req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	type searchOutcome struct {
		res *ldap.SearchResult
		err error
	}

	done := make(chan searchOutcome, 1)

	go func() {
		res, err := w.conn.Search(req)
		done <- searchOutcome{res: res, err: err}
	}()

	select {
	case out := <-done:
		return out.res, out.err
	case <-ctx.Done():
		return nil, ldaperr.Cancelled(ctx.Err())
	}
}

func (w *wireConnection) Add(req *ldap.AddRequest) error           { return w.conn.Add(req) }
func (w *wireConnection) Modify(req *ldap.ModifyRequest) error     { return w.conn.Modify(req) }
func (w *wireConnection) Del(req *ldap.DelRequest) error           { return w.conn.Del(req) }
func (w *wireConnection) ModifyDN(req *ldap.ModifyDNRequest) error { return w.conn.ModifyDN(req) }
func (w *wireConnection) WhoAmI(controls []ldap.Control) (*ldap.WhoAmIResult, error) {
	return w.conn.WhoAmI(controls)
}
func (w *wireConnection) Close() error { return w.conn.Close() }

// ConnectionFactory dials and binds a new DirectoryConnection, the Go
// stand-in for the teacher's Session.GetOrCreateConn dial+bind step.
type ConnectionFactory struct {
	Address      string
	BindDN       string
	BindPassword string
	TLSConfig    *tls.Config
}

// Dial establishes and authenticates a new connection, rejecting addresses
// that aren't ldap:// or ldaps:// before ever touching the network.
func (f *ConnectionFactory) Dial() (DirectoryConnection, error) {
	address, _, err := parseAndValidateAddress(f.Address)
	if err != nil {
		return nil, err
	}

	conn, err := ldap.DialURL(address, ldap.DialWithTLSConfig(f.TLSConfig))
	if err != nil {
		return nil, ldaperr.Connection(err)
	}

	if err := conn.Bind(f.BindDN, f.BindPassword); err != nil {
		conn.Close()

		return nil, ldaperr.Connection(err)
	}

	return &wireConnection{conn: conn}, nil
}

// pooledSession is one keyed entry in the SessionPool, grounded on the
// teacher's Session type: a mutex-guarded lazily-(re)dialed connection that
// health-checks itself via WhoAmI before being handed out again.
type pooledSession struct {
	mu       sync.Mutex
	conn     DirectoryConnection
	lastUsed time.Time
}

func (s *pooledSession) getOrCreate(factory *ConnectionFactory) (DirectoryConnection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		if _, err := s.conn.WhoAmI(nil); err == nil {
			s.lastUsed = time.Now()

			return s.conn, nil
		}

		s.conn.Close()
		s.conn = nil
	}

	conn, err := factory.Dial()
	if err != nil {
		return nil, err
	}

	s.conn = conn
	s.lastUsed = time.Now()

	return conn, nil
}

// SessionPool caches one DirectoryConnection per factory key (typically the
// server address) and evicts entries idle longer than ttl, grounded on the
// teacher's SessionPool (map + background cleanup loop).
type SessionPool struct {
	mu   sync.Mutex
	pool map[string]*pooledSession
	ttl  time.Duration
	stop chan struct{}
}

// NewSessionPool starts a pool that evicts idle sessions older than ttl.
func NewSessionPool(ttl time.Duration) *SessionPool {
	p := &SessionPool{pool: make(map[string]*pooledSession), ttl: ttl, stop: make(chan struct{})}

	go p.cleanupLoop()

	return p
}

// Get returns (dialing if necessary) the pooled connection for key.
func (p *SessionPool) Get(key string, factory *ConnectionFactory) (DirectoryConnection, error) {
	p.mu.Lock()
	s, ok := p.pool[key]

	if !ok {
		s = &pooledSession{}
		p.pool[key] = s
	}

	p.mu.Unlock()

	return s.getOrCreate(factory)
}

func (p *SessionPool) cleanupLoop() {
	ticker := time.NewTicker(p.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.evictIdle()
		case <-p.stop:
			return
		}
	}
}

func (p *SessionPool) evictIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()

	for key, s := range p.pool {
		s.mu.Lock()
		idle := now.Sub(s.lastUsed)
		s.mu.Unlock()

		if idle > p.ttl && s.conn != nil {
			s.conn.Close()
			delete(p.pool, key)
		}
	}
}

// Close stops the cleanup loop and closes every pooled connection.
func (p *SessionPool) Close() {
	close(p.stop)

	p.mu.Lock()
	defer p.mu.Unlock()

	for key, s := range p.pool {
		if s.conn != nil {
			s.conn.Close()
		}

		delete(p.pool, key)
	}
}
