// Package catalog implements the Catalog Writer: a bounded connection
// pool over a local embedded SQLite database that durably records chunk
// arrivals and final-file rows for audit purposes. The session store
// remains the protocol's source of truth; the catalog is a best-effort
// audit trail and never blocks or fails an upload response.
package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNoAvailableConnections is returned by acquire when the pool is at
// max_connections and every connection is in use.
var ErrNoAvailableConnections = errors.New("catalog: no available connections")

// pooledConn is one exclusive SQLite connection. Each wraps its own
// single-connection *sql.DB (MaxOpenConns=1) rather than sharing
// database/sql's internal pool, because spec.md's pool contract
// (observable NoAvailableConnections, an idle reaper invoked on every
// acquire) is stricter than what database/sql exposes on its own.
type pooledConn struct {
	db       *sql.DB
	inUse    bool
	lastUsed time.Time
}

// ConnPool is the bounded, mutex-guarded connection pool described in
// spec.md §4.2.
type ConnPool struct {
	mu          sync.Mutex
	dsn         string
	conns       []*pooledConn
	maxConns    int
	idleTimeout time.Duration
}

// NewConnPool opens a pool against the SQLite file at path. Connections
// are created lazily on first acquire, up to maxConns.
func NewConnPool(path string, maxConns int, idleTimeout time.Duration) *ConnPool {
	if maxConns < 1 {
		maxConns = 1
	}
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
	return &ConnPool{
		dsn:         dsn,
		maxConns:    maxConns,
		idleTimeout: idleTimeout,
	}
}

// acquire returns an unused connection, opening one if under the cap, or
// ErrNoAvailableConnections if the pool is exhausted. The idle reaper
// runs on every call, closing connections that have sat unused past
// idleTimeout — but the pool always keeps at least one live connection.
func (p *ConnPool) acquire() (*pooledConn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.reapIdleLocked()

	for _, c := range p.conns {
		if !c.inUse {
			c.inUse = true
			c.lastUsed = time.Now()
			return c, nil
		}
	}

	if len(p.conns) >= p.maxConns {
		return nil, ErrNoAvailableConnections
	}

	db, err := sql.Open("sqlite3", p.dsn)
	if err != nil {
		return nil, fmt.Errorf("catalog: open connection: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: ping new connection: %w", err)
	}

	c := &pooledConn{db: db, inUse: true, lastUsed: time.Now()}
	p.conns = append(p.conns, c)
	return c, nil
}

// release marks a connection unused again and stamps its last-used time.
func (p *ConnPool) release(c *pooledConn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c.inUse = false
	c.lastUsed = time.Now()
}

// reapIdleLocked closes and drops connections idle past idleTimeout,
// always leaving at least one connection alive. Callers must hold p.mu.
func (p *ConnPool) reapIdleLocked() {
	if p.idleTimeout <= 0 {
		return
	}
	now := time.Now()
	kept := p.conns[:0]
	for _, c := range p.conns {
		if !c.inUse && now.Sub(c.lastUsed) > p.idleTimeout && len(kept) > 0 {
			c.db.Close()
			continue
		}
		kept = append(kept, c)
	}
	p.conns = kept
}

// Live reports how many connections the pool currently holds open. Used
// by P7 property tests to assert the bound is respected.
func (p *ConnPool) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}

// Close shuts down every pooled connection.
func (p *ConnPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for _, c := range p.conns {
		if err := c.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	p.conns = nil
	return firstErr
}
