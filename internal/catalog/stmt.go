package catalog

import (
	"context"
	"database/sql"
	"fmt"
)

// Statement is a scoped acquisition of (connection, prepared statement):
// acquiring one takes a connection out of the pool and prepares the
// query against it; Close finalizes the statement and returns the
// connection to the pool on every exit path, mirroring the prepared-
// statement wrapper spec.md §4.2/§9 calls the canonical example of
// scoped resource acquisition in this system.
type Statement struct {
	pool *ConnPool
	conn *pooledConn
	stmt *sql.Stmt
	args []interface{}
}

// Prepare acquires a connection from the pool and prepares query on it.
// Every returned Statement must have Close called, typically via defer.
func (p *ConnPool) Prepare(ctx context.Context, query string) (*Statement, error) {
	conn, err := p.acquire()
	if err != nil {
		return nil, err
	}

	stmt, err := conn.db.PrepareContext(ctx, query)
	if err != nil {
		p.release(conn)
		return nil, fmt.Errorf("catalog: prepare statement: %w", err)
	}

	return &Statement{pool: p, conn: conn, stmt: stmt}, nil
}

func (s *Statement) ensureArgs(pos int) {
	for len(s.args) < pos {
		s.args = append(s.args, nil)
	}
}

// BindInt binds a 64-bit integer at the given 1-based positional index.
func (s *Statement) BindInt(pos int, v int64) *Statement {
	s.ensureArgs(pos)
	s.args[pos-1] = v
	return s
}

// BindText binds raw bytes as text at the given 1-based positional index.
func (s *Statement) BindText(pos int, v []byte) *Statement {
	s.ensureArgs(pos)
	s.args[pos-1] = string(v)
	return s
}

// Exec runs the bound statement as a write.
func (s *Statement) Exec(ctx context.Context) (sql.Result, error) {
	return s.stmt.ExecContext(ctx, s.args...)
}

// QueryRow runs the bound statement as a single-row read. Column access
// on the returned *sql.Row is 0-based via Scan, per the driver convention.
func (s *Statement) QueryRow(ctx context.Context) *sql.Row {
	return s.stmt.QueryRowContext(ctx, s.args...)
}

// Query runs the bound statement as a multi-row read.
func (s *Statement) Query(ctx context.Context) (*sql.Rows, error) {
	return s.stmt.QueryContext(ctx, s.args...)
}

// Close finalizes the prepared statement and releases the connection
// back to the pool. Safe to call exactly once per Statement.
func (s *Statement) Close() error {
	err := s.stmt.Close()
	s.pool.release(s.conn)
	return err
}
