// Package testutil provides an in-memory database/sql driver understanding
// the handful of statements the postgres overlay backend issues.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// StubConn stores overlay rows keyed by key and records every statement.
type StubConn struct {
	mu       sync.Mutex
	Execs    []string
	Rows     map[string][]byte
	FailExec bool
	FailPing bool
}

var stubSeq atomic.Int64

// NewStubDB registers a fresh driver and returns a sql.DB bound to it.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Rows: make(map[string][]byte)}
	name := fmt.Sprintf("stubpg%d", stubSeq.Add(1))
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

type stubDriver struct{ conn *StubConn }

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) { return nil, fmt.Errorf("transactions not supported") }

// Ping implements driver.Pinger.
func (c *StubConn) Ping(context.Context) error {
	if c.FailPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q := normalize(query)
	c.Execs = append(c.Execs, q)
	if c.FailExec {
		return nil, fmt.Errorf("exec fail")
	}
	upper := strings.ToUpper(q)
	switch {
	case strings.HasPrefix(upper, "CREATE TABLE"):
		return driver.RowsAffected(0), nil
	case strings.HasPrefix(upper, "TRUNCATE"):
		n := len(c.Rows)
		c.Rows = make(map[string][]byte)
		return driver.RowsAffected(n), nil
	case strings.HasPrefix(upper, "INSERT INTO OVERLAY"):
		if len(args) != 2 {
			return nil, fmt.Errorf("insert expects 2 args, got %d", len(args))
		}
		key, _ := args[0].Value.(string)
		_, exists := c.Rows[key]
		if exists && !strings.Contains(upper, "ON CONFLICT") {
			return nil, fmt.Errorf("duplicate key %q", key)
		}
		c.Rows[key] = toBytes(args[1].Value)
		return driver.RowsAffected(1), nil
	case strings.HasPrefix(upper, "DELETE FROM OVERLAY"):
		if len(args) != 1 {
			return nil, fmt.Errorf("delete expects 1 arg")
		}
		key, _ := args[0].Value.(string)
		if _, ok := c.Rows[key]; !ok {
			return driver.RowsAffected(0), nil
		}
		delete(c.Rows, key)
		return driver.RowsAffected(1), nil
	}
	return nil, fmt.Errorf("unsupported exec: %s", q)
}

// QueryContext implements driver.QueryerContext.
func (c *StubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q := normalize(query)
	upper := strings.ToUpper(q)
	switch {
	case strings.HasPrefix(upper, "SELECT PAYLOAD FROM OVERLAY WHERE"):
		key, _ := args[0].Value.(string)
		rows := &stubRows{cols: []string{"payload"}}
		if payload, ok := c.Rows[key]; ok {
			rows.data = [][]driver.Value{{append([]byte(nil), payload...)}}
		}
		return rows, nil
	case strings.HasPrefix(upper, "SELECT KEY FROM OVERLAY"):
		keys := make([]string, 0, len(c.Rows))
		for k := range c.Rows {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		rows := &stubRows{cols: []string{"key"}}
		for _, k := range keys {
			rows.data = append(rows.data, []driver.Value{k})
		}
		return rows, nil
	}
	return nil, fmt.Errorf("unsupported query: %s", q)
}

func normalize(q string) string { return strings.Join(strings.Fields(q), " ") }

func toBytes(v driver.Value) []byte {
	switch t := v.(type) {
	case []byte:
		return append([]byte(nil), t...)
	case string:
		return []byte(t)
	}
	return []byte(fmt.Sprint(v))
}

type stubRows struct {
	cols []string
	data [][]driver.Value
	pos  int
}

func (r *stubRows) Columns() []string { return r.cols }

func (r *stubRows) Close() error { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.data) {
		return io.EOF
	}
	copy(dest, r.data[r.pos])
	r.pos++
	return nil
}
