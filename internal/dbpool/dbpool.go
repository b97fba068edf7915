// Package dbpool manages a fixed-size pool of pinned SQLite connections.
//
// database/sql already pools connections, but it hands them out anonymously,
// which makes per-connection state (open transactions, liveness history)
// invisible to the caller. This pool pins dedicated connections instead, so
// a connection checked out for a unit of work is verified alive before use
// and is always returned clean: any transaction left open at release time
// is rolled back.
package dbpool

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/scribahq/scriba/internal/log"
	"github.com/scribahq/scriba/internal/model"
)

// Config is the configuration for the pool.
type Config struct {
	// DBPath is the SQLite database file path.
	DBPath string
	// PoolSize is the number of pinned connections to keep.
	PoolSize int
	// AcquireTimeout bounds how long Acquire waits for a free connection.
	AcquireTimeout time.Duration
	// HealthInterval is how often idle connections get a liveness sweep.
	HealthInterval time.Duration
	// BusyTimeout is the SQLite busy handler timeout per connection.
	BusyTimeout time.Duration
	Logger      log.Logger
}

func (c *Config) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 4
	}
	if c.AcquireTimeout <= 0 {
		c.AcquireTimeout = 5 * time.Second
	}
	if c.HealthInterval <= 0 {
		c.HealthInterval = 30 * time.Second
	}
	if c.BusyTimeout <= 0 {
		c.BusyTimeout = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "dbpool.Pool"})
	return nil
}

// Pool is a fixed-size pool of pinned SQLite connections.
type Pool struct {
	db     *sql.DB
	free   chan *Conn
	logger log.Logger

	acquireTimeout time.Duration
	healthInterval time.Duration

	mu           sync.Mutex
	closed       bool
	size         int
	checkedOut   int
	totalCreated int64
	lastHealth   time.Time

	done chan struct{}
}

// New opens the database and eagerly creates the configured number of
// pinned connections. Each connection carries the engine pragmas (WAL
// journal, NORMAL synchronous, in-memory temp store, foreign keys on and
// a busy timeout), applied through the DSN at connection creation.
func New(ctx context.Context, cfg Config) (*Pool, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf(
		"%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=temp_store(MEMORY)&_pragma=busy_timeout(%d)",
		cfg.DBPath, cfg.BusyTimeout.Milliseconds(),
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.PoolSize)
	db.SetMaxIdleConns(cfg.PoolSize)

	p := &Pool{
		db:             db,
		free:           make(chan *Conn, cfg.PoolSize),
		logger:         cfg.Logger,
		acquireTimeout: cfg.AcquireTimeout,
		healthInterval: cfg.HealthInterval,
		lastHealth:     time.Now(),
		done:           make(chan struct{}),
	}

	for i := 0; i < cfg.PoolSize; i++ {
		c, err := p.newConn(ctx)
		if err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("could not create connection %d: %w", i+1, err)
		}
		p.free <- c
	}

	cfg.Logger.Debugf("Pool ready with %d connections at %s", cfg.PoolSize, cfg.DBPath)

	return p, nil
}

// Acquire checks out a connection, verifying it is alive first. Dead
// connections are discarded and replaced without the caller noticing.
// It fails with ErrUnavailable when no connection frees up within the
// acquire timeout and with ErrPoolClosed after Close.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("could not acquire: %w", model.ErrPoolClosed)
	}
	runHealth := time.Since(p.lastHealth) >= p.healthInterval
	if runHealth {
		p.lastHealth = time.Now()
	}
	p.mu.Unlock()

	if runHealth {
		p.healthPass(ctx)
	}

	deadline := time.NewTimer(p.acquireTimeout)
	defer deadline.Stop()

	for {
		select {
		case c := <-p.free:
			if err := c.verify(ctx); err != nil {
				p.logger.Warningf("Discarding dead connection %d: %v", c.id, err)
				p.destroy(c)
				replacement, err := p.newConn(ctx)
				if err != nil {
					p.logger.Errorf("Could not replace dead connection: %v", err)
					continue
				}
				c = replacement
			}
			p.mu.Lock()
			p.checkedOut++
			p.mu.Unlock()
			c.released = false
			return c, nil
		case <-deadline.C:
			return nil, fmt.Errorf("no connection free after %s: %w", p.acquireTimeout, model.ErrUnavailable)
		case <-ctx.Done():
			return nil, fmt.Errorf("could not acquire: %w", ctx.Err())
		case <-p.done:
			return nil, fmt.Errorf("could not acquire: %w", model.ErrPoolClosed)
		}
	}
}

// Release returns a connection to the pool. Any transaction still open is
// rolled back first, so a caller that forgot to commit leaves no partial
// state behind. Releasing twice is a no-op; releasing after Close closes
// the connection instead of pooling it.
func (p *Pool) Release(c *Conn) {
	if c == nil || c.released {
		return
	}
	c.released = true

	if c.tx != nil {
		if err := c.tx.Rollback(); err != nil {
			p.logger.Warningf("Rollback on release failed for connection %d: %v", c.id, err)
			p.mu.Lock()
			p.checkedOut--
			p.mu.Unlock()
			p.destroy(c)
			return
		}
		c.tx = nil
	}

	p.mu.Lock()
	p.checkedOut--
	closed := p.closed
	p.mu.Unlock()

	if closed {
		p.destroy(c)
		return
	}
	p.free <- c
}

// WithConn runs fn with an acquired connection and always releases it,
// including when fn panics.
func (p *Pool) WithConn(ctx context.Context, fn func(ctx context.Context, c *Conn) error) error {
	c, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(c)
	return fn(ctx, c)
}

// Stats returns a snapshot of the pool accounting.
func (p *Pool) Stats() model.PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return model.PoolStats{
		PoolSize:     p.size,
		Available:    p.size - p.checkedOut,
		CheckedOut:   p.checkedOut,
		TotalCreated: p.totalCreated,
	}
}

// HealthCheck verifies every idle connection now, replacing dead ones.
// Acquire triggers the same sweep lazily when the health interval elapses.
func (p *Pool) HealthCheck(ctx context.Context) {
	p.mu.Lock()
	p.lastHealth = time.Now()
	p.mu.Unlock()
	p.healthPass(ctx)
}

// Close drains and closes all pooled connections and the database.
// Checked-out connections are closed when released. Idempotent.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.done)
	p.mu.Unlock()

	for {
		select {
		case c := <-p.free:
			p.destroy(c)
		default:
			return p.db.Close()
		}
	}
}

func (p *Pool) newConn(ctx context.Context) (*Conn, error) {
	sc, err := p.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not open connection: %w", err)
	}

	p.mu.Lock()
	p.totalCreated++
	p.size++
	id := p.totalCreated
	p.mu.Unlock()

	return &Conn{id: id, sc: sc}, nil
}

// destroy marks the underlying driver connection bad so database/sql
// discards it instead of recycling it.
func (p *Pool) destroy(c *Conn) {
	_ = c.sc.Raw(func(any) error { return driver.ErrBadConn })
	_ = c.sc.Close()

	p.mu.Lock()
	p.size--
	p.mu.Unlock()
}

func (p *Pool) healthPass(ctx context.Context) {
	checked := 0
	replaced := 0
	var keep []*Conn
	for {
		select {
		case c := <-p.free:
			checked++
			if err := c.verify(ctx); err != nil {
				p.destroy(c)
				replacement, err := p.newConn(ctx)
				if err != nil {
					p.logger.Errorf("Could not replace dead connection during health pass: %v", err)
					continue
				}
				replaced++
				keep = append(keep, replacement)
				continue
			}
			keep = append(keep, c)
		default:
			for _, c := range keep {
				p.free <- c
			}
			if replaced > 0 {
				p.logger.Warningf("Health pass replaced %d of %d idle connections", replaced, checked)
			} else {
				p.logger.Debugf("Health pass verified %d idle connections", checked)
			}
			return
		}
	}
}

// Conn is a pinned database connection checked out from the pool. It is
// owned by a single goroutine between Acquire and Release.
type Conn struct {
	id       int64
	sc       *sql.Conn
	tx       *sql.Tx
	released bool
}

// ExecContext executes a statement, inside the open transaction if one exists.
func (c *Conn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if c.tx != nil {
		return c.tx.ExecContext(ctx, query, args...)
	}
	return c.sc.ExecContext(ctx, query, args...)
}

// QueryContext runs a query, inside the open transaction if one exists.
func (c *Conn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if c.tx != nil {
		return c.tx.QueryContext(ctx, query, args...)
	}
	return c.sc.QueryContext(ctx, query, args...)
}

// QueryRowContext runs a single-row query, inside the open transaction if
// one exists.
func (c *Conn) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	if c.tx != nil {
		return c.tx.QueryRowContext(ctx, query, args...)
	}
	return c.sc.QueryRowContext(ctx, query, args...)
}

// Begin opens a transaction on the connection. Only one transaction can be
// open at a time.
func (c *Conn) Begin(ctx context.Context) error {
	if c.tx != nil {
		return fmt.Errorf("transaction already open on connection %d", c.id)
	}
	tx, err := c.sc.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	c.tx = tx
	return nil
}

// Commit commits the open transaction.
func (c *Conn) Commit() error {
	if c.tx == nil {
		return fmt.Errorf("no open transaction on connection %d", c.id)
	}
	err := c.tx.Commit()
	c.tx = nil
	if err != nil {
		return fmt.Errorf("could not commit: %w", err)
	}
	return nil
}

// Rollback rolls back the open transaction.
func (c *Conn) Rollback() error {
	if c.tx == nil {
		return fmt.Errorf("no open transaction on connection %d", c.id)
	}
	err := c.tx.Rollback()
	c.tx = nil
	if err != nil {
		return fmt.Errorf("could not rollback: %w", err)
	}
	return nil
}

// verify does a lightweight round trip to prove the connection works.
func (c *Conn) verify(ctx context.Context) error {
	var one int
	if err := c.sc.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("liveness check failed: %w", err)
	}
	return nil
}
