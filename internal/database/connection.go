package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/nfrund/profilesync/internal/config"
	"github.com/surrealdb/surrealdb.go"
)

const healthCheckInterval = 30 * time.Second

// DBConnection is the subset of Connection that stores depend on.
type DBConnection interface {
	WithConnection(ctx context.Context, fn func(*surrealdb.DB) error) error
	GetDBQueryTimeout() time.Duration
	GetDBExecuteTimeout() time.Duration
}

// Connection owns the SurrealDB link behind the application store backend.
// It signs in, selects the namespace, and reconnects with backoff when an
// operation fails on a dead socket.
type Connection struct {
	cfg     config.Provider
	conn    *surrealdb.DB
	retryer *Retryer
	mu      sync.RWMutex
	healthy bool
	done    chan struct{}
	once    sync.Once
}

// NewConnection creates an unconnected Connection. Call Connect before use.
func NewConnection(cfg config.Provider) *Connection {
	return &Connection{
		cfg:     cfg,
		retryer: NewRetryer(),
		done:    make(chan struct{}),
	}
}

// Connect establishes the initial connection. It is a no-op when already connected.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}
	return c.reconnect(ctx)
}

// WithConnection runs fn against the live connection. Connection-level
// failures trigger a reconnect and fn is retried with backoff; any other
// error is returned unchanged.
func (c *Connection) WithConnection(ctx context.Context, fn func(*surrealdb.DB) error) error {
	conn := c.current()
	if conn == nil {
		return NewDBError(ErrNotConnected, "database not connected")
	}

	err := fn(conn)
	if err == nil || !isConnectionError(err) {
		return err
	}

	slog.WarnContext(ctx, "Database operation failed, reconnecting",
		"event", "db_reconnect_triggered", "version", "1.0",
		"error", err, "db_url", redactDBURL(c.cfg.GetDBURL()))

	return c.retryer.Retry(ctx, func() error {
		if rerr := c.forceReconnect(ctx); rerr != nil {
			return fmt.Errorf("reconnection failed: %w (original error: %v)", rerr, err)
		}
		return fn(c.current())
	})
}

// StartMonitoring begins periodic health checks.
func (c *Connection) StartMonitoring() {
	go c.monitor()
}

// Close stops monitoring and closes the connection.
func (c *Connection) Close(ctx context.Context) error {
	c.once.Do(func() { close(c.done) })

	c.mu.Lock()
	defer c.mu.Unlock()
	c.healthy = false
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close(ctx)
	c.conn = nil
	return err
}

// IsHealthy reports whether the last connect or health check succeeded.
func (c *Connection) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.healthy
}

// GetDBQueryTimeout returns the default read timeout.
func (c *Connection) GetDBQueryTimeout() time.Duration {
	return c.cfg.GetDBQueryTimeout()
}

// GetDBExecuteTimeout returns the default write timeout.
func (c *Connection) GetDBExecuteTimeout() time.Duration {
	return c.cfg.GetDBExecuteTimeout()
}

func (c *Connection) current() *surrealdb.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

// reconnect must be called with c.mu held.
func (c *Connection) reconnect(ctx context.Context) error {
	if c.conn != nil {
		_ = c.conn.Close(ctx)
		c.conn = nil
	}
	c.healthy = false

	dbURL := c.cfg.GetDBURL()
	log := slog.With("db_url", redactDBURL(dbURL))
	log.DebugContext(ctx, "Connecting to database", "event", "db_connect_attempt", "version", "1.0")

	conn, err := surrealdb.FromEndpointURLString(ctx, dbURL)
	if err != nil {
		log.ErrorContext(ctx, "Failed to create database connection",
			"event", "db_connect_failure", "version", "1.0", "error", err)
		return fmt.Errorf("failed to connect to database at %s: %w", redactDBURL(dbURL), err)
	}

	if _, err = conn.SignIn(ctx, &surrealdb.Auth{
		Username: c.cfg.GetDBUser(),
		Password: c.cfg.GetDBPass(),
	}); err != nil {
		_ = conn.Close(ctx)
		log.ErrorContext(ctx, "Failed to sign in to database",
			"event", "db_auth_failure", "version", "1.0", "user", c.cfg.GetDBUser(), "error", err)
		return fmt.Errorf("failed to sign in: %w", err)
	}

	if err = conn.Use(ctx, c.cfg.GetDBNs(), c.cfg.GetDBDb()); err != nil {
		_ = conn.Close(ctx)
		log.ErrorContext(ctx, "Failed to select namespace and database",
			"event", "db_namespace_failure", "version", "1.0",
			"namespace", c.cfg.GetDBNs(), "database", c.cfg.GetDBDb(), "error", err)
		return fmt.Errorf("failed to use namespace/db: %w", err)
	}

	c.conn = conn
	c.healthy = true
	log.InfoContext(ctx, "Database connection established",
		"event", "db_connect_success", "version", "1.0",
		"namespace", c.cfg.GetDBNs(), "database", c.cfg.GetDBDb())
	return nil
}

func (c *Connection) forceReconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconnect(ctx)
}

func (c *Connection) monitor() {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := c.checkHealth(ctx); err != nil {
				slog.WarnContext(ctx, "Database health check failed, reconnecting",
					"event", "db_health_check_failure", "version", "1.0", "error", err)
				if rerr := c.retryer.Retry(ctx, func() error { return c.forceReconnect(ctx) }); rerr != nil {
					slog.ErrorContext(ctx, "Failed to reconnect after health check failure",
						"event", "db_reconnect_failure", "version", "1.0", "error", rerr)
				}
			}
			cancel()
		case <-c.done:
			return
		}
	}
}

func (c *Connection) checkHealth(ctx context.Context) error {
	conn := c.current()
	if conn == nil {
		c.setHealthy(false)
		return errors.New("no active database connection")
	}
	if _, err := conn.Version(ctx); err != nil {
		c.setHealthy(false)
		return fmt.Errorf("health check failed for %s: %w", redactDBURL(c.cfg.GetDBURL()), err)
	}
	c.setHealthy(true)
	return nil
}

func (c *Connection) setHealthy(v bool) {
	c.mu.Lock()
	c.healthy = v
	c.mu.Unlock()
}

// isConnectionError reports whether err looks like a lost connection rather
// than a query-level failure.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotConnected) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "unexpected eof") ||
		strings.Contains(msg, "use of closed network connection")
}

// redactDBURL returns dbURL with any password replaced.
func redactDBURL(dbURL string) string {
	u, err := url.Parse(dbURL)
	if err != nil {
		return "invalid-url"
	}
	return u.Redacted()
}

// Shutdown closes the connection when the application container shuts down.
func (c *Connection) Shutdown(ctx context.Context) error {
	return c.Close(ctx)
}
