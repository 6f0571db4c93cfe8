package database

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Client is a table-scoped accessor for records of type T. Every call runs
// through the managed connection with the configured read or write timeout.
type Client[T any] struct {
	conn  DBConnection
	table string
}

// NewClient returns a Client for table.
func NewClient[T any](conn DBConnection, table string) *Client[T] {
	return &Client[T]{conn: conn, table: table}
}

// Table returns the table this client is scoped to.
func (c *Client[T]) Table() string {
	return c.table
}

// RecordID builds the record id for key in this client's table.
func (c *Client[T]) RecordID(key string) surrealmodels.RecordID {
	return surrealmodels.NewRecordID(c.table, key)
}

// Select returns the record stored under key, or ErrNotFound.
func (c *Client[T]) Select(ctx context.Context, key string) (*T, error) {
	if key == "" {
		return nil, NewDBError(ErrInvalidInput, "record key is required")
	}

	var out *T
	err := c.read(ctx, func(ctx context.Context, db *surrealdb.DB) error {
		var err error
		out, err = QueryOne[T](ctx, db, "SELECT * FROM $rid", map[string]any{"rid": c.RecordID(key)})
		return err
	})
	if err != nil {
		return nil, WrapError(err, fmt.Sprintf("select %s:%s", c.table, key))
	}
	if out == nil {
		return nil, NewDBError(ErrNotFound, fmt.Sprintf("%s:%s", c.table, key))
	}
	return out, nil
}

// Merge merges data into the record under key, creating it when absent, and
// returns the stored record.
func (c *Client[T]) Merge(ctx context.Context, key string, data map[string]any) (*T, error) {
	if key == "" {
		return nil, NewDBError(ErrInvalidInput, "record key is required")
	}

	var out *T
	err := c.write(ctx, func(ctx context.Context, db *surrealdb.DB) error {
		var err error
		out, err = QueryOne[T](ctx, db, "UPDATE $rid MERGE $data RETURN AFTER", map[string]any{
			"rid":  c.RecordID(key),
			"data": data,
		})
		return err
	})
	if err != nil {
		return nil, WrapError(err, fmt.Sprintf("merge %s:%s", c.table, key))
	}
	if out == nil {
		return nil, NewDBError(ErrQueryFailed, fmt.Sprintf("merge %s:%s returned no record", c.table, key))
	}
	return out, nil
}

// Delete removes the record under key.
func (c *Client[T]) Delete(ctx context.Context, key string) error {
	err := c.write(ctx, func(ctx context.Context, db *surrealdb.DB) error {
		return Execute(ctx, db, "DELETE $rid", map[string]any{"rid": c.RecordID(key)})
	})
	return WrapError(err, fmt.Sprintf("delete %s:%s", c.table, key))
}

func (c *Client[T]) read(ctx context.Context, fn func(context.Context, *surrealdb.DB) error) error {
	ctx, cancel := getTimeoutFromContext(ctx, c.conn.GetDBQueryTimeout(), ContextKeyQueryTimeout)
	defer cancel()
	return c.conn.WithConnection(ctx, func(db *surrealdb.DB) error { return fn(ctx, db) })
}

func (c *Client[T]) write(ctx context.Context, fn func(context.Context, *surrealdb.DB) error) error {
	ctx, cancel := getTimeoutFromContext(ctx, c.conn.GetDBExecuteTimeout(), ContextKeyExecuteTimeout)
	defer cancel()
	return c.conn.WithConnection(ctx, func(db *surrealdb.DB) error { return fn(ctx, db) })
}
