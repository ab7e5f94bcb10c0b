package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/ukydev/vehicle-ingest/internal/config"
	"github.com/ukydev/vehicle-ingest/internal/schema"
)

// chConn is the subset of driver.Conn the store uses.
type chConn interface {
	Exec(ctx context.Context, query string, args ...any) error
	PrepareBatch(ctx context.Context, query string, opts ...driver.PrepareBatchOption) (driver.Batch, error)
	QueryRow(ctx context.Context, query string, args ...any) driver.Row
	Close() error
}

// ClickHouseStore writes rows to MergeTree tables.
type ClickHouseStore struct {
	conn chConn
}

// ConnectClickHouse opens and pings a ClickHouse connection. Port 8123/8443
// selects the HTTP interface, anything else the native protocol.
func ConnectClickHouse(ctx context.Context, cfg config.ClickHouse) (*ClickHouseStore, error) {
	protocol := clickhouse.Native
	if cfg.HTTP() {
		protocol = clickhouse.HTTP
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr:     []string{cfg.Addr()},
		Protocol: protocol,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		DialTimeout: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse.Open error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := conn.Ping(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("clickhouse.Ping error: %w", err)
	}
	return &ClickHouseStore{conn: conn}, nil
}

// NewClickHouseStore wraps an existing connection.
func NewClickHouseStore(conn chConn) *ClickHouseStore {
	return &ClickHouseStore{conn: conn}
}

// EnsureTable creates t if this process has not done so yet.
func (s *ClickHouseStore) EnsureTable(ctx context.Context, t *schema.Table) error {
	if s.conn == nil {
		return fmt.Errorf("clickhouse connection is nil")
	}
	if err := s.conn.Exec(ctx, schema.ClickHouseDDL(t)); err != nil {
		return fmt.Errorf("create table %s: %w", t.Name, err)
	}
	return nil
}

// Insert sends rows as one batch.
func (s *ClickHouseStore) Insert(ctx context.Context, table string, rows [][]any, columns []string) error {
	if err := checkRows(rows, columns); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	if s.conn == nil {
		return fmt.Errorf("clickhouse connection is nil")
	}
	batch, err := s.conn.PrepareBatch(ctx, clickHouseInsert(table, columns))
	if err != nil {
		return fmt.Errorf("prepare insert into %s: %w", table, err)
	}
	for i, row := range rows {
		if err := batch.Append(row...); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append row %d to %s: %w", i, table, err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

// Exists reports whether a row with the given natural key is already stored.
func (s *ClickHouseStore) Exists(ctx context.Context, t *schema.Table, key map[string]any) (bool, error) {
	terms, err := keyTerms(t, key)
	if err != nil {
		return false, err
	}
	if s.conn == nil {
		return false, fmt.Errorf("clickhouse connection is nil")
	}
	query, args := clickHouseExists(t.Name, terms)
	var n uint64
	if err := s.conn.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("lookup in %s: %w", t.Name, err)
	}
	return n > 0, nil
}

// Close closes the connection.
func (s *ClickHouseStore) Close(context.Context) error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func clickHouseInsert(table string, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = schema.ChIdent(c)
	}
	return fmt.Sprintf("INSERT INTO %s (%s)", schema.ChIdent(table), strings.Join(quoted, ", "))
}

func clickHouseExists(table string, terms []keyTerm) (string, []any) {
	where := make([]string, len(terms))
	var args []any
	for i, term := range terms {
		if term.Value == nil {
			where[i] = schema.ChIdent(term.Column) + " IS NULL"
			continue
		}
		where[i] = schema.ChIdent(term.Column) + " = ?"
		args = append(args, term.Value)
	}
	return fmt.Sprintf("SELECT count() FROM %s WHERE %s", schema.ChIdent(table), strings.Join(where, " AND ")), args
}
