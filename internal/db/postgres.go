package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ukydev/vehicle-ingest/internal/schema"
)

// pgConn is the subset of *pgxpool.Pool the store uses.
type pgConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore writes rows with COPY.
type PostgresStore struct {
	conn  pgConn
	close func()
}

// ConnectPostgres opens a pool for dsn and pings it.
func ConnectPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping error: %w", err)
	}
	return &PostgresStore{conn: pool, close: pool.Close}, nil
}

// NewPostgresStore wraps an existing connection or pool.
func NewPostgresStore(conn pgConn) *PostgresStore {
	return &PostgresStore{conn: conn}
}

// EnsureTable creates t and its ordering index.
func (s *PostgresStore) EnsureTable(ctx context.Context, t *schema.Table) error {
	if s.conn == nil {
		return fmt.Errorf("postgres connection is nil")
	}
	for _, stmt := range schema.PostgresDDL(t) {
		if _, err := s.conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create table %s: %w", t.Name, err)
		}
	}
	return nil
}

// Insert copies rows into table.
func (s *PostgresStore) Insert(ctx context.Context, table string, rows [][]any, columns []string) error {
	if err := checkRows(rows, columns); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	if s.conn == nil {
		return fmt.Errorf("postgres connection is nil")
	}
	n, err := s.conn.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	if n != int64(len(rows)) {
		return fmt.Errorf("insert into %s: copied %d of %d rows", table, n, len(rows))
	}
	return nil
}

// Exists reports whether a row with the given natural key is already stored.
func (s *PostgresStore) Exists(ctx context.Context, t *schema.Table, key map[string]any) (bool, error) {
	terms, err := keyTerms(t, key)
	if err != nil {
		return false, err
	}
	if s.conn == nil {
		return false, fmt.Errorf("postgres connection is nil")
	}
	query, args := postgresExists(t.Name, terms)
	var found bool
	if err := s.conn.QueryRow(ctx, query, args...).Scan(&found); err != nil {
		return false, fmt.Errorf("lookup in %s: %w", t.Name, err)
	}
	return found, nil
}

// Close releases the pool.
func (s *PostgresStore) Close(context.Context) error {
	if s.close != nil {
		s.close()
	}
	return nil
}

func postgresExists(table string, terms []keyTerm) (string, []any) {
	where := make([]string, len(terms))
	var args []any
	for i, term := range terms {
		if term.Value == nil {
			where[i] = schema.PgIdent(term.Column) + " IS NULL"
			continue
		}
		args = append(args, term.Value)
		where[i] = fmt.Sprintf("%s = $%d", schema.PgIdent(term.Column), len(args))
	}
	return fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE %s)", schema.PgIdent(table), strings.Join(where, " AND ")), args
}
