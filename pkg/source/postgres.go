package source

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dd0wney/cluso-synapse/pkg/graph"
)

const (
	nodesQuery = `SELECT id, types, attributes FROM graph_nodes ORDER BY ord, id`
	edgesQuery = `SELECT id, type, source_id, target_id FROM graph_edges ORDER BY ord, id`
)

// Schema creates the tables PostgresSource reads. Exposed for provisioning
// scripts and integration tests.
const Schema = `
CREATE TABLE IF NOT EXISTS graph_nodes (
	id         TEXT PRIMARY KEY,
	types      TEXT[] NOT NULL DEFAULT '{}',
	attributes JSONB NOT NULL DEFAULT '{}',
	ord        BIGSERIAL
);
CREATE TABLE IF NOT EXISTS graph_edges (
	id        TEXT PRIMARY KEY,
	type      TEXT NOT NULL DEFAULT '',
	source_id TEXT NOT NULL,
	target_id TEXT NOT NULL,
	ord       BIGSERIAL
);`

// PostgresSource reads nodes and edges from a graph schema in PostgreSQL.
type PostgresSource struct {
	pool *pgxpool.Pool
}

// NewPostgresSource connects and pings the database.
func NewPostgresSource(ctx context.Context, dsn string) (*PostgresSource, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	config.MaxConns = 4
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	return &PostgresSource{pool: pool}, nil
}

// Load reads both tables inside one read-only transaction so nodes and edges
// come from the same snapshot.
func (s *PostgresSource) Load(ctx context.Context) (graph.Dataset, error) {
	var ds graph.Dataset
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly, IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return ds, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, nodesQuery)
	if err != nil {
		return ds, fmt.Errorf("query nodes: %w", err)
	}
	ds.Nodes, err = pgx.CollectRows(rows, scanNode)
	if err != nil {
		return ds, fmt.Errorf("scan nodes: %w", err)
	}

	rows, err = tx.Query(ctx, edgesQuery)
	if err != nil {
		return ds, fmt.Errorf("query edges: %w", err)
	}
	ds.Edges, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (graph.EdgeRecord, error) {
		var e graph.EdgeRecord
		err := row.Scan(&e.ID, &e.Type, &e.Source, &e.Target)
		return e, err
	})
	if err != nil {
		return ds, fmt.Errorf("scan edges: %w", err)
	}
	return ds, nil
}

func scanNode(row pgx.CollectableRow) (graph.NodeRecord, error) {
	var (
		n     graph.NodeRecord
		attrs []byte
	)
	if err := row.Scan(&n.ID, &n.Types, &attrs); err != nil {
		return n, err
	}
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &n.Attributes); err != nil {
			return n, fmt.Errorf("node %s attributes: %w", n.ID, err)
		}
	}
	return n, nil
}

// Ping checks database connectivity
func (s *PostgresSource) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *PostgresSource) Close() error {
	s.pool.Close()
	return nil
}
