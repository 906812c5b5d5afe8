package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/FranksOps/dogbook/internal/storage"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS query_records (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	region TEXT NOT NULL,
	category TEXT NOT NULL,
	query TEXT NOT NULL,
	outcome TEXT NOT NULL,
	slug TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT '',
	duration_ms BIGINT NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS query_records_run_id ON query_records (run_id);
`

var columns = []string{
	"id", "run_id", "region", "category", "query", "outcome",
	"slug", "source", "duration_ms", "error", "created_at",
}

// psql builds statements with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// New creates a new Postgres-backed storage.Backend.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create postgres schema: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, r *storage.QueryRecord) error {
	query, args, err := psql.Insert("query_records").
		Columns(columns...).
		Values(
			r.ID, r.RunID, r.Region, r.Category, r.Query, string(r.Outcome),
			r.Slug, r.Source, r.Duration.Milliseconds(), r.Error, r.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := b.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert query record: %w", err)
	}
	return nil
}

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.QueryRecord, error) {
	q := psql.Select(columns...).From("query_records")
	if filter.RunID != "" {
		q = q.Where(sq.Eq{"run_id": filter.RunID})
	}
	if filter.Region != "" {
		q = q.Where(sq.Eq{"region": filter.Region})
	}
	if filter.Outcome != "" {
		q = q.Where(sq.Eq{"outcome": string(filter.Outcome)})
	}
	if filter.Since != nil {
		q = q.Where(sq.GtOrEq{"created_at": *filter.Since})
	}
	q = q.OrderBy("created_at DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	results := []*storage.QueryRecord{}
	for rows.Next() {
		var r storage.QueryRecord
		var outcome string
		var durationMs int64

		if err := rows.Scan(
			&r.ID, &r.RunID, &r.Region, &r.Category, &r.Query, &outcome,
			&r.Slug, &r.Source, &durationMs, &r.Error, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}

		r.Outcome = storage.Outcome(outcome)
		r.Duration = time.Duration(durationMs) * time.Millisecond
		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	return results, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
